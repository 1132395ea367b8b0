// Package editor is the stateful surface a UI drives: it holds the current
// document tree, keeps its serialized text in step with it, and records an
// undo history of tree snapshots.
package editor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/cvtree/internal/doctree"
	"github.com/dgallion1/cvtree/internal/mutate"
	"github.com/dgallion1/cvtree/internal/parser"
	"github.com/dgallion1/cvtree/internal/serializer"
	"github.com/dgallion1/cvtree/internal/stats"
)

const defaultHistoryLimit = 100

type Options struct {
	HistoryLimit int // default: 100; negative disables undo
	Stats        *stats.Recorder
	Logger       *slog.Logger
}

// State is a consistent view of the editor at one version.
type State struct {
	Tree    *doctree.Tree `json:"tree"`
	Text    string        `json:"text"`
	Version uint64        `json:"version"`
	CanUndo bool          `json:"can_undo"`
	CanRedo bool          `json:"can_redo"`
}

type historyState struct {
	undo []*doctree.Tree
	redo []*doctree.Tree
}

// Editor wraps the pure parse/mutate/serialize functions with a single
// mutable reference. It is safe for concurrent use. Trees it hands out are
// immutable snapshots and stay valid after later edits.
type Editor struct {
	mu      sync.RWMutex
	tree    *doctree.Tree
	text    string
	version uint64
	hist    historyState

	opt Options
	log *slog.Logger
}

func New(opt Options) *Editor {
	if opt.HistoryLimit == 0 {
		opt.HistoryLimit = defaultHistoryLimit
	}
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Editor{
		tree: &doctree.Tree{},
		opt:  opt,
		log:  log,
	}
}

// Load replaces the document with a fresh parse of raw and clears history.
func (e *Editor) Load(raw string) {
	start := time.Now()
	tree := parser.Parse(raw)
	e.opt.Stats.Since(stats.OpParse, start)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.hist = historyState{}
	e.setLocked(tree)
	e.log.Debug("document loaded", "bytes", len(raw), "nodes", countNodes(tree), "version", e.version)
}

func (e *Editor) Tree() *doctree.Tree {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree
}

// Text returns the canonical serialization of the current tree.
func (e *Editor) Text() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.text
}

func (e *Editor) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

func (e *Editor) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return State{
		Tree:    e.tree,
		Text:    e.text,
		Version: e.version,
		CanUndo: len(e.hist.undo) > 0,
		CanRedo: len(e.hist.redo) > 0,
	}
}

// The mutating methods report whether the document changed. Stale paths and
// out-of-range indices leave it untouched and return false.

func (e *Editor) UpdateNode(p doctree.Path, v mutate.Value) bool {
	return e.Apply(mutate.Action{Type: mutate.ActionUpdateNode, Path: p, Value: v})
}

// AddBullet inserts a plain bullet; position mutate.AtEnd appends.
func (e *Editor) AddBullet(section, position int, text string) bool {
	return e.Apply(mutate.Action{Type: mutate.ActionAddBullet, Section: section, Position: &position, Text: text})
}

func (e *Editor) RemoveBullet(section, bullet int) bool {
	return e.Apply(mutate.Action{Type: mutate.ActionRemoveBullet, Section: section, Bullet: bullet})
}

func (e *Editor) MoveBullet(section, from, to int) bool {
	return e.Apply(mutate.Action{Type: mutate.ActionMoveBullet, Section: section, From: from, To: to})
}

// Apply runs an action through the reducer and commits the result.
func (e *Editor) Apply(a mutate.Action) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	next := mutate.Apply(e.tree, a)
	e.opt.Stats.Since(stats.OpMutate, start)

	if next == e.tree {
		e.log.Debug("edit ignored", "action", a.Type, "version", e.version)
		return false
	}
	e.recordUndoLocked(e.tree)
	e.setLocked(next)
	return true
}

func (e *Editor) CanUndo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.hist.undo) > 0
}

func (e *Editor) CanRedo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.hist.redo) > 0
}

func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.hist.undo) == 0 {
		return false
	}
	i := len(e.hist.undo) - 1
	prev := e.hist.undo[i]
	e.hist.undo = e.hist.undo[:i]
	e.hist.redo = append(e.hist.redo, e.tree)

	e.setLocked(prev)
	return true
}

func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.hist.redo) == 0 {
		return false
	}
	i := len(e.hist.redo) - 1
	next := e.hist.redo[i]
	e.hist.redo = e.hist.redo[:i]
	e.pushUndoLocked(e.tree)

	e.setLocked(next)
	return true
}

func (e *Editor) recordUndoLocked(prev *doctree.Tree) {
	e.pushUndoLocked(prev)
	e.hist.redo = nil
}

func (e *Editor) pushUndoLocked(prev *doctree.Tree) {
	limit := e.opt.HistoryLimit
	if limit <= 0 {
		return
	}
	e.hist.undo = append(e.hist.undo, prev)
	if len(e.hist.undo) > limit {
		e.hist.undo = e.hist.undo[len(e.hist.undo)-limit:]
	}
}

// setLocked installs tree as current and re-derives its text, so readers
// never observe a tree and text from different versions. Edited text may
// carry dialect markers ("**Acme** | 2020" typed into a bullet); the stored
// tree is always the one the text parses to.
func (e *Editor) setLocked(tree *doctree.Tree) {
	start := time.Now()
	text := serializer.Serialize(tree)
	e.opt.Stats.Since(stats.OpSerialize, start)

	if canonical := parser.Parse(text); !doctree.Equal(canonical, tree) {
		e.log.Debug("tree canonicalized", "version", e.version+1)
		tree = canonical
		text = serializer.Serialize(tree)
	}

	e.tree = tree
	e.text = text
	e.version++
}

func countNodes(t *doctree.Tree) int {
	n := 0
	t.Walk(func(doctree.Path, *doctree.Node) bool {
		n++
		return true
	})
	return n
}
