package mutate

import (
	"fmt"

	"github.com/dgallion1/cvtree/internal/doctree"
)

// ActionType names an edit in serialized form.
type ActionType string

const (
	ActionUpdateNode    ActionType = "update_node"
	ActionAddBullet     ActionType = "add_bullet"
	ActionRemoveBullet  ActionType = "remove_bullet"
	ActionMoveBullet    ActionType = "move_bullet"
	ActionAddSection    ActionType = "add_section"
	ActionRemoveSection ActionType = "remove_section"
	ActionMoveSection   ActionType = "move_section"
	ActionRemoveNode    ActionType = "remove_node"
)

// Action is a serializable edit. Which fields are read depends on Type.
type Action struct {
	Type     ActionType   `json:"type"`
	Path     doctree.Path `json:"path,omitempty"`
	Value    Value        `json:"value,omitzero"`
	Section  int          `json:"section,omitempty"`
	Bullet   int          `json:"bullet,omitempty"`
	Position *int         `json:"position,omitempty"` // nil appends
	From     int          `json:"from,omitempty"`
	To       int          `json:"to,omitempty"`
	Text     string       `json:"text,omitempty"`
}

// Validate checks that a has a known type and the fields that type needs.
func (a Action) Validate() error {
	switch a.Type {
	case ActionUpdateNode, ActionRemoveNode:
		if len(a.Path) == 0 {
			return fmt.Errorf("action %s: path is required", a.Type)
		}
	case ActionAddBullet, ActionRemoveBullet, ActionMoveBullet,
		ActionAddSection, ActionRemoveSection, ActionMoveSection:
	case "":
		return fmt.Errorf("action type is required")
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

func (a Action) position() int {
	if a.Position == nil {
		return AtEnd
	}
	return *a.Position
}

// Apply is the reducer over actions: it returns the tree produced by a.
// Invalid actions leave the tree unchanged.
func Apply(t *doctree.Tree, a Action) *doctree.Tree {
	switch a.Type {
	case ActionUpdateNode:
		return Update(t, a.Path, a.Value)
	case ActionAddBullet:
		return AddBullet(t, a.Section, a.position(), a.Text)
	case ActionRemoveBullet:
		return RemoveBullet(t, a.Section, a.Bullet)
	case ActionMoveBullet:
		return MoveBullet(t, a.Section, a.From, a.To)
	case ActionAddSection:
		return AddSection(t, a.position(), a.Text)
	case ActionRemoveSection:
		return RemoveSection(t, a.Section)
	case ActionMoveSection:
		return MoveSection(t, a.From, a.To)
	case ActionRemoveNode:
		return RemoveNode(t, a.Path)
	}
	return t
}
