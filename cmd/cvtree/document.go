package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/cvtree/internal/doctree"
	"github.com/dgallion1/cvtree/internal/parser"
	"github.com/dgallion1/cvtree/internal/preview"
	"github.com/dgallion1/cvtree/internal/serializer"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Print the document tree as JSON",
	Long:  "Parses dialect text from file, or stdin when no file is given, and prints the tree as JSON.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParse,
}

var fmtCmd = &cobra.Command{
	Use:   "fmt [file]",
	Short: "Rewrite a document in canonical form",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFmt,
}

var showCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Render a document for the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Convert Markdown, HTML, PDF or DOCX into dialect text",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	fmtCmd.Flags().BoolP("write", "w", false, "Write the result back to the file instead of stdout")
	showCmd.Flags().Int("width", 0, "Divider width (default from style)")
	importCmd.Flags().StringP("output", "o", "", "Write the result to a file instead of stdout")
}

// readDocument parses the named file, or stdin when args is empty.
func readDocument(cmd *cobra.Command, args []string) (*doctree.Tree, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return parser.Parse(string(data)), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, err
	}
	return parser.Parse(string(data)), nil
}

func runParse(cmd *cobra.Command, args []string) error {
	tree, err := readDocument(cmd, args)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(tree)
}

func runFmt(cmd *cobra.Command, args []string) error {
	tree, err := readDocument(cmd, args)
	if err != nil {
		return err
	}
	write, _ := cmd.Flags().GetBool("write")
	if !write {
		return serializer.Write(cmd.OutOrStdout(), tree)
	}
	if len(args) == 0 {
		return fmt.Errorf("--write needs a file argument")
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	return os.WriteFile(args[0], []byte(serializer.Serialize(tree)), info.Mode().Perm())
}

func runShow(cmd *cobra.Command, args []string) error {
	tree, err := readDocument(cmd, args)
	if err != nil {
		return err
	}
	styles := preview.DefaultStyles()
	if width, _ := cmd.Flags().GetInt("width"); width > 0 {
		styles.Width = width
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), preview.Terminal(tree, styles))
	return err
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	filename := args[0]
	p, err := parser.ForFile(filename, parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	tree, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return fmt.Errorf("import %s: %w", filename, err)
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		return serializer.Write(cmd.OutOrStdout(), tree)
	}
	return os.WriteFile(out, []byte(serializer.Serialize(tree)), 0o644)
}
