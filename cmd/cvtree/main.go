package main

import (
	"fmt"
	"os"

	"github.com/dgallion1/cvtree/internal/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var v = config.New()

var rootCmd = &cobra.Command{
	Use:   "cvtree",
	Short: "Structured editing for plain-text career documents",
	Long: `cvtree parses resume-style documents into a tree, edits them by
structural path, and writes them back as canonical text.

Run "cvtree serve" for the editing API, or use the document
subcommands directly on files and stdin.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "Config file (default: cvtree.yaml in ~/.config/cvtree, ~ or .)")

	rootCmd.AddCommand(serveCmd, parseCmd, fmtCmd, showCmd, importCmd)
}

func initConfig() {
	if path, _ := rootCmd.PersistentFlags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(v)
}

// bindFlag ties a command flag to a config key so flags override files and
// environment.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
