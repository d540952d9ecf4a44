package main

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "codehud",
	Short: "codehud - hierarchical codebase summarization engine",
	Long: `codehud is a language-agnostic codebase comprehension tool that walks a
polyglot repository, extracts comments and structure with tree-sitter, and
summarizes it bottom-up (file -> subcrate -> crate -> project) through a
local-first LLM gateway, emitting dependency and call graphs alongside the
summaries.`,
	Version: version,
}

func init() {
	rootCmd.SetVersionTemplate("codehud version {{.Version}}\n")
}
