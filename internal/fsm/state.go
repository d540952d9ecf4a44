// Package fsm implements the Extraction State Machine (C7): a single
// cooperative driver loop over the ten states a scan can occupy, feeding
// the earlier components (C1-C6) in sequence and persisting their output
// to the six per-run sink files.
package fsm

import "github.com/codehud/codehud-core/internal/summarize"

// Kind identifies which variant of State is populated. Go has no sum
// types, so State is realized as one struct with a Kind tag; only the
// fields relevant to Kind are meaningful.
type Kind string

const (
	KindReady                Kind = "ready"
	KindFilePickerMode       Kind = "file_picker_mode"
	KindScanningFile         Kind = "scanning_file"
	KindCrateGrouping        Kind = "crate_grouping"
	KindCratePhase1Files     Kind = "crate_phase1_files"
	KindCratePhase2Subcrates Kind = "crate_phase2_subcrates"
	KindCratePhase3Summary   Kind = "crate_phase3_summary"
	KindGeneratingFinal      Kind = "generating_final"
	KindComplete             Kind = "complete"
	KindError                Kind = "error"
)

// ScanResult is the payload carried by a Complete state for a project scan.
type ScanResult struct {
	Root                  string                   `json:"root"`
	Crates                []string                 `json:"crates"`
	FileCount             int                      `json:"fileCount"`
	HierarchicalSummary   string                   `json:"hierarchicalSummary"`
	CrateSummaries        []summarize.CrateSummary `json:"crateSummaries"`
}

// State is the machine's current position in the extraction pipeline.
type State struct {
	Kind Kind

	// ScanningFile
	Path string

	// CrateGrouping
	Root string

	// CratePhase1Files / CratePhase2Subcrates / CratePhase3Summary
	CrateName      string
	ProcessedFiles int
	RemainingFiles int

	// GeneratingFinal
	CrateSummaries []summarize.CrateSummary

	// Complete
	Result ScanResult

	// Error
	Message string
}

// Ready is the machine's initial and post-Reset state.
func Ready() State { return State{Kind: KindReady} }

func isTerminal(k Kind) bool {
	return k == KindComplete || k == KindError
}
