// Package summarize implements the Hierarchical Summarizer (C6): four
// entry points, one per level of the hierarchy, each composing a prompt
// from its inputs and calling the LLM Gateway for a bounded-length result.
package summarize

import (
	"time"

	"github.com/codehud/codehud-core/internal/config"
	"github.com/codehud/codehud-core/internal/extract"
	"github.com/codehud/codehud-core/internal/llm"
	"github.com/codehud/codehud-core/internal/logging"
	"github.com/codehud/codehud-core/internal/subcrate"
)

// FileSummary is the one-per-FileAnalysis record C6 produces in Phase 1.
type FileSummary struct {
	RelativePath string `json:"relativePath"`
	Text         string `json:"text"`
}

// SubcrateSummary is the record C6 produces per emitted subcrate node
// during Phase 2's bottom-up walk. NestedSubcrates is a recursive map
// keyed by nested subcrate path, not a flat list of names, so a consumer
// can inspect a descendant's own summary/files without a second lookup.
type SubcrateSummary struct {
	Name            string                     `json:"name"`
	DirectFileCount int                        `json:"directFileCount"`
	DirectFiles     []string                   `json:"directFiles"`
	TotalSizeKB     float64                    `json:"totalSizeKb"`
	NestedSubcrates map[string]SubcrateSummary `json:"nestedSubcrates"`
	Text            string                     `json:"text"`
	TokenCount      int                        `json:"tokenCount"`
}

// CrateSummary is the record C6 produces per crate in Phase 3.
type CrateSummary struct {
	CrateName          string                     `json:"crateName"`
	CratePath          string                     `json:"cratePath"`
	FilesAnalyzed      []string                   `json:"filesAnalyzed"`
	Text               string                     `json:"text"`
	StructuralInsights map[string][]string        `json:"structuralInsights"`
	TokenCount         int                        `json:"tokenCount"`
	Timestamp          time.Time                  `json:"timestamp"`
	Subcrates          map[string]SubcrateSummary `json:"subcrates,omitempty"`
}

// ProjectMemory is value-passed (never shared-mutable) across Phase-3
// crate summarization calls, accumulating cross-crate context.
type ProjectMemory struct {
	ProcessedCrates       []string `json:"processedCrates"`
	TechnologyStack       []string `json:"technologyStack"`
	ArchitecturalInsights []string `json:"architecturalInsights"`

	technologyMentionCounts map[string]int
}

// NewProjectMemory returns an empty ProjectMemory.
func NewProjectMemory() ProjectMemory {
	return ProjectMemory{technologyMentionCounts: map[string]int{}}
}

// Summarizer is the Hierarchical Summarizer. It is stateless; all
// accumulated context (ProjectMemory) is passed in and returned by value.
type Summarizer struct {
	gateway *llm.Gateway
	cfg     config.SummarizerConfig
	logger  *logging.Logger
}

// NewSummarizer creates a Summarizer bound to gateway for LLM calls.
func NewSummarizer(gateway *llm.Gateway, cfg config.SummarizerConfig, logger *logging.Logger) *Summarizer {
	return &Summarizer{gateway: gateway, cfg: cfg, logger: logger}
}

// fileContext pairs a FileAnalysis with its (already computed) file
// summary. Nothing in this package builds or reads it (nor
// subcrateNodeContext below); subcrate and crate summarization take
// []FileSummary.
type fileContext struct {
	analysis *extract.FileAnalysis
	relPath  string
	summary  FileSummary
}

// subcrateNodeContext is the resolved view of a subcrate node the
// bottom-up walk needs: its direct file contexts and the summaries of its
// already-summarized nested children.
type subcrateNodeContext struct {
	name           string
	node           *subcrate.SubcrateNode
	directFiles    []fileContext
	nestedSummaries []SubcrateSummary
}
