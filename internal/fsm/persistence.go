package fsm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/codehud/codehud-core/internal/callgraph"
	"github.com/codehud/codehud-core/internal/depgraph"
	"github.com/codehud/codehud-core/internal/errors"
	"github.com/codehud/codehud-core/internal/extract"
	"github.com/codehud/codehud-core/internal/summarize"
)

const (
	commentsFileName        = "extracted_comments.json"
	fileSummariesName       = "file_summaries.json"
	subcrateSummariesName   = "subcrate_summaries.json"
	crateSummariesName      = "crate_summaries.json"
	hierarchicalSummaryName = "hierarchical_summary.md"
	metadataFileName        = "analysis_metadata.json"
	dependencyGraphName     = "dependency_graph.json"
	callGraphName           = "call_graph.json"
)

// sinkFiles lists the six output files truncated at scan start, in the
// order spec.md names them.
var sinkFiles = []string{
	commentsFileName, fileSummariesName, subcrateSummariesName,
	crateSummariesName, hierarchicalSummaryName, metadataFileName,
}

// filePair is the [relative_path, summary_text] shape file_summaries.json
// stores each entry as.
type filePair [2]string

// Metadata is the cumulative, run-scoped record written to
// analysis_metadata.json.
type Metadata struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	Root       string    `json:"root"`
	CratesDone []string  `json:"cratesDone"`
	FilesSeen  int       `json:"filesSeen"`
	Status     string    `json:"status"`
}

// Sink persists the pipeline's output under one per-run directory using
// write-to-temp-then-rename for atomicity on POSIX hosts. Only the
// orchestrating goroutine ever calls a Sink's methods — no internal
// locking is needed.
type Sink struct {
	dir string
}

// NewSink creates a Sink rooted at dir, creating the directory if absent.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.IoFailure, "create output directory", err)
	}
	return &Sink{dir: dir}, nil
}

func (s *Sink) path(name string) string {
	return filepath.Join(s.dir, name)
}

// TruncateAll empties (or creates) all six sink files, called once at the
// start of a scan.
func (s *Sink) TruncateAll() error {
	for _, name := range sinkFiles {
		var initial []byte
		switch name {
		case subcrateSummariesName:
			initial = []byte("{}")
		case hierarchicalSummaryName:
			initial = []byte("")
		case metadataFileName:
			initial = []byte("{}")
		default:
			initial = []byte("[]")
		}
		if err := s.writeAtomic(name, initial); err != nil {
			return err
		}
	}
	return nil
}

// writeAtomic writes data to a temp file in the sink directory and renames
// it over the target, so a reader never observes a partially written file.
func (s *Sink) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return errors.Wrap(errors.IoFailure, "create temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(errors.IoFailure, "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(errors.IoFailure, "close temp file", err)
	}
	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(errors.IoFailure, "rename temp file into place", err)
	}
	return nil
}

func (s *Sink) readJSON(name string, out interface{}) error {
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		return errors.Wrap(errors.IoFailure, "read sink file", err)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// AppendComments appends one FileAnalysis to extracted_comments.json.
func (s *Sink) AppendComments(analysis *extract.FileAnalysis) error {
	var all []*extract.FileAnalysis
	if err := s.readJSON(commentsFileName, &all); err != nil {
		return err
	}
	all = append(all, analysis)
	return s.writeJSON(commentsFileName, all)
}

// AppendFileSummary appends one [relative_path, summary_text] pair to
// file_summaries.json.
func (s *Sink) AppendFileSummary(relPath, text string) error {
	var all []filePair
	if err := s.readJSON(fileSummariesName, &all); err != nil {
		return err
	}
	all = append(all, filePair{relPath, text})
	return s.writeJSON(fileSummariesName, all)
}

// WriteSubcrateSummaries overwrites subcrate_summaries.json with the
// combined, crate-name-keyed map — written once at the end of Phase 2 for
// the whole run, not appended incrementally, per spec.md §4.7.
func (s *Sink) WriteSubcrateSummaries(byCrate map[string]map[string]summarize.SubcrateSummary) error {
	return s.writeJSON(subcrateSummariesName, byCrate)
}

// AppendCrateSummary appends one CrateSummary to crate_summaries.json.
func (s *Sink) AppendCrateSummary(summary summarize.CrateSummary) error {
	var all []summarize.CrateSummary
	if err := s.readJSON(crateSummariesName, &all); err != nil {
		return err
	}
	all = append(all, summary)
	return s.writeJSON(crateSummariesName, all)
}

// WriteHierarchicalSummary overwrites hierarchical_summary.md with text.
func (s *Sink) WriteHierarchicalSummary(text string) error {
	return s.writeAtomic(hierarchicalSummaryName, []byte(text))
}

// UpdateMetadata reads the current analysis_metadata.json, applies mutate,
// and writes the result back — the "mutated cumulatively" sink spec.md
// names.
func (s *Sink) UpdateMetadata(mutate func(*Metadata)) error {
	var meta Metadata
	if err := s.readJSON(metadataFileName, &meta); err != nil {
		return err
	}
	mutate(&meta)
	return s.writeJSON(metadataFileName, meta)
}

// WriteDependencyGraph overwrites dependency_graph.json with the C8
// module-dependency graph. Written once, after every crate's files have
// contributed their import lists — not part of the six sink files spec.md
// §6 names, but the same write-once-per-run discipline applies.
func (s *Sink) WriteDependencyGraph(graph depgraph.Graph) error {
	return s.writeJSON(dependencyGraphName, graph)
}

// WriteCallGraph overwrites call_graph.json with the C9 call graph.
func (s *Sink) WriteCallGraph(graph callgraph.CallGraph) error {
	return s.writeJSON(callGraphName, graph)
}

func (s *Sink) writeJSON(name string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.Wrap(errors.IoFailure, "encode sink file", err)
	}
	return s.writeAtomic(name, data)
}
