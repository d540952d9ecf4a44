package fsm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/codehud/codehud-core/internal/extract"
	"github.com/codehud/codehud-core/internal/summarize"
)

func TestSink_TruncateAllCreatesSixFiles(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	if err := sink.TruncateAll(); err != nil {
		t.Fatalf("TruncateAll failed: %v", err)
	}
	for _, name := range sinkFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist, got %v", name, err)
		}
	}
}

func TestSink_AppendCommentsAccumulates(t *testing.T) {
	dir := t.TempDir()
	sink, _ := NewSink(dir)
	_ = sink.TruncateAll()

	if err := sink.AppendComments(&extract.FileAnalysis{Path: "a.go", Language: extract.LangGo}); err != nil {
		t.Fatalf("AppendComments failed: %v", err)
	}
	if err := sink.AppendComments(&extract.FileAnalysis{Path: "b.go", Language: extract.LangGo}); err != nil {
		t.Fatalf("AppendComments failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, commentsFileName))
	if err != nil {
		t.Fatalf("read comments file: %v", err)
	}
	var all []extract.FileAnalysis
	if err := json.Unmarshal(raw, &all); err != nil {
		t.Fatalf("decode comments file: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 accumulated analyses, got %d", len(all))
	}
}

func TestSink_AppendCrateSummaryAccumulates(t *testing.T) {
	dir := t.TempDir()
	sink, _ := NewSink(dir)
	_ = sink.TruncateAll()

	_ = sink.AppendCrateSummary(summarize.CrateSummary{CrateName: "a"})
	_ = sink.AppendCrateSummary(summarize.CrateSummary{CrateName: "b"})

	var all []summarize.CrateSummary
	raw, _ := os.ReadFile(filepath.Join(dir, crateSummariesName))
	if err := json.Unmarshal(raw, &all); err != nil {
		t.Fatalf("decode crate summaries: %v", err)
	}
	if len(all) != 2 || all[0].CrateName != "a" || all[1].CrateName != "b" {
		t.Fatalf("unexpected crate summaries: %+v", all)
	}
}

func TestSink_UpdateMetadataIsCumulative(t *testing.T) {
	dir := t.TempDir()
	sink, _ := NewSink(dir)
	_ = sink.TruncateAll()

	_ = sink.UpdateMetadata(func(m *Metadata) { m.FilesSeen = 3 })
	_ = sink.UpdateMetadata(func(m *Metadata) { m.Status = "completed" })

	var meta Metadata
	raw, _ := os.ReadFile(filepath.Join(dir, metadataFileName))
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.FilesSeen != 3 || meta.Status != "completed" {
		t.Fatalf("expected cumulative metadata, got %+v", meta)
	}
}
