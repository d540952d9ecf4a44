package fsm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/codehud/codehud-core/internal/config"
	"github.com/codehud/codehud-core/internal/extract"
	"github.com/codehud/codehud-core/internal/llm"
	"github.com/codehud/codehud-core/internal/logging"
	"github.com/codehud/codehud-core/internal/summarize"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "This file does something useful."})
	}))
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.LLM.LocalURL = server.URL
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel})

	gw := llm.NewGateway(cfg.LLM, "", logger)
	extractor := extract.NewExtractor(logger)
	summarizer := summarize.NewSummarizer(gw, cfg.Summarizer, logger)

	return NewOrchestrator(extractor, summarizer, logger, 2)
}

func writeProjectFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("fixture setup: %v", err)
		}
	}
	must(os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/fixture\n\ngo 1.24\n"), 0o644))
	must(os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
	must(os.MkdirAll(filepath.Join(root, "internal", "widget"), 0o755))
	must(os.WriteFile(filepath.Join(root, "internal", "widget", "widget.go"), []byte("package widget\n\nfunc Run() {}\n"), 0o644))
	return root
}

func TestRunProjectScan_ProducesSinkFilesAndResult(t *testing.T) {
	o := newTestOrchestrator(t)
	root := writeProjectFixture(t)
	outDir := filepath.Join(root, "project_scan_output")
	sink, err := NewSink(outDir)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}

	var lastStep int
	result, err := o.RunProjectScan(context.Background(), root, sink, func(step, total int) {
		lastStep = step
		if step > total {
			t.Errorf("step %d exceeded total %d", step, total)
		}
	})
	if err != nil {
		t.Fatalf("RunProjectScan failed: %v", err)
	}
	if lastStep == 0 {
		t.Error("expected progress callback to fire")
	}
	if result.HierarchicalSummary == "" {
		t.Error("expected non-empty hierarchical summary")
	}
	if o.State().Kind != KindComplete {
		t.Errorf("expected machine to end in Complete, got %v", o.State().Kind)
	}

	for _, name := range sinkFiles {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("expected sink file %s, got %v", name, err)
		}
	}
}

func TestRunProjectScan_CancelledContextResetsToReady(t *testing.T) {
	o := newTestOrchestrator(t)
	root := writeProjectFixture(t)
	sink, _ := NewSink(filepath.Join(root, "out"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.RunProjectScan(ctx, root, sink, nil)
	if err == nil {
		t.Fatal("expected cancelled context to produce an error")
	}
	if o.State().Kind != KindReady {
		t.Errorf("expected machine to reset to Ready, got %v", o.State().Kind)
	}
}

func TestRunFileScan_SummarizesSingleFile(t *testing.T) {
	o := newTestOrchestrator(t)
	root := writeProjectFixture(t)
	path := filepath.Join(root, "main.go")

	summary, err := o.RunFileScan(context.Background(), path)
	if err != nil {
		t.Fatalf("RunFileScan failed: %v", err)
	}
	if summary.Text == "" {
		t.Error("expected non-empty file summary")
	}
	if o.State().Kind != KindComplete {
		t.Errorf("expected machine to end in Complete, got %v", o.State().Kind)
	}
}
