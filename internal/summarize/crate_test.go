package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codehud/codehud-core/internal/config"
	"github.com/codehud/codehud-core/internal/llm"
	"github.com/codehud/codehud-core/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
}

func newTestSummarizer(t *testing.T, handler http.HandlerFunc) *Summarizer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.LLM.LocalURL = server.URL

	gw := llm.NewGateway(cfg.LLM, "", testLogger())
	return NewSummarizer(gw, cfg.Summarizer, testLogger())
}

func echoPromptHandler(t *testing.T, capture *string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if capture != nil {
			*capture = req.Prompt
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "This component does X. It uses Y."})
	}
}

func TestSummarizeCrate_IncludesBannedPhraseInstruction(t *testing.T) {
	var prompt string
	s := newTestSummarizer(t, echoPromptHandler(t, &prompt))

	files := []FileSummary{{RelativePath: "a.go", Text: "Parses input."}}
	summary, err := s.SummarizeCrate(context.Background(), "core", "/repo/core", "main crate", []string{"a.go"}, nil, files, nil, nil)
	if err != nil {
		t.Fatalf("SummarizeCrate failed: %v", err)
	}
	if summary.CrateName != "core" {
		t.Errorf("expected crate name core, got %q", summary.CrateName)
	}
	if summary.CratePath != "/repo/core" {
		t.Errorf("expected crate path /repo/core, got %q", summary.CratePath)
	}
	if len(summary.FilesAnalyzed) != 1 || summary.FilesAnalyzed[0] != "a.go" {
		t.Errorf("expected files analyzed to contain a.go, got %v", summary.FilesAnalyzed)
	}
	for _, phrase := range bannedPhrases {
		if !strings.Contains(prompt, phrase) {
			t.Errorf("expected instruction to mention banned phrase %q", phrase)
		}
	}
}

func TestSummarizeCrate_IncludesProjectMemoryWhenPresent(t *testing.T) {
	var prompt string
	s := newTestSummarizer(t, echoPromptHandler(t, &prompt))

	memory := NewProjectMemory()
	memory.ProcessedCrates = []string{"auth"}
	memory.TechnologyStack = []string{"Postgres"}

	_, err := s.SummarizeCrate(context.Background(), "core", "", "", nil, nil, nil, nil, &memory)
	if err != nil {
		t.Fatalf("SummarizeCrate failed: %v", err)
	}
	if !strings.Contains(prompt, "auth") {
		t.Errorf("expected prompt to reference previously processed crate, got %q", prompt)
	}
	if !strings.Contains(prompt, "Postgres") {
		t.Errorf("expected prompt to reference known technology stack, got %q", prompt)
	}
}

func TestSummarizeCrate_OversizePromptIsReduced(t *testing.T) {
	var prompt string
	s := newTestSummarizer(t, echoPromptHandler(t, &prompt))

	var files []FileSummary
	for i := 0; i < 500; i++ {
		files = append(files, FileSummary{
			RelativePath: "file.go",
			Text:         strings.Repeat("a long descriptive sentence about this file. ", 20),
		})
	}

	_, err := s.SummarizeCrate(context.Background(), "huge", "", "", nil, nil, files, nil, nil)
	if err != nil {
		t.Fatalf("SummarizeCrate failed: %v", err)
	}
	if llm.EstimateTokens(prompt) > defaultCrateCapTokens {
		t.Errorf("expected reduced/truncated prompt to fit cap, got %d estimated tokens", llm.EstimateTokens(prompt))
	}
}

func TestUpdateProjectMemory_AppendsCrateNameAndInsight(t *testing.T) {
	memory := NewProjectMemory()
	summary := CrateSummary{CrateName: "auth", Text: "Handles login. It integrates with Postgres and Redis."}

	next := UpdateProjectMemory(memory, summary)

	if len(next.ProcessedCrates) != 1 || next.ProcessedCrates[0] != "auth" {
		t.Errorf("expected processed crates to contain auth, got %v", next.ProcessedCrates)
	}
	if len(next.ArchitecturalInsights) != 1 {
		t.Errorf("expected one architectural insight, got %v", next.ArchitecturalInsights)
	}
	if len(memory.ProcessedCrates) != 0 {
		t.Errorf("expected original memory to remain unmutated, got %v", memory.ProcessedCrates)
	}
}

func TestUpdateProjectMemory_TracksRepeatedTechnologyMentions(t *testing.T) {
	memory := NewProjectMemory()
	memory = UpdateProjectMemory(memory, CrateSummary{CrateName: "a", Text: "Uses Postgres for storage."})
	memory = UpdateProjectMemory(memory, CrateSummary{CrateName: "b", Text: "Also talks to Postgres directly."})

	found := false
	for _, tech := range memory.TechnologyStack {
		if tech == "Postgres" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Postgres to be tracked after second mention, got %v", memory.TechnologyStack)
	}
}
