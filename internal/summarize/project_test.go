package summarize

import (
	"context"
	"strings"
	"testing"
)

func TestSynthesizeProject_CombinesCrateSummaries(t *testing.T) {
	var prompt string
	s := newTestSummarizer(t, echoPromptHandler(t, &prompt))

	summaries := []CrateSummary{
		{CrateName: "core", Text: "Parses source files."},
		{CrateName: "cli", Text: "Exposes a command line interface."},
	}

	text, err := s.SynthesizeProject(context.Background(), summaries, false)
	if err != nil {
		t.Fatalf("SynthesizeProject failed: %v", err)
	}
	if text == "" {
		t.Fatal("expected non-empty synthesis")
	}
	if !strings.Contains(prompt, "core") || !strings.Contains(prompt, "cli") {
		t.Errorf("expected prompt to reference both crates, got %q", prompt)
	}
}

func TestSynthesizeProject_SkipsDenoiseForSingleCrate(t *testing.T) {
	var prompt string
	s := newTestSummarizer(t, echoPromptHandler(t, &prompt))
	s.cfg.DenoiseThreshold = 1 // would trigger denoise if more than one crate existed

	summaries := []CrateSummary{
		{CrateName: "only", Text: strings.Repeat("This crate does many things. ", 50)},
	}

	_, err := s.SynthesizeProject(context.Background(), summaries, false)
	if err != nil {
		t.Fatalf("SynthesizeProject failed: %v", err)
	}
	if !strings.Contains(prompt, summaries[0].Text) {
		t.Errorf("expected undenoised single-crate text to survive in prompt, got %q", prompt)
	}
}
