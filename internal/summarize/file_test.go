package summarize

import (
	"context"
	"strings"
	"testing"

	"github.com/codehud/codehud-core/internal/extract"
)

func TestSummarizeFile_ProducesTrimmedText(t *testing.T) {
	s := newTestSummarizer(t, echoPromptHandler(t, nil))

	analysis := &extract.FileAnalysis{
		Path:     "main.go",
		Language: extract.LangGo,
		Structural: map[string][]string{
			extract.SectionFunctions: {"func main()", "func run()"},
		},
	}

	summary, err := s.SummarizeFile(context.Background(), analysis, "main.go")
	if err != nil {
		t.Fatalf("SummarizeFile failed: %v", err)
	}
	if summary.RelativePath != "main.go" {
		t.Errorf("expected relative path main.go, got %q", summary.RelativePath)
	}
	if summary.Text == "" {
		t.Error("expected non-empty summary text")
	}
}

func TestBuildFilePrompt_TruncatesOverlongStructuralItems(t *testing.T) {
	analysis := &extract.FileAnalysis{
		Language: extract.LangGo,
		Structural: map[string][]string{
			extract.SectionFunctions: {strings.Repeat("x", 500)},
		},
	}

	prompt := buildFilePrompt(analysis, "big.go")
	if strings.Contains(prompt, strings.Repeat("x", 200)) {
		t.Error("expected long structural item to be truncated")
	}
}

func TestMeaningfulComments_FiltersNoiseAndShortComments(t *testing.T) {
	comments := []extract.Comment{
		{Text: "TODO"},
		{Text: "----------------------"},
		{Text: "ok"},
		{Text: "This computes the checksum used by the verifier."},
	}

	kept := meaningfulComments(comments)
	if len(kept) != 1 {
		t.Fatalf("expected exactly one meaningful comment, got %v", kept)
	}
	if kept[0] != "This computes the checksum used by the verifier." {
		t.Errorf("unexpected kept comment: %q", kept[0])
	}
}
