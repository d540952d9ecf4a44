package summarize

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/codehud/codehud-core/internal/extract"
)

const fileInstructionBlock = "In 2-3 direct sentences, explain what this file DOES. Use concrete verbs. Max 100 words."

const maxStructuralItemsPerSection = 3
const structuralItemMaxChars = 97
const maxMeaningfulComments = 10

// noiseCommentPattern matches comments that carry no descriptive content:
// separator rules, bare TODO markers, linter directives, shebang lines.
var noiseCommentPattern = regexp.MustCompile(`(?i)^([-=*_#]{3,}|todo:?\s*$|fixme:?\s*$|eslint-disable|prettier-ignore|^!/)`)

// SummarizeFile produces the file-level summary (spec.md section 4.6.1).
func (s *Summarizer) SummarizeFile(ctx context.Context, analysis *extract.FileAnalysis, relPath string) (FileSummary, error) {
	prompt := buildFilePrompt(analysis, relPath)

	text, err := s.gateway.GenerateWithCap(ctx, prompt, s.cfg.FileSummaryTokens)
	if err != nil {
		return FileSummary{}, err
	}

	return FileSummary{RelativePath: relPath, Text: strings.TrimSpace(text)}, nil
}

func buildFilePrompt(analysis *extract.FileAnalysis, relPath string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "File: %s\n", relPath)
	fmt.Fprintf(&b, "Language: %s\n\n", analysis.Language)

	b.WriteString("Structural insights:\n")
	for _, section := range []string{
		extract.SectionImports, extract.SectionFunctions, extract.SectionTypes,
		extract.SectionCalls, extract.SectionPublicAPI, extract.SectionDangerousPatterns,
	} {
		items := analysis.Structural[section]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s: %s\n", section, formatCompactItems(items))
	}

	comments := meaningfulComments(analysis.Comments)
	if len(comments) > 0 {
		b.WriteString("\nComments:\n")
		for _, c := range comments {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", fileInstructionBlock)
	return b.String()
}

// formatCompactItems renders up to maxStructuralItemsPerSection items,
// each truncated to structuralItemMaxChars with a trailing ellipsis.
func formatCompactItems(items []string) string {
	limit := len(items)
	if limit > maxStructuralItemsPerSection {
		limit = maxStructuralItemsPerSection
	}
	compact := make([]string, limit)
	for i := 0; i < limit; i++ {
		compact[i] = truncateItem(items[i])
	}
	return strings.Join(compact, ", ")
}

func truncateItem(item string) string {
	if len(item) <= structuralItemMaxChars {
		return item
	}
	return item[:structuralItemMaxChars] + "..."
}

// meaningfulComments keeps comments with at least 20 characters and 3
// words, filtering separator/linter-directive noise, capped at 10.
func meaningfulComments(comments []extract.Comment) []string {
	var kept []string
	for _, c := range comments {
		text := strings.TrimSpace(c.Text)
		if len(text) < 20 {
			continue
		}
		if len(strings.Fields(text)) < 3 {
			continue
		}
		if noiseCommentPattern.MatchString(text) {
			continue
		}
		kept = append(kept, text)
		if len(kept) >= maxMeaningfulComments {
			break
		}
	}
	return kept
}
