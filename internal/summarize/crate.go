package summarize

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/codehud/codehud-core/internal/denoise"
	"github.com/codehud/codehud-core/internal/extract"
	"github.com/codehud/codehud-core/internal/llm"
)

// maxStructuralInsightItemsPerSection is spec.md section 3's cap on how
// many items an aggregated CrateSummary.StructuralInsights section keeps,
// applied after merging every file's insights in file order.
const maxStructuralInsightItemsPerSection = 10

// bannedPhrases are injected into the crate-summary instruction so the
// model is steered away from vague, templated filler.
var bannedPhrases = []string{
	"serves as", "provides functionality", "manages", "handles",
	"responsible for", "designed to", "leverages", "utilizes",
}

const crateOutputCapTokens = 2048
const defaultCrateCapTokens = 8000

const crateInstructionTemplate = `Write a two-section summary:
Overall Architecture - must name any external libraries found in the inputs above.
What Does It Actually Do - must lead with the primary user-facing output.
Avoid these phrases entirely: %s.`

// technologyNamePattern is a coarse heuristic for "named external
// library" mentions used to populate ProjectMemory.TechnologyStack: a
// capitalized identifier token, optionally followed by one dotted segment.
var technologyNamePattern = regexp.MustCompile(`\b[A-Z][A-Za-z0-9]*(?:\.[A-Za-z0-9]+)?\b`)

// SummarizeCrate produces one crate's summary (spec.md section 4.6.3).
// subcrateSummaries and memory are optional (nil / zero value when absent).
// filesAnalyzed and analyses cover every file the crate's Phase 1 pass
// produced a FileSummary for (individualFileSummaries plus whatever the
// kept subcrate tree already folded in), feeding CrateSummary's
// FilesAnalyzed and aggregated StructuralInsights.
func (s *Summarizer) SummarizeCrate(
	ctx context.Context,
	crateName string,
	cratePath string,
	crateDescription string,
	filesAnalyzed []string,
	analyses []*extract.FileAnalysis,
	individualFileSummaries []FileSummary,
	topLevelSubcrateSummaries []SubcrateSummary,
	memory *ProjectMemory,
) (CrateSummary, error) {
	prompt := buildCratePrompt(crateName, crateDescription, individualFileSummaries, topLevelSubcrateSummaries, memory, promptDetailFull)

	promptCap := s.cfg.CratePromptCapTokens
	if promptCap <= 0 {
		promptCap = defaultCrateCapTokens
	}

	if llm.EstimateTokens(prompt) > promptCap {
		s.logger.Warn("crate prompt exceeds cap, rebuilding with reduced context", map[string]interface{}{
			"crate": crateName,
		})
		prompt = buildCratePrompt(crateName, crateDescription, individualFileSummaries, topLevelSubcrateSummaries, memory, promptDetailReduced)
	}
	if llm.EstimateTokens(prompt) > promptCap {
		prompt = denoise.EnforceTokenBudget(prompt, promptCap)
	}

	text, err := s.gateway.GenerateWithCap(ctx, prompt, crateOutputCapTokens)
	if err != nil {
		return CrateSummary{}, err
	}

	trimmed := strings.TrimSpace(text)
	return CrateSummary{
		CrateName:          crateName,
		CratePath:          cratePath,
		FilesAnalyzed:      append([]string(nil), filesAnalyzed...),
		Text:               trimmed,
		StructuralInsights: aggregateStructuralInsights(analyses, maxStructuralInsightItemsPerSection),
		TokenCount:         len(trimmed) / 4,
		Timestamp:          time.Now(),
		Subcrates:          subcrateSummariesByName(topLevelSubcrateSummaries),
	}, nil
}

// aggregateStructuralInsights merges every analysis's StructuralInsights
// sections, in file order, capping each section at maxPerSection items —
// spec.md section 3's "sections merged across files, capped at 10 items
// per section".
func aggregateStructuralInsights(analyses []*extract.FileAnalysis, maxPerSection int) map[string][]string {
	merged := map[string][]string{}
	for _, a := range analyses {
		if a == nil {
			continue
		}
		for section, items := range a.Structural {
			if len(merged[section]) >= maxPerSection {
				continue
			}
			for _, item := range items {
				if len(merged[section]) >= maxPerSection {
					break
				}
				merged[section] = append(merged[section], item)
			}
		}
	}
	return merged
}

// subcrateSummariesByName builds CrateSummary.Subcrates from the top-level
// subcrate summaries a crate's Phase 2 pass kept. Returns nil (omitted from
// JSON) rather than an empty map when there are none.
func subcrateSummariesByName(topLevel []SubcrateSummary) map[string]SubcrateSummary {
	if len(topLevel) == 0 {
		return nil
	}
	byName := make(map[string]SubcrateSummary, len(topLevel))
	for _, s := range topLevel {
		byName[s.Name] = s
	}
	return byName
}

type promptDetail int

const (
	promptDetailFull promptDetail = iota
	promptDetailReduced
)

func buildCratePrompt(
	crateName, crateDescription string,
	individualFileSummaries []FileSummary,
	topLevelSubcrateSummaries []SubcrateSummary,
	memory *ProjectMemory,
	detail promptDetail,
) string {
	var b strings.Builder

	if memory != nil {
		writeMemoryBlock(&b, memory, detail)
	}

	fmt.Fprintf(&b, "Crate: %s\n", crateName)
	if crateDescription != "" {
		fmt.Fprintf(&b, "Description: %s\n", crateDescription)
	}

	if len(topLevelSubcrateSummaries) > 0 {
		b.WriteString("\nSubcrate summaries:\n")
		for _, sc := range topLevelSubcrateSummaries {
			body := sc.Text
			if detail == promptDetailReduced {
				body = firstLine(body)
			}
			fmt.Fprintf(&b, "  %s: %s\n", sc.Name, body)
		}
	}

	if len(individualFileSummaries) > 0 {
		b.WriteString("\nIndividual file summaries:\n")
		for _, fs := range individualFileSummaries {
			text := fs.Text
			if detail == promptDetailReduced {
				text = truncateToChars(firstSentence(text), 100)
			}
			fmt.Fprintf(&b, "  %s: %s\n", fs.RelativePath, text)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", fmt.Sprintf(crateInstructionTemplate, strings.Join(bannedPhrases, ", ")))
	return b.String()
}

func writeMemoryBlock(b *strings.Builder, memory *ProjectMemory, detail promptDetail) {
	if detail == promptDetailReduced {
		fmt.Fprintf(b, "Project memory: %d crates processed so far.\n\n", len(memory.ProcessedCrates))
		return
	}

	if len(memory.ProcessedCrates) > 0 {
		fmt.Fprintf(b, "Previously processed crates: %s\n", strings.Join(memory.ProcessedCrates, ", "))
	}
	if len(memory.TechnologyStack) > 0 {
		fmt.Fprintf(b, "Known technology stack: %s\n", strings.Join(memory.TechnologyStack, ", "))
	}
	if len(memory.ArchitecturalInsights) > 0 {
		b.WriteString("Accumulated architectural insights:\n")
		for _, insight := range memory.ArchitecturalInsights {
			fmt.Fprintf(b, "  - %s\n", insight)
		}
	}
	b.WriteString("\n")
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

func firstSentence(text string) string {
	if idx := strings.IndexByte(text, '.'); idx >= 0 {
		return text[:idx+1]
	}
	return text
}

func truncateToChars(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

// UpdateProjectMemory returns a new ProjectMemory reflecting crateSummary
// having just been produced. memory is never mutated in place — the
// orchestration layer carries the returned value forward by value.
func UpdateProjectMemory(memory ProjectMemory, crateSummary CrateSummary) ProjectMemory {
	next := ProjectMemory{
		ProcessedCrates:         append(append([]string{}, memory.ProcessedCrates...), crateSummary.CrateName),
		TechnologyStack:         append([]string{}, memory.TechnologyStack...),
		ArchitecturalInsights:   append(append([]string{}, memory.ArchitecturalInsights...), firstSentence(crateSummary.Text)),
		technologyMentionCounts: copyMentionCounts(memory.technologyMentionCounts),
	}

	for _, match := range technologyNamePattern.FindAllString(crateSummary.Text, -1) {
		next.technologyMentionCounts[match]++
		if next.technologyMentionCounts[match] == 2 && !contains(next.TechnologyStack, match) {
			next.TechnologyStack = append(next.TechnologyStack, match)
		}
	}

	return next
}

func copyMentionCounts(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
