package summarize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/codehud/codehud-core/internal/subcrate"
)

const subcrateInstructionBlock = "Provide a concise technical summary with sections Primary Purpose / Key Components / Nested Subcrates / Integration."

// maxKeptSubcrates is the point past which the lowest-priority subcrates
// are dropped before any summary is generated for them.
const maxKeptSubcrates = 10

// subcrateAggregateBudgetTokens is the target combined size of all
// subcrate summaries feeding a single crate summary.
const subcrateAggregateBudgetTokens = 5000

// SelectSubcratesForSummarization applies the truncation policy: if the
// tree holds more than maxKeptSubcrates nodes (nested included), drop the
// lowest-priority ones first — nested before top-level, then smallest
// total_size_kb within each tier — until at most maxKeptSubcrates remain.
func SelectSubcratesForSummarization(nodes map[string]*subcrate.SubcrateNode) []subcrate.FlattenEntry {
	flat := subcrate.Flatten(nodes, false)
	if len(flat) <= maxKeptSubcrates {
		return flat
	}

	dropped := make([]bool, len(flat))
	order := make([]int, len(flat))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if flat[ia].IsNested != flat[ib].IsNested {
			return flat[ia].IsNested // nested sorts first (dropped first)
		}
		return flat[ia].Node.TotalSizeKB < flat[ib].Node.TotalSizeKB
	})

	toDrop := len(flat) - maxKeptSubcrates
	for _, idx := range order[:toDrop] {
		dropped[idx] = true
	}

	var kept []subcrate.FlattenEntry
	for i, entry := range flat {
		if !dropped[i] {
			kept = append(kept, entry)
		}
	}
	return kept
}

// PerSubcrateBudget returns the output token cap for each subcrate summary
// given how many were kept after truncation.
func PerSubcrateBudget(keptCount int) int {
	if keptCount <= 0 {
		return 800
	}
	budget := subcrateAggregateBudgetTokens / keptCount
	if budget > 800 {
		budget = 800
	}
	return budget
}

// SummarizeSubcrate produces one subcrate's summary. Precondition: every
// entry in alreadySummarizedNested corresponds to a nested subcrate within
// node that passed the truncation filter and has already been summarized.
func (s *Summarizer) SummarizeSubcrate(
	ctx context.Context,
	name string,
	node *subcrate.SubcrateNode,
	directFileSummaries []FileSummary,
	alreadySummarizedNested []SubcrateSummary,
	budgetTokens int,
) (SubcrateSummary, error) {
	outputCap := budgetTokens
	if outputCap > 800 || outputCap <= 0 {
		outputCap = 800
	}

	prompt := buildSubcratePrompt(name, node, directFileSummaries, alreadySummarizedNested)

	text, err := s.gateway.GenerateWithCap(ctx, prompt, outputCap)
	if err != nil {
		return SubcrateSummary{}, err
	}

	nestedByName := make(map[string]SubcrateSummary, len(alreadySummarizedNested))
	for _, n := range alreadySummarizedNested {
		nestedByName[n.Name] = n
	}

	trimmed := strings.TrimSpace(text)
	return SubcrateSummary{
		Name:            name,
		DirectFileCount: len(node.DirectFiles),
		DirectFiles:     append([]string(nil), node.DirectFiles...),
		TotalSizeKB:     node.TotalSizeKB,
		NestedSubcrates: nestedByName,
		Text:            trimmed,
		TokenCount:      len(trimmed) / 4,
	}, nil
}

func buildSubcratePrompt(name string, node *subcrate.SubcrateNode, directFileSummaries []FileSummary, nested []SubcrateSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Subcrate: %s\n", name)
	fmt.Fprintf(&b, "Direct files: %d\n", len(node.DirectFiles))

	if len(nested) > 0 {
		b.WriteString("Nested subcrates:\n")
		for _, n := range nested {
			fmt.Fprintf(&b, "  - %s (%d files)\n", n.Name, n.DirectFileCount)
		}
	}

	if len(directFileSummaries) > 0 {
		b.WriteString("\nDirect file summaries:\n")
		for _, fs := range directFileSummaries {
			fmt.Fprintf(&b, "  %s: %s\n", fs.RelativePath, fs.Text)
		}
	}

	if len(nested) > 0 {
		b.WriteString("\nNested subcrate summaries:\n")
		for _, n := range nested {
			fmt.Fprintf(&b, "  %s (%d files): %s\n", n.Name, n.DirectFileCount, n.Text)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", subcrateInstructionBlock)
	return b.String()
}
