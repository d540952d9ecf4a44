package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/codehud/codehud-core/internal/denoise"
	"github.com/codehud/codehud-core/internal/llm"
)

const projectOutputCapTokens = 1500

// projectDenoiseRetention matches the 60% figure the original denoiser
// tuning settled on for project-level synthesis.
const projectDenoiseRetention = 0.6

const projectInstructionTemplate = `Write a two-section summary of the whole project:
Overall Architecture - must name any external libraries found in the crate summaries above.
What Does It Actually Do - must lead with the primary user-facing output.
Avoid these phrases entirely: %s.`

// SynthesizeProject produces the top-level project summary (spec.md
// section 4.6.4) from every crate's summary. usedRemoteBackend reports
// whether the most recent crate-level call was routed to the remote
// backend — when true, denoising is skipped in favor of a single pass,
// since the remote model tolerates a larger context window.
func (s *Summarizer) SynthesizeProject(ctx context.Context, crateSummaries []CrateSummary, usedRemoteBackend bool) (string, error) {
	combined := combineCrateSummaries(crateSummaries)

	if !usedRemoteBackend && len(crateSummaries) > 1 {
		if llm.EstimateTokens(combined) > s.cfg.DenoiseThreshold {
			combined = denoise.Denoise(combined, projectDenoiseRetention)
		}
	}

	prompt := fmt.Sprintf(
		"Crate summaries:\n%s\n\n%s\n",
		combined,
		fmt.Sprintf(projectInstructionTemplate, strings.Join(bannedPhrases, ", ")),
	)

	if llm.EstimateTokens(prompt) > s.cfg.CratePromptCapTokens {
		prompt = denoise.EnforceTokenBudget(prompt, s.cfg.CratePromptCapTokens)
	}

	text, err := s.gateway.GenerateWithCap(ctx, prompt, projectOutputCapTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func combineCrateSummaries(summaries []CrateSummary) string {
	var b strings.Builder
	for _, cs := range summaries {
		fmt.Fprintf(&b, "%s:\n%s\n\n", cs.CrateName, cs.Text)
	}
	return b.String()
}
