// Package denoise implements the Context Denoiser: importance-ranked
// sentence-level pruning that approximates a target retention ratio
// without invoking an LLM, plus a hard token-budget enforcer with a
// visible truncation marker.
package denoise

import (
	"math"
	"sort"
	"strings"
)

// technicalKeywords score +2 each when present in a sentence (case
// insensitive, substring match).
var technicalKeywords = []string{
	"provides", "implements", "manages", "serves", "handles", "functionality",
	"module", "crate", "system", "engine", "pipeline", "interface", "bridge",
	"llm", "model", "gpu", "acceleration", "constraint", "validation", "analysis",
	"processing", "generation", "detection", "monitoring", "tracking", "configuration",
	"async", "protocol",
}

// purposeIndicators score +1.5 each.
var purposeIndicators = []string{
	"purpose", "function", "role", "responsibility", "designed", "used for",
	"enables", "allows", "facilitates", "supports", "includes", "features",
}

// fillerPhrases score -1 each.
var fillerPhrases = []string{
	"however", "additionally", "furthermore", "moreover", "in conclusion",
	"as mentioned", "it should be noted", "it is important", "please note",
}

// concreteTechnologyTerms add +1 once when any of them is present.
var concreteTechnologyTerms = []string{"ffi", "rust", "python", "go", "typescript", "java", "kotlin"}

const shortTextByteThreshold = 200

// TruncationMarker is appended when EnforceTokenBudget must cut text down
// to fit a hard cap.
const TruncationMarker = "\n\n[TRUNCATED DUE TO TOKEN BUDGET]"

// Denoise returns text unchanged when it is under shortTextByteThreshold
// bytes or has two or fewer sentences. Otherwise it scores each sentence,
// keeps ceil(sentenceCount * targetRetention) of the highest-scoring ones,
// restores original order, and rejoins with ". ".
//
// Sentences are split on the literal '.' rune, not sentence-boundary
// detection — a deliberate fidelity choice, not an oversight.
func Denoise(text string, targetRetention float64) string {
	if len(text) < shortTextByteThreshold {
		return text
	}

	sentences := splitSentences(text)
	if len(sentences) <= 2 {
		return text
	}

	type scored struct {
		index int
		text  string
		score float64
	}

	all := make([]scored, len(sentences))
	for i, s := range sentences {
		all[i] = scored{index: i, text: s, score: sentenceImportance(s)}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	keepCount := int(math.Ceil(float64(len(sentences)) * targetRetention))
	if keepCount > len(all) {
		keepCount = len(all)
	}
	kept := all[:keepCount]

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].index < kept[j].index })

	parts := make([]string, len(kept))
	for i, s := range kept {
		parts[i] = strings.TrimSpace(s.text)
	}
	return strings.Join(parts, ". ") + "."
}

func splitSentences(text string) []string {
	raw := strings.Split(text, ".")
	var sentences []string
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func sentenceImportance(sentence string) float64 {
	lower := strings.ToLower(sentence)
	score := 0.0

	for _, kw := range technicalKeywords {
		if strings.Contains(lower, kw) {
			score += 2.0
		}
	}
	for _, ind := range purposeIndicators {
		if strings.Contains(lower, ind) {
			score += 1.5
		}
	}
	for _, filler := range fillerPhrases {
		if strings.Contains(lower, filler) {
			score -= 1.0
		}
	}
	for _, tech := range concreteTechnologyTerms {
		if strings.Contains(lower, tech) {
			score += 1.0
			break
		}
	}

	wordCount := len(strings.Fields(lower))
	switch {
	case wordCount >= 8 && wordCount <= 25:
		score += 0.5
	case wordCount < 4 || wordCount > 40:
		score -= 0.5
	}

	return score
}

// EnforceTokenBudget truncates text to fit within maxTokens (estimated at
// bytes/4), appending TruncationMarker when a cut was made; the marker
// counts toward the budget. Text already under budget is returned
// unchanged; a budget smaller than the marker itself yields the marker
// alone.
func EnforceTokenBudget(text string, maxTokens int) string {
	estimatedTokens := len(text) / 4
	if estimatedTokens <= maxTokens {
		return text
	}

	targetChars := maxTokens*4 - len(TruncationMarker)
	if targetChars < 0 {
		targetChars = 0
	}
	if targetChars >= len(text) {
		return text
	}
	return text[:targetChars] + TruncationMarker
}
