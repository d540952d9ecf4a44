// Package llm implements the LLM Gateway: a single generate(prompt,
// budget) operation that estimates token count, routes between a local
// Ollama-shaped backend and a remote Gemini-shaped backend, and never
// auto-retries. Raw net/http and encoding/json are used rather than an SDK
// client because neither backend's wire shape matches a chat-completions
// API — the same choice the original implementation made with reqwest and
// serde_json rather than a vendor crate.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codehud/codehud-core/internal/config"
	"github.com/codehud/codehud-core/internal/errors"
	"github.com/codehud/codehud-core/internal/logging"
)

const systemPrompt = "You are an expert software architect. Analyze the complete system architecture, component interactions, and unified capabilities. Provide comprehensive, detailed analysis."

// Gateway routes generate() calls between a local and a remote backend.
type Gateway struct {
	cfg          config.LLMConfig
	logger       *logging.Logger
	httpClient   *http.Client
	geminiAPIKey string // empty disables remote routing
}

// NewGateway creates a Gateway. geminiAPIKey may be empty, in which case
// every call routes to the local backend regardless of token count.
func NewGateway(cfg config.LLMConfig, geminiAPIKey string, logger *logging.Logger) *Gateway {
	return &Gateway{
		cfg:          cfg,
		logger:       logger,
		geminiAPIKey: geminiAPIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

// EstimateTokens approximates a token count as bytes/4, the same rough
// estimator both the routing decision and the denoiser budget use.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Generate routes prompt to a backend by estimated size and returns its
// full response text. It never streams and never retries a failure.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	return g.GenerateWithCap(ctx, prompt, g.cfg.LocalNumPredict)
}

// GenerateWithCap behaves like Generate but overrides the output token cap
// (num_predict / maxOutputTokens) for this call only, letting each C6 entry
// point apply its own cap (256 for files, up to 800 for subcrates, 2048 for
// crates, 1500 for the project synthesis) without mutating shared config.
func (g *Gateway) GenerateWithCap(ctx context.Context, prompt string, outputCapTokens int) (string, error) {
	estimated := EstimateTokens(prompt)
	useRemote := estimated > g.cfg.RemoteThreshold && g.geminiAPIKey != ""

	g.logger.Info("routing LLM call", map[string]interface{}{
		"estimatedTokens": estimated,
		"remote":          useRemote,
		"outputCapTokens": outputCapTokens,
	})

	if useRemote {
		return g.generateRemote(ctx, prompt, outputCapTokens)
	}
	if estimated > g.cfg.RemoteThreshold {
		g.logger.Warn("remote backend unavailable, falling back to local despite size", map[string]interface{}{
			"estimatedTokens": estimated,
		})
	}
	return g.generateLocal(ctx, prompt, outputCapTokens)
}

type localRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system"`
	Stream  bool          `json:"stream"`
	Options localOptions  `json:"options"`
}

type localOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict"`
	NumCtx      int     `json:"num_ctx"`
}

type localResponse struct {
	Response string `json:"response"`
}

func (g *Gateway) generateLocal(ctx context.Context, prompt string, outputCapTokens int) (string, error) {
	body := localRequest{
		Model:  g.cfg.LocalModel,
		Prompt: prompt,
		System: systemPrompt,
		Stream: false,
		Options: localOptions{
			Temperature: g.cfg.Temperature,
			TopP:        g.cfg.TopP,
			TopK:        g.cfg.TopK,
			NumPredict:  outputCapTokens,
			NumCtx:      g.cfg.LocalNumCtx,
		},
	}

	raw, status, err := g.post(ctx, g.cfg.LocalURL, body)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", errors.NewInferenceFailure(status, string(raw))
	}

	var parsed localResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Response == "" {
		return "", errors.New(errors.MalformedResponse, "no response field in local backend reply")
	}
	return parsed.Response, nil
}

type remoteRequest struct {
	Contents         []remoteContent `json:"contents"`
	GenerationConfig remoteConfig    `json:"generationConfig"`
}

type remoteContent struct {
	Parts []remotePart `json:"parts"`
}

type remotePart struct {
	Text string `json:"text"`
}

type remoteConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type remoteResponse struct {
	Candidates []struct {
		Content struct {
			Parts []remotePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gateway) generateRemote(ctx context.Context, prompt string, outputCapTokens int) (string, error) {
	body := remoteRequest{
		Contents: []remoteContent{{Parts: []remotePart{{Text: prompt}}}},
		GenerationConfig: remoteConfig{
			Temperature:     g.cfg.Temperature,
			TopP:            g.cfg.TopP,
			TopK:            g.cfg.TopK,
			MaxOutputTokens: outputCapTokens,
		},
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.cfg.RemoteEndpointBase, g.cfg.RemoteModel, g.geminiAPIKey)

	raw, status, err := g.post(ctx, url, body)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", errors.NewInferenceFailure(status, string(raw))
	}

	var parsed remoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrap(errors.MalformedResponse, "decode remote backend reply", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New(errors.MalformedResponse, "no text in remote backend reply")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (g *Gateway) post(ctx context.Context, url string, body interface{}) ([]byte, int, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, 0, errors.Wrap(errors.IoFailure, "encode request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, 0, errors.Wrap(errors.IoFailure, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, errors.Wrap(errors.InferenceTimeout, "LLM call exceeded deadline", err)
		}
		if te, ok := err.(interface{ Timeout() bool }); ok && te.Timeout() {
			return nil, 0, errors.Wrap(errors.InferenceTimeout, "LLM call exceeded configured timeout", err)
		}
		return nil, 0, errors.Wrap(errors.IoFailure, "LLM http call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(errors.IoFailure, "read response body", err)
	}
	return raw, resp.StatusCode, nil
}
