package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codehud/codehud-core/internal/config"
	"github.com/codehud/codehud-core/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
}

func TestGenerate_RoutesLocalBelowThreshold(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req localRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(localResponse{Response: "a local summary"})
	}))
	defer server.Close()

	cfg := config.DefaultConfig().LLM
	cfg.LocalURL = server.URL
	cfg.RemoteThreshold = 28000

	gw := NewGateway(cfg, "", testLogger())
	text, err := gw.Generate(context.Background(), "short prompt")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "a local summary" {
		t.Errorf("expected local summary text, got %q", text)
	}
}

func TestGenerate_RoutesRemoteAboveThresholdWithKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := remoteResponse{}
		resp.Candidates = []struct {
			Content struct {
				Parts []remotePart `json:"parts"`
			} `json:"content"`
		}{
			{Content: struct {
				Parts []remotePart `json:"parts"`
			}{Parts: []remotePart{{Text: "a remote summary"}}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	cfg := config.DefaultConfig().LLM
	cfg.RemoteEndpointBase = server.URL
	cfg.RemoteThreshold = 1

	gw := NewGateway(cfg, "fake-key", testLogger())
	text, err := gw.Generate(context.Background(), strings.Repeat("word ", 100))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "a remote summary" {
		t.Errorf("expected remote summary text, got %q", text)
	}
}

func TestGenerate_NonSuccessStatusIsInferenceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	cfg := config.DefaultConfig().LLM
	cfg.LocalURL = server.URL

	gw := NewGateway(cfg, "", testLogger())
	_, err := gw.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestGenerate_MalformedResponseIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer server.Close()

	cfg := config.DefaultConfig().LLM
	cfg.LocalURL = server.URL

	gw := NewGateway(cfg, "", testLogger())
	_, err := gw.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected malformed response error")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("abcd"); got != 1 {
		t.Errorf("expected 1 token for 4 bytes, got %d", got)
	}
}
