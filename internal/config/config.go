// Package config loads the extraction pipeline's configuration: an
// optional .codehud/config.{json,yaml} under the repo root via viper, with
// environment-variable overrides applied on top, mirroring the pattern in
// the wider code-knowledge-base family this pipeline is a part of.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// CodebasePathEnvVar names the environment variable that supplies the
// default repository root when no explicit root is passed to scan_project.
const CodebasePathEnvVar = "CODEHUD_CODEBASE_PATH"

// GeminiAPIKeyEnvVar names the environment variable that, when set, enables
// remote-backend routing in the LLM gateway.
const GeminiAPIKeyEnvVar = "GEMINI_API_KEY"

// ExtractionConfig controls Phase-1 file extraction (C1/C7).
type ExtractionConfig struct {
	MaxWorkers          int `json:"maxWorkers" mapstructure:"maxWorkers"`
	FileParseTimeoutSec int `json:"fileParseTimeoutSec" mapstructure:"fileParseTimeoutSec"`
}

// LLMConfig controls the LLM Gateway (C4).
type LLMConfig struct {
	LocalURL           string  `json:"localUrl" mapstructure:"localUrl"`
	LocalModel         string  `json:"localModel" mapstructure:"localModel"`
	RemoteModel        string  `json:"remoteModel" mapstructure:"remoteModel"`
	RemoteEndpointBase string  `json:"remoteEndpointBase" mapstructure:"remoteEndpointBase"`
	Temperature        float64 `json:"temperature" mapstructure:"temperature"`
	TopP               float64 `json:"topP" mapstructure:"topP"`
	TopK               int     `json:"topK" mapstructure:"topK"`
	LocalNumCtx        int     `json:"localNumCtx" mapstructure:"localNumCtx"`
	LocalNumPredict    int     `json:"localNumPredict" mapstructure:"localNumPredict"`
	RemoteThreshold    int     `json:"remoteThresholdTokens" mapstructure:"remoteThresholdTokens"`
	TimeoutSec         int     `json:"timeoutSec" mapstructure:"timeoutSec"`
}

// SummarizerConfig holds the Hierarchical Summarizer's per-level token
// caps (C6). internal/summarize reads FileSummaryTokens,
// CratePromptCapTokens and DenoiseThreshold; the subcrate, crate-output and
// project-output caps it applies are its own package constants, so
// SubcrateTotalTokens, SubcrateMaxTokens, CrateSummaryTokens and
// ProjectSummaryTokens are not read.
type SummarizerConfig struct {
	FileSummaryTokens    int `json:"fileSummaryTokens" mapstructure:"fileSummaryTokens"`
	SubcrateTotalTokens  int `json:"subcrateTotalTokens" mapstructure:"subcrateTotalTokens"`
	SubcrateMaxTokens    int `json:"subcrateMaxTokens" mapstructure:"subcrateMaxTokens"`
	CrateSummaryTokens   int `json:"crateSummaryTokens" mapstructure:"crateSummaryTokens"`
	CratePromptCapTokens int `json:"cratePromptCapTokens" mapstructure:"cratePromptCapTokens"`
	ProjectSummaryTokens int `json:"projectSummaryTokens" mapstructure:"projectSummaryTokens"`
	DenoiseThreshold     int `json:"denoiseThresholdTokens" mapstructure:"denoiseThresholdTokens"`
}

// Config is the complete configuration tree for a scan.
type Config struct {
	OutputDirName string           `json:"outputDirName" mapstructure:"outputDirName"`
	Extraction    ExtractionConfig `json:"extraction" mapstructure:"extraction"`
	LLM           LLMConfig        `json:"llm" mapstructure:"llm"`
	Summarizer    SummarizerConfig `json:"summarizer" mapstructure:"summarizer"`
}

// DefaultConfig returns the pipeline's built-in defaults, matching the
// constants named in spec.md §4.4/§4.6.
func DefaultConfig() *Config {
	return &Config{
		OutputDirName: "project_scan_output",
		Extraction: ExtractionConfig{
			MaxWorkers:          8,
			FileParseTimeoutSec: 30,
		},
		LLM: LLMConfig{
			LocalURL:           "http://localhost:11434/api/generate",
			LocalModel:         "qwen2.5-coder:14b-instruct-q4_K_M",
			RemoteModel:        "gemini-1.5-flash",
			RemoteEndpointBase: "https://generativelanguage.googleapis.com/v1beta/models",
			Temperature:        0.7,
			TopP:               0.9,
			TopK:               40,
			LocalNumCtx:        16384,
			LocalNumPredict:    2048,
			RemoteThreshold:    28000,
			TimeoutSec:         300,
		},
		Summarizer: SummarizerConfig{
			FileSummaryTokens:    256,
			SubcrateTotalTokens:  5000,
			SubcrateMaxTokens:    800,
			CrateSummaryTokens:   2048,
			CratePromptCapTokens: 8000,
			ProjectSummaryTokens: 1500,
			DenoiseThreshold:     15000,
		},
	}
}

// EnvOverride records a single environment-variable override applied on
// top of the loaded/default config, for diagnostics.
type EnvOverride struct {
	EnvVar    string
	Path      string
	FromValue string
}

// LoadResult carries the loaded config plus metadata about how it was
// assembled.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	EnvOverrides []EnvOverride
	UsedDefaults bool
}

// Load reads <repoRoot>/.codehud/config.{json,yaml,yml} if present, falls
// back to DefaultConfig, then applies CODEHUD_* environment overrides.
func Load(repoRoot string) (*LoadResult, error) {
	result := &LoadResult{}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(repoRoot, ".codehud"))
	v.SetEnvPrefix("CODEHUD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			result.Config = DefaultConfig()
			result.UsedDefaults = true
		} else {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	} else {
		cfg := DefaultConfig()
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
		}
		result.Config = cfg
		result.ConfigPath = v.ConfigFileUsed()
	}

	result.EnvOverrides = applyEnvOverrides(result.Config)
	return result, nil
}

// envVarMapping associates a CODEHUD_* environment variable with a setter
// applied to Config.
type envVarMapping struct {
	envVar string
	path   string
	apply  func(cfg *Config, raw string) bool
}

var envVarMappings = []envVarMapping{
	{"CODEHUD_MAX_WORKERS", "extraction.maxWorkers", func(c *Config, raw string) bool {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return false
		}
		c.Extraction.MaxWorkers = n
		return true
	}},
	{"CODEHUD_LLM_TIMEOUT", "llm.timeoutSec", func(c *Config, raw string) bool {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return false
		}
		c.LLM.TimeoutSec = n
		return true
	}},
	{"CODEHUD_OUTPUT_DIR", "outputDirName", func(c *Config, raw string) bool {
		c.OutputDirName = raw
		return true
	}},
}

func applyEnvOverrides(cfg *Config) []EnvOverride {
	var overrides []EnvOverride
	for _, mapping := range envVarMappings {
		raw := os.Getenv(mapping.envVar)
		if raw == "" {
			continue
		}
		if mapping.apply(cfg, raw) {
			overrides = append(overrides, EnvOverride{
				EnvVar:    mapping.envVar,
				Path:      mapping.path,
				FromValue: raw,
			})
		}
	}
	return overrides
}

// ResolveCodebasePath returns the explicit root if non-empty, otherwise
// CODEHUD_CODEBASE_PATH, otherwise the current working directory.
func ResolveCodebasePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if envPath := os.Getenv(CodebasePathEnvVar); envPath != "" {
		return envPath, nil
	}
	return os.Getwd()
}

// RemoteBackendAvailable reports whether GEMINI_API_KEY (or equivalent) is
// set, enabling remote-backend routing in the LLM gateway.
func RemoteBackendAvailable() (string, bool) {
	key := os.Getenv(GeminiAPIKeyEnvVar)
	return key, key != ""
}
