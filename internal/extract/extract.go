// Package extract implements the Comment & Structure Extractor: it parses
// one source file via tree-sitter and emits its comments alongside a
// section-keyed record of structural insights (imports, functions, types,
// calls, public API surface, dangerous call patterns). A parse failure is
// never fatal — it degrades to an empty FileAnalysis, never an aborted run.
package extract

import (
	"context"
	"os"
	"unicode/utf8"

	"github.com/codehud/codehud-core/internal/errors"
	"github.com/codehud/codehud-core/internal/logging"
	"github.com/codehud/codehud-core/internal/paths"
)

// FileAnalysis is the immutable record produced by Analyze for one file.
type FileAnalysis struct {
	Path       string              `json:"path"`
	Language   Language            `json:"language"`
	Comments   []Comment           `json:"comments"`
	Structural map[string][]string `json:"structuralInsights"`
}

// Extractor runs tree-sitter based analysis over individual files. It
// carries no per-file state; a single Extractor is safe to share across
// the worker pool that drives Phase-1 extraction.
type Extractor struct {
	logger *logging.Logger
}

// NewExtractor creates an Extractor that logs parse degradations at warn
// level through logger.
func NewExtractor(logger *logging.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Analyze parses path and returns its FileAnalysis. Only a file that
// cannot be canonicalized or read (missing, or an I/O error) returns an
// error; every other failure mode (unsupported language,
// malformed encoding, tree-sitter timeout or panic-equivalent parse error)
// degrades to an empty, language-tagged FileAnalysis so that one bad file
// never aborts a run.
func (e *Extractor) Analyze(ctx context.Context, path string) (*FileAnalysis, error) {
	canonical, err := paths.Canonicalize(path)
	if err != nil {
		return nil, errors.Wrap(errors.IoFailure, "canonicalize path", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.IoFailure, "file not found: "+path, err)
		}
		return nil, errors.Wrap(errors.IoFailure, "read file: "+path, err)
	}

	source := raw
	if !utf8.Valid(source) {
		source = toValidUTF8(source)
		e.logger.Warn("file is not valid UTF-8, decoded lossily", map[string]interface{}{"path": path})
	}

	ext := extOf(path)
	lang, ok := LanguageFromExtension(ext)
	if !ok {
		return &FileAnalysis{
			Path:       canonical,
			Language:   LangUnknown,
			Structural: map[string][]string{},
		}, nil
	}

	root, err := parseSource(ctx, source, lang)
	if err != nil {
		e.logger.Warn("parse failed, returning empty analysis", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return &FileAnalysis{
			Path:       canonical,
			Language:   lang,
			Structural: map[string][]string{},
		}, nil
	}

	return &FileAnalysis{
		Path:       canonical,
		Language:   lang,
		Comments:   extractComments(root, source, lang),
		Structural: extractStructural(root, source, lang),
	}, nil
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

// toValidUTF8 replaces invalid byte sequences with the Unicode replacement
// character, matching a lossy decode rather than failing the whole file.
func toValidUTF8(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}
	out := make([]byte, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			out = append(out, []byte(string(utf8.RuneError))...)
			b = b[1:]
			continue
		}
		out = append(out, b[:size]...)
		b = b[size:]
	}
	return out
}
