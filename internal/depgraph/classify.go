package depgraph

import (
	"regexp"
	"strings"

	"github.com/codehud/codehud-core/internal/extract"
)

var quotedStringPattern = regexp.MustCompile(`["']([^"']+)["']`)

// extractImportTarget pulls the imported path/crate/module out of raw, the
// full node text C1 captured for one import statement (e.g. `use foo::bar;`,
// `import x from "foo"`, `from foo.bar import baz`). Unsupported languages
// and unparseable text yield "".
func extractImportTarget(raw string, lang extract.Language) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	switch lang {
	case extract.LangGo, extract.LangJavaScript, extract.LangTypeScript, extract.LangTSX:
		if m := quotedStringPattern.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
		return ""

	case extract.LangRust:
		body := raw
		body = strings.TrimPrefix(body, "pub ")
		switch {
		case strings.HasPrefix(body, "use "):
			body = strings.TrimPrefix(body, "use ")
		case strings.HasPrefix(body, "extern crate "):
			body = strings.TrimPrefix(body, "extern crate ")
		default:
			return ""
		}
		body = strings.TrimSuffix(strings.TrimSpace(body), ";")
		if idx := strings.IndexAny(body, "{("); idx >= 0 {
			body = body[:idx]
		}
		body = strings.TrimSuffix(strings.TrimSpace(body), "::")
		return strings.TrimSpace(body)

	case extract.LangPython:
		switch {
		case strings.HasPrefix(raw, "from "):
			rest := strings.TrimPrefix(raw, "from ")
			if idx := strings.Index(rest, " import"); idx >= 0 {
				rest = rest[:idx]
			}
			return strings.TrimSpace(rest)
		case strings.HasPrefix(raw, "import "):
			rest := strings.TrimPrefix(raw, "import ")
			if idx := strings.Index(rest, " as"); idx >= 0 {
				rest = rest[:idx]
			}
			if idx := strings.Index(rest, ","); idx >= 0 {
				rest = rest[:idx]
			}
			return strings.TrimSpace(rest)
		}
		return ""

	case extract.LangJava, extract.LangKotlin:
		body := raw
		body = strings.TrimPrefix(body, "import ")
		body = strings.TrimPrefix(body, "static ")
		body = strings.TrimSuffix(strings.TrimSpace(body), ";")
		return strings.TrimSpace(body)

	default:
		return ""
	}
}

// classify reports whether target (already extracted from its raw import
// text) refers to an internal module or an external package. The check is
// deliberately approximate per spec: a relative marker, a language's
// crate-self keyword, or any substring overlap with a known module name
// counts as internal; everything else is external, named by its first
// component before `::`, `.`, or `/`.
func classify(target string, lang extract.Language, knownModules map[string]bool) (internal bool, base string) {
	if isRelative(target, lang) {
		return true, firstComponent(stripSelfPrefix(target))
	}

	base = firstComponent(target)

	for mod := range knownModules {
		if mod == base || strings.Contains(target, mod) {
			return true, mod
		}
	}

	return false, base
}

func isRelative(target string, lang extract.Language) bool {
	switch {
	case strings.HasPrefix(target, "./"), strings.HasPrefix(target, "../"), target == ".":
		return true
	case lang == extract.LangRust && (strings.HasPrefix(target, "crate::") || strings.HasPrefix(target, "self::") || strings.HasPrefix(target, "super::") || target == "crate" || target == "self" || target == "super"):
		return true
	default:
		return false
	}
}

// stripSelfPrefix removes a relative/crate-self marker so the component
// that follows it can be used as the internal edge target.
func stripSelfPrefix(target string) string {
	for _, prefix := range []string{"crate::", "self::", "super::", "./", "../"} {
		if strings.HasPrefix(target, prefix) {
			return strings.TrimPrefix(target, prefix)
		}
	}
	return strings.TrimLeft(target, "./")
}

func firstComponent(s string) string {
	s = strings.TrimPrefix(s, "/")
	cut := len(s)
	for _, sep := range []string{"::", ".", "/"} {
		if idx := strings.Index(s, sep); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return s[:cut]
}
