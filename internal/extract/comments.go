package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Comment is a single comment with its exact text (delimiters stripped)
// and its 1-indexed line range.
type Comment struct {
	Text      string `json:"text"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

func commentNodeTypes(lang Language) []string {
	switch lang {
	case LangGo, LangJavaScript, LangTypeScript, LangTSX, LangJava:
		return []string{"comment"}
	case LangPython:
		return []string{"comment"}
	case LangRust, LangKotlin:
		return []string{"line_comment", "block_comment"}
	default:
		return nil
	}
}

// extractComments returns every comment node in source order with
// delimiters stripped from the text.
func extractComments(root *sitter.Node, source []byte, lang Language) []Comment {
	types := nodeSet(commentNodeTypes(lang))
	if len(types) == 0 {
		return nil
	}

	var comments []Comment
	walk(root, types, func(n *sitter.Node) {
		raw := string(source[n.StartByte():n.EndByte()])
		comments = append(comments, Comment{
			Text:      stripCommentDelimiters(raw),
			StartLine: int(n.StartPoint().Row) + 1,
			EndLine:   int(n.EndPoint().Row) + 1,
		})
	})
	return comments
}

func stripCommentDelimiters(raw string) string {
	switch {
	case strings.HasPrefix(raw, "/**"):
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "/**"), "*/"))
	case strings.HasPrefix(raw, "/*"):
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/"))
	case strings.HasPrefix(raw, "///"):
		return strings.TrimSpace(strings.TrimPrefix(raw, "///"))
	case strings.HasPrefix(raw, "//"):
		return strings.TrimSpace(strings.TrimPrefix(raw, "//"))
	case strings.HasPrefix(raw, "#"):
		return strings.TrimSpace(strings.TrimPrefix(raw, "#"))
	default:
		return strings.TrimSpace(raw)
	}
}
