package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// parseSource builds a fresh *sitter.Parser for every call. sitter.Parser is
// not safe to share across concurrent calls, and Analyze runs inside a
// bounded worker pool, so each call gets its own instance rather than one
// shared across the pool.
func parseSource(ctx context.Context, source []byte, lang Language) (*sitter.Node, error) {
	tsLang, err := languageGrammar(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(tsLang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("extract: parse error: %w", err)
	}
	return tree.RootNode(), nil
}

func languageGrammar(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("extract: unsupported language: %s", lang)
	}
}

// walk visits every node in the tree whose type is in types, in
// pre-order (which is source order for sibling declarations).
func walk(root *sitter.Node, types map[string]bool, visit func(*sitter.Node)) {
	if root == nil {
		return
	}
	if types[root.Type()] {
		visit(root)
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		walk(root.Child(i), types, visit)
	}
}

func nodeSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
