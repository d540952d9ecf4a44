package callgraph

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/codehud/codehud-core/internal/extract"
)

// functionRange is one function/method declaration located by line range,
// used to map a call site to its containing function.
type functionRange struct {
	Name      string
	StartLine int
	EndLine   int
}

// callSite is one call expression's callee name and source line.
type callSite struct {
	Callee string
	Line   int
}

// parseCallSites re-parses source (C9 needs line ranges C1's flat
// StructuralInsights lists don't carry) and returns every function
// declaration and every call site it contains.
func parseCallSites(ctx context.Context, source []byte, lang extract.Language) ([]functionRange, []callSite, error) {
	tsLang, err := grammarFor(lang)
	if err != nil {
		return nil, nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(tsLang)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, nil, fmt.Errorf("callgraph: parse error: %w", err)
	}
	root := tree.RootNode()

	var functions []functionRange
	walk(root, nodeSet(functionNodeTypes(lang)), func(n *sitter.Node) {
		name := declaredName(n, source)
		if name == "" {
			return
		}
		functions = append(functions, functionRange{
			Name:      name,
			StartLine: int(n.StartPoint().Row) + 1,
			EndLine:   int(n.EndPoint().Row) + 1,
		})
	})

	var calls []callSite
	walk(root, nodeSet(callNodeTypes(lang)), func(n *sitter.Node) {
		name := calleeName(n, source)
		if name == "" {
			return
		}
		calls = append(calls, callSite{Callee: name, Line: int(n.StartPoint().Row) + 1})
	})

	return functions, calls, nil
}

func grammarFor(lang extract.Language) (*sitter.Language, error) {
	switch lang {
	case extract.LangGo:
		return golang.GetLanguage(), nil
	case extract.LangJavaScript:
		return javascript.GetLanguage(), nil
	case extract.LangTypeScript:
		return typescript.GetLanguage(), nil
	case extract.LangTSX:
		return tsx.GetLanguage(), nil
	case extract.LangPython:
		return python.GetLanguage(), nil
	case extract.LangRust:
		return rust.GetLanguage(), nil
	case extract.LangJava:
		return java.GetLanguage(), nil
	case extract.LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("callgraph: unsupported language: %s", lang)
	}
}

func functionNodeTypes(lang extract.Language) []string {
	switch lang {
	case extract.LangGo:
		return []string{"function_declaration", "method_declaration"}
	case extract.LangJavaScript, extract.LangTypeScript, extract.LangTSX:
		return []string{"function_declaration", "method_definition", "arrow_function"}
	case extract.LangPython:
		return []string{"function_definition"}
	case extract.LangRust:
		return []string{"function_item"}
	case extract.LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case extract.LangKotlin:
		return []string{"function_declaration"}
	default:
		return nil
	}
}

func callNodeTypes(lang extract.Language) []string {
	switch lang {
	case extract.LangGo, extract.LangJavaScript, extract.LangTypeScript, extract.LangTSX, extract.LangJava, extract.LangKotlin:
		return []string{"call_expression"}
	case extract.LangPython:
		return []string{"call"}
	case extract.LangRust:
		return []string{"call_expression", "macro_invocation"}
	default:
		return nil
	}
}

func declaredName(node *sitter.Node, source []byte) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return string(source[nameNode.StartByte():nameNode.EndByte()])
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "type_identifier", "simple_identifier", "field_identifier":
			return string(source[child.StartByte():child.EndByte()])
		}
	}
	return ""
}

func calleeName(node *sitter.Node, source []byte) string {
	var target *sitter.Node
	switch node.Type() {
	case "call_expression", "call":
		target = node.ChildByFieldName("function")
	case "macro_invocation":
		target = node.ChildByFieldName("macro")
	}
	if target == nil && node.ChildCount() > 0 {
		target = node.Child(0)
	}
	if target == nil {
		return ""
	}
	text := string(source[target.StartByte():target.EndByte()])
	if idx := strings.LastIndexAny(text, ".:"); idx >= 0 {
		text = text[idx+1:]
	}
	return text
}

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
