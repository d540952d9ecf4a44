package extract

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// Recognized StructuralInsights section names (spec.md section 3).
const (
	SectionImports           = "imports"
	SectionFunctions         = "functions"
	SectionTypes             = "types"
	SectionCalls             = "calls"
	SectionPublicAPI         = "public_api"
	SectionDangerousPatterns = "dangerous_patterns"
)

// dangerousCallNames flags calls whose presence is worth surfacing to a
// reviewer regardless of language: raw process execution and dynamic
// evaluation. Entries are compared with calleeName's final segment, so the
// "unsafe" and dotted "os.exec" entries never match: Go's unsafe.Pointer(p)
// and exec.Command(...) surface as Pointer and Command and are not flagged.
var dangerousCallNames = map[string]bool{
	"eval":          true,
	"exec":          true,
	"execve":        true,
	"system":        true,
	"popen":         true,
	"Popen":         true,
	"spawn":         true,
	"unsafe":        true,
	"os.exec":       true,
	"subprocess":    true,
	"child_process": true,
	"Function":      true, // JS `new Function(...)`
}

func functionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"function_declaration", "method_definition", "arrow_function"}
	case LangPython:
		return []string{"function_definition"}
	case LangRust:
		return []string{"function_item"}
	case LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case LangKotlin:
		return []string{"function_declaration"}
	default:
		return nil
	}
}

func typeNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"type_spec"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"class_declaration", "interface_declaration", "type_alias_declaration"}
	case LangPython:
		return []string{"class_definition"}
	case LangRust:
		return []string{"struct_item", "enum_item", "trait_item"}
	case LangJava:
		return []string{"class_declaration", "interface_declaration", "enum_declaration"}
	case LangKotlin:
		return []string{"class_declaration", "interface_declaration", "object_declaration"}
	default:
		return nil
	}
}

func importNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"import_spec"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"import_statement"}
	case LangPython:
		return []string{"import_statement", "import_from_statement"}
	case LangRust:
		return []string{"use_declaration"}
	case LangJava:
		return []string{"import_declaration"}
	case LangKotlin:
		return []string{"import_header"}
	default:
		return nil
	}
}

func callNodeTypes(lang Language) []string {
	switch lang {
	case LangGo, LangJavaScript, LangTypeScript, LangTSX, LangJava, LangKotlin:
		return []string{"call_expression"}
	case LangPython:
		return []string{"call"}
	case LangRust:
		return []string{"call_expression", "macro_invocation"}
	default:
		return nil
	}
}

// functionName returns the declared name of a function/method node, or ""
// if the grammar leaves it anonymous (e.g. a bare arrow function).
func functionName(node *sitter.Node, source []byte) string {
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

// calleeName returns the textual callee of a call/macro node, trimmed to
// its final segment (so `pkg.Foo(...)` and `obj.method(...)` both surface
// their rightmost identifier).
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
		return text[idx+1:]
	}
	return text
}

// extractStructural builds every recognized StructuralInsights section for
// one parsed file.
func extractStructural(root *sitter.Node, source []byte, lang Language) map[string][]string {
	sections := map[string][]string{}

	walk(root, nodeSet(importNodeTypes(lang)), func(n *sitter.Node) {
		text := strings.TrimSpace(string(source[n.StartByte():n.EndByte()]))
		sections[SectionImports] = append(sections[SectionImports], text)
	})

	walk(root, nodeSet(functionNodeTypes(lang)), func(n *sitter.Node) {
		name := functionName(n, source)
		if name == "" {
			return
		}
		sections[SectionFunctions] = append(sections[SectionFunctions], name)
		if isPublicName(name, lang) {
			sections[SectionPublicAPI] = append(sections[SectionPublicAPI], name)
		}
	})

	walk(root, nodeSet(typeNodeTypes(lang)), func(n *sitter.Node) {
		name := functionName(n, source)
		if name == "" {
			return
		}
		sections[SectionTypes] = append(sections[SectionTypes], name)
		if isPublicName(name, lang) {
			sections[SectionPublicAPI] = append(sections[SectionPublicAPI], name)
		}
	})

	walk(root, nodeSet(callNodeTypes(lang)), func(n *sitter.Node) {
		name := calleeName(n, source)
		if name == "" {
			return
		}
		sections[SectionCalls] = append(sections[SectionCalls], name)
		if dangerousCallNames[name] {
			sections[SectionDangerousPatterns] = append(sections[SectionDangerousPatterns], name)
		}
	})

	return sections
}

// isPublicName applies the language's conventional export rule: a leading
// capital for Go, absence of a leading underscore elsewhere.
func isPublicName(name string, lang Language) bool {
	if name == "" {
		return false
	}
	if lang == LangGo {
		return unicode.IsUpper([]rune(name)[0])
	}
	return !strings.HasPrefix(name, "_")
}
