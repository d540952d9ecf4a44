package extract

import "strings"

// Language identifies a source language recognized by the extractor.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangUnknown    Language = "unknown"
)

var extensionToLanguage = map[string]Language{
	".go":    LangGo,
	".js":    LangJavaScript,
	".jsx":   LangJavaScript,
	".mjs":   LangJavaScript,
	".cjs":   LangJavaScript,
	".ts":    LangTypeScript,
	".tsx":   LangTSX,
	".py":    LangPython,
	".pyi":   LangPython,
	".rs":    LangRust,
	".java":  LangJava,
	".kt":    LangKotlin,
	".kts":   LangKotlin,
}

// LanguageFromExtension maps a lowercase file extension (including the
// leading dot) to a Language. Returns (LangUnknown, false) when the
// extension is not recognized.
func LanguageFromExtension(ext string) (Language, bool) {
	lang, ok := extensionToLanguage[strings.ToLower(ext)]
	if !ok {
		return LangUnknown, false
	}
	return lang, true
}
