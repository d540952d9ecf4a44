package depgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codehud/codehud-core/internal/extract"
)

func TestModuleName_SkipsSourceRootPrefix(t *testing.T) {
	if got := ModuleName("src/narrator/detect.rs"); got != "narrator" {
		t.Fatalf("expected narrator, got %q", got)
	}
	if got := ModuleName("internal/widget/widget.go"); got != "internal" {
		t.Fatalf("expected internal, got %q", got)
	}
}

func TestExtractImportTarget_Go(t *testing.T) {
	if got := extractImportTarget(`"encoding/json"`, extract.LangGo); got != "encoding/json" {
		t.Fatalf("expected encoding/json, got %q", got)
	}
	if got := extractImportTarget(`alias "internal/widget"`, extract.LangGo); got != "internal/widget" {
		t.Fatalf("expected internal/widget, got %q", got)
	}
}

func TestExtractImportTarget_Rust(t *testing.T) {
	if got := extractImportTarget("use foo::bar::Baz;", extract.LangRust); got != "foo::bar::Baz" {
		t.Fatalf("expected foo::bar::Baz, got %q", got)
	}
	if got := extractImportTarget("use crate::widget::Run;", extract.LangRust); got != "crate::widget::Run" {
		t.Fatalf("expected crate::widget::Run, got %q", got)
	}
	if got := extractImportTarget("extern crate serde;", extract.LangRust); got != "serde" {
		t.Fatalf("expected serde, got %q", got)
	}
}

func TestExtractImportTarget_Python(t *testing.T) {
	if got := extractImportTarget("from foo.bar import baz", extract.LangPython); got != "foo.bar" {
		t.Fatalf("expected foo.bar, got %q", got)
	}
	if got := extractImportTarget("import requests", extract.LangPython); got != "requests" {
		t.Fatalf("expected requests, got %q", got)
	}
}

func TestClassify_RelativeIsInternal(t *testing.T) {
	internal, _ := classify("./sibling", extract.LangJavaScript, map[string]bool{})
	if !internal {
		t.Fatal("expected relative import to classify internal")
	}
}

func TestClassify_CrateSelfIsInternal(t *testing.T) {
	internal, base := classify("crate::widget::Run", extract.LangRust, map[string]bool{})
	if !internal {
		t.Fatal("expected crate:: import to classify internal")
	}
	if base != "widget" {
		t.Fatalf("expected widget, got %q", base)
	}
}

func TestClassify_UnknownExternalUsesFirstComponent(t *testing.T) {
	internal, base := classify("serde::Deserialize", extract.LangRust, map[string]bool{})
	if internal {
		t.Fatal("expected serde:: to classify external")
	}
	if base != "serde" {
		t.Fatalf("expected serde, got %q", base)
	}
}

func TestClassify_SharedSubstringWithKnownModuleIsInternal(t *testing.T) {
	known := map[string]bool{"widget": true}
	internal, base := classify("myrepo/widget/helpers", extract.LangGo, known)
	if !internal || base != "widget" {
		t.Fatalf("expected internal widget, got internal=%v base=%q", internal, base)
	}
}

func TestBuild_GroupsModulesAndEdges(t *testing.T) {
	files := []FileImports{
		{RelPath: "widget/widget.go", Language: extract.LangGo, SizeKB: 2, Imports: []string{`"example.com/repo/helper"`, `"fmt"`}},
		{RelPath: "helper/helper.go", Language: extract.LangGo, SizeKB: 1, Imports: nil},
	}
	g, err := Build(t.TempDir(), files)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(g.Modules) != 2 {
		t.Fatalf("expected 2 modules, got %d: %+v", len(g.Modules), g.Modules)
	}

	var widget *Module
	for i := range g.Modules {
		if g.Modules[i].Name == "widget" {
			widget = &g.Modules[i]
		}
	}
	if widget == nil {
		t.Fatal("expected a widget module")
	}
	foundEdge := false
	for _, e := range g.Edges {
		if e.From == "widget" && e.To == "helper" {
			foundEdge = true
		}
	}
	if !foundEdge {
		t.Fatalf("expected widget->helper internal edge, got %+v", g.Edges)
	}
	foundExternal := false
	for _, dep := range widget.ExternalDeps {
		if dep == "fmt" {
			foundExternal = true
		}
	}
	if !foundExternal {
		t.Fatalf("expected fmt external dependency, got %+v", widget.ExternalDeps)
	}
}

func TestBuild_RustFastPathOverridesExternalDeps(t *testing.T) {
	root := t.TempDir()
	crateDir := filepath.Join(root, "narrator")
	if err := os.MkdirAll(crateDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	manifest := "[package]\nname = \"narrator\"\nversion = \"0.1.0\"\n\n[dependencies]\nserde = \"1\"\ntokio = \"1\"\n"
	if err := os.WriteFile(filepath.Join(crateDir, "Cargo.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	files := []FileImports{
		{RelPath: "narrator/lib.rs", Language: extract.LangRust, SizeKB: 3, Imports: []string{"use anyhow::Result;"}},
	}

	g, err := Build(root, files)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(g.Modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(g.Modules))
	}
	deps := g.Modules[0].ExternalDeps
	if len(deps) != 2 || deps[0] != "serde" || deps[1] != "tokio" {
		t.Fatalf("expected manifest deps to override parsed imports, got %+v", deps)
	}
}
