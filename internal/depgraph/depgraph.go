// Package depgraph builds the Polyglot Dependency Graph: module boundaries
// grouped from file paths with conventional source-root directories
// treated as transparent, imports classified internal-vs-external by
// approximate string matching, and a Rust manifest fast path that trusts
// Cargo.toml's [dependencies] table over parsed `use` statements when one
// is available.
package depgraph

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/codehud/codehud-core/internal/errors"
	"github.com/codehud/codehud-core/internal/extract"
)

// transparentRootNames lists directory names that never become a module of
// their own — their child directory is grouped as the module instead. This
// mirrors the source-root list internal/subcrate uses for the same reason
// one level down the tree.
var transparentRootNames = map[string]bool{
	"src":     true,
	"lib":     true,
	"pkg":     true,
	"source":  true,
	"sources": true,
}

// FileImports is the per-file input Build consumes: the raw import-node
// text C1 captured in FileAnalysis.Structural[extract.SectionImports],
// alongside the file's size for module size aggregation.
type FileImports struct {
	RelPath  string
	Language extract.Language
	SizeKB   float64
	Imports  []string
}

// Module is one node of the dependency graph.
type Module struct {
	Name         string   `json:"name"`
	FileCount    int      `json:"fileCount"`
	SizeKB       float64  `json:"sizeKb"`
	ExternalDeps []string `json:"externalDependencies"`
}

// Edge is one internal module-to-module dependency.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the layout-agnostic dependency graph Build produces: module
// nodes with metadata, the internal edge list, and each module's external
// dependency set.
type Graph struct {
	Modules []Module `json:"modules"`
	Edges   []Edge   `json:"edges"`
}

// ModuleName returns the module a file belongs to: its first path
// component under the repo root, skipping any leading run of transparent
// source-root names so `src/narrator/detect.rs` groups under `narrator`
// rather than `src`.
func ModuleName(relPath string) string {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for len(parts) > 1 && transparentRootNames[parts[0]] {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// Build groups files into modules, classifies every import as internal or
// external, and assembles the dependency graph. root is the repository
// root, used to locate Cargo.toml files for the Rust fast path.
func Build(root string, files []FileImports) (Graph, error) {
	moduleFiles := map[string][]FileImports{}
	var moduleOrder []string
	for _, f := range files {
		name := ModuleName(f.RelPath)
		if name == "" {
			continue
		}
		if _, seen := moduleFiles[name]; !seen {
			moduleOrder = append(moduleOrder, name)
		}
		moduleFiles[name] = append(moduleFiles[name], f)
	}
	sort.Strings(moduleOrder)

	knownModules := map[string]bool{}
	for _, name := range moduleOrder {
		knownModules[name] = true
	}

	rustDeps, err := scanCargoManifests(root)
	if err != nil {
		return Graph{}, err
	}

	edgeSet := map[Edge]bool{}
	modules := make([]Module, 0, len(moduleOrder))

	for _, name := range moduleOrder {
		group := moduleFiles[name]

		externalSet := map[string]bool{}
		var sizeKB float64

		for _, f := range group {
			sizeKB += f.SizeKB
			for _, raw := range f.Imports {
				target := extractImportTarget(raw, f.Language)
				if target == "" {
					continue
				}
				internal, base := classify(target, f.Language, knownModules)
				if internal {
					if base != "" && base != name {
						edgeSet[Edge{From: name, To: base}] = true
					}
					continue
				}
				if base != "" {
					externalSet[base] = true
				}
			}
		}

		if deps, ok := rustDeps[name]; ok && len(deps) > 0 {
			externalSet = map[string]bool{}
			for _, d := range deps {
				externalSet[d] = true
			}
		}

		modules = append(modules, Module{
			Name:         name,
			FileCount:    len(group),
			SizeKB:       sizeKB,
			ExternalDeps: sortedKeys(externalSet),
		})
	}

	edges := make([]Edge, 0, len(edgeSet))
	for e := range edgeSet {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	return Graph{Modules: modules, Edges: edges}, nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// cargoManifest is the subset of Cargo.toml Build reads for the Rust fast
// path: the package name (to know which module the manifest describes)
// and its dependency table keys.
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Dependencies    map[string]interface{} `toml:"dependencies"`
	DevDependencies map[string]interface{} `toml:"dev-dependencies"`
}

// scanCargoManifests walks root for Cargo.toml files and returns each
// one's dependency names keyed by its package name (the module the
// manifest's dependencies should override). A manifest that fails to
// parse or declares no dependencies contributes nothing — callers fall
// back to the general import-classification result for that module.
func scanCargoManifests(root string) (map[string][]string, error) {
	result := map[string][]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name != filepath.Base(root) && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" || name == "target") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != "Cargo.toml" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		var manifest cargoManifest
		if err := toml.Unmarshal(data, &manifest); err != nil {
			return nil // malformed manifest: fall back to the general algorithm
		}
		if manifest.Package.Name == "" {
			return nil
		}
		deps := make([]string, 0, len(manifest.Dependencies)+len(manifest.DevDependencies))
		for dep := range manifest.Dependencies {
			deps = append(deps, dep)
		}
		for dep := range manifest.DevDependencies {
			deps = append(deps, dep)
		}
		if len(deps) == 0 {
			return nil
		}
		sort.Strings(deps)
		result[manifest.Package.Name] = deps
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.IoFailure, "scan for Cargo.toml manifests", err)
	}
	return result, nil
}
