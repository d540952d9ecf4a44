// Package crates discovers package/crate boundaries by walking a
// repository for known manifest files, and assigns individual files to
// the crate whose canonical root is their longest matching prefix.
package crates

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/codehud/codehud-core/internal/paths"
)

// WorkspaceSentinel names the pseudo-crate files with no matching manifest
// root are assigned to.
const WorkspaceSentinel = "workspace"

// Manifest identifies one recognized package-manifest file and the
// language it signals.
type Manifest struct {
	FileName string
	Language string
}

// ManifestFiles is the set of manifest files Discover looks for, checked
// in this order within each directory.
var ManifestFiles = []Manifest{
	{FileName: "Cargo.toml", Language: "rust"},
	{FileName: "go.mod", Language: "go"},
	{FileName: "package.json", Language: "javascript"},
	{FileName: "pyproject.toml", Language: "python"},
	{FileName: "pom.xml", Language: "java"},
	{FileName: "build.gradle", Language: "java"},
	{FileName: "build.gradle.kts", Language: "kotlin"},
}

// CrateInfo describes one discovered crate/package.
type CrateInfo struct {
	Name            string `json:"name"`
	CanonicalRoot   string `json:"canonicalRoot"`
	Language        string `json:"language"`
	ManifestFile    string `json:"manifestFile"`
	Description     string `json:"description,omitempty"`
	Version         string `json:"version,omitempty"`
}

// Discover walks root looking for package manifests. One CrateInfo is
// emitted per manifest found; the directory containing the manifest is
// the crate root. Results are de-duplicated by name and sorted by name.
// If no manifest is found anywhere under root, a single virtual crate is
// synthesized spanning the whole repository.
func Discover(root string) ([]CrateInfo, error) {
	canonicalRoot, err := paths.Canonicalize(root)
	if err != nil {
		return nil, err
	}

	var found []CrateInfo
	err = filepath.WalkDir(canonicalRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" || name == "target") {
				return filepath.SkipDir
			}
			return nil
		}
		for _, m := range ManifestFiles {
			if d.Name() != m.FileName {
				continue
			}
			info, parseErr := parseManifest(path, m)
			if parseErr != nil {
				return nil // a malformed manifest is skipped, not fatal
			}
			found = append(found, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byName := map[string]CrateInfo{}
	for _, c := range found {
		if existing, ok := byName[c.Name]; !ok || len(c.CanonicalRoot) < len(existing.CanonicalRoot) {
			byName[c.Name] = c
		}
	}

	if len(byName) == 0 {
		return []CrateInfo{syntheticCrate(canonicalRoot)}, nil
	}

	result := make([]CrateInfo, 0, len(byName))
	for _, c := range byName {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func syntheticCrate(canonicalRoot string) CrateInfo {
	return CrateInfo{
		Name:          filepath.Base(canonicalRoot),
		CanonicalRoot: canonicalRoot,
		Language:      "unknown",
	}
}

func parseManifest(manifestPath string, m Manifest) (CrateInfo, error) {
	dir, err := paths.Canonicalize(filepath.Dir(manifestPath))
	if err != nil {
		return CrateInfo{}, err
	}

	info := CrateInfo{
		CanonicalRoot: dir,
		Language:      m.Language,
		ManifestFile:  m.FileName,
	}

	switch m.FileName {
	case "Cargo.toml":
		parsed, err := parseCargoToml(manifestPath)
		if err != nil {
			return CrateInfo{}, err
		}
		info.Name, info.Description, info.Version = parsed.Name, parsed.Description, parsed.Version

	case "pyproject.toml":
		parsed, err := parsePyprojectToml(manifestPath)
		if err != nil {
			return CrateInfo{}, err
		}
		info.Name, info.Description, info.Version = parsed.Name, parsed.Description, parsed.Version

	case "package.json":
		parsed, err := parsePackageJSON(manifestPath)
		if err != nil {
			return CrateInfo{}, err
		}
		info.Name, info.Description, info.Version = parsed.Name, parsed.Description, parsed.Version

	case "go.mod":
		name, err := parseGoMod(manifestPath)
		if err != nil {
			return CrateInfo{}, err
		}
		info.Name = name

	case "pom.xml", "build.gradle", "build.gradle.kts":
		info.Name = filepath.Base(dir)
	}

	if info.Name == "" {
		info.Name = filepath.Base(dir)
	}
	return info, nil
}

type cargoManifest struct {
	Package struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
		Version     string `toml:"version"`
	} `toml:"package"`
}

func parseCargoToml(path string) (struct{ Name, Description, Version string }, error) {
	var out struct{ Name, Description, Version string }
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	var manifest cargoManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return out, err
	}
	out.Name, out.Description, out.Version = manifest.Package.Name, manifest.Package.Description, manifest.Package.Version
	return out, nil
}

type pyprojectManifest struct {
	Project struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
		Version     string `toml:"version"`
	} `toml:"project"`
}

func parsePyprojectToml(path string) (struct{ Name, Description, Version string }, error) {
	var out struct{ Name, Description, Version string }
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	var manifest pyprojectManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return out, err
	}
	out.Name, out.Description, out.Version = manifest.Project.Name, manifest.Project.Description, manifest.Project.Version
	return out, nil
}

func parsePackageJSON(path string) (struct{ Name, Description, Version string }, error) {
	var out struct{ Name, Description, Version string }
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	var pkg struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Version     string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return out, err
	}
	out.Name, out.Description, out.Version = pkg.Name, pkg.Description, pkg.Version
	return out, nil
}

func parseGoMod(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "module ") {
			fields := strings.Fields(trimmed)
			if len(fields) >= 2 {
				parts := strings.Split(fields[1], "/")
				return parts[len(parts)-1], nil
			}
		}
	}
	return "", nil
}

// Assign canonicalizes file and returns the name of the crate whose
// canonical root is the longest matching prefix of it. Returns
// WorkspaceSentinel when no crate root contains the file.
func Assign(file string, crates []CrateInfo) (string, error) {
	canonicalFile, err := paths.Canonicalize(file)
	if err != nil {
		return "", err
	}

	roots := make([]string, len(crates))
	for i, c := range crates {
		roots[i] = c.CanonicalRoot
	}

	idx := paths.LongestPrefixMatch(canonicalFile, roots)
	if idx < 0 {
		return WorkspaceSentinel, nil
	}
	return crates[idx].Name, nil
}
