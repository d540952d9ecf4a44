// Package subcrate builds the SubcrateNode tree that lets the Hierarchical
// Summarizer walk a crate's package subdirectories bottom-up. Detection
// groups files by directory, skipping conventional source-root names
// (sourceRootNames) so a crate's src/ never becomes a subcrate in its own
// right, only a transparent level its children are grouped through. Other
// names, such as main in a Java module's src/main/, are grouped like any
// directory.
package subcrate

import (
	"sort"
	"strings"
)

// sourceRootNames lists directory names treated as transparent grouping
// levels rather than subcrates, per spec.md's polyglot source-root list.
var sourceRootNames = map[string]bool{
	"src":     true,
	"lib":     true,
	"pkg":     true,
	"source":  true,
	"sources": true,
}

// minSubcrateFiles is the threshold below which a directory's files stay
// folded into their parent rather than becoming their own subcrate.
const minSubcrateFiles = 5

// File is the minimal per-file input Detect needs: its path relative to
// the crate root, and its size for total_size_kb aggregation.
type File struct {
	RelPath string
	SizeKB  float64
}

// SubcrateNode is one node in the detected subcrate tree.
type SubcrateNode struct {
	Name            string                   `json:"name"`
	DirectFiles     []string                 `json:"directFiles"`
	AllFiles        []string                 `json:"allFiles"`
	NestedSubcrates map[string]*SubcrateNode `json:"nestedSubcrates"`
	TotalSizeKB     float64                  `json:"totalSizeKb"`
}

// Detect groups files under a crate root into a tree of SubcrateNodes,
// keyed by their path relative to the crate root with transparent
// source-root segments (src, lib, pkg, source, sources) omitted entirely,
// so a node's key never retains an ancestor that was only a grouping level
// (e.g. "narrator/detectors", never "src/narrator/detectors").
func Detect(files []File) map[string]*SubcrateNode {
	return detectRecursive(files, "", "")
}

// detectRecursive groups files by their immediate child directory.
// stripPrefix is the actual path, relative to the crate root, already
// consumed on the way down (including any transparent source-root
// segments) and is what each file's remaining relative path is computed
// against. keyPrefix mirrors the same descent but skips transparent
// segments, and is what emitted node keys are built from.
func detectRecursive(files []File, stripPrefix, keyPrefix string) map[string]*SubcrateNode {
	dirGroups := map[string][]File{}
	for _, f := range files {
		rel := strings.TrimPrefix(f.RelPath, stripPrefix)
		rel = strings.TrimPrefix(rel, "/")
		parts := strings.SplitN(rel, "/", 2)
		if len(parts) < 2 {
			continue // file lives directly in stripPrefix, not in a subdirectory
		}
		dirGroups[parts[0]] = append(dirGroups[parts[0]], f)
	}

	subcrates := map[string]*SubcrateNode{}
	for name, dirFiles := range dirGroups {
		childStrip := joinRel(stripPrefix, name)

		if sourceRootNames[name] {
			nested := detectRecursive(dirFiles, childStrip, keyPrefix)
			for nestedName, nestedNode := range nested {
				subcrates[nestedName] = nestedNode
			}
			continue
		}

		if len(dirFiles) < minSubcrateFiles {
			continue
		}

		dirKey := joinRel(keyPrefix, name)
		directFiles := directFilesIn(dirFiles, childStrip)
		nested := detectRecursive(dirFiles, childStrip, dirKey)

		subcrates[dirKey] = &SubcrateNode{
			Name:            dirKey,
			DirectFiles:     directFiles,
			AllFiles:        allPaths(dirFiles),
			NestedSubcrates: nested,
			TotalSizeKB:     totalSizeKB(dirFiles),
		}
	}

	return subcrates
}

func directFilesIn(files []File, dirPath string) []string {
	var direct []string
	for _, f := range files {
		rel := strings.TrimPrefix(f.RelPath, dirPath)
		rel = strings.TrimPrefix(rel, "/")
		if !strings.Contains(rel, "/") {
			direct = append(direct, f.RelPath)
		}
	}
	sort.Strings(direct)
	return direct
}

func allPaths(files []File) []string {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.RelPath)
	}
	sort.Strings(paths)
	return paths
}

func totalSizeKB(files []File) float64 {
	var total float64
	for _, f := range files {
		total += f.SizeKB
	}
	return total
}

func joinRel(base, child string) string {
	if base == "" {
		return child
	}
	return base + "/" + child
}

// CountAll returns the total number of subcrate nodes in the tree,
// including nested ones, mirroring count_all_subcrates.
func CountAll(nodes map[string]*SubcrateNode) int {
	count := len(nodes)
	for _, node := range nodes {
		count += CountAll(node.NestedSubcrates)
	}
	return count
}

// FlattenEntry is one subcrate surfaced by Flatten, annotated with whether
// it is nested (vs. a top-level subcrate directly under the crate root).
type FlattenEntry struct {
	Name     string
	Node     *SubcrateNode
	IsNested bool
}

// Flatten walks the tree into a flat list, tagging nested vs. top-level
// nodes so the summarizer's truncation policy can prioritize drops.
func Flatten(nodes map[string]*SubcrateNode, isNested bool) []FlattenEntry {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	var result []FlattenEntry
	for _, name := range names {
		node := nodes[name]
		result = append(result, FlattenEntry{Name: name, Node: node, IsNested: isNested})
		result = append(result, Flatten(node.NestedSubcrates, true)...)
	}
	return result
}
