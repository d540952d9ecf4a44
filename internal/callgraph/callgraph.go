// Package callgraph implements the Call-Graph Analyzer: per-file call
// sites are mapped to their containing function by line-range inclusion,
// an edge is emitted only between two functions both already known to the
// graph, cycles are found by depth-first search with a recursion stack,
// and nodes are bucketed by in-degree into a coupling metric.
package callgraph

import (
	"context"
	"sort"

	"github.com/codehud/codehud-core/internal/depgraph"
	"github.com/codehud/codehud-core/internal/extract"
)

// stoplist filters call targets too generic to be meaningful call-graph
// edges — mostly standard-library container/string methods that appear in
// nearly every function and would otherwise drown out real structure.
var stoplist = map[string]bool{
	"push": true, "len": true, "unwrap": true, "clone": true,
	"to_string": true, "append": true, "println": true, "print": true,
	"format": true, "iter": true, "map": true, "filter": true,
	"collect": true, "to_vec": true, "as_str": true, "into": true,
	"Sprintf": true, "Printf": true, "Errorf": true, "String": true,
}

// SourceFile is the per-file input Build consumes: enough to re-derive
// line-ranged functions and call sites via tree-sitter, and the module
// name its qualified function names are prefixed with.
type SourceFile struct {
	RelPath  string
	Language extract.Language
	Source   []byte
}

// Node is one function known to the call graph.
type Node struct {
	Qualified      string `json:"qualified"`
	Module         string `json:"module"`
	InDegree       int    `json:"inDegree"`
	CouplingBucket string `json:"couplingBucket"`
}

// Edge is a caller-to-callee call relationship with an aggregated call
// count.
type Edge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
	Count  int    `json:"count"`
}

// SCC is a strongly-connected (mutually call-reachable) set of functions,
// reported with its size.
type SCC struct {
	Members []string `json:"members"`
	Size    int      `json:"size"`
}

// CallGraph is the full C9 output: nodes with coupling buckets, weighted
// edges, detected cycles, strongly-connected components, and a module
// clustering of every node.
type CallGraph struct {
	Nodes    []Node              `json:"nodes"`
	Edges    []Edge              `json:"edges"`
	Cycles   [][]string          `json:"cycles"`
	SCCs     []SCC               `json:"stronglyConnectedComponents"`
	Clusters map[string][]string `json:"clusters"`
}

// Build constructs the call graph across every file in files.
func Build(ctx context.Context, files []SourceFile) (CallGraph, error) {
	type fileFunctions struct {
		module    string
		functions []functionRange
		calls     []callSite
	}

	parsed := make([]fileFunctions, 0, len(files))
	qualifiedNamesByBareName := map[string][]string{}

	for _, f := range files {
		functions, calls, err := parseCallSites(ctx, f.Source, f.Language)
		if err != nil {
			continue // a parse failure degrades to "no functions/calls found" for this file
		}
		module := depgraph.ModuleName(f.RelPath)
		parsed = append(parsed, fileFunctions{module: module, functions: functions, calls: calls})
		for _, fn := range functions {
			qualified := module + "::" + fn.Name
			qualifiedNamesByBareName[fn.Name] = append(qualifiedNamesByBareName[fn.Name], qualified)
		}
	}

	edgeWeights := map[Edge]int{}
	nodeSet := map[string]string{} // qualified -> module

	for _, pf := range parsed {
		for _, fn := range pf.functions {
			nodeSet[pf.module+"::"+fn.Name] = pf.module
		}
		for _, call := range pf.calls {
			if stoplist[call.Callee] {
				continue
			}
			callerQualified := containingFunction(pf.module, pf.functions, call.Line)
			if callerQualified == "" {
				continue
			}
			for _, calleeQualified := range qualifiedNamesByBareName[call.Callee] {
				key := Edge{Caller: callerQualified, Callee: calleeQualified}
				edgeWeights[key]++
			}
		}
	}

	edges := make([]Edge, 0, len(edgeWeights))
	adjacency := map[string][]string{}
	inDegree := map[string]int{}
	for key, count := range edgeWeights {
		edges = append(edges, Edge{Caller: key.Caller, Callee: key.Callee, Count: count})
		adjacency[key.Caller] = append(adjacency[key.Caller], key.Callee)
		inDegree[key.Callee]++
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Caller != edges[j].Caller {
			return edges[i].Caller < edges[j].Caller
		}
		return edges[i].Callee < edges[j].Callee
	})

	qualifiedNames := make([]string, 0, len(nodeSet))
	for q := range nodeSet {
		qualifiedNames = append(qualifiedNames, q)
	}
	sort.Strings(qualifiedNames)

	nodes := make([]Node, 0, len(qualifiedNames))
	clusters := map[string][]string{}
	for _, q := range qualifiedNames {
		module := nodeSet[q]
		nodes = append(nodes, Node{
			Qualified:      q,
			Module:         module,
			InDegree:       inDegree[q],
			CouplingBucket: couplingBucket(inDegree[q]),
		})
		clusters[module] = append(clusters[module], q)
	}
	for module := range clusters {
		sort.Strings(clusters[module])
	}

	cycles := detectCycles(qualifiedNames, adjacency)
	sccs := buildSCCs(cycles)

	return CallGraph{Nodes: nodes, Edges: edges, Cycles: cycles, SCCs: sccs, Clusters: clusters}, nil
}

// containingFunction returns the qualified name of the innermost function
// in functions whose line range includes line, or "" if none contains it.
func containingFunction(module string, functions []functionRange, line int) string {
	best := ""
	bestSpan := -1
	for _, fn := range functions {
		if line < fn.StartLine || line > fn.EndLine {
			continue
		}
		span := fn.EndLine - fn.StartLine
		if bestSpan == -1 || span < bestSpan {
			bestSpan = span
			best = module + "::" + fn.Name
		}
	}
	return best
}

// couplingBucket buckets a node's in-degree per spec.md's coupling metric.
func couplingBucket(inDegree int) string {
	switch {
	case inDegree == 0:
		return "entry_point"
	case inDegree <= 2:
		return "low"
	case inDegree <= 5:
		return "medium"
	case inDegree <= 10:
		return "high"
	default:
		return "hotspot"
	}
}
