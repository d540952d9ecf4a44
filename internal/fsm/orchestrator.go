package fsm

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codehud/codehud-core/internal/callgraph"
	"github.com/codehud/codehud-core/internal/crates"
	"github.com/codehud/codehud-core/internal/depgraph"
	"github.com/codehud/codehud-core/internal/errors"
	"github.com/codehud/codehud-core/internal/extract"
	"github.com/codehud/codehud-core/internal/logging"
	"github.com/codehud/codehud-core/internal/paths"
	"github.com/codehud/codehud-core/internal/subcrate"
	"github.com/codehud/codehud-core/internal/summarize"
)

// ignoredDirNames are skipped while walking a project for source files.
var ignoredDirNames = map[string]bool{
	"node_modules": true, "vendor": true, "target": true, ".git": true,
}

// ProgressFunc receives the running step count after each monotonic
// advance. Steps are enumerated as (baseline=3 per crate)+1 at scan start.
type ProgressFunc func(step, total int)

// Orchestrator drives the Machine through a full project scan (or a
// single-file scan), calling C1/C2/C3/C6 in the order spec.md's
// concurrency model requires and persisting through a Sink as it goes.
type Orchestrator struct {
	machine    *Machine
	extractor  *extract.Extractor
	summarizer *summarize.Summarizer
	logger     *logging.Logger
	maxWorkers int
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(extractor *extract.Extractor, summarizer *summarize.Summarizer, logger *logging.Logger, maxWorkers int) *Orchestrator {
	if maxWorkers <= 0 || maxWorkers > runtime.NumCPU() {
		maxWorkers = runtime.NumCPU()
	}
	if maxWorkers > 8 {
		maxWorkers = 8
	}
	return &Orchestrator{
		machine:    NewMachine(logger.WithComponent("machine")),
		extractor:  extractor,
		summarizer: summarizer,
		logger:     logger,
		maxWorkers: maxWorkers,
	}
}

// State returns the orchestrator's current machine state.
func (o *Orchestrator) State() State { return o.machine.Current() }

// Reset drives the machine back to Ready. In-flight work already awaited
// by RunProjectScan/RunFileScan is not interrupted by Reset itself — the
// caller achieves cancellation by canceling the context passed to
// RunProjectScan, which notices it at the next crate boundary, calls Reset
// and returns early — the Go
// analogue of the teacher's context.CancelFunc-per-job cancellation.
func (o *Orchestrator) Reset() {
	o.machine.Dispatch(Event{Kind: EventReset})
}

// RunFileScan analyzes and summarizes a single file, covering the
// FilePickerMode/ScanningFile branch of the machine.
func (o *Orchestrator) RunFileScan(ctx context.Context, path string) (summarize.FileSummary, error) {
	if _, ok := o.machine.Dispatch(Event{Kind: EventStartFileScan}); !ok {
		return summarize.FileSummary{}, errors.New(errors.InvalidState, "cannot start file scan from current state")
	}
	if _, ok := o.machine.Dispatch(Event{Kind: EventFileSelected, Path: path}); !ok {
		return summarize.FileSummary{}, errors.New(errors.InvalidState, "cannot select file from current state")
	}

	analysis, err := o.extractor.Analyze(ctx, path)
	if err != nil {
		o.machine.Dispatch(Event{Kind: EventErrorRaised, Message: err.Error()})
		return summarize.FileSummary{}, err
	}

	summary, err := o.summarizer.SummarizeFile(ctx, analysis, path)
	if err != nil {
		o.machine.Dispatch(Event{Kind: EventErrorRaised, Message: err.Error()})
		return summarize.FileSummary{}, err
	}

	o.machine.Dispatch(Event{Kind: EventSynthesisDone, Result: ScanResult{Root: path, FileCount: 1}})
	return summary, nil
}

// RunProjectScan drives the machine through crate grouping and, for every
// discovered crate in alphabetical order, Phase 1 (file extraction),
// Phase 2 (bottom-up subcrate summarization), and Phase 3 (crate
// summary), before a final project synthesis. ctx cancellation is checked
// at each crate boundary, where the machine resets to Ready and partial
// sink files are left in place; a cancellation noticed inside a crate's
// phases surfaces as that phase's error and moves the machine to Error.
func (o *Orchestrator) RunProjectScan(ctx context.Context, root string, sink *Sink, progress ProgressFunc) (ScanResult, error) {
	if _, ok := o.machine.Dispatch(Event{Kind: EventStartProjectScan}); !ok {
		return ScanResult{}, errors.New(errors.InvalidState, "cannot start project scan from current state")
	}

	canonicalRoot, err := paths.Canonicalize(root)
	if err != nil {
		return ScanResult{}, errors.Wrap(errors.IoFailure, "canonicalize scan root", err)
	}
	o.machine.Dispatch(Event{Kind: EventProjectSelected, Root: canonicalRoot})

	if err := sink.TruncateAll(); err != nil {
		return ScanResult{}, err
	}

	runID := uuid.New().String()
	if err := sink.UpdateMetadata(func(m *Metadata) {
		m.RunID = runID
		m.StartedAt = time.Now()
		m.Root = canonicalRoot
		m.Status = "running"
	}); err != nil {
		return ScanResult{}, err
	}

	crateList, err := crates.Discover(canonicalRoot)
	if err != nil {
		return ScanResult{}, err
	}

	files, err := discoverSourceFiles(canonicalRoot)
	if err != nil {
		return ScanResult{}, err
	}
	filesByCrate, err := groupFilesByCrate(files, crateList)
	if err != nil {
		return ScanResult{}, err
	}

	total := len(crateList)*3 + 1
	step := 0
	advance := func() {
		step++
		if progress != nil {
			progress(step, total)
		}
	}

	memory := summarize.NewProjectMemory()
	var crateSummaries []summarize.CrateSummary
	var allAnalyses []*extract.FileAnalysis
	subcratesByCrate := map[string]map[string]summarize.SubcrateSummary{}

	for _, crate := range crateList {
		if ctx.Err() != nil {
			o.Reset()
			return ScanResult{}, ctx.Err()
		}

		crateFiles := filesByCrate[crate.Name]

		fileSummaries, analyses, err := o.runPhase1(ctx, crate.Name, crateFiles, sink)
		if err != nil {
			o.machine.Dispatch(Event{Kind: EventErrorRaised, Message: err.Error()})
			return ScanResult{}, err
		}
		advance()

		topLevelSubcrates, subcrateSummaries, coveredFiles, err := o.runPhase2(ctx, crate.Name, crateFiles, fileSummaries)
		if err != nil {
			o.machine.Dispatch(Event{Kind: EventErrorRaised, Message: err.Error()})
			return ScanResult{}, err
		}
		subcratesByCrate[crate.Name] = subcrateSummaries
		advance()

		o.machine.Dispatch(Event{Kind: EventPhase3Complete, CrateName: crate.Name})

		individualFiles := fileSummariesNotIn(fileSummaries, coveredFiles)
		filesAnalyzed := make([]string, len(fileSummaries))
		for i, fs := range fileSummaries {
			filesAnalyzed[i] = fs.RelativePath
		}
		crateSummary, err := o.summarizer.SummarizeCrate(ctx, crate.Name, crate.CanonicalRoot, crate.Description, filesAnalyzed, analyses, individualFiles, topLevelSubcrates, &memory)
		if err != nil {
			o.machine.Dispatch(Event{Kind: EventErrorRaised, Message: err.Error()})
			return ScanResult{}, err
		}
		if err := sink.AppendCrateSummary(crateSummary); err != nil {
			return ScanResult{}, err
		}
		memory = summarize.UpdateProjectMemory(memory, crateSummary)
		crateSummaries = append(crateSummaries, crateSummary)
		allAnalyses = append(allAnalyses, analyses...)
		advance()
	}

	if err := sink.WriteSubcrateSummaries(subcratesByCrate); err != nil {
		return ScanResult{}, err
	}

	o.machine.Dispatch(Event{Kind: EventAllCratesDone, CrateSummaries: crateSummaries})

	finalText, err := o.summarizer.SynthesizeProject(ctx, crateSummaries, false)
	if err != nil {
		o.machine.Dispatch(Event{Kind: EventErrorRaised, Message: err.Error()})
		return ScanResult{}, err
	}
	if err := sink.WriteHierarchicalSummary(finalText); err != nil {
		return ScanResult{}, err
	}
	advance()

	if err := o.writeGraphs(ctx, canonicalRoot, allAnalyses, sink); err != nil {
		return ScanResult{}, err
	}

	crateNames := make([]string, len(crateList))
	for i, c := range crateList {
		crateNames[i] = c.Name
	}

	result := ScanResult{
		Root:                canonicalRoot,
		Crates:              crateNames,
		FileCount:           len(files),
		HierarchicalSummary: finalText,
		CrateSummaries:      crateSummaries,
	}
	o.machine.Dispatch(Event{Kind: EventSynthesisDone, Result: result})

	_ = sink.UpdateMetadata(func(m *Metadata) {
		m.Root = canonicalRoot
		m.CratesDone = crateNames
		m.FilesSeen = len(files)
		m.Status = "completed"
	})

	return result, nil
}

// writeGraphs builds the C8 dependency graph and C9 call graph from every
// crate's FileAnalysis records and writes them to the sink. A parse or
// read failure for an individual file degrades that file out of the
// graphs rather than aborting the scan, matching C1's own degrade-to-empty
// philosophy.
func (o *Orchestrator) writeGraphs(ctx context.Context, canonicalRoot string, analyses []*extract.FileAnalysis, sink *Sink) error {
	var importFiles []depgraph.FileImports
	var sourceFiles []callgraph.SourceFile

	for _, a := range analyses {
		relPath, err := paths.Relative(canonicalRoot, a.Path)
		if err != nil {
			continue
		}
		sizeKB := 0.0
		if info, statErr := os.Stat(a.Path); statErr == nil {
			sizeKB = float64(info.Size()) / 1024
		}
		importFiles = append(importFiles, depgraph.FileImports{
			RelPath:  relPath,
			Language: a.Language,
			SizeKB:   sizeKB,
			Imports:  a.Structural[extract.SectionImports],
		})

		source, readErr := os.ReadFile(a.Path)
		if readErr != nil {
			continue
		}
		sourceFiles = append(sourceFiles, callgraph.SourceFile{
			RelPath:  relPath,
			Language: a.Language,
			Source:   source,
		})
	}

	depGraph, err := depgraph.Build(canonicalRoot, importFiles)
	if err != nil {
		return err
	}
	if err := sink.WriteDependencyGraph(depGraph); err != nil {
		return err
	}

	callGraph, err := callgraph.Build(ctx, sourceFiles)
	if err != nil {
		return err
	}
	return sink.WriteCallGraph(callGraph)
}

type phase1Result struct {
	relPath  string
	analysis *extract.FileAnalysis
	summary  summarize.FileSummary
	err      error
}

// runPhase1 parses and summarizes crateFiles with a bounded worker pool —
// the pipeline's only point of concurrency — then drains results in
// path-sorted order before appending to the sink, matching spec.md §5's
// ordering guarantee.
func (o *Orchestrator) runPhase1(ctx context.Context, crateName string, crateFiles []string, sink *Sink) ([]summarize.FileSummary, []*extract.FileAnalysis, error) {
	o.machine.Dispatch(Event{
		Kind: EventPhase1Complete, CrateName: crateName,
		ProcessedFiles: 0, RemainingFiles: len(crateFiles),
	})

	sorted := append([]string(nil), crateFiles...)
	sort.Strings(sorted)

	jobs := make(chan string)
	results := make(chan phase1Result, len(sorted))

	workers := o.maxWorkers
	if workers > len(sorted) {
		workers = len(sorted)
	}
	if workers < 1 {
		workers = 1
	}

	for w := 0; w < workers; w++ {
		go func() {
			for path := range jobs {
				analysis, err := o.extractor.Analyze(ctx, path)
				if err != nil {
					results <- phase1Result{relPath: path, err: err}
					continue
				}
				summary, err := o.summarizer.SummarizeFile(ctx, analysis, path)
				results <- phase1Result{relPath: path, analysis: analysis, summary: summary, err: err}
			}
		}()
	}

	go func() {
		for _, path := range sorted {
			jobs <- path
		}
		close(jobs)
	}()

	byPath := map[string]phase1Result{}
	for i := 0; i < len(sorted); i++ {
		r := <-results
		byPath[r.relPath] = r
	}

	var summaries []summarize.FileSummary
	var analyses []*extract.FileAnalysis
	for _, path := range sorted {
		r := byPath[path]
		if r.err != nil {
			o.logger.Warn("phase 1 extraction failed for file, skipped", map[string]interface{}{
				"path": path, "error": r.err.Error(),
			})
			continue
		}
		summaries = append(summaries, r.summary)
		analyses = append(analyses, r.analysis)
		if err := sink.AppendComments(r.analysis); err != nil {
			return nil, nil, err
		}
		if err := sink.AppendFileSummary(path, r.summary.Text); err != nil {
			return nil, nil, err
		}
	}

	return summaries, analyses, nil
}

// runPhase2 detects the crate's subcrate tree and summarizes it bottom-up,
// applying the >10-subcrate truncation policy before any LLM call.
func (o *Orchestrator) runPhase2(
	ctx context.Context,
	crateName string,
	crateFiles []string,
	fileSummaries []summarize.FileSummary,
) ([]summarize.SubcrateSummary, map[string]summarize.SubcrateSummary, map[string]bool, error) {
	o.machine.Dispatch(Event{Kind: EventPhase2Complete, CrateName: crateName})

	var subcrateFiles []subcrate.File
	for _, p := range crateFiles {
		subcrateFiles = append(subcrateFiles, subcrate.File{RelPath: p, SizeKB: 1})
	}
	tree := subcrate.Detect(subcrateFiles)

	kept := summarize.SelectSubcratesForSummarization(tree)
	budget := summarize.PerSubcrateBudget(len(kept))

	summaryByNode := map[*subcrate.SubcrateNode]summarize.SubcrateSummary{}
	summaryByName := map[string]summarize.SubcrateSummary{}
	covered := map[string]bool{}

	// Flatten walks pre-order (a node before its descendants), so iterating
	// kept in reverse visits every node only after all its descendants —
	// the bottom-up order SummarizeSubcrate's nested-summary input needs.
	for i := len(kept) - 1; i >= 0; i-- {
		entry := kept[i]
		if ctx.Err() != nil {
			return nil, nil, nil, ctx.Err()
		}

		var direct []summarize.FileSummary
		for _, fsum := range fileSummaries {
			if containsPath(entry.Node.DirectFiles, fsum.RelativePath) {
				direct = append(direct, fsum)
			}
		}

		var nested []summarize.SubcrateSummary
		for _, child := range entry.Node.NestedSubcrates {
			if s, ok := summaryByNode[child]; ok {
				nested = append(nested, s)
			}
		}

		summary, err := o.summarizer.SummarizeSubcrate(ctx, entry.Name, entry.Node, direct, nested, budget)
		if err != nil {
			return nil, nil, nil, err
		}
		summaryByNode[entry.Node] = summary
		summaryByName[entry.Name] = summary

		for _, f := range entry.Node.AllFiles {
			covered[f] = true
		}
	}

	var topLevel []summarize.SubcrateSummary
	for _, entry := range kept {
		if !entry.IsNested {
			if s, ok := summaryByNode[entry.Node]; ok {
				topLevel = append(topLevel, s)
			}
		}
	}

	return topLevel, summaryByName, covered, nil
}

func containsPath(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

func fileSummariesNotIn(all []summarize.FileSummary, covered map[string]bool) []summarize.FileSummary {
	var out []summarize.FileSummary
	for _, fsum := range all {
		if !covered[fsum.RelativePath] {
			out = append(out, fsum)
		}
	}
	return out
}

// discoverSourceFiles walks root collecting every file whose extension
// tree-sitter recognizes (C1's domain), skipping dotfiles, vendor trees,
// and build-output directories.
func discoverSourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && isIgnoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := extract.LanguageFromExtension(filepath.Ext(path)); ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.IoFailure, "walk project for source files", err)
	}
	return files, nil
}

func groupFilesByCrate(files []string, crateList []crates.CrateInfo) (map[string][]string, error) {
	grouped := map[string][]string{}
	for _, f := range files {
		name, err := crates.Assign(f, crateList)
		if err != nil {
			return nil, err
		}
		grouped[name] = append(grouped[name], f)
	}
	return grouped, nil
}

func isIgnoredDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	return ignoredDirNames[name]
}
