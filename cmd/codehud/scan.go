package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/codehud/codehud-core/internal/config"
	"github.com/codehud/codehud-core/internal/extract"
	"github.com/codehud/codehud-core/internal/fsm"
	"github.com/codehud/codehud-core/internal/llm"
	"github.com/codehud/codehud-core/internal/logging"
	"github.com/codehud/codehud-core/internal/summarize"
)

var (
	scanOutputDir string
	scanWorkers   int
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan a project or a single file and write hierarchical summaries",
	Long: `scan walks a codebase rooted at <path> (or summarizes a single file when
<path> names one), writing the six pipeline sink files plus the dependency
and call graphs under the output directory.

The codebase root defaults to CODEHUD_CODEBASE_PATH when <path> is omitted.
Setting GEMINI_API_KEY routes any LLM prompt estimated above the remote
threshold (28,000 tokens by default) to the remote Gemini backend instead
of the local Ollama endpoint.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanOutputDir, "output", "", "Output directory (defaults to <root>/project_scan_output)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Override configured worker count (0 keeps the configured default)")
	rootCmd.AddCommand(scanCmd)
}

func resolveScanRoot(args []string) (string, error) {
	if len(args) == 1 {
		return filepath.Abs(args[0])
	}
	if envRoot := os.Getenv(config.CodebasePathEnvVar); envRoot != "" {
		return filepath.Abs(envRoot)
	}
	return "", fmt.Errorf("no path given and %s is not set", config.CodebasePathEnvVar)
}

func runScan(cmd *cobra.Command, args []string) error {
	root, err := resolveScanRoot(args)
	if err != nil {
		return err
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}

	loaded, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := loaded.Config
	if scanWorkers > 0 {
		cfg.Extraction.MaxWorkers = scanWorkers
	}

	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.InfoLevel})
	if loaded.UsedDefaults {
		logger.Debug("no .codehud/config file found, using defaults", nil)
	}
	for _, ov := range loaded.EnvOverrides {
		logger.Debug("applied environment override", map[string]interface{}{
			"envVar": ov.EnvVar, "path": ov.Path, "value": ov.FromValue,
		})
	}

	geminiKey := os.Getenv(config.GeminiAPIKeyEnvVar)
	gateway := llm.NewGateway(cfg.LLM, geminiKey, logger.WithComponent("llm"))
	extractor := extract.NewExtractor(logger.WithComponent("extract"))
	summarizer := summarize.NewSummarizer(gateway, cfg.Summarizer, logger.WithComponent("summarize"))
	orchestrator := fsm.NewOrchestrator(extractor, summarizer, logger.WithComponent("fsm"), cfg.Extraction.MaxWorkers)

	ctx := context.Background()

	if !info.IsDir() {
		return runSingleFileScan(ctx, orchestrator, root)
	}
	return runProjectScan(ctx, orchestrator, cfg, root)
}

func runSingleFileScan(ctx context.Context, o *fsm.Orchestrator, path string) error {
	summary, err := o.RunFileScan(ctx, path)
	if err != nil {
		return fmt.Errorf("scan file: %w", err)
	}
	fmt.Printf("%s\n\n%s\n", summary.RelativePath, summary.Text)
	return nil
}

func runProjectScan(ctx context.Context, o *fsm.Orchestrator, cfg *config.Config, root string) error {
	outDir := scanOutputDir
	if outDir == "" {
		outDir = filepath.Join(root, cfg.OutputDirName)
	}

	sink, err := fsm.NewSink(outDir)
	if err != nil {
		return fmt.Errorf("create sink: %w", err)
	}

	start := time.Now()
	result, err := o.RunProjectScan(ctx, root, sink, func(step, total int) {
		fmt.Fprintf(os.Stderr, "\rscanning... %d/%d", step, total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("scan project: %w", err)
	}

	fmt.Printf("scanned %d files across %d crates in %s\n", result.FileCount, len(result.Crates), time.Since(start).Round(time.Millisecond))
	fmt.Printf("output written to %s\n", outDir)
	fmt.Println()
	fmt.Println(result.HierarchicalSummary)
	return nil
}
