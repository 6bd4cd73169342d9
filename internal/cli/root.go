// Package cli wires settings, logging, the manifest loader, the inventory scan
// and the download service into the flowfetch command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytget/flowfetch/internal/config"
	"github.com/ytget/flowfetch/internal/download"
	"github.com/ytget/flowfetch/internal/logging"
	"github.com/ytget/flowfetch/internal/manifest"
	"github.com/ytget/flowfetch/internal/platform"
	"github.com/ytget/flowfetch/internal/report"
)

// AppName is the command name
const AppName = "flowfetch"

type options struct {
	verbose bool
}

// Execute runs the command with os.Args and returns the process exit code
func Execute(version string) int {
	cmd := NewRootCommand(version, os.Stdout, os.Stderr)
	err := cmd.ExecuteContext(context.Background())
	return ExitCode(err)
}

// NewRootCommand builds the flowfetch command writing progress to out and
// diagnostics to errOut
func NewRootCommand(version string, out, errOut io.Writer) *cobra.Command {
	settings := config.NewSettings()
	opts := &options{}

	cmd := &cobra.Command{
		Use:   AppName + " [flags] <images.json>",
		Short: "Download images listed in a JSON manifest, skipping ones already saved",
		Long: `flowfetch reads a JSON array of {"key", "url"} records, skips every record
whose key already names an image in the output directory, and downloads the
rest one by one as <key>.jpg.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings, opts, args, out)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprintln(errOut, err)
		fmt.Fprintln(errOut, c.UsageString())
		return usageError("%v", err)
	})

	addFlags(cmd, settings, opts)
	return cmd
}

func addFlags(cmd *cobra.Command, settings *config.Settings, opts *options) {
	flags := cmd.Flags()
	flags.StringP("output-dir", "o", "", "directory images are saved to (default ~/Downloads/"+platform.DownloadsSubdir+")")
	flags.Duration("timeout", config.DefaultHTTPTimeout, "give up on a request after this long without receiving data")
	flags.Int("chunk-size", config.DefaultChunkSize, "bytes written to disk per chunk")
	flags.Int("progress-every", config.DefaultProgressEvery, "print a progress line every N downloads")
	flags.String("user-agent", config.DefaultUserAgent, "User-Agent header sent with every request")
	flags.String("lang", config.DefaultLanguage, "console language (en, zh)")
	flags.String("log-level", config.DefaultLogLevel, "diagnostic log level (debug, info, warn, error)")
	flags.Bool("strict", false, "exit with status 3 when any download fails")
	flags.Bool("reveal", false, "open the output directory when done")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every request (same as --log-level debug)")

	bindings := map[string]string{
		config.KeyOutputDir:     "output-dir",
		config.KeyHTTPTimeout:   "timeout",
		config.KeyChunkSize:     "chunk-size",
		config.KeyProgressEvery: "progress-every",
		config.KeyUserAgent:     "user-agent",
		config.KeyLanguage:      "lang",
		config.KeyLogLevel:      "log-level",
		config.KeyStrict:        "strict",
		config.KeyReveal:        "reveal",
	}
	for key, name := range bindings {
		if err := settings.BindFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func run(ctx context.Context, settings *config.Settings, opts *options, args []string, out io.Writer) error {
	level := settings.GetLogLevel()
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return usageError("%v", err)
	}
	defer logger.Sync()

	lang := settings.GetLanguage()
	if !report.NewLocalization().Supports(lang) {
		return usageError("unsupported language %q", lang)
	}
	reporter := report.NewReporter(out, lang, settings.GetProgressEvery())

	if len(args) != 1 {
		reporter.Usage(AppName)
		return usageError("expected exactly one manifest path, got %d", len(args))
	}
	manifestPath := args[0]

	records, err := manifest.Load(manifestPath)
	if errors.Is(err, manifest.ErrManifestNotFound) {
		reporter.ManifestNotFound(manifestPath)
		return withExitCode(ExitUsage, err)
	}
	if err != nil {
		reporter.ManifestInvalid(err)
		return withExitCode(ExitFailure, err)
	}

	outputDir := settings.GetOutputDirectory()
	if err := platform.CreateDirectoryIfNotExists(outputDir); err != nil {
		logger.Error("failed to create output directory", zap.String("dir", outputDir), zap.Error(err))
		return withExitCode(ExitFailure, fmt.Errorf("create output directory: %w", err))
	}

	reporter.ManifestLoaded(len(records))

	downloaded, err := platform.ScanDownloadedKeys(outputDir)
	if err != nil {
		logger.Error("failed to scan output directory", zap.String("dir", outputDir), zap.Error(err))
		return withExitCode(ExitFailure, err)
	}
	reporter.InventoryScanned(downloaded.Len())

	service := download.NewService(outputDir, download.Options{
		Timeout:   settings.GetHTTPTimeout(),
		ChunkSize: settings.GetChunkSize(),
		Extension: settings.GetFileExtension(),
		UserAgent: settings.GetUserAgent(),
		Logger:    logger,
	})
	service.SetUpdateCallback(reporter.HandleUpdate)

	pending := service.FilterPending(records, downloaded)
	reporter.PendingComputed(len(pending))
	if len(pending) == 0 {
		return nil
	}

	summary := service.Download(ctx, pending)
	summary.Total = len(records)
	summary.AlreadyDownloaded = downloaded.Len()
	reporter.Summary(summary)

	if settings.GetAutoReveal() {
		if err := platform.RevealDirectory(outputDir); err != nil {
			logger.Warn("failed to open output directory", zap.Error(err))
		}
	}

	if settings.GetStrict() && summary.Failed > 0 {
		logger.Error("downloads failed in strict mode", zap.Int("failed", summary.Failed))
		return withExitCode(ExitRecordsFailed, fmt.Errorf("%d of %d downloads failed", summary.Failed, summary.Attempted()))
	}
	return nil
}
