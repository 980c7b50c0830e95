// Command omr grades scanned bubble answer sheets.
//
// It runs either as a batch CLI over a project file or as an MCP server on
// stdin/stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/omr-tools/internal/analysis"
	"github.com/ironsheep/omr-tools/internal/config"
	"github.com/ironsheep/omr-tools/internal/imaging"
	"github.com/ironsheep/omr-tools/internal/logging"
	"github.com/ironsheep/omr-tools/internal/ocr"
	"github.com/ironsheep/omr-tools/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	envFile string
	cfg     config.Config
	log     zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "omr",
		Short: "Optical mark recognition for bubble answer sheets",
		Long: `omr aligns scanned answer sheets on their registration markers, reads
every bubble, and grades the answers against the project's key.

Without a subcommand it serves the MCP protocol over stdin/stdout.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE:              runServe,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Load settings from this .env file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (default from OMR_LOG_LEVEL)")

	rootCmd.AddCommand(newAnalyzeCmd(), newServeCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and the logger before any command runs. Flags
// override the environment.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(envFile)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	log = logging.NewConsole(logging.ParseLevel(cfg.LogLevel))
	return nil
}

// labelReader returns the OCR reader when this binary was built with
// Tesseract support.
func labelReader() analysis.LabelReader {
	if !ocr.Available() {
		return nil
	}
	return ocr.NewReader(cfg.OCRLanguage)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP protocol over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	log.Debug().Str("version", Version).Str("built", BuildTime).Str("commit", GitCommit).Msg("starting MCP server")
	srv := server.New(server.Options{
		Loader:       imaging.NewPageLoader(cfg.PageCache, cfg.MaxPixels),
		Workers:      cfg.Workers,
		Labels:       labelReader(),
		Thresholding: cfg.Thresholding,
		Logger:       log,
	})
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "omr %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  OCR:        %t\n", ocr.Available())
		},
	}
}
