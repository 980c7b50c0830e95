package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/ironsheep/omr-tools/internal/analysis"
	"github.com/ironsheep/omr-tools/internal/export"
	"github.com/ironsheep/omr-tools/internal/imaging"
	"github.com/ironsheep/omr-tools/internal/project"
)

var (
	workers      int
	strategy     string
	answersPath  string
	resultsPath  string
	xlsxPath     string
	feedbackDir  string
	feedbackZoom float64
	save         bool
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <project.yaml>",
		Short: "Analyze every sheet of a project and write the results",
		Long: `analyze locates the registration markers of every sheet, reads each
bubble, derives thresholds and classifies the answers. Sheets whose cached
results are still current are not reloaded. A per-sheet failure skips the
sheet; a page over the pixel budget stops the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker count (default from OMR_WORKERS)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Thresholding: per-sheet or global (default from the project)")
	cmd.Flags().StringVar(&answersPath, "answers", "", "Write the answers CSV to this file")
	cmd.Flags().StringVar(&resultsPath, "results", "", "Write the results CSV to this file")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write the results workbook to this file")
	cmd.Flags().StringVar(&feedbackDir, "feedback-dir", "", "Write one annotated JPEG per sheet into this directory")
	cmd.Flags().Float64Var(&feedbackZoom, "zoom", 1, "Scale factor for feedback images")
	cmd.Flags().BoolVar(&save, "save", false, "Save thresholds back into the project file")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	p, err := project.Load(path)
	if err != nil {
		return err
	}
	p.Log = log.With().Str("component", "project").Logger()

	if strategy == "" {
		strategy = cfg.Thresholding
	}
	if strategy != "" {
		if p.Strategy, err = analysis.ParseStrategy(strategy); err != nil {
			return err
		}
	}
	if workers == 0 {
		workers = cfg.Workers
	}

	var labels analysis.LabelReader
	if p.Structure.LabelRegion.Empty() {
		log.Debug().Msg("no label region; form labels are not read")
	} else if labels = labelReader(); labels == nil {
		log.Warn().Msg("project declares a label region but OCR support is not compiled in")
	}

	ctx, stop := signalContext()
	defer stop()

	loader := imaging.NewPageLoader(cfg.PageCache, cfg.MaxPixels)
	report, err := p.Analyze(ctx, loader, analysis.Options{
		Workers: workers,
		Labels:  labels,
		Logger:  &log,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d sheets, %d analyzed, %d reused, %d skipped in %s\n",
		report.RunID, report.Total, report.Analyzed, report.Reused, len(report.Skipped), report.Elapsed)
	if report.Errors != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), report.Errors)
	}

	var result *multierror.Error
	if answersPath != "" {
		result = multierror.Append(result, writeFile(answersPath, func(f *os.File) error {
			return export.WriteAnswersCSV(f, p.Sheets, p.Structure)
		}))
	}
	if resultsPath != "" {
		result = multierror.Append(result, writeFile(resultsPath, func(f *os.File) error {
			return export.WriteResultsCSV(f, p.Sheets, p.Structure, p.Grading)
		}))
	}
	if xlsxPath != "" {
		result = multierror.Append(result, writeFile(xlsxPath, func(f *os.File) error {
			return export.WriteResultsXLSX(f, p.Sheets, p.Structure, p.Grading)
		}))
	}
	if feedbackDir != "" {
		result = multierror.Append(result, writeFeedback(p, loader))
	}
	if save {
		result = multierror.Append(result, p.Save(path))
	}
	return result.ErrorOrNil()
}

// writeFile creates path and fills it with write. The file is removed when
// write fails.
func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// writeFeedback writes <sheet id>.jpg into feedbackDir for every sheet with
// answers.
func writeFeedback(p *project.Project, loader *imaging.PageLoader) error {
	if err := os.MkdirAll(feedbackDir, 0o755); err != nil {
		return err
	}
	groups := p.Structure.QuestionGroups()
	maxTotal := p.Grading.MaxTotal(groups)

	var result *multierror.Error
	for _, s := range p.Sheets {
		if !s.HasAnswers() {
			continue
		}
		page, err := loader.Load(s.FilePath, s.Rotation())
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		opts := export.FeedbackOptions{
			Zoom:    feedbackZoom,
			Caption: fmt.Sprintf("%s  %g/%g", export.StudentID(s), p.Grading.TotalScore(s, groups), maxTotal),
		}
		out := filepath.Join(feedbackDir, s.ID+".jpg")
		result = multierror.Append(result, writeFile(out, func(f *os.File) error {
			return export.FeedbackJPEG(f, page, s, p.Structure, opts)
		}))
	}
	return result.ErrorOrNil()
}
