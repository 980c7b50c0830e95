package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ironsheep/omr-tools/internal/analysis"
	"github.com/ironsheep/omr-tools/internal/grading"
	"github.com/ironsheep/omr-tools/internal/histogram"
	"github.com/ironsheep/omr-tools/internal/sheet"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// ErrUnknownSheet is returned when a sheet id is not part of the project.
var ErrUnknownSheet = errors.New("unknown sheet")

// imageExtensions lists the file extensions picked up by ImportSheets.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// Project is the unit of work: one structure applied to many sheets.
type Project struct {
	Structure *structure.Structure
	Sheets    []*sheet.Sheet
	// Histogram collects the brightness of every bubble on every sheet and
	// keeps an example thumbnail per bucket.
	Histogram *histogram.Histogram
	Strategy  analysis.Strategy
	Grading   grading.Scheme

	// Log receives project events. It defaults to a disabled logger.
	Log zerolog.Logger

	referenceSheet string
}

// New returns an empty project with the default grading scheme.
func New() *Project {
	return &Project{
		Structure: structure.New(),
		Histogram: histogram.New(true),
		Strategy:  analysis.PerSheet,
		Grading:   grading.DefaultScheme(),
		Log:       zerolog.Nop(),
	}
}

// IsImageFile reports whether path has one of the supported image
// extensions.
func IsImageFile(path string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(path)))
}

// ImportSheets adds the images at paths to the project. Directories are
// scanned non-recursively for image files. Files already in the project are
// skipped. The new sheets are returned in import order.
func (p *Project) ImportSheets(paths ...string) ([]*sheet.Sheet, error) {
	var added []*sheet.Sheet
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return added, fmt.Errorf("import %s: %w", path, err)
		}
		if !info.IsDir() {
			if s := p.importSheet(path); s != nil {
				added = append(added, s)
			}
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return added, fmt.Errorf("import %s: %w", path, err)
		}
		for _, e := range entries {
			if e.IsDir() || !IsImageFile(e.Name()) {
				continue
			}
			if s := p.importSheet(filepath.Join(path, e.Name())); s != nil {
				added = append(added, s)
			}
		}
	}
	p.Log.Info().Int("added", len(added)).Int("sheets", len(p.Sheets)).Msg("sheets imported")
	return added, nil
}

func (p *Project) importSheet(path string) *sheet.Sheet {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	for _, s := range p.Sheets {
		if s.FilePath == path {
			return nil
		}
	}
	s := sheet.New(path)
	s.ID = p.uniqueID(s.ID)
	p.Sheets = append(p.Sheets, s)
	p.Log.Debug().Str("sheet", s.ID).Str("path", path).Msg("sheet added")
	return s
}

// uniqueID returns id, or id with a numeric suffix if id is taken.
func (p *Project) uniqueID(id string) string {
	if p.Sheet(id) == nil {
		return id
	}
	for n := 2; ; n++ {
		candidate := id + "#" + strconv.Itoa(n)
		if p.Sheet(candidate) == nil {
			return candidate
		}
	}
}

// Sheet returns the sheet with the given id, or nil.
func (p *Project) Sheet(id string) *sheet.Sheet {
	for _, s := range p.Sheets {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// RemoveSheets removes the sheets with the given ids and returns how many
// were removed. Removing the reference sheet clears the reference but
// keeps the captured templates.
func (p *Project) RemoveSheets(ids ...string) int {
	before := len(p.Sheets)
	p.Sheets = slices.DeleteFunc(p.Sheets, func(s *sheet.Sheet) bool {
		return slices.Contains(ids, s.ID)
	})
	if slices.Contains(ids, p.referenceSheet) {
		p.referenceSheet = ""
	}
	return before - len(p.Sheets)
}

// SetRotation rotates every sheet in the project.
func (p *Project) SetRotation(degrees int) {
	for _, s := range p.Sheets {
		s.SetRotation(degrees)
	}
}

// ReferenceSheet returns the sheet marker templates are captured from, or
// nil if none is set.
func (p *Project) ReferenceSheet() *sheet.Sheet {
	if p.referenceSheet == "" {
		return nil
	}
	return p.Sheet(p.referenceSheet)
}

// SetReferenceSheet makes the sheet with the given id the reference and
// captures every marker template from its unaligned page.
func (p *Project) SetReferenceSheet(id string, loader analysis.PageLoader) error {
	s := p.Sheet(id)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSheet, id)
	}
	page, err := loader.Load(s.FilePath, s.Rotation())
	if err != nil {
		return fmt.Errorf("load reference sheet %s: %w", id, err)
	}
	p.Structure.CaptureTemplates(page)
	p.referenceSheet = id
	p.Log.Info().Str("sheet", id).Int("markers", len(p.Structure.RegistrationMarkers())).Msg("marker templates captured")
	return nil
}

// CaptureTemplates recaptures marker templates from the reference sheet
// when any marker lacks one or was edited after its capture. Without a
// reference sheet it does nothing.
func (p *Project) CaptureTemplates(loader analysis.PageLoader) error {
	if p.ReferenceSheet() == nil {
		return nil
	}
	for _, m := range p.Structure.RegistrationMarkers() {
		if m.TemplateStale() {
			return p.SetReferenceSheet(p.referenceSheet, loader)
		}
	}
	return nil
}

// Analyze captures missing templates and runs a batch analysis over every
// sheet with the project's thresholding strategy.
func (p *Project) Analyze(ctx context.Context, loader analysis.PageLoader, opts analysis.Options) (*analysis.Report, error) {
	if err := p.CaptureTemplates(loader); err != nil {
		return nil, err
	}
	opts.Strategy = p.Strategy
	if opts.Logger == nil {
		opts.Logger = &p.Log
	}
	return analysis.Run(ctx, p.Sheets, p.Structure, p.Histogram, loader, opts)
}

// CalculateThreshold guesses the global thresholds from the global
// histogram.
func (p *Project) CalculateThreshold() {
	p.Histogram.GuessThreshold()
}

// CalculateAnswers classifies every analyzed sheet with the project's
// strategy.
func (p *Project) CalculateAnswers() {
	analysis.CalculateAnswers(p.Sheets, p.Structure, p.Histogram, p.Strategy)
}
