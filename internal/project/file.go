package project

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/omr-tools/internal/analysis"
	"github.com/ironsheep/omr-tools/internal/grading"
	"github.com/ironsheep/omr-tools/internal/sheet"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// FormatVersion is the project file version written by Save.
const FormatVersion = 1

type projectFile struct {
	Version      int               `yaml:"version"`
	Thresholds   thresholdsDoc     `yaml:"thresholds"`
	Thresholding analysis.Strategy `yaml:"thresholding"`
	Grading      grading.Scheme    `yaml:"grading"`
	Structure    structureDoc      `yaml:"structure"`
	Sheets       []sheetDoc        `yaml:"sheets,omitempty"`
}

type thresholdsDoc struct {
	Black int `yaml:"black"`
	White int `yaml:"white"`
}

type structureDoc struct {
	ReferenceSheet string      `yaml:"reference_sheet,omitempty"`
	LabelRegion    *rectDoc    `yaml:"label_region,omitempty"`
	Markers        []markerDoc `yaml:"markers,omitempty"`
	Groups         []groupDoc  `yaml:"groups,omitempty"`
}

type rectDoc struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Right  int `yaml:"right"`
	Bottom int `yaml:"bottom"`
}

type markerDoc struct {
	X            int `yaml:"x"`
	Y            int `yaml:"y"`
	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	SearchRadius int `yaml:"search_radius"`
}

type groupDoc struct {
	Type         structure.Orientation `yaml:"type"`
	LeftX        int                   `yaml:"left_x"`
	TopY         int                   `yaml:"top_y"`
	RightX       int                   `yaml:"right_x"`
	BottomY      int                   `yaml:"bottom_y"`
	Rows         int                   `yaml:"rows"`
	Columns      int                   `yaml:"columns"`
	BubbleWidth  int                   `yaml:"bubble_width"`
	BubbleHeight int                   `yaml:"bubble_height"`
	IndexOffset  int                   `yaml:"index_offset"`
	// Key holds the correct choices of each question, e.g. "A" or "BD".
	Key []string `yaml:"key,omitempty"`
}

type sheetDoc struct {
	ID        string        `yaml:"id"`
	Src       string        `yaml:"src"`
	Rotation  int           `yaml:"rotation,omitempty"`
	FormLabel string        `yaml:"form_label,omitempty"`
	Overrides []overrideDoc `yaml:"overrides,omitempty"`
}

type overrideDoc struct {
	Group int            `yaml:"group"`
	Row   int            `yaml:"row"`
	Col   int            `yaml:"col"`
	Value sheet.Override `yaml:"value"`
}

// Save writes the project to path. The file is replaced atomically.
func (p *Project) Save(path string) error {
	dir := filepath.Dir(path)
	doc := projectFile{
		Version: FormatVersion,
		Thresholds: thresholdsDoc{
			Black: p.Histogram.BlackThreshold(),
			White: p.Histogram.WhiteThreshold(),
		},
		Thresholding: p.Strategy,
		Grading:      p.Grading,
		Structure:    structureDoc{ReferenceSheet: p.referenceSheet},
	}

	if r := p.Structure.LabelRegion; !r.Empty() {
		doc.Structure.LabelRegion = &rectDoc{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y}
	}
	for _, m := range p.Structure.RegistrationMarkers() {
		doc.Structure.Markers = append(doc.Structure.Markers, markerDoc{
			X:            m.X(),
			Y:            m.Y(),
			Width:        m.ImageWidth(),
			Height:       m.ImageHeight(),
			SearchRadius: m.SearchRadius(),
		})
	}
	groups := p.Structure.QuestionGroups()
	for _, g := range groups {
		gd := groupDoc{
			Type:         g.Orientation(),
			LeftX:        g.LeftX(),
			TopY:         g.TopY(),
			RightX:       g.RightX(),
			BottomY:      g.BottomY(),
			Rows:         g.RowCount(),
			Columns:      g.ColumnCount(),
			BubbleWidth:  g.BubbleWidth(),
			BubbleHeight: g.BubbleHeight(),
			IndexOffset:  g.IndexOffset(),
		}
		if g.Orientation().Graded() {
			for q := 0; q < g.Questions(); q++ {
				gd.Key = append(gd.Key, g.CorrectChoices(q))
			}
		}
		doc.Structure.Groups = append(doc.Structure.Groups, gd)
	}

	for _, s := range p.Sheets {
		sd := sheetDoc{
			ID:        s.ID,
			Src:       relativePath(dir, s.FilePath),
			Rotation:  s.Rotation(),
			FormLabel: s.FormLabel,
		}
		for i, g := range groups {
			s.Overrides(g, func(row, col int, o sheet.Override) {
				sd.Overrides = append(sd.Overrides, overrideDoc{Group: i, Row: row, Col: col, Value: o})
			})
		}
		doc.Sheets = append(doc.Sheets, sd)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".omr-project-*")
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("save project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save project: %w", err)
	}

	p.Log.Info().Str("path", path).Int("sheets", len(p.Sheets)).Msg("project saved")
	return nil
}

// Load reads a project written by Save.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	// Sections missing from the file keep the defaults of a new project.
	p := New()
	doc := projectFile{
		Thresholds: thresholdsDoc{
			Black: p.Histogram.BlackThreshold(),
			White: p.Histogram.WhiteThreshold(),
		},
		Thresholding: p.Strategy,
		Grading:      p.Grading,
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}
	if doc.Version > FormatVersion {
		return nil, fmt.Errorf("project %s has format version %d, newest supported is %d", path, doc.Version, FormatVersion)
	}
	if err := doc.Grading.Validate(); err != nil {
		return nil, fmt.Errorf("project %s: %w", path, err)
	}

	p.Strategy = doc.Thresholding
	p.Grading = doc.Grading
	p.Histogram.SetBlackThreshold(doc.Thresholds.Black)
	p.Histogram.SetWhiteThreshold(doc.Thresholds.White)

	if r := doc.Structure.LabelRegion; r != nil {
		p.Structure.LabelRegion = image.Rect(r.Left, r.Top, r.Right, r.Bottom)
	}
	for _, md := range doc.Structure.Markers {
		m := structure.NewRegistrationMarker(md.X, md.Y)
		m.SetImageWidth(md.Width)
		m.SetImageHeight(md.Height)
		m.SetSearchRadius(md.SearchRadius)
		if err := p.Structure.AddRegistrationMarker(m); err != nil {
			return nil, fmt.Errorf("project %s: %w", path, err)
		}
	}

	groups := make([]*structure.QuestionGroup, len(doc.Structure.Groups))
	for i, gd := range doc.Structure.Groups {
		g, err := gd.build()
		if err != nil {
			return nil, fmt.Errorf("project %s: group %d: %w", path, i, err)
		}
		groups[i] = g
		p.Structure.AddQuestionGroup(g)
	}

	dir := filepath.Dir(path)
	for _, sd := range doc.Sheets {
		src := sd.Src
		if !filepath.IsAbs(src) {
			src = filepath.Join(dir, src)
		}
		s := sheet.New(src)
		if sd.ID != "" {
			s.ID = sd.ID
		}
		s.SetRotation(sd.Rotation)
		s.FormLabel = sd.FormLabel
		for _, od := range sd.Overrides {
			if od.Group < 0 || od.Group >= len(groups) {
				return nil, fmt.Errorf("project %s: sheet %s: override refers to group %d", path, s.ID, od.Group)
			}
			if err := s.SetOverride(groups[od.Group], od.Row, od.Col, od.Value); err != nil {
				return nil, fmt.Errorf("project %s: sheet %s: %w", path, s.ID, err)
			}
		}
		p.Sheets = append(p.Sheets, s)
	}

	if id := doc.Structure.ReferenceSheet; id != "" {
		if p.Sheet(id) == nil {
			return nil, fmt.Errorf("project %s: reference %w: %s", path, ErrUnknownSheet, id)
		}
		p.referenceSheet = id
	}
	return p, nil
}

func (gd groupDoc) build() (*structure.QuestionGroup, error) {
	g := structure.NewQuestionGroup(gd.LeftX, gd.TopY, gd.RightX, gd.BottomY)
	g.SetOrientation(gd.Type)
	// Zero values keep the defaults; check-letter groups have a fixed size.
	if gd.Type != structure.CheckLetter {
		if gd.Rows > 0 {
			g.SetRowCount(gd.Rows)
		}
		if gd.Columns > 0 {
			g.SetColumnCount(gd.Columns)
		}
	}
	if gd.BubbleWidth > 0 {
		g.SetBubbleWidth(gd.BubbleWidth)
	}
	if gd.BubbleHeight > 0 {
		g.SetBubbleHeight(gd.BubbleHeight)
	}
	g.SetIndexOffset(gd.IndexOffset)
	for q, choices := range gd.Key {
		if err := g.SetCorrectChoices(q, choices); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// relativePath returns target relative to dir when it lies inside dir.
func relativePath(dir, target string) string {
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return target
	}
	return filepath.ToSlash(rel)
}
