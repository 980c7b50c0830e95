package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/omr-tools/internal/imaging"
	"github.com/ironsheep/omr-tools/internal/sheet"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// ErrNoAnswers is returned when feedback is requested for a sheet that has
// not been classified.
var ErrNoAnswers = errors.New("sheet has no answers")

// Palette holds the overlay colours as hex strings such as "#0000ff".
type Palette struct {
	MarkerFound   string `yaml:"marker_found" json:"marker_found"`
	MarkerMissing string `yaml:"marker_missing" json:"marker_missing"`
	Filled        string `yaml:"filled" json:"filled"`
	Empty         string `yaml:"empty" json:"empty"`
	Uncertain     string `yaml:"uncertain" json:"uncertain"`
}

// DefaultPalette marks located markers and filled bubbles blue, missing
// markers and uncertain bubbles red, and empty bubbles grey.
func DefaultPalette() Palette {
	return Palette{
		MarkerFound:   "#0000ff",
		MarkerMissing: "#ff0000",
		Filled:        "#0000ff",
		Empty:         "#808080",
		Uncertain:     "#ff0000",
	}
}

type colors struct {
	markerFound, markerMissing, filled, empty, uncertain color.Color
}

func (p Palette) parse() (colors, error) {
	var c colors
	for _, e := range []struct {
		hex string
		dst *color.Color
	}{
		{p.MarkerFound, &c.markerFound},
		{p.MarkerMissing, &c.markerMissing},
		{p.Filled, &c.filled},
		{p.Empty, &c.empty},
		{p.Uncertain, &c.uncertain},
	} {
		col, err := colorful.Hex(e.hex)
		if err != nil {
			return c, fmt.Errorf("palette colour %q: %w", e.hex, err)
		}
		r, g, b := col.RGB255()
		*e.dst = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return c, nil
}

// FeedbackOptions tunes FeedbackJPEG.
type FeedbackOptions struct {
	Palette Palette
	// Zoom rescales the annotated page. Zero keeps the original size.
	Zoom float64
	// Quality is the JPEG quality, 1 to 100. Zero selects 85.
	Quality int
	// Caption, when set, is printed in the top-left corner.
	Caption string
}

// FeedbackJPEG renders the aligned page of s with its markers and bubble
// classifications drawn on top and encodes it as JPEG.
//
// Markers are outlined at their nominal position, in one colour when they
// were located and another when they were not. Filled bubbles are boxed,
// empty bubbles get corner ticks and uncertain bubbles a double box and a
// question mark.
func FeedbackJPEG(w io.Writer, page *imaging.PixelBuffer, s *sheet.Sheet, st *structure.Structure, opts FeedbackOptions) error {
	if !s.HasAnswers() {
		return fmt.Errorf("feedback for %s: %w", s.ID, ErrNoAnswers)
	}
	if opts.Palette == (Palette{}) {
		opts.Palette = DefaultPalette()
	}
	pal, err := opts.Palette.parse()
	if err != nil {
		return err
	}

	img := s.Aligned(page).RGBA()

	for _, m := range st.RegistrationMarkers() {
		c := pal.markerMissing
		if _, ok := s.MarkerLocation(m); ok {
			c = pal.markerFound
		}
		r := image.Rect(0, 0, m.ImageWidth(), m.ImageHeight()).
			Add(m.Point()).
			Sub(image.Pt(m.ImageWidth()/2, m.ImageHeight()/2))
		imaging.DrawRect(img, r, c, 1)
	}

	for _, g := range st.QuestionGroups() {
		for row := 0; row < g.RowCount(); row++ {
			for col := 0; col < g.ColumnCount(); col++ {
				r := sheet.BubbleRect(g, row, col)
				switch s.Answer(g, row, col) {
				case sheet.Filled:
					imaging.DrawRect(img, r, pal.filled, 1)
				case sheet.Empty:
					imaging.DrawCorners(img, r, pal.empty, 4)
				default:
					imaging.DrawRect(img, r, pal.uncertain, 1)
					imaging.DrawRect(img, r.Inset(-2), pal.uncertain, 1)
					imaging.DrawLabel(img, r.Max.X+5, r.Min.Y, 2, "?", pal.uncertain, nil)
				}
			}
		}
	}

	if opts.Caption != "" {
		drawCaption(img, opts.Caption)
	}

	out := imaging.FromImage(img)
	if opts.Zoom > 0 {
		out = imaging.Zoom(out, opts.Zoom)
	}
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	if err := jpeg.Encode(w, out, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode feedback for %s: %w", s.ID, err)
	}
	return nil
}

// drawCaption prints text on a white box in the top-left corner.
func drawCaption(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.Black, Face: face}
	width := d.MeasureString(text).Ceil()
	box := image.Rect(0, 0, width+8, face.Height+6)
	draw.Draw(img, box, image.White, image.Point{}, draw.Src)
	d.Dot = fixed.P(4, 3+face.Ascent)
	d.DrawString(text)
}
