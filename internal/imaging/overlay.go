package imaging

import (
	"image"
	"image/color"
)

// 3x5 pixel font for the characters used in feedback overlays.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
	'.': {"000", "000", "000", "000", "010"},
	'-': {"000", "000", "111", "000", "000"},
	'/': {"001", "001", "010", "100", "100"},
	'?': {"111", "001", "011", "000", "010"},
}

// DrawRect outlines r on img with the given stroke thickness, clipped to the
// image bounds.
func DrawRect(img *image.RGBA, r image.Rectangle, c color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	for i := 0; i < thickness; i++ {
		for x := r.Min.X - i; x < r.Max.X+i; x++ {
			setClipped(img, x, r.Min.Y-i-1, c)
			setClipped(img, x, r.Max.Y+i, c)
		}
		for y := r.Min.Y - i - 1; y <= r.Max.Y+i; y++ {
			setClipped(img, r.Min.X-i-1, y, c)
			setClipped(img, r.Max.X+i, y, c)
		}
	}
}

// DrawCorners marks the four corners of r on img with ticks of the given
// length along each edge.
func DrawCorners(img *image.RGBA, r image.Rectangle, c color.Color, length int) {
	length = min(length, r.Dx(), r.Dy())
	for i := 0; i <= length; i++ {
		setClipped(img, r.Min.X+i, r.Min.Y, c)
		setClipped(img, r.Max.X-i, r.Min.Y, c)
		setClipped(img, r.Min.X+i, r.Max.Y, c)
		setClipped(img, r.Max.X-i, r.Max.Y, c)
		setClipped(img, r.Min.X, r.Min.Y+i, c)
		setClipped(img, r.Max.X, r.Min.Y+i, c)
		setClipped(img, r.Min.X, r.Max.Y-i, c)
		setClipped(img, r.Max.X, r.Max.Y-i, c)
	}
}

// LabelSize returns the pixel size DrawLabel uses for text at scale.
func LabelSize(text string, scale int) (int, int) {
	if scale < 1 {
		scale = 1
	}
	return len([]rune(text)) * 4 * scale, 7 * scale
}

// DrawLabel renders text with its top-left corner at (x, y). Each font pixel
// becomes a scale x scale block. Characters without a glyph leave a gap.
func DrawLabel(img *image.RGBA, x, y, scale int, text string, fg, bg color.Color) {
	if scale < 1 {
		scale = 1
	}
	labelWidth, labelHeight := LabelSize(text, scale)

	if bg != nil {
		for dy := -scale; dy < labelHeight; dy++ {
			for dx := -scale; dx < labelWidth; dx++ {
				setClipped(img, x+dx, y+dy, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += 4 * scale
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				for sy := 0; sy < scale; sy++ {
					for sx := 0; sx < scale; sx++ {
						setClipped(img, cx+col*scale+sx, y+row*scale+sy, fg)
					}
				}
			}
		}
		cx += 4 * scale
	}
}

func setClipped(img *image.RGBA, x, y int, c color.Color) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}
