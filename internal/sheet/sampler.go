package sheet

import (
	"image"

	"github.com/ironsheep/omr-tools/internal/histogram"
	"github.com/ironsheep/omr-tools/internal/imaging"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// ExampleSize is the longer side, in pixels, of histogram example thumbnails.
const ExampleSize = 24

// BubbleRect returns the nominal sample rectangle of bubble (row, col) of g,
// clipped to the top-left page edge but not yet to the bottom-right.
func BubbleRect(g *structure.QuestionGroup, row, col int) image.Rectangle {
	bw, bh := g.BubbleWidth(), g.BubbleHeight()
	colSpacing, rowSpacing := spacing(g)
	left := max(int(float64(g.LeftX()-bw/2)+float64(col)*colSpacing), 0)
	top := max(int(float64(g.TopY()-bh/2)+float64(row)*rowSpacing), 0)
	return image.Rect(left, top, left+bw, top+bh)
}

func spacing(g *structure.QuestionGroup) (col, row float64) {
	if n := g.ColumnCount(); n > 1 {
		col = float64(g.Width()) / float64(n-1)
	}
	if n := g.RowCount(); n > 1 {
		row = float64(g.Height()) / float64(n-1)
	}
	return col, row
}

// SampleGroup measures the brightness of every bubble of g on the aligned
// page and returns it as a [row][col] grid.
//
// Each value is the channel sum over the bubble rectangle, clipped to the
// page, divided by the nominal bubble area times three. Every value is
// added to local and, when non-nil, global. The first bubble to land in an
// empty bucket of a global histogram that keeps examples becomes that
// bucket's thumbnail.
func SampleGroup(aligned *imaging.PixelBuffer, g *structure.QuestionGroup, local, global *histogram.Histogram) [][]int {
	rows, cols := g.RowCount(), g.ColumnCount()
	bw, bh := g.BubbleWidth(), g.BubbleHeight()
	area := float64(bw * bh * 3)

	longest := max(bw, bh)
	exampleW := max(bw*ExampleSize/longest, 1)
	exampleH := max(bh*ExampleSize/longest, 1)

	grid := make([][]int, rows)
	for row := 0; row < rows; row++ {
		grid[row] = make([]int, cols)
		for col := 0; col < cols; col++ {
			r := BubbleRect(g, row, col).Intersect(aligned.Bounds())
			brightness := int(float64(imaging.ChannelSum(aligned, r)) / area)
			brightness = min(max(brightness, 0), histogram.Buckets-1)
			grid[row][col] = brightness

			if local != nil {
				local.Increase(brightness)
			}
			if global != nil {
				global.Increase(brightness)
				if global.KeepsExamples() && global.Example(brightness) == nil {
					global.SetExample(brightness, imaging.Thumbnail(aligned, r, exampleW, exampleH))
				}
			}
		}
	}
	return grid
}
