package imaging

// AbsDiff returns the sum of absolute per-channel differences between tmpl
// and the window of page whose top-left corner is (ox, oy).
//
// The caller must ensure the window lies entirely inside page.
func AbsDiff(page, tmpl *PixelBuffer, ox, oy int) int64 {
	var total int64
	for ty := 0; ty < tmpl.Height; ty++ {
		pi := page.PixOffset(ox, oy+ty)
		ti := tmpl.PixOffset(0, ty)
		for tx := 0; tx < tmpl.Width*3; tx++ {
			total += int64(absDiff(page.Pix[pi+tx], tmpl.Pix[ti+tx]))
		}
	}
	return total
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
