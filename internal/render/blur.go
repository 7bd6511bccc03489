package render

// blurAlpha softens the alpha channel of an RGBA buffer with a two-pass
// box blur. Only alpha is touched; the mask's color channels are
// irrelevant to destination-out compositing.
func blurAlpha(pix []uint8, w, h int, radius float64) {
	r := int(radius + 0.5)
	if r < 1 || w < 1 || h < 1 {
		return
	}

	tmp := make([]uint16, w*h)

	// Horizontal pass: sliding window sum per row, normalized by the
	// in-bounds sample count so border pixels are not darkened by the
	// clipped window.
	for y := 0; y < h; y++ {
		row := y * w
		sum := 0
		for x := -r; x <= r; x++ {
			sum += int(alphaAt(pix, w, h, x, y))
		}
		for x := 0; x < w; x++ {
			tmp[row+x] = uint16(sum / windowSize(x, r, w))
			sum += int(alphaAt(pix, w, h, x+r+1, y))
			sum -= int(alphaAt(pix, w, h, x-r, y))
		}
	}

	// Vertical pass back into the buffer.
	for x := 0; x < w; x++ {
		sum := 0
		for y := -r; y <= r; y++ {
			sum += int(tmpAt(tmp, w, h, x, y))
		}
		for y := 0; y < h; y++ {
			pix[(y*w+x)*4+3] = uint8(sum / windowSize(y, r, h))
			sum += int(tmpAt(tmp, w, h, x, y+r+1))
			sum -= int(tmpAt(tmp, w, h, x, y-r))
		}
	}
}

// windowSize is the number of in-bounds samples in a radius-r window
// centered at i on an axis of length n.
func windowSize(i, r, n int) int {
	lo, hi := i-r, i+r
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return hi - lo + 1
}

func alphaAt(pix []uint8, w, h, x, y int) uint8 {
	if x < 0 || x >= w || y < 0 || y >= h {
		return 0
	}
	return pix[(y*w+x)*4+3]
}

func tmpAt(tmp []uint16, w, h, x, y int) uint16 {
	if x < 0 || x >= w || y < 0 || y >= h {
		return 0
	}
	return tmp[y*w+x]
}
