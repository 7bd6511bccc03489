package render

// Compose erases content wherever the mask is opaque (Porter-Duff
// destination-out). It runs once per animation frame, after the content
// layers are drawn and after the mask for the current viewport has been
// rasterized. Inert canvases and dimension mismatches are silently
// skipped; they occur transiently during viewport transitions.
func Compose(content, mask *Canvas) {
	if !content.OK() || !mask.OK() {
		return
	}
	cw, ch := content.Size()
	mw, mh := mask.Size()
	if cw != mw || ch != mh {
		return
	}

	cp := content.Pix()
	mp := mask.Pix()
	for i := 3; i < len(cp); i += 4 {
		ma := uint32(mp[i])
		if ma == 0 {
			continue
		}
		cp[i] = uint8(uint32(cp[i]) * (255 - ma) / 255)
	}
}

// Over alpha-blends src onto dst (straight alpha, source over) so the
// heatmap and particle layers can be merged before masking. Like Compose
// it silently skips canvases that are inert or mismatched.
func Over(dst, src *Canvas) {
	if !dst.OK() || !src.OK() {
		return
	}
	dw, dh := dst.Size()
	sw, sh := src.Size()
	if dw != sw || dh != sh {
		return
	}

	dp := dst.Pix()
	sp := src.Pix()
	for i := 0; i < len(dp); i += 4 {
		sa := uint32(sp[i+3])
		if sa == 0 {
			continue
		}
		da := uint32(dp[i+3])
		outA := sa + da*(255-sa)/255
		if outA == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			sc := uint32(sp[i+c])
			dc := uint32(dp[i+c])
			dp[i+c] = uint8((sc*sa + dc*da*(255-sa)/255) / outA)
		}
		dp[i+3] = uint8(outA)
	}
}
