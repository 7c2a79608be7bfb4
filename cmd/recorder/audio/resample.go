package audio

// Resampler converts a sample stream between rates using linear
// interpolation. It carries a fractional read cursor and the unconsumed
// tail across calls so chunk boundaries don't produce discontinuities.
type Resampler struct {
	srcRate int
	dstRate int
	step    float64
	pos     float64
	carry   []float32
}

func NewResampler(srcRate, dstRate int) *Resampler {
	return &Resampler{
		srcRate: srcRate,
		dstRate: dstRate,
		step:    float64(srcRate) / float64(dstRate),
	}
}

// Resample converts in to the destination rate. The returned slice is only
// valid until the next call when rates match (passthrough).
func (r *Resampler) Resample(in []float32) []float32 {
	if r.srcRate == r.dstRate {
		return in
	}

	buf := in
	if len(r.carry) > 0 {
		buf = make([]float32, 0, len(r.carry)+len(in))
		buf = append(buf, r.carry...)
		buf = append(buf, in...)
	}

	out := make([]float32, 0, int(float64(len(buf))/r.step)+1)
	pos := r.pos
	for int(pos)+1 < len(buf) {
		i := int(pos)
		frac := float32(pos - float64(i))
		out = append(out, buf[i]+(buf[i+1]-buf[i])*frac)
		pos += r.step
	}

	// Keep the tail the cursor hasn't fully passed.
	keep := int(pos)
	if keep > len(buf) {
		keep = len(buf)
	}
	r.carry = append(r.carry[:0:0], buf[keep:]...)
	r.pos = pos - float64(keep)

	return out
}

// Downmix averages interleaved multichannel frames into mono, appending to
// dst to allow buffer reuse on the capture path.
func Downmix(dst, in []float32, channels int) []float32 {
	if channels <= 1 {
		return append(dst, in...)
	}

	frames := len(in) / channels
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += in[i*channels+ch]
		}
		dst = append(dst, sum/float32(channels))
	}

	return dst
}
