package audio

import (
	"math"
	"sync"
)

// MeterFloor is the level reported when no signal has been measured.
const MeterFloor = -160.0

// Meter tracks average (RMS) and peak power of an audio stream in dBFS.
// It's updated synchronously from capture callbacks so the math is kept
// allocation free and the lock only guards the two level values.
type Meter struct {
	mut  sync.Mutex
	avg  float64
	peak float64
}

func NewMeter() *Meter {
	return &Meter{
		avg:  MeterFloor,
		peak: MeterFloor,
	}
}

// Process updates the levels from a raw (pre-downmix) sample buffer.
func (m *Meter) Process(samples []float32) {
	if len(samples) == 0 {
		return
	}

	var sum float64
	var peak float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	rms := math.Sqrt(sum / float64(len(samples)))

	avgDB := toDB(rms)
	peakDB := toDB(peak)

	m.mut.Lock()
	m.avg = avgDB
	m.peak = peakDB
	m.mut.Unlock()
}

// Levels returns the average and peak power in dBFS.
func (m *Meter) Levels() (avg, peak float64) {
	m.mut.Lock()
	defer m.mut.Unlock()
	return m.avg, m.peak
}

// Reset restores the levels to the floor.
func (m *Meter) Reset() {
	m.mut.Lock()
	m.avg = MeterFloor
	m.peak = MeterFloor
	m.mut.Unlock()
}

func toDB(v float64) float64 {
	return 20 * math.Log10(math.Max(v, 1e-6))
}
