package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeter(t *testing.T) {
	t.Run("initial levels at floor", func(t *testing.T) {
		m := NewMeter()
		avg, peak := m.Levels()
		require.Equal(t, MeterFloor, avg)
		require.Equal(t, MeterFloor, peak)
	})

	t.Run("empty buffer is a no-op", func(t *testing.T) {
		m := NewMeter()
		m.Process(nil)
		avg, peak := m.Levels()
		require.Equal(t, MeterFloor, avg)
		require.Equal(t, MeterFloor, peak)
	})

	t.Run("full scale", func(t *testing.T) {
		m := NewMeter()
		m.Process([]float32{1, -1, 1, -1})
		avg, peak := m.Levels()
		require.InDelta(t, 0, avg, 0.001)
		require.InDelta(t, 0, peak, 0.001)
	})

	t.Run("half scale peak", func(t *testing.T) {
		m := NewMeter()
		m.Process([]float32{0.5, -0.5})
		_, peak := m.Levels()
		require.InDelta(t, 20*math.Log10(0.5), peak, 0.001)
	})

	t.Run("silence clamps to floor of conversion", func(t *testing.T) {
		m := NewMeter()
		m.Process(make([]float32, 128))
		avg, peak := m.Levels()
		require.Equal(t, 20*math.Log10(1e-6), avg)
		require.Equal(t, 20*math.Log10(1e-6), peak)
	})

	t.Run("reset", func(t *testing.T) {
		m := NewMeter()
		m.Process([]float32{1, -1})
		m.Reset()
		avg, peak := m.Levels()
		require.Equal(t, MeterFloor, avg)
		require.Equal(t, MeterFloor, peak)
	})
}
