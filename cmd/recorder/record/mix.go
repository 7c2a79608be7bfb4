package record

import (
	"fmt"

	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

// mixHeadroom scales each track before summing so two simultaneously loud
// tracks don't spend the whole mix clipped.
const mixHeadroom = 0.7

// MixTracks sums two canonical WAV files into a third with fixed headroom
// gain, hard-clipped to the int16 range. The mix is additive, not loudness
// normalized; tracks of different lengths are padded with silence.
func MixTracks(micPath, sysPath, outPath string) error {
	mic, err := wav.ReadFile(micPath)
	if err != nil {
		return fmt.Errorf("failed to read mic track: %w", err)
	}

	system, err := wav.ReadFile(sysPath)
	if err != nil {
		return fmt.Errorf("failed to read system track: %w", err)
	}

	mixed := make([]int16, max(len(mic), len(system)))
	for i := range mixed {
		var m, s float32
		if i < len(mic) {
			m = float32(mic[i])
		}
		if i < len(system) {
			s = float32(system[i])
		}
		mixed[i] = wav.ClipInt16(mixHeadroom*m + mixHeadroom*s)
	}

	if err := wav.WriteFile(outPath, mixed); err != nil {
		return fmt.Errorf("failed to write mixed track: %w", err)
	}

	return nil
}
