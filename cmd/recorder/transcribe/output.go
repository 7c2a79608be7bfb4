package transcribe

import (
	"fmt"
	"math"
	"strings"
)

// vttTS converts ts milliseconds in the 00:00:00.000 format.
func vttTS(ts int64, withMs bool) string {
	sMs := int64(1000)
	mMs := 60 * sMs
	hMs := 60 * mMs

	h := ts / hMs
	m := (ts - (h * hMs)) / mMs

	if withMs {
		s := ((ts - (h * hMs)) - m*mMs) / sMs
		ms := ((ts - (h * hMs)) - m*mMs) - s*sMs
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
	}

	s := int64(math.Round(float64(((ts-(h*hMs))-m*mMs)) / float64(sMs)))
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func secTS(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}

func (s *Segment) sanitize(escapers ...func(string) string) {
	s.Text = strings.Join(strings.Fields(s.Text), " ")
	s.Label = strings.TrimSpace(s.Label)
	for _, escape := range escapers {
		s.Text = escape(s.Text)
		s.Label = escape(s.Label)
	}
}
