// Package caption implements low latency live captioning: a continuous
// 16KHz sample stream gets transcribed in overlapping chunks as the
// recording happens.
package caption

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/streamer45/silero-vad-go/speech"
)

const (
	// SampleRate is the expected rate of the incoming stream.
	SampleRate = 16000

	// A transcription pass triggers once this much audio is buffered.
	chunkSamples = 4 * SampleRate
	// The trailing part of a consumed chunk kept as context for the next
	// one, to reduce word splitting at chunk boundaries.
	overlapSamples = SampleRate / 2
	// Stop flushes a final chunk only if at least this much is left.
	minFinalSamples = SampleRate
)

// TranscribeFunc converts 16KHz mono samples into text.
type TranscribeFunc func(samples []float32) (string, error)

// Chunk is one transcribed span of the live stream.
type Chunk struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Index    int     `json:"index"`
}

// Service buffers live samples and runs at most one transcription pass at
// a time. Samples arriving while a pass is in flight are buffered, never
// dropped: the next pass simply covers a longer window.
type Service struct {
	mut        sync.Mutex
	transcribe TranscribeFunc
	onChunk    func(Chunk)
	detector   *speech.Detector

	running  bool
	inFlight bool
	buf      []float32
	cursor   int
	index    int
	chunks   []Chunk
	wg       sync.WaitGroup
}

func NewService(transcribe TranscribeFunc, onChunk func(Chunk)) (*Service, error) {
	if transcribe == nil {
		return nil, fmt.Errorf("transcribe function is required")
	}

	return &Service{
		transcribe: transcribe,
		onChunk:    onChunk,
	}, nil
}

// SetDetector installs an optional VAD gate: all-silence windows get
// consumed without a transcription call. Must be set before Start.
func (s *Service) SetDetector(sd *speech.Detector) {
	s.mut.Lock()
	s.detector = sd
	s.mut.Unlock()
}

func (s *Service) Start() error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.running {
		return fmt.Errorf("already running")
	}
	s.running = true

	return nil
}

// FeedSamples appends live samples to the buffer, triggering a
// transcription pass when a full chunk is buffered and no pass is already
// in flight.
func (s *Service) FeedSamples(samples []float32) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if !s.running {
		return
	}

	s.buf = append(s.buf, samples...)

	if len(s.buf) >= chunkSamples && !s.inFlight {
		s.startPass()
	}
}

// startPass snapshots the whole buffer and transcribes it off the caller's
// goroutine. Callers must hold the lock.
func (s *Service) startPass() {
	s.inFlight = true
	window := append([]float32(nil), s.buf...)
	start := s.cursor

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runPass(window, start)

		s.mut.Lock()
		s.inFlight = false
		s.mut.Unlock()
	}()
}

func (s *Service) runPass(window []float32, start int) {
	defer s.consume(len(window))

	if s.detector != nil && s.isSilence(window) {
		slog.Debug("silent window, skipping transcription",
			slog.Int("start", start), slog.Int("len", len(window)))
		return
	}

	text, err := s.transcribe(window)
	if err != nil {
		// Live captioning favors availability over completeness: the
		// chunk is dropped, not retried.
		slog.Error("transcription pass failed, dropping chunk",
			slog.String("err", err.Error()), slog.Int("start", start))
		return
	}

	text = PostProcess(text)
	if text == "" {
		return
	}

	chunk := Chunk{
		ID:       uuid.NewString(),
		Text:     text,
		StartSec: float64(start) / SampleRate,
		EndSec:   float64(start+len(window)) / SampleRate,
	}

	s.mut.Lock()
	chunk.Index = s.index
	s.index++
	s.chunks = append(s.chunks, chunk)
	onChunk := s.onChunk
	s.mut.Unlock()

	if onChunk != nil {
		onChunk(chunk)
	}
}

// consume drops the transcribed window from the buffer, retaining the
// trailing overlap as context for the next pass.
func (s *Service) consume(n int) {
	s.mut.Lock()
	defer s.mut.Unlock()

	drop := n - overlapSamples
	if drop < 0 {
		drop = 0
	}
	if drop > len(s.buf) {
		drop = len(s.buf)
	}

	s.buf = append([]float32(nil), s.buf[drop:]...)
	s.cursor += drop
}

func (s *Service) isSilence(window []float32) bool {
	if err := s.detector.Reset(); err != nil {
		slog.Error("failed to reset detector", slog.String("err", err.Error()))
		return false
	}

	segments, err := s.detector.Detect(window)
	if err != nil {
		slog.Error("vad failed", slog.String("err", err.Error()))
		return false
	}

	return len(segments) == 0
}

// Stop waits for any in-flight pass, flushes a final chunk if enough audio
// remains, and clears the callbacks. The service cannot be restarted.
func (s *Service) Stop() {
	s.mut.Lock()
	if !s.running {
		s.mut.Unlock()
		return
	}
	s.running = false
	s.mut.Unlock()

	s.wg.Wait()

	s.mut.Lock()
	var window []float32
	start := s.cursor
	if len(s.buf) >= minFinalSamples {
		window = append([]float32(nil), s.buf...)
	}
	s.mut.Unlock()

	if window != nil {
		s.runPass(window, start)
	}

	s.mut.Lock()
	s.onChunk = nil
	s.mut.Unlock()
}

// Chunks returns a copy of the session's transcribed chunks so far.
func (s *Service) Chunks() []Chunk {
	s.mut.Lock()
	defer s.mut.Unlock()
	return append([]Chunk(nil), s.chunks...)
}

// Reset clears the buffer, the cursor and the chunk log.
func (s *Service) Reset() {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.buf = nil
	s.cursor = 0
	s.index = 0
	s.chunks = nil
}
