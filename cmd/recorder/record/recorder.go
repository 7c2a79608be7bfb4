// Package record coordinates simultaneous microphone and system audio
// capture into per-session track files, with live normalized meters and a
// fixed-gain mixed track produced on stop.
package record

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soundbench/meeting-recorder/cmd/recorder/audio"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

const (
	micTrackName    = "mic.wav"
	systemTrackName = "system.wav"
	mixedTrackName  = "mixed.wav"

	// ~60Hz meter polling.
	meterInterval = 16 * time.Millisecond
)

// Session describes one finished recording.
type Session struct {
	ID         string
	Dir        string
	MicPath    string
	SystemPath string
	// MixedPath is empty when mixing failed; consumers fall back to the
	// mic track.
	MixedPath string
	StartedAt time.Time
	Duration  time.Duration
}

type session struct {
	id        string
	dir       string
	startedAt time.Time
}

// Recorder owns the capture lifecycle: idle, recording, then stopped or
// cancelled per session.
type Recorder struct {
	dataDir string
	mic     *audio.MicCapture
	system  *audio.SystemCapture

	mut        sync.Mutex
	cur        *session
	stopMeters chan struct{}
	metersWg   sync.WaitGroup

	// levelsMut guards only the published meter values. The poller never
	// takes the lifecycle lock, so stopping can wait on it safely.
	levelsMut sync.Mutex
	micLevel  float64
	sysLevel  float64
}

func NewRecorder(dataDir string, mic *audio.MicCapture, system *audio.SystemCapture) (*Recorder, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("dataDir is required")
	}
	if mic == nil || system == nil {
		return nil, fmt.Errorf("captures are required")
	}

	return &Recorder{
		dataDir: dataDir,
		mic:     mic,
		system:  system,
	}, nil
}

// StartRecording creates a per-session directory and starts the mic
// capture first, then the system capture. A partial failure stops
// whatever was started and removes the directory: no orphaned half
// running captures.
func (r *Recorder) StartRecording() (string, error) {
	r.mut.Lock()
	defer r.mut.Unlock()

	if r.cur != nil {
		return "", ErrAlreadyRecording
	}

	id := uuid.NewString()
	dir := filepath.Join(r.dataDir, id)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create session dir: %w", err)
	}

	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Error("failed to remove session dir", slog.String("err", err.Error()))
		}
	}

	if err := r.mic.StartCapture(filepath.Join(dir, micTrackName)); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to start mic capture: %w", err)
	}

	if err := r.system.StartCapture(filepath.Join(dir, systemTrackName)); err != nil {
		if _, sErr := r.mic.StopCapture(); sErr != nil {
			slog.Error("failed to stop mic capture", slog.String("err", sErr.Error()))
		}
		cleanup()
		return "", fmt.Errorf("failed to start system capture: %w", err)
	}

	r.cur = &session{
		id:        id,
		dir:       dir,
		startedAt: time.Now(),
	}

	r.stopMeters = make(chan struct{})
	r.metersWg.Add(1)
	go r.pollMeters(r.stopMeters)

	slog.Info("recording started", slog.String("sessionID", id), slog.String("dir", dir))

	return id, nil
}

func (r *Recorder) pollMeters(doneCh chan struct{}) {
	defer r.metersWg.Done()

	ticker := time.NewTicker(meterInterval)
	defer ticker.Stop()

	for {
		select {
		case <-doneCh:
			return
		case <-ticker.C:
			micAvg, _ := r.mic.Levels()
			sysAvg, _ := r.system.Levels()

			r.levelsMut.Lock()
			r.micLevel = NormalizeLevel(micAvg)
			r.sysLevel = NormalizeLevel(sysAvg)
			r.levelsMut.Unlock()
		}
	}
}

// Levels returns the latest normalized [0, 1] mic and system levels.
func (r *Recorder) Levels() (mic, system float64) {
	r.levelsMut.Lock()
	defer r.levelsMut.Unlock()
	return r.micLevel, r.sysLevel
}

// Duration returns how long the active session has been recording.
func (r *Recorder) Duration() time.Duration {
	r.mut.Lock()
	defer r.mut.Unlock()
	if r.cur == nil {
		return 0
	}
	return time.Since(r.cur.startedAt)
}

// StopRecording stops both captures and mixes the tracks. Mixing failure
// is non-fatal: the session is returned with an empty MixedPath.
func (r *Recorder) StopRecording() (*Session, error) {
	r.mut.Lock()
	defer r.mut.Unlock()

	cur, err := r.stopLocked()
	if err != nil {
		return nil, err
	}

	out := &Session{
		ID:         cur.id,
		Dir:        cur.dir,
		MicPath:    filepath.Join(cur.dir, micTrackName),
		SystemPath: filepath.Join(cur.dir, systemTrackName),
		StartedAt:  cur.startedAt,
		Duration:   time.Since(cur.startedAt),
	}

	mixedPath := filepath.Join(cur.dir, mixedTrackName)
	if err := MixTracks(out.MicPath, out.SystemPath, mixedPath); err != nil {
		slog.Error("failed to mix tracks, falling back to mic only",
			slog.String("err", err.Error()), slog.String("sessionID", cur.id))
	} else {
		out.MixedPath = mixedPath
	}

	slog.Info("recording stopped", slog.String("sessionID", cur.id),
		slog.Duration("duration", out.Duration))

	return out, nil
}

// CancelRecording stops both captures without mixing and deletes the
// whole session directory. This is the only destructive path; cleanup
// failures are logged, not surfaced.
func (r *Recorder) CancelRecording() error {
	r.mut.Lock()
	defer r.mut.Unlock()

	cur, err := r.stopLocked()
	if err != nil {
		return err
	}

	if err := os.RemoveAll(cur.dir); err != nil {
		slog.Error("failed to remove session dir", slog.String("err", err.Error()))
	}

	slog.Info("recording cancelled", slog.String("sessionID", cur.id))

	return nil
}

func (r *Recorder) stopLocked() (*session, error) {
	if r.cur == nil {
		return nil, ErrNotRecording
	}

	close(r.stopMeters)
	r.metersWg.Wait()

	r.levelsMut.Lock()
	r.micLevel = 0
	r.sysLevel = 0
	r.levelsMut.Unlock()

	if _, err := r.mic.StopCapture(); err != nil {
		slog.Error("failed to stop mic capture", slog.String("err", err.Error()))
	}
	if _, err := r.system.StopCapture(); err != nil {
		slog.Error("failed to stop system capture", slog.String("err", err.Error()))
	}

	cur := r.cur
	r.cur = nil

	return cur, nil
}
