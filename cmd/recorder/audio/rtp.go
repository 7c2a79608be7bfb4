package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/pion/rtp"

	"github.com/soundbench/meeting-recorder/cmd/recorder/opus"
)

const (
	rtpReadBufSize = 1500
	// 20ms of audio at 16KHz.
	rtpFrameSize = 320
)

// RTPSource is a capture backend fed by Opus RTP packets over UDP, for
// deployments where the "system" track comes from a call bridge instead of
// an OS loopback device. Frames are decoded to 16KHz mono float32 and
// delivered like any device backend.
type RTPSource struct {
	addr string
}

func NewRTPSource(addr string) *RTPSource {
	return &RTPSource{
		addr: addr,
	}
}

func (s *RTPSource) Open(_ DeviceType, _ StreamConfig, cb DataFunc) (Stream, error) {
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStreamCreation, err.Error())
	}

	dec, err := opus.NewDecoder(16000, 1)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrStreamCreation, err.Error())
	}

	st := &rtpStream{
		conn: conn,
	}
	st.wg.Add(1)
	go st.readLoop(dec, cb)

	return st, nil
}

func (s *RTPSource) Close() error {
	return nil
}

type rtpStream struct {
	conn    net.PacketConn
	wg      sync.WaitGroup
	stopped bool
	mut     sync.Mutex
}

func (s *rtpStream) readLoop(dec *opus.Decoder, cb DataFunc) {
	defer func() {
		if err := dec.Destroy(); err != nil {
			slog.Error("failed to destroy decoder", slog.String("err", err.Error()))
		}
		s.wg.Done()
	}()

	buf := make([]byte, rtpReadBufSize)
	pcm := make([]float32, rtpFrameSize)
	var pkt rtp.Packet
	for {
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Error("failed to read packet", slog.String("err", err.Error()))
			}
			return
		}

		if err := pkt.Unmarshal(buf[:n]); err != nil {
			slog.Error("failed to unmarshal packet", slog.String("err", err.Error()))
			continue
		}

		if len(pkt.Payload) == 0 {
			continue
		}

		ns, err := dec.Decode(pkt.Payload, pcm)
		if err != nil {
			slog.Error("failed to decode packet", slog.String("err", err.Error()))
			continue
		}

		cb(pcm[:ns])
	}
}

func (s *rtpStream) SampleRate() int {
	return 16000
}

func (s *rtpStream) Channels() int {
	return 1
}

func (s *rtpStream) Stop() error {
	s.mut.Lock()
	if s.stopped {
		s.mut.Unlock()
		return fmt.Errorf("stream is not initialized")
	}
	s.stopped = true
	s.mut.Unlock()

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close conn: %w", err)
	}
	s.wg.Wait()

	return nil
}
