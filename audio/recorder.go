package audio

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

// Recorder appends the remote Opus stream to an OGG file as it plays.
// Timestamp gaps from discarded packets are padded with silent frames so
// the recording stays aligned with wall time.
type Recorder struct {
	mu       sync.Mutex
	writer   *oggwriter.OggWriter
	lastTime uint32
	closed   bool
	log      *log.Logger
}

func NewRecorder(path string, logger *log.Logger) (*Recorder, error) {
	w, err := oggwriter.New(path, SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("create OGG writer: %w", err)
	}
	return &Recorder{writer: w, log: logger}, nil
}

func (r *Recorder) WriteRTP(pkt *rtp.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	if r.lastTime != 0 {
		gap := pkt.Timestamp - r.lastTime
		if gap > FrameSamples {
			if err := r.insertSilence(gap); err != nil {
				return err
			}
		}
	}

	if err := r.writer.WriteRTP(pkt); err != nil {
		return fmt.Errorf("write Opus packet: %w", err)
	}
	r.lastTime = pkt.Timestamp
	return nil
}

func (r *Recorder) insertSilence(gap uint32) error {
	count := gap / FrameSamples
	r.log.Debug("Inserting silent packets", "count", count, "gap", gap)
	for j := uint32(0); j < count; j++ {
		silentPacket := []byte{0xf8, 0xff, 0xfe}
		if err := r.writer.WriteRTP(&rtp.Packet{
			Header: rtp.Header{
				Timestamp: r.lastTime + j*FrameSamples,
			},
			Payload: silentPacket,
		}); err != nil {
			return fmt.Errorf("write silent Opus packet: %w", err)
		}
	}
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.writer.Close()
}
