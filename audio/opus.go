package audio

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

const (
	// Frame geometry for the uplink. 20ms at 48kHz mono.
	SampleRate      = 48000
	Channels        = 1
	FrameSamples    = SampleRate / 50
	FrameBytes      = FrameSamples * Channels * 2
	maxEncodedBytes = 1400
)

// Encoder turns s16le PCM frames into Opus packets for the sending track.
type Encoder struct {
	enc *opus.Encoder
	buf []byte
}

func NewEncoder() (*Encoder, error) {
	enc, err := opus.NewEncoder(SampleRate, Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	return &Encoder{enc: enc, buf: make([]byte, maxEncodedBytes)}, nil
}

// Encode consumes exactly one frame of PCM samples and returns the encoded
// packet. The returned slice is only valid until the next call.
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	n, err := e.enc.Encode(pcm, e.buf)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return e.buf[:n], nil
}

// Decoder turns received Opus packets back into PCM for playback.
type Decoder struct {
	dec *opus.Decoder
	pcm []int16
}

func NewDecoder() (*Decoder, error) {
	dec, err := opus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	// Room for the largest frame opus permits, 120ms.
	return &Decoder{dec: dec, pcm: make([]int16, SampleRate/1000*120*Channels)}, nil
}

func (d *Decoder) Decode(packet []byte) ([]int16, error) {
	n, err := d.dec.Decode(packet, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	return d.pcm[:n*Channels], nil
}

// BytesToPCM reinterprets little-endian s16le bytes as samples.
func BytesToPCM(raw []byte) []int16 {
	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}
	return pcm
}

// PCMToBytes serializes samples as little-endian s16le bytes.
func PCMToBytes(pcm []int16) []byte {
	raw := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		raw[2*i] = byte(s)
		raw[2*i+1] = byte(s >> 8)
	}
	return raw
}
