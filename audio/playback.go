package audio

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// PlaybackOptions configure the ffplay subprocess that renders remote PCM.
type PlaybackOptions struct {
	FFplayPath string
	SampleRate int
	Channels   int
}

// Playback pipes s16le PCM into ffplay's stdin. Writes after Close are
// rejected rather than racing the dying subprocess.
type Playback struct {
	stdin   io.WriteCloser
	process *os.Process
	waitErr <-chan error

	mu     sync.Mutex
	closed bool
}

func StartPlayback(opts PlaybackOptions) (*Playback, error) {
	if opts.FFplayPath == "" {
		opts.FFplayPath = "ffplay"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = SampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = Channels
	}

	cmd := exec.Command(opts.FFplayPath,
		"-hide_banner",
		"-loglevel", "error",
		"-nodisp",
		"-autoexit",
		"-f", "s16le",
		"-ar", strconv.Itoa(opts.SampleRate),
		"-ch_layout", layoutFor(opts.Channels),
		"-i", "-",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffplay stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffplay: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	return &Playback{stdin: stdin, process: cmd.Process, waitErr: waitErr}, nil
}

func layoutFor(channels int) string {
	if channels == 2 {
		return "stereo"
	}
	return "mono"
}

func (p *Playback) Write(pcm []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, fmt.Errorf("playback closed")
	}
	return p.stdin.Write(pcm)
}

func (p *Playback) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	_ = p.stdin.Close()
	select {
	case <-p.waitErr:
	case <-time.After(2 * time.Second):
		if p.process != nil {
			_ = p.process.Kill()
		}
		<-p.waitErr
	}
	return nil
}
