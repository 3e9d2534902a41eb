package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CaptureOptions configure the ffmpeg microphone capture subprocess.
type CaptureOptions struct {
	FFmpegPath  string
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

// Capture streams raw s16le microphone PCM from an ffmpeg subprocess. It is
// the exclusive owner of the device for its lifetime; Close always reaps the
// child so the capture indicator cannot leak.
type Capture struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func StartCapture(ctx context.Context, opts CaptureOptions) (*Capture, error) {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.InputFormat == "" {
		opts.InputFormat = "pulse"
	}
	if opts.InputDevice == "" {
		opts.InputDevice = "default"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 48000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", opts.InputFormat,
		"-i", opts.InputDevice,
		"-ac", strconv.Itoa(opts.Channels),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, opts.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// ffmpeg exits immediately when the device is missing or access is
	// denied; surface that as a capture failure rather than a short read.
	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(250 * time.Millisecond):
	}

	return &Capture{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

func (c *Capture) Read(p []byte) (int, error) {
	return c.stdout.Read(p)
}

func (c *Capture) Close() error {
	c.stopOnce.Do(func() {
		if c.process != nil {
			_ = c.process.Signal(os.Interrupt)
		}
		select {
		case err, ok := <-c.waitErr:
			if ok {
				c.stopErr = normalizeExit(err)
			}
		case <-time.After(2 * time.Second):
			if c.process != nil {
				_ = c.process.Kill()
			}
			<-c.waitErr
		}
		_ = c.stdout.Close()
	})
	return c.stopErr
}

func normalizeExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Interrupted capture is a clean stop, not a failure.
		return nil
	}
	return err
}
