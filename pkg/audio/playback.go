package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// Player plays PCM16 clips on the default output device. Each Play call
// opens a playback device at the clip's sample rate, blocks until the clip
// has drained, and releases the device before returning.
type Player struct {
	mu sync.Mutex // one clip at a time
}

// NewPlayer creates a Player.
func NewPlayer() *Player {
	return &Player{}
}

// Play blocks until the clip has been played or ctx is cancelled.
func (p *Player) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}
	defer func() {
		audioCtx.Uninit()
		audioCtx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.PeriodSizeInMilliseconds = 20
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	var (
		bufMu sync.Mutex
		buf   = pcm
		done  = make(chan struct{})
		once  sync.Once
	)

	device, err := malgo.InitDevice(audioCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, framecount uint32) {
			bufMu.Lock()
			n := copy(outputSamples, buf)
			buf = buf[n:]
			remaining := len(buf)
			bufMu.Unlock()

			// Zero-fill the tail and signal completion.
			for i := n; i < len(outputSamples); i++ {
				outputSamples[i] = 0
			}
			if remaining == 0 {
				once.Do(func() { close(done) })
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	select {
	case <-done:
		// Give the device one period to flush the last buffer.
		time.Sleep(40 * time.Millisecond)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Beep plays a short cue tone so the user knows the microphone is live.
func (p *Player) Beep(ctx context.Context) error {
	const (
		freq = 1200.0
		dur  = 120 // ms
		rate = 16000
	)
	return p.Play(ctx, SineTone(freq, dur, rate, 0.4), rate)
}
