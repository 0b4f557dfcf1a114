package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// CaptureConfig configures the microphone capture device.
type CaptureConfig struct {
	SampleRate    int           // e.g. 16000
	Channels      int           // 1 for mono
	FrameDuration time.Duration // size of frames handed to ReadFrame
}

// IsValid validates the capture configuration.
func (c CaptureConfig) IsValid() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	}
	if c.Channels != 1 {
		return fmt.Errorf("invalid Channels: %d (only mono is supported)", c.Channels)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("invalid FrameDuration: %v", c.FrameDuration)
	}
	return nil
}

// FrameBytes returns the byte length of one frame.
func (c CaptureConfig) FrameBytes() int {
	samples := c.SampleRate * int(c.FrameDuration/time.Millisecond) / 1000
	return samples * BytesPerSample * c.Channels
}

// CaptureDevice delivers fixed-duration PCM16 frames from the default
// microphone. The device callback pushes raw buffers onto an internal
// channel; ReadFrame reassembles them into exact frame-sized blocks at the
// capture cadence.
type CaptureDevice struct {
	cfg        CaptureConfig
	frameBytes int

	audioCtx *malgo.AllocatedContext
	device   *malgo.Device

	chunks  chan []byte
	pending []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// OpenCapture initializes and starts the default capture device.
// The caller must Close the device on every exit path.
func OpenCapture(cfg CaptureConfig) (*CaptureDevice, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid capture config: %w", err)
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	d := &CaptureDevice{
		cfg:        cfg,
		frameBytes: cfg.FrameBytes(),
		audioCtx:   audioCtx,
		chunks:     make(chan []byte, 64),
		closed:     make(chan struct{}),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.PeriodSizeInMilliseconds = uint32(cfg.FrameDuration / time.Millisecond)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(audioCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, framecount uint32) {
			buf := make([]byte, len(inputSamples))
			copy(buf, inputSamples)
			select {
			case d.chunks <- buf:
			case <-d.closed:
			default:
				// Reader fell behind by more than the channel depth.
				// Dropping here keeps the realtime callback non-blocking.
			}
		},
	})
	if err != nil {
		audioCtx.Uninit()
		audioCtx.Free()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}
	d.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		audioCtx.Uninit()
		audioCtx.Free()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	return d, nil
}

// ReadFrame blocks until one full frame of PCM is available and returns it.
// It returns ctx.Err() on cancellation and io.EOF once the device is closed
// and the buffered audio is drained.
func (d *CaptureDevice) ReadFrame(ctx context.Context) ([]byte, error) {
	for len(d.pending) < d.frameBytes {
		select {
		case chunk := <-d.chunks:
			d.pending = append(d.pending, chunk...)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-d.closed:
			// Drain what the callback already delivered.
			select {
			case chunk := <-d.chunks:
				d.pending = append(d.pending, chunk...)
			default:
				return nil, io.EOF
			}
		}
	}

	frame := make([]byte, d.frameBytes)
	copy(frame, d.pending)
	d.pending = d.pending[d.frameBytes:]
	return frame, nil
}

// Close stops the device and releases the underlying audio resources.
// Safe to call more than once.
func (d *CaptureDevice) Close() error {
	d.closeOnce.Do(func() {
		close(d.closed)
		if d.device != nil {
			d.device.Uninit()
		}
		if d.audioCtx != nil {
			d.audioCtx.Uninit()
			d.audioCtx.Free()
		}
	})
	return nil
}
