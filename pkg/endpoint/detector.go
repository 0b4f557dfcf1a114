// Package endpoint turns a continuous stream of fixed-duration PCM16
// frames into discrete utterance buffers, one per spoken command.
//
// The detector is a two-state machine. While Idle it keeps a bounded
// pre-roll window of recent frames and votes on their voice labels; once
// the window is full and the voiced fraction exceeds the start threshold,
// the whole window is prepended to the utterance (preserving the onset)
// and the detector starts Collecting. While Collecting every frame is
// appended to the utterance and to a bounded post-roll window; when the
// unvoiced, energy-gated fraction of that window exceeds the end threshold
// (or the hard duration cap is hit), the utterance is validated against
// minimum duration and energy and either emitted or silently discarded.
//
// Usage:
//
//	det, err := endpoint.NewDetector(endpoint.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	utt, err := det.Listen(ctx, source, classifier)
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/voicechess/voicechess/pkg/audio"
	"github.com/voicechess/voicechess/pkg/vad"
)

// ErrStreamClosed is returned when the frame source terminates while the
// detector is still listening. No partial utterance is emitted.
var ErrStreamClosed = errors.New("endpoint: frame stream closed")

// FrameSource produces fixed-duration PCM16 frames at the capture cadence,
// blocking the caller for approximately one frame duration per call.
type FrameSource interface {
	ReadFrame(ctx context.Context) ([]byte, error)
}

// Classifier labels one frame with a voice verdict and RMS energy.
// Implementations must be repeatable: the same frame yields the same result.
type Classifier interface {
	Classify(frame []byte) (vad.Classification, error)
}

type detectorState int

const (
	stateIdle detectorState = iota
	stateCollecting
)

// Detector is the endpoint state machine. It is single-owner and
// synchronous: one goroutine feeds it one frame at a time. It performs no
// I/O; every operation is bounded by the window sizes.
type Detector struct {
	cfg        Config
	frameBytes int

	pre  *frameWindow // look-back, active while idle
	post *frameWindow // look-ahead, active while collecting

	state     detectorState
	collected []byte
	frames    int
	startedAt time.Time

	now func() time.Time
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("endpoint: invalid config: %w", err)
	}

	return &Detector{
		cfg:        cfg,
		frameBytes: cfg.FrameBytes(),
		pre:        newFrameWindow(cfg.PreRollFrames()),
		post:       newFrameWindow(cfg.PostRollFrames()),
		now:        time.Now,
	}, nil
}

// Config returns the detector's configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Reset returns the detector to Idle with all buffers cleared, as if
// freshly constructed.
func (d *Detector) Reset() {
	d.state = stateIdle
	d.pre.Clear()
	d.post.Clear()
	d.collected = nil
	d.frames = 0
	d.startedAt = time.Time{}
}

// Push feeds one classified frame into the state machine. It returns a
// non-nil Utterance when an end trigger fires and the collected span passes
// validation. Spans that fail validation are discarded and the detector
// silently re-arms; Push then keeps returning nil until a later cycle
// produces a valid utterance.
func (d *Detector) Push(frame []byte, c vad.Classification) *Utterance {
	switch d.state {
	case stateIdle:
		d.pushIdle(frame, c)
		return nil
	case stateCollecting:
		return d.pushCollecting(frame, c)
	}
	return nil
}

func (d *Detector) pushIdle(frame []byte, c vad.Classification) {
	pcm := make([]byte, len(frame))
	copy(pcm, frame)
	d.pre.Push(classifiedFrame{pcm: pcm, voice: c.Voice, energy: c.Energy})

	// A start can only trigger on a full window: fewer frames are not
	// enough evidence, and the prepended look-back would be short.
	if !d.pre.Full() {
		return
	}

	voiced := d.pre.Count(func(f classifiedFrame) bool { return f.voice })
	if float64(voiced) <= d.cfg.StartThreshold*float64(d.pre.Len()) {
		return
	}

	// Seed the utterance with the entire look-back window so the onset of
	// speech before the vote crossed the threshold is preserved.
	d.pre.Each(func(f classifiedFrame) {
		d.collected = append(d.collected, f.pcm...)
		d.frames++
	})
	d.pre.Clear()
	d.startedAt = d.now()
	d.state = stateCollecting
	log.Printf("[endpoint] speech detected")
}

func (d *Detector) pushCollecting(frame []byte, c vad.Classification) *Utterance {
	d.collected = append(d.collected, frame...)
	d.frames++
	d.post.Push(classifiedFrame{voice: c.Voice, energy: c.Energy})

	// A frame only counts as voiced for the end vote when the engine says
	// speech AND it carries enough energy. Both biases resist premature
	// cutoffs during pauses between words.
	unvoiced := d.post.Count(func(f classifiedFrame) bool {
		return !(f.voice && f.energy >= d.cfg.FrameEnergyMin)
	})

	endVote := d.post.Full() &&
		float64(unvoiced) > d.cfg.EndThreshold*float64(d.post.Len())
	hitCap := d.now().Sub(d.startedAt) >= d.cfg.MaxChunk

	if !endVote && !hitCap {
		return nil
	}
	return d.finalize()
}

// finalize validates the collected span and either emits it or discards it
// and re-arms.
func (d *Detector) finalize() *Utterance {
	pcm := d.collected
	frames := d.frames
	startedAt := d.startedAt
	d.Reset()

	duration := time.Duration(frames) * d.cfg.FrameDuration
	energy := audio.RMS16(pcm)

	if duration < d.cfg.MinChunk || energy < d.cfg.ChunkEnergyMin {
		log.Printf("[endpoint] discarded short/quiet span (%v, rms %.0f)", duration, energy)
		return nil
	}

	log.Printf("[endpoint] speech ended (%v, rms %.0f)", duration, energy)
	return &Utterance{
		ID:         uuid.NewString(),
		PCM:        pcm,
		SampleRate: d.cfg.SampleRate,
		Frames:     frames,
		Duration:   duration,
		Energy:     energy,
		CapturedAt: startedAt,
	}
}

// Listen consumes frames from src until one valid utterance is produced.
//
// Cancellation is honored within one frame period. Source termination
// surfaces as ErrStreamClosed, and a classifier failure aborts the cycle;
// neither emits a partial utterance. Discards are handled internally and
// never escape.
func (d *Detector) Listen(ctx context.Context, src FrameSource, cls Classifier) (*Utterance, error) {
	d.Reset()

	for {
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrStreamClosed
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("endpoint: read frame: %w", err)
		}

		c, err := cls.Classify(frame)
		if err != nil {
			return nil, fmt.Errorf("endpoint: classify frame: %w", err)
		}

		if u := d.Push(frame, c); u != nil {
			return u, nil
		}
	}
}
