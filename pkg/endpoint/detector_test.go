package endpoint

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicechess/voicechess/pkg/audio"
	"github.com/voicechess/voicechess/pkg/vad"
)

// silentFrame and voicedFrame build one frame of the given config: all-zero
// samples, or a constant-amplitude tone whose RMS equals the amplitude.
func silentFrame(cfg Config) []byte {
	return make([]byte, cfg.FrameBytes())
}

func voicedFrame(cfg Config, amplitude int16) []byte {
	samples := make([]int16, cfg.FrameSamples())
	for i := range samples {
		samples[i] = amplitude
	}
	return audio.Int16ToBytes(samples)
}

var (
	silent = vad.Classification{Voice: false, Energy: 0}
	voiced = vad.Classification{Voice: true, Energy: 8000}
)

func TestDetectorEmitsUtterance(t *testing.T) {
	cfg := DefaultConfig()
	det, err := NewDetector(cfg)
	require.NoError(t, err)

	// 26 pre-roll frames, 40 post-roll frames with the defaults.
	require.Equal(t, 26, cfg.PreRollFrames())
	require.Equal(t, 40, cfg.PostRollFrames())

	sil := silentFrame(cfg)
	voi := voicedFrame(cfg, 8000)

	// Fill the look-back window with silence.
	for i := 0; i < 26; i++ {
		assert.Nil(t, det.Push(sil, silent))
	}

	// Start vote needs strictly more than 0.55*26 = 14.3 voiced frames in
	// the window, so the 15th voiced frame triggers collection.
	for i := 0; i < 15; i++ {
		assert.Nil(t, det.Push(voi, voiced))
	}

	// A short burst of speech, then trailing silence. The end vote fires
	// once the 40-frame look-ahead is full and strictly more than
	// 0.8*40 = 32 of it is unvoiced: at the 35th silent frame.
	for i := 0; i < 5; i++ {
		assert.Nil(t, det.Push(voi, voiced))
	}

	var utt *Utterance
	for i := 0; i < 35; i++ {
		require.Nil(t, utt)
		utt = det.Push(sil, silent)
	}
	require.NotNil(t, utt)

	// 26 seeded + 5 voiced + 35 silent frames.
	assert.Equal(t, 66, utt.Frames)
	assert.Len(t, utt.PCM, 66*cfg.FrameBytes())
	assert.Equal(t, 66*cfg.FrameDuration, utt.Duration)
	assert.Equal(t, cfg.SampleRate, utt.SampleRate)
	assert.NotEmpty(t, utt.ID)
	assert.Greater(t, utt.Energy, cfg.ChunkEnergyMin)
}

func TestDetectorNoTriggerBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	det, err := NewDetector(cfg)
	require.NoError(t, err)

	sil := silentFrame(cfg)
	voi := voicedFrame(cfg, 8000)

	for i := 0; i < 26; i++ {
		assert.Nil(t, det.Push(sil, silent))
	}

	// 14 voiced frames is exactly under the 0.55*26 = 14.3 start vote.
	for i := 0; i < 14; i++ {
		assert.Nil(t, det.Push(voi, voiced))
	}
	assert.Equal(t, stateIdle, det.state)

	// One more crosses it.
	det.Push(voi, voiced)
	assert.Equal(t, stateCollecting, det.state)
}

func TestDetectorNoTriggerBeforeWindowFull(t *testing.T) {
	cfg := DefaultConfig()
	det, err := NewDetector(cfg)
	require.NoError(t, err)

	voi := voicedFrame(cfg, 8000)

	// 25 voiced frames out of 25 is a unanimous vote, but the window holds
	// one frame less than its capacity, so no trigger yet.
	for i := 0; i < 25; i++ {
		det.Push(voi, voiced)
	}
	assert.Equal(t, stateIdle, det.state)

	det.Push(voi, voiced)
	assert.Equal(t, stateCollecting, det.state)
}

func TestDetectorDiscardsShortSpanAndRearms(t *testing.T) {
	// Small windows so a discarded span fits in a few frames.
	cfg := DefaultConfig()
	cfg.PreBuffer = 90 * time.Millisecond  // 3 frames
	cfg.PostBuffer = 90 * time.Millisecond // 3 frames
	cfg.MinChunk = 300 * time.Millisecond  // 10 frames
	cfg.EndThreshold = 0.6

	det, err := NewDetector(cfg)
	require.NoError(t, err)

	sil := silentFrame(cfg)
	voi := voicedFrame(cfg, 8000)

	// First cycle: 3 voiced frames trigger, 3 silent frames end it.
	// 6 frames is 180ms, under the minimum; the span is discarded.
	for i := 0; i < 3; i++ {
		assert.Nil(t, det.Push(voi, voiced))
	}
	for i := 0; i < 3; i++ {
		assert.Nil(t, det.Push(sil, silent))
	}
	assert.Equal(t, stateIdle, det.state)

	// Second cycle on the same detector: enough speech this time.
	for i := 0; i < 3; i++ {
		assert.Nil(t, det.Push(voi, voiced))
	}
	for i := 0; i < 7; i++ {
		assert.Nil(t, det.Push(voi, voiced))
	}

	var utt *Utterance
	for i := 0; i < 3; i++ {
		require.Nil(t, utt)
		utt = det.Push(sil, silent)
	}
	require.NotNil(t, utt)
	assert.Equal(t, 13, utt.Frames)
	assert.Equal(t, 13*cfg.FrameDuration, utt.Duration)
}

func TestDetectorDiscardsQuietSpan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreBuffer = 90 * time.Millisecond
	cfg.PostBuffer = 90 * time.Millisecond
	cfg.MinChunk = 60 * time.Millisecond
	cfg.EndThreshold = 0.6

	det, err := NewDetector(cfg)
	require.NoError(t, err)

	sil := silentFrame(cfg)
	// Voice-labelled frames whose samples are nearly silent: the aggregate
	// RMS stays below ChunkEnergyMin.
	quiet := voicedFrame(cfg, 50)
	quietVoiced := vad.Classification{Voice: true, Energy: 50}

	for i := 0; i < 3; i++ {
		assert.Nil(t, det.Push(quiet, quietVoiced))
	}
	for i := 0; i < 10; i++ {
		assert.Nil(t, det.Push(quiet, quietVoiced))
	}
	for i := 0; i < 3; i++ {
		assert.Nil(t, det.Push(sil, silent))
	}
	assert.Equal(t, stateIdle, det.state)
}

func TestDetectorHardCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreBuffer = 90 * time.Millisecond // 3 frames
	cfg.MinChunk = 30 * time.Millisecond
	cfg.MaxChunk = 300 * time.Millisecond

	det, err := NewDetector(cfg)
	require.NoError(t, err)

	// Deterministic clock: every call advances one frame duration, matching
	// the capture cadence.
	base := time.Unix(1700000000, 0)
	calls := 0
	det.now = func() time.Time {
		t := base.Add(time.Duration(calls) * cfg.FrameDuration)
		calls++
		return t
	}

	voi := voicedFrame(cfg, 8000)

	for i := 0; i < 3; i++ {
		require.Nil(t, det.Push(voi, voiced))
	}
	require.Equal(t, stateCollecting, det.state)

	// The 40-frame look-ahead never fills, so only the cap can end this.
	// It fires on the 10th collecting frame (10 * 30ms = MaxChunk).
	var utt *Utterance
	for i := 0; i < 10; i++ {
		require.Nil(t, utt)
		utt = det.Push(voi, voiced)
	}
	require.NotNil(t, utt)
	assert.Equal(t, 13, utt.Frames)
	assert.Equal(t, base, utt.CapturedAt)
}

func TestDetectorReset(t *testing.T) {
	cfg := DefaultConfig()
	det, err := NewDetector(cfg)
	require.NoError(t, err)

	voi := voicedFrame(cfg, 8000)
	for i := 0; i < 30; i++ {
		det.Push(voi, voiced)
	}
	require.Equal(t, stateCollecting, det.state)

	det.Reset()
	assert.Equal(t, stateIdle, det.state)
	assert.Zero(t, det.frames)
	assert.Nil(t, det.collected)
	assert.Zero(t, det.pre.Len())
	assert.Zero(t, det.post.Len())
}

// scriptedSource plays back a fixed frame sequence, then reports EOF.
type scriptedSource struct {
	frames [][]byte
	next   int
}

func (s *scriptedSource) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// energyClassifier labels frames voiced by amplitude alone, which is exactly
// what the scripted tone/silence frames encode.
func energyClassifier(t *testing.T) *vad.Classifier {
	t.Helper()
	engine := vad.NewMockEngine()
	engine.SpeechFunc = func(frame []byte) (bool, error) {
		return audio.RMS16(frame) > 1000, nil
	}
	cls, err := vad.NewClassifier(engine)
	require.NoError(t, err)
	return cls
}

func TestListenEmitsUtterance(t *testing.T) {
	cfg := DefaultConfig()
	det, err := NewDetector(cfg)
	require.NoError(t, err)

	sil := silentFrame(cfg)
	voi := voicedFrame(cfg, 8000)

	var frames [][]byte
	for i := 0; i < 26; i++ {
		frames = append(frames, sil)
	}
	for i := 0; i < 20; i++ {
		frames = append(frames, voi)
	}
	for i := 0; i < 40; i++ {
		frames = append(frames, sil)
	}

	utt, err := det.Listen(context.Background(), &scriptedSource{frames: frames}, energyClassifier(t))
	require.NoError(t, err)
	require.NotNil(t, utt)
	assert.Equal(t, 66, utt.Frames)
}

func TestListenStreamClosed(t *testing.T) {
	cfg := DefaultConfig()
	det, err := NewDetector(cfg)
	require.NoError(t, err)

	// The stream ends while the detector is still idle: no utterance and
	// no partial data, just the sentinel.
	src := &scriptedSource{frames: [][]byte{silentFrame(cfg), silentFrame(cfg)}}
	utt, err := det.Listen(context.Background(), src, energyClassifier(t))
	assert.Nil(t, utt)
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestListenContextCancelled(t *testing.T) {
	cfg := DefaultConfig()
	det, err := NewDetector(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	utt, err := det.Listen(ctx, &scriptedSource{}, energyClassifier(t))
	assert.Nil(t, utt)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListenClassifierError(t *testing.T) {
	cfg := DefaultConfig()
	det, err := NewDetector(cfg)
	require.NoError(t, err)

	engine := vad.NewMockEngine()
	engine.SpeechFunc = func(frame []byte) (bool, error) {
		return false, assert.AnError
	}
	cls, err := vad.NewClassifier(engine)
	require.NoError(t, err)

	src := &scriptedSource{frames: [][]byte{silentFrame(cfg)}}
	utt, err := det.Listen(context.Background(), src, cls)
	assert.Nil(t, utt)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestConfigIsValid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"zero frame duration", func(c *Config) { c.FrameDuration = 0 }, true},
		{"zero pre buffer", func(c *Config) { c.PreBuffer = 0 }, true},
		{"zero post buffer", func(c *Config) { c.PostBuffer = 0 }, true},
		{"zero max chunk", func(c *Config) { c.MaxChunk = 0 }, true},
		{"min above max", func(c *Config) { c.MinChunk = 10 * time.Second }, true},
		{"start threshold at one", func(c *Config) { c.StartThreshold = 1.0 }, true},
		{"end threshold at zero", func(c *Config) { c.EndThreshold = 0 }, true},
		{"negative frame energy", func(c *Config) { c.FrameEnergyMin = -1 }, true},
		{"aggressiveness out of range", func(c *Config) { c.VADAggressiveness = 4 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.IsValid()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigFrameGeometry(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 480, cfg.FrameSamples())
	assert.Equal(t, 960, cfg.FrameBytes())
}

func TestDetectorConfigAccessor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinChunk = 700 * time.Millisecond

	det, err := NewDetector(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, det.Config())
}
