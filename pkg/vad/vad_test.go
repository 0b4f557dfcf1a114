package vad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicechess/voicechess/pkg/audio"
)

func constantFrame(amplitude int16, samples int) []byte {
	s := make([]int16, samples)
	for i := range s {
		s[i] = amplitude
	}
	return audio.Int16ToBytes(s)
}

func TestNewClassifierRequiresEngine(t *testing.T) {
	_, err := NewClassifier(nil)
	assert.Error(t, err)
}

func TestClassifyPairsVerdictWithEnergy(t *testing.T) {
	cls, err := NewClassifier(NewMockEngineWithVerdict(true))
	require.NoError(t, err)

	// A constant-amplitude frame has RMS equal to its amplitude.
	c, err := cls.Classify(constantFrame(5000, 480))
	require.NoError(t, err)
	assert.True(t, c.Voice)
	assert.InDelta(t, 5000.0, c.Energy, 0.01)
}

func TestClassifySilentFrame(t *testing.T) {
	cls, err := NewClassifier(NewMockEngineWithVerdict(false))
	require.NoError(t, err)

	c, err := cls.Classify(make([]byte, 960))
	require.NoError(t, err)
	assert.False(t, c.Voice)
	assert.Equal(t, 0.0, c.Energy)
}

func TestClassifyIsRepeatable(t *testing.T) {
	cls, err := NewClassifier(NewMockEngineWithVerdict(true))
	require.NoError(t, err)

	frame := constantFrame(1234, 480)
	first, err := cls.Classify(frame)
	require.NoError(t, err)
	second, err := cls.Classify(frame)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClassifierResetClearsEngineState(t *testing.T) {
	engine := NewMockEngine()
	cls, err := NewClassifier(engine)
	require.NoError(t, err)

	// One listen cycle may leave a stateful engine mid-utterance; the next
	// stream must start from a clean verdict.
	require.False(t, engine.ResetCalled)
	require.NoError(t, cls.Reset())
	assert.True(t, engine.ResetCalled)
}

func TestClassifyEngineError(t *testing.T) {
	engine := NewMockEngine()
	engine.SpeechFunc = func(frame []byte) (bool, error) {
		return false, assert.AnError
	}
	cls, err := NewClassifier(engine)
	require.NoError(t, err)

	_, err = cls.Classify(make([]byte, 960))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMockEngineSequence(t *testing.T) {
	engine := NewMockEngineWithSequence([]bool{true, false, true})

	want := []bool{true, false, true, true, true}
	for i, expected := range want {
		got, err := engine.IsSpeech(nil)
		require.NoError(t, err)
		assert.Equal(t, expected, got, "call %d", i)
	}
	assert.Equal(t, len(want), engine.Calls)
}

func TestWebRTCConfigIsValid(t *testing.T) {
	tests := []struct {
		name    string
		cfg     WebRTCConfig
		wantErr bool
	}{
		{"valid 16k", WebRTCConfig{SampleRate: 16000, Aggressiveness: 0}, false},
		{"valid 48k mode 3", WebRTCConfig{SampleRate: 48000, Aggressiveness: 3}, false},
		{"bad rate", WebRTCConfig{SampleRate: 44100, Aggressiveness: 0}, true},
		{"mode too high", WebRTCConfig{SampleRate: 16000, Aggressiveness: 4}, true},
		{"negative mode", WebRTCConfig{SampleRate: 16000, Aggressiveness: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.IsValid()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSileroConfigIsValid(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SileroConfig
		wantErr bool
	}{
		{"valid", SileroConfig{ModelPath: "model.onnx", SampleRate: 16000}, false},
		{"missing model", SileroConfig{SampleRate: 16000}, true},
		{"bad rate", SileroConfig{ModelPath: "model.onnx", SampleRate: 44100}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.IsValid()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
