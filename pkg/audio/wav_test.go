package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVRoundTrip(t *testing.T) {
	pcm := SineTone(440, 50, 16000, 0.5)

	wav := EncodeWAV(pcm, 16000, 1)
	require.Greater(t, len(wav), len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))

	got, rate, err := DecodeWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
	assert.Equal(t, pcm, got)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, _, err := DecodeWAV([]byte("not audio at all"))
	assert.Error(t, err)
}

func TestDecodeWAVRejectsTruncated(t *testing.T) {
	wav := EncodeWAV(SineTone(440, 50, 16000, 0.5), 16000, 1)
	_, _, err := DecodeWAV(wav[:len(wav)/2])
	assert.Error(t, err)
}

func TestDecodeWAVRejectsNonPCM(t *testing.T) {
	wav := EncodeWAV(make([]byte, 32), 16000, 1)
	// Flip the format tag in the fmt chunk to IEEE float.
	wav[20] = 3
	_, _, err := DecodeWAV(wav)
	assert.Error(t, err)
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	wav := EncodeWAV(pcm, 8000, 1)

	// Splice a LIST chunk between the header and the fmt chunk, as some
	// encoders do.
	list := append([]byte("LIST"), 4, 0, 0, 0, 'I', 'N', 'F', 'O')
	spliced := append([]byte{}, wav[:12]...)
	spliced = append(spliced, list...)
	spliced = append(spliced, wav[12:]...)
	// Fix up the RIFF size.
	spliced[4] = byte(len(spliced) - 8)

	got, rate, err := DecodeWAV(spliced)
	require.NoError(t, err)
	assert.Equal(t, 8000, rate)
	assert.Equal(t, pcm, got)
}
