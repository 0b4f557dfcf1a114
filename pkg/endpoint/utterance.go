package endpoint

import "time"

// Utterance is one validated, contiguous span of speech bounded by a start
// and an end trigger: a single spoken command, ready for transcription.
type Utterance struct {
	// ID uniquely identifies the utterance.
	ID string
	// PCM is the contiguous PCM16 mono byte buffer.
	PCM []byte
	// SampleRate of the buffer in Hz.
	SampleRate int
	// Frames is the number of fixed-duration frames in the buffer.
	Frames int
	// Duration is Frames times the frame duration.
	Duration time.Duration
	// Energy is the aggregate RMS over the whole buffer.
	Energy float64
	// CapturedAt is the time the start trigger fired.
	CapturedAt time.Time
}
