package pitchmix

import (
	"fmt"
	"math"
	"strconv"
)

// MaxSemitones bounds the offset of a single voice (four octaves either way).
// Beyond it the rate change and tempo chain become pathological.
const MaxSemitones = 48

// Voice is one pitch-shifted copy of the input, expressed in semitones.
type Voice struct {
	Semitones float64
}

// DefaultVoices returns the fixed voice pair: a major third up and a minor
// third down.
func DefaultVoices() []Voice {
	return []Voice{{Semitones: 4}, {Semitones: -3}}
}

// VoicesFromSemitones converts plain offsets into voices, preserving order.
func VoicesFromSemitones(offsets []float64) []Voice {
	voices := make([]Voice, len(offsets))
	for i, s := range offsets {
		voices[i] = Voice{Semitones: s}
	}
	return voices
}

// Ratio returns the frequency ratio 2^(semitones/12).
func Ratio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// Tempo returns the tempo correction that undoes the duration change of
// Ratio(semitones).
func Tempo(semitones float64) float64 {
	return 1 / Ratio(semitones)
}

// Ratio returns the voice's frequency ratio.
func (v Voice) Ratio() float64 { return Ratio(v.Semitones) }

// Tempo returns the voice's tempo correction.
func (v Voice) Tempo() float64 { return Tempo(v.Semitones) }

// Rate returns the absolute resample rate for this voice given the base
// sample rate. This is the only place the ratio is rounded.
func (v Voice) Rate(sampleRate int) int {
	return int(math.Round(float64(sampleRate) * v.Ratio()))
}

// Validate checks that the offset is finite and within MaxSemitones.
func (v Voice) Validate() error {
	if math.IsNaN(v.Semitones) || math.IsInf(v.Semitones, 0) {
		return fmt.Errorf("semitone offset is not finite")
	}
	if math.Abs(v.Semitones) > MaxSemitones {
		return fmt.Errorf("semitone offset %s exceeds ±%d", v, MaxSemitones)
	}
	return nil
}

// String renders the offset with an explicit sign, e.g. "+4" or "-3".
func (v Voice) String() string {
	s := strconv.FormatFloat(v.Semitones, 'f', -1, 64)
	if v.Semitones >= 0 {
		return "+" + s
	}
	return s
}
