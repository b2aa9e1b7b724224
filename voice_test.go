package pitchmix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatioTempoInverse(t *testing.T) {
	for s := -24; s <= 24; s++ {
		r := Ratio(float64(s))
		tempo := Tempo(float64(s))
		assert.InDelta(t, 1.0, r*tempo, 1e-9, "semitones=%d", s)
	}

	for s := -24.0; s <= 24.0; s += 0.25 {
		v := Voice{Semitones: s}
		assert.InDelta(t, 1.0, v.Ratio()*v.Tempo(), 1e-9, "semitones=%v", s)
	}
}

func TestRatioKnownValues(t *testing.T) {
	assert.InDelta(t, 1.2599, Ratio(4), 1e-4)
	assert.InDelta(t, 0.8409, Ratio(-3), 1e-4)
	assert.Equal(t, 1.0, Ratio(0))
	assert.InDelta(t, 2.0, Ratio(12), 1e-12)
	assert.InDelta(t, 0.5, Ratio(-12), 1e-12)
}

func TestVoiceRate(t *testing.T) {
	tests := []struct {
		name       string
		semitones  float64
		sampleRate int
		want       int
	}{
		{"major third up at 44.1k", 4, 44100, 55563},
		{"minor third down at 44.1k", -3, 44100, 37084},
		{"major third up at 48k", 4, 48000, 60476},
		{"unison", 0, 22050, 22050},
		{"octave down", -12, 8000, 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Voice{Semitones: tt.semitones}
			assert.Equal(t, tt.want, v.Rate(tt.sampleRate))
			assert.Equal(t, int(math.Round(float64(tt.sampleRate)*Ratio(tt.semitones))), v.Rate(tt.sampleRate))
		})
	}
}

func TestVoiceValidate(t *testing.T) {
	assert.NoError(t, Voice{Semitones: 4}.Validate())
	assert.NoError(t, Voice{Semitones: -MaxSemitones}.Validate())
	assert.Error(t, Voice{Semitones: MaxSemitones + 1}.Validate())
	assert.Error(t, Voice{Semitones: math.NaN()}.Validate())
	assert.Error(t, Voice{Semitones: math.Inf(-1)}.Validate())
}

func TestDefaultVoices(t *testing.T) {
	voices := DefaultVoices()
	require.Len(t, voices, 2)
	assert.Equal(t, 4.0, voices[0].Semitones)
	assert.Equal(t, -3.0, voices[1].Semitones)
}

func TestVoiceString(t *testing.T) {
	assert.Equal(t, "+4", Voice{Semitones: 4}.String())
	assert.Equal(t, "-3", Voice{Semitones: -3}.String())
	assert.Equal(t, "+0.5", Voice{Semitones: 0.5}.String())
}

func TestVoicesFromSemitones(t *testing.T) {
	assert.Empty(t, VoicesFromSemitones(nil))
	assert.Equal(t, []Voice{{7}, {-5}, {12}}, VoicesFromSemitones([]float64{7, -5, 12}))
}
