package pitchmix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		original string
		want     string
	}{
		{"voice.ogg", "voice_filtered.wav"},
		{"song.final.mp3", "song.final_filtered.wav"},
		{"recording", "recording_filtered.wav"},
		{"/tmp/uploads/clip.m4a", "clip_filtered.wav"},
		{`C:\Users\me\clip.flac`, "clip_filtered.wav"},
		{"audio_AgADBAADxyz.ogg", "audio_AgADBAADxyz_filtered.wav"},
		{"", "audio_filtered.wav"},
		{"  .ogg", "audio_filtered.wav"},
		{".hidden", ".hidden_filtered.wav"},
		{"dir/.hidden", ".hidden_filtered.wav"},
		{".hidden.ogg", ".hidden_filtered.wav"},
		{"..", "audio_filtered.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputName(tt.original, WAV_PCM16))
		})
	}
}

func TestInputExt(t *testing.T) {
	tests := []struct {
		original string
		want     string
	}{
		{"voice.ogg", ".ogg"},
		{"VOICE.OGA", ".oga"},
		{"dir/clip.m4a", ".m4a"},
		{"noext", ".bin"},
		{"weird.ext with space", ".bin"},
		{"bad.../../x", ".bin"},
		{"", ".bin"},
		{".hidden", ".bin"},
		{".hidden.ogg", ".ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Equal(t, tt.want, InputExt(tt.original))
		})
	}
}

func TestOutputFormat(t *testing.T) {
	assert.NoError(t, WAV_PCM16.Validate())
	assert.Equal(t, ".wav", WAV_PCM16.Ext())
	assert.Equal(t, map[string]any{"f": "wav", "c:a": "pcm_s16le"}, WAV_PCM16.FFmpegArgs())
	assert.Equal(t, []string{"-t", "wav", "-e", "signed-integer", "-b", "16"}, WAV_PCM16.SoxArgs())

	assert.Error(t, OutputFormat{}.Validate())
	assert.Error(t, OutputFormat{Type: "wav", BitDepth: -1}.Validate())
}
