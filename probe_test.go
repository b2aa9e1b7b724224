package pitchmix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ffprobeOgg = `{
    "streams": [
        {
            "index": 0,
            "codec_name": "opus",
            "codec_type": "audio",
            "sample_rate": "48000",
            "channels": 1,
            "duration": "3.500000"
        }
    ],
    "format": {
        "filename": "voice.ogg",
        "nb_streams": 1,
        "format_name": "ogg",
        "duration": "3.500000"
    }
}`

const ffprobeVideoFirst = `{
    "streams": [
        {"index": 0, "codec_name": "h264", "codec_type": "video"},
        {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "44100", "channels": 2}
    ],
    "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "2.000000"}
}`

const ffprobeNoRate = `{
    "streams": [
        {"index": 0, "codec_name": "pcm_s16le", "codec_type": "audio", "sample_rate": "", "channels": 1}
    ],
    "format": {"format_name": "wav"}
}`

const ffprobeNoAudio = `{
    "streams": [
        {"index": 0, "codec_name": "png", "codec_type": "video"}
    ],
    "format": {"format_name": "png_pipe"}
}`

func TestParseFFprobe(t *testing.T) {
	info, err := parseFFprobe([]byte(ffprobeOgg))
	require.NoError(t, err)
	assert.True(t, info.HasAudio)
	assert.Equal(t, "opus", info.Codec)
	assert.Equal(t, 48000, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, 3500*time.Millisecond, info.Duration)
	assert.Equal(t, int64(168000), info.Samples)
}

func TestParseFFprobe_FirstAudioStream(t *testing.T) {
	info, err := parseFFprobe([]byte(ffprobeVideoFirst))
	require.NoError(t, err)
	assert.True(t, info.HasAudio)
	assert.Equal(t, "aac", info.Codec)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	// stream has no duration, format does
	assert.Equal(t, 2*time.Second, info.Duration)
}

func TestParseFFprobe_MissingSampleRate(t *testing.T) {
	info, err := parseFFprobe([]byte(ffprobeNoRate))
	require.NoError(t, err)
	assert.True(t, info.HasAudio)
	assert.Zero(t, info.SampleRate)

	sr, fallback := info.SampleRateOr(DefaultSampleRate)
	assert.Equal(t, 44100, sr)
	assert.True(t, fallback)
}

func TestParseFFprobe_NoAudio(t *testing.T) {
	info, err := parseFFprobe([]byte(ffprobeNoAudio))
	require.NoError(t, err)
	assert.False(t, info.HasAudio)

	sr, fallback := info.SampleRateOr(DefaultSampleRate)
	assert.Equal(t, DefaultSampleRate, sr)
	assert.True(t, fallback)
}

func TestParseFFprobe_Invalid(t *testing.T) {
	_, err := parseFFprobe([]byte("Invalid data found when processing input"))
	assert.Error(t, err)
}

func TestSampleRateOr(t *testing.T) {
	sr, fallback := StreamInfo{SampleRate: 22050}.SampleRateOr(44100)
	assert.Equal(t, 22050, sr)
	assert.False(t, fallback)
}

const soxInfo = `
Input File     : 'tone.wav'
Channels       : 1
Sample Rate    : 44100
Precision      : 16-bit
Duration       : 00:00:02.00 = 88200 samples ~ 150 CDDA sectors
File Size      : 176k
Bit Rate       : 706k
Sample Encoding: 16-bit Signed Integer PCM

`

func TestParseSoxInfo(t *testing.T) {
	info, err := parseSoxInfo(soxInfo)
	require.NoError(t, err)
	assert.True(t, info.HasAudio)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, int64(88200), info.Samples)
	assert.Equal(t, 2*time.Second, info.Duration)
	assert.Equal(t, "16-bit Signed Integer PCM", info.Codec)
}

func TestParseSoxInfo_Unrecognised(t *testing.T) {
	_, err := parseSoxInfo("sox FAIL formats: can't open input file `x': No such file or directory")
	assert.Error(t, err)
}
