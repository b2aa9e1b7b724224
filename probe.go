package pitchmix

import (
	"bufio"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultSampleRate is used when the input carries no sample rate.
const DefaultSampleRate = 44100

// StreamInfo is the metadata of the first audio stream of a file.
type StreamInfo struct {
	HasAudio   bool          `json:"has_audio" yaml:"has_audio"`
	Codec      string        `json:"codec,omitempty" yaml:"codec,omitempty"`
	SampleRate int           `json:"sample_rate" yaml:"sample_rate"`
	Channels   int           `json:"channels,omitempty" yaml:"channels,omitempty"`
	Samples    int64         `json:"samples,omitempty" yaml:"samples,omitempty"`
	Duration   time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// SampleRateOr returns the probed sample rate, or fallback when the stream
// had none. The second result reports whether the fallback was used.
func (s StreamInfo) SampleRateOr(fallback int) (int, bool) {
	if s.SampleRate > 0 {
		return s.SampleRate, false
	}
	return fallback, true
}

// probeData mirrors the parts of `ffprobe -print_format json` we read.
type probeData struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
	DurationTS int64  `json:"duration_ts"`
}

type probeFormat struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// parseFFprobe decodes ffprobe JSON output. Missing or malformed numeric
// fields are left at zero; only undecodable JSON is an error.
func parseFFprobe(data []byte) (StreamInfo, error) {
	var pd probeData
	if err := json.Unmarshal(data, &pd); err != nil {
		return StreamInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	var info StreamInfo
	for _, s := range pd.Streams {
		if s.CodecType != "audio" {
			continue
		}
		info.HasAudio = true
		info.Codec = s.CodecName
		info.Channels = s.Channels
		if sr, err := strconv.Atoi(strings.TrimSpace(s.SampleRate)); err == nil && sr > 0 {
			info.SampleRate = sr
		}
		info.Duration = parseSeconds(s.Duration)
		if info.Duration == 0 {
			info.Duration = parseSeconds(pd.Format.Duration)
		}
		if info.SampleRate > 0 && info.Duration > 0 {
			info.Samples = int64(info.Duration.Seconds()*float64(info.SampleRate) + 0.5)
		}
		break
	}

	return info, nil
}

var soxSamplesPattern = regexp.MustCompile(`=\s*(\d+)\s+samples`)

// parseSoxInfo reads the key/value report printed by `sox --i`.
func parseSoxInfo(out string) (StreamInfo, error) {
	var info StreamInfo
	seen := false

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Input File":
			seen = true
		case "Channels":
			info.Channels, _ = strconv.Atoi(value)
			info.HasAudio = info.Channels > 0
		case "Sample Rate":
			if sr, err := strconv.Atoi(value); err == nil && sr > 0 {
				info.SampleRate = sr
			}
		case "Sample Encoding":
			info.Codec = value
		case "Duration":
			if m := soxSamplesPattern.FindStringSubmatch(value); m != nil {
				info.Samples, _ = strconv.ParseInt(m[1], 10, 64)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return StreamInfo{}, err
	}
	if !seen {
		return StreamInfo{}, fmt.Errorf("unrecognised sox --i output")
	}

	if info.Samples > 0 && info.SampleRate > 0 {
		info.Duration = time.Duration(float64(info.Samples) / float64(info.SampleRate) * float64(time.Second))
	}
	return info, nil
}

func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
