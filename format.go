package pitchmix

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	TYPE_WAV = "wav"

	CODEC_PCM_S16LE = "pcm_s16le"
	SIGNED_INTEGER  = "signed-integer"

	// OutputSuffix marks a file as processed.
	OutputSuffix = "_filtered"

	defaultBaseName = "audio"
	defaultInputExt = ".bin"
)

// OutputFormat describes the container and sample encoding of the output.
type OutputFormat struct {
	Type     string // container and file extension, e.g. "wav"
	Codec    string // ffmpeg audio codec, e.g. "pcm_s16le"
	Encoding string // SoX encoding, e.g. "signed-integer"
	BitDepth int    // bits per sample
}

// WAV_PCM16 is the fixed intermediate output: 16-bit little-endian PCM WAV.
var WAV_PCM16 = OutputFormat{
	Type:     TYPE_WAV,
	Codec:    CODEC_PCM_S16LE,
	Encoding: SIGNED_INTEGER,
	BitDepth: 16,
}

// Ext returns the file extension including the dot.
func (f OutputFormat) Ext() string {
	return "." + f.Type
}

// FFmpegArgs returns output options for ffmpeg-go KwArgs.
func (f OutputFormat) FFmpegArgs() map[string]any {
	args := map[string]any{}
	if f.Type != "" {
		args["f"] = f.Type
	}
	if f.Codec != "" {
		args["c:a"] = f.Codec
	}
	return args
}

// SoxArgs returns SoX output format options.
func (f OutputFormat) SoxArgs() []string {
	var args []string
	if f.Type != "" {
		args = append(args, "-t", f.Type)
	}
	if f.Encoding != "" {
		args = append(args, "-e", f.Encoding)
	}
	if f.BitDepth > 0 {
		args = append(args, "-b", fmt.Sprintf("%d", f.BitDepth))
	}
	return args
}

// Validate checks the format has a container type.
func (f OutputFormat) Validate() error {
	if f.Type == "" {
		return fmt.Errorf("output format type is required")
	}
	if f.BitDepth < 0 {
		return fmt.Errorf("bit depth must not be negative")
	}
	return nil
}

// OutputName derives "<base>_filtered.<ext>" from the declared original name.
// Any directory part and the extension of originalName are dropped.
func OutputName(originalName string, format OutputFormat) string {
	return baseName(originalName) + OutputSuffix + format.Ext()
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// InputExt returns a safe lower-case extension hint taken from originalName,
// or ".bin" when none is usable.
func InputExt(originalName string) string {
	_, ext := splitExt(filepath.Base(normalizeName(originalName)))
	ext = strings.ToLower(ext)
	if !extPattern.MatchString(ext) {
		return defaultInputExt
	}
	return ext
}

func baseName(originalName string) string {
	name, _ := splitExt(filepath.Base(normalizeName(originalName)))
	name = strings.TrimSpace(name)
	if strings.Trim(name, ".") == "" || name == string(filepath.Separator) {
		return defaultBaseName
	}
	return name
}

// splitExt splits name into stem and extension. Leading dots belong to the
// stem, so ".hidden" has no extension while ".hidden.ogg" has ".ogg".
func splitExt(name string) (stem, ext string) {
	if !strings.Contains(strings.TrimLeft(name, "."), ".") {
		return name, ""
	}
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// normalizeName treats both slash styles as separators; names often come
// from remote clients.
func normalizeName(name string) string {
	return filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
}
