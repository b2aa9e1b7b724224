package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pitchmix "github.com/thadeu/go-pitchmix"
)

func TestNewGraphReport(t *testing.T) {
	g, err := pitchmix.BuildFilterGraph(44100, pitchmix.DefaultVoices())
	require.NoError(t, err)

	report := newGraphReport(g)
	assert.Equal(t, 44100, report.SampleRate)
	assert.Equal(t, g.String(), report.FilterComplex)
	require.Len(t, report.Branches, 3)

	base := report.Branches[0]
	assert.Equal(t, "base", base.Label)
	assert.Nil(t, base.Semitones)
	assert.Equal(t, 44100, base.Rate)
	assert.Empty(t, base.Tempo)

	up := report.Branches[1]
	require.NotNil(t, up.Semitones)
	assert.Equal(t, 4.0, *up.Semitones)
	assert.Equal(t, 55563, up.Rate)
	assert.Len(t, up.Tempo, 1)
}

func TestWriteResult(t *testing.T) {
	report := map[string]any{"engine": "ffmpeg", "available": true}

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, report, true))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ffmpeg", decoded["engine"])

	buf.Reset()
	require.NoError(t, writeResult(&buf, report, false))
	decoded = nil
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["available"])
}

func TestParseVoicesFlag(t *testing.T) {
	v, err := parseVoicesFlag("none")
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.Empty(t, v)

	v, err = parseVoicesFlag("12,-12")
	require.NoError(t, err)
	assert.Equal(t, []float64{12, -12}, v)

	_, err = parseVoicesFlag("high")
	assert.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.wav")
	require.NoError(t, os.WriteFile(src, []byte("RIFF"), 0o600))

	dst := filepath.Join(dir, "nested", "out", "voice_filtered.wav")
	require.NoError(t, copyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))

	assert.Error(t, copyFile(filepath.Join(dir, "missing.wav"), dst))
}

func TestCollectFailure(t *testing.T) {
	used := map[string]bool{}
	item := collect("bad.ogg", pitchmix.Outcome{Err: &pitchmix.ProbeError{Path: "bad.ogg", Err: os.ErrNotExist}}, used)
	assert.Equal(t, "bad.ogg", item.Input)
	assert.Equal(t, "probe", item.Kind)
	assert.Contains(t, item.Error, "bad.ogg")
	assert.Nil(t, item.Result)
	assert.Empty(t, used)
}

func TestClaimName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "x_filtered.wav", claimName(used, "x_filtered.wav"))
	assert.Equal(t, "x_filtered_2.wav", claimName(used, "x_filtered.wav"))
	assert.Equal(t, "x_filtered_3.wav", claimName(used, "x_filtered.wav"))
	assert.Equal(t, "y_filtered.wav", claimName(used, "y_filtered.wav"))
	assert.Equal(t, ".hidden_filtered.wav", claimName(used, ".hidden_filtered.wav"))
	assert.Equal(t, ".hidden_filtered_2.wav", claimName(used, ".hidden_filtered.wav"))
}

// stubEngine probes every file as info and writes the input path as the
// output, failing for inputs whose base name is failOn.
type stubEngine struct {
	info   pitchmix.StreamInfo
	failOn string
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Probe(_ context.Context, _ string) (pitchmix.StreamInfo, error) {
	return e.info, nil
}

func (e *stubEngine) Execute(_ context.Context, _ *pitchmix.FilterGraph, in, out string) error {
	if e.failOn != "" && filepath.Base(in) == e.failOn {
		return errors.New("decoder exploded")
	}
	return os.WriteFile(out, []byte(in), 0o600)
}

// checkedStubEngine also implements pitchmix.Checker.
type checkedStubEngine struct {
	stubEngine
	checkErr error
}

func (e *checkedStubEngine) CheckInstalled(_ context.Context) error { return e.checkErr }

// useEngine points the commands at engine with JSON output captured in the
// returned buffer, restoring the package state when the test ends.
func useEngine(t *testing.T, engine pitchmix.Engine) *bytes.Buffer {
	t.Helper()

	prevFactory, prevStdout, prevConfig, prevJSON := engineFactory, stdout, globalConfig, outputJSON
	t.Cleanup(func() {
		engineFactory, stdout, globalConfig, outputJSON = prevFactory, prevStdout, prevConfig, prevJSON
		processOutput, processName, batchDir = "", "", "."
	})

	cfg := pitchmix.DefaultConfig()
	cfg.TempDir = t.TempDir()
	globalConfig = cfg
	engineFactory = func(pitchmix.Config, *pitchmix.ResourceMonitor) (pitchmix.Engine, error) {
		return engine, nil
	}

	buf := &bytes.Buffer{}
	stdout = buf
	outputJSON = true
	return buf
}

func writeInput(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("OggS"), 0o600))
	return path
}

func TestProcessCommand(t *testing.T) {
	out := useEngine(t, &checkedStubEngine{stubEngine: stubEngine{info: pitchmix.StreamInfo{HasAudio: true, SampleRate: 48000}}})
	dir := t.TempDir()
	input := writeInput(t, filepath.Join(dir, "voice.ogg"))
	processOutput = filepath.Join(dir, "mixed", "chord.wav")

	require.NoError(t, processCmd.RunE(processCmd, []string{input}))

	var res pitchmix.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "voice_filtered.wav", res.OutputName)
	assert.Equal(t, processOutput, res.OutputPath)
	assert.Equal(t, 48000, res.SampleRate)
	assert.False(t, res.SampleRateFallback)
	assert.Equal(t, []float64{4, -3}, res.Voices)
	assert.FileExists(t, processOutput)

	entries, err := os.ReadDir(getConfig().TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessCommand_DeclaredName(t *testing.T) {
	out := useEngine(t, &stubEngine{})
	dir := t.TempDir()
	input := writeInput(t, filepath.Join(dir, "upload.bin"))
	processOutput = filepath.Join(dir, "out.wav")
	processName = "meeting notes.m4a"

	require.NoError(t, processCmd.RunE(processCmd, []string{input}))

	var res pitchmix.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "meeting notes_filtered.wav", res.OutputName)
	assert.Equal(t, pitchmix.DefaultSampleRate, res.SampleRate)
	assert.True(t, res.SampleRateFallback)
}

func TestProcessCommand_EngineNotInstalled(t *testing.T) {
	missing := errors.New("ffmpeg not found")
	useEngine(t, &checkedStubEngine{checkErr: missing})
	input := writeInput(t, filepath.Join(t.TempDir(), "voice.ogg"))

	err := processCmd.RunE(processCmd, []string{input})
	require.Error(t, err)
	assert.ErrorIs(t, err, missing)
	assert.Contains(t, err.Error(), "failed to start stub engine")
}

func TestProcessCommand_MissingInput(t *testing.T) {
	useEngine(t, &stubEngine{})

	err := processCmd.RunE(processCmd, []string{filepath.Join(t.TempDir(), "nope.ogg")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBatchCommand_SameBaseName(t *testing.T) {
	out := useEngine(t, &stubEngine{info: pitchmix.StreamInfo{HasAudio: true, SampleRate: 44100}})
	dir := t.TempDir()
	inputs := []string{
		writeInput(t, filepath.Join(dir, "a", "x.ogg")),
		writeInput(t, filepath.Join(dir, "b", "x.ogg")),
		writeInput(t, filepath.Join(dir, "y.ogg")),
	}
	batchDir = filepath.Join(dir, "mixed")

	require.NoError(t, batchCmd.RunE(batchCmd, inputs))

	var items []batchItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	require.Len(t, items, 3)

	want := []string{"x_filtered.wav", "x_filtered_2.wav", "y_filtered.wav"}
	for i, item := range items {
		assert.Equal(t, inputs[i], item.Input)
		assert.Empty(t, item.Error)
		assert.Equal(t, filepath.Join(batchDir, want[i]), item.Output)
		require.NotNil(t, item.Result)
		assert.Equal(t, item.Output, item.Result.OutputPath)

		data, err := os.ReadFile(item.Output)
		require.NoError(t, err)
		assert.Equal(t, inputs[i], string(data), "each input keeps its own output")
	}
}

func TestBatchCommand_PartialFailure(t *testing.T) {
	out := useEngine(t, &stubEngine{info: pitchmix.StreamInfo{HasAudio: true, SampleRate: 44100}, failOn: "bad.ogg"})
	dir := t.TempDir()
	inputs := []string{
		writeInput(t, filepath.Join(dir, "good.ogg")),
		writeInput(t, filepath.Join(dir, "bad.ogg")),
	}
	batchDir = filepath.Join(dir, "mixed")

	err := batchCmd.RunE(batchCmd, inputs)
	require.Error(t, err)
	assert.Equal(t, "1 of 2 inputs failed", err.Error())

	var items []batchItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Empty(t, items[0].Error)
	assert.FileExists(t, filepath.Join(batchDir, "good_filtered.wav"))
	assert.Equal(t, "engine_execution", items[1].Kind)
	assert.Contains(t, items[1].Error, "decoder exploded")
	assert.NoFileExists(t, filepath.Join(batchDir, "bad_filtered.wav"))
}

func TestProbeCommand(t *testing.T) {
	out := useEngine(t, &stubEngine{info: pitchmix.StreamInfo{HasAudio: true, Codec: "opus"}})

	require.NoError(t, probeCmd.RunE(probeCmd, []string{"voice.ogg"}))

	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "stub", report["engine"])
	assert.Equal(t, "voice.ogg", report["input"])
	assert.Equal(t, float64(pitchmix.DefaultSampleRate), report["sample_rate"])
	assert.Equal(t, true, report["sample_rate_fallback"])
}

func TestCheckCommand(t *testing.T) {
	out := useEngine(t, &checkedStubEngine{})

	require.NoError(t, checkCmd.RunE(checkCmd, nil))

	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "stub", report["engine"])
	assert.Equal(t, true, report["available"])
}

func TestCheckCommand_Failures(t *testing.T) {
	useEngine(t, &stubEngine{})
	err := checkCmd.RunE(checkCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be checked")

	missing := errors.New("sox not found")
	useEngine(t, &checkedStubEngine{checkErr: missing})
	assert.ErrorIs(t, checkCmd.RunE(checkCmd, nil), missing)
}
