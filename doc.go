// Package pitchmix superimposes an audio file with pitch-shifted copies of
// itself, using ffmpeg (or SoX) as the processing engine.
//
// Each voice is produced by a rate change to round(sampleRate * 2^(s/12))
// followed by a tempo correction of 2^(-s/12), so the copy keeps the
// original duration while its pitch moves by s semitones. The default voices
// are +4 and -3 semitones. All branches are mixed with the unmodified
// signal, and the mix length is anchored to the original.
//
// # Basic Usage
//
// Create a processor once at startup; a missing engine fails here rather
// than per job:
//
//	proc, err := pitchmix.New(ctx, pitchmix.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Process a file the caller owns:
//
//	out, err := proc.ProcessAudio(ctx, "/data/voice.ogg", "voice.ogg")
//	if err != nil {
//	    return err
//	}
//	defer out.Close() // removes out.OutputPath
//
// Or let the processor own both temp files for the whole job:
//
//	err := proc.RunReader(ctx, body, "voice.ogg", func(ctx context.Context, res pitchmix.Result) error {
//	    return upload(res.OutputPath, res.OutputName)
//	})
//
// # Errors
//
// Failures carry one of four types, classified with KindOf:
//   - *ProbeError: the input could not be read
//   - *FilterGraphError: invalid graph parameters (logic error)
//   - *EngineExecutionError: the engine failed on this input
//   - *FileSystemError: temp path allocation or I/O failed
//
// # Filter Graph
//
// With the default voices and a 44100 Hz input the ffmpeg graph is:
//
//	[0:a]asplit=3[base][v0][v1];
//	[v0]asetrate=55563,aresample=44100,atempo=0.793701[s0];
//	[v1]asetrate=37084,aresample=44100,atempo=1.189207[s1];
//	[base][s0][s1]amix=inputs=3:duration=first:dropout_transition=0[out]
//
// # Requirements
//
// ffmpeg and ffprobe (or sox) must be installed:
//   - macOS: brew install ffmpeg sox
//   - Ubuntu/Debian: apt-get install ffmpeg sox
package pitchmix
