package pitchmix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var errNoAudioStream = errors.New("no audio stream")

// Job is one transformation request. It lives for a single processing call.
type Job struct {
	ID           string
	InputPath    string
	OriginalName string
	SampleRate   int
	Voices       []Voice
	OutputPath   string
	OutputName   string
}

// Result describes a finished job.
type Result struct {
	JobID              string        `json:"job_id" yaml:"job_id"`
	OutputPath         string        `json:"output_path" yaml:"output_path"`
	OutputName         string        `json:"output_name" yaml:"output_name"`
	SampleRate         int           `json:"sample_rate" yaml:"sample_rate"`
	SampleRateFallback bool          `json:"sample_rate_fallback,omitempty" yaml:"sample_rate_fallback,omitempty"`
	Voices             []float64     `json:"voices" yaml:"voices"`
	Elapsed            time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Output is a Result whose file lives in a temp workspace. Close removes
// it; calling Close more than once is harmless.
type Output struct {
	Result
	ws *Workspace
}

// Close removes the output file.
func (o *Output) Close() error {
	o.ws.Release()
	return nil
}

// Outcome is the settled value of ProcessAudioAsync.
type Outcome struct {
	Output *Output
	Err    error
}

// InputFunc materializes the job input at inputPath, e.g. by downloading it.
type InputFunc func(ctx context.Context, inputPath string) error

// ConsumeFunc reads a finished job's output before it is removed.
type ConsumeFunc func(ctx context.Context, res Result) error

// Processor runs pitch-mix jobs against an Engine. It holds no per-job
// state and is safe for concurrent use.
type Processor struct {
	cfg     Config
	voices  []Voice
	engine  Engine
	pool    *Pool
	breaker *CircuitBreaker
	retry   RetryConfig
	monitor *ResourceMonitor
	logger  *slog.Logger
}

// Option customizes a Processor.
type Option func(*Processor)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// WithPool shares a worker pool between processors.
func WithPool(pool *Pool) Option {
	return func(p *Processor) { p.pool = pool }
}

// WithCircuitBreaker sets the breaker guarding engine invocations.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Processor) { p.breaker = cb }
}

// WithRetryConfig sets retries for engine start failures.
func WithRetryConfig(rc RetryConfig) Option {
	return func(p *Processor) { p.retry = rc }
}

// WithMonitor sets the monitor receiving process and job statistics.
func WithMonitor(m *ResourceMonitor) Option {
	return func(p *Processor) { p.monitor = m }
}

// New builds a Processor with the engine selected by cfg and verifies the
// engine binaries. A missing engine is reported as ErrEngineUnavailable and
// should abort startup.
func New(ctx context.Context, cfg Config, opts ...Option) (*Processor, error) {
	p, err := newProcessor(cfg, opts)
	if err != nil {
		return nil, err
	}

	engine, err := NewEngine(cfg, p.monitor, p.logger)
	if err != nil {
		return nil, err
	}
	if c, ok := engine.(Checker); ok {
		if err := c.CheckInstalled(ctx); err != nil {
			return nil, err
		}
	}

	p.engine = engine
	return p, nil
}

// NewWithEngine builds a Processor around a caller-supplied engine.
func NewWithEngine(cfg Config, engine Engine, opts ...Option) (*Processor, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: nil engine", ErrEngineUnavailable)
	}
	p, err := newProcessor(cfg, opts)
	if err != nil {
		return nil, err
	}
	p.engine = engine
	return p, nil
}

func newProcessor(cfg Config, opts []Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Processor{
		cfg:     cfg,
		voices:  cfg.VoiceList(),
		retry:   DefaultRetryConfig(),
		monitor: NewResourceMonitor(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.pool == nil {
		p.pool = NewPool(cfg.MaxWorkers)
	}
	if p.breaker == nil {
		p.breaker = NewCircuitBreaker()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Engine returns the engine jobs run on.
func (p *Processor) Engine() Engine { return p.engine }

// Config returns a copy of the configuration.
func (p *Processor) Config() Config { return p.cfg }

// Voices returns the voices mixed over the original.
func (p *Processor) Voices() []Voice { return append([]Voice(nil), p.voices...) }

// Stats returns monitor statistics.
func (p *Processor) Stats() MonitorStats { return p.monitor.GetStats() }

// ProcessAudio transforms inputPath, which stays owned by the caller. The
// returned Output must be closed to remove the output file; on error
// nothing is left behind.
func (p *Processor) ProcessAudio(ctx context.Context, inputPath, originalName string) (*Output, error) {
	ws, err := NewWorkspace(p.cfg.TempDir, p.logger)
	if err != nil {
		return nil, err
	}

	outputPath, err := ws.Allocate("out", WAV_PCM16.Ext())
	if err != nil {
		ws.Release()
		return nil, err
	}

	res, err := p.process(ctx, p.newJob(ws.ID(), inputPath, originalName, outputPath))
	if err != nil {
		ws.Release()
		return nil, err
	}
	return &Output{Result: res, ws: ws}, nil
}

// ProcessAudioAsync runs ProcessAudio in its own goroutine. The channel
// receives exactly one Outcome and is then closed.
func (p *Processor) ProcessAudioAsync(ctx context.Context, inputPath, originalName string) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		out, err := p.ProcessAudio(ctx, inputPath, originalName)
		ch <- Outcome{Output: out, Err: err}
	}()
	return ch
}

// Run executes a job with fully scoped temp files: fill writes the input
// into a fresh temp path, the job runs, consume reads the result, and both
// temp files are removed on every exit path.
func (p *Processor) Run(ctx context.Context, originalName string, fill InputFunc, consume ConsumeFunc) error {
	ws, err := NewWorkspace(p.cfg.TempDir, p.logger)
	if err != nil {
		return err
	}
	defer ws.Release()

	inputPath, err := ws.Allocate("in", InputExt(originalName))
	if err != nil {
		return err
	}
	outputPath, err := ws.Allocate("out", WAV_PCM16.Ext())
	if err != nil {
		return err
	}

	if err := fill(ctx, inputPath); err != nil {
		if KindOf(err) == KindUnknown {
			err = &FileSystemError{Op: "fill input", Path: inputPath, Err: err}
		}
		return err
	}

	res, err := p.process(ctx, p.newJob(ws.ID(), inputPath, originalName, outputPath))
	if err != nil {
		return err
	}

	if consume == nil {
		return nil
	}
	return consume(ctx, res)
}

// RunReader is Run with the input read from r.
func (p *Processor) RunReader(ctx context.Context, r io.Reader, originalName string, consume ConsumeFunc) error {
	return p.Run(ctx, originalName, func(_ context.Context, inputPath string) error {
		return writeNewFile(inputPath, r)
	}, consume)
}

// RunFile is Run with the input copied from path. An empty originalName
// defaults to the base name of path.
func (p *Processor) RunFile(ctx context.Context, path, originalName string, consume ConsumeFunc) error {
	if originalName == "" {
		originalName = filepath.Base(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return &ProbeError{Path: path, Err: err}
	}
	defer f.Close()

	return p.RunReader(ctx, f, originalName, consume)
}

func (p *Processor) newJob(id, inputPath, originalName, outputPath string) *Job {
	return &Job{
		ID:           id,
		InputPath:    inputPath,
		OriginalName: originalName,
		Voices:       p.voices,
		OutputPath:   outputPath,
		OutputName:   OutputName(originalName, WAV_PCM16),
	}
}

// process probes, builds the graph and runs the engine for one job.
func (p *Processor) process(ctx context.Context, job *Job) (res Result, err error) {
	start := time.Now()
	usedFallback := false
	defer func() { p.monitor.RecordJob(err, usedFallback) }()

	if timeout := p.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log := p.logger.With("job_id", job.ID, "engine", p.engine.Name(), "input", job.InputPath)

	if err := p.pool.Acquire(ctx); err != nil {
		return Result{}, &EngineExecutionError{Engine: p.engine.Name(), Input: job.InputPath, Err: err}
	}
	defer p.pool.Release()

	info, err := p.engine.Probe(ctx, job.InputPath)
	if err != nil {
		if KindOf(err) != KindProbe {
			err = &ProbeError{Path: job.InputPath, Err: err}
		}
		log.Warn("probe failed", "error", err)
		return Result{}, err
	}
	if p.cfg.StrictProbe && !info.HasAudio {
		err = &ProbeError{Path: job.InputPath, Err: errNoAudioStream}
		log.Warn("probe failed", "error", err)
		return Result{}, err
	}

	job.SampleRate, usedFallback = info.SampleRateOr(p.cfg.FallbackSampleRate)
	if usedFallback {
		log.Warn("sample rate unknown, using fallback",
			"sample_rate", job.SampleRate,
			"has_audio", info.HasAudio)
	}

	graph, err := BuildFilterGraph(job.SampleRate, job.Voices)
	if err != nil {
		log.Error("invalid filter graph", "sample_rate", job.SampleRate, "error", err)
		return Result{}, err
	}
	log.Debug("filter graph built", "sample_rate", job.SampleRate, "graph", graph.String())

	err = p.retry.Do(ctx, func() error {
		return p.breaker.Call(func() error {
			return p.engine.Execute(ctx, graph, job.InputPath, job.OutputPath)
		})
	})
	if err != nil {
		if KindOf(err) == KindUnknown {
			err = &EngineExecutionError{Engine: p.engine.Name(), Input: job.InputPath, Err: err}
		}
		if KindOf(err) == KindFilterGraph {
			log.Error("engine rejected filter graph", "graph", graph.String(), "error", err)
		} else {
			log.Warn("engine execution failed", "error", err)
		}
		return Result{}, err
	}

	res = Result{
		JobID:              job.ID,
		OutputPath:         job.OutputPath,
		OutputName:         job.OutputName,
		SampleRate:         job.SampleRate,
		SampleRateFallback: usedFallback,
		Voices:             semitones(job.Voices),
		Elapsed:            time.Since(start),
	}
	log.Info("job finished",
		"output", res.OutputName,
		"sample_rate", res.SampleRate,
		"voices", len(job.Voices),
		"elapsed", res.Elapsed)
	return res, nil
}

func semitones(voices []Voice) []float64 {
	out := make([]float64, len(voices))
	for i, v := range voices {
		out[i] = v.Semitones
	}
	return out
}
