package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"coverforge/internal/artifacts"
	"coverforge/internal/cleanup"
	"coverforge/internal/config"
	"coverforge/internal/logging"
	"coverforge/internal/manifest"
	"coverforge/internal/progress"
	"coverforge/internal/runlock"
	"coverforge/internal/services"
	"coverforge/internal/services/fx"
	"coverforge/internal/services/pitch"
	"coverforge/internal/services/rvc"
	"coverforge/internal/services/separator"
	"coverforge/internal/services/ytdlp"
	"coverforge/internal/songid"
)

// State tracks controller lifecycle.
type State string

const (
	StateNotStarted State = "not_started"
	StateResolving  State = "resolving"
	StateExecuting  State = "executing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Base trims applied to the mix inputs before user gain adjustments, in dB.
const (
	mixLeadTrimDB   = -4
	mixBackupTrimDB = -6
	mixInstTrimDB   = -7
)

// Engines bundles the external tool clients the pipeline drives.
type Engines struct {
	Fetcher   ytdlp.Client
	Separator separator.Client
	Converter rvc.Client
	FX        fx.Client
	Shifter   pitch.Client
}

// Request carries every per-invocation parameter for one cover run.
type Request struct {
	Song  string
	Model string
	Pitch int

	IndexRate      float64
	FilterRadius   int
	RMSMixRate     float64
	F0Method       string
	CrepeHopLength int
	Protect        float64

	PitchAll int

	MainGain   int
	BackupGain int
	InstGain   int

	ReverbRoomSize float64
	ReverbWetness  float64
	ReverbDryness  float64
	ReverbDamping  float64

	OutputFormat     string
	KeepIntermediate bool
}

// RequestFromConfig seeds a request with the configured tunable defaults.
func RequestFromConfig(cfg *config.Config) Request {
	return Request{
		IndexRate:      cfg.Conversion.IndexRate,
		FilterRadius:   cfg.Conversion.FilterRadius,
		RMSMixRate:     cfg.Conversion.RMSMixRate,
		F0Method:       cfg.Conversion.F0Method,
		CrepeHopLength: cfg.Conversion.CrepeHopLength,
		Protect:        cfg.Conversion.Protect,
		MainGain:       cfg.Output.MainGain,
		BackupGain:     cfg.Output.BackupGain,
		InstGain:       cfg.Output.InstGain,
		ReverbRoomSize: cfg.Reverb.RoomSize,
		ReverbWetness:  cfg.Reverb.Wetness,
		ReverbDryness:  cfg.Reverb.Dryness,
		ReverbDamping:  cfg.Reverb.Damping,
		OutputFormat:   cfg.Output.Format,
	}
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Song) == "" || strings.TrimSpace(r.Model) == "" {
		return services.Wrap(services.ErrInvalidInput, "resolve", "validate request",
			"song input and voice model are required", nil)
	}
	return nil
}

// convertKey builds the structured cache key shared by both conversions.
// The pitch applied to the voice includes the global transposition.
func (r Request) convertKey() artifacts.ConvertKey {
	return artifacts.ConvertKey{
		Model:        r.Model,
		Pitch:        r.Pitch + r.PitchAll,
		IndexRate:    r.IndexRate,
		FilterRadius: r.FilterRadius,
		RMSMixRate:   r.RMSMixRate,
		Protect:      r.Protect,
		F0Method:     r.F0Method,
		HopLength:    r.CrepeHopLength,
	}
}

// Result reports a completed run.
type Result struct {
	RunID            string
	RunDir           string
	Cover            string
	CoverWithBacking string
}

// Controller sequences the pipeline for one song at a time.
type Controller struct {
	cfg      *config.Config
	store    *artifacts.Store
	manifest *manifest.Store
	engines  Engines
	logger   *slog.Logger
	sink     progress.Sink
	exec     *Executor

	state State
	stage string
}

// New constructs a controller. A nil logger or sink disables the
// respective output.
func New(cfg *config.Config, store *artifacts.Store, man *manifest.Store, engines Engines, logger *slog.Logger, sink progress.Sink) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = progress.Silent{}
	}
	return &Controller{
		cfg:      cfg,
		store:    store,
		manifest: man,
		engines:  engines,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		sink:     sink,
		exec:     NewExecutor(logger, man, sink),
		state:    StateNotStarted,
	}
}

// State reports the controller's current lifecycle state.
func (c *Controller) State() State { return c.state }

// Executor exposes the stage executor, whose invocation counters back the
// warm-cache assertions in tests.
func (c *Controller) Executor() *Executor { return c.exec }

// Run executes the full pipeline for the request and returns the two
// terminal mix paths.
func (c *Controller) Run(ctx context.Context, req Request) (*Result, error) {
	result, err := c.run(ctx, req)
	if err != nil {
		c.state = StateFailed
		return nil, err
	}
	c.state = StateCompleted
	return result, nil
}

func (c *Controller) run(ctx context.Context, req Request) (*Result, error) {
	c.state = StateResolving
	if err := req.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.OutputFormat) == "" {
		req.OutputFormat = c.cfg.Output.Format
	}

	ref, err := songid.Resolve(req.Song)
	if err != nil {
		return nil, err
	}

	runDir, err := c.store.EnsureRunDir(ref.RunID)
	if err != nil {
		return nil, fmt.Errorf("prepare run directory: %w", err)
	}

	lock := runlock.New(runDir)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			c.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	ctx = services.WithRunID(ctx, ref.RunID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)

	if err := c.manifest.UpsertRun(ctx, ref.RunID, ref.Input, ""); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	c.sink.Report("Starting AI cover generation", 0)
	logger.Info("run started",
		logging.String("source", ref.Input),
		logging.String("kind", string(ref.Kind)),
		logging.String("voice_model", req.Model),
		logging.Int("pitch", req.Pitch),
		logging.Int("pitch_all", req.PitchAll),
	)

	run := &artifacts.Run{Dir: runDir}
	if base, ok := artifacts.DiscoverBase(runDir); ok {
		run.Base = base
	}

	c.state = StateExecuting

	// Discovery re-runs iff any of the four discovery artifacts is
	// missing. The keep-intermediate flag never forces regeneration.
	if run.Base == "" || !artifacts.AllExist(run.Discovery()...) {
		bind := &binding{}
		c.rebindFetched(ctx, ref.RunID, run, bind)
		for _, st := range c.discoveryStages(ref, run, bind) {
			c.stage = st.Key
			if err := c.exec.Run(ctx, ref.RunID, st); err != nil {
				return nil, err
			}
		}
		if run.Base == "" {
			return nil, services.Wrap(services.ErrStageExecution, StageSeparateVocals, "discover",
				"discovery produced no artifacts", nil)
		}
		if err := c.manifest.UpsertRun(ctx, ref.RunID, ref.Input, run.Base); err != nil {
			return nil, fmt.Errorf("record run base: %w", err)
		}
	} else {
		logger.Info("discovery artifacts cached, skipping separation",
			logging.String("base", run.Base),
		)
	}

	key := req.convertKey()
	for _, st := range c.renderStages(req, *run, key) {
		c.stage = st.Key
		if err := c.exec.Run(ctx, ref.RunID, st); err != nil {
			return nil, err
		}
	}

	if !req.KeepIntermediate {
		c.sink.Report("Removing intermediate files", 0.95)
		cleanup.Run(logger, cleanup.PlanFor(*run, key, req.PitchAll, req.Model, req.OutputFormat))
	}

	result := &Result{
		RunID:            ref.RunID,
		RunDir:           runDir,
		Cover:            run.Cover(req.Model, req.OutputFormat),
		CoverWithBacking: run.CoverWithBacking(req.Model, req.OutputFormat),
	}
	c.sink.Report("AI cover generated", 1)
	logger.Info("run completed",
		logging.String("cover", result.Cover),
		logging.String("cover_with_backing", result.CoverWithBacking),
	)
	return result, nil
}

// rebindFetched restores the fetch stage's output binding from the
// manifest so a resumed run does not re-download the source.
func (c *Controller) rebindFetched(ctx context.Context, runID string, run *artifacts.Run, bind *binding) {
	rec, err := c.manifest.Stage(ctx, runID, StageFetch)
	if err != nil || rec == nil || rec.Status != manifest.StatusCompleted {
		return
	}
	if len(rec.Outputs) != 1 || !artifacts.Exists(rec.Outputs[0]) {
		return
	}
	bind.fetched = rec.Outputs[0]
	if run.Base == "" {
		run.Base = stem(bind.fetched)
	}
}

// binding holds paths the fetch stage resolves at run time.
type binding struct {
	fetched string
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
