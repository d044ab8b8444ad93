package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"coverforge/internal/artifacts"
	"coverforge/internal/logging"
	"coverforge/internal/manifest"
	"coverforge/internal/progress"
	"coverforge/internal/services"
)

// Executor runs stages with cache skipping, manifest bookkeeping, and
// stage lifecycle logging.
type Executor struct {
	logger   *slog.Logger
	manifest *manifest.Store
	sink     progress.Sink

	mu          sync.Mutex
	invocations map[string]int
}

// NewExecutor constructs an executor. A nil sink disables progress
// reporting; a nil logger disables logging.
func NewExecutor(logger *slog.Logger, store *manifest.Store, sink progress.Sink) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = progress.Silent{}
	}
	return &Executor{
		logger:      logger,
		manifest:    store,
		sink:        sink,
		invocations: make(map[string]int),
	}
}

// Invocations reports how many times the given stage actually executed
// (skipped runs do not count).
func (e *Executor) Invocations(stageKey string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invocations[stageKey]
}

// Run executes one stage. A stage is skipped when the manifest marks it
// completed and every declared output file still exists; it runs when at
// least one output is absent.
func (e *Executor) Run(ctx context.Context, runID string, st Stage) error {
	stageCtx := logging.WithStage(ctx, st.Key)
	logger := logging.WithContext(stageCtx, e.logger)

	if !st.AlwaysRun {
		cached, err := e.cached(stageCtx, runID, st.Key, st.Outputs())
		if err != nil {
			return err
		}
		if cached {
			logger.Debug("stage skipped",
				logging.String(logging.FieldEventType, "stage_skipped"),
				logging.String("reason", "outputs cached"),
			)
			return nil
		}
	}

	e.sink.Report(st.Label, st.Fraction)

	if st.Inputs != nil {
		if missing := artifacts.MissingOutputs(st.Inputs()...); len(missing) > 0 {
			err := services.Wrap(services.ErrMissingArtifact, st.Key, "precondition",
				fmt.Sprintf("missing inputs: %s", strings.Join(missing, ", ")), nil)
			return e.fail(stageCtx, logger, runID, st.Key, err)
		}
	}

	if err := e.manifest.StartStage(stageCtx, runID, st.Key); err != nil {
		return fmt.Errorf("record stage start: %w", err)
	}
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
	)
	started := time.Now()

	e.mu.Lock()
	e.invocations[st.Key]++
	e.mu.Unlock()

	if err := st.Run(stageCtx); err != nil {
		return e.fail(stageCtx, logger, runID, st.Key, err)
	}

	// Outputs re-evaluated after the run: the fetch stage binds its
	// output path while running.
	outputs := st.Outputs()
	if missing := artifacts.MissingOutputs(outputs...); len(missing) > 0 {
		err := services.Wrap(services.ErrStageExecution, st.Key, "postcondition",
			fmt.Sprintf("outputs missing after stage: %s", strings.Join(missing, ", ")), nil)
		return e.fail(stageCtx, logger, runID, st.Key, err)
	}

	if err := e.manifest.CompleteStage(stageCtx, runID, st.Key, outputs); err != nil {
		return fmt.Errorf("record stage completion: %w", err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", time.Since(started)),
	)
	return nil
}

func (e *Executor) cached(ctx context.Context, runID, stageKey string, outputs []string) (bool, error) {
	if len(outputs) == 0 {
		return false, nil
	}
	completed, err := e.manifest.Completed(ctx, runID, stageKey)
	if err != nil {
		return false, fmt.Errorf("check stage completion: %w", err)
	}
	return completed && artifacts.AllExist(outputs...), nil
}

func (e *Executor) fail(ctx context.Context, logger *slog.Logger, runID, stageKey string, stageErr error) error {
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.Error(stageErr),
	)
	if err := e.manifest.FailStage(ctx, runID, stageKey, services.Message(stageErr)); err != nil {
		logger.Error("failed to record stage failure", logging.Error(err))
	}
	return stageErr
}
