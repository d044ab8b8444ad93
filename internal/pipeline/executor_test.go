package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"coverforge/internal/manifest"
	"coverforge/internal/services"
)

func newTestExecutor(t *testing.T) (*Executor, *manifest.Store) {
	t.Helper()
	store, err := manifest.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewExecutor(nil, store, nil), store
}

func touchFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

func TestExecutorRunsAndRecordsCompletion(t *testing.T) {
	exec, store := newTestExecutor(t)
	ctx := context.Background()
	if err := store.UpsertRun(ctx, "run1", "src", "song"); err != nil {
		t.Fatalf("upsert run: %v", err)
	}

	dir := t.TempDir()
	output := filepath.Join(dir, "out.wav")
	st := Stage{
		Key:     "demo",
		Label:   "Demo",
		Inputs:  func() []string { return nil },
		Outputs: func() []string { return []string{output} },
		Run: func(context.Context) error {
			touchFile(t, output)
			return nil
		},
	}

	if err := exec.Run(ctx, "run1", st); err != nil {
		t.Fatalf("run: %v", err)
	}
	if exec.Invocations("demo") != 1 {
		t.Fatalf("expected 1 invocation, got %d", exec.Invocations("demo"))
	}

	completed, err := store.Completed(ctx, "run1", "demo")
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if !completed {
		t.Fatal("expected stage marked completed")
	}
}

func TestExecutorSkipsCachedStage(t *testing.T) {
	exec, store := newTestExecutor(t)
	ctx := context.Background()
	if err := store.UpsertRun(ctx, "run1", "src", "song"); err != nil {
		t.Fatalf("upsert run: %v", err)
	}

	dir := t.TempDir()
	output := filepath.Join(dir, "out.wav")
	st := Stage{
		Key:     "demo",
		Label:   "Demo",
		Inputs:  func() []string { return nil },
		Outputs: func() []string { return []string{output} },
		Run: func(context.Context) error {
			touchFile(t, output)
			return nil
		},
	}

	for i := 0; i < 3; i++ {
		if err := exec.Run(ctx, "run1", st); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if exec.Invocations("demo") != 1 {
		t.Fatalf("expected stage to run once, got %d", exec.Invocations("demo"))
	}
}

func TestExecutorRerunsWhenOutputMissing(t *testing.T) {
	exec, store := newTestExecutor(t)
	ctx := context.Background()
	if err := store.UpsertRun(ctx, "run1", "src", "song"); err != nil {
		t.Fatalf("upsert run: %v", err)
	}

	dir := t.TempDir()
	output := filepath.Join(dir, "out.wav")
	st := Stage{
		Key:     "demo",
		Label:   "Demo",
		Inputs:  func() []string { return nil },
		Outputs: func() []string { return []string{output} },
		Run: func(context.Context) error {
			touchFile(t, output)
			return nil
		},
	}

	if err := exec.Run(ctx, "run1", st); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := os.Remove(output); err != nil {
		t.Fatalf("remove output: %v", err)
	}
	if err := exec.Run(ctx, "run1", st); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if exec.Invocations("demo") != 2 {
		t.Fatalf("expected 2 invocations after cache invalidation, got %d", exec.Invocations("demo"))
	}
}

func TestExecutorAlwaysRunIgnoresCache(t *testing.T) {
	exec, store := newTestExecutor(t)
	ctx := context.Background()
	if err := store.UpsertRun(ctx, "run1", "src", "song"); err != nil {
		t.Fatalf("upsert run: %v", err)
	}

	dir := t.TempDir()
	output := filepath.Join(dir, "out.wav")
	st := Stage{
		Key:       "demo",
		Label:     "Demo",
		AlwaysRun: true,
		Inputs:    func() []string { return nil },
		Outputs:   func() []string { return []string{output} },
		Run: func(context.Context) error {
			touchFile(t, output)
			return nil
		},
	}

	for i := 0; i < 2; i++ {
		if err := exec.Run(ctx, "run1", st); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if exec.Invocations("demo") != 2 {
		t.Fatalf("expected 2 invocations for always-run stage, got %d", exec.Invocations("demo"))
	}
}

func TestExecutorMissingInputFailsWithMarker(t *testing.T) {
	exec, store := newTestExecutor(t)
	ctx := context.Background()
	if err := store.UpsertRun(ctx, "run1", "src", "song"); err != nil {
		t.Fatalf("upsert run: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "absent.wav")
	st := Stage{
		Key:     "demo",
		Label:   "Demo",
		Inputs:  func() []string { return []string{missing} },
		Outputs: func() []string { return nil },
		Run:     func(context.Context) error { return nil },
	}

	err := exec.Run(ctx, "run1", st)
	if !errors.Is(err, services.ErrMissingArtifact) {
		t.Fatalf("expected missing artifact error, got %v", err)
	}
	if exec.Invocations("demo") != 0 {
		t.Fatal("stage body should not run on precondition failure")
	}
}

func TestExecutorPostconditionFailure(t *testing.T) {
	exec, store := newTestExecutor(t)
	ctx := context.Background()
	if err := store.UpsertRun(ctx, "run1", "src", "song"); err != nil {
		t.Fatalf("upsert run: %v", err)
	}

	output := filepath.Join(t.TempDir(), "never-written.wav")
	st := Stage{
		Key:     "demo",
		Label:   "Demo",
		Inputs:  func() []string { return nil },
		Outputs: func() []string { return []string{output} },
		Run:     func(context.Context) error { return nil },
	}

	err := exec.Run(ctx, "run1", st)
	if !errors.Is(err, services.ErrStageExecution) {
		t.Fatalf("expected stage execution error, got %v", err)
	}

	rec, recErr := store.Stage(ctx, "run1", "demo")
	if recErr != nil {
		t.Fatalf("stage record: %v", recErr)
	}
	if rec == nil || rec.Status != manifest.StatusFailed {
		t.Fatalf("expected failed stage record, got %+v", rec)
	}
}

func TestExecutorRecordsFailure(t *testing.T) {
	exec, store := newTestExecutor(t)
	ctx := context.Background()
	if err := store.UpsertRun(ctx, "run1", "src", "song"); err != nil {
		t.Fatalf("upsert run: %v", err)
	}

	boom := errors.New("engine crashed")
	st := Stage{
		Key:     "demo",
		Label:   "Demo",
		Inputs:  func() []string { return nil },
		Outputs: func() []string { return nil },
		Run:     func(context.Context) error { return boom },
	}

	if err := exec.Run(context.Background(), "run1", st); !errors.Is(err, boom) {
		t.Fatalf("expected engine error to propagate, got %v", err)
	}

	rec, err := store.Stage(ctx, "run1", "demo")
	if err != nil {
		t.Fatalf("stage record: %v", err)
	}
	if rec == nil || rec.Status != manifest.StatusFailed || rec.ErrorText == "" {
		t.Fatalf("expected failed record with error text, got %+v", rec)
	}
}
