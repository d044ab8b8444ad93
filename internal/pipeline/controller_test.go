package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"coverforge/internal/artifacts"
	"coverforge/internal/config"
	"coverforge/internal/manifest"
	"coverforge/internal/services"
	"coverforge/internal/services/fx"
	"coverforge/internal/services/rvc"
	"coverforge/internal/songid"
)

type fakeFetcher struct {
	calls   int
	lastURL string
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, url, destDir string) (string, error) {
	f.calls++
	f.lastURL = url
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(destDir, "Remote Song.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeSeparator struct {
	calls int
	err   error
}

func (f *fakeSeparator) Separate(_ context.Context, input, modelFilename, outputDir string) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	stemA := filepath.Join(outputDir, fmt.Sprintf("stemA_%d_%s.wav", f.calls, modelFilename))
	stemB := filepath.Join(outputDir, fmt.Sprintf("stemB_%d_%s.wav", f.calls, modelFilename))
	for _, stem := range []string{stemA, stemB} {
		if err := os.WriteFile(stem, []byte("stem"), 0o644); err != nil {
			return "", "", err
		}
	}
	return stemA, stemB, nil
}

type fakeConverter struct {
	calls int
	err   error
	last  rvc.ConvertRequest
}

func (f *fakeConverter) Convert(_ context.Context, req rvc.ConvertRequest) error {
	f.calls++
	f.last = req
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(req.Output, []byte("converted"), 0o644)
}

type fakeFX struct {
	channels    int
	mixCalls    int
	lastTracks  []fx.Track
	effectCalls int
}

func (f *fakeFX) Channels(context.Context, string) (int, error) {
	if f.channels == 0 {
		return 2, nil
	}
	return f.channels, nil
}

func (f *fakeFX) ToStereo(_ context.Context, _, output string) error {
	return os.WriteFile(output, []byte("stereo"), 0o644)
}

func (f *fakeFX) ApplyEffects(_ context.Context, _, output string, _ fx.ReverbParams) error {
	f.effectCalls++
	return os.WriteFile(output, []byte("effected"), 0o644)
}

func (f *fakeFX) Mix(_ context.Context, tracks []fx.Track, output, _ string) error {
	f.mixCalls++
	f.lastTracks = append([]fx.Track(nil), tracks...)
	return os.WriteFile(output, []byte("mixed"), 0o644)
}

type fakeShifter struct {
	calls int
}

func (f *fakeShifter) Shift(_ context.Context, _, output string, _ int) error {
	f.calls++
	return os.WriteFile(output, []byte("shifted"), 0o644)
}

type engineFakes struct {
	fetcher   *fakeFetcher
	separator *fakeSeparator
	converter *fakeConverter
	fx        *fakeFX
	shifter   *fakeShifter
}

func newTestController(t *testing.T) (*Controller, *engineFakes, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.VoiceModelsDir = t.TempDir()

	man, err := manifest.Open(cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	t.Cleanup(func() { man.Close() })

	fakes := &engineFakes{
		fetcher:   &fakeFetcher{},
		separator: &fakeSeparator{},
		converter: &fakeConverter{},
		fx:        &fakeFX{},
		shifter:   &fakeShifter{},
	}
	engines := Engines{
		Fetcher:   fakes.fetcher,
		Separator: fakes.separator,
		Converter: fakes.converter,
		FX:        fakes.fx,
		Shifter:   fakes.shifter,
	}
	ctrl := New(&cfg, artifacts.NewStore(cfg.Paths.OutputDir), man, engines, nil, nil)
	return ctrl, fakes, &cfg
}

func writeLocalSong(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.wav")
	if err := os.WriteFile(path, []byte("local song content"), 0o644); err != nil {
		t.Fatalf("write song: %v", err)
	}
	return path
}

func baseRequest(cfg *config.Config, song string) Request {
	req := RequestFromConfig(cfg)
	req.Song = song
	req.Model = "alice"
	req.Pitch = 2
	return req
}

func TestRunLocalSongEndToEnd(t *testing.T) {
	ctrl, fakes, cfg := newTestController(t)
	song := writeLocalSong(t)

	result, err := ctrl.Run(context.Background(), baseRequest(cfg, song))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if ctrl.State() != StateCompleted {
		t.Fatalf("expected completed state, got %s", ctrl.State())
	}

	hash, err := songid.HashFile(song)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if result.RunID != hash {
		t.Fatalf("expected run id %s, got %s", hash, result.RunID)
	}

	run := artifacts.Run{Dir: result.RunDir, Base: "song"}
	if result.Cover != run.Cover("alice", "mp3") {
		t.Fatalf("unexpected cover path %s", result.Cover)
	}
	for _, path := range []string{result.Cover, result.CoverWithBacking} {
		if !artifacts.Exists(path) {
			t.Errorf("expected terminal mix %s", filepath.Base(path))
		}
	}
	if !artifacts.AllExist(run.Discovery()...) {
		t.Error("expected all discovery artifacts to survive")
	}

	// Intermediates removed by default.
	for _, path := range []string{run.RawVocals(), run.NoReverbVocals(), run.ReverbResidual()} {
		if artifacts.Exists(path) {
			t.Errorf("expected intermediate %s to be removed", filepath.Base(path))
		}
	}

	if fakes.separator.calls != 3 {
		t.Errorf("expected 3 separation passes, got %d", fakes.separator.calls)
	}
	if fakes.converter.calls != 2 {
		t.Errorf("expected 2 conversions, got %d", fakes.converter.calls)
	}
	if fakes.converter.last.Pitch != 2 {
		t.Errorf("expected conversion pitch 2, got %d", fakes.converter.last.Pitch)
	}
}

func TestWarmCacheSkipsSeparationAndConversion(t *testing.T) {
	ctrl, fakes, cfg := newTestController(t)
	song := writeLocalSong(t)
	req := baseRequest(cfg, song)

	if _, err := ctrl.Run(context.Background(), req); err != nil {
		t.Fatalf("first run: %v", err)
	}
	sepCalls, convCalls, fetchCalls := fakes.separator.calls, fakes.converter.calls, fakes.fetcher.calls

	if _, err := ctrl.Run(context.Background(), req); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if fakes.separator.calls != sepCalls {
		t.Errorf("warm run re-ran separation: %d -> %d", sepCalls, fakes.separator.calls)
	}
	if fakes.converter.calls != convCalls {
		t.Errorf("warm run re-ran conversion: %d -> %d", convCalls, fakes.converter.calls)
	}
	if fakes.fetcher.calls != fetchCalls {
		t.Errorf("warm run re-fetched: %d -> %d", fetchCalls, fakes.fetcher.calls)
	}
	for _, stage := range []string{StageSeparateVocals, StageSeparateDereverb, StageSeparateKaraoke, StageConvertLead, StageConvertBacking} {
		if got := ctrl.Executor().Invocations(stage); got != 1 {
			t.Errorf("stage %s ran %d times across warm runs", stage, got)
		}
	}
}

func TestParameterChangeReconvertsWithoutRediscovery(t *testing.T) {
	ctrl, fakes, cfg := newTestController(t)
	song := writeLocalSong(t)
	req := baseRequest(cfg, song)

	result, err := ctrl.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	req.Pitch = 3
	if _, err := ctrl.Run(context.Background(), req); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if fakes.separator.calls != 3 {
		t.Errorf("pitch change re-ran separation: %d calls", fakes.separator.calls)
	}
	if fakes.converter.calls != 4 {
		t.Errorf("expected 4 conversions after parameter change, got %d", fakes.converter.calls)
	}

	run := artifacts.Run{Dir: result.RunDir, Base: "song"}
	for _, pitch := range []int{2, 3} {
		key := req.convertKey()
		key.Pitch = pitch
		if !artifacts.Exists(run.Converted(artifacts.PartLead, key)) {
			t.Errorf("expected converted lead vocals for pitch %d", pitch)
		}
	}
}

func TestResumeAfterConversionFailure(t *testing.T) {
	ctrl, fakes, cfg := newTestController(t)
	song := writeLocalSong(t)
	req := baseRequest(cfg, song)

	boom := errors.New("inference crashed")
	fakes.converter.err = boom
	if _, err := ctrl.Run(context.Background(), req); !errors.Is(err, boom) {
		t.Fatalf("expected conversion failure, got %v", err)
	}
	if ctrl.State() != StateFailed {
		t.Fatalf("expected failed state, got %s", ctrl.State())
	}
	sepCalls := fakes.separator.calls

	fakes.converter.err = nil
	if _, err := ctrl.Run(context.Background(), req); err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if fakes.separator.calls != sepCalls {
		t.Errorf("resume re-ran separation: %d -> %d", sepCalls, fakes.separator.calls)
	}
	if ctrl.State() != StateCompleted {
		t.Fatalf("expected completed state, got %s", ctrl.State())
	}
}

func TestMissingDiscoveryArtifactTriggersRediscovery(t *testing.T) {
	ctrl, fakes, cfg := newTestController(t)
	song := writeLocalSong(t)
	req := baseRequest(cfg, song)

	result, err := ctrl.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	run := artifacts.Run{Dir: result.RunDir, Base: "song"}
	if err := os.Remove(run.Instrumental()); err != nil {
		t.Fatalf("remove instrumental: %v", err)
	}
	sepCalls := fakes.separator.calls

	if _, err := ctrl.Run(context.Background(), req); err != nil {
		t.Fatalf("second run: %v", err)
	}
	// The vocal pass reruns for the missing instrumental, and the
	// dereverb pass reruns because cleanup removed its output. The
	// karaoke pass keeps both outputs and stays cached.
	if fakes.separator.calls != sepCalls+2 {
		t.Errorf("expected re-discovery to run 2 separation passes, got %d new calls", fakes.separator.calls-sepCalls)
	}
	run = artifacts.Run{Dir: result.RunDir, Base: "song"}
	if !artifacts.Exists(run.Instrumental()) {
		t.Error("expected instrumental to be regenerated")
	}
}

func TestKeepIntermediateRetainsFiles(t *testing.T) {
	ctrl, _, cfg := newTestController(t)
	song := writeLocalSong(t)
	req := baseRequest(cfg, song)
	req.KeepIntermediate = true

	result, err := ctrl.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	run := artifacts.Run{Dir: result.RunDir, Base: "song"}
	for _, path := range []string{run.RawVocals(), run.NoReverbVocals()} {
		if !artifacts.Exists(path) {
			t.Errorf("expected %s to be kept", filepath.Base(path))
		}
	}
}

func TestPitchAllShiftsMixInputs(t *testing.T) {
	ctrl, fakes, cfg := newTestController(t)
	song := writeLocalSong(t)
	req := baseRequest(cfg, song)
	req.PitchAll = 1

	result, err := ctrl.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if fakes.shifter.calls != 2 {
		t.Fatalf("expected 2 pitch shifts, got %d", fakes.shifter.calls)
	}
	if fakes.converter.last.Pitch != 3 {
		t.Errorf("expected conversion pitch 2+1=3, got %d", fakes.converter.last.Pitch)
	}

	run := artifacts.Run{Dir: result.RunDir, Base: "song"}
	shiftedInst := artifacts.PitchShifted(run.Instrumental(), 1)
	found := false
	for _, track := range fakes.lastMixTracks() {
		if track.Path == shiftedInst {
			found = true
		}
	}
	if !found {
		t.Errorf("expected mix to use shifted instrumental %s", filepath.Base(shiftedInst))
	}

	// Shifted duplicates are intermediates and get cleaned up.
	if artifacts.Exists(shiftedInst) {
		t.Error("expected shifted instrumental to be removed by cleanup")
	}
	if !artifacts.Exists(run.Instrumental()) {
		t.Error("expected original instrumental to survive")
	}
}

func (f *engineFakes) lastMixTracks() []fx.Track {
	return f.fx.lastTracks
}

func TestRemoteSongFetchesStrippedURL(t *testing.T) {
	ctrl, fakes, cfg := newTestController(t)
	req := baseRequest(cfg, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123")

	result, err := ctrl.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.RunID != "dQw4w9WgXcQ" {
		t.Fatalf("expected run id from video id, got %s", result.RunID)
	}
	if fakes.fetcher.calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", fakes.fetcher.calls)
	}
	if fakes.fetcher.lastURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("expected stripped url, got %s", fakes.fetcher.lastURL)
	}

	// Remote fetches land as mp3 and get normalized into {base}.wav.
	run := artifacts.Run{Dir: result.RunDir, Base: "Remote Song"}
	if !artifacts.Exists(run.Original()) {
		t.Error("expected normalized original wav")
	}
}

func TestEmptyModelFailsValidation(t *testing.T) {
	ctrl, _, cfg := newTestController(t)
	req := baseRequest(cfg, writeLocalSong(t))
	req.Model = ""

	if _, err := ctrl.Run(context.Background(), req); !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if ctrl.State() != StateFailed {
		t.Fatalf("expected failed state, got %s", ctrl.State())
	}
}

func TestMissingLocalFileFailsResolution(t *testing.T) {
	ctrl, _, cfg := newTestController(t)
	req := baseRequest(cfg, filepath.Join(t.TempDir(), "nope.wav"))

	if _, err := ctrl.Run(context.Background(), req); !errors.Is(err, services.ErrInvalidReference) {
		t.Fatalf("expected invalid reference error, got %v", err)
	}
}
