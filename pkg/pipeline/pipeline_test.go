package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/planviz/planviz/pkg/cache"
	"github.com/planviz/planviz/pkg/errors"
	"github.com/planviz/planviz/pkg/hierarchy"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func testForest() hierarchy.Forest {
	return hierarchy.Forest{Roots: []*hierarchy.Node{
		{
			ID: "p1", Type: hierarchy.TypeProject,
			Children: []*hierarchy.Node{
				{ID: "a1", Type: hierarchy.TypeArticle, Children: []*hierarchy.Node{
					{ID: "as1", Type: hierarchy.TypeAssembly},
				}},
			},
		},
		{ID: "p2", Type: hierarchy.TypeProject},
	}}
}

func writeForestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := hierarchy.WriteForestFile(testForest(), path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantCode errors.Code
	}{
		{"missing_input", Options{}, errors.ErrCodeInvalidInput},
		{"bad_mode", Options{Input: "x.json", Mode: "spiral"}, errors.ErrCodeInvalidMode},
		{"bad_format", Options{Input: "x.json", Formats: []string{"pdf"}}, errors.ErrCodeInvalidFormat},
		{"missing_config_file", Options{Input: "x.json", ConfigPath: "/nonexistent.toml"}, errors.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if errors.GetCode(err) != tt.wantCode {
				t.Errorf("error = %v, want code %v", err, tt.wantCode)
			}
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Input: "x.json"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Mode != DefaultMode || opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Errorf("layout defaults not applied: %+v", opts)
	}
	if opts.SettleTicks != DefaultSettleTicks {
		t.Errorf("settle default not applied: %d", opts.SettleTicks)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != DefaultFormat {
		t.Errorf("format default not applied: %v", opts.Formats)
	}
	if opts.Config == nil || opts.Logger == nil {
		t.Error("config and logger defaults not applied")
	}
}

func TestExecute(t *testing.T) {
	runner := NewRunner(nil, nil, quietLogger())
	defer runner.Close()

	opts := Options{
		Input:          writeForestFile(t),
		Mode:           "radial",
		ShowArticles:   true,
		ShowAssemblies: true,
		Formats:        []string{"svg", "json", "dot"},
	}
	result, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.ForestHash == "" {
		t.Error("missing forest hash")
	}
	if result.Stats.NodeCount != 4 {
		t.Errorf("node count = %d, want 4", result.Stats.NodeCount)
	}
	if result.Stats.VisibleCount != 4 {
		t.Errorf("all levels visible, count = %d, want 4", result.Stats.VisibleCount)
	}
	if result.Stats.SettleTicks == 0 {
		t.Error("uncached run should spend settle ticks")
	}
	for _, format := range opts.Formats {
		if len(result.Artifacts[format]) == 0 {
			t.Errorf("missing %s artifact", format)
		}
	}
	if result.CacheInfo.LayoutHit || result.CacheInfo.RenderHit {
		t.Error("null cache must never hit")
	}
}

func TestExecuteInlineForest(t *testing.T) {
	runner := NewRunner(nil, nil, quietLogger())
	defer runner.Close()

	forest := testForest()
	result, err := runner.Execute(context.Background(), Options{Forest: &forest, Mode: "timeline"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Frame.Nodes) == 0 {
		t.Error("inline forest produced no frame")
	}

	bad := hierarchy.Forest{Roots: []*hierarchy.Node{{ID: "x"}, {ID: "x"}}}
	_, err = runner.Execute(context.Background(), Options{Forest: &bad})
	if errors.GetCode(err) != errors.ErrCodeInvalidForest {
		t.Errorf("expected invalid-forest, got %v", err)
	}
}

func TestExecuteMissingFile(t *testing.T) {
	runner := NewRunner(nil, nil, quietLogger())
	defer runner.Close()

	_, err := runner.Execute(context.Background(), Options{Input: "/does/not/exist.json"})
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
}

func TestExecuteCaching(t *testing.T) {
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fileCache, nil, quietLogger())
	defer runner.Close()

	opts := Options{
		Input:        writeForestFile(t),
		Mode:         "radial",
		ShowArticles: true,
		Formats:      []string{"svg", "json"},
	}
	ctx := context.Background()

	first, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Fatal("first run must not hit the cache")
	}

	second, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run should hit: layout=%v render=%v",
			second.CacheInfo.LayoutHit, second.CacheInfo.RenderHit)
	}
	if second.Stats.SettleTicks != 0 {
		t.Error("cached layout must not settle again")
	}
	if string(second.Artifacts["svg"]) != string(first.Artifacts["svg"]) {
		t.Error("cached artifact differs from the original")
	}

	refresh := opts
	refresh.Refresh = true
	third, err := runner.Execute(ctx, refresh)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.LayoutHit || third.CacheInfo.RenderHit {
		t.Error("refresh must bypass the cache")
	}
}

func TestCacheKeySensitivity(t *testing.T) {
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fileCache, nil, quietLogger())
	defer runner.Close()

	path := writeForestFile(t)
	ctx := context.Background()

	if _, err := runner.Execute(ctx, Options{Input: path, Mode: "radial"}); err != nil {
		t.Fatal(err)
	}
	// Same forest, different visibility: must not reuse the layout.
	second, err := runner.Execute(ctx, Options{Input: path, Mode: "radial", ShowArticles: true})
	if err != nil {
		t.Fatal(err)
	}
	if second.CacheInfo.LayoutHit {
		t.Error("visibility change must invalidate the layout cache")
	}
}

func TestExecuteRemovesTempState(t *testing.T) {
	// Guard against the runner writing outside its cache directory.
	dir := t.TempDir()
	fileCache, err := cache.NewFileCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fileCache, nil, quietLogger())
	defer runner.Close()

	if _, err := runner.Execute(context.Background(), Options{Input: writeForestFile(t), Mode: "radial"}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "cache" {
		t.Errorf("unexpected files next to the cache dir: %v", entries)
	}
}
