package observability

import (
	"context"
	"testing"
	"time"
)

type recordingEngineHooks struct {
	rebuilds    int
	settles     int
	reorganizes int
}

func (r *recordingEngineHooks) OnRebuild(int, int)    { r.rebuilds++ }
func (r *recordingEngineHooks) OnSettle(int, float64) { r.settles++ }
func (r *recordingEngineHooks) OnReorganize()         { r.reorganizes++ }

type recordingCacheHooks struct {
	hits, misses, sets int
}

func (r *recordingCacheHooks) OnCacheHit(context.Context, string)      { r.hits++ }
func (r *recordingCacheHooks) OnCacheMiss(context.Context, string)     { r.misses++ }
func (r *recordingCacheHooks) OnCacheSet(context.Context, string, int) { r.sets++ }

func TestDefaultHooksAreNoop(t *testing.T) {
	Reset()

	// Must not panic.
	Engine().OnRebuild(10, 9)
	Engine().OnSettle(300, 0.001)
	Engine().OnReorganize()
	Pipeline().OnLoadStart(context.Background(), "file.json")
	Pipeline().OnLayoutComplete(context.Background(), "radial", 300, time.Second, nil)
	Cache().OnCacheHit(context.Background(), "layout")
}

func TestSetAndResetHooks(t *testing.T) {
	t.Cleanup(Reset)

	eng := &recordingEngineHooks{}
	SetEngineHooks(eng)
	Engine().OnRebuild(5, 4)
	Engine().OnReorganize()
	if eng.rebuilds != 1 || eng.reorganizes != 1 {
		t.Errorf("expected recorded events, got rebuilds=%d reorganizes=%d", eng.rebuilds, eng.reorganizes)
	}

	ch := &recordingCacheHooks{}
	SetCacheHooks(ch)
	Cache().OnCacheMiss(context.Background(), "layout")
	Cache().OnCacheSet(context.Background(), "layout", 128)
	if ch.misses != 1 || ch.sets != 1 {
		t.Errorf("expected recorded cache events, got misses=%d sets=%d", ch.misses, ch.sets)
	}

	Reset()
	Engine().OnRebuild(1, 0)
	if eng.rebuilds != 1 {
		t.Errorf("hooks still registered after Reset")
	}
}

func TestNilHooksIgnored(t *testing.T) {
	t.Cleanup(Reset)

	SetEngineHooks(nil)
	SetPipelineHooks(nil)
	SetCacheHooks(nil)
	if Engine() == nil || Pipeline() == nil || Cache() == nil {
		t.Fatal("nil registration must keep the previous hooks")
	}
}
