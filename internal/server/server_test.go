package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/planviz/planviz/pkg/cache"
	"github.com/planviz/planviz/pkg/hierarchy"
	"github.com/planviz/planviz/pkg/layout"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := New(store, log.NewWithOptions(io.Discard, log.Options{}))
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func layoutRequest() LayoutRequest {
	return LayoutRequest{
		Forest: hierarchy.Forest{Roots: []*hierarchy.Node{
			{ID: "p1", Type: hierarchy.TypeProject, Children: []*hierarchy.Node{
				{ID: "a1", Type: hierarchy.TypeArticle},
			}},
		}},
		Mode:         "radial",
		SettleTicks:  50,
		ShowArticles: true,
	}
}

func postLayout(t *testing.T, ts *httptest.Server, req LayoutRequest) (*http.Response, LayoutResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+"/api/layout", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var out LayoutResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestLayoutCreatesScene(t *testing.T) {
	_, ts := testServer(t)

	resp, out := postLayout(t, ts, layoutRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if out.SceneID == "" {
		t.Fatal("missing scene id")
	}
	if len(out.Frame.Nodes) != 2 {
		t.Errorf("frame nodes = %d, want 2", len(out.Frame.Nodes))
	}

	sceneResp, err := http.Get(ts.URL + "/api/scenes/" + out.SceneID)
	if err != nil {
		t.Fatal(err)
	}
	defer sceneResp.Body.Close()
	if sceneResp.StatusCode != http.StatusOK {
		t.Fatalf("scene status = %d, want 200", sceneResp.StatusCode)
	}
	var frame layout.Frame
	if err := json.NewDecoder(sceneResp.Body).Decode(&frame); err != nil {
		t.Fatal(err)
	}
	if len(frame.Nodes) != len(out.Frame.Nodes) {
		t.Errorf("stored scene has %d nodes, response had %d", len(frame.Nodes), len(out.Frame.Nodes))
	}
}

func TestSceneNotFound(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/scenes/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != "SCENE_NOT_FOUND" {
		t.Errorf("code = %q, want SCENE_NOT_FOUND", body.Code)
	}
}

func TestLayoutBadRequests(t *testing.T) {
	_, ts := testServer(t)

	t.Run("malformed_body", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/layout", "application/json", bytes.NewReader([]byte("{")))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("duplicate_node_ids", func(t *testing.T) {
		req := layoutRequest()
		req.Forest = hierarchy.Forest{Roots: []*hierarchy.Node{{ID: "x"}, {ID: "x"}}}
		resp, _ := postLayout(t, ts, req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("bad_mode", func(t *testing.T) {
		req := layoutRequest()
		req.Mode = "spiral"
		resp, _ := postLayout(t, ts, req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestLayoutCaching(t *testing.T) {
	_, ts := testServer(t)

	req := layoutRequest()
	if resp, first := postLayout(t, ts, req); resp.StatusCode != http.StatusOK || first.Cached {
		t.Fatalf("first run: status=%d cached=%v", resp.StatusCode, first.Cached)
	}
	resp, second := postLayout(t, ts, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !second.Cached {
		t.Error("second identical request should reuse the cached layout")
	}
	if second.Ticks != 0 {
		t.Errorf("cached layout ticks = %d, want 0", second.Ticks)
	}
}
