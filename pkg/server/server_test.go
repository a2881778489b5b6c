package server

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/docfile"
	"github.com/ha1tch/fsm-designer/pkg/interact"
)

type recordingSaver struct {
	saves int
	last  *diagram.Graph
}

func (r *recordingSaver) SaveGraph(_ context.Context, _ string, g *diagram.Graph) error {
	r.saves++
	r.last = g
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *interact.Controller, *recordingSaver) {
	t.Helper()
	ctrl := interact.New(diagram.Starter())
	saver := &recordingSaver{}
	ts := httptest.NewServer(New(ctrl, WithSaver(saver, "test"), WithTitle("Demo")).Handler())
	t.Cleanup(ts.Close)
	return ts, ctrl, saver
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeDoc(t *testing.T, resp *http.Response) *docfile.Document {
	t.Helper()
	var doc docfile.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	return &doc
}

const twoNodes = `{
	"nodes": [
		{"id": "a", "x": 200, "y": 300, "size": 100, "label": "A", "isStart": true, "isEnd": false},
		{"id": "b", "x": 550, "y": 300, "size": 100, "label": "B", "isStart": false, "isEnd": true}
	],
	"links": [
		{"id": "ab", "sourceId": "a", "targetId": "b", "label": "go", "controlPoint": {"x": 375, "y": 300}}
	]
}`

func TestGetDiagram(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/diagram", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	doc := decodeDoc(t, resp)
	assert.Len(t, doc.Nodes, 2)
	assert.Empty(t, doc.Links)
}

func TestPutDiagram(t *testing.T) {
	ts, ctrl, saver := newTestServer(t)

	resp := do(t, http.MethodPut, ts.URL+"/api/diagram", twoNodes)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := decodeDoc(t, resp)
	assert.Len(t, doc.Links, 1)

	_, ok := ctrl.Graph().FindLink("ab")
	assert.True(t, ok)
	assert.Equal(t, 1, saver.saves)
	assert.Equal(t, 1, saver.last.LinkCount())
}

func TestPutMalformedLeavesDiagram(t *testing.T) {
	ts, ctrl, saver := newTestServer(t)
	before := ctrl.Graph().Clone()

	for _, body := range []string{`{"nodes": [`, `{"nodes": []}`, `{"nodes": [{"id": ""}], "links": []}`} {
		resp := do(t, http.MethodPut, ts.URL+"/api/diagram", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)

		var e map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
		assert.Equal(t, true, e["error"])
	}

	assert.True(t, before.Equal(ctrl.Graph()))
	assert.False(t, ctrl.CanUndo())
	assert.Equal(t, 0, saver.saves)
}

func TestUndoRedo(t *testing.T) {
	ts, ctrl, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/undo", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	do(t, http.MethodPut, ts.URL+"/api/diagram", twoNodes)

	resp = do(t, http.MethodPost, ts.URL+"/api/undo", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeDoc(t, resp).Links)
	assert.Equal(t, 0, ctrl.Graph().LinkCount())

	resp = do(t, http.MethodPost, ts.URL+"/api/redo", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeDoc(t, resp).Links, 1)
}

func TestArrange(t *testing.T) {
	ts, ctrl, saver := newTestServer(t)
	do(t, http.MethodPut, ts.URL+"/api/diagram", twoNodes)

	resp := do(t, http.MethodPost, ts.URL+"/api/arrange?layout=grid", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := ctrl.Graph().FindNode("b")
	assert.Equal(t, diagram.Point{X: 450, Y: 200}, b.Center())
	assert.Equal(t, 2, saver.saves)

	resp = do(t, http.MethodPost, ts.URL+"/api/arrange?layout=spiral", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExports(t *testing.T) {
	ts, _, _ := newTestServer(t)
	do(t, http.MethodPut, ts.URL+"/api/diagram", twoNodes)

	resp := do(t, http.MethodGet, ts.URL+"/export.svg", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))

	resp = do(t, http.MethodGet, ts.URL+"/export.png?scale=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)

	resp = do(t, http.MethodGet, ts.URL+"/export.png?scale=zero", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/export.dot", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `label="Demo"`)
	assert.Contains(t, string(body), `"a" -> "b" [label="go"]`)
}

func TestExportPNGTooLarge(t *testing.T) {
	ts, _, _ := newTestServer(t)
	huge := `{"nodes": [
		{"id": "a", "x": 0, "y": 0, "size": 100},
		{"id": "b", "x": 1e12, "y": 1e12, "size": 100}
	], "links": []}`
	resp := do(t, http.MethodPut, ts.URL+"/api/diagram", huge)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/export.png", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPersistKeepsNewestSnapshot(t *testing.T) {
	ctrl := interact.New(diagram.Starter())
	saver := &recordingSaver{}
	s := New(ctrl, WithSaver(saver, "test"))

	s.mu.Lock()
	ctrl.AddNode()
	older := s.snapshot()
	ctrl.AddNode()
	newer := s.snapshot()
	s.mu.Unlock()

	s.persist(context.Background(), newer)
	s.persist(context.Background(), older)

	assert.Equal(t, 1, saver.saves)
	require.NotNil(t, saver.last)
	assert.Equal(t, 4, saver.last.NodeCount())

	// Snapshots are copies; later edits do not leak into saved state.
	s.mu.Lock()
	ctrl.AddNode()
	s.mu.Unlock()
	assert.Equal(t, 4, saver.last.NodeCount())
}

func TestHealth(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
