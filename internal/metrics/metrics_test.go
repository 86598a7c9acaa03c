package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenevitals/internal/budget"
	"scenevitals/internal/diagnostics"
	"scenevitals/internal/profiler"
	"scenevitals/internal/scene"
)

func sampleReport(t *testing.T) *profiler.Report {
	t.Helper()
	mesh := &scene.Mesh{Path: "Assets/Rock.fbx", VertexCount: 250000}
	lm := &scene.Texture{Path: "Lightmap-0_comp_light.exr", Bytes: 8 << 20}
	sc := &scene.Scene{
		Name:      "Harbor",
		Lightmaps: []scene.Lightmap{{Color: lm}},
		Roots: []*scene.Node{
			{Name: "A", Renderable: &scene.Renderable{Kind: scene.RenderMesh, Mesh: mesh}},
			{Name: "B", Renderable: &scene.Renderable{Kind: scene.RenderMesh, Mesh: mesh}},
			{Name: "C", Renderable: &scene.Renderable{Kind: scene.RenderMesh, Mesh: mesh}},
			{Name: "Sun", Light: &scene.Light{Bake: scene.BakeRealtime}},
		},
	}
	p, err := profiler.New(budget.Default())
	require.NoError(t, err)
	return p.Analyze(sc)
}

func TestObserve(t *testing.T) {
	r := sampleReport(t)
	m := New()
	m.Observe(r, diagnostics.Format(r))

	assert.Equal(t, 750000.0, testutil.ToFloat64(m.Vertices.WithLabelValues("Harbor")))
	assert.Equal(t, 250000.0, testutil.ToFloat64(m.UniqueVertices.WithLabelValues("Harbor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RealtimeLights.WithLabelValues("Harbor")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.TextureMegabytes.WithLabelValues("Harbor", SourceLightmap)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TextureMegabytes.WithLabelValues("Harbor", SourceMaterial)))
	assert.InDelta(t, 1.5, testutil.ToFloat64(m.BudgetRatio.WithLabelValues("Harbor", BudgetVerts)), 1e-9)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Warnings.WithLabelValues("Harbor", string(diagnostics.KindVerts))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Warnings.WithLabelValues("Harbor", string(diagnostics.KindNoLightmaps))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Warnings.WithLabelValues("Harbor", string(diagnostics.KindNoLightProbes))))
}

func TestObserveClearsWarnings(t *testing.T) {
	r := sampleReport(t)
	m := New()
	m.Observe(r, diagnostics.Format(r))
	m.Observe(r, nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Warnings.WithLabelValues("Harbor", string(diagnostics.KindVerts))))
}

func TestWriteTextfile(t *testing.T) {
	r := sampleReport(t)
	m := New()
	m.Observe(r, diagnostics.Format(r))

	path := filepath.Join(t.TempDir(), "scenevitals.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `scenevitals_scene_vertices{scene="Harbor"} 750000`)
	assert.Contains(t, text, `scenevitals_scene_texture_megabytes{scene="Harbor",source="lightmap"} 8`)
	assert.Contains(t, text, "# TYPE scenevitals_scene_budget_ratio gauge")
	assert.False(t, strings.Contains(text, "go_goroutines"), "private registry must not carry runtime collectors")
}

func TestWriteTextfileBadDir(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
