// Package metrics exposes report totals as Prometheus gauges.
//
// Gauges live on a private registry so that a report can be written to a
// node-exporter textfile without the process-wide default collectors.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"scenevitals/internal/diagnostics"
	"scenevitals/internal/profiler"
)

const (
	namespace = "scenevitals"
	subsystem = "scene"
)

// Texture memory sources, used as the "source" label.
const (
	SourceMaterial        = "material"
	SourceLightmap        = "lightmap"
	SourceReflectionProbe = "reflection_probe"
)

// Budget names, used as the "budget" label.
const (
	BudgetVerts           = "verts"
	BudgetUniqueMaterials = "unique_materials"
	BudgetSharedTexture   = "shared_texture"
	BudgetColliderVerts   = "collider_verts"
)

// SceneMetrics holds the gauges for any number of scenes. Every gauge is
// labelled by scene.
type SceneMetrics struct {
	Registry *prometheus.Registry

	Vertices        *prometheus.GaugeVec
	UniqueVertices  *prometheus.GaugeVec
	UniqueMaterials *prometheus.GaugeVec
	ColliderVerts   *prometheus.GaugeVec
	RealtimeLights  *prometheus.GaugeVec

	// TextureMegabytes labels: scene, source (material, lightmap, reflection_probe)
	TextureMegabytes *prometheus.GaugeVec

	// BudgetRatio labels: scene, budget (verts, unique_materials, shared_texture, collider_verts)
	BudgetRatio *prometheus.GaugeVec

	// Warnings labels: scene, kind
	Warnings *prometheus.GaugeVec

	AnalysisSeconds *prometheus.GaugeVec
}

// New creates the gauges on a fresh registry.
func New() *SceneMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, append([]string{"scene"}, labels...))
	}
	return &SceneMetrics{
		Registry:         reg,
		Vertices:         gauge("vertices", "Vertices across all renderer instances."),
		UniqueVertices:   gauge("unique_vertices", "Vertices across distinct meshes."),
		UniqueMaterials:  gauge("unique_materials", "Distinct material names."),
		ColliderVerts:    gauge("collider_vertices", "Vertices across all mesh colliders."),
		RealtimeLights:   gauge("realtime_lights", "Lights that are not fully baked."),
		TextureMegabytes: gauge("texture_megabytes", "Texture memory in whole megabytes by source.", "source"),
		BudgetRatio:      gauge("budget_ratio", "Measured value divided by its budget.", "budget"),
		Warnings:         gauge("warnings", "1 when the diagnostic fired, 0 otherwise.", "kind"),
		AnalysisSeconds:  gauge("analysis_seconds", "Wall-clock time of the last analysis."),
	}
}

// allKinds lists every diagnostic so that cleared warnings report 0.
var allKinds = []diagnostics.Kind{
	diagnostics.KindColliderVerts,
	diagnostics.KindNoLightmaps,
	diagnostics.KindNoLightProbes,
	diagnostics.KindNoReflectionProbes,
	diagnostics.KindVerts,
	diagnostics.KindUniqueMaterials,
	diagnostics.KindSharedTextures,
}

// Observe sets every gauge for the report's scene.
func (m *SceneMetrics) Observe(r *profiler.Report, diags []diagnostics.Diagnostic) {
	scene := r.SceneName()
	tot := r.Totals()

	m.Vertices.WithLabelValues(scene).Set(float64(tot.RawVerts))
	m.UniqueVertices.WithLabelValues(scene).Set(float64(tot.UniqueVerts))
	m.UniqueMaterials.WithLabelValues(scene).Set(float64(tot.UniqueMaterials))
	m.ColliderVerts.WithLabelValues(scene).Set(float64(tot.ColliderVerts))
	m.RealtimeLights.WithLabelValues(scene).Set(float64(tot.RealtimeLights))

	m.TextureMegabytes.WithLabelValues(scene, SourceMaterial).Set(float64(tot.MaterialTextureMB))
	m.TextureMegabytes.WithLabelValues(scene, SourceLightmap).Set(float64(tot.LightmapTextureMB))
	m.TextureMegabytes.WithLabelValues(scene, SourceReflectionProbe).Set(float64(tot.ReflectionProbeMB))

	m.BudgetRatio.WithLabelValues(scene, BudgetVerts).Set(r.VertRatio())
	m.BudgetRatio.WithLabelValues(scene, BudgetUniqueMaterials).Set(r.UniqueMaterialRatio())
	m.BudgetRatio.WithLabelValues(scene, BudgetSharedTexture).Set(r.SharedTextureRatio())
	m.BudgetRatio.WithLabelValues(scene, BudgetColliderVerts).Set(r.ColliderVertRatio())

	fired := make(map[diagnostics.Kind]bool, len(diags))
	for _, d := range diags {
		fired[d.Kind] = true
	}
	for _, k := range allKinds {
		v := 0.0
		if fired[k] {
			v = 1
		}
		m.Warnings.WithLabelValues(scene, string(k)).Set(v)
	}

	m.AnalysisSeconds.WithLabelValues(scene).Set(r.Duration().Seconds())
}

// WriteTextfile writes the registry in text exposition format, replacing
// path atomically.
func (m *SceneMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
