// Package profiler measures a scene's resource usage in one pass over its
// graph and produces an immutable Report.
//
// A Profiler holds no state between calls. Analyze runs to completion on the
// calling goroutine and takes no locks; the caller must not edit the scene
// while it runs. Independent scenes may be analyzed concurrently.
package profiler

import (
	"fmt"
	"log/slog"
	"time"

	"scenevitals/internal/budget"
	"scenevitals/internal/scene"
)

// Profiler analyzes scenes against a fixed set of budgets.
type Profiler struct {
	thresholds budget.Thresholds
	logger     *slog.Logger
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithLogger sets the logger used for per-analysis debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Profiler) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a Profiler for th. It fails when any budget is not positive,
// so a profiler can never produce an infinite ratio.
func New(th budget.Thresholds, opts ...Option) (*Profiler, error) {
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("profiler: %w", err)
	}
	p := &Profiler{thresholds: th, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Thresholds returns the profiler's budgets.
func (p *Profiler) Thresholds() budget.Thresholds { return p.thresholds }

// Analyze walks sc once and returns its report. Missing meshes, materials
// and textures are skipped, never reported as errors. A nil scene yields an
// empty report.
func (p *Profiler) Analyze(sc *scene.Scene) *Report {
	start := time.Now()

	t := newTallies()
	var name, path string
	nodes := 0
	if sc != nil {
		name, path = sc.Name, sc.Path
		t.addLightmaps(sc.Lightmaps)
		sc.Walk(func(nodePath string, n *scene.Node) {
			nodes++
			t.visit(nodePath, n)
		})
	}

	r := buildReport(name, path, t, p.thresholds)
	r.duration = time.Since(start)

	p.logger.Debug("scene analyzed",
		"scene", name,
		"nodes", nodes,
		"raw_verts", r.totals.RawVerts,
		"shared_texture_mb", r.SharedTextureMB(),
		"duration", r.duration,
	)
	return r
}
