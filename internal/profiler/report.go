package profiler

import (
	"slices"
	"time"

	"scenevitals/internal/budget"
)

// MeshEntry is one distinct mesh and its vertex count.
type MeshEntry struct {
	Asset    string `yaml:"asset"`
	Vertices int    `yaml:"vertices"`
}

// ColliderEntry is one collider instance, keyed by node path.
type ColliderEntry struct {
	Node     string `yaml:"node"`
	Vertices int    `yaml:"vertices"`
}

// TextureEntry is one texture and its resident size in megabytes.
type TextureEntry struct {
	Asset  string  `yaml:"asset"`
	SizeMB float64 `yaml:"size_mb"`
}

// Totals are the scalar results of one analysis. Memory totals are whole
// megabytes (bytes / 1024 / 1024, truncated).
type Totals struct {
	RawVerts            int  `yaml:"raw_verts"`
	UniqueVerts         int  `yaml:"unique_verts"`
	UniqueMaterials     int  `yaml:"unique_materials"`
	MaterialTextureMB   int  `yaml:"material_texture_mb"`
	LightmapTextureMB   int  `yaml:"lightmap_texture_mb"`
	ReflectionProbeMB   int  `yaml:"reflection_probe_mb"`
	ColliderVerts       int  `yaml:"collider_verts"`
	RealtimeLights      int  `yaml:"realtime_lights"`
	HasLightmaps        bool `yaml:"has_lightmaps"`
	HasLightProbes      bool `yaml:"has_light_probes"`
	HasReflectionProbes bool `yaml:"has_reflection_probes"`
}

// SharedTextureMB is the sum of the three texture memory totals.
func (t Totals) SharedTextureMB() int {
	return t.MaterialTextureMB + t.LightmapTextureMB + t.ReflectionProbeMB
}

// Report is the result of one analysis. It is never modified after Analyze
// returns it; list accessors return copies.
type Report struct {
	sceneName string
	scenePath string

	totals Totals

	meshes    []MeshEntry
	colliders []ColliderEntry
	textures  []TextureEntry

	thresholds budget.Thresholds
	duration   time.Duration
}

// buildReport turns finished tallies into a report. Every list is sorted by
// its metric, descending; ties keep encounter order.
func buildReport(name, path string, t *tallies, th budget.Thresholds) *Report {
	r := &Report{
		sceneName:  name,
		scenePath:  path,
		thresholds: th,
		totals: Totals{
			RawVerts:            t.rawVerts,
			UniqueVerts:         t.uniqueVerts(),
			UniqueMaterials:     len(t.materialNames),
			MaterialTextureMB:   wholeMB(t.materialTextureBytes()),
			LightmapTextureMB:   wholeMB(t.lightmapBytes),
			ReflectionProbeMB:   wholeMB(t.reflectionBytes),
			ColliderVerts:       t.colliderVerts,
			RealtimeLights:      t.realtimeLights,
			HasLightmaps:        t.hasLightmaps,
			HasLightProbes:      t.hasLightProbes,
			HasReflectionProbes: t.hasReflectionProbes,
		},
	}

	r.meshes = make([]MeshEntry, 0, t.meshes.Len())
	for _, m := range t.meshes.Items() {
		r.meshes = append(r.meshes, MeshEntry{Asset: m.Path, Vertices: m.VertexCount})
	}

	r.colliders = slices.Clone(t.colliders)

	r.textures = make([]TextureEntry, 0, len(t.lightmapTextures)+t.textures.Len())
	r.textures = append(r.textures, t.lightmapTextures...)
	for _, tex := range t.textures.Items() {
		r.textures = append(r.textures, TextureEntry{Asset: tex.Path, SizeMB: bytesToMB(tex.Bytes)})
	}

	slices.SortStableFunc(r.meshes, func(a, b MeshEntry) int { return b.Vertices - a.Vertices })
	slices.SortStableFunc(r.colliders, func(a, b ColliderEntry) int { return b.Vertices - a.Vertices })
	slices.SortStableFunc(r.textures, func(a, b TextureEntry) int {
		switch {
		case a.SizeMB > b.SizeMB:
			return -1
		case a.SizeMB < b.SizeMB:
			return 1
		default:
			return 0
		}
	})
	return r
}

// SceneName is the analyzed scene's name.
func (r *Report) SceneName() string { return r.sceneName }

// ScenePath is the file the scene was loaded from, if any.
func (r *Report) ScenePath() string { return r.scenePath }

// Totals returns the scalar totals.
func (r *Report) Totals() Totals { return r.totals }

// Thresholds returns the budgets the report's ratios are computed against.
func (r *Report) Thresholds() budget.Thresholds { return r.thresholds }

// Duration is the wall-clock time the analysis took, including assembly.
func (r *Report) Duration() time.Duration { return r.duration }

// SharedTextureMB is material + lightmap + reflection probe memory.
func (r *Report) SharedTextureMB() int { return r.totals.SharedTextureMB() }

// HasLightmaps reports whether the scene has any lightmap texture.
func (r *Report) HasLightmaps() bool { return r.totals.HasLightmaps }

// Meshes returns distinct meshes by vertex count, descending.
func (r *Report) Meshes() []MeshEntry { return slices.Clone(r.meshes) }

// Colliders returns collider instances by vertex count, descending.
func (r *Report) Colliders() []ColliderEntry { return slices.Clone(r.colliders) }

// Textures returns textures by size, descending.
func (r *Report) Textures() []TextureEntry { return slices.Clone(r.textures) }

// VertRatio is raw vertices over the vertex budget.
func (r *Report) VertRatio() float64 {
	return budget.Ratio(r.totals.RawVerts, r.thresholds.MaxVerts)
}

// UniqueMaterialRatio is distinct materials over the material budget.
func (r *Report) UniqueMaterialRatio() float64 {
	return budget.Ratio(r.totals.UniqueMaterials, r.thresholds.MaxUniqueMaterials)
}

// SharedTextureRatio is shared texture memory over the texture budget.
func (r *Report) SharedTextureRatio() float64 {
	return budget.Ratio(r.SharedTextureMB(), r.thresholds.MaxSharedTextureMB)
}

// ColliderVertRatio is collider vertices over the collider budget.
func (r *Report) ColliderVertRatio() float64 {
	return budget.Ratio(r.totals.ColliderVerts, r.thresholds.MaxColliderVerts)
}

// Summary is a serializable snapshot of a report.
type Summary struct {
	Scene           string            `yaml:"scene"`
	Path            string            `yaml:"path,omitempty"`
	Totals          Totals            `yaml:"totals"`
	SharedTextureMB int               `yaml:"shared_texture_mb"`
	Ratios          Ratios            `yaml:"ratios"`
	Budgets         budget.Thresholds `yaml:"budgets"`
	DurationMS      float64           `yaml:"duration_ms"`
	Meshes          []MeshEntry       `yaml:"meshes,omitempty"`
	Colliders       []ColliderEntry   `yaml:"colliders,omitempty"`
	Textures        []TextureEntry    `yaml:"textures,omitempty"`
}

// Ratios are the four budget ratios of a report.
type Ratios struct {
	Verts           float64 `yaml:"verts"`
	UniqueMaterials float64 `yaml:"unique_materials"`
	SharedTexture   float64 `yaml:"shared_texture"`
	ColliderVerts   float64 `yaml:"collider_verts"`
}

// Ratios returns all four ratios.
func (r *Report) Ratios() Ratios {
	return Ratios{
		Verts:           r.VertRatio(),
		UniqueMaterials: r.UniqueMaterialRatio(),
		SharedTexture:   r.SharedTextureRatio(),
		ColliderVerts:   r.ColliderVertRatio(),
	}
}

// Summary returns a snapshot with at most limit entries per list. A limit
// below zero keeps every entry.
func (r *Report) Summary(limit int) Summary {
	return Summary{
		Scene:           r.sceneName,
		Path:            r.scenePath,
		Totals:          r.totals,
		SharedTextureMB: r.SharedTextureMB(),
		Ratios:          r.Ratios(),
		Budgets:         r.thresholds,
		DurationMS:      float64(r.duration.Microseconds()) / 1000,
		Meshes:          head(r.meshes, limit),
		Colliders:       head(r.colliders, limit),
		Textures:        head(r.textures, limit),
	}
}

// head returns a copy of the first n entries, or all of them when n < 0.
func head[E any](s []E, n int) []E {
	if n < 0 || n > len(s) {
		n = len(s)
	}
	return slices.Clone(s[:n])
}
