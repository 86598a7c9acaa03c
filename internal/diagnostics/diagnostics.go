// Package diagnostics turns a report into human-readable warnings and the
// lists of assets or nodes each warning is about.
package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"scenevitals/internal/budget"
	"scenevitals/internal/profiler"
)

// List sizes for each category.
const (
	MaxColliderEntries = 30
	MaxMeshEntries     = 30
	MaxTextureEntries  = 40
)

// Kind identifies which check produced a diagnostic.
type Kind string

const (
	KindColliderVerts      Kind = "collider_verts"
	KindNoLightmaps        Kind = "no_lightmaps"
	KindNoLightProbes      Kind = "no_light_probes"
	KindNoReflectionProbes Kind = "no_reflection_probes"
	KindVerts              Kind = "verts"
	KindUniqueMaterials    Kind = "unique_materials"
	KindSharedTextures     Kind = "shared_textures"
)

// OverBudget reports whether the kind is a budget breach rather than a
// missing lighting feature.
func (k Kind) OverBudget() bool {
	switch k {
	case KindColliderVerts, KindVerts, KindUniqueMaterials, KindSharedTextures:
		return true
	}
	return false
}

// Diagnostic is one warning. Assets holds mesh or texture asset paths, or
// node paths for collider warnings, highest cost first.
type Diagnostic struct {
	Kind    Kind     `yaml:"kind"`
	Message string   `yaml:"message"`
	Assets  []string `yaml:"assets,omitempty"`
}

// Format evaluates every check independently and returns the warnings that
// fire, in a fixed order. A healthy scene yields no diagnostics.
func Format(r *profiler.Report) []Diagnostic {
	var out []Diagnostic
	name := r.SceneName()
	tot := r.Totals()
	th := r.Thresholds()

	if r.ColliderVertRatio() > budget.OverRatio {
		entries := head(r.Colliders(), MaxColliderEntries)
		var b strings.Builder
		fmt.Fprintf(&b, "Scene %s has a lot of high density mesh colliders (%d/%d).\n", name, tot.ColliderVerts, th.MaxColliderVerts)
		b.WriteString("Use primitives or low density meshes for colliders where possible; high density collision geometry will impact the performance of your space.\n")
		fmt.Fprintf(&b, "Objects with high density mesh colliders (%d selected):\n", len(entries))
		assets := make([]string, len(entries))
		for i, e := range entries {
			fmt.Fprintf(&b, " - %d - %s\n", e.Vertices, e.Node)
			assets[i] = e.Node
		}
		out = append(out, Diagnostic{Kind: KindColliderVerts, Message: b.String(), Assets: assets})
	}

	if !r.HasLightmaps() {
		out = append(out, Diagnostic{
			Kind: KindNoLightmaps,
			Message: fmt.Sprintf("Scene %s doesn't have lightmaps.\n", name) +
				"Baking lightmaps in each scene is highly recommended; it greatly improves the fidelity of your space.\n",
		})
	}

	if !tot.HasLightProbes {
		out = append(out, Diagnostic{
			Kind: KindNoLightProbes,
			Message: fmt.Sprintf("Scene %s doesn't have light probes.\n", name) +
				"Baking light probes lets dynamic objects interact with the baked lights in your space.\n",
		})
	}

	if !tot.HasReflectionProbes {
		out = append(out, Diagnostic{
			Kind: KindNoReflectionProbes,
			Message: fmt.Sprintf("Scene %s doesn't have reflection probes.\n", name) +
				"Adding reflection probes lets objects pick up the baked reflections in your space.\n",
		})
	}

	if r.VertRatio() > budget.OverRatio {
		entries := head(r.Meshes(), MaxMeshEntries)
		var b strings.Builder
		fmt.Fprintf(&b, "Scene %s has too many vertices (%d/%d).\n", name, tot.RawVerts, th.MaxVerts)
		b.WriteString("The scene has too many high detail models; stay within the suggested limits or it may not perform well on all platforms.\n")
		fmt.Fprintf(&b, "Meshes with high vertex counts (%d selected):\n", len(entries))
		assets := make([]string, len(entries))
		for i, e := range entries {
			fmt.Fprintf(&b, " - %d - %s\n", e.Vertices, e.Asset)
			assets[i] = e.Asset
		}
		out = append(out, Diagnostic{Kind: KindVerts, Message: b.String(), Assets: assets})
	}

	if r.UniqueMaterialRatio() > budget.OverRatio {
		out = append(out, Diagnostic{
			Kind: KindUniqueMaterials,
			Message: fmt.Sprintf("Scene %s has too many unique materials (%d/%d).\n", name, tot.UniqueMaterials, th.MaxUniqueMaterials) +
				fmt.Sprintf("Limit unique materials to around %d; the more unique materials, the less likely the scene performs well on all platforms.\n", th.MaxUniqueMaterials) +
				"Look into texture atlasing to share textures and materials across separate objects.\n",
		})
	}

	if r.SharedTextureRatio() > budget.OverRatio {
		entries := head(r.Textures(), MaxTextureEntries)
		var b strings.Builder
		fmt.Fprintf(&b, "Scene %s has too many shared textures (%dMB/%dMB).\n", name, r.SharedTextureMB(), th.MaxSharedTextureMB)
		fmt.Fprintf(&b, "For WebGL keep shared textures within %d MB; high memory usage can crash lower end devices.\n", th.MaxSharedTextureMB)
		b.WriteString("Compressing your textures will help reduce their size.\n")
		fmt.Fprintf(&b, "Textures used by the scene (%d selected):\n", len(entries))
		assets := make([]string, len(entries))
		for i, e := range entries {
			fmt.Fprintf(&b, " - %.2fMB - %s\n", e.SizeMB, e.Asset)
			assets[i] = e.Asset
		}
		out = append(out, Diagnostic{Kind: KindSharedTextures, Message: b.String(), Assets: assets})
	}

	return out
}

// AnyOverBudget reports whether any diagnostic is a budget breach.
func AnyOverBudget(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Kind.OverBudget() {
			return true
		}
	}
	return false
}

// Category names an asset list that selection tooling can request.
type Category string

const (
	CategoryMeshes    Category = "meshes"
	CategoryColliders Category = "colliders"
	CategoryTextures  Category = "textures"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryMeshes, CategoryColliders, CategoryTextures}

// ParseCategory maps a name to a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == strings.ToLower(s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("diagnostics: unknown category %q (want meshes, colliders or textures)", s)
}

// Select returns the top entries of a category whether or not its check
// fired: mesh and texture asset paths, or collider node paths.
func Select(r *profiler.Report, c Category) []string {
	var out []string
	switch c {
	case CategoryMeshes:
		for _, e := range head(r.Meshes(), MaxMeshEntries) {
			out = append(out, e.Asset)
		}
	case CategoryColliders:
		for _, e := range head(r.Colliders(), MaxColliderEntries) {
			out = append(out, e.Node)
		}
	case CategoryTextures:
		for _, e := range head(r.Textures(), MaxTextureEntries) {
			out = append(out, e.Asset)
		}
	}
	return out
}

// Render writes every diagnostic as a plain text block separated by blank
// lines.
func Render(w io.Writer, diags []Diagnostic) error {
	for i, d := range diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, d.Message); err != nil {
			return err
		}
	}
	return nil
}

func head[E any](s []E, n int) []E {
	if len(s) > n {
		return s[:n]
	}
	return s
}
