package export

// export.go: writes one analysis as a small markdown bundle.
//
// Bundle layout:
//   index.md        frontmatter summary plus a totals table
//   meshes.md       distinct meshes, most vertices first
//   colliders.md    collider instances by node path
//   textures.md     textures, largest first
//   warnings.md     diagnostics in check order
//
// Timing is left out of every page so that exporting the same scene twice
// gives byte-identical files.

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"scenevitals/internal/diagnostics"
	"scenevitals/internal/frontmatter"
	"scenevitals/internal/profiler"
)

// ReportBundle holds pre-generated page content (path → markdown).
// Paths are relative to the output directory, using forward slashes.
type ReportBundle struct {
	pages map[string]string
}

// Pages returns the bundle's page paths in sorted order.
func (b *ReportBundle) Pages() []string {
	paths := make([]string, 0, len(b.pages))
	for p := range b.pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Page returns the content of one page.
func (b *ReportBundle) Page(path string) (string, bool) {
	s, ok := b.pages[path]
	return s, ok
}

// indexMeta is the frontmatter of index.md.
type indexMeta struct {
	Tags            []string           `yaml:"tags"`
	Scene           string             `yaml:"scene"`
	Path            string             `yaml:"path,omitempty"`
	Totals          profiler.Totals    `yaml:"totals"`
	SharedTextureMB int                `yaml:"shared_texture_mb"`
	Ratios          profiler.Ratios    `yaml:"ratios"`
	Warnings        []diagnostics.Kind `yaml:"warnings,omitempty"`
}

// GenerateReportBundle builds all pages for r. No files are written.
func GenerateReportBundle(r *profiler.Report, diags []diagnostics.Diagnostic) (*ReportBundle, error) {
	pages := make(map[string]string)

	index, err := buildIndexPage(r, diags)
	if err != nil {
		return nil, err
	}
	pages["index.md"] = index
	pages["meshes.md"] = buildMeshesPage(r)
	pages["colliders.md"] = buildCollidersPage(r)
	pages["textures.md"] = buildTexturesPage(r)
	pages["warnings.md"] = buildWarningsPage(diags)

	return &ReportBundle{pages: pages}, nil
}

// WriteReportBundle writes all pages in bundle to outputDir in sorted path
// order.
func WriteReportBundle(bundle *ReportBundle, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("export: mkdir %s: %w", outputDir, err)
	}
	for _, p := range bundle.Pages() {
		abs := filepath.Join(outputDir, filepath.FromSlash(p))
		if err := writeNote(abs, bundle.pages[p]); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Page builders
// ---------------------------------------------------------------------------

func buildIndexPage(r *profiler.Report, diags []diagnostics.Diagnostic) (string, error) {
	meta := indexMeta{
		Tags:            []string{"scenevitals/report"},
		Scene:           r.SceneName(),
		Path:            r.ScenePath(),
		Totals:          r.Totals(),
		SharedTextureMB: r.SharedTextureMB(),
		Ratios:          r.Ratios(),
	}
	for _, d := range diags {
		meta.Warnings = append(meta.Warnings, d.Kind)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", title(r.SceneName())))
	b.WriteString("| Measure | Value | Budget | Ratio |\n")
	b.WriteString("|---------|-------|--------|-------|\n")
	tot := r.Totals()
	th := r.Thresholds()
	b.WriteString(fmt.Sprintf("| Vertices | %d | %d | %.2f |\n", tot.RawVerts, th.MaxVerts, r.VertRatio()))
	b.WriteString(fmt.Sprintf("| Unique materials | %d | %d | %.2f |\n", tot.UniqueMaterials, th.MaxUniqueMaterials, r.UniqueMaterialRatio()))
	b.WriteString(fmt.Sprintf("| Shared textures (MB) | %d | %d | %.2f |\n", r.SharedTextureMB(), th.MaxSharedTextureMB, r.SharedTextureRatio()))
	b.WriteString(fmt.Sprintf("| Collider vertices | %d | %d | %.2f |\n", tot.ColliderVerts, th.MaxColliderVerts, r.ColliderVertRatio()))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("- **Unique vertices**: %d\n", tot.UniqueVerts))
	b.WriteString(fmt.Sprintf("- **Material textures**: %d MB\n", tot.MaterialTextureMB))
	b.WriteString(fmt.Sprintf("- **Lightmaps**: %d MB\n", tot.LightmapTextureMB))
	b.WriteString(fmt.Sprintf("- **Reflection probes**: %d MB\n", tot.ReflectionProbeMB))
	b.WriteString(fmt.Sprintf("- **Realtime lights**: %d\n", tot.RealtimeLights))
	b.WriteString("\n")

	b.WriteString("## Pages\n\n")
	for _, p := range []string{"meshes", "colliders", "textures", "warnings"} {
		b.WriteString(fmt.Sprintf("- [[%s]]\n", p))
	}

	data, err := frontmatter.Write(meta, "\n"+b.String())
	if err != nil {
		return "", fmt.Errorf("export: index: %w", err)
	}
	return string(data), nil
}

func buildMeshesPage(r *profiler.Report) string {
	var b strings.Builder
	b.WriteString(tagBlock("scenevitals/meshes"))
	b.WriteString("# Meshes\n\n")
	meshes := r.Meshes()
	if len(meshes) == 0 {
		b.WriteString("_None._\n")
		return b.String()
	}
	b.WriteString("| Asset | Vertices |\n")
	b.WriteString("|-------|----------|\n")
	for _, m := range meshes {
		b.WriteString(fmt.Sprintf("| `%s` | %d |\n", m.Asset, m.Vertices))
	}
	return b.String()
}

func buildCollidersPage(r *profiler.Report) string {
	var b strings.Builder
	b.WriteString(tagBlock("scenevitals/colliders"))
	b.WriteString("# Colliders\n\n")
	colliders := r.Colliders()
	if len(colliders) == 0 {
		b.WriteString("_None._\n")
		return b.String()
	}
	b.WriteString("| Node | Vertices |\n")
	b.WriteString("|------|----------|\n")
	for _, c := range colliders {
		b.WriteString(fmt.Sprintf("| `%s` | %d |\n", c.Node, c.Vertices))
	}
	return b.String()
}

func buildTexturesPage(r *profiler.Report) string {
	var b strings.Builder
	b.WriteString(tagBlock("scenevitals/textures"))
	b.WriteString("# Textures\n\n")
	textures := r.Textures()
	if len(textures) == 0 {
		b.WriteString("_None._\n")
		return b.String()
	}
	b.WriteString("| Asset | Size (MB) |\n")
	b.WriteString("|-------|-----------|\n")
	for _, t := range textures {
		b.WriteString(fmt.Sprintf("| `%s` | %.2f |\n", t.Asset, t.SizeMB))
	}
	return b.String()
}

func buildWarningsPage(diags []diagnostics.Diagnostic) string {
	var b strings.Builder
	b.WriteString(tagBlock("scenevitals/warnings"))
	b.WriteString("# Warnings\n\n")
	if len(diags) == 0 {
		b.WriteString("_None._\n")
		return b.String()
	}
	for _, d := range diags {
		b.WriteString(fmt.Sprintf("## %s\n\n", d.Kind))
		b.WriteString("```\n")
		b.WriteString(strings.TrimRight(d.Message, "\n") + "\n")
		b.WriteString("```\n\n")
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// tagBlock returns a frontmatter block carrying a single tag.
func tagBlock(tag string) string {
	return "---\ntags:\n  - " + tag + "\n---\n\n"
}

func title(name string) string {
	if name == "" {
		return "Untitled scene"
	}
	return name
}

// writeNote writes content to path, creating parent directories as needed.
func writeNote(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}
