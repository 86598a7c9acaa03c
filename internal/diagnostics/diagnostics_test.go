package diagnostics

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenevitals/internal/budget"
	"scenevitals/internal/profiler"
	"scenevitals/internal/scene"
)

func analyze(t *testing.T, th budget.Thresholds, sc *scene.Scene) *profiler.Report {
	t.Helper()
	p, err := profiler.New(th)
	require.NoError(t, err)
	return p.Analyze(sc)
}

func kinds(diags []Diagnostic) []Kind {
	out := make([]Kind, len(diags))
	for i, d := range diags {
		out[i] = d.Kind
	}
	return out
}

// litScene has lightmaps and both probe kinds, so only budget checks fire.
func litScene(roots ...*scene.Node) *scene.Scene {
	roots = append(roots,
		&scene.Node{Name: "Probes", LightProbes: &scene.LightProbeGroup{Positions: 4}},
		&scene.Node{Name: "Reflection", ReflectionProbe: &scene.ReflectionProbe{Mode: scene.ProbeBaked}},
	)
	return &scene.Scene{
		Name:      "lit",
		Lightmaps: []scene.Lightmap{{Color: &scene.Texture{Path: "lm.exr", Bytes: 1}}},
		Roots:     roots,
	}
}

func materials(n int) []*scene.Material {
	out := make([]*scene.Material, n)
	for i := range out {
		out[i] = &scene.Material{Name: fmt.Sprintf("mat%d", i)}
	}
	return out
}

func TestEmptySceneWarnsAboutMissingFeaturesOnly(t *testing.T) {
	diags := Format(analyze(t, budget.Default(), &scene.Scene{Name: "Empty"}))
	assert.Equal(t, []Kind{KindNoLightmaps, KindNoLightProbes, KindNoReflectionProbes}, kinds(diags))
	for _, d := range diags {
		assert.Empty(t, d.Assets)
		assert.Contains(t, d.Message, "Scene Empty")
	}
	assert.False(t, AnyOverBudget(diags))
}

func TestHealthySceneIsSilent(t *testing.T) {
	sc := litScene(&scene.Node{Name: "Box", Renderable: &scene.Renderable{Mesh: &scene.Mesh{Path: "box", VertexCount: 24}}})
	assert.Empty(t, Format(analyze(t, budget.Default(), sc)))
}

func TestUniqueMaterialBoundaryIsStrict(t *testing.T) {
	th := budget.Default()
	th.MaxUniqueMaterials = 10000

	at := litScene(&scene.Node{Name: "a", Renderable: &scene.Renderable{Materials: materials(10000)}})
	assert.Empty(t, Format(analyze(t, th, at)), "ratio of exactly 1.0 must not warn")

	over := litScene(&scene.Node{Name: "a", Renderable: &scene.Renderable{Materials: materials(10001)}})
	diags := Format(analyze(t, th, over))
	require.Len(t, diags, 1)
	assert.Equal(t, KindUniqueMaterials, diags[0].Kind)
	assert.Empty(t, diags[0].Assets)
	assert.True(t, AnyOverBudget(diags))
}

func TestColliderWarningListsTopThirtyNodes(t *testing.T) {
	var roots []*scene.Node
	for i := 0; i < 35; i++ {
		roots = append(roots, &scene.Node{
			Name:     fmt.Sprintf("c%02d", i),
			Collider: &scene.Collider{Mesh: &scene.Mesh{VertexCount: 100 + i}},
		})
	}
	th := budget.Default()
	th.MaxColliderVerts = 1000

	diags := Format(analyze(t, th, litScene(roots...)))
	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, KindColliderVerts, d.Kind)
	require.Len(t, d.Assets, MaxColliderEntries)
	assert.Equal(t, "/c34", d.Assets[0])
	assert.Equal(t, "/c05", d.Assets[29])
	assert.Contains(t, d.Message, " - 134 - /c34\n")
}

func TestVertAndTextureWarnings(t *testing.T) {
	var roots []*scene.Node
	for i := 0; i < 45; i++ {
		tex := &scene.Texture{Path: fmt.Sprintf("t%02d.png", i), Bytes: int64(i+1) * 1024 * 1024}
		roots = append(roots, &scene.Node{
			Name: fmt.Sprintf("n%02d", i),
			Renderable: &scene.Renderable{
				Mesh:      &scene.Mesh{Path: fmt.Sprintf("m%02d", i), VertexCount: 10 * (i + 1)},
				Materials: []*scene.Material{{Name: "shared", Textures: []scene.TextureSlot{{Slot: "_MainTex", Texture: tex}}}},
			},
		})
	}
	th := budget.Thresholds{MaxVerts: 100, MaxUniqueMaterials: 5, MaxSharedTextureMB: 10, MaxColliderVerts: 10}
	diags := Format(analyze(t, th, litScene(roots...)))
	assert.Equal(t, []Kind{KindVerts, KindSharedTextures}, kinds(diags))

	assert.Len(t, diags[0].Assets, MaxMeshEntries)
	assert.Equal(t, "m44", diags[0].Assets[0])

	assert.Len(t, diags[1].Assets, MaxTextureEntries)
	assert.Equal(t, "t44.png", diags[1].Assets[0])
	assert.Contains(t, diags[1].Message, " - 45.00MB - t44.png\n")
}

func TestSelectIgnoresChecks(t *testing.T) {
	sc := litScene(
		&scene.Node{Name: "a", Renderable: &scene.Renderable{Mesh: &scene.Mesh{Path: "rock", VertexCount: 5}}},
		&scene.Node{Name: "b", Collider: &scene.Collider{Mesh: &scene.Mesh{VertexCount: 3}}},
	)
	r := analyze(t, budget.Default(), sc)
	assert.Equal(t, []string{"rock"}, Select(r, CategoryMeshes))
	assert.Equal(t, []string{"/b"}, Select(r, CategoryColliders))
	assert.Equal(t, []string{"lm.exr"}, Select(r, CategoryTextures))
	assert.Nil(t, Select(r, Category("lights")))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("Textures")
	require.NoError(t, err)
	assert.Equal(t, CategoryTextures, c)
	_, err = ParseCategory("lights")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	var b strings.Builder
	require.NoError(t, Render(&b, []Diagnostic{{Message: "one\n"}, {Message: "two\n"}}))
	assert.Equal(t, "one\n\ntwo\n", b.String())
}
