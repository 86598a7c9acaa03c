package profiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenevitals/internal/budget"
	"scenevitals/internal/scene"
)

const mb = 1024 * 1024

func newProfiler(t *testing.T) *Profiler {
	t.Helper()
	p, err := New(budget.Default())
	require.NoError(t, err)
	return p
}

func meshNode(name string, m *scene.Mesh, mats ...*scene.Material) *scene.Node {
	return &scene.Node{Name: name, Renderable: &scene.Renderable{Kind: scene.RenderMesh, Mesh: m, Materials: mats}}
}

func TestNewRejectsInvalidBudgets(t *testing.T) {
	th := budget.Default()
	th.MaxUniqueMaterials = 0
	p, err := New(th)
	assert.Nil(t, p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, budget.ErrInvalidBudget))
}

func TestSharedMeshAndCollider(t *testing.T) {
	a := &scene.Mesh{Path: "Assets/A.fbx", VertexCount: 1000}
	sc := &scene.Scene{Name: "example", Roots: []*scene.Node{
		meshNode("node1", a),
		meshNode("node2", a),
		{Name: "node3", Collider: &scene.Collider{Mesh: a}},
	}}

	r := newProfiler(t).Analyze(sc)
	tot := r.Totals()

	assert.Equal(t, 2000, tot.RawVerts)
	assert.Equal(t, 1000, tot.UniqueVerts)
	assert.Equal(t, 1000, tot.ColliderVerts)
	assert.Equal(t, []MeshEntry{{Asset: "Assets/A.fbx", Vertices: 1000}}, r.Meshes())
	assert.Equal(t, []ColliderEntry{{Node: "/node3", Vertices: 1000}}, r.Colliders())
}

func TestEmptyScene(t *testing.T) {
	r := newProfiler(t).Analyze(&scene.Scene{Name: "empty"})
	assert.Equal(t, Totals{}, r.Totals())
	assert.Empty(t, r.Meshes())
	assert.Empty(t, r.Colliders())
	assert.Empty(t, r.Textures())
	assert.False(t, r.HasLightmaps())
	assert.Equal(t, "empty", r.SceneName())
}

func TestNilScene(t *testing.T) {
	r := newProfiler(t).Analyze(nil)
	assert.Equal(t, Totals{}, r.Totals())
}

func TestCollidersAreNotDeduplicated(t *testing.T) {
	m := &scene.Mesh{Path: "col", VertexCount: 300}
	sc := &scene.Scene{Roots: []*scene.Node{
		{Name: "Walls", Children: []*scene.Node{
			{Name: "A", Collider: &scene.Collider{Mesh: m}},
			{Name: "B", Collider: &scene.Collider{Mesh: m}},
			{Name: "C", Collider: &scene.Collider{}},
		}},
	}}
	r := newProfiler(t).Analyze(sc)
	assert.Equal(t, 600, r.Totals().ColliderVerts)
	assert.Equal(t, []ColliderEntry{
		{Node: "/Walls/A", Vertices: 300},
		{Node: "/Walls/B", Vertices: 300},
	}, r.Colliders())
}

func TestRenderKinds(t *testing.T) {
	skinned := &scene.Mesh{Path: "hero", VertexCount: 50}
	sc := &scene.Scene{Roots: []*scene.Node{
		{Name: "Hero", Renderable: &scene.Renderable{Kind: scene.RenderSkinned, Mesh: skinned}},
		{Name: "Tree1", Renderable: &scene.Renderable{Kind: scene.RenderBillboard}},
		{Name: "Tree2", Renderable: &scene.Renderable{Kind: scene.RenderBillboard}},
		{Name: "NoMesh", Renderable: &scene.Renderable{Kind: scene.RenderMesh}},
		{Name: "Odd", Renderable: &scene.Renderable{
			Kind:      scene.ParseRenderKind("particles"),
			Mesh:      &scene.Mesh{Path: "ignored", VertexCount: 99},
			Materials: []*scene.Material{{Name: "Smoke"}},
		}},
	}}
	r := newProfiler(t).Analyze(sc)
	tot := r.Totals()
	assert.Equal(t, 50+2*scene.BillboardVertices, tot.RawVerts)
	assert.Equal(t, 50, tot.UniqueVerts)
	assert.Equal(t, 1, tot.UniqueMaterials, "unknown kinds still carry materials")
	assert.Equal(t, []MeshEntry{{Asset: "hero", Vertices: 50}}, r.Meshes())
}

func TestMaterialsByNameTexturesByIdentity(t *testing.T) {
	albedo := &scene.Texture{Path: "albedo.png", Bytes: 2 * mb}
	albedoCopy := &scene.Texture{Path: "albedo.png", Bytes: 2 * mb}
	normal := &scene.Texture{Path: "normal.png", Bytes: 1 * mb}

	brick := &scene.Material{Name: "Brick", Textures: []scene.TextureSlot{
		{Slot: "_MainTex", Texture: albedo},
		{Slot: "_DetailTex", Texture: albedo},
		{Slot: "_BumpMap", Texture: normal},
		{Slot: "_Missing"},
	}}
	brickInstance := &scene.Material{Name: "Brick", Textures: []scene.TextureSlot{{Slot: "_MainTex", Texture: albedoCopy}}}
	stone := &scene.Material{Name: "Stone", Textures: []scene.TextureSlot{{Slot: "_MainTex", Texture: normal}}}

	m := &scene.Mesh{Path: "wall", VertexCount: 24}
	sc := &scene.Scene{Roots: []*scene.Node{
		meshNode("a", m, brick, nil),
		meshNode("b", m, brickInstance, stone),
	}}
	r := newProfiler(t).Analyze(sc)
	tot := r.Totals()

	assert.Equal(t, 2, tot.UniqueMaterials)
	assert.Equal(t, 5, tot.MaterialTextureMB)
	assert.Equal(t, []TextureEntry{
		{Asset: "albedo.png", SizeMB: 2},
		{Asset: "albedo.png", SizeMB: 2},
		{Asset: "normal.png", SizeMB: 1},
	}, r.Textures())
}

func TestLights(t *testing.T) {
	sc := &scene.Scene{Roots: []*scene.Node{
		{Name: "Sun", Light: &scene.Light{Bake: scene.BakeBaked}},
		{Name: "Lamp", Light: &scene.Light{Bake: scene.BakeMixed}},
		{Name: "Torch", Light: &scene.Light{Bake: scene.BakeRealtime}},
	}}
	assert.Equal(t, 2, newProfiler(t).Analyze(sc).Totals().RealtimeLights)
}

func TestProbes(t *testing.T) {
	baked := &scene.Texture{Path: "probe0.exr", Bytes: 4 * mb}
	sc := &scene.Scene{Roots: []*scene.Node{
		{Name: "EmptyGroup", LightProbes: &scene.LightProbeGroup{}},
		{Name: "Baked", ReflectionProbe: &scene.ReflectionProbe{Mode: scene.ProbeBaked, Texture: baked}},
		{Name: "Unbaked", ReflectionProbe: &scene.ReflectionProbe{Mode: scene.ProbeBaked}},
		{Name: "Live", ReflectionProbe: &scene.ReflectionProbe{Mode: scene.ProbeRealtime, Resolution: 1024}},
		{Name: "Custom", ReflectionProbe: &scene.ReflectionProbe{Mode: scene.ProbeCustom, Resolution: 2048}},
	}}
	tot := newProfiler(t).Analyze(sc).Totals()
	assert.False(t, tot.HasLightProbes)
	assert.True(t, tot.HasReflectionProbes)
	assert.Equal(t, 4+3, tot.ReflectionProbeMB)

	sc.Roots = append(sc.Roots, &scene.Node{Name: "Group", LightProbes: &scene.LightProbeGroup{Positions: 8}})
	assert.True(t, newProfiler(t).Analyze(sc).Totals().HasLightProbes)
}

func TestLightmapsAndSharedTexture(t *testing.T) {
	color := &scene.Texture{Path: "Lightmap-0_comp_light.exr", Bytes: 3 * mb}
	dir := &scene.Texture{Path: "Lightmap-0_comp_dir.png", Bytes: 1 * mb}
	mask := &scene.Texture{Path: "Lightmap-0_comp_shadowmask.png", Bytes: 1 * mb}
	tex := &scene.Texture{Path: "wood.png", Bytes: 2 * mb}
	sc := &scene.Scene{
		Lightmaps: []scene.Lightmap{{Color: color, Directional: dir}, {ShadowMask: mask}},
		Roots: []*scene.Node{
			meshNode("Crate", &scene.Mesh{Path: "crate", VertexCount: 8},
				&scene.Material{Name: "Wood", Textures: []scene.TextureSlot{{Slot: "_MainTex", Texture: tex}}}),
			{Name: "Probe", ReflectionProbe: &scene.ReflectionProbe{Mode: scene.ProbeRealtime, Resolution: 1024}},
		},
	}
	r := newProfiler(t).Analyze(sc)
	tot := r.Totals()

	assert.True(t, r.HasLightmaps())
	assert.Equal(t, 5, tot.LightmapTextureMB)
	assert.Equal(t, 2, tot.MaterialTextureMB)
	assert.Equal(t, 3, tot.ReflectionProbeMB)
	assert.Equal(t, tot.MaterialTextureMB+tot.LightmapTextureMB+tot.ReflectionProbeMB, r.SharedTextureMB())
	assert.Equal(t, 10, r.SharedTextureMB())

	assert.Equal(t, []TextureEntry{
		{Asset: "Lightmap-0_comp_light.exr", SizeMB: 3},
		{Asset: "wood.png", SizeMB: 2},
		{Asset: "Lightmap-0_comp_dir.png", SizeMB: 1},
		{Asset: "Lightmap-0_comp_shadowmask.png", SizeMB: 1},
	}, r.Textures())
}

func TestSortingIsStableDescending(t *testing.T) {
	var roots []*scene.Node
	for i, v := range []int{10, 30, 10, 30, 20} {
		m := &scene.Mesh{Path: string(rune('a' + i)), VertexCount: v}
		roots = append(roots, meshNode(m.Path, m))
	}
	r := newProfiler(t).Analyze(&scene.Scene{Roots: roots})
	assert.Equal(t, []MeshEntry{
		{Asset: "b", Vertices: 30},
		{Asset: "d", Vertices: 30},
		{Asset: "e", Vertices: 20},
		{Asset: "a", Vertices: 10},
		{Asset: "c", Vertices: 10},
	}, r.Meshes())
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	shared := &scene.Mesh{Path: "rock", VertexCount: 120}
	tex := &scene.Texture{Path: "rock.png", Bytes: mb}
	mat := &scene.Material{Name: "Rock", Textures: []scene.TextureSlot{{Slot: "_MainTex", Texture: tex}}}
	sc := &scene.Scene{
		Lightmaps: []scene.Lightmap{{Color: &scene.Texture{Path: "lm.exr", Bytes: mb}}},
		Roots: []*scene.Node{
			meshNode("r1", shared, mat),
			meshNode("r2", shared, mat),
			{Name: "c", Collider: &scene.Collider{Mesh: shared}},
		},
	}
	p := newProfiler(t)
	a, b := p.Analyze(sc), p.Analyze(sc)
	assert.Equal(t, a.Totals(), b.Totals())
	assert.Equal(t, a.Meshes(), b.Meshes())
	assert.Equal(t, a.Colliders(), b.Colliders())
	assert.Equal(t, a.Textures(), b.Textures())
	assert.LessOrEqual(t, a.Totals().UniqueVerts, a.Totals().RawVerts)
}

func TestRatiosAndThresholds(t *testing.T) {
	th := budget.Thresholds{MaxVerts: 100, MaxUniqueMaterials: 2, MaxSharedTextureMB: 4, MaxColliderVerts: 50}
	p, err := New(th)
	require.NoError(t, err)
	m := &scene.Mesh{Path: "m", VertexCount: 150}
	sc := &scene.Scene{Roots: []*scene.Node{
		meshNode("a", m, &scene.Material{Name: "x"}, &scene.Material{Name: "y"}),
		{Name: "c", Collider: &scene.Collider{Mesh: &scene.Mesh{VertexCount: 25}}},
	}}
	r := p.Analyze(sc)
	assert.Equal(t, th, r.Thresholds())
	assert.Equal(t, 1.5, r.VertRatio())
	assert.Equal(t, 1.0, r.UniqueMaterialRatio())
	assert.Equal(t, 0.0, r.SharedTextureRatio())
	assert.Equal(t, 0.5, r.ColliderVertRatio())
	assert.Equal(t, Ratios{Verts: 1.5, UniqueMaterials: 1, SharedTexture: 0, ColliderVerts: 0.5}, r.Ratios())
	assert.GreaterOrEqual(t, r.Duration().Nanoseconds(), int64(0))
}

func TestListsAreCopies(t *testing.T) {
	m := &scene.Mesh{Path: "m", VertexCount: 5}
	r := newProfiler(t).Analyze(&scene.Scene{Roots: []*scene.Node{meshNode("a", m)}})
	got := r.Meshes()
	got[0].Vertices = 999
	assert.Equal(t, 5, r.Meshes()[0].Vertices)
}

func TestSummaryLimit(t *testing.T) {
	var roots []*scene.Node
	for i := 0; i < 5; i++ {
		roots = append(roots, meshNode("n", &scene.Mesh{Path: "m", VertexCount: i + 1}))
	}
	r := newProfiler(t).Analyze(&scene.Scene{Name: "s", Roots: roots})
	s := r.Summary(2)
	assert.Len(t, s.Meshes, 2)
	assert.Equal(t, 5, s.Meshes[0].Vertices)
	assert.Len(t, r.Summary(-1).Meshes, 5)
	assert.Equal(t, "s", s.Scene)
	assert.Equal(t, budget.Default(), s.Budgets)
}
