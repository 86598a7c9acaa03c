package profiler

import (
	"scenevitals/internal/scene"
)

// tallies are the running totals of one traversal. A fresh value is built
// for every Analyze call.
type tallies struct {
	rawVerts       int
	colliderVerts  int
	realtimeLights int

	hasLightProbes      bool
	hasReflectionProbes bool
	hasLightmaps        bool

	lightmapBytes   int64
	reflectionBytes int64

	meshes        *Tracker[scene.Mesh]
	textures      *Tracker[scene.Texture]
	materialNames map[string]struct{}

	colliders        []ColliderEntry
	lightmapTextures []TextureEntry
}

func newTallies() *tallies {
	return &tallies{
		meshes:        NewTracker[scene.Mesh](),
		textures:      NewTracker[scene.Texture](),
		materialNames: make(map[string]struct{}),
	}
}

// addLightmaps adds every present lightmap channel. Lightmap textures are
// listed per channel under their own path and are not deduplicated against
// material textures.
func (t *tallies) addLightmaps(lightmaps []scene.Lightmap) {
	for _, lm := range lightmaps {
		for _, tex := range lm.Channels() {
			t.hasLightmaps = true
			t.lightmapBytes += tex.Bytes
			t.lightmapTextures = append(t.lightmapTextures, TextureEntry{
				Asset:  tex.Path,
				SizeMB: bytesToMB(tex.Bytes),
			})
		}
	}
}

// visit classifies one node and updates the running totals. Capabilities
// the profiler does not know about are not tallied.
func (t *tallies) visit(path string, n *scene.Node) {
	if r := n.Renderable; r != nil {
		t.addRenderable(r)
	}
	if c := n.Collider; c != nil && c.Mesh != nil {
		t.colliderVerts += c.Mesh.VertexCount
		t.colliders = append(t.colliders, ColliderEntry{Node: path, Vertices: c.Mesh.VertexCount})
	}
	if l := n.Light; l != nil && l.Bake != scene.BakeBaked {
		t.realtimeLights++
	}
	if g := n.LightProbes; g != nil && !t.hasLightProbes && g.Positions > 0 {
		t.hasLightProbes = true
	}
	if p := n.ReflectionProbe; p != nil {
		t.addReflectionProbe(p)
	}
}

func (t *tallies) addRenderable(r *scene.Renderable) {
	for _, m := range r.Materials {
		if m == nil {
			continue
		}
		t.materialNames[m.Name] = struct{}{}
		for _, slot := range m.Textures {
			t.textures.Add(slot.Texture)
		}
	}

	switch r.Kind {
	case scene.RenderMesh, scene.RenderSkinned:
		if r.Mesh != nil {
			t.rawVerts += r.Mesh.VertexCount
			t.meshes.Add(r.Mesh)
		}
	case scene.RenderBillboard:
		t.rawVerts += scene.BillboardVertices
	}
}

func (t *tallies) addReflectionProbe(p *scene.ReflectionProbe) {
	t.hasReflectionProbes = true
	switch p.Mode {
	case scene.ProbeBaked:
		if p.Texture != nil {
			t.reflectionBytes += p.Texture.Bytes
		}
	case scene.ProbeRealtime:
		// No texture exists until the probe renders; estimate one RGB face.
		res := int64(p.Resolution)
		t.reflectionBytes += res * res * 3
	}
}

// uniqueVerts sums vertex counts over distinct meshes.
func (t *tallies) uniqueVerts() int {
	n := 0
	for _, m := range t.meshes.Items() {
		n += m.VertexCount
	}
	return n
}

// materialTextureBytes sums resident memory over distinct material textures.
func (t *tallies) materialTextureBytes() int64 {
	var n int64
	for _, tex := range t.textures.Items() {
		n += tex.Bytes
	}
	return n
}

func bytesToMB(b int64) float64 {
	return float64(b) / 1024 / 1024
}

// wholeMB truncates a byte count to whole megabytes.
func wholeMB(b int64) int {
	return int(b / 1024 / 1024)
}
