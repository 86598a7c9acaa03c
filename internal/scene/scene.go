// Package scene is the read-only scene graph the profiler walks.
//
// Assets are shared by pointer: two nodes that reference the same *Mesh,
// *Material or *Texture share that asset. Two assets with equal contents but
// distinct pointers are distinct assets. Any asset reference may be nil,
// which means the reference is absent or unresolved.
package scene

import "strings"

// PathSeparator joins node names into a node path.
const PathSeparator = "/"

// Scene is one loaded scene.
type Scene struct {
	Name string
	Path string

	Roots []*Node

	// Lightmaps is scene-level baked lighting data, not attached to nodes.
	Lightmaps []Lightmap
}

// Node is one element of the hierarchy. Every capability is optional.
type Node struct {
	Name     string
	Children []*Node

	Renderable      *Renderable
	Collider        *Collider
	Light           *Light
	LightProbes     *LightProbeGroup
	ReflectionProbe *ReflectionProbe
}

// Mesh is a geometry asset.
type Mesh struct {
	Path        string
	VertexCount int
}

// Texture is a texture asset. Bytes is its resident memory size and is zero
// when the texture could not be resolved.
type Texture struct {
	Path  string
	Bytes int64
}

// TextureSlot binds a texture to a named material property. The same
// texture may appear under several slots.
type TextureSlot struct {
	Slot    string
	Texture *Texture
}

// Material is a material asset.
type Material struct {
	Name     string
	Textures []TextureSlot
}

// RenderKind distinguishes how a renderable gets its geometry.
type RenderKind int

const (
	// RenderMesh draws a shared mesh.
	RenderMesh RenderKind = iota
	// RenderSkinned draws a skinned shared mesh.
	RenderSkinned
	// RenderBillboard draws a generated camera-facing quad with no mesh asset.
	RenderBillboard
)

// BillboardVertices is the vertex cost of one billboard quad.
const BillboardVertices = 4

func (k RenderKind) String() string {
	switch k {
	case RenderMesh:
		return "mesh"
	case RenderSkinned:
		return "skinned"
	case RenderBillboard:
		return "billboard"
	default:
		return "unknown"
	}
}

// ParseRenderKind maps a name to a RenderKind. Unknown names map to a kind
// that contributes no geometry.
func ParseRenderKind(s string) RenderKind {
	switch strings.ToLower(s) {
	case "", "mesh":
		return RenderMesh
	case "skinned", "skinned_mesh":
		return RenderSkinned
	case "billboard":
		return RenderBillboard
	default:
		return RenderKind(-1)
	}
}

// Renderable draws geometry with one or more materials.
type Renderable struct {
	Kind      RenderKind
	Mesh      *Mesh
	Materials []*Material
}

// Collider is physical collision geometry. Its cost is paid per instance.
type Collider struct {
	Mesh *Mesh
}

// BakeMode says when a light's contribution is computed.
type BakeMode int

const (
	BakeRealtime BakeMode = iota
	BakeMixed
	BakeBaked
)

func (b BakeMode) String() string {
	switch b {
	case BakeRealtime:
		return "realtime"
	case BakeMixed:
		return "mixed"
	case BakeBaked:
		return "baked"
	default:
		return "unknown"
	}
}

// ParseBakeMode maps a name to a BakeMode; unknown names are realtime.
func ParseBakeMode(s string) BakeMode {
	switch strings.ToLower(s) {
	case "mixed":
		return BakeMixed
	case "baked":
		return BakeBaked
	default:
		return BakeRealtime
	}
}

// Light is a light source.
type Light struct {
	Bake BakeMode
}

// LightProbeGroup is a volume of light probes.
type LightProbeGroup struct {
	Positions int
}

// ProbeMode says how a reflection probe is captured.
type ProbeMode int

const (
	ProbeBaked ProbeMode = iota
	ProbeRealtime
	ProbeCustom
)

func (m ProbeMode) String() string {
	switch m {
	case ProbeBaked:
		return "baked"
	case ProbeRealtime:
		return "realtime"
	case ProbeCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// ParseProbeMode maps a name to a ProbeMode; unknown names are baked.
func ParseProbeMode(s string) ProbeMode {
	switch strings.ToLower(s) {
	case "realtime":
		return ProbeRealtime
	case "custom":
		return ProbeCustom
	default:
		return ProbeBaked
	}
}

// ReflectionProbe captures reflections. Texture is set for baked probes once
// they have been baked; Resolution is the cubemap face size.
type ReflectionProbe struct {
	Mode       ProbeMode
	Texture    *Texture
	Resolution int
}

// Lightmap is one baked lightmap set with up to three channels.
type Lightmap struct {
	Color       *Texture
	Directional *Texture
	ShadowMask  *Texture
}

// Channels returns the present channels in color, directional, shadow-mask
// order.
func (l Lightmap) Channels() []*Texture {
	var out []*Texture
	for _, t := range []*Texture{l.Color, l.Directional, l.ShadowMask} {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Walk visits every node depth-first in pre-order and passes its path.
// A node reachable twice through the hierarchy is visited once, at its
// first position.
func (s *Scene) Walk(fn func(path string, n *Node)) {
	if s == nil {
		return
	}
	seen := make(map[*Node]struct{})
	var visit func(prefix string, n *Node)
	visit = func(prefix string, n *Node) {
		if n == nil {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		path := prefix + PathSeparator + n.Name
		fn(path, n)
		for _, c := range n.Children {
			visit(path, c)
		}
	}
	for _, r := range s.Roots {
		visit("", r)
	}
}

// NodeCount returns the number of distinct nodes Walk visits.
func (s *Scene) NodeCount() int {
	n := 0
	s.Walk(func(string, *Node) { n++ })
	return n
}
