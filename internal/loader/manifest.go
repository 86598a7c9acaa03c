package loader

// manifest.go: YAML scene manifests.
//
// A manifest declares asset libraries keyed by id and a node hierarchy that
// refers to those ids. Every reference to one id resolves to the same
// asset pointer, so sharing in the file is sharing in the graph.
//
//	name: Courtyard
//	meshes:
//	  rock: {path: Assets/Rock.fbx, vertices: 1200}
//	textures:
//	  rock_albedo: {path: Assets/Rock_albedo.png, bytes: 4194304}
//	materials:
//	  rock:
//	    name: Rock
//	    textures: {_MainTex: rock_albedo}
//	lightmaps:
//	  - {color: lm0_light, directional: lm0_dir}
//	nodes:
//	  - name: Rock01
//	    renderer: {kind: mesh, mesh: rock, materials: [rock]}
//	    collider: {mesh: rock}

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"scenevitals/internal/scene"
)

// ManifestLoader reads *.scene.yaml files.
type ManifestLoader struct {
	Logger *slog.Logger
}

func (m *ManifestLoader) Name() string { return "manifest" }

func (m *ManifestLoader) Extensions() []string { return []string{".scene.yaml", ".scene.yml"} }

// ---------------------------------------------------------------------------
// File format
// ---------------------------------------------------------------------------

type manifestFile struct {
	Name      string                     `yaml:"name"`
	Meshes    map[string]manifestMesh    `yaml:"meshes"`
	Textures  map[string]manifestTexture `yaml:"textures"`
	Materials map[string]manifestMat     `yaml:"materials"`
	Lightmaps []manifestLightmap         `yaml:"lightmaps"`
	Nodes     []manifestNode             `yaml:"nodes"`
}

type manifestMesh struct {
	Path     string `yaml:"path"`
	Vertices int    `yaml:"vertices"`
}

type manifestTexture struct {
	Path  string `yaml:"path"`
	Bytes int64  `yaml:"bytes"`
}

type manifestMat struct {
	Name     string    `yaml:"name"`
	Textures slotOrder `yaml:"textures"`
}

// slotOrder is a slot → texture id mapping that keeps file order.
type slotOrder []slotRef

type slotRef struct {
	Slot    string
	Texture string
}

func (s *slotOrder) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: material textures must be a mapping of slot to texture id", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		*s = append(*s, slotRef{Slot: n.Content[i].Value, Texture: n.Content[i+1].Value})
	}
	return nil
}

type manifestLightmap struct {
	Color       string `yaml:"color"`
	Directional string `yaml:"directional"`
	ShadowMask  string `yaml:"shadow_mask"`
}

type manifestNode struct {
	Name            string             `yaml:"name"`
	Renderer        *manifestRenderer  `yaml:"renderer"`
	Collider        *manifestCollider  `yaml:"collider"`
	Light           *manifestLight     `yaml:"light"`
	LightProbes     *manifestProbes    `yaml:"light_probes"`
	ReflectionProbe *manifestReflProbe `yaml:"reflection_probe"`
	Children        []manifestNode     `yaml:"children"`
}

type manifestRenderer struct {
	Kind      string   `yaml:"kind"`
	Mesh      string   `yaml:"mesh"`
	Materials []string `yaml:"materials"`
}

type manifestCollider struct {
	Mesh string `yaml:"mesh"`
}

type manifestLight struct {
	Bake string `yaml:"bake"`
}

type manifestProbes struct {
	Positions int `yaml:"positions"`
}

type manifestReflProbe struct {
	Mode       string `yaml:"mode"`
	Texture    string `yaml:"texture"`
	Resolution int    `yaml:"resolution"`
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// Load parses the manifest at path.
func (m *ManifestLoader) Load(path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f manifestFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	r := newResolver(&f, loggerOr(m.Logger).With("scene", path))

	sc := &scene.Scene{Name: f.Name, Path: path}
	if sc.Name == "" {
		sc.Name = sceneName(path, m.Extensions())
	}
	for _, lm := range f.Lightmaps {
		sc.Lightmaps = append(sc.Lightmaps, scene.Lightmap{
			Color:       r.texture(lm.Color),
			Directional: r.texture(lm.Directional),
			ShadowMask:  r.texture(lm.ShadowMask),
		})
	}
	for i := range f.Nodes {
		sc.Roots = append(sc.Roots, r.node(&f.Nodes[i]))
	}
	return sc, nil
}

// resolver turns ids into shared pointers, building each asset once.
type resolver struct {
	file      *manifestFile
	logger    *slog.Logger
	meshes    map[string]*scene.Mesh
	textures  map[string]*scene.Texture
	materials map[string]*scene.Material
}

func newResolver(f *manifestFile, logger *slog.Logger) *resolver {
	return &resolver{
		file:      f,
		logger:    logger,
		meshes:    make(map[string]*scene.Mesh),
		textures:  make(map[string]*scene.Texture),
		materials: make(map[string]*scene.Material),
	}
}

func (r *resolver) mesh(id string) *scene.Mesh {
	if id == "" {
		return nil
	}
	if m, ok := r.meshes[id]; ok {
		return m
	}
	def, ok := r.file.Meshes[id]
	if !ok {
		r.logger.Debug("unresolved mesh", "id", id)
		r.meshes[id] = nil
		return nil
	}
	m := &scene.Mesh{Path: def.Path, VertexCount: max(def.Vertices, 0)}
	if m.Path == "" {
		m.Path = id
	}
	r.meshes[id] = m
	return m
}

func (r *resolver) texture(id string) *scene.Texture {
	if id == "" {
		return nil
	}
	if t, ok := r.textures[id]; ok {
		return t
	}
	def, ok := r.file.Textures[id]
	if !ok {
		r.logger.Debug("unresolved texture", "id", id)
		r.textures[id] = nil
		return nil
	}
	t := &scene.Texture{Path: def.Path, Bytes: max(def.Bytes, 0)}
	if t.Path == "" {
		t.Path = id
	}
	r.textures[id] = t
	return t
}

func (r *resolver) material(id string) *scene.Material {
	if id == "" {
		return nil
	}
	if m, ok := r.materials[id]; ok {
		return m
	}
	def, ok := r.file.Materials[id]
	if !ok {
		r.logger.Debug("unresolved material", "id", id)
		r.materials[id] = nil
		return nil
	}
	m := &scene.Material{Name: def.Name}
	if m.Name == "" {
		m.Name = id
	}
	for _, s := range def.Textures {
		m.Textures = append(m.Textures, scene.TextureSlot{Slot: s.Slot, Texture: r.texture(s.Texture)})
	}
	r.materials[id] = m
	return m
}

func (r *resolver) node(def *manifestNode) *scene.Node {
	n := &scene.Node{Name: def.Name}
	if rd := def.Renderer; rd != nil {
		n.Renderable = &scene.Renderable{Kind: scene.ParseRenderKind(rd.Kind), Mesh: r.mesh(rd.Mesh)}
		for _, id := range rd.Materials {
			n.Renderable.Materials = append(n.Renderable.Materials, r.material(id))
		}
	}
	if c := def.Collider; c != nil {
		n.Collider = &scene.Collider{Mesh: r.mesh(c.Mesh)}
	}
	if l := def.Light; l != nil {
		n.Light = &scene.Light{Bake: scene.ParseBakeMode(l.Bake)}
	}
	if p := def.LightProbes; p != nil {
		n.LightProbes = &scene.LightProbeGroup{Positions: p.Positions}
	}
	if p := def.ReflectionProbe; p != nil {
		n.ReflectionProbe = &scene.ReflectionProbe{
			Mode:       scene.ParseProbeMode(p.Mode),
			Texture:    r.texture(p.Texture),
			Resolution: p.Resolution,
		}
	}
	for i := range def.Children {
		n.Children = append(n.Children, r.node(&def.Children[i]))
	}
	return n
}
