package loader

// gltf.go: glTF 2.0 (.gltf JSON) scenes.
//
// Mapping onto the scene model:
//
//	meshes[i]           → one Mesh; vertices = sum of POSITION accessor counts
//	images[i]           → one Texture; bytes = width*height*4 from the image
//	                      header, 0 when the image cannot be read
//	materials[i]        → Material with baseColor, metallicRoughness, normal,
//	                      occlusion and emissive slots
//	nodes[i].mesh       → Renderable (skinned when the node has a skin),
//	                      one material per primitive
//	nodes[i].extras     → collider (bool), light_probes (int),
//	                      reflection_probe {mode, resolution, image}, baked (bool)
//	KHR_lights_punctual → Light, realtime unless extras.baked
//	extras.lightmaps    → [{color, directional, shadow_mask}] image indices

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	_ "golang.org/x/image/webp"

	"scenevitals/internal/scene"
)

// GLTFLoader reads *.gltf files.
type GLTFLoader struct {
	Logger *slog.Logger
}

func (g *GLTFLoader) Name() string { return "gltf" }

func (g *GLTFLoader) Extensions() []string { return []string{".gltf"} }

// materialSlots are the texture references a glTF material may carry.
var materialSlots = []struct {
	slot string
	path string
}{
	{"baseColor", "pbrMetallicRoughness.baseColorTexture.index"},
	{"metallicRoughness", "pbrMetallicRoughness.metallicRoughnessTexture.index"},
	{"normal", "normalTexture.index"},
	{"occlusion", "occlusionTexture.index"},
	{"emissive", "emissiveTexture.index"},
}

// Load parses the glTF document at path.
func (g *GLTFLoader) Load(path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse %s: invalid JSON", path)
	}
	doc := gjson.ParseBytes(data)
	if v := doc.Get("asset.version").String(); v != "" && !strings.HasPrefix(v, "2.") {
		return nil, fmt.Errorf("parse %s: unsupported glTF version %q", path, v)
	}

	b := &gltfBuilder{
		doc:    doc,
		dir:    filepath.Dir(path),
		file:   filepath.Base(path),
		logger: loggerOr(g.Logger).With("scene", path),
	}
	b.images()
	b.meshes()
	b.materials()

	sc := &scene.Scene{Path: path, Name: sceneName(path, g.Extensions())}
	sceneIdx := doc.Get("scene").Int()
	if s := doc.Get(fmt.Sprintf("scenes.%d", sceneIdx)); s.Exists() {
		if name := s.Get("name").String(); name != "" {
			sc.Name = name
		}
	}
	sc.Roots = b.nodes(sceneIdx)
	sc.Lightmaps = b.lightmaps()
	return sc, nil
}

// gltfBuilder resolves indices into shared asset pointers.
type gltfBuilder struct {
	doc    gjson.Result
	dir    string
	file   string
	logger *slog.Logger

	imgs      []*scene.Texture
	meshList  []*scene.Mesh
	meshMats  [][]int
	mats      []*scene.Material
	texSource []int
}

func (b *gltfBuilder) images() {
	for i, img := range b.doc.Get("images").Array() {
		t := &scene.Texture{Path: fmt.Sprintf("%s#images/%d", b.file, i)}
		if uri := img.Get("uri").String(); uri != "" && !strings.HasPrefix(uri, "data:") {
			rel, err := url.PathUnescape(uri)
			if err != nil {
				rel = uri
			}
			full := filepath.Join(b.dir, filepath.FromSlash(rel))
			t.Path = filepath.ToSlash(full)
			t.Bytes = imageBytes(full)
			if t.Bytes == 0 {
				b.logger.Debug("unresolved image", "index", i, "uri", uri)
			}
		}
		b.imgs = append(b.imgs, t)
	}
	for _, tex := range b.doc.Get("textures").Array() {
		src := -1
		if s := tex.Get("source"); s.Exists() {
			src = int(s.Int())
		}
		// EXT_texture_webp points at its own source.
		if s := tex.Get(`extensions.EXT_texture_webp.source`); s.Exists() {
			src = int(s.Int())
		}
		b.texSource = append(b.texSource, src)
	}
}

// imageBytes estimates resident memory as uncompressed RGBA8.
func imageBytes(path string) int64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0
	}
	return int64(cfg.Width) * int64(cfg.Height) * 4
}

func (b *gltfBuilder) image(idx int) *scene.Texture {
	if idx < 0 || idx >= len(b.imgs) {
		return nil
	}
	return b.imgs[idx]
}

func (b *gltfBuilder) texture(idx int) *scene.Texture {
	if idx < 0 || idx >= len(b.texSource) {
		return nil
	}
	return b.image(b.texSource[idx])
}

func (b *gltfBuilder) meshes() {
	accessors := b.doc.Get("accessors").Array()
	for i, m := range b.doc.Get("meshes").Array() {
		name := m.Get("name").String()
		if name == "" {
			name = fmt.Sprint(i)
		}
		mesh := &scene.Mesh{Path: fmt.Sprintf("%s#meshes/%s", b.file, name)}
		var mats []int
		for _, p := range m.Get("primitives").Array() {
			if pos := p.Get("attributes.POSITION"); pos.Exists() {
				if a := int(pos.Int()); a >= 0 && a < len(accessors) {
					mesh.VertexCount += max(int(accessors[a].Get("count").Int()), 0)
				}
			}
			mat := -1
			if mi := p.Get("material"); mi.Exists() {
				mat = int(mi.Int())
			}
			mats = append(mats, mat)
		}
		b.meshList = append(b.meshList, mesh)
		b.meshMats = append(b.meshMats, mats)
	}
}

func (b *gltfBuilder) materials() {
	for i, m := range b.doc.Get("materials").Array() {
		mat := &scene.Material{Name: m.Get("name").String()}
		if mat.Name == "" {
			mat.Name = fmt.Sprintf("material%d", i)
		}
		for _, s := range materialSlots {
			if idx := m.Get(s.path); idx.Exists() {
				mat.Textures = append(mat.Textures, scene.TextureSlot{Slot: s.slot, Texture: b.texture(int(idx.Int()))})
			}
		}
		b.mats = append(b.mats, mat)
	}
}

func (b *gltfBuilder) material(idx int) *scene.Material {
	if idx < 0 || idx >= len(b.mats) {
		return nil
	}
	return b.mats[idx]
}

// nodes builds every node once, links children by index and returns the
// roots of scene sceneIdx. Without a scenes array every parentless node is a
// root.
func (b *gltfBuilder) nodes(sceneIdx int64) []*scene.Node {
	defs := b.doc.Get("nodes").Array()
	nodes := make([]*scene.Node, len(defs))
	for i, def := range defs {
		nodes[i] = b.node(i, def)
	}
	hasParent := make([]bool, len(defs))
	for i, def := range defs {
		for _, c := range def.Get("children").Array() {
			if ci := int(c.Int()); ci >= 0 && ci < len(nodes) && ci != i {
				nodes[i].Children = append(nodes[i].Children, nodes[ci])
				hasParent[ci] = true
			}
		}
	}

	var roots []*scene.Node
	if s := b.doc.Get(fmt.Sprintf("scenes.%d", sceneIdx)); s.Exists() {
		for _, r := range s.Get("nodes").Array() {
			if ri := int(r.Int()); ri >= 0 && ri < len(nodes) {
				roots = append(roots, nodes[ri])
			}
		}
		return roots
	}
	for i, n := range nodes {
		if !hasParent[i] {
			roots = append(roots, n)
		}
	}
	return roots
}

func (b *gltfBuilder) node(i int, def gjson.Result) *scene.Node {
	n := &scene.Node{Name: def.Get("name").String()}
	if n.Name == "" {
		n.Name = fmt.Sprintf("node%d", i)
	}
	extras := def.Get("extras")

	var mesh *scene.Mesh
	if mi := def.Get("mesh"); mi.Exists() {
		idx := int(mi.Int())
		if idx >= 0 && idx < len(b.meshList) {
			mesh = b.meshList[idx]
			kind := scene.RenderMesh
			if def.Get("skin").Exists() {
				kind = scene.RenderSkinned
			}
			r := &scene.Renderable{Kind: kind, Mesh: mesh}
			for _, m := range b.meshMats[idx] {
				r.Materials = append(r.Materials, b.material(m))
			}
			n.Renderable = r
		}
	}

	if extras.Get("collider").Bool() {
		n.Collider = &scene.Collider{Mesh: mesh}
	}
	if def.Get("extensions.KHR_lights_punctual.light").Exists() {
		bake := scene.BakeRealtime
		if extras.Get("baked").Bool() {
			bake = scene.BakeBaked
		}
		n.Light = &scene.Light{Bake: bake}
	}
	if p := extras.Get("light_probes"); p.Exists() {
		n.LightProbes = &scene.LightProbeGroup{Positions: max(int(p.Int()), 0)}
	}
	if p := extras.Get("reflection_probe"); p.Exists() {
		probe := &scene.ReflectionProbe{
			Mode:       scene.ParseProbeMode(p.Get("mode").String()),
			Resolution: max(int(p.Get("resolution").Int()), 0),
		}
		if img := p.Get("image"); img.Exists() {
			probe.Texture = b.image(int(img.Int()))
		}
		n.ReflectionProbe = probe
	}
	return n
}

func (b *gltfBuilder) lightmaps() []scene.Lightmap {
	var out []scene.Lightmap
	channel := func(r gjson.Result) *scene.Texture {
		if !r.Exists() {
			return nil
		}
		return b.image(int(r.Int()))
	}
	for _, lm := range b.doc.Get("extras.lightmaps").Array() {
		out = append(out, scene.Lightmap{
			Color:       channel(lm.Get("color")),
			Directional: channel(lm.Get("directional")),
			ShadowMask:  channel(lm.Get("shadow_mask")),
		})
	}
	return out
}
