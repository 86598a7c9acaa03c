// Package settings loads scenevitals configuration from
// .scenevitals/settings.yaml under a project root.
//
// The file carries budget overrides and a deny list of glob patterns that
// keeps scene files out of directory scans. Patterns may be written as bare
// globs ("Assets/Sandbox/**") or wrapped in a Read() verb
// ("Read(./Assets/Sandbox/**)").
package settings

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"scenevitals/internal/budget"
)

// Dir and File locate the settings file relative to a project root.
const (
	Dir  = ".scenevitals"
	File = "settings.yaml"
)

// Settings holds scenevitals configuration.
type Settings struct {
	Budgets     Budgets     `yaml:"budgets,omitempty"`
	Permissions Permissions `yaml:"permissions,omitempty"`

	// Concurrency bounds how many scene files a directory scan analyzes at
	// once. Zero means one per CPU.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// Budgets overrides individual default budgets. A nil field keeps the
// default; a present field must be positive.
type Budgets struct {
	MaxVerts           *int `yaml:"max_verts,omitempty"`
	MaxUniqueMaterials *int `yaml:"max_unique_materials,omitempty"`
	MaxSharedTextureMB *int `yaml:"max_shared_texture_mb,omitempty"`
	MaxColliderVerts   *int `yaml:"max_collider_verts,omitempty"`
}

// Permissions controls which scene files scans read.
type Permissions struct {
	// Deny is a list of glob patterns for scene files to skip.
	// Example: ["Read(./Assets/Sandbox/**)"]
	Deny []string `yaml:"deny,omitempty"`
}

// Path returns the settings file path for root.
func Path(root string) string {
	return filepath.Join(root, Dir, File)
}

// Load reads the settings file under root.
// Returns nil (not an error) if the file does not exist.
func Load(root string) (*Settings, error) {
	path := Path(root)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &s, nil
}

// Write stores s under root, creating the settings directory. Errors if a
// settings file already exists.
func Write(root string, s *Settings) error {
	path := Path(root)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("settings already exist at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Thresholds applies the budget overrides to the defaults and validates the
// result. Safe to call on a nil *Settings receiver.
func (s *Settings) Thresholds() (budget.Thresholds, error) {
	th := budget.Default()
	if s != nil {
		b := s.Budgets
		override(&th.MaxVerts, b.MaxVerts)
		override(&th.MaxUniqueMaterials, b.MaxUniqueMaterials)
		override(&th.MaxSharedTextureMB, b.MaxSharedTextureMB)
		override(&th.MaxColliderVerts, b.MaxColliderVerts)
	}
	if err := th.Validate(); err != nil {
		return budget.Thresholds{}, fmt.Errorf("settings: %w", err)
	}
	return th, nil
}

func override(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// IsDenied reports whether relPath, forward-slash and relative to the
// project root, falls under a deny rule. A nil *Settings denies nothing.
func (s *Settings) IsDenied(relPath string) bool {
	if s == nil {
		return false
	}
	for _, rule := range s.Permissions.Deny {
		if compileDeny(rule).covers(relPath) {
			return true
		}
	}
	return false
}

// denyGlob is a deny rule with its Read(...) wrapper removed. A trailing
// "/**" becomes a subtree; anything else is a single path.Match pattern.
//
//	Read(./Assets/Sandbox/**)  subtree Assets/Sandbox
//	Levels/*_wip.scene.yaml    pattern
type denyGlob struct {
	subtree string
	pattern string
}

func compileDeny(rule string) denyGlob {
	if inner, ok := strings.CutPrefix(rule, "Read("); ok {
		if inner, ok = strings.CutSuffix(inner, ")"); ok {
			rule = inner
		}
	}
	rule = strings.TrimPrefix(rule, "./")
	if dir, ok := strings.CutSuffix(rule, "/**"); ok {
		return denyGlob{subtree: dir}
	}
	return denyGlob{pattern: rule}
}

func (g denyGlob) covers(rel string) bool {
	if g.subtree != "" {
		return rel == g.subtree || strings.HasPrefix(rel, g.subtree+"/")
	}
	ok, _ := path.Match(g.pattern, rel)
	return ok
}
