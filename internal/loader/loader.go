// Package loader reads scene files into scene graphs.
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"scenevitals/internal/scene"
)

// ErrUnsupportedFormat is returned for files no loader handles.
var ErrUnsupportedFormat = errors.New("loader: unsupported scene format")

// Loader is the interface every scene format must implement.
type Loader interface {
	// Name returns the format's short identifier (e.g. "gltf").
	Name() string

	// Extensions returns the lower-case file suffixes the loader handles,
	// including the leading dot.
	Extensions() []string

	// Load reads the scene at path. Unresolvable asset references inside
	// the file become nil references, not errors.
	Load(path string) (*scene.Scene, error)
}

// Registry picks a loader by file suffix.
type Registry struct {
	loaders []Loader
}

// NewRegistry returns a registry over loaders. Earlier loaders win when
// suffixes overlap.
func NewRegistry(loaders ...Loader) *Registry {
	return &Registry{loaders: loaders}
}

// Default returns a registry with every built-in format.
func Default(logger *slog.Logger) *Registry {
	return NewRegistry(
		&ManifestLoader{Logger: logger},
		&GLTFLoader{Logger: logger},
	)
}

// Loaders returns the registered loaders.
func (r *Registry) Loaders() []Loader { return r.loaders }

// ForPath returns the loader for path.
func (r *Registry) ForPath(path string) (Loader, error) {
	name := strings.ToLower(filepath.Base(path))
	for _, l := range r.loaders {
		for _, ext := range l.Extensions() {
			if strings.HasSuffix(name, ext) {
				return l, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Supports reports whether some loader handles path.
func (r *Registry) Supports(path string) bool {
	_, err := r.ForPath(path)
	return err == nil
}

// Load reads path with the matching loader.
func (r *Registry) Load(path string) (*scene.Scene, error) {
	l, err := r.ForPath(path)
	if err != nil {
		return nil, err
	}
	sc, err := l.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Name(), err)
	}
	return sc, nil
}

// sceneName strips the directory and the matched suffix from path.
func sceneName(path string, exts []string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
