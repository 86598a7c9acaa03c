// Package scan finds scene files under a directory and analyzes many of
// them at once.
package scan

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"scenevitals/internal/loader"
	"scenevitals/internal/profiler"
	"scenevitals/internal/settings"
)

// Files returns every scene file under root that reg can load, skipping
// hidden directories and paths the settings deny. Paths are sorted.
func Files(root string, reg *loader.Registry, s *settings.Settings) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || s.IsDenied(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !reg.Supports(path) || s.IsDenied(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// Result is the outcome for one scene file. Exactly one of Report and Err
// is set.
type Result struct {
	Path   string
	Report *profiler.Report
	Err    error
}

// AnalyzeAll loads and analyzes every path with at most limit files in
// flight; limit <= 0 means one per CPU. Each file gets its own scene graph
// and its own Analyze call. A file that fails to load records its error and
// does not stop the others. Results are in input order.
func AnalyzeAll(ctx context.Context, paths []string, p *profiler.Profiler, reg *loader.Registry, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i].Path = path
			sc, err := reg.Load(path)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Report = p.Analyze(sc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
