// Package history keeps past analyses of a scene under ~/.scenevitals/ so
// successive runs can be compared.
//
// Directory layout:
//
//	~/.scenevitals/<scene-slug>/
//	    .lock                    # held while a record is appended
//	    <timestamp>.md           # one report summary per analysis
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"scenevitals/internal/diagnostics"
	"scenevitals/internal/frontmatter"
	"scenevitals/internal/profiler"
)

// stampLayout sorts lexically in time order.
const stampLayout = "20060102T150405.000000000Z"

// Store is the history directory of one scene.
type Store struct {
	Dir string
}

// Record is the frontmatter of one history file.
type Record struct {
	Scene           string             `yaml:"scene"`
	Path            string             `yaml:"path,omitempty"`
	RecordedAt      time.Time          `yaml:"recorded_at"`
	Totals          profiler.Totals    `yaml:"totals"`
	SharedTextureMB int                `yaml:"shared_texture_mb"`
	Ratios          profiler.Ratios    `yaml:"ratios"`
	DurationMS      float64            `yaml:"duration_ms"`
	Warnings        []diagnostics.Kind `yaml:"warnings,omitempty"`

	// File is the record's file name inside the store.
	File string `yaml:"-"`
}

// baseDir returns the ~/.scenevitals directory.
func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".scenevitals"), nil
}

// Slug turns a scene key (usually its file path) into a directory name:
// lower case, runs of anything but letters and digits collapsed to "-".
func Slug(key string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Open returns the store for key, creating its directory if needed.
func Open(key string) (*Store, error) {
	slug := Slug(key)
	if slug == "" {
		return nil, fmt.Errorf("history: empty scene key %q", key)
	}
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(base, slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create %s: %w", dir, err)
	}
	return &Store{Dir: dir}, nil
}

// NewRecord captures the persistent parts of a report.
func NewRecord(r *profiler.Report, diags []diagnostics.Diagnostic, at time.Time) Record {
	rec := Record{
		Scene:           r.SceneName(),
		Path:            r.ScenePath(),
		RecordedAt:      at.UTC(),
		Totals:          r.Totals(),
		SharedTextureMB: r.SharedTextureMB(),
		Ratios:          r.Ratios(),
		DurationMS:      float64(r.Duration().Microseconds()) / 1000,
	}
	for _, d := range diags {
		rec.Warnings = append(rec.Warnings, d.Kind)
	}
	return rec
}

// Append writes rec as a new history file. The store is locked for the
// duration of the write so concurrent runs never pick the same file.
func (s *Store) Append(rec Record, body string) (Record, error) {
	lock := flock.New(filepath.Join(s.Dir, ".lock"))
	if err := lock.Lock(); err != nil {
		return rec, fmt.Errorf("history: lock: %w", err)
	}
	defer lock.Unlock()

	at := rec.RecordedAt.UTC()
	name := at.Format(stampLayout) + ".md"
	for {
		if _, err := os.Stat(filepath.Join(s.Dir, name)); os.IsNotExist(err) {
			break
		}
		at = at.Add(time.Nanosecond)
		name = at.Format(stampLayout) + ".md"
	}
	rec.RecordedAt = at
	rec.File = name

	data, err := frontmatter.Write(rec, body)
	if err != nil {
		return rec, fmt.Errorf("history: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return rec, fmt.Errorf("history: write %s: %w", name, err)
	}
	return rec, nil
}

// List returns every record in the store, oldest first.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", s.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		rec, err := s.read(name)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Latest returns the newest record, or false when the store is empty.
func (s *Store) Latest() (Record, bool, error) {
	records, err := s.List()
	if err != nil || len(records) == 0 {
		return Record{}, false, err
	}
	return records[len(records)-1], true, nil
}

func (s *Store) read(name string) (Record, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return Record{}, fmt.Errorf("history: read %s: %w", name, err)
	}
	var rec Record
	if _, err := frontmatter.Decode(data, &rec); err != nil {
		return Record{}, fmt.Errorf("history: %s: %w", name, err)
	}
	rec.File = name
	return rec, nil
}

// Remove deletes the store and all its records.
func (s *Store) Remove() error {
	if _, err := os.Stat(s.Dir); err != nil {
		return fmt.Errorf("history: %s not found", s.Dir)
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("history: remove: %w", err)
	}
	return nil
}

// Delta is the change between two records of the same scene.
type Delta struct {
	Verts           int
	UniqueVerts     int
	UniqueMaterials int
	SharedTextureMB int
	ColliderVerts   int
	RealtimeLights  int

	// Warnings that fire now but did not before, and the reverse.
	NewWarnings      []diagnostics.Kind
	ResolvedWarnings []diagnostics.Kind
}

// Compare returns cur minus prev.
func Compare(prev, cur Record) Delta {
	d := Delta{
		Verts:           cur.Totals.RawVerts - prev.Totals.RawVerts,
		UniqueVerts:     cur.Totals.UniqueVerts - prev.Totals.UniqueVerts,
		UniqueMaterials: cur.Totals.UniqueMaterials - prev.Totals.UniqueMaterials,
		SharedTextureMB: cur.SharedTextureMB - prev.SharedTextureMB,
		ColliderVerts:   cur.Totals.ColliderVerts - prev.Totals.ColliderVerts,
		RealtimeLights:  cur.Totals.RealtimeLights - prev.Totals.RealtimeLights,
	}
	d.NewWarnings = missing(cur.Warnings, prev.Warnings)
	d.ResolvedWarnings = missing(prev.Warnings, cur.Warnings)
	return d
}

// Zero reports whether nothing changed.
func (d Delta) Zero() bool {
	return d.Verts == 0 && d.UniqueVerts == 0 && d.UniqueMaterials == 0 &&
		d.SharedTextureMB == 0 && d.ColliderVerts == 0 && d.RealtimeLights == 0 &&
		len(d.NewWarnings) == 0 && len(d.ResolvedWarnings) == 0
}

// String renders the non-zero parts of d, one per line.
func (d Delta) String() string {
	if d.Zero() {
		return "no change\n"
	}
	var b strings.Builder
	line := func(label string, v int, unit string) {
		if v != 0 {
			fmt.Fprintf(&b, "%-18s %+d%s\n", label, v, unit)
		}
	}
	line("vertices", d.Verts, "")
	line("unique vertices", d.UniqueVerts, "")
	line("unique materials", d.UniqueMaterials, "")
	line("shared textures", d.SharedTextureMB, " MB")
	line("collider vertices", d.ColliderVerts, "")
	line("realtime lights", d.RealtimeLights, "")
	for _, k := range d.NewWarnings {
		fmt.Fprintf(&b, "new warning        %s\n", k)
	}
	for _, k := range d.ResolvedWarnings {
		fmt.Fprintf(&b, "resolved warning   %s\n", k)
	}
	return b.String()
}

// missing returns the kinds in a that are not in b, keeping a's order.
func missing(a, b []diagnostics.Kind) []diagnostics.Kind {
	var out []diagnostics.Kind
	for _, k := range a {
		found := false
		for _, o := range b {
			if o == k {
				found = true
				break
			}
		}
		if !found {
			out = append(out, k)
		}
	}
	return out
}
