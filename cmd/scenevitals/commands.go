package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"scenevitals/internal/diagnostics"
	"scenevitals/internal/export"
	"scenevitals/internal/history"
	"scenevitals/internal/loader"
	"scenevitals/internal/metrics"
	"scenevitals/internal/profiler"
	"scenevitals/internal/scan"
	"scenevitals/internal/settings"
	"scenevitals/internal/tui"
	"scenevitals/internal/vitals"
	"scenevitals/internal/watch"
)

// errOverBudget is returned by analyze -strict.
var errOverBudget = errors.New("one or more scenes are over budget")

// ---------------------------------------------------------------------------
// Project environment
// ---------------------------------------------------------------------------

// project bundles what every command needs: settings from the project
// root, a profiler with the resulting budgets, and the loaders.
type project struct {
	root     string
	settings *settings.Settings
	profiler *profiler.Profiler
	registry *loader.Registry
}

func openProject(root string, logger *slog.Logger) (*project, error) {
	s, err := settings.Load(root)
	if err != nil {
		return nil, err
	}
	th, err := s.Thresholds()
	if err != nil {
		return nil, err
	}
	p, err := profiler.New(th, profiler.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &project{root: root, settings: s, profiler: p, registry: loader.Default(logger)}, nil
}

func (pr *project) analyze(path string) (*profiler.Report, error) {
	sc, err := pr.registry.Load(path)
	if err != nil {
		return nil, err
	}
	return pr.profiler.Analyze(sc), nil
}

// expand replaces directories in args with the scene files under them.
// Deny rules are matched against paths relative to the project root and
// only apply to scanned files; a file named explicitly is always analyzed.
func (pr *project) expand(args []string) ([]string, error) {
	absRoot, err := filepath.Abs(pr.root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		files, err := scan.Files(arg, pr.registry, nil)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
		for _, f := range files {
			abs, err := filepath.Abs(f)
			if err != nil {
				return nil, err
			}
			rel, err := filepath.Rel(absRoot, abs)
			if err == nil && pr.settings.IsDenied(filepath.ToSlash(rel)) {
				slog.Debug("skipping denied scene", "path", f)
				continue
			}
			out = append(out, f)
		}
	}
	return out, nil
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := fs.String("root", ".", "project root holding "+filepath.Join(settings.Dir, settings.File))
	return fs, root
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func runInit(args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if _, err := os.Stat(settings.Path(dir)); err == nil {
		return fmt.Errorf("%s already exists", settings.Path(dir))
	}

	s := &settings.Settings{}
	if isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		answers, err := promptQuestions(budgetQuestions())
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		if err := applyBudgetAnswers(&s.Budgets, answers); err != nil {
			return err
		}
	}
	if _, err := s.Thresholds(); err != nil {
		return err
	}
	if err := settings.Write(dir, s); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", settings.Path(dir))
	return nil
}

// ---------------------------------------------------------------------------
// analyze
// ---------------------------------------------------------------------------

// analyzeOutput is one YAML document of analyze -yaml.
type analyzeOutput struct {
	profiler.Summary `yaml:",inline"`
	Diagnostics      []diagnostics.Diagnostic `yaml:"diagnostics,omitempty"`
}

func runAnalyze(args []string) error {
	fs, root := newFlagSet("analyze")
	strict := fs.Bool("strict", false, "exit non-zero when any scene is over budget")
	asYAML := fs.Bool("yaml", false, "print reports as YAML")
	limit := fs.Int("limit", 10, "entries per list in YAML output (-1 for all)")
	jobs := fs.Int("j", 0, "scene files analyzed at once (0: settings, then one per CPU)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: scenevitals analyze [-root dir] [-strict] [-yaml] [-limit n] [-j n] <path>...")
	}

	pr, err := openProject(*root, slog.Default())
	if err != nil {
		return err
	}
	paths, err := pr.expand(fs.Args())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(stdout, "no scene files found")
		return nil
	}

	n := *jobs
	if n == 0 && pr.settings != nil {
		n = pr.settings.Concurrency
	}
	results, err := scan.AnalyzeAll(context.Background(), paths, pr.profiler, pr.registry, n)
	if err != nil {
		return err
	}

	styled := stdout == io.Writer(os.Stdout) && isTerminal(os.Stdout)
	var enc *yaml.Encoder
	if *asYAML {
		enc = yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		defer enc.Close()
	}

	var failed, over int
	for i, res := range results {
		if res.Err != nil {
			fmt.Fprintf(stderr, "error: %v\n", res.Err)
			failed++
			continue
		}
		diags := diagnostics.Format(res.Report)
		if diagnostics.AnyOverBudget(diags) {
			over++
		}
		if enc != nil {
			if err := enc.Encode(analyzeOutput{Summary: res.Report.Summary(*limit), Diagnostics: diags}); err != nil {
				return fmt.Errorf("encode %s: %w", res.Path, err)
			}
			continue
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		if err := printReport(stdout, res.Report, diags, styled); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scene files failed to load", failed, len(results))
	}
	if *strict && over > 0 {
		return errOverBudget
	}
	return nil
}

// printReport writes the totals of r and its diagnostics as plain text.
func printReport(w io.Writer, r *profiler.Report, diags []diagnostics.Diagnostic, styled bool) error {
	tot := r.Totals()
	th := r.Thresholds()

	header := r.SceneName()
	if r.ScenePath() != "" {
		header += " (" + r.ScenePath() + ")"
	}
	fmt.Fprintln(w, header)

	row := func(label, value, budget string, ratio float64) {
		if styled {
			value = vitals.TierOf(ratio).Style().Render(value)
		}
		fmt.Fprintf(w, "  %-18s %s / %s\n", label, value, budget)
	}
	row("vertices", vitals.AbbreviateNumber(tot.RawVerts), vitals.AbbreviateNumber(th.MaxVerts), r.VertRatio())
	row("shared textures", vitals.AbbreviateSize(r.SharedTextureMB()), vitals.AbbreviateSize(th.MaxSharedTextureMB), r.SharedTextureRatio())
	row("unique materials", vitals.AbbreviateNumber(tot.UniqueMaterials), vitals.AbbreviateNumber(th.MaxUniqueMaterials), r.UniqueMaterialRatio())
	row("collider vertices", vitals.AbbreviateNumber(tot.ColliderVerts), vitals.AbbreviateNumber(th.MaxColliderVerts), r.ColliderVertRatio())
	fmt.Fprintf(w, "  %-18s %s\n", "unique vertices", vitals.AbbreviateNumber(tot.UniqueVerts))
	fmt.Fprintf(w, "  %-18s materials %s, lightmaps %s, reflection probes %s\n", "texture memory",
		vitals.AbbreviateSize(tot.MaterialTextureMB), vitals.AbbreviateSize(tot.LightmapTextureMB), vitals.AbbreviateSize(tot.ReflectionProbeMB))
	fmt.Fprintf(w, "  %-18s %d\n", "realtime lights", tot.RealtimeLights)
	fmt.Fprintln(w)

	if len(diags) == 0 {
		fmt.Fprintln(w, "no warnings")
		return nil
	}
	return diagnostics.Render(w, diags)
}

// ---------------------------------------------------------------------------
// select
// ---------------------------------------------------------------------------

func runSelect(args []string) error {
	fs, root := newFlagSet("select")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: scenevitals select [-root dir] <scene> <meshes|colliders|textures>")
	}
	cat, err := diagnostics.ParseCategory(fs.Arg(1))
	if err != nil {
		return err
	}
	pr, err := openProject(*root, slog.Default())
	if err != nil {
		return err
	}
	r, err := pr.analyze(fs.Arg(0))
	if err != nil {
		return err
	}
	for _, p := range diagnostics.Select(r, cat) {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

// ---------------------------------------------------------------------------
// export
// ---------------------------------------------------------------------------

func runExport(args []string) error {
	fs, root := newFlagSet("export")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: scenevitals export [-root dir] <scene> <dir>")
	}
	pr, err := openProject(*root, slog.Default())
	if err != nil {
		return err
	}
	r, err := pr.analyze(fs.Arg(0))
	if err != nil {
		return err
	}
	bundle, err := export.GenerateReportBundle(r, diagnostics.Format(r))
	if err != nil {
		return err
	}
	if err := export.WriteReportBundle(bundle, fs.Arg(1)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d pages to %s\n", len(bundle.Pages()), fs.Arg(1))
	return nil
}

// ---------------------------------------------------------------------------
// metrics
// ---------------------------------------------------------------------------

func runMetrics(args []string) error {
	fs, root := newFlagSet("metrics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: scenevitals metrics [-root dir] <scene> <out.prom>")
	}
	pr, err := openProject(*root, slog.Default())
	if err != nil {
		return err
	}
	r, err := pr.analyze(fs.Arg(0))
	if err != nil {
		return err
	}
	m := metrics.New()
	m.Observe(r, diagnostics.Format(r))
	if err := m.WriteTextfile(fs.Arg(1)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", fs.Arg(1))
	return nil
}

// ---------------------------------------------------------------------------
// history
// ---------------------------------------------------------------------------

func runHistory(args []string) error {
	fs, root := newFlagSet("history")
	list := fs.Bool("list", false, "print stored records without analyzing")
	wipe := fs.Bool("clear", false, "delete stored records")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: scenevitals history [-root dir] [-list] [-clear] <scene>")
	}
	path := fs.Arg(0)
	key, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	store, err := history.Open(key)
	if err != nil {
		return err
	}

	switch {
	case *wipe:
		if err := store.Remove(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "removed %s\n", store.Dir)
		return nil
	case *list:
		records, err := store.List()
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Fprintf(stdout, "%s  verts %-6s textures %-7s materials %-4s warnings %d\n",
				rec.RecordedAt.Local().Format(time.DateTime),
				vitals.AbbreviateNumber(rec.Totals.RawVerts),
				vitals.AbbreviateSize(rec.SharedTextureMB),
				vitals.AbbreviateNumber(rec.Totals.UniqueMaterials),
				len(rec.Warnings))
		}
		return nil
	}

	pr, err := openProject(*root, slog.Default())
	if err != nil {
		return err
	}
	r, err := pr.analyze(path)
	if err != nil {
		return err
	}
	diags := diagnostics.Format(r)

	prev, hasPrev, err := store.Latest()
	if err != nil {
		return err
	}
	var body strings.Builder
	if err := diagnostics.Render(&body, diags); err != nil {
		return err
	}
	cur, err := store.Append(history.NewRecord(r, diags, time.Now()), body.String())
	if err != nil {
		return err
	}
	if !hasPrev {
		fmt.Fprintf(stdout, "first record for %s\n", r.SceneName())
		return nil
	}
	fmt.Fprintf(stdout, "since %s:\n", prev.RecordedAt.Local().Format(time.DateTime))
	fmt.Fprint(stdout, history.Compare(prev, cur).String())
	return nil
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

func runWatch(args []string) error {
	fs, root := newFlagSet("watch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: scenevitals watch [-root dir] <scene>")
	}
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return fmt.Errorf("watch needs a terminal; use analyze instead")
	}
	path := fs.Arg(0)

	// Log lines would tear the panel.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	pr, err := openProject(*root, quiet)
	if err != nil {
		return err
	}
	if _, err := pr.registry.ForPath(path); err != nil {
		return err
	}

	w, err := watch.New(path, watch.Options{Logger: quiet})
	if err != nil {
		return err
	}
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	return tui.Run(func() (*profiler.Report, error) { return pr.analyze(path) }, w.Changes(), tea.WithAltScreen())
}
