package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) error
}

var commands = []command{
	{
		name:  "init",
		short: "Write project settings with budgets",
		usage: "scenevitals init [dir]",
		long: `Create .scenevitals/settings.yaml under dir (default ".").

Prompts for the four budgets when run in a terminal; an empty answer keeps
the default. Errors if the settings file already exists.
`,
		run: runInit,
	},
	{
		name:  "analyze",
		short: "Profile scene files and print warnings",
		usage: "scenevitals analyze [-root dir] [-strict] [-yaml] [-limit n] [-j n] <path>...",
		long: `Analyze each scene file; directories are scanned for every supported
scene file not excluded by the project's deny rules.

Prints totals and diagnostics per scene. With -yaml prints one YAML
document per scene instead. With -strict exits non-zero when any scene is
over budget.
`,
		run: runAnalyze,
	},
	{
		name:  "select",
		short: "List the top offenders of one category",
		usage: "scenevitals select [-root dir] <scene> <meshes|colliders|textures>",
		long: `Print the asset paths (meshes, textures) or node paths (colliders) a
diagnostic would point at, one per line, whether or not the check fired.
`,
		run: runSelect,
	},
	{
		name:  "export",
		short: "Write a markdown report bundle",
		usage: "scenevitals export [-root dir] <scene> <dir>",
		long: `Write index.md, meshes.md, colliders.md, textures.md and warnings.md
for the scene into dir. Output is identical across runs for the same scene.
`,
		run: runExport,
	},
	{
		name:  "metrics",
		short: "Write Prometheus gauges for a scene",
		usage: "scenevitals metrics [-root dir] <scene> <out.prom>",
		long: `Write the scene's totals, budget ratios and warnings in Prometheus text
format, suitable for the node-exporter textfile collector.
`,
		run: runMetrics,
	},
	{
		name:  "history",
		short: "Record a run and compare it with the last one",
		usage: "scenevitals history [-root dir] [-list] [-clear] <scene>",
		long: `Analyze the scene, append the result to ~/.scenevitals/<scene>/ and print
what changed since the previous record. -list prints the stored records
without analyzing; -clear deletes them.
`,
		run: runHistory,
	},
	{
		name:  "watch",
		short: "Show a live vitals panel for a scene",
		usage: "scenevitals watch [-root dir] <scene>",
		long: `Open a terminal panel that re-analyzes the scene whenever the file is
saved, on r, and on a timer that slows down for expensive scenes.
Requires a terminal.
`,
		run: runWatch,
	},
}

// stdout and stderr are swapped out by tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "scenevitals — scene resource profiler\n\n")
	fmt.Fprintf(w, "Usage:\n  scenevitals [-v] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'scenevitals help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "scenevitals: unknown command %q\n\nRun 'scenevitals help' for usage.\n", name)
}

func dispatch(args []string) error {
	verbose := false
	for len(args) > 0 && (args[0] == "-v" || args[0] == "--verbose") {
		verbose = true
		args = args[1:]
	}
	slog.SetDefault(newLogger(stderr, verbose, os.Getenv("SCENEVITALS_LOG")))

	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(stdout, args[1])
		} else {
			printUsage(stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'scenevitals help' for usage.", args[0])
}

// newLogger returns a text logger on w. -v selects debug; otherwise level
// names the level (debug, info, warn, error) and defaults to warn.
func newLogger(w io.Writer, verbose bool, level string) *slog.Logger {
	lvl := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
