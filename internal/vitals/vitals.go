// Package vitals turns a report into the compact figures shown by the
// watch panel: colour tiers, abbreviated numbers and the warning flags.
package vitals

import (
	"math"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"

	"scenevitals/internal/budget"
	"scenevitals/internal/profiler"
)

// Tier classifies a budget ratio.
type Tier int

const (
	TierOK Tier = iota
	TierApproaching
	TierOver
)

func (t Tier) String() string {
	switch t {
	case TierOK:
		return "ok"
	case TierApproaching:
		return "approaching"
	case TierOver:
		return "over"
	}
	return "unknown"
}

// TierOf returns the tier of a ratio.
func TierOf(ratio float64) Tier {
	switch {
	case ratio > budget.OverRatio:
		return TierOver
	case ratio > budget.ApproachingRatio:
		return TierApproaching
	}
	return TierOK
}

// Tier colours.
var (
	okStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	approachingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	overStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	WarningStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	MutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Style returns the lipgloss style for a tier.
func (t Tier) Style() lipgloss.Style {
	switch t {
	case TierApproaching:
		return approachingStyle
	case TierOver:
		return overStyle
	}
	return okStyle
}

// oneDecimal formats f with at most one decimal and no trailing zero.
func oneDecimal(f float64) string {
	return strconv.FormatFloat(math.Round(f*10)/10, 'f', -1, 64)
}

// AbbreviateNumber renders n with a K, M or B suffix. Below ten of a unit
// one decimal is kept; from ten upwards the value is truncated.
func AbbreviateNumber(n int) string {
	switch {
	case n < 1_000:
		return strconv.Itoa(n)
	case n < 10_000:
		return oneDecimal(float64(n)/1e3) + "K"
	case n < 1_000_000:
		return strconv.Itoa(n/1_000) + "K"
	case n < 10_000_000:
		return oneDecimal(float64(n)/1e6) + "M"
	case n < 1_000_000_000:
		return strconv.Itoa(n/1_000_000) + "M"
	}
	return oneDecimal(float64(n)/1e9) + "B"
}

// AbbreviateSize renders a size given in megabytes using decimal units.
func AbbreviateSize(mb int) string {
	n := int64(mb) * 1_000_000
	switch {
	case n < 1_000:
		return strconv.FormatInt(n, 10) + "Byte"
	case n < 1_000_000:
		return oneDecimal(float64(n)/1e3) + "KB"
	case n < 1_000_000_000:
		return oneDecimal(float64(n)/1e6) + "MB"
	}
	return oneDecimal(float64(n)/1e9) + "GB"
}

// Refresh interval bounds.
const (
	MinRefresh = 5 * time.Second
	MaxRefresh = 100 * time.Second
)

// RefreshInterval scales the automatic refresh period with the cost of the
// last analysis: five seconds per millisecond spent, clamped to
// [MinRefresh, MaxRefresh].
func RefreshInterval(analysis time.Duration) time.Duration {
	ms := float64(analysis.Microseconds()) / 1000
	d := time.Duration(ms * 5 * float64(time.Second))
	return min(max(d, MinRefresh), MaxRefresh)
}

// Row is one measured figure against its budget.
type Row struct {
	Label string
	Value string
	Max   string
	Ratio float64
	Tier  Tier
}

// Panel is everything the watch view shows for one report.
type Panel struct {
	Scene string

	Verts          Row
	SharedTextures Row
	Materials      Row

	// Breakdown of SharedTextures.
	MaterialTextures string
	LightmapTextures string
	// ReflectionProbes is empty when probes use no memory.
	ReflectionProbes string

	NoLightmaps      bool
	NoLightProbes    bool
	DenseColliders   bool
	RefreshEvery     time.Duration
	AnalysisDuration time.Duration
}

// NewPanel builds the panel for r.
func NewPanel(r *profiler.Report) Panel {
	tot := r.Totals()
	th := r.Thresholds()
	row := func(label, value, maxValue string, ratio float64) Row {
		return Row{Label: label, Value: value, Max: maxValue, Ratio: ratio, Tier: TierOf(ratio)}
	}
	p := Panel{
		Scene:            r.SceneName(),
		Verts:            row("Vertices", AbbreviateNumber(tot.RawVerts), AbbreviateNumber(th.MaxVerts), r.VertRatio()),
		SharedTextures:   row("Shared textures", AbbreviateSize(r.SharedTextureMB()), AbbreviateSize(th.MaxSharedTextureMB), r.SharedTextureRatio()),
		Materials:        row("Materials", AbbreviateNumber(tot.UniqueMaterials), AbbreviateNumber(th.MaxUniqueMaterials), r.UniqueMaterialRatio()),
		MaterialTextures: AbbreviateSize(tot.MaterialTextureMB),
		LightmapTextures: AbbreviateSize(tot.LightmapTextureMB),
		NoLightmaps:      !tot.HasLightmaps,
		NoLightProbes:    tot.HasLightmaps && !tot.HasLightProbes,
		DenseColliders:   r.ColliderVertRatio() >= 1,
		RefreshEvery:     RefreshInterval(r.Duration()),
		AnalysisDuration: r.Duration(),
	}
	if tot.ReflectionProbeMB > 0 {
		p.ReflectionProbes = AbbreviateSize(tot.ReflectionProbeMB)
	}
	return p
}
