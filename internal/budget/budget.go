// Package budget holds the suggested resource budgets a scene is measured
// against and the ratio formula every consumer shares.
package budget

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default budgets.
const (
	DefaultMaxVerts           = 500 * 1000
	DefaultMaxUniqueMaterials = 75
	DefaultMaxSharedTextureMB = 200
	DefaultMaxColliderVerts   = 75 * 1000
)

// Tiering boundaries. A ratio above ApproachingRatio is close to its budget;
// a ratio above OverRatio is over it. Presentation is left to consumers.
const (
	ApproachingRatio = 0.6
	OverRatio        = 1.0
)

// ErrInvalidBudget is returned when a budget is zero or negative.
var ErrInvalidBudget = errors.New("budget: invalid budget")

// Thresholds are the four suggested maxima a scene report is compared to.
type Thresholds struct {
	MaxVerts           int `yaml:"max_verts" validate:"gt=0"`
	MaxUniqueMaterials int `yaml:"max_unique_materials" validate:"gt=0"`
	MaxSharedTextureMB int `yaml:"max_shared_texture_mb" validate:"gt=0"`
	MaxColliderVerts   int `yaml:"max_collider_verts" validate:"gt=0"`
}

// Default returns the built-in budgets.
func Default() Thresholds {
	return Thresholds{
		MaxVerts:           DefaultMaxVerts,
		MaxUniqueMaterials: DefaultMaxUniqueMaterials,
		MaxSharedTextureMB: DefaultMaxSharedTextureMB,
		MaxColliderVerts:   DefaultMaxColliderVerts,
	}
}

var validate = validator.New()

// Validate reports every non-positive budget. The returned error wraps
// ErrInvalidBudget.
func (t Thresholds) Validate() error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidBudget, err)
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fmt.Sprintf("%s=%v", fe.Field(), fe.Value())
	}
	return fmt.Errorf("%w: must be positive: %s", ErrInvalidBudget, strings.Join(fields, ", "))
}

// Ratio returns value/budget. It is not clamped; callers read > OverRatio as
// over budget. budget must be positive, which Validate guarantees for any
// Thresholds a profiler accepts.
func Ratio(value, budget int) float64 {
	return float64(value) / float64(budget)
}
