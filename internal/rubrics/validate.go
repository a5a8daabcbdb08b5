package rubrics

import (
	"fmt"
	"math"

	"github.com/shrimpsizemoose/semla/internal/models"
)

const weightTolerance = 0.01

// ValidationReport is advisory: saving never depends on it.
type ValidationReport struct {
	Valid  bool     `json:"esValido"`
	Errors []string `json:"errores"`
}

func Validate(r *models.Rubric) ValidationReport {
	var errs []string

	sum := 0.0
	for _, c := range r.Criteria {
		sum += c.Weight
	}
	if math.Abs(sum-100) > weightTolerance {
		errs = append(errs, fmt.Sprintf("criteria weights add up to %.2f%%, expected 100%%", sum))
	}

	for i, c := range r.Criteria {
		if len(c.Levels) == 0 {
			errs = append(errs, fmt.Sprintf("criterion %d (%s) has no levels", i+1, c.Title))
		}
		for j, l := range c.Levels {
			if l.Max < 0 || l.Max > c.MaxPoints {
				errs = append(errs, fmt.Sprintf(
					"criterion %d (%s) level %d: max points %.2f outside [0, %.2f]",
					i+1, c.Title, j+1, l.Max, c.MaxPoints,
				))
			}
		}
	}

	return ValidationReport{Valid: len(errs) == 0, Errors: errs}
}

// TotalPoints is the stored total, or the sum of criterion maxima when unset.
func TotalPoints(r *models.Rubric) float64 {
	if r.TotalPoints > 0 {
		return r.TotalPoints
	}
	sum := 0.0
	for _, c := range r.Criteria {
		sum += c.MaxPoints
	}
	return sum
}
