// Package scoring turns per-criterion points into evaluation totals.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/shrimpsizemoose/semla/internal/models"
)

var ErrRubricMismatch = errors.New("evaluation does not match rubric")

// Grader converts rubric totals to the grading scale. A zero ScaleMax keeps
// raw points.
type Grader struct {
	ScaleMax float64 `toml:"scale_max"`
	ScaleMin float64 `toml:"scale_min"`
	Decimals int     `toml:"decimals"`
}

func NewGrader(scaleMin, scaleMax float64, decimals int) *Grader {
	return &Grader{ScaleMin: scaleMin, ScaleMax: scaleMax, Decimals: decimals}
}

// Score sums awarded points, each clamped to [0, criterion max]. Scores for
// unknown criteria are ignored and reported in notes. The total never
// exceeds the rubric total.
func Score(r *models.Rubric, scores []models.CriterionScore) (float64, []string) {
	awarded := make(map[int]float64, len(scores))
	var notes []string
	for _, s := range scores {
		if s.Criterion < 0 || s.Criterion >= len(r.Criteria) {
			notes = append(notes, fmt.Sprintf("criterion %d: not in rubric", s.Criterion))
			continue
		}
		awarded[s.Criterion] = s.Points
	}

	total := 0.0
	for i, c := range r.Criteria {
		v, ok := awarded[i]
		if !ok {
			continue
		}
		v = clamp(v, 0, c.MaxPoints)
		total += v
		notes = append(notes, fmt.Sprintf("%s:%.2f", c.Title, v))
	}
	if r.TotalPoints > 0 && total > r.TotalPoints {
		total = r.TotalPoints
	}
	return total, notes
}

// Evaluate clamps e's points and sets its total against r.
func (g *Grader) Evaluate(r *models.Rubric, e *models.Evaluation) error {
	if r.Type != e.Type || r.Delivery != e.Delivery {
		return fmt.Errorf("rubric %s is %s/%s, evaluation is %s/%s: %w",
			r.ID, r.Type, r.Delivery, e.Type, e.Delivery, ErrRubricMismatch)
	}

	for i, s := range e.Scores {
		if s.Criterion >= 0 && s.Criterion < len(r.Criteria) {
			e.Scores[i].Points = clamp(s.Points, 0, r.Criteria[s.Criterion].MaxPoints)
		}
	}
	e.Total, _ = Score(r, e.Scores)
	e.RubricID = r.ID
	return nil
}

// Scale maps total out of maxPoints onto [ScaleMin, ScaleMax].
func (g *Grader) Scale(total, maxPoints float64) float64 {
	if g == nil || g.ScaleMax <= 0 || maxPoints <= 0 {
		return total
	}
	ratio := clamp(total/maxPoints, 0, 1)
	v := g.ScaleMin + ratio*(g.ScaleMax-g.ScaleMin)
	p := math.Pow(10, float64(g.Decimals))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
