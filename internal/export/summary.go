// Package export publishes course results: grade CSV re-export and scheduled
// Google Sheets summaries.
package export

import (
	"sort"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/scoring"
)

// Summary is one student's score per delivery, in E1, E2, EF order.
type Summary struct {
	Student models.Student
	Scores  [3]float64
	Found   [3]bool
}

// Summarize picks, per student and delivery, the individual evaluation of the
// student or else the group evaluation of the student's group. Totals are
// scaled against the rubric total found in totals.
func Summarize(c *models.Course, evals []models.Evaluation, totals map[string]float64, g *scoring.Grader) []Summary {
	type slot struct {
		delivery models.DeliveryType
		t        models.RubricType
		target   string
	}
	index := make(map[slot]models.Evaluation, len(evals))
	for _, e := range evals {
		target := e.Target
		if e.Type == models.RubricIndividual {
			target = strings.ToLower(target)
		}
		index[slot{e.Delivery, e.Type, target}] = e
	}

	out := make([]Summary, 0, len(c.Students))
	for _, s := range c.Students {
		sum := Summary{Student: s}
		for _, d := range models.Deliveries {
			e, ok := index[slot{d, models.RubricIndividual, strings.ToLower(s.Email)}]
			if !ok && s.Group != "" {
				e, ok = index[slot{d, models.RubricGroup, s.Group}]
			}
			if !ok {
				continue
			}
			i := d.Index()
			sum.Scores[i] = g.Scale(e.Total, totals[e.RubricID])
			sum.Found[i] = true
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Student.Surname < out[j].Student.Surname
	})
	return out
}

var sheetHeader = []interface{}{"ID", "Apellidos", "Nombres", "Correo", "Grupo", "E1", "E2", "EF"}

// SheetRows renders summaries for a spreadsheet, header first. Missing
// deliveries are blank cells.
func SheetRows(summaries []Summary) [][]interface{} {
	rows := make([][]interface{}, 0, len(summaries)+1)
	rows = append(rows, sheetHeader)
	for _, s := range summaries {
		row := []interface{}{
			s.Student.CanvasUserID,
			s.Student.Surname,
			s.Student.GivenName,
			s.Student.Email,
			s.Student.Group,
		}
		for i := range s.Scores {
			if s.Found[i] {
				row = append(row, s.Scores[i])
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return rows
}
