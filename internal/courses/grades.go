package courses

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/models"
)

// Validation is the outcome of checking a grade file against a roster.
type Validation struct {
	Valid   bool     `json:"esValido"`
	Message string   `json:"mensaje"`
	Missing []string `json:"faltantes,omitempty"`
	Extra   []string `json:"sobrantes,omitempty"`
}

// ValidateGradeFile requires the grade file's external ids to equal the
// roster's. Students without an external id are not counted.
func ValidateGradeFile(students []models.Student, rows []models.GradeRow) Validation {
	roster := make(map[string]bool, len(students))
	for _, s := range students {
		if s.CanvasUserID != "" {
			roster[s.CanvasUserID] = true
		}
	}
	graded := make(map[string]bool, len(rows))
	for _, row := range rows {
		graded[row.ExternalID] = true
	}

	var v Validation
	for id := range roster {
		if !graded[id] {
			v.Missing = append(v.Missing, id)
		}
	}
	for id := range graded {
		if !roster[id] {
			v.Extra = append(v.Extra, id)
		}
	}
	sort.Strings(v.Missing)
	sort.Strings(v.Extra)

	if len(v.Missing) == 0 && len(v.Extra) == 0 {
		v.Valid = true
		v.Message = fmt.Sprintf("grade file matches all %d students", len(roster))
		return v
	}

	var parts []string
	if len(v.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("%d student(s) missing from the grade file: %s",
			len(v.Missing), strings.Join(v.Missing, ", ")))
	}
	if len(v.Extra) > 0 {
		parts = append(parts, fmt.Sprintf("%d id(s) not in the roster: %s",
			len(v.Extra), strings.Join(v.Extra, ", ")))
	}
	v.Message = strings.Join(parts, "; ")
	return v
}
