// Package csvimport turns LMS roster and grade exports into students and
// grade rows.
package csvimport

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/textnorm"
)

var (
	ErrEmptyFile   = errors.New("empty file")
	ErrTooFewLines = errors.New("file has no data rows")
)

type Kind int

const (
	KindRoster Kind = iota
	KindGrades
)

func (k Kind) String() string {
	if k == KindGrades {
		return "grades"
	}
	return "roster"
}

// Record is one kept data row. Scores is filled for KindGrades only and is
// keyed by the original delivery header.
type Record struct {
	Student models.Student     `json:"estudiante"`
	Scores  map[string]float64 `json:"entregas,omitempty"`
}

type Result struct {
	Kind       Kind     `json:"-"`
	Records    []Record `json:"registros"`
	Section    Section  `json:"seccion"`
	Deliveries []string `json:"columnasEntrega,omitempty"`
	// Dropped counts metadata and noise rows that were skipped.
	Dropped int `json:"descartadas"`
}

func (r *Result) Students() []models.Student {
	out := make([]models.Student, 0, len(r.Records))
	for _, rec := range r.Records {
		out = append(out, rec.Student)
	}
	return out
}

var digits = regexp.MustCompile(`\d+`)

// Parse reads a roster or a full grade export: a header row followed by data
// rows. Missing columns resolve to empty values.
func Parse(text string, kind Kind) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyFile
	}

	rows := Rows(text)
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s csv with %d line(s): %w", kind, len(rows), ErrTooFewLines)
	}

	h := resolveHeader(SplitRow(rows[0]))
	res := &Result{Kind: kind}
	if kind == KindGrades {
		for _, d := range h.deliveries {
			res.Deliveries = append(res.Deliveries, d.name)
		}
	}

	sectionSeen := false
	for _, row := range rows[1:] {
		cells := SplitRow(row)
		if isMetadataRow(cells) {
			res.Dropped++
			continue
		}

		if !sectionSeen {
			res.Section = ParseSection(h.get(cells, colSection))
			sectionSeen = true
		}

		student := buildStudent(h, cells)
		if student.Surname == "" && student.GivenName == "" && !strings.Contains(student.Email, "@") {
			res.Dropped++
			continue
		}

		rec := Record{Student: student}
		if kind == KindGrades {
			rec.Scores = make(map[string]float64, len(h.deliveries))
			for _, d := range h.deliveries {
				if d.index < len(cells) {
					rec.Scores[d.name] = parseScore(cells[d.index])
				}
			}
		}
		res.Records = append(res.Records, rec)
	}

	return res, nil
}

// isMetadataRow drops the rows LMS exports interleave with real data.
func isMetadataRow(cells []string) bool {
	first := textnorm.Fold(cells[0])
	if strings.Contains(first, "points possible") {
		return true
	}
	if first == "" && len(cells) > 5 && strings.Contains(textnorm.Fold(cells[5]), "manual posting") {
		return true
	}
	return false
}

func buildStudent(h header, cells []string) models.Student {
	s := models.Student{
		CanvasUserID:  h.get(cells, colExternalID),
		CanvasGroupID: h.get(cells, colGroupID),
		Email:         h.get(cells, colLogin),
	}

	if name := h.get(cells, colName); name != "" {
		s.Surname, s.GivenName = SplitName(name)
	} else {
		s.Surname = h.get(cells, colSurname)
		s.GivenName = h.get(cells, colGivenName)
	}

	s.Group = digits.FindString(h.get(cells, colGroupName))
	return s
}

// SplitName reads "Surname, Given" exports. Without a comma the whole value is
// the surname.
func SplitName(name string) (surname, given string) {
	before, after, found := strings.Cut(name, ",")
	if !found {
		return strings.TrimSpace(name), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

func parseScore(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseFinalGrades reads the finalized grade export. The header and the
// "points possible" row are skipped by position. Field 1 is the external id and
// fields 4 to 6 are the three delivery scores.
func ParseFinalGrades(text string) ([]models.GradeRow, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyFile
	}

	rows := Rows(text)
	if len(rows) < 3 {
		return []models.GradeRow{}, nil
	}

	out := make([]models.GradeRow, 0, len(rows)-2)
	for _, row := range rows[2:] {
		fields := SplitRow(row)
		if len(fields) < 7 {
			continue
		}
		out = append(out, models.GradeRow{
			ExternalID: fields[1],
			Scores: [3]float64{
				parseScore(fields[4]),
				parseScore(fields[5]),
				parseScore(fields[6]),
			},
		})
	}
	return out, nil
}
