package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strconv"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/csvimport"
	"github.com/shrimpsizemoose/semla/internal/models"
)

var ErrNoGradeFile = errors.New("course has no grade file")

// grade files keep their two header rows and carry delivery scores in
// fields 4..6.
const (
	gradeHeaderRows = 2
	firstScoreField = 4
	gradeFields     = 7
)

// OriginalGrades returns the attached grade file exactly as uploaded.
func OriginalGrades(c *models.Course) (string, error) {
	if c == nil || c.GradeFile == nil {
		return "", ErrNoGradeFile
	}
	return c.GradeFile.Original, nil
}

// MergeGrades rewrites the uploaded grade file with the scores in summaries,
// matched by external id. Deliveries without a score and rows of unknown
// students are left as uploaded.
func MergeGrades(c *models.Course, summaries []Summary) (string, error) {
	original, err := OriginalGrades(c)
	if err != nil {
		return "", err
	}

	byID := make(map[string]Summary, len(summaries))
	for _, s := range summaries {
		if s.Student.CanvasUserID != "" {
			byID[s.Student.CanvasUserID] = s
		}
	}

	rows := csvimport.Rows(original)
	out := make([]string, 0, len(rows))
	for i, row := range rows {
		if i < gradeHeaderRows {
			out = append(out, row)
			continue
		}
		fields := csvimport.SplitRow(row)
		s, ok := byID[fieldAt(fields, 1)]
		if len(fields) < gradeFields || !ok {
			out = append(out, row)
			continue
		}
		for d := range s.Scores {
			if s.Found[d] {
				fields[firstScoreField+d] = formatScore(s.Scores[d])
			}
		}
		line, err := joinRow(fields)
		if err != nil {
			return "", err
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n") + "\n", nil
}

func fieldAt(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func joinRow(fields []string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
