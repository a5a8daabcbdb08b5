package bot

import (
	"fmt"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/cohort"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/search"
)

func formatCourses(list []models.Course) string {
	if len(list) == 0 {
		return "No hay cursos registrados."
	}
	var b strings.Builder
	b.WriteString("Cursos:\n")
	for _, c := range list {
		fmt.Fprintf(&b, "• %s %s (%d estudiantes)", c.Code, c.Name, len(c.Students))
		if label := cohort.Label(&c.CourseMeta); label != "" {
			fmt.Fprintf(&b, " [%s]", label)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHits(query string, hits []search.Hit) string {
	if len(hits) == 0 {
		return fmt.Sprintf("Sin resultados para %q.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Resultados para %q:\n", query)
	for _, h := range hits {
		fmt.Fprintf(&b, "• %s <%s> en %s\n", h.Student.FullName(), h.Student.Email, h.CourseName)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRepeats(reps []cohort.Repeat) string {
	if len(reps) == 0 {
		return "No hay estudiantes repetidos."
	}
	var b strings.Builder
	b.WriteString("Estudiantes repetidos:\n")
	for _, r := range reps {
		keys := make([]string, 0, len(r.Courses))
		for _, c := range r.Courses {
			keys = append(keys, c.CourseKey)
		}
		fmt.Fprintf(&b, "• %s (%s) %s: %s\n", r.Name, r.Identity, r.BaseCode, strings.Join(keys, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRubrics(course string, list []models.Rubric) string {
	if len(list) == 0 {
		return fmt.Sprintf("No hay rúbricas para %s.", course)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Rúbricas de %s:\n", course)
	for _, r := range list {
		mark := " "
		if r.Active {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s %s %s v%d (%s)\n", mark, r.Code, r.Name, r.Version, r.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// splitMessage cuts text on line boundaries into chunks of at most limit
// bytes. A single longer line is cut as is.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var (
		chunks []string
		cur    strings.Builder
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if cur.Len()+len(line) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
