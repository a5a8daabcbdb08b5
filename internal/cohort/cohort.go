// Package cohort groups courses by intake and finds students enrolled in more
// than one run of the same course.
package cohort

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/shrimpsizemoose/semla/internal/courses"
	"github.com/shrimpsizemoose/semla/internal/models"
)

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// Appearance is one course a repeating student shows up in.
type Appearance struct {
	CourseKey  string `json:"curso"`
	CourseName string `json:"cursoNombre"`
	Group      string `json:"grupo,omitempty"`
}

type Repeat struct {
	Identity string       `json:"identidad"`
	Name     string       `json:"nombre"`
	BaseCode string       `json:"codigoBase"`
	Courses  []Appearance `json:"cursos"`
}

type Bucket struct {
	Label    string   `json:"cohorte"`
	BaseCode string   `json:"codigoBase"`
	Courses  []string `json:"cursos"`
}

func baseCode(m *models.CourseMeta) string {
	if m.BaseCode != "" {
		return m.BaseCode
	}
	return courses.BaseCode(m.Code)
}

// Year is the first 20xx in the block, or the creation year.
func Year(m *models.CourseMeta) int {
	if match := yearPattern.FindStringSubmatch(m.Block); match != nil {
		y, _ := strconv.Atoi(match[1])
		return y
	}
	if m.CreatedAt.IsZero() {
		return 0
	}
	return m.CreatedAt.Year()
}

// Label is "{year}{intake}", e.g. "2024A". Unknown parts are left out.
func Label(m *models.CourseMeta) string {
	label := ""
	if y := Year(m); y > 0 {
		label = strconv.Itoa(y)
	}
	return label + m.Intake
}

// Repeats lists students, matched by Identity, found in two or more courses
// sharing a base code. Output is sorted by base code, then identity.
func Repeats(list []models.Course) []Repeat {
	type slot struct {
		base, identity string
	}
	found := map[slot]*Repeat{}

	for _, c := range list {
		base := baseCode(&c.CourseMeta)
		seen := map[string]bool{}
		for _, s := range c.Students {
			id := s.Identity()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true

			k := slot{base, id}
			rep, ok := found[k]
			if !ok {
				rep = &Repeat{Identity: id, Name: s.FullName(), BaseCode: base}
				found[k] = rep
			}
			rep.Courses = append(rep.Courses, Appearance{
				CourseKey:  c.Key,
				CourseName: c.Name,
				Group:      s.Group,
			})
		}
	}

	var out []Repeat
	for _, rep := range found {
		if len(rep.Courses) > 1 {
			sort.Slice(rep.Courses, func(i, j int) bool { return rep.Courses[i].CourseKey < rep.Courses[j].CourseKey })
			out = append(out, *rep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BaseCode != out[j].BaseCode {
			return out[i].BaseCode < out[j].BaseCode
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

// Group buckets course keys by cohort label and base code.
func Group(list []models.Course) []Bucket {
	index := map[[2]string]int{}
	var out []Bucket
	for _, c := range list {
		k := [2]string{Label(&c.CourseMeta), baseCode(&c.CourseMeta)}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Bucket{Label: k[0], BaseCode: k[1]})
		}
		out[i].Courses = append(out[i].Courses, c.Key)
	}
	for i := range out {
		sort.Strings(out[i].Courses)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].BaseCode < out[j].BaseCode
	})
	return out
}
