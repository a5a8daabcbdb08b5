package rubrics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shrimpsizemoose/semla/internal/models"
)

const genericCourse = "GEN"

var (
	versionedCode = regexp.MustCompile(`^(.*)V(\d+)$`)
	legacyCode    = regexp.MustCompile(`^(.*)-(\d+)$`)
)

// CodePrefix is everything of a rubric code but the version:
// "R{type}{delivery}-{course base}", e.g. "RGE1-EPM".
func CodePrefix(t models.RubricType, d models.DeliveryType, courseCode string) string {
	return fmt.Sprintf("R%s%s-%s", t, d, courseBase(courseCode))
}

// courseBase is the course code up to its first dash.
func courseBase(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return genericCourse
	}
	base, _, _ := strings.Cut(code, "-")
	return base
}

// BaseCode strips a trailing V<n>, or a legacy -<n>. Codes sharing a base are
// versions of the same rubric.
func BaseCode(code string) string {
	if m := versionedCode.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	if m := legacyCode.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	return code
}

// CodeVersion reads the number after the final V, if any.
func CodeVersion(code string) (int, bool) {
	m := versionedCode.FindStringSubmatch(code)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return n, true
}

// nextCodeVersion scans every stored code starting with prefix.
func nextCodeVersion(all rubricMap, prefix string) int {
	highest := 0
	for _, r := range all {
		if !strings.HasPrefix(r.Code, prefix) {
			continue
		}
		m := versionedCode.FindStringSubmatch(r.Code)
		if m == nil || m[1] != prefix {
			continue
		}
		if n, _ := strconv.Atoi(m[2]); n > highest {
			highest = n
		}
	}
	return highest + 1
}

func formatCode(prefix string, version int) string {
	return fmt.Sprintf("%sV%d", prefix, version)
}
