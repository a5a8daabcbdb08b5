package courses

import (
	"context"
	"fmt"

	"github.com/shrimpsizemoose/semla/internal/csvimport"
	"github.com/shrimpsizemoose/semla/internal/models"
)

// ImportRoster creates a course from a roster export. Empty fields of in are
// filled from the section of the first data row.
func (r *Registry) ImportRoster(ctx context.Context, text string, in NewCourse) (*models.Course, *csvimport.Result, error) {
	res, err := csvimport.Parse(text, csvimport.KindRoster)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse roster: %w", err)
	}

	sec := res.Section
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&in.Name, sec.CourseName)
	fill(&in.Block, sec.Block)
	fill(&in.Intake, sec.Intake)
	fill(&in.Modality, sec.Modality)
	in.Students = res.Students()

	course, err := r.Create(ctx, in)
	if err != nil {
		return nil, res, err
	}
	return course, res, nil
}
