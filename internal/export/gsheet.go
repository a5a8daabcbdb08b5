package export

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/shrimpsizemoose/semla/internal/courses"
	"github.com/shrimpsizemoose/semla/internal/evaluations"
	"github.com/shrimpsizemoose/semla/internal/logging"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/rubrics"
	"github.com/shrimpsizemoose/semla/internal/scoring"
)

type SheetWriter interface {
	WriteRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
}

type GSheetWriter struct {
	svc           *sheets.Service
	spreadsheetID string
}

func NewGSheetWriter(ctx context.Context, credentialsFile, spreadsheetID string) (*GSheetWriter, error) {
	svc, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &GSheetWriter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (w *GSheetWriter) WriteRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	_, err := w.svc.Spreadsheets.Values.Update(w.spreadsheetID, sheetRange,
		&sheets.ValueRange{Values: rows}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", sheetRange, err)
	}
	return nil
}

type Exporter struct {
	courses     *courses.Registry
	rubrics     *rubrics.Registry
	evaluations *evaluations.Store
	grader      *scoring.Grader
	writer      SheetWriter
	log         *logging.Logger
	now         func() time.Time
}

func NewExporter(c *courses.Registry, r *rubrics.Registry, e *evaluations.Store, g *scoring.Grader, w SheetWriter, log *logging.Logger) *Exporter {
	return &Exporter{courses: c, rubrics: r, evaluations: e, grader: g, writer: w, log: log, now: time.Now}
}

// Summaries computes the per-delivery scores of every student in a course.
func (e *Exporter) Summaries(ctx context.Context, id string) (*models.Course, []Summary, error) {
	c, err := e.courses.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, fmt.Errorf("%s: %w", id, courses.ErrCourseNotFound)
	}

	refs, err := e.courses.Refs(ctx, c.Key)
	if err != nil {
		return nil, nil, err
	}
	entries, err := e.evaluations.List(ctx, refs...)
	if err != nil {
		return nil, nil, err
	}
	evals := make([]models.Evaluation, 0, len(entries))
	for _, en := range entries {
		evals = append(evals, en.Evaluation)
	}

	all, err := e.rubrics.All(ctx)
	if err != nil {
		return nil, nil, err
	}
	totals := make(map[string]float64, len(all))
	for rid, r := range all {
		totals[rid] = rubrics.TotalPoints(&r)
	}

	return c, Summarize(c, evals, totals, e.grader), nil
}

// ExportCourse writes a course summary to the tab named after the course
// code, followed by an update stamp.
func (e *Exporter) ExportCourse(ctx context.Context, id string) error {
	c, summaries, err := e.Summaries(ctx, id)
	if err != nil {
		return err
	}

	rows := SheetRows(summaries)
	sheet := c.Code
	if err := e.writer.WriteRows(ctx, fmt.Sprintf("%s!A1", sheet), rows); err != nil {
		return err
	}

	stamp := [][]interface{}{{fmt.Sprintf("UPD: %s", e.now().Format("2 January 15:04"))}}
	if err := e.writer.WriteRows(ctx, fmt.Sprintf("%s!J1", sheet), stamp); err != nil {
		return err
	}
	e.log.Infof("exported %d students of %s", len(summaries), c.Key)
	return nil
}

// ExportAll exports the given courses, or every course when ids is empty.
// A failing course is logged and does not stop the rest.
func (e *Exporter) ExportAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		list, err := e.courses.List(ctx)
		if err != nil {
			return err
		}
		for _, c := range list {
			ids = append(ids, c.Key)
		}
	}

	failed := 0
	for _, id := range ids {
		if err := e.ExportCourse(ctx, id); err != nil {
			e.log.Errorf("Export of %s failed: %v", id, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d course exports failed", failed, len(ids))
	}
	return nil
}

// Schedule runs ExportAll on a cron schedule. The caller starts and stops the
// returned scheduler.
func (e *Exporter) Schedule(cron string, ids []string) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Cron(cron).Do(func() {
		if err := e.ExportAll(context.Background(), ids); err != nil {
			e.log.Errorf("Scheduled export failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule export: %w", err)
	}
	return scheduler, nil
}

func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}
