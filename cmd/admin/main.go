package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/cohort"
	"github.com/shrimpsizemoose/semla/internal/courses"
	"github.com/shrimpsizemoose/semla/internal/rubrics"
)

const usage = `Usage: admin [-config path] <command> [args]

Commands:
  courses                              List courses
  import-roster <file.csv> <code> [name] Create a course from an LMS roster export
  attach-grades <course> <file.csv>    Attach an LMS grade export to a course
  rubrics [course]                     List rubrics
  backup <file.json>                   Write a full backup
  restore <file.json>                  Restore a backup
  issue-token <instructor>             Fetch or create an API token`

type command func(ctx context.Context, s *app.Service, args []string) error

var commands = map[string]command{
	"courses":       listCourses,
	"import-roster": importRoster,
	"attach-grades": attachGrades,
	"rubrics":       listRubrics,
	"backup":        writeBackup,
	"restore":       restoreBackup,
	"issue-token":   issueToken,
}

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		color.Red("Unknown command %q", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	if err := cmd(context.Background(), service, flag.Args()[1:]); err != nil {
		color.Red("%s: %v", flag.Arg(0), err)
		service.Close()
		os.Exit(1)
	}
}

func needArgs(args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	return nil
}

func listCourses(ctx context.Context, s *app.Service, _ []string) error {
	list, err := s.Courses.List(ctx)
	if err != nil {
		return err
	}

	color.Cyan("\n=== Cursos ===")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Code", "Name", "Cohort", "Students", "Grades"})
	for _, c := range list {
		grades := "-"
		if c.GradeFile != nil {
			grades = strconv.Itoa(len(c.GradeFile.Rows))
		}
		table.Append([]string{
			c.Key,
			c.Code,
			c.Name,
			cohort.Label(&c.CourseMeta),
			strconv.Itoa(len(c.Students)),
			grades,
		})
	}
	table.Render()
	return nil
}

func importRoster(ctx context.Context, s *app.Service, args []string) error {
	if err := needArgs(args, 2); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	in := courses.NewCourse{Code: args[1]}
	if len(args) > 2 {
		in.Name = args[2]
	}

	c, res, err := s.Courses.ImportRoster(ctx, string(data), in)
	if err != nil {
		return err
	}
	color.Green("Created %s with %d students (%d rows dropped)", c.Key, len(c.Students), res.Dropped)
	return nil
}

func attachGrades(ctx context.Context, s *app.Service, args []string) error {
	if err := needArgs(args, 2); err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	v, err := s.Courses.AttachGradeFile(ctx, args[0], filepath.Base(args[1]), string(data))
	if err != nil {
		return err
	}
	if !v.Valid {
		color.Red("%s", v.Message)
		for _, id := range v.Missing {
			color.Yellow("  missing: %s", id)
		}
		for _, id := range v.Extra {
			color.Yellow("  extra:   %s", id)
		}
		return fmt.Errorf("grade file does not match roster")
	}
	color.Green("%s", v.Message)
	return nil
}

func listRubrics(ctx context.Context, s *app.Service, args []string) error {
	var f rubrics.Filter
	if len(args) > 0 {
		f.Course = args[0]
	}
	list, err := s.Rubrics.List(ctx, f)
	if err != nil {
		return err
	}

	color.Cyan("\n=== Rúbricas ===")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Code", "Name", "Type", "Delivery", "Points", "Active"})
	for _, r := range list {
		active := ""
		if r.Active {
			active = "yes"
		}
		table.Append([]string{
			r.ID,
			r.Code,
			r.Name,
			string(r.Type),
			string(r.Delivery),
			strconv.FormatFloat(r.TotalPoints, 'f', -1, 64),
			active,
		})
	}
	table.Render()
	return nil
}

func writeBackup(ctx context.Context, s *app.Service, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := s.Backup.Write(ctx, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	color.Green("Backup written to %s", args[0])
	return nil
}

func restoreBackup(ctx context.Context, s *app.Service, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	sum, err := s.Backup.Import(ctx, data)
	if sum != nil {
		color.Cyan("Restored %d courses, %d evaluations, %d rubrics (ui: %t)",
			sum.Courses, sum.Evaluations, sum.Rubrics, sum.UI)
	}
	return err
}

func issueToken(ctx context.Context, s *app.Service, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	if s.Tokens == nil {
		return fmt.Errorf("auth is disabled, set [server].enable_auth")
	}

	info, created, err := s.Tokens.FetchOrCreateToken(ctx, args[0])
	if err != nil {
		return err
	}
	if created {
		color.Green("New token for %s", info.Instructor)
	} else {
		color.Yellow("Existing token for %s, %d requests", info.Instructor, info.RequestCount)
	}
	fmt.Println(info.Token)
	return nil
}
