package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/export"
)

func main() {
	var (
		configPath = flag.String("config", "config.toml", "Path to config file")
		once       = flag.Bool("once", false, "Export every configured course once and exit")
	)
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	conf := service.Config.Export
	writer, err := export.NewGSheetWriter(context.Background(), conf.CredentialsFile, conf.SpreadsheetID)
	if err != nil {
		logger.Error.Fatalf("Failed to initialize Google Sheets writer: %v", err)
	}
	exporter := service.NewExporter(writer)

	if *once {
		if err := exporter.ExportAll(context.Background(), conf.Courses); err != nil {
			logger.Error.Fatalf("Export failed: %v", err)
		}
		return
	}

	scheduler, err := exporter.Schedule(conf.Schedule, conf.Courses)
	if err != nil {
		logger.Error.Fatalf("Failed to schedule export: %v", err)
	}
	scheduler.StartAsync()
	logger.Info.Printf("Exporting %d courses on %q", len(conf.Courses), conf.Schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	scheduler.Stop()
	logger.Info.Println("Exporter stopped")
}
