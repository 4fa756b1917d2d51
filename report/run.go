package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/emusa/energymon/repository"
	timeutils "github.com/emusa/energymon/time_utils"
)

// Config drives the periodic report job.
type Config struct {
	OutputDir   string
	Interval    time.Duration // how often a report is produced
	WindowHours int           // how far back each report looks
	Title       string
}

// Run produces a PDF + CSV pair on every interval until cancelled.
func Run(ctx context.Context, repo *repository.Repository, cfg Config) {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.WindowHours <= 0 {
		cfg.WindowHours = 24
	}
	if cfg.Title == "" {
		cfg.Title = "Energy monitor report"
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := Generate(repo, cfg, now); err != nil {
				slog.Error("failed to generate report", "error", err)
			}
		}
	}
}

// Generate writes one report pair for the window ending at `now`.
func Generate(repo *repository.Repository, cfg Config, now time.Time) error {
	period := timeutils.LastHours(now, cfg.WindowHours)

	readings, err := repo.ReadingsBetween(period.Start, period.End)
	if err != nil {
		return fmt.Errorf("query report window: %w", err)
	}

	summary := Summarize(period, readings)
	stamp := now.Format("20060102-1504")

	pdfPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("report-%s.pdf", stamp))
	if err := WritePDF(pdfPath, cfg.Title, summary, readings); err != nil {
		return err
	}

	csvPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("readings-%s.csv", stamp))
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()
	if err := WriteCSV(f, readings); err != nil {
		return err
	}

	slog.Info("Generated report", "pdf", pdfPath, "csv", csvPath, "rows", len(readings))
	return nil
}
