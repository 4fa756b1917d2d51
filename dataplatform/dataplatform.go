// Package dataplatform streams readings to the hosted data platform.
// Readings are buffered on disk in SQLite first, so an offline uplink never
// loses telemetry; uploads are retried with an attempt counter.
package dataplatform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	supa "github.com/nedpals/supabase-go"

	"github.com/emusa/energymon/repository"
	"github.com/emusa/energymon/telemetry"
)

const (
	// uploadChunkLimit caps how many readings go into one HTTP request.
	uploadChunkLimit = 100

	tableName = "meter_readings"
)

// DataPlatform consumes readings from the Readings channel, persists them
// locally and uploads them in batches.
type DataPlatform struct {
	Readings chan telemetry.Reading

	meterID        uuid.UUID
	repository     *repository.Repository
	supaClient     *supa.Client
	uploadInterval time.Duration
}

func New(supabaseURL, supabaseKey, schema string, meterID uuid.UUID, repo *repository.Repository, uploadInterval time.Duration) (*DataPlatform, error) {
	if uploadInterval <= 0 {
		uploadInterval = 5 * time.Second
	}

	supaClient := supa.CreateClient(supabaseURL, supabaseKey)
	if schema != "" {
		supaClient.DB.AddHeader("Accept-Profile", schema)
		supaClient.DB.AddHeader("Content-Profile", schema)
	}

	return &DataPlatform{
		Readings:       make(chan telemetry.Reading, 25), // small buffer so a slow disk doesn't ripple upstream
		meterID:        meterID,
		repository:     repo,
		supaClient:     supaClient,
		uploadInterval: uploadInterval,
	}, nil
}

// NewLocalOnly buffers readings in the local repository without any remote
// upload target, for deployments where the data platform is disabled. The
// buffered rows stay available to the report generator.
func NewLocalOnly(meterID uuid.UUID, repo *repository.Repository) *DataPlatform {
	return &DataPlatform{
		Readings:   make(chan telemetry.Reading, 25),
		meterID:    meterID,
		repository: repo,
	}
}

// Run loops until cancelled, persisting incoming readings and attempting
// uploads on a fixed interval. Without an upload client the tick channel
// stays nil and only local persistence runs.
func (d *DataPlatform) Run(ctx context.Context) {
	var uploadTick <-chan time.Time
	if d.supaClient != nil {
		uploadTicker := time.NewTicker(d.uploadInterval)
		defer uploadTicker.Stop()
		uploadTick = uploadTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case reading := <-d.Readings:
			if err := d.repository.Add(d.meterID, reading); err != nil {
				slog.Error("failed to persist reading", "error", err)
				continue
			}
			slog.Debug("Stored reading", "time", reading.Time)

		case <-uploadTick:
			d.attemptUpload()
		}
	}
}

// attemptUpload pushes buffered readings to the platform, fresh ones first,
// then previously failed ones.
func (d *DataPlatform) attemptUpload() {
	for _, fresh := range []bool{true, false} {
		readings, err := d.repository.GetReadings(uploadChunkLimit, fresh)
		if err != nil {
			slog.Error("failed to query buffered readings", "fresh", fresh, "error", err)
			continue
		}
		if len(readings) == 0 {
			continue
		}
		if err := d.uploadReadings(readings); err != nil {
			slog.Error("failed to upload readings", "fresh", fresh, "error", err)
		}
	}
}

// uploadReadings attempts one batch. On success the readings are deleted
// from the buffer; on failure their attempt count is bumped and they stay
// for a later round.
func (d *DataPlatform) uploadReadings(readings []repository.StoredReading) error {
	uploadErr := d.supaClient.DB.From(tableName).Insert(convertReadings(readings)).Execute(nil)
	if uploadErr != nil {
		uploadErr = fmt.Errorf("upload failed: %w", uploadErr)
		if errInc := d.repository.IncrementUploadAttemptCount(readings); errInc != nil {
			return fmt.Errorf("%w: increment upload attempt count: %w", uploadErr, errInc)
		}
		return uploadErr
	}

	if err := d.repository.DeleteReadings(readings); err != nil {
		return fmt.Errorf("delete uploaded readings: %w", err)
	}

	slog.Info("Uploaded readings", "db_table", tableName, "db_records", len(readings))
	return nil
}
