package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/emusa/energymon/telemetry"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	return repo
}

func testReading(at time.Time) telemetry.Reading {
	return telemetry.Reading{
		Time:             at,
		VoltagePhA:       telemetry.Available(220.1),
		VoltageLineRS:    telemetry.Available(380.2),
		PowerTotalActive: telemetry.Available(21.5),
		EnergyChannelA:   telemetry.Available(12345.6),
		EnergyChannelB:   telemetry.Available(23456.7),
		Frequency:        telemetry.Available(60.0),
		PowerFactor:      telemetry.Available(0.95),
	}
}

func TestAddAndQueryWindow(t *testing.T) {
	repo := testRepository(t)
	meterID := uuid.New()
	base := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if err := repo.Add(meterID, testReading(base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	// [10:01, 10:04): start inclusive, end exclusive
	readings, err := repo.ReadingsBetween(base.Add(time.Minute), base.Add(4*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(readings) != 3 {
		t.Fatalf("window query returned %d rows, want 3", len(readings))
	}
	for i := 1; i < len(readings); i++ {
		if readings[i].Time.Before(readings[i-1].Time) {
			t.Error("rows not ordered oldest first")
		}
	}
	if readings[0].MeterID != meterID {
		t.Errorf("meter id not persisted: %v", readings[0].MeterID)
	}
}

func TestUnavailableFieldsRoundTripAsNull(t *testing.T) {
	repo := testRepository(t)
	at := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	reading := testReading(at)
	reading.VoltageLineST = telemetry.Unavailable()
	reading.CurrentPhB = telemetry.Unavailable()
	if err := repo.Add(uuid.New(), reading); err != nil {
		t.Fatal(err)
	}

	rows, err := repo.ReadingsBetween(at, at.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}

	stored := rows[0]
	if stored.VoltageLineST != nil || stored.CurrentPhB != nil {
		t.Error("unavailable fields stored as values instead of NULL")
	}
	if stored.VoltagePhA == nil || *stored.VoltagePhA != 220.1 {
		t.Errorf("available field lost: %v", stored.VoltagePhA)
	}

	back := stored.Reading()
	if back.VoltageLineST.Valid {
		t.Error("NULL column reconstructed as a valid measurement")
	}
	if !back.VoltagePhA.Valid || back.VoltagePhA.Value != 220.1 {
		t.Errorf("reconstruction mangled a value: %+v", back.VoltagePhA)
	}
}

func TestAnomalyFlagsRoundTrip(t *testing.T) {
	repo := testRepository(t)
	at := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	reading := testReading(at)
	m := reading.EnergyChannelA
	m.Anomalous = true
	reading.EnergyChannelA = m
	if err := repo.Add(uuid.New(), reading); err != nil {
		t.Fatal(err)
	}

	rows, err := repo.ReadingsBetween(at, at.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if !rows[0].EnergyChannelAAnomalous || rows[0].EnergyChannelBAnomalous {
		t.Errorf("anomaly flags wrong: A=%v B=%v", rows[0].EnergyChannelAAnomalous, rows[0].EnergyChannelBAnomalous)
	}
	if !rows[0].Reading().EnergyChannelA.Anomalous {
		t.Error("anomaly flag lost in reconstruction")
	}
}

func TestUploadBookkeeping(t *testing.T) {
	repo := testRepository(t)
	meterID := uuid.New()
	base := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := repo.Add(meterID, testReading(base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	fresh, err := repo.GetReadings(10, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 3 {
		t.Fatalf("fresh readings: %d, want 3", len(fresh))
	}

	// a failed upload moves rows from the fresh pool to the retry pool
	if err := repo.IncrementUploadAttemptCount(fresh[:2]); err != nil {
		t.Fatal(err)
	}
	fresh, err = repo.GetReadings(10, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 1 {
		t.Errorf("fresh readings after failure: %d, want 1", len(fresh))
	}
	retries, err := repo.GetReadings(10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(retries) != 2 {
		t.Errorf("retry readings: %d, want 2", len(retries))
	}

	// a successful upload removes the rows entirely
	if err := repo.DeleteReadings(retries); err != nil {
		t.Fatal(err)
	}
	retries, err = repo.GetReadings(10, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(retries) != 0 {
		t.Errorf("retry readings after delete: %d, want 0", len(retries))
	}
}

func TestGetReadingsHonorsLimit(t *testing.T) {
	repo := testRepository(t)
	meterID := uuid.New()
	base := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		if err := repo.Add(meterID, testReading(base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	readings, err := repo.GetReadings(4, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(readings) != 4 {
		t.Errorf("got %d readings, want the limit of 4", len(readings))
	}
}
