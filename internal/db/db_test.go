package db

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/friendsincode/protoreg/internal/config"
	"github.com/friendsincode/protoreg/internal/models"
	"github.com/friendsincode/protoreg/internal/telemetry"
)

func TestConnectUnknownBackend(t *testing.T) {
	if _, err := Connect(&config.Config{AuditDBBackend: "oracle", AuditDBDSN: "x"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestMigrateAndRecordMetrics(t *testing.T) {
	database, err := Connect(&config.Config{AuditDBBackend: config.DatabaseSQLite, AuditDBDSN: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = Close(database) })

	if err := Migrate(database); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !database.Migrator().HasTable(&models.Submission{}) {
		t.Fatal("submissions table not created")
	}

	before := testutil.CollectAndCount(telemetry.DatabaseQueryDuration)
	row := models.Submission{
		ID:         "6f1c0c2e-1111-4a3e-9f00-000000000001",
		Kind:       models.SubmissionProtocol,
		Blob:       "protocol_database.json",
		Reference:  "entry_1",
		RecordedAt: time.Now().UTC(),
	}
	if err := database.Create(&row).Error; err != nil {
		t.Fatalf("Create: %v", err)
	}
	var got []models.Submission
	if err := database.Find(&got).Error; err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 1 || got[0].Reference != "entry_1" {
		t.Fatalf("rows = %+v", got)
	}

	// create and query each add a series labelled with the submissions table.
	if after := testutil.CollectAndCount(telemetry.DatabaseQueryDuration); after < before+1 {
		t.Fatalf("query duration series = %d, want more than %d", after, before)
	}

	UpdateConnectionMetrics(database)
	if got := testutil.ToFloat64(telemetry.DatabaseConnectionsActive); got != 1 {
		t.Fatalf("open connections = %v, want 1", got)
	}
}
