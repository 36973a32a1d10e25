package store

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"netscope/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(ts time.Time, app, category string, size int) models.Connection {
	pid := int64(1234)
	hostname := "example.com"
	return models.Connection{
		Timestamp:    ts,
		AppName:      app,
		PID:          &pid,
		SrcIP:        "192.168.1.5",
		DstIP:        "93.184.216.34",
		DestHostname: &hostname,
		Category:     category,
		Protocol:     "TCP",
		SrcPort:      54000,
		DstPort:      443,
		Size:         size,
	}
}

func TestOpenCreatesDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}

	for _, table := range []string{"schema_migrations", "connections"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestInsertOneRoundTrip(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 123456000, time.UTC)

	if err := s.InsertOne(record(ts, "Chrome", "Streaming", 1400)); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	got, err := s.RecentConnections(10)
	if err != nil {
		t.Fatalf("RecentConnections failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}

	rec := got[0]
	if rec.AppName != "Chrome" {
		t.Errorf("AppName = %q, want Chrome", rec.AppName)
	}
	if rec.PID == nil || *rec.PID != 1234 {
		t.Errorf("PID = %v, want 1234", rec.PID)
	}
	if rec.DestHostname == nil || *rec.DestHostname != "example.com" {
		t.Errorf("DestHostname = %v, want example.com", rec.DestHostname)
	}
	if rec.Category != "Streaming" {
		t.Errorf("Category = %q, want Streaming", rec.Category)
	}
	if rec.Protocol != "TCP" || rec.SrcPort != 54000 || rec.DstPort != 443 {
		t.Errorf("endpoint = %s %d->%d, want TCP 54000->443", rec.Protocol, rec.SrcPort, rec.DstPort)
	}
	if rec.Size != 1400 {
		t.Errorf("Size = %d, want 1400", rec.Size)
	}
	if diff := math.Abs(rec.Timestamp - unixSeconds(ts)); diff > 1e-6 {
		t.Errorf("Timestamp off by %g seconds", diff)
	}
}

func TestInsertNullableFields(t *testing.T) {
	s := testStore(t)
	rec := record(time.Now(), "Unknown", "Other", 100)
	rec.PID = nil
	rec.DestHostname = nil

	if err := s.InsertOne(rec); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	got, err := s.RecentConnections(1)
	if err != nil {
		t.Fatalf("RecentConnections failed: %v", err)
	}
	if got[0].PID != nil {
		t.Errorf("PID = %v, want nil", got[0].PID)
	}
	if got[0].DestHostname != nil {
		t.Errorf("DestHostname = %v, want nil", got[0].DestHostname)
	}
}

func TestInsertBatch(t *testing.T) {
	s := testStore(t)

	var batch []models.Connection
	now := time.Now()
	for i := 0; i < 10; i++ {
		batch = append(batch, record(now.Add(time.Duration(i)*time.Second), "Chrome", "Other", 100))
	}
	if err := s.InsertBatch(batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	count, err := s.ConnectionCount()
	if err != nil {
		t.Fatalf("ConnectionCount failed: %v", err)
	}
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}

	total, err := s.TotalBandwidth()
	if err != nil {
		t.Fatalf("TotalBandwidth failed: %v", err)
	}
	if total != 1000 {
		t.Errorf("total = %d, want 1000", total)
	}
}

func TestInsertBatchEmpty(t *testing.T) {
	s := testStore(t)
	if err := s.InsertBatch(nil); err != nil {
		t.Fatalf("InsertBatch(nil) failed: %v", err)
	}
	count, err := s.ConnectionCount()
	if err != nil {
		t.Fatalf("ConnectionCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestRecentConnectionsOrderAndLimit(t *testing.T) {
	s := testStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := s.InsertOne(record(base.Add(time.Duration(i)*time.Minute), "Chrome", "Other", 100+i)); err != nil {
			t.Fatalf("InsertOne failed: %v", err)
		}
	}

	got, err := s.RecentConnections(3)
	if err != nil {
		t.Fatalf("RecentConnections failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	// Newest first.
	for i, wantSize := range []int64{104, 103, 102} {
		if got[i].Size != wantSize {
			t.Errorf("record %d size = %d, want %d", i, got[i].Size, wantSize)
		}
	}
}

func TestTopAppsExcludesUnknown(t *testing.T) {
	s := testStore(t)
	now := time.Now()
	inserts := []struct {
		app  string
		size int
	}{
		{"Chrome", 100},
		{"Chrome", 200},
		{"Spotify", 500},
		{"Unknown", 1000},
	}
	for _, in := range inserts {
		if err := s.InsertOne(record(now, in.app, "Other", in.size)); err != nil {
			t.Fatalf("InsertOne failed: %v", err)
		}
	}

	apps, err := s.TopAppsByBandwidth(10)
	if err != nil {
		t.Fatalf("TopAppsByBandwidth failed: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("got %d apps, want 2 (Unknown excluded)", len(apps))
	}
	if apps[0].AppName != "Spotify" || apps[0].Bytes != 500 {
		t.Errorf("apps[0] = %+v, want Spotify/500", apps[0])
	}
	if apps[1].AppName != "Chrome" || apps[1].Bytes != 300 || apps[1].Count != 2 {
		t.Errorf("apps[1] = %+v, want Chrome/300/2", apps[1])
	}

	top1, err := s.TopAppsByBandwidth(1)
	if err != nil {
		t.Fatalf("TopAppsByBandwidth failed: %v", err)
	}
	if len(top1) != 1 || top1[0].AppName != "Spotify" {
		t.Errorf("top1 = %+v, want just Spotify", top1)
	}
}

func TestBandwidthByCategory(t *testing.T) {
	s := testStore(t)
	now := time.Now()
	for _, in := range []struct {
		category string
		size     int
	}{
		{"Streaming", 100},
		{"Streaming", 200},
		{"Other", 100},
	} {
		if err := s.InsertOne(record(now, "Chrome", in.category, in.size)); err != nil {
			t.Fatalf("InsertOne failed: %v", err)
		}
	}

	cats, err := s.BandwidthByCategory()
	if err != nil {
		t.Fatalf("BandwidthByCategory failed: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("got %d categories, want 2", len(cats))
	}
	if cats[0].Category != "Streaming" || cats[0].Bytes != 300 {
		t.Errorf("cats[0] = %+v, want Streaming/300", cats[0])
	}
	if cats[1].Category != "Other" || cats[1].Bytes != 100 {
		t.Errorf("cats[1] = %+v, want Other/100", cats[1])
	}
}

func TestConnectionsByTimeRangeInclusive(t *testing.T) {
	s := testStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := s.InsertOne(record(base.Add(time.Duration(i)*10*time.Second), "Chrome", "Other", 100)); err != nil {
			t.Fatalf("InsertOne failed: %v", err)
		}
	}

	got, err := s.ConnectionsByTimeRange(base, base.Add(10*time.Second))
	if err != nil {
		t.Fatalf("ConnectionsByTimeRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d records, want 2 (both boundaries inclusive)", len(got))
	}
}

func TestEmptyStoreQueries(t *testing.T) {
	s := testStore(t)

	count, err := s.ConnectionCount()
	if err != nil || count != 0 {
		t.Errorf("ConnectionCount = %d, %v, want 0, nil", count, err)
	}
	total, err := s.TotalBandwidth()
	if err != nil || total != 0 {
		t.Errorf("TotalBandwidth = %d, %v, want 0, nil", total, err)
	}
	recent, err := s.RecentConnections(5)
	if err != nil || len(recent) != 0 {
		t.Errorf("RecentConnections = %v, %v, want empty, nil", recent, err)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	s := testStore(t)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := s.InsertOne(record(now.Add(-48*time.Hour), "Chrome", "Other", 100)); err != nil {
			t.Fatalf("InsertOne failed: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := s.InsertOne(record(now, "Chrome", "Other", 100)); err != nil {
			t.Fatalf("InsertOne failed: %v", err)
		}
	}

	deleted, err := s.CleanupOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupOlderThan failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	count, err := s.ConnectionCount()
	if err != nil {
		t.Fatalf("ConnectionCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	deleted, err = s.CleanupOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupOlderThan failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("second cleanup deleted = %d, want 0", deleted)
	}

	// Age zero removes everything recorded before this instant.
	deleted, err = s.CleanupOlderThan(0)
	if err != nil {
		t.Fatalf("CleanupOlderThan failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("cleanup(0) deleted = %d, want 2", deleted)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     int
		wantErr  bool
	}{
		{"valid", "001_create_connections.sql", 1, false},
		{"valid large", "123_add_column.sql", 123, false},
		{"missing underscore", "001.sql", 0, true},
		{"empty prefix", "_create_tables.sql", 0, true},
		{"non-numeric prefix", "abc_create_tables.sql", 0, true},
		{"empty string", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVersion(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseVersion(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("parseVersion(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}
