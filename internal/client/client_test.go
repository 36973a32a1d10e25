package client

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"netscope/internal/api"
	"netscope/internal/config"
	"netscope/internal/models"
	"netscope/internal/stats"
	"netscope/internal/store"
)

func setupTestAPI(t *testing.T) (*Client, *stats.Aggregator, *store.Store) {
	t.Helper()

	agg, err := stats.New(config.AggregatorConfig{RecentSize: 100, HistorySize: 100, SampleInterval: "1s"}, nil)
	if err != nil {
		t.Fatalf("stats.New failed: %v", err)
	}
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv := &api.Server{Stats: agg, Store: st, Logger: zap.NewNop()}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return New(ts.URL), agg, st
}

func record(ts time.Time, app string, size int) models.Connection {
	return models.Connection{
		Timestamp: ts,
		AppName:   app,
		SrcIP:     "192.168.1.5",
		DstIP:     "93.184.216.34",
		Category:  "Other",
		Protocol:  "TCP",
		SrcPort:   54000,
		DstPort:   443,
		Size:      size,
	}
}

func TestStatsRoundTrip(t *testing.T) {
	c, agg, _ := setupTestAPI(t)
	agg.Record(record(time.Now(), "Chrome", 100))
	agg.Record(record(time.Now(), "Spotify", 200))

	resp, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if resp.TotalPackets != 2 {
		t.Errorf("total_packets = %d, want 2", resp.TotalPackets)
	}
	if resp.TotalBandwidth != 300 {
		t.Errorf("total_bandwidth = %d, want 300", resp.TotalBandwidth)
	}
}

func TestAppsRoundTrip(t *testing.T) {
	c, agg, _ := setupTestAPI(t)
	agg.Record(record(time.Now(), "Chrome", 100))
	agg.Record(record(time.Now(), "Spotify", 500))

	resp, err := c.Apps(10)
	if err != nil {
		t.Fatalf("Apps failed: %v", err)
	}
	if len(resp.Apps) != 2 {
		t.Fatalf("got %d apps, want 2", len(resp.Apps))
	}
	if resp.Apps[0].AppName != "Spotify" {
		t.Errorf("apps[0] = %q, want Spotify", resp.Apps[0].AppName)
	}
}

func TestRecentRoundTrip(t *testing.T) {
	c, agg, _ := setupTestAPI(t)
	agg.Record(record(time.Now(), "Chrome", 100))

	resp, err := c.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(resp.Connections) != 1 {
		t.Fatalf("got %d connections, want 1", len(resp.Connections))
	}
	if resp.Connections[0].AppName != "Chrome" {
		t.Errorf("app_name = %q, want Chrome", resp.Connections[0].AppName)
	}
}

func TestHistorySummaryRoundTrip(t *testing.T) {
	c, _, st := setupTestAPI(t)
	if err := st.InsertOne(record(time.Now(), "Chrome", 100)); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	resp, err := c.HistorySummary()
	if err != nil {
		t.Fatalf("HistorySummary failed: %v", err)
	}
	if resp.Connections != 1 || resp.TotalBytes != 100 {
		t.Errorf("summary = %+v, want 1 connection / 100 bytes", resp)
	}
}

func TestResetRoundTrip(t *testing.T) {
	c, agg, _ := setupTestAPI(t)
	agg.Record(record(time.Now(), "Chrome", 100))

	if err := c.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	resp, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if resp.TotalPackets != 0 {
		t.Errorf("total_packets after reset = %d, want 0", resp.TotalPackets)
	}
}

func TestCleanupRoundTrip(t *testing.T) {
	c, _, st := setupTestAPI(t)
	if err := st.InsertOne(record(time.Now().Add(-48*time.Hour), "Chrome", 100)); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	if err := st.InsertOne(record(time.Now(), "Chrome", 100)); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	resp, err := c.Cleanup("24h")
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if resp.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", resp.Deleted)
	}
}

func TestServerErrorSurfacesMessage(t *testing.T) {
	c, _, _ := setupTestAPI(t)

	_, err := c.Cleanup("fortnight")
	if err == nil {
		t.Fatal("expected error for bad duration")
	}
	if err.Error() != "invalid older-than duration" {
		t.Errorf("error = %q, want the server's message", err.Error())
	}
}
