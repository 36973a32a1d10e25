package store

import (
	"database/sql"
	"fmt"
	"time"

	"netscope/internal/models"
)

// AppBandwidth is one row of the stored per-application usage.
type AppBandwidth struct {
	AppName string
	Bytes   int64
	Count   int64
}

// CategoryBandwidth is one row of the stored per-category usage.
type CategoryBandwidth struct {
	Category string
	Bytes    int64
}

const insertSQL = `INSERT INTO connections
	(timestamp, app_name, pid, source_ip, dest_ip, dest_hostname, category, protocol, source_port, dest_port, packet_size)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const connectionColumns = `id, timestamp, app_name, pid, source_ip, dest_ip, dest_hostname, category, protocol, source_port, dest_port, packet_size`

// unixSeconds converts t to fractional seconds since the epoch, the
// timestamp representation of the connections table.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func insertArgs(rec models.Connection) []any {
	return []any{
		unixSeconds(rec.Timestamp),
		rec.AppName,
		rec.PID,
		rec.SrcIP,
		rec.DstIP,
		rec.DestHostname,
		rec.Category,
		rec.Protocol,
		int(rec.SrcPort),
		int(rec.DstPort),
		rec.Size,
	}
}

// InsertOne writes a single record.
func (s *Store) InsertOne(rec models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(insertSQL, insertArgs(rec)...)
	return err
}

// InsertBatch writes records in one transaction: either every record
// lands or none do.
func (s *Store) InsertBatch(recs []models.Connection) error {
	if len(recs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, rec := range recs {
		if _, err := stmt.Exec(insertArgs(rec)...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("batch insert: %w", err)
		}
	}
	stmt.Close()
	return tx.Commit()
}

// RecentConnections returns the newest records first.
func (s *Store) RecentConnections(limit int) ([]models.StoredConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		"SELECT "+connectionColumns+" FROM connections ORDER BY timestamp DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	return scanConnections(rows)
}

// ConnectionsByTimeRange returns records with start <= timestamp <=
// end, newest first.
func (s *Store) ConnectionsByTimeRange(start, end time.Time) ([]models.StoredConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		"SELECT "+connectionColumns+" FROM connections WHERE timestamp BETWEEN ? AND ? ORDER BY timestamp DESC",
		unixSeconds(start), unixSeconds(end))
	if err != nil {
		return nil, err
	}
	return scanConnections(rows)
}

// TopAppsByBandwidth returns applications by stored bytes, descending.
// Records with no identified application are excluded.
func (s *Store) TopAppsByBandwidth(limit int) ([]AppBandwidth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`
		SELECT app_name, SUM(packet_size) AS total_bytes, COUNT(*) AS record_count
		FROM connections
		WHERE app_name IS NOT NULL AND app_name != ?
		GROUP BY app_name
		ORDER BY total_bytes DESC
		LIMIT ?
	`, models.UnknownApp, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []AppBandwidth
	for rows.Next() {
		var a AppBandwidth
		if err := rows.Scan(&a.AppName, &a.Bytes, &a.Count); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// BandwidthByCategory returns stored bytes per category, descending.
func (s *Store) BandwidthByCategory() ([]CategoryBandwidth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`
		SELECT category, SUM(packet_size) AS total_bytes
		FROM connections
		GROUP BY category
		ORDER BY total_bytes DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []CategoryBandwidth
	for rows.Next() {
		var c CategoryBandwidth
		var category sql.NullString
		if err := rows.Scan(&category, &c.Bytes); err != nil {
			return nil, err
		}
		c.Category = models.OtherCategory
		if category.Valid {
			c.Category = category.String
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ConnectionCount returns the number of stored records.
func (s *Store) ConnectionCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM connections").Scan(&count)
	return count, err
}

// TotalBandwidth returns the sum of stored packet sizes.
func (s *Store) TotalBandwidth() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	err := s.db.QueryRow("SELECT COALESCE(SUM(packet_size), 0) FROM connections").Scan(&total)
	return total, err
}

// CleanupOlderThan deletes records older than age and returns how many
// were removed.
func (s *Store) CleanupOlderThan(age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM connections WHERE timestamp < ?",
		unixSeconds(time.Now().Add(-age)))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanConnections(rows *sql.Rows) ([]models.StoredConnection, error) {
	defer rows.Close()
	var conns []models.StoredConnection
	for rows.Next() {
		var sc models.StoredConnection
		var appName, hostname, category sql.NullString
		var pid sql.NullInt64
		err := rows.Scan(&sc.ID, &sc.Timestamp, &appName, &pid, &sc.SrcIP, &sc.DstIP,
			&hostname, &category, &sc.Protocol, &sc.SrcPort, &sc.DstPort, &sc.Size)
		if err != nil {
			return nil, err
		}
		sc.AppName = models.UnknownApp
		if appName.Valid {
			sc.AppName = appName.String
		}
		if pid.Valid {
			v := pid.Int64
			sc.PID = &v
		}
		if hostname.Valid {
			h := hostname.String
			sc.DestHostname = &h
		}
		sc.Category = models.OtherCategory
		if category.Valid {
			sc.Category = category.String
		}
		conns = append(conns, sc)
	}
	return conns, rows.Err()
}
