package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"netscope/internal/classify"
	"netscope/internal/models"
)

func (s *Server) handleHistoryRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	recs, err := s.Store.RecentConnections(limit)
	if err != nil {
		s.Logger.Error("failed to read recent connections", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "database error"})
		return
	}
	resp := RecentResponse{Connections: make([]ConnectionInfo, 0, len(recs))}
	for _, rec := range recs {
		resp.Connections = append(resp.Connections, storedConnection(rec, true))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistoryApps(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	apps, err := s.Store.TopAppsByBandwidth(limit)
	if err != nil {
		s.Logger.Error("failed to read app bandwidth", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "database error"})
		return
	}
	resp := HistoryAppsResponse{Apps: make([]HistoryAppInfo, 0, len(apps))}
	for _, a := range apps {
		resp.Apps = append(resp.Apps, HistoryAppInfo{AppName: a.AppName, Bytes: a.Bytes, Count: a.Count})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistoryCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.Store.BandwidthByCategory()
	if err != nil {
		s.Logger.Error("failed to read category bandwidth", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "database error"})
		return
	}
	resp := CategoriesResponse{Categories: make([]CategoryInfo, 0, len(cats))}
	for _, c := range cats {
		resp.Categories = append(resp.Categories, CategoryInfo{Category: c.Category, Bytes: c.Bytes})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistoryRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid start time"})
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid end time"})
		return
	}

	recs, err := s.Store.ConnectionsByTimeRange(start, end)
	if err != nil {
		s.Logger.Error("failed to read connection range", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "database error"})
		return
	}
	resp := RecentResponse{Connections: make([]ConnectionInfo, 0, len(recs))}
	for _, rec := range recs {
		resp.Connections = append(resp.Connections, storedConnection(rec, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistorySummary(w http.ResponseWriter, r *http.Request) {
	count, err := s.Store.ConnectionCount()
	if err != nil {
		s.Logger.Error("failed to count connections", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "database error"})
		return
	}
	total, err := s.Store.TotalBandwidth()
	if err != nil {
		s.Logger.Error("failed to sum bandwidth", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "database error"})
		return
	}
	writeJSON(w, http.StatusOK, HistorySummaryResponse{Connections: count, TotalBytes: total})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("older-than")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "older-than required"})
		return
	}
	age, err := time.ParseDuration(raw)
	if err != nil || age < 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid older-than duration"})
		return
	}

	deleted, err := s.Store.CleanupOlderThan(age)
	if err != nil {
		s.Logger.Error("failed to delete old connections", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "database error"})
		return
	}
	s.Logger.Info("history cleanup", zap.Int64("deleted", deleted), zap.String("older_than", raw))
	writeJSON(w, http.StatusOK, CleanupResponse{Deleted: deleted})
}

// storedConnection converts a database row for display. The service
// guess only applies on the recent view, not raw range exports.
func storedConnection(rec models.StoredConnection, guess bool) ConnectionInfo {
	ci := ConnectionInfo{
		ID:        rec.ID,
		Timestamp: time.Unix(0, int64(rec.Timestamp*float64(time.Second))).UTC().Format(time.RFC3339),
		AppName:   rec.AppName,
		PID:       rec.PID,
		SrcIP:     rec.SrcIP,
		DstIP:     rec.DstIP,
		Category:  rec.Category,
		Protocol:  rec.Protocol,
		SrcPort:   rec.SrcPort,
		DstPort:   rec.DstPort,
		Size:      rec.Size,
	}
	if rec.DestHostname != nil {
		ci.Hostname = *rec.DestHostname
	}
	if guess && ci.AppName == models.UnknownApp {
		ci.AppName = classify.GuessService(rec.DstIP, ci.Hostname)
	}
	return ci
}
