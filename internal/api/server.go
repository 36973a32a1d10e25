// Package api exposes the monitor's statistics over a local REST API.
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"netscope/internal/classify"
	"netscope/internal/models"
	"netscope/internal/pipeline"
	"netscope/internal/resolve"
	"netscope/internal/stats"
	"netscope/internal/store"
)

var httpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "netscope_http_requests_total",
		Help: "Total number of API requests",
	},
	[]string{"method", "endpoint"},
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
}

// StatusSource reports pipeline health for the stats endpoint.
type StatusSource interface {
	Status() pipeline.Status
}

// CacheStatsSource reports DNS cache counters for the stats endpoint.
type CacheStatsSource interface {
	CacheStats() resolve.CacheStats
}

// Server handles the REST API. Pipeline and Resolver may be nil, in
// which case the stats response omits the corresponding sections.
type Server struct {
	Stats    *stats.Aggregator
	Store    *store.Store
	Pipeline StatusSource
	Resolver CacheStatsSource
	Logger   *zap.Logger
}

// Handler returns the routed HTTP handler, including /metrics.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/health", s.handleHealth).Methods("GET")
	v1.HandleFunc("/stats", s.handleStats).Methods("GET")
	v1.HandleFunc("/stats/reset", s.handleReset).Methods("POST")
	v1.HandleFunc("/apps", s.handleApps).Methods("GET")
	v1.HandleFunc("/apps/{name}", s.handleAppDetail).Methods("GET")
	v1.HandleFunc("/categories", s.handleCategories).Methods("GET")
	v1.HandleFunc("/bandwidth", s.handleBandwidth).Methods("GET")
	v1.HandleFunc("/recent", s.handleRecent).Methods("GET")
	v1.HandleFunc("/destinations", s.handleDestinations).Methods("GET")
	v1.HandleFunc("/protocols", s.handleProtocols).Methods("GET")
	v1.HandleFunc("/history/recent", s.handleHistoryRecent).Methods("GET")
	v1.HandleFunc("/history/apps", s.handleHistoryApps).Methods("GET")
	v1.HandleFunc("/history/categories", s.handleHistoryCategories).Methods("GET")
	v1.HandleFunc("/history/range", s.handleHistoryRange).Methods("GET")
	v1.HandleFunc("/history/summary", s.handleHistorySummary).Methods("GET")
	v1.HandleFunc("/history", s.handleCleanup).Methods("DELETE")

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path).Inc()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.Stats.Current()
	resp := StatsResponse{
		TotalPackets:     snap.TotalPackets,
		TotalBandwidth:   snap.TotalBandwidth,
		TotalUpload:      snap.TotalUpload,
		TotalDownload:    snap.TotalDownload,
		CurrentRate:      snap.CurrentRate,
		ActiveApps:       snap.ActiveApps,
		UptimeSeconds:    snap.Uptime.Seconds(),
		PacketsPerSecond: snap.PacketsPerSecond,
	}
	if s.Pipeline != nil {
		st := s.Pipeline.Status()
		resp.Pipeline = &PipelineStatus{
			Running:     st.Running,
			QueueDepth:  st.QueueDepth,
			Dropped:     st.Dropped,
			Processed:   st.Processed,
			Pending:     st.Pending,
			StoreErrors: st.StoreErrors,
		}
	}
	if s.Resolver != nil {
		cs := s.Resolver.CacheStats()
		resp.DNSCache = &DNSCacheStats{Hits: cs.Hits, Misses: cs.Misses, Size: cs.Size}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Stats.Reset()
	s.Logger.Info("statistics reset via api")
	writeJSON(w, http.StatusOK, ResetResponse{Reset: true})
}

func (s *Server) handleApps(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	apps := s.Stats.TopApps(limit)
	resp := AppsResponse{Apps: make([]AppInfo, 0, len(apps))}
	for _, a := range apps {
		resp.Apps = append(resp.Apps, AppInfo{AppName: a.AppName, Bytes: a.Bytes, Packets: a.Packets})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAppDetail(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	stat := s.Stats.AppDetail(name)
	if stat.Packets == 0 {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "app not found"})
		return
	}
	writeJSON(w, http.StatusOK, AppInfo{AppName: stat.AppName, Bytes: stat.Bytes, Packets: stat.Packets})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.Stats.ByCategory()
	resp := CategoriesResponse{Categories: make([]CategoryInfo, 0, len(cats))}
	for _, c := range cats {
		resp.Categories = append(resp.Categories, CategoryInfo{Category: c.Category, Bytes: c.Bytes})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBandwidth(w http.ResponseWriter, r *http.Request) {
	history := s.Stats.BandwidthHistory()
	resp := BandwidthResponse{
		CurrentRate: s.Stats.Current().CurrentRate,
		History:     make([]BandwidthPoint, 0, len(history)),
	}
	for _, p := range history {
		resp.History = append(resp.History, BandwidthPoint{
			Timestamp:    p.Timestamp.UTC().Format(time.RFC3339),
			Rate:         p.Rate,
			UploadRate:   p.UploadRate,
			DownloadRate: p.DownloadRate,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	recs := s.Stats.Recent(limit)
	resp := RecentResponse{Connections: make([]ConnectionInfo, 0, len(recs))}
	// Newest first for display.
	for i := len(recs) - 1; i >= 0; i-- {
		resp.Connections = append(resp.Connections, liveConnection(recs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDestinations(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	type agg struct {
		ip    string
		bytes int64
		count int64
	}
	byName := make(map[string]*agg)
	for _, rec := range s.Stats.Recent(0) {
		name := rec.DstIP
		if rec.DestHostname != nil && *rec.DestHostname != "" {
			name = *rec.DestHostname
		}
		a, ok := byName[name]
		if !ok {
			a = &agg{ip: rec.DstIP}
			byName[name] = a
		}
		a.bytes += int64(rec.Size)
		a.count++
	}

	resp := DestinationsResponse{Destinations: make([]DestinationInfo, 0, len(byName))}
	for name, a := range byName {
		resp.Destinations = append(resp.Destinations, DestinationInfo{
			Name:  name,
			DstIP: a.ip,
			Bytes: a.bytes,
			Count: a.count,
		})
	}
	sort.Slice(resp.Destinations, func(i, j int) bool {
		if resp.Destinations[i].Bytes != resp.Destinations[j].Bytes {
			return resp.Destinations[i].Bytes > resp.Destinations[j].Bytes
		}
		return resp.Destinations[i].Name < resp.Destinations[j].Name
	})
	if len(resp.Destinations) > limit {
		resp.Destinations = resp.Destinations[:limit]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProtocols(w http.ResponseWriter, r *http.Request) {
	byProto := make(map[string]*ProtocolInfo)
	for _, rec := range s.Stats.Recent(0) {
		p, ok := byProto[rec.Protocol]
		if !ok {
			p = &ProtocolInfo{Protocol: rec.Protocol}
			byProto[rec.Protocol] = p
		}
		p.Packets++
		p.Bytes += int64(rec.Size)
	}

	resp := ProtocolsResponse{Protocols: make([]ProtocolInfo, 0, len(byProto))}
	for _, p := range byProto {
		resp.Protocols = append(resp.Protocols, *p)
	}
	sort.Slice(resp.Protocols, func(i, j int) bool {
		if resp.Protocols[i].Bytes != resp.Protocols[j].Bytes {
			return resp.Protocols[i].Bytes > resp.Protocols[j].Bytes
		}
		return resp.Protocols[i].Protocol < resp.Protocols[j].Protocol
	})
	writeJSON(w, http.StatusOK, resp)
}

// liveConnection converts an in-memory record for display. Packets
// whose process was never found get a service name guessed from the
// destination instead of the Unknown sentinel.
func liveConnection(rec models.Connection) ConnectionInfo {
	ci := ConnectionInfo{
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
		AppName:   rec.AppName,
		PID:       rec.PID,
		SrcIP:     rec.SrcIP,
		DstIP:     rec.DstIP,
		Category:  rec.Category,
		Protocol:  rec.Protocol,
		SrcPort:   int(rec.SrcPort),
		DstPort:   int(rec.DstPort),
		Size:      int64(rec.Size),
	}
	if rec.DestHostname != nil {
		ci.Hostname = *rec.DestHostname
	}
	if ci.AppName == models.UnknownApp {
		ci.AppName = classify.GuessService(rec.DstIP, ci.Hostname)
	}
	return ci
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
