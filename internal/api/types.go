package api

type HealthResponse struct {
	Status string `json:"status"`
}

type StatsResponse struct {
	TotalPackets     int64           `json:"total_packets"`
	TotalBandwidth   int64           `json:"total_bandwidth"`
	TotalUpload      int64           `json:"total_upload"`
	TotalDownload    int64           `json:"total_download"`
	CurrentRate      float64         `json:"current_rate"`
	ActiveApps       int             `json:"active_apps"`
	UptimeSeconds    float64         `json:"uptime_seconds"`
	PacketsPerSecond float64         `json:"packets_per_second"`
	Pipeline         *PipelineStatus `json:"pipeline,omitempty"`
	DNSCache         *DNSCacheStats  `json:"dns_cache,omitempty"`
}

type PipelineStatus struct {
	Running     bool   `json:"running"`
	QueueDepth  int    `json:"queue_depth"`
	Dropped     uint64 `json:"dropped"`
	Processed   uint64 `json:"processed"`
	Pending     int    `json:"pending"`
	StoreErrors uint64 `json:"store_errors"`
}

type DNSCacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

type ConnectionInfo struct {
	ID        int64  `json:"id,omitempty"`
	Timestamp string `json:"timestamp"`
	AppName   string `json:"app_name"`
	PID       *int64 `json:"pid,omitempty"`
	SrcIP     string `json:"src_ip"`
	DstIP     string `json:"dst_ip"`
	Hostname  string `json:"hostname,omitempty"`
	Category  string `json:"category"`
	Protocol  string `json:"protocol"`
	SrcPort   int    `json:"src_port"`
	DstPort   int    `json:"dst_port"`
	Size      int64  `json:"size"`
}

type RecentResponse struct {
	Connections []ConnectionInfo `json:"connections"`
}

type AppInfo struct {
	AppName string `json:"app_name"`
	Bytes   int64  `json:"bytes"`
	Packets int64  `json:"packets"`
}

type AppsResponse struct {
	Apps []AppInfo `json:"apps"`
}

type CategoryInfo struct {
	Category string `json:"category"`
	Bytes    int64  `json:"bytes"`
}

type CategoriesResponse struct {
	Categories []CategoryInfo `json:"categories"`
}

type BandwidthPoint struct {
	Timestamp    string  `json:"timestamp"`
	Rate         float64 `json:"rate"`
	UploadRate   float64 `json:"upload_rate"`
	DownloadRate float64 `json:"download_rate"`
}

type BandwidthResponse struct {
	CurrentRate float64          `json:"current_rate"`
	History     []BandwidthPoint `json:"history"`
}

type DestinationInfo struct {
	Name  string `json:"name"`
	DstIP string `json:"dst_ip"`
	Bytes int64  `json:"bytes"`
	Count int64  `json:"count"`
}

type DestinationsResponse struct {
	Destinations []DestinationInfo `json:"destinations"`
}

type ProtocolInfo struct {
	Protocol string `json:"protocol"`
	Packets  int64  `json:"packets"`
	Bytes    int64  `json:"bytes"`
}

type ProtocolsResponse struct {
	Protocols []ProtocolInfo `json:"protocols"`
}

type HistoryAppsResponse struct {
	Apps []HistoryAppInfo `json:"apps"`
}

type HistoryAppInfo struct {
	AppName string `json:"app_name"`
	Bytes   int64  `json:"bytes"`
	Count   int64  `json:"count"`
}

type HistorySummaryResponse struct {
	Connections int64 `json:"connections"`
	TotalBytes  int64 `json:"total_bytes"`
}

type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

type ResetResponse struct {
	Reset bool `json:"reset"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
