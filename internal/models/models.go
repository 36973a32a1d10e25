// Package models defines the record types shared across the pipeline.
package models

import "time"

// Sentinel values used when enrichment cannot produce a real answer.
const (
	// UnknownApp marks a packet whose owning process could not be found.
	UnknownApp = "Unknown"
	// OtherCategory is the category for destinations matching no keyword.
	OtherCategory = "Other"
	// LocalHostname stands in for reverse DNS on private destinations.
	LocalHostname = "Local Network"
	// LocalCategory is the category assigned to private destinations.
	LocalCategory = "Local"
)

// PacketEvent is a single captured packet as produced by the capture
// layer, before any enrichment.
type PacketEvent struct {
	Timestamp time.Time
	SrcIP     string
	DstIP     string
	Protocol  string
	SrcPort   uint16
	DstPort   uint16
	Size      int
}

// Connection is a fully enriched packet record, ready for aggregation
// and persistence.
type Connection struct {
	Timestamp    time.Time
	AppName      string
	PID          *int64
	SrcIP        string
	DstIP        string
	DestHostname *string
	Category     string
	Protocol     string
	SrcPort      uint16
	DstPort      uint16
	Size         int
}

// StoredConnection represents a connection row in the database.
// Timestamp is seconds since the Unix epoch.
type StoredConnection struct {
	ID           int64
	Timestamp    float64
	AppName      string
	PID          *int64
	SrcIP        string
	DstIP        string
	DestHostname *string
	Category     string
	Protocol     string
	SrcPort      int
	DstPort      int
	Size         int64
}
