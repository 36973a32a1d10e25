// Package logging provides structured logging configuration.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration options.
type Config struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

// New creates a new configured zap logger.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
			return nil, err
		}
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "json"
	}

	var zcfg zap.Config
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.LevelKey = "level"
	zcfg.EncoderConfig.MessageKey = "msg"
	zcfg.EncoderConfig.CallerKey = "caller"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build(zap.AddCaller(), zap.AddCallerSkip(0))
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("service", "netscope"))

	return logger, nil
}

// Sync flushes any buffered log entries.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}

// FromEnv creates a Config from environment variables.
func FromEnv() Config {
	return Config{
		Level:  getenv("NETSCOPE_LOG_LEVEL", "info"),
		Format: getenv("NETSCOPE_LOG_FORMAT", "json"),
	}
}

func getenv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Component returns a zap field for the component name.
func Component(name string) zap.Field { return zap.String("component", name) }

// Iface returns a zap field for a network interface name.
func Iface(name string) zap.Field { return zap.String("iface", name) }

// Addr returns a zap field for an address.
func Addr(addr string) zap.Field { return zap.String("addr", addr) }

// Port returns a zap field for the port number.
func Port(port int) zap.Field { return zap.Int("port", port) }

// App returns a zap field for an application name.
func App(name string) zap.Field { return zap.String("app", name) }

// PID returns a zap field for a process ID.
func PID(pid int64) zap.Field { return zap.Int64("pid", pid) }

// SrcIP returns a zap field for a source IP address.
func SrcIP(ip string) zap.Field { return zap.String("src_ip", ip) }

// DstIP returns a zap field for a destination IP address.
func DstIP(ip string) zap.Field { return zap.String("dst_ip", ip) }

// Hostname returns a zap field for a resolved hostname.
func Hostname(host string) zap.Field { return zap.String("hostname", host) }

// Category returns a zap field for a traffic category.
func Category(cat string) zap.Field { return zap.String("category", cat) }

// Protocol returns a zap field for a protocol name.
func Protocol(proto string) zap.Field { return zap.String("protocol", proto) }

// Count returns a zap field for a generic count.
func Count(n int) zap.Field { return zap.Int("count", n) }

// Dropped returns a zap field for a dropped-packet count.
func Dropped(n uint64) zap.Field { return zap.Uint64("dropped", n) }

// Bytes returns a zap field for a byte count.
func Bytes(n int64) zap.Field { return zap.Int64("bytes", n) }

// BatchSize returns a zap field for a batch length.
func BatchSize(n int) zap.Field { return zap.Int("batch_size", n) }

// DBPath returns a zap field for the database path.
func DBPath(path string) zap.Field { return zap.String("db_path", path) }

// Filter returns a zap field for a capture filter expression.
func Filter(expr string) zap.Field { return zap.String("filter", expr) }
