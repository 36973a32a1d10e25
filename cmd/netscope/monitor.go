package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"netscope/internal/api"
	"netscope/internal/capture"
	"netscope/internal/classify"
	"netscope/internal/config"
	"netscope/internal/logging"
	"netscope/internal/pipeline"
	"netscope/internal/procmap"
	"netscope/internal/resolve"
	"netscope/internal/stats"
	"netscope/internal/store"
)

var monitorFlags struct {
	configPath string
	iface      string
	filter     string
	dbPath     string
	apiAddr    string
	noAPI      bool
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Capture traffic and record it to the local database",
	Long: `Capture packets on a network interface, map them to the owning
application, resolve destination hostnames and categories, and write
everything to the SQLite database.

Capturing requires permission to open the interface, which usually
means root or the equivalent capture capability. While the monitor is
running, the other subcommands can query it over the REST API.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringVar(&monitorFlags.configPath, "config", getEnv("NETSCOPE_CONFIG", ""), "path to config file")
	monitorCmd.Flags().StringVar(&monitorFlags.iface, "interface", "", "interface to capture on (overrides config)")
	monitorCmd.Flags().StringVar(&monitorFlags.filter, "filter", "", "BPF capture filter (overrides config)")
	monitorCmd.Flags().StringVar(&monitorFlags.dbPath, "db", getEnv("NETSCOPE_DB", ""), "database path (overrides config)")
	monitorCmd.Flags().StringVar(&monitorFlags.apiAddr, "api-addr", "", "API listen address (overrides config)")
	monitorCmd.Flags().BoolVar(&monitorFlags.noAPI, "no-api", false, "disable the REST API server")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(monitorFlags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if monitorFlags.iface != "" {
		cfg.Interface = monitorFlags.iface
	}
	if monitorFlags.filter != "" {
		cfg.Filter = monitorFlags.filter
	}
	if monitorFlags.dbPath != "" {
		cfg.DBPath = monitorFlags.dbPath
	}
	if monitorFlags.apiAddr != "" {
		cfg.APIAddr = monitorFlags.apiAddr
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = st.Close() }()

	classifier := classify.New(cfg.Categories)

	resolver, err := resolve.New(cfg.DNS, classifier, nil, logger)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}

	procs, err := procmap.New(cfg.Process, nil, nil, logger)
	if err != nil {
		return fmt.Errorf("build process resolver: %w", err)
	}

	agg, err := stats.New(cfg.Aggregator, nil)
	if err != nil {
		return fmt.Errorf("build aggregator: %w", err)
	}

	queue := capture.NewQueue(cfg.QueueSize)
	engine := capture.NewPCAPEngine(capture.Config{
		Interface: cfg.Interface,
		Filter:    cfg.Filter,
	}, queue, logger)

	mon := &pipeline.Monitor{
		Engine:    engine,
		Queue:     queue,
		Processes: procs,
		Hosts:     resolver,
		Stats:     agg,
		Store:     st,
		BatchSize: cfg.BatchSize,
		Logger:    logger.Named("pipeline"),
	}

	if err := mon.Start(context.Background()); err != nil {
		return err
	}
	logger.Info("monitor running",
		logging.Iface(cfg.Interface),
		logging.Filter(cfg.Filter),
		logging.DBPath(cfg.DBPath))

	var apiServer *api.ManagedServer
	if !monitorFlags.noAPI {
		srv := &api.Server{
			Stats:    agg,
			Store:    st,
			Pipeline: mon,
			Resolver: resolver,
			Logger:   logger.Named("api"),
		}
		apiServer = api.NewManagedServer(cfg.APIAddr, srv.Handler(), logger.Named("api"))
		apiServer.Start()
		if err := apiServer.WaitForStartup(250 * time.Millisecond); err != nil {
			mon.Stop()
			return err
		}
		logger.Info("api server listening", logging.Addr(cfg.APIAddr))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	running := true
	for running {
		select {
		case <-sigCh:
			running = false
		case <-ticker.C:
			s := mon.Status()
			logger.Info("pipeline status",
				zap.Uint64("processed", s.Processed),
				zap.Int("queue_depth", s.QueueDepth),
				logging.Dropped(s.Dropped),
				zap.Int("pending", s.Pending),
				zap.Uint64("store_errors", s.StoreErrors))
		}
	}

	logger.Info("shutting down")

	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		apiServer.Shutdown(ctx)
		cancel()
	}
	mon.Stop()

	fmt.Println(agg.Summary())
	return nil
}
