package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/devadigapratham/printd/api"
	"github.com/devadigapratham/printd/api/handlers"
	"github.com/devadigapratham/printd/axis"
	"github.com/devadigapratham/printd/config"
	"github.com/devadigapratham/printd/errlog"
	"github.com/devadigapratham/printd/gcode"
	"github.com/devadigapratham/printd/logging"
	"github.com/devadigapratham/printd/metrics"
	"github.com/devadigapratham/printd/raft"
	"github.com/devadigapratham/printd/storage"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the controller and its HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addOverrideFlags(serveCmd)

	// serve is the default command
	rootCmd.RunE = serveCmd.RunE
	addOverrideFlags(rootCmd)
}

// addOverrideFlags registers the flags that take precedence over the configuration
func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 0, "HTTP port (overrides api.port)")
	cmd.Flags().StringP("address", "a", "", "HTTP listen address (overrides api.address)")
	cmd.Flags().StringP("log-level", "l", "", "Log level: trace, debug, info, warn, error")
}

// loadConfig reads the configuration and applies command line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("port") {
		cfg.API.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("address") {
		cfg.API.Address, _ = cmd.Flags().GetString("address")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// settingsStore is an axis.Store that holds resources
type settingsStore interface {
	axis.Store
	io.Closer
}

// openStore creates the configured settings backend. node is only set for raft.
func openStore(ctx context.Context, cfg *config.Config, logger hclog.Logger) (settingsStore, *raft.Node, error) {
	sc := cfg.Storage
	switch sc.Backend {
	case config.BackendFile:
		store, err := storage.NewFileStore(sc.Path)
		return store, nil, err

	case config.BackendBolt:
		store, err := storage.OpenBolt(sc.Path)
		return store, nil, err

	case config.BackendRedis:
		store := storage.NewRedis(sc.Redis.Address, sc.Redis.Password, sc.Redis.DB, storage.WithPrefix(sc.Redis.Prefix))
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", sc.Redis.Address, err)
		}
		return store, nil, nil

	case config.BackendRaft:
		node, err := raft.NewNode(&raft.Config{
			NodeID:    sc.Raft.NodeID,
			RaftAddr:  sc.Raft.Addr,
			RaftDir:   filepath.Clean(sc.Raft.Dir),
			Bootstrap: sc.Raft.Bootstrap,
			Logger:    logger,
		})
		if err != nil {
			return nil, nil, err
		}
		// a leader has the whole log applied before axes read their settings
		if sc.Raft.Bootstrap {
			if err := node.WaitForLeader(30 * time.Second); err != nil {
				node.Shutdown()
				return nil, nil, err
			}
			if node.Leader() {
				if err := node.Barrier(30 * time.Second); err != nil {
					node.Shutdown()
					return nil, nil, err
				}
			}
		}
		return raft.NewStore(node), node, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	gin.SetMode(gin.ReleaseMode)

	store, node, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s settings store: %w", cfg.Storage.Backend, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("error closing settings store", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	errs := errlog.New(errlog.DefaultLimit)

	axes, err := axis.NewController(ctx, cfg.AxisConfigs(),
		axis.WithStore(store),
		axis.WithLogger(logger),
		axis.WithMetrics(m),
		axis.WithTimeScale(cfg.Motion.TimeScale),
	)
	if err != nil {
		return err
	}
	if rs, ok := store.(*raft.Store); ok {
		// followers pick up settings committed through the leader
		rs.Watch(func(id axis.ID, settings axis.Settings) {
			if err := axes.SyncSettings(id, settings); err != nil {
				logger.Warn("ignoring replicated settings", "axis", id, "error", err)
			}
		})
	}

	engine := gcode.NewEngine(axes,
		gcode.WithEngineLogger(logger),
		gcode.WithEngineMetrics(m),
		gcode.WithErrorLog(errs),
	)
	defer engine.Close()

	handler := handlers.NewHandler(axes, engine, errs, logger)
	handler.Backend = cfg.Storage.Backend
	opts := api.Options{Gatherer: reg}
	var transport *raft.Transport
	if node != nil {
		handler.Node = node
		transport = raft.NewTransport(node)
		opts.Transport = transport
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: api.SetupRouter(handler, opts),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr, "storage", cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	joined := false
	if transport != nil && cfg.Storage.Raft.Join != "" && !cfg.Storage.Raft.Bootstrap {
		logger.Info("joining cluster", "leader", cfg.Storage.Raft.Join)
		joinCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := transport.JoinCluster(joinCtx, cfg.Storage.Raft.Join, cfg.Storage.Raft.NodeID, cfg.Storage.Raft.Addr); err != nil {
			logger.Warn("failed to join cluster", "error", err)
		} else {
			joined = true
		}
		cancel()
	}

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down HTTP server", "error", err)
	}
	if joined {
		if err := transport.LeaveCluster(shutdownCtx, cfg.Storage.Raft.Join, cfg.Storage.Raft.NodeID); err != nil {
			logger.Warn("failed to leave cluster", "error", err)
		}
	}
	logger.Info("shutdown complete")
	return nil
}
