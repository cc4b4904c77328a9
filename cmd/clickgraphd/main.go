package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/clickgraph/clickgraph/internal/backend"
	"github.com/clickgraph/clickgraph/internal/bolt"
	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/config"
	"github.com/clickgraph/clickgraph/internal/discovery"
	"github.com/clickgraph/clickgraph/internal/httpapi"
	"github.com/clickgraph/clickgraph/internal/logging"
	"github.com/clickgraph/clickgraph/internal/telemetry"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile           string
	verbose           bool
	logFormat         string
	logFile           string
	httpPort          int
	boltPort          int
	disableBolt       bool
	maxRecursionDepth int
	neo4jCompatMode   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "clickgraphd",
	Short:   "ClickGraph translates Cypher reads into ClickHouse SQL over HTTP and Bolt",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./clickgraph.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text or json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file, rotating it past its size cap (default: stdout only)")

	rootCmd.Flags().IntVar(&httpPort, "http-port", 0, "HTTP service port (0 = use config)")
	rootCmd.Flags().IntVar(&boltPort, "bolt-port", 0, "Bolt service port (0 = use config)")
	rootCmd.Flags().BoolVar(&disableBolt, "disable-bolt", false, "disable the Bolt listener")
	rootCmd.Flags().IntVar(&maxRecursionDepth, "max-recursion-depth", 0, "cap on variable-length pattern recursion (0 = use config)")
	rootCmd.Flags().BoolVar(&neo4jCompatMode, "neo4j-compat-mode", false, "enable Neo4j wire-compatibility behaviors")

	rootCmd.SetVersionTemplate(`clickgraphd {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = config.Default()
	}
	applyFlagOverrides(cfg)

	if err := logging.Initialize(logging.Config{
		Level:      verboseLevel(),
		JSONFormat: logFormat == "json",
		AddSource:  verbose,
		OutputFile: logFile,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Close()
	logger := logging.Component("clickgraphd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat := catalog.New()
	{
		// LoadAndRegister only touches the catalog's own mutex-guarded
		// state per call, so loading every configured path concurrently is
		// safe and keeps a multi-schema deployment's startup latency flat
		// rather than linear in file count.
		var g errgroup.Group
		for _, path := range cfg.GraphConfigPaths() {
			path := path
			g.Go(func() error {
				if _, err := cat.LoadAndRegister(path); err != nil {
					return fmt.Errorf("failed to load graph config %q: %w", path, err)
				}
				logger.Info("registered graph schema", "path", path)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	var be *backend.Client
	if cfg.Backend.URL != "" {
		be, err = backend.New(ctx, backend.Config{
			URL:             cfg.Backend.URL,
			Database:        cfg.Backend.Database,
			User:            cfg.Backend.User,
			Password:        cfg.Backend.Password,
			ConnMaxLifetime: time.Hour,
			DialTimeout:     cfg.Query.BackendTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		defer be.Close()
		logger.Info("connected to ClickHouse backend", "url", cfg.Backend.URL, "database", cfg.Backend.Database)
	} else {
		logger.Warn("no CLICKHOUSE_URL configured — serving sql_only compiled queries, no backend execution")
	}

	var disc *discovery.Engine
	if be != nil {
		disc = discovery.NewEngine(be)
	}

	reg := prometheus.NewRegistry()
	metrics := telemetry.New(reg)

	httpSrv := httpapi.NewServer(cat, be, disc, metrics)
	router := httpSrv.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpAddr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	httpListener := &http.Server{Addr: httpAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http service listening", "addr", httpAddr)
		if err := httpListener.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http service: %w", err)
		}
		return nil
	})

	if !cfg.Server.DisableBolt {
		boltSrv := bolt.NewServer(cat, be, metrics)
		boltAddr := fmt.Sprintf(":%d", cfg.Server.BoltPort)
		g.Go(func() error {
			logger.Info("bolt service listening", "addr", boltAddr)
			if err := boltSrv.ListenAndServe(gctx, boltAddr); err != nil {
				return fmt.Errorf("bolt service: %w", err)
			}
			return nil
		})
	} else {
		logger.Info("bolt service disabled (--disable-bolt)")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
		case <-gctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpListener.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	cancel()
	return err
}

func applyFlagOverrides(cfg *config.Config) {
	if httpPort != 0 {
		cfg.Server.HTTPPort = httpPort
	}
	if boltPort != 0 {
		cfg.Server.BoltPort = boltPort
	}
	if disableBolt {
		cfg.Server.DisableBolt = true
	}
	if maxRecursionDepth != 0 {
		cfg.Query.MaxRecursionDepth = maxRecursionDepth
	}
	if neo4jCompatMode {
		cfg.Compat.Neo4jCompatMode = true
	}
}

func verboseLevel() logging.LogLevel {
	if verbose {
		return logging.DEBUG
	}
	return logging.INFO
}
