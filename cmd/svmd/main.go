// Command svmd runs a single node of the content-addressed contract
// execution engine: the TCP line protocol, the additive HTTP admin
// surface, and the repository backing that stores contracts, state and
// messages between them.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"svmd/edge"
	"svmd/pkg/config"
	"svmd/repository"
)

func main() {
	root := &cobra.Command{Use: "svmd"}
	root.AddCommand(serveCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the node's TCP line protocol and HTTP admin surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(env)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "configuration overlay name (config/<env>.yaml)")
	return cmd
}

func runServe(env string) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(env)
	if err != nil {
		logger.WithError(err).Fatal("bootstrap: load config")
	}
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.WithField("config", cfg.String()).Info("bootstrap: configuration loaded")

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		logger.WithError(err).Fatal("bootstrap: open repository")
	}
	defer closeRepo()

	registry := prometheus.NewRegistry()
	metrics := edge.NewMetrics(registry)

	server := edge.NewServer(repo, logger, time.Duration(cfg.Edge.ClockSkewMillis)*time.Millisecond, cfg.VM.MaxSteps, metrics)
	adminHandler, setReady := edge.AdminRouter(registry)

	admin := &http.Server{Addr: cfg.Admin.ListenAddr, Handler: adminHandler}
	go func() {
		logger.WithField("addr", cfg.Admin.ListenAddr).Info("bootstrap: admin surface listening")
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("admin: listen")
		}
	}()

	ln, err := server.Listen(cfg.Edge.ListenAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		setReady(true)
		errCh <- server.Serve(ln)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sig:
		logger.Info("bootstrap: shutting down")
		_ = ln.Close()
		_ = admin.Close()
		return nil
	}
}

func openRepository(cfg *config.Config) (repository.Repository, func(), error) {
	switch cfg.Storage.Backend {
	case "leveldb":
		db, err := repository.OpenLevelDB(cfg.Storage.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return repository.NewInMemory(), func() {}, nil
	}
}
