package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/khronos/khronos"
	"github.com/khronos/khronos/internal/config"
	"github.com/khronos/khronos/internal/server"
	"github.com/khronos/khronos/pkg/logger"
	"github.com/khronos/khronos/pkg/metrics"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		println("khronosd version", version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitLogger(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		Component:  "khronosd",
		EnableFile: cfg.Logging.EnableFile,
	}); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Startup(version, "", map[string]interface{}{
		"go_version": runtime.Version(),
		"config":     cfg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, err := khronos.Start(ctx, cfg)
	if err != nil {
		logger.Fatal("main", "failed to start discipline loop", err)
	}

	registry := metrics.NewRegistryWithNamespace(cfg.Metrics.Namespace, handle)
	if err := registry.Register(); err != nil {
		logger.Fatal("main", "failed to register metrics", err)
	}

	srv := server.New(cfg.Metrics.ListenAddr, registry.GetRegistry(), handle)
	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.SafeInfo("main", "received shutdown signal", map[string]interface{}{"signal": sig.String()})
	case err := <-serverErrChan:
		if err != nil {
			logger.Error("main", "status server error", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := handle.Shutdown(shutdownCtx); err != nil {
		logger.Error("main", "discipline loop shutdown error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main", "status server shutdown error", err)
	}

	logger.Shutdown("graceful")
}

func loadConfig(configFile string) (*config.Config, error) {
	if configFile != "" {
		return config.LoadFromYamlWithEnvOverrides(configFile)
	}
	return config.LoadFromEnvVarsOnly()
}
