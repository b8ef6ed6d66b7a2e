package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"gold-monitor/src/config"
	datasource "gold-monitor/src/data_source"
	"gold-monitor/src/data_source/treasury"
	"gold-monitor/src/data_source/usdidr"
	"gold-monitor/src/interfaces"
	"gold-monitor/src/logger"
	"gold-monitor/src/network"
	"gold-monitor/src/ratelimit"
	"gold-monitor/src/security"
	"gold-monitor/src/server"
	"gold-monitor/src/state"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)
	clock := clockwork.NewRealClock()

	// Shared state and security tables
	appState := state.NewAppState(clock, logger.NewLogger(conf.LogLevel, "State"))
	limiter := ratelimit.NewRateLimiter(clock)
	guard := security.NewAbuseGuard(clock, logger.NewLogger(conf.LogLevel, "AbuseGuard"))

	// HTTP/WS server (wires the state to its broadcast hub)
	srv := server.NewServer(conf.MConfig, appState, guard, limiter, clock, appLogger)

	// Producers
	netManager := network.NewAsyncNetworkManager(conf.MConfig, logger.NewLogger(conf.LogLevel, "Network"))
	sources := []interfaces.IDataSource{
		treasury.NewTreasurySource(conf.MConfig, appState, logger.NewLogger(conf.LogLevel, "Treasury")),
		usdidr.NewUsdIdrSource(conf.MConfig, appState, netManager, logger.NewLogger(conf.LogLevel, "UsdIdr")),
	}
	manager := datasource.NewMultiSourceManager(sources, appLogger)

	// Lifecycle management
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	if err := manager.Start(ctx, &wg); err != nil {
		appLogger.Critical("Failed to start data sources: %v", err)
	}

	go func() {
		if err := srv.Start(ctx); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// Wait for shutdown signal, then stop the producers
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	appLogger.Info("Received signal %v, shutting down", sig)

	cancel()
	manager.Stop()
	wg.Wait()
	appLogger.Info("Shutdown complete")
}
