// HomeScout server — hosts the multi-agent property search assistant:
// HTTP API, conversational scoping, listing research, geocoding and POI
// enrichment, community analysis, and voice-call negotiation.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/homescout-ai/homescout/pkg/agent"
	"github.com/homescout-ai/homescout/pkg/api"
	"github.com/homescout-ai/homescout/pkg/config"
	"github.com/homescout-ai/homescout/pkg/coordinator"
	"github.com/homescout-ai/homescout/pkg/geo"
	"github.com/homescout-ai/homescout/pkg/llm"
	"github.com/homescout-ai/homescout/pkg/search"
	"github.com/homescout-ai/homescout/pkg/session"
	"github.com/homescout-ai/homescout/pkg/telephony"
	"github.com/homescout-ai/homescout/pkg/version"
)

func main() {
	envPath := flag.String("env-file", ".env", "Path to an optional .env file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envPath, "error", err)
	}

	cfg := config.Load()

	slog.Info("Starting HomeScout",
		"version", version.Full(),
		"listen_port", cfg.ListenPort,
		"llm_model", cfg.LLMModel)

	// Missing keys disable a surface but never prevent startup: the
	// coordinator answers with a configuration message instead of crashing.
	gateway, err := llm.NewGateway(cfg)
	if err != nil {
		slog.Warn("LLM gateway disabled", "error", err)
	}

	var provider search.Provider
	if mcpProvider, err := search.NewMCPProvider(cfg); err != nil {
		slog.Warn("Search provider disabled", "error", err)
	} else {
		provider = mcpProvider
		defer mcpProvider.Close()
	}

	var phone telephony.Client
	if restClient, err := telephony.NewRESTClient(cfg); err != nil {
		slog.Warn("Telephony disabled; /api/negotiate is unavailable", "error", err)
	} else {
		phone = restClient
	}

	geocoder := geo.NewMapboxGeocoder(cfg)
	pois := geo.NewMapboxPOIProvider(cfg)
	store := session.NewStore(cfg.SessionCapacity)

	coord := coordinator.New(
		cfg,
		store,
		gateway,
		agent.NewScopingAgent(gateway),
		agent.NewResearchAgent(provider, gateway, cfg.AllowedDomains),
		agent.NewMappingAgent(geocoder),
		agent.NewLocalDiscoveryAgent(pois),
		agent.NewCommunityAgent(provider, gateway),
		agent.NewNegotiationAgent(provider, gateway, phone),
	)

	httpServer := api.NewServer(cfg, coord)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ListenPort
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("HomeScout started successfully", "session_capacity", cfg.SessionCapacity)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
