// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tullmanai/cascade/services/corpus"
	"github.com/tullmanai/cascade/services/llm"
	"github.com/tullmanai/cascade/services/persona"
)

var (
	serveConfigPath string
	serveDebug      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the persona answer server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config.yaml", "Path to the YAML config file")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging and Gin debug mode")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	if serveDebug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := persona.LoadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// W3C TraceContext propagation so upstream callers can correlate spans.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	store := corpus.NewStore(cfg.CorpusFile)
	if err := store.Watch(); err != nil {
		slog.Warn("Corpus file watch unavailable, relying on explicit reloads",
			slog.String("path", cfg.CorpusFile),
			slog.String("error", err.Error()),
		)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Corpus watcher close failed", slog.String("error", err.Error()))
		}
	}()

	gen := buildGenerator(cfg)
	svc := persona.NewService(cfg, store, gen)
	handlers := persona.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("tullman-cascade"))
	if serveDebug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	persona.RegisterRoutes(router.Group("/"), handlers)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting cascade server",
			slog.String("address", cfg.ListenAddr),
			slog.Int("corpus_rows", store.Len()),
			slog.Bool("generation", gen != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		slog.Info("Shutting down cascade server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildGenerator wires provider clients from the environment into the
// model-fallback adapter. Missing keys degrade to curated-only mode
// rather than failing startup.
func buildGenerator(cfg persona.Config) persona.Generator {
	clients := make(map[string]llm.ChatClient)

	if openai, err := llm.NewOpenAIClient(); err == nil {
		clients[llm.ProviderOpenAI] = openai
	} else {
		slog.Warn("OpenAI client unavailable", slog.String("error", err.Error()))
	}
	if anthropic, err := llm.NewAnthropicClient(); err == nil {
		clients[llm.ProviderAnthropic] = anthropic
	} else {
		slog.Warn("Anthropic client unavailable", slog.String("error", err.Error()))
	}

	if len(clients) == 0 {
		slog.Warn("No generation providers configured; running curated-only")
		return nil
	}

	defaultProvider := llm.ProviderOpenAI
	if _, ok := clients[defaultProvider]; !ok {
		defaultProvider = llm.ProviderAnthropic
	}

	adapter, err := llm.NewAdapter(clients, defaultProvider, llm.AdapterConfig{
		Models:            cfg.Generation.Models,
		Temperature:       cfg.Generation.Temperature,
		AttemptTimeout:    cfg.Generation.AttemptTimeout,
		RequestsPerMinute: cfg.Generation.RequestsPerMinute,
	})
	if err != nil {
		slog.Warn("Generation adapter unavailable; running curated-only",
			slog.String("error", err.Error()))
		return nil
	}
	return adapter
}
