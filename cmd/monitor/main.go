/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credshield-go/internal/common"
	"credshield-go/internal/config"
	"credshield-go/internal/monitor"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	intervalFlag := flag.Duration("interval", cfg.Monitor.PollingInterval, "How often to check for overdue loans")
	metricsFlag := flag.String("metrics-addr", cfg.Monitor.MetricsAddr, "Prometheus listen address, empty to disable")
	flag.Parse()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if err := services.Credit.HealthCheck(ctx); err != nil {
		zap.L().Fatal("Health check failed", zap.Error(err))
	}

	m, err := monitor.NewOverdueMonitor(monitor.Config{
		Source:          services.Engine,
		PollingInterval: *intervalFlag,
	})
	if err != nil {
		zap.L().Fatal("Failed to create overdue monitor", zap.Error(err))
	}

	var server *http.Server
	if *metricsFlag != "" {
		server = newMetricsServer(*metricsFlag)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zap.L().Error("Metrics server stopped", zap.Error(err))
			}
		}()
		zap.L().Info("Serving metrics", zap.String("addr", *metricsFlag))
	}

	m.Start(ctx)
	zap.L().Info("Overdue monitor running",
		zap.Duration("interval", *intervalFlag),
		zap.String("operator", cfg.Lending.Operator.Hex()))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping monitor...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		m.Stop()
		if server != nil {
			if err := server.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("Metrics server shutdown failed", zap.Error(err))
			}
		}
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Monitor stopped gracefully", zap.Int("overdue_reported", len(m.Reported())))
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
