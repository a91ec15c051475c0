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

// Package monitor polls for loans past their due date. It only reports:
// defaulting a loan stays an explicit operator action.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"credshield-go/internal/metrics"
	"credshield-go/internal/models"

	"go.uber.org/zap"
)

// OverdueSource lists active loans whose next due time is before asOf
type OverdueSource interface {
	OverdueLoans(ctx context.Context, asOf time.Time) ([]models.OverdueLoan, error)
}

// Config contains configuration for OverdueMonitor
type Config struct {
	Source          OverdueSource
	PollingInterval time.Duration
	Clock           func() time.Time
}

// OverdueMonitor periodically reports overdue installments
type OverdueMonitor struct {
	source          OverdueSource
	pollingInterval time.Duration
	clock           func() time.Time

	// loan id -> first time it was seen overdue
	reported map[int64]time.Time
	mutex    sync.Mutex

	stopChan  chan struct{}
	doneChan  chan struct{}
	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewOverdueMonitor creates a new monitor
func NewOverdueMonitor(cfg Config) (*OverdueMonitor, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("overdue source is required")
	}
	if cfg.PollingInterval <= 0 {
		return nil, fmt.Errorf("polling interval must be positive, got %s", cfg.PollingInterval)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &OverdueMonitor{
		source:          cfg.Source,
		pollingInterval: cfg.PollingInterval,
		clock:           clock,
		reported:        make(map[int64]time.Time),
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}, nil
}

// Start runs one poll immediately and then polls on every tick until Stop or ctx is done.
// Later calls are no-ops.
func (m *OverdueMonitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		zap.L().Info("Starting overdue monitor", zap.Duration("polling_interval", m.pollingInterval))
		m.started.Store(true)
		go m.pollLoop(ctx)
	})
}

// Stop gracefully stops the monitor
func (m *OverdueMonitor) Stop() {
	m.stopOnce.Do(func() {
		zap.L().Info("Stopping overdue monitor")
		close(m.stopChan)
	})
	if !m.started.Load() {
		return
	}
	<-m.doneChan
	zap.L().Info("Overdue monitor stopped")
}

func (m *OverdueMonitor) pollLoop(ctx context.Context) {
	defer close(m.doneChan)

	ticker := time.NewTicker(m.pollingInterval)
	defer ticker.Stop()

	m.poll(ctx)

	for {
		select {
		case <-ticker.C:
			m.poll(ctx)
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *OverdueMonitor) poll(ctx context.Context) {
	if _, err := m.Poll(ctx); err != nil {
		zap.L().Error("Failed to poll overdue loans", zap.Error(err))
	}
}

// Poll lists overdue loans once, logs them and updates the overdue gauge.
// A loan is logged at warn level the first time it is seen overdue and at
// debug level afterwards; loans that are no longer overdue are forgotten.
func (m *OverdueMonitor) Poll(ctx context.Context) ([]models.OverdueLoan, error) {
	now := m.clock().UTC()
	overdue, err := m.source.OverdueLoans(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}

	metrics.OverdueLoans.Set(float64(len(overdue)))

	m.mutex.Lock()
	defer m.mutex.Unlock()

	current := make(map[int64]time.Time, len(overdue))
	for _, o := range overdue {
		fields := []zap.Field{
			zap.String("borrower", o.Loan.Borrower.Hex()),
			zap.Int64("loan_id", o.Loan.Id),
			zap.Int64("days_overdue", o.OverdueDays),
			zap.Time("due_at", o.Loan.NextDueAt),
			zap.String("remaining", o.Loan.RemainingAmount.String()),
		}
		if first, seen := m.reported[o.Loan.Id]; seen {
			current[o.Loan.Id] = first
			zap.L().Debug("Loan still overdue", fields...)
			continue
		}
		current[o.Loan.Id] = now
		zap.L().Warn("Loan overdue", fields...)
	}
	m.reported = current

	zap.L().Debug("Overdue poll complete", zap.Int("overdue", len(overdue)))
	return overdue, nil
}

// Reported returns the ids of loans currently known to be overdue.
func (m *OverdueMonitor) Reported() map[int64]time.Time {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make(map[int64]time.Time, len(m.reported))
	for id, at := range m.reported {
		out[id] = at
	}
	return out
}
