// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/MimiFromParis/agoa-sentinel/internal/directory"
	"github.com/MimiFromParis/agoa-sentinel/internal/logging"
	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// BreakerTransport wraps a transport in a circuit breaker so a flapping
// delivery endpoint stops being hammered. An open circuit surfaces as a
// transient failure, which leaves the event eligible for the next run.
type BreakerTransport struct {
	inner Transport
	cb    *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerTransport wraps inner with a circuit breaker. The breaker
// opens after 5 consecutive transient failures and probes again after
// 60 seconds.
func NewBreakerTransport(inner Transport) *BreakerTransport {
	settings := gobreaker.Settings{
		Name:    inner.Name() + "-transport",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Permanent rejections are the endpoint working as
			// intended; only transient failures count against it.
			return err == nil || !models.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("transport circuit breaker state change")
		},
	}
	return &BreakerTransport{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Name implements Transport.
func (t *BreakerTransport) Name() string { return t.inner.Name() }

// Send implements Transport.
func (t *BreakerTransport) Send(ctx context.Context, addr directory.Address, msg Message) error {
	_, err := t.cb.Execute(func() (struct{}, error) {
		return struct{}{}, t.inner.Send(ctx, addr, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return models.Transient(err)
	}
	return err
}
