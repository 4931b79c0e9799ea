// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

package services

import (
	"context"
	"fmt"
)

// Lifecycle matches the Start/Stop pattern shared by the trigger
// scheduler and the dataset refresher.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
}

// LifecycleService wraps a Start/Stop component as a supervised
// service:
//  1. Start(ctx) begins the component's internal loop
//  2. Serve blocks until the context is canceled
//  3. Stop() shuts the component down gracefully
type LifecycleService struct {
	component Lifecycle
	name      string
}

// NewLifecycleService creates a service wrapper around a Start/Stop
// component. The name identifies the service in supervisor logs.
func NewLifecycleService(component Lifecycle, name string) *LifecycleService {
	return &LifecycleService{
		component: component,
		name:      name,
	}
}

// Serve implements suture.Service. If Start fails, the error is
// returned immediately and suture restarts the service under its
// backoff policy.
func (s *LifecycleService) Serve(ctx context.Context) error {
	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	if err := s.component.Stop(); err != nil {
		return fmt.Errorf("%s stop failed: %w", s.name, err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for supervisor log messages.
func (s *LifecycleService) String() string {
	return s.name
}
