// AGOA Sentinel - Rule-Based Compliance Alerting
// Copyright 2026 MimiFromParis
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MimiFromParis/agoa-sentinel

// Package directory resolves identity identifiers to concrete delivery
// addresses. The directory is an injectable collaborator, swappable per
// deployment and per test, never process-wide mutable state.
package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/MimiFromParis/agoa-sentinel/internal/models"
)

// Address is a concrete delivery destination for a transport, for
// example a chat channel, a member ID or a webhook target.
type Address struct {
	// Transport names the transport that understands this address
	// (for example "slack" or "webhook").
	Transport string

	// Target is the transport-specific destination.
	Target string

	// DisplayName is used in rendered messages, optional.
	DisplayName string
}

// Directory looks up delivery addresses for identities.
type Directory interface {
	// ResolveAddress returns the delivery address for an identity, or
	// an error wrapping models.ErrAddressNotFound when the identity has
	// no directory entry.
	ResolveAddress(ctx context.Context, identity string) (Address, error)
}

// Static is a fixed identity-to-address mapping built from
// configuration at process start.
type Static struct {
	mu      sync.RWMutex
	entries map[string]Address
}

// NewStatic builds a static directory from the given entries.
func NewStatic(entries map[string]Address) *Static {
	copied := make(map[string]Address, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Static{entries: copied}
}

// ResolveAddress implements Directory.
func (d *Static) ResolveAddress(_ context.Context, identity string) (Address, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	addr, ok := d.entries[identity]
	if !ok {
		return Address{}, fmt.Errorf("identity %q: %w", identity, models.ErrAddressNotFound)
	}
	return addr, nil
}

// Has reports whether the identity has a directory entry.
func (d *Static) Has(identity string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[identity]
	return ok
}
