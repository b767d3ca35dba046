// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines interfaces for enterprise functionality.
//
// This package provides extension points that allow GhostCut Enterprise
// to add capabilities without modifying the core GhostLocal codebase.
// The open source version uses no-op defaults for all interfaces.
//
// # Design Philosophy
//
// GhostLocal is designed as a fully functional local editor daemon that
// works offline without any external dependencies. Enterprise features
// are implemented by providing concrete implementations of these
// interfaces and injecting them via ServiceOptions.
//
// # Extension Categories
//
// The package is organized by domain:
//
//   - auth.go: Authentication (AuthProvider)
//   - audit.go: Durable interaction auditing (InteractionAuditor)
//   - filter.go: Instruction transformation and PII redaction
//     (InstructionFilter)
//
// # Usage in GhostLocal (Open Source)
//
// The open source version uses no-op implementations, except for the
// auditor, which services/history implements on local storage:
//
//	opts := extensions.DefaultOptions()
//	opts.Auditor = historyStore
//
// # Thread Safety
//
// All interface implementations must be safe for concurrent use.
// Multiple goroutines may call methods simultaneously.
package extensions

// ServiceOptions groups all extension points for service configuration.
//
// Pass this to service constructors to enable enterprise features.
// All fields are optional; nil values are replaced with no-op defaults
// when DefaultOptions() is called or when services check for nil.
type ServiceOptions struct {
	// AuthProvider validates authentication tokens.
	// Default: NopAuthProvider (always returns the local user)
	AuthProvider AuthProvider

	// Auditor records edit interactions durably.
	// Default: NopInteractionAuditor (discards all records)
	Auditor InteractionAuditor

	// InstructionFilter transforms user instructions before they reach
	// the model. Default: NopInstructionFilter (passes through unchanged)
	InstructionFilter InstructionFilter
}

// DefaultOptions returns ServiceOptions with no-op defaults.
//
// This is the configuration used by the open source version when no
// local auditor is wired in: all operations are allowed, no audit
// trail, no filtering.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider:      &NopAuthProvider{},
		Auditor:           &NopInteractionAuditor{},
		InstructionFilter: &NopInstructionFilter{},
	}
}

// WithAuth returns a copy of opts with the given AuthProvider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAuditor returns a copy of opts with the given InteractionAuditor.
func (opts ServiceOptions) WithAuditor(auditor InteractionAuditor) ServiceOptions {
	opts.Auditor = auditor
	return opts
}

// WithInstructionFilter returns a copy of opts with the given filter.
func (opts ServiceOptions) WithInstructionFilter(filter InstructionFilter) ServiceOptions {
	opts.InstructionFilter = filter
	return opts
}
