// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when authentication fails.
// Enterprise implementations should wrap this error with additional context.
//
// Example:
//
//	if !validToken {
//	    return nil, fmt.Errorf("invalid token format: %w", extensions.ErrUnauthorized)
//	}
var ErrUnauthorized = errors.New("unauthorized")

// LocalUserID is the identity used when no auth provider is configured.
// GhostLocal is a single-user desktop daemon; everything it records is
// attributed to this user unless enterprise auth says otherwise.
const LocalUserID = "local-user"

// AuthInfo contains identity information returned after successful
// authentication.
//
// Required fields (always populated):
//   - UserID: Unique identifier for the user
//
// Optional fields (may be empty):
//   - Email: User's email address
//   - Roles: List of roles/groups the user belongs to
type AuthInfo struct {
	// UserID is the unique identifier for the authenticated user.
	// This is the only required field and must never be empty.
	UserID string

	// Email is the user's email address.
	// May be empty if not provided by the auth provider.
	Email string

	// Roles contains the user's role memberships.
	// Common roles: "admin", "editor", "viewer"
	Roles []string
}

// HasRole checks if the user has a specific role.
//
//	if !authInfo.HasRole("editor") {
//	    return ErrUnauthorized
//	}
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// # Open Source Behavior
//
// The default NopAuthProvider always returns a valid local user with
// editor privileges. This lets the daemon serve its loopback API
// without any authentication infrastructure.
//
// # Enterprise Implementation
//
// Enterprise versions validate tokens against identity providers like
// Okta, Auth0, or Azure AD and populate AuthInfo from verified claims.
type AuthProvider interface {
	// Validate checks if the token is valid and returns the user's
	// identity.
	//
	// Inputs:
	//   - ctx: Context for cancellation and timeout control.
	//   - token: The credential to validate. May be empty.
	//
	// Outputs:
	//   - *AuthInfo: Identity on success.
	//   - error: ErrUnauthorized (possibly wrapped) on failure.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider accepts every request as the local user.
//
// This is the open source default for a single-user loopback daemon.
type NopAuthProvider struct{}

// Validate ignores the token and returns the local user with full
// privileges.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: LocalUserID,
		Roles:  []string{"admin", "editor"},
	}, nil
}
