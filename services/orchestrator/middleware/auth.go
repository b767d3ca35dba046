// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware holds the Gin middleware the daemon mounts on its
// API groups: bearer authentication, request IDs, request logging, and
// rate limiting. Auth is the extension seam: the provider interface
// lives in pkg/extensions so managed builds can plug in a real identity
// check while the open source build runs on NopAuthProvider.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GhostCutAI/GhostLocal/pkg/extensions"
)

// authInfoKey is the Gin context key AuthMiddleware stores the caller's
// AuthInfo under.
const authInfoKey = "ghostcut_auth_info"

// SetAuthInfo attaches the caller's identity to the request context.
// AuthMiddleware calls this once Validate succeeds.
func SetAuthInfo(c *gin.Context, info *extensions.AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo returns the identity AuthMiddleware stored, or nil when
// the request never went through auth or the value has the wrong type.
func GetAuthInfo(c *gin.Context) *extensions.AuthInfo {
	if info, exists := c.Get(authInfoKey); exists {
		if authInfo, ok := info.(*extensions.AuthInfo); ok {
			return authInfo
		}
	}
	return nil
}

// AuthMiddleware authenticates every request on the group against the
// given provider. The token comes from the Authorization header; a
// missing or malformed header validates the empty string, which
// NopAuthProvider maps to local-user with admin rights. A bare desktop
// install therefore never sees a 401; only a real provider can reject.
func AuthMiddleware(provider extensions.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)

		authInfo, err := provider.Validate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, extensions.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "unauthorized",
				})
				return
			}
			// Fail closed when the provider itself breaks.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication failed",
			})
			return
		}

		SetAuthInfo(c, authInfo)

		c.Next()
	}
}

// extractBearerToken pulls the token out of "Authorization: Bearer
// <token>". The scheme match is case-insensitive per RFC 7235. A
// missing header or a different scheme yields the empty string.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
