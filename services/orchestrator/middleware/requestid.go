// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDKey is the context key for the per-request identifier.
const requestIDKey = "ghostcut_request_id"

// RequestIDHeader is the header the id is read from and echoed into.
const RequestIDHeader = "X-Request-ID"

// GetRequestID retrieves the request id injected by RequestID.
// Returns the empty string when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(requestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// RequestID creates a middleware that gives every request a stable
// identifier. A client-supplied X-Request-ID header is honored so the
// desktop UI can correlate its own logs; otherwise a fresh UUID is
// minted. The id is stored in the context and echoed in the response
// header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)

		c.Next()
	}
}
