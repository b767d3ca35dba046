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
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit creates a middleware that applies a shared token bucket to
// the routes it guards. The assistant endpoints sit behind it: a local
// LLM handles one generation well and a misbehaving UI loop can
// otherwise queue minutes of work. Requests over the limit get 429
// without consuming a generation slot.
//
// The limiter is shared across all requests, not per-client. This is a
// single-user desktop service; the bucket protects the machine, not
// fairness between tenants.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, retry shortly",
			})
			return
		}
		c.Next()
	}
}
