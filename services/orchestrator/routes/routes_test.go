// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GhostCutAI/GhostLocal/pkg/extensions"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// newRoutedEngine registers the full route table with nil collaborators.
// Registration only builds handler closures, so nothing is dereferenced
// until a request actually hits a handler.
func newRoutedEngine(limiter *rate.Limiter) *gin.Engine {
	router := gin.New()
	SetupRoutes(router, Dependencies{
		Engine:  timeline.NewEngine(),
		Auth:    &extensions.NopAuthProvider{},
		Limiter: limiter,
	})
	return router
}

// ============================================================================
// Route Table Tests
// ============================================================================

func TestSetupRoutes_CoreRoutesRegistered(t *testing.T) {
	router := newRoutedEngine(nil)

	coreRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"GET", "/v1/timeline"},
		{"POST", "/v1/timeline/clips"},
		{"POST", "/v1/timeline/import"},
		{"POST", "/v1/timeline/seek"},
		{"POST", "/v1/timeline/move"},
		{"POST", "/v1/timeline/trim"},
		{"POST", "/v1/timeline/render"},
		{"POST", "/v1/assistant/prompt"},
		{"GET", "/v1/assistant/prompt/preview"},
		{"POST", "/v1/assistant/apply"},
		{"GET", "/v1/assistant/requests"},
		{"DELETE", "/v1/assistant/requests/:id"},
		{"GET", "/v1/artifacts/:name"},
		{"GET", "/v1/preferences"},
		{"PUT", "/v1/preferences"},
		{"GET", "/v1/history"},
		{"GET", "/v1/ws"},
	}

	routes := router.Routes()
	for _, expected := range coreRoutes {
		found := false
		for _, r := range routes {
			if r.Method == expected.method && r.Path == expected.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected route %s %s not found", expected.method, expected.path)
		}
	}
}

func TestSetupRoutes_HealthEndpoint(t *testing.T) {
	router := newRoutedEngine(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health endpoint returned %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	router := newRoutedEngine(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	// Prometheus metrics endpoint should return 200
	if w.Code != http.StatusOK {
		t.Errorf("Metrics endpoint returned %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("Content-Type") == "" {
		t.Error("Metrics endpoint should return a Content-Type header")
	}
}

func TestSetupRoutes_TimelineServedThroughAuth(t *testing.T) {
	// The Nop auth provider resolves every request to the local user,
	// so a bare install reaches the timeline without credentials.
	router := newRoutedEngine(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/timeline", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Timeline endpoint returned %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSetupRoutes_RateLimiterBoundsAssistantOnly(t *testing.T) {
	// A zero-burst limiter rejects every assistant call immediately but
	// must leave the timeline surface untouched.
	router := newRoutedEngine(rate.NewLimiter(rate.Limit(1), 0))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/assistant/requests", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Assistant endpoint returned %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/timeline", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Timeline endpoint returned %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSetupRoutes_V1GroupExists(t *testing.T) {
	router := newRoutedEngine(nil)

	v1Routes := 0
	for _, r := range router.Routes() {
		if len(r.Path) > 3 && r.Path[:3] == "/v1" {
			v1Routes++
		}
	}
	if v1Routes < 15 {
		t.Errorf("Expected at least 15 /v1 routes, got %d", v1Routes)
	}
}
