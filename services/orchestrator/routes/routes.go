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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/GhostCutAI/GhostLocal/pkg/extensions"
	"github.com/GhostCutAI/GhostLocal/services/artifacts"
	"github.com/GhostCutAI/GhostLocal/services/assistant"
	"github.com/GhostCutAI/GhostLocal/services/media"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/broadcast"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/handlers"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/middleware"
	"github.com/GhostCutAI/GhostLocal/services/preferences"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// Dependencies carries everything the route table wires into handlers.
type Dependencies struct {
	Engine    *timeline.Engine
	Media     *media.Engine
	MediaDirs media.Dirs
	Assistant *assistant.Assistant
	Artifacts *artifacts.Store
	Prefs     *preferences.Manager
	Hub       *broadcast.Hub
	Auth      extensions.AuthProvider
	Auditor   extensions.InteractionAuditor

	// Limiter bounds the assistant endpoints. Nil disables limiting.
	Limiter *rate.Limiter
}

// SetupRoutes registers the daemon's full route table.
//
// Health and metrics sit outside the versioned group so probes and
// scrapers need no credentials. Everything under /v1 passes the auth
// middleware; with the default NopAuthProvider that always resolves to
// the local user, so a bare install never sees a 401.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.Auth))
	{
		tl := v1.Group("/timeline")
		{
			tl.GET("", handlers.GetTimeline(deps.Engine))
			tl.POST("/clips", handlers.AddClip(deps.Engine))
			tl.POST("/import", handlers.ImportMedia(deps.Engine, deps.Media, deps.MediaDirs.Uploads))
			tl.POST("/seek", handlers.SeekTimeline(deps.Engine))
			tl.POST("/move", handlers.MoveClip(deps.Engine, deps.Prefs, deps.Auditor))
			tl.POST("/trim", handlers.TrimClip(deps.Engine, deps.Prefs, deps.Auditor))
			tl.POST("/render", handlers.RenderTimeline(deps.Engine, deps.Media, deps.MediaDirs.Exports))
		}

		// Assistant routes get the rate limiter: generation is the only
		// expensive surface, and a runaway UI retry loop can otherwise
		// stack up model calls.
		asst := v1.Group("/assistant")
		if deps.Limiter != nil {
			asst.Use(middleware.RateLimit(deps.Limiter))
		}
		{
			asst.POST("/prompt", handlers.HandlePrompt(deps.Assistant))
			asst.GET("/prompt/preview", handlers.HandlePromptPreview(deps.Assistant))
			asst.POST("/apply", handlers.HandleApplyPlan(deps.Assistant))
			asst.GET("/requests", handlers.ListActiveRequests(deps.Assistant))
			asst.DELETE("/requests/:id", handlers.HandleCancelRequest(deps.Assistant))
		}

		v1.GET("/artifacts/:name", handlers.GetArtifact(deps.Artifacts))
		v1.GET("/preferences", handlers.GetPreferences(deps.Prefs))
		v1.PUT("/preferences", handlers.UpdatePreferences(deps.Prefs))
		v1.GET("/history", handlers.GetHistory(deps.Auditor))
		v1.GET("/ws", handlers.HandleTimelineWebSocket(deps.Hub, deps.Engine))
	}
}
