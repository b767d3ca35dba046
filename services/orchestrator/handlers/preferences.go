// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GhostCutAI/GhostLocal/services/orchestrator/datatypes"
	"github.com/GhostCutAI/GhostLocal/services/preferences"
)

// GetPreferences returns the full preference document, interaction
// history included.
func GetPreferences(mgr *preferences.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, mgr.Preferences())
	}
}

// UpdatePreferences replaces the general settings block. Interaction
// history is append-only and not settable through this endpoint.
func UpdatePreferences(mgr *preferences.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdatePreferencesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := mgr.UpdateGeneral(req.ToGeneral()); err != nil {
			slog.Error("failed to persist preferences", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, mgr.Preferences())
	}
}
