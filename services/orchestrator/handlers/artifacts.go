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
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GhostCutAI/GhostLocal/services/artifacts"
)

// GetArtifact returns the full text of a stored artifact, typically to
// show a complete response after the inline copy was truncated. The
// store rejects names that would escape the artifact directory.
func GetArtifact(store *artifacts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		content, err := store.Read(name)
		if err != nil {
			switch {
			case errors.Is(err, artifacts.ErrInvalidFilename):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, fs.ErrNotExist):
				c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"filename": name, "content": content})
	}
}
