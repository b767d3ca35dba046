// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request types for the preferences endpoints.
package datatypes

import (
	"github.com/go-playground/validator/v10"

	"github.com/GhostCutAI/GhostLocal/services/preferences"
)

// prefsValidate is the validator instance for preferences datatypes.
var prefsValidate = validator.New()

// UpdatePreferencesRequest replaces the general preference block. The
// interaction history is append-only and not writable over HTTP.
type UpdatePreferencesRequest struct {
	DefaultTransitionDuration float64 `json:"default_transition_duration" validate:"gte=0"`
	AutoRippleEdits           bool    `json:"auto_ripple_edits"`
}

// Validate validates the UpdatePreferencesRequest fields.
func (r *UpdatePreferencesRequest) Validate() error {
	return prefsValidate.Struct(r)
}

// ToGeneral converts the request into the preference manager's general
// block.
func (r *UpdatePreferencesRequest) ToGeneral() preferences.GeneralPreferences {
	return preferences.GeneralPreferences{
		DefaultTransitionDuration: r.DefaultTransitionDuration,
		AutoRippleEdits:           r.AutoRippleEdits,
	}
}
