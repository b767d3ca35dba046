// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package enforcement carries the screening rule file into the binary.
// Baking instruction_policy.yaml in with go:embed means the rules ship
// with the executable and cannot be edited on the host filesystem
// without rebuilding.
package enforcement

import (
	_ "embed"
)

// InstructionPolicyPatterns is the raw instruction_policy.yaml, ready
// for yaml.Unmarshal into policy_engine.InstructionPolicyFile.
//
//go:embed instruction_policy.yaml
var InstructionPolicyPatterns []byte
