// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy_engine

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/GhostCutAI/GhostLocal/services/policy_engine/enforcement"
)

// Classification names emitted by the embedded rule file. Callers use
// these to route findings (block vs annotate) without string literals.
const (
	ClassPromptInjection       = "prompt_injection"
	ClassUnsupportedCapability = "unsupported_capability"

	// ClassClean is returned by ClassifyInstruction when nothing matches.
	ClassClean = "clean"
)

// PolicyEngine screens user instructions before they reach the model.
// It holds the compiled rules and provides methods to scan text against them.
type PolicyEngine struct {
	Classifiers []Classification
}

// NewPolicyEngine loads the rule file embedded via the enforcement
// package, compiles every pattern, and sorts classifications by
// priority. It errors when the embedded YAML is malformed or a regex
// does not compile; both mean the binary shipped with a broken rule
// file and the daemon should not start.
func NewPolicyEngine() (*PolicyEngine, error) {
	var policyFile InstructionPolicyFile
	if err := yaml.Unmarshal(enforcement.InstructionPolicyPatterns, &policyFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded policy file: %w", err)
	}

	if err := policyFile.compile(); err != nil {
		return nil, fmt.Errorf("failed to compile policy rules: %w", err)
	}

	policyFile.sortByPriority()

	return &PolicyEngine{Classifiers: policyFile.ClassificationPatterns}, nil
}

// ClassifyInstruction performs a quick check on an instruction.
//
// It iterates through classifications by priority and returns the name
// of the *first* classification that matches. If no rule matches, it
// returns ClassClean.
//
// This is the fast path for request routing; use ScanInstruction when
// the caller needs pattern-level detail for the response.
func (e *PolicyEngine) ClassifyInstruction(instruction string) string {
	data := []byte(instruction)
	for _, classifier := range e.Classifiers {
		for _, pattern := range classifier.Patterns {
			if pattern.compiled.Match(data) {
				return classifier.Name
			}
		}
	}
	return ClassClean
}

// ScanInstruction performs a comprehensive audit of an instruction.
//
// It splits the text into lines and checks every line against every
// pattern in the engine, capturing the matched text, line number, and
// rule metadata for each hit. Findings arrive ordered by classification
// priority within each line.
//
// The orchestrator uses the result two ways: high-confidence
// prompt_injection findings reject the request outright, and
// unsupported_capability findings are returned to the user instead of
// burning a model round trip on an instruction the engine cannot honor.
func (e *PolicyEngine) ScanInstruction(instruction string) []Finding {
	var findings []Finding
	lines := strings.Split(instruction, "\n")
	for lineNum, line := range lines {
		for _, classifier := range e.Classifiers {
			for _, pattern := range classifier.Patterns {
				match := pattern.compiled.FindString(line)
				if match != "" {
					finding := Finding{
						LineNumber:         lineNum + 1,
						MatchedContent:     strings.TrimSpace(match),
						ClassificationName: classifier.Name,
						PatternId:          pattern.Id,
						PatternDescription: pattern.Description,
						Confidence:         pattern.Confidence,
					}
					findings = append(findings, finding)
				}
			}
		}
	}
	return findings
}

// HasHighConfidenceInjection reports whether any finding is a
// prompt_injection hit with high confidence.
func HasHighConfidenceInjection(findings []Finding) bool {
	for _, f := range findings {
		if f.ClassificationName == ClassPromptInjection && f.Confidence == High {
			return true
		}
	}
	return false
}

// UnsupportedCapabilities returns the distinct capability descriptions
// matched in the findings, in first-seen order.
func UnsupportedCapabilities(findings []Finding) []string {
	var descriptions []string
	seen := make(map[string]bool)
	for _, f := range findings {
		if f.ClassificationName != ClassUnsupportedCapability || seen[f.PatternId] {
			continue
		}
		seen[f.PatternId] = true
		descriptions = append(descriptions, f.PatternDescription)
	}
	return descriptions
}
