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
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// ConfidenceLevel grades how certain a pattern match is. Only High
// findings hard-block a request; Medium and Low annotate it.
type ConfidenceLevel string

const (
	Low    ConfidenceLevel = "low"
	Medium ConfidenceLevel = "medium"
	High   ConfidenceLevel = "high"
)

// InstructionPolicyFile mirrors the embedded instruction_policy.yaml.
// The file groups regex rules into named classifications, each with a
// priority that decides scan order.
type InstructionPolicyFile struct {
	ClassificationPatterns []Classification `yaml:"classifications"`
}

// Classification is one named rule group, e.g. prompt_injection.
type Classification struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Priority    int       `yaml:"priority"`
	Patterns    []Pattern `yaml:"patterns"`
}

// Pattern is a single rule. Regex stays in source form in the YAML;
// compile populates compiled before the engine ever scans.
type Pattern struct {
	Id          string          `yaml:"id"`
	Description string          `yaml:"description"`
	Regex       string          `yaml:"regex"`
	Confidence  ConfidenceLevel `yaml:"confidence"`
	compiled    *regexp.Regexp  `yaml:"-"`
}

// UnmarshalYAML rejects confidence values outside the known set so a
// typo in the rule file fails at startup, not at scan time.
func (c *ConfidenceLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	incoming := ConfidenceLevel(s)
	switch incoming {
	case High, Medium, Low:
		*c = incoming
		return nil
	default:
		return fmt.Errorf("invalid value for Confidence: %q", incoming)
	}
}

// compile turns every rule's regex source into a matcher. One bad
// pattern fails the whole file; a partially compiled rule set must
// never scan.
func (p *InstructionPolicyFile) compile() error {
	for i := range p.ClassificationPatterns {
		classification := &p.ClassificationPatterns[i]
		for j := range classification.Patterns {
			pattern := &classification.Patterns[j]
			re, err := regexp.Compile(pattern.Regex)
			if err != nil {
				return fmt.Errorf("pattern %s (%q): %w", pattern.Id, pattern.Regex, err)
			}
			pattern.compiled = re
		}
	}
	return nil
}

// sortByPriority orders classifications highest priority first, so
// ClassifyInstruction reports the most severe matching class.
func (p *InstructionPolicyFile) sortByPriority() {
	sort.Slice(p.ClassificationPatterns, func(i, j int) bool {
		return p.ClassificationPatterns[i].Priority > p.ClassificationPatterns[j].Priority
	})
}

// Finding describes a single pattern match inside a user instruction.
type Finding struct {
	LineNumber         int             `json:"line_number"`
	MatchedContent     string          `json:"matched_content"`
	ClassificationName string          `json:"classification_name"`
	PatternId          string          `json:"pattern_id"`
	PatternDescription string          `json:"pattern_description"`
	Confidence         ConfidenceLevel `json:"confidence"`
}
