// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// promptResult is the subset of the prompt response the CLI displays.
type promptResult struct {
	Text             string `json:"text"`
	LatencyMs        int64  `json:"latency_ms"`
	Truncated        bool   `json:"truncated"`
	ArtifactFilename string `json:"artifact_filename"`
}

// applyOutcome is the daemon's response to a successful apply.
type applyOutcome struct {
	Message          string                 `json:"message"`
	State            timeline.TimelineState `json:"state"`
	ArtifactFilename string                 `json:"artifact_filename"`
}

// runEdit drives the full prompt-then-apply round trip: send the
// instruction, show the plan the model produced, confirm, and apply it
// against the timeline.
func runEdit(cmd *cobra.Command, args []string) {
	base := getServerBaseURL(cmd)

	instruction := ""
	if len(args) > 0 {
		instruction = strings.TrimSpace(args[0])
	} else if !stdinIsTerminal() {
		// Piped invocation: read the instruction from stdin.
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("Error reading instruction from stdin: %v", err)
		}
		instruction = strings.TrimSpace(string(data))
	}
	if instruction == "" {
		log.Fatalf("Error: no instruction given. Pass one as an argument or pipe it on stdin.")
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	autoApply, _ := cmd.Flags().GetBool("yes")

	fmt.Println("Sending instruction to the model...")
	var result promptResult
	payload := map[string]string{"instruction": instruction}
	if err := postJSON(base, "/v1/assistant/prompt", payload, &result); err != nil {
		log.Fatalf("Error generating plan: %v", err)
	}

	fmt.Printf("\nModel response (%.1fs):\n%s\n\n", float64(result.LatencyMs)/1000.0, result.Text)

	// The inline text is cut at the size limit; the artifact holds the
	// whole response, which is what must reach the parser.
	rawPlan := result.Text
	if result.Truncated {
		fmt.Println("Note: the response was truncated to fit the size limit.")
		if result.ArtifactFilename != "" {
			var artifact struct {
				Content string `json:"content"`
			}
			if err := getJSON(base, "/v1/artifacts/"+result.ArtifactFilename, &artifact); err != nil {
				log.Fatalf("Error fetching full response artifact: %v", err)
			}
			rawPlan = artifact.Content
		}
	}
	if dryRun {
		return
	}

	if !autoApply {
		if !stdinIsTerminal() {
			log.Fatalf("Error: stdin is not a terminal. Pass --yes to apply without confirmation.")
		}
		if !confirm("Apply this plan? [y/N]: ") {
			fmt.Println("Aborted.")
			return
		}
	}

	var outcome applyOutcome
	applyPayload := map[string]string{"raw_response": rawPlan}
	if err := postJSON(base, "/v1/assistant/apply", applyPayload, &outcome); err != nil {
		log.Fatalf("Error applying plan: %v", err)
	}

	fmt.Println(outcome.Message)
	printTimeline(outcome.State)
}

// stdinIsTerminal reports whether stdin is attached to a terminal, so
// piped and CI invocations can be told apart from interactive ones.
func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// confirm asks a yes/no question on the terminal.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
