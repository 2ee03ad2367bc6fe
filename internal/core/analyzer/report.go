// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package analyzer

import (
	"regexp"
	"strings"
)

// Report is the structured form of an analyzer's model output.
type Report struct {
	Rating      string
	Feedback    string
	Suggestions []string
}

var (
	ratingPattern    = regexp.MustCompile(`(?i)rating[:\-\s]*([^\n]+)`)
	reasoningPattern = regexp.MustCompile(`(?i)reasoning[:\-\s]*([^\n]+)`)
	bulletPrefix     = regexp.MustCompile(`^[-•*]\s*`)
)

// ParseReport extracts the Rating / Reasoning / Suggestions structure from
// a model response. The parser is tolerant: a response that does not
// follow the format at all is kept whole as the feedback, so no model
// output is ever discarded.
func ParseReport(raw string) Report {
	text := strings.TrimSpace(raw)
	report := Report{}

	if m := ratingPattern.FindStringSubmatch(text); m != nil {
		report.Rating = strings.TrimSpace(m[1])
	}
	if m := reasoningPattern.FindStringSubmatch(text); m != nil {
		report.Feedback = strings.TrimSpace(m[1])
	}

	// Suggestions are the bullet lines following a "Suggestions" heading.
	lines := strings.Split(text, "\n")
	inSuggestions := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "suggestions") {
			inSuggestions = true
			continue
		}
		if !inSuggestions {
			continue
		}
		if bulletPrefix.MatchString(trimmed) {
			item := strings.TrimSpace(bulletPrefix.ReplaceAllString(trimmed, ""))
			if item != "" {
				report.Suggestions = append(report.Suggestions, item)
			}
		} else if trimmed != "" {
			// A non-bullet line ends the suggestions block.
			inSuggestions = false
		}
	}

	// A response that ignored the format entirely still carries useful
	// signal: keep the whole text as the feedback.
	if report.Rating == "" && report.Feedback == "" {
		report.Feedback = text
	}
	return report
}
