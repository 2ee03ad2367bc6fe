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

// Package scene turns the raw analysis payload returned by the video
// understanding service into structured Scene records.
//
// The payload shape is not stable: depending on the deployment it may be a
// bare string, a JSON envelope with the text under one of several keys, or
// a streaming aggregate. The extraction strategy is layered accordingly:
//
//  1. Locate the analysis text by probing the payload's known shapes.
//  2. Ask an LLM to reshape the text into a JSON array of scenes.
//  3. If that fails, parse the text against the exact scene-breakdown
//     format the analysis prompt requested.
//  4. If that fails, run a single greedy pattern across the whole text.
//  5. As a last resort, split on anything that looks like a numbered scene
//     heading and salvage whatever fields are recognizable.
//
// Extraction is total: every tier degrades to the next and the worst case
// is an empty slice, never an error. Malformed numbers become zero values
// and "None"/"N/A" placeholder fields become empty strings.
package scene

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/cliplens/video-analysis/internal/core/model"
)

// FormatterSystemPrompt instructs the reshaping model to emit nothing but
// the JSON array.
const FormatterSystemPrompt = "You are a JSON formatter. Return only valid JSON arrays with no markdown, no code fences, and no commentary."

// DefaultJSONPrompt is the reshaping instruction used when no template is
// configured.
const DefaultJSONPrompt = `Convert the following video scene analysis into a JSON array. Each element must have exactly these fields: sceneNumber (number), startTime (number, seconds), endTime (number, seconds), visualDescription (string), onScreenText (string, "" if None or N/A), audioSummary (string), primaryAction (string), emotionalTone (string), purpose (string). Return only the JSON array.

Scene analysis:
`

// maxSalvagedScenes caps the last-resort tier so a degenerate payload full
// of stray numbering cannot fabricate an unbounded scene list.
const maxSalvagedScenes = 20

// Formatter is the LLM used by the JSON-assisted tier. A nil Formatter
// skips straight to the regex tiers.
type Formatter interface {
	Complete(ctx context.Context, system string, prompt string, temperature float32, maxTokens int32) (string, error)
}

// Extractor converts raw analysis payloads into scenes.
type Extractor struct {
	formatter  Formatter
	jsonPrompt string
}

// NewExtractor builds an extractor. jsonPrompt overrides the default
// reshaping instruction when non-empty; formatter may be nil.
func NewExtractor(formatter Formatter, jsonPrompt string) *Extractor {
	if jsonPrompt == "" {
		jsonPrompt = DefaultJSONPrompt
	}
	return &Extractor{formatter: formatter, jsonPrompt: jsonPrompt}
}

// Extract runs the tiered extraction over a raw payload. It never fails:
// an unusable payload yields an empty slice.
func (e *Extractor) Extract(ctx context.Context, payload []byte) []*model.Scene {
	text := NormalizeAnalysisText(payload)
	if text == "" {
		return []*model.Scene{}
	}

	if e.formatter != nil {
		if scenes := e.extractWithFormatter(ctx, text); len(scenes) > 0 {
			return scenes
		}
	}

	return ParseScenesFromText(text)
}

// NormalizeAnalysisText locates the analysis text inside the service's
// response payload. It probes the known envelope shapes in priority order
// and falls back to the raw payload when none match.
func NormalizeAnalysisText(payload []byte) string {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return ""
	}

	// Not JSON at all: the payload is the text.
	if !gjson.Valid(raw) {
		return raw
	}

	doc := gjson.Parse(raw)
	if doc.Type == gjson.String {
		return strings.TrimSpace(doc.String())
	}
	if !doc.IsObject() {
		return raw
	}

	if data := doc.Get("data"); data.Exists() {
		if data.Type == gjson.String {
			return strings.TrimSpace(data.String())
		}
		for _, path := range []string{"data.data", "data.response", "data.message"} {
			if v := doc.Get(path); v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
				return strings.TrimSpace(v.String())
			}
		}
		// A data envelope with no recognizable text field: hand its raw
		// serialization to the parsers, which can still find the format
		// markers inside it.
		return strings.TrimSpace(data.Raw)
	}

	for _, path := range []string{"response", "message", "text"} {
		if v := doc.Get(path); v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
			return strings.TrimSpace(v.String())
		}
	}

	return raw
}

// jsonArrayPattern pulls the first JSON array out of a model response that
// may carry prose or fences around it.
var jsonArrayPattern = regexp.MustCompile(`\[[\s\S]*\]`)

// extractWithFormatter asks the formatter model to reshape the text into a
// JSON array of scenes. Any failure (call error, no array, bad JSON, empty
// array) falls through to the regex tiers.
func (e *Extractor) extractWithFormatter(ctx context.Context, text string) []*model.Scene {
	out, err := e.formatter.Complete(ctx, FormatterSystemPrompt, e.jsonPrompt+text, 0.1, 2000)
	if err != nil {
		slog.Warn("scene formatter call failed, falling back to text parsing", "error", err)
		return nil
	}

	match := jsonArrayPattern.FindString(out)
	if match == "" {
		return nil
	}

	var scenes []*model.Scene
	if err := json.Unmarshal([]byte(match), &scenes); err != nil {
		slog.Warn("scene formatter returned unparseable JSON, falling back", "error", err)
		return nil
	}
	if len(scenes) == 0 {
		return nil
	}

	for _, s := range scenes {
		s.OnScreenText = cleanPlaceholder(s.OnScreenText)
	}
	return scenes
}

// Field patterns matching the exact format requested by the scene
// breakdown prompt.
var (
	sceneHeadingPattern  = regexp.MustCompile(`(?i)\d+\.\s*Scene Number:`)
	sceneNumberPattern   = regexp.MustCompile(`(?i)Scene Number:\s*(\d+)`)
	startTimePattern     = regexp.MustCompile(`(?i)Start Time:\s*(\d+(?:\.\d+)?)s?`)
	endTimePattern       = regexp.MustCompile(`(?i)End Time:\s*(\d+(?:\.\d+)?)s?`)
	visualPattern        = regexp.MustCompile(`(?i)What is Visually Happening:\s*([^\n]+)`)
	onScreenTextPattern  = regexp.MustCompile(`(?i)On-Screen Text/Captions:\s*([^\n]+)`)
	audioSummaryPattern  = regexp.MustCompile(`(?i)Audio/Speech Summary:\s*([^\n]+)`)
	primaryActionPattern = regexp.MustCompile(`(?i)Primary Action or Hook:\s*([^\n]+)`)
	emotionalTonePattern = regexp.MustCompile(`(?i)Emotional Tone:\s*([^\n]+)`)
	purposePattern       = regexp.MustCompile(`(?i)Purpose of the Scene:\s*([^\n]+)`)
)

// greedyScenePattern is the single-pass fallback: one pattern spanning all
// nine fields of a scene entry, applied repeatedly across the text.
var greedyScenePattern = regexp.MustCompile(
	`(?i)(\d+)\.\s*Scene Number:\s*(\d+)[\s\S]*?` +
		`Start Time:\s*(\d+(?:\.\d+)?)s?[\s\S]*?` +
		`End Time:\s*(\d+(?:\.\d+)?)s?[\s\S]*?` +
		`What is Visually Happening:\s*([^\n]+)[\s\S]*?` +
		`On-Screen Text/Captions:\s*([^\n]+)[\s\S]*?` +
		`Audio/Speech Summary:\s*([^\n]+)[\s\S]*?` +
		`Primary Action or Hook:\s*([^\n]+)[\s\S]*?` +
		`Emotional Tone:\s*([^\n]+)[\s\S]*?` +
		`Purpose of the Scene:\s*([^\n]+)`)

// Loose patterns for the salvage tier, which tolerates drifted labels.
var (
	salvageHeadingPattern = regexp.MustCompile(`(?i)\d+\.?\s*Scene`)
	salvageStartPattern   = regexp.MustCompile(`(?i)Start Time[^0-9\n]*(\d+(?:\.\d+)?)`)
	salvageEndPattern     = regexp.MustCompile(`(?i)End Time[^0-9\n]*(\d+(?:\.\d+)?)`)
	salvageVisualPattern  = regexp.MustCompile(`(?i)Visually Happening[^:\n]*:\s*([^\n]+)`)
	salvageTextPattern    = regexp.MustCompile(`(?i)On-Screen Text[^:\n]*:\s*([^\n]+)`)
	salvageAudioPattern   = regexp.MustCompile(`(?i)Audio[^:\n]*:\s*([^\n]+)`)
	salvageActionPattern  = regexp.MustCompile(`(?i)Primary Action[^:\n]*:\s*([^\n]+)`)
	salvageTonePattern    = regexp.MustCompile(`(?i)Emotional Tone[^:\n]*:\s*([^\n]+)`)
	salvagePurposePattern = regexp.MustCompile(`(?i)Purpose[^:\n]*:\s*([^\n]+)`)
)

// ParseScenesFromText parses the plain-text scene breakdown without model
// assistance. It tries the structured block format first, then the greedy
// single-pass pattern, then the numbered-heading salvage tier.
func ParseScenesFromText(text string) []*model.Scene {
	if scenes := parseStructuredBlocks(text); len(scenes) > 0 {
		return scenes
	}
	if scenes := parseGreedy(text); len(scenes) > 0 {
		return scenes
	}
	return parseSalvage(text)
}

// parseStructuredBlocks splits the text at each numbered scene heading and
// parses the expected fields out of every block. Blocks missing the scene
// number are dropped; missing fields default to zero values.
func parseStructuredBlocks(text string) []*model.Scene {
	headings := sceneHeadingPattern.FindAllStringIndex(text, -1)
	if len(headings) == 0 {
		return nil
	}

	scenes := make([]*model.Scene, 0, len(headings))
	for i, loc := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		block := text[loc[0]:end]

		numMatch := sceneNumberPattern.FindStringSubmatch(block)
		if numMatch == nil {
			continue
		}
		num, _ := strconv.Atoi(numMatch[1])

		scenes = append(scenes, &model.Scene{
			SceneNumber:       num,
			StartTime:         firstFloat(startTimePattern, block),
			EndTime:           firstFloat(endTimePattern, block),
			VisualDescription: cleanPlaceholder(firstString(visualPattern, block)),
			OnScreenText:      cleanPlaceholder(firstString(onScreenTextPattern, block)),
			AudioSummary:      cleanPlaceholder(firstString(audioSummaryPattern, block)),
			PrimaryAction:     cleanPlaceholder(firstString(primaryActionPattern, block)),
			EmotionalTone:     cleanPlaceholder(firstString(emotionalTonePattern, block)),
			Purpose:           cleanPlaceholder(firstString(purposePattern, block)),
		})
	}
	if len(scenes) == 0 {
		return nil
	}
	return scenes
}

// parseGreedy applies one pattern spanning all nine fields repeatedly
// across the text. It catches payloads whose block boundaries drifted but
// whose field labels survived.
func parseGreedy(text string) []*model.Scene {
	matches := greedyScenePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	scenes := make([]*model.Scene, 0, len(matches))
	for _, m := range matches {
		num, _ := strconv.Atoi(m[2])
		start, _ := strconv.ParseFloat(m[3], 64)
		end, _ := strconv.ParseFloat(m[4], 64)
		scenes = append(scenes, &model.Scene{
			SceneNumber:       num,
			StartTime:         start,
			EndTime:           end,
			VisualDescription: cleanPlaceholder(m[5]),
			OnScreenText:      cleanPlaceholder(m[6]),
			AudioSummary:      cleanPlaceholder(m[7]),
			PrimaryAction:     cleanPlaceholder(m[8]),
			EmotionalTone:     cleanPlaceholder(m[9]),
			Purpose:           cleanPlaceholder(m[10]),
		})
	}
	return scenes
}

// parseSalvage is the last-resort tier. It splits on anything resembling a
// numbered scene heading, keeps only blocks that mention both a start and
// an end time, and renumbers the result sequentially from 1.
func parseSalvage(text string) []*model.Scene {
	headings := salvageHeadingPattern.FindAllStringIndex(text, -1)
	if len(headings) == 0 {
		return []*model.Scene{}
	}

	scenes := make([]*model.Scene, 0, len(headings))
	for i, loc := range headings {
		if len(scenes) >= maxSalvagedScenes {
			break
		}
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		block := text[loc[0]:end]

		if !salvageStartPattern.MatchString(block) || !salvageEndPattern.MatchString(block) {
			continue
		}

		scenes = append(scenes, &model.Scene{
			SceneNumber:       len(scenes) + 1,
			StartTime:         firstFloat(salvageStartPattern, block),
			EndTime:           firstFloat(salvageEndPattern, block),
			VisualDescription: firstString(salvageVisualPattern, block),
			OnScreenText:      cleanPlaceholder(firstString(salvageTextPattern, block)),
			AudioSummary:      firstString(salvageAudioPattern, block),
			PrimaryAction:     firstString(salvageActionPattern, block),
			EmotionalTone:     firstString(salvageTonePattern, block),
			Purpose:           firstString(salvagePurposePattern, block),
		})
	}
	return scenes
}

// firstString returns the first capture group of the pattern in the text,
// trimmed, or "" when there is no match.
func firstString(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// firstFloat returns the first capture group parsed as a float, or 0 on a
// missing match or malformed number.
func firstFloat(re *regexp.Regexp, text string) float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// cleanPlaceholder trims a field value and maps the "None"/"N/A"
// placeholders the breakdown format uses for absent text to "".
func cleanPlaceholder(in string) string {
	out := strings.TrimSpace(in)
	out = strings.Trim(out, "[]")
	switch strings.ToLower(strings.TrimSpace(out)) {
	case "none", "n/a":
		return ""
	}
	return strings.TrimSpace(out)
}
