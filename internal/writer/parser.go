package writer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ekarat/bookwright/internal/llm"
	"github.com/ekarat/bookwright/pkg/types"
)

// Models rarely return bare JSON; replies tend to wrap the payload in
// prose. The parsers below cut the outermost JSON value out of the raw
// text and fall back to a best-effort plain-text reading where one
// exists.

// extractArray returns the outermost [...] span of raw, or "" when no
// array delimiters are present.
func extractArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// extractObject returns the outermost {...} span of raw, or "" when no
// object delimiters are present.
func extractObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

var listMarker = regexp.MustCompile(`^[-*\d.\s]+`)

// ParseOutline extracts an outline from a model reply. The reply is
// expected to contain a JSON array of {title, summary}; when the array
// cannot be parsed, non-empty lines are treated as bare titles with
// empty summaries, leading list markers stripped.
func ParseOutline(raw string) []types.OutlineItem {
	if jsonStr := extractArray(raw); jsonStr != "" {
		var items []types.OutlineItem
		if err := json.Unmarshal([]byte(jsonStr), &items); err == nil {
			return items
		}
	}

	var items []types.OutlineItem
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, types.OutlineItem{
			Title: listMarker.ReplaceAllString(line, ""),
		})
	}
	return items
}

// worldPayload matches the JSON shape requested by worldPrompt.
type worldPayload struct {
	Characters []characterPayload `json:"characters"`
	Locations  []types.Location   `json:"locations"`
	Rules      []string           `json:"rules"`
}

// characterPayload tolerates numeric ages in the reply.
type characterPayload struct {
	Name          string          `json:"name"`
	Age           json.RawMessage `json:"age"`
	Personality   string          `json:"personality"`
	Backstory     string          `json:"backstory"`
	Motivation    string          `json:"motivation"`
	Relationships []string        `json:"relationships"`
	Voice         string          `json:"voice"`
}

// ParseWorld extracts characters, locations, and rules from a model
// reply containing a JSON object.
func ParseWorld(raw string) (types.World, error) {
	objStr := extractObject(raw)
	if objStr == "" {
		return types.World{}, fmt.Errorf("%w: no JSON object in reply", llm.ErrMalformedResponse)
	}

	var payload worldPayload
	if err := json.Unmarshal([]byte(objStr), &payload); err != nil {
		return types.World{}, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	world := types.World{
		Locations: payload.Locations,
		Rules:     payload.Rules,
	}
	for _, c := range payload.Characters {
		world.Characters = append(world.Characters, types.Character{
			Name:          c.Name,
			Age:           rawToString(c.Age),
			Personality:   c.Personality,
			Backstory:     c.Backstory,
			Motivation:    c.Motivation,
			Relationships: c.Relationships,
			Voice:         c.Voice,
		})
	}
	return world, nil
}

// rawToString renders a JSON scalar as plain text, unquoting strings.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// ParseGlossary extracts glossary items from a model reply containing a
// JSON array of {term, definition}.
func ParseGlossary(raw string) ([]types.GlossaryItem, error) {
	arrStr := extractArray(raw)
	if arrStr == "" {
		return nil, fmt.Errorf("%w: no JSON array in reply", llm.ErrMalformedResponse)
	}

	var items []types.GlossaryItem
	if err := json.Unmarshal([]byte(arrStr), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}
	return items, nil
}

// blurbPayload matches the JSON shape requested by blurbPrompt.
type blurbPayload struct {
	Notes     []string `json:"notes"`
	BackCover string   `json:"backCover"`
	Short     string   `json:"short"`
}

// ParseBlurb extracts the final-review payload from a model reply.
func ParseBlurb(raw string) (types.Blurb, error) {
	objStr := extractObject(raw)
	if objStr == "" {
		return types.Blurb{}, fmt.Errorf("%w: no JSON object in reply", llm.ErrMalformedResponse)
	}

	var payload blurbPayload
	if err := json.Unmarshal([]byte(objStr), &payload); err != nil {
		return types.Blurb{}, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	return types.Blurb{
		Notes:     payload.Notes,
		BackCover: payload.BackCover,
		Short:     payload.Short,
	}, nil
}
