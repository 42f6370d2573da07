package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talgya/cosmic-lottery/internal/sim"
)

const suggestSystemPrompt = `You are the tuning oracle for a 3D particle lottery: a swarm of glowing particles swirls inside a box until a fair draw picks the winners. The operator gives you a mood, and you translate it into simulation parameters.

Respond with ONLY a single JSON object (no markdown, no prose outside the JSON). Every field is optional; omit what the mood does not touch:
{
  "comment": "one in-character sentence describing the feel you tuned for",
  "count": <int, 1-20000>,
  "speed_factor": <float, 0.0001-1>,
  "damping": <float, 0.5-0.9999>,
  "min_speed": <float, 0-10>,
  "pull_gain": <float, 0-1>,
  "orbital_gain": <float, 0-1>,
  "jitter_gain": <float, 0-1>,
  "expand_gain": <float, 0-1>,
  "turbulence_gain": <float, 0-1>,
  "hue": <float, 0-360>,
  "saturation": <float, 0-100>,
  "lightness": <float, 0-100>
}

Stay inside the documented ranges. A "calm" mood means low gains and cool hues; a "frantic" mood means high jitter and turbulence; "cosmic" leans violet with strong orbital motion. Never change anything the mood does not call for.`

// suggestion is the parameter payload the oracle may return. Pointer
// fields distinguish "unset" from zero.
type suggestion struct {
	Comment        string   `json:"comment"`
	Count          *int     `json:"count"`
	SpeedFactor    *float64 `json:"speed_factor"`
	Damping        *float64 `json:"damping"`
	MinSpeed       *float64 `json:"min_speed"`
	PullGain       *float64 `json:"pull_gain"`
	OrbitalGain    *float64 `json:"orbital_gain"`
	JitterGain     *float64 `json:"jitter_gain"`
	ExpandGain     *float64 `json:"expand_gain"`
	TurbulenceGain *float64 `json:"turbulence_gain"`
	Hue            *float64 `json:"hue"`
	Saturation     *float64 `json:"saturation"`
	Lightness      *float64 `json:"lightness"`
}

// SuggestConfig asks the oracle to tune the simulation for a mood.
// The suggestion is applied over the current config and the merged
// result is validated as a whole: an out-of-range or malformed
// response is rejected in full and the error reported. The caller's
// live config is never partially mutated.
func SuggestConfig(c *Client, current sim.Config, mood string) (sim.Config, string, error) {
	prompt := fmt.Sprintf(
		"Current parameters:\n%s\n\nOperator mood: %q\n\nRespond with the JSON object.",
		describeConfig(current), mood,
	)

	resp, err := c.complete(suggestSystemPrompt, prompt, 512)
	if err != nil {
		return sim.Config{}, "", err
	}

	return ApplySuggestion(current, resp)
}

// ApplySuggestion parses a raw oracle response and merges it over the
// current config, validating the merged result as a whole. Exposed so
// the acceptance path is testable without a live API.
func ApplySuggestion(current sim.Config, raw string) (sim.Config, string, error) {
	sug, err := parseSuggestion(raw)
	if err != nil {
		return sim.Config{}, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	merged := merge(current, sug)
	if err := merged.Validate(); err != nil {
		return sim.Config{}, "", fmt.Errorf("oracle suggestion rejected: %w", err)
	}
	return merged, sug.Comment, nil
}

func describeConfig(cfg sim.Config) string {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func parseSuggestion(resp string) (*suggestion, error) {
	// Strip markdown fences if the model wraps them anyway, then find
	// the JSON object.
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")

	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var sug suggestion
	if err := json.Unmarshal([]byte(resp[start:end+1]), &sug); err != nil {
		return nil, fmt.Errorf("parse suggestion: %w", err)
	}
	return &sug, nil
}

func merge(cfg sim.Config, sug *suggestion) sim.Config {
	if sug.Count != nil {
		cfg.Count = *sug.Count
	}
	setf := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setf(&cfg.SpeedFactor, sug.SpeedFactor)
	setf(&cfg.Damping, sug.Damping)
	setf(&cfg.MinSpeed, sug.MinSpeed)
	setf(&cfg.PullGain, sug.PullGain)
	setf(&cfg.OrbitalGain, sug.OrbitalGain)
	setf(&cfg.JitterGain, sug.JitterGain)
	setf(&cfg.ExpandGain, sug.ExpandGain)
	setf(&cfg.TurbulenceGain, sug.TurbulenceGain)
	setf(&cfg.Hue, sug.Hue)
	setf(&cfg.Saturation, sug.Saturation)
	setf(&cfg.Lightness, sug.Lightness)
	return cfg
}
