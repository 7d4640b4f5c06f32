package securehide

import (
	"encoding/json"
	"strings"
)

// Mode is the rule used to combine the configured actions.
type Mode string

// Supported modes
const (
	ModeAny Mode = "any"
	ModeAll Mode = "all"
)

// Action is a viewer action that can satisfy a requirement.
type Action string

// Supported actions, in canonical order
const (
	ActionLike  Action = "like"
	ActionReply Action = "reply"
)

// DefaultActions is substituted whenever stored actions are missing or unusable.
var DefaultActions = []Action{ActionLike, ActionReply}

// Requirement is the decoded per-post unlock requirement.
// Actions is never empty and holds no duplicates.
type Requirement struct {
	Mode    Mode
	Actions []Action
}

// Block is one hidden region of a post, in document order.
type Block struct {
	Index int    `json:"index"`
	HTML  string `json:"html"`
}

// Metadata is the hidden-content blob stored on a post by the content extractor.
type Metadata struct {
	Version     int
	Requirement Requirement
	Blocks      []Block
}

// ParseMetadata decodes a stored metadata blob. It reports false when the blob
// carries nothing to evaluate: empty, not JSON, not an object, or an empty object.
func ParseMetadata(blob []byte) (*Metadata, bool) {
	if len(blob) == 0 {
		return nil, false
	}

	var data map[string]interface{}
	if err := json.Unmarshal(blob, &data); err != nil {
		return nil, false
	}

	req, ok := DecodeRequirement(data)
	if !ok {
		return nil, false
	}

	meta := &Metadata{
		Requirement: req,
		Blocks:      parseBlocks(data["blocks"]),
	}
	if v, ok := data["version"].(float64); ok {
		meta.Version = int(v)
	}
	return meta, true
}

// DecodeRequirement normalizes loosely typed stored data into a Requirement.
// Malformed mode or action values fall back to defaults; only a nil or empty
// mapping is rejected.
func DecodeRequirement(data map[string]interface{}) (Requirement, bool) {
	if len(data) == 0 {
		return Requirement{}, false
	}

	return Requirement{
		Mode:    parseMode(data["mode"]),
		Actions: parseActions(data["actions"]),
	}, true
}

// Has reports whether the requirement lists the given action.
func (r Requirement) Has(action Action) bool {
	for _, a := range r.Actions {
		if a == action {
			return true
		}
	}
	return false
}

func parseMode(raw interface{}) Mode {
	s, _ := raw.(string)
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAll:
		return ModeAll
	default:
		return ModeAny
	}
}

func parseActions(raw interface{}) []Action {
	var tokens []string
	switch v := raw.(type) {
	case string:
		tokens = strings.Split(v, ",")
	case []string:
		tokens = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				tokens = append(tokens, s)
			}
		}
	}

	seen := make(map[Action]bool, len(tokens))
	actions := make([]Action, 0, len(DefaultActions))
	for _, token := range tokens {
		action := Action(strings.ToLower(strings.TrimSpace(token)))
		if !isKnownAction(action) || seen[action] {
			continue
		}
		seen[action] = true
		actions = append(actions, action)
	}

	if len(actions) == 0 {
		return append([]Action(nil), DefaultActions...)
	}
	return actions
}

func isKnownAction(action Action) bool {
	for _, a := range DefaultActions {
		if a == action {
			return true
		}
	}
	return false
}

func parseBlocks(raw interface{}) []Block {
	items, _ := raw.([]interface{})
	blocks := make([]Block, 0, len(items))
	for i, item := range items {
		html := ""
		if m, ok := item.(map[string]interface{}); ok {
			html, _ = m["html"].(string)
		}
		blocks = append(blocks, Block{Index: i, HTML: html})
	}
	return blocks
}
