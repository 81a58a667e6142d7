package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// First "{" to last "}" so prose or code fences around the object are dropped.
	jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
	trailingComma     = regexp.MustCompile(`,(\s*[}\]])`)
	smartQuotes       = strings.NewReplacer("“", `"`, "”", `"`)
)

// JSONValidationError is returned when a reply holds no usable JSON object.
type JSONValidationError struct {
	Original string
	Cleaned  string
	Message  string
}

func (e *JSONValidationError) Error() string { return e.Message }

// extractJSONObject pulls the outermost object out of a model reply and
// repairs the mistakes models commonly make (trailing commas, typographic quotes).
func extractJSONObject(reply string) (string, error) {
	obj := jsonObjectPattern.FindString(reply)
	if obj == "" {
		return "", &JSONValidationError{Original: reply, Message: "reply contains no JSON object"}
	}
	if json.Valid([]byte(obj)) {
		return obj, nil
	}
	fixed := trailingComma.ReplaceAllString(smartQuotes.Replace(obj), "$1")
	if !json.Valid([]byte(fixed)) {
		return "", &JSONValidationError{Original: reply, Cleaned: fixed, Message: "cleaned reply is still not valid JSON"}
	}
	return fixed, nil
}

// decodeLists reads the named string arrays from a reply. A missing or null
// key yields an empty list and a bare string becomes a one-item list.
func decodeLists(reply string, keys ...string) (map[string][]string, error) {
	obj, err := extractJSONObject(reply)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, &JSONValidationError{Original: reply, Cleaned: obj, Message: fmt.Sprintf("reply is not a JSON object: %v", err)}
	}
	out := make(map[string][]string, len(keys))
	for _, k := range keys {
		out[k] = toStringList(raw[k])
	}
	return out, nil
}

func toStringList(msg json.RawMessage) []string {
	if len(msg) == 0 {
		return []string{}
	}
	var list []any
	if err := json.Unmarshal(msg, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			switch t := v.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					out = append(out, s)
				}
			case nil:
			default:
				out = append(out, fmt.Sprint(t))
			}
		}
		return out
	}
	var single string
	if err := json.Unmarshal(msg, &single); err == nil && strings.TrimSpace(single) != "" {
		return []string{strings.TrimSpace(single)}
	}
	return []string{}
}
