package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errEmptyResponse = errors.New("empty response from model")

// parseObject decodes the model's response text into a JSON object. Anything
// else (malformed syntax, arrays, scalars, null) is an error, which callers
// treat as "the service produced nothing usable".
func parseObject(raw string) (map[string]any, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, errEmptyResponse
	}

	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parseObject: unmarshal JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("parseObject: trailing data after JSON value")
	}

	obj, ok := parsed.(map[string]any)
	if !ok || obj == nil {
		return nil, fmt.Errorf("parseObject: response is %T, want object", parsed)
	}
	return obj, nil
}

// cleanModelJSON strips a Markdown code fence around the response. Prose
// around the JSON is left in place and fails decoding.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
		if end := strings.LastIndex(s, "```"); end != -1 {
			s = strings.TrimSpace(s[:end])
		}
	}

	return s
}
