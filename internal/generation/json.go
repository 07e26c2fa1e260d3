package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// jsonObjectPattern is greedy: it spans from the first '{' to the last '}'
// so a nested object comes back whole.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSONObject returns the outermost {...} span of a model answer.
func ExtractJSONObject(text string) (string, error) {
	span := jsonObjectPattern.FindString(text)
	if span == "" {
		return "", ErrNoJSON
	}
	return span, nil
}

// DecodeJSON extracts the JSON object from text and unmarshals it into v.
// Syntactically valid JSON of the wrong shape is accepted as far as
// encoding/json accepts it.
func DecodeJSON(text string, v any) error {
	span, err := ExtractJSONObject(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
