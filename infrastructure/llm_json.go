package infrastructure

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"govres/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CleanJSONResponse strips markdown fences and surrounding prose from a
// model reply that is supposed to be a JSON object.
func CleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end != -1 && end > start {
		content = content[start : end+1]
	}

	return strings.TrimSpace(content)
}

// firstJSONValue returns the first complete JSON object or array embedded in
// raw. Braces in prose after the value do not extend it.
func firstJSONValue(raw string) string {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' && raw[i] != '[' {
			continue
		}
		var value json.RawMessage
		if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&value); err == nil {
			return string(value)
		}
	}
	return ""
}

// DecodeJSON parses a model reply into T and validates it. When the cleaned
// reply does not parse, the first balanced JSON value in it is tried.
func DecodeJSON[T any](raw string) (T, error) {
	var out T
	cleaned := CleanJSONResponse(raw)
	err := json.Unmarshal([]byte(cleaned), &out)
	if err != nil {
		match := firstJSONValue(raw)
		if match == "" {
			return out, fmt.Errorf("%w: %v (response: %.200s)", domain.ErrLLMResponse, err, raw)
		}
		out = *new(T)
		if err := json.Unmarshal([]byte(match), &out); err != nil {
			return out, fmt.Errorf("%w: %v (response: %.200s)", domain.ErrLLMResponse, err, raw)
		}
	}
	if reflect.Indirect(reflect.ValueOf(out)).Kind() != reflect.Struct {
		return out, nil
	}
	if err := validate.Struct(out); err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrLLMResponse, err)
	}
	return out, nil
}
