package formatinfer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)```")

// decodeJSONObject tries, in order: a direct unmarshal of the whole text;
// a fenced ```json block; the first balanced {...} object found by brace
// counting; and a last-resort regex scan for a top-level object. Returns
// the decoded DTO and the name of the strategy that worked, for logging.
func decodeJSONObject(text string) (schemaDTO, string, error) {
	var dto schemaDTO

	if err := json.Unmarshal([]byte(text), &dto); err == nil {
		return dto, "direct", nil
	}

	if m := fencedJSONRe.FindStringSubmatch(text); len(m) == 2 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &dto); err == nil {
			return dto, "fenced", nil
		}
	}

	if obj := firstBalancedObject(text); obj != "" {
		if err := json.Unmarshal([]byte(obj), &dto); err == nil {
			return dto, "balanced-scan", nil
		}
	}

	if m := regexp.MustCompile(`(?s)\{.*\}`).FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &dto); err == nil {
			return dto, "regex", nil
		}
	}

	return schemaDTO{}, "", fmt.Errorf("no JSON decoding strategy matched")
}

// firstBalancedObject scans for the first brace-balanced {...} substring,
// correctly skipping braces inside string literals.
func firstBalancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
