package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// parseJSON decodes a model reply into dst, tolerating markdown fences and
// prose around the JSON object.
func parseJSON(raw string, dst any) error {
	result := strings.TrimSpace(raw)
	result = strings.TrimPrefix(result, "```json")
	result = strings.TrimPrefix(result, "```")
	result = strings.TrimSuffix(result, "```")
	result = strings.TrimSpace(result)

	err := json.Unmarshal([]byte(result), dst)
	if err == nil {
		return nil
	}
	if match := jsonObject.FindString(result); match != "" && match != result {
		if err2 := json.Unmarshal([]byte(match), dst); err2 == nil {
			return nil
		}
	}
	return fmt.Errorf("%w (raw: %s)", err, truncate(raw, 200))
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
