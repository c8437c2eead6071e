package resolver

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\n?(.*?)\n?[ \t]*```")

var errNoJSONObject = errors.New("no JSON object found in response")

// ExtractJSON finds the product object in free-form model output. Candidates
// are tried in order: the whole text, the first fenced code block, then the
// span from the first '{' to the last '}'.
func ExtractJSON(text string) ([]byte, error) {
	candidates := []string{strings.TrimSpace(text)}
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}

	for _, c := range candidates {
		if isJSONObject(c) {
			return []byte(c), nil
		}
	}
	return nil, errNoJSONObject
}

func isJSONObject(s string) bool {
	b := bytes.TrimSpace([]byte(s))
	return len(b) > 0 && b[0] == '{' && json.Valid(b)
}
