package analyst

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// ErrNoJSON is returned when a model reply carries no parseable JSON.
var ErrNoJSON = eris.New("analyst: no json in response")

// ExtractJSON pulls the JSON document out of a model reply. It accepts a bare
// document, a fenced ```json block, or a document surrounded by prose.
func ExtractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)

	if i := strings.Index(s, "```"); i >= 0 {
		body := s[i+3:]
		body = strings.TrimPrefix(body, "json")
		body = strings.TrimPrefix(body, "JSON")
		if j := strings.Index(body, "```"); j >= 0 {
			body = body[:j]
		}
		body = strings.TrimSpace(body)
		if gjson.Valid(body) {
			return body, nil
		}
	}

	if gjson.Valid(s) {
		return s, nil
	}

	// Widest span between the first opener and its last matching closer.
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start >= 0 && end > start {
			candidate := s[start : end+1]
			if gjson.Valid(candidate) {
				return candidate, nil
			}
		}
	}

	return "", ErrNoJSON
}
