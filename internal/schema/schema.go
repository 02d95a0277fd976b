// Package schema validates the shape of inbound JSON documents: API request
// bodies and score input bundles. Field values stay lenient; only the
// structure is enforced here.
package schema

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

// AuditRequest is the body of POST /audits.
const AuditRequest = `{
  "type": "object",
  "properties": {
    "business_name": {"type": "string", "minLength": 1, "maxLength": 200},
    "city": {"type": "string", "minLength": 1, "maxLength": 100},
    "phone": {"type": "string", "maxLength": 20},
    "category": {"type": "string", "maxLength": 100},
    "place_id": {"type": "string", "maxLength": 200},
    "claims": {"type": "array", "items": {"type": "string"}, "maxItems": 20}
  },
  "anyOf": [
    {"required": ["business_name", "city"]},
    {"required": ["place_id"]}
  ]
}`

// ScoreInput is the signal bundle accepted by the score command. Numeric
// fields may arrive as numbers or numeric strings, so only objects and arrays
// are pinned down.
const ScoreInput = `{
  "type": "object",
  "required": ["business"],
  "properties": {
    "business": {
      "type": "object",
      "properties": {
        "name": {"type": ["string", "null"]},
        "photos": {"type": ["array", "null"]}
      }
    },
    "competitors": {"type": ["array", "null"], "items": {"type": "object"}},
    "ai_mentions": {"type": ["object", "null"]},
    "ai_perception": {"type": ["object", "null"]},
    "sentiment": {"type": ["object", "null"]},
    "visual": {"type": ["object", "null"]},
    "skip_competitive": {"type": "boolean"}
  }
}`

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "schema: " + strings.Join(e.Problems, "; ")
}

// Validate checks doc against the JSON schema. A document that breaks the
// schema yields a *ValidationError; malformed JSON or a broken schema yields
// a wrapped error.
func Validate(schema string, doc []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return eris.Wrap(err, "schema: validate")
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		problems[i] = desc.String()
	}
	return &ValidationError{Problems: problems}
}
