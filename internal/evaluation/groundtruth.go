package evaluation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidGroundTruth wraps ground-truth documents that fail validation.
var ErrInvalidGroundTruth = errors.New("invalid ground truth")

// GroundTruth lists the expected headings and, per persona, the sections
// that should be ranked as relevant.
type GroundTruth struct {
	Headings []ExpectedHeading   `json:"headings"`
	Personas map[string][]Ranked `json:"personas"`
}

type ExpectedHeading struct {
	Text string `json:"text"`
}

// HeadingTexts returns the expected heading texts in file order.
func (g GroundTruth) HeadingTexts() []string {
	out := make([]string, len(g.Headings))
	for i, h := range g.Headings {
		out[i] = h.Text
	}
	return out
}

const groundTruthSchema = `{
  "type": "object",
  "properties": {
    "headings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text"],
        "properties": {"text": {"type": "string"}}
      }
    },
    "personas": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {
          "type": "object",
          "anyOf": [{"required": ["id"]}, {"required": ["content"]}],
          "properties": {
            "id": {"type": "string"},
            "content": {"type": "string"}
          }
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("groundtruth.json", bytes.NewReader([]byte(groundTruthSchema))); err != nil {
		return nil, fmt.Errorf("load ground truth schema: %w", err)
	}
	return compiler.Compile("groundtruth.json")
})

// ParseGroundTruth validates and decodes a ground-truth document.
func ParseGroundTruth(data []byte) (GroundTruth, error) {
	schema, err := compiledSchema()
	if err != nil {
		return GroundTruth{}, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return GroundTruth{}, fmt.Errorf("%w: %v", ErrInvalidGroundTruth, err)
	}
	if err := schema.Validate(doc); err != nil {
		return GroundTruth{}, fmt.Errorf("%w: %v", ErrInvalidGroundTruth, err)
	}

	var gt GroundTruth
	if err := json.Unmarshal(data, &gt); err != nil {
		return GroundTruth{}, fmt.Errorf("%w: %v", ErrInvalidGroundTruth, err)
	}
	return gt, nil
}

// LoadGroundTruth reads and validates the ground-truth file at path.
func LoadGroundTruth(path string) (GroundTruth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GroundTruth{}, fmt.Errorf("read ground truth: %w", err)
	}
	return ParseGroundTruth(data)
}
