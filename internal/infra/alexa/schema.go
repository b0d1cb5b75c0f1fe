package alexa

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// envelopeSchema covers the parts of the request envelope the skill relies on.
const envelopeSchema = `{
  "type": "object",
  "required": ["version", "request"],
  "properties": {
    "version": {"type": "string"},
    "session": {
      "type": "object",
      "required": ["sessionId"],
      "properties": {
        "sessionId": {"type": "string"},
        "new": {"type": "boolean"},
        "attributes": {"type": "object"},
        "user": {
          "type": "object",
          "properties": {
            "userId": {"type": "string"},
            "accessToken": {"type": "string"}
          }
        }
      }
    },
    "request": {
      "type": "object",
      "required": ["type", "requestId"],
      "properties": {
        "type": {"type": "string", "minLength": 1},
        "requestId": {"type": "string"},
        "intent": {
          "type": "object",
          "required": ["name"],
          "properties": {
            "name": {"type": "string", "minLength": 1},
            "slots": {
              "type": "object",
              "additionalProperties": {
                "type": "object",
                "properties": {
                  "name": {"type": "string"},
                  "value": {"type": "string"}
                }
              }
            }
          }
        }
      },
      "if": {"properties": {"type": {"const": "IntentRequest"}}},
      "then": {"required": ["intent"]}
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("envelope.json", envelopeSchema)

// decodeEnvelope validates body against the envelope schema and decodes it.
func decodeEnvelope(body []byte) (*RequestEnvelope, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing envelope: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validating envelope: %w", err)
	}

	var env RequestEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	return &env, nil
}
