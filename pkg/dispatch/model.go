package dispatch

import (
	"encoding/json"
	"net/url"
)

// Paths whose handling requires a model identifier and capable-backend
// selection. Everything else is mirrored to the default backend.
var defaultModelEndpoints = []string{
	"/api/generate",
	"/api/chat",
	"/generate",
	"/chat",
}

// ExtractModel pulls the routing key out of a request: the "model" field of
// a JSON body when one parses, the "model" query parameter otherwise.
//
// Extraction fails softly. An unparseable body or an absent field yields the
// empty string, not an error; whether a missing model is fatal is endpoint
// policy, decided by the caller.
func ExtractModel(body []byte, query url.Values) string {
	if len(body) > 0 {
		var doc map[string]any
		if err := json.Unmarshal(body, &doc); err == nil {
			if model, ok := doc["model"].(string); ok && model != "" {
				return model
			}
		}
	}
	return query.Get("model")
}
