package quran

import (
	"context"
	"encoding/json"
	"fmt"

	"finitefield.org/quran-web/internal/backend"
)

const juzMappingsEndpoint = "juzs/mappings"

// HTTPJuzSource fetches the mapping from the content API.
type HTTPJuzSource struct {
	client *backend.Client
}

// NewHTTPJuzSource wraps a content API client.
func NewHTTPJuzSource(client *backend.Client) *HTTPJuzSource {
	return &HTTPJuzSource{client: client}
}

// AllJuzMappings issues GET juzs/mappings. The payload is either the bare mapping
// or wrapped as {"juzMappings": {...}}.
func (s *HTTPJuzSource) AllJuzMappings(ctx context.Context) (JuzMapping, error) {
	var body map[string]json.RawMessage
	if err := s.client.GetJSON(ctx, juzMappingsEndpoint, "", &body); err != nil {
		return nil, err
	}
	if wrapped, ok := body["juzMappings"]; ok {
		body = nil
		if err := json.Unmarshal(wrapped, &body); err != nil {
			return nil, fmt.Errorf("quran: decode juz mappings: %w", err)
		}
	}
	raw := make(map[string]map[string]string, len(body))
	for id, chapters := range body {
		var m map[string]string
		if err := json.Unmarshal(chapters, &m); err != nil {
			return nil, fmt.Errorf("quran: decode juz %s: %w", id, err)
		}
		raw[id] = m
	}
	return ParseJuzMapping(raw)
}
