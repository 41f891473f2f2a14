package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/xeipuuv/gojsonschema"
)

// ExportVersion is written into every export document. Imports with a newer
// major version are rejected.
const ExportVersion = "3.0.0"

// Document is the portable export format.
type Document struct {
	Version      string          `json:"version"`
	ExportDate   time.Time       `json:"exportDate"`
	ProfileCount int             `json:"profileCount"`
	Profiles     []Profile       `json:"profiles"`
	Settings     json.RawMessage `json:"settings,omitempty"`
}

const documentSchema = `{
	"type": "object",
	"required": ["profiles"],
	"properties": {
		"version": {"type": "string"},
		"exportDate": {"type": "string"},
		"profileCount": {"type": "integer", "minimum": 0},
		"settings": {"type": "object"},
		"profiles": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"id": {"type": ["string", "integer", "null"]},
					"name": {"type": "string", "minLength": 1},
					"color": {"type": "string"},
					"icon": {"type": "string"},
					"isDefault": {"type": "boolean"},
					"theme": {"type": "object"},
					"extensions": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["id", "enabled"],
							"properties": {
								"id": {"type": "string"},
								"enabled": {"type": "boolean"}
							}
						}
					}
				}
			}
		}
	}
}`

var documentSchemaLoader = gojsonschema.NewStringLoader(documentSchema)

// Export snapshots the full collection into a Document.
func (s *Store) Export(ctx context.Context) (Document, error) {
	all, err := s.All(ctx)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Version:      ExportVersion,
		ExportDate:   s.now(),
		ProfileCount: len(all),
		Profiles:     all,
	}, nil
}

// MarshalDocument renders doc as indented JSON.
func MarshalDocument(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling export: %w", err)
	}
	return append(data, '\n'), nil
}

// ParseDocument validates data against the export schema and decodes it.
// Every failure wraps ErrInvalidFormat.
func ParseDocument(data []byte) (Document, error) {
	result, err := gojsonschema.Validate(documentSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return Document{}, fmt.Errorf("%w: %s", ErrInvalidFormat, strings.Join(msgs, "; "))
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	if doc.Version != "" {
		v, err := semver.NewVersion(doc.Version)
		if err != nil {
			return Document{}, fmt.Errorf("%w: version %q: %v", ErrInvalidFormat, doc.Version, err)
		}
		supported := semver.MustParse(ExportVersion)
		if v.Major() > supported.Major() {
			return Document{}, fmt.Errorf("%w: version %s is newer than supported %s", ErrInvalidFormat, v, supported)
		}
	}
	return doc, nil
}

// Import replaces the whole collection with the profiles in data and returns
// the parsed document with its stored profiles.
func (s *Store) Import(ctx context.Context, data []byte) (Document, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return Document{}, err
	}
	stored, err := s.Replace(ctx, doc.Profiles)
	if err != nil {
		return Document{}, err
	}
	doc.Profiles = stored
	doc.ProfileCount = len(stored)
	return doc, nil
}
