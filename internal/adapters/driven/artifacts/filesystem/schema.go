package filesystem

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

//go:embed artifact.schema.json
var artifactSchemaJSON string

const artifactSchemaURL = "https://arrgate.local/schemas/drift-artifact.json"

// compileArtifactSchema compiles the embedded artifact schema.
func compileArtifactSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(artifactSchemaURL, strings.NewReader(artifactSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(artifactSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// timestampLayouts are the ISO-8601 forms accepted for artifact timestamps.
// Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// wireArtifact is the on-disk artifact shape.
type wireArtifact struct {
	Timestamp           string         `json:"timestamp"`
	ExpectationsVersion string         `json:"expectationsVersion"`
	Probes              []domain.Probe `json:"probes"`
}

// decodeArtifact validates raw against the schema and decodes it.
func decodeArtifact(schema *jsonschema.Schema, raw []byte) (domain.Artifact, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Artifact{}, fmt.Errorf("parse: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return domain.Artifact{}, fmt.Errorf("schema: %w", err)
	}

	var wire wireArtifact
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.Artifact{}, fmt.Errorf("decode: %w", err)
	}
	ts, err := parseTimestamp(wire.Timestamp)
	if err != nil {
		return domain.Artifact{}, err
	}

	probes := wire.Probes
	if probes == nil {
		probes = []domain.Probe{}
	}
	return domain.Artifact{
		Timestamp:           ts,
		ExpectationsVersion: wire.ExpectationsVersion,
		Probes:              probes,
	}, nil
}
