package arr

import (
	"encoding/json"
	"strings"

	"github.com/custodia-labs/arrgate/internal/core/domain"
)

// schemaResource is one entry of a */schema listing.
type schemaResource struct {
	Name               string `json:"name"`
	Implementation     string `json:"implementation"`
	ImplementationName string `json:"implementationName"`
	ConfigContract     string `json:"configContract"`
}

// matches reports whether the schema entry belongs to plugin.
func (s schemaResource) matches(plugin string) bool {
	needle := strings.ToLower(strings.TrimSpace(plugin))
	if needle == "" {
		return false
	}
	for _, field := range []string{s.Implementation, s.ImplementationName, s.Name, s.ConfigContract} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// indexerResource is a configured indexer.
type indexerResource struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Implementation string `json:"implementation"`
}

func (r indexerResource) toDomain() domain.Indexer {
	return domain.Indexer{ID: r.ID, Name: r.Name, Implementation: r.Implementation}
}

// validationFailure is one entry of a 400 response from a test endpoint.
type validationFailure struct {
	PropertyName string `json:"propertyName"`
	ErrorMessage string `json:"errorMessage"`
}

// validationMessages extracts error messages from a validation failure body.
// It falls back to the raw body when it is not a failure list.
func validationMessages(body string) []string {
	var failures []validationFailure
	if err := json.Unmarshal([]byte(body), &failures); err == nil {
		var msgs []string
		for _, f := range failures {
			if f.ErrorMessage == "" {
				continue
			}
			if f.PropertyName != "" {
				msgs = append(msgs, f.PropertyName+": "+f.ErrorMessage)
			} else {
				msgs = append(msgs, f.ErrorMessage)
			}
		}
		if len(msgs) > 0 {
			return msgs
		}
	}
	if body = strings.TrimSpace(body); body != "" {
		return []string{truncate(body, 200)}
	}
	return nil
}
