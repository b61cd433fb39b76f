package arr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/logger"
)

// schemaCheck is one component expectation checked by the schema gate.
type schemaCheck struct {
	path   string
	label  string
	metric string
}

var (
	indexerSchema        = schemaCheck{"indexer/schema", "indexer", "indexerFound"}
	downloadClientSchema = schemaCheck{"downloadclient/schema", "download client", "downloadClientFound"}
	importListSchema     = schemaCheck{"importlist/schema", "import list", "importListFound"}
)

// RunSchemaGate verifies that the plugin registered every expected component.
// Each missing component is reported as its own error.
func (c *Client) RunSchemaGate(
	ctx context.Context, plugin string, profile domain.PluginExpectationProfile,
) (domain.GateResult, error) {
	var checks []schemaCheck
	if profile.ExpectIndexer {
		checks = append(checks, indexerSchema)
	}
	if profile.ExpectDownloadClient {
		checks = append(checks, downloadClientSchema)
	}
	if profile.ExpectImportList {
		checks = append(checks, importListSchema)
	}

	metrics := map[string]any{}
	var missing []string
	for _, check := range checks {
		var schemas []schemaResource
		if err := c.getJSON(ctx, check.path, nil, &schemas); err != nil {
			return domain.GateResult{Metrics: metrics}, fmt.Errorf("%s schema: %w", check.label, err)
		}

		found := false
		for _, s := range schemas {
			if s.matches(plugin) {
				found = true
				break
			}
		}
		metrics[check.metric] = found
		logger.Debug("%s: %s schema found=%t (%d entries)", plugin, check.label, found, len(schemas))
		if !found {
			missing = append(missing, fmt.Sprintf("%s schema not registered for %s", check.label, plugin))
		}
	}

	if len(checks) == 0 {
		return domain.SkippedResult(domain.GateSchema, plugin, "no components expected"), nil
	}
	if len(missing) > 0 {
		return domain.FailedResult(domain.GateSchema, plugin, metrics, missing...), nil
	}
	return domain.PassedResult(domain.GateSchema, plugin, metrics), nil
}

// RunSearchGate tests the indexer and runs a search through the instance.
func (c *Client) RunSearchGate(
	ctx context.Context, plugin string, indexer domain.Indexer,
) (domain.GateResult, error) {
	metrics := map[string]any{
		"indexerId":   indexer.ID,
		"indexerName": indexer.Name,
	}

	// The test endpoint takes the full indexer resource.
	resource, err := c.do(ctx, http.MethodGet, "indexer/"+strconv.Itoa(indexer.ID), nil, nil)
	if err != nil {
		return domain.GateResult{Metrics: metrics}, fmt.Errorf("load indexer %d: %w", indexer.ID, err)
	}

	if _, err := c.do(ctx, http.MethodPost, "indexer/test", nil, resource); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest {
			msgs := validationMessages(se.Body)
			if len(msgs) == 0 {
				msgs = []string{"indexer test failed"}
			}
			for i := range msgs {
				msgs[i] = fmt.Sprintf("indexer %q test failed: %s", indexer.Name, msgs[i])
			}
			return domain.FailedResult(domain.GateSearch, plugin, metrics, msgs...), nil
		}
		return domain.GateResult{Metrics: metrics}, fmt.Errorf("test indexer %d: %w", indexer.ID, err)
	}

	var results []json.RawMessage
	if err := c.getJSON(ctx, "search", url.Values{"term": {c.searchTerm}}, &results); err != nil {
		return domain.GateResult{Metrics: metrics}, fmt.Errorf("search %q: %w", c.searchTerm, err)
	}
	metrics["resultCount"] = len(results)
	metrics["searchTerm"] = c.searchTerm

	if len(results) == 0 {
		logger.Warn("%s: search for %q returned no results", plugin, c.searchTerm)
	}
	return domain.PassedResult(domain.GateSearch, plugin, metrics), nil
}
