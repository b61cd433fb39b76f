package mcp

import (
	"github.com/custodia-labs/arrgate/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Settings resolves configuration for every tool call.
	Settings driving.SettingsService

	// Factory builds the drift checker and gate runner per call.
	Factory driving.ServiceFactory
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Settings == nil {
		return ErrMissingSettingsService
	}
	if p.Factory == nil {
		return ErrMissingServiceFactory
	}
	return nil
}
