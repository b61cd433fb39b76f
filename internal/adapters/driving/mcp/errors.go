// Package mcp provides an MCP (Model Context Protocol) server adapter for arrgate.
// It lets AI assistants run drift checks and instance gates.
package mcp

import "errors"

// ErrMissingSettingsService is returned when the settings service is not provided.
var ErrMissingSettingsService = errors.New("mcp: settings service is required")

// ErrMissingServiceFactory is returned when the service factory is not provided.
var ErrMissingServiceFactory = errors.New("mcp: service factory is required")
