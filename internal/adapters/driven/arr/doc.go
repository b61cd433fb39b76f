// Package arr is the HTTP client for the live *arr instance.
//
// It implements driven.GateProbe and driven.IndexerLister against the
// instance's /api/v1 surface. Every request carries the X-Api-Key header,
// is bounded by the configured timeout and is paced by a token bucket so a
// gate run never floods a freshly started container.
package arr
