// Package services implements the driving port interfaces.
// Services contain the core decision logic (drift analysis, promotion
// policy, gate orchestration) and call out to driven ports (adapters).
//
// Services are pure Go with no I/O of their own.
package services
