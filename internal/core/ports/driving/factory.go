package driving

import "github.com/custodia-labs/arrgate/internal/core/domain"

// ServiceFactory builds the operation services once per invocation, after
// flags and configuration have been resolved into settings.
type ServiceFactory interface {
	// DriftChecker returns a checker reading artifacts from path.
	DriftChecker(path string, policy domain.DriftPolicy) (DriftChecker, error)

	// GateRunner returns a runner for the instance described by settings.
	GateRunner(settings domain.Settings) (GateRunner, error)
}
