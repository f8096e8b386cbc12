package framework

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigurationError reports malformed solver input detected before the main
// loop starts: bad bounds, mismatched lengths, out-of-range indices and so on.
type ConfigurationError struct {
	Errs field.ErrorList
}

// NewConfigurationError wraps errs, or returns nil when errs is empty.
func NewConfigurationError(errs field.ErrorList) error {
	if len(errs) == 0 {
		return nil
	}
	return &ConfigurationError{Errs: errs}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrConfiguration, e.Errs.ToAggregate())
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// PlanningError is returned when a policy replay reaches a state for which no
// action was recorded.
type PlanningError struct {
	Stage int
	State any
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("no feasible action at stage %d for state %v", e.Stage, e.State)
}
