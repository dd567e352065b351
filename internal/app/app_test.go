package app

import (
	"testing"

	"go.uber.org/fx"
)

// fx.ValidateApp checks the dependency graph without running any
// constructor, so no environment is needed.
func Test__CreateApp(t *testing.T) {
	if err := fx.ValidateApp(CreateApp()); err != nil {
		t.Errorf("fx validation failed: %v", err)
	}
}
