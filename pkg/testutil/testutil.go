// Package testutil contains helpers shared by the tests of tabl: fixtures in
// temporary directories, environment overrides and timeouts scaled for slow
// machines.
package testutil

// Cleanuper wraps the Cleanup method. [*testing.T] and [*testing.B] satisfy
// it.
type Cleanuper interface {
	Cleanup(func())
}
