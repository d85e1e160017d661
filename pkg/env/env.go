// Package env keeps names of environment variables with special significance to
// tabl.
package env

// Environment variables with special significance to tabl.
//
// TABL_TEST_TIME_SCALE is only significant when running unit tests.
const (
	HOME                 = "HOME"
	TABL_CONFIG          = "TABL_CONFIG"
	TABL_TEST_TIME_SCALE = "TABL_TEST_TIME_SCALE"
	XDG_CONFIG_HOME      = "XDG_CONFIG_HOME"
)
