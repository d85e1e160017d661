package testutil

import (
	"os"
	"time"
)

// Must panics if the error value is not nil. It is typically used like this:
//
//	testutil.Must(a_function())
//
// Where `a_function` returns a single error value.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

// MustWriteFile calls os.WriteFile and panics if an error occurs.
func MustWriteFile(filename, data string) {
	Must(os.WriteFile(filename, []byte(data), 0600))
}

// Eventually polls cond every step until it returns true or the scaled
// timeout elapses, and reports whether cond became true.
func Eventually(cond func() bool, timeout, step time.Duration) bool {
	deadline := time.Now().Add(Scaled(timeout))
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(step)
	}
}
