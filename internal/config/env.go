package config

import "os"

// environ is a variable over os.Environ so tests can substitute a fixed
// environment without mutating process-global state through os.Setenv in
// parallel test runs. lookupEnv is a plain wrapper over os.LookupEnv and
// cannot be substituted.
var environ = os.Environ

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}
