package env

import "os"

// Get reads an environment variable, falling back when unset or blank.
// Used by the mains for overrides that sit outside the MESA_ config prefix.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
