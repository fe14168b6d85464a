package diskcache

import (
	"fmt"
	"regexp"
)

// keyPattern is the key validation regex: [a-z0-9_-]{1,120}.
var keyPattern = regexp.MustCompile(`^[a-z0-9_-]{1,120}$`)

// ValidKey reports whether key matches the cache's key syntax.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func validateKey(key string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return nil
}
