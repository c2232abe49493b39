package installer

import (
	"errors"
	"fmt"
)

// ErrPlatformUnsupported is returned when a mod has no live modfile for the
// target platform.
var ErrPlatformUnsupported = errors.New("installer: no modfile for target platform")

// IntegrityError indicates the downloaded artifact's hash does not match the
// hash declared by the catalog. The artifact is discarded and never installed.
type IntegrityError struct {
	Mod      string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("installer: hash mismatch for %s: expected %s, got %s", e.Mod, e.Expected, e.Actual)
}
