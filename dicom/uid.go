package dicom

import (
	"fmt"
	"strings"
)

// MaxUIDLength is the maximum length of a UI value (PS3.5 6.2).
const MaxUIDLength = 64

// ValidateUID checks the DICOM UID syntax: non-empty, at most 64 characters,
// dot-separated numeric components without leading zeros (except a bare "0").
// The returned error describes the first violation.
func ValidateUID(uid string) error {
	if uid == "" {
		return fmt.Errorf("value is empty")
	}
	if len(uid) > MaxUIDLength {
		return fmt.Errorf("value exceeds %d characters", MaxUIDLength)
	}
	for _, component := range strings.Split(uid, ".") {
		if component == "" {
			return fmt.Errorf("value has an empty component")
		}
		for _, c := range component {
			if c < '0' || c > '9' {
				return fmt.Errorf("component '%s' is not numeric", component)
			}
		}
		if len(component) > 1 && component[0] == '0' {
			return fmt.Errorf("component '%s' has a leading zero", component)
		}
	}
	return nil
}
