package utils

import (
	"regexp"

	"github.com/google/uuid"
)

var jobIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// NewJobID returns a random UUID in canonical lowercase 8-4-4-4-12 form.
func NewJobID() string {
	return uuid.NewString()
}

// ValidJobID reports whether id has the exact job identifier shape.
// It must hold before id is used to build any storage key.
func ValidJobID(id string) bool {
	return jobIDPattern.MatchString(id)
}
