// Package uuid provides scan ID generation helpers.
package uuid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Scan IDs are the first 12 hex characters of a v4 UUID: short enough for
// URLs, unique enough for a single-process store.
const scanIDLength = 12

// Generator creates scan ID strings.
type Generator struct{}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// NewID returns a short random scan identifier.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	compact := strings.ReplaceAll(id.String(), "-", "")
	return compact[:scanIDLength], nil
}
