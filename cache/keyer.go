package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// Keyer derives cache keys from an endpoint and a tag selection.
//
// Contract:
// - Determinism: the same endpoint and the same set of tags, in any order
//   and with any duplicates, produce the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(endpoint string, tags []string) (string, error)
}

// DefaultKeyer generates SHA-256 based keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
// Format: health:<endpoint>:<hash>
// where hash is the first 16 hex characters of SHA-256 over the sorted,
// de-duplicated tags.
func (k *DefaultKeyer) Key(endpoint string, tags []string) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", fmt.Errorf("%w: empty endpoint", ErrInvalidKey)
	}

	hash := sha256.Sum256([]byte(strings.Join(CanonicalTags(tags), "\x00")))
	key := fmt.Sprintf("health:%s:%s", endpoint, hex.EncodeToString(hash[:8]))
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// CanonicalTags returns tags trimmed, sorted and without duplicates or
// empty values.
func CanonicalTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

var _ Keyer = (*DefaultKeyer)(nil)
