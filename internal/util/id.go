// Package util provides shared utility functions.
package util

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultShortIDLength is the default number of characters for short IDs.
	DefaultShortIDLength = 10
	// MaxAmbiguousCandidates is the max number of candidates to show in ambiguous error.
	MaxAmbiguousCandidates = 5
)

// Errors returned by ID resolution functions.
var (
	ErrAmbiguousID = errors.New("ambiguous ID prefix")
	ErrNotFound    = errors.New("not found")
)

// Kind names an entity whose IDs can be resolved by prefix. Its value is
// also the ID prefix ("idea-1a2b3c4d").
type Kind string

// Resolvable kinds.
const (
	KindIdea     Kind = "idea"
	KindBranch   Kind = "br"
	KindSnapshot Kind = "snap"
	KindNode     Kind = "node"
	KindNote     Kind = "note"
	KindEdge     Kind = "edge"
)

func (k Kind) label() string {
	switch k {
	case KindBranch:
		return "branch"
	case KindSnapshot:
		return "snapshot"
	default:
		return string(k)
	}
}

// ShortID returns a shortened version of an ID.
// If n is 0 or negative, DefaultShortIDLength is used.
//
//	ShortID("idea-abcdef12", 0) → "idea-abcde"
//	ShortID("br-abcdef12", 6)   → "br-abc"
func ShortID(id string, n int) string {
	if n <= 0 {
		n = DefaultShortIDLength
	}
	if len(id) <= n {
		return id
	}
	return id[:n]
}

// IDPrefixResolver finds IDs starting with a prefix.
// This is implemented by memory.SQLiteStore.
type IDPrefixResolver interface {
	FindIDsByPrefix(ctx context.Context, kind string, prefix string) ([]string, error)
}

// ResolveID resolves an ID or unique prefix to a full ID. The kind prefix
// may be omitted: "1a2b" and "idea-1a2b" both resolve idea-1a2b3c4d.
//
//  1. An exact ID match wins even when it is also a prefix of others.
//  2. A single prefix match is returned.
//  3. Several matches yield ErrAmbiguousID listing some candidates.
//  4. No match yields ErrNotFound.
func ResolveID(ctx context.Context, resolver IDPrefixResolver, kind Kind, idOrPrefix string) (string, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return "", fmt.Errorf("%s ID: %w", kind.label(), ErrNotFound)
	}

	normalized := idOrPrefix
	if !strings.HasPrefix(normalized, string(kind)+"-") {
		normalized = string(kind) + "-" + normalized
	}

	candidates, err := resolver.FindIDsByPrefix(ctx, string(kind), normalized)
	if err != nil {
		return "", fmt.Errorf("find %s IDs: %w", kind.label(), err)
	}
	for _, c := range candidates {
		if c == normalized {
			return c, nil
		}
	}
	return resolveFromCandidates(normalized, candidates, kind.label())
}

func resolveFromCandidates(prefix string, candidates []string, entityType string) (string, error) {
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%s with prefix %q: %w", entityType, prefix, ErrNotFound)
	case 1:
		return candidates[0], nil
	default:
		shown := candidates
		if len(shown) > MaxAmbiguousCandidates {
			shown = shown[:MaxAmbiguousCandidates]
		}
		return "", fmt.Errorf("%w: prefix %q matches %d %ss: %v",
			ErrAmbiguousID, prefix, len(candidates), entityType, shown)
	}
}
