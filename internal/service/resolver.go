package service

import (
	"context"
	"strings"

	"herald/internal/errors"
	"herald/internal/models"
)

// DirectoryStore is the directory surface the resolver needs.
type DirectoryStore interface {
	ListRecipientIDs(ctx context.Context) ([]string, error)
	ListRecipientIDsByTag(ctx context.Context, tag string) ([]string, error)
}

// Resolver turns a declarative target spec into a concrete recipient id list.
// The result is a point-in-time snapshot of the directory; it does not dedup,
// that happens at dispatch time. A spec that names nobody (unknown kind, blank
// tag, empty id list) resolves to an empty list rather than an error.
type Resolver struct {
	store DirectoryStore
}

func NewResolver(store DirectoryStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve expands a target spec against the directory.
func (r *Resolver) Resolve(ctx context.Context, spec models.TargetSpec) ([]string, error) {
	switch spec.Kind {
	case models.TargetAll:
		ids, err := r.store.ListRecipientIDs(ctx)
		if err != nil {
			return nil, errors.NewDatabaseError("list recipients", err)
		}
		return ids, nil

	case models.TargetTag:
		tag := strings.ToLower(strings.TrimSpace(spec.Tag))
		if tag == "" {
			return nil, nil
		}
		ids, err := r.store.ListRecipientIDsByTag(ctx, tag)
		if err != nil {
			return nil, errors.NewDatabaseError("list recipients by tag", err)
		}
		return ids, nil

	case models.TargetExplicit:
		return ParseExplicitIDs(spec.Explicit), nil

	default:
		// Unknown kinds resolve to nobody; the caller reports "no recipients".
		return nil, nil
	}
}

// ParseExplicitIDs splits a free-form id list on commas and newlines,
// trimming whitespace and dropping empties. Duplicates are kept; the
// dispatcher is the single place that dedups.
func ParseExplicitIDs(raw string) []string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		if id := strings.TrimSpace(f); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
