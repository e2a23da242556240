package models

import (
	"strings"
	"time"
)

// Recipient is an addressable endpoint in the directory. ID is the natural key
// (a Telegram chat id for the production transport); re-adding the same ID
// overwrites name and tags.
type Recipient struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TargetKind selects how a broadcast's recipient set is resolved.
type TargetKind string

const (
	TargetAll      TargetKind = "all"
	TargetTag      TargetKind = "tag"
	TargetExplicit TargetKind = "explicit"
)

// TargetSpec is the operator's declarative description of who should receive a
// broadcast. Exactly one of Tag / Explicit is meaningful depending on Kind.
// Explicit holds a free-form comma or newline separated id list.
type TargetSpec struct {
	Kind     TargetKind `json:"kind"`
	Tag      string     `json:"tag,omitempty"`
	Explicit string     `json:"ids,omitempty"`
}

// NormalizeTags lowercases, trims and deduplicates a tag list. Tags are
// normalized at write time so tag lookup is exact-match on the stored form.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
