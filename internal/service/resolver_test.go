package service

import (
	"context"
	"testing"

	"herald/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAll(t *testing.T) {
	store := &mockDirectoryStore{
		listIDsFn: func(ctx context.Context) ([]string, error) {
			return []string{"1", "2", "3"}, nil
		},
	}
	r := NewResolver(store)

	ids, err := r.Resolve(context.Background(), models.TargetSpec{Kind: models.TargetAll})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestResolveTag(t *testing.T) {
	store := &mockDirectoryStore{
		listByTagFn: func(ctx context.Context, tag string) ([]string, error) {
			return []string{"7"}, nil
		},
	}
	r := NewResolver(store)

	ids, err := r.Resolve(context.Background(), models.TargetSpec{Kind: models.TargetTag, Tag: "  VIP "})
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, ids)
	assert.Equal(t, "vip", store.lastTag, "tag is lowercased and trimmed before lookup")
}

func TestResolveEmptyTagYieldsNobody(t *testing.T) {
	r := NewResolver(&mockDirectoryStore{})

	ids, err := r.Resolve(context.Background(), models.TargetSpec{Kind: models.TargetTag, Tag: "   "})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResolveUnknownKindYieldsNobody(t *testing.T) {
	r := NewResolver(&mockDirectoryStore{})

	ids, err := r.Resolve(context.Background(), models.TargetSpec{Kind: "everyone"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResolveExplicit(t *testing.T) {
	r := NewResolver(&mockDirectoryStore{})

	ids, err := r.Resolve(context.Background(), models.TargetSpec{
		Kind:     models.TargetExplicit,
		Explicit: "1, 2\n3",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestParseExplicitIDs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "comma separated",
			raw:  "1,2,3",
			want: []string{"1", "2", "3"},
		},
		{
			name: "newline separated",
			raw:  "1\n2\n3",
			want: []string{"1", "2", "3"},
		},
		{
			name: "windows line endings",
			raw:  "1\r\n2\r\n3",
			want: []string{"1", "2", "3"},
		},
		{
			name: "mixed separators with whitespace",
			raw:  " 1 , 2\n 3 ",
			want: []string{"1", "2", "3"},
		},
		{
			name: "empty segments dropped",
			raw:  "1,,\n,2",
			want: []string{"1", "2"},
		},
		{
			name: "duplicates preserved",
			raw:  "1,1,2",
			want: []string{"1", "1", "2"},
		},
		{
			name: "empty input",
			raw:  "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseExplicitIDs(tt.raw))
		})
	}
}
