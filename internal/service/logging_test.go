package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVerboseLogging(t *testing.T) {
	assert.False(t, IsVerboseLogging(context.Background()))

	verbose := context.WithValue(context.Background(), VerboseContextKey, true)
	assert.True(t, IsVerboseLogging(verbose))

	quiet := context.WithValue(context.Background(), VerboseContextKey, false)
	assert.False(t, IsVerboseLogging(quiet))
}

func TestSanitizeRecipientID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "*****6789", SanitizeRecipientID(ctx, "123456789"))

	verbose := context.WithValue(ctx, VerboseContextKey, true)
	assert.Equal(t, "123456789", SanitizeRecipientID(verbose, "123456789"))
}

func TestSanitizeContent(t *testing.T) {
	assert.Equal(t, "", SanitizeContent(""))
	assert.Equal(t, "[hidden]", SanitizeContent("secret broadcast text"))
}
