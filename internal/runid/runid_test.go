package runid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx, id := New(context.Background())
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestFromContext_Missing(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(WithRunID(context.Background(), ""))
	assert.False(t, ok)
}

func TestWithRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "test-123")
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "test-123", id)
}
