package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis_RequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := NewRedis(context.Background(), "")
	require.Error(t, err)
}

func TestNewRedis_UnreachableServer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedis(ctx, "127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestKeyIsNamespaced(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "storefront:dashboard:summary", key("dashboard:summary"))
}
