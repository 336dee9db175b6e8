package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNopCacheAlwaysMisses(t *testing.T) {
	var c Cache = NopCache{}
	ctx := context.Background()

	assert.NoError(t, c.SetJSON(ctx, "k", map[string]string{"a": "b"}, time.Minute))

	var out map[string]string
	assert.ErrorIs(t, c.GetJSON(ctx, "k", &out), ErrNotFound)
	assert.Nil(t, out)
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.Close())
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache("not a url")
	assert.Error(t, err)
}
