package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ilham-education/ilham-backend/internal/cache"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return cache.ErrNotFound
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) Close() error { return nil }

func TestPublicContent_CachedUntilUpdated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.repos
	svc := NewContentService(r.Tx, r.Content, r.Universities, newMemCache(), time.Minute, f.logger)

	require.NoError(t, r.Content.Upsert(ctx, "hero_title", "Study abroad"))

	content, err := svc.PublicContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Study abroad", content["hero_title"])

	// a write that bypasses the service is not visible until invalidation
	require.NoError(t, r.Content.Upsert(ctx, "hero_title", "Changed behind the cache"))
	content, err = svc.PublicContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Study abroad", content["hero_title"])

	require.NoError(t, svc.UpdateContent(ctx, map[string]string{"hero_title": "Your future starts here"}))
	content, err = svc.PublicContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Your future starts here", content["hero_title"])

	err = svc.UpdateContent(ctx, map[string]string{})
	assert.Equal(t, "No updates provided", asError[*ValidationError](t, err).Message)
}

func TestPublicUniversities_InvalidatedByUniversityChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.repos
	content := NewContentService(r.Tx, r.Content, r.Universities, newMemCache(), time.Minute, f.logger)
	universities := NewUniversityService(r.Universities, content.Invalidate, f.logger)

	var first *models.University
	for i, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		u := f.university(t, name)
		if i == 0 {
			first = u
		}
		time.Sleep(time.Millisecond)
	}

	list, err := content.PublicUniversities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 6)
	assert.Equal(t, "A", list[0].Name)

	require.NoError(t, universities.Delete(ctx, first.ID))

	list, err = content.PublicUniversities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 6)
	assert.Equal(t, "B", list[0].Name)
	assert.Equal(t, "G", list[5].Name)
}

func TestPublicIELTS_WithoutCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.repos
	svc := NewContentService(r.Tx, r.Content, r.Universities, nil, 0, f.logger)

	require.NoError(t, r.IELTS.CreateCourse(ctx, &models.IELTSCourse{ID: "c1", BatchName: "Morning", Status: models.CourseActive, CreatedAt: time.Now()}))
	require.NoError(t, r.IELTS.CreateCourse(ctx, &models.IELTSCourse{ID: "c2", BatchName: "Closed", Status: models.CourseInactive, CreatedAt: time.Now()}))

	ielts, err := svc.PublicIELTS(ctx)
	require.NoError(t, err)
	require.Len(t, ielts.Courses, 1)
	assert.Equal(t, "Morning", ielts.Courses[0].BatchName)
	assert.Empty(t, ielts.Materials)
}
