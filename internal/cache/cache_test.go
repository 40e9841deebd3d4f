package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var errUnknown = errors.New("unknown error")

type MockClient struct {
	mock.Mock
}

func (c *MockClient) Get(ctx context.Context, key string) (string, error) {
	args := c.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (c *MockClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	args := c.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (c *MockClient) Del(ctx context.Context, key string) error {
	args := c.Called(ctx, key)
	return args.Error(0)
}

func (c *MockClient) Incr(ctx context.Context, key string) (int64, error) {
	args := c.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (c *MockClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	args := c.Called(ctx, key, ttl)
	return args.Error(0)
}

func (c *MockClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	args := c.Called(ctx, key)
	return args.Get(0).(time.Duration), args.Error(1)
}

func setupRedirectCache(t testing.TB, maxTTL time.Duration) (*RedirectCache, *MockClient) {
	t.Helper()

	clientMock := new(MockClient)
	c := NewRedirectCache(clientMock, maxTTL)

	t.Cleanup(func() {
		clientMock.AssertExpectations(t)
	})

	return c, clientMock
}

func TestRedirectCache_Get(t *testing.T) {
	t.Run("cache miss", func(t *testing.T) {
		c, clientMock := setupRedirectCache(t, time.Hour)

		clientMock.
			On("Get", context.Background(), "url:code:abc").
			Once().
			Return("", ErrCacheMiss)

		entry, err := c.Get(context.Background(), "abc")

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.Nil(t, entry)
	})

	t.Run("unknown error", func(t *testing.T) {
		c, clientMock := setupRedirectCache(t, time.Hour)

		clientMock.
			On("Get", context.Background(), "url:code:abc").
			Once().
			Return("", errUnknown)

		entry, err := c.Get(context.Background(), "abc")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.NotErrorIs(t, err, ErrCacheMiss)
		assert.Nil(t, entry)
	})

	t.Run("corrupted payload evicted and reported as miss", func(t *testing.T) {
		c, clientMock := setupRedirectCache(t, time.Hour)

		clientMock.
			On("Get", context.Background(), "url:code:abc").
			Once().
			Return("{not json", nil)
		clientMock.
			On("Del", context.Background(), "url:code:abc").
			Once().
			Return(nil)

		entry, err := c.Get(context.Background(), "abc")

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.Nil(t, entry)
	})

	t.Run("success", func(t *testing.T) {
		c, clientMock := setupRedirectCache(t, time.Hour)

		expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		payload, err := json.Marshal(Entry{LongURL: "https://example.com", ExpiresAt: &expiresAt})
		if err != nil {
			t.Fatal(err)
		}

		clientMock.
			On("Get", context.Background(), "url:code:abc").
			Once().
			Return(string(payload), nil)

		entry, err := c.Get(context.Background(), "abc")

		assert.NoError(t, err)
		assert.NotNil(t, entry)
		assert.Equal(t, "https://example.com", entry.LongURL)
		assert.NotNil(t, entry.ExpiresAt)
		assert.True(t, entry.ExpiresAt.Equal(expiresAt))
	})
}

func TestRedirectCache_Set(t *testing.T) {
	t.Run("entry already expired", func(t *testing.T) {
		c, _ := setupRedirectCache(t, time.Hour)

		expiresAt := time.Now().Add(-time.Minute)
		err := c.Set(context.Background(), "abc", Entry{
			LongURL:   "https://example.com",
			ExpiresAt: &expiresAt,
		})

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrEntryExpired)
	})

	t.Run("no expiry uses the global ceiling", func(t *testing.T) {
		c, clientMock := setupRedirectCache(t, time.Hour)

		clientMock.
			On("Set", context.Background(), "url:code:abc", mock.Anything, time.Hour).
			Once().
			Return(nil)

		err := c.Set(context.Background(), "abc", Entry{LongURL: "https://example.com"})

		assert.NoError(t, err)
	})

	t.Run("ttl bounded by remaining lifetime", func(t *testing.T) {
		c, clientMock := setupRedirectCache(t, time.Hour)

		expiresAt := time.Now().Add(time.Minute)

		clientMock.
			On("Set", context.Background(), "url:code:abc", mock.Anything, mock.MatchedBy(func(ttl time.Duration) bool {
				return ttl > 0 && ttl <= time.Minute
			})).
			Once().
			Return(nil)

		err := c.Set(context.Background(), "abc", Entry{
			LongURL:   "https://example.com",
			ExpiresAt: &expiresAt,
		})

		assert.NoError(t, err)
	})

	t.Run("client error", func(t *testing.T) {
		c, clientMock := setupRedirectCache(t, time.Hour)

		clientMock.
			On("Set", context.Background(), "url:code:abc", mock.Anything, time.Hour).
			Once().
			Return(errUnknown)

		err := c.Set(context.Background(), "abc", Entry{LongURL: "https://example.com"})

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
	})
}

func TestRedirectCache_Delete(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		c, clientMock := setupRedirectCache(t, time.Hour)

		clientMock.
			On("Del", context.Background(), "url:code:abc").
			Once().
			Return(errUnknown)

		err := c.Delete(context.Background(), "abc")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
	})

	t.Run("success", func(t *testing.T) {
		c, clientMock := setupRedirectCache(t, time.Hour)

		clientMock.
			On("Del", context.Background(), "url:code:abc").
			Once().
			Return(nil)

		err := c.Delete(context.Background(), "abc")

		assert.NoError(t, err)
	})
}

func TestEntry_Expired(t *testing.T) {
	now := time.Now()

	t.Run("no expiry never expires", func(t *testing.T) {
		entry := Entry{LongURL: "https://example.com"}
		assert.False(t, entry.Expired(now))
	})

	t.Run("future expiry", func(t *testing.T) {
		expiresAt := now.Add(time.Second)
		entry := Entry{LongURL: "https://example.com", ExpiresAt: &expiresAt}
		assert.False(t, entry.Expired(now))
	})

	t.Run("past expiry", func(t *testing.T) {
		expiresAt := now.Add(-time.Second)
		entry := Entry{LongURL: "https://example.com", ExpiresAt: &expiresAt}
		assert.True(t, entry.Expired(now))
	})

	t.Run("exact boundary counts as expired", func(t *testing.T) {
		entry := Entry{LongURL: "https://example.com", ExpiresAt: &now}
		assert.True(t, entry.Expired(now))
	})
}
