package mock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/gateway"
	"github.com/ALEXSANDER2002/aritana/internal/gateway/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- NewMockClient ---

func TestNewMockClient_Defaults(t *testing.T) {
	c := mock.NewMockClient()
	ctx := context.Background()

	sub, err := c.Submit(ctx, gateway.Image{Name: "a.jpg"}, gateway.Metadata{})
	require.NoError(t, err)
	assert.Equal(t, "job-1", sub.JobID)

	payload, err := c.PollStatus(ctx, "job-1", "")
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusRunning, payload.Status)
	require.NotNil(t, payload.Progress)
	assert.Equal(t, 50, *payload.Progress)

	rec, err := c.FetchResult(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, rec)

	assert.True(t, c.HealthCheck(ctx))

	catalog, err := c.ListCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, catalog)
}

func TestMockClient_CountsCalls(t *testing.T) {
	c := mock.NewMockClient()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.PollStatus(ctx, "job-1", "")
		}()
	}
	wg.Wait()
	c.HealthCheck(ctx)

	assert.Equal(t, 10, c.Calls("poll"))
	assert.Equal(t, 1, c.Calls("health"))
	assert.Equal(t, 0, c.Calls("submit"))
}

func TestMockClient_ZeroValue(t *testing.T) {
	var c mock.MockClient
	ctx := context.Background()

	sub, err := c.Submit(ctx, gateway.Image{}, gateway.Metadata{})
	assert.NoError(t, err)
	assert.Nil(t, sub)
	assert.False(t, c.HealthCheck(ctx))
}

// --- NewFailingClient ---

func TestNewFailingClient(t *testing.T) {
	boom := errors.New("boom")
	c := mock.NewFailingClient(boom)
	ctx := context.Background()

	_, err := c.Submit(ctx, gateway.Image{}, gateway.Metadata{})
	assert.ErrorIs(t, err, boom)
	_, err = c.PollStatus(ctx, "job", "")
	assert.ErrorIs(t, err, boom)
	_, err = c.FetchResult(ctx, "1")
	assert.ErrorIs(t, err, boom)
	_, err = c.ListCatalog(ctx)
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.HealthCheck(ctx))
}

// --- NewTimeoutClient ---

func TestNewTimeoutClient_RespectsContext(t *testing.T) {
	c := mock.NewTimeoutClient()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.PollStatus(ctx, "job", "")
	assert.ErrorIs(t, err, gateway.ErrGatewayUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}
