package mock

import (
	"context"
	"sync"

	"github.com/ALEXSANDER2002/aritana/internal/gateway"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
)

// MockClient satisfies gateway.Client for testing. Nil function fields return zero values.
// Call counts are safe to read while other goroutines call the mock.
type MockClient struct {
	SubmitFunc      func(ctx context.Context, img gateway.Image, meta gateway.Metadata) (*gateway.Submission, error)
	PollStatusFunc  func(ctx context.Context, jobID, statusURL string) (*gateway.StatusPayload, error)
	FetchResultFunc func(ctx context.Context, resourceID string) (*models.RemoteRecord, error)
	HealthCheckFunc func(ctx context.Context) bool
	ListCatalogFunc func(ctx context.Context) ([]models.RemoteRecord, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockClient) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// Calls returns how many times op ("submit", "poll", "fetch", "health", "catalog") was called.
func (m *MockClient) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockClient) Submit(ctx context.Context, img gateway.Image, meta gateway.Metadata) (*gateway.Submission, error) {
	m.record("submit")
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, img, meta)
	}
	return nil, nil
}

func (m *MockClient) PollStatus(ctx context.Context, jobID, statusURL string) (*gateway.StatusPayload, error) {
	m.record("poll")
	if m.PollStatusFunc != nil {
		return m.PollStatusFunc(ctx, jobID, statusURL)
	}
	return nil, nil
}

func (m *MockClient) FetchResult(ctx context.Context, resourceID string) (*models.RemoteRecord, error) {
	m.record("fetch")
	if m.FetchResultFunc != nil {
		return m.FetchResultFunc(ctx, resourceID)
	}
	return nil, nil
}

func (m *MockClient) HealthCheck(ctx context.Context) bool {
	m.record("health")
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return false
}

func (m *MockClient) ListCatalog(ctx context.Context) ([]models.RemoteRecord, error) {
	m.record("catalog")
	if m.ListCatalogFunc != nil {
		return m.ListCatalogFunc(ctx)
	}
	return nil, nil
}

// NewMockClient returns a MockClient with sensible default responses: submissions get
// job id "job-1", polls report running at 50%, results and the catalog are empty,
// and the health probe succeeds.
func NewMockClient() *MockClient {
	return &MockClient{
		SubmitFunc: func(_ context.Context, _ gateway.Image, _ gateway.Metadata) (*gateway.Submission, error) {
			return &gateway.Submission{JobID: "job-1"}, nil
		},
		PollStatusFunc: func(_ context.Context, _, _ string) (*gateway.StatusPayload, error) {
			p := 50
			return &gateway.StatusPayload{Status: gateway.StatusRunning, RawStatus: "processing", Progress: &p}, nil
		},
		FetchResultFunc: func(_ context.Context, _ string) (*models.RemoteRecord, error) {
			return nil, nil
		},
		HealthCheckFunc: func(_ context.Context) bool { return true },
		ListCatalogFunc: func(_ context.Context) ([]models.RemoteRecord, error) {
			return []models.RemoteRecord{}, nil
		},
	}
}

// NewFailingClient returns a MockClient whose every call fails with err and whose health
// probe reports false.
func NewFailingClient(err error) *MockClient {
	return &MockClient{
		SubmitFunc: func(_ context.Context, _ gateway.Image, _ gateway.Metadata) (*gateway.Submission, error) {
			return nil, err
		},
		PollStatusFunc: func(_ context.Context, _, _ string) (*gateway.StatusPayload, error) {
			return nil, err
		},
		FetchResultFunc: func(_ context.Context, _ string) (*models.RemoteRecord, error) {
			return nil, err
		},
		HealthCheckFunc: func(_ context.Context) bool { return false },
		ListCatalogFunc: func(_ context.Context) ([]models.RemoteRecord, error) {
			return nil, err
		},
	}
}

// NewTimeoutClient returns a MockClient that blocks until the context is cancelled.
func NewTimeoutClient() *MockClient {
	return &MockClient{
		SubmitFunc: func(ctx context.Context, _ gateway.Image, _ gateway.Metadata) (*gateway.Submission, error) {
			<-ctx.Done()
			return nil, gateway.ErrGatewayUnavailable
		},
		PollStatusFunc: func(ctx context.Context, _, _ string) (*gateway.StatusPayload, error) {
			<-ctx.Done()
			return nil, gateway.ErrGatewayUnavailable
		},
		FetchResultFunc: func(ctx context.Context, _ string) (*models.RemoteRecord, error) {
			<-ctx.Done()
			return nil, gateway.ErrGatewayUnavailable
		},
		HealthCheckFunc: func(ctx context.Context) bool {
			<-ctx.Done()
			return false
		},
		ListCatalogFunc: func(ctx context.Context) ([]models.RemoteRecord, error) {
			<-ctx.Done()
			return nil, gateway.ErrGatewayUnavailable
		},
	}
}

// Compile-time check that MockClient implements gateway.Client.
var _ gateway.Client = (*MockClient)(nil)
