package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ALEXSANDER2002/aritana/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newTestClient(t *testing.T, baseURL string, options ...Option) *HTTPClient {
	t.Helper()
	return NewHTTPClient(Options{
		BaseURL:       baseURL,
		APIKey:        "secret",
		RetryInterval: time.Millisecond,
	}, options...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// --- Submit ---

func TestSubmit_SendsMultipartWithDefaults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embarcacoes", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Norte", r.FormValue("regiao"))
		assert.Equal(t, "Belém", r.FormValue("localidade"))
		assert.Equal(t, "-1.4558", r.FormValue("latitude"))
		assert.Equal(t, "-48.5044", r.FormValue("longitude"))
		assert.Equal(t, "2025-03-10T12:00:00Z", r.FormValue("data_foto"))
		assert.Equal(t, "barco.jpg", r.FormValue("titulo"))
		assert.Equal(t, DefaultDescription, r.FormValue("descricao"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "barco.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("jpeg-bytes"), data)

		writeJSON(w, map[string]any{
			"job_id":     "abc123",
			"status_url": "http://gateway/jobs/abc123",
			"result_url": "http://gateway/results/abc123",
		})
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL, WithClock(func() time.Time { return fixedNow }))
	sub, err := c.Submit(context.Background(), Image{Name: "barco.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")}, Metadata{})
	require.NoError(t, err)
	assert.Equal(t, "abc123", sub.JobID)
	assert.Equal(t, "http://gateway/jobs/abc123", sub.StatusURL)
	assert.Equal(t, "http://gateway/results/abc123", sub.ResultURL)
}

func TestSubmit_KeepsProvidedMetadata(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Sul", r.FormValue("regiao"))
		assert.Equal(t, "Sul", r.FormValue("localidade"), "locality falls back to region")
		assert.Equal(t, "-2.5", r.FormValue("latitude"))
		assert.Equal(t, "Balsa", r.FormValue("titulo"))
		assert.Equal(t, "Balsa no rio", r.FormValue("descricao"))
		writeJSON(w, map[string]any{"job_id": "j"})
	}))
	defer ts.Close()

	lat := -2.5
	c := newTestClient(t, ts.URL)
	_, err := c.Submit(context.Background(), Image{Name: "x.png", Data: []byte("png")}, Metadata{
		Title:       "Balsa",
		Description: "Balsa no rio",
		Region:      "Sul",
		Latitude:    &lat,
	})
	require.NoError(t, err)
}

func TestSubmit_NormalizesNumericID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id": 42, "status": "queued"}`)
	}))
	defer ts.Close()

	sub, err := newTestClient(t, ts.URL).Submit(context.Background(), Image{Name: "a.jpg"}, Metadata{})
	require.NoError(t, err)
	assert.Equal(t, "42", sub.JobID)
}

func TestSubmit_MissingJobID(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, map[string]any{"detail": "accepted"})
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Submit(context.Background(), Image{Name: "a.jpg"}, Metadata{})
	assert.ErrorIs(t, err, ErrMissingJobID)
	assert.Equal(t, int32(1), calls.Load(), "a missing job id is not retried")
}

func TestSubmit_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"job_id": "late"})
	}))
	defer ts.Close()

	sub, err := newTestClient(t, ts.URL).Submit(context.Background(), Image{Name: "a.jpg", Data: []byte("x")}, Metadata{})
	require.NoError(t, err)
	assert.Equal(t, "late", sub.JobID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSubmit_RetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Submit(context.Background(), Image{Name: "a.jpg"}, Metadata{})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestSubmit_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).Submit(context.Background(), Image{Name: "a.jpg"}, Metadata{})
	require.ErrorIs(t, err, ErrGatewayUnavailable)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmit_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	c := NewHTTPClient(Options{BaseURL: ts.URL, SubmitTimeout: 30 * time.Millisecond, MaxRetries: -1})
	start := time.Now()
	_, err := c.Submit(context.Background(), Image{Name: "a.jpg"}, Metadata{})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSubmit_Unreachable(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.Submit(context.Background(), Image{Name: "a.jpg"}, Metadata{})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

// --- PollStatus ---

func TestPollStatus_UsesStatusURLOverHTTPS(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v2/status/abc", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{"status": "processing", "progress": 40, "message": "detecting"})
	}))
	defer ts.Close()

	insecure := strings.Replace(ts.URL, "https://", "http://", 1) + "/v2/status/abc"
	c := newTestClient(t, "https://unused.invalid", WithHTTPClient(ts.Client()))

	payload, err := c.PollStatus(context.Background(), "abc", insecure)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, StatusRunning, payload.Status)
	require.NotNil(t, payload.Progress)
	assert.Equal(t, 40, *payload.Progress)
	assert.Equal(t, "detecting", payload.Message)
}

func TestPollStatus_BuildsPathFromJobID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/abc123", r.URL.Path)
		writeJSON(w, map[string]any{"status": "queued"})
	}))
	defer ts.Close()

	payload, err := newTestClient(t, ts.URL).PollStatus(context.Background(), "abc123", "")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, payload.Status)
	assert.Nil(t, payload.Progress)
}

func TestPollStatus_LocalizedKeys(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"Concluido","progresso":"100","mensagem":"pronto","resource_id":77}`)
	}))
	defer ts.Close()

	payload, err := newTestClient(t, ts.URL).PollStatus(context.Background(), "j", "")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, payload.Status)
	assert.Equal(t, "Concluido", payload.RawStatus)
	require.NotNil(t, payload.Progress)
	assert.Equal(t, 100, *payload.Progress)
	assert.Equal(t, "pronto", payload.Message)
	assert.Equal(t, "77", payload.ResourceID)
}

func TestPollStatus_SingleAttemptOnFailure(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	payload, err := newTestClient(t, ts.URL).PollStatus(context.Background(), "j", "")
	assert.Nil(t, payload)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollStatus_Malformed(t *testing.T) {
	for _, body := range []string{`not json`, `["processing"]`, `"processing"`} {
		t.Run(body, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer ts.Close()

			payload, err := newTestClient(t, ts.URL).PollStatus(context.Background(), "j", "")
			assert.Nil(t, payload)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestPollStatus_NoTarget(t *testing.T) {
	_, err := newTestClient(t, "http://unused").PollStatus(context.Background(), " ", "")
	assert.Error(t, err)
}

// --- FetchResult ---

func TestFetchResult_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID string
	}{
		{name: "single-element list", body: `[{"id": 9, "classificacao": "legal"}]`, wantID: "9"},
		{name: "object", body: `{"id": "9", "classificacao": "legal"}`, wantID: "9"},
		{name: "wrapped list", body: `{"embarcacoes": [{"id": "9", "classificacao": "legal"}]}`, wantID: "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/embarcacoes", r.URL.Path)
				assert.Equal(t, "9", r.URL.Query().Get("id"))
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			rec, err := newTestClient(t, ts.URL).FetchResult(context.Background(), "9")
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, tt.wantID, rec.ID)
			assert.Equal(t, "legal", rec.Classification)
		})
	}
}

func TestFetchResult_EmptyListIsNotYetAvailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer ts.Close()

	rec, err := newTestClient(t, ts.URL).FetchResult(context.Background(), "9")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFetchResult_DecodesFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{
			"id": 12, "classificacao": "ilegal", "regiao": "Norte", "localidade": "Belém",
			"titulo": "Balsa", "descricao": "Perto do porto",
			"latitude": "-1.45", "longitude": -48.5, "confianca": 87.5,
			"data_cadastro": "2025-01-02T10:00:00Z", "data_foto": "2025-01-01",
			"imagem_url": "https://img/1.jpg", "imagem_processada_url": "https://img/1-p.jpg"
		}]`)
	}))
	defer ts.Close()

	rec, err := newTestClient(t, ts.URL).FetchResult(context.Background(), "12")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "12", rec.ID)
	assert.Equal(t, "ilegal", rec.Classification)
	assert.Equal(t, "Norte", rec.Region)
	assert.Equal(t, "Belém", rec.Locality)
	assert.Equal(t, "Balsa", rec.Title)
	require.NotNil(t, rec.Latitude)
	assert.InDelta(t, -1.45, *rec.Latitude, 1e-9)
	require.NotNil(t, rec.Longitude)
	assert.InDelta(t, -48.5, *rec.Longitude, 1e-9)
	require.NotNil(t, rec.Confidence)
	assert.InDelta(t, 87.5, *rec.Confidence, 1e-9)
	assert.Equal(t, "2025-01-02T10:00:00Z", rec.RegisteredAt)
	assert.Equal(t, "https://img/1-p.jpg", rec.ProcessedImageURL)
}

func TestFetchResult_Malformed(t *testing.T) {
	for _, body := range []string{`"done"`, `42`, `[1, 2]`, `{"classificacao": "legal"}`} {
		t.Run(body, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer ts.Close()

			rec, err := newTestClient(t, ts.URL).FetchResult(context.Background(), "9")
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

// --- HealthCheck ---

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{name: "pong", status: http.StatusOK, body: `{"message":"pong"}`, want: true},
		{name: "other message", status: http.StatusOK, body: `{"message":"ok"}`, want: false},
		{name: "missing message", status: http.StatusOK, body: `{}`, want: false},
		{name: "pong with error status", status: http.StatusInternalServerError, body: `{"message":"pong"}`, want: false},
		{name: "not json", status: http.StatusOK, body: `pong`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/ping", r.URL.Path)
				assert.Empty(t, r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			assert.Equal(t, tt.want, newTestClient(t, ts.URL).HealthCheck(context.Background()))
		})
	}
}

func TestHealthCheck_Unreachable(t *testing.T) {
	assert.False(t, newTestClient(t, "http://127.0.0.1:1").HealthCheck(context.Background()))
}

// --- ListCatalog ---

func catalogServer(t *testing.T, total int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		page := []map[string]any{}
		for i := skip; i < total && i < skip+limit; i++ {
			page = append(page, map[string]any{"id": i + 1, "classificacao": "legal"})
		}
		writeJSON(w, page)
	}))
}

func TestListCatalog_PaginatesUntilShortPage(t *testing.T) {
	var calls atomic.Int32
	ts := catalogServer(t, 250, &calls)
	defer ts.Close()

	records, err := newTestClient(t, ts.URL).ListCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 250)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "250", records[249].ID)
}

func TestListCatalog_ExactMultipleNeedsExtraPage(t *testing.T) {
	var calls atomic.Int32
	ts := catalogServer(t, 200, &calls)
	defer ts.Close()

	records, err := newTestClient(t, ts.URL).ListCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 200)
	assert.Equal(t, int32(3), calls.Load(), "third page comes back empty")
}

func TestListCatalog_PageCap(t *testing.T) {
	var calls atomic.Int32
	ts := catalogServer(t, 10_000, &calls)
	defer ts.Close()

	c := NewHTTPClient(Options{BaseURL: ts.URL, CatalogPageSize: 100, CatalogMaxPages: 2})
	records, err := c.ListCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 200)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListCatalog_FirstPageFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	records, err := newTestClient(t, ts.URL).ListCatalog(context.Background())
	assert.Nil(t, records)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestListCatalog_LaterPageFailureReturnsPartial(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("skip") != "0" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		page := make([]map[string]any, 100)
		for i := range page {
			page[i] = map[string]any{"id": i}
		}
		writeJSON(w, page)
	}))
	defer ts.Close()

	records, err := newTestClient(t, ts.URL).ListCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 100)
}

// --- metrics ---

func TestClient_RecordsMetrics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"message":"pong"}`)
	}))
	defer ts.Close()

	provider := telemetry.NewProvider()
	c := newTestClient(t, ts.URL, WithMetrics(provider))
	require.True(t, c.HealthCheck(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(provider.Metrics.GatewayRequests.WithLabelValues("health", "success")))
}

// --- ParseStatus ---

func TestParseStatus(t *testing.T) {
	tests := []struct {
		token string
		want  JobStatus
	}{
		{"queued", StatusQueued},
		{"pendente", StatusQueued},
		{"processando", StatusRunning},
		{"PROCESSING", StatusRunning},
		{"running", StatusRunning},
		{"in progress", StatusRunning},
		{"in-progress", StatusRunning},
		{"concluido", StatusSucceeded},
		{"concluído", StatusSucceeded},
		{"completed", StatusSucceeded},
		{" Succeeded ", StatusSucceeded},
		{"erro", StatusFailed},
		{"error", StatusFailed},
		{"failed", StatusFailed},
		{"", StatusUnknown},
		{"exploded", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.token))
		})
	}
}

func TestJobStatusString(t *testing.T) {
	assert.Equal(t, "queued", StatusQueued.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "succeeded", StatusSucceeded.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", StatusUnknown.String())
}

func TestDecodeStatus_Progress(t *testing.T) {
	tests := []struct {
		body string
		want *int
	}{
		{`{"status":"running","progress":42.6}`, intPtr(43)},
		{`{"status":"running","progress":"55%"}`, intPtr(55)},
		{`{"status":"running","progress":150}`, intPtr(100)},
		{`{"status":"running","progress":-3}`, intPtr(0)},
		{`{"status":"running","progress":null,"progresso":12}`, intPtr(12)},
		{`{"status":"running","progress":"soon"}`, nil},
		{`{"status":"running"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			payload, err := decodeStatus([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, payload.Progress)
		})
	}
}

func intPtr(i int) *int { return &i }

// --- Metadata defaults ---

func TestMetadataWithDefaults(t *testing.T) {
	lat := 1.0
	taken := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   Metadata
		want func(t *testing.T, m Metadata)
	}{
		{
			name: "all empty",
			in:   Metadata{},
			want: func(t *testing.T, m Metadata) {
				assert.Equal(t, DefaultRegion, m.Region)
				assert.Equal(t, DefaultLocality, m.Locality)
				assert.Equal(t, DefaultLatitude, *m.Latitude)
				assert.Equal(t, DefaultLongitude, *m.Longitude)
				assert.Equal(t, fixedNow, *m.PhotoTakenAt)
				assert.Equal(t, "foto.jpg", m.Title)
				assert.Equal(t, DefaultDescription, m.Description)
			},
		},
		{
			name: "region only",
			in:   Metadata{Region: "Centro"},
			want: func(t *testing.T, m Metadata) {
				assert.Equal(t, "Centro", m.Region)
				assert.Equal(t, "Centro", m.Locality)
			},
		},
		{
			name: "provided values kept",
			in:   Metadata{Region: "Sul", Locality: "Icoaraci", Latitude: &lat, PhotoTakenAt: &taken, Title: " T "},
			want: func(t *testing.T, m Metadata) {
				assert.Equal(t, "Icoaraci", m.Locality)
				assert.Equal(t, 1.0, *m.Latitude)
				assert.Equal(t, taken, *m.PhotoTakenAt)
				assert.Equal(t, "T", m.Title)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, tt.in.WithDefaults("foto.jpg", fixedNow))
		})
	}
}

func TestSecureURL(t *testing.T) {
	assert.Equal(t, "https://a/jobs/1", secureURL("http://a/jobs/1"))
	assert.Equal(t, "https://a/jobs/1", secureURL("https://a/jobs/1"))
	assert.Equal(t, "", secureURL("  "))
}
