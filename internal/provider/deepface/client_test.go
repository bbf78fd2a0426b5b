package deepface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Represent(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse interface{}
		serverStatus   int
		wantErr        bool
		wantErrContain string
		validateResp   func(*testing.T, *RepresentResponse)
	}{
		{
			name: "single face",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{
						Embedding:  make([]float64, 128),
						FacialArea: FacialArea{X: 10, Y: 20, W: 100, H: 100},
					},
				},
			},
			serverStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp *RepresentResponse) {
				require.NotNil(t, resp)
				require.Len(t, resp.Results, 1)
				assert.Len(t, resp.Results[0].Embedding, 128)
				assert.Equal(t, FacialArea{X: 10, Y: 20, W: 100, H: 100}, resp.Results[0].FacialArea)
			},
		},
		{
			name:           "empty response",
			serverResponse: RepresentResponse{Results: []RepresentResult{}},
			serverStatus:   http.StatusOK,
			validateResp: func(t *testing.T, resp *RepresentResponse) {
				require.NotNil(t, resp)
				assert.Empty(t, resp.Results)
			},
		},
		{
			name:           "bad request 400",
			serverResponse: map[string]string{"error": "invalid image format"},
			serverStatus:   http.StatusBadRequest,
			wantErr:        true,
			wantErrContain: "status 400",
		},
		{
			name:           "service unavailable 503",
			serverResponse: map[string]string{"error": "service temporarily unavailable"},
			serverStatus:   http.StatusServiceUnavailable,
			wantErr:        true,
			wantErrContain: "deepface service unavailable",
		},
		{
			name:           "invalid json response",
			serverResponse: "not a valid json",
			serverStatus:   http.StatusOK,
			wantErr:        true,
			wantErrContain: "invalid response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/represent", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req RepresentRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.True(t, strings.HasPrefix(req.Img, "data:image/jpeg;base64,"))
				assert.Equal(t, "Dlib", req.Model)
				assert.Equal(t, "dlib", req.Detector)
				assert.True(t, req.EnforceDetection)

				w.WriteHeader(tt.serverStatus)
				if str, ok := tt.serverResponse.(string); ok {
					_, _ = w.Write([]byte(str))
				} else {
					_ = json.NewEncoder(w).Encode(tt.serverResponse)
				}
			}))
			defer server.Close()

			config := DefaultConfig()
			config.BaseURL = server.URL
			config.RetryCount = 0

			resp, err := NewClient(config).Represent(context.Background(), "dGVzdA==")

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrContain)
				return
			}

			require.NoError(t, err)
			tt.validateResp(t, resp)
		})
	}
}

func TestClient_RetryOnFailure(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(RepresentResponse{Results: []RepresentResult{}})
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.RetryCount = 2

	resp, err := NewClient(config).Represent(context.Background(), "dGVzdA==")

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestClient_RetryExhaustion(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.RetryCount = 1

	_, err := NewClient(config).Represent(context.Background(), "dGVzdA==")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeepFaceUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts), "expected initial attempt + 1 retry")
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid request"}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.RetryCount = 3

	_, err := NewClient(config).Represent(context.Background(), "dGVzdA==")

	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(config).Represent(ctx, "dGVzdA==")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 32 * time.Second},
		{10, 32 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateBackoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestStatusError(t *testing.T) {
	err := &StatusError{StatusCode: 404, Body: "not found"}
	assert.True(t, err.IsClientError())
	assert.Equal(t, "deepface returned status 404: not found", err.Error())

	assert.False(t, (&StatusError{StatusCode: 502}).IsClientError())
	assert.False(t, isClientError(assert.AnError))
}
