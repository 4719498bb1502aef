package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	mockapi "github.com/Sternrassler/trade-paginator/internal/testutil"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_DefaultUserAgent(t *testing.T) {
	tr := New(Config{})
	if tr.config.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", tr.config.UserAgent, DefaultUserAgent)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, DefaultUserAgent)
	}
	if cfg.MaxBodyBytes <= 0 {
		t.Errorf("MaxBodyBytes = %d, want > 0", cfg.MaxBodyBytes)
	}
}

func TestPerformRequest_Success(t *testing.T) {
	mock := mockapi.NewMockTradesAPI()
	defer mock.Close()

	body := `[` + mockapi.TradeJSON(7, 1611853484, "buy", "174799.8998", "0.00932356") + `]`
	mock.SetPage(7, body)

	before := testutil.ToFloat64(requestsTotal.WithLabelValues("200"))

	tr := New(Config{UserAgent: "TestApp/1.0.0"})
	data, err := tr.PerformRequest(context.Background(), mock.URL()+"?tid=7", time.Second)
	if err != nil {
		t.Fatalf("PerformRequest() error = %v", err)
	}

	if string(data) != body {
		t.Errorf("body = %q, want %q", string(data), body)
	}
	userAgent, accept := mock.GetLastHeaders()
	if userAgent != "TestApp/1.0.0" {
		t.Errorf("User-Agent = %q, want %q", userAgent, "TestApp/1.0.0")
	}
	if accept != "application/json" {
		t.Errorf("Accept = %q, want application/json", accept)
	}

	after := testutil.ToFloat64(requestsTotal.WithLabelValues("200"))
	if after-before != 1 {
		t.Errorf("requests_total{status=200} delta = %v, want 1", after-before)
	}
}

func TestPerformRequest_StatusErrors(t *testing.T) {
	tests := []struct {
		name          string
		response      mockapi.MockResponse
		expectedClass ErrorClass
		expectedCode  int
	}{
		{
			name:          "server error",
			response:      mockapi.NewServerErrorResponse(),
			expectedClass: ErrorClassServer,
			expectedCode:  http.StatusInternalServerError,
		},
		{
			name:          "rate limited",
			response:      mockapi.NewRateLimitResponse(),
			expectedClass: ErrorClassRateLimit,
			expectedCode:  http.StatusTooManyRequests,
		},
		{
			name: "not found",
			response: mockapi.MockResponse{
				StatusCode: http.StatusNotFound,
				Body:       `{"error": "not found"}`,
			},
			expectedClass: ErrorClassClient,
			expectedCode:  http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := mockapi.NewMockTradesAPI()
			defer mock.Close()
			mock.SetResponse(1, tt.response)

			tr := New(DefaultConfig())
			data, err := tr.PerformRequest(context.Background(), mock.URL()+"?tid=1", time.Second)
			if err == nil {
				t.Fatalf("expected error, got body %q", string(data))
			}

			var netErr *NetworkError
			if !errors.As(err, &netErr) {
				t.Fatalf("error type = %T, want *NetworkError", err)
			}
			if netErr.ErrorClass != tt.expectedClass {
				t.Errorf("ErrorClass = %q, want %q", netErr.ErrorClass, tt.expectedClass)
			}
			if netErr.StatusCode != tt.expectedCode {
				t.Errorf("StatusCode = %d, want %d", netErr.StatusCode, tt.expectedCode)
			}
			if IsTimeout(err) {
				t.Error("status errors must not be classified as timeouts")
			}
		})
	}
}

func TestPerformRequest_Timeout(t *testing.T) {
	mock := mockapi.NewMockTradesAPI()
	defer mock.Close()
	mock.SetResponse(1, mockapi.NewSlowResponse("[]", 500*time.Millisecond))

	tr := New(DefaultConfig())

	start := time.Now()
	_, err := tr.PerformRequest(context.Background(), mock.URL()+"?tid=1", 20*time.Millisecond)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !IsTimeout(err) {
		t.Errorf("IsTimeout() = false for %v", err)
	}
	if elapsed > 400*time.Millisecond {
		t.Errorf("request took %v, timeout was not honored", elapsed)
	}
}

func TestPerformRequest_ConnectionRefused(t *testing.T) {
	mock := mockapi.NewMockTradesAPI()
	url := mock.URL() + "?tid=1"
	mock.Close()

	tr := New(DefaultConfig())
	_, err := tr.PerformRequest(context.Background(), url, time.Second)
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if class := ClassOf(err); class != ErrorClassNetwork {
		t.Errorf("ClassOf() = %q, want %q", class, ErrorClassNetwork)
	}
}

func TestPerformRequest_InvalidURL(t *testing.T) {
	tr := New(DefaultConfig())
	_, err := tr.PerformRequest(context.Background(), "://bad url", time.Second)
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error type = %T, want *NetworkError", err)
	}
}

func TestPerformRequest_MaxBodyBytes(t *testing.T) {
	const body = `[{"tid":1},{"tid":2}]`

	tests := []struct {
		name     string
		maxBytes int64
		wantErr  bool
	}{
		{name: "unlimited", maxBytes: 0},
		{name: "exactly at limit", maxBytes: int64(len(body))},
		{name: "one byte over limit", maxBytes: int64(len(body)) - 1, wantErr: true},
		{name: "far over limit", maxBytes: 12, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := mockapi.NewMockTradesAPI()
			defer mock.Close()
			mock.SetPage(1, body)

			tr := New(Config{MaxBodyBytes: tt.maxBytes})
			data, err := tr.PerformRequest(context.Background(), mock.URL()+"?tid=1", time.Second)

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("PerformRequest() error = %v", err)
				}
				if string(data) != body {
					t.Errorf("body = %q, want %q", string(data), body)
				}
				return
			}

			if data != nil {
				t.Errorf("body = %q, want nil on oversize response", string(data))
			}
			var netErr *NetworkError
			if !errors.As(err, &netErr) {
				t.Fatalf("error type = %T, want *NetworkError", err)
			}
			if netErr.StatusCode != http.StatusOK {
				t.Errorf("StatusCode = %d, want 200", netErr.StatusCode)
			}
			want := fmt.Sprintf("body exceeds %d bytes", tt.maxBytes)
			if netErr.Message != want {
				t.Errorf("Message = %q, want %q", netErr.Message, want)
			}
		})
	}
}
