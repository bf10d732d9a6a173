package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"expertly/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
)

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantBody   string
	}{
		{
			name: "all dependencies up",
			checks: map[string]Pinger{
				"mongo": PingFunc(func(context.Context) error { return nil }),
				"redis": PingFunc(func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusOK,
			wantBody:   "ready",
		},
		{
			name: "mongo down",
			checks: map[string]Pinger{
				"mongo": PingFunc(func(context.Context) error { return errors.New("no reachable servers") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHandler(tt.checks, logger.Discard()).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp Response
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("status field = %q, want %q", resp.Status, tt.wantBody)
			}
		})
	}
}
