package email

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_HandleSend(t *testing.T) {
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithLatency(func() time.Duration { return 0 }))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "sends valid email",
			body:       `{"to":"merchant@example.com","subject":"COD order confirmed: 1","body":"collect 1200.00"}`,
			wantStatus: http.StatusOK,
			wantBody:   `"status":"sent"`,
		},
		{
			name:       "rejects malformed json",
			body:       `{"to":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid request body",
		},
		{
			name:       "rejects invalid address",
			body:       `{"to":"not-an-address","subject":"s","body":"b"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "To",
		},
		{
			name:       "rejects missing subject",
			body:       `{"to":"merchant@example.com","body":"b"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "Subject",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.HandleSend(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
