package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"

	"taskboard-api/domain"
)

func newContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.JSONSerializer = sonicSerializer{}
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{name: "not found", err: domain.BoardNotFound("4"), status: http.StatusNotFound, body: `{"message":"Board with id 4 does not exist."}`},
		{name: "invalid", err: domain.InvalidSortKey("x"), status: http.StatusBadRequest, body: `{"message":"Can only sort by taskName, dateCreated, or id. Not x."}`},
		{name: "conflict", err: domain.BoardHasUnarchivedTasks("1"), status: http.StatusBadRequest, body: `{"message":"Board with id 1 has unarchived tasks."}`},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, body: `{"message":"Internal server error."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/")
			if err := writeError(c, tt.err); err != nil {
				t.Fatalf("writeError: %v", err)
			}
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.body {
				t.Fatalf("expected body %s, got %s", tt.body, got)
			}
		})
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := httpErrorHandler(logger)

	tests := []struct {
		name    string
		method  string
		err     error
		status  int
		message string
	}{
		{name: "not found route", method: http.MethodGet, err: echo.ErrNotFound, status: http.StatusMethodNotAllowed, message: msgNotSupported},
		{name: "method not allowed", method: http.MethodPut, err: echo.ErrMethodNotAllowed, status: http.StatusMethodNotAllowed, message: msgNotSupported},
		{name: "body too large", method: http.MethodPost, err: echo.ErrStatusRequestEntityTooLarge, status: http.StatusRequestEntityTooLarge, message: http.StatusText(http.StatusRequestEntityTooLarge)},
		{name: "plain error", method: http.MethodGet, err: errors.New("boom"), status: http.StatusInternalServerError, message: msgInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(tt.method, "/x")
			handler(tt.err, c)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if got := decode[messageResponse](t, rec).Message; got != tt.message {
				t.Fatalf("expected %q, got %q", tt.message, got)
			}
		})
	}

	if entry := hook.LastEntry(); entry == nil || entry.Message != "unhandled request error" {
		t.Fatalf("expected unexpected errors to be logged, got %#v", entry)
	}
}

func TestHTTPErrorHandlerHead(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c, rec := newContext(http.MethodHead, "/api/v1/boards")
	httpErrorHandler(logger)(echo.ErrMethodNotAllowed, c)
	if rec.Code != http.StatusMethodNotAllowed || rec.Body.Len() != 0 {
		t.Fatalf("expected bodiless 405, got %d %q", rec.Code, rec.Body.String())
	}
}
