package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, map[string]string{"name": "roadmap"})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	if resp.Message != "ok" {
		t.Errorf("expected message 'ok', got %q", resp.Message)
	}
}

func TestCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Created(c, map[string]int{"id": 1})
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestMessage(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Message(c, "logged out successfully")
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Message != "logged out successfully" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.Data != nil {
		t.Error("expected no data payload")
	}
}

func TestErrorWithAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantCode   int
	}{
		{"bad request", NewBadRequest("Project must have at least one manager"), 400, 400},
		{"unauthorized", NewUnauthorized("invalid or expired token"), 401, 401},
		{"forbidden", NewForbidden("access denied"), 403, 403},
		{"not found", NewNotFound("task not found"), 404, 404},
		{"conflict", NewConflict("user with this email already exists"), 409, 409},
		{"server error", NewServerError("database unavailable"), 500, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(func(c *gin.Context) {
				Error(c, tt.err)
			})

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}

			resp := parseResponse(t, w)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
			if resp.Message != tt.err.Message {
				t.Errorf("expected message %q, got %q", tt.err.Message, resp.Message)
			}
		})
	}
}

func TestErrorWithWrappedAppError(t *testing.T) {
	// errors.As must unwrap AppError from a wrapped chain
	base := NewNotFound("project not found")
	wrapped := errorsJoin(base)

	w := performRequest(func(c *gin.Context) {
		Error(c, wrapped)
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func errorsJoin(err error) error {
	return errors.Join(errors.New("context"), err)
}

func TestErrorWithPlainError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.New("something broke"))
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 500 {
		t.Errorf("expected code 500, got %d", resp.Code)
	}
}

func TestAppErrorImplementsError(t *testing.T) {
	var err error = NewForbidden("no access")
	if err.Error() != "no access" {
		t.Errorf("Error() = %q, expected %q", err.Error(), "no access")
	}
}
