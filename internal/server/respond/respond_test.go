package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusCreated, map[string]string{"id": "abc"})

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"id":"abc"}` {
		t.Errorf("body = %q", got)
	}
}

func TestJSON_NilBody(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusNoContent, nil)
	if rr.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rr.Body.String())
	}
}

func TestError(t *testing.T) {
	rr := httptest.NewRecorder()
	Error(rr, http.StatusForbidden, "forbidden", "insufficient privileges")

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
	want := `{"error":{"code":"forbidden","message":"insufficient privileges"}}`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Email string `json:"email"`
	}
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@x.com"}`))
	if err := Decode(req, &v); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Email != "a@x.com" {
		t.Errorf("email = %q", v.Email)
	}
}

func TestDecode_UnknownField(t *testing.T) {
	var v struct {
		Email string `json:"email"`
	}
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@x.com","admin":true}`))
	if err := Decode(req, &v); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestDecode_BodyTooLarge(t *testing.T) {
	var v struct {
		Data string `json:"data"`
	}
	big := `{"data":"` + strings.Repeat("x", 1<<21) + `"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(big))
	if err := Decode(req, &v); !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("err = %v, want ErrBodyTooLarge", err)
	}
}
