package web

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateSessionID(t *testing.T) {
	id, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}

	// 16 bytes = 32 hex characters
	if len(id) != SessionIDLength*2 {
		t.Errorf("GenerateSessionID() length = %d, want %d", len(id), SessionIDLength*2)
	}

	if _, err := hex.DecodeString(id); err != nil {
		t.Errorf("GenerateSessionID() returned invalid hex: %v", err)
	}
}

func TestGenerateSessionID_Uniqueness(t *testing.T) {
	const numIDs = 100
	ids := make(map[string]bool, numIDs)

	for i := 0; i < numIDs; i++ {
		id, err := GenerateSessionID()
		if err != nil {
			t.Fatalf("GenerateSessionID() error = %v", err)
		}
		if ids[id] {
			t.Errorf("GenerateSessionID() generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestGetSessionID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "no session ID in context",
			ctx:  context.Background(),
			want: "",
		},
		{
			name: "session ID in context",
			ctx:  setSessionID(context.Background(), "test-session-id"),
			want: "test-session-id",
		},
		{
			name: "wrong type in context",
			ctx:  context.WithValue(context.Background(), sessionIDKey, 12345),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetSessionID(tt.ctx); got != tt.want {
				t.Errorf("GetSessionID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateSessionID(t *testing.T) {
	valid, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid generated ID", valid, true},
		{"empty string", "", false},
		{"too short", "abcd", false},
		{"too long", valid + "00", false},
		{"right length but not hex", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateSessionID(tt.id); got != tt.want {
				t.Errorf("ValidateSessionID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestSessionMiddleware_NewSession(t *testing.T) {
	var gotID string
	handler := SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetSessionID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !ValidateSessionID(gotID) {
		t.Errorf("handler saw session ID %q, want a valid generated ID", gotID)
	}

	cookies := w.Result().Cookies()
	var found *http.Cookie
	for _, c := range cookies {
		if c.Name == SessionCookieName {
			found = c
		}
	}
	if found == nil {
		t.Fatalf("no %s cookie set on response", SessionCookieName)
	}
	if found.Value != gotID {
		t.Errorf("cookie value = %q, want %q", found.Value, gotID)
	}
	if !found.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}
}

func TestSessionMiddleware_ExistingSession(t *testing.T) {
	existing, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID() error = %v", err)
	}

	var gotID string
	handler := SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetSessionID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: existing})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if gotID != existing {
		t.Errorf("handler saw session ID %q, want existing %q", gotID, existing)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("middleware re-set the cookie for a valid existing session")
	}
}

func TestSessionMiddleware_InvalidCookieReplaced(t *testing.T) {
	var gotID string
	handler := SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetSessionID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "not-a-session"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if gotID == "not-a-session" {
		t.Error("middleware accepted an invalid session ID")
	}
	if !ValidateSessionID(gotID) {
		t.Errorf("handler saw session ID %q, want a freshly generated ID", gotID)
	}
	if len(w.Result().Cookies()) == 0 {
		t.Error("middleware did not set a replacement cookie")
	}
}
