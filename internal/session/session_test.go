package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-master-secret"

func TestIssueAndVerify(t *testing.T) {
	a := New(testSecret)

	token, err := a.Issue("admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if !strings.Contains(token, ".") {
		t.Fatalf("token missing payload/signature separator: %q", token)
	}

	claims := a.Verify(token)
	if claims == nil {
		t.Fatal("freshly issued token failed verification")
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want admin", claims.Role)
	}
	if claims.ExpiresAt-claims.IssuedAt != TokenTTL.Milliseconds() {
		t.Errorf("expiry window = %dms, want %dms", claims.ExpiresAt-claims.IssuedAt, TokenTTL.Milliseconds())
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	a := New(testSecret)

	issued := time.Now()
	a.now = func() time.Time { return issued }
	token, err := a.Issue("admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Just past the expiry.
	a.now = func() time.Time { return issued.Add(TokenTTL + time.Millisecond) }
	if a.Verify(token) != nil {
		t.Error("expired token verified")
	}

	// Just inside the window.
	a.now = func() time.Time { return issued.Add(TokenTTL - time.Millisecond) }
	if a.Verify(token) == nil {
		t.Error("token inside its validity window was rejected")
	}
}

func TestVerifyReturnsNilNeverPanics(t *testing.T) {
	a := New(testSecret)

	for _, token := range []string{
		"",
		"not-a-token",
		"one.two.three",
		"!!!.???",
		"e30.e30", // valid base64, wrong signature
	} {
		if claims := a.Verify(token); claims != nil {
			t.Errorf("Verify(%q) accepted a malformed token", token)
		}
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	a := New(testSecret)
	other := New("another-master-secret")

	token, err := other.Issue("admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if a.Verify(token) != nil {
		t.Error("token signed under a different secret verified")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	a := New(testSecret)

	token, err := a.Issue("admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parts := strings.SplitN(token, ".", 2)
	// Re-encode a different role under the original signature.
	forged := strings.Replace(parts[0], "a", "b", 1) + "." + parts[1]
	if forged != token && a.Verify(forged) != nil {
		t.Error("tampered payload verified")
	}
}

func TestIssueWithoutMasterSecret(t *testing.T) {
	a := New("")

	if _, err := a.Issue("admin"); err == nil {
		t.Error("Issue without a master secret should fail")
	}
	if a.Verify("whatever.sig") != nil {
		t.Error("Verify without a master secret should return nil")
	}
}

func TestExtractToken(t *testing.T) {
	a := New(testSecret)

	t.Run("authorization header wins", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer header-token")
		r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})

		if got := a.ExtractToken(r); got != "header-token" {
			t.Errorf("got %q, want header-token", got)
		}
	})

	t.Run("cookie fallback", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})

		if got := a.ExtractToken(r); got != "cookie-token" {
			t.Errorf("got %q, want cookie-token", got)
		}
	})

	t.Run("similarly named cookie is not matched", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName + "_old", Value: "stale-token"})

		if got := a.ExtractToken(r); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})

	t.Run("non-bearer authorization is ignored", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		if got := a.ExtractToken(r); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}
