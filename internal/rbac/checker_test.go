package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChecker_DefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"admin", "user:bulk_upsert", true},
		{"admin", "variant:generate", true},
		{"teacher", "variant:generate", true},
		{"teacher", "question:delete", true},
		{"teacher", "exam:export", true},
		{"teacher", "user:bulk_upsert", false},
		{"viewer", "exam:view", true},
		{"viewer", "exam:export", false},
		{"viewer", "question:create", false},
		{"viewer", "variant:generate", false},
		{"", "exam:view", false},
		{"ghost", "exam:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
	if !c.Any("viewer", "exam:export", "exam:view") {
		t.Error("Any should match exam:view")
	}
	if c.All("viewer", "exam:export", "exam:view") {
		t.Error("All should fail on exam:export")
	}
}

func TestRequire(t *testing.T) {
	h := Require("variant:generate")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for role, want := range map[string]int{
		"teacher": http.StatusNoContent,
		"viewer":  http.StatusForbidden,
		"":        http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if role != "" {
			req = req.WithContext(WithRole(context.Background(), role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %q: status %d, want %d", role, rec.Code, want)
		}
	}
}
