package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/offline-tasks/internal/platform/msgchan"
	apperrors "github.com/louisbranch/offline-tasks/internal/services/tasks/platform/errors"
)

func TestReadFormKeepsOrder(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("b=2&a=1+one&b=3"))
	f, err := readForm(req)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	if first, _ := f.GetOrFirst("missing"); first != "2" {
		t.Fatalf("first = %q, want 2", first)
	}
	if a, _ := f.Get("a"); a != "1 one" {
		t.Fatalf("a = %q, want %q", a, "1 one")
	}
	if b, _ := f.Get("b"); b != "2" {
		t.Fatalf("b = %q, want first value 2", b)
	}
}

func TestReadFormRejectsMalformed(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("task=%zz"))
	if _, err := readForm(req); !apperrors.Is(err, apperrors.KindInvalidInput) {
		t.Fatalf("readForm() error = %v, want invalid input", err)
	}
}

func TestReadFormJSONSignals(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"hi","n":1}`))
	req.Header.Set("Content-Type", "application/json")
	f, err := readForm(req)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	if title, ok := f.Get("title"); !ok || title != "hi" {
		t.Fatalf("title = %q, %v", title, ok)
	}
	if _, ok := f.Get("n"); ok {
		t.Fatal("non-string signals should be skipped")
	}
}

func TestReadFormJSONSignalsSortedByKey(t *testing.T) {
	t.Parallel()

	for range 20 {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"zeta":"z","alpha":"a","mid":"m"}`))
		req.Header.Set("Content-Type", "application/json")
		f, err := readForm(req)
		if err != nil {
			t.Fatalf("read form: %v", err)
		}
		if first, _ := f.GetOrFirst("missing"); first != "a" {
			t.Fatalf("first = %q, want a", first)
		}
	}
}

func TestReadFormRejectsLargeBodies(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		contentType string
		body        string
	}{
		"form": {body: "task=" + strings.Repeat("x", maxFormBytes)},
		"json": {contentType: "application/json", body: `{"task":"` + strings.Repeat("x", 1<<20) + `"}`},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			if _, err := readForm(req); !apperrors.Is(err, apperrors.KindInvalidInput) {
				t.Fatalf("readForm() error = %v, want invalid input", err)
			}
		})
	}
}

func TestSanitizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "  milk ", want: "milk"},
		{raw: `a<b>"c"`, want: "a&lt;b&gt;&quot;c&quot;"},
		{raw: "café", want: "café"},
		{raw: "   ", wantErr: true},
		{raw: strings.Repeat("x", maxTitleRunes+1), wantErr: true},
	}
	for _, tc := range tests {
		got, err := sanitizeTitle(tc.raw)
		if tc.wantErr {
			if !apperrors.Is(err, apperrors.KindInvalidInput) {
				t.Fatalf("sanitizeTitle(%q) error = %v, want invalid input", tc.raw, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("sanitizeTitle(%q) = %q, %v, want %q", tc.raw, got, err, tc.want)
		}
	}
}

func TestParseResponseMode(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]ResponseMode{"": ModeRedirect, "Fragment": ModeFragment, "stream": ModeStream} {
		got, err := ParseResponseMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseResponseMode(%q) = %q, %v, want %q", raw, got, err, want)
		}
	}
	if _, err := ParseResponseMode("push"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestSanitizerResponder(t *testing.T) {
	t.Parallel()

	reply, err := SanitizerResponder(msgchan.Message{"_id": "x", "path": "first", "count": 0, "increment": float64(10)})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if reply["result"] != float64(10) || reply["path"] != "first" {
		t.Fatalf("reply = %v", reply)
	}
	for _, key := range []string{"_id", "count", "increment"} {
		if _, ok := reply[key]; ok {
			t.Fatalf("reply should drop %s: %v", key, reply)
		}
	}
	if _, err := SanitizerResponder(msgchan.Message{"count": "zero", "increment": 1}); err == nil {
		t.Fatal("expected error for non-numeric count")
	}
}
