package htmlescape

import (
	"strings"
	"testing"
)

func TestEscapeEntityTable(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"&": "&amp;",
		"<": "&lt;",
		">": "&gt;",
		`"`: "&quot;",
		"'": "&#39;",
		"/": "&#x2F;",
		"`": "&#x60;",
		"=": "&#x3D;",
	}
	for in, want := range tests {
		if got := Escape(in); got != want {
			t.Fatalf("Escape(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeLeavesOtherCharactersAlone(t *testing.T) {
	t.Parallel()

	in := "Buy milk, eggs; café ☕ 100% [ok] (x+y) \\n"
	if got := Escape(in); got != in {
		t.Fatalf("Escape(%q) = %q, want unchanged", in, got)
	}
}

func TestEscapeMixedInput(t *testing.T) {
	t.Parallel()

	in := `<a href="/x?a=1&b='2'">` + "`go`</a>"
	want := "&lt;a href&#x3D;&quot;&#x2F;x?a&#x3D;1&amp;b&#x3D;&#39;2&#39;&quot;&gt;&#x60;go&#x60;&lt;&#x2F;a&gt;"
	if got := Escape(in); got != want {
		t.Fatalf("Escape() = %q, want %q", got, want)
	}
	if NeedsEscape(strings.ReplaceAll(want, "&", "")) {
		t.Fatal("escaped output without ampersands must not need escaping")
	}
}

func TestEscapeIsStableForTextWithoutSpecials(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "plain", "Buy milk", "tab\tand newline\n"} {
		once := Escape(in)
		if twice := Escape(once); twice != once {
			t.Fatalf("Escape(Escape(%q)) = %q, want %q", in, twice, once)
		}
		if NeedsEscape(in) {
			t.Fatalf("NeedsEscape(%q) = true, want false", in)
		}
	}
}

func TestEscapeCountsEveryOccurrence(t *testing.T) {
	t.Parallel()

	in := "a<b<c>>d"
	got := Escape(in)
	if strings.Count(got, "&lt;") != 2 || strings.Count(got, "&gt;") != 2 {
		t.Fatalf("Escape(%q) = %q, want two of each entity", in, got)
	}
}
