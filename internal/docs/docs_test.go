package docs

import (
	"reflect"
	"strings"
	"testing"
)

func TestTopics(t *testing.T) {
	t.Parallel()

	got := Topics()
	want := []string{"api", "config", "keys"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Topics: got %v want %v", got, want)
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	body, ok := Get(" KEYS ")
	if !ok || !strings.Contains(body, "toggle the selected todo") {
		t.Fatalf("Get(keys): ok=%v body=%q", ok, body)
	}
	for _, bad := range []string{"", "nope", "../docs", "content/keys"} {
		if _, ok := Get(bad); ok {
			t.Fatalf("Get(%q): expected miss", bad)
		}
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	if got := Title("api"); got != "Remote API" {
		t.Fatalf("Title(api): got %q", got)
	}
	if got := Title("missing"); got != "missing" {
		t.Fatalf("Title(missing): got %q", got)
	}
}
