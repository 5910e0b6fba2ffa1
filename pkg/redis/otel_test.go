package redis

import (
	"context"
	stderrors "errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"
)

func TestSanitizeKey(t *testing.T) {
	cases := map[string]string{
		"attendify:csrf_token":      "attendify:***",
		"attendify:session_cookies": "attendify:***",
		"attendify:snapshot:7":      "attendify:snapshot:7",
		"secret":                    "***",
	}
	for in, want := range cases {
		if got := SanitizeKey(in); got != want {
			t.Errorf("SanitizeKey(%q) = %q, want %q", in, got, want)
		}
	}

	keys := ExtractKeys([]interface{}{"mget", "a", "b", 3, "c", "d", "e", "f"})
	if len(keys) != maxKeys || keys[0] != "a" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestProcessHookPassesThrough(t *testing.T) {
	hook := NewTracingHook("attendify-test", 0)
	ctx := context.Background()

	miss := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return goredis.Nil })
	if err := miss(ctx, goredis.NewStringCmd(ctx, "get", "attendify:theme")); !stderrors.Is(err, goredis.Nil) {
		t.Fatalf("err = %v", err)
	}

	boom := stderrors.New("connection reset")
	fail := hook.ProcessPipelineHook(func(context.Context, []goredis.Cmder) error { return boom })
	if err := fail(ctx, []goredis.Cmder{goredis.NewStatusCmd(ctx, "set", "k", "v")}); err != boom {
		t.Fatalf("err = %v", err)
	}
}
