package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPreview(t *testing.T) {
	blob := "first\n\nsecond\n::long_pause\n::edit_last_message fixed\n::reaction 🙂\n::bogus 3"
	out, err := run(t, blob, "preview")
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		`#1 text "first"`,
		`#2 text "second"`,
		`   pause`,
		`   edit -1 -> "fixed"`,
		`   react 🙂`,
		`#3 text "::bogus 3"`,
	}, "\n") + "\n"
	if out != want {
		t.Fatalf("preview output:\n%s\nwant:\n%s", out, want)
	}
}

func TestPreviewBlank(t *testing.T) {
	out, err := run(t, "  \n\n ", "preview")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "(nothing visible") {
		t.Fatalf("output = %q", out)
	}

	out, _ = run(t, "::delete_last_messages 2\n::long_pause\n", "preview")
	if out != "(nothing visible: the fallback line would be sent)\n" {
		t.Fatalf("directive-only output = %q", out)
	}
}

func TestSettingsAndCooldowns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	out, err := run(t, "", "--storage", path, "settings", "set", "g1", "--cooldown", "5", "--whitelist", "c1,c2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "cooldown:  5s") || !strings.Contains(out, "whitelist: c1,c2") {
		t.Fatalf("set output = %q", out)
	}

	out, _ = run(t, "", "--storage", path, "settings", "show", "g1")
	if !strings.Contains(out, "mentions:  true") || !strings.Contains(out, "cooldown:  5s") {
		t.Fatalf("show output = %q", out)
	}

	if _, err := run(t, "", "--storage", path, "settings", "reset", "g1"); err != nil {
		t.Fatal(err)
	}
	out, _ = run(t, "", "--storage", path, "settings", "show", "g1")
	if !strings.Contains(out, "cooldown:  30s") || !strings.Contains(out, "whitelist: -") {
		t.Fatalf("after reset = %q", out)
	}

	out, err = run(t, "", "--storage", path, "cooldowns", "list")
	if err != nil || !strings.Contains(out, "No active cooldowns.") {
		t.Fatalf("list = %q, %v", out, err)
	}
	if _, err := run(t, "", "--storage", path, "cooldowns", "clear", "planet"); err == nil {
		t.Fatal("unknown scope accepted")
	}
	if _, err := run(t, "", "--storage", path, "cooldowns", "clear", "user", "g1", "u1"); err != nil {
		t.Fatal(err)
	}
	out, _ = run(t, "", "--storage", path, "cooldowns", "sweep")
	if !strings.Contains(out, "Removed 0 expired cooldowns.") {
		t.Fatalf("sweep = %q", out)
	}
}
