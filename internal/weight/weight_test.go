package weight

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	tb := Default()
	if tb.Lookup("builtin") <= tb.Lookup("xcrypto") {
		t.Fatal("builtin should outweigh xcrypto by default")
	}
	if got := tb.Lookup("BUILTIN"); got != tb.Lookup("builtin") {
		t.Fatalf("lookup is not case-insensitive: %d", got)
	}
	if got := tb.Lookup("unknown"); got != 0 {
		t.Fatalf("unknown provider weight = %d, want 0", got)
	}
}

func TestDefault_Independent(t *testing.T) {
	a := Default()
	a.Set("builtin", 100)
	if Default().Lookup("builtin") == 100 {
		t.Fatal("Default tables share state")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	body := "weights:\n  xcrypto: 7\n  custom: 1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tb := Default()
	if err := tb.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := tb.Lookup("xcrypto"); got != 7 {
		t.Fatalf("xcrypto = %d, want 7", got)
	}
	if got := tb.Lookup("custom"); got != 1 {
		t.Fatalf("custom = %d, want 1", got)
	}
	if got := tb.Lookup("builtin"); got != 5 {
		t.Fatalf("builtin = %d, want default 5", got)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tb := Default()
	if err := tb.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("weights: [1, 2"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tb.LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyOverrides(t *testing.T) {
	tb := Default()
	if err := tb.ApplyOverrides(" xcrypto = 9 , openssl=0,"); err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}
	snap := tb.Snapshot()
	if snap["xcrypto"] != 9 || snap["openssl"] != 0 {
		t.Fatalf("snapshot = %v", snap)
	}

	for _, bad := range []string{"xcrypto", "=3", "xcrypto=high"} {
		if err := Default().ApplyOverrides(bad); err == nil {
			t.Fatalf("ApplyOverrides(%q): expected error", bad)
		}
	}
}

func TestPreferring(t *testing.T) {
	tb := Default()
	if got := tb.Preferring("")("builtin"); got != tb.Lookup("builtin") {
		t.Fatalf("empty preference changed weights: %d", got)
	}

	fn := tb.Preferring("xcrypto")
	for _, other := range []string{"simd", "asm", "builtin", "custom"} {
		if fn("XCrypto") <= fn(other) {
			t.Fatalf("xcrypto should outrank %s", other)
		}
	}
	if fn("builtin") != tb.Lookup("builtin") {
		t.Fatal("non-preferred weights should be unchanged")
	}
}
