package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha3"
	"encoding/hex"
	"errors"
	"hash"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rafalsk/botan/internal/config"
	"github.com/rafalsk/botan/internal/spec"
)

/* ----------------------------- test harness ----------------------------- */

type exitPanic struct{ code int }

func patchExit(t *testing.T) func() {
	t.Helper()
	prev := exit
	exit = func(code int) { panic(exitPanic{code}) }
	return func() { exit = prev }
}

// runMain calls main and returns the exit code it requested, or 0 if it
// returned normally.
func runMain(t *testing.T) (code int) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if ep, ok := r.(exitPanic); ok {
			code = ep.code
			return
		}
		t.Fatalf("unexpected panic: %#v", r)
	}()
	main()
	return 0
}

func withArgs(t *testing.T, args []string) func() {
	t.Helper()
	prev := os.Args
	os.Args = append([]string{prev[0]}, args...)
	return func() { os.Args = prev }
}

func captureStdout(t *testing.T) func() string {
	t.Helper()
	old := os.Stdout
	var buf bytes.Buffer
	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan struct{})
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	return func() string {
		_ = w.Close()
		<-done
		os.Stdout = old
		return buf.String()
	}
}

func baseConfig() config.Config {
	return config.Config{PublishSpec: "Stdout", DigestWorkers: 2}
}

func resetSeams() {
	loadConfig = func() (config.Config, error) { return baseConfig(), nil }
	newRegistries = setupRegistries
}

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

/* --------------------------------- tests -------------------------------- */

func TestUsage_NoArgs(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	defer withArgs(t, []string{})()

	out := captureStdout(t)
	code := runMain(t)
	got := out()

	if code != 2 {
		t.Fatalf("want exit 2, got %d", code)
	}
	if !strings.Contains(got, "Usage:") {
		t.Fatalf("expected usage on stdout, got: %q", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	defer withArgs(t, []string{"frobnicate"})()

	out := captureStdout(t)
	code := runMain(t)
	out()
	if code != 2 {
		t.Fatalf("want exit 2, got %d", code)
	}
}

func TestVersion(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	defer withArgs(t, []string{"--version"})()

	out := captureStdout(t)
	code := runMain(t)
	got := out()
	if code != 0 || !strings.HasPrefix(got, "algoctl ") {
		t.Fatalf("code=%d out=%q", code, got)
	}
}

func TestConfigError(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	defer withArgs(t, []string{"providers"})()
	loadConfig = func() (config.Config, error) { return config.Config{}, errors.New("boom") }

	if code := runMain(t); code != 1 {
		t.Fatalf("want exit 1, got %d", code)
	}
}

func TestRegistrySetupError(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	defer withArgs(t, []string{"providers"})()
	loadConfig = func() (config.Config, error) {
		cfg := baseConfig()
		cfg.WeightOverrides = "not-a-pair"
		return cfg, nil
	}

	if code := runMain(t); code != 1 {
		t.Fatalf("want exit 1, got %d", code)
	}
}

func TestProviders(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	defer withArgs(t, []string{"providers", "SHA-3"})()

	out := captureStdout(t)
	code := runMain(t)
	got := out()

	if code != 0 {
		t.Fatalf("want exit 0, got %d", code)
	}
	if !strings.Contains(got, "builtin,xcrypto (default: builtin)") {
		t.Fatalf("unexpected listing: %q", got)
	}
}

func TestProviders_All(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	defer withArgs(t, []string{"providers"})()

	out := captureStdout(t)
	runMain(t)
	got := out()
	for _, want := range []string{"SHA-256", "HMAC", "SipHash", "Stdout"} {
		if !strings.Contains(got, want) {
			t.Fatalf("listing lacks %s: %q", want, got)
		}
	}
}

func TestDigest_PublishesManifest(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	f := writeTemp(t, "a.txt", "hello")
	defer withArgs(t, []string{"digest", "SHA-256", f})()

	out := captureStdout(t)
	code := runMain(t)
	got := out()

	want := sha256.Sum256([]byte("hello"))
	if code != 0 {
		t.Fatalf("want exit 0, got %d", code)
	}
	if got != hex.EncodeToString(want[:])+"  "+f+"\n" {
		t.Fatalf("manifest = %q", got)
	}
}

func TestDigest_ToDirectory(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	dir := t.TempDir()
	loadConfig = func() (config.Config, error) {
		cfg := baseConfig()
		cfg.PublishSpec = "File(" + dir + ")"
		return cfg, nil
	}
	f := writeTemp(t, "a.txt", "hello")
	defer withArgs(t, []string{"digest", "SHA-3(256)", f})()

	if code := runMain(t); code != 0 {
		t.Fatalf("want exit 0, got %d", code)
	}
	body, err := os.ReadFile(filepath.Join(dir, "SHA-3(256).sums"))
	if err != nil || !strings.HasSuffix(string(body), "  "+f+"\n") {
		t.Fatalf("manifest %q, %v", body, err)
	}
}

func TestDigest_Failures(t *testing.T) {
	f := writeTemp(t, "a.txt", "x")
	tests := []struct {
		name     string
		args     []string
		provider string
		code     int
	}{
		{"unknown algorithm", []string{"digest", "Whirlpool", f}, "", 1},
		{"unknown provider", []string{"digest", "SHA-256", f}, "openssl", 1},
		{"bad size", []string{"digest", "SHA-3(100)", f}, "", 1},
		{"missing file", []string{"digest", "SHA-256", f + ".missing"}, "", 1},
		{"bad spec", []string{"digest", "SHA-3(", f}, "", 1},
		{"no files", []string{"digest", "SHA-256"}, "", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetSeams()
			defer patchExit(t)()
			loadConfig = func() (config.Config, error) {
				cfg := baseConfig()
				cfg.Provider = tt.provider
				return cfg, nil
			}
			defer withArgs(t, tt.args)()

			out := captureStdout(t)
			code := runMain(t)
			out()
			if code != tt.code {
				t.Fatalf("want exit %d, got %d", tt.code, code)
			}
		})
	}
}

func TestMAC(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	f := writeTemp(t, "msg", "what do ya want for nothing?")
	defer withArgs(t, []string{"mac", "HMAC(SHA-256)", hex.EncodeToString([]byte("Jefe")), f})()

	out := captureStdout(t)
	code := runMain(t)
	got := out()

	ref := hmac.New(sha256.New, []byte("Jefe"))
	ref.Write([]byte("what do ya want for nothing?"))
	if code != 0 || got != hex.EncodeToString(ref.Sum(nil))+"  "+f+"\n" {
		t.Fatalf("code=%d out=%q", code, got)
	}
}

func TestMAC_PreferredProvider(t *testing.T) {
	resetSeams()
	defer patchExit(t)()
	loadConfig = func() (config.Config, error) {
		cfg := baseConfig()
		cfg.Provider = "xcrypto"
		return cfg, nil
	}
	f := writeTemp(t, "msg", "what do ya want for nothing?")
	key := []byte("Jefe")

	tests := []struct {
		spec string
		ref  func() hash.Hash
	}{
		{"HMAC(SHA-3(256))", func() hash.Hash { return sha3.New256() }},
		{"HMAC(SHA-256)", sha256.New},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			defer withArgs(t, []string{"mac", tt.spec, hex.EncodeToString(key), f})()

			out := captureStdout(t)
			code := runMain(t)
			got := out()

			ref := hmac.New(tt.ref, key)
			ref.Write([]byte("what do ya want for nothing?"))
			if code != 0 || got != hex.EncodeToString(ref.Sum(nil))+"  "+f+"\n" {
				t.Fatalf("code=%d out=%q", code, got)
			}
		})
	}

	cfg, _ := loadConfig()
	regs, err := setupRegistries(cfg)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if p, err := regs.hashes.Resolve(spec.MustNew("SHA-3"), ""); err != nil || p != "xcrypto" {
		t.Fatalf("nested SHA-3 resolves to %q, %v; want xcrypto", p, err)
	}
}

func TestMAC_Failures(t *testing.T) {
	f := writeTemp(t, "msg", "x")
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"bad hex key", []string{"mac", "SipHash", "zz", f}, 1},
		{"bad key size", []string{"mac", "SipHash", "00", f}, 1},
		{"missing nested hash", []string{"mac", "HMAC(Whirlpool)", "00", f}, 1},
		{"wrong arity", []string{"mac", "SipHash", "00"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetSeams()
			defer patchExit(t)()
			defer withArgs(t, tt.args)()

			out := captureStdout(t)
			code := runMain(t)
			out()
			if code != tt.code {
				t.Fatalf("want exit %d, got %d", tt.code, code)
			}
		})
	}
}

// withSignals: cancels context on SIGINT
func TestWithSignals_CancelsOnInterrupt(t *testing.T) {
	ctx := withSignals(context.Background())

	time.AfterFunc(100*time.Millisecond, func() {
		p, _ := os.FindProcess(os.Getpid())
		_ = p.Signal(os.Interrupt)
	})

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after os.Interrupt")
	}

	signal.Reset(os.Interrupt)
}
