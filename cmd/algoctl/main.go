package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/rafalsk/botan/internal/algo"
	"github.com/rafalsk/botan/internal/config"
	"github.com/rafalsk/botan/internal/digest"
	"github.com/rafalsk/botan/internal/logx"
	"github.com/rafalsk/botan/internal/mac"
	"github.com/rafalsk/botan/internal/publish"
	"github.com/rafalsk/botan/internal/spec"
	"github.com/rafalsk/botan/internal/version"
)

// Test seams: overridden in unit tests. Keep signatures in sync with packages.
var (
	loadConfig    func() (config.Config, error)            = config.Load
	newRegistries func(config.Config) (*registries, error) = setupRegistries
	exit          func(int)                                = os.Exit
)

const usage = `
Usage:
  algoctl providers [name]
  algoctl digest    <spec> <file>...
  algoctl mac       <spec> <hexkey> <file>
  algoctl version | --version | -v
  algoctl help    | --help    | -h

Specs look like SHA-256, SHA-3(256), BLAKE2b(384), HMAC(SHA-256), SipHash(2,4).

Notes:
  - ALGO_PROVIDER forces the digest provider (e.g. builtin, xcrypto);
    otherwise the highest weighted provider is used (ALGO_WEIGHTS_FILE,
    ALGO_WEIGHTS). For mac it is a preference, applied to the MAC and to
    its nested hash, and ignored where that provider is not registered.
  - digest publishes its manifest via PUBLISH_SPEC (default: Stdout), e.g.
    File(/var/lib/digests) or AzureBlob(prefix) with AZURE_STORAGE_* set.
`

// registries holds one registry per algorithm family.
type registries struct {
	hashes     *algo.Registry[hash.Hash]
	macs       *algo.Registry[mac.MAC]
	publishers *algo.Registry[publish.Publisher]
}

// setupRegistries registers every built-in provider into the process-wide
// registries. Registration is idempotent.
func setupRegistries(cfg config.Config) (*registries, error) {
	weights, err := cfg.Weights()
	if err != nil {
		return nil, err
	}

	r := &registries{
		hashes:     algo.Global[hash.Hash](),
		macs:       algo.Global[mac.MAC](),
		publishers: algo.Global[publish.Publisher](),
	}
	// ALGO_PROVIDER also steers families that only reach it through a
	// nested lookup, such as the hash inside HMAC.
	lookup := weights.Preferring(cfg.Provider)
	r.hashes.SetWeights(lookup)
	r.macs.SetWeights(lookup)
	r.publishers.SetWeights(weights.Lookup)

	digest.Register(r.hashes)
	mac.Register(r.macs, r.hashes)
	publish.Register(r.publishers, cfg)
	return r, nil
}

// main wires CLI -> config -> registries -> command.
// Exit codes: 0 success, 1 runtime error, 2 usage error.
func main() {
	_ = godotenv.Load() // best-effort
	logx.InitFromEnv()

	args := os.Args[1:]
	if len(args) < 1 {
		fmt.Print(usage)
		exit(2)
		return
	}
	action := strings.ToLower(args[0])

	switch action {
	case "version", "--version", "-v":
		fmt.Println(version.Info())
		exit(0)
		return
	case "help", "--help", "-h":
		fmt.Print(usage)
		exit(0)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Msg("config error")
		exit(1)
		return
	}
	regs, err := newRegistries(cfg)
	if err != nil {
		log.Error().Err(err).Msg("registry setup error")
		exit(1)
		return
	}

	ctx := withSignals(context.Background())

	switch action {
	case "providers":
		listProviders(regs, args[1:])

	case "digest":
		if len(args) < 3 {
			fmt.Print(usage)
			exit(2)
			return
		}
		if err := runDigest(ctx, cfg, regs, args[1], args[2:]); err != nil {
			report("digest", args[1], err)
			exit(1)
			return
		}

	case "mac":
		if len(args) != 4 {
			fmt.Print(usage)
			exit(2)
			return
		}
		if err := runMAC(regs, args[1], args[2], args[3]); err != nil {
			report("mac", args[1], err)
			exit(1)
			return
		}

	default:
		fmt.Print(usage)
		exit(2)
		return
	}
}

// report logs err, telling unsupported algorithms apart from failed constructions.
func report(action, specText string, err error) {
	var ce *algo.ConstructionError
	switch {
	case errors.Is(err, algo.ErrNotFound):
		log.Error().Err(err).Str("action", action).Str("algo", specText).Msg("unsupported algorithm")
	case errors.As(err, &ce):
		log.Error().Err(err).Str("action", action).Str("algo", ce.Spec).Str("provider", ce.Provider).
			Msg("algorithm construction failed")
	default:
		log.Error().Err(err).Str("action", action).Str("algo", specText).Msg(action + " failed")
	}
}

func listProviders(r *registries, names []string) {
	families := []struct {
		label     string
		names     func() []string
		providers func(string) []string
		resolve   func(spec.Spec, string) (string, error)
	}{
		{"hash", r.hashes.Names, r.hashes.Providers, r.hashes.Resolve},
		{"mac", r.macs.Names, r.macs.Providers, r.macs.Resolve},
		{"publisher", r.publishers.Names, r.publishers.Providers, r.publishers.Resolve},
	}

	for _, f := range families {
		list := names
		if len(list) == 0 {
			list = f.names()
		}
		for _, name := range list {
			provs := f.providers(name)
			if len(provs) == 0 {
				continue
			}
			sort.Strings(provs)
			s, err := spec.New(name)
			if err != nil {
				continue
			}
			preferred, _ := f.resolve(s, "")
			fmt.Printf("%-10s %-14s %s (default: %s)\n", f.label, name, strings.Join(provs, ","), preferred)
		}
	}
}

func runDigest(ctx context.Context, cfg config.Config, r *registries, specText string, files []string) error {
	s, err := spec.Parse(specText)
	if err != nil {
		return err
	}
	// Build once up front so an unknown algorithm fails before any file is read.
	if _, err := r.hashes.Make(s, cfg.Provider); err != nil {
		return err
	}
	newHash := func() (hash.Hash, error) { return r.hashes.Make(s, cfg.Provider) }

	start := time.Now()
	results, err := digest.Files(ctx, newHash, files, cfg.DigestWorkers)
	if err != nil {
		return err
	}
	log.Info().
		Str("action", "digest").
		Str("algo", s.String()).
		Int("files", len(results)).
		Dur("elapsed_ms", time.Since(start)).
		Msg("digest OK")

	ps, err := spec.Parse(cfg.PublishSpec)
	if err != nil {
		return err
	}
	pub, err := r.publishers.Make(ps, "")
	if err != nil {
		return err
	}
	key := s.String() + ".sums"
	if err := pub.Publish(ctx, key, digest.Manifest(results)); err != nil {
		return fmt.Errorf("publish via %s: %w", pub.Name(), err)
	}
	log.Info().Str("action", "publish").Str("publisher", pub.Name()).Str("key", key).Msg("publish OK")
	return nil
}

func runMAC(r *registries, specText, hexKey, file string) error {
	s, err := spec.Parse(specText)
	if err != nil {
		return err
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	// MACs are picked by weight; cfg.Provider already ranks first there and
	// in the nested hash registry.
	m, err := r.macs.Make(s, "")
	if err != nil {
		return err
	}
	if err := m.SetKey(key); err != nil {
		return err
	}
	sum, _, err := digest.File(m, file)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", sum, file)
	return nil
}

func withSignals(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		cancel()
	}()
	return ctx
}
