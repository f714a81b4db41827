package publish

import (
	"context"
	"os"

	"github.com/rafalsk/botan/internal/algo"
	"github.com/rafalsk/botan/internal/config"
)

// Publisher stores a named document (e.g. a checksum manifest) somewhere.
// Keys are plain strings so implementations can decide their own layout.
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error

	// Name returns the publisher identifier (e.g. "stdout", "azure").
	Name() string
}

// ProviderAzure names the Azure Blob provider.
const ProviderAzure = "azure"

// Register adds the publishers of this package to r. AzureBlob is only
// registered when cfg carries an Azure account and container.
func Register(r *algo.Registry[Publisher], cfg config.Config) {
	reg := algo.Into(r)
	reg.Add("Stdout", algo.NoArgs(func() Publisher { return NewWriter(os.Stdout) }))
	reg.Add("File", algo.OneStringRequired(NewDir))
	reg.AddIf(cfg.Azure.Enabled(), "AzureBlob", algo.OneString("digests", func(prefix string) (Publisher, error) {
		return NewAzure(cfg, prefix)
	}), algo.WithProvider(ProviderAzure))
}
