package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/rafalsk/botan/internal/config"
	"github.com/rafalsk/botan/internal/retry"
)

type azurePublisher struct {
	client    *azblob.Client
	container string
	prefix    string
	ro        retry.Options
}

// NewAzure publishes to <container>/<prefix>/<key> in Azure Blob Storage.
func NewAzure(cfg config.Config, prefix string) (Publisher, error) {
	if !cfg.Azure.Enabled() {
		return nil, errors.New("azure: AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_CONTAINER are required")
	}
	client, err := newClient(cfg.Azure)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}
	return &azurePublisher{
		client:    client,
		container: cfg.Azure.Container,
		prefix:    strings.Trim(strings.TrimSpace(prefix), "/"),
		ro:        cfg.RetryOptions(),
	}, nil
}

// newClient builds a blob client.
// Priority: 1) SAS  2) Service Principal  3) DefaultAzureCredential.
func newClient(c config.AzureConfig) (*azblob.Client, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", c.Account)
	}

	if sasRaw := strings.TrimSpace(c.SASToken); sasRaw != "" {
		sas := strings.TrimPrefix(sasRaw, "?")
		return azblob.NewClientWithNoCredential(endpoint+"?"+sas, nil)
	}

	if c.ClientID != "" && c.ClientSecret != "" && c.TenantID != "" {
		cred, err := azidentity.NewClientSecretCredential(c.TenantID, c.ClientID, c.ClientSecret, nil)
		if err != nil {
			return nil, err
		}
		return azblob.NewClient(endpoint, cred, nil)
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azblob.NewClient(endpoint, cred, nil)
}

func (p *azurePublisher) Name() string { return ProviderAzure }

func (p *azurePublisher) blobName(key string) string {
	key = normalizeKey(key)
	if p.prefix == "" {
		return key
	}
	return path.Join(p.prefix, key)
}

// Publish uploads body with its sha256 as metadata, then checks the stored size.
func (p *azurePublisher) Publish(ctx context.Context, key string, body []byte) error {
	name := p.blobName(key)
	sum := sha256.Sum256(body)

	start := time.Now()
	attempt := 0
	uploadOnce := func(ctx context.Context) error {
		attempt++
		_, err := p.client.UploadBuffer(ctx, p.container, name, body, &azblob.UploadBufferOptions{
			Metadata: map[string]*string{"sha256": to.Ptr(hex.EncodeToString(sum[:]))},
		})
		if err != nil {
			log.Debug().Err(err).Str("action", "azure_upload").Str("container", p.container).Str("key", name).
				Int("attempt", attempt).Msg("attempt failed")
			return explain(err, p.container)
		}
		return nil
	}
	if err := retry.Do(ctx, p.ro, isRetryable, uploadOnce); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	validateOnce := func(ctx context.Context) error {
		found, size, err := p.sizeByList(ctx, name)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("uploaded blob not found at %q", name)
		}
		if size != int64(len(body)) {
			return fmt.Errorf("size mismatch: local=%d, remote=%d", len(body), size)
		}
		return nil
	}
	if err := retry.Do(ctx, p.ro, isRetryable, validateOnce); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	log.Info().Str("action", "azure_upload").Str("container", p.container).Str("key", name).
		Int("attempts", attempt).Dur("elapsed_ms", time.Since(start)).Msg("upload OK")
	return nil
}

// sizeByList finds the exact blob and returns (found, size).
func (p *azurePublisher) sizeByList(ctx context.Context, exactKey string) (bool, int64, error) {
	pager := p.client.NewListBlobsFlatPager(p.container, &azblob.ListBlobsFlatOptions{
		Prefix:     to.Ptr(exactKey),
		MaxResults: to.Ptr(int32(1)),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return false, 0, err
		}
		for _, it := range page.Segment.BlobItems {
			if it.Name != nil && *it.Name == exactKey {
				if it.Properties != nil && it.Properties.ContentLength != nil {
					return true, *it.Properties.ContentLength, nil
				}
				return true, 0, nil
			}
		}
	}
	return false, 0, nil
}

// explain turns well-known access errors into actionable messages.
func explain(err error, container string) error {
	var re *azcore.ResponseError
	if !errors.As(err, &re) {
		return err
	}
	switch re.ErrorCode {
	case string(bloberror.ContainerNotFound):
		return fmt.Errorf("container %q not found: create it first: %w", container, err)
	case string(bloberror.AuthorizationFailure),
		string(bloberror.AuthorizationPermissionMismatch),
		string(bloberror.AuthenticationFailed):
		return fmt.Errorf("not authorized for container %q: %w", container, err)
	}
	return err
}

// isRetryable: timeouts, 5xx, 429, 408 and ServerBusy.
func isRetryable(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var re *azcore.ResponseError
	if errors.As(err, &re) {
		if re.StatusCode == http.StatusTooManyRequests || re.StatusCode == http.StatusRequestTimeout {
			return true
		}
		if re.StatusCode >= 500 && re.StatusCode <= 599 {
			return true
		}
		if re.ErrorCode == string(bloberror.ServerBusy) {
			return true
		}
	}
	return false
}
