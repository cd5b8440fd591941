// Package blob publishes produced reports to Azure Blob Storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/aretw0/techtrends/pkg/ports"
)

// ErrNotConfigured is returned when neither a connection string nor an account URL is set.
var ErrNotConfigured = errors.New("blob storage is not configured")

// DefaultContainer receives reports when no container is configured.
const DefaultContainer = "reports"

// Config selects the storage account and container.
type Config struct {
	ConnectionString string `json:"connection_string" yaml:"connection_string" toml:"connection_string"`
	AccountURL       string `json:"account_url" yaml:"account_url" toml:"account_url"`
	Container        string `json:"container" yaml:"container" toml:"container"`
	Prefix           string `json:"prefix" yaml:"prefix" toml:"prefix"`
}

// Enabled reports whether publishing was requested.
func (c Config) Enabled() bool {
	return c.ConnectionString != "" || c.AccountURL != ""
}

// Publisher uploads files and returns their blob URL.
type Publisher struct {
	client    *azblob.Client
	container string
	prefix    string
	logger    *slog.Logger

	mu    sync.Mutex
	ready bool
}

var _ ports.Publisher = (*Publisher)(nil)

// New creates the Azure client. A connection string wins over an account URL,
// which authenticates with the default Azure credential chain.
func New(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountURL != "":
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("create azure credential: %w", credErr)
		}
		client, err = azblob.NewClient(cfg.AccountURL, cred, nil)
	default:
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	container := cfg.Container
	if container == "" {
		container = DefaultContainer
	}
	return &Publisher{
		client:    client,
		container: container,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		logger:    logger.With("system", "blob"),
	}, nil
}

// Key returns the blob name used for a local file.
func (p *Publisher) Key(localPath string) string {
	name := filepath.Base(localPath)
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Publish implements ports.Publisher.
func (p *Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	if err := p.ensureContainer(ctx); err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := p.Key(localPath)
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}
	if _, err := p.client.UploadStream(ctx, p.container, key, f, opts); err != nil {
		return "", fmt.Errorf("upload blob %s: %w", key, err)
	}

	url := strings.TrimSuffix(p.client.URL(), "/") + "/" + p.container + "/" + key
	p.logger.InfoContext(ctx, "report uploaded", "key", key)
	return url, nil
}

func (p *Publisher) ensureContainer(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	if _, err := p.client.CreateContainer(ctx, p.container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return fmt.Errorf("create container %s: %w", p.container, err)
		}
	}
	p.ready = true
	return nil
}
