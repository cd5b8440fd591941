// Package documents keeps the reference documents offered to the research stage.
//
// Documents are copied into a registry directory (data/rag by default) and
// described by a metadata.json index next to them.
package documents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/techtrends/internal/logging"
	"github.com/aretw0/techtrends/pkg/adapters/rag"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	// DefaultDir is where registered documents live.
	DefaultDir = "data/rag"
	// MetadataFile is the index written inside the registry directory.
	MetadataFile = "metadata.json"
	// MaxDocuments bounds the registry size.
	MaxDocuments = 2
)

var (
	// ErrRegistryFull is returned when adding beyond MaxDocuments.
	ErrRegistryFull = errors.New("document registry is full")
	// ErrUnsupportedDocument is returned for extensions outside rag.SupportedExtensions.
	ErrUnsupportedDocument = rag.ErrUnsupportedDocument
	// ErrDocumentNotFound is returned when removing an unknown document.
	ErrDocumentNotFound = errors.New("document not found")
)

// Document describes one registered file.
type Document struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Ext     string    `json:"ext"`
	Size    int64     `json:"size"`
	Pages   *int      `json:"pages,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

type index struct {
	Documents []Document `json:"documents"`
}

// Registry manages the registry directory. It does not create the directory;
// config.EnsureDirs does.
type Registry struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for AddedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// New returns a registry rooted at dir.
func New(dir string, opts ...Option) *Registry {
	if dir == "" {
		dir = DefaultDir
	}
	r := &Registry{
		dir:    dir,
		logger: logging.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the registry directory.
func (r *Registry) Dir() string { return r.dir }

// Add copies the file at src into the registry.
func (r *Registry) Add(src string) (Document, error) {
	if !rag.Supported(src) {
		return Document{}, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedDocument,
			filepath.Base(src), strings.Join(rag.SupportedExtensions, ", "))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.read()
	if err != nil {
		return Document{}, err
	}
	if len(idx.Documents) >= MaxDocuments {
		return Document{}, fmt.Errorf("%w: at most %d documents", ErrRegistryFull, MaxDocuments)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}

	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(src))
	name := filepath.Base(src)
	dst := filepath.Join(r.dir, id[:8]+"_"+name)

	if err := os.WriteFile(dst, data, 0644); err != nil {
		return Document{}, fmt.Errorf("copy document: %w", err)
	}

	doc := Document{
		ID:      id,
		Name:    name,
		Path:    dst,
		Ext:     ext,
		Size:    int64(len(data)),
		AddedAt: r.now(),
	}
	if ext == ".pdf" {
		doc.Pages = r.pageCount(data)
	}

	idx.Documents = append(idx.Documents, doc)
	if err := r.write(idx); err != nil {
		_ = os.Remove(dst)
		return Document{}, err
	}

	r.logger.Info("document registered", "id", doc.ID, "name", doc.Name, "size", doc.Size)
	return doc, nil
}

func (r *Registry) pageCount(data []byte) *int {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		r.logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}
	return &count
}

// List returns the registered documents in insertion order.
func (r *Registry) List() ([]Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.read()
	if err != nil {
		return nil, err
	}
	return idx.Documents, nil
}

// Paths returns the stored file paths, ready for Params.RAGDocuments.
func (r *Registry) Paths() ([]string, error) {
	docs, err := r.List()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.Path
	}
	return paths, nil
}

// Remove deletes a document by ID, ID prefix or file name.
func (r *Registry) Remove(ref string) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.read()
	if err != nil {
		return Document{}, err
	}

	for i, d := range idx.Documents {
		if d.ID != ref && d.Name != ref && !(len(ref) >= 8 && strings.HasPrefix(d.ID, ref)) {
			continue
		}
		idx.Documents = append(idx.Documents[:i], idx.Documents[i+1:]...)
		if err := r.write(idx); err != nil {
			return Document{}, err
		}
		if err := os.Remove(d.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("failed to remove document file", "path", d.Path, "error", err)
		}
		r.logger.Info("document removed", "id", d.ID, "name", d.Name)
		return d, nil
	}
	return Document{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, ref)
}

func (r *Registry) read() (index, error) {
	var idx index
	data, err := os.ReadFile(filepath.Join(r.dir, MetadataFile))
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return idx, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("parse metadata: %w", err)
	}
	sort.SliceStable(idx.Documents, func(i, j int) bool {
		return idx.Documents[i].AddedAt.Before(idx.Documents[j].AddedAt)
	})
	return idx, nil
}

func (r *Registry) write(idx index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	tmp := filepath.Join(r.dir, MetadataFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(r.dir, MetadataFile)); err != nil {
		return fmt.Errorf("commit metadata: %w", err)
	}
	return nil
}
