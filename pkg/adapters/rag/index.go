package rag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
)

const (
	embedBatch = 64
	// maxCorpora bounds the number of document sets kept in memory.
	maxCorpora = 8
)

type chunk struct {
	content string
	source  string
	seq     int
	vector  []float32
}

type corpus struct {
	key     string
	entries []chunk
}

// Index is an in-memory vector index over reference documents.
// Every distinct set of paths gets its own corpus, so runs that reference
// different documents never see each other's passages.
type Index struct {
	embedder  Embedder
	chunkSize int
	overlap   int
	logger    *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	corpora []*corpus // oldest first
}

var _ ports.Retriever = (*Index)(nil)

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithChunking overrides the chunk size and overlap.
func WithChunking(size, overlap int) IndexOption {
	return func(ix *Index) {
		ix.chunkSize = size
		ix.overlap = overlap
	}
}

// WithLogger sets the index logger.
func WithLogger(l *slog.Logger) IndexOption {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// NewIndex creates an empty index. A nil embedder selects HashingEmbedder.
func NewIndex(embedder Embedder, opts ...IndexOption) *Index {
	if embedder == nil {
		embedder = HashingEmbedder{}
	}
	ix := &Index{
		embedder:  embedder,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Index implements ports.Retriever. Re-indexing the same set of paths is a no-op.
func (ix *Index) Index(ctx context.Context, paths []string) error {
	_, err := ix.corpus(ctx, paths)
	return err
}

func corpusKey(paths []string) (string, []string) {
	wanted := slices.Clone(paths)
	sort.Strings(wanted)
	wanted = slices.Compact(wanted)
	return strings.Join(wanted, "\x00"), wanted
}

func (ix *Index) lookup(key string) *corpus {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, c := range ix.corpora {
		if c.key == key {
			return c
		}
	}
	return nil
}

// corpus returns the corpus of paths, building it on first use.
func (ix *Index) corpus(ctx context.Context, paths []string) (*corpus, error) {
	key, wanted := corpusKey(paths)
	if c := ix.lookup(key); c != nil {
		return c, nil
	}

	v, err, _ := ix.group.Do(key, func() (any, error) {
		if c := ix.lookup(key); c != nil {
			return c, nil
		}
		entries, err := ix.build(ctx, wanted)
		if err != nil {
			return nil, err
		}
		c := &corpus{key: key, entries: entries}

		ix.mu.Lock()
		ix.corpora = append(ix.corpora, c)
		if len(ix.corpora) > maxCorpora {
			ix.corpora = slices.Delete(ix.corpora, 0, len(ix.corpora)-maxCorpora)
		}
		ix.mu.Unlock()

		ix.logger.InfoContext(ctx, "reference index built", "documents", len(wanted), "chunks", len(entries))
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*corpus), nil
}

func (ix *Index) build(ctx context.Context, wanted []string) ([]chunk, error) {
	texts := make([]string, len(wanted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, path := range wanted {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			text, err := LoadText(path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []chunk
	for i, path := range wanted {
		for seq, c := range Split(texts[i], ix.chunkSize, ix.overlap) {
			entries = append(entries, chunk{content: c, source: filepath.Base(path), seq: seq})
		}
	}

	for start := 0; start < len(entries); start += embedBatch {
		end := min(start+embedBatch, len(entries))
		batch := make([]string, end-start)
		for i := range batch {
			batch[i] = entries[start+i].content
		}
		vectors, err := ix.embedder.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed: expected %d vectors, got %d", len(batch), len(vectors))
		}
		for i, v := range vectors {
			entries[start+i].vector = v
		}
	}
	return entries, nil
}

// Len returns the number of chunks indexed for paths, zero when they were never indexed.
func (ix *Index) Len(paths []string) int {
	key, _ := corpusKey(paths)
	if c := ix.lookup(key); c != nil {
		return len(c.entries)
	}
	return 0
}

// Query implements ports.Retriever. Paths not indexed yet are indexed first.
func (ix *Index) Query(ctx context.Context, paths []string, text string, topK int) ([]domain.Passage, error) {
	if len(paths) == 0 || topK <= 0 {
		return []domain.Passage{}, nil
	}
	c, err := ix.corpus(ctx, paths)
	if err != nil {
		return nil, err
	}
	entries := c.entries
	if len(entries) == 0 {
		return []domain.Passage{}, nil
	}

	vectors, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}
	q := vectors[0]

	scored := make([]domain.Passage, len(entries))
	for i, e := range entries {
		scored[i] = domain.Passage{
			Content: e.content,
			Metadata: map[string]string{
				"source": e.source,
				"chunk":  strconv.Itoa(e.seq),
			},
			Score: cosine(q, e.vector),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
