package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/paralegal/internal/db"
	"github.com/kailas-cloud/paralegal/internal/domain"
	domchunk "github.com/kailas-cloud/paralegal/internal/domain/chunk"
	"github.com/kailas-cloud/paralegal/internal/domain/namespace"
	"github.com/kailas-cloud/paralegal/internal/logger"
)

// store is the consumer interface for chunk storage (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchPage(ctx context.Context, q *db.PageQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig holds HNSW index tuning parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Config describes the key layout and vector schema.
type Config struct {
	KeyPrefix string
	VectorDim int
	HNSW      HNSWConfig
}

// Repo reads and writes chunk hashes and their per-namespace vector indexes.
//
// Layout:
//
//	{prefix}namespaces        SET of namespace names
//	{prefix}chunk:{ns}:{id}   HASH of chunk metadata + vector
//	{prefix}idx:{slug}-{hash} FT index over one namespace
type Repo struct {
	store          store
	cfg            Config
	malformedTotal *prometheus.CounterVec
}

// New creates a chunk repository.
// malformedTotal is a counter vec with label "fallback", may be nil.
func New(s store, cfg Config, malformedTotal *prometheus.CounterVec) *Repo {
	return &Repo{store: s, cfg: cfg, malformedTotal: malformedTotal}
}

// ListNamespaces returns every registered namespace with its indexed vector count, sorted by name.
func (r *Repo) ListNamespaces(ctx context.Context) ([]namespace.Namespace, error) {
	names, err := r.store.SMembers(ctx, r.registryKey())
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	slices.Sort(names)

	out := make([]namespace.Namespace, 0, len(names))
	for _, name := range names {
		n, err := r.store.SearchCount(ctx, r.indexName(name), "*")
		if err != nil {
			return nil, fmt.Errorf("count namespace %s: %w", name, err)
		}
		out = append(out, namespace.Namespace{Name: name, VectorCount: int64(n)})
	}
	return out, nil
}

// Enumerate returns up to batch chunks of a namespace starting at cursor.
// Pages are read through the namespace index, so only that namespace's
// documents are visited. Writes during enumeration shift offsets: a chunk may
// appear in two pages or be missed. Callers stop when Page.Done is set.
func (r *Repo) Enumerate(ctx context.Context, ns string, cursor domchunk.Cursor, batch int) (domchunk.Page, error) {
	offset, err := parseCursor(cursor)
	if err != nil {
		return domchunk.Page{}, err
	}
	if batch <= 0 {
		return domchunk.Page{}, fmt.Errorf("enumerate %s: batch must be positive, got %d", ns, batch)
	}

	sr, err := r.store.SearchPage(ctx, &db.PageQuery{
		IndexName:    r.indexName(ns),
		Offset:       offset,
		Limit:        batch,
		ReturnFields: returnFields,
	})
	if err != nil {
		return domchunk.Page{}, fmt.Errorf("page namespace %s: %w", ns, err)
	}

	next := offset + len(sr.Entries)
	page := domchunk.Page{
		Next: domchunk.Cursor(strconv.Itoa(next)),
		Done: len(sr.Entries) == 0 || next >= sr.Total,
	}

	prefix := r.chunkPrefix(ns)
	page.Chunks = make([]domchunk.Chunk, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if c, ok := r.hydrate(ctx, strings.TrimPrefix(e.Key, prefix), ns, e.Fields); ok {
			page.Chunks = append(page.Chunks, c)
		}
	}
	return page, nil
}

// Query returns the topK nearest chunks of a namespace with their cosine similarity.
func (r *Repo) Query(ctx context.Context, ns string, vector []float32, topK int) ([]domchunk.Scored, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(ns),
		Vector:       vector,
		K:            topK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", ns, err)
	}

	prefix := r.chunkPrefix(ns)
	out := make([]domchunk.Scored, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if c, ok := r.hydrate(ctx, strings.TrimPrefix(e.Key, prefix), ns, e.Fields); ok {
			out = append(out, domchunk.Scored{Chunk: c, Score: e.Score})
		}
	}
	return out, nil
}

// EnsureIndex creates the namespace index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, ns string) error {
	name := r.indexName(ns)
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(name).
		Prefix(r.chunkPrefix(ns)).
		Tag(domchunk.FieldSource).
		Numeric(domchunk.FieldPage).
		Vector(domchunk.FieldVector, r.cfg.VectorDim, db.VectorHNSW, db.DistanceCosine, r.cfg.HNSW.M, r.cfg.HNSW.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index %s: %w", name, err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// Upsert writes chunks with their vectors and registers the namespace.
// vectors[i] belongs to chunks[i].
func (r *Repo) Upsert(ctx context.Context, ns string, chunks []domchunk.Chunk, vectors [][]float32) error {
	if err := namespace.Validate(ns); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("upsert %s: %d chunks but %d vectors", ns, len(chunks), len(vectors))
	}
	if err := r.EnsureIndex(ctx, ns); err != nil {
		return err
	}

	items := make([]db.HashSetItem, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != r.cfg.VectorDim {
			return fmt.Errorf("chunk %s: vector dim %d, index expects %d", c.ID, len(vectors[i]), r.cfg.VectorDim)
		}
		fields := c.Fields()
		fields[domchunk.FieldVector] = vectorToBytes(vectors[i])
		items[i] = db.HashSetItem{Key: r.chunkPrefix(ns) + c.ID, Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write chunks %s: %w", ns, err)
	}
	if err := r.store.SAdd(ctx, r.registryKey(), ns); err != nil {
		return fmt.Errorf("register namespace %s: %w", ns, err)
	}
	return nil
}

var returnFields = []string{
	domchunk.FieldText, domchunk.FieldSource, domchunk.FieldPage, domchunk.FieldChunkID,
	domchunk.FieldOCR, domchunk.FieldContentType, "page_content", "content",
}

// hydrate parses stored fields. Chunks without any text are dropped; both cases are logged and counted.
func (r *Repo) hydrate(ctx context.Context, id, ns string, fields map[string]string) (domchunk.Chunk, bool) {
	c, err := domchunk.FromFields(id, ns, fields)
	if err == nil {
		return c, true
	}

	var me *domain.MalformedMetadataError
	if !errors.As(err, &me) {
		return domchunk.Chunk{}, false
	}
	label := me.Fallback
	if label == "" {
		label = "none"
	}
	if r.malformedTotal != nil {
		r.malformedTotal.WithLabelValues(label).Inc()
	}
	logger.FromContext(ctx).Warn("Malformed chunk metadata",
		zap.String("namespace", ns), zap.String("chunk_id", id), zap.String("fallback", label))

	return c, c.Text != ""
}

func (r *Repo) registryKey() string {
	return r.cfg.KeyPrefix + "namespaces"
}

func (r *Repo) chunkPrefix(ns string) string {
	return r.cfg.KeyPrefix + "chunk:" + ns + ":"
}

// indexName maps a namespace (usually a file name) onto the identifier charset
// FT index names accept. The hash suffix keeps distinct names apart after mapping.
func (r *Repo) indexName(ns string) string {
	h := sha256.Sum256([]byte(ns))
	return r.cfg.KeyPrefix + "idx:" + slug(ns) + "-" + hex.EncodeToString(h[:4])
}

func slug(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func parseCursor(c domchunk.Cursor) (int, error) {
	if c == "" {
		return 0, nil
	}
	pos, err := strconv.Atoi(string(c))
	if err != nil {
		return 0, fmt.Errorf("invalid cursor %q: %w", c, err)
	}
	if pos < 0 {
		return 0, fmt.Errorf("invalid cursor %q: negative offset", c)
	}
	return pos, nil
}
