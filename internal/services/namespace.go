package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/cosmosits/questionbank-backend/internal/clients/pinecone"
	pkgerrors "github.com/cosmosits/questionbank-backend/internal/pkg/errors"
	"github.com/cosmosits/questionbank-backend/internal/platform/logger"
)

// CourseNamespace locates one course's vectors: a namespace inside the shared
// question index.
type CourseNamespace struct {
	IndexName string
	IndexHost string
	Namespace string
	Dimension int
}

// NamespaceResolver maps a course short code to its vector namespace,
// creating the backing index on first use. Resolution is idempotent.
type NamespaceResolver interface {
	Resolve(ctx context.Context, short string) (*CourseNamespace, error)
}

type NamespaceResolverConfig struct {
	IndexName       string
	NamespacePrefix string
	Dimension       int
	Metric          string
	Cloud           string
	Region          string
	HostCacheTTL    time.Duration
}

type namespaceResolver struct {
	log *logger.Logger
	pc  pinecone.Client
	rdb *goredis.Client // optional; nil disables the shared host cache
	cfg NamespaceResolverConfig

	group singleflight.Group

	mu       sync.Mutex
	host     string
	dim      int
	cachedAt time.Time
}

func NewNamespaceResolver(log *logger.Logger, pc pinecone.Client, rdb *goredis.Client, cfg NamespaceResolverConfig) (NamespaceResolver, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	if strings.TrimSpace(cfg.IndexName) == "" {
		return nil, fmt.Errorf("index name required")
	}
	if strings.TrimSpace(cfg.NamespacePrefix) == "" {
		cfg.NamespacePrefix = "course"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	if strings.TrimSpace(cfg.Metric) == "" {
		cfg.Metric = "cosine"
	}
	if cfg.HostCacheTTL <= 0 {
		cfg.HostCacheTTL = 10 * time.Minute
	}
	return &namespaceResolver{
		log: log.With("service", "NamespaceResolver"),
		pc:  pc,
		rdb: rdb,
		cfg: cfg,
	}, nil
}

// SlugifyShort normalizes a course short code into a namespace segment:
// lower case, spaces/underscores become dashes, everything else
// non-alphanumeric is dropped.
func SlugifyShort(short string) string {
	short = strings.TrimSpace(strings.ToLower(short))
	var b strings.Builder
	lastDash := true
	for _, r := range short {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == ' ', r == '_', r == '-':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// NamespaceName is the deterministic short-code to namespace mapping. Kept as
// a pure function so ledger rows can record a namespace without a network
// round trip.
func NamespaceName(prefix, short string) (string, error) {
	slug := SlugifyShort(short)
	if slug == "" {
		return "", fmt.Errorf("%w: unusable course short code %q", pkgerrors.ErrInvalidArgument, short)
	}
	if strings.TrimSpace(prefix) == "" {
		return slug, nil
	}
	return prefix + ":" + slug, nil
}

func (r *namespaceResolver) Resolve(ctx context.Context, short string) (*CourseNamespace, error) {
	ns, err := NamespaceName(r.cfg.NamespacePrefix, short)
	if err != nil {
		return nil, err
	}

	host, dim, err := r.indexHost(ctx)
	if err != nil {
		return nil, err
	}
	return &CourseNamespace{
		IndexName: r.cfg.IndexName,
		IndexHost: host,
		Namespace: ns,
		Dimension: dim,
	}, nil
}

func (r *namespaceResolver) indexHost(ctx context.Context) (string, int, error) {
	r.mu.Lock()
	if r.host != "" && time.Since(r.cachedAt) < r.cfg.HostCacheTTL {
		host, dim := r.host, r.dim
		r.mu.Unlock()
		return host, dim, nil
	}
	r.mu.Unlock()

	type hostDim struct {
		host string
		dim  int
	}

	v, err, _ := r.group.Do(r.cfg.IndexName, func() (any, error) {
		if host, dim, ok := r.cachedHost(ctx); ok {
			return hostDim{host, dim}, nil
		}

		desc, err := r.pc.DescribeIndex(ctx, r.cfg.IndexName)
		if pinecone.IsNotFound(err) {
			r.log.Info("Vector index missing; creating", "index_name", r.cfg.IndexName, "dimension", r.cfg.Dimension)
			desc, err = r.createAndAwait(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve index %s: %w", r.cfg.IndexName, err)
		}
		r.storeHost(ctx, desc.Host, desc.Dimension)
		return hostDim{desc.Host, desc.Dimension}, nil
	})
	if err != nil {
		return "", 0, err
	}
	hd := v.(hostDim)
	return hd.host, hd.dim, nil
}

func (r *namespaceResolver) createAndAwait(ctx context.Context) (*pinecone.IndexDescription, error) {
	_, err := r.pc.CreateServerlessIndex(ctx, pinecone.CreateIndexRequest{
		Name:      r.cfg.IndexName,
		Dimension: r.cfg.Dimension,
		Metric:    r.cfg.Metric,
		Spec: pinecone.CreateIndexSpec{
			Serverless: pinecone.ServerlessSpec{Cloud: r.cfg.Cloud, Region: r.cfg.Region},
		},
	})
	// A concurrent creator winning the race surfaces as a conflict; describe
	// below settles it either way.
	if err != nil && !strings.Contains(err.Error(), "http 409") {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		desc, err := r.pc.DescribeIndex(ctx, r.cfg.IndexName)
		if err == nil && desc.Status.Ready {
			return desc, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("index %s not ready (state=%s)", r.cfg.IndexName, desc.Status.State)
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, lastErr
}

func (r *namespaceResolver) redisKey() string {
	return "questionsync:index_host:" + r.cfg.IndexName
}

func (r *namespaceResolver) cachedHost(ctx context.Context) (string, int, bool) {
	r.mu.Lock()
	if r.host != "" && time.Since(r.cachedAt) < r.cfg.HostCacheTTL {
		host, dim := r.host, r.dim
		r.mu.Unlock()
		return host, dim, true
	}
	r.mu.Unlock()

	if r.rdb == nil {
		return "", 0, false
	}
	raw, err := r.rdb.Get(ctx, r.redisKey()).Result()
	if err != nil || raw == "" {
		return "", 0, false
	}
	var host string
	var dim int
	if _, err := fmt.Sscanf(raw, "%s %d", &host, &dim); err != nil || host == "" || dim <= 0 {
		return "", 0, false
	}
	r.mu.Lock()
	r.host, r.dim, r.cachedAt = host, dim, time.Now()
	r.mu.Unlock()
	return host, dim, true
}

func (r *namespaceResolver) storeHost(ctx context.Context, host string, dim int) {
	r.mu.Lock()
	r.host, r.dim, r.cachedAt = host, dim, time.Now()
	r.mu.Unlock()

	if r.rdb == nil {
		return
	}
	if err := r.rdb.Set(ctx, r.redisKey(), fmt.Sprintf("%s %d", host, dim), r.cfg.HostCacheTTL).Err(); err != nil {
		r.log.Debug("index host cache write failed", "error", err)
	}
}
