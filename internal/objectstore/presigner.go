// Package objectstore turns stored image references into URLs a browser can
// load. Bare object keys are presigned against the image bucket; absolute and
// root-relative URLs pass through unchanged.
package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Expiry    time.Duration
}

type Presigner struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	cache  Cache
	logger *slog.Logger
}

func NewPresigner(cfg Config, cache Cache) (*Presigner, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = time.Hour
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid object store endpoint: %w", err)
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       u.Scheme == "https",
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &Presigner{
		client: client,
		bucket: cfg.Bucket,
		expiry: cfg.Expiry,
		cache:  cache,
		logger: slog.Default().With("component", "objectstore"),
	}, nil
}

// IsObjectKey reports whether ref names an object in the bucket rather than
// an absolute or root-relative URL.
func IsObjectKey(ref string) bool {
	return ref != "" && !strings.HasPrefix(ref, "http") && !strings.HasPrefix(ref, "/")
}

// ResolveImageURL returns a presigned GET URL for object keys and ref itself
// for anything else. Presigning failures fall back to ref.
func (p *Presigner) ResolveImageURL(ctx context.Context, ref string) string {
	if !IsObjectKey(ref) {
		return ref
	}

	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx, p.cacheKey(ref)); ok {
			return cached
		}
	}

	u, err := p.client.PresignedGetObject(ctx, p.bucket, ref, p.expiry, url.Values{})
	if err != nil {
		p.logger.Warn("failed to presign image", "key", ref, "error", err)
		return ref
	}

	signed := u.String()
	if p.cache != nil {
		// Cached links expire well before the signature does.
		p.cache.Set(ctx, p.cacheKey(ref), signed, p.expiry*9/10)
	}
	return signed
}

func (p *Presigner) cacheKey(ref string) string {
	return "presign:" + p.bucket + ":" + ref
}
