package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nucleus/dp-connector/pkg/donorperfect"
)

// ObjectStoreConfig locates a bucket on a MinIO or S3 endpoint.
type ObjectStoreConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	Bucket          string
	Prefix          string

	// Format is "jsonl" (gzip JSON lines, the default) or "parquet".
	Format string
}

// ParseObjectStoreURL reads
// s3://[key:secret@]bucket/prefix?endpoint=host&ssl=false&region=r&format=parquet.
// Credentials missing from the URL come from MINIO_ACCESS_KEY and
// MINIO_SECRET_KEY.
func ParseObjectStoreURL(u *url.URL) (*ObjectStoreConfig, error) {
	cfg := &ObjectStoreConfig{
		Endpoint: u.Query().Get("endpoint"),
		Region:   u.Query().Get("region"),
		Bucket:   u.Host,
		Prefix:   strings.Trim(u.Path, "/"),
		UseSSL:   u.Query().Get("ssl") != "false",
		Format:   u.Query().Get("format"),
	}
	if cfg.Format == "" {
		cfg.Format = "jsonl"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = getenv("MINIO_ENDPOINT", "s3.amazonaws.com")
	}
	if u.User != nil {
		cfg.AccessKeyID = u.User.Username()
		cfg.SecretAccessKey, _ = u.User.Password()
	} else {
		cfg.AccessKeyID = getenv("MINIO_ACCESS_KEY", "")
		cfg.SecretAccessKey = getenv("MINIO_SECRET_KEY", "")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: bucket is required")
	}
	if cfg.Format != "jsonl" && cfg.Format != "parquet" {
		return nil, fmt.Errorf("s3 sink: unknown format %q", cfg.Format)
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("s3 sink: credentials are required")
	}
	return cfg, nil
}

// objectClient is the subset of *minio.Client the sink uses.
type objectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectStore writes each dataset snapshot as one gzip JSONL or Parquet
// object under prefix/dataset/.
type ObjectStore struct {
	client objectClient
	cfg    *ObjectStoreConfig
	runID  string
	logger *slog.Logger
}

// NewObjectStore creates a MinIO/S3 sink.
func NewObjectStore(cfg *ObjectStoreConfig, logger *slog.Logger) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return newObjectStore(client, cfg, logger), nil
}

func newObjectStore(client objectClient, cfg *ObjectStoreConfig, logger *slog.Logger) *ObjectStore {
	runID := time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
	return &ObjectStore{client: client, cfg: cfg, runID: runID, logger: logger}
}

// Write uploads records as one object. Earlier snapshots are kept.
func (s *ObjectStore) Write(ctx context.Context, dataset string, records []donorperfect.Record) error {
	if err := ValidateDataset(dataset); err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}

	opts := minio.PutObjectOptions{UserMetadata: map[string]string{"rows": fmt.Sprint(len(records))}}
	var (
		body []byte
		key  string
		err  error
	)
	if s.cfg.Format == "parquet" {
		if len(records) == 0 {
			s.logger.Info("skipped empty dataset", "sink", "s3", "dataset", dataset)
			return nil
		}
		body, err = encodeParquet(records)
		key = s.path(dataset, s.runID+".parquet")
		opts.ContentType = "application/vnd.apache.parquet"
	} else {
		body, err = encodeJSONL(records)
		key = s.path(dataset, s.runID+".jsonl.gz")
		opts.ContentType = "application/x-ndjson"
		opts.ContentEncoding = "gzip"
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", dataset, err)
	}
	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(body), int64(len(body)), opts); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	s.logger.Info("exported dataset", "sink", "s3", "bucket", s.cfg.Bucket, "key", key, "rows", len(records))
	return nil
}

// Close is a no-op; the client holds no connections of its own.
func (s *ObjectStore) Close() error { return nil }

func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

func (s *ObjectStore) path(dataset, file string) string {
	return strings.Trim(strings.Join([]string{s.cfg.Prefix, dataset, file}, "/"), "/")
}

func encodeJSONL(records []donorperfect.Record) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
