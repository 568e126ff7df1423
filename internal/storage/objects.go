package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore keeps generated media and returns a URL clients can fetch it
// from.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// FileObjectStore writes objects below a local directory. The returned URL is
// baseURL joined with the object key, so the directory must be served there.
type FileObjectStore struct {
	basePath string
	baseURL  string
	mu       sync.Mutex
}

func NewFileObjectStore(basePath, baseURL string) (*FileObjectStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}
	return &FileObjectStore{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// BasePath is the directory objects are written to.
func (s *FileObjectStore) BasePath() string {
	return s.basePath
}

func (s *FileObjectStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	clean := filepath.Clean("/" + key)[1:]
	if clean == "" {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	return s.baseURL + "/" + clean, nil
}

// S3Config describes an S3-compatible bucket such as Cloudflare R2.
type S3Config struct {
	Endpoint  string
	AccountID string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
}

// S3ObjectStore uploads objects to an S3-compatible bucket.
type S3ObjectStore struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3ObjectStore builds a path-style client with static credentials. When
// Endpoint is empty it is derived from the R2 account id.
func NewS3ObjectStore(ctx context.Context, cfg S3Config) (*S3ObjectStore, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.AccountID == "" {
			return nil, fmt.Errorf("object storage needs an endpoint or account id")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}
	endpoint = strings.TrimRight(endpoint, "/")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = endpoint + "/" + cfg.Bucket
	}

	return &S3ObjectStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

func (s *S3ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}
