package sessionstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"particle-skill/internal/application"
	"particle-skill/internal/domain"
)

const defaultS3Prefix = "particle-skill/attributes"

// S3Config locates the bucket. Keys are read from files so they stay out of the config.
type S3Config struct {
	Endpoint      string
	Bucket        string
	Prefix        string
	Region        string
	AccessKeyFile string
	SecretKeyFile string
}

// S3 stores one JSON object per user in an S3-compatible bucket.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewS3(cfg S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	bucket := strings.TrimSpace(cfg.Bucket)
	if endpoint == "" || bucket == "" || cfg.AccessKeyFile == "" || cfg.SecretKeyFile == "" {
		return nil, fmt.Errorf("missing s3 configuration")
	}

	accessKey, err := readSecretFile(cfg.AccessKeyFile)
	if err != nil {
		return nil, fmt.Errorf("reading s3 access key: %w", err)
	}
	secretKey, err := readSecretFile(cfg.SecretKeyFile)
	if err != nil {
		return nil, fmt.Errorf("reading s3 secret key: %w", err)
	}

	host, secure, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix == "" {
		prefix = defaultS3Prefix
	}

	return &S3{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *S3) Load(ctx context.Context, userID string) (domain.Attributes, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(userID), minio.GetObjectOptions{})
	if err != nil {
		return domain.Attributes{}, s.wrapError(err)
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		return domain.Attributes{}, s.wrapError(err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return domain.Attributes{}, fmt.Errorf("reading attributes object: %w", err)
	}

	var attrs domain.Attributes
	if err := json.Unmarshal(data, &attrs); err != nil {
		return domain.Attributes{}, fmt.Errorf("decoding attributes: %w", err)
	}
	return attrs, nil
}

func (s *S3) Save(ctx context.Context, userID string, attrs domain.Attributes) error {
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encoding attributes: %w", err)
	}

	reader := bytes.NewReader(data)
	_, err = s.client.PutObject(ctx, s.bucket, s.key(userID), reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return s.wrapError(err)
	}
	return nil
}

func (s *S3) key(userID string) string {
	return path.Join(s.prefix, url.PathEscape(userID)+".json")
}

func (s *S3) wrapError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return application.ErrNotFound
	}
	return err
}

func parseEndpoint(raw string) (string, bool, error) {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, fmt.Errorf("parse endpoint: %w", err)
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint: %q", raw)
		}
		return u.Host, u.Scheme == "https", nil
	}
	return raw, true, nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
