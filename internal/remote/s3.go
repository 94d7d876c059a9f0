package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/errors"
)

// objectGetter is the part of the S3 client the source needs.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates a capsule repository mirrored into a bucket.
type S3Config struct {
	Bucket      string
	Prefix      string
	Region      string
	Endpoint    string // for S3-compatible stores; enables path-style addressing
	ManifestKey string
}

// S3Source reads the manifest at <prefix><manifest key> and files at <prefix><src>.
type S3Source struct {
	client      objectGetter
	bucket      string
	prefix      string
	manifestKey string
}

// NewS3Source builds an S3 client from cfg. Credentials come from the
// AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN environment
// variables when set; otherwise requests are anonymous (public buckets).
func NewS3Source(cfg S3Config) (*S3Source, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.NewInvalidRequest("s3 source requires s3_bucket")
	}

	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: envCredentials(),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	return newS3Source(s3.New(opts), cfg), nil
}

func newS3Source(client objectGetter, cfg S3Config) *S3Source {
	key := cfg.ManifestKey
	if key == "" {
		key = "capsule-manifest.json"
	}
	return &S3Source{
		client:      client,
		bucket:      cfg.Bucket,
		prefix:      cfg.Prefix,
		manifestKey: key,
	}
}

func envCredentials() aws.CredentialsProvider {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	token := os.Getenv("AWS_SESSION_TOKEN")
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    token,
			Source:          "EnvironmentVariables",
		}, nil
	}))
}

// Name implements Source.
func (s *S3Source) Name() string {
	return "s3"
}

// FetchManifest implements Source.
func (s *S3Source) FetchManifest(ctx context.Context) (*capsule.Manifest, error) {
	data, err := s.get(ctx, s.prefix+s.manifestKey, MaxManifestBytes)
	if err != nil {
		return nil, err
	}
	return capsule.ParseManifest(data)
}

// FetchFile implements Source.
func (s *S3Source) FetchFile(ctx context.Context, src string) (string, error) {
	data, err := s.get(ctx, s.prefix+strings.TrimLeft(src, "/"), MaxFileBytes)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *S3Source) get(ctx context.Context, key string, limit int64) ([]byte, error) {
	target := fmt.Sprintf("s3://%s/%s", s.bucket, key)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("fetch")
		}
		return nil, errors.NewNetwork(target, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, limit+1))
	if err != nil {
		return nil, errors.NewNetwork(target, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > limit {
		return nil, errors.NewNetwork(target, fmt.Errorf("object exceeds %d bytes", limit))
	}
	return body, nil
}
