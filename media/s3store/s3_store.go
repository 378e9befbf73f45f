// Package s3store keeps profile images in an S3 bucket or an S3-compatible
// server such as MinIO.
package s3store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jrsteele09/go-account-service/internal/config"
	"github.com/jrsteele09/go-account-service/media"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectAPI is the part of *s3.Client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ media.Store = (*Store)(nil)

type Store struct {
	client  ObjectAPI
	bucket  string
	baseURL string
	nowTime func() time.Time
}

// New builds a client from the configured region, endpoint and credentials.
func New(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.GetS3Region())}
	if key, secret := cfg.GetS3Credentials(); key != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("[s3store.New] loading aws config: %w", err)
	}

	endpoint := cfg.GetS3Endpoint()
	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.GetS3Bucket(), publicBaseURL(cfg)), nil
}

// NewWithClient wires an existing client. Object URLs are baseURL + "/" + key.
func NewWithClient(client ObjectAPI, bucket, baseURL string) *Store {
	return &Store{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		nowTime: time.Now,
	}
}

func publicBaseURL(cfg config.StoreConfig) string {
	if u := cfg.GetS3PublicURL(); u != "" {
		return u
	}
	if e := cfg.GetS3Endpoint(); e != "" {
		return strings.TrimRight(e, "/") + "/" + cfg.GetS3Bucket()
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.GetS3Bucket(), cfg.GetS3Region())
}

func (s *Store) Upload(ctx context.Context, upload media.Upload) (string, error) {
	key := media.ObjectKey(upload.Folder, upload.Filename, s.nowTime())
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   upload.Body,
	}
	if upload.ContentType != "" {
		in.ContentType = aws.String(upload.ContentType)
	}
	if upload.Size > 0 {
		in.ContentLength = aws.Int64(upload.Size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("[s3store.Upload] put %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *Store) Delete(ctx context.Context, reference string) (bool, error) {
	key, ok := strings.CutPrefix(reference, s.baseURL+"/")
	if !ok || key == "" {
		return false, nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, fmt.Errorf("[s3store.Delete] delete %s: %w", key, err)
	}
	return true, nil
}
