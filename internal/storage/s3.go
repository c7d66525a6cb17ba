// internal/storage/s3.go
package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"docverify/internal/common/config"
	"docverify/internal/common/errors"
	"docverify/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner issues signed GET URLs.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4PresignedRequest, error)
}

// v4PresignedRequest mirrors the fields of the SDK's signed request that
// callers consume.
type v4PresignedRequest struct {
	URL string
}

// S3Store implements ObjectStore against S3 with server-side encryption.
type S3Store struct {
	client    S3API
	presigner Presigner
	bucket    string
	ttl       time.Duration
	opTimeout time.Duration
	logger    logger.Logger
}

// NewS3Store builds a store with real S3 clients.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:    client,
		presigner: &sdkPresigner{inner: s3.NewPresignClient(client)},
		bucket:    cfg.Bucket,
		ttl:       time.Duration(cfg.PresignTTL) * time.Second,
		opTimeout: config.GetDuration(cfg.OperationTimeout),
		logger:    log,
	}, nil
}

// NewS3StoreWithClients builds a store around existing clients, used by tests.
func NewS3StoreWithClients(client S3API, presigner Presigner, bucket string, ttl, opTimeout time.Duration, log logger.Logger) *S3Store {
	return &S3Store{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		ttl:       ttl,
		opTimeout: opTimeout,
		logger:    log,
	}
}

type sdkPresigner struct {
	inner *s3.PresignClient
}

func (p *sdkPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4PresignedRequest, error) {
	req, err := p.inner.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &v4PresignedRequest{URL: req.URL}, nil
}

// ObjectKey builds the storage key for one side of a submission:
// forms/<submissionID>/<side>-<unix ms>-<random hex>.enc
func ObjectKey(submissionID, side string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// Fall back to the timestamp alone; the key stays unique per side.
		return fmt.Sprintf("forms/%s/%s-%d.enc", submissionID, side, time.Now().UnixMilli())
	}
	return fmt.Sprintf("forms/%s/%s-%d-%s.enc", submissionID, side, time.Now().UnixMilli(), hex.EncodeToString(buf))
}

func (s *S3Store) Upload(ctx context.Context, key string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		ContentType:          aws.String("application/octet-stream"),
	})
	if err != nil {
		return errors.NewObjectStoreError("upload", err)
	}

	s.logger.Debug("Object uploaded", map[string]interface{}{"key": key, "size": len(body)})
	return nil
}

func (s *S3Store) Download(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewObjectStoreError("download", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.NewObjectStoreError("download", err)
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.NewObjectStoreError("delete", err)
	}
	return nil
}

func (s *S3Store) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = s.ttl
	})
	if err != nil {
		return "", errors.NewPresignerUnavailableError(err)
	}
	return req.URL, nil
}
