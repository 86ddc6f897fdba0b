package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/gophshare/internal/common"
)

// S3API is the part of *s3.Client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Config locates an S3-compatible bucket (AWS, MinIO).
type S3Config struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
	Prefix       string
}

// NewS3Client builds a client with static credentials and path-style
// addressing, which MinIO requires.
func NewS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// S3Store stores each blob as one object named by its CID. Reads issue one
// ranged GetObject per chunk.
type S3Store struct {
	client    S3API
	bucket    string
	prefix    string
	chunkSize int
}

func NewS3Store(client S3API, bucket, prefix string, chunkSize int) *S3Store {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix, chunkSize: chunkSize}
}

func (s *S3Store) key(cid string) string {
	return s.prefix + cid
}

func (s *S3Store) Put(ctx context.Context, data []byte) (string, error) {
	id, err := ComputeCID(data)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(id)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", id, err)
	}
	return id, nil
}

func (s *S3Store) Get(ctx context.Context, cid string) (Chunks, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(cid)),
	})
	if err != nil {
		return nil, mapS3Error(cid, err)
	}
	size := aws.ToInt64(head.ContentLength)

	return func(yield func([]byte, error) bool) {
		for off := int64(0); off < size; off += int64(s.chunkSize) {
			end := min(off+int64(s.chunkSize), size) - 1
			chunk, err := s.readRange(ctx, cid, off, end)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}, nil
}

func (s *S3Store) readRange(ctx context.Context, cid string, from, to int64) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(cid)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", from, to)),
	})
	if err != nil {
		return nil, mapS3Error(cid, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", cid, err)
	}
	return b, nil
}

func mapS3Error(cid string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return fmt.Errorf("blob %s: %w", cid, common.ErrNotFound)
		}
	}
	return fmt.Errorf("get object %s: %w", cid, err)
}
