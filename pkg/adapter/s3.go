package adapter

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// s3Storage implements Storage on an S3 compatible bucket
type s3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage creates an S3 backed Storage. A non-empty endpoint enables
// path-style addressing for MinIO and similar services.
func NewS3Storage(ctx context.Context, bucket, region, endpoint string) (Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load AWS config", goerr.V("region", region))
	}

	var opts []func(*s3.Options)
	if endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &s3Storage{
		client: s3.NewFromConfig(cfg, opts...),
		bucket: bucket,
	}, nil
}

// s3Writer buffers the object and uploads it on Close
type s3Writer struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, goerr.New("write to closed s3 object writer", goerr.V("key", w.key))
	}
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(w.key),
		Body:        bytes.NewReader(w.buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to put s3 object", goerr.V("bucket", w.bucket), goerr.V("key", w.key))
	}
	return nil
}

func (s *s3Storage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return &s3Writer{ctx: ctx, client: s.client, bucket: s.bucket, key: key}, nil
}

func (s *s3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, goerr.Wrap(model.ErrNotFound, "backup object not found",
				goerr.V("bucket", s.bucket), goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to get s3 object", goerr.V("bucket", s.bucket), goerr.V("key", key))
	}
	return out.Body, nil
}
