package store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultObjectKey = "comments.json"

type ObjectStoreOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Key       string
	UseSSL    bool
}

// ObjectStore keeps the encoded record set as one object in an S3
// compatible bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
	key    string
}

// NewObjectStore connects and creates the bucket when it is missing.
func NewObjectStore(ctx context.Context, opts ObjectStoreOptions) (*ObjectStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}

	key := opts.Key
	if key == "" {
		key = defaultObjectKey
	}
	return &ObjectStore{client: client, bucket: opts.Bucket, key: key}, nil
}

func (s *ObjectStore) LoadAll(ctx context.Context) ([]Comment, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return []Comment{}, nil
		}
		return nil, fmt.Errorf("get comments object: %w", err)
	}
	defer obj.Close()

	payload, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return []Comment{}, nil
		}
		return nil, fmt.Errorf("read comments object: %w", err)
	}
	return DecodeRecords(payload), nil
}

func (s *ObjectStore) SaveAll(ctx context.Context, comments []Comment) error {
	payload, err := EncodeRecords(comments)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put comments object: %w", err)
	}
	return nil
}

func (s *ObjectStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *ObjectStore) Close() error {
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
