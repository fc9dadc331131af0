package configsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ObjectOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Key       string
	UseSSL    bool
	// Region skips the bucket location lookup when set.
	Region string
}

// Object reads the config from an S3-compatible bucket.
type Object struct {
	client *minio.Client
	bucket string
	key    string
}

func NewObject(opts ObjectOptions) (*Object, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       opts.UseSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return &Object{client: client, bucket: opts.Bucket, key: opts.Key}, nil
}

func (o *Object) String() string {
	return fmt.Sprintf("s3:%s/%s", o.bucket, o.key)
}

func (o *Object) Load(ctx context.Context) (json.RawMessage, error) {
	object, err := o.client.GetObject(ctx, o.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get reporting config object: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(io.LimitReader(object, maxConfigBytes+1))
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code != "" {
			return nil, fmt.Errorf("read reporting config object %s/%s: %s", o.bucket, o.key, resp.Code)
		}
		return nil, fmt.Errorf("read reporting config object: %w", err)
	}
	if len(data) > maxConfigBytes {
		return nil, ErrTooLarge
	}
	return json.RawMessage(data), nil
}
