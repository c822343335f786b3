// Package upload copies exported report files to S3-compatible object storage.
package upload

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Client struct {
	mc *minio.Client
}

func New(endpoint, accessKey, secretKey string, useSSL bool) (*Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create object storage client: %w", err)
	}
	return &Client{mc: mc}, nil
}

func (c *Client) UploadFile(ctx context.Context, bucket, key, filePath string, contentType string) error {
	_, err := c.mc.FPutObject(ctx, bucket, key, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// EnsureBucket creates bucket when it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	ok, err := c.mc.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return c.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}

// UploadReport uploads the files of one exported report under
// <prefix>/<run id>/ and returns the object keys in order.
func (c *Client) UploadReport(ctx context.Context, bucket, prefix string, files []string) ([]string, error) {
	keys := ObjectKeys(prefix, uuid.New(), files)
	for i, f := range files {
		if err := c.UploadFile(ctx, bucket, keys[i], f, ContentType(f)); err != nil {
			return keys[:i], fmt.Errorf("upload %s: %w", f, err)
		}
	}
	return keys, nil
}

// ObjectKeys maps local report files onto object keys. A split layout
// keeps its directory name so summary and attributes stay together.
func ObjectKeys(prefix string, runID uuid.UUID, files []string) []string {
	prefix = strings.Trim(prefix, "/")
	keys := make([]string, len(files))
	for i, f := range files {
		name := filepath.Base(f)
		if dir := filepath.Base(filepath.Dir(f)); isSplitDoc(name) && dir != "." && dir != string(filepath.Separator) {
			name = dir + "/" + name
		}
		keys[i] = path.Join(prefix, runID.String(), name)
	}
	return keys
}

func isSplitDoc(name string) bool {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return base == "summary" || base == "attributes"
}

// ContentType returns the MIME type stored with a report object.
func ContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	}
	return "application/octet-stream"
}
