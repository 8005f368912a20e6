package lazy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrModuleNotFound is returned by loaders when a module does not exist.
var ErrModuleNotFound = errors.New("lazy: module not found")

// ErrInvalidModule is returned for module names that escape the loader root.
var ErrInvalidModule = errors.New("lazy: invalid module name")

// S3API is the subset of *s3.Client used by S3Loader.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader loads modules from an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	loader := lazy.NewS3Loader(s3.NewFromConfig(cfg), "my-bucket", "modules/")
type S3Loader struct {
	client  S3API
	bucket  string
	prefix  string
	maxSize int64
}

// NewS3Loader creates a loader reading prefix+module from bucket.
func NewS3Loader(client S3API, bucket, prefix string) *S3Loader {
	return &S3Loader{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: 10 << 20,
	}
}

// WithMaxSize limits the module size in bytes (0 = no limit).
func (l *S3Loader) WithMaxSize(n int64) *S3Loader {
	l.maxSize = n
	return l
}

// Load implements Loader.
func (l *S3Loader) Load(ctx context.Context, module string) ([]byte, error) {
	name, err := cleanModule(module)
	if err != nil {
		return nil, err
	}
	key := l.prefix + name

	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", l.bucket, key, err)
	}
	defer out.Body.Close()

	if l.maxSize > 0 && out.ContentLength != nil && *out.ContentLength > l.maxSize {
		return nil, fmt.Errorf("s3 get %s/%s: %d bytes exceeds limit of %d", l.bucket, key, *out.ContentLength, l.maxSize)
	}

	r := io.Reader(out.Body)
	if l.maxSize > 0 {
		r = io.LimitReader(out.Body, l.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s/%s: %w", l.bucket, key, err)
	}
	if l.maxSize > 0 && int64(len(data)) > l.maxSize {
		return nil, fmt.Errorf("s3 get %s/%s: exceeds limit of %d bytes", l.bucket, key, l.maxSize)
	}
	return data, nil
}

// FSLoader loads modules from a file system.
type FSLoader struct {
	fsys fs.FS
}

// NewFSLoader creates a loader reading modules from fsys.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

// Load implements Loader.
func (l *FSLoader) Load(_ context.Context, module string) ([]byte, error) {
	name, err := cleanModule(module)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return data, err
}

// cleanModule normalizes a module name to a slash-separated relative path.
func cleanModule(module string) (string, error) {
	name := path.Clean(strings.TrimPrefix(module, "/"))
	if module == "" || name == "." || !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidModule, module)
	}
	return name, nil
}
