package lazy

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	vrerrors "github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/navrouter"
)

type fakeS3 struct {
	objects map[string]string
	gets    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.gets = append(f.gets, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

var route = &navrouter.Route{Path: "/reports"}

func TestPluginLoadsOnce(t *testing.T) {
	var calls int32
	loader := LoaderFunc(func(_ context.Context, module string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("code:" + module), nil
	})

	var loaded []string
	p := New("reports.js", loader, OnLoad(func(module string, data []byte) {
		loaded = append(loaded, module+"="+string(data))
	}))

	for i := 0; i < 3; i++ {
		if err := p.BeforeNavigation(context.Background(), route); err != nil {
			t.Fatalf("BeforeNavigation() error = %v", err)
		}
	}

	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	if len(loaded) != 1 || loaded[0] != "reports.js=code:reports.js" {
		t.Errorf("OnLoad calls = %v", loaded)
	}
	if data, ok := p.Cache().Get("reports.js"); !ok || string(data) != "code:reports.js" {
		t.Errorf("Cache().Get() = %q, %v", data, ok)
	}
	if p.Name() != "lazy:reports.js" || p.Module() != "reports.js" {
		t.Errorf("Name() = %q, Module() = %q", p.Name(), p.Module())
	}
}

func TestPluginSharedCacheConcurrent(t *testing.T) {
	var calls int32
	loader := LoaderFunc(func(context.Context, string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("x"), nil
	})
	cache := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := New("shared.js", loader, WithCache(cache))
			if err := p.BeforeNavigation(context.Background(), route); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	if got := cache.Modules(); len(got) != 1 || got[0] != "shared.js" {
		t.Errorf("Modules() = %v", got)
	}
}

func TestPluginFailureIsR005(t *testing.T) {
	cause := errors.New("network down")
	p := New("broken.js", LoaderFunc(func(context.Context, string) ([]byte, error) {
		return nil, cause
	}))

	err := p.BeforeNavigation(context.Background(), route)
	if !vrerrors.HasCode(err, "R005") {
		t.Errorf("error = %v, want R005", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error should wrap the loader error")
	}
	if _, ok := p.Cache().Get("broken.js"); ok {
		t.Error("failed module should not be cached")
	}
}

func TestS3Loader(t *testing.T) {
	client := &fakeS3{objects: map[string]string{
		"bucket/modules/reports.js": "export default 1",
		"bucket/modules/big.js":     strings.Repeat("a", 32),
	}}
	loader := NewS3Loader(client, "bucket", "modules/")

	data, err := loader.Load(context.Background(), "/reports.js")
	if err != nil || string(data) != "export default 1" {
		t.Fatalf("Load() = %q, %v", data, err)
	}
	if client.gets[0] != "bucket/modules/reports.js" {
		t.Errorf("GetObject key = %q", client.gets[0])
	}

	if _, err := loader.Load(context.Background(), "missing.js"); err == nil {
		t.Error("Load(missing) should fail")
	}
	if _, err := loader.WithMaxSize(16).Load(context.Background(), "big.js"); err == nil {
		t.Error("Load(big) should exceed the size limit")
	}
	if _, err := loader.Load(context.Background(), "../secrets"); !errors.Is(err, ErrInvalidModule) {
		t.Errorf("Load(../secrets) error = %v, want ErrInvalidModule", err)
	}
}

func TestFSLoader(t *testing.T) {
	loader := NewFSLoader(fstest.MapFS{
		"modules/a.js": {Data: []byte("a")},
	})

	tests := []struct {
		module  string
		want    string
		wantErr error
	}{
		{"modules/a.js", "a", nil},
		{"/modules/a.js", "a", nil},
		{"modules/b.js", "", ErrModuleNotFound},
		{"", "", ErrInvalidModule},
		{"../etc/passwd", "", ErrInvalidModule},
	}

	for _, tt := range tests {
		data, err := loader.Load(context.Background(), tt.module)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load(%q) error = %v, want %v", tt.module, err, tt.wantErr)
			}
			continue
		}
		if err != nil || string(data) != tt.want {
			t.Errorf("Load(%q) = %q, %v; want %q", tt.module, data, err, tt.want)
		}
	}
}
