package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
)

// fakeS3 answers the handful of S3 calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  bool
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket != "products" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Query().Has("location"):
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
	case r.Method == http.MethodHead && key == "":
		if !f.bucket {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && key == "":
		f.bucket = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = string(body)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(config.ObjectStorageSettings{}); err == nil {
		t.Fatal("expected error for empty settings")
	}
	ok := config.ObjectStorageSettings{Endpoint: "localhost:9000", Bucket: "products", AccessKey: "a", SecretKey: "b"}
	if err := Validate(ok); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDisabled_RejectsUploads(t *testing.T) {
	_, err := Disabled{}.Put(context.Background(), "k", strings.NewReader("x"), 1, "image/png")
	if !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("expected ErrStorageDisabled, got %v", err)
	}
}

func TestMinIOStore_PutAndDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store, err := NewMinIOStore(context.Background(), config.ObjectStorageSettings{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "products",
		Region:    "us-east-1",
		PublicURL: "https://cdn.example.com/products/",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMinIOStore: %v", err)
	}
	if !fake.bucket {
		t.Fatal("expected bucket to be created")
	}

	obj, err := store.Put(context.Background(), "p1/image.png", strings.NewReader("png-bytes"), 9, "image/png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.URL != "https://cdn.example.com/products/p1/image.png" || obj.Size != 9 {
		t.Fatalf("unexpected object %+v", obj)
	}
	if _, ok := fake.objects["p1/image.png"]; !ok {
		t.Fatalf("object not stored: %v", fake.objects)
	}

	if err := store.Delete(context.Background(), "p1/image.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := fake.objects["p1/image.png"]; ok {
		t.Fatal("object not removed")
	}
}
