package petrovisor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fileStore serves Files/Upload and Files/<name> from memory.
type fileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFileAPI(t *testing.T, names ...string) (*fakeAPI, *fileStore) {
	api := newFakeAPI(t)
	store := &fileStore{files: map[string][]byte{}}
	api.handle("POST Files/Upload", func(w http.ResponseWriter, r *http.Request) {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		store.mu.Lock()
		store.files[hdr.Filename] = data
		store.mu.Unlock()
	})
	for _, n := range names {
		api.handle("GET Files/"+n, func(w http.ResponseWriter, r *http.Request) {
			store.mu.Lock()
			data, ok := store.files[n]
			store.mu.Unlock()
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(data)
		})
	}
	return api, store
}

type wellState struct {
	Name  string
	Rates []float64
	Open  bool
}

func TestFiles_ObjectRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name  string
		codec Codec
	}{
		{"state.json", JSONCodec},
		{"state.gob", GobCodec},
		{"state.bin", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			api, _ := newFileAPI(t, tc.name)
			c := newTestClient(t, api)
			ctx := context.Background()
			in := wellState{Name: "W1", Rates: []float64{1.5, 2}, Open: true}
			if err := c.Files().PutObject(ctx, tc.name, in, tc.codec); err != nil {
				t.Fatalf("PutObject: %v", err)
			}
			var out wellState
			if err := c.Files().GetObject(ctx, tc.name, &out, tc.codec); err != nil {
				t.Fatalf("GetObject: %v", err)
			}
			if diff := cmp.Diff(in, out); diff != "" {
				t.Errorf("object mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFiles_PutObjectDefaultsToGob(t *testing.T) {
	api, store := newFileAPI(t, "state.bin")
	c := newTestClient(t, api)
	in := wellState{Name: "W1", Rates: []float64{3}, Open: true}
	if err := c.Files().PutObject(context.Background(), "state.bin", in, nil); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	store.mu.Lock()
	data := store.files["state.bin"]
	store.mu.Unlock()
	var out wellState
	if err := GobCodec.Unmarshal(data, &out); err != nil {
		t.Fatalf("stored object is not gob: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("object mismatch (-want +got):\n%s", diff)
	}
	if err := JSONCodec.Unmarshal(data, &out); err == nil {
		t.Error("default encoding should not be JSON")
	}
}

func TestFiles_Upload(t *testing.T) {
	api, store := newFileAPI(t)
	c := newTestClient(t, api)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Files().Upload(context.Background(), path); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if got := string(store.files["notes.txt"]); got != "hello" {
		t.Errorf("stored %q, want %q", got, "hello")
	}
}

func TestFiles_GetObjectMissing(t *testing.T) {
	api, _ := newFileAPI(t, "gone.json")
	c := newTestClient(t, api, WithErrorPolicy(ErrorsCoerce))
	var v map[string]any
	err := c.Files().GetObject(context.Background(), "gone.json", &v, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFiles_GetObjectDecodeError(t *testing.T) {
	api, store := newFileAPI(t, "bad.json")
	store.files["bad.json"] = []byte("{not json")
	c := newTestClient(t, api)
	var v map[string]any
	if err := c.Files().GetObject(context.Background(), "bad.json", &v, JSONCodec); err == nil {
		t.Fatal("expected decode error")
	}
}
