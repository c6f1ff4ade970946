package blob

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"petrovisor/pkg/petrovisor"
)

const filesPrefix = "/PetroVisor/API/ws/Files"

// fakeFiles serves the workspace file routes from memory.
func fakeFiles(t *testing.T) *petrovisor.Client {
	t.Helper()
	var mu sync.Mutex
	files := map[string][]byte{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+filesPrefix, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		names := []string{}
		for n := range files {
			names = append(names, n)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(names)
	})
	mux.HandleFunc("GET "+filesPrefix+"/{name}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		data, ok := files[r.PathValue("name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	})
	mux.HandleFunc("DELETE "+filesPrefix+"/{name}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		delete(files, r.PathValue("name"))
	})
	mux.HandleFunc("POST "+filesPrefix+"/Upload", func(w http.ResponseWriter, r *http.Request) {
		f, h, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		mu.Lock()
		files[h.Filename] = data
		mu.Unlock()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := petrovisor.New(context.Background(), "ws",
		petrovisor.WithAPI(srv.URL+"/"),
		petrovisor.WithToken("test-token"),
		petrovisor.WithHTTPClient(srv.Client()),
		petrovisor.WithRetryDelay(0),
		petrovisor.WithMaxAttempts(1),
		petrovisor.WithErrorPolicy(petrovisor.ErrorsRaise),
	)
	if err != nil {
		t.Fatalf("petrovisor.New: %v", err)
	}
	return c
}

func TestRemote(t *testing.T) {
	exerciseStore(t, NewRemote(fakeFiles(t)))
}

func TestOpen_Remote(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "petrovisor://", fakeFiles(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Driver() != DriverRemote {
		t.Fatalf("driver = %s", s.Driver())
	}

	src := NewMemory()
	src.Put(ctx, "model.json", strings.NewReader(`{"trees":3}`), PutOptions{})
	if n, err := Mirror(ctx, s, src, ""); err != nil || n != 1 {
		t.Fatalf("Mirror = %d, %v", n, err)
	}
	if got := readAll(t, s, "model.json"); got != `{"trees":3}` {
		t.Errorf("content = %q", got)
	}
}
