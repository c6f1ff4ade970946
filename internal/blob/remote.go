package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"slices"
	"strings"

	"petrovisor/pkg/petrovisor"
)

// Remote is a Store over the files of a PetroVisor workspace. The service
// keeps no file metadata, so Info carries the key, a content type guessed
// from the extension and, where the content was read, its size.
type Remote struct {
	files *petrovisor.FileScope
}

// NewRemote returns a store over the workspace files of c.
func NewRemote(c *petrovisor.Client) *Remote { return &Remote{files: c.Files()} }

func (s *Remote) Driver() Driver { return DriverRemote }

func remoteInfo(key string, size int64) Info {
	return Info{Key: key, Size: size, ContentType: mime.TypeByExtension(path.Ext(key))}
}

func (s *Remote) Put(ctx context.Context, key string, r io.Reader, _ PutOptions) (Info, error) {
	if key == "" {
		return Info{}, ErrInvalidKey
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, fmt.Errorf("blob: put %s: %w", key, err)
	}
	if err := s.files.UploadBytes(ctx, key, data); err != nil {
		return Info{}, err
	}
	return remoteInfo(key, int64(len(data))), nil
}

func (s *Remote) exists(ctx context.Context, key string) (bool, error) {
	names, err := s.files.Names(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, key), nil
}

func (s *Remote) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	if ok, err := s.exists(ctx, key); err != nil || !ok {
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return Info{}, nil, err
	}
	data, err := s.files.Get(ctx, key)
	if err != nil {
		return Info{}, nil, err
	}
	return remoteInfo(key, int64(len(data))), io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Remote) Head(ctx context.Context, key string) (Info, error) {
	ok, err := s.exists(ctx, key)
	if err != nil {
		return Info{}, err
	}
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return remoteInfo(key, -1), nil
}

func (s *Remote) Delete(ctx context.Context, key string) (bool, error) {
	ok, err := s.exists(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := s.files.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Remote) List(ctx context.Context, prefix string) ([]Info, error) {
	names, err := s.files.Names(ctx)
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	var out []Info
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, remoteInfo(n, -1))
		}
	}
	return out, nil
}
