package petrovisor

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Codec serializes objects stored as workspace files.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

var (
	// JSONCodec stores objects as JSON.
	JSONCodec Codec = jsonCodec{}
	// GobCodec stores objects in encoding/gob form, readable only by Go.
	GobCodec Codec = gobCodec{}
)

// FileScope groups workspace file operations.
type FileScope struct {
	c *Client
}

// Files returns the workspace file operations.
func (c *Client) Files() *FileScope { return &FileScope{c: c} }

// Names returns the names of all files.
func (s *FileScope) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.c.get(ctx, "files.names", "Files", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Get returns the content of the named file. A response suppressed by the
// error policy yields nil content.
func (s *FileScope) Get(ctx context.Context, name string) ([]byte, error) {
	res, err := s.c.Call(ctx, Call{Method: http.MethodGet, Path: "Files/" + name, Format: FormatBytes, Operation: "files.get"})
	if err != nil || res == nil || !res.OK() {
		return nil, err
	}
	return res.Body, nil
}

// Delete removes the named file.
func (s *FileScope) Delete(ctx context.Context, name string) error {
	return s.c.delete(ctx, "files.delete", "Files/"+name, nil, nil)
}

// UploadBytes stores data as the named file.
func (s *FileScope) UploadBytes(ctx context.Context, name string, data []byte) error {
	call := Call{
		Method:    http.MethodPost,
		Path:      "Files/Upload",
		Files:     []FilePart{{Field: "file", Name: name, Data: data}},
		Format:    FormatNone,
		Operation: "files.upload",
	}
	_, err := s.c.Call(ctx, call)
	return err
}

// UploadReader stores the content of r as the named file.
func (s *FileScope) UploadReader(ctx context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("files.upload: %w", err)
	}
	return s.UploadBytes(ctx, name, data)
}

// Upload stores a local file under its base name.
func (s *FileScope) Upload(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("files.upload: %w", err)
	}
	return s.UploadBytes(ctx, filepath.Base(path), data)
}

// GetObject decodes the named file into v with codec, GobCodec when nil.
func (s *FileScope) GetObject(ctx context.Context, name string, v any, codec Codec) error {
	if codec == nil {
		codec = GobCodec
	}
	data, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("files.get_object: %q: %w", name, ErrNotFound)
	}
	if err := codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("files.get_object: %q: %w", name, err)
	}
	return nil
}

// PutObject encodes v with codec, GobCodec when nil, and stores it as the
// named file.
func (s *FileScope) PutObject(ctx context.Context, name string, v any, codec Codec) error {
	if codec == nil {
		codec = GobCodec
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("files.put_object: %q: %w", name, err)
	}
	return s.UploadBytes(ctx, name, data)
}
