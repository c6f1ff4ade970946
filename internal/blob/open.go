package blob

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"petrovisor/pkg/petrovisor"
)

// Open selects a Store from a URL:
//
//	mem://                          in-memory store
//	file:///var/data or /var/data   local directory
//	s3://bucket/prefix?region=eu-west-1&endpoint=http://minio:9000&path_style=true
//	petrovisor://                   files of the workspace of client
//
// client is only needed for petrovisor:// URLs.
func Open(ctx context.Context, rawURL string, client *petrovisor.Client) (Store, error) {
	if !strings.Contains(rawURL, "://") {
		return NewFilesystem(rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("blob: %w", err)
	}
	switch u.Scheme {
	case "mem", "memory":
		return NewMemory(), nil
	case "file":
		return NewFilesystem(u.Host + u.Path)
	case "s3":
		q := u.Query()
		cfg := S3Config{
			Bucket:   u.Host,
			Prefix:   strings.TrimPrefix(u.Path, "/"),
			Region:   q.Get("region"),
			Endpoint: q.Get("endpoint"),
		}
		if cfg.Prefix != "" && !strings.HasSuffix(cfg.Prefix, "/") {
			cfg.Prefix += "/"
		}
		if v := q.Get("path_style"); v != "" {
			if cfg.PathStyle, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("blob: path_style: %w", err)
			}
		}
		return NewS3(ctx, cfg)
	case "petrovisor", "pv":
		if client == nil {
			return nil, fmt.Errorf("blob: %s needs a PetroVisor client", rawURL)
		}
		return NewRemote(client), nil
	}
	return nil, fmt.Errorf("blob: unknown driver %q", u.Scheme)
}
