package blob

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"petrovisor/internal/logging"
)

// MirrorConcurrency bounds the parallel copies of Mirror.
var MirrorConcurrency = 4

// Mirror copies every blob of src whose key has prefix into dst and returns
// the number copied. Blobs already in dst with the same known size are
// skipped.
func Mirror(ctx context.Context, dst, src Store, prefix string) (int, error) {
	logger := logging.New("blob")
	infos, err := src.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	var copied atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MirrorConcurrency)
	for _, info := range infos {
		g.Go(func() error {
			if have, err := dst.Head(gctx, info.Key); err == nil {
				if info.Size >= 0 && have.Size == info.Size {
					logger.Debug("skipping unchanged blob", "key", info.Key, "driver", dst.Driver())
					return nil
				}
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}
			got, rc, err := src.Get(gctx, info.Key)
			if err != nil {
				return err
			}
			defer rc.Close()
			if _, err := dst.Put(gctx, info.Key, rc, PutOptions{ContentType: got.ContentType, Metadata: got.Metadata}); err != nil {
				return fmt.Errorf("blob: mirror %s: %w", info.Key, err)
			}
			copied.Add(1)
			return nil
		})
	}
	err = g.Wait()
	logger.Info("mirrored blobs", "from", src.Driver(), "to", dst.Driver(), "copied", copied.Load(), "listed", len(infos))
	return int(copied.Load()), err
}
