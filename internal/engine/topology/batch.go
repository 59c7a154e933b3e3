package topology

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BuildAll indexes several meshes concurrently. Loads share no state; the
// first failure cancels the remaining ones and is returned. limit bounds the
// number of meshes indexed at once, zero or less means unbounded.
func BuildAll[V any](ctx context.Context, sources []Source[V], limit int) ([]*Buffers[V], error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	out := make([]*Buffers[V], len(sources))
	for i := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := Build(sources[i])
			if err != nil {
				return err
			}
			out[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
