package reports

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var buildGroup singleflight.Group

// singleflightBuild collapses concurrent builds of the same report key.
func singleflightBuild(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	resultChan := buildGroup.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
