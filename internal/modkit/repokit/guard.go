package repokit

import (
	"context"
	"time"

	perr "sentinel/internal/platform/errors"
)

type guarder interface {
	Guard(context.Context) error
}

// defaultPingTimeout bounds Ping when ctx has no deadline
const defaultPingTimeout = 5 * time.Second

// Ping checks one dependency and reports failures as source unavailable
func Ping(ctx context.Context, name string, p interface{ Ping(context.Context) error }) error {
	if p == nil {
		return perr.Unavailablef("%s: nil dependency", name)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPingTimeout)
		defer cancel()
	}
	if err := p.Ping(ctx); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s ping failed", name)
	}
	return nil
}

// Guard runs st.Guard and maps any failure to source unavailable
func Guard(ctx context.Context, st guarder) error {
	if err := st.Guard(ctx); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "dependency guard failed")
	}
	return nil
}
