package ledgerclient

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/endpoints"
)

const defaultMaxAttempts = 5

// ResourceHandler reacts to a metered-capacity rejection before the
// submission is retried.
type ResourceHandler interface {
	HandleResourceExceeded(ctx context.Context) error
}

// Client wraps a transport with a bounded retry loop plus endpoint rotation.
// Converged rejections count as success, permanent rejections abort, and
// resource rejections are escalated to the handler before the next attempt.
// No recursion: a full rotation without success returns the last error.
type Client struct {
	inner       ports.LedgerClient
	pool        *endpoints.Pool
	guard       ResourceHandler
	maxAttempts int
	retryDelay  time.Duration
}

type Option func(*Client)

func WithPool(pool *endpoints.Pool) Option {
	return func(c *Client) {
		c.pool = pool
		if pool != nil && pool.Len() > c.maxAttempts {
			c.maxAttempts = pool.Len()
		}
	}
}

func WithResourceHandler(guard ResourceHandler) Option {
	return func(c *Client) { c.guard = guard }
}

func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) { c.retryDelay = delay }
}

func New(inner ports.LedgerClient, opts ...Option) *Client {
	client := &Client{
		inner:       inner,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) Received(
	ctx context.Context, oracle, toAccount, refHash string,
	quantity domain.Asset, chainID uint8, index uint64, confirmed bool,
) error {
	return c.submit(ctx, "received", func(ctx context.Context) error {
		return c.inner.Received(
			ctx, oracle, toAccount, refHash, quantity, chainID, index, confirmed,
		)
	})
}

func (c *Client) Sign(
	ctx context.Context, oracle string, teleportID uint64, signature string,
) error {
	return c.submit(ctx, "sign", func(ctx context.Context) error {
		return c.inner.Sign(ctx, oracle, teleportID, signature)
	})
}

func (c *Client) Claimed(
	ctx context.Context, oracle string, teleportID uint64,
	destAddress string, quantity domain.Asset,
) error {
	return c.submit(ctx, "claimed", func(ctx context.Context) error {
		return c.inner.Claimed(ctx, oracle, teleportID, destAddress, quantity)
	})
}

func (c *Client) TeleportsFrom(
	ctx context.Context, fromID uint64, limit int,
) ([]domain.Teleport, error) {
	return c.inner.TeleportsFrom(ctx, fromID, limit)
}

func (c *Client) submit(
	ctx context.Context, action string, fn func(context.Context) error,
) error {
	logger := log.WithField("action", action).
		WithField("trace_id", uuid.NewString())

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsConverged(err) {
			logger.WithField("reason", errorMessage(err)).
				Debug("state already converged, treating as success")
			return nil
		}
		if IsRejection(err) && !IsResourceExceeded(err) {
			return err
		}
		lastErr = err

		if IsResourceExceeded(err) && c.guard != nil {
			if guardErr := c.guard.HandleResourceExceeded(ctx); guardErr != nil {
				logger.WithError(guardErr).Warn("failed to borrow resources")
			}
		}
		if c.pool != nil {
			logger.WithError(err).WithField("endpoint", c.pool.Rotate()).
				Warn("submission failed, rotating endpoint")
		} else {
			logger.WithError(err).Warn("submission failed, retrying")
		}

		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
