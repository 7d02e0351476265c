package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"graphbrowser/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Connect creates a driver and verifies connectivity, retrying with the
// configured attempts and delay. Authentication failures are not retried.
func Connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Neo4jClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	auth := neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, "")

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	start := time.Now()
	logger.Info("connecting to neo4j", "uri", cfg.Neo4jURI, "user", cfg.Neo4jUser)

	err = verifyWithRetry(ctx, driver.VerifyConnectivity, cfg.ConnectRetries, cfg.ConnectDelay, logger)
	if err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify connectivity to neo4j: %w", err)
	}

	logger.Info("connected to neo4j", "uri", cfg.Neo4jURI, "elapsed", time.Since(start).String())
	return NewNeo4jClient(driver, cfg.QueryTimeout, logger), nil
}

// verifyWithRetry calls verify up to attempts times, delay apart. Security
// errors stop the loop at once, as does ctx.
func verifyWithRetry(ctx context.Context, verify func(context.Context) error, attempts int, delay time.Duration, logger *slog.Logger) error {
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		if err := verify(ctx); err != nil {
			if isSecurityError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("neo4j connection attempt failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"retry_in", wait.String(),
			"error", err,
		)
	})
}

func isSecurityError(err error) bool {
	var neoErr *neo4j.Neo4jError
	return errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security.")
}
