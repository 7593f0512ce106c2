package opensearch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/dmitrymomot/hookflow"
	"github.com/dmitrymomot/hookflow/core/hook"
)

// New creates a client and verifies the cluster answers.
func New(ctx context.Context, cfg Config) (*opensearch.Client, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.DisableRetry,
	})
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	if err := Healthcheck(client)(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// Healthcheck returns a function that requests the cluster info.
func Healthcheck(client *opensearch.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := client.Info(
			client.Info.WithContext(ctx),
			client.Info.WithErrorTrace(),
		)
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		defer res.Body.Close()
		_, _ = io.Copy(io.Discard, res.Body)

		if res.IsError() {
			return errors.Join(ErrHealthcheckFailed, fmt.Errorf("unexpected status: %s", res.Status()))
		}
		return nil
	}
}

// Plugin checks the cluster when the application becomes ready.
func Plugin(client *opensearch.Client) hookflow.Plugin {
	return func(app *hookflow.App) error {
		return app.AddHook(hook.OnReady, Healthcheck(client))
	}
}
