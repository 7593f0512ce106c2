package mongo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	driver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/hookflow"
	"github.com/dmitrymomot/hookflow/integration/database/mongo"
)

// unreachableURL points at a local port nothing listens on.
const unreachableURL = "mongodb://127.0.0.1:1"

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()

		_, err := mongo.New(context.Background(), mongo.Config{ConnectionURL: "http://127.0.0.1"})
		assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()

		_, err := mongo.NewWithDatabase(context.Background(), mongo.Config{
			ConnectionURL:          unreachableURL,
			ServerSelectionTimeout: 100 * time.Millisecond,
			RetryAttempts:          2,
			RetryInterval:          10 * time.Millisecond,
		}, "app")
		assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
	})
}

func TestPlugin(t *testing.T) {
	t.Parallel()

	client, err := driver.Connect(options.Client().
		ApplyURI(unreachableURL).
		SetServerSelectionTimeout(100 * time.Millisecond))
	require.NoError(t, err)

	app := hookflow.New()
	require.NoError(t, app.Register(mongo.Plugin(client)))

	assert.ErrorIs(t, app.Ready(context.Background()), mongo.ErrHealthcheckFailed)
	assert.NoError(t, app.Close(context.Background()))
}
