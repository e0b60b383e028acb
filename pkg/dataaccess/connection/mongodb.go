package connection

import (
	"context"
	"errors"
	"fmt"

	dbMonitoring "github.com/Jacobbrewer1/supportbot/pkg/dataaccess/monitoring"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoConnectionString is returned when a connection is attempted without a URI.
var ErrNoConnectionString = errors.New("no connection string")

// MongoDB connects to a mongo deployment.
type MongoDB struct {
	// ConnectionString is a mongodb:// or mongodb+srv:// URI.
	ConnectionString string
}

// Connect opens a client and pings it. The client is disconnected again if the ping fails.
func (m *MongoDB) Connect(ctx context.Context) (*mongo.Client, error) {
	if m.ConnectionString == "" {
		return nil, ErrNoConnectionString
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(m.ConnectionString).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}

	done := dbMonitoring.Observe("connection", "ping", "mongo", "-")
	err = client.Ping(ctx, nil)
	done()
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging mongo: %w", err)
	}
	return client, nil
}
