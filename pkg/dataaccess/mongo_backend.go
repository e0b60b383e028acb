package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess/connection"
	"github.com/Jacobbrewer1/supportbot/pkg/dataaccess/monitoring"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoBackendName      = "mongo"
	mongoDatabase         = "supportbot"
	mongoStateCollection  = "state"
	mongoOperationTimeout = 5 * time.Second
)

// mongoDocument is the stored shape of a document. The value is kept as an opaque string so the
// contract is the same as the relational table.
type mongoDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoConnectFunc func(ctx context.Context, uri string) (*mongo.Client, error)

// MongoBackend stores documents in a mongo collection. The client is created on first use.
type MongoBackend struct {
	uri        string
	database   string
	collection string
	connect    mongoConnectFunc
	now        func() time.Time
	retry      time.Duration

	mu          sync.Mutex
	client      *mongo.Client
	lastErr     error
	lastAttempt time.Time
}

// NewMongoBackend creates a mongo backend for uri. No connection is made until first use.
func NewMongoBackend(uri string) (*MongoBackend, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	return &MongoBackend{
		uri:        uri,
		database:   mongoDatabase,
		collection: mongoStateCollection,
		connect: func(ctx context.Context, uri string) (*mongo.Client, error) {
			conn := &connection.MongoDB{ConnectionString: uri}
			return conn.Connect(ctx)
		},
		now:   time.Now,
		retry: defaultReconnectInterval,
	}, nil
}

// Name implements Backend.
func (b *MongoBackend) Name() string {
	return mongoBackendName
}

// Load implements Backend.
func (b *MongoBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	defer monitoring.Observe(mongoBackendName, "load", mongoBackendName, key)()

	coll, err := b.ensureReady(ctx)
	if err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	doc := new(mongoDocument)
	err = coll.FindOne(ctx, bson.M{"_id": key}).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("error loading %s: %w", key, err)
	}
	return []byte(doc.Value), true, nil
}

// Save implements Backend.
func (b *MongoBackend) Save(ctx context.Context, key string, value []byte) error {
	defer monitoring.Observe(mongoBackendName, "save", mongoBackendName, key)()

	coll, err := b.ensureReady(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	opts := options.Update().SetUpsert(true)
	_, err = coll.UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": bson.M{
		"value":      string(value),
		"updated_at": b.now().UTC(),
	}}, opts)
	if err != nil {
		return fmt.Errorf("error saving %s: %w", key, err)
	}
	return nil
}

// Ping implements Backend.
func (b *MongoBackend) Ping(ctx context.Context) error {
	coll, err := b.ensureReady(ctx)
	if err != nil {
		return err
	}
	return coll.Database().Client().Ping(ctx, nil)
}

// Close implements Backend.
func (b *MongoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Disconnect(context.Background())
	b.client = nil
	return err
}

func (b *MongoBackend) ensureReady(ctx context.Context) (*mongo.Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return b.client.Database(b.database).Collection(b.collection), nil
	}

	now := b.now()
	if b.lastErr != nil && now.Sub(b.lastAttempt) < b.retry {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, b.lastErr)
	}
	b.lastAttempt = now

	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	client, err := b.connect(ctx, b.uri)
	if err != nil {
		b.lastErr = err
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	b.client = client
	b.lastErr = nil
	return client.Database(b.database).Collection(b.collection), nil
}
