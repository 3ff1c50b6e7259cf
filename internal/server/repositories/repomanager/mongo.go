package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const accountsCollection = "accounts"

// MongoRepositoryManager vends MongoDB-backed repositories. Indexes are
// ensured once, when the client is first connected.
type MongoRepositoryManager struct {
	client   *dbx.Lazy[*mongo.Client]
	database string
}

// mongoConnect is a seam for testing mongo.Connect.
var mongoConnect = func(ctx context.Context, opts ...*options.ClientOptions) (*mongo.Client, error) {
	return mongo.Connect(ctx, opts...)
}

// ensureIndexes is a seam for testing accounts.EnsureIndexes.
var ensureIndexes = accounts.EnsureIndexes

func NewMongoRepositoryManager(uri, database string) *MongoRepositoryManager {
	m := &MongoRepositoryManager{database: database}
	m.client = dbx.NewLazy(func(ctx context.Context) (*mongo.Client, error) {
		client, err := mongoConnect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		if err := ensureIndexes(ctx, client.Database(database).Collection(accountsCollection)); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return client, nil
	})
	return m
}

// Accounts returns an accounts.Repository over the accounts collection.
func (m *MongoRepositoryManager) Accounts(ctx context.Context) (accounts.Repository, error) {
	client, err := m.client.Get(ctx)
	if err != nil {
		return nil, err
	}
	return accounts.NewMongoRepository(client.Database(m.database).Collection(accountsCollection)), nil
}

// Close disconnects the client if it was ever connected.
func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	if client, ok := m.client.Peek(); ok {
		return client.Disconnect(ctx)
	}
	return nil
}
