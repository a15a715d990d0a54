// Package database は MongoDB への接続を管理します。
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"
)

const (
	// DefaultDatabase は URI にも設定にもデータベース名が無い場合に使う名前です。
	DefaultDatabase = "app"

	connectTimeout = 10 * time.Second
)

// ErrMissingURI は MONGODB_URI が設定されていない場合に返されます。
var ErrMissingURI = errors.New("MONGODB_URI is not set")

// Mongo は MongoDB クライアントと使用中のデータベースを保持します。
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect は MongoDB へ一度だけ接続を試み、Ping で疎通を確認します。
// リトライは行いません。失敗した場合は呼び出し側でプロセスを終了させます。
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Mongo, error) {
	if uri == "" {
		return nil, ErrMissingURI
	}

	name, err := ResolveDatabaseName(uri, dbName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", name))

	return &Mongo{
		Client:   client,
		Database: client.Database(name),
	}, nil
}

// ResolveDatabaseName は明示的な名前、URI のパス、既定値の順にデータベース名を決定します。
func ResolveDatabaseName(uri, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("invalid MONGODB_URI: %w", err)
	}
	if cs.Database != "" {
		return cs.Database, nil
	}
	return DefaultDatabase, nil
}

// Collection は使用中のデータベースのコレクションを返します。
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}

// Close は MongoDB との接続を閉じます。
func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
