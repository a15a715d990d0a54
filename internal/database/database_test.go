package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConnectRequiresURI(t *testing.T) {
	_, err := Connect(context.Background(), "", "", zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrMissingURI)
}

func TestConnectRejectsInvalidURI(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-mongo-uri", "", zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestConnectFailsFastWhenUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed local port")
	}
	uri := "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=300&connectTimeoutMS=300"

	start := time.Now()
	_, err := Connect(context.Background(), uri, "", zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Less(t, time.Since(start), connectTimeout)
}

func TestResolveDatabaseName(t *testing.T) {
	name, err := ResolveDatabaseName("mongodb://localhost:27017/shop", "")
	require.NoError(t, err)
	assert.Equal(t, "shop", name)

	name, err = ResolveDatabaseName("mongodb://localhost:27017", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultDatabase, name)

	name, err = ResolveDatabaseName("mongodb://localhost:27017/shop", "override")
	require.NoError(t, err)
	assert.Equal(t, "override", name)

	_, err = ResolveDatabaseName("http://localhost", "")
	assert.Error(t, err)
}
