package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/osvaldoandrade/docprov/internal/domain"
	"github.com/stretchr/testify/require"
)

const testURIEnv = "DOCPROV_TEST_MONGO_URI"

func connectForTest(t *testing.T) (*Store, string) {
	t.Helper()
	uri := os.Getenv(testURIEnv)
	if uri == "" {
		t.Skipf("%s not set", testURIEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := Connect(ctx, Options{URI: uri, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)

	dbName := fmt.Sprintf("docprov_test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.client.Database(dbName).Drop(ctx)
		_ = store.Close(ctx)
	})
	return store, dbName
}

func TestMongoProvisionRoundTrip(t *testing.T) {
	store, dbName := connectForTest(t)
	ctx := context.Background()

	db, err := store.SelectDatabase(ctx, dbName)
	require.NoError(t, err)

	_, exists, err := db.LookupCollection(ctx, "goods")
	require.NoError(t, err)
	require.False(t, exists)

	validator := []byte(`{"$jsonSchema":{"bsonType":"object","required":["name"],"properties":{"name":{"bsonType":"string"}}}}`)
	require.NoError(t, db.CreateCollection(ctx, "goods", validator))
	require.ErrorIs(t, db.CreateCollection(ctx, "goods", validator), domain.ErrCollectionExists)

	state, exists, err := db.LookupCollection(ctx, "goods")
	require.NoError(t, err)
	require.True(t, exists)
	require.JSONEq(t, string(validator), string(state.Validator))

	name, err := db.CreateIndex(ctx, "goods", domain.IndexSpec{Field: "name", Direction: domain.Ascending})
	require.NoError(t, err)
	require.Equal(t, "name_1", name)

	indexes, err := db.ListIndexes(ctx, "goods")
	require.NoError(t, err)
	require.Len(t, indexes, 2)

	winner, err := store.WinningIndex(ctx, dbName, "goods", "name", domain.BSONString)
	require.NoError(t, err)
	require.Equal(t, "name_1", winner)

	relaxed := []byte(`{"$jsonSchema":{"bsonType":"object"}}`)
	require.NoError(t, db.ReplaceValidator(ctx, "goods", relaxed))
	state, _, err = db.LookupCollection(ctx, "goods")
	require.NoError(t, err)
	require.JSONEq(t, string(relaxed), string(state.Validator))
}

func TestConnectUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := Connect(ctx, Options{URI: "mongodb://127.0.0.1:1/?directConnection=true", ConnectTimeout: 200 * time.Millisecond})
	require.ErrorIs(t, err, domain.ErrConnection)
}

func TestConnectRequiresURI(t *testing.T) {
	_, err := Connect(context.Background(), Options{})
	require.ErrorIs(t, err, ErrURIRequired)
}
