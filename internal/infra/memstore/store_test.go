package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/osvaldoandrade/docprov/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

const flashSaleValidator = `{"$jsonSchema":{"bsonType":"object","required":["name","stock","start_time"],"properties":{"name":{"bsonType":"string"},"stock":{"bsonType":"int"},"start_time":{"bsonType":"date"}}}}`

func newFlashSale(t *testing.T) *Store {
	t.Helper()
	store := New()
	db, err := store.SelectDatabase(context.Background(), "double_token_example")
	require.NoError(t, err)
	require.NoError(t, db.CreateCollection(context.Background(), "goods", []byte(flashSaleValidator)))
	return store
}

func TestCreateCollectionTwiceReportsExists(t *testing.T) {
	store := newFlashSale(t)
	db, err := store.SelectDatabase(context.Background(), "double_token_example")
	require.NoError(t, err)

	err = db.CreateCollection(context.Background(), "goods", []byte(flashSaleValidator))
	assert.ErrorIs(t, err, domain.ErrCollectionExists)
	assert.Equal(t, []string{"goods"}, store.CollectionNames("double_token_example"))
}

func TestInsertEnforcesValidator(t *testing.T) {
	store := newFlashSale(t)
	ctx := context.Background()

	valid := bson.M{"name": "phone", "stock": int32(10), "start_time": time.Now()}
	require.NoError(t, store.Insert(ctx, "double_token_example", "goods", valid))

	floatStock := bson.M{"name": "phone", "stock": 10.5, "start_time": time.Now()}
	err := store.Insert(ctx, "double_token_example", "goods", floatStock)
	assert.ErrorIs(t, err, ErrDocumentRejected)

	missing := bson.M{"name": "phone", "stock": int32(1)}
	err = store.Insert(ctx, "double_token_example", "goods", missing)
	assert.ErrorIs(t, err, ErrDocumentRejected)

	assert.Equal(t, 1, store.Count("double_token_example", "goods"))
}

func TestCreateIndexIsIdempotent(t *testing.T) {
	store := newFlashSale(t)
	ctx := context.Background()
	db, err := store.SelectDatabase(ctx, "double_token_example")
	require.NoError(t, err)

	spec := domain.IndexSpec{Field: "start_time", Direction: domain.Ascending}
	first, err := db.CreateIndex(ctx, "goods", spec)
	require.NoError(t, err)
	second, err := db.CreateIndex(ctx, "goods", spec)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	indexes, err := db.ListIndexes(ctx, "goods")
	require.NoError(t, err)
	assert.Len(t, indexes, 2)

	winner, err := store.WinningIndex(ctx, "double_token_example", "goods", "start_time", domain.BSONDate)
	require.NoError(t, err)
	assert.Equal(t, "start_time_1", winner)

	winner, err = store.WinningIndex(ctx, "double_token_example", "goods", "stock", domain.BSONInt)
	require.NoError(t, err)
	assert.Empty(t, winner)
}

func TestCreateIndexOnMissingCollection(t *testing.T) {
	store := newFlashSale(t)
	ctx := context.Background()
	db, err := store.SelectDatabase(ctx, "double_token_example")
	require.NoError(t, err)

	_, err = db.CreateIndex(ctx, "missing", domain.IndexSpec{Field: "name", Direction: domain.Ascending})
	assert.ErrorIs(t, err, domain.ErrIndexCreation)
}

func TestUnavailableStore(t *testing.T) {
	store := New()
	store.SetUnavailable(true)

	_, err := store.SelectDatabase(context.Background(), "shop")
	assert.True(t, errors.Is(err, domain.ErrConnection))
}
