package docprovsdk

import (
	"context"
	"path/filepath"
	"testing"

	catalogapp "github.com/osvaldoandrade/docprov/internal/app/catalog"
	"github.com/osvaldoandrade/docprov/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T, cfg Config) *Client {
	t.Helper()
	cfg.Store = StoreMemory
	client, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestApplyBuiltinsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	client := openMemory(t, Config{})

	first, err := client.Apply(ctx, "goods", "flashsale")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "shop", first[0].Database)
	assert.Equal(t, "created", first[0].Action)
	assert.Equal(t, 2, first[0].IndexesCreated)
	assert.Equal(t, "double_token_example", first[1].Database)
	assert.Equal(t, 3, first[1].IndexesCreated)

	second, err := client.Apply(ctx, "goods", "flashsale")
	require.NoError(t, err)
	for i, result := range second {
		assert.Equal(t, "unchanged", result.Action)
		assert.Zero(t, result.IndexesCreated)
		assert.Equal(t, first[i].Fingerprint, result.Fingerprint)
	}
}

func TestPlanAndVerifyAfterApply(t *testing.T) {
	ctx := context.Background()
	client := openMemory(t, Config{Database: "catalog"})

	before, err := client.Plan(ctx, "goods")
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, "missing", before[0].Status)
	assert.Equal(t, []string{"name_1", "status_1"}, before[0].MissingIndexes)

	_, err = client.Apply(ctx, "goods")
	require.NoError(t, err)

	after, err := client.Plan(ctx, "goods")
	require.NoError(t, err)
	assert.Equal(t, "catalog", after[0].Database)
	assert.Equal(t, "match", after[0].Status)
	assert.Empty(t, after[0].MissingIndexes)

	result, err := client.Verify(ctx, "goods")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Indexes)
	assert.Equal(t, 2, result.Verified)
	assert.Empty(t, result.Issues)
}

func TestApplyCatalogRejectsChangedValidator(t *testing.T) {
	ctx := context.Background()
	strict := []byte(`{"collections":[{"database":"inventory","collection":"items",` +
		`"validator":{"required":["sku"],"properties":[{"name":"sku","bsonType":"string"}]},` +
		`"indexes":[{"field":"sku"}]}]}`)
	relaxed := []byte(`{"collections":[{"database":"inventory","collection":"items",` +
		`"validator":{"properties":[{"name":"sku","bsonType":"string"}]},` +
		`"indexes":[{"field":"sku"}]}]}`)

	client := openMemory(t, Config{})
	_, err := client.ApplyCatalog(ctx, strict)
	require.NoError(t, err)

	_, err = client.ApplyCatalog(ctx, relaxed)
	require.ErrorIs(t, err, domain.ErrSchemaConflict)

	overwrite := openMemory(t, Config{OnConflict: ConflictOverwrite})
	_, err = overwrite.ApplyCatalog(ctx, strict)
	require.NoError(t, err)
	results, err := overwrite.ApplyCatalog(ctx, relaxed)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "updated", results[0].Action)
}

func TestPlanRequiresReference(t *testing.T) {
	client := openMemory(t, Config{})
	_, err := client.Plan(context.Background())
	require.ErrorIs(t, err, catalogapp.ErrCatalogRequired)
}

func TestHistoryRequiresJournal(t *testing.T) {
	client := openMemory(t, Config{})
	_, err := client.History(context.Background(), 10)
	require.ErrorIs(t, err, ErrNoJournal)
}

func TestHistoryListsJournaledRuns(t *testing.T) {
	ctx := context.Background()
	client := openMemory(t, Config{JournalPath: filepath.Join(t.TempDir(), "runs.db"), JournalFast: true})

	_, err := client.Apply(ctx, "goods", "flashsale")
	require.NoError(t, err)

	runs, err := client.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, "succeeded", run.Status)
		assert.NotEmpty(t, run.RunID)
	}
}

func TestClosedClientRejectsCalls(t *testing.T) {
	client, err := Open(context.Background(), Config{Store: StoreMemory})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = client.Apply(context.Background(), "goods")
	require.ErrorIs(t, err, ErrClosed)
}

func TestOpenRejectsUnknownStore(t *testing.T) {
	_, err := Open(context.Background(), Config{Store: "cassandra"})
	require.ErrorIs(t, err, ErrUnknownStore)
}

func TestNormalizeConfigDefaults(t *testing.T) {
	cfg := normalizeConfig(Config{})
	assert.Equal(t, DefaultConfig(), cfg)
}
