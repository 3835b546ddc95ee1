package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torbjokv/formexpr/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func testInstance() *schema.Instance {
	return &schema.Instance{
		ID:           fmt.Sprintf("1337/%s", uuid.New()),
		AppID:        "org/demo-app",
		OwnerPartyID: "1337",
	}
}

// --- Instance Tests ---

func TestPutAndGetInstance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testInstance()
	require.NoError(t, s.PutInstance(ctx, inst))

	got, err := s.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, got.ID)
	assert.Equal(t, "org/demo-app", got.AppID)
	assert.Equal(t, "1337", got.OwnerPartyID)
}

func TestPutInstanceUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testInstance()
	require.NoError(t, s.PutInstance(ctx, inst))

	inst.AppID = "org/renamed-app"
	require.NoError(t, s.PutInstance(ctx, inst))

	got, err := s.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "org/renamed-app", got.AppID)
}

func TestPutInstanceValidates(t *testing.T) {
	s := newTestStore(t)

	err := s.PutInstance(context.Background(), &schema.Instance{ID: "not-an-id"})
	require.Error(t, err)
	var xerr *schema.ExprError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, schema.ErrCodeValidation, xerr.Code)
}

func TestGetInstanceNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetInstance(context.Background(), "1337/"+uuid.New().String())
	assertNotFound(t, err)
}

func TestDeleteInstance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := testInstance()
	require.NoError(t, s.PutInstance(ctx, inst))
	require.NoError(t, s.DeleteInstance(ctx, inst.ID))

	_, err := s.GetInstance(ctx, inst.ID)
	assertNotFound(t, err)

	// Deleting again reports not found.
	assertNotFound(t, s.DeleteInstance(ctx, inst.ID))
}

// --- Settings Tests ---

func TestPutAndGetSetting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSetting(ctx, "homeBaseUrl", "https://example.org"))

	got, err := s.GetSetting(ctx, "homeBaseUrl")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org", got)
}

func TestPutSettingUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSetting(ctx, "k", "v1"))
	require.NoError(t, s.PutSetting(ctx, "k", "v2"))

	got, err := s.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestPutSettingEmptyKey(t *testing.T) {
	s := newTestStore(t)

	err := s.PutSetting(context.Background(), "", "v")
	require.Error(t, err)
	var xerr *schema.ExprError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, schema.ErrCodeValidation, xerr.Code)
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSetting(context.Background(), "nope")
	assertNotFound(t, err)
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSetting(ctx, "b", "2"))
	require.NoError(t, s.PutSetting(ctx, "a", "1"))

	all, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, all)
}

func TestSettingsEmpty(t *testing.T) {
	s := newTestStore(t)
	all, err := s.Settings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	// newTestStore migrated once already.
	require.NoError(t, s.Migrate(context.Background()))
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var xerr *schema.ExprError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, schema.ErrCodeNotFound, xerr.Code)
}
