package reliability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	testutil "github.com/niftybulk/papertrade/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects   map[string][]byte
	uploadErr error
	deleted   []string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Upload(_ context.Context, key string, body io.Reader, size int64) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.objects[key] = data
	return nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]types.Object, error) {
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]types.Object, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(m.objects[k])))})
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

var backupNow = time.Date(2025, 3, 14, 2, 0, 0, 0, time.UTC)

func newTestBackupService(t *testing.T, store ObjectStore) (*BackupService, string) {
	t.Helper()
	db := testutil.NewTestDB(t, "store")
	stage := t.TempDir()
	svc := NewBackupService(db, store, "niftybulk/", stage, zerolog.Nop())
	svc.now = func() time.Time { return backupNow }
	return svc, stage
}

func TestBackupService_RunUploadsSnapshot(t *testing.T) {
	store := newMemStore()
	svc, stage := newTestBackupService(t, store)

	key, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "niftybulk/store-2025-03-14-020000.db", key)

	data, ok := store.objects[key]
	require.True(t, ok)
	assert.True(t, bytes.HasPrefix(data, []byte("SQLite format 3\x00")))

	entries, err := os.ReadDir(stage)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory should be cleaned up")
}

func TestBackupService_RunUploadFailure(t *testing.T) {
	store := newMemStore()
	store.uploadErr = errors.New("bucket unreachable")
	svc, stage := newTestBackupService(t, store)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unreachable")

	entries, err := os.ReadDir(stage)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBackupService_ListBackups(t *testing.T) {
	store := newMemStore()
	store.objects["niftybulk/store-2025-03-10-020000.db"] = []byte("a")
	store.objects["niftybulk/store-2025-03-13-020000.db"] = []byte("bb")
	store.objects["niftybulk/store-garbage.db"] = []byte("c")
	store.objects["other/store-2025-03-12-020000.db"] = []byte("d")
	svc, _ := newTestBackupService(t, store)

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)

	assert.Equal(t, "niftybulk/store-2025-03-13-020000.db", backups[0].Key)
	assert.Equal(t, int64(2), backups[0].SizeBytes)
	assert.Equal(t, int64(24), backups[0].AgeHours)
	assert.Equal(t, "niftybulk/store-2025-03-10-020000.db", backups[1].Key)
}

func TestBackupService_RotateOldBackups(t *testing.T) {
	store := newMemStore()
	for _, day := range []string{"01", "02", "03", "04", "05", "13"} {
		store.objects["niftybulk/store-2025-02-"+day+"-020000.db"] = []byte("x")
	}
	svc, _ := newTestBackupService(t, store)

	deleted, err := svc.RotateOldBackups(context.Background(), 30)
	require.NoError(t, err)

	// The three newest survive even though two of them are past retention.
	assert.Equal(t, 3, deleted)
	assert.ElementsMatch(t, []string{
		"niftybulk/store-2025-02-01-020000.db",
		"niftybulk/store-2025-02-02-020000.db",
		"niftybulk/store-2025-02-03-020000.db",
	}, store.deleted)
	assert.Len(t, store.objects, 3)
}

func TestBackupService_RotateKeepsMinimum(t *testing.T) {
	store := newMemStore()
	store.objects["niftybulk/store-2024-01-01-020000.db"] = []byte("x")
	store.objects["niftybulk/store-2024-01-02-020000.db"] = []byte("x")
	svc, _ := newTestBackupService(t, store)

	deleted, err := svc.RotateOldBackups(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.objects, 2)

	deleted, err = svc.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
