package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Velocidex/ordereddict"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/model"
)

var (
	evidenceA = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	evidenceB = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "triage.db")
	store, err := CreateSQLite(path)
	require.NoError(t, err, "creating test database")
	t.Cleanup(func() { store.Close() })
	return store
}

func ts(value string) *time.Time {
	v, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &v
}

func sampleMFT(evidence uuid.UUID, entry int64) *model.MFTEntry {
	extra := ordereddict.NewDict()
	extra.Set("InUse", "True")
	return &model.MFTEntry{
		EvidenceID:  evidence,
		EntryNumber: entry,
		Sequence:    1,
		FileName:    "a.txt",
		FullPath:    `\Users\a.txt`,
		SizeBytes:   100,
		Created:     ts("2024-01-15T10:30:00Z"),
		Extra:       extra,
	}
}

func insertMFT(t *testing.T, store *SQLStore, entries ...*model.MFTEntry) {
	t.Helper()
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.InsertMFTEntries(entries))
	require.NoError(t, tx.Commit())
}

func TestCreateAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triage.db")
	store, err := CreateSQLite(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.CountRecords(evidenceA, model.KindMFT)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMFTRoundTrip(t *testing.T) {
	store := newTestStore(t)
	insertMFT(t, store, sampleMFT(evidenceA, 1), sampleMFT(evidenceA, 2))

	entries, err := store.MFTEntries(evidenceA, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	e := entries[0]
	assert.Equal(t, evidenceA, e.EvidenceID)
	assert.Equal(t, int64(1), e.EntryNumber)
	assert.Equal(t, `\Users\a.txt`, e.FullPath)
	assert.Equal(t, int64(100), e.SizeBytes)
	require.NotNil(t, e.Created)
	assert.True(t, e.Created.Equal(*ts("2024-01-15T10:30:00Z")))
	assert.Nil(t, e.Modified, "absent timestamps stay absent")

	v, ok := e.Extra.Get("InUse")
	require.True(t, ok)
	assert.Equal(t, "True", v)
}

func TestDuplicateInsertIgnored(t *testing.T) {
	store := newTestStore(t)
	// same uniqueness key twice in one batch: the second row is dropped
	insertMFT(t, store, sampleMFT(evidenceA, 1), sampleMFT(evidenceA, 1))

	n, err := store.CountRecords(evidenceA, model.KindMFT)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDeleteAllScopedToEvidenceAndKind(t *testing.T) {
	store := newTestStore(t)
	insertMFT(t, store, sampleMFT(evidenceA, 1), sampleMFT(evidenceB, 1))

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.DeleteAll(evidenceA, model.KindMFT))
	require.NoError(t, tx.Commit())

	nA, err := store.CountRecords(evidenceA, model.KindMFT)
	require.NoError(t, err)
	nB, err := store.CountRecords(evidenceB, model.KindMFT)
	require.NoError(t, err)
	assert.Zero(t, nA)
	assert.Equal(t, int64(1), nB, "other evidence untouched")
}

func TestRollbackLeavesPriorRecords(t *testing.T) {
	store := newTestStore(t)
	insertMFT(t, store, sampleMFT(evidenceA, 1))

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.DeleteAll(evidenceA, model.KindMFT))
	require.NoError(t, tx.InsertMFTEntries([]*model.MFTEntry{sampleMFT(evidenceA, 9)}))
	require.NoError(t, tx.Rollback())

	entries, err := store.MFTEntries(evidenceA, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].EntryNumber, "aborted replace left prior records intact")
}

func TestAmcacheRoundTrip(t *testing.T) {
	store := newTestStore(t)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	err = tx.InsertAmcacheEntries([]*model.AmcacheEntry{{
		EvidenceID:  evidenceA,
		AppName:     "7-Zip",
		Version:     "23.01",
		Publisher:   "Igor Pavlov",
		InstallDate: ts("2024-03-10T12:00:00Z"),
		FilePath:    `C:\Program Files\7-Zip\7z.exe`,
		SHA1:        "0000111122223333444455556666777788889999",
	}})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	entries, err := store.AmcacheEntries(evidenceA, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "7-Zip", entries[0].AppName)
	assert.Equal(t, "Igor Pavlov", entries[0].Publisher)
	require.NotNil(t, entries[0].InstallDate)
	assert.True(t, entries[0].InstallDate.Equal(*ts("2024-03-10T12:00:00Z")))
	assert.NotNil(t, entries[0].Extra, "nil extras come back as an empty map")
}

func TestSecurityRoundTrip(t *testing.T) {
	store := newTestStore(t)

	data := ordereddict.NewDict()
	data.Set("_description", "Logon success (4624) type=3 user=CORP\\jdoe from=10.0.0.5")
	data.Set("TargetUserName", "jdoe")

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	err = tx.InsertSecurityEvents([]*model.SecurityEvent{{
		EvidenceID: evidenceA,
		Timestamp:  ts("2024-05-01T09:15:00Z"),
		Channel:    "Security",
		Provider:   "Microsoft-Windows-Security-Auditing",
		EventID:    4624,
		RecordID:   100,
		Computer:   "DC01",
		UserName:   "jdoe",
		Message:    "Logon success (4624) type=3 user=CORP\\jdoe from=10.0.0.5",
		EventData:  data,
	}})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	events, err := store.SecurityEvents(evidenceA, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, int64(4624), ev.EventID)
	assert.Equal(t, "DC01", ev.Computer)
	require.NotNil(t, ev.Timestamp)
	assert.True(t, ev.Timestamp.Equal(*ts("2024-05-01T09:15:00Z")))

	v, ok := ev.EventData.Get("TargetUserName")
	require.True(t, ok)
	assert.Equal(t, "jdoe", v)
}

func TestPagination(t *testing.T) {
	store := newTestStore(t)
	var entries []*model.MFTEntry
	for i := int64(1); i <= 5; i++ {
		entries = append(entries, sampleMFT(evidenceA, i))
	}
	insertMFT(t, store, entries...)

	page, err := store.MFTEntries(evidenceA, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].EntryNumber)
	assert.Equal(t, int64(4), page[1].EntryNumber)
}

func TestDeleteEvidence(t *testing.T) {
	store := newTestStore(t)
	insertMFT(t, store, sampleMFT(evidenceA, 1), sampleMFT(evidenceB, 1))

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.InsertSecurityEvents([]*model.SecurityEvent{{
		EvidenceID: evidenceA, EventID: 4624, RecordID: 1, Channel: "Security",
	}}))
	require.NoError(t, tx.Commit())

	require.NoError(t, store.DeleteEvidence(evidenceA))

	for _, kind := range model.Kinds {
		n, err := store.CountRecords(evidenceA, kind)
		require.NoError(t, err)
		assert.Zero(t, n, "kind %s", kind)
	}
	n, err := store.CountRecords(evidenceB, model.KindMFT)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestConcurrentKindTransactions(t *testing.T) {
	// One replace transaction per artifact kind, all in flight at once
	// against the single-writer SQLite backend. The capped connection pool
	// and busy timeout make them queue instead of failing busy.
	store := newTestStore(t)

	const rows = 500
	run := func(kind model.ArtifactKind) error {
		tx, err := store.Begin(context.Background())
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if err := tx.DeleteAll(evidenceA, kind); err != nil {
			return err
		}
		switch kind {
		case model.KindMFT:
			batch := make([]*model.MFTEntry, rows)
			for i := range batch {
				batch[i] = sampleMFT(evidenceA, int64(i))
			}
			if err := tx.InsertMFTEntries(batch); err != nil {
				return err
			}
		case model.KindAmcache:
			batch := make([]*model.AmcacheEntry, rows)
			for i := range batch {
				batch[i] = &model.AmcacheEntry{
					EvidenceID: evidenceA,
					AppName:    "app",
					FilePath:   `C:\app.exe`,
					SHA1:       fmt.Sprintf("%040d", i),
				}
			}
			if err := tx.InsertAmcacheEntries(batch); err != nil {
				return err
			}
		case model.KindSecurity:
			batch := make([]*model.SecurityEvent, rows)
			for i := range batch {
				batch[i] = &model.SecurityEvent{
					EvidenceID: evidenceA,
					Channel:    "Security",
					EventID:    4624,
					RecordID:   int64(i),
				}
			}
			if err := tx.InsertSecurityEvents(batch); err != nil {
				return err
			}
		}
		return tx.Commit()
	}

	errs := make(chan error, len(model.Kinds))
	var wg sync.WaitGroup
	for _, kind := range model.Kinds {
		wg.Add(1)
		go func(kind model.ArtifactKind) {
			defer wg.Done()
			errs <- run(kind)
		}(kind)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for _, kind := range model.Kinds {
		n, err := store.CountRecords(evidenceA, kind)
		require.NoError(t, err)
		assert.Equal(t, int64(rows), n, "kind %s", kind)
	}
}

func TestCountRecordsUnknownKind(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CountRecords(evidenceA, model.ArtifactKind("registry"))
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factory.db")
	store, err := CreateStore("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenStore("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = OpenStore("oracle", path)
	assert.Error(t, err)
}
