// Package ingest streams parsed artifact CSVs into storage as
// bounded-memory, delete-then-load batch operations.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/amcacheparser"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/evtparser"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/mftparser"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/model"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/rowfield"
)

// Default batch sizes. Security events get a larger batch because their
// per-row skip rate is higher.
const (
	DefaultMFTBatchSize      = 1000
	DefaultAmcacheBatchSize  = 1000
	DefaultSecurityBatchSize = 5000
)

// Sink is the storage interface the ingester drives. The ingester owns no
// persistence itself.
type Sink interface {
	// Begin opens one delete-then-load transaction for a single artifact type.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single artifact type's replace-then-load transaction. DeleteAll
// and the inserts share the transaction scope, so a failed load leaves the
// prior records intact. Inserts tolerate duplicate-key conflicts by silently
// dropping the conflicting rows.
type Tx interface {
	DeleteAll(evidence uuid.UUID, kind model.ArtifactKind) error
	InsertMFTEntries(entries []*model.MFTEntry) error
	InsertAmcacheEntries(entries []*model.AmcacheEntry) error
	InsertSecurityEvents(events []*model.SecurityEvent) error
	Commit() error
	Rollback() error
}

// Config tunes batch sizes, trading insert-call overhead against peak
// memory. Zero values fall back to the defaults.
type Config struct {
	MFTBatchSize      int
	AmcacheBatchSize  int
	SecurityBatchSize int
}

func (c Config) withDefaults() Config {
	if c.MFTBatchSize <= 0 {
		c.MFTBatchSize = DefaultMFTBatchSize
	}
	if c.AmcacheBatchSize <= 0 {
		c.AmcacheBatchSize = DefaultAmcacheBatchSize
	}
	if c.SecurityBatchSize <= 0 {
		c.SecurityBatchSize = DefaultSecurityBatchSize
	}
	return c
}

// Result summarizes one artifact ingestion. Mapped counts rows that were
// mapped and handed to the sink; duplicate-conflict drops at insert time are
// not subtracted from it.
type Result struct {
	Mapped  int
	Skipped int
	Summary map[string]interface{}
}

// Ingester streams artifact CSVs through the record mappers into a storage
// sink. The three artifact types may be ingested concurrently; ingestions of
// the same evidence unit and artifact type are serialized.
type Ingester struct {
	sink Sink
	cfg  Config
	log  *zap.Logger

	mu    sync.Mutex
	locks map[lockKey]*sync.Mutex
}

type lockKey struct {
	evidence uuid.UUID
	kind     model.ArtifactKind
}

// New creates an Ingester writing to sink.
func New(sink Sink, cfg Config, log *zap.Logger) *Ingester {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingester{
		sink:  sink,
		cfg:   cfg.withDefaults(),
		log:   log,
		locks: make(map[lockKey]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing delete-then-load sequences for one
// (evidence, artifact type) pair. Two concurrent retries interleaving
// deletes and inserts would leave a partially-replaced state.
func (in *Ingester) lockFor(evidence uuid.UUID, kind model.ArtifactKind) *sync.Mutex {
	in.mu.Lock()
	defer in.mu.Unlock()
	key := lockKey{evidence, kind}
	l, ok := in.locks[key]
	if !ok {
		l = &sync.Mutex{}
		in.locks[key] = l
	}
	return l
}

// IngestMFT replaces and reloads the MFT entries of one evidence unit from
// the CSV at path. Returns the count of mapped rows.
func (in *Ingester) IngestMFT(ctx context.Context, evidence uuid.UUID, path string) (*Result, error) {
	return runIngest(ctx, in, evidence, model.KindMFT, path, in.cfg.MFTBatchSize,
		func(row *rowfield.Row) (*model.MFTEntry, bool) {
			return mftparser.MapRow(evidence, row), true
		},
		Tx.InsertMFTEntries,
	)
}

// IngestAmcache replaces and reloads the Amcache entries of one evidence
// unit from the CSV at path. Rows without an application name are skipped.
func (in *Ingester) IngestAmcache(ctx context.Context, evidence uuid.UUID, path string) (*Result, error) {
	return runIngest(ctx, in, evidence, model.KindAmcache, path, in.cfg.AmcacheBatchSize,
		func(row *rowfield.Row) (*model.AmcacheEntry, bool) {
			return amcacheparser.MapRow(evidence, row)
		},
		Tx.InsertAmcacheEntries,
	)
}

// IngestSecurity replaces and reloads the security events of one evidence
// unit from the CSV at path. Rows without a positive event ID are skipped.
func (in *Ingester) IngestSecurity(ctx context.Context, evidence uuid.UUID, path string) (*Result, error) {
	return runIngest(ctx, in, evidence, model.KindSecurity, path, in.cfg.SecurityBatchSize,
		func(row *rowfield.Row) (*model.SecurityEvent, bool) {
			return evtparser.MapRow(evidence, row)
		},
		Tx.InsertSecurityEvents,
	)
}

// runIngest is the shared delete-then-load loop. Row mapping and batch
// flushing are pipelined: the reader goroutine maps rows into fixed-size
// batches and hands them over a bounded channel to the flush goroutine,
// which writes them to the transaction strictly in order. Row-level defects
// degrade to skips; only file-level and storage failures abort the
// transaction.
func runIngest[T any](
	ctx context.Context,
	in *Ingester,
	evidence uuid.UUID,
	kind model.ArtifactKind,
	path string,
	batchSize int,
	mapRow func(*rowfield.Row) (T, bool),
	flush func(Tx, []T) error,
) (*Result, error) {
	lock := in.lockFor(evidence, kind)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s csv: %w", kind, err)
	}
	defer f.Close()

	reader := csv.NewReader(newNullStripper(f))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable field counts

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", kind, err)
	}

	tx, err := in.sink.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning %s transaction: %w", kind, err)
	}
	defer tx.Rollback() // no-op once committed

	if err := tx.DeleteAll(evidence, kind); err != nil {
		return nil, fmt.Errorf("clearing prior %s records: %w", kind, err)
	}

	// Flush goroutine: drains batches in order. On failure it keeps
	// draining so the mapping side never blocks on a dead channel.
	batches := make(chan []T, 1)
	flushDone := make(chan error, 1)
	go func() {
		for batch := range batches {
			if err := flush(tx, batch); err != nil {
				flushDone <- fmt.Errorf("flushing %s batch of %d: %w", kind, len(batch), err)
				for range batches {
				}
				return
			}
		}
		flushDone <- nil
	}()

	res := &Result{Summary: make(map[string]interface{})}
	batch := make([]T, 0, batchSize)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row, not a file-level defect.
			res.Skipped++
			continue
		}

		rec, ok := mapRow(rowfield.New(header, record))
		if !ok {
			res.Skipped++
			continue
		}
		res.Mapped++

		batch = append(batch, rec)
		if len(batch) >= batchSize {
			batches <- batch
			batch = make([]T, 0, batchSize)
		}
	}
	if len(batch) > 0 {
		batches <- batch
	}
	close(batches)

	if err := <-flushDone; err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %s load: %w", kind, err)
	}

	res.Summary[string(kind)+"_rows"] = res.Mapped
	res.Summary[string(kind)+"_rows_skipped"] = res.Skipped

	in.log.Info("artifact ingested",
		zap.String("evidence", evidence.String()),
		zap.String("kind", string(kind)),
		zap.Int("mapped", res.Mapped),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// nullStripper wraps a reader and strips null bytes from the stream before
// the CSV reader sees them.
type nullStripper struct {
	r io.Reader
}

func newNullStripper(r io.Reader) io.Reader {
	return &nullStripper{r: r}
}

func (ns *nullStripper) Read(p []byte) (int, error) {
	n, err := ns.r.Read(p)
	if n > 0 {
		cleaned := strings.ReplaceAll(string(p[:n]), "\x00", "")
		copy(p, cleaned)
		n = len(cleaned)
	}
	return n, err
}
