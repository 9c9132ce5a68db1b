package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/config"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/database"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/ingest"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/model"
)

// App ties the record store and the ingester together and drives one
// evidence unit's artifact directory through them.
type App struct {
	cfg   *config.Config
	log   *zap.Logger
	store database.Store
	ing   *ingest.Ingester
}

// NewApp creates an App over an opened store.
func NewApp(cfg *config.Config, store database.Store, log *zap.Logger) *App {
	ing := ingest.New(store, ingest.Config{
		MFTBatchSize:      cfg.Ingest.MFTBatchSize,
		AmcacheBatchSize:  cfg.Ingest.AmcacheBatchSize,
		SecurityBatchSize: cfg.Ingest.SecurityBatchSize,
	}, log)
	return &App{cfg: cfg, log: log, store: store, ing: ing}
}

// EvidenceReport summarizes one evidence directory ingestion. Summary keys
// follow the "<kind>_rows" convention; "<kind>_rows_db" counts the records
// actually persisted after duplicate drops.
type EvidenceReport struct {
	EvidenceID uuid.UUID
	Summary    map[string]interface{}
	Errors     []string
}

// artifactFile locates the CSV for one artifact kind inside dir. The exact
// tool output names are tried first, then a glob fallback; the empty string
// means the artifact is absent.
func artifactFile(dir string, kind model.ArtifactKind) string {
	var exact []string
	var pattern string
	switch kind {
	case model.KindMFT:
		exact = []string{"mft.csv"}
		pattern = "*mft*.csv"
	case model.KindAmcache:
		exact = []string{"amcache_UnassociatedFileEntries.csv"}
		pattern = "*amcache*.csv"
	case model.KindSecurity:
		exact = []string{"security.csv", "security_events.csv"}
		pattern = "*security*.csv"
	}

	for _, name := range exact {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}

// IngestParsedDir ingests every artifact CSV found in dir for one evidence
// unit. The three artifact kinds run concurrently; they touch disjoint
// tables in separate transactions. A missing artifact file is logged and
// skipped, but if no artifact at all could be ingested an error is returned.
func (a *App) IngestParsedDir(ctx context.Context, evidence uuid.UUID, dir string) (*EvidenceReport, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("artifact directory: %w", err)
	}

	report := &EvidenceReport{
		EvidenceID: evidence,
		Summary:    make(map[string]interface{}),
	}

	type outcome struct {
		kind   model.ArtifactKind
		result *ingest.Result
		err    error
	}

	runners := map[model.ArtifactKind]func(context.Context, uuid.UUID, string) (*ingest.Result, error){
		model.KindMFT:      a.ing.IngestMFT,
		model.KindAmcache:  a.ing.IngestAmcache,
		model.KindSecurity: a.ing.IngestSecurity,
	}

	outcomes := make(chan outcome, len(model.Kinds))
	var wg sync.WaitGroup
	var started int

	for _, kind := range model.Kinds {
		path := artifactFile(dir, kind)
		if path == "" {
			a.log.Info("artifact file not found, skipping",
				zap.String("evidence", evidence.String()),
				zap.String("kind", string(kind)))
			continue
		}
		started++
		wg.Add(1)
		go func(kind model.ArtifactKind, path string) {
			defer wg.Done()
			res, err := runners[kind](ctx, evidence, path)
			outcomes <- outcome{kind: kind, result: res, err: err}
		}(kind, path)
	}

	wg.Wait()
	close(outcomes)

	if started == 0 {
		return nil, fmt.Errorf("no artifact files found in %s", dir)
	}

	var succeeded int
	for out := range outcomes {
		if out.err != nil {
			a.log.Error("artifact ingestion failed",
				zap.String("evidence", evidence.String()),
				zap.String("kind", string(out.kind)),
				zap.Error(out.err))
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", out.kind, out.err))
			continue
		}
		succeeded++
		for k, v := range out.result.Summary {
			report.Summary[k] = v
		}
		n, err := a.store.CountRecords(evidence, out.kind)
		if err != nil {
			a.log.Warn("counting persisted records failed",
				zap.String("evidence", evidence.String()),
				zap.String("kind", string(out.kind)),
				zap.Error(err))
		} else {
			report.Summary[string(out.kind)+"_rows_db"] = n
		}
	}

	if succeeded == 0 {
		return report, fmt.Errorf("all artifact ingestions failed for evidence %s", evidence)
	}
	return report, nil
}

// DeleteEvidence removes every record of one evidence unit.
func (a *App) DeleteEvidence(evidence uuid.UUID) error {
	return a.store.DeleteEvidence(evidence)
}

// Close releases the record store.
func (a *App) Close() error {
	return a.store.Close()
}
