// Package store implements the Suite Store (C14): an embedded
// checkpoint/resume layer keyed by a stable hash of the ProblemBundle
// being synthesized. Grounded on the teacher's ToolStore
// (internal/store/tool_store.go) — mutex-guarded *sql.DB over a single
// file, schema created with CREATE TABLE IF NOT EXISTS, upsert via
// INSERT OR REPLACE — adapted from a debug-trace log to a checkpoint
// table keyed by bundle hash rather than call ID, and using the pure-Go
// modernc.org/sqlite driver (no cgo toolchain needed for this concern,
// unlike C15's sqlite-vec-backed retriever).
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"tcsynth/internal/model"
	"tcsynth/internal/telemetry"
)

// Store persists LoopState checkpoints and completed suites, keyed by a
// stable hash of the ProblemBundle that produced them. Safe for
// concurrent use by multiple Supervisor invocations, per §5's shared-
// resource policy.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (if necessary) and opens the checkpoint database at path.
func Open(path string) (*Store, error) {
	log := telemetry.Get(telemetry.CategoryStore)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("failed to create store directory %s: %v", dir, err)
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		log.Error("failed to open store database at %s: %v", path, err)
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		log.Error("failed to initialize store schema: %v", err)
		return nil, err
	}

	log.Info("suite store opened at %s", path)
	return s, nil
}

func (s *Store) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS checkpoints (
		bundle_hash TEXT PRIMARY KEY,
		loop_state  TEXT NOT NULL,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS suites (
		bundle_hash TEXT PRIMARY KEY,
		suite       TEXT NOT NULL,
		completed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BundleHash returns the stable identity of a ProblemBundle: the
// synthesis loop's correctness is identical whether or not this ever
// gets called, so a simple deterministic digest over the fields that
// determine the loop's behavior (statement, oracle source and language,
// target count) is sufficient — it needs to be stable across process restarts,
// not cryptographically strong.
func BundleHash(bundle model.ProblemBundle) string {
	h := fnvOffset
	for _, b := range []byte(bundle.Statement + "\x00" + bundle.OracleSrc + "\x00" + bundle.OracleLang) {
		h ^= uint64(b)
		h *= fnvPrime
	}
	h ^= uint64(bundle.TargetCount)
	h *= fnvPrime
	return fmt.Sprintf("%016x", h)
}

// FNV-1a 64-bit constants, computed inline rather than importing
// hash/fnv for a single-use digest over a handful of fields.
const (
	fnvOffset = uint64(14695981039346656037)
	fnvPrime  = uint64(1099511628211)
)

// SaveCheckpoint persists state under bundleHash, overwriting any prior
// checkpoint for the same bundle. Called by the Supervisor after each
// iteration when the store is configured.
func (s *Store) SaveCheckpoint(bundleHash string, state model.LoopState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: marshal loop state: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO checkpoints (bundle_hash, loop_state, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(bundle_hash) DO UPDATE SET loop_state = excluded.loop_state, updated_at = CURRENT_TIMESTAMP`,
		bundleHash, string(payload))
	if err != nil {
		telemetry.Get(telemetry.CategoryStore).Error("failed to save checkpoint for %s: %v", bundleHash, err)
		return fmt.Errorf("store: save checkpoint: %w", err)
	}

	telemetry.Get(telemetry.CategoryStore).Debug("checkpoint saved for bundle %s at iteration %d", bundleHash, state.Iteration)
	return nil
}

// Resume loads the most recently saved LoopState for bundleHash. A miss
// is reported as ok=false, never an error — per §4.C14, a hash miss is
// always a fresh start, not a failure.
func (s *Store) Resume(bundleHash string) (model.LoopState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload string
	err := s.db.QueryRow(`SELECT loop_state FROM checkpoints WHERE bundle_hash = ?`, bundleHash).Scan(&payload)
	if err != nil {
		if err != sql.ErrNoRows {
			telemetry.Get(telemetry.CategoryStore).Warn("resume lookup failed for %s: %v", bundleHash, err)
		}
		return model.LoopState{}, false
	}

	var state model.LoopState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		telemetry.Get(telemetry.CategoryStore).Warn("resume: corrupt checkpoint for %s, starting fresh: %v", bundleHash, err)
		return model.LoopState{}, false
	}

	telemetry.Get(telemetry.CategoryStore).Info("resumed bundle %s at iteration %d", bundleHash, state.Iteration)
	return state, true
}

// SaveSuite persists the final suite on successful completion, and
// clears the bundle's checkpoint since it is no longer needed for
// resume.
func (s *Store) SaveSuite(bundleHash string, suite model.Suite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(suite)
	if err != nil {
		return fmt.Errorf("store: marshal suite: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO suites (bundle_hash, suite, completed_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(bundle_hash) DO UPDATE SET suite = excluded.suite, completed_at = CURRENT_TIMESTAMP`,
		bundleHash, string(payload)); err != nil {
		return fmt.Errorf("store: save suite: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM checkpoints WHERE bundle_hash = ?`, bundleHash); err != nil {
		return fmt.Errorf("store: clear checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit suite save: %w", err)
	}

	telemetry.Get(telemetry.CategoryStore).Info("suite saved for bundle %s (%d cases)", bundleHash, len(suite.Cases))
	return nil
}

// LoadSuite retrieves a previously completed suite for bundleHash, if any.
func (s *Store) LoadSuite(bundleHash string) (model.Suite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload string
	err := s.db.QueryRow(`SELECT suite FROM suites WHERE bundle_hash = ?`, bundleHash).Scan(&payload)
	if err != nil {
		return model.Suite{}, false
	}

	var suite model.Suite
	if err := json.Unmarshal([]byte(payload), &suite); err != nil {
		telemetry.Get(telemetry.CategoryStore).Warn("load suite: corrupt record for %s: %v", bundleHash, err)
		return model.Suite{}, false
	}
	return suite, true
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
