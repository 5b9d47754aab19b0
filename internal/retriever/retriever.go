// Package retriever implements the Corpus Retriever (C15): a local,
// process-private index of past problem statements and their resolved
// FormatSchemas, queried by cosine similarity to enrich C8's
// format-inference prompt with concrete few-shot precedent. Grounded on
// the teacher's internal/store/learned_store.go (LearnedCorpusStore):
// a plain metadata table holding the embedding as a BLOB alongside a
// best-effort sqlite-vec virtual table for ANN search, with a
// brute-force cosine-similarity fallback when the vec0 extension isn't
// available — adapted from "intent pattern" rows to "problem precedent"
// rows, and from the teacher's read-only baked-in corpus
// (embedded_store.go) to one this package builds at runtime as problems
// are synthesized.
package retriever

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"tcsynth/internal/model"
	"tcsynth/internal/telemetry"
)

// Embedder is the vectorizing capability Retrieve needs from C6. The
// production implementation is *llmgateway.Embedder; satisfied here
// structurally so tests can supply a fake without a live backend.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Retriever holds past (statement, FormatSchema) precedents and an
// optional Embedder used to vectorize new statements. A nil Retriever is
// valid and behaves as "disabled": Retrieve on it returns an empty slice,
// never an error, per §4.C15.
type Retriever struct {
	db         *sql.DB
	embedder   Embedder
	dims       int
	vecEnabled bool
	mu         sync.RWMutex
}

// Open creates (if necessary) and opens the retrieval index at path,
// using embedder to vectorize statements on Add/Retrieve. A nil embedder
// is valid: Add and Retrieve become no-ops (empty-index degradation),
// since there is then no way to vectorize a query statement.
func Open(path string, embedder Embedder) (*Retriever, error) {
	log := telemetry.Get(telemetry.CategoryRetriever)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("retriever: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("retriever: open database: %w", err)
	}

	dims := 768
	if embedder != nil {
		dims = embedder.Dimensions()
	}

	r := &Retriever{db: db, embedder: embedder, dims: dims}
	if err := r.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("corpus retriever opened at %s (vec enabled: %v)", path, r.vecEnabled)
	return r, nil
}

func (r *Retriever) initialize() error {
	log := telemetry.Get(telemetry.CategoryRetriever)

	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS precedents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			statement_excerpt TEXT NOT NULL,
			format_schema TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return fmt.Errorf("retriever: create precedents table: %w", err)
	}

	vecTable := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS vec_precedents USING vec0(
			embedding float[%d],
			precedent_id INTEGER
		);
	`, r.dims)
	if _, err := r.db.Exec(vecTable); err != nil {
		log.Warn("sqlite-vec table unavailable, falling back to brute-force search: %v", err)
		r.vecEnabled = false
	} else {
		r.vecEnabled = true
	}
	return nil
}

// Add embeds and stores one resolved precedent. A nil embedder (or a
// failed embed call) makes this a no-op — indexing failures never
// propagate as synthesis errors.
func (r *Retriever) Add(ctx context.Context, statementExcerpt string, schema model.FormatSchema) {
	log := telemetry.Get(telemetry.CategoryRetriever)

	if r == nil || r.embedder == nil {
		return
	}

	vec, err := r.embedder.Embed(ctx, statementExcerpt)
	if err != nil {
		log.Warn("retriever: embed on add failed, skipping: %v", err)
		return
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		log.Warn("retriever: marshal schema on add failed, skipping: %v", err)
		return
	}

	blob := encodeFloat32SliceToBlob(vec)

	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO precedents (statement_excerpt, format_schema, embedding) VALUES (?, ?, ?)`,
		statementExcerpt, string(schemaJSON), blob)
	if err != nil {
		log.Warn("retriever: insert precedent failed: %v", err)
		return
	}

	if r.vecEnabled {
		id, _ := result.LastInsertId()
		if _, err := r.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO vec_precedents (embedding, precedent_id) VALUES (?, ?)`, blob, id); err != nil {
			log.Warn("retriever: vec index insert failed, ANN unavailable for this row: %v", err)
		}
	}
}

// Retrieve returns the k nearest prior precedents to statement. A nil
// Retriever, a nil embedder, or an embed failure all degrade to an empty
// slice — per §4.C15 retrieval never blocks or fails the synthesis loop.
func (r *Retriever) Retrieve(ctx context.Context, statement string, k int) []model.CorpusNeighbor {
	log := telemetry.Get(telemetry.CategoryRetriever)

	if r == nil || r.embedder == nil || k <= 0 {
		return nil
	}

	queryVec, err := r.embedder.Embed(ctx, statement)
	if err != nil {
		log.Warn("retriever: embed on retrieve failed, returning no neighbors: %v", err)
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.vecEnabled {
		if neighbors, err := r.retrieveVec(ctx, queryVec, k); err == nil {
			return neighbors
		} else {
			log.Warn("retriever: vec search failed, falling back to brute force: %v", err)
		}
	}
	return r.retrieveBruteForce(ctx, queryVec, k)
}

func (r *Retriever) retrieveVec(ctx context.Context, queryVec []float32, k int) ([]model.CorpusNeighbor, error) {
	blob := encodeFloat32SliceToBlob(queryVec)

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.statement_excerpt, p.format_schema, vec_distance_cosine(v.embedding, ?) AS distance
		FROM vec_precedents v
		JOIN precedents p ON p.id = v.precedent_id
		ORDER BY distance ASC
		LIMIT ?`, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var neighbors []model.CorpusNeighbor
	for rows.Next() {
		var excerpt, schemaJSON string
		var distance float64
		if err := rows.Scan(&excerpt, &schemaJSON, &distance); err != nil {
			continue
		}
		var schema model.FormatSchema
		if err := json.Unmarshal([]byte(schemaJSON), &schema); err != nil {
			continue
		}
		neighbors = append(neighbors, model.CorpusNeighbor{
			StatementExcerpt: excerpt,
			FormatSchema:     schema,
			Score:            1.0 - distance,
		})
	}
	return neighbors, rows.Err()
}

func (r *Retriever) retrieveBruteForce(ctx context.Context, queryVec []float32, k int) []model.CorpusNeighbor {
	log := telemetry.Get(telemetry.CategoryRetriever)

	rows, err := r.db.QueryContext(ctx, `SELECT statement_excerpt, format_schema, embedding FROM precedents`)
	if err != nil {
		log.Warn("retriever: brute-force scan failed: %v", err)
		return nil
	}
	defer rows.Close()

	type scored struct {
		neighbor model.CorpusNeighbor
		score    float64
	}
	var candidates []scored

	for rows.Next() {
		var excerpt, schemaJSON string
		var blob []byte
		if err := rows.Scan(&excerpt, &schemaJSON, &blob); err != nil {
			continue
		}
		var schema model.FormatSchema
		if err := json.Unmarshal([]byte(schemaJSON), &schema); err != nil {
			continue
		}
		candidateVec := decodeFloat32SliceFromBlob(blob)
		score := cosineSimilarity(queryVec, candidateVec)
		candidates = append(candidates, scored{
			neighbor: model.CorpusNeighbor{StatementExcerpt: excerpt, FormatSchema: schema, Score: score},
			score:    score,
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	neighbors := make([]model.CorpusNeighbor, len(candidates))
	for i, c := range candidates {
		neighbors[i] = c.neighbor
	}
	return neighbors
}

// Close releases the underlying database handle.
func (r *Retriever) Close() error {
	if r == nil {
		return nil
	}
	return r.db.Close()
}

func encodeFloat32SliceToBlob(vec []float32) []byte {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil
	}
	return buf.Bytes()
}

func decodeFloat32SliceFromBlob(blob []byte) []float32 {
	n := len(blob) / 4
	vec := make([]float32, n)
	reader := bytes.NewReader(blob)
	if err := binary.Read(reader, binary.LittleEndian, &vec); err != nil {
		return nil
	}
	return vec
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
