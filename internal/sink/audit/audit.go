// Package audit implements the durable sink's optional encrypted audit
// table, persisted to Postgres via sqlx/lib-pq following the teacher's
// prepared-statement batch-insert repository pattern. Encryption applies
// only here — never to cache payloads — per the encryption-at-rest
// design note.
package audit

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/marketcore/ingestcore/internal/schema"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS audit_records (
	id BIGSERIAL PRIMARY KEY,
	source TEXT NOT NULL,
	data_type TEXT NOT NULL,
	symbol TEXT NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	ciphertext BYTEA NOT NULL
)`

// Repo is the audit table's repository, batch-inserting encrypted
// UnifiedRecord payloads.
type Repo struct {
	db    *sqlx.DB
	gcm   cipher.AEAD
}

// Open connects to dsn and ensures the audit table exists. key must be
// exactly 32 bytes (AES-256); callers derive it from BRAIN_KEY.
func Open(ctx context.Context, dsn string, key []byte) (*Repo, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("audit: create table: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("audit: invalid encryption key: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("audit: gcm: %w", err)
	}
	return &Repo{db: db, gcm: gcm}, nil
}

// OpenWithDB wraps an already-open *sqlx.DB (used by sqlmock tests).
func OpenWithDB(db *sqlx.DB, key []byte) (*Repo, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Repo{db: db, gcm: gcm}, nil
}

func (r *Repo) encrypt(rec schema.UnifiedRecord) ([]byte, error) {
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, r.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return r.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (r *Repo) decrypt(ciphertext []byte) (schema.UnifiedRecord, error) {
	nonceSize := r.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return schema.UnifiedRecord{}, fmt.Errorf("audit: ciphertext too short")
	}
	nonce, data := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := r.gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return schema.UnifiedRecord{}, fmt.Errorf("audit: decrypt: %w", err)
	}
	var rec schema.UnifiedRecord
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return schema.UnifiedRecord{}, err
	}
	return rec, nil
}

// InsertBatch writes records inside one transaction, one prepared
// statement reused across the batch, mirroring the teacher's
// TradesRepo.InsertBatch.
func (r *Repo) InsertBatch(ctx context.Context, records []schema.UnifiedRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("audit: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO audit_records (source, data_type, symbol, observed_at, ciphertext)
		 VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("audit: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		ciphertext, err := r.encrypt(rec)
		if err != nil {
			return fmt.Errorf("audit: encrypt: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, rec.Source, string(rec.DataType), rec.Symbol, rec.Timestamp, ciphertext); err != nil {
			return fmt.Errorf("audit: insert: %w", err)
		}
	}

	return tx.Commit()
}

type auditRow struct {
	Source     string    `db:"source"`
	DataType   string    `db:"data_type"`
	Symbol     string    `db:"symbol"`
	ObservedAt time.Time `db:"observed_at"`
	Ciphertext []byte    `db:"ciphertext"`
}

// RecordsSince decrypts and returns audit rows whose observed_at is at or
// after since, oldest first, for operator inspection/recovery. Rows that
// fail to decrypt are skipped.
func (r *Repo) RecordsSince(ctx context.Context, since time.Time) ([]schema.UnifiedRecord, error) {
	var rows []auditRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT source, data_type, symbol, observed_at, ciphertext
		 FROM audit_records WHERE observed_at >= $1 ORDER BY observed_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("audit: select: %w", err)
	}

	out := make([]schema.UnifiedRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := r.decrypt(row.Ciphertext)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Repo) Close() error { return r.db.Close() }
