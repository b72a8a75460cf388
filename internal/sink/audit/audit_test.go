package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketcore/ingestcore/internal/schema"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")[:32]

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := OpenWithDB(sqlx.NewDb(db, "postgres"), testKey)
	require.NoError(t, err)
	return repo, mock
}

func TestRepo_EncryptDecryptRoundTrips(t *testing.T) {
	repo, _ := newMockRepo(t)

	rec := schema.UnifiedRecord{
		Source:    "test",
		DataType:  schema.DataTypeEquity,
		Symbol:    "AAPL",
		Timestamp: time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
	}

	ciphertext, err := repo.encrypt(rec)
	require.NoError(t, err)

	got, err := repo.decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.True(t, got.Timestamp.Equal(rec.Timestamp))
}

func TestRepo_DecryptRejectsTamperedCiphertext(t *testing.T) {
	repo, _ := newMockRepo(t)

	rec := schema.UnifiedRecord{Source: "test", DataType: schema.DataTypeEquity, Symbol: "AAPL", Timestamp: time.Now().UTC()}
	ciphertext, err := repo.encrypt(rec)
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xFF

	_, err = repo.decrypt(ciphertext)
	assert.Error(t, err)
}

func TestRepo_InsertBatch_EmptyIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)

	require.NoError(t, repo.InsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_InsertBatch_UsesOnePreparedStatementInATransaction(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO audit_records`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	records := []schema.UnifiedRecord{
		{Source: "test", DataType: schema.DataTypeEquity, Symbol: "AAPL", Timestamp: time.Now().UTC()},
		{Source: "test", DataType: schema.DataTypeEquity, Symbol: "MSFT", Timestamp: time.Now().UTC()},
	}

	require.NoError(t, repo.InsertBatch(context.Background(), records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_InsertBatch_RollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO audit_records`)
	prep.ExpectExec().WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	records := []schema.UnifiedRecord{
		{Source: "test", DataType: schema.DataTypeEquity, Symbol: "AAPL", Timestamp: time.Now().UTC()},
	}

	err := repo.InsertBatch(context.Background(), records)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_RecordsSince_DecryptsRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	rec := schema.UnifiedRecord{Source: "test", DataType: schema.DataTypeEquity, Symbol: "AAPL", Timestamp: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)}
	ciphertext, err := repo.encrypt(rec)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"source", "data_type", "symbol", "observed_at", "ciphertext"}).
		AddRow(rec.Source, string(rec.DataType), rec.Symbol, rec.Timestamp, ciphertext)
	mock.ExpectQuery(`SELECT source, data_type, symbol, observed_at, ciphertext`).WillReturnRows(rows)

	got, err := repo.RecordsSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", got[0].Symbol)
}
