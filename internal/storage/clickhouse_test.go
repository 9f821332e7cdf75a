package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/model"
)

func TestTableName(t *testing.T) {
	tests := []struct {
		endpoint model.Endpoint
		want     string
	}{
		{model.Endpoint{Domain: "historicaldata", Subject: "AAPL"}, "historicaldata_aapl"},
		{model.Endpoint{Domain: "twitter", Subject: "followings"}, "twitter_followings"},
		{model.Endpoint{Domain: "fx", Subject: "EUR-USD"}, "fx_eur_usd"},
		{model.Endpoint{Domain: "crypto", Subject: "BTC.X"}, "crypto_btc_x"},
	}
	for _, tt := range tests {
		if got := tableName(tt.endpoint); got != tt.want {
			t.Errorf("tableName(%v) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent("open"); got != "`open`" {
		t.Errorf("quoteIdent(open) = %s", got)
	}
	if got := quoteIdent("we`ird"); got != "`we\\`ird`" {
		t.Errorf("quoteIdent(we`ird) = %s", got)
	}
}

func TestClickHouseStore_Write(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := NewClickHouseStore(db, "jackfruit")
	key := testLayout().Key(1)
	chunk := &dataset.Dataset{
		Columns: []string{"timestamp", "close"},
		Rows: [][]string{
			{"2025-03-12 09:30", "177.57"},
			{"2025-03-12 09:45", "178.01"},
		},
	}

	mock.ExpectExec(regexp.QuoteMeta(
		"CREATE TABLE IF NOT EXISTS `historicaldata_aapl` (`_location` String, `_chunk` String, `_row` UInt64, `timestamp` String, `close` String)",
	)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(
		"INSERT INTO `historicaldata_aapl` (`_location`, `_chunk`, `_row`, `timestamp`, `close`)",
	))
	prep.ExpectExec().
		WithArgs("historicaldata/output/AAPL/20250312", "202503121430_chunk_1", uint64(0), "2025-03-12 09:30", "177.57").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("historicaldata/output/AAPL/20250312", "202503121430_chunk_1", uint64(1), "2025-03-12 09:45", "178.01").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.Write(context.Background(), key, chunk); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClickHouseStore_WriteRollsBackOnRowError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := NewClickHouseStore(db, "jackfruit")
	chunk := &dataset.Dataset{Columns: []string{"close"}, Rows: [][]string{{"1"}}}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO").ExpectExec().WillReturnError(errors.New("type mismatch"))
	mock.ExpectRollback()

	err = store.Write(context.Background(), testLayout().Key(0), chunk)
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClickHouseStore_EnsurePingFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	store := NewClickHouseStore(db, "jackfruit")
	if err := store.Ensure(context.Background(), testLayout()); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestClickHouseStore_Location(t *testing.T) {
	store := NewClickHouseStore(nil, "jackfruit")
	if got, want := store.Location(testLayout()), "clickhouse://jackfruit/historicaldata/output/AAPL/20250312"; got != want {
		t.Fatalf("Location() = %s, want %s", got, want)
	}
}

func TestClickHouseStore_ReservedColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := NewClickHouseStore(db, "jackfruit")
	for _, col := range []string{"_location", "_chunk", "_row"} {
		chunk := &dataset.Dataset{Columns: []string{"close", col}, Rows: [][]string{{"1", "x"}}}

		var reserved *ReservedColumnError
		if err := store.CheckColumns(chunk.Columns); !errors.As(err, &reserved) || reserved.Column != col {
			t.Fatalf("CheckColumns(%v) = %v, want ReservedColumnError for %s", chunk.Columns, err, col)
		}
		if err := store.Write(context.Background(), testLayout().Key(0), chunk); !errors.As(err, &reserved) {
			t.Fatalf("Write() error = %v, want ReservedColumnError", err)
		}
	}
	if err := store.CheckColumns([]string{"location", "chunk", "row"}); err != nil {
		t.Fatalf("CheckColumns() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database calls: %v", err)
	}
}
