package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

const (
	insertSQL = "INSERT INTO passes (pass_id, user_id, event_id, valid, issued_at) VALUES (?,?,?,1,?)"
	updateSQL = "UPDATE passes SET valid=0, used_at=? WHERE pass_id=? AND valid=1"
	idsSQL    = "SELECT user_id, event_id FROM passes WHERE pass_id=? LIMIT 1"
	liveSQL   = "SELECT pass_id, user_id, event_id, valid, issued_at, used_at FROM passes WHERE user_id=? AND event_id=? AND valid=1"
)

func newMockRepo(t *testing.T) (*PassRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPassRepo(db), mock
}

func TestPassRepoInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs("p_once", int64(42), int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Insert(context.Background(), "p_once", 42, 7); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPassRepoInsertDuplicateKeys(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    error
	}{
		{"live pair", "Duplicate entry '42:7' for key 'passes.uq_passes_live'", ErrLivePassExists},
		{"pass id", "Duplicate entry 'p_once' for key 'passes.PRIMARY'", ErrDuplicatePass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
				WillReturnError(&mysql.MySQLError{Number: 1062, Message: tt.message})

			err := repo.Insert(context.Background(), "p_once", 42, 7)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Insert error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPassRepoRejectsMalformedInput(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	if err := repo.Insert(ctx, "  ", 1, 1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Insert blank id: %v", err)
	}
	if err := repo.Insert(ctx, "p", 0, 1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Insert zero user: %v", err)
	}
	if err := repo.Insert(ctx, strings.Repeat("p", MaxPassIDLen+1), 1, 1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Insert over-long id: %v", err)
	}
	if _, err := repo.Verify(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Verify empty: %v", err)
	}
	if _, _, err := repo.FindLivePass(ctx, 3, -1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("FindLivePass negative event: %v", err)
	}
	// nothing may reach the database
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPassRepoVerifySingleUse(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(updateSQL)).
		WithArgs(sqlmock.AnyArg(), "p_once").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(idsSQL)).
		WithArgs("p_once").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "event_id"}).AddRow(42, 7))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(updateSQL)).
		WithArgs(sqlmock.AnyArg(), "p_once").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	first, err := repo.Verify(ctx, "p_once")
	if err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if !first.Valid || first.UserID != 42 || first.EventID != 7 {
		t.Errorf("first Verify = %+v, want valid 42/7", first)
	}

	second, err := repo.Verify(ctx, "p_once")
	if err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if second.Valid {
		t.Errorf("second Verify = %+v, want invalid", second)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPassRepoFindLivePass(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	cols := []string{"pass_id", "user_id", "event_id", "valid", "issued_at", "used_at"}
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(liveSQL)).
		WithArgs(int64(7), int64(2)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("pass_abc", 7, 2, true, issued, nil))
	mock.ExpectQuery(regexp.QuoteMeta(liveSQL)).
		WithArgs(int64(42), int64(7)).
		WillReturnRows(sqlmock.NewRows(cols))

	p, ok, err := repo.FindLivePass(ctx, 7, 2)
	if err != nil || !ok {
		t.Fatalf("FindLivePass(7,2) = %v, %v", ok, err)
	}
	if p.PassID != "pass_abc" || !p.Valid || !p.IssuedAt.Equal(issued) || p.UsedAt != nil {
		t.Errorf("unexpected pass: %+v", p)
	}

	_, ok, err = repo.FindLivePass(ctx, 42, 7)
	if err != nil {
		t.Fatalf("FindLivePass(42,7): %v", err)
	}
	if ok {
		t.Error("expected no live pass for 42/7")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
