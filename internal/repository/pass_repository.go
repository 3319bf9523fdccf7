package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/eventhub/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// PassRepo persists passes in the MySQL 'passes' table.  The table carries a
// generated live_key column with a UNIQUE index, so the database itself
// refuses a second live pass for the same (user, event) pair.
type PassRepo struct{ DB *sql.DB }

func NewPassRepo(db *sql.DB) *PassRepo { return &PassRepo{DB: db} }

// Insert stores a new live pass.
func (r *PassRepo) Insert(ctx context.Context, passID string, userID, eventID int64) error {
	if err := checkPassID(passID); err != nil {
		return err
	}
	if err := checkOwner(userID, eventID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO passes (pass_id, user_id, event_id, valid, issued_at) VALUES (?,?,?,1,?)",
		passID, userID, eventID, time.Now().UTC())
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			if strings.Contains(myErr.Message, "uq_passes_live") {
				return ErrLivePassExists
			}
			return ErrDuplicatePass
		}
		return err
	}
	return nil
}

// Verify redeems passID.  The conditional UPDATE is the only place a pass
// goes from live to used; when two requests race, only one of them sees a
// changed row.
func (r *PassRepo) Verify(ctx context.Context, passID string) (model.VerifyResult, error) {
	if strings.TrimSpace(passID) == "" {
		return model.VerifyResult{}, ErrInvalidInput
	}
	if len(passID) > MaxPassIDLen {
		return model.VerifyResult{Valid: false}, nil // never stored
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.VerifyResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE passes SET valid=0, used_at=? WHERE pass_id=? AND valid=1",
		time.Now().UTC(), passID)
	if err != nil {
		return model.VerifyResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.VerifyResult{}, err
	}
	if n == 0 {
		// unknown or already used
		return model.VerifyResult{Valid: false}, nil
	}

	out := model.VerifyResult{Valid: true}
	err = tx.QueryRowContext(ctx,
		"SELECT user_id, event_id FROM passes WHERE pass_id=? LIMIT 1",
		passID).Scan(&out.UserID, &out.EventID)
	if err != nil {
		return model.VerifyResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.VerifyResult{}, err
	}
	committed = true
	return out, nil
}

// FindLivePass returns the live pass of (userID, eventID).  The boolean is
// false when the pair has none.
func (r *PassRepo) FindLivePass(ctx context.Context, userID, eventID int64) (model.Pass, bool, error) {
	if err := checkOwner(userID, eventID); err != nil {
		return model.Pass{}, false, err
	}
	var (
		p      model.Pass
		usedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT pass_id, user_id, event_id, valid, issued_at, used_at FROM passes WHERE user_id=? AND event_id=? AND valid=1 ORDER BY issued_at LIMIT 1",
		userID, eventID).Scan(&p.PassID, &p.UserID, &p.EventID, &p.Valid, &p.IssuedAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Pass{}, false, nil
	}
	if err != nil {
		return model.Pass{}, false, err
	}
	if usedAt.Valid {
		t := usedAt.Time
		p.UsedAt = &t
	}
	return p, true, nil
}

// Ping reports whether the database is reachable.
func (r *PassRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }
