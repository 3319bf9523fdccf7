package database

import (
	"context"
	"database/sql"
	"fmt"
)

// passesDDL creates the pass table.  live_key is NULL for used passes and
// "<user>:<event>" for live ones; UNIQUE ignores NULLs, which leaves exactly
// one live row possible per pair.
const passesDDL = `CREATE TABLE IF NOT EXISTS passes (
  pass_id   VARCHAR(128) NOT NULL,
  user_id   BIGINT       NOT NULL,
  event_id  BIGINT       NOT NULL,
  valid     TINYINT(1)   NOT NULL DEFAULT 1,
  issued_at DATETIME     NOT NULL,
  used_at   DATETIME     NULL,
  live_key  VARCHAR(48) AS (IF(valid = 1, CONCAT(user_id, ':', event_id), NULL)) STORED,
  PRIMARY KEY (pass_id),
  UNIQUE KEY uq_passes_live (live_key),
  KEY idx_passes_owner (user_id, event_id, valid)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the tables this service owns when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, passesDDL); err != nil {
		return fmt.Errorf("create passes table: %w", err)
	}
	return nil
}
