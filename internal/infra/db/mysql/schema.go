package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS fact_checks (
  id            VARCHAR(36)  NOT NULL PRIMARY KEY,
  input_type    VARCHAR(16)  NOT NULL,
  input_summary TEXT         NOT NULL,
  rating        DOUBLE       NOT NULL,
  confidence    DOUBLE       NOT NULL,
  result_json   JSON         NOT NULL,
  image_key     VARCHAR(255) NOT NULL DEFAULT '-',
  created_at    DATETIME(6)  NOT NULL,
  INDEX idx_fact_checks_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, `
CREATE TABLE IF NOT EXISTS fact_check_failures (
  id            BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  input_type    VARCHAR(16)  NOT NULL,
  input_summary TEXT         NOT NULL,
  phase         VARCHAR(16)  NOT NULL,
  message       TEXT         NOT NULL,
  status        INT          NOT NULL,
  created_at    DATETIME(6)  NOT NULL,
  INDEX idx_fact_check_failures_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`}

// EnsureSchema creates the audit tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql schema: %w", err)
		}
	}
	return nil
}
