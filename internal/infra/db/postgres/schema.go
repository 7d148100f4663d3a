package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS fact_checks (
  id            UUID             PRIMARY KEY,
  input_type    VARCHAR(16)      NOT NULL,
  input_summary TEXT             NOT NULL,
  rating        DOUBLE PRECISION NOT NULL,
  confidence    DOUBLE PRECISION NOT NULL,
  result_json   JSONB            NOT NULL,
  image_key     VARCHAR(255)     NOT NULL DEFAULT '-',
  created_at    TIMESTAMPTZ      NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_fact_checks_created ON fact_checks (created_at)`, `
CREATE TABLE IF NOT EXISTS fact_check_failures (
  id            BIGSERIAL   PRIMARY KEY,
  input_type    VARCHAR(16) NOT NULL,
  input_summary TEXT        NOT NULL,
  phase         VARCHAR(16) NOT NULL,
  message       TEXT        NOT NULL,
  status        INTEGER     NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_fact_check_failures_created ON fact_check_failures (created_at)`,
}

// EnsureSchema creates the audit tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
	}
	return nil
}
