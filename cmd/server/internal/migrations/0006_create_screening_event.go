package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0006, Down0006)
}

// Screening events are append only, the trigger rejects any change after insert
func Up0006(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE screening_event (
    id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
    submission_id UUID NOT NULL REFERENCES submission (id),
    auth_id UUID REFERENCES auth (id),
    author TEXT NOT NULL,
    decision TEXT NOT NULL CHECK (decision IN ('eligible', 'ineligible', 'none')),
    body JSONB NOT NULL,
    flags JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp
);`},
		statement{query: `
CREATE INDEX screening_event_history_idx ON screening_event (submission_id, created_at, id);`},
		statement{query: `
CREATE FUNCTION reject_screening_event_change()
RETURNS TRIGGER AS $$
BEGIN
RAISE EXCEPTION 'screening events are immutable';
END;
$$ language 'plpgsql';`},
		statement{query: `
CREATE TRIGGER screening_event_immutable_trigger
BEFORE UPDATE OR DELETE ON screening_event
FOR EACH ROW EXECUTE PROCEDURE reject_screening_event_change();`},
	)
}

func Down0006(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TABLE screening_event;`},
		statement{query: `DROP FUNCTION reject_screening_event_change();`},
	)
}
