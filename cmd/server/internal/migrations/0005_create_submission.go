package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0005, Down0005)
}

func Up0005(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE submission (
    id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
    form_id UUID NOT NULL REFERENCES form (id),
    form_version INTEGER NOT NULL,
    created_by UUID NOT NULL REFERENCES auth (id),
    unique_code TEXT NOT NULL,
    title TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('draft')),
    submitter_name TEXT NOT NULL,
    submitter_email TEXT NOT NULL,
    submitter_country TEXT NOT NULL,
    submitter_wiki_user TEXT NOT NULL,
    submitter_phone TEXT NOT NULL,
    submitter_pronouns TEXT NOT NULL,
    explanation_creation TEXT NOT NULL,
    explanation_inspiration TEXT NOT NULL,
    creation_process JSONB NOT NULL,
    contributing_authors JSONB NOT NULL DEFAULT '[]',
    audio_file TEXT,
    audio_file_meta JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
    CONSTRAINT submission_unique_code_key UNIQUE (unique_code)
);`},
		statement{query: `
CREATE INDEX submission_form_id_idx ON submission (form_id);`},
		statement{query: `
CREATE TRIGGER touch_updated_at_trigger
BEFORE UPDATE ON submission
FOR EACH ROW EXECUTE PROCEDURE touch_updated_at();`},
	)
}

func Down0005(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE submission;`)
	return err
}
