package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wikimedia/contest-api/internal/config"
	"github.com/wikimedia/contest-api/internal/types"
)

var ErrStaleVersion = errors.New("form version is stale")

// Form platform form with its current field definitions. Every schema change bumps the
// version, submissions record the version they were mapped with.
type Form struct {
	Title string
	Model
	Schema  datatypes.JSONType[types.FormSchema]
	Version int
	Active  bool
}

func (Form) TableName() string {
	return "form"
}

func (f Form) GetID() uuid.UUID {
	return f.ID
}

func (f Form) Response() types.FormResponse {
	return types.FormResponse{
		FormID:  f.ID.String(),
		Title:   f.Title,
		Version: f.Version,
		Active:  f.Active,
		Schema:  f.Schema.Data(),
	}
}

// Seeds forms missing from the database. Unlike api keys the database is authoritative
// for forms once they exist, later schema changes go through UpdateForm.
func LoadFormsFromConfig(ctx context.Context, db *gorm.DB, forms []config.Form) error {
	ctx, span := tracer.Start(ctx, "LoadFormsFromConfig")
	defer span.End()

	db = db.WithContext(ctx)

	if len(forms) == 0 {
		span.AddEvent("no forms to seed")
		span.SetStatus(codes.Ok, "")
		return nil
	}

	toInsert := make([]*Form, len(forms))
	for i, form := range forms {
		formID, err := uuid.Parse(form.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "error parsing form id")
			span.SetAttributes(attribute.String("failedForm", form.ID))
			return err
		}

		active := true
		if form.Active != nil {
			active = *form.Active
		}

		toInsert[i] = &Form{
			Model:   Model{ID: formID},
			Title:   form.Title,
			Version: 1,
			Active:  active,
			Schema:  datatypes.NewJSONType(form.Schema),
		}
	}

	span.AddEvent("inserting missing forms")
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(toInsert)
	if result.Error != nil {
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, "failed to insert forms")
		return fmt.Errorf("failed to insert forms: %w", result.Error)
	}

	span.SetAttributes(attribute.Int64("rowsAffected", result.RowsAffected))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "seeded forms")
	return nil
}

// Replaces title, active flag and schema of a form if it is still at version basedOn.
//
// Returns ErrStaleVersion when another update landed first and gorm.ErrRecordNotFound when
// the form does not exist. On success form holds the new state.
func UpdateForm(ctx context.Context, db *gorm.DB, form *Form, basedOn int) error {
	ctx, span := tracer.Start(ctx, "UpdateForm")
	defer span.End()

	db = db.WithContext(ctx)

	span.SetAttributes(
		attribute.String("form.id", form.ID.String()),
		attribute.Int("form.based_on", basedOn),
	)

	span.AddEvent("updating form if version matches")
	result := db.Model(&Form{}).
		Where("id = ? AND version = ?", form.ID, basedOn).
		Updates(map[string]any{
			"title":   form.Title,
			"active":  form.Active,
			"schema":  form.Schema,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, "failed to update form")
		return fmt.Errorf("failed to update form: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		exists, err := Exists[Form](ctx, db, "id = ?", form.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to check form existence")
			return err
		}
		if !exists {
			span.SetStatus(codes.Ok, "form not found")
			return gorm.ErrRecordNotFound
		}

		span.SetStatus(codes.Ok, "stale form version")
		return ErrStaleVersion
	}

	span.AddEvent("reloading updated form")
	if err := db.First(form, form.ID).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reload form")
		return fmt.Errorf("failed to reload form: %w", err)
	}

	span.SetAttributes(attribute.Int("form.version", form.Version))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "updated form")
	return nil
}
