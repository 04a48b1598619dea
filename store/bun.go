package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	sekura "github.com/sekurapp/go-sekura"
	"github.com/uptrace/bun"
)

// CredentialModel is the Bun model for persisted credentials.
type CredentialModel struct {
	bun.BaseModel `bun:"table:credentials"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

var _ sekura.CredentialStore = (*Bun)(nil)

// Bun is a CredentialStore backed by a Bun database (sqlite in the app).
type Bun struct {
	db *bun.DB
}

// NewBun creates the store and ensures its schema exists.
func NewBun(ctx context.Context, db *bun.DB) (*Bun, error) {
	if _, err := db.NewCreateTable().
		Model((*CredentialModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create credentials table")
	}
	return &Bun{db: db}, nil
}

func (s *Bun) Get(ctx context.Context, key string) (string, error) {
	var model CredentialModel
	err := s.db.NewSelect().
		Model(&model).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sekura.ErrCredentialNotFound
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "credential read failed")
	}
	return model.Value, nil
}

func (s *Bun) Set(ctx context.Context, key, value string) error {
	model := &CredentialModel{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "credential write failed")
	}
	return nil
}

func (s *Bun) Remove(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*CredentialModel)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "credential removal failed")
	}
	return nil
}
