package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConsumeVerificationTokenSQL moves a token from pending to used in a single
// statement; a token consumed by a concurrent request matches no rows.
var ConsumeVerificationTokenSQL = `UPDATE "verification_tokens" AS "vtk"
SET
	"status" = 'used',
	"used_at" = CURRENT_TIMESTAMP,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"vtk"."status" = 'pending'
AND (
	"vtk"."id" = ?
) RETURNING *;`

type VerificationTokens interface {
	repository.Repository[*VerificationToken]

	Consume(ctx context.Context, id uuid.UUID) (*VerificationToken, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*VerificationToken, error)
}

type verificationTokens struct {
	repository.Repository[*VerificationToken]
	db *bun.DB
}

var (
	_ VerificationTokens                        = (*verificationTokens)(nil)
	_ repository.Repository[*VerificationToken] = (*verificationTokens)(nil)
)

func NewVerificationTokensRepository(db *bun.DB) VerificationTokens {
	repo := repository.NewRepository[*VerificationToken](db, repository.ModelHandlers[*VerificationToken]{
		NewRecord: func() *VerificationToken { return &VerificationToken{} },
		GetID: func(t *VerificationToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *VerificationToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &verificationTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *verificationTokens) Consume(ctx context.Context, id uuid.UUID) (*VerificationToken, error) {
	return r.ConsumeTx(ctx, r.db, id)
}

func (r *verificationTokens) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*VerificationToken, error) {
	res, err := r.Repository.RawTx(ctx, tx, ConsumeVerificationTokenSQL, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"token": id.String(),
			})
	}

	return res[0], nil
}
