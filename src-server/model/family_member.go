package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type FamilyMember struct {
	bun.BaseModel `bun:"table:family_members"`

	ID        string `bun:"id,pk,notnull"`            // required
	FamilyID  string `bun:"family_id,notnull"`        // required
	UserID    string `bun:"user_id,notnull,unique"`   // required
	CreatedAt int64  `bun:"created_at,notnull"`

	Family  *Family  `bun:"rel:belongs-to,join:family_id=id"`
	Profile *Profile `bun:"rel:belongs-to,join:user_id=id"`
}

func (m *FamilyMember) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case m.ID == "":
		return fmt.Errorf("(*FamilyMember).Upsert: member id is blank")
	case m.FamilyID == "":
		return fmt.Errorf("(*FamilyMember).Upsert: family id is blank")
	case m.UserID == "":
		return fmt.Errorf("(*FamilyMember).Upsert: user id is blank")
	}

	if _, err := db.NewInsert().
		Model(m).
		On("CONFLICT (user_id) DO UPDATE").
		Set("family_id = EXCLUDED.family_id").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*FamilyMember).Upsert: %w", err)
	}

	return nil
}

var errAlreadyProvisioned = errors.New("membership already provisioned")

// EnsureFamily returns the family ID the user belongs to, creating a fresh
// family and membership row on first access. The family insert and the
// membership insert share one transaction; if another session provisions the
// same user first, the membership insert hits the unique user_id constraint,
// the whole transaction rolls back (no orphan family) and the winner's
// family ID is re-read.
func EnsureFamily(ctx context.Context, db *bun.DB, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("EnsureFamily: user id is blank")
	}

	memberModel := new(FamilyMember)
	err := db.NewSelect().
		Model(memberModel).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	switch {
	case err == nil:
		return memberModel.FamilyID, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("EnsureFamily: can't look up membership: %w", err)
	}

	familyID := uuid.NewString()
	err = db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		familyModel := Family{
			ID:         familyID,
			FamilyName: DefaultFamilyName,
			CreatedAt:  time.Now().UTC().Unix(),
		}
		if _, err := tx.NewInsert().
			Model(&familyModel).
			Exec(ctx); err != nil {
			return fmt.Errorf("can't insert family: %w", err)
		}

		res, err := tx.NewInsert().
			Model(&FamilyMember{
				ID:        uuid.NewString(),
				FamilyID:  familyID,
				UserID:    userID,
				CreatedAt: time.Now().UTC().Unix(),
			}).
			On("CONFLICT (user_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("can't insert membership: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("can't read rows affected: %w", err)
		}
		if rows == 0 {
			return errAlreadyProvisioned
		}
		return nil
	})
	switch {
	case err == nil:
		return familyID, nil
	case errors.Is(err, errAlreadyProvisioned):
		if err := db.NewSelect().
			Model(memberModel).
			Where("user_id = ?", userID).
			Limit(1).
			Scan(ctx); err != nil {
			return "", fmt.Errorf("EnsureFamily: can't re-read membership: %w", err)
		}
		return memberModel.FamilyID, nil
	default:
		return "", fmt.Errorf("EnsureFamily: %w", err)
	}
}
