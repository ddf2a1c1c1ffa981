package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

const DefaultFamilyName = "My Family"

type Family struct {
	bun.BaseModel `bun:"table:families"`

	ID         string `bun:"id,pk,notnull"`          // required
	FamilyName string `bun:"family_name,notnull"`    // required
	CreatedAt  int64  `bun:"created_at,notnull"`

	Members []*FamilyMember `bun:"rel:has-many,join:id=family_id"`
}

func (f *Family) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case f.ID == "":
		return fmt.Errorf("(*Family).Upsert: family id is blank")
	case f.FamilyName == "":
		return fmt.Errorf("(*Family).Upsert: family name is blank")
	}

	if _, err := db.NewInsert().
		Model(f).
		On("CONFLICT (id) DO UPDATE").
		Set("family_name = EXCLUDED.family_name").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Family).Upsert: %w", err)
	}

	return nil
}
