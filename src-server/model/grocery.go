package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type Grocery struct {
	bun.BaseModel `bun:"table:groceries"`

	ID              string `bun:"id,pk,notnull"`      // required
	FamilyID        string `bun:"family_id,notnull"`  // required
	UserID          string `bun:"user_id,notnull"`    // required
	ItemName        string `bun:"item_name,notnull"`  // required
	BuyByUnixUTC    int64  `bun:"buy_by_date"`        // 0 = no date
	IsCompleted     bool   `bun:"is_completed"`
	CreatedAt       int64  `bun:"created_at,notnull"`
}

func (g *Grocery) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case g.ID == "":
		return fmt.Errorf("(*Grocery).Upsert: grocery id is blank")
	case g.FamilyID == "":
		return fmt.Errorf("(*Grocery).Upsert: family id is blank")
	case g.ItemName == "":
		return fmt.Errorf("(*Grocery).Upsert: item name is blank")
	}
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().UTC().Unix()
	}

	if _, err := db.NewInsert().
		Model(g).
		On("CONFLICT (id) DO UPDATE").
		Set("item_name = EXCLUDED.item_name").
		Set("buy_by_date = EXCLUDED.buy_by_date").
		Set("is_completed = EXCLUDED.is_completed").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Grocery).Upsert: %w", err)
	}

	return nil
}
