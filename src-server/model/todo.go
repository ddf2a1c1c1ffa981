package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type Todo struct {
	bun.BaseModel `bun:"table:todos"`

	ID            string `bun:"id,pk,notnull"`      // required
	FamilyID      string `bun:"family_id,notnull"`  // required
	UserID        string `bun:"user_id,notnull"`    // required
	Task          string `bun:"task,notnull"`       // required
	DueUnixUTC    int64  `bun:"due_date"`           // 0 = no date
	IsCompleted   bool   `bun:"is_completed"`
	CreatedAt     int64  `bun:"created_at,notnull"`
}

func (t *Todo) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case t.ID == "":
		return fmt.Errorf("(*Todo).Upsert: todo id is blank")
	case t.FamilyID == "":
		return fmt.Errorf("(*Todo).Upsert: family id is blank")
	case t.Task == "":
		return fmt.Errorf("(*Todo).Upsert: task is blank")
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().UTC().Unix()
	}

	if _, err := db.NewInsert().
		Model(t).
		On("CONFLICT (id) DO UPDATE").
		Set("task = EXCLUDED.task").
		Set("due_date = EXCLUDED.due_date").
		Set("is_completed = EXCLUDED.is_completed").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Todo).Upsert: %w", err)
	}

	return nil
}
