package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// One row per (user, event), written by the upcoming-event scanner. Marking
// as read flips is_read; rows are never removed from the list by reading.
type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	ID        string `bun:"id,pk,notnull"`                        // required
	UserID    string `bun:"user_id,notnull,unique:user_event"`   // required
	EventID   string `bun:"event_id,notnull,unique:user_event"`  // required
	Message   string `bun:"message,notnull"`    // required
	IsRead    bool   `bun:"is_read"`
	CreatedAt int64  `bun:"created_at,notnull"`
}

func (n *Notification) Insert(ctx context.Context, db bun.IDB) error {
	switch {
	case n.ID == "":
		return fmt.Errorf("(*Notification).Insert: notification id is blank")
	case n.UserID == "":
		return fmt.Errorf("(*Notification).Insert: user id is blank")
	case n.EventID == "":
		return fmt.Errorf("(*Notification).Insert: event id is blank")
	case n.Message == "":
		return fmt.Errorf("(*Notification).Insert: message is blank")
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().UTC().Unix()
	}

	// one notification per user per event, ever
	if _, err := db.NewInsert().
		Model(n).
		On("CONFLICT (user_id, event_id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Notification).Insert: %w", err)
	}

	return nil
}
