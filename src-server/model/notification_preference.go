package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

type NotificationPreference struct {
	bun.BaseModel `bun:"table:notification_preferences"`

	UserID               string `bun:"user_id,pk,notnull"` // required
	BrowserNotifications bool   `bun:"browser_notifications"`
}

func (n *NotificationPreference) Upsert(ctx context.Context, db bun.IDB) error {
	if n.UserID == "" {
		return fmt.Errorf("(*NotificationPreference).Upsert: user id is blank")
	}

	if _, err := db.NewInsert().
		Model(n).
		On("CONFLICT (user_id) DO UPDATE").
		Set("browser_notifications = EXCLUDED.browser_notifications").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*NotificationPreference).Upsert: %w", err)
	}

	return nil
}
