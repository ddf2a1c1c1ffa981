package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/xyedo/rrule"
)

type PaymentReminder struct {
	bun.BaseModel `bun:"table:payment_reminders"`

	ID            string  `bun:"id,pk,notnull"`        // required
	FamilyID      string  `bun:"family_id,notnull"`    // required
	UserID        string  `bun:"user_id,notnull"`      // required
	Name          string  `bun:"name,notnull"`         // required
	Amount        float64 `bun:"amount,notnull"`       // required
	DueUnixUTC    int64   `bun:"due_date,notnull"`     // required
	Recurrence    string  `bun:"recurrence"`           // RRULE, blank = one-off
	IsPaid        bool    `bun:"is_paid"`
	CreatedAt     int64   `bun:"created_at,notnull"`
}

func (p *PaymentReminder) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("(*PaymentReminder).Upsert: reminder id is blank")
	case p.FamilyID == "":
		return fmt.Errorf("(*PaymentReminder).Upsert: family id is blank")
	case p.Name == "":
		return fmt.Errorf("(*PaymentReminder).Upsert: name is blank")
	case p.DueUnixUTC == 0:
		return fmt.Errorf("(*PaymentReminder).Upsert: due date is blank")
	}
	if p.Recurrence != "" {
		if _, err := rrule.StrToRRuleSet(p.Recurrence); err != nil {
			return fmt.Errorf("(*PaymentReminder).Upsert: invalid recurrence rule: %w", err)
		}
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().UTC().Unix()
	}

	if _, err := db.NewInsert().
		Model(p).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("amount = EXCLUDED.amount").
		Set("due_date = EXCLUDED.due_date").
		Set("recurrence = EXCLUDED.recurrence").
		Set("is_paid = EXCLUDED.is_paid").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*PaymentReminder).Upsert: %w", err)
	}

	return nil
}

// NextDue returns the next occurrence strictly after the given instant, or
// zero time if the reminder is one-off or the rule has no more occurrences.
func (p *PaymentReminder) NextDue(after time.Time) (time.Time, error) {
	if p.Recurrence == "" {
		return time.Time{}, nil
	}
	rruleSet, err := rrule.StrToRRuleSet(p.Recurrence)
	if err != nil {
		return time.Time{}, fmt.Errorf("(*PaymentReminder).NextDue: invalid recurrence rule: %w", err)
	}
	rruleSet.DTStart(time.Unix(p.DueUnixUTC, 0).UTC())
	return rruleSet.After(after.UTC(), false), nil
}
