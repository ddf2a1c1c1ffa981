package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

const (
	EventTitleMaxLen       = 50
	EventDescriptionMaxLen = 100
)

type Event struct {
	bun.BaseModel `bun:"table:family_calendar"`

	ID               string `bun:"id,pk,notnull"`         // required
	FamilyID         string `bun:"family_id,notnull"`     // required
	UserID           string `bun:"user_id,notnull"`       // required
	EventName        string `bun:"event_name,notnull"`    // required
	EventDescription string `bun:"event_description"`
	StartTimeUnixUTC int64  `bun:"start_time,notnull"` // required
	EndTimeUnixUTC   int64  `bun:"end_time,notnull"`
	CreatedAt        int64  `bun:"created_at,notnull"`

	Family *Family `bun:"rel:belongs-to,join:family_id=id"`
}

// Upsert validates and writes the event. A zero end time falls back to start
// plus one hour before validation.
func (e *Event) Upsert(ctx context.Context, db bun.IDB) error {
	if e.EndTimeUnixUTC == 0 && e.StartTimeUnixUTC != 0 {
		e.EndTimeUnixUTC = time.Unix(e.StartTimeUnixUTC, 0).Add(time.Hour).Unix()
	}
	switch {
	case e.ID == "":
		return fmt.Errorf("(*Event).Upsert: event id is blank")
	case e.FamilyID == "":
		return fmt.Errorf("(*Event).Upsert: family id is blank")
	case e.UserID == "":
		return fmt.Errorf("(*Event).Upsert: user id is blank")
	case e.EventName == "":
		return fmt.Errorf("(*Event).Upsert: event name is blank")
	case len(e.EventName) > EventTitleMaxLen:
		return fmt.Errorf("(*Event).Upsert: event name longer than %d chars", EventTitleMaxLen)
	case len(e.EventDescription) > EventDescriptionMaxLen:
		return fmt.Errorf("(*Event).Upsert: description longer than %d chars", EventDescriptionMaxLen)
	case e.StartTimeUnixUTC == 0:
		return fmt.Errorf("(*Event).Upsert: start time is blank")
	case e.StartTimeUnixUTC > e.EndTimeUnixUTC:
		return fmt.Errorf("(*Event).Upsert: start time must be before end time")
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UTC().Unix()
	}

	if _, err := db.NewInsert().
		Model(e).
		On("CONFLICT (id) DO UPDATE").
		Set("event_name = EXCLUDED.event_name").
		Set("event_description = EXCLUDED.event_description").
		Set("start_time = EXCLUDED.start_time").
		Set("end_time = EXCLUDED.end_time").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Event).Upsert: %w", err)
	}

	return nil
}
