package model_test

import (
	"context"
	"testing"
	"time"

	"hearth/src-server/model"

	"github.com/google/uuid"
)

func TestPaymentReminderNextDue(t *testing.T) {
	due := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	// one-off reminder has no next occurrence
	oneOff := model.PaymentReminder{
		ID:         uuid.NewString(),
		FamilyID:   uuid.NewString(),
		UserID:     uuid.NewString(),
		Name:       "Car insurance",
		Amount:     120,
		DueUnixUTC: due.Unix(),
	}
	nextDue, err := oneOff.NextDue(due)
	if err != nil {
		t.Fatal(err)
	}
	if !nextDue.IsZero() {
		t.Error("one-off reminder should have no next due date", nextDue)
	}

	// monthly reminder rolls forward one month
	monthly := model.PaymentReminder{
		ID:         uuid.NewString(),
		FamilyID:   uuid.NewString(),
		UserID:     uuid.NewString(),
		Name:       "Rent",
		Amount:     1500,
		DueUnixUTC: due.Unix(),
		Recurrence: "RRULE:FREQ=MONTHLY",
	}
	nextDue, err = monthly.NextDue(due)
	if err != nil {
		t.Fatal(err)
	}
	if nextDue.IsZero() {
		t.Fatal("monthly reminder should have a next due date")
	}
	if !nextDue.After(due) {
		t.Error("next due date should be after the current one", nextDue)
	}
	if nextDue.Month() != time.July {
		t.Error("monthly recurrence should land in the next month", nextDue)
	}
}

func TestPaymentReminderUpsertRejectsBadRule(t *testing.T) {
	bundb := newTestDB(t)

	reminderModel := model.PaymentReminder{
		ID:         uuid.NewString(),
		FamilyID:   uuid.NewString(),
		UserID:     uuid.NewString(),
		Name:       "Electricity",
		Amount:     80,
		DueUnixUTC: time.Now().UTC().Unix(),
		Recurrence: "not an rrule",
	}
	if err := reminderModel.Upsert(context.Background(), bundb); err == nil {
		t.Error("invalid recurrence rule should be rejected")
	}
}
