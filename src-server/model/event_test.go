package model_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"hearth/src-server/model"

	"github.com/google/uuid"
)

func TestEventUpsertValidation(t *testing.T) {
	bundb := newTestDB(t)

	base := func() model.Event {
		return model.Event{
			ID:               uuid.NewString(),
			FamilyID:         uuid.NewString(),
			UserID:           uuid.NewString(),
			EventName:        "Dentist",
			StartTimeUnixUTC: time.Now().UTC().Unix(),
		}
	}

	// blank title is rejected before any row exists
	func() {
		eventModel := base()
		eventModel.EventName = ""
		if err := eventModel.Upsert(context.Background(), bundb); err == nil {
			t.Error("blank event name should be rejected")
		}
		count, err := bundb.NewSelect().Model((*model.Event)(nil)).Count(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Error("rejected event must not be written", count)
		}
	}()

	// title over the cap is rejected
	func() {
		eventModel := base()
		eventModel.EventName = strings.Repeat("x", model.EventTitleMaxLen+1)
		if err := eventModel.Upsert(context.Background(), bundb); err == nil {
			t.Error("over-long event name should be rejected")
		}
	}()

	// missing start is rejected
	func() {
		eventModel := base()
		eventModel.StartTimeUnixUTC = 0
		if err := eventModel.Upsert(context.Background(), bundb); err == nil {
			t.Error("missing start time should be rejected")
		}
	}()

	// end before start is rejected
	func() {
		eventModel := base()
		eventModel.EndTimeUnixUTC = eventModel.StartTimeUnixUTC - 60
		if err := eventModel.Upsert(context.Background(), bundb); err == nil {
			t.Error("end before start should be rejected")
		}
	}()
}

func TestEventUpsertEndDefaultsToStartPlusHour(t *testing.T) {
	bundb := newTestDB(t)

	start := time.Now().UTC().Unix()
	eventModel := model.Event{
		ID:               uuid.NewString(),
		FamilyID:         uuid.NewString(),
		UserID:           uuid.NewString(),
		EventName:        "Soccer practice",
		StartTimeUnixUTC: start,
	}
	if err := eventModel.Upsert(context.Background(), bundb); err != nil {
		t.Fatal(err)
	}
	if eventModel.EndTimeUnixUTC != start+3600 {
		t.Error("missing end should default to start + 1 hour", eventModel.EndTimeUnixUTC)
	}

	stored := new(model.Event)
	if err := bundb.NewSelect().
		Model(stored).
		Where("id = ?", eventModel.ID).
		Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if stored.EndTimeUnixUTC != start+3600 {
		t.Error("stored end time should be start + 1 hour", stored.EndTimeUnixUTC)
	}
	if stored.CreatedAt == 0 {
		t.Error("created at should be set on insert")
	}
}
