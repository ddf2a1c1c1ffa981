package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hearth/src-server/model"
	"hearth/src-server/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// UpcomingEventScan runs the notification scanner every minute. A cycle that
// is still in flight when the next tick fires is skipped, so a slow database
// can never pile up overlapping scans.
func UpcomingEventScan(as *utils.AppState) *cron.Cron {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := c.AddFunc("@every 1m", func() {
		if err := scanOnce(as); err != nil {
			slog.Error("upcoming event scan failed", "error", err)
		}
	}); err != nil {
		slog.Error("can't schedule upcoming event scan", "error", err)
		return c
	}
	c.Start()

	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		<-gracefulShutdownCh
		<-c.Stop().Done()
		slog.Debug("upcoming event scan stopped")
	}()

	return c
}

// One scan cycle: every event starting within the next hour becomes one
// notification row per family member who opted into browser notifications.
// The (user_id, event_id) unique constraint makes re-scans no-ops.
func scanOnce(as *utils.AppState) error {
	ctx := context.Background()
	now := time.Now().UTC()

	eventModels := make([]model.Event, 0)
	if err := as.BunDB.
		NewSelect().
		Model(&eventModels).
		Where("start_time >= ?", now.Unix()).
		Where("start_time <= ?", now.Add(time.Hour).Unix()).
		Scan(ctx); err != nil {
		return fmt.Errorf("scanOnce: can't get upcoming events: %w", err)
	}
	if len(eventModels) == 0 {
		return nil
	}

	for _, event := range eventModels {
		memberModels := make([]model.FamilyMember, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&memberModels).
			Where("family_id = ?", event.FamilyID).
			Where("family_member.user_id IN (?)", as.BunDB.
				NewSelect().
				Model((*model.NotificationPreference)(nil)).
				Column("user_id").
				Where("browser_notifications = ?", true)).
			Scan(ctx); err != nil {
			slog.Error("can't get members to notify", "family_id", event.FamilyID, "error", err)
			continue
		}

		for _, member := range memberModels {
			notificationModel := model.Notification{
				ID:      uuid.NewString(),
				UserID:  member.UserID,
				EventID: event.ID,
				Message: fmt.Sprintf("%s starts at %s",
					event.EventName,
					time.Unix(event.StartTimeUnixUTC, 0).
						In(as.Config.GetLocation()).
						Format("15:04")),
			}
			if err := notificationModel.Insert(ctx, as.BunDB); err != nil {
				slog.Error("can't insert notification",
					"user_id", member.UserID,
					"event_id", event.ID,
					"error", err)
			}
		}
	}

	return nil
}
