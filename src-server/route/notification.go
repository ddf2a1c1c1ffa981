package route

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hearth/src-server/model"
	"hearth/src-server/utils"
)

func Notification(muxer *http.ServeMux, as *utils.AppState) {
	type OneUpcomingRespBody struct {
		ID               string `json:"id"`
		Title            string `json:"title"`
		Description      string `json:"description"`
		StartTimeUnixUTC int64  `json:"startTimeUnixUTC"`
	}

	// the polling endpoint: events in the caller's family starting within
	// the next hour
	muxer.HandleFunc("GET /notifications/check-upcoming", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		familyID, err := model.EnsureFamily(r.Context(), as.BunDB, sessionModel.UserID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't provision family: %s", err.Error())))
			return
		}

		now := time.Now().UTC()
		eventModels := make([]model.Event, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&eventModels).
			Where("family_id = ?", familyID).
			Where("start_time >= ?", now.Unix()).
			Where("start_time <= ?", now.Add(time.Hour).Unix()).
			Order("start_time ASC").
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get upcoming events"))
			return
		}

		respBody := make([]OneUpcomingRespBody, 0, len(eventModels))
		for _, event := range eventModels {
			respBody = append(respBody, OneUpcomingRespBody{
				ID:               event.ID,
				Title:            event.EventName,
				Description:      event.EventDescription,
				StartTimeUnixUTC: event.StartTimeUnixUTC,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(respBody); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't encode response"))
			return
		}
	}))

	type OneNotificationRespBody struct {
		ID               string `json:"id"`
		EventID          string `json:"eventId"`
		Message          string `json:"message"`
		IsRead           bool   `json:"isRead"`
		CreatedAtUnixUTC int64  `json:"createdAtUnixUTC"`
	}

	// the caller's notification list, unread first
	muxer.HandleFunc("GET /notifications", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		notificationModels := make([]model.Notification, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&notificationModels).
			Where("user_id = ?", sessionModel.UserID).
			Order("is_read ASC").
			Order("created_at DESC").
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get notifications"))
			return
		}

		respBody := make([]OneNotificationRespBody, 0, len(notificationModels))
		for _, notification := range notificationModels {
			respBody = append(respBody, OneNotificationRespBody{
				ID:               notification.ID,
				EventID:          notification.EventID,
				Message:          notification.Message,
				IsRead:           notification.IsRead,
				CreatedAtUnixUTC: notification.CreatedAt,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(respBody); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't encode response"))
			return
		}
	}))

	type MarkReadReqBody struct {
		ID string `json:"id"`
	}

	// unread -> read; the item stays in the list
	muxer.HandleFunc("POST /notifications/mark-read", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		var reqBody MarkReadReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if reqBody.ID == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a notification id"))
			return
		}

		if _, err := as.BunDB.
			NewUpdate().
			Model((*model.Notification)(nil)).
			Set("is_read = ?", true).
			Where("id = ?", reqBody.ID).
			Where("user_id = ?", sessionModel.UserID).
			Exec(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't mark notification as read"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	type PreferenceReqRespBody struct {
		BrowserNotifications bool `json:"browserNotifications"`
	}

	muxer.HandleFunc("GET /notifications/preferences", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		preferenceModel := new(model.NotificationPreference)
		err := as.BunDB.
			NewSelect().
			Model(preferenceModel).
			Where("user_id = ?", sessionModel.UserID).
			Scan(r.Context())
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get notification preferences"))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(PreferenceReqRespBody{
			BrowserNotifications: preferenceModel.BrowserNotifications,
		}); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't encode response"))
			return
		}
	}))

	muxer.HandleFunc("POST /notifications/preferences", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		var reqBody PreferenceReqRespBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}

		preferenceModel := model.NotificationPreference{
			UserID:               sessionModel.UserID,
			BrowserNotifications: reqBody.BrowserNotifications,
		}
		if err := preferenceModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't save notification preferences: %s", err.Error())))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}
