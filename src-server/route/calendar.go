package route

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hearth/src-server/agenda"
	"hearth/src-server/model"
	"hearth/src-server/utils"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func Calendar(muxer *http.ServeMux, as *utils.AppState) {
	type OneEventRespBody struct {
		ID               string `json:"id"`
		Title            string `json:"title"`
		Description      string `json:"description"`
		StartTimeUnixUTC int64  `json:"startTimeUnixUTC"`
		EndTimeUnixUTC   int64  `json:"endTimeUnixUTC"`
		CreatedAtUnixUTC int64  `json:"createdAtUnixUTC"`
	}

	type EventsRespBody struct {
		Today    []OneEventRespBody `json:"today"`
		Upcoming []OneEventRespBody `json:"upcoming"`
		Past     []OneEventRespBody `json:"past"`
	}

	toRespBody := func(events []model.Event) []OneEventRespBody {
		respEvents := make([]OneEventRespBody, 0, len(events))
		for _, event := range events {
			respEvents = append(respEvents, OneEventRespBody{
				ID:               event.ID,
				Title:            event.EventName,
				Description:      event.EventDescription,
				StartTimeUnixUTC: event.StartTimeUnixUTC,
				EndTimeUnixUTC:   agenda.EndOrStart(event),
				CreatedAtUnixUTC: event.CreatedAt,
			})
		}
		return respEvents
	}

	// all events for the caller's family, bucketed into today/upcoming/past
	muxer.HandleFunc("GET /calendar/events", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
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

		startTimer := time.Now()
		eventModels := make([]model.Event, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&eventModels).
			Where("family_id = ?", familyID).
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get events"))
			return
		}
		select {
		case as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds()):
		default:
		}

		buckets := agenda.Bucket(eventModels, time.Now(), as.Config.GetLocation())
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(EventsRespBody{
			Today:    toRespBody(buckets.Today),
			Upcoming: toRespBody(buckets.Upcoming),
			Past:     toRespBody(buckets.Past),
		}); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't encode response"))
			return
		}
	}))

	type CreateEventReqBody struct {
		Title            string `json:"title"`
		Description      string `json:"description"`
		StartTimeUnixUTC int64  `json:"startTimeUnixUTC"`
		EndTimeUnixUTC   int64  `json:"endTimeUnixUTC"`
	}

	// create one event, the success response is the event ID
	muxer.HandleFunc("POST /calendar/create-event", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		var reqBody CreateEventReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}

		// reject before touching the database
		reqBody.Title = strings.TrimSpace(reqBody.Title)
		switch {
		case reqBody.Title == "":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a title"))
			return
		case len(reqBody.Title) > model.EventTitleMaxLen:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Title can't be longer than %d characters", model.EventTitleMaxLen)))
			return
		case len(reqBody.Description) > model.EventDescriptionMaxLen:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Description can't be longer than %d characters", model.EventDescriptionMaxLen)))
			return
		case reqBody.StartTimeUnixUTC == 0:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a start time"))
			return
		case reqBody.EndTimeUnixUTC != 0 && reqBody.EndTimeUnixUTC < reqBody.StartTimeUnixUTC:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("End time can't be before start time"))
			return
		}

		familyID, err := model.EnsureFamily(r.Context(), as.BunDB, sessionModel.UserID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't provision family: %s", err.Error())))
			return
		}

		startTimer := time.Now()
		eventModel := model.Event{
			ID:               uuid.NewString(),
			FamilyID:         familyID,
			UserID:           sessionModel.UserID,
			EventName:        reqBody.Title,
			EventDescription: reqBody.Description,
			StartTimeUnixUTC: reqBody.StartTimeUnixUTC,
			EndTimeUnixUTC:   reqBody.EndTimeUnixUTC,
		}
		if err := eventModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't create event: %s", err.Error())))
			return
		}
		select {
		case as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds()):
		default:
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fmt.Sprintf(`{"id": "%s"}`, eventModel.ID)))
	}))

	type DeleteEventReqBody struct {
		ID string `json:"id"`
	}

	// delete one event, scoped to the caller's family; deleting an unknown
	// id is a no-op success
	muxer.HandleFunc("POST /calendar/delete-event", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		var reqBody DeleteEventReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if reqBody.ID == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide an event id"))
			return
		}

		familyID, err := model.EnsureFamily(r.Context(), as.BunDB, sessionModel.UserID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't provision family: %s", err.Error())))
			return
		}

		if _, err := as.BunDB.
			NewDelete().
			Model((*model.Event)(nil)).
			Where("id = ?", reqBody.ID).
			Where("family_id = ?", familyID).
			Exec(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't delete event"))
			return
		}

		w.WriteHeader(http.StatusOK)
	}))

	type GenerateEventsReqBody struct {
		Prompt string `json:"prompt"`
	}

	// turn a free-text prompt into a batch of events; a malformed model
	// response applies nothing
	muxer.HandleFunc("POST /calendar/generate-events", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		var reqBody GenerateEventsReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if strings.TrimSpace(reqBody.Prompt) == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a prompt"))
			return
		}

		familyID, err := model.EnsureFamily(r.Context(), as.BunDB, sessionModel.UserID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't provision family: %s", err.Error())))
			return
		}

		generated, err := as.EventGenerator.Generate(r.Context(), reqBody.Prompt)
		switch {
		case errors.Is(err, utils.ErrExternalService):
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("Could not generate events"))
			return
		case err != nil:
			slog.Error("can't generate events", "family_id", familyID, "error", err)
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("Could not generate events"))
			return
		}

		// validate the whole batch before writing anything
		now := time.Now()
		eventModels := make([]model.Event, 0, len(generated))
		for _, one := range generated {
			startTime, err := as.EventGenerator.ParseDate(one.Date, now, as.Config.GetLocation())
			if err != nil {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("Could not generate events"))
				return
			}
			title := strings.TrimSpace(one.Title)
			if title == "" {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("Could not generate events"))
				return
			}
			if len(title) > model.EventTitleMaxLen {
				title = title[:model.EventTitleMaxLen]
			}
			description := one.Description
			if len(description) > model.EventDescriptionMaxLen {
				description = description[:model.EventDescriptionMaxLen]
			}
			eventModels = append(eventModels, model.Event{
				ID:               uuid.NewString(),
				FamilyID:         familyID,
				UserID:           sessionModel.UserID,
				EventName:        title,
				EventDescription: description,
				StartTimeUnixUTC: startTime.UTC().Unix(),
			})
		}

		if err := as.BunDB.RunInTx(r.Context(), &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			for i := range eventModels {
				if err := eventModels[i].Upsert(ctx, tx); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't save generated events: %s", err.Error())))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toRespBody(eventModels)); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't encode response"))
			return
		}
	}))
}
