package route

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hearth/src-server/model"
	"hearth/src-server/utils"

	"github.com/google/uuid"
)

// Auxiliary family lists: groceries, to-dos, payment reminders. All scoped
// to the caller's family, newest first.
func Lists(muxer *http.ServeMux, as *utils.AppState) {
	familyOf := func(w http.ResponseWriter, r *http.Request) (string, bool) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return "", false
		}
		familyID, err := model.EnsureFamily(r.Context(), as.BunDB, sessionModel.UserID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't provision family: %s", err.Error())))
			return "", false
		}
		return familyID, true
	}
	userOf := func(r *http.Request) string {
		if sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session); ok {
			return sessionModel.UserID
		}
		return ""
	}

	// #region - groceries
	type OneGroceryRespBody struct {
		ID           string `json:"id"`
		ItemName     string `json:"itemName"`
		BuyByUnixUTC int64  `json:"buyByUnixUTC,omitempty"`
		IsCompleted  bool   `json:"isCompleted"`
	}

	muxer.HandleFunc("GET /groceries", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		groceryModels := make([]model.Grocery, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&groceryModels).
			Where("family_id = ?", familyID).
			Order("created_at DESC").
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get groceries"))
			return
		}
		respBody := make([]OneGroceryRespBody, 0, len(groceryModels))
		for _, grocery := range groceryModels {
			respBody = append(respBody, OneGroceryRespBody{
				ID:           grocery.ID,
				ItemName:     grocery.ItemName,
				BuyByUnixUTC: grocery.BuyByUnixUTC,
				IsCompleted:  grocery.IsCompleted,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(respBody); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't encode response"))
			return
		}
	}))

	type CreateGroceryReqBody struct {
		ItemName     string `json:"itemName"`
		BuyByUnixUTC int64  `json:"buyByUnixUTC"`
	}

	muxer.HandleFunc("POST /groceries/create", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody CreateGroceryReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if strings.TrimSpace(reqBody.ItemName) == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide an item name"))
			return
		}
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		groceryModel := model.Grocery{
			ID:           uuid.NewString(),
			FamilyID:     familyID,
			UserID:       userOf(r),
			ItemName:     strings.TrimSpace(reqBody.ItemName),
			BuyByUnixUTC: reqBody.BuyByUnixUTC,
		}
		if err := groceryModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't create grocery: %s", err.Error())))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fmt.Sprintf(`{"id": "%s"}`, groceryModel.ID)))
	}))

	type ToggleReqBody struct {
		ID          string `json:"id"`
		IsCompleted bool   `json:"isCompleted"`
	}

	muxer.HandleFunc("POST /groceries/toggle", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody ToggleReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if reqBody.ID == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide an id"))
			return
		}
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		if _, err := as.BunDB.
			NewUpdate().
			Model((*model.Grocery)(nil)).
			Set("is_completed = ?", reqBody.IsCompleted).
			Where("id = ?", reqBody.ID).
			Where("family_id = ?", familyID).
			Exec(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't update grocery"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	type DeleteReqBody struct {
		ID string `json:"id"`
	}

	muxer.HandleFunc("POST /groceries/delete", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody DeleteReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		if _, err := as.BunDB.
			NewDelete().
			Model((*model.Grocery)(nil)).
			Where("id = ?", reqBody.ID).
			Where("family_id = ?", familyID).
			Exec(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't delete grocery"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	// #endregion

	// #region - todos
	type OneTodoRespBody struct {
		ID          string `json:"id"`
		Task        string `json:"task"`
		DueUnixUTC  int64  `json:"dueUnixUTC,omitempty"`
		IsCompleted bool   `json:"isCompleted"`
	}

	muxer.HandleFunc("GET /todos", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		todoModels := make([]model.Todo, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&todoModels).
			Where("family_id = ?", familyID).
			Order("created_at DESC").
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get todos"))
			return
		}
		respBody := make([]OneTodoRespBody, 0, len(todoModels))
		for _, todo := range todoModels {
			respBody = append(respBody, OneTodoRespBody{
				ID:          todo.ID,
				Task:        todo.Task,
				DueUnixUTC:  todo.DueUnixUTC,
				IsCompleted: todo.IsCompleted,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(respBody); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't encode response"))
			return
		}
	}))

	type CreateTodoReqBody struct {
		Task       string `json:"task"`
		DueUnixUTC int64  `json:"dueUnixUTC"`
	}

	muxer.HandleFunc("POST /todos/create", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody CreateTodoReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if strings.TrimSpace(reqBody.Task) == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a task"))
			return
		}
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		todoModel := model.Todo{
			ID:         uuid.NewString(),
			FamilyID:   familyID,
			UserID:     userOf(r),
			Task:       strings.TrimSpace(reqBody.Task),
			DueUnixUTC: reqBody.DueUnixUTC,
		}
		if err := todoModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't create todo: %s", err.Error())))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fmt.Sprintf(`{"id": "%s"}`, todoModel.ID)))
	}))

	muxer.HandleFunc("POST /todos/toggle", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody ToggleReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if reqBody.ID == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide an id"))
			return
		}
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		if _, err := as.BunDB.
			NewUpdate().
			Model((*model.Todo)(nil)).
			Set("is_completed = ?", reqBody.IsCompleted).
			Where("id = ?", reqBody.ID).
			Where("family_id = ?", familyID).
			Exec(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't update todo"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	muxer.HandleFunc("POST /todos/delete", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody DeleteReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		if _, err := as.BunDB.
			NewDelete().
			Model((*model.Todo)(nil)).
			Where("id = ?", reqBody.ID).
			Where("family_id = ?", familyID).
			Exec(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't delete todo"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	// #endregion

	// #region - payment reminders
	type OneReminderRespBody struct {
		ID             string  `json:"id"`
		Name           string  `json:"name"`
		Amount         float64 `json:"amount"`
		DueUnixUTC     int64   `json:"dueUnixUTC"`
		Recurrence     string  `json:"recurrence,omitempty"`
		NextDueUnixUTC int64   `json:"nextDueUnixUTC,omitempty"`
		IsPaid         bool    `json:"isPaid"`
	}

	muxer.HandleFunc("GET /payment-reminders", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		reminderModels := make([]model.PaymentReminder, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&reminderModels).
			Where("family_id = ?", familyID).
			Order("created_at DESC").
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get payment reminders"))
			return
		}
		respBody := make([]OneReminderRespBody, 0, len(reminderModels))
		for _, reminder := range reminderModels {
			one := OneReminderRespBody{
				ID:         reminder.ID,
				Name:       reminder.Name,
				Amount:     reminder.Amount,
				DueUnixUTC: reminder.DueUnixUTC,
				Recurrence: reminder.Recurrence,
				IsPaid:     reminder.IsPaid,
			}
			if nextDue, err := reminder.NextDue(time.Now()); err == nil && !nextDue.IsZero() {
				one.NextDueUnixUTC = nextDue.Unix()
			}
			respBody = append(respBody, one)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(respBody); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't encode response"))
			return
		}
	}))

	type CreateReminderReqBody struct {
		Name       string  `json:"name"`
		Amount     float64 `json:"amount"`
		DueUnixUTC int64   `json:"dueUnixUTC"`
		Recurrence string  `json:"recurrence"`
	}

	muxer.HandleFunc("POST /payment-reminders/create", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody CreateReminderReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		switch {
		case strings.TrimSpace(reqBody.Name) == "":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a name"))
			return
		case reqBody.DueUnixUTC == 0:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a due date"))
			return
		}
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		reminderModel := model.PaymentReminder{
			ID:         uuid.NewString(),
			FamilyID:   familyID,
			UserID:     userOf(r),
			Name:       strings.TrimSpace(reqBody.Name),
			Amount:     reqBody.Amount,
			DueUnixUTC: reqBody.DueUnixUTC,
			Recurrence: reqBody.Recurrence,
		}
		if err := reminderModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Can't create payment reminder: %s", err.Error())))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fmt.Sprintf(`{"id": "%s"}`, reminderModel.ID)))
	}))

	type MarkPaidReqBody struct {
		ID string `json:"id"`
	}

	// mark paid; a recurring reminder rolls its due date forward to the next
	// occurrence and stays unpaid
	muxer.HandleFunc("POST /payment-reminders/mark-paid", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody MarkPaidReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if reqBody.ID == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide an id"))
			return
		}
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}

		reminderModel := new(model.PaymentReminder)
		if err := as.BunDB.
			NewSelect().
			Model(reminderModel).
			Where("id = ?", reqBody.ID).
			Where("family_id = ?", familyID).
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Payment reminder not found"))
			return
		}

		nextDue, err := reminderModel.NextDue(time.Unix(reminderModel.DueUnixUTC, 0))
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't compute next due date: %s", err.Error())))
			return
		}
		switch {
		case nextDue.IsZero():
			reminderModel.IsPaid = true
		default:
			reminderModel.DueUnixUTC = nextDue.Unix()
			reminderModel.IsPaid = false
		}
		if err := reminderModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't update payment reminder: %s", err.Error())))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	muxer.HandleFunc("POST /payment-reminders/delete", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody DeleteReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		familyID, ok := familyOf(w, r)
		if !ok {
			return
		}
		if _, err := as.BunDB.
			NewDelete().
			Model((*model.PaymentReminder)(nil)).
			Where("id = ?", reqBody.ID).
			Where("family_id = ?", familyID).
			Exec(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't delete payment reminder"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	// #endregion
}
