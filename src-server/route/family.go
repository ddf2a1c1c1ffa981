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

func Family(muxer *http.ServeMux, as *utils.AppState) {
	type OneMemberRespBody struct {
		UserID   string `json:"userId"`
		FullName string `json:"fullName"`
		Nickname string `json:"nickname"`
	}

	type FamilyRespBody struct {
		FamilyID   string              `json:"familyId"`
		FamilyName string              `json:"familyName"`
		Members    []OneMemberRespBody `json:"members"`
	}

	// get (or lazily provision) the caller's family and its members
	muxer.HandleFunc("GET /family", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
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

		familyModel := new(model.Family)
		if err := as.BunDB.
			NewSelect().
			Model(familyModel).
			Where("id = ?", familyID).
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get family"))
			return
		}

		memberModels := make([]model.FamilyMember, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&memberModels).
			Where("family_id = ?", familyID).
			Relation("Profile").
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get family members"))
			return
		}

		respBody := FamilyRespBody{
			FamilyID:   familyID,
			FamilyName: familyModel.FamilyName,
			Members:    make([]OneMemberRespBody, 0),
		}
		for _, member := range memberModels {
			one := OneMemberRespBody{UserID: member.UserID}
			if member.Profile != nil {
				one.FullName = member.Profile.FullName
				one.Nickname = member.Profile.Nickname
			}
			respBody.Members = append(respBody.Members, one)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(respBody); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't encode response"))
			return
		}
	}))

	type AddMemberReqBody struct {
		FullName string `json:"fullName"`
		Nickname string `json:"nickname"`
	}

	// fabricate a profile for a member without a login of their own
	muxer.HandleFunc("POST /family/add-member", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		var reqBody AddMemberReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		switch {
		case strings.TrimSpace(reqBody.FullName) == "":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a full name"))
			return
		case len(reqBody.FullName) > model.ProfileFullNameMaxLen:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Full name can't be longer than %d characters", model.ProfileFullNameMaxLen)))
			return
		case len(reqBody.Nickname) > model.ProfileNicknameMaxLen:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Nickname can't be longer than %d characters", model.ProfileNicknameMaxLen)))
			return
		}

		familyID, err := model.EnsureFamily(r.Context(), as.BunDB, sessionModel.UserID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't provision family: %s", err.Error())))
			return
		}

		profileID := uuid.NewString()
		profileModel := model.Profile{
			ID:        profileID,
			FullName:  utils.CleanupString(reqBody.FullName),
			Nickname:  strings.TrimSpace(reqBody.Nickname),
			CreatedAt: time.Now().UTC().Unix(),
		}
		if err := profileModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't create profile: %s", err.Error())))
			return
		}
		memberModel := model.FamilyMember{
			ID:        uuid.NewString(),
			FamilyID:  familyID,
			UserID:    profileID,
			CreatedAt: time.Now().UTC().Unix(),
		}
		if err := memberModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't create membership: %s", err.Error())))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fmt.Sprintf(`{"userId": "%s"}`, profileID)))
	}))

	type RemoveMemberReqBody struct {
		UserID string `json:"userId"`
	}

	// remove a member from the caller's family; removing an unknown member
	// is a no-op success
	muxer.HandleFunc("POST /family/remove-member", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		var reqBody RemoveMemberReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if reqBody.UserID == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a user id"))
			return
		}
		if reqBody.UserID == sessionModel.UserID {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("You can't remove yourself from your own family"))
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
			Model((*model.FamilyMember)(nil)).
			Where("family_id = ?", familyID).
			Where("user_id = ?", reqBody.UserID).
			Exec(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't remove family member"))
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
}
