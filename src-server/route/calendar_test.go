package route_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hearth/src-server/model"
	"hearth/src-server/route"
	"hearth/src-server/utils"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestServer(t *testing.T) (*httptest.Server, *utils.AppState) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("STATIC_WEB_CLIENT_DIR", t.TempDir())
	t.Setenv("TIMEZONE", "UTC")

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	// a second pool connection would get its own empty in-memory database
	db.SetMaxOpenConns(1)
	bundb := bun.NewDB(db, sqlitedialect.New())
	if err := model.CreateSchema(bundb); err != nil {
		t.Fatal(err)
	}

	as := &utils.AppState{
		Config:      utils.NewConfig(),
		BunDB:       bundb,
		MetricChans: utils.NewMetric(),
	}

	muxer := http.NewServeMux()
	route.Auth(muxer, as)
	route.Family(muxer, as)
	route.Calendar(muxer, as)
	route.Lists(muxer, as)
	route.Notification(muxer, as)

	server := httptest.NewServer(muxer)
	t.Cleanup(server.Close)
	return server, as
}

// seed a user with a live session, return the session cookie
func newTestSession(t *testing.T, as *utils.AppState) (*http.Cookie, string) {
	t.Helper()
	userID := uuid.NewString()
	userModel := model.User{
		ID:           userID,
		Email:        fmt.Sprintf("%s@example.com", userID[:8]),
		PasswordHash: "not-a-real-hash",
		CreatedAt:    time.Now().UTC().Unix(),
	}
	if err := userModel.Upsert(context.Background(), as.BunDB); err != nil {
		t.Fatal(err)
	}
	secret := uuid.NewString()
	if _, err := as.BunDB.NewInsert().
		Model(&model.Session{
			Secret:           secret,
			UserID:           userID,
			CreatedAtUnixUTC: time.Now().UTC().Unix(),
		}).
		Exec(context.Background()); err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: route.SessionSecretCookieName, Value: secret}, userID
}

func doJSON(t *testing.T, method, url string, cookie *http.Cookie, body any) *http.Response {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &reqBody)
	if err != nil {
		t.Fatal(err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCalendarRequiresAuth(t *testing.T) {
	server, _ := newTestServer(t)
	resp := doJSON(t, "GET", server.URL+"/calendar/events", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Error("unauthenticated request should be rejected", resp.StatusCode)
	}
}

func TestCalendarCreateListDelete(t *testing.T) {
	server, as := newTestServer(t)
	cookie, _ := newTestSession(t, as)

	// create an event starting today
	start := time.Now().UTC().Add(2 * time.Hour).Unix()
	resp := doJSON(t, "POST", server.URL+"/calendar/create-event", cookie, map[string]any{
		"title":            "Dentist",
		"description":      "Checkup",
		"startTimeUnixUTC": start,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatal("create should succeed", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("create should return the event id")
	}

	// list buckets it into today (start is within the current day for most
	// of the day; fall back to checking the union)
	resp = doJSON(t, "GET", server.URL+"/calendar/events", cookie, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatal("list should succeed", resp.StatusCode)
	}
	var buckets struct {
		Today    []map[string]any `json:"today"`
		Upcoming []map[string]any `json:"upcoming"`
		Past     []map[string]any `json:"past"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&buckets); err != nil {
		t.Fatal(err)
	}
	total := len(buckets.Today) + len(buckets.Upcoming) + len(buckets.Past)
	if total != 1 {
		t.Fatal("event should appear in exactly one bucket", buckets)
	}

	// deleting a nonexistent id is a no-op success and leaves the list alone
	resp = doJSON(t, "POST", server.URL+"/calendar/delete-event", cookie, map[string]any{
		"id": "nonexistent",
	})
	if resp.StatusCode != http.StatusOK {
		t.Error("deleting an unknown id should be a no-op success", resp.StatusCode)
	}
	resp = doJSON(t, "GET", server.URL+"/calendar/events", cookie, nil)
	if err := json.NewDecoder(resp.Body).Decode(&buckets); err != nil {
		t.Fatal(err)
	}
	if len(buckets.Today)+len(buckets.Upcoming)+len(buckets.Past) != 1 {
		t.Error("no-op delete must not affect other events", buckets)
	}

	// delete the real event
	resp = doJSON(t, "POST", server.URL+"/calendar/delete-event", cookie, map[string]any{
		"id": created.ID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatal("delete should succeed", resp.StatusCode)
	}
	resp = doJSON(t, "GET", server.URL+"/calendar/events", cookie, nil)
	if err := json.NewDecoder(resp.Body).Decode(&buckets); err != nil {
		t.Fatal(err)
	}
	if len(buckets.Today)+len(buckets.Upcoming)+len(buckets.Past) != 0 {
		t.Error("deleted event should be gone", buckets)
	}
}

func TestCalendarCreateRejectsEmptyTitle(t *testing.T) {
	server, as := newTestServer(t)
	cookie, _ := newTestSession(t, as)

	resp := doJSON(t, "POST", server.URL+"/calendar/create-event", cookie, map[string]any{
		"title":            "   ",
		"startTimeUnixUTC": time.Now().UTC().Unix(),
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Error("empty title should be rejected", resp.StatusCode)
	}

	count, err := as.BunDB.NewSelect().
		Model((*model.Event)(nil)).
		Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("rejected event must never reach the database", count)
	}
}

// events are invisible across family boundaries, and a cross-family delete
// is a silent no-op
func TestCalendarScopedToFamily(t *testing.T) {
	server, as := newTestServer(t)
	cookieA, _ := newTestSession(t, as)
	cookieB, _ := newTestSession(t, as)

	resp := doJSON(t, "POST", server.URL+"/calendar/create-event", cookieA, map[string]any{
		"title":            "Private",
		"startTimeUnixUTC": time.Now().UTC().Unix(),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatal("create should succeed", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	// B sees nothing
	resp = doJSON(t, "GET", server.URL+"/calendar/events", cookieB, nil)
	var buckets struct {
		Today    []map[string]any `json:"today"`
		Upcoming []map[string]any `json:"upcoming"`
		Past     []map[string]any `json:"past"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&buckets); err != nil {
		t.Fatal(err)
	}
	if len(buckets.Today)+len(buckets.Upcoming)+len(buckets.Past) != 0 {
		t.Error("another family's events must not be visible", buckets)
	}

	// B can't delete A's event
	resp = doJSON(t, "POST", server.URL+"/calendar/delete-event", cookieB, map[string]any{
		"id": created.ID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatal(resp.StatusCode)
	}
	count, err := as.BunDB.NewSelect().
		Model((*model.Event)(nil)).
		Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Error("cross-family delete must not remove the event", count)
	}
}

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices": [{"message": {"content": %q}}]}`, content)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCalendarGenerateEvents(t *testing.T) {
	server, as := newTestServer(t)
	cookie, _ := newTestSession(t, as)

	llm := completionServer(t,
		`[{"title": "Family Dinner", "description": "Weekly dinner", "date": "2031-06-10T18:00:00Z"},`+
			`{"title": "Soccer", "description": "", "date": "2031-06-11T16:00:00Z"}]`)
	generator, err := utils.NewEventGenerator("test-key", nil)
	if err != nil {
		t.Fatal(err)
	}
	as.EventGenerator = generator.WithEndpoint(llm.URL)

	resp := doJSON(t, "POST", server.URL+"/calendar/generate-events", cookie, map[string]any{
		"prompt": "plan the week",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatal("generate should succeed", resp.StatusCode)
	}
	var generated []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		t.Fatal(err)
	}
	if len(generated) != 2 {
		t.Fatal("both generated events should be returned", generated)
	}
	count, err := as.BunDB.NewSelect().
		Model((*model.Event)(nil)).
		Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Error("both generated events should be stored", count)
	}
}

// a malformed model response applies nothing
func TestCalendarGenerateEventsMalformedResponse(t *testing.T) {
	server, as := newTestServer(t)
	cookie, _ := newTestSession(t, as)

	llm := completionServer(t, `{"not": "an array"}`)
	generator, err := utils.NewEventGenerator("test-key", nil)
	if err != nil {
		t.Fatal(err)
	}
	as.EventGenerator = generator.WithEndpoint(llm.URL)

	resp := doJSON(t, "POST", server.URL+"/calendar/generate-events", cookie, map[string]any{
		"prompt": "plan the week",
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Error("malformed model content should surface as a bad gateway", resp.StatusCode)
	}
	count, err := as.BunDB.NewSelect().
		Model((*model.Event)(nil)).
		Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("no events may be applied on a malformed response", count)
	}
}

func TestFamilyProvisionedOnFirstAccess(t *testing.T) {
	server, as := newTestServer(t)
	cookie, userID := newTestSession(t, as)

	resp := doJSON(t, "GET", server.URL+"/family", cookie, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatal("family fetch should succeed", resp.StatusCode)
	}
	var familyResp struct {
		FamilyID   string `json:"familyId"`
		FamilyName string `json:"familyName"`
		Members    []struct {
			UserID string `json:"userId"`
		} `json:"members"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&familyResp); err != nil {
		t.Fatal(err)
	}
	if familyResp.FamilyID == "" {
		t.Fatal("family should be provisioned lazily")
	}
	if familyResp.FamilyName != model.DefaultFamilyName {
		t.Error("new family should get the default name", familyResp.FamilyName)
	}
	if len(familyResp.Members) != 1 || familyResp.Members[0].UserID != userID {
		t.Error("the caller should be the only member", familyResp.Members)
	}

	// second fetch returns the same family
	resp = doJSON(t, "GET", server.URL+"/family", cookie, nil)
	var familyRespAgain struct {
		FamilyID string `json:"familyId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&familyRespAgain); err != nil {
		t.Fatal(err)
	}
	if familyRespAgain.FamilyID != familyResp.FamilyID {
		t.Error("provisioning must be idempotent", familyResp.FamilyID, familyRespAgain.FamilyID)
	}
}
