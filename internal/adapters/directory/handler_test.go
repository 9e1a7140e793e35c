package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campuslife/internal/core"
	"campuslife/internal/infra/persistence/memory"
	"campuslife/pkg/domain"
)

func newTestHandler(t *testing.T) (*Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStore(memory.WithAuthenticator(domain.ContextAuthenticator{}))
	ctx := context.Background()
	users := []domain.User{
		{ID: "admin", Name: "Alex", Role: domain.RoleAdmin},
		{ID: "manager", Name: "Mika", Role: domain.RoleAssociationAdmin, ManagedAssociationIDs: []string{"a1"}},
		{ID: "member", Name: "Sam", Role: domain.RoleUser},
	}
	for _, u := range users {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("seed user %s: %v", u.ID, err)
		}
	}
	return NewHandler(core.NewService(store)), store
}

func doRequest(t *testing.T, h *Handler, method, path, principal, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if principal != "" {
		req.Header.Set(PrincipalHeader, principal)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestAssociationCRUDOverHTTP(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/associations", "admin",
		`{"name":"Chess Club","description":"Blitz nights","category":"OTHER"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Association domain.Association `json:"association"`
	}
	decodeInto(t, rec, &created)
	if created.Association.ID == "" {
		t.Fatal("no id assigned")
	}
	id := created.Association.ID

	rec = doRequest(t, h, http.MethodGet, "/api/v1/associations", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Associations []domain.Association `json:"associations"`
	}
	decodeInto(t, rec, &listed)
	if len(listed.Associations) != 1 {
		t.Fatalf("listed %d associations", len(listed.Associations))
	}

	updated := created.Association
	updated.Description = "Blitz and bullet nights"
	payload, _ := json.Marshal(updated)
	rec = doRequest(t, h, http.MethodPut, "/api/v1/associations/"+id, "admin", string(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/associations/"+id, "", "")
	var fetched struct {
		Association domain.Association `json:"association"`
	}
	decodeInto(t, rec, &fetched)
	if fetched.Association.Description != "Blitz and bullet nights" {
		t.Fatalf("fetched = %+v", fetched.Association)
	}

	rec = doRequest(t, h, http.MethodDelete, "/api/v1/associations/"+id, "admin", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doRequest(t, h, http.MethodGet, "/api/v1/associations/"+id, "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rec.Code)
	}
}

func TestAssociationCreatePermissions(t *testing.T) {
	h, _ := newTestHandler(t)
	body := `{"name":"n","description":"d","category":"TECH"}`

	if rec := doRequest(t, h, http.MethodPost, "/api/v1/associations", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodPost, "/api/v1/associations", "member", body); rec.Code != http.StatusForbidden {
		t.Fatalf("member create = %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodPost, "/api/v1/associations", "manager", body); rec.Code != http.StatusForbidden {
		t.Fatalf("association admin create = %d", rec.Code)
	}
}

func TestAssociationUpdateMismatchRejected(t *testing.T) {
	h, store := newTestHandler(t)
	seedAssociation(t, store, "a1")

	rec := doRequest(t, h, http.MethodPut, "/api/v1/associations/a1", "admin",
		`{"id":"a2","name":"n","description":"d","category":"TECH"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatched update = %d body %s", rec.Code, rec.Body.String())
	}
}

func TestEventEndpoints(t *testing.T) {
	h, store := newTestHandler(t)
	seedAssociation(t, store, "a1")
	seedAssociation(t, store, "a2")

	body := `{"title":"Tournament","description":"Open to all","time":"2026-11-07",` +
		`"location":{"latitude":46.5,"longitude":6.6,"name":"Great hall"},` +
		`"association":{"id":"a1","name":"Assoc a1","description":"d","category":"TECH"},"price":0}`

	// The manager of a1 may host events for a1 but not a2.
	rec := doRequest(t, h, http.MethodPost, "/api/v1/events", "manager", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event = %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Event domain.Event `json:"event"`
	}
	decodeInto(t, rec, &created)

	otherBody := strings.ReplaceAll(body, `"id":"a1"`, `"id":"a2"`)
	if rec := doRequest(t, h, http.MethodPost, "/api/v1/events", "manager", otherBody); rec.Code != http.StatusForbidden {
		t.Fatalf("cross-association create = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/associations/a1/events", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("events for association = %d", rec.Code)
	}
	var forAssoc struct {
		Events []domain.Event `json:"events"`
	}
	decodeInto(t, rec, &forAssoc)
	if len(forAssoc.Events) != 1 || forAssoc.Events[0].ID != created.Event.ID {
		t.Fatalf("events = %+v", forAssoc.Events)
	}

	if rec := doRequest(t, h, http.MethodGet, "/api/v1/associations/ghost/events", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("events for absent association = %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodDelete, "/api/v1/events/"+created.Event.ID, "manager", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete event = %d", rec.Code)
	}
}

func TestEventUpdateAuthorizedAgainstStoredEvent(t *testing.T) {
	h, store := newTestHandler(t)
	seedAssociation(t, store, "a1")
	other := seedAssociation(t, store, "a2")
	event := domain.Event{ID: "e1", Title: "Quiz Night", Description: "d", Time: "2026-05-01", Association: other}
	if err := store.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	// The manager of a1 cannot take over a2's event by claiming a1 in the
	// payload.
	hijack := event
	hijack.Title = "Hijacked"
	hijack.Association = domain.Association{ID: "a1", Name: "Assoc a1", Description: "d", Category: domain.CategoryTech}
	payload, _ := json.Marshal(hijack)
	rec := doRequest(t, h, http.MethodPut, "/api/v1/events/e1", "manager", string(payload))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-association update = %d body %s", rec.Code, rec.Body.String())
	}
	stored, _ := store.GetEvent(context.Background(), "e1")
	if stored.Title != "Quiz Night" || stored.Association.ID != "a2" {
		t.Fatalf("stored event changed: %+v", stored)
	}

	// Updating an absent event reports not found before any guard noise.
	if rec := doRequest(t, h, http.MethodPut, "/api/v1/events/ghost", "admin", string(payload)); rec.Code != http.StatusNotFound {
		t.Fatalf("update of absent event = %d", rec.Code)
	}

	// The rightful manager still needs rights on a new hosting association.
	event.Title = "Quiz Night II"
	payload, _ = json.Marshal(event)
	managed := domain.User{ID: "m2", Name: "Noa", Role: domain.RoleAssociationAdmin, ManagedAssociationIDs: []string{"a2"}}
	if err := store.CreateUser(context.Background(), managed); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if rec := doRequest(t, h, http.MethodPut, "/api/v1/events/e1", "m2", string(payload)); rec.Code != http.StatusOK {
		t.Fatalf("legitimate update = %d body %s", rec.Code, rec.Body.String())
	}
	if rec := doRequest(t, h, http.MethodPut, "/api/v1/events/e1", "m2", string(mustMarshal(t, hijack))); rec.Code != http.StatusForbidden {
		t.Fatalf("move into unmanaged association = %d", rec.Code)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return payload
}

func TestSubscriptionAndEnrollmentFlow(t *testing.T) {
	h, store := newTestHandler(t)
	assoc := seedAssociation(t, store, "a1")
	event := domain.Event{ID: "e1", Title: "t", Description: "d", Time: "2026-01-01", Association: assoc}
	if err := store.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	if rec := doRequest(t, h, http.MethodPost, "/api/v1/associations/a1/subscription", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous subscribe = %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodPost, "/api/v1/associations/a1/subscription", "member", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("subscribe = %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodPost, "/api/v1/associations/a1/subscription", "member", ""); rec.Code != http.StatusConflict {
		t.Fatalf("double subscribe = %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodDelete, "/api/v1/associations/a1/subscription", "member", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("unsubscribe = %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodDelete, "/api/v1/associations/a1/subscription", "member", ""); rec.Code != http.StatusConflict {
		t.Fatalf("double unsubscribe = %d", rec.Code)
	}

	if rec := doRequest(t, h, http.MethodPost, "/api/v1/events/e1/enrollment", "member", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("enroll = %d", rec.Code)
	}
	rec := doRequest(t, h, http.MethodGet, "/api/v1/users/me", "member", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("users/me = %d", rec.Code)
	}
	var me struct {
		User domain.User `json:"user"`
	}
	decodeInto(t, rec, &me)
	if !me.User.EnrolledIn("e1") {
		t.Fatalf("current user = %+v", me.User)
	}
}

func TestCurrentUserRequiresPrincipal(t *testing.T) {
	h, _ := newTestHandler(t)
	if rec := doRequest(t, h, http.MethodGet, "/api/v1/users/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous users/me = %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodGet, "/api/v1/users/member", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("get user = %d", rec.Code)
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/associations", "admin", `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body = %d", rec.Code)
	}
	rec = doRequest(t, h, http.MethodPost, "/api/v1/associations", "admin", `{"name":"n","description":"d","category":"TECH","surprise":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field = %d", rec.Code)
	}
}

func seedAssociation(t *testing.T, store *memory.Store, id string) domain.Association {
	t.Helper()
	a := domain.Association{ID: id, Name: "Assoc " + id, Description: "d", Category: domain.CategoryTech}
	if err := store.CreateAssociation(context.Background(), a); err != nil {
		t.Fatalf("seed association %s: %v", id, err)
	}
	return a
}
