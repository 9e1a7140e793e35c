package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campuslife/pkg/domain"
)

func TestAssociationDocRoundTrip(t *testing.T) {
	in := domain.Association{
		ID:          "a1",
		Name:        "Photo Club",
		Description: "Analog and digital",
		PictureURL:  "https://img.example/p.jpg",
		About:       "Founded 1998",
		Category:    domain.CategoryCulture,
		SocialLinks: map[string]string{"instagram": "@photo"},
		LogoURL:     "https://img.example/logo.png",
	}
	out, err := docToAssociation(associationToDoc(in))
	if err != nil {
		t.Fatalf("docToAssociation: %v", err)
	}
	if out.ID != in.ID || out.Name != in.Name || out.Category != in.Category {
		t.Fatalf("round trip = %+v", out)
	}
	if out.SocialLinks["instagram"] != "@photo" || out.LogoURL != in.LogoURL {
		t.Fatalf("optional fields lost: %+v", out)
	}
}

func TestAssociationDocDefaultsAndFailures(t *testing.T) {
	minimal := bson.M{
		"_id":         "a1",
		"name":        "Photo Club",
		"description": "d",
		"category":    "culture", // case-insensitive
	}
	a, err := docToAssociation(minimal)
	if err != nil {
		t.Fatalf("minimal document rejected: %v", err)
	}
	if a.PictureURL != "" || a.About != "" || a.SocialLinks != nil || a.Category != domain.CategoryCulture {
		t.Fatalf("defaults wrong: %+v", a)
	}

	for name, doc := range map[string]bson.M{
		"missing name":     {"_id": "a1", "description": "d", "category": "TECH"},
		"missing category": {"_id": "a1", "name": "n", "description": "d"},
		"unknown category": {"_id": "a1", "name": "n", "description": "d", "category": "KNITTING"},
		"non-string name":  {"_id": "a1", "name": int32(7), "description": "d", "category": "TECH"},
	} {
		if _, err := docToAssociation(doc); err == nil {
			t.Errorf("%s accepted", name)
		}
	}
}

func TestDocRoundTripKeepsEmptyRequiredStrings(t *testing.T) {
	// Required fields may legally hold "" — only missing or wrongly typed
	// values fail conversion, matching the other backends.
	assoc, err := docToAssociation(associationToDoc(domain.Association{
		ID:       "a1",
		Name:     "Chess Club",
		Category: domain.CategoryOther,
	}))
	if err != nil {
		t.Fatalf("association with empty description rejected: %v", err)
	}
	if assoc.Description != "" {
		t.Fatalf("description = %q", assoc.Description)
	}

	event, err := docToEvent(eventToDoc(domain.Event{
		ID:          "e1",
		Association: domain.Association{ID: "a1", Name: "Chess Club", Category: domain.CategoryOther},
	}))
	if err != nil {
		t.Fatalf("event with empty strings rejected: %v", err)
	}
	if event.Title != "" || event.Time != "" {
		t.Fatalf("round trip = %+v", event)
	}

	user, err := docToUser(userToDoc(domain.User{ID: "u1"}))
	if err != nil {
		t.Fatalf("user with empty name rejected: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("round trip = %+v", user)
	}
}

func TestEventDocRoundTrip(t *testing.T) {
	in := domain.Event{
		ID:          "e1",
		Title:       "Vernissage",
		Description: "Opening night",
		Location:    domain.Location{Latitude: 46.52, Longitude: 6.63, Name: "Gallery"},
		Time:        "2026-10-02/2026-10-04",
		Association: domain.Association{ID: "a1", Name: "Photo Club", Description: "d", Category: domain.CategoryCulture},
		Tags:        []string{"art", "photography"},
		Price:       1500,
		PictureURL:  "https://img.example/e.jpg",
	}
	out, err := docToEvent(eventToDoc(in))
	if err != nil {
		t.Fatalf("docToEvent: %v", err)
	}
	if out.Title != in.Title || out.Location != in.Location || out.Time != in.Time {
		t.Fatalf("round trip = %+v", out)
	}
	if out.Association.ID != "a1" || out.Price != 1500 || len(out.Tags) != 2 {
		t.Fatalf("round trip = %+v", out)
	}
}

func TestEventDocFailures(t *testing.T) {
	valid := eventToDoc(domain.Event{
		ID:          "e1",
		Title:       "t",
		Description: "d",
		Location:    domain.Location{Name: "hall"},
		Time:        "2026-01-01",
		Association: domain.Association{ID: "a1", Name: "n", Description: "d", Category: domain.CategoryTech},
	})

	missingLocation := bson.M{}
	for k, v := range valid {
		missingLocation[k] = v
	}
	delete(missingLocation, "location")
	if _, err := docToEvent(missingLocation); err == nil {
		t.Error("event without location accepted")
	}

	badAssoc := bson.M{}
	for k, v := range valid {
		badAssoc[k] = v
	}
	badAssoc["association"] = bson.M{"_id": "a1"}
	if _, err := docToEvent(badAssoc); err == nil {
		t.Error("event with truncated association accepted")
	}

	negativePrice := bson.M{}
	for k, v := range valid {
		negativePrice[k] = v
	}
	negativePrice["price"] = int64(-5)
	if _, err := docToEvent(negativePrice); err == nil {
		t.Error("negative price accepted")
	}
}

func TestEventDocAcceptsWireNumberTypes(t *testing.T) {
	doc := bson.M{
		"_id":         "e1",
		"title":       "t",
		"description": "d",
		"time":        "2026-01-01",
		"location":    bson.D{{Key: "latitude", Value: int32(46)}, {Key: "longitude", Value: 6.6}, {Key: "name", Value: "hall"}},
		"association": bson.D{{Key: "_id", Value: "a1"}, {Key: "name", Value: "n"}, {Key: "description", Value: "d"}, {Key: "category", Value: "TECH"}},
		"price":       int32(250),
		"tags":        primitive.A{"one", "two"},
	}
	e, err := docToEvent(doc)
	if err != nil {
		t.Fatalf("docToEvent: %v", err)
	}
	if e.Location.Latitude != 46 || e.Price != 250 || len(e.Tags) != 2 {
		t.Fatalf("decoded = %+v", e)
	}
}

func TestUserDocDefaults(t *testing.T) {
	minimal := bson.M{"_id": "u1", "name": "Dana"}
	u, err := docToUser(minimal)
	if err != nil {
		t.Fatalf("minimal user rejected: %v", err)
	}
	if u.Role != domain.RoleUser {
		t.Fatalf("role = %q", u.Role)
	}
	if u.Settings.Language != domain.LanguageSystem || u.Settings.DarkMode {
		t.Fatalf("settings = %+v", u.Settings)
	}
	if u.Subscriptions != nil || u.EnrolledEvents != nil {
		t.Fatalf("lists not defaulted: %+v", u)
	}

	// Unknown role falls back silently instead of failing the document.
	withRole := bson.M{"_id": "u1", "name": "Dana", "role": "SUPREME_LEADER"}
	u, err = docToUser(withRole)
	if err != nil || u.Role != domain.RoleUser {
		t.Fatalf("unknown role: %+v, %v", u, err)
	}

	if _, err := docToUser(bson.M{"_id": "u1"}); err == nil {
		t.Fatal("user without name accepted")
	}
}

func TestUserDocRoundTrip(t *testing.T) {
	in := domain.User{
		ID:                    "u1",
		Name:                  "Dana",
		Subscriptions:         []string{"a1", "a2"},
		EnrolledEvents:        []string{"e1"},
		ManagedAssociationIDs: []string{"a2"},
		Role:                  domain.RoleAssociationAdmin,
		Settings:              domain.UserSettings{DarkMode: true, Language: domain.LanguageFrench},
		PhotoURL:              "https://img.example/u.jpg",
	}
	out, err := docToUser(userToDoc(in))
	if err != nil {
		t.Fatalf("docToUser: %v", err)
	}
	if out.Role != in.Role || out.Settings != in.Settings || out.PhotoURL != in.PhotoURL {
		t.Fatalf("round trip = %+v", out)
	}
	if len(out.Subscriptions) != 2 || !out.Manages("a2") {
		t.Fatalf("round trip = %+v", out)
	}
}

func TestNewUIDLooksLikeObjectID(t *testing.T) {
	s := NewStore(nil, nil)
	uid := s.NewUID()
	if _, err := primitive.ObjectIDFromHex(uid); err != nil {
		t.Fatalf("uid %q is not an ObjectID: %v", uid, err)
	}
	if s.NewUID() == uid {
		t.Fatal("uids repeat")
	}
}
