package domain

import "testing"

func TestPriceString(t *testing.T) {
	cases := []struct {
		cents Price
		want  string
	}{
		{0, "Free"},
		{5, "CHF 0.05"},
		{100, "CHF 1.00"},
		{1250, "CHF 12.50"},
		{999999, "CHF 9999.99"},
	}
	for _, tc := range cases {
		if got := tc.cents.String(); got != tc.want {
			t.Errorf("Price(%d).String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
	if Price(-1).Valid() {
		t.Fatal("negative price reported valid")
	}
}

func TestParseEventCategory(t *testing.T) {
	if got, ok := ParseEventCategory("sports"); !ok || got != CategorySports {
		t.Fatalf("ParseEventCategory(sports) = %q, %v", got, ok)
	}
	if got, ok := ParseEventCategory("TECH"); !ok || got != CategoryTech {
		t.Fatalf("ParseEventCategory(TECH) = %q, %v", got, ok)
	}
	if _, ok := ParseEventCategory("knitting"); ok {
		t.Fatal("unknown category parsed")
	}
	if got := CategoryAcademic.DisplayName(); got != "Academic" {
		t.Fatalf("DisplayName = %q, want Academic", got)
	}
}

func TestParseUserRoleFallsBackToUser(t *testing.T) {
	if got := ParseUserRole("ADMIN"); got != RoleAdmin {
		t.Fatalf("ParseUserRole(ADMIN) = %q", got)
	}
	if got := ParseUserRole("association_admin"); got != RoleAssociationAdmin {
		t.Fatalf("ParseUserRole(association_admin) = %q", got)
	}
	if got := ParseUserRole("OVERLORD"); got != RoleUser {
		t.Fatalf("ParseUserRole(OVERLORD) = %q, want USER", got)
	}
}

func TestParseAppLanguageDefaultsToSystem(t *testing.T) {
	if got := ParseAppLanguage("FR"); got != LanguageFrench {
		t.Fatalf("ParseAppLanguage(FR) = %q", got)
	}
	if got := ParseAppLanguage("de"); got != LanguageSystem {
		t.Fatalf("ParseAppLanguage(de) = %q, want system", got)
	}
}

func TestCloneIsolation(t *testing.T) {
	assoc := Association{
		ID:          "a1",
		Name:        "Chess Club",
		Category:    CategoryOther,
		SocialLinks: map[string]string{"web": "https://chess.example"},
	}
	clone := assoc.Clone()
	clone.SocialLinks["web"] = "mutated"
	if assoc.SocialLinks["web"] != "https://chess.example" {
		t.Fatal("association clone shares SocialLinks map")
	}

	event := Event{ID: "e1", Association: assoc, Tags: []string{"board games"}}
	eventClone := event.Clone()
	eventClone.Tags[0] = "mutated"
	eventClone.Association.SocialLinks["web"] = "mutated"
	if event.Tags[0] != "board games" {
		t.Fatal("event clone shares Tags slice")
	}
	if event.Association.SocialLinks["web"] != "https://chess.example" {
		t.Fatal("event clone shares embedded association state")
	}

	user := User{ID: "u1", Subscriptions: []string{"a1"}, EnrolledEvents: []string{"e1"}}
	userClone := user.Clone()
	userClone.Subscriptions[0] = "mutated"
	userClone.EnrolledEvents[0] = "mutated"
	if user.Subscriptions[0] != "a1" || user.EnrolledEvents[0] != "e1" {
		t.Fatal("user clone shares id slices")
	}
}

func TestMembershipHelpers(t *testing.T) {
	u := User{
		Subscriptions:         []string{"a1", "a2"},
		EnrolledEvents:        []string{"e1"},
		ManagedAssociationIDs: []string{"a2"},
	}
	if !u.SubscribedTo("a1") || u.SubscribedTo("a3") {
		t.Fatal("SubscribedTo wrong")
	}
	if !u.EnrolledIn("e1") || u.EnrolledIn("e2") {
		t.Fatal("EnrolledIn wrong")
	}
	if !u.Manages("a2") || u.Manages("a1") {
		t.Fatal("Manages wrong")
	}
}
