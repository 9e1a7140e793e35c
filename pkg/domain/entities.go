// Package domain defines the campus directory's entities, repository
// contracts, and error taxonomy shared by every storage backend.
package domain

import (
	"fmt"
	"strings"
)

// EventCategory classifies an association's primary activity.
type EventCategory string

const (
	CategoryCulture  EventCategory = "CULTURE"
	CategorySports   EventCategory = "SPORTS"
	CategoryTech     EventCategory = "TECH"
	CategorySocial   EventCategory = "SOCIAL"
	CategoryAcademic EventCategory = "ACADEMIC"
	CategoryCareer   EventCategory = "CAREER"
	CategoryOther    EventCategory = "OTHER"
)

// EventCategories lists every category in display order.
func EventCategories() []EventCategory {
	return []EventCategory{
		CategoryCulture,
		CategorySports,
		CategoryTech,
		CategorySocial,
		CategoryAcademic,
		CategoryCareer,
		CategoryOther,
	}
}

// ParseEventCategory resolves a stored category name case-insensitively.
func ParseEventCategory(name string) (EventCategory, bool) {
	for _, c := range EventCategories() {
		if strings.EqualFold(name, string(c)) {
			return c, true
		}
	}
	return "", false
}

// DisplayName renders the category with only the first letter capitalized.
func (c EventCategory) DisplayName() string {
	if c == "" {
		return ""
	}
	s := strings.ToLower(string(c))
	return strings.ToUpper(s[:1]) + s[1:]
}

// UserRole gates directory administration capabilities.
type UserRole string

const (
	RoleUser             UserRole = "USER"
	RoleAssociationAdmin UserRole = "ASSOCIATION_ADMIN"
	RoleAdmin            UserRole = "ADMIN"
)

// ParseUserRole resolves a stored role name. Unknown names fall back to
// RoleUser so a bad document never locks a user out of the directory.
func ParseUserRole(name string) UserRole {
	switch strings.ToUpper(name) {
	case string(RoleAssociationAdmin):
		return RoleAssociationAdmin
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUser
	}
}

// AppLanguage is a user's interface language preference.
type AppLanguage string

const (
	LanguageSystem  AppLanguage = "system"
	LanguageEnglish AppLanguage = "en"
	LanguageFrench  AppLanguage = "fr"
)

// ParseAppLanguage resolves a stored language tag, defaulting to
// LanguageSystem for unknown tags.
func ParseAppLanguage(tag string) AppLanguage {
	switch AppLanguage(strings.ToLower(tag)) {
	case LanguageEnglish:
		return LanguageEnglish
	case LanguageFrench:
		return LanguageFrench
	default:
		return LanguageSystem
	}
}

// Price is an amount in cents. Zero means the event is free.
type Price int64

// Valid reports whether the price is non-negative.
func (p Price) Valid() bool { return p >= 0 }

// String renders "Free" for zero and "CHF d.dd" otherwise.
func (p Price) String() string {
	if p == 0 {
		return "Free"
	}
	return fmt.Sprintf("CHF %d.%02d", int64(p)/100, int64(p)%100)
}

// Location is a named geographic point.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

// UserSettings holds per-user presentation preferences.
type UserSettings struct {
	DarkMode bool        `json:"darkMode"`
	Language AppLanguage `json:"language"`
}

// Association is a student association listed in the directory.
type Association struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PictureURL  string            `json:"pictureUrl,omitempty"`
	About       string            `json:"about,omitempty"`
	Category    EventCategory     `json:"category"`
	SocialLinks map[string]string `json:"socialLinks,omitempty"`
	LogoURL     string            `json:"logoUrl,omitempty"`
}

// Clone returns a deep copy safe to hand across the store boundary.
func (a Association) Clone() Association {
	out := a
	if a.SocialLinks != nil {
		out.SocialLinks = make(map[string]string, len(a.SocialLinks))
		for k, v := range a.SocialLinks {
			out.SocialLinks[k] = v
		}
	}
	return out
}

// Event is a scheduled activity hosted by an association. The embedded
// Association is a point-in-time snapshot taken at creation; later edits to
// the association do not rewrite it.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Location    Location    `json:"location"`
	Time        string      `json:"time"`
	Association Association `json:"association"`
	Tags        []string    `json:"tags,omitempty"`
	Price       Price       `json:"price"`
	PictureURL  string      `json:"pictureUrl,omitempty"`
}

// Clone returns a deep copy safe to hand across the store boundary.
func (e Event) Clone() Event {
	out := e
	out.Association = e.Association.Clone()
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	return out
}

// User is a directory account. Subscriptions and EnrolledEvents carry ids
// with set semantics; mutation happens by whole-object replacement.
type User struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	Subscriptions         []string     `json:"subscriptions,omitempty"`
	EnrolledEvents        []string     `json:"enrolledEvents,omitempty"`
	ManagedAssociationIDs []string     `json:"managedAssociations,omitempty"`
	Role                  UserRole     `json:"role"`
	Settings              UserSettings `json:"settings"`
	PhotoURL              string       `json:"photoUrl,omitempty"`
}

// Clone returns a deep copy safe to hand across the store boundary.
func (u User) Clone() User {
	out := u
	if u.Subscriptions != nil {
		out.Subscriptions = append([]string(nil), u.Subscriptions...)
	}
	if u.EnrolledEvents != nil {
		out.EnrolledEvents = append([]string(nil), u.EnrolledEvents...)
	}
	if u.ManagedAssociationIDs != nil {
		out.ManagedAssociationIDs = append([]string(nil), u.ManagedAssociationIDs...)
	}
	return out
}

// SubscribedTo reports whether the user follows the association.
func (u User) SubscribedTo(associationID string) bool {
	return containsID(u.Subscriptions, associationID)
}

// EnrolledIn reports whether the user attends the event.
func (u User) EnrolledIn(eventID string) bool {
	return containsID(u.EnrolledEvents, eventID)
}

// Manages reports whether the user administers the association.
func (u User) Manages(associationID string) bool {
	return containsID(u.ManagedAssociationIDs, associationID)
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
