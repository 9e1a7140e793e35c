package mongo

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campuslife/pkg/domain"
)

// Document codecs. A missing or malformed required field fails the whole
// conversion; the caller logs the document and treats it as absent.
// Optional fields default silently.

func associationToDoc(a domain.Association) bson.M {
	doc := bson.M{
		"_id":         a.ID,
		"name":        a.Name,
		"description": a.Description,
		"category":    string(a.Category),
	}
	if a.PictureURL != "" {
		doc["pictureUrl"] = a.PictureURL
	}
	if a.About != "" {
		doc["about"] = a.About
	}
	if len(a.SocialLinks) > 0 {
		links := bson.M{}
		for k, v := range a.SocialLinks {
			links[k] = v
		}
		doc["socialLinks"] = links
	}
	if a.LogoURL != "" {
		doc["logoUrl"] = a.LogoURL
	}
	return doc
}

func docToAssociation(doc bson.M) (domain.Association, error) {
	id, err := requiredString(doc, "_id")
	if err != nil {
		return domain.Association{}, err
	}
	name, err := requiredString(doc, "name")
	if err != nil {
		return domain.Association{}, err
	}
	description, err := requiredString(doc, "description")
	if err != nil {
		return domain.Association{}, err
	}
	rawCategory, err := requiredString(doc, "category")
	if err != nil {
		return domain.Association{}, err
	}
	category, ok := domain.ParseEventCategory(rawCategory)
	if !ok {
		return domain.Association{}, fmt.Errorf("field category: unknown value %q", rawCategory)
	}
	return domain.Association{
		ID:          id,
		Name:        name,
		Description: description,
		PictureURL:  optionalString(doc, "pictureUrl"),
		About:       optionalString(doc, "about"),
		Category:    category,
		SocialLinks: optionalStringMap(doc, "socialLinks"),
		LogoURL:     optionalString(doc, "logoUrl"),
	}, nil
}

func eventToDoc(e domain.Event) bson.M {
	doc := bson.M{
		"_id":         e.ID,
		"title":       e.Title,
		"description": e.Description,
		"location": bson.M{
			"latitude":  e.Location.Latitude,
			"longitude": e.Location.Longitude,
			"name":      e.Location.Name,
		},
		"time":        e.Time,
		"association": associationToDoc(e.Association),
		"price":       int64(e.Price),
	}
	if len(e.Tags) > 0 {
		doc["tags"] = e.Tags
	}
	if e.PictureURL != "" {
		doc["pictureUrl"] = e.PictureURL
	}
	return doc
}

func docToEvent(doc bson.M) (domain.Event, error) {
	id, err := requiredString(doc, "_id")
	if err != nil {
		return domain.Event{}, err
	}
	title, err := requiredString(doc, "title")
	if err != nil {
		return domain.Event{}, err
	}
	description, err := requiredString(doc, "description")
	if err != nil {
		return domain.Event{}, err
	}
	eventTime, err := requiredString(doc, "time")
	if err != nil {
		return domain.Event{}, err
	}
	locationDoc, err := requiredDoc(doc, "location")
	if err != nil {
		return domain.Event{}, err
	}
	location, err := docToLocation(locationDoc)
	if err != nil {
		return domain.Event{}, fmt.Errorf("field location: %w", err)
	}
	assocDoc, err := requiredDoc(doc, "association")
	if err != nil {
		return domain.Event{}, err
	}
	assoc, err := docToAssociation(assocDoc)
	if err != nil {
		return domain.Event{}, fmt.Errorf("field association: %w", err)
	}
	price, err := requiredInt64(doc, "price")
	if err != nil {
		return domain.Event{}, err
	}
	if price < 0 {
		return domain.Event{}, fmt.Errorf("field price: negative value %d", price)
	}
	return domain.Event{
		ID:          id,
		Title:       title,
		Description: description,
		Location:    location,
		Time:        eventTime,
		Association: assoc,
		Tags:        optionalStringSlice(doc, "tags"),
		Price:       domain.Price(price),
		PictureURL:  optionalString(doc, "pictureUrl"),
	}, nil
}

func docToLocation(doc bson.M) (domain.Location, error) {
	lat, err := requiredFloat(doc, "latitude")
	if err != nil {
		return domain.Location{}, err
	}
	lon, err := requiredFloat(doc, "longitude")
	if err != nil {
		return domain.Location{}, err
	}
	name, err := requiredString(doc, "name")
	if err != nil {
		return domain.Location{}, err
	}
	return domain.Location{Latitude: lat, Longitude: lon, Name: name}, nil
}

func userToDoc(u domain.User) bson.M {
	doc := bson.M{
		"_id":  u.ID,
		"name": u.Name,
		"role": string(u.Role),
		"settings": bson.M{
			"darkMode": u.Settings.DarkMode,
			"language": string(u.Settings.Language),
		},
	}
	if len(u.Subscriptions) > 0 {
		doc["subscriptions"] = u.Subscriptions
	}
	if len(u.EnrolledEvents) > 0 {
		doc["enrolledEvents"] = u.EnrolledEvents
	}
	if len(u.ManagedAssociationIDs) > 0 {
		doc["managedAssociations"] = u.ManagedAssociationIDs
	}
	if u.PhotoURL != "" {
		doc["photoUrl"] = u.PhotoURL
	}
	return doc
}

func docToUser(doc bson.M) (domain.User, error) {
	id, err := requiredString(doc, "_id")
	if err != nil {
		return domain.User{}, err
	}
	name, err := requiredString(doc, "name")
	if err != nil {
		return domain.User{}, err
	}
	settings := domain.UserSettings{Language: domain.LanguageSystem}
	if settingsDoc, ok := optionalDoc(doc, "settings"); ok {
		settings.DarkMode = optionalBool(settingsDoc, "darkMode")
		settings.Language = domain.ParseAppLanguage(optionalString(settingsDoc, "language"))
	}
	return domain.User{
		ID:                    id,
		Name:                  name,
		Subscriptions:         optionalStringSlice(doc, "subscriptions"),
		EnrolledEvents:        optionalStringSlice(doc, "enrolledEvents"),
		ManagedAssociationIDs: optionalStringSlice(doc, "managedAssociations"),
		Role:                  domain.ParseUserRole(optionalString(doc, "role")),
		Settings:              settings,
		PhotoURL:              optionalString(doc, "photoUrl"),
	}, nil
}

func requiredString(doc bson.M, key string) (string, error) {
	raw, ok := doc[key]
	if !ok {
		return "", fmt.Errorf("field %s: missing", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %s: not a string (%T)", key, raw)
	}
	return s, nil
}

func requiredDoc(doc bson.M, key string) (bson.M, error) {
	raw, ok := doc[key]
	if !ok {
		return nil, fmt.Errorf("field %s: missing", key)
	}
	switch v := raw.(type) {
	case bson.M:
		return v, nil
	case bson.D:
		return v.Map(), nil
	default:
		return nil, fmt.Errorf("field %s: not a document (%T)", key, raw)
	}
}

func requiredFloat(doc bson.M, key string) (float64, error) {
	switch v := doc[key].(type) {
	case float64:
		return v, nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("field %s: not a number (%T)", key, doc[key])
	}
}

func requiredInt64(doc bson.M, key string) (int64, error) {
	switch v := doc[key].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("field %s: not a number (%T)", key, doc[key])
	}
}

func optionalDoc(doc bson.M, key string) (bson.M, bool) {
	switch v := doc[key].(type) {
	case bson.M:
		return v, true
	case bson.D:
		return v.Map(), true
	default:
		return nil, false
	}
}

func optionalString(doc bson.M, key string) string {
	s, _ := doc[key].(string)
	return s
}

func optionalBool(doc bson.M, key string) bool {
	b, _ := doc[key].(bool)
	return b
}

func optionalStringSlice(doc bson.M, key string) []string {
	raw, ok := doc[key]
	if !ok {
		return nil
	}
	var items []any
	switch v := raw.(type) {
	case primitive.A:
		items = v
	case []any:
		items = v
	case []string:
		return append([]string(nil), v...)
	default:
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func optionalStringMap(doc bson.M, key string) map[string]string {
	raw, ok := doc[key]
	if !ok {
		return nil
	}
	var sub bson.M
	switch v := raw.(type) {
	case bson.M:
		sub = v
	case bson.D:
		sub = v.Map()
	default:
		return nil
	}
	out := make(map[string]string, len(sub))
	for k, v := range sub {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
