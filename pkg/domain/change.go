package domain

// EntityType identifies one of the directory's entity families.
type EntityType string

const (
	EntityAssociation EntityType = "association"
	EntityEvent       EntityType = "event"
	EntityUser        EntityType = "user"
)

// Action identifies a mutation applied to an entity.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
