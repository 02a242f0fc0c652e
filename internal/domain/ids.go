package domain

// UserID is the identity provider's opaque identifier for a user (Supabase uses UUIDs,
// the local provider does too, but callers must not rely on the format).
type UserID string

// ListID is the identifier of a shopping list (UUID).
type ListID string

// ItemID is the identifier of a shopping list item (UUID).
type ItemID string
