package model

// SchemaVersion is the single-row version record kept by the relational
// backend. The row always has id 1; version 0 means a fresh database.
type SchemaVersion struct {
	ID          int    `json:"-" db:"id"`
	Version     int    `json:"version" db:"version"`
	Description string `json:"description" db:"description"`
}
