package models

// SourceTypeXtream is the only provider protocol currently implemented.
const SourceTypeXtream = "xtream"

// Source represents one configured upstream content provider. Sources are
// immutable for the lifetime of a session once loaded by the registry.
type Source struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // "xtream"
	Enabled  bool   `json:"enabled"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// SourceUpsert captures the data required to create or update a source.
type SourceUpsert struct {
	Type     string `json:"type"`
	Enabled  *bool  `json:"enabled,omitempty"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}
