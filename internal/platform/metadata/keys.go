package metadata

// --- SQL Keys ---
// These keys are used for the 'key' column in the 'metadata' table.
const (
	// SchemaVersionKey stores the schema version the database was last migrated to.
	SchemaVersionKey = "schema_version"

	// InitializedAtKey stores the RFC3339 time of the first successful startup.
	InitializedAtKey = "initialized_at"
)

// SchemaVersion is the schema version this binary migrates to.
const SchemaVersion = 1
