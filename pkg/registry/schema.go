// pkg/registry/schema.go
package registry

// SchemaRegistry holds the JSON Schemas describing the row payloads each
// collection publishes on the live change feed.
type SchemaRegistry struct {
	Version     string        `json:"version"`
	LastUpdated string        `json:"lastUpdated"`
	Tables      []TableSchema `json:"tables"`
}

// TableSchema pairs a collection name with the schema its feed rows must
// satisfy.
type TableSchema struct {
	Table     string                 `json:"table"`
	RowSchema map[string]interface{} `json:"rowSchema"`
}

// Lookup returns the schema for one table, or nil when the table is unknown.
func (r *SchemaRegistry) Lookup(table string) *TableSchema {
	for i := range r.Tables {
		if r.Tables[i].Table == table {
			return &r.Tables[i]
		}
	}
	return nil
}
