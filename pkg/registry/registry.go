// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"os"
)

func LoadRegistry(path string) (*SchemaRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg SchemaRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Default returns the built-in registry covering the marketplace collections.
// The feed rejects rows that do not satisfy these shapes instead of trusting
// them implicitly.
func Default() *SchemaRegistry {
	return &SchemaRegistry{
		Version: "1",
		Tables: []TableSchema{
			{
				Table: "profiles",
				RowSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":            map[string]interface{}{"type": "string"},
						"role":          map[string]interface{}{"type": "string", "enum": []interface{}{"musician", "venue"}},
						"display_name":  map[string]interface{}{"type": []interface{}{"string", "null"}},
						"contact_email": map[string]interface{}{"type": []interface{}{"string", "null"}},
						"contact_phone": map[string]interface{}{"type": []interface{}{"string", "null"}},
					},
					"required": []interface{}{"id", "role"},
				},
			},
			{
				Table: "gigs",
				RowSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":               map[string]interface{}{"type": "integer"},
						"venue_id":         map[string]interface{}{"type": "string"},
						"title":            map[string]interface{}{"type": "string"},
						"start_time":       map[string]interface{}{"type": "string"},
						"duration_minutes": map[string]interface{}{"type": "integer"},
					},
					"required": []interface{}{"id", "venue_id", "title"},
				},
			},
			{
				Table: "applications",
				RowSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":          map[string]interface{}{"type": "integer"},
						"gig_id":      map[string]interface{}{"type": "integer"},
						"musician_id": map[string]interface{}{"type": "string"},
						"status":      map[string]interface{}{"type": "string", "enum": []interface{}{"pending", "accepted", "rejected"}},
					},
					"required": []interface{}{"id", "gig_id", "musician_id", "status"},
				},
			},
			{
				Table: "application_messages",
				RowSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":             map[string]interface{}{"type": "integer"},
						"application_id": map[string]interface{}{"type": "integer"},
						"sender_id":      map[string]interface{}{"type": "string"},
						"body":           map[string]interface{}{"type": "string"},
						"created_at":     map[string]interface{}{"type": "string"},
					},
					"required": []interface{}{"id", "application_id", "sender_id", "body", "created_at"},
				},
			},
		},
	}
}
