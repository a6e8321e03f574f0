// internal/network/views/configuration.go
package views

import (
	"slices"

	"beacon-network/internal/models"
	"beacon-network/internal/network/metadata"
)

// buildConfiguration unions the entry types of every backend. A template
// definition replaces the first backend's one; the schemas every backend
// supports are then added to it.
func (v *Views) buildConfiguration(snap *metadata.Snapshot, beacons []string) *models.ConfigurationResponse {
	aggregated := models.NewOrderedMap[*models.EntryTypeDefinition]()

	for _, id := range beacons {
		conf, ok := snap.Configurations[id]
		if !ok {
			continue
		}
		models.Each(conf.Response.EntryTypes, func(key string, def models.EntryTypeDefinition) {
			target, exists := aggregated.Get(key)
			if !exists {
				target = cloneEntry(def)
				if tmpl, ok := v.templateEntry(key); ok {
					target = cloneEntry(tmpl)
				}
				aggregated.Set(key, target)
			}
			if def.DefaultSchema != nil {
				addSchema(target, *def.DefaultSchema)
			}
			for _, schema := range def.AdditionallySupportedSchemas {
				addSchema(target, schema)
			}
		})
	}

	entryTypes := models.NewOrderedMap[models.EntryTypeDefinition]()
	models.Each(aggregated, func(key string, def *models.EntryTypeDefinition) {
		entryTypes.Set(key, *def)
	})

	return &models.ConfigurationResponse{
		Meta:     v.meta(),
		Response: models.BeaconConfiguration{EntryTypes: entryTypes},
	}
}

func (v *Views) templateEntry(key string) (models.EntryTypeDefinition, bool) {
	if v.config.Template == nil {
		return models.EntryTypeDefinition{}, false
	}
	return models.Lookup(v.config.Template.EntryTypes, key)
}

func cloneEntry(def models.EntryTypeDefinition) *models.EntryTypeDefinition {
	out := def
	if def.DefaultSchema != nil {
		schema := *def.DefaultSchema
		out.DefaultSchema = &schema
	}
	out.AdditionallySupportedSchemas = slices.Clone(def.AdditionallySupportedSchemas)
	return &out
}

// addSchema records a schema supported by some backend. Schemas without an id
// or a reference URL are ignored.
func addSchema(target *models.EntryTypeDefinition, schema models.SchemaDefinition) {
	if schema.ID == "" || schema.ReferenceToSchemaDefinition == "" {
		return
	}
	if target.DefaultSchema == nil {
		target.DefaultSchema = &schema
		return
	}
	if sameSchema(*target.DefaultSchema, schema) {
		return
	}
	for _, s := range target.AdditionallySupportedSchemas {
		if sameSchema(s, schema) {
			return
		}
	}
	target.AdditionallySupportedSchemas = append(target.AdditionallySupportedSchemas, schema)
}

func sameSchema(a, b models.SchemaDefinition) bool {
	return a.ID == b.ID && a.SchemaVersion == b.SchemaVersion &&
		a.ReferenceToSchemaDefinition == b.ReferenceToSchemaDefinition
}
