package mapper

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Shared column conversions. Every mapper round-trips the same soft-delete,
// updated-at and JSON-metadata columns; keeping the rules here keeps the
// mappers to plain field lists.

func deletedAtToEntity(d gorm.DeletedAt) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

func deletedAtToModel(t *time.Time, isDeleted bool) gorm.DeletedAt {
	if t != nil {
		return gorm.DeletedAt{Time: *t, Valid: true}
	}
	if isDeleted {
		return gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return gorm.DeletedAt{}
}

func updatedAtToEntity(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func updatedAtToModel(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// metadataToEntity degrades invalid stored JSON to nil rather than failing
// the read; metadata is advisory (degraded flags, error markers).
func metadataToEntity(j datatypes.JSON) map[string]interface{} {
	if len(j) == 0 {
		return nil
	}
	var metadata map[string]interface{}
	_ = json.Unmarshal(j, &metadata)
	return metadata
}

func metadataToModel(m map[string]interface{}) datatypes.JSON {
	if m == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
