package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImportMode selects how lifecycle status tokens are treated.
type ImportMode string

const (
	// ImportSubset writes ordinary snapshot updates and never archives or restores.
	ImportSubset ImportMode = "subset"
	// ImportFull applies the ACTIVE/HISTORICAL lifecycle from each row's status.
	ImportFull ImportMode = "full"
)

// ImportBatch records the provenance of one ingestion run. Never updated.
type ImportBatch struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Filename        string         `gorm:"not null" json:"filename"`
	Sheet           string         `json:"sheet"`
	SnapshotYear    int            `gorm:"column:snapshot_year;not null" json:"snapshot_year"`
	SnapshotWeek    int            `gorm:"column:snapshot_week;not null" json:"snapshot_week"`
	MappingVersion  string         `json:"mapping_version"`
	Mode            ImportMode     `gorm:"type:varchar(16);not null" json:"mode"`
	FileSHA256      string         `gorm:"column:file_sha256;type:varchar(64);index" json:"file_sha256"`
	UnmappedHeaders datatypes.JSON `json:"unmapped_headers"`
	CreatedAt       time.Time      `json:"created_at"`
}

// BeforeCreate assigns a client-side UUID.
func (b *ImportBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
