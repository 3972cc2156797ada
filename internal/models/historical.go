package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoricalRecord freezes a project's last known figures when it is archived.
// It exists exactly while Project.IsHistorical is true.
type HistoricalRecord struct {
	ProjectCode           string    `gorm:"column:project_code;type:varchar(64);primaryKey" json:"project_code"`
	ProjectID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	ProjectName           *string   `json:"project_name"`
	Client                *string   `json:"client"`
	Team                  *string   `json:"team"`
	ProjectManager        *string   `json:"project_manager"`
	OrderedTotal          *float64  `json:"ordered_total"`
	RealHours             *float64  `json:"real_hours"`
	DeviationPct          *float64  `json:"deviation_pct"`
	ProgressW             float64   `gorm:"not null" json:"progress_w"`
	MovedToHistoricalWeek string    `gorm:"not null" json:"moved_to_historical_week"`
	SourceFilename        string    `json:"source_filename"`
	ArchivedAt            time.Time `gorm:"not null" json:"archived_at"`
}

// TableName matches the archive table name.
func (HistoricalRecord) TableName() string { return "projects_historical" }
