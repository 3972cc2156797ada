package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectAttributes are the project columns an import row may carry. A nil
// field means "not present in this row".
type ProjectAttributes struct {
	Name           *string `gorm:"column:project_name" json:"project_name"`
	Client         *string `gorm:"column:client" json:"client"`
	Company        *string `gorm:"column:company" json:"company"`
	Team           *string `gorm:"column:team;index" json:"team"`
	ProjectManager *string `gorm:"column:project_manager;index" json:"project_manager"`
	Consultant     *string `gorm:"column:consultant" json:"consultant"`
	Status         *string `gorm:"column:status" json:"status"`
}

// AssignedHours are maintained by hand, never by imports.
type AssignedHours struct {
	HoursDesign      float64 `gorm:"column:hours_design;not null;default:0" json:"hours_design"`
	HoursDevelopment float64 `gorm:"column:hours_development;not null;default:0" json:"hours_development"`
	HoursPEM         float64 `gorm:"column:hours_pem;not null;default:0" json:"hours_pem"`
	HoursHypercare   float64 `gorm:"column:hours_hypercare;not null;default:0" json:"hours_hypercare"`
	HoursPM          float64 `gorm:"column:hours_pm;not null;default:0" json:"hours_pm"`
	HoursConsultant  float64 `gorm:"column:hours_consultant;not null;default:0" json:"hours_consultant"`
	HoursTechnician  float64 `gorm:"column:hours_technician;not null;default:0" json:"hours_technician"`
}

// Project is one delivery engagement, identified by its immutable code.
type Project struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code              string    `gorm:"column:project_code;type:varchar(64);uniqueIndex;not null" json:"project_code"`
	ProjectAttributes `gorm:"embedded"`
	Comments          *string `gorm:"column:comments;type:text" json:"comments"`
	AssignedHours     `gorm:"embedded"`
	IsHistorical      bool      `gorm:"column:is_historical;not null;default:false;index" json:"is_historical"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BeforeCreate assigns a client-side UUID so inserts behave the same on every dialect.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DisplayName returns the project name or its code when the name is unknown.
func (p *Project) DisplayName() string {
	if p.Name != nil && *p.Name != "" {
		return *p.Name
	}
	return p.Code
}
