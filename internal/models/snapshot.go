package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Milestones are the six planned phase dates. Imports always overwrite them.
type Milestones struct {
	DateKickoff    *time.Time `gorm:"column:date_kickoff;type:date" json:"date_kickoff"`
	DateDesign     *time.Time `gorm:"column:date_design;type:date" json:"date_design"`
	DateValidation *time.Time `gorm:"column:date_validation;type:date" json:"date_validation"`
	DateGolive     *time.Time `gorm:"column:date_golive;type:date" json:"date_golive"`
	DateReception  *time.Time `gorm:"column:date_reception;type:date" json:"date_reception"`
	DateEnd        *time.Time `gorm:"column:date_end;type:date" json:"date_end"`
}

// MilestoneKey names one of the six milestone dates.
type MilestoneKey string

const (
	MilestoneKickoff    MilestoneKey = "date_kickoff"
	MilestoneDesign     MilestoneKey = "date_design"
	MilestoneValidation MilestoneKey = "date_validation"
	MilestoneGolive     MilestoneKey = "date_golive"
	MilestoneReception  MilestoneKey = "date_reception"
	MilestoneEnd        MilestoneKey = "date_end"
)

// MilestoneKeys lists milestones in project order.
var MilestoneKeys = []MilestoneKey{
	MilestoneKickoff, MilestoneDesign, MilestoneValidation,
	MilestoneGolive, MilestoneReception, MilestoneEnd,
}

// Get returns the date stored under key.
func (m Milestones) Get(key MilestoneKey) *time.Time {
	switch key {
	case MilestoneKickoff:
		return m.DateKickoff
	case MilestoneDesign:
		return m.DateDesign
	case MilestoneValidation:
		return m.DateValidation
	case MilestoneGolive:
		return m.DateGolive
	case MilestoneReception:
		return m.DateReception
	case MilestoneEnd:
		return m.DateEnd
	}
	return nil
}

// Deltas are computed against the chronologically preceding snapshot.
type Deltas struct {
	ProgressWDelta        *float64 `gorm:"column:progress_w_delta" json:"progress_w_delta"`
	RealHoursDelta        *float64 `gorm:"column:real_hours_delta" json:"real_hours_delta"`
	OrderedTotalDelta     *float64 `gorm:"column:ordered_total_delta" json:"ordered_total_delta"`
	TheoreticalHoursDelta *float64 `gorm:"column:theoretical_hours_delta" json:"theoretical_hours_delta"`
	DeviationPctDelta     *float64 `gorm:"column:deviation_pct_delta" json:"deviation_pct_delta"`
	ProductivityRatio     *float64 `gorm:"column:productivity_ratio" json:"productivity_ratio"`
}

// SnapshotMetrics is the typed weekly measurement produced by the row mapper.
type SnapshotMetrics struct {
	ProgressW  *float64 `gorm:"column:progress_w" json:"progress_w"`
	ProgressC  *float64 `gorm:"column:progress_c" json:"progress_c"`
	ProgressPM *float64 `gorm:"column:progress_pm" json:"progress_pm"`
	ProgressE  *float64 `gorm:"column:progress_e" json:"progress_e"`
	ProgressED *float64 `gorm:"column:progress_ed" json:"progress_ed"`

	DeviationTD  *float64 `gorm:"column:deviation_td" json:"deviation_td"`
	DeviationCD  *float64 `gorm:"column:deviation_cd" json:"deviation_cd"`
	DeviationPMD *float64 `gorm:"column:deviation_pmd" json:"deviation_pmd"`
	DeviationED  *float64 `gorm:"column:deviation_ed" json:"deviation_ed"`

	DistC  *float64 `gorm:"column:dist_c" json:"dist_c"`
	DistPM *float64 `gorm:"column:dist_pm" json:"dist_pm"`
	DistE  *float64 `gorm:"column:dist_e" json:"dist_e"`

	PaymentInv     *float64 `gorm:"column:payment_inv" json:"payment_inv"`
	PaymentTotal   *float64 `gorm:"column:payment_total" json:"payment_total"`
	PaymentPending *float64 `gorm:"column:payment_pending" json:"payment_pending"`
	PaymentQ       *float64 `gorm:"column:payment_q" json:"payment_q"`

	Milestones `gorm:"embedded"`

	Team           *string    `gorm:"column:team;index" json:"team"`
	ProjectManager *string    `gorm:"column:project_manager" json:"project_manager"`
	Consultant     *string    `gorm:"column:consultant" json:"consultant"`
	OrderPhase     *string    `gorm:"column:order_phase;index" json:"order_phase"`
	InternalStatus *string    `gorm:"column:internal_status" json:"internal_status"`
	ProjectType    *string    `gorm:"column:project_type" json:"project_type"`
	ServiceType    *string    `gorm:"column:service_type" json:"service_type"`
	OfferCode      *string    `gorm:"column:offer_code" json:"offer_code"`
	ReportDate     *time.Time `gorm:"column:report_date;type:date" json:"report_date"`
	Comments       *string    `gorm:"column:comments;type:text" json:"comments"`

	KickoffOK    *bool `gorm:"column:kickoff_ok" json:"kickoff_ok"`
	DesignOK     *bool `gorm:"column:design_ok" json:"design_ok"`
	ValidationOK *bool `gorm:"column:validation_ok" json:"validation_ok"`
	GoliveOK     *bool `gorm:"column:golive_ok" json:"golive_ok"`
	ReceptionOK  *bool `gorm:"column:reception_ok" json:"reception_ok"`
	EndOK        *bool `gorm:"column:end_ok" json:"end_ok"`
	MP           *bool `gorm:"column:mp" json:"mp"`

	OrderedN         *float64 `gorm:"column:ordered_n" json:"ordered_n"`
	OrderedE         *float64 `gorm:"column:ordered_e" json:"ordered_e"`
	OrderedTotal     *float64 `gorm:"column:ordered_total" json:"ordered_total"`
	RealHours        *float64 `gorm:"column:real_hours" json:"real_hours"`
	TheoreticalHours *float64 `gorm:"column:theoretical_hours" json:"theoretical_hours"`
	DeviationHours   *float64 `gorm:"column:deviation_hours" json:"deviation_hours"`
	DeviationPct     *float64 `gorm:"column:deviation_pct" json:"deviation_pct"`

	Deltas `gorm:"embedded"`
}

// Snapshot is one (project, year, week) measurement.
type Snapshot struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_project_week,priority:1" json:"project_id"`
	ImportBatchID   *uuid.UUID `gorm:"type:uuid;index" json:"import_batch_id"`
	SnapshotYear    int        `gorm:"column:snapshot_year;not null;uniqueIndex:idx_snapshot_project_week,priority:2" json:"year"`
	SnapshotWeek    int        `gorm:"column:snapshot_week;not null;uniqueIndex:idx_snapshot_project_week,priority:3" json:"week"`
	SnapshotAt      time.Time  `gorm:"column:snapshot_at;not null" json:"snapshot_at"`
	SnapshotMetrics `gorm:"embedded"`

	Project     *Project     `gorm:"foreignKey:ProjectID" json:"-"`
	ImportBatch *ImportBatch `gorm:"foreignKey:ImportBatchID" json:"-"`
}

// TableName keeps the historical table name used by reporting queries.
func (Snapshot) TableName() string { return "project_snapshots" }

// BeforeCreate assigns a client-side UUID.
func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
