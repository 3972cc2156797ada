// Package mapper turns a normalized spreadsheet row into typed project and
// snapshot fields, computing the base hour metrics on the way.
package mapper

import (
	"strings"

	"github.com/deliverypulse/engine/internal/models"
	"github.com/deliverypulse/engine/internal/normalize"
)

// PlaceholderPrefix precedes the code in the name of a project imported without one.
const PlaceholderPrefix = "(NO NAME)"

// Result is one mapped row.
type Result struct {
	Code     string
	Project  models.ProjectAttributes
	Snapshot models.SnapshotMetrics
}

// LifecycleToken is the status cell that drives archival in full imports.
func (r Result) LifecycleToken() string {
	if r.Snapshot.InternalStatus == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*r.Snapshot.InternalStatus))
}

// HasPlaceholderName reports whether the row carried no usable project name.
func (r Result) HasPlaceholderName() bool {
	return r.Project.Name != nil && strings.HasPrefix(*r.Project.Name, PlaceholderPrefix+" ")
}

// Map converts a row. ok is false when the row has no project code; such rows
// are skipped by the caller. Map never fails on bad cell content: anything it
// cannot coerce becomes nil.
func Map(row normalize.Row) (res Result, ok bool) {
	code := NormalizeCode(row.Get("project_code"))
	if code == "" {
		return Result{}, false
	}
	res.Code = code
	res.Project = mapProject(row, code)
	res.Snapshot = mapSnapshot(row)
	return res, true
}

func mapProject(row normalize.Row, code string) models.ProjectAttributes {
	name := ParseText(row.Get("project_name"))
	if name == nil {
		placeholder := PlaceholderPrefix + " " + code
		name = &placeholder
	}
	return models.ProjectAttributes{
		Name:           name,
		Client:         ParseText(row.Get("client")),
		Company:        ParseText(row.Get("company")),
		Team:           ParseText(row.Get("team")),
		ProjectManager: ParseText(row.Get("project_manager")),
		Consultant:     ParseText(row.Get("consultant")),
		Status:         ParseText(row.Get("status")),
	}
}

func mapSnapshot(row normalize.Row) models.SnapshotMetrics {
	num := func(k string) *float64 { return ParseFloat(row.Get(k)) }
	txt := func(k string) *string { return ParseText(row.Get(k)) }
	flag := func(k string) *bool { return ParseBool(row.Get(k)) }

	m := models.SnapshotMetrics{
		ProgressW:  num("progress_w"),
		ProgressC:  num("progress_c"),
		ProgressPM: num("progress_pm"),
		ProgressE:  num("progress_e"),
		ProgressED: num("progress_ed"),

		DeviationTD:  num("deviation_td"),
		DeviationCD:  num("deviation_cd"),
		DeviationPMD: num("deviation_pmd"),
		DeviationED:  num("deviation_ed"),

		DistC:  num("dist_c"),
		DistPM: num("dist_pm"),
		DistE:  num("dist_e"),

		PaymentInv:     num("payment_inv"),
		PaymentTotal:   num("payment_total"),
		PaymentPending: num("payment_pending"),
		PaymentQ:       num("payment_q"),

		Milestones: models.Milestones{
			DateKickoff:    ParseDate(row.Get("date_kickoff")),
			DateDesign:     ParseDate(row.Get("date_design")),
			DateValidation: ParseDate(row.Get("date_validation")),
			DateGolive:     ParseDate(row.Get("date_golive")),
			DateReception:  ParseDate(row.Get("date_reception")),
			DateEnd:        ParseDate(row.Get("date_end")),
		},

		Team:           txt("team"),
		ProjectManager: txt("project_manager"),
		Consultant:     txt("consultant"),
		OrderPhase:     txt("order_phase"),
		InternalStatus: txt("internal_status"),
		ProjectType:    txt("project_type"),
		ServiceType:    txt("service_type"),
		OfferCode:      txt("offer_code"),
		ReportDate:     ParseDate(row.Get("report_date")),
		Comments:       txt("comments"),

		KickoffOK:    flag("kickoff_ok"),
		DesignOK:     flag("design_ok"),
		ValidationOK: flag("validation_ok"),
		GoliveOK:     flag("golive_ok"),
		ReceptionOK:  flag("reception_ok"),
		EndOK:        flag("end_ok"),
		MP:           flag("mp"),

		OrderedN:  num("ordered_n"),
		OrderedE:  num("ordered_e"),
		RealHours: num("real_hours"),
	}

	m.OrderedTotal = OrderedTotal(m.OrderedN, m.OrderedE)
	m.TheoreticalHours = TheoreticalHours(m.OrderedTotal, m.ProgressW)
	m.DeviationHours = DeviationHours(m.RealHours, m.TheoreticalHours)
	m.DeviationPct = DeviationPct(m.DeviationHours, m.TheoreticalHours)
	return m
}
