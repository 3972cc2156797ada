package models

// Phase is a delivery phase with manually assigned hours.
type Phase string

const (
	PhaseDesign      Phase = "design"
	PhaseDevelopment Phase = "development"
	PhasePEM         Phase = "pem"
	PhaseHypercare   Phase = "hypercare"
)

// Phases lists phases in delivery order.
var Phases = []Phase{PhaseDesign, PhaseDevelopment, PhasePEM, PhaseHypercare}

// Role is a staffing role with manually assigned hours.
type Role string

const (
	RolePM         Role = "pm"
	RoleConsultant Role = "consultant"
	RoleTechnician Role = "technician"
)

// Roles lists the staffing roles.
var Roles = []Role{RolePM, RoleConsultant, RoleTechnician}

var phaseFields = map[Phase]func(*AssignedHours) *float64{
	PhaseDesign:      func(h *AssignedHours) *float64 { return &h.HoursDesign },
	PhaseDevelopment: func(h *AssignedHours) *float64 { return &h.HoursDevelopment },
	PhasePEM:         func(h *AssignedHours) *float64 { return &h.HoursPEM },
	PhaseHypercare:   func(h *AssignedHours) *float64 { return &h.HoursHypercare },
}

var roleFields = map[Role]func(*AssignedHours) *float64{
	RolePM:         func(h *AssignedHours) *float64 { return &h.HoursPM },
	RoleConsultant: func(h *AssignedHours) *float64 { return &h.HoursConsultant },
	RoleTechnician: func(h *AssignedHours) *float64 { return &h.HoursTechnician },
}

// PhaseField returns the hours field for p, or false for an unknown phase.
func (h *AssignedHours) PhaseField(p Phase) (*float64, bool) {
	f, ok := phaseFields[p]
	if !ok {
		return nil, false
	}
	return f(h), true
}

// RoleField returns the hours field for r, or false for an unknown role.
func (h *AssignedHours) RoleField(r Role) (*float64, bool) {
	f, ok := roleFields[r]
	if !ok {
		return nil, false
	}
	return f(h), true
}

// ByPhase returns the assigned hours keyed by phase.
func (h AssignedHours) ByPhase() map[Phase]float64 {
	out := make(map[Phase]float64, len(phaseFields))
	for p, f := range phaseFields {
		out[p] = *f(&h)
	}
	return out
}

// ByRole returns the assigned hours keyed by role.
func (h AssignedHours) ByRole() map[Role]float64 {
	out := make(map[Role]float64, len(roleFields))
	for r, f := range roleFields {
		out[r] = *f(&h)
	}
	return out
}
