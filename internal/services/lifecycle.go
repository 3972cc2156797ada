package services

import (
	"strings"

	"github.com/deliverypulse/engine/internal/models"
	appErr "github.com/deliverypulse/engine/pkg/errors"
)

// ProjectState is the lifecycle state of a project.
type ProjectState string

const (
	StateActive     ProjectState = "ACTIVE"
	StateHistorical ProjectState = "HISTORICAL"
)

// StateOf returns the lifecycle state of p. A project not yet stored is active.
func StateOf(p *models.Project) ProjectState {
	if p != nil && p.IsHistorical {
		return StateHistorical
	}
	return StateActive
}

// Action is what an import does with one row.
type Action int

const (
	// ActionSkip leaves everything untouched.
	ActionSkip Action = iota
	// ActionIngest upserts the project and writes the week's snapshot.
	ActionIngest
	// ActionArchive freezes the project into the historical archive without a snapshot.
	ActionArchive
	// ActionRestore removes the project from the archive, then ingests the row.
	ActionRestore
)

func (a Action) String() string {
	switch a {
	case ActionIngest:
		return "ingest"
	case ActionArchive:
		return "archive"
	case ActionRestore:
		return "restore"
	default:
		return "skip"
	}
}

const (
	tokenNormal = "normal"
	tokenClosed = "closed"
	tokenHided  = "hided"
)

// Decide applies the lifecycle table to one row. Subset imports always ingest.
// In full imports the row status token drives the transition and anything
// other than normal, closed or hided is skipped.
func Decide(mode models.ImportMode, state ProjectState, token string) Action {
	if mode != models.ImportFull {
		return ActionIngest
	}
	switch strings.ToLower(strings.TrimSpace(token)) {
	case tokenClosed, tokenHided:
		if state == StateHistorical {
			return ActionSkip
		}
		return ActionArchive
	case tokenNormal:
		if state == StateHistorical {
			return ActionRestore
		}
		return ActionIngest
	default:
		return ActionSkip
	}
}

// ParseMode accepts subset/full and the SUBSET/ALL spellings used by upload
// forms. An empty value means subset.
func ParseMode(s string) (models.ImportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "subset":
		return models.ImportSubset, nil
	case "full", "all":
		return models.ImportFull, nil
	default:
		return "", appErr.Newf(appErr.CodeInvalid, "unknown import mode %q", s).WithMeta("mode", s)
	}
}
