package normalize

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// renames are applied unconditionally after snake-casing.
var renames = map[string]string{
	"progress_pctw":  "progress_w",
	"progress_pctc":  "progress_c",
	"progress_pctpm": "progress_pm",
	"progress_pcte":  "progress_e",
	"progress_pcted": "progress_ed",

	// spreadsheet-computed figures are recomputed on import and kept apart
	"desviacion_h":   "excel_desviacion_h",
	"desviacion_pct": "excel_desviacion_pct",
	"horas_teoricas": "excel_horas_teoricas",
}

// defaultAliases resolve synonyms seen across spreadsheet revisions. An alias
// only applies when its target is not already a header of the same sheet.
var defaultAliases = map[string]string{
	"customer":       "client",
	"code":           "project_code",
	"projectmanager": "project_manager",
	"real":           "real_hours",

	"deviation_pcttd":  "deviation_td",
	"deviation_pctcd":  "deviation_cd",
	"deviation_pctpmd": "deviation_pmd",
	"deviation_pcted":  "deviation_ed",

	"kick_off_ok": "kickoff_ok",
	"go_live_ok":  "golive_ok",

	"date": "report_date",

	"dates_k": "date_kickoff",
	"dates_d": "date_design",
	"dates_v": "date_validation",
	"dates_g": "date_golive",
	"dates_r": "date_reception",
	"dates_e": "date_end",
}

// anonymousSuffix matches keys produced from a label joined with a blank
// header placeholder, e.g. "code_unnamed_2_level_1".
var anonymousSuffix = regexp.MustCompile(`^(.+?)_unnamed_\d+_level_\d+$`)

// Fields lists every canonical key the row mapper reads.
var Fields = []string{
	"project_code", "project_name", "client", "company", "team",
	"project_manager", "consultant", "status",

	"progress_w", "progress_c", "progress_pm", "progress_e", "progress_ed",
	"deviation_td", "deviation_cd", "deviation_pmd", "deviation_ed",
	"dist_c", "dist_pm", "dist_e",
	"payment_inv", "payment_total", "payment_pending", "payment_q",

	"date_kickoff", "date_design", "date_validation",
	"date_golive", "date_reception", "date_end",

	"order_phase", "internal_status", "project_type", "service_type",
	"offer_code", "report_date", "comments",

	"kickoff_ok", "design_ok", "validation_ok", "golive_ok",
	"reception_ok", "end_ok", "mp",

	"ordered_n", "ordered_e", "real_hours",
}

var canonical = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Fields))
	for _, f := range Fields {
		m[f] = struct{}{}
	}
	return m
}()

// IsCanonical reports whether key is a field the row mapper consumes.
func IsCanonical(key string) bool {
	_, ok := canonical[key]
	return ok
}

type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliases reads an alias overlay of the form
//
//	aliases:
//	  "Cliente final": client
//
// Keys and values are snake-cased so they match normalized headers.
func LoadAliases(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse aliases %s: %w", path, err)
	}
	out := make(map[string]string, len(f.Aliases))
	for src, dst := range f.Aliases {
		s, d := Snake(src), Snake(dst)
		if s == "" || d == "" {
			return nil, fmt.Errorf("alias %q -> %q: empty key", src, dst)
		}
		out[s] = d
	}
	return out, nil
}
