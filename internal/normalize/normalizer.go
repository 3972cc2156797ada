package normalize

import (
	"maps"
	"sort"
	"strings"
)

// Row is one data row keyed by canonical field name. Values keep their raw
// spreadsheet text; typing happens in the row mapper.
type Row map[string]string

// Get returns the trimmed value for key, or "" when absent.
func (r Row) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Normalizer resolves headers to canonical keys.
type Normalizer struct {
	aliases map[string]string
}

// New returns a Normalizer using the built-in alias table with extra layered on top.
func New(extra map[string]string) *Normalizer {
	aliases := maps.Clone(defaultAliases)
	maps.Copy(aliases, extra)
	return &Normalizer{aliases: aliases}
}

// Key resolves a single header without regard to its neighbours.
func (n *Normalizer) Key(header string) string {
	return n.resolve(Snake(header), nil)
}

func (n *Normalizer) resolve(key string, present map[string]bool) string {
	if dst, ok := renames[key]; ok {
		key = dst
	}
	if dst, ok := n.aliases[key]; ok && !present[dst] {
		key = dst
	}
	if m := anonymousSuffix.FindStringSubmatch(key); m != nil {
		base := n.resolve(m[1], present)
		if !present[base] {
			key = base
		}
	}
	return key
}

// Plan is the header layout of one sheet, resolved once and applied to every row.
type Plan struct {
	keys     []string
	unmapped []string
}

// Plan resolves all headers of a sheet together so an alias never shadows a
// column that already carries the canonical name. It never fails: headers it
// cannot resolve are reported by Unmapped and ignored by Apply.
func (n *Normalizer) Plan(headers []string) *Plan {
	snaked := make([]string, len(headers))
	present := make(map[string]bool, len(headers))
	for i, h := range headers {
		k := Snake(h)
		if dst, ok := renames[k]; ok {
			k = dst
		}
		snaked[i] = k
		present[k] = true
	}

	p := &Plan{keys: make([]string, len(headers))}
	seen := make(map[string]bool, len(headers))
	for i, k := range snaked {
		if k == "" {
			continue
		}
		key := n.resolve(k, present)
		if !IsCanonical(key) {
			p.unmapped = append(p.unmapped, headers[i])
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		p.keys[i] = key
	}
	sort.Strings(p.unmapped)
	return p
}

// Keys returns the canonical key per column; "" marks an ignored column.
func (p *Plan) Keys() []string { return p.keys }

// Unmapped returns the original text of headers that matched no canonical field.
func (p *Plan) Unmapped() []string { return p.unmapped }

// Mapped reports how many columns resolved to a canonical field.
func (p *Plan) Mapped() int {
	n := 0
	for _, k := range p.keys {
		if k != "" {
			n++
		}
	}
	return n
}

// Apply re-keys one row of cell values. Extra or missing cells are tolerated.
func (p *Plan) Apply(values []string) Row {
	row := make(Row, len(p.keys))
	for i, key := range p.keys {
		if key == "" || i >= len(values) {
			continue
		}
		row[key] = values[i]
	}
	return row
}
