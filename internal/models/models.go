// Package models holds the persisted project, snapshot, batch and archive records.
package models

// All returns every persisted model in migration order.
func All() []any {
	return []any{
		&Project{},
		&ImportBatch{},
		&Snapshot{},
		&HistoricalRecord{},
	}
}
