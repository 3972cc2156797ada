package repository

import (
	"reflect"

	"github.com/deliverypulse/engine/internal/models"
)

// MergeAttributes overlays every non-nil field of in onto dst. A nil field
// in in never erases a stored value.
func MergeAttributes(dst *models.ProjectAttributes, in models.ProjectAttributes) {
	overlay(reflect.ValueOf(dst).Elem(), reflect.ValueOf(in))
}

// MergeSnapshot applies the non-nil-wins overlay to every metric except the
// milestone dates, which always take the incoming value, nil included.
func MergeSnapshot(dst *models.SnapshotMetrics, in models.SnapshotMetrics) {
	overlay(reflect.ValueOf(dst).Elem(), reflect.ValueOf(in))
	dst.Milestones = in.Milestones
}

func overlay(dst, src reflect.Value) {
	for i := 0; i < src.NumField(); i++ {
		f := src.Field(i)
		switch f.Kind() {
		case reflect.Pointer:
			if !f.IsNil() {
				v := reflect.New(f.Type().Elem())
				v.Elem().Set(f.Elem())
				dst.Field(i).Set(v)
			}
		case reflect.Struct:
			overlay(dst.Field(i), f)
		}
	}
}
