package layout_test

import (
	"testing"

	"weekcal/internal/layout"
)

func BenchmarkCompute_Week(b *testing.B) {
	events := roster(1, 350, 7)
	b.ReportAllocs()
	for b.Loop() {
		layout.Compute(events)
	}
}

func BenchmarkComputeColumn_Dense(b *testing.B) {
	events := roster(2, 120, 1)
	b.ReportAllocs()
	for b.Loop() {
		layout.ComputeColumn(events)
	}
}
