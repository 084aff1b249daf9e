package internaldefs

import (
	"strings"
	"testing"
)

func TestDefinitionsUnique(t *testing.T) {
	seenNames := make(map[string]bool)
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "goauthclient_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q must be goauthclient_*_total", def.Name)
		}
		if seenNames[def.Name] {
			t.Fatalf("duplicate counter name %q", def.Name)
		}
		seenNames[def.Name] = true
		if def.Help == "" {
			t.Fatalf("counter %q has no help", def.Name)
		}
	}

	seenIDs := make(map[uint16]bool)
	for _, def := range CounterDefs {
		if seenIDs[uint16(def.ID)] {
			t.Fatalf("duplicate counter id %d", def.ID)
		}
		seenIDs[uint16(def.ID)] = true
	}
	for _, def := range HistogramDefs {
		if seenIDs[uint16(def.ID)] {
			t.Fatalf("histogram id %d also exported as counter", def.ID)
		}
	}
}

func TestBucketDefinitionsAligned(t *testing.T) {
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatalf("expected 8 bounds, got %d and %d", len(HistogramBounds), len(HistogramBoundSuffix))
	}
	if len(HistogramBoundValues) != len(HistogramBounds)-1 {
		t.Fatalf("expected finite bounds to exclude +Inf")
	}
	for i := 1; i < len(HistogramBoundValues); i++ {
		if HistogramBoundValues[i] <= HistogramBoundValues[i-1] {
			t.Fatalf("bounds must increase: %v", HistogramBoundValues)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
}
