package fare

import (
	"errors"
	"testing"
)

func TestFareFor(t *testing.T) {
	table := MustTable(DefaultFares)
	cases := []struct {
		region string
		want   int64
	}{
		{"north", 30}, {"NORTH", 30}, {" North ", 30}, {"center", 10}, {"west", 20},
	}
	for _, c := range cases {
		got, err := table.FareFor(c.region)
		if err != nil {
			t.Fatalf("FareFor(%q) err=%v", c.region, err)
		}
		if got != c.want {
			t.Fatalf("FareFor(%q) got %d want %d", c.region, got, c.want)
		}
	}
}

func TestFareFor_InvalidRegion(t *testing.T) {
	table := MustTable(DefaultFares)
	for _, region := range []string{"", "mars", "north-east"} {
		if _, err := table.FareFor(region); !errors.Is(err, ErrInvalidRegion) {
			t.Fatalf("FareFor(%q) expected ErrInvalidRegion, got %v", region, err)
		}
	}
}

func TestIsValidRegion(t *testing.T) {
	table := MustTable(map[string]int64{"Harbor": 15, "hills": 0})
	if !table.IsValidRegion("harbor") || !table.IsValidRegion("HARBOR") {
		t.Fatalf("harbor should be valid in any case")
	}
	if !table.IsValidRegion("hills") {
		t.Fatalf("zero-fare region should still be valid")
	}
	if table.IsValidRegion("north") {
		t.Fatalf("north is not part of this table")
	}
}

func TestNewTable_Rejects(t *testing.T) {
	cases := []map[string]int64{
		nil,
		{"north": -1},
		{"": 10},
		{"north": 1, "NORTH": 2},
		{"far north": 5},
	}
	for _, c := range cases {
		if _, err := NewTable(c); err == nil {
			t.Fatalf("NewTable(%v) expected error", c)
		}
	}
}

func TestRegions_Sorted(t *testing.T) {
	table := MustTable(DefaultFares)
	got := table.Regions()
	want := []string{"center", "east", "north", "south", "west"}
	if len(got) != len(want) {
		t.Fatalf("Regions got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Regions got %v want %v", got, want)
		}
	}
}

func TestFares_ReturnsCopy(t *testing.T) {
	table := MustTable(DefaultFares)
	fares := table.Fares()
	fares["north"] = 0
	if got, _ := table.FareFor("north"); got != 30 {
		t.Fatalf("mutating Fares() leaked into table: north=%d", got)
	}
}
