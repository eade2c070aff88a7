package fare

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidRegion = errors.New("invalid region")

// DefaultFares is the fare table used when no configuration is supplied.
var DefaultFares = map[string]int64{
	"north":  30,
	"south":  25,
	"east":   20,
	"west":   20,
	"center": 10,
}

// Table maps each valid region to the fare charged for an uncontracted
// ride there. It is read-only after construction.
type Table struct {
	fares map[string]int64
}

// NewTable builds a table from region → fare. Region names are normalized;
// duplicates after normalization, empty names and negative fares are
// rejected.
func NewTable(fares map[string]int64) (*Table, error) {
	if len(fares) == 0 {
		return nil, fmt.Errorf("fare table is empty")
	}
	t := &Table{fares: make(map[string]int64, len(fares))}
	for region, amount := range fares {
		name := Normalize(region)
		if name == "" {
			return nil, fmt.Errorf("region name is required")
		}
		if strings.ContainsAny(name, " \t\r\n") {
			return nil, fmt.Errorf("region %q must be a single word", region)
		}
		if amount < 0 {
			return nil, fmt.Errorf("fare for %s must not be negative (got %d)", name, amount)
		}
		if _, ok := t.fares[name]; ok {
			return nil, fmt.Errorf("duplicate region %s", name)
		}
		t.fares[name] = amount
	}
	return t, nil
}

// MustTable is NewTable for static tables known to be valid.
func MustTable(fares map[string]int64) *Table {
	t, err := NewTable(fares)
	if err != nil {
		panic(err)
	}
	return t
}

// Normalize returns the canonical (lowercase, trimmed) form of a region.
func Normalize(region string) string {
	return strings.ToLower(strings.TrimSpace(region))
}

// IsValidRegion reports whether region is in the table, ignoring case.
func (t *Table) IsValidRegion(region string) bool {
	_, ok := t.fares[Normalize(region)]
	return ok
}

// FareFor returns the fare for a ride to region.
func (t *Table) FareFor(region string) (int64, error) {
	amount, ok := t.fares[Normalize(region)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRegion, region)
	}
	return amount, nil
}

// Regions returns the region names in lexical order.
func (t *Table) Regions() []string {
	out := make([]string, 0, len(t.fares))
	for name := range t.fares {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Fares returns a copy of the region → fare mapping.
func (t *Table) Fares() map[string]int64 {
	out := make(map[string]int64, len(t.fares))
	for name, amount := range t.fares {
		out[name] = amount
	}
	return out
}
