package field

import "fmt"

// Direction orders a sort or index key.
// Values match the document-store convention: 1 ascending, -1 descending.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// String returns "asc" or "desc".
func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Valid reports whether d is Ascending or Descending.
func (d Direction) Valid() bool {
	return d == Ascending || d == Descending
}

// ParseDirection accepts "asc", "ascending", "1", "desc", "descending", "-1".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "asc", "ascending", "1", "":
		return Ascending, nil
	case "desc", "descending", "-1":
		return Descending, nil
	default:
		return 0, fmt.Errorf("invalid direction %q: must be asc or desc", s)
	}
}

// SortKey pairs a field with a direction. SortSpec and IndexSpec are both
// ordered sequences of SortKey; the first entry is the primary key.
type SortKey struct {
	Field     Path
	Direction Direction
}

// Asc builds an ascending key for a path known to be valid.
func Asc(p string) SortKey {
	return SortKey{Field: MustParse(p), Direction: Ascending}
}

// Desc builds a descending key for a path known to be valid.
func Desc(p string) SortKey {
	return SortKey{Field: MustParse(p), Direction: Descending}
}
