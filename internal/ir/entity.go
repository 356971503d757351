package ir

import "fmt"

// EntityType selects which collection of the library a rule, a query or a
// fetch targets. The set is closed.
type EntityType int

const (
	// Album is the default entity type of a rule.
	Album EntityType = iota
	// Item is a single track.
	Item
)

// EntityTypes lists every entity type in declaration order.
var EntityTypes = []EntityType{Album, Item}

func (e EntityType) String() string {
	switch e {
	case Album:
		return "album"
	case Item:
		return "item"
	default:
		return fmt.Sprintf("EntityType(%d)", int(e))
	}
}

// Valid reports whether e is one of the declared entity types.
func (e EntityType) Valid() bool {
	return e == Album || e == Item
}

// ParseEntityType maps "album" and "item" to their EntityType.
func ParseEntityType(s string) (EntityType, error) {
	switch s {
	case "album":
		return Album, nil
	case "item":
		return Item, nil
	default:
		return 0, fmt.Errorf("unknown entity type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e EntityType) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid entity type %d", int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EntityType) UnmarshalText(text []byte) error {
	parsed, err := ParseEntityType(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
