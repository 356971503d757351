package ir

// FieldKind is the storage kind of a fixed field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindPath
)

func (k FieldKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindPath:
		return "path"
	default:
		return "string"
	}
}

// FieldDef describes one fixed field of an entity type.
type FieldDef struct {
	Name string
	Kind FieldKind
}

// PathField is the name of the fast path field on items, and of the flexible
// attribute that stands in for it on albums.
const PathField = "path"

// albumFields and itemFields are ordered: the order is the column order of
// the library tables.
var albumFields = []FieldDef{
	{"id", KindInt},
	{"albumartist", KindString},
	{"album", KindString},
	{"genre", KindString},
	{"year", KindInt},
	{"label", KindString},
	{"comp", KindInt},
}

var itemFields = []FieldDef{
	{"id", KindInt},
	{"album_id", KindInt},
	{"path", KindPath},
	{"title", KindString},
	{"artist", KindString},
	{"albumartist", KindString},
	{"album", KindString},
	{"genre", KindString},
	{"year", KindInt},
	{"track", KindInt},
	{"bitrate", KindInt},
	{"length", KindInt},
}

var searchFields = map[EntityType][]string{
	Album: {"album", "albumartist", "genre"},
	Item:  {"artist", "title", "album", "albumartist", "genre"},
}

// Fields returns the fixed fields of an entity type in column order.
func Fields(e EntityType) []FieldDef {
	switch e {
	case Item:
		return itemFields
	default:
		return albumFields
	}
}

// LookupField returns the fixed field definition for name, if any.
func LookupField(e EntityType, name string) (FieldDef, bool) {
	for _, f := range Fields(e) {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// IsFixed reports whether name is a fixed field of e.
func IsFixed(e EntityType, name string) bool {
	_, ok := LookupField(e, name)
	return ok
}

// HasFastPath reports whether e stores paths in a fixed, indexed column.
func HasFastPath(e EntityType) bool {
	f, ok := LookupField(e, PathField)
	return ok && f.Kind == KindPath
}

// SearchFields returns the fields a bare query term is matched against.
func SearchFields(e EntityType) []string {
	return searchFields[e]
}
