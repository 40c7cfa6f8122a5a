package shape

// Category classifies a generic shape name by the converter that marshals it.
type Category int

const (
	CategoryUnknown  Category = iota // no converter known
	CategorySequence                 // list-like, converted element by element
	CategoryMapping                  // dict-like, converted as key/value pairs
	CategoryTuple                    // fixed arity, one shared converter
)

func (c Category) String() string {
	switch c {
	case CategorySequence:
		return "sequence"
	case CategoryMapping:
		return "mapping"
	case CategoryTuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// genericNames maps recognised generic annotation names to their category.
// Both builtin generics (PEP 585) and their typing aliases are accepted.
var genericNames = map[string]Category{
	"list":            CategorySequence,
	"List":            CategorySequence,
	"Sequence":        CategorySequence,
	"MutableSequence": CategorySequence,
	"Iterable":        CategorySequence,
	"Iterator":        CategorySequence,
	"Collection":      CategorySequence,
	"set":             CategorySequence,
	"Set":             CategorySequence,
	"frozenset":       CategorySequence,
	"FrozenSet":       CategorySequence,

	"dict":           CategoryMapping,
	"Dict":           CategoryMapping,
	"Mapping":        CategoryMapping,
	"MutableMapping": CategoryMapping,

	"tuple": CategoryTuple,
	"Tuple": CategoryTuple,
}

// Classify returns the category of a generic name.
func Classify(name string) (Category, bool) {
	c, ok := genericNames[name]
	return c, ok
}

// IsRecognizedGeneric reports whether name has a converter mapping.
func IsRecognizedGeneric(name string) bool {
	_, ok := genericNames[name]
	return ok
}

// Arity returns the number of type arguments a category expects,
// or -1 when any positive number is accepted.
func (c Category) Arity() int {
	switch c {
	case CategorySequence:
		return 1
	case CategoryMapping:
		return 2
	default:
		return -1
	}
}
