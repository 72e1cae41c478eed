package descriptor

// Cardinality constrains how many plugins may bind to a socket interface.
// The graph builder enforces it when assembling the tree; the dispatcher
// relies on it to know whether a fan-out result folds into a single value,
// an optional value, or a sequence.
type Cardinality string

const (
	// ExactlyOne requires precisely one bound plug. Unsatisfied (zero or
	// more than one candidate after degradation) is reported as a build
	// error and the interface is degraded out of the tree.
	ExactlyOne Cardinality = "exactly_one"
	// AtMostOne allows zero or one bound plug; zero is satisfied (the
	// socket resolves to the option's none case).
	AtMostOne Cardinality = "at_most_one"
	// AtLeastOne requires one or more bound plugs.
	AtLeastOne Cardinality = "at_least_one"
	// Any allows any number of bound plugs, including zero.
	Any Cardinality = "any"
)

// Satisfied reports whether count bound plugs meet this cardinality.
func (c Cardinality) Satisfied(count int) bool {
	switch c {
	case ExactlyOne:
		return count == 1
	case AtMostOne:
		return count <= 1
	case AtLeastOne:
		return count >= 1
	case Any:
		return true
	default:
		return false
	}
}

// ReturnKind classifies whether a function's return value can carry
// resource handles, which determines whether the shim needs to walk the
// return value for handle translation after the call.
type ReturnKind string

const (
	// NoResources means the return value, however nested, contains no
	// own/borrow handles; the shim can pass it through unexamined.
	NoResources ReturnKind = "no_resources"
	// MayContainResources means the shim must walk the return value with
	// wireformat.Walk to translate any handles it carries.
	MayContainResources ReturnKind = "may_contain_resources"
)
