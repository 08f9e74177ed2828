package queryir

// Compose combines conditions into a predicate tree.
//
// Every condition is normalized first; the first invalid one aborts
// composition with a ValidationError.
//
// Conditions on the top-level priority field are extracted and ANDed onto
// the result after the remaining conditions have been combined with multi.
// Priority therefore acts as a global gate regardless of the logical mode:
//
//	Compose([prio<1, A, B], OR)  =>  And{Or{A, B}, prio<1}
//
// An empty list yields a nil Predicate (match everything).
func Compose(conds []Condition, multi Multi) (Predicate, error) {
	mode, err := ParseMulti(string(multi))
	if err != nil {
		return nil, err
	}

	var rest, gates []Predicate
	for _, c := range conds {
		n, err := c.Normalize()
		if err != nil {
			return nil, err
		}
		if n.Key.IsPriority() {
			gates = append(gates, Match{Condition: n})
			continue
		}
		rest = append(rest, Match{Condition: n})
	}

	combined := combine(rest, mode)
	if len(gates) == 0 {
		return combined, nil
	}
	if combined == nil {
		return combine(gates, MultiAnd), nil
	}
	return And{Predicates: append([]Predicate{combined}, gates...)}, nil
}

// Single composes one condition.
func Single(c Condition) (Predicate, error) {
	return Compose([]Condition{c}, MultiAnd)
}

func combine(preds []Predicate, mode Multi) Predicate {
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	}
	if mode == MultiOr {
		return Or{Predicates: preds}
	}
	return And{Predicates: preds}
}
