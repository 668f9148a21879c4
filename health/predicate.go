package health

import "slices"

// Predicate selects registrations for an evaluation.
type Predicate func(Registration) bool

// ByTags selects registrations carrying any of tags. With no tags it
// selects everything.
func ByTags(tags ...string) Predicate {
	return func(r Registration) bool {
		if len(tags) == 0 {
			return true
		}
		return slices.ContainsFunc(tags, r.HasTag)
	}
}

// ByNames selects registrations by name.
func ByNames(names ...string) Predicate {
	return func(r Registration) bool {
		return slices.Contains(names, r.Name)
	}
}

// ExcludeTags selects registrations carrying none of tags.
func ExcludeTags(tags ...string) Predicate {
	return func(r Registration) bool {
		return !slices.ContainsFunc(tags, r.HasTag)
	}
}

// All selects registrations matched by every predicate.
func All(preds ...Predicate) Predicate {
	return func(r Registration) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}
