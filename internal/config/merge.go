package config

// Merge deep-merges incoming into current and returns the result.
// Neither input is mutated.
//
// For each key of incoming: mappings on both sides merge recursively;
// an incoming mapping over a missing or scalar current value is copied
// wholesale; an incoming scalar fills a missing key; and an incoming
// scalar over an existing current scalar is discarded. The guarantee
// that matters to users: every scalar already present in current is
// unchanged in the result.
//
// Merging is idempotent: after one merge every key of incoming exists
// in the result, so merging incoming again changes nothing.
func Merge(current, incoming *Tree) *Tree {
	if current == nil {
		return incoming.Clone()
	}
	if incoming == nil {
		return current.Clone()
	}

	result := current.Clone()

	for _, key := range incoming.Keys() {
		inVal, _ := incoming.Get(key)
		curVal, exists := result.Get(key)

		switch {
		case inVal.IsMapping() && exists && curVal.IsMapping():
			result.Set(key, MapValue(Merge(curVal.Map, inVal.Map)))
		case inVal.IsMapping():
			// Current has no mapping here: take the incoming subtree
			// wholesale.
			result.Set(key, inVal.clone())
		case !exists:
			result.Set(key, inVal.clone())
		default:
			// Key exists in current as a scalar: the user's value wins.
		}
	}

	return result
}
