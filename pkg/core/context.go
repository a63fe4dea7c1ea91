package core

// Context values survive a JSON round-trip through the persistence layer,
// so numbers come back as float64 and nested records as
// map[string]interface{}. These helpers give the domain wrappers one way
// to read structured fields back out without repeating type switches.

// ContextValue walks a key path through nested context maps.
//
// Returns the value at the path and whether every step resolved.
func ContextValue(context map[string]interface{}, path ...string) (interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}
	current := context
	for i, key := range path {
		value, ok := current[key]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return value, true
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// ContextString reads a string at a key path through nested context maps.
func ContextString(context map[string]interface{}, path ...string) (string, bool) {
	value, ok := ContextValue(context, path...)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// ContextFloat reads a number at a key path through nested context maps.
//
// Accepts float64 (the JSON decode type) and int (values set in-process).
func ContextFloat(context map[string]interface{}, path ...string) (float64, bool) {
	value, ok := ContextValue(context, path...)
	if !ok {
		return 0, false
	}
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
