package value

import "strings"

// In implements `x in Y`: sequence/mapping membership or substring
// containment, returning x on success and None otherwise.
func In(x, y Value) Value {
	switch c := y.(type) {
	case *Array:
		for _, e := range c.Elems {
			if e.Equal(x) {
				return x
			}
		}
	case *Table:
		if s, ok := x.(String); ok {
			if _, present := c.Get(string(s)); present {
				return x
			}
		}
	case String:
		if s, ok := x.(String); ok {
			if strings.Contains(string(c), string(s)) {
				return x
			}
		}
	}
	return Nothing
}

// At implements `x at Y`: the index/key where x is found, else None.
func At(x, y Value) Value {
	switch c := y.(type) {
	case *Array:
		for i, e := range c.Elems {
			if e.Equal(x) {
				return Int(int64(i))
			}
		}
	case *Table:
		if s, ok := x.(String); ok {
			if _, present := c.Get(string(s)); present {
				return s
			}
		}
	}
	return Nothing
}

// From implements `x from Y`: the value at index/key x, else None.
func From(x, y Value) Value {
	switch c := y.(type) {
	case *Array:
		n, ok := x.(Number)
		if !ok {
			return Nothing
		}
		i := n.Int64()
		if i < 0 || int(i) >= len(c.Elems) {
			return Nothing
		}
		return c.Elems[i]
	case *Table:
		s, ok := x.(String)
		if !ok {
			return Nothing
		}
		v, present := c.Get(string(s))
		if !present {
			return Nothing
		}
		return v
	}
	return Nothing
}

// DotStep resolves one link of a dot-chain: a numeric segment indexes a
// sequence, a name segment keys a mapping. Missing keys yield (None, true) —
// not-found is not an error beyond the first segment.
func DotStep(cur Value, name string, index int, hasIndex bool) (Value, bool) {
	switch c := cur.(type) {
	case *Array:
		if !hasIndex {
			return Nothing, true
		}
		if index < 0 || index >= len(c.Elems) {
			return Nothing, true
		}
		return c.Elems[index], true
	case *Table:
		if hasIndex {
			return Nothing, true
		}
		v, present := c.Get(name)
		if !present {
			return Nothing, true
		}
		return v, true
	case *Callable:
		// a callable terminates the chain; no further dot access through it.
		return c, false
	default:
		return Nothing, true
	}
}

// Len reports the container length used for __LENGTH__ in foreach headers.
func Len(v Value) int {
	switch c := v.(type) {
	case *Array:
		return len(c.Elems)
	case *Table:
		return c.Len()
	case String:
		return len(c)
	default:
		return 0
	}
}
