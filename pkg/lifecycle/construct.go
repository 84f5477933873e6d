// SPDX-License-Identifier: AGPL-3.0-only

package lifecycle

// Every construction path builds the value in a local and stores it into *p
// only once the element constructor has succeeded, so a failed construction
// leaves *p exactly as it was.

// Construct default-constructs a value at p: the zero value, followed by
// Init when *T implements Initializer.
func Construct[T any](p *T) error {
	var v T
	if in, ok := any(&v).(Initializer); ok {
		if err := in.Init(); err != nil {
			return err
		}
	}
	*p = v
	return nil
}

// ConstructCopy constructs a copy of *src at p. Types implementing Copier
// control how the copy is made; everything else is copied by assignment.
func ConstructCopy[T any](p, src *T) error {
	var v T
	if c, ok := any(&v).(Copier[T]); ok {
		if err := c.CopyFrom(src); err != nil {
			return err
		}
	} else {
		v = *src
	}
	*p = v
	return nil
}

// ConstructMove constructs a value at p by consuming *src. Types implementing
// Mover decide what src looks like afterwards; for everything else src is
// reset to its zero value so it no longer refers to anything the new value
// owns.
func ConstructMove[T any](p, src *T) {
	var v T
	if m, ok := any(&v).(Mover[T]); ok {
		m.MoveFrom(src)
		*p = v
		return
	}

	*p = *src
	var zero T
	*src = zero
}

// Emplace constructs the value returned by ctor at p. The constructor
// arguments are whatever ctor captures, so values the caller no longer needs
// can be handed over without an extra copy.
func Emplace[T any](p *T, ctor func() (T, error)) error {
	v, err := ctor()
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Emplace1 forwards a to ctor and constructs the result at p. Pass a pointer
// as A to forward a reference instead of a value.
func Emplace1[T, A any](p *T, ctor func(A) (T, error), a A) error {
	v, err := ctor(a)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Emplace2 is Emplace1 for two-argument constructors.
func Emplace2[T, A, B any](p *T, ctor func(A, B) (T, error), a A, b B) error {
	v, err := ctor(a, b)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Emplace3 is Emplace1 for three-argument constructors.
func Emplace3[T, A, B, C any](p *T, ctor func(A, B, C) (T, error), a A, b B, c C) error {
	v, err := ctor(a, b, c)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
