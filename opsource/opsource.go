package opsource

import (
	"fmt"
	"reflect"
)

// Method identifies a method by its receiver type and name. The receiver may
// be an interface type or a concrete type; two Method values are equal when
// both components are equal, so the same logical method compares equal no
// matter which call site produced the value.
type Method struct {
	Recv reflect.Type
	Name string
}

// MethodOf builds the Method identity for a method declared on T. T may be
// an interface; declare it as MethodOf[MyIface]("Save").
func MethodOf[T any](name string) Method {
	return Method{Recv: reflect.TypeOf((*T)(nil)).Elem(), Name: name}
}

// String renders the identity as Type.Name for logs and error messages.
func (m Method) String() string {
	if m.Recv == nil {
		return m.Name
	}
	return fmt.Sprintf("%s.%s", m.Recv.String(), m.Name)
}

// Finder is the single-method lookup a Source delegates to. Implementations
// report whether an operation is declared for exactly the given method and
// target type; the fallback walk across override and declared methods is the
// Source's job, not the Finder's.
type Finder[O any] interface {
	FindOperation(m Method, target reflect.Type) (O, bool, error)
}

// FinderFunc adapts a function to the Finder interface.
type FinderFunc[O any] func(m Method, target reflect.Type) (O, bool, error)

// FindOperation implements Finder.
func (f FinderFunc[O]) FindOperation(m Method, target reflect.Type) (O, bool, error) {
	return f(m, target)
}
