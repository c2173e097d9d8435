package attr

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

var (
	errNotPointer   = errors.New("owner is not a non-nil struct pointer")
	errUnexported   = errors.New("unexported field access disabled")
	errNoParameters = errors.New("owner has no named float parameters")
	errOverflow     = errors.New("value overflows field type")
	errNilEmbedded  = errors.New("embedded struct pointer is nil")
)

// Accessor reads and writes one attribute location on an owner value.
type Accessor interface {
	// Name is the attribute name, for logs and telemetry only.
	Name() string
	Read(owner any) (float64, error)
	Write(owner any, v float64) error
}

// FloatParameters is the named-parameter capability of animation-style
// carriers.
type FloatParameters interface {
	FloatParameters() []string
	Float(name string) (float64, error)
	SetFloat(name string, v float64) error
}

type fieldAccessor struct {
	structType      reflect.Type
	field           reflect.StructField
	allowUnexported bool
}

// Field returns an Accessor for field f of struct type t. Owners must be
// pointers to t. f may be promoted from an embedded struct (multi-element
// Index, as from reflect.VisibleFields). Unexported fields are reachable
// only when allowUnexported is set.
func Field(t reflect.Type, f reflect.StructField, allowUnexported bool) Accessor {
	return &fieldAccessor{structType: t, field: f, allowUnexported: allowUnexported}
}

// FieldByName is Field for the named field of owner's struct type.
func FieldByName(owner any, name string, allowUnexported bool) (Accessor, error) {
	t := reflect.TypeOf(owner)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, errNotPointer
	}
	f, ok := t.Elem().FieldByName(name)
	if !ok {
		return nil, fmt.Errorf("no field %q on %s", name, t.Elem().Name())
	}
	return Field(t.Elem(), f, allowUnexported), nil
}

func (a *fieldAccessor) Name() string { return a.field.Name }

func (a *fieldAccessor) value(owner any) (reflect.Value, error) {
	v := reflect.ValueOf(owner)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, errNotPointer
	}
	v = v.Elem()
	if v.Type() != a.structType {
		return reflect.Value{}, fmt.Errorf("owner is %s, want %s", v.Type(), a.structType)
	}
	f := v
	for i, idx := range a.field.Index {
		if i > 0 && f.Kind() == reflect.Pointer {
			if f.IsNil() {
				return reflect.Value{}, errNilEmbedded
			}
			f = f.Elem()
		}
		f = f.Field(idx)
	}
	if f.CanSet() {
		return f, nil
	}
	if !a.allowUnexported {
		return reflect.Value{}, errUnexported
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem(), nil
}

func (a *fieldAccessor) Read(owner any) (float64, error) {
	f, err := a.value(owner)
	if err != nil {
		return 0, err
	}
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		return f.Float(), nil
	default:
		return 0, fmt.Errorf("field kind %s is not a real number", f.Kind())
	}
}

func (a *fieldAccessor) Write(owner any, v float64) error {
	f, err := a.value(owner)
	if err != nil {
		return err
	}
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
	default:
		return fmt.Errorf("field kind %s is not a real number", f.Kind())
	}
	if f.OverflowFloat(v) {
		return errOverflow
	}
	f.SetFloat(v)
	return nil
}

type paramAccessor struct {
	name string
}

// Param returns an Accessor for the named float parameter of an owner
// implementing FloatParameters.
func Param(name string) Accessor {
	return paramAccessor{name: name}
}

func (a paramAccessor) Name() string { return a.name }

func (a paramAccessor) Read(owner any) (float64, error) {
	p, ok := owner.(FloatParameters)
	if !ok {
		return 0, errNoParameters
	}
	return p.Float(a.name)
}

func (a paramAccessor) Write(owner any, v float64) error {
	p, ok := owner.(FloatParameters)
	if !ok {
		return errNoParameters
	}
	return p.SetFloat(a.name, v)
}
