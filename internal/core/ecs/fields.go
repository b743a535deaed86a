package ecs

import (
	"fmt"
	"math"
)

// FieldKind is the semantic type of a component field as seen by tooling.
type FieldKind uint8

const (
	KindInt FieldKind = iota
	KindFloat
	KindBool
	KindString
	KindVec2
)

func (k FieldKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindVec2:
		return "vec2"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Field describes one editable field of a component. Get and Set receive a
// pointer to the component (as returned by ComponentType.New or World.GetAny).
// Set coerces loosely typed input such as decoded JSON or YAML numbers.
type Field struct {
	Name string
	Kind FieldKind
	Get  func(ptr any) any
	Set  func(ptr any, v any) error
}

func IntField[T any](name string, at func(*T) *int) Field {
	return Field{
		Name: name,
		Kind: KindInt,
		Get:  func(ptr any) any { return *at(ptr.(*T)) },
		Set: func(ptr any, v any) error {
			n, err := toInt(v)
			if err != nil {
				return err
			}
			*at(ptr.(*T)) = n
			return nil
		},
	}
}

func FloatField[T any](name string, at func(*T) *float64) Field {
	return Field{
		Name: name,
		Kind: KindFloat,
		Get:  func(ptr any) any { return *at(ptr.(*T)) },
		Set: func(ptr any, v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			*at(ptr.(*T)) = f
			return nil
		},
	}
}

func BoolField[T any](name string, at func(*T) *bool) Field {
	return Field{
		Name: name,
		Kind: KindBool,
		Get:  func(ptr any) any { return *at(ptr.(*T)) },
		Set: func(ptr any, v any) error {
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("want bool, got %T: %w", v, ErrTypeMismatch)
			}
			*at(ptr.(*T)) = b
			return nil
		},
	}
}

func StringField[T any](name string, at func(*T) *string) Field {
	return Field{
		Name: name,
		Kind: KindString,
		Get:  func(ptr any) any { return *at(ptr.(*T)) },
		Set: func(ptr any, v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("want string, got %T: %w", v, ErrTypeMismatch)
			}
			*at(ptr.(*T)) = s
			return nil
		},
	}
}

// TextField exposes a non-string field through its text form, for values
// such as identifiers that parse from and format to strings.
func TextField[T any](name string, get func(*T) string, set func(*T, string) error) Field {
	return Field{
		Name: name,
		Kind: KindString,
		Get:  func(ptr any) any { return get(ptr.(*T)) },
		Set: func(ptr any, v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("want string, got %T: %w", v, ErrTypeMismatch)
			}
			return set(ptr.(*T), s)
		},
	}
}

// Vec2Field exposes two float64 slots as a [2]float64. Set accepts a
// [2]float64, a two element list, or a map with "x" and "y" keys.
func Vec2Field[T any](name string, at func(*T) (x, y *float64)) Field {
	return Field{
		Name: name,
		Kind: KindVec2,
		Get: func(ptr any) any {
			x, y := at(ptr.(*T))
			return [2]float64{*x, *y}
		},
		Set: func(ptr any, v any) error {
			vx, vy, err := toVec2(v)
			if err != nil {
				return err
			}
			x, y := at(ptr.(*T))
			*x, *y = vx, vy
			return nil
		},
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("want number, got %T: %w", v, ErrTypeMismatch)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("want integer, got %v: %w", f, ErrTypeMismatch)
	}
	return int(f), nil
}

func toVec2(v any) (float64, float64, error) {
	switch t := v.(type) {
	case [2]float64:
		return t[0], t[1], nil
	case []float64:
		if len(t) == 2 {
			return t[0], t[1], nil
		}
	case []any:
		if len(t) == 2 {
			x, err := toFloat(t[0])
			if err != nil {
				return 0, 0, err
			}
			y, err := toFloat(t[1])
			if err != nil {
				return 0, 0, err
			}
			return x, y, nil
		}
	case map[string]any:
		x, err := toFloat(t["x"])
		if err != nil {
			return 0, 0, err
		}
		y, err := toFloat(t["y"])
		if err != nil {
			return 0, 0, err
		}
		return x, y, nil
	}
	return 0, 0, fmt.Errorf("want vec2, got %T: %w", v, ErrTypeMismatch)
}
