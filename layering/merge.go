// Package layering implements the deep-extend merge used to compose
// configuration trees from layered sources, plus reflective deep copies for
// typed snapshots.
package layering

import "reflect"

// ExtendOption configures an Extender.
type ExtendOption func(*Extender)

// WithSliceReplace makes slices from later sources replace earlier slices
// wholesale instead of merging them index by index.
func WithSliceReplace() ExtendOption {
	return func(e *Extender) {
		e.replaceSlices = true
	}
}

// Extender performs recursive extends over nested maps.
type Extender struct {
	replaceSlices bool
}

// NewExtender constructs an Extender with the supplied options.
func NewExtender(opts ...ExtendOption) Extender {
	e := Extender{}
	for _, opt := range opts {
		if opt != nil {
			opt(&e)
		}
	}
	return e
}

// DeepExtend merges sources ordered from weakest to strongest into a fresh
// map. It follows the classic recursive "extend" contract:
//   - later sources override earlier ones key by key, recursing into maps;
//   - a nil value never overrides an existing value, but the key is kept;
//   - slices merge index by index, the longer slice keeping its tail;
//   - sources are never mutated.
func DeepExtend(sources ...map[string]any) map[string]any {
	return NewExtender().Extend(sources...)
}

// MergeLayers composes layers ordered from strongest to weakest. It is the
// mirror image of DeepExtend and matches the ordering used by scope stacks.
func MergeLayers(layers ...map[string]any) map[string]any {
	reversed := make([]map[string]any, len(layers))
	for i, layer := range layers {
		reversed[len(layers)-1-i] = layer
	}
	return DeepExtend(reversed...)
}

// Extend merges sources ordered from weakest to strongest into a fresh map.
func (e Extender) Extend(sources ...map[string]any) map[string]any {
	result := map[string]any{}
	for _, source := range sources {
		if source == nil {
			continue
		}
		normalized, _ := Normalize(source).(map[string]any)
		e.extendMap(result, normalized)
	}
	return result
}

func (e Extender) extendMap(dst, src map[string]any) {
	for key, value := range src {
		if value == nil {
			if _, exists := dst[key]; !exists {
				dst[key] = nil
			}
			continue
		}
		dst[key] = e.extendValue(dst[key], value)
	}
}

func (e Extender) extendValue(existing, value any) any {
	switch typed := value.(type) {
	case map[string]any:
		target, ok := existing.(map[string]any)
		if !ok {
			target = map[string]any{}
		}
		e.extendMap(target, typed)
		return target
	case []any:
		if e.replaceSlices {
			return typed
		}
		target, _ := existing.([]any)
		return e.extendSlice(target, typed)
	default:
		return value
	}
}

func (e Extender) extendSlice(dst, src []any) []any {
	size := len(dst)
	if len(src) > size {
		size = len(src)
	}
	out := make([]any, size)
	copy(out, dst)
	for i, value := range src {
		if value == nil {
			continue
		}
		out[i] = e.extendValue(out[i], value)
	}
	return out
}

// Normalize returns a deep copy of value where every map keyed by strings
// becomes map[string]any and every slice or array (except []byte) becomes
// []any. Scalars are returned as is.
func Normalize(value any) any {
	if value == nil {
		return nil
	}
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Normalize(item)
		}
		return out
	case []byte:
		return append([]byte(nil), typed...)
	case string, bool, int, int64, float64:
		return value
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Clone(value)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	default:
		return value
	}
}

// Clone returns a deep copy of value. Unexported struct fields are copied
// shallowly.
func Clone[T any](value T) T {
	var zero T
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		return zero
	}
	if out, ok := cloned.Interface().(T); ok {
		return out
	}
	return zero
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(elem)
		return out
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
