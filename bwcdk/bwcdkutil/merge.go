package bwcdkutil

import (
	"reflect"

	"dario.cat/mergo"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/cockroachdb/errors"
)

// ConsolidateProps merges construct props in three layers: the construct's defaults,
// the props provided by the user and the props the construct requires to function.
// Later layers win. Nested structs and maps are merged, everything else (scalars,
// slices, constructs) is replaced. None of the inputs is modified.
//
// When scope is not nil and override warnings are enabled, every user provided value
// that replaces a different default value is reported as a warning on scope.
func ConsolidateProps[T any](scope constructs.Construct, defaults, user, construct *T) *T {
	result := new(T)
	for _, layer := range []*T{defaults, user, construct} {
		if layer == nil {
			continue
		}
		if err := mergeProps(result, layer); err != nil {
			panic(errors.Wrapf(err, "failed to consolidate %T", result))
		}
	}

	if scope != nil && defaults != nil && user != nil && OverrideWarningsEnabled(scope) {
		FlagOverriddenDefaults(scope, defaults, user)
	}

	return result
}

func mergeProps(dst, src any) error {
	return mergo.Merge(dst, src, mergo.WithOverride, mergo.WithTransformers(propsTransformers{}))
}

// propsTransformers changes how mergo treats pointers. By default mergo writes
// into the pointee of dst, which would modify the caller's props and cannot
// express an explicit `false` or `0`. Instead, a non-nil pointer in src replaces
// the pointer in dst, while pointers to structs and maps are merged into a copy.
type propsTransformers struct{}

func (propsTransformers) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ.Kind() != reflect.Ptr {
		return nil
	}

	return func(dst, src reflect.Value) error {
		if src.IsNil() || !dst.CanSet() {
			return nil
		}

		switch typ.Elem().Kind() {
		case reflect.Struct:
			merged := reflect.New(typ.Elem())
			merged.Elem().Set(dst.Elem())
			if err := mergeProps(merged.Interface(), src.Interface()); err != nil {
				return err
			}
			dst.Set(merged)
		case reflect.Map:
			merged := reflect.MakeMap(typ.Elem())
			for _, m := range []reflect.Value{dst.Elem(), src.Elem()} {
				iter := m.MapRange()
				for iter.Next() {
					merged.SetMapIndex(iter.Key(), iter.Value())
				}
			}
			ptr := reflect.New(typ.Elem())
			ptr.Elem().Set(merged)
			dst.Set(ptr)
		default:
			dst.Set(src)
		}

		return nil
	}
}
