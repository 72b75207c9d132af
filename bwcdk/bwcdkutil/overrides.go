package bwcdkutil

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/iancoleman/strcase"
)

// OverrideWarningID identifies override warnings so they can be acknowledged with
// awscdk.Annotations_Of(scope).AcknowledgeWarning.
const OverrideWarningID = "@bwsc/core:propsOverride"

// properties that are never reported, they are replaced wholesale by design of the props.
var ignoredOverridePaths = []string{"lifecycleRules", "node", "bind"}

// Override describes a user provided value that replaced a construct default.
type Override struct {
	Path         string
	DefaultValue string
	UserValue    string
}

// Message formats the override the way it is reported in synth output.
func (o Override) Message() string {
	msg := fmt.Sprintf("An override has been provided for the property: %s.", o.Path)
	if readable(o.DefaultValue) && readable(o.UserValue) {
		msg += fmt.Sprintf(" Default value: '%s'. You provided: '%s'.", o.DefaultValue, o.UserValue)
	}
	return msg
}

// FlagOverriddenDefaults reports a warning on scope for every value that is set both
// in defaults and in user with a different value.
func FlagOverriddenDefaults[T any](scope constructs.Construct, defaults, user *T) {
	for _, o := range FindOverrides(defaults, user) {
		awscdk.Annotations_Of(scope).AddWarningV2(jsii.String(OverrideWarningID), jsii.String(o.Message()))
	}
}

// FindOverrides walks defaults and user in parallel and returns every edited value.
// Values only present in user are additions, not overrides, and are not returned.
func FindOverrides[T any](defaults, user *T) []Override {
	if defaults == nil || user == nil {
		return nil
	}

	var found []Override
	walkOverrides("", reflect.ValueOf(defaults).Elem(), reflect.ValueOf(user).Elem(), &found)
	return found
}

func walkOverrides(path string, def, usr reflect.Value, found *[]Override) {
	for _, ignored := range ignoredOverridePaths {
		if slices.Contains(strings.Split(path, "."), ignored) {
			return
		}
	}

	if isEmptyProp(def) || isEmptyProp(usr) {
		return
	}

	switch def.Kind() {
	case reflect.Ptr:
		walkOverrides(path, def.Elem(), usr.Elem(), found)
	case reflect.Struct:
		for i := range def.NumField() {
			field := def.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			walkOverrides(joinPath(path, strcase.ToLowerCamel(field.Name)), def.Field(i), usr.Field(i), found)
		}
	case reflect.Map:
		iter := def.MapRange()
		for iter.Next() {
			uv := usr.MapIndex(iter.Key())
			if !uv.IsValid() {
				continue
			}
			walkOverrides(joinPath(path, fmt.Sprint(iter.Key().Interface())), iter.Value(), uv, found)
		}
	case reflect.Slice:
		n := min(def.Len(), usr.Len())
		for i := range n {
			walkOverrides(joinPath(path, strconv.Itoa(i)), def.Index(i), usr.Index(i), found)
		}
	case reflect.Interface:
		// constructs and tokens compare by identity
		d, u := def.Elem(), usr.Elem()
		if d.Type() != u.Type() || (d.Comparable() && !d.Equal(u)) {
			*found = append(*found, Override{Path: path})
		}
	default:
		if def.Interface() != usr.Interface() {
			*found = append(*found, Override{
				Path:         path,
				DefaultValue: fmt.Sprint(def.Interface()),
				UserValue:    fmt.Sprint(usr.Interface()),
			})
		}
	}
}

func isEmptyProp(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	case reflect.String:
		return v.Len() == 0
	default:
		return false
	}
}

func joinPath(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}

// readable reports whether a value can be printed meaningfully, unresolved tokens cannot.
func readable(s string) bool {
	return s != "" && !strings.Contains(s, "${Token[")
}
