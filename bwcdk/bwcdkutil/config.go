package bwcdkutil

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Qualifier returns the CDK qualifier.
// Retrieves Config from the construct tree.
func Qualifier(scope constructs.Construct) string {
	return ConfigFromScope(scope).Qualifier
}

// PrimaryRegion returns the primary region.
// Retrieves Config from the construct tree.
func PrimaryRegion(scope constructs.Construct) string {
	return ConfigFromScope(scope).PrimaryRegion
}

// Config holds all CDK context values validated upfront.
// It centralizes context reading and validation to provide clear error messages.
type Config struct {
	Prefix        string   `validate:"required"`
	Qualifier     string   `validate:"required,max=10"`
	PrimaryRegion string   `validate:"required"`
	Deployments   []string `validate:"required,dive,required,startsupper"`

	// OverrideWarnings controls the synth-time warnings emitted when user props
	// replace construct defaults. Nil means: fall back to the process environment.
	OverrideWarnings *bool
}

// NewConfig reads and validates all CDK context values.
// Returns an error if any required value is missing or invalid.
func NewConfig(scope constructs.Construct, acfg AppConfig) (*Config, error) {
	var readErrs []string

	cfg := &Config{
		Prefix: acfg.Prefix,
	}

	cfg.Qualifier, readErrs = readContextString(scope, acfg.Prefix+"qualifier", readErrs)
	cfg.PrimaryRegion, readErrs = readContextString(scope, acfg.Prefix+"primary-region", readErrs)
	cfg.Deployments, readErrs = readContextStringSlice(scope, acfg.Prefix+"deployments", readErrs)
	cfg.OverrideWarnings, readErrs = readOptionalContextBool(scope, acfg.Prefix+"override-warnings", readErrs)

	if len(readErrs) > 0 {
		return nil, errors.Errorf("CDK context read errors:\n  - %s", strings.Join(readErrs, "\n  - "))
	}

	if err := newValidator().Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			msgs := make([]string, 0, len(validationErrs))
			for _, e := range validationErrs {
				msgs = append(msgs, formatValidationError(e))
			}
			return nil, errors.Errorf("CDK context validation errors:\n  - %s", strings.Join(msgs, "\n  - "))
		}
		return nil, errors.Wrap(err, "CDK context validation failed")
	}

	return cfg, nil
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("startsupper", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && strings.ToUpper(s[:1]) == s[:1]
	}); err != nil {
		panic(err)
	}
	return validate
}

// configContextKey is the well-known key used to store validated Config in the construct tree.
const configContextKey = "__bwcdkutil_config"

// StoreConfig stores a validated Config in the app's context so it can be retrieved
// anywhere in the construct tree via ConfigFromScope.
func StoreConfig(app awscdk.App, cfg *Config) {
	app.Node().SetContext(jsii.String(configContextKey), cfg)
}

// ConfigFromScope retrieves the validated Config from the construct tree.
// It panics if Config was not stored (i.e., SetupApp was not called).
func ConfigFromScope(scope constructs.Construct) *Config {
	cfg := TryConfigFromScope(scope)
	if cfg == nil {
		panic("bwcdkutil.Config not found in construct tree - was SetupApp or StoreConfig called?")
	}
	return cfg
}

// TryConfigFromScope is like ConfigFromScope but returns nil when no Config is stored.
// Constructs use it so they work in plain stacks that were not created by SetupApp.
func TryConfigFromScope(scope constructs.Construct) *Config {
	val := scope.Node().TryGetContext(jsii.String(configContextKey))
	if val == nil {
		return nil
	}
	cfg, ok := val.(*Config)
	if !ok {
		panic(fmt.Sprintf("bwcdkutil.Config has unexpected type %T", val))
	}
	return cfg
}

// processEnv holds settings read from the process environment of the synth.
type processEnv struct {
	OverrideWarningsEnabled bool `env:"overrideWarningsEnabled" envDefault:"true"`
}

func readProcessEnv() processEnv {
	penv, err := env.ParseAs[processEnv]()
	if err != nil {
		// anything that is not a parseable "false" keeps the warnings on
		return processEnv{OverrideWarningsEnabled: true}
	}
	return penv
}

// OverrideWarningsEnabled reports whether overridden defaults should be reported for
// constructs in the given scope. Context configuration wins over the environment.
func OverrideWarningsEnabled(scope constructs.Construct) bool {
	if cfg := TryConfigFromScope(scope); cfg != nil && cfg.OverrideWarnings != nil {
		return *cfg.OverrideWarnings
	}
	return readProcessEnv().OverrideWarningsEnabled
}

// FeatureFlagEnabled reads a boolean feature flag from the CDK context. Flags may be
// set as JSON booleans or as the strings "true" and "false" (the --context CLI form).
func FeatureFlagEnabled(scope constructs.Construct, flag string) bool {
	switch val := scope.Node().TryGetContext(jsii.String(flag)).(type) {
	case bool:
		return val
	case string:
		return val == "true"
	default:
		return false
	}
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s (got %q)", e.Field(), e.Param(), e.Value())
	case "startsupper":
		return fmt.Sprintf("%s must start with an upper-case letter (got %q)", e.Field(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation %q", e.Field(), e.Tag())
	}
}

func readContextString(scope constructs.Construct, key string, errs []string) (string, []string) {
	val := scope.Node().TryGetContext(jsii.String(key))
	if val == nil {
		return "", append(errs, fmt.Sprintf("context key %q is not set", key))
	}
	s, ok := val.(string)
	if !ok {
		return "", append(errs, fmt.Sprintf("context key %q must be a string, got %T", key, val))
	}
	return s, errs
}

func readContextStringSlice(scope constructs.Construct, key string, errs []string) ([]string, []string) {
	val := scope.Node().TryGetContext(jsii.String(key))
	if val == nil {
		return nil, append(errs, fmt.Sprintf("context key %q is not set", key))
	}

	slice, ok := val.([]any)
	if !ok {
		return nil, append(errs, fmt.Sprintf("context key %q must be an array, got %T", key, val))
	}

	result := make([]string, 0, len(slice))
	for i, v := range slice {
		s, ok := v.(string)
		if !ok {
			return nil, append(errs, fmt.Sprintf("context key %q[%d] must be a string, got %T", key, i, v))
		}
		result = append(result, s)
	}
	return result, errs
}

func readOptionalContextBool(scope constructs.Construct, key string, errs []string) (*bool, []string) {
	val := scope.Node().TryGetContext(jsii.String(key))
	switch val := val.(type) {
	case nil:
		return nil, errs
	case bool:
		return &val, errs
	case string:
		if val == "true" || val == "false" {
			b := val == "true"
			return &b, errs
		}
	}
	return nil, append(errs, fmt.Sprintf("context key %q must be a boolean, got %v", key, val))
}
