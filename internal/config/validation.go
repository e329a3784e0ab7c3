package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError is a single invalid setting
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors collects all validation errors
type ValidationErrors struct {
	Fields []FieldError
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationErrors) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Error formats all validation errors into a clear message
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, f := range e.Fields {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", f.Field, f.Message))
	}
	return sb.String()
}

// Validate checks field constraints, then the cross-field rules tags
// cannot express.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs.add(fieldPath(fe.Namespace()), "failed %q (value %v)", tagWithParam(fe), fe.Value())
		}
	}

	if !contains(ValidSources, c.Quotes.Source) {
		errs.add("quotes.source", "%q is not one of %s", c.Quotes.Source, strings.Join(ValidSources, ", "))
	}
	switch c.Quotes.Source {
	case SourceTwelveData:
		if c.Providers.TwelveData.APIKey == "" {
			errs.add("providers.twelvedata.api_key", "required (set TWELVEDATA_API_KEY)")
		}
	case SourcePolygon:
		if c.Providers.Polygon.APIKey == "" {
			errs.add("providers.polygon.api_key", "required (set POLYGON_API_KEY)")
		}
	case SourceFile:
		if c.Providers.File.Directory == "" {
			errs.add("providers.file.directory", "required for the file source")
		}
	}

	if c.Options.Enabled && c.Quotes.Source != SourceFile && c.Providers.Polygon.APIKey == "" {
		errs.add("providers.polygon.api_key", "required when options are enabled (or set options.enabled=false)")
	}
	if !contains(ValidMetrics, c.Options.Metric) {
		errs.add("options.metric", "%q is not one of %s", c.Options.Metric, strings.Join(ValidMetrics, ", "))
	}
	if !contains(ValidVWAPModes, c.Analysis.VWAPMode) {
		errs.add("analysis.vwap_mode", "%q is not one of %s", c.Analysis.VWAPMode, strings.Join(ValidVWAPModes, ", "))
	}
	if !contains(ValidSessionModes, c.Analysis.SessionMode) {
		errs.add("analysis.session_mode", "%q is not one of %s", c.Analysis.SessionMode, strings.Join(ValidSessionModes, ", "))
	}
	if c.Analysis.Timezone != "" {
		if _, err := time.LoadLocation(c.Analysis.Timezone); err != nil {
			errs.add("analysis.timezone", "%v", err)
		}
	}
	if c.Notify.Enabled && c.Notify.Topic == "" {
		errs.add("notify.topic", "required when notify is enabled")
	}
	if c.Logging.Level != "" && !contains(ValidLogLevels, c.Logging.Level) {
		errs.add("logging.level", "%q is not one of %s", c.Logging.Level, strings.Join(ValidLogLevels, ", "))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// fieldPath turns "Config.Analysis.SlopeWindow" into "Analysis.SlopeWindow"
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagWithParam(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
