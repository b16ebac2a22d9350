package contact

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

// earliestBirthday is the first selectable birthday.
var earliestBirthday = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// FieldErrors maps a field's wire name to a human-readable message.
type FieldErrors map[FieldName]string

// Has reports whether name has an error.
func (e FieldErrors) Has(name FieldName) bool {
	_, ok := e[name]
	return ok
}

// Names returns the failing fields in sorted order.
func (e FieldErrors) Names() []FieldName {
	names := make([]FieldName, 0, len(e))
	for n := range e {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Error joins all messages so FieldErrors can travel as an error.
func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, n := range e.Names() {
		parts = append(parts, fmt.Sprintf("%s: %s", n, e[n]))
	}
	return strings.Join(parts, "; ")
}

// Schema validates UpdateInput values.
type Schema struct {
	validate    *validator.Validate
	phoneRegion string
}

// SchemaOption configures a Schema.
type SchemaOption func(*Schema)

// WithPhoneRegion enables phone number checks for the phone fields, parsing
// numbers without a country prefix in the given region (e.g. "US").
// An empty region leaves phone fields as free text.
func WithPhoneRegion(region string) SchemaOption {
	return func(s *Schema) {
		s.phoneRegion = strings.ToUpper(strings.TrimSpace(region))
	}
}

// NewSchema builds a Schema with its validator configured.
func NewSchema(opts ...SchemaOption) *Schema {
	s := &Schema{validate: validator.New(validator.WithRequiredStructEnabled())}
	for _, opt := range opts {
		opt(s)
	}

	s.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = s.validate.RegisterValidation("birthday", validBirthday)
	_ = s.validate.RegisterValidation("phone", s.validPhone)
	return s
}

// Validate checks in against the schema. Required text fields that are
// blank after trimming count as absent. The ID length is checked on the value
// as sent. The result is empty when in is valid.
func (s *Schema) Validate(in UpdateInput) FieldErrors {
	if strings.TrimSpace(in.ID) == "" {
		in.ID = ""
	}
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.AssignedTo = strings.TrimSpace(in.AssignedTo)
	in.Type = Type(strings.TrimSpace(string(in.Type)))

	errs := FieldErrors{}
	err := s.validate.Struct(in)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError only happens for non-struct input.
		errs[FieldID] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		name := FieldName(fe.Field())
		if _, seen := errs[name]; seen {
			continue
		}
		errs[name] = message(name, fe)
	}
	return errs
}

// message renders a validator error for display under the field.
func message(name FieldName, fe validator.FieldError) string {
	label := Label(name)
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", label, strings.Join(strings.Fields(fe.Param()), ", "))
	case "birthday":
		return fmt.Sprintf("%s must not be before %s", label, earliestBirthday.Format(DateLayout))
	case "phone":
		return label + " is not a valid phone number"
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, fe.Tag())
	}
}

func validBirthday(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.Before(earliestBirthday)
}

func (s *Schema) validPhone(fl validator.FieldLevel) bool {
	if s.phoneRegion == "" {
		return true
	}
	raw := strings.TrimSpace(fl.Field().String())
	if raw == "" {
		return true
	}
	num, err := phonenumbers.Parse(raw, s.phoneRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(num)
}
