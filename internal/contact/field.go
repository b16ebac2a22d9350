package contact

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for field access.
var (
	ErrUnknownField = errors.New("contact: unknown field")
	ErrKindMismatch = errors.New("contact: value kind does not match field")
	ErrNotNullable  = errors.New("contact: field cannot be null")
)

// FieldName is the wire name of an UpdateInput field.
type FieldName string

const (
	FieldID             FieldName = "id"
	FieldFirstName      FieldName = "first_name"
	FieldLastName       FieldName = "last_name"
	FieldMobilePhone    FieldName = "mobile_phone"
	FieldOfficePhone    FieldName = "office_phone"
	FieldEmail          FieldName = "email"
	FieldPersonalEmail  FieldName = "personal_email"
	FieldWebsite        FieldName = "website"
	FieldBirthday       FieldName = "birthday"
	FieldDescription    FieldName = "description"
	FieldAssignedTo     FieldName = "assigned_to"
	FieldAccount        FieldName = "accountsIDs"
	FieldPosition       FieldName = "position"
	FieldStatus         FieldName = "status"
	FieldType           FieldName = "type"
	FieldSocialTwitter  FieldName = "social_twitter"
	FieldSocialFacebook FieldName = "social_facebook"
	FieldSocialLinkedin FieldName = "social_linkedin"
	FieldSocialSkype    FieldName = "social_skype"
	FieldSocialYoutube  FieldName = "social_youtube"
	FieldSocialTiktok   FieldName = "social_tiktok"
)

// Kind discriminates the widget and value shape of a field.
type Kind string

const (
	KindText     Kind = "text"
	KindTextArea Kind = "textarea"
	KindToggle   Kind = "toggle"
	KindChoice   Kind = "choice"
	KindDate     Kind = "date"
)

// fieldSpec is the fixed schema entry for a field.
type fieldSpec struct {
	kind     Kind
	nullable bool
	label    string
}

var fieldSpecs = map[FieldName]fieldSpec{
	FieldID:             {KindText, false, "ID"},
	FieldFirstName:      {KindText, true, "First name"},
	FieldLastName:       {KindText, false, "Last name"},
	FieldMobilePhone:    {KindText, true, "Mobile phone"},
	FieldOfficePhone:    {KindText, true, "Office phone"},
	FieldEmail:          {KindText, false, "Email"},
	FieldPersonalEmail:  {KindText, true, "Personal email"},
	FieldWebsite:        {KindText, true, "Website"},
	FieldBirthday:       {KindDate, true, "Birthday"},
	FieldDescription:    {KindTextArea, true, "Description"},
	FieldAssignedTo:     {KindChoice, false, "Assigned user"},
	FieldAccount:        {KindChoice, true, "Assigned account"},
	FieldPosition:       {KindText, true, "Position"},
	FieldStatus:         {KindToggle, false, "Is contact active?"},
	FieldType:           {KindChoice, false, "Contact type"},
	FieldSocialTwitter:  {KindText, true, "Twitter"},
	FieldSocialFacebook: {KindText, true, "Facebook"},
	FieldSocialLinkedin: {KindText, true, "LinkedIn"},
	FieldSocialSkype:    {KindText, true, "Skype"},
	FieldSocialYoutube:  {KindText, true, "YouTube"},
	FieldSocialTiktok:   {KindText, true, "TikTok"},
}

// KindOf returns the kind of a field, or false for unknown names.
func KindOf(name FieldName) (Kind, bool) {
	s, ok := fieldSpecs[name]
	return s.kind, ok
}

// Label returns the default human label for a field.
func Label(name FieldName) string {
	if s, ok := fieldSpecs[name]; ok {
		return s.label
	}
	return string(name)
}

// Nullable reports whether a field accepts null.
func Nullable(name FieldName) bool {
	return fieldSpecs[name].nullable
}

// Value is a typed field value. Exactly one of its payloads is meaningful,
// selected by Kind; a nil payload is null.
type Value struct {
	kind Kind
	text *string
	flag *bool
	date *time.Time
}

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, text: &s} }

// NullText returns a null text value.
func NullText() Value { return Value{kind: KindText} }

// Toggle returns a boolean value.
func Toggle(b bool) Value { return Value{kind: KindToggle, flag: &b} }

// Choice returns a choice value holding an option ID.
func Choice(id string) Value { return Value{kind: KindChoice, text: &id} }

// NullChoice returns an empty choice.
func NullChoice() Value { return Value{kind: KindChoice} }

// Date returns a date value.
func Date(t time.Time) Value { return Value{kind: KindDate, date: &t} }

// NullDate returns a null date value.
func NullDate() Value { return Value{kind: KindDate} }

// Kind returns the value's discriminator.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value carries no payload.
func (v Value) IsNull() bool {
	return v.text == nil && v.flag == nil && v.date == nil
}

// String returns the text or choice payload, or "" when null.
func (v Value) String() string {
	switch {
	case v.text != nil:
		return *v.text
	case v.flag != nil:
		if *v.flag {
			return "true"
		}
		return "false"
	case v.date != nil:
		return v.date.Format(DateLayout)
	}
	return ""
}

// Bool returns the toggle payload.
func (v Value) Bool() (bool, bool) {
	if v.flag == nil {
		return false, false
	}
	return *v.flag, true
}

// Time returns the date payload.
func (v Value) Time() (time.Time, bool) {
	if v.date == nil {
		return time.Time{}, false
	}
	return *v.date, true
}

// accepts reports whether a value of kind vk can be stored in a field of kind fk.
func accepts(fk, vk Kind) bool {
	if fk == vk {
		return true
	}
	return fk == KindTextArea && vk == KindText
}

// Get returns the value of the named field.
func (in *UpdateInput) Get(name FieldName) (Value, error) {
	spec, ok := fieldSpecs[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	switch name {
	case FieldID:
		return Text(in.ID), nil
	case FieldLastName:
		return Text(in.LastName), nil
	case FieldEmail:
		return Text(in.Email), nil
	case FieldAssignedTo:
		if in.AssignedTo == "" {
			return NullChoice(), nil
		}
		return Choice(in.AssignedTo), nil
	case FieldType:
		if in.Type == "" {
			return NullChoice(), nil
		}
		return Choice(string(in.Type)), nil
	case FieldStatus:
		if in.Status == nil {
			return Value{kind: KindToggle}, nil
		}
		return Toggle(*in.Status), nil
	case FieldBirthday:
		if in.Birthday == nil {
			return NullDate(), nil
		}
		return Date(*in.Birthday), nil
	case FieldAccount:
		if in.AccountID == nil {
			return NullChoice(), nil
		}
		return Choice(*in.AccountID), nil
	}
	p := in.nullableText(name)
	v := Value{kind: spec.kind}
	if *p != nil {
		s := **p
		v.text = &s
	}
	return v, nil
}

// Set stores v into the named field. The value's kind must match the field.
func (in *UpdateInput) Set(name FieldName, v Value) error {
	spec, ok := fieldSpecs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if !accepts(spec.kind, v.kind) {
		return fmt.Errorf("%w: %s is %s, got %s", ErrKindMismatch, name, spec.kind, v.kind)
	}
	if v.IsNull() && !spec.nullable {
		// Required fields are cleared rather than nulled; validation reports them.
		switch name {
		case FieldStatus:
			in.Status = nil
			return nil
		case FieldID, FieldLastName, FieldEmail, FieldAssignedTo, FieldType:
		default:
			return fmt.Errorf("%w: %s", ErrNotNullable, name)
		}
	}

	switch name {
	case FieldID:
		in.ID = v.String()
	case FieldLastName:
		in.LastName = v.String()
	case FieldEmail:
		in.Email = v.String()
	case FieldAssignedTo:
		in.AssignedTo = v.String()
	case FieldType:
		in.Type = Type(v.String())
	case FieldStatus:
		b, _ := v.Bool()
		in.Status = &b
	case FieldBirthday:
		if t, ok := v.Time(); ok {
			in.Birthday = &t
		} else {
			in.Birthday = nil
		}
	case FieldAccount:
		if v.IsNull() || v.String() == "" {
			in.AccountID = nil
		} else {
			s := v.String()
			in.AccountID = &s
		}
	default:
		p := in.nullableText(name)
		if v.IsNull() {
			*p = nil
		} else {
			s := v.String()
			*p = &s
		}
	}
	return nil
}

// nullableText returns the address of a nullable text field.
func (in *UpdateInput) nullableText(name FieldName) **string {
	switch name {
	case FieldFirstName:
		return &in.FirstName
	case FieldDescription:
		return &in.Description
	case FieldPersonalEmail:
		return &in.PersonalEmail
	case FieldOfficePhone:
		return &in.OfficePhone
	case FieldMobilePhone:
		return &in.MobilePhone
	case FieldWebsite:
		return &in.Website
	case FieldPosition:
		return &in.Position
	case FieldSocialTwitter:
		return &in.SocialTwitter
	case FieldSocialFacebook:
		return &in.SocialFacebook
	case FieldSocialLinkedin:
		return &in.SocialLinkedin
	case FieldSocialSkype:
		return &in.SocialSkype
	case FieldSocialYoutube:
		return &in.SocialYoutube
	case FieldSocialTiktok:
		return &in.SocialTiktok
	}
	panic(fmt.Sprintf("contact: %s is not a nullable text field", name))
}

// ParseValue converts raw text into a value of the field's kind.
// Empty text is null for nullable fields. Toggles accept true/false, yes/no
// and on/off; dates use DateLayout.
func ParseValue(name FieldName, raw string) (Value, error) {
	spec, ok := fieldSpecs[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	trimmed := strings.TrimSpace(raw)

	switch spec.kind {
	case KindToggle:
		switch strings.ToLower(trimmed) {
		case "true", "yes", "on", "1":
			return Toggle(true), nil
		case "false", "no", "off", "0":
			return Toggle(false), nil
		case "":
			return Value{kind: KindToggle}, nil
		}
		return Value{}, fmt.Errorf("contact: %s: invalid toggle %q", name, raw)
	case KindDate:
		if trimmed == "" {
			return NullDate(), nil
		}
		t, err := time.Parse(DateLayout, trimmed)
		if err != nil {
			return Value{}, fmt.Errorf("contact: %s: invalid date %q (want YYYY-MM-DD)", name, raw)
		}
		return Date(t), nil
	case KindChoice:
		if trimmed == "" {
			return NullChoice(), nil
		}
		return Choice(trimmed), nil
	default:
		if raw == "" && spec.nullable {
			return Value{kind: spec.kind}, nil
		}
		v := Text(raw)
		v.kind = spec.kind
		return v, nil
	}
}
