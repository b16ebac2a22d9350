// Package contact defines the contact update input, its typed field union,
// and the validation schema that guards submission.
package contact

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type is the categorical contact type.
type Type string

const (
	TypeCustomer Type = "Customer"
	TypePartner  Type = "Partner"
	TypeVendor   Type = "Vendor"
)

// Types returns the selectable contact types in display order.
func Types() []Type {
	return []Type{TypeCustomer, TypePartner, TypeVendor}
}

// Account is a selectable account reference.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is a selectable user reference for the assigned-user field.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Option is a single entry in a choice field.
type Option struct {
	ID   string
	Name string
}

// AccountOptions converts accounts into choice options.
func AccountOptions(accounts []Account) []Option {
	opts := make([]Option, len(accounts))
	for i, a := range accounts {
		opts[i] = Option{ID: a.ID, Name: a.Name}
	}
	return opts
}

// UserOptions converts users into choice options. Users without a name fall
// back to their email, then their ID.
func UserOptions(users []User) []Option {
	opts := make([]Option, len(users))
	for i, u := range users {
		name := u.Name
		if name == "" {
			name = u.Email
		}
		if name == "" {
			name = u.ID
		}
		opts[i] = Option{ID: u.ID, Name: name}
	}
	return opts
}

// TypeOptions returns the contact type choices.
func TypeOptions() []Option {
	types := Types()
	opts := make([]Option, len(types))
	for i, t := range types {
		opts[i] = Option{ID: string(t), Name: string(t)}
	}
	return opts
}

// UpdateInput is the body of a contact update request.
// Nullable fields are pointers; nil is sent as JSON null.
type UpdateInput struct {
	ID             string     `json:"id" validate:"required,min=5,max=30"`
	Birthday       *time.Time `json:"birthday" validate:"omitempty,birthday"`
	FirstName      *string    `json:"first_name"`
	LastName       string     `json:"last_name" validate:"required"`
	Description    *string    `json:"description"`
	Email          string     `json:"email" validate:"required"`
	PersonalEmail  *string    `json:"personal_email"`
	OfficePhone    *string    `json:"office_phone" validate:"omitempty,phone"`
	MobilePhone    *string    `json:"mobile_phone" validate:"omitempty,phone"`
	Website        *string    `json:"website"`
	Position       *string    `json:"position"`
	Status         *bool      `json:"status" validate:"required"`
	Type           Type       `json:"type" validate:"required,oneof=Customer Partner Vendor"`
	AssignedTo     string     `json:"assigned_to" validate:"required"`
	AccountID      *string    `json:"accountsIDs"`
	SocialTwitter  *string    `json:"social_twitter"`
	SocialFacebook *string    `json:"social_facebook"`
	SocialLinkedin *string    `json:"social_linkedin"`
	SocialSkype    *string    `json:"social_skype"`
	SocialYoutube  *string    `json:"social_youtube"`
	SocialTiktok   *string    `json:"social_tiktok"`
}

// record is the wire shape of a fetched contact. Servers differ in how they
// name the account reference and how they encode the birthday, so both are
// decoded loosely.
type record struct {
	UpdateInput
	Account    *string         `json:"account"`
	AccountsID json.RawMessage `json:"accountsIDs"`
	RawBirth   *string         `json:"birthday"`
}

// FromRecord builds an UpdateInput from a fetched contact record.
func FromRecord(data []byte) (UpdateInput, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return UpdateInput{}, fmt.Errorf("contact: decoding record: %w", err)
	}
	in := rec.UpdateInput

	in.AccountID = nil
	if id := accountRef(rec.AccountsID); id != "" {
		in.AccountID = &id
	} else if rec.Account != nil && *rec.Account != "" {
		id := *rec.Account
		in.AccountID = &id
	}

	in.Birthday = nil
	if rec.RawBirth != nil && *rec.RawBirth != "" {
		t, err := parseDate(*rec.RawBirth)
		if err != nil {
			return UpdateInput{}, fmt.Errorf("contact: decoding birthday: %w", err)
		}
		in.Birthday = &t
	}
	return in, nil
}

// accountRef accepts either a single id or a list of ids and returns the first.
func accountRef(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return one
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(DateLayout, s)
}

// DateLayout is the layout used for date fields in text form.
const DateLayout = "2006-01-02"
