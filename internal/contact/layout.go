package contact

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// ErrInvalidLayout indicates a layout file that disagrees with the schema.
var ErrInvalidLayout = errors.New("contact: invalid layout")

// Field describes one rendered form field.
type Field struct {
	Name        FieldName
	Kind        Kind
	Label       string
	Placeholder string
}

// Layout is the ordered set of fields plus the form captions.
type Layout struct {
	Title  string
	Submit string
	Busy   string
	Fields []Field
}

type rawLayout struct {
	Title  string     `yaml:"title"`
	Submit string     `yaml:"submit"`
	Busy   string     `yaml:"busy"`
	Fields []rawField `yaml:"fields"`
}

type rawField struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Label       string `yaml:"label"`
	Placeholder string `yaml:"placeholder"`
}

// DefaultLayout lists every field in schema order with default labels.
func DefaultLayout() Layout {
	order := []FieldName{
		FieldID, FieldFirstName, FieldLastName, FieldMobilePhone, FieldOfficePhone,
		FieldEmail, FieldPersonalEmail, FieldWebsite, FieldBirthday, FieldDescription,
		FieldAssignedTo, FieldAccount, FieldPosition, FieldStatus, FieldType,
		FieldSocialTwitter, FieldSocialFacebook, FieldSocialLinkedin, FieldSocialSkype,
		FieldSocialYoutube, FieldSocialTiktok,
	}
	fields := make([]Field, len(order))
	for i, n := range order {
		fields[i] = Field{Name: n, Kind: fieldSpecs[n].kind, Label: fieldSpecs[n].label}
	}
	return Layout{
		Title:  "Update contact",
		Submit: "Update contact",
		Busy:   "Saving data ...",
		Fields: fields,
	}
}

// LoadLayout reads and checks the layout file name from fsys.
// Unknown field names, duplicates, and kinds that disagree with the schema
// are rejected. Required fields missing from the file are appended so they
// can always be edited.
func LoadLayout(fsys fs.FS, name string) (Layout, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Layout{}, fmt.Errorf("contact: reading layout %s: %w", name, err)
	}

	var raw rawLayout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return Layout{}, fmt.Errorf("contact: parsing layout %s: %w", name, err)
	}

	def := DefaultLayout()
	layout := Layout{Title: raw.Title, Submit: raw.Submit, Busy: raw.Busy}
	if layout.Title == "" {
		layout.Title = def.Title
	}
	if layout.Submit == "" {
		layout.Submit = def.Submit
	}
	if layout.Busy == "" {
		layout.Busy = def.Busy
	}

	seen := make(map[FieldName]bool, len(raw.Fields))
	for _, rf := range raw.Fields {
		fn := FieldName(rf.Name)
		spec, ok := fieldSpecs[fn]
		if !ok {
			return Layout{}, fmt.Errorf("%w: unknown field %q", ErrInvalidLayout, rf.Name)
		}
		if seen[fn] {
			return Layout{}, fmt.Errorf("%w: duplicate field %q", ErrInvalidLayout, rf.Name)
		}
		seen[fn] = true

		kind := spec.kind
		if rf.Kind != "" && Kind(rf.Kind) != kind {
			return Layout{}, fmt.Errorf("%w: field %q is %s, layout says %s", ErrInvalidLayout, rf.Name, kind, rf.Kind)
		}
		label := rf.Label
		if label == "" {
			label = spec.label
		}
		layout.Fields = append(layout.Fields, Field{
			Name:        fn,
			Kind:        kind,
			Label:       label,
			Placeholder: rf.Placeholder,
		})
	}

	for _, f := range def.Fields {
		if !seen[f.Name] && !fieldSpecs[f.Name].nullable {
			layout.Fields = append(layout.Fields, f)
		}
	}
	return layout, nil
}
