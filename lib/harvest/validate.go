package harvest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldDate   FieldType = "date"
	FieldTime   FieldType = "time"
)

// Default layouts matching how the portal renders hearing dates/times.
const (
	DefaultDateFormat = "01/02/2006"
	DefaultTimeFormat = "3:04 PM"
)

type FieldSpec struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	// Format overrides the default date/time layout.
	Format string `json:"format,omitempty"`
}

// Schema is the externally supplied descriptor of the canonical record
// shape. Changes to it are configuration, not code.
type Schema struct {
	// Key names the field holding the stable primary identifier. It is
	// always required and must coerce to an integer.
	Key    string      `json:"key"`
	Fields []FieldSpec `json:"fields"`
}

// ValidatedRecord is the subset of a RawRecord that passed the schema
// gate, with field values in canonical text form.
type ValidatedRecord struct {
	Key    string
	Fields map[string]string
}

// Rejection explains why one raw record was kept out of the output. A
// rejection never aborts a harvest.
type Rejection struct {
	Key    string
	Field  string
	Reason string
}

func (r Rejection) Error() string {
	return fmt.Sprintf("record %q rejected: field %q: %s", r.Key, r.Field, r.Reason)
}

func (s Schema) layout(f FieldSpec) string {
	if f.Format != "" {
		return f.Format
	}
	if f.Type == FieldTime {
		return DefaultTimeFormat
	}
	return DefaultDateFormat
}

// Validate checks one raw record against the schema. It is pure: no side
// effects, no network. The returned error is always a Rejection.
func (s Schema) Validate(raw RawRecord) (ValidatedRecord, error) {
	key := strings.TrimSpace(raw[s.Key])
	if key == "" {
		return ValidatedRecord{}, Rejection{
			Field:  s.Key,
			Reason: "missing primary identifier",
		}
	}
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return ValidatedRecord{}, Rejection{
			Key:    key,
			Field:  s.Key,
			Reason: fmt.Sprintf("identifier is not an integer: %q", key),
		}
	}

	out := ValidatedRecord{
		Key:    strconv.FormatInt(id, 10),
		Fields: make(map[string]string, len(s.Fields)),
	}

	for _, f := range s.Fields {
		value := strings.TrimSpace(raw[f.Name])
		if value == "" {
			if f.Required {
				return ValidatedRecord{}, Rejection{
					Key:    out.Key,
					Field:  f.Name,
					Reason: "missing required field",
				}
			}
			continue
		}

		switch f.Type {
		case FieldInt:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ValidatedRecord{}, Rejection{
					Key:    out.Key,
					Field:  f.Name,
					Reason: fmt.Sprintf("not an integer: %q", value),
				}
			}
			out.Fields[f.Name] = strconv.FormatInt(n, 10)
		case FieldDate, FieldTime:
			layout := s.layout(f)
			parsed, err := time.Parse(layout, value)
			if err != nil {
				return ValidatedRecord{}, Rejection{
					Key:    out.Key,
					Field:  f.Name,
					Reason: fmt.Sprintf("does not match layout %q: %q", layout, value),
				}
			}
			out.Fields[f.Name] = parsed.Format(layout)
		default:
			out.Fields[f.Name] = value
		}
	}

	return out, nil
}
