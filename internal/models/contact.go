package models

import (
	"regexp"
	"strings"
)

// ContactField identifies one input of the consultation request form.
type ContactField string

const (
	FieldName          ContactField = "name"
	FieldPhone         ContactField = "phone"
	FieldEmail         ContactField = "email"
	FieldMessage       ContactField = "message"
	FieldPreferredTime ContactField = "preferredTime"
	FieldConsent       ContactField = "consent"
)

// ContactFieldOrder is the order fields appear on the form.
var ContactFieldOrder = []ContactField{
	FieldName,
	FieldPhone,
	FieldEmail,
	FieldMessage,
	FieldPreferredTime,
	FieldConsent,
}

// ParseContactField maps a wire name to a ContactField.
func ParseContactField(s string) (ContactField, bool) {
	for _, f := range ContactFieldOrder {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// IsText reports whether the field holds text (every field except consent).
func (f ContactField) IsText() bool {
	return f != FieldConsent
}

// ContactFields is the payload of the consultation request form.
type ContactFields struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Message       string `json:"message"`
	PreferredTime string `json:"preferredTime"`
	Consent       bool   `json:"consent"`
}

// Text returns the value of a text field. Consent and unknown fields yield "".
func (c ContactFields) Text(field ContactField) string {
	switch field {
	case FieldName:
		return c.Name
	case FieldPhone:
		return c.Phone
	case FieldEmail:
		return c.Email
	case FieldMessage:
		return c.Message
	case FieldPreferredTime:
		return c.PreferredTime
	}
	return ""
}

// SetText overwrites a text field. It returns false for consent or unknown fields.
func (c *ContactFields) SetText(field ContactField, value string) bool {
	switch field {
	case FieldName:
		c.Name = value
	case FieldPhone:
		c.Phone = value
	case FieldEmail:
		c.Email = value
	case FieldMessage:
		c.Message = value
	case FieldPreferredTime:
		c.PreferredTime = value
	default:
		return false
	}
	return true
}

// emailPattern matches anywhere in the value, it is not anchored.
var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

type fieldRule struct {
	field ContactField
	check func(ContactFields) string
}

func required(field ContactField, msg string) fieldRule {
	return fieldRule{field: field, check: func(c ContactFields) string {
		if strings.TrimSpace(c.Text(field)) == "" {
			return msg
		}
		return ""
	}}
}

var contactRules = []fieldRule{
	required(FieldName, "Name is required"),
	required(FieldPhone, "Phone is required"),
	{field: FieldEmail, check: func(c ContactFields) string {
		if strings.TrimSpace(c.Email) == "" {
			return "Email is required"
		}
		if !emailPattern.MatchString(c.Email) {
			return "Email format is invalid"
		}
		return ""
	}},
	required(FieldMessage, "Please tell us what brings you here"),
	required(FieldPreferredTime, "Preferred time is required"),
	{field: FieldConsent, check: func(c ContactFields) string {
		if !c.Consent {
			return "You must agree to be contacted"
		}
		return ""
	}},
}

// Validate applies every field rule and returns the failing fields.
// The result is empty, never nil, when all fields pass.
func (c ContactFields) Validate() FieldErrors {
	errors := FieldErrors{}
	for _, rule := range contactRules {
		if msg := rule.check(c); msg != "" {
			errors[rule.field] = msg
		}
	}
	return errors
}

// FieldErrors maps a failing field to its message.
type FieldErrors map[ContactField]string

// Clone returns an independent copy.
func (e FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Strings converts the errors for the JSON error envelope.
func (e FieldErrors) Strings() map[string]string {
	out := make(map[string]string, len(e))
	for k, v := range e {
		out[string(k)] = v
	}
	return out
}

// SubmissionState is the lifecycle of a form submission.
type SubmissionState string

const (
	StateIdle           SubmissionState = "idle"
	StateShowingSuccess SubmissionState = "showingSuccess"
)

// ContactFormState is what a renderer projects after each mutation.
type ContactFormState struct {
	Fields ContactFields   `json:"fields"`
	Errors FieldErrors     `json:"errors"`
	State  SubmissionState `json:"state"`
}

// Error returns the message for a field, or "".
func (s ContactFormState) Error(field string) string {
	return s.Errors[ContactField(field)]
}

// ShowingSuccess reports whether the success message should be displayed.
func (s ContactFormState) ShowingSuccess() bool {
	return s.State == StateShowingSuccess
}
