// Package contact validates contact form submissions and keeps each
// visitor's submissions in a key-value store.
package contact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Form holds the raw values posted by the contact form.
type Form struct {
	Name    string `form:"name" json:"name"`
	Email   string `form:"email" json:"email"`
	Subject string `form:"subject" json:"subject"`
	Message string `form:"message" json:"message"`
}

// Submission is a stored contact message. Timestamp is in epoch
// milliseconds.
type Submission struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Form fields that can be flagged invalid.
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldMessage = "message"
)

// FlaggedFields lists the fields that carry an aria-invalid flag.
var FlaggedFields = []string{FieldName, FieldEmail, FieldMessage}

const (
	MsgNameRequired  = "Le nom est requis."
	MsgEmailRequired = "L'email est requis."
	MsgEmailInvalid  = "Le format de l'email est invalide."
	MsgTooShort      = "Le message est trop court."
)

type FieldError struct {
	Field   string
	Message string
}

// Each part excludes any Unicode space, not only ASCII whitespace.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

// Validate returns every problem with f, in display order. A nil result
// means the form can be stored.
func Validate(f Form) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, FieldError{Field: FieldName, Message: MsgNameRequired})
	}
	if strings.TrimSpace(f.Email) == "" {
		errs = append(errs, FieldError{Field: FieldEmail, Message: MsgEmailRequired})
	} else if !emailPattern.MatchString(f.Email) {
		errs = append(errs, FieldError{Field: FieldEmail, Message: MsgEmailInvalid})
	}
	// The subject counts toward the minimum length: a short message with a
	// subject passes. Lengths are rune counts, not UTF-16 units.
	if utf8.RuneCountInString(strings.TrimSpace(f.Message))+utf8.RuneCountInString(f.Subject) < 2 {
		errs = append(errs, FieldError{Field: FieldMessage, Message: MsgTooShort})
	}
	return errs
}

// Invalid maps each flagged field to whether errs names it.
func Invalid(errs []FieldError) map[string]bool {
	out := make(map[string]bool, len(FlaggedFields))
	for _, f := range FlaggedFields {
		out[f] = false
	}
	for _, e := range errs {
		out[e.Field] = true
	}
	return out
}

// Messages returns the display lines of errs.
func Messages(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Message)
	}
	return out
}
