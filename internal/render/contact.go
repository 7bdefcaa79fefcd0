package render

import (
	"fmt"
	"io"

	"github.com/gaetan-pardon/ISEN/internal/contact"
)

const (
	KindSuccess = "success"
	KindError   = "error"
)

// Notice is the message block shown above the contact form.
type Notice struct {
	Kind  string
	Lines []string
}

// ContactPage is everything the contact page shows. A nil Invalid map
// means no field carries an aria-invalid attribute.
type ContactPage struct {
	Lang        string
	Form        contact.Form
	Invalid     map[string]bool
	Notice      *Notice
	Submissions []contact.Submission
}

// ContactFromResult builds the page shown after a submit attempt. A
// rejected form keeps its values and flags the failing fields; an
// accepted one comes back empty.
func (r *Renderer) ContactFromResult(f contact.Form, res contact.Result, successLine string) ContactPage {
	page := ContactPage{Lang: r.lang.String(), Submissions: res.Submissions}
	if !res.OK() {
		page.Form = f
		page.Invalid = contact.Invalid(res.Errors)
		page.Notice = &Notice{Kind: KindError, Lines: contact.Messages(res.Errors)}
		return page
	}
	page.Notice = &Notice{Kind: KindSuccess, Lines: []string{successLine}}
	return page
}

// Contact writes the full contact document.
func (r *Renderer) Contact(w io.Writer, page ContactPage) error {
	if page.Lang == "" {
		page.Lang = r.lang.String()
	}
	if err := r.tmpl.ExecuteTemplate(w, "contact.html", page); err != nil {
		return fmt.Errorf("rendering contact page: %w", err)
	}
	return nil
}

// ContactMain writes only the form, messages and submissions block, the
// fragment htmx swaps after a submit.
func (r *Renderer) ContactMain(w io.Writer, page ContactPage) error {
	if err := r.tmpl.ExecuteTemplate(w, "contact-main", page); err != nil {
		return fmt.Errorf("rendering contact form: %w", err)
	}
	return nil
}
