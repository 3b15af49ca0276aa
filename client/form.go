package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// ErrFormSent is returned when a part is added to a [Form] that was
// already used as a request body.
var ErrFormSent = errors.New("form already sent")

// Form is a multipart/form-data request body. When passed as a body to
// the dispatcher it is never JSON-encoded, and its boundary-bearing
// Content-Type is used instead of application/json.
type Form struct {
	buf    bytes.Buffer
	w      *multipart.Writer
	closed bool
}

// NewForm returns an empty multipart form.
func NewForm() *Form {
	f := &Form{}
	f.w = multipart.NewWriter(&f.buf)

	return f
}

// AddField writes a plain form field.
func (f *Form) AddField(name, value string) error {
	if f.closed {
		return ErrFormSent
	}

	if err := f.w.WriteField(name, value); err != nil {
		return fmt.Errorf("writing field[%s]: %w", name, err)
	}

	return nil
}

// AddFile copies r into a file part under the given field name.
func (f *Form) AddFile(field, filename string, r io.Reader) error {
	if f.closed {
		return ErrFormSent
	}

	part, err := f.w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("creating file part[%s]: %w", field, err)
	}

	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("copying file part[%s]: %w", field, err)
	}

	return nil
}

// ContentType returns the multipart Content-Type including the boundary.
func (f *Form) ContentType() string {
	return f.w.FormDataContentType()
}

// encode closes the writer, terminating the multipart body. Further
// writes to the form fail.
func (f *Form) encode() (io.Reader, error) {
	if !f.closed {
		if err := f.w.Close(); err != nil {
			return nil, fmt.Errorf("closing multipart writer: %w", err)
		}
		f.closed = true
	}

	return bytes.NewReader(f.buf.Bytes()), nil
}
