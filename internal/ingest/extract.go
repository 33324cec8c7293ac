// Package ingest turns uploaded résumé and job-description files into
// plain text for the interviewer.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MinTextLength is the minimum length of a document after trimming whitespace
const MinTextLength = 50

var (
	ErrUnsupported = errors.New("unsupported document format")
	ErrTooShort    = errors.New("document contains too little text")
	ErrUnreadable  = errors.New("document could not be read")
	ErrTooLarge    = errors.New("document exceeds the size limit")
)

// ContentError reports a document that cannot be used as interview input
type ContentError struct {
	Path string
	Err  error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("%s: %v", filepath.Base(e.Path), e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// ExtractText returns the text of a .pdf or plain-text file.
// Word documents are rejected.
func ExtractText(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &ContentError{Path: path, Err: fmt.Errorf("%w: empty path", ErrUnreadable)}
	}

	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		text, err = pdfText(path)
	case ".doc", ".docx":
		err = fmt.Errorf("%w: Word document format (%s) is not supported yet, please convert to PDF or plain text", ErrUnsupported, ext)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		text = string(data)
	}
	if err != nil {
		return "", &ContentError{Path: path, Err: err}
	}

	if n := len(strings.TrimSpace(text)); n < MinTextLength {
		return "", &ContentError{
			Path: path,
			Err:  fmt.Errorf("%w (%d characters), please check the file", ErrTooShort, n),
		}
	}
	return text, nil
}

func pdfText(path string) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: failed to parse PDF file: %v", ErrUnreadable, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse PDF file: %v", ErrUnreadable, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: failed to extract PDF text: %v", ErrUnreadable, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: failed to extract PDF text: %v", ErrUnreadable, err)
	}
	return buf.String(), nil
}
