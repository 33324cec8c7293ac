package ingest

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadSize is the per-file upload limit
const MaxUploadSize = 5 << 20

// Upload form fields
const (
	FieldResume         = "resume"
	FieldJobDescription = "jobDescription"
)

// allowedTypes maps each accepted extension to the content types it may sniff as
var allowedTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".txt":  {"text/plain"},
}

// AllowedExtensions lists the accepted file extensions
func AllowedExtensions() []string {
	return []string{".pdf", ".doc", ".docx", ".txt"}
}

// Uploader stores uploaded documents under Dir
type Uploader struct {
	Dir     string
	MaxSize int64
	now     func() time.Time
}

// NewUploader creates the upload directory if needed
func NewUploader(dir string) (*Uploader, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	return &Uploader{Dir: abs, MaxSize: MaxUploadSize, now: time.Now}, nil
}

// Save validates fh and writes it as <field>-<unixmillis><ext>, returning the absolute path
func (u *Uploader) Save(field string, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	want, ok := allowedTypes[ext]
	if !ok {
		return "", &ContentError{
			Path: fh.Filename,
			Err:  fmt.Errorf("%w: only %s files are allowed", ErrUnsupported, strings.Join(AllowedExtensions(), ", ")),
		}
	}
	if fh.Size > u.MaxSize {
		return "", &ContentError{
			Path: fh.Filename,
			Err:  fmt.Errorf("%w: %d bytes, limit is %d", ErrTooLarge, fh.Size, u.MaxSize),
		}
	}

	src, err := fh.Open()
	if err != nil {
		return "", &ContentError{Path: fh.Filename, Err: fmt.Errorf("%w: %v", ErrUnreadable, err)}
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return "", &ContentError{Path: fh.Filename, Err: fmt.Errorf("%w: %v", ErrUnreadable, err)}
	}
	if !matches(mt, want) {
		return "", &ContentError{
			Path: fh.Filename,
			Err:  fmt.Errorf("%w: content is %s, not %s", ErrUnsupported, mt.String(), ext),
		}
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}

	name := fmt.Sprintf("%s-%d%s", field, u.now().UnixMilli(), ext)
	path := filepath.Join(u.Dir, name)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := io.Copy(dst, io.LimitReader(src, u.MaxSize+1)); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

func matches(mt *mimetype.MIME, want []string) bool {
	for m := mt; m != nil; m = m.Parent() {
		for _, w := range want {
			if m.Is(w) {
				return true
			}
		}
	}
	return false
}
