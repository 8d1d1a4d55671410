// Package uploads keeps uploaded document files on the local filesystem.
package uploads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/civilregistry/backend/internal/apperror"
)

// allowedTypes maps accepted extensions to the MIME types they may carry
var allowedTypes = map[string][]string{
	".jpeg": {"image/jpeg", "image/jpg"},
	".jpg":  {"image/jpeg", "image/jpg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".pdf":  {"application/pdf"},
}

// Incoming is a file received from a client
type Incoming struct {
	OriginalName string
	MimeType     string
	Size         int64
	Content      io.Reader
}

// StoredFile describes a file written to disk
type StoredFile struct {
	FileName     string
	OriginalName string
	MimeType     string
	Size         int64
	Path         string
}

// LocalStore writes files under Root, one directory per user
type LocalStore struct {
	Root     string
	MaxBytes int64
}

// NewLocalStore creates a LocalStore rooted at root
func NewLocalStore(root string, maxBytes int64) *LocalStore {
	return &LocalStore{Root: root, MaxBytes: maxBytes}
}

// Validate checks the declared type and size of f without touching disk
func (s *LocalStore) Validate(f Incoming) error {
	ext := strings.ToLower(filepath.Ext(f.OriginalName))
	mimes, ok := allowedTypes[ext]
	if !ok || !containsFold(mimes, f.MimeType) {
		return apperror.Validation("Only .jpeg, .jpg, .png, .gif and .pdf files are allowed")
	}
	if s.MaxBytes > 0 && f.Size > s.MaxBytes {
		return apperror.Validationf("File too large. Maximum size is %d bytes", s.MaxBytes)
	}
	return nil
}

// Save validates f and writes it to {Root}/{userID}/{slug}-{uuid}{ext}
func (s *LocalStore) Save(_ context.Context, userID uuid.UUID, f Incoming) (*StoredFile, error) {
	if err := s.Validate(f); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.Root, userID.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, apperror.Internal("Failed to store file", fmt.Errorf("create upload dir: %w", err))
	}

	ext := strings.ToLower(filepath.Ext(f.OriginalName))
	base := slug.Make(strings.TrimSuffix(filepath.Base(f.OriginalName), filepath.Ext(f.OriginalName)))
	if base == "" {
		base = "document"
	}
	name := fmt.Sprintf("%s-%s%s", base, uuid.NewString(), ext)
	path := filepath.Join(dir, name)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, apperror.Internal("Failed to store file", fmt.Errorf("open %s: %w", path, err))
	}

	src := f.Content
	if s.MaxBytes > 0 {
		src = io.LimitReader(f.Content, s.MaxBytes+1)
	}
	written, copyErr := io.Copy(out, src)
	closeErr := out.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return nil, apperror.Internal("Failed to store file", fmt.Errorf("write %s: %w", path, copyErr))
	case closeErr != nil:
		_ = os.Remove(path)
		return nil, apperror.Internal("Failed to store file", fmt.Errorf("close %s: %w", path, closeErr))
	case s.MaxBytes > 0 && written > s.MaxBytes:
		_ = os.Remove(path)
		return nil, apperror.Validationf("File too large. Maximum size is %d bytes", s.MaxBytes)
	}

	return &StoredFile{
		FileName:     name,
		OriginalName: f.OriginalName,
		MimeType:     f.MimeType,
		Size:         written,
		Path:         path,
	}, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *LocalStore) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
