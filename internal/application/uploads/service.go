package uploads

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentsBucket is the private bucket holding applicants' ID documents.
const DocumentsBucket = "member-documents"

var (
	ErrFileNameRequired    = errors.New("file_name is required")
	ErrUnsupportedFileType = errors.New("Only PDF, JPG and PNG documents are accepted")
)

var allowedExtensions = map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Signer issues signed upload URLs. supabase.StorageClient satisfies it.
type Signer interface {
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error)
}

type Service struct {
	Signer Signer
	Now    func() time.Time
	NewID  func() uuid.UUID
}

// UploadResult is returned to the join form. Path is stored on the draft and
// later attached to the member record by an administrator.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
}

// SignIDDocument returns a one-shot upload URL for an applicant's ID document.
// Each upload lands in its own folder so names never clash.
func (s *Service) SignIDDocument(ctx context.Context, fileName string) (*UploadResult, error) {
	name, err := sanitizeFileName(fileName)
	if err != nil {
		return nil, err
	}
	now, newID := time.Now, uuid.New
	if s.Now != nil {
		now = s.Now
	}
	if s.NewID != nil {
		newID = s.NewID
	}
	p := fmt.Sprintf("%s/%d-%s", newID(), now().UnixMilli(), name)

	signed, err := s.Signer.CreateSignedUploadURL(ctx, DocumentsBucket, p)
	if err != nil {
		return nil, fmt.Errorf("sign upload url: %w", err)
	}
	return &UploadResult{UploadURL: signed, Bucket: DocumentsBucket, Path: p}, nil
}

func sanitizeFileName(fileName string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if base == "" || base == "." || base == "/" {
		return "", ErrFileNameRequired
	}
	ext := strings.ToLower(path.Ext(base))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedFileType
	}
	stem := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSuffix(base, path.Ext(base)), "_"), "_.")
	if stem == "" {
		stem = "document"
	}
	if len(stem) > 80 {
		stem = stem[:80]
	}
	return stem + ext, nil
}
