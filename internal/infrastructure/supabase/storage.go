package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StorageClient issues signed upload URLs for Supabase Storage buckets.
type StorageClient struct {
	*Client
}

type signedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"` // relative path returned by upload/sign
}

func (s *StorageClient) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	var data signedUploadResponse
	body := map[string]interface{}{"expiresIn": 3600, "upsert": false}
	err := s.do(ctx, http.MethodPost, fmt.Sprintf("/storage/v1/object/upload/sign/%s/%s", bucket, path), "", body, &data)
	if err != nil {
		var apiErr *APIError
		// Invalid Compact JWS / Unauthorized means the anon key was configured instead of service_role.
		if errors.As(err, &apiErr) && (apiErr.Status == 400 || apiErr.Status == 403) &&
			(strings.Contains(apiErr.Body, "Invalid Compact JWS") || strings.Contains(apiErr.Body, "Unauthorized")) {
			return "", fmt.Errorf("supabase storage requires the service_role key, not the anon key: %w", err)
		}
		return "", err
	}
	switch {
	case data.SignedURL != "":
		return data.SignedURL, nil
	case data.SignedURLSnake != "":
		return data.SignedURLSnake, nil
	case data.URL != "":
		u := data.URL
		if !strings.HasPrefix(u, "/") {
			u = "/" + u
		}
		if !strings.HasPrefix(u, "/storage/v1") {
			u = "/storage/v1" + u
		}
		return s.BaseURL + u, nil
	}
	return "", fmt.Errorf("supabase returned no signed URL")
}
