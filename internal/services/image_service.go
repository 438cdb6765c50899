package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ImageUploader stores an image and returns its hosted URL.
type ImageUploader interface {
	Upload(ctx context.Context, data string) (string, error)
}

// ErrImageUploadDisabled is returned for inline image data when no image
// host is configured.
var ErrImageUploadDisabled = &Error{Kind: ErrValidation, Msg: "image upload is not configured, send an image URL"}

// CloudinaryService uploads base64 images through an unsigned upload preset.
type CloudinaryService struct {
	baseURL   string
	cloudName string
	preset    string
	folder    string
	client    *http.Client
}

// NewCloudinaryService creates a CloudinaryService.
func NewCloudinaryService(baseURL, cloudName, preset, folder string) *CloudinaryService {
	if baseURL == "" {
		baseURL = "https://api.cloudinary.com/v1_1"
	}
	return &CloudinaryService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		cloudName: cloudName,
		preset:    preset,
		folder:    folder,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload sends data (a data URI or raw base64) to the image host. Values that
// are already http(s) URLs are returned unchanged.
func (s *CloudinaryService) Upload(ctx context.Context, data string) (string, error) {
	data = strings.TrimSpace(data)
	if data == "" || strings.HasPrefix(data, "http://") || strings.HasPrefix(data, "https://") {
		return data, nil
	}

	if s.cloudName == "" || s.preset == "" {
		return "", ErrImageUploadDisabled
	}

	if !strings.HasPrefix(data, "data:") {
		data = "data:image/jpeg;base64," + data
	}

	form := url.Values{}
	form.Set("file", data)
	form.Set("upload_preset", s.preset)
	if s.folder != "" {
		form.Set("folder", s.folder)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", s.baseURL, url.PathEscape(s.cloudName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	var out cloudinaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || out.SecureURL == "" {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("image host rejected upload: %s", msg)
	}

	return out.SecureURL, nil
}
