package storage

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CloudinaryUploader uploads images with Cloudinary's signed upload API
type CloudinaryUploader struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string

	// Endpoint overrides the API base URL, used by tests
	Endpoint string
	Client   *http.Client
	Now      func() time.Time
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends data to Cloudinary and returns the secure URL
func (u *CloudinaryUploader) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	publicID := strings.TrimSuffix(name, extension(contentType))
	if u.Folder != "" {
		publicID = u.Folder + "/" + publicID
	}

	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	timestamp := strconv.FormatInt(now().Unix(), 10)

	form := url.Values{}
	form.Add("file", "data:"+contentType+";base64,"+base64.StdEncoding.EncodeToString(data))
	form.Add("api_key", u.APIKey)
	form.Add("public_id", publicID)
	form.Add("timestamp", timestamp)
	form.Add("signature", u.sign(publicID, timestamp))

	endpoint := u.Endpoint
	if endpoint == "" {
		endpoint = "https://api.cloudinary.com"
	}
	endpoint = strings.TrimRight(endpoint, "/") + "/v1_1/" + u.CloudName + "/image/upload"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}

	var out cloudinaryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("cloudinary upload: status %d: %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK || out.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: status %d: %s", res.StatusCode, out.Error.Message)
	}

	if out.SecureURL != "" {
		return out.SecureURL, nil
	}
	if out.URL != "" {
		return out.URL, nil
	}
	return "", fmt.Errorf("cloudinary upload: no URL returned")
}

// sign computes the SHA-1 request signature Cloudinary expects
func (u *CloudinaryUploader) sign(publicID, timestamp string) string {
	payload := fmt.Sprintf("public_id=%s&timestamp=%s%s", publicID, timestamp, u.APISecret)
	return fmt.Sprintf("%x", sha1.Sum([]byte(payload)))
}
