package verification

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors for the identity capability. Both are retryable; a
// definitive "not a human" answer is a valid IdentityResult, not an error.
var (
	ErrVerificationTimeout     = errors.New("identity verification timed out")
	ErrVerificationUnavailable = errors.New("identity verification service unavailable")
)

// IdentityResult is the classifier's answer about a live operator capture.
type IdentityResult struct {
	FaceDetected bool   `json:"face_detected"`
	IsHuman      bool   `json:"is_human"`
	Reason       string `json:"reason,omitempty"`
}

// IdentityVerifier is the capability boundary to the external liveness
// classifier. Implementations do not retry; retry policy belongs to the
// resolution coordinator.
type IdentityVerifier interface {
	VerifyHuman(ctx context.Context, imageBytes []byte) (*IdentityResult, error)
}

// HTTPIdentityVerifier calls the AI microservice's face verification
// endpoint.
type HTTPIdentityVerifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPIdentityVerifier(baseURL string, client *http.Client) *HTTPIdentityVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPIdentityVerifier{baseURL: baseURL, client: client}
}

func (v *HTTPIdentityVerifier) VerifyHuman(ctx context.Context, imageBytes []byte) (*IdentityResult, error) {
	payload, err := json.Marshal(map[string]string{
		"image_base64": base64.StdEncoding.EncodeToString(imageBytes),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/verify-face", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrVerificationTimeout
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		log.WithError(err).Warn("identity verification request failed")
		return nil, ErrVerificationUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.WithField("status", resp.StatusCode).Warnf("identity service error: %s", body)
		return nil, fmt.Errorf("%w: status %d", ErrVerificationUnavailable, resp.StatusCode)
	}

	var result IdentityResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	return &result, nil
}
