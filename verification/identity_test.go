package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyHumanAcceptsClassifierAnswer(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotEmpty(t, payload["image_base64"])

		json.NewEncoder(w).Encode(IdentityResult{FaceDetected: true, IsHuman: true})
	}))
	defer server.Close()

	verifier := NewHTTPIdentityVerifier(server.URL, server.Client())
	result, err := verifier.VerifyHuman(context.Background(), []byte("selfie"))
	require.NoError(t, err)
	assert.Equal(t, "/verify-face", gotPath)
	assert.True(t, result.FaceDetected)
	assert.True(t, result.IsHuman)
}

func TestVerifyHumanDefinitiveNegativeIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(IdentityResult{FaceDetected: false, IsHuman: false, Reason: "no face in frame"})
	}))
	defer server.Close()

	verifier := NewHTTPIdentityVerifier(server.URL, server.Client())
	result, err := verifier.VerifyHuman(context.Background(), []byte("selfie"))
	require.NoError(t, err)
	assert.False(t, result.IsHuman)
	assert.Equal(t, "no face in frame", result.Reason)
}

func TestVerifyHumanTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	verifier := NewHTTPIdentityVerifier(server.URL, server.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := verifier.VerifyHuman(ctx, []byte("selfie"))
	assert.ErrorIs(t, err, ErrVerificationTimeout)
}

func TestVerifyHumanServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	verifier := NewHTTPIdentityVerifier(server.URL, server.Client())
	_, err := verifier.VerifyHuman(context.Background(), []byte("selfie"))
	assert.ErrorIs(t, err, ErrVerificationUnavailable)
}

func TestVerifyHumanConnectionRefusedIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	verifier := NewHTTPIdentityVerifier(server.URL, nil)
	_, err := verifier.VerifyHuman(context.Background(), []byte("selfie"))
	assert.ErrorIs(t, err, ErrVerificationUnavailable)
}
