package duplicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"crowdcare-be/models"
)

// ErrClassifierUnavailable signals the finder to fall back to
// distance-only matching.
var ErrClassifierUnavailable = errors.New("similarity service unavailable")

// HTTPSimilarityClassifier calls the AI microservice's text similarity
// endpoint.
type HTTPSimilarityClassifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSimilarityClassifier(baseURL string, client *http.Client) *HTTPSimilarityClassifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSimilarityClassifier{baseURL: baseURL, client: client}
}

type similarityRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

type similarityResponse struct {
	Score float64 `json:"score"`
}

func (c *HTTPSimilarityClassifier) Similarity(ctx context.Context, submission Submission, candidate *models.Report) (float64, error) {
	payload, err := json.Marshal(similarityRequest{
		TextA: submission.Title + " " + submission.Description,
		TextB: candidate.Title + " " + candidate.Description,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/similarity", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		log.WithError(err).Warn("similarity request failed")
		return 0, ErrClassifierUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.WithField("status", resp.StatusCode).Warnf("similarity service error: %s", body)
		return 0, fmt.Errorf("%w: status %d", ErrClassifierUnavailable, resp.StatusCode)
	}

	var result similarityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	if result.Score < 0 || result.Score > 1 {
		return 0, fmt.Errorf("similarity score %f out of range", result.Score)
	}
	return result.Score, nil
}
