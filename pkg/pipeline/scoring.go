package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

var ErrScoring = errors.New("model scoring failed")

// ScoringClient calls a model served with the MLflow scoring protocol,
// e.g. by `mlflow models serve`.
type ScoringClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewScoringClient(baseURL string, timeout time.Duration) *ScoringClient {
	return &ScoringClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type invocationRequest struct {
	DataframeRecords []map[string]float64 `json:"dataframe_records"`
}

func (s *ScoringClient) Predict(ctx context.Context, rows []map[string]float64) ([]float64, error) {
	body, err := json.Marshal(invocationRequest{DataframeRecords: rows})
	if err != nil {
		return nil, fmt.Errorf("failed to encode invocation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/invocations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create invocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScoring, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrScoring, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := gjson.GetBytes(data, "message").String()
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}

		return nil, fmt.Errorf("%w: status %d: %s", ErrScoring, resp.StatusCode, message)
	}

	return parsePredictions(data, len(rows))
}

// parsePredictions accepts {"predictions": [...]} as well as the bare list
// returned by older scoring servers.
func parsePredictions(data []byte, expected int) ([]float64, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json response", ErrScoring)
	}

	result := gjson.ParseBytes(data)
	if !result.IsArray() {
		result = result.Get("predictions")
	}

	if !result.IsArray() {
		return nil, fmt.Errorf("%w: response has no predictions", ErrScoring)
	}

	values := result.Array()
	if len(values) != expected {
		return nil, fmt.Errorf("%w: expected %d predictions, got %d", ErrScoring, expected, len(values))
	}

	predictions := make([]float64, 0, len(values))
	for _, value := range values {
		// Models with a single output column may answer [[x], ...].
		if value.IsArray() {
			value = value.Get("0")
		}
		if value.Type != gjson.Number {
			return nil, fmt.Errorf("%w: prediction %s is not a number", ErrScoring, value.Raw)
		}
		predictions = append(predictions, value.Float())
	}

	return predictions, nil
}

// Ping probes the readiness endpoint of the scoring server.
func (s *ScoringClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/ping", nil)
	if err != nil {
		return fmt.Errorf("failed to create ping request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScoring, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned status %d", ErrScoring, resp.StatusCode)
	}

	return nil
}
