package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/deliveryeta/registryops/pkg/config"
	"github.com/deliveryeta/registryops/pkg/contract"
	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/registry"
)

const (
	getLatestVersionsPath = "/api/2.0/mlflow/registered-models/get-latest-versions"
	transitionStagePath   = "/api/2.0/mlflow/model-versions/transition-stage"
	getDownloadURIPath    = "/api/2.0/mlflow/model-versions/get-download-uri"
)

// Client talks to the model registry of an MLflow tracking server over its REST API.
type Client struct {
	logger     *logrus.Logger
	baseURL    string
	username   string
	token      string
	userAgent  string
	httpClient *http.Client
}

var _ registry.Registry = (*Client)(nil)

func NewClient(logger *logrus.Logger, cfg *config.Config) *Client {
	return &Client{
		logger:    logger,
		baseURL:   cfg.TrackingURI,
		username:  cfg.Username,
		token:     cfg.Token,
		userAgent: "registryops/" + cfg.Version,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

func (c *Client) do(
	ctx context.Context, method, path string, query url.Values, payload any,
) (gjson.Result, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("failed to encode request for %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request for %s: %w", path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" || c.token != "" {
		req.SetBasicAuth(c.username, c.token)
	}

	c.logger.Debugf("Registry request: %s %s", method, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %s %s: %w", registry.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: reading response of %s: %w", registry.ErrUnavailable, path, err)
	}

	c.logger.Debugf("Registry response: %d %s %s", resp.StatusCode, method, path)

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return gjson.ParseBytes(data), nil
	}

	return gjson.Result{}, newResponseError(resp.StatusCode, data)
}

func newResponseError(status int, data []byte) error {
	code := contract.ErrorCodeFromStatus(status)
	message := http.StatusText(status)

	if gjson.ValidBytes(data) {
		result := gjson.ParseBytes(data)
		if value := result.Get("error_code").String(); value != "" {
			code = contract.ErrorCode(value)
		}
		if value := result.Get("message").String(); value != "" {
			message = value
		}
	}

	err := contract.NewError(code, message)

	switch {
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", registry.ErrUnavailable, err)
	default:
		return err
	}
}

func isResourceMissing(err error) bool {
	var cErr *contract.Error

	return errors.As(err, &cErr) && cErr.Code == contract.ErrorCodeResourceDoesNotExist
}

type getLatestVersionsRequest struct {
	Name   string   `json:"name"`
	Stages []string `json:"stages"`
}

func (c *Client) GetLatestVersion(
	ctx context.Context, name string, stage entities.Stage,
) (*entities.ModelVersion, error) {
	result, err := c.do(ctx, http.MethodPost, getLatestVersionsPath, nil, getLatestVersionsRequest{
		Name:   name,
		Stages: []string{stage.String()},
	})
	if err != nil {
		if isResourceMissing(err) {
			c.logger.Debugf("Registered model %q does not exist", name)

			return nil, nil
		}

		return nil, fmt.Errorf("failed to get latest %s version of %q: %w", stage, name, err)
	}

	versions := result.Get("model_versions").Array()
	if len(versions) == 0 {
		return nil, nil
	}

	return parseModelVersion(versions[0])
}

type transitionStageRequest struct {
	Name                    string `json:"name"`
	Version                 string `json:"version"`
	Stage                   string `json:"stage"`
	ArchiveExistingVersions bool   `json:"archive_existing_versions"`
}

func (c *Client) TransitionStage(
	ctx context.Context,
	name string,
	version int64,
	stage entities.Stage,
	archiveExisting bool,
) (*entities.ModelVersion, error) {
	result, err := c.do(ctx, http.MethodPost, transitionStagePath, nil, transitionStageRequest{
		Name:                    name,
		Version:                 strconv.FormatInt(version, 10),
		Stage:                   stage.String(),
		ArchiveExistingVersions: archiveExisting,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to transition %q version %d to %s: %w", name, version, stage, err)
	}

	return parseModelVersion(result.Get("model_version"))
}

func (c *Client) GetDownloadURI(ctx context.Context, name string, version int64) (string, error) {
	query := url.Values{}
	query.Set("name", name)
	query.Set("version", strconv.FormatInt(version, 10))

	result, err := c.do(ctx, http.MethodGet, getDownloadURIPath, query, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get download uri of %q version %d: %w", name, version, err)
	}

	uri := result.Get("artifact_uri").String()
	if uri == "" {
		return "", contract.NewError(
			contract.ErrorCodeResourceDoesNotExist,
			fmt.Sprintf("model version %q (%d) has no artifact uri", name, version),
		)
	}

	return uri, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()

	return nil
}

func parseModelVersion(result gjson.Result) (*entities.ModelVersion, error) {
	if !result.Exists() {
		return nil, contract.NewError(contract.ErrorCodeInternalError, "registry response has no model version")
	}

	// The REST API serialises versions as strings.
	version, err := strconv.ParseInt(result.Get("version").String(), 10, 64)
	if err != nil {
		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("invalid model version %q in registry response", result.Get("version").String()),
			err,
		)
	}

	stage, err := entities.ParseStage(result.Get("current_stage").String())
	if err != nil {
		stage = entities.Stage(result.Get("current_stage").String())
	}

	return &entities.ModelVersion{
		Name:                 result.Get("name").String(),
		Version:              version,
		CurrentStage:         stage,
		Source:               result.Get("source").String(),
		RunID:                result.Get("run_id").String(),
		Status:               result.Get("status").String(),
		CreationTimestamp:    result.Get("creation_timestamp").Int(),
		LastUpdatedTimestamp: result.Get("last_updated_timestamp").Int(),
	}, nil
}
