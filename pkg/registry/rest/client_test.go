package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deliveryeta/registryops/pkg/config"
	"github.com/deliveryeta/registryops/pkg/contract"
	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/registry"
	"github.com/deliveryeta/registryops/pkg/registry/rest"
)

func newClient(t *testing.T, handler http.HandlerFunc) *rest.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return rest.NewClient(logger, &config.Config{
		TrackingURI:    server.URL,
		Username:       "rider",
		Token:          "secret",
		RequestTimeout: 5 * time.Second,
		Version:        "test",
	})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

	return body
}

func TestGetLatestVersion(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/2.0/mlflow/registered-models/get-latest-versions", r.URL.Path)

		username, token, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rider", username)
		assert.Equal(t, "secret", token)

		body := decodeBody(t, r)
		assert.Equal(t, "delivery_time_pred_model", body["name"])
		assert.Equal(t, []any{"Staging"}, body["stages"])

		_, _ = io.WriteString(w, `{"model_versions": [{
			"name": "delivery_time_pred_model",
			"version": "5",
			"current_stage": "Staging",
			"run_id": "abc123",
			"status": "READY",
			"creation_timestamp": 1718000000000
		}]}`)
	})

	version, err := client.GetLatestVersion(context.Background(), "delivery_time_pred_model", entities.StageStaging)
	require.NoError(t, err)
	require.NotNil(t, version)
	assert.Equal(t, int64(5), version.Version)
	assert.Equal(t, entities.StageStaging, version.CurrentStage)
	assert.Equal(t, "abc123", version.RunID)
	assert.Equal(t, int64(1718000000000), version.CreationTimestamp)
}

func TestGetLatestVersionWithoutVersions(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "empty list", status: http.StatusOK, payload: `{}`},
		{
			name:    "unknown model",
			status:  http.StatusNotFound,
			payload: `{"error_code": "RESOURCE_DOES_NOT_EXIST", "message": "Registered Model with name=x not found"}`,
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(scenario.status)
				_, _ = io.WriteString(w, scenario.payload)
			})

			version, err := client.GetLatestVersion(context.Background(), "x", entities.StageStaging)
			require.NoError(t, err)
			assert.Nil(t, version)
		})
	}
}

func TestTransitionStage(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.0/mlflow/model-versions/transition-stage", r.URL.Path)

		body := decodeBody(t, r)
		assert.Equal(t, map[string]any{
			"name":                      "delivery_time_pred_model",
			"version":                   "7",
			"stage":                     "Production",
			"archive_existing_versions": true,
		}, body)

		_, _ = io.WriteString(w, `{"model_version": {
			"name": "delivery_time_pred_model", "version": "7", "current_stage": "Production"
		}}`)
	})

	version, err := client.TransitionStage(
		context.Background(), "delivery_time_pred_model", 7, entities.StageProduction, true,
	)
	require.NoError(t, err)
	assert.Equal(t, int64(7), version.Version)
	assert.Equal(t, entities.StageProduction, version.CurrentStage)
}

func TestTransitionStageOfUnknownVersion(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error_code": "RESOURCE_DOES_NOT_EXIST", "message": "Model Version not found"}`)
	})

	_, err := client.TransitionStage(context.Background(), "m", 99, entities.StageProduction, true)

	var cErr *contract.Error
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, contract.ErrorCodeResourceDoesNotExist, cErr.Code)
	assert.NotErrorIs(t, err, registry.ErrUnavailable)
}

func TestUnavailableRegistry(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name   string
		status int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "forbidden", status: http.StatusForbidden},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "bad gateway", status: http.StatusBadGateway},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(scenario.status)
				_, _ = io.WriteString(w, "<html>nope</html>")
			})

			_, err := client.GetLatestVersion(context.Background(), "m", entities.StageStaging)
			require.ErrorIs(t, err, registry.ErrUnavailable)
		})
	}
}

func TestUnreachableRegistry(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := rest.NewClient(logger, &config.Config{TrackingURI: url, RequestTimeout: time.Second})

	_, err := client.GetLatestVersion(context.Background(), "m", entities.StageProduction)
	require.ErrorIs(t, err, registry.ErrUnavailable)
}

func TestGetDownloadURI(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "delivery_time_pred_model", r.URL.Query().Get("name"))
		assert.Equal(t, "5", r.URL.Query().Get("version"))

		_, _ = io.WriteString(w, `{"artifact_uri": "mlflow-artifacts:/0/abc123/artifacts/model"}`)
	})

	uri, err := client.GetDownloadURI(context.Background(), "delivery_time_pred_model", 5)
	require.NoError(t, err)
	assert.Equal(t, "mlflow-artifacts:/0/abc123/artifacts/model", uri)
}
