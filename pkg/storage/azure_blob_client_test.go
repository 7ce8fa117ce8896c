package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
)

const azuriteConnectionString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;" +
	"AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;" +
	"BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func TestNewAzureBlobClient(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name             string
		connectionString string
		containerName    string
		logger           *zap.Logger
		errContains      string
	}{
		{
			name:             "nil logger",
			connectionString: azuriteConnectionString,
			containerName:    "artifacts",
			errContains:      "logger is required",
		},
		{
			name:             "empty connection string",
			connectionString: "",
			containerName:    "artifacts",
			logger:           logger,
			errContains:      "connection string is required",
		},
		{
			name:             "empty container name",
			connectionString: azuriteConnectionString,
			containerName:    "",
			logger:           logger,
			errContains:      "container name is required",
		},
		{
			name:             "missing account key",
			connectionString: "AccountName=devstoreaccount1",
			containerName:    "artifacts",
			logger:           logger,
			errContains:      "account name and key are required",
		},
		{
			name:             "azurite endpoint",
			connectionString: azuriteConnectionString,
			containerName:    "artifacts",
			logger:           logger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewAzureBlobClient(tt.connectionString, tt.containerName, tt.logger)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Nil(t, client)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "http://127.0.0.1:10000/devstoreaccount1", client.serviceURL)
		})
	}
}

func TestParseConnectionString(t *testing.T) {
	params := parseConnectionString("AccountName=acc; AccountKey=a2V5==;;BlobEndpoint=http://x/acc;junk")
	assert.Equal(t, "acc", params["AccountName"])
	assert.Equal(t, "a2V5==", params["AccountKey"])
	assert.Equal(t, "http://x/acc", params["BlobEndpoint"])
	assert.NotContains(t, params, "junk")
}

func TestExtractBlobPath(t *testing.T) {
	client, err := NewAzureBlobClient(azuriteConnectionString, "artifacts", zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		reference string
		want      string
	}{
		{"artifacts/a1.json", "a1.json"},
		{"results/c/r/results.json", "results/c/r/results.json"},
		{"http://127.0.0.1:10000/devstoreaccount1/artifacts/a%201.json?sig=abc", "a 1.json"},
		{"/artifacts/nested/a2.json", "nested/a2.json"},
	}
	for _, tt := range tests {
		got, err := client.extractBlobPath(tt.reference)
		require.NoError(t, err, tt.reference)
		assert.Equal(t, tt.want, got, tt.reference)
	}

	_, err = client.extractBlobPath("  ")
	assert.Error(t, err)
}

func TestMemoryBlobClient(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBlobClient()

	url, err := m.Upload(ctx, "artifacts/a1.json", []byte(`{"id":"a1"}`), map[string]string{"origin": "sap"})
	require.NoError(t, err)
	_, err = m.Upload(ctx, "artifacts/a2.json", []byte(`{"id":"a2"}`), nil)
	require.NoError(t, err)
	_, err = m.Upload(ctx, "results/x.json", []byte(`{}`), nil)
	require.NoError(t, err)

	data, err := m.Download(ctx, url)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1"}`, string(data))

	md, ok := m.Metadata("artifacts/a1.json")
	require.True(t, ok)
	assert.Equal(t, "sap", md["origin"])

	names, err := m.List(ctx, "artifacts/")
	require.NoError(t, err)
	assert.Equal(t, []string{"artifacts/a1.json", "artifacts/a2.json"}, names)

	require.NoError(t, m.Delete(ctx, "artifacts/a1.json"))
	_, err = m.Download(ctx, "artifacts/a1.json")
	assert.ErrorIs(t, err, mcerrors.ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "artifacts/a1.json"), mcerrors.ErrNotFound)
}
