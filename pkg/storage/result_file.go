package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Item statuses recorded in a result file.
const (
	StatusPassed   = "passed"
	StatusFiltered = "filtered"
	StatusFailed   = "failed"
)

// ItemError describes why one artifact failed.
type ItemError struct {
	Code    string `json:"code"`
	Unit    string `json:"unit,omitempty"`
	Message string `json:"message"`
}

// ItemResult is the outcome of one artifact in a run.
type ItemResult struct {
	Status   string     `json:"status"`
	Category string     `json:"category,omitempty"`
	Facets   []string   `json:"facets,omitempty"`
	Error    *ItemError `json:"error,omitempty"`
}

// RunSummary counts item outcomes.
type RunSummary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Filtered int `json:"filtered"`
	Failed   int `json:"failed"`
}

// ResultFile is the document written once per chain run.
// Items is keyed by artifact (source) ID.
type ResultFile struct {
	Chain      string                 `json:"chain"`
	RunID      string                 `json:"run_id"`
	StartedAt  time.Time              `json:"started_at"`
	DurationMs int64                  `json:"duration_ms"`
	Summary    RunSummary             `json:"summary"`
	RunError   string                 `json:"run_error,omitempty"`
	Items      map[string]*ItemResult `json:"items"`
}

// ResultFileClient writes and reads run result files.
type ResultFileClient struct {
	blobClient BlobClient
	prefix     string
	logger     *zap.Logger
}

// NewResultFileClient creates a client storing files under prefix (e.g. "results/").
func NewResultFileClient(blobClient BlobClient, prefix string, logger *zap.Logger) *ResultFileClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ResultFileClient{
		blobClient: blobClient,
		prefix:     prefix,
		logger:     logger,
	}
}

// Path returns the blob path of a run's result file.
func (c *ResultFileClient) Path(chainName, runID string) string {
	return fmt.Sprintf("%s%s/%s/results.json", c.prefix, chainName, runID)
}

// Write uploads rf and returns the blob URL.
func (c *ResultFileClient) Write(ctx context.Context, rf *ResultFile) (string, error) {
	if c.blobClient == nil {
		return "", fmt.Errorf("blob client not initialized")
	}
	if rf == nil || rf.RunID == "" {
		return "", fmt.Errorf("result file needs a run id")
	}

	data, err := json.Marshal(rf)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result file: %w", err)
	}

	blobPath := c.Path(rf.Chain, rf.RunID)
	blobURL, err := c.blobClient.Upload(ctx, blobPath, data, map[string]string{
		"chain":      rf.Chain,
		"run_id":     rf.RunID,
		"item_count": strconv.Itoa(len(rf.Items)),
		"failed":     strconv.Itoa(rf.Summary.Failed),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload result file: %w", err)
	}

	c.logger.Info("Wrote run result file",
		zap.String("chain", rf.Chain),
		zap.String("run_id", rf.RunID),
		zap.Int("items", len(rf.Items)),
		zap.Int("size_bytes", len(data)),
		zap.String("blob_path", blobPath))
	return blobURL, nil
}

// Read downloads and parses a run's result file.
func (c *ResultFileClient) Read(ctx context.Context, chainName, runID string) (*ResultFile, error) {
	if c.blobClient == nil {
		return nil, fmt.Errorf("blob client not initialized")
	}
	data, err := c.blobClient.Download(ctx, c.Path(chainName, runID))
	if err != nil {
		return nil, fmt.Errorf("failed to download result file: %w", err)
	}
	var rf ResultFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse result file: %w", err)
	}
	return &rf, nil
}

// Runs lists the run IDs that have a result file for chainName.
func (c *ResultFileClient) Runs(ctx context.Context, chainName string) ([]string, error) {
	prefix := fmt.Sprintf("%s%s/", c.prefix, chainName)
	names, err := c.blobClient.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var runs []string
	for _, name := range names {
		rest := strings.TrimPrefix(name, prefix)
		runID, file, ok := strings.Cut(rest, "/")
		if ok && file == "results.json" {
			runs = append(runs, runID)
		}
	}
	return runs, nil
}
