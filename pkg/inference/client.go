// Package inference implements the HTTP client for the external annotation
// recommendation service. Calls are synchronous and sit on the request's
// critical path; any transport failure, timeout, non-2xx status, or
// malformed body surfaces as UpstreamUnavailableError, never as a validation
// error of the annotation itself.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/glosahq/glosa/config"
	"github.com/glosahq/glosa/internal"
	"github.com/glosahq/glosa/pkg/models"
)

var log = internal.GetLogger()

const DefaultTimeout = 30 * time.Second

var _ models.InferenceClient = &Client{}

type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient returns an inference client configured from the application
// config. Proposal fetches are read-style and idempotent, so the client
// retries them; mutation-producing calls never go through this client.
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Inference.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		serverURL:  cfg.Inference.ServerURL,
		httpClient: NewRetryableHTTPClient(cfg.Inference.MaxRetry, timeout),
	}
}

// NewRetryableHTTPClient returns a new retryable HTTP client with the given
// retryMax and timeout.
func NewRetryableHTTPClient(retryMax int, timeout time.Duration) *http.Client {
	retryableHTTPClient := retryablehttp.NewClient()
	retryableHTTPClient.RetryMax = retryMax
	retryableHTTPClient.HTTPClient.Timeout = timeout
	retryableHTTPClient.Logger = internal.NewLeveledLogrus(log)
	retryableHTTPClient.Backoff = retryablehttp.DefaultBackoff
	retryableHTTPClient.CheckRetry = retryablehttp.DefaultRetryPolicy

	return retryableHTTPClient.StandardClient()
}

type proposeMentionsRequest struct {
	DocumentID string                   `json:"document_id"`
	Schema     *models.AnnotationSchema `json:"schema"`
	Tokens     []models.Token           `json:"tokens"`
}

type proposeMentionsResponse struct {
	Spans []models.MentionSpan `json:"spans"`
}

type proposeRelationsRequest struct {
	DocumentID string                   `json:"document_id"`
	Schema     *models.AnnotationSchema `json:"schema"`
	Mentions   []models.Mention         `json:"mentions"`
}

type proposeRelationsResponse struct {
	Relations []models.RelationCandidate `json:"relations"`
}

type proposeEntityGroupsRequest struct {
	DocumentID string                   `json:"document_id"`
	Schema     *models.AnnotationSchema `json:"schema"`
	Mentions   []models.Mention         `json:"mentions"`
}

type proposeEntityGroupsResponse struct {
	Groups []models.EntityGroup `json:"groups"`
}

// ProposeMentions fetches mention span proposals for a document.
func (c *Client) ProposeMentions(
	ctx context.Context,
	documentUUID uuid.UUID,
	schema *models.AnnotationSchema,
	tokens []models.Token,
) ([]models.MentionSpan, error) {
	request := proposeMentionsRequest{
		DocumentID: documentUUID.String(),
		Schema:     schema,
		Tokens:     tokens,
	}
	var response proposeMentionsResponse
	if err := c.post(ctx, "/mentions", request, &response); err != nil {
		return nil, err
	}
	return response.Spans, nil
}

// ProposeRelations fetches relation proposals over the given mentions.
func (c *Client) ProposeRelations(
	ctx context.Context,
	documentUUID uuid.UUID,
	schema *models.AnnotationSchema,
	mentions []models.Mention,
) ([]models.RelationCandidate, error) {
	request := proposeRelationsRequest{
		DocumentID: documentUUID.String(),
		Schema:     schema,
		Mentions:   mentions,
	}
	var response proposeRelationsResponse
	if err := c.post(ctx, "/relations", request, &response); err != nil {
		return nil, err
	}
	return response.Relations, nil
}

// ProposeEntityGroups fetches entity clustering proposals over the given
// mentions.
func (c *Client) ProposeEntityGroups(
	ctx context.Context,
	documentUUID uuid.UUID,
	schema *models.AnnotationSchema,
	mentions []models.Mention,
) ([]models.EntityGroup, error) {
	request := proposeEntityGroupsRequest{
		DocumentID: documentUUID.String(),
		Schema:     schema,
		Mentions:   mentions,
	}
	var response proposeEntityGroupsResponse
	if err := c.post(ctx, "/entity-groups", request, &response); err != nil {
		return nil, err
	}
	return response.Groups, nil
}

func (c *Client) post(ctx context.Context, path string, request, response any) error {
	jsonBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("error marshaling inference request: %w", err)
	}

	url := c.serverURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("error creating inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.NewUpstreamUnavailableError("inference call to "+path+" failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.NewUpstreamUnavailableError(
			fmt.Sprintf("inference call to %s returned status %d", path, resp.StatusCode),
			nil,
		)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NewUpstreamUnavailableError("error reading inference response", err)
	}
	if err := json.Unmarshal(bodyBytes, response); err != nil {
		return models.NewUpstreamUnavailableError("malformed inference response body", err)
	}
	return nil
}
