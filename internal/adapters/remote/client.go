// Package remote provides an HTTP client for a remote arbor authority.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arbor/internal/ports"
)

// Client implements ports.Authority over the arbor HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	user       string
	httpClient *http.Client
}

var _ ports.Authority = (*Client)(nil)

// Config holds configuration for creating a remote client.
type Config struct {
	URL           string
	APIKey        string
	User          string // Sent as X-Arbor-User to servers without API keys
	AllowInsecure bool
	Timeout       time.Duration
}

// New creates a new remote client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("server URL is required")
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("server URL must include a host (e.g., http://localhost:8080)")
	}

	// Plain http is only allowed to loopback unless explicitly permitted
	if parsedURL.Scheme == "http" && !cfg.AllowInsecure && !isLoopback(parsedURL.Hostname()) {
		return nil, fmt.Errorf("HTTPS required for remote connections\n\n" +
			"Options:\n" +
			"  1. Use HTTPS: [client] server = \"https://host:8080\"\n" +
			"  2. For trusted networks: add 'allow_insecure = true' to [client] in config.toml")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		user:    cfg.User,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleErrorResponse reads an error response and returns an appropriate error.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
	}

	return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
}

// call posts req to the operation endpoint and decodes the response.
func call[Req, Res any](ctx context.Context, c *Client, op string, req Req) (*Res, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+op, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}
	if c.user != "" {
		httpReq.Header.Set("X-Arbor-User", c.user)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", op, handleErrorResponse(resp))
	}

	var out Res
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, err)
	}
	return &out, nil
}

func (c *Client) RenderNode(ctx context.Context, req ports.RenderNodeRequest) (*ports.RenderNodeResponse, error) {
	return call[ports.RenderNodeRequest, ports.RenderNodeResponse](ctx, c, ports.OpRenderNode, req)
}

func (c *Client) InsertNode(ctx context.Context, req ports.InsertNodeRequest) (*ports.InsertNodeResponse, error) {
	return call[ports.InsertNodeRequest, ports.InsertNodeResponse](ctx, c, ports.OpInsertNode, req)
}

func (c *Client) CreateSubNode(ctx context.Context, req ports.CreateSubNodeRequest) (*ports.CreateSubNodeResponse, error) {
	return call[ports.CreateSubNodeRequest, ports.CreateSubNodeResponse](ctx, c, ports.OpCreateSubNode, req)
}

func (c *Client) DeleteNodes(ctx context.Context, req ports.DeleteNodesRequest) (*ports.Ack, error) {
	return call[ports.DeleteNodesRequest, ports.Ack](ctx, c, ports.OpDeleteNodes, req)
}

func (c *Client) MoveNodes(ctx context.Context, req ports.MoveNodesRequest) (*ports.Ack, error) {
	return call[ports.MoveNodesRequest, ports.Ack](ctx, c, ports.OpMoveNodes, req)
}

func (c *Client) SetNodePosition(ctx context.Context, req ports.SetNodePositionRequest) (*ports.Ack, error) {
	return call[ports.SetNodePositionRequest, ports.Ack](ctx, c, ports.OpSetNodePosition, req)
}

func (c *Client) SplitNode(ctx context.Context, req ports.SplitNodeRequest) (*ports.Ack, error) {
	return call[ports.SplitNodeRequest, ports.Ack](ctx, c, ports.OpSplitNode, req)
}

func (c *Client) SelectAllNodes(ctx context.Context, req ports.SelectAllNodesRequest) (*ports.SelectAllNodesResponse, error) {
	return call[ports.SelectAllNodesRequest, ports.SelectAllNodesResponse](ctx, c, ports.OpSelectAllNodes, req)
}

func (c *Client) InsertBook(ctx context.Context, req ports.InsertBookRequest) (*ports.InsertBookResponse, error) {
	return call[ports.InsertBookRequest, ports.InsertBookResponse](ctx, c, ports.OpInsertBook, req)
}

func (c *Client) InitNodeEdit(ctx context.Context, req ports.InitNodeEditRequest) (*ports.InitNodeEditResponse, error) {
	return call[ports.InitNodeEditRequest, ports.InitNodeEditResponse](ctx, c, ports.OpInitNodeEdit, req)
}

func (c *Client) SaveNode(ctx context.Context, req ports.SaveNodeRequest) (*ports.SaveNodeResponse, error) {
	return call[ports.SaveNodeRequest, ports.SaveNodeResponse](ctx, c, ports.OpSaveNode, req)
}

func (c *Client) SetNodeType(ctx context.Context, req ports.SetNodeTypeRequest) (*ports.Ack, error) {
	return call[ports.SetNodeTypeRequest, ports.Ack](ctx, c, ports.OpSetNodeType, req)
}

func (c *Client) DeleteProperty(ctx context.Context, req ports.DeletePropertyRequest) (*ports.Ack, error) {
	return call[ports.DeletePropertyRequest, ports.Ack](ctx, c, ports.OpDeleteProperty, req)
}

func (c *Client) GetNodePrivileges(ctx context.Context, req ports.GetNodePrivilegesRequest) (*ports.GetNodePrivilegesResponse, error) {
	return call[ports.GetNodePrivilegesRequest, ports.GetNodePrivilegesResponse](ctx, c, ports.OpGetNodePrivileges, req)
}

func (c *Client) AddPrivilege(ctx context.Context, req ports.AddPrivilegeRequest) (*ports.Ack, error) {
	return call[ports.AddPrivilegeRequest, ports.Ack](ctx, c, ports.OpAddPrivilege, req)
}

func (c *Client) RemovePrivilege(ctx context.Context, req ports.RemovePrivilegeRequest) (*ports.Ack, error) {
	return call[ports.RemovePrivilegeRequest, ports.Ack](ctx, c, ports.OpRemovePrivilege, req)
}

func (c *Client) SetCipherKey(ctx context.Context, req ports.SetCipherKeyRequest) (*ports.Ack, error) {
	return call[ports.SetCipherKeyRequest, ports.Ack](ctx, c, ports.OpSetCipherKey, req)
}
