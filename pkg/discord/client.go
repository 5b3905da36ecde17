package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
)

const (
	defaultBaseURL = "https://discord.com/api/v10"
	defaultTimeout = 10 * time.Second

	responseBodyReadLimit int64 = 1024
)

var (
	errBotTokenRequired = errors.New("discord bot token is required")
	errGuildIDRequired  = errors.New("discord guild id is required")
)

// Client manages guild member roles through the Discord REST API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	botToken    string
	guildID     string
	auditReason string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the request timeout applied by the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithAuditReason sets the reason recorded in the guild audit log for role changes.
func WithAuditReason(reason string) Option {
	return func(c *Client) {
		c.auditReason = strings.TrimSpace(reason)
	}
}

// NewClient builds a role client bound to one guild.
func NewClient(botToken, guildID string, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(botToken)
	if token == "" {
		return nil, errBotTokenRequired
	}
	guild := strings.TrimSpace(guildID)
	if guild == "" {
		return nil, errGuildIDRequired
	}

	client := &Client{
		botToken:   token,
		guildID:    guild,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// GuildID returns the guild the client operates on.
func (c *Client) GuildID() string {
	if c == nil {
		return ""
	}
	return c.guildID
}

// MemberRoles lists the role ids currently held by the member.
func (c *Client) MemberRoles(ctx context.Context, memberID string) ([]string, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "discord client not configured")
	}
	path, err := c.memberPath(memberID)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, "fetch guild member"); err != nil {
		return nil, err
	}

	var member struct {
		Roles []string `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode guild member")
	}
	return member.Roles, nil
}

// HasRole reports whether the member currently holds roleID.
func (c *Client) HasRole(ctx context.Context, memberID, roleID string) (bool, error) {
	roles, err := c.MemberRoles(ctx, memberID)
	if err != nil {
		return false, err
	}
	return slices.Contains(roles, roleID), nil
}

// AddRole grants roleID to the member. Granting a held role is a no-op upstream.
func (c *Client) AddRole(ctx context.Context, memberID, roleID string) error {
	return c.changeRole(ctx, http.MethodPut, memberID, roleID, "add member role")
}

// RemoveRole revokes roleID from the member. Revoking an absent role is a no-op upstream.
func (c *Client) RemoveRole(ctx context.Context, memberID, roleID string) error {
	return c.changeRole(ctx, http.MethodDelete, memberID, roleID, "remove member role")
}

func (c *Client) changeRole(ctx context.Context, method, memberID, roleID, action string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "discord client not configured")
	}
	path, err := c.memberPath(memberID)
	if err != nil {
		return err
	}
	role := strings.TrimSpace(roleID)
	if role == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "role id is required")
	}

	resp, err := c.do(ctx, method, path+"/roles/"+url.PathEscape(role))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return checkStatus(resp, action)
}

func (c *Client) memberPath(memberID string) (string, error) {
	trimmed := strings.TrimSpace(memberID)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	return fmt.Sprintf("guilds/%s/members/%s", url.PathEscape(c.guildID), url.PathEscape(trimmed)), nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build discord request")
	}
	req.Header.Set("Authorization", "Bot "+c.botToken)
	if c.auditReason != "" && method != http.MethodGet {
		req.Header.Set("X-Audit-Log-Reason", url.QueryEscape(c.auditReason))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute discord request")
	}
	return resp, nil
}

func checkStatus(resp *http.Response, action string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, action+" failed")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, action+" failed")
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}
