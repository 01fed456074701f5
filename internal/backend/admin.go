package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AdminClient calls the backend's admin endpoints with the service-role key.
type AdminClient struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
}

// NewAdminClient constructs an AdminClient for the given backend URL and
// service-role key.
func NewAdminClient(baseURL, serviceKey string, opts ...Option) *AdminClient {
	hc := &http.Client{Timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(hc)
	}
	return &AdminClient{
		httpClient: hc,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
	}
}

// CreateUser provisions a new backend user.
func (c *AdminClient) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, authPath+"/admin/users", params, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID fetches a user record by ID.
func (c *AdminClient) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, authPath+"/admin/users/"+url.PathEscape(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserByID patches a user record. Only non-nil fields are sent.
func (c *AdminClient) UpdateUserByID(ctx context.Context, id string, params UpdateUserParams) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPut, authPath+"/admin/users/"+url.PathEscape(id), params, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns one page of users. Pages are 1-based; perPage caps at the
// backend's own limit.
func (c *AdminClient) ListUsers(ctx context.Context, page, perPage int) (*UserList, error) {
	path := authPath + "/admin/users"
	values := url.Values{}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		values.Set("per_page", strconv.Itoa(perPage))
	}
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var list UserList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GenerateLink asks the backend to issue a passwordless sign-in link of the
// given type (e.g. "magiclink") for the email.
func (c *AdminClient) GenerateLink(ctx context.Context, linkType, email string) (*GeneratedLink, error) {
	payload := map[string]string{
		"type":  linkType,
		"email": email,
	}

	var link GeneratedLink
	if err := c.do(ctx, http.MethodPost, authPath+"/admin/generate_link", payload, &link); err != nil {
		return nil, err
	}
	if link.ActionLink == "" {
		return nil, fmt.Errorf("backend: generate_link returned no action link")
	}
	return &link, nil
}

func (c *AdminClient) do(ctx context.Context, method, path string, payload, out any) error {
	return doRequest(ctx, c.httpClient, method, c.baseURL+path, c.serviceKey, c.serviceKey, payload, out)
}
