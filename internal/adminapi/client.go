// Package adminapi is a small HTTP client for the admin surface, used by
// the terminal admin UI.
package adminapi

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	baseURL *url.URL
	hc      *http.Client
}

type ClientOptions struct {
	Addr     string
	Insecure bool
	Timeout  time.Duration
}

func NewClient(opt ClientOptions) (*Client, error) {
	if opt.Addr == "" {
		return nil, errors.New("addr is required")
	}
	u, err := url.Parse(opt.Addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return nil, errors.New("invalid addr")
	}

	jar, _ := cookiejar.New(nil)
	t := &http.Transport{}
	if strings.EqualFold(u.Scheme, "https") {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: opt.Insecure} //nolint:gosec
	}

	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	hc := &http.Client{Transport: t, Jar: jar, Timeout: timeout}
	return &Client{baseURL: u, hc: hc}, nil
}

// Login authenticates an admin account; the session cookie lands in the jar.
func (c *Client) Login(username, password string) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	req.Username = username
	req.Password = password
	return c.doJSON("POST", "/api/auth/login", req, nil)
}

func (c *Client) Logout() error {
	return c.doJSON("POST", "/api/auth/logout", map[string]string{}, nil)
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

func (c *Client) ListUsers() ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.doJSON("GET", "/api/admin/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *Client) CreateUser(username, email, password, role string) (int64, error) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	req.Username = username
	req.Email = email
	req.Password = password
	req.Role = role

	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.doJSON("POST", "/api/admin/users", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *Client) UpdateUser(id int64, email, role string, active bool) error {
	var req struct {
		Email  string `json:"email"`
		Role   string `json:"role"`
		Active bool   `json:"active"`
	}
	req.Email = email
	req.Role = role
	req.Active = active
	return c.doJSON("PUT", "/api/admin/users/"+itoa(id), req, nil)
}

// DeleteUser soft-deletes: the server keeps the row and marks it inactive.
func (c *Client) DeleteUser(id int64) error {
	return c.doJSON("DELETE", "/api/admin/users/"+itoa(id), nil, nil)
}

func (c *Client) SetUserPassword(id int64, password string) error {
	var req struct {
		Password string `json:"password"`
	}
	req.Password = password
	return c.doJSON("POST", "/api/admin/users/"+itoa(id)+"/password", req, nil)
}

func (c *Client) Settings() (map[string]string, error) {
	var resp struct {
		Settings map[string]string `json:"settings"`
	}
	if err := c.doJSON("GET", "/api/admin/settings", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Settings, nil
}

func (c *Client) PutSetting(key, value string) error {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	req.Key = key
	req.Value = value
	return c.doJSON("PUT", "/api/admin/settings", req, nil)
}

func (c *Client) doJSON(method, path string, body any, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequest(method, u.String(), buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&er)
		if er.Message != "" {
			return errors.New(er.Message)
		}
		return errors.New(resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
