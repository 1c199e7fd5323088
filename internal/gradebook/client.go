package gradebook

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
)

// User is an enrolled course member.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SortableName string `json:"sortable_name"`
	LoginID      string `json:"login_id"`
	Email        string `json:"email"`
}

// Column is a custom gradebook column.
type Column struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Hidden   bool   `json:"hidden"`
}

// Cell is one value of a custom column.
type Cell struct {
	UserID  int64  `json:"user_id"`
	Content string `json:"content"`
}

// Client talks to the Canvas LMS REST API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client for a Canvas host such as https://cuesta.instructure.com.
// With skip set every call succeeds without touching the network.
func New(baseURL, token string, skip bool) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		Token:   token,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SearchCourseUsers finds enrolled users matching term (login, email or name).
func (c *Client) SearchCourseUsers(ctx context.Context, courseID int64, term string, enrollmentTypes ...string) ([]User, error) {
	if c.Skip {
		return []User{{ID: 1, Name: term, LoginID: term}}, nil
	}
	q := url.Values{"search_term": {term}}
	for _, t := range enrollmentTypes {
		q.Add("enrollment_type[]", t)
	}
	var users []User
	_, err := c.do(ctx, http.MethodGet, c.courseURL(courseID, "users")+"?"+q.Encode(), nil, &users)
	return users, err
}

// ListCourseUsers returns the whole roster, following Link pagination.
func (c *Client) ListCourseUsers(ctx context.Context, courseID int64, enrollmentTypes ...string) ([]User, error) {
	if c.Skip {
		return nil, nil
	}
	q := url.Values{"per_page": {"100"}}
	for _, t := range enrollmentTypes {
		q.Add("enrollment_type[]", t)
	}
	next := c.courseURL(courseID, "users") + "?" + q.Encode()

	var all []User
	for next != "" {
		var page []User
		resp, err := c.do(ctx, http.MethodGet, next, nil, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		next = nextLink(resp.Header.Get("Link"))
	}
	return all, nil
}

// ListColumns returns the course's custom gradebook columns.
func (c *Client) ListColumns(ctx context.Context, courseID int64) ([]Column, error) {
	if c.Skip {
		return nil, nil
	}
	var cols []Column
	_, err := c.do(ctx, http.MethodGet, c.courseURL(courseID, "custom_gradebook_columns"), nil, &cols)
	return cols, err
}

// CreateColumn adds a column and returns its id.
func (c *Client) CreateColumn(ctx context.Context, courseID int64, title string, position int, hidden bool) (int64, error) {
	if c.Skip {
		return int64(position), nil
	}
	body := map[string]any{"column": map[string]any{"title": title, "position": position, "hidden": hidden}}
	var col Column
	if _, err := c.do(ctx, http.MethodPost, c.courseURL(courseID, "custom_gradebook_columns"), body, &col); err != nil {
		return 0, err
	}
	return col.ID, nil
}

// WriteCell sets one user's value in a column.
func (c *Client) WriteCell(ctx context.Context, courseID, columnID, userID int64, content string) error {
	if c.Skip {
		return nil
	}
	path := fmt.Sprintf("custom_gradebook_columns/%d/data/%d", columnID, userID)
	body := map[string]any{"column_data": map[string]string{"content": content}}
	_, err := c.do(ctx, http.MethodPut, c.courseURL(courseID, path), body, nil)
	return err
}

// ReadColumnData returns every non-empty cell of a column.
func (c *Client) ReadColumnData(ctx context.Context, courseID, columnID int64) ([]Cell, error) {
	if c.Skip {
		return nil, nil
	}
	var cells []Cell
	path := fmt.Sprintf("custom_gradebook_columns/%d/data", columnID)
	_, err := c.do(ctx, http.MethodGet, c.courseURL(courseID, path), nil, &cells)
	return cells, err
}

func (c *Client) courseURL(courseID int64, path string) string {
	return fmt.Sprintf("%s/courses/%d/%s", c.BaseURL, courseID, path)
}

func (c *Client) do(ctx context.Context, method, target string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("canvas request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp, fmt.Errorf("canvas error %s: %s", resp.Status, string(b))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp, nil
}

// nextLink extracts rel="next" from an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		for _, p := range segs[1:] {
			if strings.TrimSpace(p) == `rel="next"` {
				return strings.Trim(strings.TrimSpace(segs[0]), "<>")
			}
		}
	}
	return ""
}
