// Package telegram is a minimal Bot API client: long-poll updates, file
// download, and the three send forms the delivery ladder uses. All outbound
// calls share one rate limiter so bursts of jobs cannot trip the API's
// flood control.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to one bot's API endpoint.
type Client struct {
	base    string // https://api.telegram.org/bot<token>
	fileURL string // https://api.telegram.org/file/bot<token>
	http    *http.Client
	limiter *rate.Limiter
}

// New builds a client for the given token. apiBase defaults to the public
// endpoint; pass a local Bot API server URL to lift the 50 MiB bot limits.
func New(token, apiBase string) *Client {
	base := strings.TrimRight(apiBase, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	return &Client{
		base:    base + "/bot" + token,
		fileURL: base + "/file/bot" + token,
		// Long polls carry their own deadline via context; the transport
		// timeout only bounds uploads, which can be large.
		http: &http.Client{Timeout: 5 * time.Minute},
		// Bot API flood control allows ~30 messages/s overall.
		limiter: rate.NewLimiter(rate.Limit(25), 5),
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func decodeResult(method string, body io.Reader, out any) error {
	var resp apiResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return fmt.Errorf("telegram: %s: decode response: %w", method, err)
	}
	if !resp.OK {
		apiErr := &APIError{Method: method, Code: resp.ErrorCode, Description: resp.Description}
		if resp.Parameters != nil && resp.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(resp.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("telegram: %s: decode result: %w", method, err)
	}
	return nil
}

// call POSTs a form-encoded method call and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer res.Body.Close()
	return decodeResult(method, res.Body, out)
}

// upload POSTs a multipart call with one file part plus scalar fields.
func (c *Client) upload(ctx context.Context, method, fileField, path string, fields url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, vals := range fields {
		for _, v := range vals {
			if err := mw.WriteField(key, v); err != nil {
				return fmt.Errorf("telegram: %s: %w", method, err)
			}
		}
	}
	part, err := mw.CreateFormFile(fileField, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("telegram: %s: read %s: %w", method, path, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+method, &buf)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer res.Body.Close()
	return decodeResult(method, res.Body, out)
}

// GetMe verifies the token and returns the bot's own identity.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var u User
	err := c.call(ctx, "getMe", url.Values{}, &u)
	return u, err
}

// GetUpdates long-polls for updates after offset. timeout is the server-side
// hold in seconds; the request context gets a matching client-side deadline
// with headroom so a stalled connection cannot hang the intake loop.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout+10)*time.Second)
	defer cancel()

	params := url.Values{}
	params.Set("offset", fmt.Sprint(offset))
	params.Set("timeout", fmt.Sprint(timeout))
	params.Set("allowed_updates", `["message"]`)
	var updates []Update
	err := c.call(ctx, "getUpdates", params, &updates)
	return updates, err
}

// GetChat fetches chat metadata, used for the note-capability pre-check.
func (c *Client) GetChat(ctx context.Context, chatID int64) (ChatInfo, error) {
	params := url.Values{}
	params.Set("chat_id", fmt.Sprint(chatID))
	var info ChatInfo
	err := c.call(ctx, "getChat", params, &info)
	return info, err
}

// CanSendVideoNotes resolves the chat's note permission. Private chats carry
// no permission set, which means notes are allowed. A transport failure
// reports known=false so the caller just tries the send.
func (c *Client) CanSendVideoNotes(ctx context.Context, chatID int64) (allowed, known bool) {
	info, err := c.GetChat(ctx, chatID)
	if err != nil {
		return false, false
	}
	if info.Permissions == nil || info.Permissions.CanSendVideoNotes == nil {
		return true, true
	}
	return *info.Permissions.CanSendVideoNotes, true
}
