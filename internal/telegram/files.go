package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// GetFile resolves a file id to a server-side path for download.
func (c *Client) GetFile(ctx context.Context, fileID string) (File, error) {
	params := url.Values{}
	params.Set("file_id", fileID)
	var f File
	err := c.call(ctx, "getFile", params, &f)
	return f, err
}

// Download fetches the file behind fileID into dst. The two-step
// getFile/fetch dance is the Bot API's only download path.
func (c *Client) Download(ctx context.Context, fileID, dst string) error {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	if f.FilePath == "" {
		return fmt.Errorf("telegram: getFile: empty file_path for %s", fileID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL+"/"+f.FilePath, nil)
	if err != nil {
		return fmt.Errorf("telegram: download: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: download: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: download: unexpected status %d", res.StatusCode)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("telegram: download: %w", err)
	}
	if _, err := io.Copy(out, res.Body); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("telegram: download: write %s: %w", dst, err)
	}
	return out.Close()
}
