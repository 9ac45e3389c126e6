package telegram

import (
	"context"
	"fmt"
	"net/url"
)

// SendMessage sends a plain text reply.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{}
	params.Set("chat_id", fmt.Sprint(chatID))
	params.Set("text", text)
	return c.call(ctx, "sendMessage", params, nil)
}

// SendChatAction signals an ongoing upload so the client shows a progress
// hint. Best effort; the action expires server-side after a few seconds.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	params := url.Values{}
	params.Set("chat_id", fmt.Sprint(chatID))
	params.Set("action", action)
	return c.call(ctx, "sendChatAction", params, nil)
}

// SendVideoNote uploads the file as a round note. length is the square side
// in pixels.
func (c *Client) SendVideoNote(ctx context.Context, chatID int64, path string, length int) error {
	fields := url.Values{}
	fields.Set("chat_id", fmt.Sprint(chatID))
	fields.Set("length", fmt.Sprint(length))
	return c.upload(ctx, "sendVideoNote", "video_note", path, fields, nil)
}

// SendVideo uploads the file as a regular video.
func (c *Client) SendVideo(ctx context.Context, chatID int64, path, caption string) error {
	fields := url.Values{}
	fields.Set("chat_id", fmt.Sprint(chatID))
	if caption != "" {
		fields.Set("caption", caption)
	}
	fields.Set("supports_streaming", "true")
	return c.upload(ctx, "sendVideo", "video", path, fields, nil)
}

// SendDocument uploads the file without transcoding hints, the last rung of
// the delivery ladder.
func (c *Client) SendDocument(ctx context.Context, chatID int64, path, caption string) error {
	fields := url.Values{}
	fields.Set("chat_id", fmt.Sprint(chatID))
	if caption != "" {
		fields.Set("caption", caption)
	}
	return c.upload(ctx, "sendDocument", "document", path, fields, nil)
}
