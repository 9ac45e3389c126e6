package pipeline

import (
	"strings"

	"rondo/internal/model"
	"rondo/internal/telegram"
)

// extractRequest pulls a transcodable media reference out of a message.
// Documents only qualify when their declared mime type is video/*; the
// second return distinguishes "no media at all" from "document but not a
// video", which gets its own user-facing hint.
func extractRequest(msg *telegram.Message) (model.Request, extractResult) {
	req := model.Request{
		ChatID:       msg.Chat.ID,
		MessageID:    msg.MessageID,
		MediaGroupID: msg.MediaGroupID,
	}
	if msg.From != nil {
		req.UserID = msg.From.ID
	}

	switch {
	case msg.Video != nil:
		req.FileID = msg.Video.FileID
		req.Kind = model.KindVideo
		req.DeclaredSize = msg.Video.FileSize
		req.DeclaredDur = msg.Video.Duration
		return req, extractOK
	case msg.VideoNote != nil:
		req.FileID = msg.VideoNote.FileID
		req.Kind = model.KindVideoNote
		req.DeclaredSize = msg.VideoNote.FileSize
		req.DeclaredDur = msg.VideoNote.Duration
		return req, extractOK
	case msg.Document != nil:
		if !strings.HasPrefix(strings.ToLower(msg.Document.MimeType), "video/") {
			return model.Request{}, extractNotVideo
		}
		req.FileID = msg.Document.FileID
		req.Kind = model.KindDocument
		req.DeclaredSize = msg.Document.FileSize
		return req, extractOK
	}
	return model.Request{}, extractNoMedia
}

type extractResult int

const (
	extractOK extractResult = iota
	extractNoMedia
	extractNotVideo
)
