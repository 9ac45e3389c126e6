package telegram

// Wire types for the Bot API subset this service consumes. Fields not read
// anywhere are left out on purpose.

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID    int        `json:"message_id"`
	From         *User      `json:"from"`
	Chat         Chat       `json:"chat"`
	Text         string     `json:"text"`
	MediaGroupID string     `json:"media_group_id"`
	Video        *Video     `json:"video"`
	VideoNote    *VideoNote `json:"video_note"`
	Document     *Document  `json:"document"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type Video struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

type VideoNote struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	FileSize int64  `json:"file_size"`
}

type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

type File struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	FilePath string `json:"file_path"`
}

// ChatInfo is the getChat result, reduced to the permission flag the
// delivery ladder pre-checks.
type ChatInfo struct {
	ID          int64            `json:"id"`
	Type        string           `json:"type"`
	Permissions *ChatPermissions `json:"permissions"`
}

type ChatPermissions struct {
	CanSendVideoNotes *bool `json:"can_send_video_notes"`
}
