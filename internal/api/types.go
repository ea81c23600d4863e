package api

import "time"

// Delivery status values reported by the backend.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message payload types.
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// User is the authenticated user's profile.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	WorkspaceID string `json:"workspace_id"`
}

// TokenResponse is the login response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Workspace is the top-level container channels live in.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel is a named, addressable message thread.
type Channel struct {
	ID            string     `json:"id"`
	WorkspaceID   string     `json:"workspace_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	IsPublic      bool       `json:"is_public"`
	CreatedBy     string     `json:"created_by"`
	MemberCount   int        `json:"member_count"`
	LastMessageAt *time.Time `json:"last_message_at"`
	IsMember      *bool      `json:"is_member"`
}

// ChannelMember is one entry of a channel's member list.
type ChannelMember struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	UserName string    `json:"user_name"`
}

// Message is a server-acknowledged message. ID is server-assigned and
// unique within a channel.
type Message struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channel_id"`
	UserID          string    `json:"user_id"`
	Content         string    `json:"content"`
	StatusTag       string    `json:"status_tag"`
	ParentMessageID string    `json:"parent_message_id"`
	FileURL         string    `json:"file_url"`
	FileType        string    `json:"file_type"`
	FileName        string    `json:"file_name"`
	IsPinned        bool      `json:"is_pinned"`
	DeliveryStatus  string    `json:"delivery_status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	UserName        string    `json:"user_name"`
}

// MessageCreate is the create-message request body. Pointer fields
// marshal to explicit nulls, which is what the backend expects for
// absent values.
type MessageCreate struct {
	Type            string  `json:"type"`
	Content         *string `json:"content"`
	FileURL         *string `json:"file_url"`
	FileType        *string `json:"file_type"`
	FileName        *string `json:"file_name"`
	StatusTag       *string `json:"status_tag"`
	ParentMessageID *string `json:"parent_message_id"`
}

// UploadResult is the response of a multipart file upload. FileName is
// the server-assigned stored name, decoupled from the user-visible one.
type UploadResult struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
}

// Idea is an ideas-hub item, usually derived from a message.
type Idea struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

// IdeaFilters narrows ListIdeas. Empty fields are not sent.
type IdeaFilters struct {
	Status   string
	Category string
	Priority string
}

// IdeaPatch is a partial idea update. Nil fields are omitted.
type IdeaPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

// CalendarEvent is a workspace calendar entry.
type CalendarEvent struct {
	ID          string    `json:"id,omitempty"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// apiError is the backend's error body shape.
type apiError struct {
	Detail string `json:"detail"`
}
