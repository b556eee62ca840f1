// Package chat holds the chat-side domain model shared by the registration,
// access and listing features.
package chat

import "encoding/json"

// Role is a member's standing in a chat as reported by the transport.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Info is the cached chat descriptor persisted under the chat_info_ prefix.
type Info struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Marshal serializes the descriptor to the persisted form.
func (i Info) Marshal() (string, error) {
	b, err := json.Marshal(i)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalInfo parses a persisted chat descriptor.
func UnmarshalInfo(data string) (Info, error) {
	var info Info
	err := json.Unmarshal([]byte(data), &info)
	return info, err
}
