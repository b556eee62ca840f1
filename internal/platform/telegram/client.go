// Package telegram adapts the telego bot API to the transport interfaces
// the core features consume: join-request decisions, role lookups,
// permission control and invite links.
package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"fans3-backend/internal/domain/chat"
)

// inviteLinkName labels the links the bot creates so admins can tell them
// apart from hand-made ones.
const inviteLinkName = "Fans3Bot"

type Client struct {
	bot *telego.Bot
}

func NewClient(bot *telego.Bot) *Client {
	return &Client{bot: bot}
}

// ApproveJoinRequest approves a pending chat join request.
func (c *Client) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	err := c.bot.ApproveChatJoinRequest(&telego.ApproveChatJoinRequestParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("approve join request: %w", err)
	}
	return nil
}

// DeclineJoinRequest declines a pending chat join request.
func (c *Client) DeclineJoinRequest(ctx context.Context, chatID, userID int64) error {
	err := c.bot.DeclineChatJoinRequest(&telego.DeclineChatJoinRequestParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("decline join request: %w", err)
	}
	return nil
}

// MemberRole maps a chat member's Telegram status onto the domain role set.
func (c *Client) MemberRole(ctx context.Context, chatID, userID int64) (chat.Role, error) {
	member, err := c.bot.GetChatMember(&telego.GetChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
	if err != nil {
		return "", fmt.Errorf("get chat member: %w", err)
	}
	switch member.MemberStatus() {
	case telego.MemberStatusCreator:
		return chat.RoleOwner, nil
	case telego.MemberStatusAdministrator:
		return chat.RoleAdmin, nil
	default:
		return chat.RoleMember, nil
	}
}

// MemberInvitesEnabled reports whether plain members may invite others.
func (c *Client) MemberInvitesEnabled(ctx context.Context, chatID int64) (bool, error) {
	info, err := c.bot.GetChat(&telego.GetChatParams{ChatID: tu.ID(chatID)})
	if err != nil {
		return false, fmt.Errorf("get chat: %w", err)
	}
	return info.Permissions != nil && info.Permissions.CanInviteUsers, nil
}

// DisableMemberInvites revokes the members-can-invite permission, keeping
// the rest of the chat's default permissions intact.
func (c *Client) DisableMemberInvites(ctx context.Context, chatID int64) error {
	info, err := c.bot.GetChat(&telego.GetChatParams{ChatID: tu.ID(chatID)})
	if err != nil {
		return fmt.Errorf("get chat: %w", err)
	}
	perms := telego.ChatPermissions{}
	if info.Permissions != nil {
		perms = *info.Permissions
	}
	perms.CanInviteUsers = false
	err = c.bot.SetChatPermissions(&telego.SetChatPermissionsParams{
		ChatID:      tu.ID(chatID),
		Permissions: perms,
	})
	if err != nil {
		return fmt.Errorf("set chat permissions: %w", err)
	}
	return nil
}

// CreateJoinRequestLink creates an invite link that routes joiners through
// join-request approval rather than admitting them directly.
func (c *Client) CreateJoinRequestLink(ctx context.Context, chatID int64) (string, error) {
	link, err := c.bot.CreateChatInviteLink(&telego.CreateChatInviteLinkParams{
		ChatID:             tu.ID(chatID),
		Name:               inviteLinkName,
		CreatesJoinRequest: true,
	})
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}
	return link.InviteLink, nil
}
