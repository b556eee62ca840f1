package models

// State is the registration progress of a chat.
//
// Transitions:
//
//	NotAdmin                  -> PendingPermissionLockdown  on bot promotion
//	PendingPermissionLockdown -> PendingOwnerAddress        invites revoked
//	PendingOwnerAddress       -> PendingFirstSale           owner bound address
//	PendingFirstSale          -> Ready                      share supply > 0
//	Ready                     -> PendingFirstSale           owner rebound address
type State string

const (
	StateNotAdmin                  State = "not_admin"
	StatePendingPermissionLockdown State = "pending_permission_lockdown"
	StatePendingOwnerAddress       State = "pending_owner_address"
	StatePendingFirstSale          State = "pending_first_sale"
	StateReady                     State = "ready"
)

// Prompt is an outbound message the flow asks the transport layer to
// render. The flow decides what to say; the bot layer decides how.
type Prompt string

const (
	PromptPromoteBot      Prompt = "promote_bot"
	PromptInvitesDisabled Prompt = "invites_disabled"
	PromptOwnerMustStart  Prompt = "owner_must_start"
	PromptEnterAddress    Prompt = "enter_address"
	PromptOnlyOwner       Prompt = "only_owner"
	PromptInvalidAddress  Prompt = "invalid_address"
	PromptBuyFirstShare   Prompt = "buy_first_share"
	PromptReady           Prompt = "ready"
)

// Result is the outcome of one registration step.
type Result struct {
	State   State
	Prompts []Prompt

	// Address is the chat's bound shareholder address when one is known;
	// buy-link prompts render it.
	Address string
}
