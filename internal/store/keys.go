package store

import "strconv"

// Index prefixes. These strings are the persisted layout; changing any of
// them is a data migration.
const (
	PrefixChatAddress  = "chat_addr_"
	PrefixUserAddress  = "user_addr_"
	PrefixAddressChats = "addr_chat_"
	PrefixChatInfo     = "chat_info_"
	PrefixChatLink     = "chat_link_"
)

// ChatAddressKey maps a chat to its bound shareholder address.
func ChatAddressKey(chatID int64) string {
	return PrefixChatAddress + strconv.FormatInt(chatID, 10)
}

// UserAddressKey maps a platform user to their verified wallet address.
func UserAddressKey(userID int64) string {
	return PrefixUserAddress + strconv.FormatInt(userID, 10)
}

// AddressChatsPrefix bounds the holder set of a shareholder address; scanning
// it enumerates every chat gated by that address.
func AddressChatsPrefix(address string) string {
	return PrefixAddressChats + address + "_"
}

// AddressChatKey is the holder-set membership entry for one chat. The value
// stored under it is the decimal chat id.
func AddressChatKey(address string, chatID int64) string {
	return AddressChatsPrefix(address) + strconv.FormatInt(chatID, 10)
}

// ChatInfoKey maps a chat to its cached serialized descriptor.
func ChatInfoKey(chatID int64) string {
	return PrefixChatInfo + strconv.FormatInt(chatID, 10)
}

// ChatLinkKey maps a chat to its cached join-request invite link.
func ChatLinkKey(chatID int64) string {
	return PrefixChatLink + strconv.FormatInt(chatID, 10)
}
