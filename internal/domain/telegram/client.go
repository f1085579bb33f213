package telegram

// Client defines an interface for sending messages via a Telegram bot.
// Used for operator alerts about reminder runs.
type Client interface {
	SendMessage(recipientChatID int64, text string) error
}
