package chat

import "time"

// Sender 标识消息的发送方。
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid 判断发送方是否合法。
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// Message 是会话记录中不可变的一条消息。
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
