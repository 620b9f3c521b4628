// Package widget 将聊天窗口的界面状态建模为不可变值，由 reducer 更新，
// 投递处理器与回复链之间不共享隐式状态。
package widget

import (
	"strings"
	"sync"

	"github.com/zhouzirui/chattia/backend/internal/model/chat"
)

// Message 是窗口中的一条气泡。
type Message struct {
	Text   string      `json:"text"`
	Sender chat.Sender `json:"sender"`
}

// State 是窗口状态快照。
type State struct {
	Messages []Message `json:"messages"`
	Draft    string    `json:"draft"`
	DarkMode bool      `json:"darkMode"`
	// Pending 为尚未收到回复的提交数
	Pending int `json:"pending"`
}

// NewState 返回初始状态：机器人开场白与已保存的主题偏好。
func NewState(greeting string, darkMode bool) State {
	s := State{DarkMode: darkMode}
	if greeting != "" {
		s.Messages = []Message{{Text: greeting, Sender: chat.SenderBot}}
	}
	return s
}

// Last 返回最新一条消息。
func (s State) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Event 是 Reduce 的输入。
type Event interface {
	isEvent()
}

// DraftChanged 替换输入框中的文本。
type DraftChanged struct{ Text string }

// Submitted 发送当前草稿，空白草稿忽略。
type Submitted struct{}

// ReplyReceived 追加一条机器人回复。
type ReplyReceived struct{ Text string }

// ThemeToggled 切换深色模式。
type ThemeToggled struct{}

func (DraftChanged) isEvent()  {}
func (Submitted) isEvent()     {}
func (ReplyReceived) isEvent() {}
func (ThemeToggled) isEvent()  {}

// Reduce 返回处理 e 之后的状态，不修改 s。
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case DraftChanged:
		s.Draft = ev.Text
	case Submitted:
		text := strings.TrimSpace(s.Draft)
		if text == "" {
			return s
		}
		s.Messages = appendMessage(s.Messages, Message{Text: text, Sender: chat.SenderUser})
		s.Draft = ""
		s.Pending++
	case ReplyReceived:
		s.Messages = appendMessage(s.Messages, Message{Text: ev.Text, Sender: chat.SenderBot})
		if s.Pending > 0 {
			s.Pending--
		}
	case ThemeToggled:
		s.DarkMode = !s.DarkMode
	}
	return s
}

// appendMessage 先复制再追加，旧快照不受影响
func appendMessage(log []Message, m Message) []Message {
	out := make([]Message, len(log), len(log)+1)
	copy(out, log)
	return append(out, m)
}

// Store 串行处理同一窗口状态上的事件。
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore 包装初始状态。
func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// Dispatch 应用 e 并返回前后两个状态。
func (st *Store) Dispatch(e Event) (prev, next State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	prev = st.state
	st.state = Reduce(st.state, e)
	return prev, st.state
}

// Snapshot 返回当前状态。
func (st *Store) Snapshot() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}
