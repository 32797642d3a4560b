package movement

import "sync"

// NoticeLevel classifies a user-facing notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// Notice is a non-blocking, user-facing message emitted by the movement
// service (the equivalent of a toast).
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Notifier receives user-facing notices.
type Notifier interface {
	Notify(n Notice)
}

// NoticeLog collects notices; used by the API layer to return them per
// request and by tests to assert on them.
type NoticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *NoticeLog) Notify(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

// Notices returns a copy of the collected notices.
func (l *NoticeLog) Notices() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notice, len(l.notices))
	copy(out, l.notices)
	return out
}

// notify is nil-safe; callers that don't care about notices pass nil.
func notify(n Notifier, level NoticeLevel, message string) {
	if n == nil {
		return
	}
	n.Notify(Notice{Level: level, Message: message})
}
