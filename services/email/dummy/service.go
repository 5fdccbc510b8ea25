package dummymail

import (
	"sync"

	"github.com/trezcool/darasa/core"
)

// Service records messages instead of sending them; used in tests.
type Service struct {
	mu           sync.Mutex
	SentMessages []core.EmailMessage
}

var _ core.EmailService = (*Service)(nil)

func NewService() *Service {
	return &Service{}
}

func (svc *Service) SendMessages(messages ...*core.EmailMessage) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for _, msg := range messages {
		if err := msg.Render(); err != nil {
			continue
		}
		if msg.HasRecipients() && msg.HasContent() {
			svc.SentMessages = append(svc.SentMessages, *msg)
		}
	}
}

// Sent returns a copy of the recorded messages.
func (svc *Service) Sent() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	out := make([]core.EmailMessage, len(svc.SentMessages))
	copy(out, svc.SentMessages)
	return out
}
