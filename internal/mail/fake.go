package mail

import (
	"context"
	"sync"
)

// Sent is one message captured by Recorder.
type Sent struct {
	Subject    string
	Body       string
	Recipients []string
}

// Recorder is an in-memory Mailer for tests. Set Err to make every send fail.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

func (r *Recorder) SendTo(_ context.Context, subject, body string, recipients ...string) error {
	if r.Err != nil {
		return r.Err
	}
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{Subject: subject, Body: body, Recipients: recipients})
	return nil
}

func (r *Recorder) IsEnabled() bool { return true }

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}
