package metrics

import "sync/atomic"

type Counters struct {
	EnvelopesProcessed uint64 `json:"envelopes_processed"`
	EnvelopesRejected  uint64 `json:"envelopes_rejected"`
	EnvelopesStale     uint64 `json:"envelopes_stale"`
	MessagesApplied    uint64 `json:"messages_applied"`
	ActionsNotApplied  uint64 `json:"actions_not_applied"`
	MessagesFailed     uint64 `json:"messages_failed"`
	SendsSucceeded     uint64 `json:"sends_succeeded"`
	SendsFailed        uint64 `json:"sends_failed"`
	SendsAbandoned     uint64 `json:"sends_abandoned"`
}

func (c *Counters) IncEnvelopesProcessed() {
	atomic.AddUint64(&c.EnvelopesProcessed, 1)
}

func (c *Counters) IncEnvelopesRejected() {
	atomic.AddUint64(&c.EnvelopesRejected, 1)
}

func (c *Counters) IncEnvelopesStale() {
	atomic.AddUint64(&c.EnvelopesStale, 1)
}

func (c *Counters) IncMessagesApplied() {
	atomic.AddUint64(&c.MessagesApplied, 1)
}

func (c *Counters) IncActionsNotApplied() {
	atomic.AddUint64(&c.ActionsNotApplied, 1)
}

func (c *Counters) IncMessagesFailed() {
	atomic.AddUint64(&c.MessagesFailed, 1)
}

func (c *Counters) IncSendsSucceeded() {
	atomic.AddUint64(&c.SendsSucceeded, 1)
}

func (c *Counters) IncSendsFailed() {
	atomic.AddUint64(&c.SendsFailed, 1)
}

func (c *Counters) IncSendsAbandoned() {
	atomic.AddUint64(&c.SendsAbandoned, 1)
}

// Snapshot returns a consistent-enough copy for reporting.
func (c *Counters) Snapshot() Counters {
	return Counters{
		EnvelopesProcessed: atomic.LoadUint64(&c.EnvelopesProcessed),
		EnvelopesRejected:  atomic.LoadUint64(&c.EnvelopesRejected),
		EnvelopesStale:     atomic.LoadUint64(&c.EnvelopesStale),
		MessagesApplied:    atomic.LoadUint64(&c.MessagesApplied),
		ActionsNotApplied:  atomic.LoadUint64(&c.ActionsNotApplied),
		MessagesFailed:     atomic.LoadUint64(&c.MessagesFailed),
		SendsSucceeded:     atomic.LoadUint64(&c.SendsSucceeded),
		SendsFailed:        atomic.LoadUint64(&c.SendsFailed),
		SendsAbandoned:     atomic.LoadUint64(&c.SendsAbandoned),
	}
}
