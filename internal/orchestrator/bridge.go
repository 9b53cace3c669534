package orchestrator

import (
	"time"

	"streamchat/internal/attachment"
	"streamchat/internal/cache"
	"streamchat/internal/logging"
)

type correlation struct {
	id          string
	attachments []attachment.Attachment
}

// bridge remembers which user message carried which attachments and turns
// message-list clicks into AttachmentClickEvents.
type bridge struct {
	entries *cache.LRUCache[Message, correlation]
	onClick func(AttachmentClickEvent)
}

func newBridge(capacity int, ttl time.Duration, onClick func(AttachmentClickEvent)) *bridge {
	entries := cache.NewLRUCache[Message, correlation](capacity, ttl)
	// Clicks on an evicted message are ignored from here on.
	entries.OnEvict(func(_ Message, c correlation) {
		logging.Debug("attachment correlation evicted", "message_id", c.id, "attachments", len(c.attachments))
	})
	return &bridge{entries: entries, onClick: onClick}
}

func (b *bridge) record(msg Message, id string, atts []attachment.Attachment) {
	b.entries.Set(msg, correlation{id: id, attachments: atts})
}

func (b *bridge) click(msg Message, index int) {
	if b.onClick == nil || msg == nil {
		return
	}
	corr, ok := b.entries.Get(msg)
	if !ok {
		logging.Debug("attachment click on unknown message ignored", "index", index)
		return
	}
	if index < 0 || index >= len(corr.attachments) {
		logging.Debug("attachment click out of range", "message_id", corr.id, "index", index)
		return
	}
	b.onClick(AttachmentClickEvent{
		MessageID:  corr.id,
		Index:      index,
		Attachment: corr.attachments[index],
	})
}

func (b *bridge) close() { b.entries.Close() }
