package service

import (
	"sync"
	"time"

	"relayhub/internal/models"

	"github.com/sirupsen/logrus"
)

// IntakeBuffer absorbs inbound media events ahead of the periodic fan-out.
// Standalone items go straight into the owning sender's pending queue.
// Items that belong to a media group are held in a transient per-group
// collection first: the transport delivers album members as independent
// events with no terminal marker, so a quiet-period timer armed at first
// sight of the group key is the only reliable end-of-album signal. When the
// timer fires, the whole group moves into the sender queue as one ordered
// batch and the key retires; a later arrival under the same key starts a
// fresh group.
type IntakeBuffer struct {
	mu       sync.Mutex
	queues   map[int64][]models.MediaItem
	groups   map[string][]models.MediaItem
	debounce time.Duration
	logger   *logrus.Logger
}

func NewIntakeBuffer(debounce time.Duration, logger *logrus.Logger) *IntakeBuffer {
	return &IntakeBuffer{
		queues:   make(map[int64][]models.MediaItem),
		groups:   make(map[string][]models.MediaItem),
		debounce: debounce,
		logger:   logger,
	}
}

// Ingest appends an item to its sender's pending queue, or to its transient
// group collection when the item arrived as part of a media group.
func (b *IntakeBuffer) Ingest(item models.MediaItem) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if item.GroupKey == "" {
		b.queues[item.SenderID] = append(b.queues[item.SenderID], item)
		return
	}

	group, armed := b.groups[item.GroupKey]
	b.groups[item.GroupKey] = append(group, item)
	if !armed {
		key := item.GroupKey
		time.AfterFunc(b.debounce, func() {
			b.flushGroup(key)
		})
	}
}

// flushGroup moves a debounced group into its sender's queue and retires
// the group key. Members ingested up to this moment are included.
func (b *IntakeBuffer) flushGroup(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.groups[key]
	delete(b.groups, key)
	if len(items) == 0 {
		return
	}

	senderID := items[0].SenderID
	b.queues[senderID] = append(b.queues[senderID], items...)

	b.logger.WithFields(logrus.Fields{
		"groupKey": key,
		"senderId": senderID,
		"items":    len(items),
	}).Debug("Media group flushed to sender queue")
}

// DrainAll atomically swaps out the whole sender-to-queue mapping and
// returns it. An item is observed by exactly one drain generation; groups
// still debouncing are untouched and land in a later generation.
func (b *IntakeBuffer) DrainAll() map[int64][]models.MediaItem {
	b.mu.Lock()
	defer b.mu.Unlock()

	drained := b.queues
	b.queues = make(map[int64][]models.MediaItem)
	return drained
}
