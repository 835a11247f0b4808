package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"relayhub/internal/models"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// In-memory user directory
type mockDirectory struct {
	mu             sync.Mutex
	users          map[int64]*models.User
	statsCalls     []statsCall
	getUserErr     error
	getActiveErr   error
	updateStatuses map[int64]models.UserStatus
}

type statsCall struct {
	userID       int64
	mediaDelta   int64
	messageDelta int64
}

func newMockDirectory(users ...*models.User) *mockDirectory {
	d := &mockDirectory{
		users:          make(map[int64]*models.User),
		updateStatuses: make(map[int64]models.UserStatus),
	}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *mockDirectory) SaveUser(ctx context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
	return nil
}

func (d *mockDirectory) GetUser(ctx context.Context, id int64) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.getUserErr != nil {
		return nil, d.getUserErr
	}
	user, ok := d.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (d *mockDirectory) GetAllUsers(ctx context.Context) ([]models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.User
	for _, u := range d.users {
		out = append(out, *u)
	}
	return out, nil
}

func (d *mockDirectory) GetActiveUsers(ctx context.Context) ([]models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.getActiveErr != nil {
		return nil, d.getActiveErr
	}
	var out []models.User
	for _, u := range d.users {
		if u.Status == models.UserStatusActive {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *mockDirectory) FindInactiveUsers(ctx context.Context, cutoff time.Time) ([]models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.User
	for _, u := range d.users {
		if u.Status == models.UserStatusActive && !u.IsWhitelisted && u.LastActive.Before(cutoff) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (d *mockDirectory) UpdateUserStatus(ctx context.Context, id int64, status models.UserStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	user.Status = status
	d.updateStatuses[id] = status
	return nil
}

func (d *mockDirectory) UpdateUserInfo(ctx context.Context, id int64, fullName, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	user.FullName = fullName
	user.Username = username
	return nil
}

func (d *mockDirectory) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	user.IsAdmin = isAdmin
	return nil
}

func (d *mockDirectory) SetWhitelisted(ctx context.Context, id int64, whitelisted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	user.IsWhitelisted = whitelisted
	return nil
}

func (d *mockDirectory) UpdateLastActive(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	user.LastActive = time.Now().UTC()
	return nil
}

func (d *mockDirectory) IncrementUserStats(ctx context.Context, id int64, mediaDelta, messageDelta int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	user.MediaSentCount += mediaDelta
	user.TotalMessagesSent += messageDelta
	d.statsCalls = append(d.statsCalls, statsCall{id, mediaDelta, messageDelta})
	return nil
}

func (d *mockDirectory) statusOf(id int64) models.UserStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[id].Status
}

// In-memory relay log
type mockRelayLog struct {
	mu      sync.Mutex
	entries map[int]*models.RelayLogEntry
}

func newMockRelayLog() *mockRelayLog {
	return &mockRelayLog{entries: make(map[int]*models.RelayLogEntry)}
}

func (l *mockRelayLog) RecordRelayedMessages(ctx context.Context, originalID int, senderID int64, relayedTo map[int64]int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(relayedTo) == 0 {
		return nil
	}
	entry, ok := l.entries[originalID]
	if !ok {
		entry = &models.RelayLogEntry{
			OriginalMessageID: originalID,
			SenderID:          senderID,
			RelayedTo:         make(map[int64]int),
			Timestamp:         time.Now().UTC(),
		}
		l.entries[originalID] = entry
	}
	for recipient, copyID := range relayedTo {
		if _, exists := entry.RelayedTo[recipient]; !exists {
			entry.RelayedTo[recipient] = copyID
		}
	}
	return nil
}

func (l *mockRelayLog) GetRelayedMessage(ctx context.Context, originalID int) (*models.RelayLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[originalID]
	if !ok {
		return nil, nil
	}
	return entry, nil
}

func (l *mockRelayLog) GetRelayedMessageByCopy(ctx context.Context, recipientID int64, relayedID int) (*models.RelayLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.entries {
		if copyID, ok := entry.RelayedTo[recipientID]; ok && copyID == relayedID {
			return entry, nil
		}
	}
	return nil, nil
}

func (l *mockRelayLog) DeleteRelayedMessage(ctx context.Context, originalID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, originalID)
	return nil
}

// In-memory config store
type mockConfigStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]string)}
}

func (s *mockConfigStore) SetConfigValue(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.values, key)
		return nil
	}
	s.values[key] = value
	return nil
}

func (s *mockConfigStore) GetConfigValue(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

// Recording transport with per-chat failure injection
type sentText struct {
	chatID  int64
	text    string
	replyTo int
}

type sentAlbum struct {
	chatID  int64
	album   models.Album
	replyTo int
}

type sentCopy struct {
	chatID     int64
	fromChatID int64
	messageID  int
	replyTo    int
}

type mockTransport struct {
	mu          sync.Mutex
	nextID      int
	texts       []sentText
	albums      []sentAlbum
	copies      []sentCopy
	deleted     []sentCopy
	pinned      []sentCopy
	failChats   map[int64]error
	failDeletes map[int64]error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		nextID:      1000,
		failChats:   make(map[int64]error),
		failDeletes: make(map[int64]error),
	}
}

func (t *mockTransport) failFor(chatID int64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failChats[chatID] = err
}

func (t *mockTransport) SendText(ctx context.Context, chatID int64, text string, replyTo int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.failChats[chatID]; err != nil {
		return 0, err
	}
	t.nextID++
	t.texts = append(t.texts, sentText{chatID, text, replyTo})
	return t.nextID, nil
}

func (t *mockTransport) CopyMessage(ctx context.Context, chatID, fromChatID int64, messageID, replyTo int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.failChats[chatID]; err != nil {
		return 0, err
	}
	t.nextID++
	t.copies = append(t.copies, sentCopy{chatID, fromChatID, messageID, replyTo})
	return t.nextID, nil
}

func (t *mockTransport) SendAlbum(ctx context.Context, chatID int64, album models.Album, replyTo int) ([]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.failChats[chatID]; err != nil {
		return nil, err
	}
	t.albums = append(t.albums, sentAlbum{chatID, album, replyTo})
	ids := make([]int, len(album.Items))
	for i := range ids {
		t.nextID++
		ids[i] = t.nextID
	}
	return ids, nil
}

func (t *mockTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.failDeletes[chatID]; err != nil {
		return err
	}
	t.deleted = append(t.deleted, sentCopy{chatID: chatID, messageID: messageID})
	return nil
}

func (t *mockTransport) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.failChats[chatID]; err != nil {
		return fmt.Errorf("pin: %w", err)
	}
	t.pinned = append(t.pinned, sentCopy{chatID: chatID, messageID: messageID})
	return nil
}

func (t *mockTransport) albumsFor(chatID int64) []sentAlbum {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []sentAlbum
	for _, a := range t.albums {
		if a.chatID == chatID {
			out = append(out, a)
		}
	}
	return out
}

func (t *mockTransport) textsFor(chatID int64) []sentText {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []sentText
	for _, m := range t.texts {
		if m.chatID == chatID {
			out = append(out, m)
		}
	}
	return out
}
