package models

// MediaKind is the closed set of content kinds the relay paths distinguish.
// Photo, video and document go through the buffered album path; text and
// other go through the direct path.
type MediaKind string

const (
	MediaKindPhoto    MediaKind = "photo"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
	MediaKindText     MediaKind = "text"
	MediaKindOther    MediaKind = "other"
)

// IsAlbumKind reports whether items of this kind are buffered and relayed as
// part of a media album.
func (k MediaKind) IsAlbumKind() bool {
	switch k {
	case MediaKindPhoto, MediaKindVideo, MediaKindDocument:
		return true
	}
	return false
}

// MediaItem is one inbound media unit awaiting relay. It is owned by the
// intake buffer from ingest until a dispatch tick hands it to a fan-out job.
type MediaItem struct {
	SourceMessageID int       `json:"sourceMessageId"`
	SenderID        int64     `json:"senderId"`
	Kind            MediaKind `json:"kind"`
	FileID          string    `json:"fileId"`
	Caption         string    `json:"caption,omitempty"`
	GroupKey        string    `json:"groupKey,omitempty"`
	ReplyTargetID   int       `json:"replyTargetId,omitempty"`
}

// Album is a run of consecutive pending items from one sender that is sent
// to each recipient as a single batched media group. Caption is attached to
// the first item only.
type Album struct {
	Items   []MediaItem
	Caption string
}

// ReplyTargetID returns the reply target of the album's first source item,
// or zero when the album does not reply to anything.
func (a Album) ReplyTargetID() int {
	if len(a.Items) == 0 {
		return 0
	}
	return a.Items[0].ReplyTargetID
}

// InboundMessage is the transport-delivered event the relay core consumes.
// Command and CommandArgs are set when the message is a bot command.
type InboundMessage struct {
	MessageID      int
	SenderID       int64
	SenderName     string
	SenderUsername string
	Kind           MediaKind
	FileID         string
	Text           string
	Caption        string
	GroupKey       string
	ReplyTargetID  int
	Command        string
	CommandArgs    string
}

// MediaItem converts a buffered-path inbound message into its pending item.
func (m InboundMessage) MediaItem() MediaItem {
	return MediaItem{
		SourceMessageID: m.MessageID,
		SenderID:        m.SenderID,
		Kind:            m.Kind,
		FileID:          m.FileID,
		Caption:         m.Caption,
		GroupKey:        m.GroupKey,
		ReplyTargetID:   m.ReplyTargetID,
	}
}
