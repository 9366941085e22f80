package record

import "github.com/pkg/errors"

// Message TYPE constants.
const (
	TypeProfile      = "PROFILE"
	TypePing         = "PING"
	TypeAck          = "ACK"
	TypeDM           = "DM"
	TypePost         = "POST"
	TypeLike         = "LIKE"
	TypeFollow       = "FOLLOW"
	TypeUnfollow     = "UNFOLLOW"
	TypeFileOffer    = "FILE_OFFER"
	TypeFileAccept   = "FILE_ACCEPT"
	TypeFileReject   = "FILE_REJECT"
	TypeFileChunk    = "FILE_CHUNK"
	TypeFileReceived = "FILE_RECEIVED"
	TypeGameInvite   = "GAME_INVITE"
	TypeGameMove     = "GAME_MOVE"
	TypeGameResult   = "GAME_RESULT"
	TypeGroupCreate  = "GROUP_CREATE"
	TypeGroupMsg     = "GROUP_MSG"
)

// ErrMissingField is returned by RequireFields and the typed Parse*
// facades when a record is missing a field required for its TYPE.
var ErrMissingField = errors.New("record: missing required field")

// RequireFields validates that every name in required is present on r,
// returning a wrapped ErrMissingField naming the first one that's absent.
func RequireFields(r *Record, required ...string) error {
	for _, name := range required {
		if !r.Has(name) {
			return errors.Wrapf(ErrMissingField, "%s on %s", name, r.Type())
		}
	}
	return nil
}

// NewProfile builds a PROFILE record. PROFILE carries no MESSAGE_ID/TOKEN
// since it is never acknowledged.
func NewProfile(from, displayName string) *Record {
	return New().
		Set("TYPE", TypeProfile).
		Set("FROM", from).
		Set("DISPLAY_NAME", displayName)
}

// NewPing builds a PING record. Like PROFILE, PING is never acknowledged.
func NewPing(from string) *Record {
	return New().Set("TYPE", TypePing).Set("FROM", from)
}

// NewAck builds an ACK record carrying back the message id being
// acknowledged.
func NewAck(from, messageID string) *Record {
	return New().
		Set("TYPE", TypeAck).
		Set("FROM", from).
		Set("MESSAGE_ID", messageID)
}

// NewDM builds a DM record. token must carry "chat" scope.
func NewDM(from, to, content, messageID, token string) *Record {
	return New().
		Set("TYPE", TypeDM).
		Set("FROM", from).
		Set("TO", to).
		Set("CONTENT", content).
		Set("MESSAGE_ID", messageID).
		Set("TOKEN", token)
}

// ParseDM validates and extracts a DM record's required fields.
func ParseDM(r *Record) error {
	return RequireFields(r, "FROM", "TO", "CONTENT", "MESSAGE_ID", "TOKEN")
}

// NewPost builds a POST record. token must carry "broadcast" scope.
func NewPost(from, postID, content string, ttlSeconds int, messageID, token string) *Record {
	return New().
		Set("TYPE", TypePost).
		Set("FROM", from).
		Set("POST_ID", postID).
		Set("CONTENT", content).
		Set("TTL", itoa(ttlSeconds)).
		Set("MESSAGE_ID", messageID).
		Set("TOKEN", token)
}

// ParsePost validates a POST record's required fields.
func ParsePost(r *Record) error {
	return RequireFields(r, "FROM", "POST_ID", "CONTENT", "TTL", "MESSAGE_ID", "TOKEN")
}

// Like actions.
const (
	ActionLike   = "LIKE"
	ActionUnlike = "UNLIKE"
)

// NewLike builds a LIKE record.
func NewLike(from, postID, action, messageID, token string) *Record {
	return New().
		Set("TYPE", TypeLike).
		Set("FROM", from).
		Set("POST_ID", postID).
		Set("ACTION", action).
		Set("MESSAGE_ID", messageID).
		Set("TOKEN", token)
}

// ParseLike validates a LIKE record's required fields.
func ParseLike(r *Record) error {
	return RequireFields(r, "FROM", "POST_ID", "ACTION", "MESSAGE_ID", "TOKEN")
}

// NewFollow builds a FOLLOW record. token must carry "follow" scope.
func NewFollow(from, to, messageID, token string) *Record {
	return New().
		Set("TYPE", TypeFollow).
		Set("FROM", from).
		Set("TO", to).
		Set("MESSAGE_ID", messageID).
		Set("TOKEN", token)
}

// NewUnfollow builds an UNFOLLOW record. token must carry "follow" scope.
func NewUnfollow(from, to, messageID, token string) *Record {
	return New().
		Set("TYPE", TypeUnfollow).
		Set("FROM", from).
		Set("TO", to).
		Set("MESSAGE_ID", messageID).
		Set("TOKEN", token)
}

// ParseFollow validates a FOLLOW/UNFOLLOW record's required fields.
func ParseFollow(r *Record) error {
	return RequireFields(r, "FROM", "TO", "MESSAGE_ID", "TOKEN")
}

// NewFileOffer builds a FILE_OFFER record. token must carry "file" scope.
func NewFileOffer(from, to, fileID, filename string, filesize int64, filetype, description, messageID, token string) *Record {
	return New().
		Set("TYPE", TypeFileOffer).
		Set("FROM", from).
		Set("TO", to).
		Set("FILEID", fileID).
		Set("FILENAME", filename).
		Set("FILESIZE", itoa64(filesize)).
		Set("FILETYPE", filetype).
		Set("DESCRIPTION", description).
		Set("MESSAGE_ID", messageID).
		Set("TOKEN", token)
}

// ParseFileOffer validates a FILE_OFFER record's required fields.
func ParseFileOffer(r *Record) error {
	return RequireFields(r, "FROM", "TO", "FILEID", "FILENAME", "FILESIZE", "MESSAGE_ID", "TOKEN")
}

// NewFileAccept builds a FILE_ACCEPT record.
func NewFileAccept(from, to, fileID, messageID, token string) *Record {
	return New().
		Set("TYPE", TypeFileAccept).
		Set("FROM", from).
		Set("TO", to).
		Set("FILEID", fileID).
		Set("MESSAGE_ID", messageID).
		Set("TOKEN", token)
}

// NewFileReject builds a FILE_REJECT record.
func NewFileReject(from, to, fileID, messageID, token string) *Record {
	return New().
		Set("TYPE", TypeFileReject).
		Set("FROM", from).
		Set("TO", to).
		Set("FILEID", fileID).
		Set("MESSAGE_ID", messageID).
		Set("TOKEN", token)
}

// ParseFileResponse validates a FILE_ACCEPT/FILE_REJECT record's required
// fields.
func ParseFileResponse(r *Record) error {
	return RequireFields(r, "FROM", "TO", "FILEID", "MESSAGE_ID", "TOKEN")
}

// NewFileChunk builds a FILE_CHUNK record. data is already base64-encoded.
func NewFileChunk(from, to, fileID string, chunkIndex, totalChunks, chunkSize int, data, messageID, token string) *Record {
	return New().
		Set("TYPE", TypeFileChunk).
		Set("FROM", from).
		Set("TO", to).
		Set("FILEID", fileID).
		Set("CHUNK_INDEX", itoa(chunkIndex)).
		Set("TOTAL_CHUNKS", itoa(totalChunks)).
		Set("CHUNK_SIZE", itoa(chunkSize)).
		Set("DATA", data).
		Set("MESSAGE_ID", messageID).
		Set("TOKEN", token)
}

// ParseFileChunk validates a FILE_CHUNK record's required fields.
func ParseFileChunk(r *Record) error {
	return RequireFields(r, "FROM", "TO", "FILEID", "CHUNK_INDEX", "TOTAL_CHUNKS", "DATA", "MESSAGE_ID", "TOKEN")
}

// NewFileReceived builds a FILE_RECEIVED record, itself a terminal
// acknowledgment.
func NewFileReceived(from, to, fileID, status, messageID, token string) *Record {
	return New().
		Set("TYPE", TypeFileReceived).
		Set("FROM", from).
		Set("TO", to).
		Set("FILEID", fileID).
		Set("STATUS", status).
		Set("MESSAGE_ID", messageID).
		Set("TOKEN", token)
}

// ParseFileReceived validates a FILE_RECEIVED record's required fields.
func ParseFileReceived(r *Record) error {
	return RequireFields(r, "FROM", "TO", "FILEID", "STATUS", "MESSAGE_ID", "TOKEN")
}

// ParseGame validates a GAME_INVITE/GAME_MOVE/GAME_RESULT record's
// required fields. The core never constructs these; it only forwards
// received ones verbatim to the opaque game sink.
func ParseGame(r *Record) error {
	return RequireFields(r, "FROM", "TO", "GAMEID", "MESSAGE_ID", "TOKEN")
}

// ParseGroup validates a GROUP_CREATE/GROUP_MSG record's required
// fields. The core never constructs these; it only forwards received
// ones verbatim to the opaque game sink.
func ParseGroup(r *Record) error {
	return RequireFields(r, "FROM", "GROUP_ID", "MESSAGE_ID", "TOKEN")
}

// ValidateRequiredFields runs the typed required-field check matching r's
// TYPE, failing fast with ErrMissingField if r is missing one. Types with
// no dedicated facade (PROFILE, PING, ACK) always pass; those never reach
// this check on the receive path, since they're handled before dedup.
func ValidateRequiredFields(msgType string, r *Record) error {
	switch msgType {
	case TypeDM:
		return ParseDM(r)
	case TypePost:
		return ParsePost(r)
	case TypeLike:
		return ParseLike(r)
	case TypeFollow, TypeUnfollow:
		return ParseFollow(r)
	case TypeFileOffer:
		return ParseFileOffer(r)
	case TypeFileAccept, TypeFileReject:
		return ParseFileResponse(r)
	case TypeFileChunk:
		return ParseFileChunk(r)
	case TypeFileReceived:
		return ParseFileReceived(r)
	case TypeGameInvite, TypeGameMove, TypeGameResult:
		return ParseGame(r)
	case TypeGroupCreate, TypeGroupMsg:
		return ParseGroup(r)
	default:
		return nil
	}
}
