// Package filetransfer implements the chunked file-offer/accept/send/
// reassemble state machine. The engine owns its active-transfer table and
// holds no transport or reliability table of its own: the controller does
// all sending and hands received chunks to the engine. The engine's shape, an owned table of
// in-flight state machines each independently timed out, follows the
// same borrow-don't-own discipline used elsewhere in this peer for
// collaborators that outlive any single call.
package filetransfer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MaxChunkSize is the default pre-base64 chunk size in bytes.
const MaxChunkSize = 1024

// OfferTimeout is how long a sender waits for FILE_ACCEPT/FILE_REJECT
// before aborting an offer.
const OfferTimeout = 60 * time.Second

// ProgressTimeout is how long a receiver tolerates no chunk progress on an
// accepted transfer before aborting it.
const ProgressTimeout = 60 * time.Second

// State is a receiver-side transfer's lifecycle state.
type State int

// Transfer states.
const (
	Offered State = iota
	Accepted
	Receiving
	Complete
	Rejected
	Aborted
)

func (s State) String() string {
	switch s {
	case Offered:
		return "Offered"
	case Accepted:
		return "Accepted"
	case Receiving:
		return "Receiving"
	case Complete:
		return "Complete"
	case Rejected:
		return "Rejected"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// filetypeByExt is the fixed extension-to-MIME table FILETYPE is derived
// from when a sender doesn't supply one explicitly.
var filetypeByExt = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".json": "application/json",
}

const defaultFiletype = "application/octet-stream"

// FiletypeForName looks up a FILETYPE from a filename's extension,
// defaulting to application/octet-stream.
func FiletypeForName(name string) string {
	if ft, ok := filetypeByExt[filepath.Ext(name)]; ok {
		return ft
	}
	return defaultFiletype
}

// Transfer is one file's state, tracked from the receiver's perspective
// (senders don't need a persistent record beyond the reliability table
// entries for their in-flight FILE_CHUNK sends).
type Transfer struct {
	FileID      string
	Sender      string
	Filename    string
	Filesize    int64
	Filetype    string
	Description string

	mu          sync.Mutex
	state       State
	totalChunks int
	chunkSize   int
	chunks      map[int][]byte
	lastChunkAt time.Time
}

func (t *Transfer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transfer) receivedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.chunks)
}

// Engine tracks file transfers this peer is receiving.
type Engine struct {
	baseDir string
	log     *logrus.Logger

	mu        sync.Mutex
	transfers map[string]*Transfer
}

// NewEngine returns an Engine that writes completed downloads under
// baseDir/<sender_full_id>/downloads/.
func NewEngine(baseDir string, log *logrus.Logger) *Engine {
	return &Engine{baseDir: baseDir, log: log, transfers: make(map[string]*Transfer)}
}

// OfferParams describes the metadata a FILE_OFFER's receiver sees.
type OfferParams struct {
	FileID      string
	Sender      string
	Filename    string
	Filesize    int64
	Filetype    string
	Description string
}

// HandleOffer processes an inbound FILE_OFFER. A known FILEID in any state
// is dropped silently. Otherwise a new
// Offered transfer is created and returned for the caller (the controller)
// to prompt the external accept/reject collaborator with.
func (e *Engine) HandleOffer(p OfferParams) (*Transfer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.transfers[p.FileID]; exists {
		return nil, false
	}

	tr := &Transfer{
		FileID:      p.FileID,
		Sender:      p.Sender,
		Filename:    p.Filename,
		Filesize:    p.Filesize,
		Filetype:    p.Filetype,
		Description: p.Description,
		state:       Offered,
	}
	e.transfers[p.FileID] = tr
	return tr, true
}

// ErrUnknownTransfer is returned when an operation names a FILEID the
// engine has no record of.
var ErrUnknownTransfer = errors.New("filetransfer: unknown transfer")

// Accept transitions a known Offered transfer to Accepted and allocates
// its chunk map, given the TOTAL_CHUNKS/CHUNK_SIZE the sender will use.
func (e *Engine) Accept(fileID string, totalChunks, chunkSize int) error {
	e.mu.Lock()
	tr, ok := e.transfers[fileID]
	e.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrUnknownTransfer, "%q", fileID)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.state != Offered {
		return nil // already decided; nothing to do
	}
	tr.state = Accepted
	tr.totalChunks = totalChunks
	tr.chunkSize = chunkSize
	tr.chunks = make(map[int][]byte, totalChunks)
	tr.lastChunkAt = time.Now()
	return nil
}

// Reject transitions a known Offered transfer to Rejected.
func (e *Engine) Reject(fileID string) {
	e.mu.Lock()
	tr, ok := e.transfers[fileID]
	e.mu.Unlock()
	if !ok {
		return
	}
	tr.mu.Lock()
	tr.state = Rejected
	tr.mu.Unlock()
}

// ChunkParams describes one inbound FILE_CHUNK.
type ChunkParams struct {
	FileID      string
	ChunkIndex  int
	TotalChunks int
	Data        []byte // already base64-decoded
}

// ReassembleResult is returned by HandleChunk once a transfer completes.
type ReassembleResult struct {
	Path     string
	Filesize int64
}

// HandleChunk adds a chunk to an accepted transfer's map. The caller has
// already decoded the chunk at the chunk boundary with DecodeChunk (which
// bounds peak memory to total_chunks × MAX_CHUNK_SIZE and validates each
// chunk early). Chunk arrival for an unknown/unaccepted
// FILEID, or after Complete, is dropped. When the last chunk arrives the
// file is reassembled and written; the result is non-nil only on that
// final call.
func (e *Engine) HandleChunk(p ChunkParams) (*ReassembleResult, error) {
	e.mu.Lock()
	tr, ok := e.transfers[p.FileID]
	e.mu.Unlock()
	if !ok {
		return nil, nil // unknown FILEID: drop
	}

	tr.mu.Lock()
	if tr.state != Accepted && tr.state != Receiving {
		tr.mu.Unlock()
		return nil, nil // unaccepted or already complete: drop
	}
	tr.state = Receiving
	if _, dup := tr.chunks[p.ChunkIndex]; !dup {
		tr.chunks[p.ChunkIndex] = p.Data
	}
	tr.lastChunkAt = time.Now()
	complete := len(tr.chunks) == tr.totalChunks
	tr.mu.Unlock()

	if !complete {
		return nil, nil
	}

	return e.reassemble(tr)
}

func (e *Engine) reassemble(tr *Transfer) (*ReassembleResult, error) {
	tr.mu.Lock()
	var buf bytes.Buffer
	for i := 0; i < tr.totalChunks; i++ {
		chunk, ok := tr.chunks[i]
		if !ok {
			tr.mu.Unlock()
			e.abort(tr.FileID)
			return nil, errors.Errorf("filetransfer: gap at chunk %d reassembling %s", i, tr.FileID)
		}
		buf.Write(chunk)
	}
	tr.mu.Unlock()

	if int64(buf.Len()) != tr.Filesize {
		e.abort(tr.FileID)
		return nil, errors.Errorf("filetransfer: size mismatch for %s: got %d, want %d", tr.FileID, buf.Len(), tr.Filesize)
	}

	dir := filepath.Join(e.baseDir, tr.Sender, "downloads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.abort(tr.FileID)
		return nil, errors.Wrap(err, "filetransfer: mkdir downloads dir")
	}

	path := uniquePath(dir, tr.Filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		e.abort(tr.FileID)
		return nil, errors.Wrap(err, "filetransfer: write file")
	}

	tr.mu.Lock()
	tr.state = Complete
	tr.mu.Unlock()

	e.mu.Lock()
	delete(e.transfers, tr.FileID)
	e.mu.Unlock()

	return &ReassembleResult{Path: path, Filesize: int64(buf.Len())}, nil
}

// uniquePath suffixes "(n)" onto the filename if it already exists in dir.
func uniquePath(dir, filename string) string {
	candidate := filepath.Join(dir, filename)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}

	ext := filepath.Ext(filename)
	base := filename[:len(filename)-len(ext)]
	for n := 1; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, n, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// abort marks a transfer Aborted and drops it from the table; no further
// chunks will be accepted for this FILEID.
func (e *Engine) abort(fileID string) {
	e.mu.Lock()
	tr, ok := e.transfers[fileID]
	e.mu.Unlock()
	if !ok {
		return
	}
	tr.mu.Lock()
	tr.state = Aborted
	tr.mu.Unlock()

	e.mu.Lock()
	delete(e.transfers, fileID)
	e.mu.Unlock()
}

// Transfer returns the current transfer for fileID, if any, for status
// commands like "transfers"/"pendingfiles".
func (e *Engine) Transfer(fileID string) (*Transfer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr, ok := e.transfers[fileID]
	return tr, ok
}

// PendingOffers returns a snapshot of transfers still awaiting a local
// accept/reject decision.
func (e *Engine) PendingOffers() []*Transfer {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*Transfer
	for _, tr := range e.transfers {
		if tr.State() == Offered {
			out = append(out, tr)
		}
	}
	return out
}

// ActiveTransfers returns a snapshot of transfers in Accepted or Receiving
// state.
func (e *Engine) ActiveTransfers() []*Transfer {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*Transfer
	for _, tr := range e.transfers {
		switch tr.State() {
		case Accepted, Receiving:
			out = append(out, tr)
		}
	}
	return out
}

// SweepStalled aborts any Accepted/Receiving transfer that has seen no
// chunk progress within ProgressTimeout. Offered transfers are not swept:
// they stay in the table until accepted or rejected. Intended to be called
// periodically by the controller's periodic task.
func (e *Engine) SweepStalled(now time.Time) {
	e.mu.Lock()
	var stale []string
	for id, tr := range e.transfers {
		tr.mu.Lock()
		if (tr.state == Accepted || tr.state == Receiving) && now.Sub(tr.lastChunkAt) > ProgressTimeout {
			stale = append(stale, id)
		}
		tr.mu.Unlock()
	}
	e.mu.Unlock()

	for _, id := range stale {
		e.abort(id)
	}
}

// ChunkPlan describes how a sender should split a file for transmission.
type ChunkPlan struct {
	TotalChunks int
	ChunkSize   int
}

// PlanChunks computes total_chunks = ceil(filesize / MAX_CHUNK_SIZE).
func PlanChunks(filesize int64) ChunkPlan {
	total := int((filesize + MaxChunkSize - 1) / MaxChunkSize)
	if total == 0 {
		total = 1
	}
	return ChunkPlan{TotalChunks: total, ChunkSize: MaxChunkSize}
}

// EncodeChunk base64-encodes one chunk of data for the wire.
func EncodeChunk(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeChunk base64-decodes one wire chunk, validating it at the chunk
// boundary rather than at reassembly time.
func DecodeChunk(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "filetransfer: decode chunk")
	}
	return data, nil
}

// ParseInt is a small helper for handlers translating wire string fields
// (CHUNK_INDEX, TOTAL_CHUNKS, FILESIZE) into integers with a wrapped
// error.
func ParseInt(field, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "filetransfer: parse %s=%q", field, value)
	}
	return n, nil
}
