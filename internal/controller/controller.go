// Package controller implements the peer controller: it owns the
// transport, the peer registry, the reliability table, and social and
// file-transfer state, and dispatches received records to handlers by
// TYPE. Inbound traffic, discovery sightings, and a periodic ticker are
// each handled by their own task, with per-type switch dispatch on the
// wire TYPE field for inbound records. Supervision uses
// golang.org/x/sync/errgroup rather than a bare sync.WaitGroup and quit
// channel, since the receive, periodic, and discovery tasks are
// independently cancellable cooperative tasks rather than one single
// actor goroutine.
package controller

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/dedupe"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/discovery"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/filetransfer"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/game"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/ids"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/record"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/registry"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/reliability"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/social"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/token"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/transport"
)

// Config configures a Controller.
type Config struct {
	UserID        string
	DisplayName   string
	IP            string
	Port          int
	BroadcastAddr string
	BaseDir       string

	// PeriodicInterval is how often the periodic task broadcasts PROFILE
	// and PINGs quiet peers. Defaults to 300s but is configurable.
	PeriodicInterval time.Duration

	// DefaultTTLSeconds is the TTL new posts get unless overridden by the
	// "ttl" command.
	DefaultTTLSeconds int

	// TokenTTLSeconds is how long minted tokens remain valid.
	TokenTTLSeconds int

	GameSink game.Sink
}

func (c *Config) setDefaults() {
	if c.PeriodicInterval == 0 {
		c.PeriodicInterval = 300 * time.Second
	}
	if c.DefaultTTLSeconds == 0 {
		c.DefaultTTLSeconds = 3600
	}
	if c.TokenTTLSeconds == 0 {
		c.TokenTTLSeconds = 30
	}
	if c.GameSink == nil {
		c.GameSink = game.NopSink{}
	}
}

type gameSession struct {
	gameID       string
	participants map[string]struct{}
	seenMoves    map[string]struct{}
	lastActivity time.Time
}

// Controller is the LSNP peer controller.
type Controller struct {
	cfg    Config
	fullID string
	log    *logrus.Logger

	transport *transport.Transport
	registry  *registry.Registry
	reliable  *reliability.Table
	social    *social.State
	files     *filetransfer.Engine
	disco     *discovery.Discovery
	seen      *dedupe.Tracker
	gameSink  game.Sink

	mu            sync.Mutex
	pendingOffers map[string]chan bool
	games         map[string]*gameSession
	ttlSeconds    int
}

// New wires together a Controller's collaborators. It binds the UDP
// socket immediately (so LocalPort/advertised port are known) but does
// no discovery or send I/O until Run is called.
func New(cfg Config, log *logrus.Logger) (*Controller, error) {
	cfg.setDefaults()

	tp, err := transport.Listen(cfg.Port, cfg.BroadcastAddr)
	if err != nil {
		return nil, errors.Wrap(err, "controller: bind transport")
	}

	reg := registry.New()

	c := &Controller{
		cfg:           cfg,
		fullID:        cfg.UserID + "@" + cfg.IP,
		log:           log,
		transport:     tp,
		registry:      reg,
		reliable:      reliability.NewTable(),
		social:        social.New(),
		files:         filetransfer.NewEngine(filepath.Join(cfg.BaseDir, cfg.UserID), log),
		disco:         discovery.New(reg, log),
		seen:          dedupe.NewTracker(dedupe.DefaultCapacity),
		gameSink:      cfg.GameSink,
		pendingOffers: make(map[string]chan bool),
		games:         make(map[string]*gameSession),
		ttlSeconds:    cfg.DefaultTTLSeconds,
	}
	return c, nil
}

// FullID returns this peer's own canonical "user@ip" identity.
func (c *Controller) FullID() string { return c.fullID }

// Run starts the receive, periodic, and discovery tasks and blocks
// until one of them fails or ctx is cancelled, at which point every
// task is cancelled and their first error (if any) is returned.
func (c *Controller) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// mDNS isn't available on every network (multicast blocked, sandboxed
	// test environment, etc). Discovery is a convenience on top of peers
	// reaching the controller directly or being added via PROFILE
	// broadcasts, so a failure to advertise is logged, not fatal.
	if err := c.disco.Start(gctx, c.cfg.UserID, c.cfg.DisplayName, c.transport.LocalPort()); err != nil {
		c.log.WithError(err).Warn("controller: mDNS discovery unavailable, continuing without it")
	} else {
		defer c.disco.Close()
	}

	g.Go(func() error { return c.receiveLoop(gctx) })
	g.Go(func() error { return c.periodicLoop(gctx) })
	g.Go(func() error { return c.discoverySightingLoop(gctx) })

	err := g.Wait()
	c.transport.Close()
	return err
}

func (c *Controller) receiveLoop(ctx context.Context) error {
	for {
		data, addr, err := c.transport.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.WithError(err).Debug("controller: transient receive error")
			continue
		}
		c.handleDatagram(data, addr)
	}
}

// discoverySightingLoop just logs sightings as they arrive; the actual
// registry upsert already happened inside the discovery package itself.
func (c *Controller) discoverySightingLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-c.disco.Sightings():
			if !ok {
				return nil
			}
			c.log.WithFields(logrus.Fields{"user": s.UserID, "ip": s.IP}).Debug("controller: discovered peer")
		}
	}
}

func (c *Controller) periodicLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PeriodicInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.runPeriodicTick()
		}
	}
}

func (c *Controller) runPeriodicTick() {
	rec := record.NewProfile(c.fullID, c.cfg.DisplayName)
	data, err := record.Serialize(rec)
	if err != nil {
		c.log.WithError(err).Warn("controller: serialize periodic PROFILE")
	} else if err := c.transport.SendBroadcast(data); err != nil {
		c.log.WithError(err).Warn("controller: broadcast periodic PROFILE")
	}

	now := time.Now()
	for _, p := range c.registry.Iter() {
		if now.Sub(p.LastSeen) < c.cfg.PeriodicInterval {
			continue
		}
		pingRec := record.NewPing(c.fullID)
		data, err := record.Serialize(pingRec)
		if err != nil {
			continue
		}
		addr := &net.UDPAddr{IP: net.ParseIP(p.IP), Port: int(p.Port)}
		if err := c.transport.SendUnicast(addr, data); err != nil {
			c.log.WithError(err).WithField("peer", p.FullID()).Debug("controller: ping quiet peer")
		}
	}

	c.files.SweepStalled(now)
}

// handleDatagram parses, validates, dedupes, and dispatches one inbound
// datagram. It never lets a single malformed or malicious datagram take
// down the receive task.
func (c *Controller) handleDatagram(data []byte, addr *net.UDPAddr) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("controller: recovered from panic handling datagram: %v", r)
		}
	}()

	rec, err := record.Parse(data)
	if err != nil {
		c.log.WithError(err).Debug("controller: dropping malformed record")
		return
	}

	msgType := rec.Type()
	from, _ := rec.Get("FROM")
	senderIP := addr.IP.String()

	if from != "" {
		c.ensurePeerFromSource(from, senderIP)
	}

	switch msgType {
	case record.TypeAck:
		c.handleAck(rec)
		return
	case record.TypeProfile:
		c.handleProfile(rec, senderIP)
		return
	case record.TypePing:
		c.handlePing(from)
		return
	case "":
		c.log.Debug("controller: dropping record with no TYPE")
		return
	}

	messageID, _ := rec.Get("MESSAGE_ID")
	tok, _ := rec.Get("TOKEN")

	if scope, required := token.ScopeForType(msgType); required {
		if err := token.Validate(tok, scope, senderIP, time.Now()); err != nil {
			reason, _ := token.Reasonof(err)
			c.log.WithField("reason", reason).WithField("type", msgType).Debug("controller: dropping invalid token")
			return
		}
	}

	if from == "" || messageID == "" {
		c.log.Debug("controller: dropping record missing FROM/MESSAGE_ID")
		return
	}

	if err := record.ValidateRequiredFields(msgType, rec); err != nil {
		c.log.WithError(err).WithField("type", msgType).Debug("controller: dropping record failing field validation")
		return
	}

	if c.seen.SeenOrInsert(from, messageID) {
		if msgType != record.TypeFileReceived {
			c.sendAck(from, senderIP, messageID)
		}
		return
	}

	c.dispatch(msgType, rec, from, senderIP)

	if msgType != record.TypeFileReceived {
		c.sendAck(from, senderIP, messageID)
	}
}

func (c *Controller) ensurePeerFromSource(from, senderIP string) {
	full, err := ids.ParseFullID(from)
	if err != nil {
		return
	}
	existing, err := c.registry.LookupFull(from)
	port := uint16(c.cfg.Port)
	if err == nil {
		port = existing.Port
	}
	c.registry.Upsert(registry.Peer{
		UserID:      full.User,
		DisplayName: existing.DisplayName,
		IP:          senderIP,
		Port:        port,
		LastSeen:    time.Now(),
	})
}

func (c *Controller) handleAck(rec *record.Record) {
	messageID, ok := rec.Get("MESSAGE_ID")
	if !ok {
		return
	}
	c.reliable.Ack(messageID)
}

func (c *Controller) handleProfile(rec *record.Record, senderIP string) {
	from, _ := rec.Get("FROM")
	displayName, _ := rec.Get("DISPLAY_NAME")
	full, err := ids.ParseFullID(from)
	if err != nil {
		return
	}
	existing, err := c.registry.LookupFull(from)
	port := uint16(c.cfg.Port)
	if err == nil {
		port = existing.Port
	}
	c.registry.Upsert(registry.Peer{
		UserID:      full.User,
		DisplayName: displayName,
		IP:          senderIP,
		Port:        port,
		LastSeen:    time.Now(),
	})
}

func (c *Controller) handlePing(from string) {
	if from == "" {
		return
	}
	c.registry.Touch(from, time.Now())
}

func (c *Controller) sendAck(to, toIP string, messageID string) {
	ackRec := record.NewAck(c.fullID, messageID)
	data, err := record.Serialize(ackRec)
	if err != nil {
		c.log.WithError(err).Warn("controller: serialize ACK")
		return
	}
	addr := c.resolveSendAddr(to, toIP)
	if err := c.transport.SendUnicast(addr, data); err != nil {
		c.log.WithError(err).WithField("to", to).Debug("controller: send ACK")
	}
}

// resolveSendAddr prefers a registry lookup (which has the peer's real
// listening port) but falls back to the observed source address and
// this controller's own configured port, so ACKs still reach a peer
// we've never seen a PROFILE/discovery sighting for yet.
func (c *Controller) resolveSendAddr(fullID, fallbackIP string) *net.UDPAddr {
	if p, err := c.registry.LookupFull(fullID); err == nil {
		return &net.UDPAddr{IP: net.ParseIP(p.IP), Port: int(p.Port)}
	}
	return &net.UDPAddr{IP: net.ParseIP(fallbackIP), Port: c.cfg.Port}
}

func (c *Controller) dispatch(msgType string, rec *record.Record, from, senderIP string) {
	switch msgType {
	case record.TypeDM:
		c.onDM(rec, from)
	case record.TypePost:
		c.onPost(rec, from)
	case record.TypeLike:
		c.onLike(rec, from)
	case record.TypeFollow:
		c.social.AddFollower(from)
	case record.TypeUnfollow:
		c.social.RemoveFollower(from)
	case record.TypeFileOffer:
		c.onFileOffer(rec, from)
	case record.TypeFileAccept:
		c.onFileResponse(rec, true)
	case record.TypeFileReject:
		c.onFileResponse(rec, false)
	case record.TypeFileChunk:
		c.onFileChunk(rec, from, senderIP)
	case record.TypeFileReceived:
		c.log.WithField("fileid", rec.GetOr("FILEID", "")).Info("controller: peer confirmed file received")
	case record.TypeGameInvite, record.TypeGameMove, record.TypeGameResult:
		c.onGame(msgType, rec, from)
	case record.TypeGroupCreate, record.TypeGroupMsg:
		c.gameSink.OnMessage(rec) // groups have no dedicated sink; forwarded the same way as games
	default:
		c.log.WithField("type", msgType).Debug("controller: no handler for type")
	}
}

func (c *Controller) onDM(rec *record.Record, from string) {
	content, _ := rec.Get("CONTENT")
	c.social.DeliverDM(social.DM{From: from, Content: content, Timestamp: time.Now().Unix()})
}

func (c *Controller) onPost(rec *record.Record, from string) {
	if !c.social.IsFollowing(from) {
		return
	}
	postID, _ := rec.Get("POST_ID")
	content, _ := rec.Get("CONTENT")
	ttl, _ := filetransfer.ParseInt("TTL", rec.GetOr("TTL", "0"))
	c.social.StorePost(social.Post{
		ID:        postID,
		Author:    from,
		Content:   content,
		TTLSecs:   uint32(ttl),
		CreatedAt: time.Now().Unix(),
	})
}

func (c *Controller) onLike(rec *record.Record, from string) {
	postID, _ := rec.Get("POST_ID")
	action, _ := rec.Get("ACTION")

	owned := false
	for _, p := range c.social.MyPosts() {
		if p.ID == postID {
			owned = true
			break
		}
	}
	if !owned {
		return
	}

	state := social.Unliked
	if action == record.ActionLike {
		state = social.Liked
	}
	c.social.SetAuthorLike(postID, from, state)
}

func (c *Controller) onFileOffer(rec *record.Record, from string) {
	fileID, _ := rec.Get("FILEID")
	filename, _ := rec.Get("FILENAME")
	filesize, _ := filetransfer.ParseInt("FILESIZE", rec.GetOr("FILESIZE", "0"))
	filetype := rec.GetOr("FILETYPE", filetransfer.FiletypeForName(filename))
	description, _ := rec.Get("DESCRIPTION")

	c.files.HandleOffer(filetransfer.OfferParams{
		FileID:      fileID,
		Sender:      from,
		Filename:    filename,
		Filesize:    filesize,
		Filetype:    filetype,
		Description: description,
	})
}

func (c *Controller) onFileResponse(rec *record.Record, accepted bool) {
	fileID, _ := rec.Get("FILEID")
	c.mu.Lock()
	ch, ok := c.pendingOffers[fileID]
	if ok {
		delete(c.pendingOffers, fileID)
	}
	c.mu.Unlock()
	if ok {
		ch <- accepted
	}
}

func (c *Controller) onFileChunk(rec *record.Record, from, senderIP string) {
	fileID, _ := rec.Get("FILEID")
	chunkIndex, _ := filetransfer.ParseInt("CHUNK_INDEX", rec.GetOr("CHUNK_INDEX", "0"))
	totalChunks, _ := filetransfer.ParseInt("TOTAL_CHUNKS", rec.GetOr("TOTAL_CHUNKS", "0"))
	rawData, _ := rec.Get("DATA")

	decoded, err := filetransfer.DecodeChunk(rawData)
	if err != nil {
		c.log.WithError(err).WithField("fileid", fileID).Debug("controller: dropping malformed chunk")
		return
	}

	result, err := c.files.HandleChunk(filetransfer.ChunkParams{
		FileID:      fileID,
		ChunkIndex:  int(chunkIndex),
		TotalChunks: int(totalChunks),
		Data:        decoded,
	})
	if err != nil {
		c.log.WithError(err).WithField("fileid", fileID).Warn("controller: file reassembly failed")
		return
	}
	if result == nil {
		return
	}

	c.log.WithFields(logrus.Fields{"fileid": fileID, "path": result.Path}).Info("controller: file transfer complete")

	messageID := ids.NewMessageID()
	tok := token.Mint(c.fullID, token.ScopeFile, c.cfg.TokenTTLSeconds, time.Now())
	rec2 := record.NewFileReceived(c.fullID, from, fileID, "COMPLETE", messageID, tok)
	data, err := record.Serialize(rec2)
	if err != nil {
		return
	}
	addr := c.resolveSendAddr(from, senderIP)
	if err := c.transport.SendUnicast(addr, data); err != nil {
		c.log.WithError(err).Debug("controller: send FILE_RECEIVED")
	}
}

func (c *Controller) onGame(msgType string, rec *record.Record, from string) {
	gameID, _ := rec.Get("GAMEID")
	to, _ := rec.Get("TO")

	c.mu.Lock()
	sess, ok := c.games[gameID]
	switch msgType {
	case record.TypeGameInvite:
		if !ok {
			sess = &gameSession{
				gameID:       gameID,
				participants: map[string]struct{}{from: {}, to: {}},
				seenMoves:    make(map[string]struct{}),
			}
			c.games[gameID] = sess
		}
	case record.TypeGameResult:
		delete(c.games, gameID)
	}
	if sess != nil {
		sess.lastActivity = time.Now()
	}
	c.mu.Unlock()

	c.gameSink.OnMessage(rec)
}

// --- exported command-surface API, called from cmd/lsnp-peer's command loop ---

// Peers returns a snapshot of every known peer.
func (c *Controller) Peers() []registry.Peer { return c.registry.Iter() }

// DMs returns every DM this peer has received, oldest first.
func (c *Controller) DMs() []social.DM { return c.social.Inbox() }

// MyPosts returns this peer's own posts.
func (c *Controller) MyPosts() []social.Post { return c.social.MyPosts() }

// PostsSeen returns posts received from followed peers.
func (c *Controller) PostsSeen() []social.Post { return c.social.PostsSeen() }

// PendingFiles returns file offers awaiting a local accept/reject.
func (c *Controller) PendingFiles() []*filetransfer.Transfer { return c.files.PendingOffers() }

// Transfers returns file transfers in progress.
func (c *Controller) Transfers() []*filetransfer.Transfer { return c.files.ActiveTransfers() }

// SetTTL changes the TTL applied to subsequently created posts.
func (c *Controller) SetTTL(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttlSeconds = seconds
}

func (c *Controller) resolveTarget(handle string) (string, *net.UDPAddr, error) {
	full := handle
	if !containsAt(handle) {
		resolved, err := c.registry.ResolveShort(handle)
		if err != nil {
			return "", nil, err
		}
		full = resolved
	}
	p, err := c.registry.LookupFull(full)
	if err != nil {
		return "", nil, err
	}
	return full, &net.UDPAddr{IP: net.ParseIP(p.IP), Port: int(p.Port)}, nil
}

func containsAt(s string) bool {
	for _, r := range s {
		if r == '@' {
			return true
		}
	}
	return false
}

// SendDM sends a direct message to target (a short handle or full id)
// and waits for it to be acknowledged or for retries to exhaust.
func (c *Controller) SendDM(ctx context.Context, target, content string) error {
	full, addr, err := c.resolveTarget(target)
	if err != nil {
		return errors.Wrap(err, "controller: resolve DM target")
	}

	messageID := ids.NewMessageID()
	tok := token.Mint(c.fullID, token.ScopeChat, c.cfg.TokenTTLSeconds, time.Now())
	rec := record.NewDM(c.fullID, full, content, messageID, tok)
	data, err := record.Serialize(rec)
	if err != nil {
		return errors.Wrap(err, "controller: serialize DM")
	}

	return c.reliable.Send(ctx, messageID, data, func(d []byte) error {
		return c.transport.SendUnicast(addr, d)
	})
}

// Post creates a post and fans it out to every follower only.
func (c *Controller) Post(ctx context.Context, content string) error {
	c.mu.Lock()
	ttl := c.ttlSeconds
	c.mu.Unlock()

	postID := ids.NewMessageID()
	now := time.Now()
	c.social.CreatePost(social.Post{ID: postID, Author: c.fullID, Content: content, TTLSecs: uint32(ttl), CreatedAt: now.Unix()})

	var firstErr error
	for _, follower := range c.social.Followers() {
		p, err := c.registry.LookupFull(follower)
		if err != nil {
			continue
		}
		addr := &net.UDPAddr{IP: net.ParseIP(p.IP), Port: int(p.Port)}
		messageID := ids.NewMessageID()
		tok := token.Mint(c.fullID, token.ScopeBroadcast, c.cfg.TokenTTLSeconds, now)
		rec := record.NewPost(c.fullID, postID, content, ttl, messageID, tok)
		data, err := record.Serialize(rec)
		if err != nil {
			continue
		}
		if err := c.reliable.Send(ctx, messageID, data, func(d []byte) error {
			return c.transport.SendUnicast(addr, d)
		}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Like toggles this peer's own like state on a post authored by target
// and sends the resulting LIKE/UNLIKE to that post's author.
func (c *Controller) Like(ctx context.Context, target, postID string) error {
	_, addr, err := c.resolveTarget(target)
	if err != nil {
		return errors.Wrap(err, "controller: resolve like target")
	}

	_, action := c.social.ToggleMyLike(postID)
	messageID := ids.NewMessageID()
	tok := token.Mint(c.fullID, token.ScopeBroadcast, c.cfg.TokenTTLSeconds, time.Now())
	rec := record.NewLike(c.fullID, postID, action, messageID, tok)
	data, err := record.Serialize(rec)
	if err != nil {
		return errors.Wrap(err, "controller: serialize LIKE")
	}

	return c.reliable.Send(ctx, messageID, data, func(d []byte) error {
		return c.transport.SendUnicast(addr, d)
	})
}

// Follow sends a FOLLOW to target and records it locally.
func (c *Controller) Follow(ctx context.Context, target string) error {
	return c.sendFollowUnfollow(ctx, target, true)
}

// Unfollow sends an UNFOLLOW to target and records it locally.
func (c *Controller) Unfollow(ctx context.Context, target string) error {
	return c.sendFollowUnfollow(ctx, target, false)
}

func (c *Controller) sendFollowUnfollow(ctx context.Context, target string, follow bool) error {
	full, addr, err := c.resolveTarget(target)
	if err != nil {
		return errors.Wrap(err, "controller: resolve follow target")
	}

	messageID := ids.NewMessageID()
	tok := token.Mint(c.fullID, token.ScopeFollow, c.cfg.TokenTTLSeconds, time.Now())
	var rec *record.Record
	if follow {
		rec = record.NewFollow(c.fullID, full, messageID, tok)
	} else {
		rec = record.NewUnfollow(c.fullID, full, messageID, tok)
	}
	data, err := record.Serialize(rec)
	if err != nil {
		return errors.Wrap(err, "controller: serialize FOLLOW/UNFOLLOW")
	}

	if err := c.reliable.Send(ctx, messageID, data, func(d []byte) error {
		return c.transport.SendUnicast(addr, d)
	}); err != nil {
		return err
	}

	if follow {
		c.social.Follow(full)
	} else {
		c.social.Unfollow(full)
	}
	return nil
}

// BroadcastProfile immediately sends a PROFILE to the LAN broadcast
// address, independent of the periodic task's own schedule.
func (c *Controller) BroadcastProfile() error {
	rec := record.NewProfile(c.fullID, c.cfg.DisplayName)
	data, err := record.Serialize(rec)
	if err != nil {
		return errors.Wrap(err, "controller: serialize PROFILE")
	}
	return c.transport.SendBroadcast(data)
}

// Ping immediately sends a PING to every known peer.
func (c *Controller) Ping() error {
	rec := record.NewPing(c.fullID)
	data, err := record.Serialize(rec)
	if err != nil {
		return errors.Wrap(err, "controller: serialize PING")
	}
	var firstErr error
	for _, p := range c.registry.Iter() {
		addr := &net.UDPAddr{IP: net.ParseIP(p.IP), Port: int(p.Port)}
		if err := c.transport.SendUnicast(addr, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendFile offers path to target, waits up to filetransfer.OfferTimeout
// for FILE_ACCEPT/FILE_REJECT, and if accepted sends every chunk under
// the reliability layer in order.
func (c *Controller) SendFile(ctx context.Context, target, path, description string) error {
	full, addr, err := c.resolveTarget(target)
	if err != nil {
		return errors.Wrap(err, "controller: resolve file target")
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "controller: stat file")
	}
	filesize := info.Size()
	filename := filepath.Base(path)
	filetype := filetransfer.FiletypeForName(filename)
	fileID := ids.NewFileID()

	respCh := make(chan bool, 1)
	c.mu.Lock()
	c.pendingOffers[fileID] = respCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pendingOffers, fileID)
		c.mu.Unlock()
	}()

	offerMessageID := ids.NewMessageID()
	offerToken := token.Mint(c.fullID, token.ScopeFile, c.cfg.TokenTTLSeconds, time.Now())
	offerRec := record.NewFileOffer(c.fullID, full, fileID, filename, filesize, filetype, description, offerMessageID, offerToken)
	offerData, err := record.Serialize(offerRec)
	if err != nil {
		return errors.Wrap(err, "controller: serialize FILE_OFFER")
	}
	if err := c.reliable.Send(ctx, offerMessageID, offerData, func(d []byte) error {
		return c.transport.SendUnicast(addr, d)
	}); err != nil {
		return errors.Wrap(err, "controller: deliver FILE_OFFER")
	}

	offerCtx, cancel := context.WithTimeout(ctx, filetransfer.OfferTimeout)
	defer cancel()
	select {
	case accepted := <-respCh:
		if !accepted {
			return errors.Errorf("controller: %s rejected file %s", full, filename)
		}
	case <-offerCtx.Done():
		return errors.Errorf("controller: no response to file offer %s within timeout", fileID)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "controller: read file")
	}
	plan := filetransfer.PlanChunks(filesize)

	for i := 0; i < plan.TotalChunks; i++ {
		start := i * plan.ChunkSize
		end := start + plan.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunkMessageID := ids.NewMessageID()
		chunkToken := token.Mint(c.fullID, token.ScopeFile, c.cfg.TokenTTLSeconds, time.Now())
		chunkRec := record.NewFileChunk(c.fullID, full, fileID, i, plan.TotalChunks, plan.ChunkSize,
			filetransfer.EncodeChunk(data[start:end]), chunkMessageID, chunkToken)
		chunkData, err := record.Serialize(chunkRec)
		if err != nil {
			return errors.Wrap(err, "controller: serialize FILE_CHUNK")
		}
		if err := c.reliable.Send(ctx, chunkMessageID, chunkData, func(d []byte) error {
			return c.transport.SendUnicast(addr, d)
		}); err != nil {
			return errors.Wrapf(err, "controller: deliver chunk %d/%d", i, plan.TotalChunks)
		}
	}
	return nil
}

// AcceptFile accepts a pending inbound file offer.
func (c *Controller) AcceptFile(ctx context.Context, fileID string) error {
	tr, ok := c.files.Transfer(fileID)
	if !ok {
		return errors.Errorf("controller: unknown file offer %q", fileID)
	}
	plan := filetransfer.PlanChunks(tr.Filesize)
	if err := c.files.Accept(fileID, plan.TotalChunks, plan.ChunkSize); err != nil {
		return err
	}

	full, addr, err := c.resolveTarget(tr.Sender)
	if err != nil {
		return errors.Wrap(err, "controller: resolve file sender")
	}

	messageID := ids.NewMessageID()
	tok := token.Mint(c.fullID, token.ScopeFile, c.cfg.TokenTTLSeconds, time.Now())
	rec := record.NewFileAccept(c.fullID, full, fileID, messageID, tok)
	data, err := record.Serialize(rec)
	if err != nil {
		return errors.Wrap(err, "controller: serialize FILE_ACCEPT")
	}
	return c.reliable.Send(ctx, messageID, data, func(d []byte) error {
		return c.transport.SendUnicast(addr, d)
	})
}

// RejectFile rejects a pending inbound file offer.
func (c *Controller) RejectFile(ctx context.Context, fileID string) error {
	tr, ok := c.files.Transfer(fileID)
	if !ok {
		return errors.Errorf("controller: unknown file offer %q", fileID)
	}
	c.files.Reject(fileID)

	full, addr, err := c.resolveTarget(tr.Sender)
	if err != nil {
		return errors.Wrap(err, "controller: resolve file sender")
	}

	messageID := ids.NewMessageID()
	tok := token.Mint(c.fullID, token.ScopeFile, c.cfg.TokenTTLSeconds, time.Now())
	rec := record.NewFileReject(c.fullID, full, fileID, messageID, tok)
	data, err := record.Serialize(rec)
	if err != nil {
		return errors.Wrap(err, "controller: serialize FILE_REJECT")
	}
	return c.reliable.Send(ctx, messageID, data, func(d []byte) error {
		return c.transport.SendUnicast(addr, d)
	})
}
