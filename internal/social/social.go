// Package social maintains the following/follower sets, inbox, and post
// and like state of one peer's social graph. It generalizes a named
// peer-set shape with join/leave semantics from "peers in a group" to
// "peers I follow" and "peers who follow me". Each exported method is
// predicated on the caller having already validated the record's token
// scope; the component itself never re-validates tokens. That is the
// controller/token package's job.
package social

import "sync"

// Post is a single social-network post.
type Post struct {
	ID        string
	Author    string
	Content   string
	TTLSecs   uint32
	CreatedAt int64 // unix seconds
}

// LikeState is whether a post is currently liked.
type LikeState string

// Like states.
const (
	Liked   LikeState = "liked"
	Unliked LikeState = "unliked"
)

// DM is one direct message stored in the inbox.
type DM struct {
	From      string
	Content   string
	Timestamp int64
}

// State holds one peer's complete social-network view: who it follows,
// who follows it, its inbox, the posts it has seen from others, its own
// posts, and its own outgoing likes.
type State struct {
	mu sync.Mutex

	following map[string]struct{}
	followers map[string]struct{}
	inbox     []DM
	postsSeen map[string]Post
	myPosts   map[string]Post
	myLikes   map[string]LikeState

	// authorLikes is the authoritative per-post liker set; it is only
	// ever populated on the post's own author.
	authorLikes map[string]map[string]LikeState
}

// New returns an empty social State.
func New() *State {
	return &State{
		following: make(map[string]struct{}),
		followers: make(map[string]struct{}),
		postsSeen: make(map[string]Post),
		myPosts:     make(map[string]Post),
		myLikes:     make(map[string]LikeState),
		authorLikes: make(map[string]map[string]LikeState),
	}
}

// Follow adds target to the set of peers this peer follows (a local
// command, not an inbound message).
func (s *State) Follow(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.following[target] = struct{}{}
}

// Unfollow removes target from the set this peer follows.
func (s *State) Unfollow(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.following, target)
}

// IsFollowing reports whether this peer follows target.
func (s *State) IsFollowing(target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.following[target]
	return ok
}

// Following returns a snapshot of the peers this peer follows.
func (s *State) Following() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return keys(s.following)
}

// AddFollower records that sender now follows this peer, in response to an
// inbound, token-validated FOLLOW record.
func (s *State) AddFollower(sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followers[sender] = struct{}{}
}

// RemoveFollower removes sender from the follower set, in response to an
// inbound, token-validated UNFOLLOW record.
func (s *State) RemoveFollower(sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.followers, sender)
}

// Followers returns a snapshot of the peers following this peer, the
// fan-out target for outgoing POSTs. Fan-out is strictly to followers,
// never a broadcast-to-all path.
func (s *State) Followers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return keys(s.followers)
}

// DeliverDM appends an inbound, token-validated DM to the inbox.
func (s *State) DeliverDM(dm DM) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = append(s.inbox, dm)
}

// Inbox returns a snapshot of received DMs, oldest first.
func (s *State) Inbox() []DM {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DM, len(s.inbox))
	copy(out, s.inbox)
	return out
}

// StorePost records an inbound POST from a followed peer. Callers must
// check IsFollowing(post.Author) before calling.
func (s *State) StorePost(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postsSeen[p.ID] = p
}

// PostsSeen returns a snapshot of posts received from followed peers.
func (s *State) PostsSeen() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Post, 0, len(s.postsSeen))
	for _, p := range s.postsSeen {
		out = append(out, p)
	}
	return out
}

// CreatePost records one of this peer's own outgoing posts (the fan-out
// send itself is the controller's job; this just remembers it locally).
func (s *State) CreatePost(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.myPosts[p.ID] = p
}

// MyPosts returns a snapshot of this peer's own posts.
func (s *State) MyPosts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Post, 0, len(s.myPosts))
	for _, p := range s.myPosts {
		out = append(out, p)
	}
	return out
}

// ToggleMyLike flips and records this peer's own outgoing like state for
// postID, returning the new state and the LIKE/UNLIKE action to send.
func (s *State) ToggleMyLike(postID string) (LikeState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Liked
	action := "LIKE"
	if s.myLikes[postID] == Liked {
		next = Unliked
		action = "UNLIKE"
	}
	s.myLikes[postID] = next
	return next, action
}

// MyLikeState returns the locally remembered like state for postID.
func (s *State) MyLikeState(postID string) LikeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.myLikes[postID]
}

// SetAuthorLike records an inbound LIKE/UNLIKE toggle from liker against
// one of this peer's own posts, updating the authoritative per-post liker
// set. Callers must already own postID (it must be in MyPosts); the
// controller checks this before calling.
func (s *State) SetAuthorLike(postID, liker string, state LikeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	likers, ok := s.authorLikes[postID]
	if !ok {
		likers = make(map[string]LikeState)
		s.authorLikes[postID] = likers
	}
	likers[liker] = state
}

// AuthorLikes returns a snapshot of who currently likes postID, for posts
// this peer authored.
func (s *State) AuthorLikes(postID string) map[string]LikeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]LikeState, len(s.authorLikes[postID]))
	for k, v := range s.authorLikes[postID] {
		out[k] = v
	}
	return out
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
