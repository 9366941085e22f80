package social

import "testing"

func TestFollowUnfollowFanoutTarget(t *testing.T) {
	s := New()
	s.AddFollower("alice@10.0.0.2")
	s.AddFollower("bob@10.0.0.3")

	followers := s.Followers()
	if len(followers) != 2 {
		t.Fatalf("expected 2 followers, got %d", len(followers))
	}

	s.RemoveFollower("alice@10.0.0.2")
	followers = s.Followers()
	if len(followers) != 1 || followers[0] != "bob@10.0.0.3" {
		t.Fatalf("expected only bob left, got %v", followers)
	}
}

func TestStorePostRequiresCallerToCheckFollowing(t *testing.T) {
	s := New()
	if s.IsFollowing("carol@10.0.0.4") {
		t.Fatal("should not be following carol yet")
	}
	s.Follow("carol@10.0.0.4")
	if !s.IsFollowing("carol@10.0.0.4") {
		t.Fatal("expected to be following carol")
	}

	s.StorePost(Post{ID: "p1", Author: "carol@10.0.0.4", Content: "hello"})
	posts := s.PostsSeen()
	if len(posts) != 1 || posts[0].ID != "p1" {
		t.Fatalf("expected post p1 to be stored, got %v", posts)
	}
}

func TestToggleMyLike(t *testing.T) {
	s := New()

	state, action := s.ToggleMyLike("p1")
	if state != Liked || action != "LIKE" {
		t.Fatalf("first toggle: got %v/%v, want liked/LIKE", state, action)
	}

	state, action = s.ToggleMyLike("p1")
	if state != Unliked || action != "UNLIKE" {
		t.Fatalf("second toggle: got %v/%v, want unliked/UNLIKE", state, action)
	}
}

func TestAuthorLikesAuthoritative(t *testing.T) {
	s := New()
	s.CreatePost(Post{ID: "p1", Author: "me@10.0.0.1", Content: "hi"})

	s.SetAuthorLike("p1", "bob@10.0.0.3", Liked)
	likers := s.AuthorLikes("p1")
	if likers["bob@10.0.0.3"] != Liked {
		t.Fatalf("expected bob to like p1, got %v", likers)
	}

	s.SetAuthorLike("p1", "bob@10.0.0.3", Unliked)
	likers = s.AuthorLikes("p1")
	if likers["bob@10.0.0.3"] != Unliked {
		t.Fatalf("expected bob to have unliked p1, got %v", likers)
	}
}

func TestDeliverDMInboxGrowsByOne(t *testing.T) {
	s := New()
	s.DeliverDM(DM{From: "alice@10.0.0.2", Content: "hi"})
	if len(s.Inbox()) != 1 {
		t.Fatalf("expected 1 DM in inbox, got %d", len(s.Inbox()))
	}
}
