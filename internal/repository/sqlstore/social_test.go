package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/repository"
)

// =========================================================================
// COMMENT TESTS
// =========================================================================

func TestComments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "discuss")

	first := &model.Comment{PostID: post.ID, UserID: bob.ID, Content: "first"}
	if err := db.CreateComment(ctx, first); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if first.ID == "" || first.Username != "bob" {
		t.Errorf("CreateComment() = %+v", first)
	}
	second := &model.Comment{PostID: post.ID, UserID: alice.ID, Content: "second"}
	if err := db.CreateComment(ctx, second); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	comments, hasMore, err := db.ListCommentsByPost(ctx, post.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListCommentsByPost() error = %v", err)
	}
	if len(comments) != 2 || hasMore {
		t.Fatalf("ListCommentsByPost() = %d comments, hasMore=%v", len(comments), hasMore)
	}
	if comments[0].Content != "first" {
		t.Errorf("comments are not oldest first: %v", comments)
	}

	n, err := db.CountCommentsByPost(ctx, post.ID)
	if err != nil || n != 2 {
		t.Errorf("CountCommentsByPost() = %d, %v; want 2", n, err)
	}
}

func TestUpdateAndDeleteComment_Ownership(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "discuss")

	c := &model.Comment{PostID: post.ID, UserID: bob.ID, Content: "typo"}
	if err := db.CreateComment(ctx, c); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	if _, err := db.UpdateComment(ctx, c.ID, alice.ID, "hijack"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateComment() by non-owner error = %v, want ErrNotFound", err)
	}

	updated, err := db.UpdateComment(ctx, c.ID, bob.ID, "fixed")
	if err != nil {
		t.Fatalf("UpdateComment() error = %v", err)
	}
	if updated.Content != "fixed" || !updated.UpdatedAt.After(c.UpdatedAt) {
		t.Errorf("UpdateComment() = %+v", updated)
	}

	if err := db.DeleteComment(ctx, c.ID, alice.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteComment() by non-owner error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteComment(ctx, c.ID, bob.ID); err != nil {
		t.Fatalf("DeleteComment() error = %v", err)
	}
	if _, err := db.GetCommentByID(ctx, c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetCommentByID() after delete error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIKE TESTS
// =========================================================================

func TestLike_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "like me")

	first, created, err := db.Like(ctx, bob.ID, post.ID)
	if err != nil {
		t.Fatalf("Like() error = %v", err)
	}
	if !created {
		t.Error("first Like() created = false, want true")
	}

	again, created, err := db.Like(ctx, bob.ID, post.ID)
	if err != nil {
		t.Fatalf("second Like() error = %v", err)
	}
	if created {
		t.Error("second Like() created = true, want false")
	}
	if again.ID != first.ID || !again.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("second Like() = %+v, want the existing row %+v", again, first)
	}

	n, err := db.CountLikesByPost(ctx, post.ID)
	if err != nil || n != 1 {
		t.Errorf("CountLikesByPost() = %d, %v; want 1", n, err)
	}
}

func TestUnlike(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice.ID, "meh")

	if err := db.Unlike(ctx, alice.ID, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Unlike() without a like error = %v, want ErrNotFound", err)
	}
	if _, _, err := db.Like(ctx, alice.ID, post.ID); err != nil {
		t.Fatalf("Like() error = %v", err)
	}
	if err := db.Unlike(ctx, alice.ID, post.ID); err != nil {
		t.Fatalf("Unlike() error = %v", err)
	}
}

func TestListLikes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	p1 := createTestPost(t, db, alice.ID, "one")
	p2 := createTestPost(t, db, alice.ID, "two")

	for _, like := range []struct{ user, post string }{
		{bob.ID, p1.ID}, {alice.ID, p1.ID}, {bob.ID, p2.ID},
	} {
		if _, _, err := db.Like(ctx, like.user, like.post); err != nil {
			t.Fatalf("Like() error = %v", err)
		}
	}

	byPost, _, err := db.ListLikesByPost(ctx, p1.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListLikesByPost() error = %v", err)
	}
	if len(byPost) != 2 || byPost[0].Username != "alice" {
		t.Errorf("ListLikesByPost() = %+v, want alice first", byPost)
	}

	if err := db.SoftDeletePost(ctx, p2.ID, alice.ID); err != nil {
		t.Fatalf("SoftDeletePost() error = %v", err)
	}
	byUser, _, err := db.ListLikesByUser(ctx, bob.ID, db.now(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListLikesByUser() error = %v", err)
	}
	if len(byUser) != 1 || byUser[0].PostID != p1.ID || byUser[0].Content != "one" {
		t.Errorf("ListLikesByUser() = %+v, want only the live post", byUser)
	}
}

// =========================================================================
// FOLLOW TESTS
// =========================================================================

func TestFollow_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	first, created, err := db.Follow(ctx, alice.ID, bob.ID)
	if err != nil || !created {
		t.Fatalf("Follow() = %v, %v; want created", created, err)
	}
	again, created, err := db.Follow(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("second Follow() error = %v", err)
	}
	if created || again.ID != first.ID {
		t.Errorf("second Follow() = %+v created=%v, want existing edge", again, created)
	}

	counts, err := db.CountFollows(ctx, bob.ID)
	if err != nil {
		t.Fatalf("CountFollows() error = %v", err)
	}
	if counts.FollowerCount != 1 || counts.FollowingCount != 0 {
		t.Errorf("CountFollows(bob) = %+v", counts)
	}
}

func TestFollow_SelfRejectedByDatabase(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	if _, _, err := db.Follow(context.Background(), alice.ID, alice.ID); err == nil {
		t.Error("Follow() self should violate the follow_no_self check")
	}
}

func TestFollowListsAndUnfollow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	for _, pair := range [][2]string{{alice.ID, carol.ID}, {bob.ID, carol.ID}, {carol.ID, alice.ID}} {
		if _, _, err := db.Follow(ctx, pair[0], pair[1]); err != nil {
			t.Fatalf("Follow() error = %v", err)
		}
	}

	followers, hasMore, err := db.ListFollowers(ctx, carol.ID, repository.ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("ListFollowers() error = %v", err)
	}
	if len(followers) != 1 || !hasMore || followers[0].Username != "bob" {
		t.Errorf("ListFollowers() = %+v hasMore=%v", followers, hasMore)
	}

	following, _, err := db.ListFollowing(ctx, carol.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListFollowing() error = %v", err)
	}
	if len(following) != 1 || following[0].ID != alice.ID {
		t.Errorf("ListFollowing() = %+v", following)
	}

	// Deleted accounts drop out of lists and counts.
	if err := db.SoftDeleteUser(ctx, bob.ID); err != nil {
		t.Fatalf("SoftDeleteUser() error = %v", err)
	}
	counts, err := db.CountFollows(ctx, carol.ID)
	if err != nil {
		t.Fatalf("CountFollows() error = %v", err)
	}
	if counts != (model.FollowCounts{FollowerCount: 1, FollowingCount: 1}) {
		t.Errorf("CountFollows(carol) = %+v", counts)
	}

	if err := db.Unfollow(ctx, alice.ID, carol.ID); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	if err := db.Unfollow(ctx, alice.ID, carol.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Unfollow() error = %v, want ErrNotFound", err)
	}
}
