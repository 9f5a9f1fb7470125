// Package seed fills a database with fake users and activity for
// development and demos. Everything goes through the service layer, so
// seeded data obeys the same validation and rules as real traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sakif/socialhub/internal/model"
	"github.com/sakif/socialhub/internal/service"
)

// Password is the password of every seeded account.
const Password = "password123"

// Options sizes a seed run. Zero per-item counts fall back to defaults.
type Options struct {
	Users           int
	Posts           int
	FollowsPerUser  int
	LikesPerPost    int
	CommentsPerPost int
	// Seed makes runs reproducible; 0 picks one from the clock.
	Seed int64
}

// Summary counts what a run created.
type Summary struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Follows  int `json:"follows"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d posts, %d follows, %d likes, %d comments",
		s.Users, s.Posts, s.Follows, s.Likes, s.Comments)
}

type Seeder struct {
	svc    *service.Services
	logger *slog.Logger
}

func New(svc *service.Services, logger *slog.Logger) *Seeder {
	return &Seeder{svc: svc, logger: logger}
}

var notHandle = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Run creates opts.Users accounts and opts.Posts posts spread over them,
// then wires random follows, likes and comments between them.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.Users < 1 {
		return sum, fmt.Errorf("seed: at least one user is required")
	}
	if opts.FollowsPerUser == 0 {
		opts.FollowsPerUser = 3
	}
	if opts.LikesPerPost == 0 {
		opts.LikesPerPost = 3
	}
	if opts.CommentsPerPost == 0 {
		opts.CommentsPerPost = 2
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	faker := newFaker(opts.Seed)

	// === USERS ===
	users := make([]*model.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		res, err := s.svc.Users.Register(ctx, service.RegisterInput{
			Username: username(faker, i),
			Email:    fmt.Sprintf("user%d.%s", i, faker.Email()),
			Password: Password,
			FullName: faker.Name(),
		})
		if err != nil {
			return sum, fmt.Errorf("seed: registering user %d: %w", i, err)
		}

		bio := faker.Sentence(10)
		avatar := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", faker.UUID())
		if _, err := s.svc.Users.UpdateProfile(ctx, res.User.ID, service.ProfileInput{Bio: &bio, Avatar: &avatar}); err != nil {
			return sum, fmt.Errorf("seed: updating profile of %s: %w", res.User.Username, err)
		}

		users = append(users, res.User)
		sum.Users++
	}

	// === POSTS ===
	posts := make([]*model.Post, 0, opts.Posts)
	for i := 0; i < opts.Posts; i++ {
		author := users[faker.Number(0, len(users)-1)]
		in := service.PostInput{Content: faker.Paragraph(1, 3, 8, " ")}
		if faker.Number(1, 4) == 1 {
			in.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", faker.UUID())
		}
		if faker.Number(1, 10) == 1 {
			disabled := false
			in.CommentsEnabled = &disabled
		}

		post, err := s.svc.Posts.Create(ctx, author.ID, in)
		if err != nil {
			return sum, fmt.Errorf("seed: creating post %d: %w", i, err)
		}
		posts = append(posts, post)
		sum.Posts++
	}

	// === FOLLOWS ===
	for _, u := range users {
		for _, other := range pick(faker, users, opts.FollowsPerUser) {
			if other.ID == u.ID {
				continue
			}
			_, created, err := s.svc.Follows.Follow(ctx, u.ID, other.ID)
			if err != nil {
				return sum, fmt.Errorf("seed: following: %w", err)
			}
			if created {
				sum.Follows++
			}
		}
	}

	// === LIKES AND COMMENTS ===
	for _, p := range posts {
		for _, u := range pick(faker, users, opts.LikesPerPost) {
			_, created, err := s.svc.Likes.Like(ctx, u.ID, p.ID)
			if err != nil {
				return sum, fmt.Errorf("seed: liking post %s: %w", p.ID, err)
			}
			if created {
				sum.Likes++
			}
		}

		if !p.CommentsEnabled {
			continue
		}
		for _, u := range pick(faker, users, opts.CommentsPerPost) {
			if _, err := s.svc.Comments.Create(ctx, u.ID, p.ID, faker.Sentence(8)); err != nil {
				return sum, fmt.Errorf("seed: commenting on post %s: %w", p.ID, err)
			}
			sum.Comments++
		}
	}

	s.logger.Info("seed complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("follows", sum.Follows),
		slog.Int("likes", sum.Likes),
		slog.Int("comments", sum.Comments),
	)
	return sum, nil
}

func newFaker(seed int64) *gofakeit.Faker {
	return gofakeit.New(seed)
}

// username builds a valid, unique handle: the index suffix keeps it unique
// even when the faker repeats itself.
func username(f *gofakeit.Faker, i int) string {
	base := notHandle.ReplaceAllString(f.Username(), "")
	if len(base) > 20 {
		base = base[:20]
	}
	if base == "" {
		base = "user"
	}
	return fmt.Sprintf("%s_%d", base, i)
}

// pick returns up to n distinct users in random order.
func pick(f *gofakeit.Faker, users []*model.User, n int) []*model.User {
	if n > len(users) {
		n = len(users)
	}
	shuffled := make([]*model.User, len(users))
	copy(shuffled, users)
	f.Rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}
