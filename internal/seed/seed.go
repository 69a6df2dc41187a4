package seed

import (
	"context"
	"fmt"
	"log/slog"

	"agora/internal/database"
	"agora/internal/middleware"
	"agora/internal/models"

	"gorm.io/gorm"
)

// Options configures generated data.
type Options struct {
	Users         int
	Posts         int
	MaxComments   int
	ApprovedRatio float64
	FlaggedRatio  float64
	// VoteRatio is the probability that a given user votes on a given
	// visible post or comment. Likes use half of it.
	VoteRatio float64
	MaxDays   int
	Seed      int64
	FastHash  bool
	BatchSize int
	DryRun    bool
}

// DefaultOptions returns a small but lively community.
func DefaultOptions() Options {
	return Options{
		Users:         25,
		Posts:         80,
		MaxComments:   8,
		ApprovedRatio: 0.85,
		FlaggedRatio:  0.05,
		VoteRatio:     0.2,
		MaxDays:       90,
		BatchSize:     100,
	}
}

// Summary counts the rows a seeding run produced.
type Summary struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
	Votes    int `json:"votes"`
	Likes    int `json:"likes"`
}

// Seeder writes generated or scenario data into the database.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
	nextID  uint
}

// NewSeeder creates a Seeder. db may be nil when opts.DryRun is set.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	if db == nil && !opts.DryRun {
		return nil, fmt.Errorf("seed: database is required unless dry-run is enabled")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	f, err := NewFactory(opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f, opts: opts, nextID: 1000}, nil
}

// ClearAll deletes every row from the application tables, dependents first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if s.opts.DryRun {
		middleware.Logger.Info("[dry-run] skipping cleanup")
		return nil
	}
	tables := database.PersistentModels()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for i := len(tables) - 1; i >= 0; i-- {
			if err := global.Delete(tables[i]).Error; err != nil {
				return fmt.Errorf("clear %T: %w", tables[i], err)
			}
		}
		return nil
	})
}

// insert persists rows in batches, or assigns synthetic IDs in dry-run mode.
func insert[T any](ctx context.Context, s *Seeder, rows []*T, setID func(*T, uint)) error {
	if len(rows) == 0 {
		return nil
	}
	if s.opts.DryRun {
		for _, r := range rows {
			s.nextID++
			setID(r, s.nextID)
		}
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, s.opts.BatchSize).Error
}

// SeedCommunity generates users, posts, threaded comments, votes and likes.
// Comments only land on approved posts and engagement only on approved
// content, matching what the API would allow.
func (s *Seeder) SeedCommunity(ctx context.Context) (*Summary, error) {
	if s.opts.Users <= 0 {
		return nil, fmt.Errorf("seed: at least one user is required")
	}
	f := s.factory
	sum := &Summary{}

	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		users = append(users, f.BuildUser(i))
	}
	if err := insert(ctx, s, users, func(u *models.User, id uint) { u.ID = id }); err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	sum.Users = len(users)
	middleware.Logger.Info("Seeded users", slog.Int("count", sum.Users))

	pick := func() *models.User { return users[f.faker.Number(0, len(users)-1)] }

	posts := make([]*models.Post, 0, s.opts.Posts)
	seenTitles := make(map[string]bool, s.opts.Posts)
	for len(posts) < s.opts.Posts {
		p := f.BuildPost(pick())
		key := fmt.Sprintf("%d:%s", p.UserID, p.Title)
		if seenTitles[key] {
			continue
		}
		seenTitles[key] = true
		posts = append(posts, p)
	}
	if err := insert(ctx, s, posts, func(p *models.Post, id uint) { p.ID = id }); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	sum.Posts = len(posts)

	// Comments go in level by level so replies can reference stored parents.
	var visibleComments []*models.Comment
	for _, post := range posts {
		if !post.IsApproved || s.opts.MaxComments <= 0 {
			continue
		}
		n := f.faker.Number(0, s.opts.MaxComments)
		var thread []*models.Comment
		for i := 0; i < n; i++ {
			var parent *models.Comment
			if len(thread) > 0 && f.chance(0.4) {
				parent = thread[f.faker.Number(0, len(thread)-1)]
			}
			c := f.BuildComment(pick(), post, parent)
			if err := insert(ctx, s, []*models.Comment{c}, func(c *models.Comment, id uint) { c.ID = id }); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			thread = append(thread, c)
			sum.Comments++
			if c.IsApproved {
				visibleComments = append(visibleComments, c)
			}
		}
	}
	middleware.Logger.Info("Seeded content", slog.Int("posts", sum.Posts), slog.Int("comments", sum.Comments))

	var votes []*models.Vote
	var likes []*models.Like
	engage := func(target models.Target) {
		for _, u := range users {
			if f.chance(s.opts.VoteRatio) {
				v := &models.Vote{UserID: u.ID, Value: f.VoteValue()}
				target.Apply(&v.PostID, &v.CommentID)
				votes = append(votes, v)
			}
			if f.chance(s.opts.VoteRatio / 2) {
				l := &models.Like{UserID: u.ID}
				target.Apply(&l.PostID, &l.CommentID)
				likes = append(likes, l)
			}
		}
	}
	for _, p := range posts {
		if p.IsApproved {
			engage(models.PostTarget(p.ID))
		}
	}
	for _, c := range visibleComments {
		engage(models.CommentTarget(c.ID))
	}
	if err := insert(ctx, s, votes, func(v *models.Vote, id uint) { v.ID = id }); err != nil {
		return nil, fmt.Errorf("create votes: %w", err)
	}
	if err := insert(ctx, s, likes, func(l *models.Like, id uint) { l.ID = id }); err != nil {
		return nil, fmt.Errorf("create likes: %w", err)
	}
	sum.Votes, sum.Likes = len(votes), len(likes)
	middleware.Logger.Info("Seeded engagement", slog.Int("votes", sum.Votes), slog.Int("likes", sum.Likes))

	return sum, nil
}
