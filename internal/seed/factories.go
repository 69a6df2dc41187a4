// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"agora/internal/models"
	"agora/internal/render"
	"agora/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the plaintext password of every generated user.
const DefaultPassword = "password123"

var topics = []string{
	"go", "databases", "devops", "frontend", "security", "linux", "career",
	"books", "music", "gaming", "fitness", "cooking", "travel", "ai", "meta",
}

var nonWord = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Factory builds domain entities populated with fake data. It does not
// persist anything; the Seeder decides how rows are written.
type Factory struct {
	faker *gofakeit.Faker
	opts  Options
	hash  string
	now   func() time.Time
}

// NewFactory creates a Factory whose randomness is derived from opts.Seed.
// The shared password hash is computed once.
func NewFactory(opts Options) (*Factory, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	hash, err := hashPassword(DefaultPassword, opts.FastHash)
	if err != nil {
		return nil, err
	}
	return &Factory{faker: gofakeit.New(seed), opts: opts, hash: hash, now: time.Now}, nil
}

func hashPassword(password string, fast bool) (string, error) {
	cost := bcrypt.DefaultCost
	if fast {
		cost = bcrypt.MinCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// chance reports true with probability p.
func (f *Factory) chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	minutes := f.faker.Number(0, maxDays*24*60)
	return f.now().Add(-time.Duration(minutes) * time.Minute).UTC()
}

// BuildUser returns an active user whose username is unique for index i.
func (f *Factory) BuildUser(i int) *models.User {
	base := nonWord.ReplaceAllString(strings.ToLower(f.faker.FirstName()), "")
	suffix := fmt.Sprintf("_%d", i)
	if maxBase := validation.UsernameMaxLen - len(suffix); len(base) > maxBase {
		base = base[:maxBase]
	}
	if len(base) < 2 {
		base = "user"
	}
	username := base + suffix
	created := f.pastTime()

	return &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  f.hash,
		Bio:       f.faker.Sentence(f.faker.Number(5, 15)),
		IsActive:  true,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// BuildPost returns a post by author with markdown body and a few tags.
func (f *Factory) BuildPost(author *models.User) *models.Post {
	body := fmt.Sprintf("%s\n\n- %s\n- %s\n\n**%s**",
		f.faker.Paragraph(1, f.faker.Number(2, 5), 12, " "),
		f.faker.HackerPhrase(),
		f.faker.HackerPhrase(),
		f.faker.Sentence(4),
	)
	tagCount := f.faker.Number(0, 3)
	tags := make([]string, 0, tagCount)
	for i := 0; i < tagCount; i++ {
		tags = append(tags, topics[f.faker.Number(0, len(topics)-1)])
	}
	normalized, _ := validation.NormalizeTags(strings.Join(tags, ","))

	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), ".")
	created := f.pastTime()
	return &models.Post{
		Title:      title,
		Body:       body,
		BodyHTML:   render.Markdown(body),
		Tags:       normalized,
		UserID:     author.ID,
		IsApproved: f.chance(f.opts.ApprovedRatio),
		IsFlagged:  f.chance(f.opts.FlaggedRatio),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

// BuildComment returns a comment by author on post, replying to parent
// when parent is non-nil.
func (f *Factory) BuildComment(author *models.User, post *models.Post, parent *models.Comment) *models.Comment {
	body := f.faker.Sentence(f.faker.Number(4, 25))
	c := &models.Comment{
		Body:       body,
		BodyHTML:   render.Markdown(body),
		UserID:     author.ID,
		PostID:     post.ID,
		IsApproved: f.chance(f.opts.ApprovedRatio),
		IsFlagged:  f.chance(f.opts.FlaggedRatio),
		CreatedAt:  post.CreatedAt.Add(time.Duration(f.faker.Number(1, 72*60)) * time.Minute),
	}
	if parent != nil {
		c.ParentID = &parent.ID
		c.CreatedAt = parent.CreatedAt.Add(time.Duration(f.faker.Number(1, 24*60)) * time.Minute)
	}
	c.UpdatedAt = c.CreatedAt
	return c
}

// VoteValue returns +1 or -1, weighted towards upvotes.
func (f *Factory) VoteValue() int {
	if f.chance(0.75) {
		return models.VoteUp
	}
	return models.VoteDown
}
