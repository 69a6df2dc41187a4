package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"agora/internal/models"
	"agora/internal/render"
	"agora/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Scenario is a hand-written data set loaded from YAML. Users are referenced
// by username everywhere else in the document.
type Scenario struct {
	Users []ScenarioUser `yaml:"users"`
	Posts []ScenarioPost `yaml:"posts"`
}

type ScenarioUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Bio      string `yaml:"bio"`
	Admin    bool   `yaml:"admin"`
	Blocked  bool   `yaml:"blocked"`
}

// Engagement lists per-user votes (+1/-1) and likes on a post or comment.
type Engagement struct {
	Votes map[string]int `yaml:"votes"`
	Likes []string       `yaml:"likes"`
}

type ScenarioPost struct {
	Author   string            `yaml:"author"`
	Title    string            `yaml:"title"`
	Body     string            `yaml:"body"`
	Tags     string            `yaml:"tags"`
	Approved bool              `yaml:"approved"`
	Flagged  bool              `yaml:"flagged"`
	Comments []ScenarioComment `yaml:"comments"`

	Engagement `yaml:",inline"`
}

type ScenarioComment struct {
	Author   string            `yaml:"author"`
	Body     string            `yaml:"body"`
	Approved bool              `yaml:"approved"`
	Flagged  bool              `yaml:"flagged"`
	Replies  []ScenarioComment `yaml:"replies"`

	Engagement `yaml:",inline"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes YAML strictly (unknown keys are errors) and
// validates the result.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate normalises fields in place and checks every cross reference.
func (sc *Scenario) Validate() error {
	known := make(map[string]bool, len(sc.Users))
	emails := make(map[string]bool, len(sc.Users))
	for i := range sc.Users {
		u := &sc.Users[i]
		u.Username = strings.TrimSpace(u.Username)
		if err := validation.ValidateUsername(u.Username); err != nil {
			return fmt.Errorf("user %d: %w", i+1, err)
		}
		if known[strings.ToLower(u.Username)] {
			return fmt.Errorf("user %q is defined twice", u.Username)
		}
		known[strings.ToLower(u.Username)] = true

		if u.Email == "" {
			u.Email = u.Username + "@example.com"
		}
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		if err := validation.ValidateEmail(u.Email); err != nil {
			return fmt.Errorf("user %q: %w", u.Username, err)
		}
		if emails[u.Email] {
			return fmt.Errorf("email %q is used twice", u.Email)
		}
		emails[u.Email] = true

		if u.Password == "" {
			u.Password = DefaultPassword
		}
		if err := validation.ValidatePassword(u.Password); err != nil {
			return fmt.Errorf("user %q: %w", u.Username, err)
		}
	}

	ref := func(where, name string) error {
		if !known[strings.ToLower(name)] {
			return fmt.Errorf("%s: unknown user %q", where, name)
		}
		return nil
	}
	checkEngagement := func(where string, e Engagement) error {
		for name, v := range e.Votes {
			if err := ref(where+" vote", name); err != nil {
				return err
			}
			if v != models.VoteUp && v != models.VoteDown {
				return fmt.Errorf("%s: vote by %q must be 1 or -1", where, name)
			}
		}
		liked := make(map[string]bool, len(e.Likes))
		for _, name := range e.Likes {
			if err := ref(where+" like", name); err != nil {
				return err
			}
			if liked[strings.ToLower(name)] {
				return fmt.Errorf("%s: %q likes twice", where, name)
			}
			liked[strings.ToLower(name)] = true
		}
		return nil
	}

	var checkComments func(where string, comments []ScenarioComment) error
	checkComments = func(where string, comments []ScenarioComment) error {
		for i := range comments {
			c := &comments[i]
			at := fmt.Sprintf("%s comment %d", where, i+1)
			if err := ref(at, c.Author); err != nil {
				return err
			}
			body, err := validation.ValidateCommentBody(c.Body)
			if err != nil {
				return fmt.Errorf("%s: %w", at, err)
			}
			c.Body = body
			if err := checkEngagement(at, c.Engagement); err != nil {
				return err
			}
			if err := checkComments(at, c.Replies); err != nil {
				return err
			}
		}
		return nil
	}

	titles := make(map[string]bool, len(sc.Posts))
	for i := range sc.Posts {
		p := &sc.Posts[i]
		at := fmt.Sprintf("post %d", i+1)
		if err := ref(at, p.Author); err != nil {
			return err
		}
		title, err := validation.ValidateTitle(p.Title)
		if err != nil {
			return fmt.Errorf("%s: %w", at, err)
		}
		p.Title = title
		key := strings.ToLower(p.Author) + "\x00" + title
		if titles[key] {
			return fmt.Errorf("%s: %q already has a post titled %q", at, p.Author, title)
		}
		titles[key] = true

		if p.Body, err = validation.ValidatePostBody(p.Body); err != nil {
			return fmt.Errorf("%s: %w", at, err)
		}
		if p.Tags, err = validation.NormalizeTags(p.Tags); err != nil {
			return fmt.Errorf("%s: %w", at, err)
		}
		if err := checkEngagement(at, p.Engagement); err != nil {
			return err
		}
		if err := checkComments(at, p.Comments); err != nil {
			return err
		}
	}
	return nil
}

// Count reports how many rows the scenario describes.
func (sc *Scenario) Count() Summary {
	sum := Summary{Users: len(sc.Users), Posts: len(sc.Posts)}
	var walk func([]ScenarioComment)
	walk = func(cs []ScenarioComment) {
		for _, c := range cs {
			sum.Comments++
			sum.Votes += len(c.Votes)
			sum.Likes += len(c.Likes)
			walk(c.Replies)
		}
	}
	for _, p := range sc.Posts {
		sum.Votes += len(p.Votes)
		sum.Likes += len(p.Likes)
		walk(p.Comments)
	}
	return sum
}

// ApplyScenario writes the scenario in a single transaction. The scenario
// must already be validated (LoadScenario and ParseScenario do that).
func (s *Seeder) ApplyScenario(ctx context.Context, sc *Scenario) (*Summary, error) {
	sum := sc.Count()
	if s.opts.DryRun {
		return &sum, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make(map[string]uint, len(sc.Users))
		hashes := make(map[string]string)
		for _, su := range sc.Users {
			hash, ok := hashes[su.Password]
			if !ok {
				var err error
				if hash, err = hashPassword(su.Password, s.opts.FastHash); err != nil {
					return err
				}
				hashes[su.Password] = hash
			}
			u := models.User{
				Username:  su.Username,
				Email:     su.Email,
				Password:  hash,
				Bio:       strings.TrimSpace(su.Bio),
				IsAdmin:   su.Admin,
				IsBlocked: su.Blocked,
				IsActive:  true,
			}
			if err := tx.Create(&u).Error; err != nil {
				return fmt.Errorf("create user %q: %w", su.Username, err)
			}
			ids[strings.ToLower(su.Username)] = u.ID
		}
		userID := func(name string) uint { return ids[strings.ToLower(name)] }

		engage := func(target models.Target, e Engagement) error {
			for name, value := range e.Votes {
				v := models.Vote{UserID: userID(name), Value: value}
				target.Apply(&v.PostID, &v.CommentID)
				if err := tx.Create(&v).Error; err != nil {
					return fmt.Errorf("create vote: %w", err)
				}
			}
			for _, name := range e.Likes {
				l := models.Like{UserID: userID(name)}
				target.Apply(&l.PostID, &l.CommentID)
				if err := tx.Create(&l).Error; err != nil {
					return fmt.Errorf("create like: %w", err)
				}
			}
			return nil
		}

		var createComments func(postID uint, parentID *uint, comments []ScenarioComment) error
		createComments = func(postID uint, parentID *uint, comments []ScenarioComment) error {
			for _, item := range comments {
				c := models.Comment{
					Body:       item.Body,
					BodyHTML:   render.Markdown(item.Body),
					UserID:     userID(item.Author),
					PostID:     postID,
					ParentID:   parentID,
					IsApproved: item.Approved,
					IsFlagged:  item.Flagged,
				}
				if err := tx.Create(&c).Error; err != nil {
					return fmt.Errorf("create comment: %w", err)
				}
				if err := engage(models.CommentTarget(c.ID), item.Engagement); err != nil {
					return err
				}
				if err := createComments(postID, &c.ID, item.Replies); err != nil {
					return err
				}
			}
			return nil
		}

		for _, sp := range sc.Posts {
			p := models.Post{
				Title:      sp.Title,
				Body:       sp.Body,
				BodyHTML:   render.Markdown(sp.Body),
				Tags:       sp.Tags,
				UserID:     userID(sp.Author),
				IsApproved: sp.Approved,
				IsFlagged:  sp.Flagged,
			}
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("create post %q: %w", sp.Title, err)
			}
			if err := engage(models.PostTarget(p.ID), sp.Engagement); err != nil {
				return err
			}
			if err := createComments(p.ID, nil, sp.Comments); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}
