package models

// BulkResult reports how many items a bulk moderation call touched.
type BulkResult struct {
	Type      ContentType `json:"type"`
	Requested int         `json:"requested"`
	Affected  int64       `json:"affected"`
}

// PlatformStats is the admin reporting snapshot. Every field is counted
// from the store when requested.
type PlatformStats struct {
	Users             int64   `json:"users"`
	BlockedUsers      int64   `json:"blocked_users"`
	Posts             int64   `json:"posts"`
	PendingPosts      int64   `json:"pending_posts"`
	FlaggedPosts      int64   `json:"flagged_posts"`
	Comments          int64   `json:"comments"`
	PendingComments   int64   `json:"pending_comments"`
	FlaggedComments   int64   `json:"flagged_comments"`
	Votes             int64   `json:"votes"`
	Likes             int64   `json:"likes"`
	ActiveAuthors     int64   `json:"active_authors"`
	ParticipationRate float64 `json:"participation_rate"`
}
