package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformTikTok    Platform = "tiktok"
)

// Platforms lists every supported platform in canonical order.
var Platforms = []Platform{PlatformLinkedIn, PlatformInstagram, PlatformTwitter, PlatformFacebook, PlatformTikTok}

// ParsePlatform maps a free-form platform name onto a known platform, case-insensitively.
func ParsePlatform(name string) (Platform, bool) {
	candidate := Platform(strings.ToLower(strings.TrimSpace(name)))
	for _, p := range Platforms {
		if p == candidate {
			return p, true
		}
	}
	return "", false
}

// DisplayName is the platform name as users see it.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformTikTok:
		return "TikTok"
	case "":
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostApproved  PostStatus = "approved"
	PostRejected  PostStatus = "rejected"
	PostScheduled PostStatus = "scheduled"
	PostPosted    PostStatus = "posted"
	PostFailed    PostStatus = "failed"
)

// ParsePostStatus validates a status filter value.
func ParsePostStatus(value string) (PostStatus, bool) {
	switch s := PostStatus(strings.ToLower(value)); s {
	case PostDraft, PostApproved, PostRejected, PostScheduled, PostPosted, PostFailed:
		return s, true
	}
	return "", false
}

var postTransitions = map[PostStatus][]PostStatus{
	PostDraft:     {PostApproved, PostRejected, PostPosted, PostScheduled, PostFailed},
	PostApproved:  {PostPosted, PostScheduled, PostFailed},
	PostFailed:    {PostPosted, PostScheduled, PostFailed},
	PostScheduled: {PostDraft},
}

// CanTransitionTo reports whether the post state machine allows s -> next.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	for _, allowed := range postTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Publishable reports whether a publish or schedule attempt may start from s.
func (s PostStatus) Publishable() bool {
	return s.CanTransitionTo(PostPosted)
}

// Post is a generated social post and its publishing state
type Post struct {
	ID             string                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         string                      `gorm:"type:uuid;not null;index" json:"user_id"`
	StrategyID     string                      `gorm:"type:uuid;not null;index" json:"strategy_id"`
	Platform       Platform                    `gorm:"type:varchar(20);not null;check:platform IN ('linkedin', 'instagram', 'twitter', 'facebook', 'tiktok')" json:"platform"`
	Content        string                      `gorm:"type:text;not null" json:"content"`
	MediaURL       string                      `gorm:"size:1000" json:"media_url,omitempty"`
	Tags           datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tags"`
	ContentPillar  string                      `gorm:"size:255" json:"content_pillar,omitempty"`
	PostType       string                      `gorm:"size:50" json:"post_type,omitempty"`
	Status         PostStatus                  `gorm:"type:varchar(20);not null;default:'draft';check:status IN ('draft', 'approved', 'rejected', 'scheduled', 'posted', 'failed')" json:"status"`
	SuggestedTime  *time.Time                  `json:"suggested_time,omitempty"`
	ScheduledTime  *time.Time                  `json:"scheduled_time,omitempty"`
	PostedAt       *time.Time                  `json:"posted_at,omitempty"`
	PlatformPostID string                      `gorm:"size:255" json:"platform_post_id,omitempty"`
	LastError      string                      `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// TransitionTo applies a state machine move and keeps the timestamp fields consistent with it:
// PostedAt is stamped on entering posted, and going back to draft clears the schedule.
func (p *Post) TransitionTo(next PostStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "post", From: string(p.Status), To: string(next)}
	}
	p.Status = next
	switch next {
	case PostPosted:
		postedAt := now
		p.PostedAt = &postedAt
		p.LastError = ""
	case PostScheduled:
		p.LastError = ""
	case PostDraft:
		p.ScheduledTime = nil
		p.PlatformPostID = ""
	}
	return nil
}
