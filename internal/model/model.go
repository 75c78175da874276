// Package model defines the entity types stored as row payloads.
//
// The store never looks inside a payload; field shapes are owned here and
// by the callers of the table façade. Timestamps are Unix milliseconds.
package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// User is a registered account. Stored in the users table.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// RowID returns the entity id.
func (u *User) RowID() string { return u.ID }

// SetRowID sets the entity id.
func (u *User) SetRowID(id string) { u.ID = id }

// Post is an entry in the feed, ordered by CreatedAt.
type Post struct {
	ID        string   `json:"id"`
	AuthorID  string   `json:"author_id"`
	GroupID   string   `json:"group_id,omitempty"`
	Text      string   `json:"text"`
	Images    []string `json:"images,omitempty"`
	Likes     []string `json:"likes,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

// RowID returns the entity id.
func (p *Post) RowID() string { return p.ID }

// SetRowID sets the entity id.
func (p *Post) SetRowID(id string) { p.ID = id }

// Timestamp returns CreatedAt, the ordering key.
func (p *Post) Timestamp() int64 { return p.CreatedAt }

// SetTimestamp sets CreatedAt.
func (p *Post) SetTimestamp(ms int64) { p.CreatedAt = ms }

// Group is a community users can join. VIP groups gate content behind
// [VIPAccess] grants.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	OwnerID     string   `json:"owner_id"`
	Members     []string `json:"members,omitempty"`
	VIP         bool     `json:"vip,omitempty"`
}

// RowID returns the entity id.
func (g *Group) RowID() string { return g.ID }

// SetRowID sets the entity id.
func (g *Group) SetRowID(id string) { g.ID = id }

// Message is one chat line, embedded in its [Chat].
type Message struct {
	ID       string `json:"id"`
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
	SentAt   int64  `json:"sent_at"`
}

// Chat is a conversation between members. Its messages live inside the
// chat payload.
type Chat struct {
	ID        string    `json:"id"`
	Members   []string  `json:"members"`
	Messages  []Message `json:"messages,omitempty"`
	UpdatedAt int64     `json:"updated_at,omitempty"`
}

// RowID returns the entity id.
func (c *Chat) RowID() string { return c.ID }

// SetRowID sets the entity id.
func (c *Chat) SetRowID(id string) { c.ID = id }

// Touch records a change at ms.
func (c *Chat) Touch(ms int64) { c.UpdatedAt = ms }

// Notification is addressed to one user, newest first.
type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	Read      bool   `json:"read,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// RowID returns the entity id.
func (n *Notification) RowID() string { return n.ID }

// SetRowID sets the entity id.
func (n *Notification) SetRowID(id string) { n.ID = id }

// Timestamp returns CreatedAt, the ordering key.
func (n *Notification) Timestamp() int64 { return n.CreatedAt }

// SetTimestamp sets CreatedAt.
func (n *Notification) SetTimestamp(ms int64) { n.CreatedAt = ms }

// Relationship kinds.
const (
	Follow = "follow"
	Friend = "friend"
	Block  = "block"
)

// Relationship links UserID to TargetID. One row per ordered pair.
type Relationship struct {
	UserID   string `json:"user_id"`
	TargetID string `json:"target_id"`
	Kind     string `json:"kind"`
	Since    int64  `json:"since,omitempty"`
}

// RowID returns PairKey(UserID, TargetID).
func (r *Relationship) RowID() string { return PairKey(r.UserID, r.TargetID) }

// Validate rejects a relationship missing either side of the pair.
func (r *Relationship) Validate() error {
	return validPair("relationship", r.UserID, r.TargetID)
}

// VIP access statuses.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
	StatusRevoked = "revoked"
)

// VIPAccess grants a user access to a VIP group. One row per
// (user, group) pair.
type VIPAccess struct {
	UserID    string `json:"user_id"`
	GroupID   string `json:"group_id"`
	Status    string `json:"status"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// RowID returns PairKey(UserID, GroupID).
func (v *VIPAccess) RowID() string { return PairKey(v.UserID, v.GroupID) }

// Validate rejects a grant missing either side of the pair or carrying an
// unknown status.
func (v *VIPAccess) Validate() error {
	if err := validPair("vip access", v.UserID, v.GroupID); err != nil {
		return err
	}
	switch v.Status {
	case StatusActive, StatusExpired, StatusRevoked:
		return nil
	default:
		return fmt.Errorf("vip access %s: unknown status %q", v.RowID(), v.Status)
	}
}

// Active reports whether the grant is active at time now. A zero
// ExpiresAt never expires.
func (v *VIPAccess) Active(now int64) bool {
	if v.Status != StatusActive {
		return false
	}
	return v.ExpiresAt == 0 || now < v.ExpiresAt
}

// MarketplaceItem is a listing, newest first. Price is in minor units of
// Currency.
type MarketplaceItem struct {
	ID          string   `json:"id"`
	SellerID    string   `json:"seller_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       int64    `json:"price"`
	Currency    string   `json:"currency"`
	Images      []string `json:"images,omitempty"`
	Sold        bool     `json:"sold,omitempty"`
	CreatedAt   int64    `json:"created_at"`
}

// RowID returns the entity id.
func (m *MarketplaceItem) RowID() string { return m.ID }

// SetRowID sets the entity id.
func (m *MarketplaceItem) SetRowID(id string) { m.ID = id }

// Timestamp returns CreatedAt, the ordering key.
func (m *MarketplaceItem) Timestamp() int64 { return m.CreatedAt }

// SetTimestamp sets CreatedAt.
func (m *MarketplaceItem) SetTimestamp(ms int64) { m.CreatedAt = ms }

// AdCampaign is an advertiser's campaign, newest first. Budget is in minor
// units.
type AdCampaign struct {
	ID           string `json:"id"`
	AdvertiserID string `json:"advertiser_id"`
	Title        string `json:"title"`
	TargetURL    string `json:"target_url,omitempty"`
	Budget       int64  `json:"budget"`
	Status       string `json:"status"`
	CreatedAt    int64  `json:"created_at"`
}

// RowID returns the entity id.
func (a *AdCampaign) RowID() string { return a.ID }

// SetRowID sets the entity id.
func (a *AdCampaign) SetRowID(id string) { a.ID = id }

// Timestamp returns CreatedAt, the ordering key.
func (a *AdCampaign) Timestamp() int64 { return a.CreatedAt }

// SetTimestamp sets CreatedAt.
func (a *AdCampaign) SetTimestamp(ms int64) { a.CreatedAt = ms }

// PairSeparator joins the two halves of a composite key.
const PairSeparator = "_"

// PairKey returns the composite row id "{a}_{b}". Both halves are NFC
// normalized so canonically equal ids map to one row.
//
// Ids containing the separator can collide ("a_b"+"c" and "a"+"b_c");
// entity ids are UUIDs, which never contain it.
func PairKey(a, b string) string {
	return norm.NFC.String(a) + PairSeparator + norm.NFC.String(b)
}

func validPair(kind, a, b string) error {
	if a == "" || b == "" {
		return fmt.Errorf("%s: both ids of the pair are required (got %q, %q)", kind, a, b)
	}
	return nil
}

// SplitPairKey reverses PairKey on the first separator.
func SplitPairKey(key string) (a, b string, ok bool) {
	return strings.Cut(key, PairSeparator)
}
