package tables

import (
	"github.com/roach88/tabsync/internal/db"
	"github.com/roach88/tabsync/internal/model"
	"github.com/roach88/tabsync/internal/schema"
)

// Tables groups the typed view of every table.
type Tables struct {
	Users         *Mapped[model.User, *model.User]
	Posts         *Ordered[model.Post, *model.Post]
	Groups        *Collection[model.Group, *model.Group]
	Chats         *Mapped[model.Chat, *model.Chat]
	Notifications *Ordered[model.Notification, *model.Notification]
	Relationships *Relationships
	VIPAccess     *VIP
	Marketplace   *Ordered[model.MarketplaceItem, *model.MarketplaceItem]
	Ads           *Ordered[model.AdCampaign, *model.AdCampaign]
}

type config struct {
	clock Clock
	newID func() string
}

// Option configures New.
type Option func(*config)

// WithClock sets the clock used for ordering keys and expiry checks.
// Default: wall clock.
func WithClock(c Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

// WithIDGenerator sets the generator for ids assigned by Add. Default:
// UUIDv7.
func WithIDGenerator(fn func() string) Option {
	return func(cfg *config) {
		cfg.newID = fn
	}
}

// New returns the typed tables over d.
func New(d *db.DB, opts ...Option) *Tables {
	cfg := &config{clock: systemClock{}, newID: newUUID}
	for _, opt := range opts {
		opt(cfg)
	}

	ordered := make(map[string]bool)
	for _, t := range d.Catalog() {
		ordered[t.Name] = t.Ordered
	}

	return &Tables{
		Users:         &Mapped[model.User, *model.User]{newCollection[model.User, *model.User](d, schema.Users, ordered[schema.Users], cfg)},
		Posts:         &Ordered[model.Post, *model.Post]{newCollection[model.Post, *model.Post](d, schema.Posts, ordered[schema.Posts], cfg)},
		Groups:        newCollection[model.Group, *model.Group](d, schema.Groups, ordered[schema.Groups], cfg),
		Chats:         &Mapped[model.Chat, *model.Chat]{newCollection[model.Chat, *model.Chat](d, schema.Chats, ordered[schema.Chats], cfg)},
		Notifications: &Ordered[model.Notification, *model.Notification]{newCollection[model.Notification, *model.Notification](d, schema.Notifications, ordered[schema.Notifications], cfg)},
		Relationships: &Relationships{newCollection[model.Relationship, *model.Relationship](d, schema.Relationships, ordered[schema.Relationships], cfg)},
		VIPAccess:     &VIP{newCollection[model.VIPAccess, *model.VIPAccess](d, schema.VIPAccess, ordered[schema.VIPAccess], cfg)},
		Marketplace:   &Ordered[model.MarketplaceItem, *model.MarketplaceItem]{newCollection[model.MarketplaceItem, *model.MarketplaceItem](d, schema.Marketplace, ordered[schema.Marketplace], cfg)},
		Ads:           &Ordered[model.AdCampaign, *model.AdCampaign]{newCollection[model.AdCampaign, *model.AdCampaign](d, schema.Ads, ordered[schema.Ads], cfg)},
	}
}
