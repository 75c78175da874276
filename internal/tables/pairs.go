package tables

import (
	"context"

	"github.com/roach88/tabsync/internal/model"
)

// Relationships stores one row per (user, target) pair.
type Relationships struct {
	*Collection[model.Relationship, *model.Relationship]
}

// Between returns the relationship from userID to targetID.
func (r *Relationships) Between(ctx context.Context, userID, targetID string) (model.Relationship, bool, error) {
	return r.Get(ctx, model.PairKey(userID, targetID))
}

// Link stores a relationship of kind from userID to targetID, replacing
// any previous one for the pair.
func (r *Relationships) Link(ctx context.Context, userID, targetID, kind string) error {
	return r.Set(ctx, &model.Relationship{
		UserID:   userID,
		TargetID: targetID,
		Kind:     kind,
		Since:    r.clock.NowMillis(),
	})
}

// Unlink removes the relationship from userID to targetID.
func (r *Relationships) Unlink(ctx context.Context, userID, targetID string) error {
	return r.Delete(ctx, model.PairKey(userID, targetID))
}

// From returns the relationships userID has with others, optionally only
// of one kind.
func (r *Relationships) From(ctx context.Context, userID, kind string) ([]model.Relationship, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Relationship
	for _, rel := range all {
		if rel.UserID == userID && (kind == "" || rel.Kind == kind) {
			out = append(out, rel)
		}
	}
	return out, nil
}

// VIP stores one access grant per (user, group) pair.
type VIP struct {
	*Collection[model.VIPAccess, *model.VIPAccess]
}

// CheckStatus reports whether userID holds an active, unexpired grant for
// groupID. A missing grant is false, not an error.
func (v *VIP) CheckStatus(ctx context.Context, userID, groupID string) (bool, error) {
	access, ok, err := v.Get(ctx, model.PairKey(userID, groupID))
	if err != nil || !ok {
		return false, err
	}
	return access.Active(v.clock.NowMillis()), nil
}

// Grant stores an active grant. expiresAt of zero never expires.
func (v *VIP) Grant(ctx context.Context, userID, groupID string, expiresAt int64) error {
	return v.Set(ctx, &model.VIPAccess{
		UserID:    userID,
		GroupID:   groupID,
		Status:    model.StatusActive,
		ExpiresAt: expiresAt,
	})
}

// Revoke removes the grant for the pair.
func (v *VIP) Revoke(ctx context.Context, userID, groupID string) error {
	return v.Delete(ctx, model.PairKey(userID, groupID))
}
