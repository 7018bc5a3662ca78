// Package content defines the ownable entities served by the list and read
// endpoints: characters, the items they equip, and their tags. Each entity
// carries the owner and visibility facts the authorization engine decides on,
// and implements masking.Maskable for post-fetch redaction.
package content

import (
	"time"

	"github.com/google/uuid"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/masking"
)

// Slot identifies an equipment position on a character.
type Slot string

const (
	SlotHead     Slot = "head"
	SlotChest    Slot = "chest"
	SlotMainHand Slot = "main_hand"
	SlotOffHand  Slot = "off_hand"
	SlotTrinket  Slot = "trinket"
)

// OwnerSummary is the embedded owner projection attached to a character.
type OwnerSummary struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Visibility authz.Visibility `json:"visibility"`
}

// MaskVisibility implements masking.Maskable.
func (o *OwnerSummary) MaskVisibility() authz.Visibility { return o.Visibility }

// MaskOwnerID implements masking.Maskable. A profile is owned by itself.
func (o *OwnerSummary) MaskOwnerID() *uuid.UUID { return &o.ID }

// Redacted implements masking.Maskable.
func (o *OwnerSummary) Redacted(_ *authz.Subject, _ masking.Options) *OwnerSummary {
	cp := *o
	cp.Name = masking.Sentinel
	return &cp
}

// Tag labels characters and items.
type Tag struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Visibility  authz.Visibility `json:"visibility"`
	OwnerID     *uuid.UUID       `json:"owner_id,omitempty"`
}

// MaskVisibility implements masking.Maskable.
func (t *Tag) MaskVisibility() authz.Visibility { return t.Visibility }

// MaskOwnerID implements masking.Maskable.
func (t *Tag) MaskOwnerID() *uuid.UUID { return t.OwnerID }

// Redacted implements masking.Maskable.
func (t *Tag) Redacted(_ *authz.Subject, _ masking.Options) *Tag {
	cp := *t
	cp.Name = masking.Sentinel
	cp.Description = masking.Sentinel
	return &cp
}

// Item is an equippable piece of gear.
type Item struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Power       int              `json:"power"`
	Visibility  authz.Visibility `json:"visibility"`
	OwnerID     *uuid.UUID       `json:"owner_id,omitempty"`
}

// MaskVisibility implements masking.Maskable.
func (i *Item) MaskVisibility() authz.Visibility { return i.Visibility }

// MaskOwnerID implements masking.Maskable.
func (i *Item) MaskOwnerID() *uuid.UUID { return i.OwnerID }

// Redacted implements masking.Maskable.
func (i *Item) Redacted(_ *authz.Subject, _ masking.Options) *Item {
	cp := *i
	cp.Name = masking.Sentinel
	cp.Description = masking.Sentinel
	return &cp
}

// Character is the primary ownable entity.
type Character struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Level       int              `json:"level"`
	Visibility  authz.Visibility `json:"visibility"`
	OwnerID     *uuid.UUID       `json:"owner_id,omitempty"`
	Owner       *OwnerSummary    `json:"owner,omitempty"`
	Tags        []*Tag           `json:"tags,omitempty"`
	Equipment   map[Slot]*Item   `json:"equipment,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// MaskVisibility implements masking.Maskable.
func (c *Character) MaskVisibility() authz.Visibility { return c.Visibility }

// MaskOwnerID implements masking.Maskable.
func (c *Character) MaskOwnerID() *uuid.UUID { return c.OwnerID }

// Redacted implements masking.Maskable. Identifiers, level and timestamps
// stay intact; nested owner, tags and equipment slots are masked recursively.
func (c *Character) Redacted(viewer *authz.Subject, opts masking.Options) *Character {
	cp := *c
	cp.Name = masking.Sentinel
	cp.Description = masking.Sentinel

	if c.Owner != nil {
		cp.Owner = masking.Nested(c.Owner, viewer, opts)
	}

	cp.Tags = masking.MaskSlice(c.Tags, viewer, opts)

	if len(c.Equipment) > 0 {
		eq := make(map[Slot]*Item, len(c.Equipment))
		for slot, item := range c.Equipment {
			if item == nil {
				eq[slot] = nil
				continue
			}
			eq[slot] = masking.Nested(item, viewer, opts)
		}
		cp.Equipment = eq
	}

	return &cp
}

// OwnershipContext projects the facts the policy engine needs.
func (c *Character) OwnershipContext() authz.OwnershipContext {
	vis := c.Visibility
	ctx := authz.OwnershipContext{Visibility: &vis}
	if c.OwnerID != nil {
		id := *c.OwnerID
		ctx.OwnerID = &id
	}
	return ctx
}

// RowTimeFormat renders timestamps at fixed width: nine fractional digits,
// always UTC. RFC3339Nano trims trailing zeros, which breaks the invariant
// that lexicographic order on row values equals chronological order.
const RowTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Row represents the character as field values for in-memory predicate
// evaluation. Field names match the postgres column names so the same
// query.Expr works against both stores.
func (c *Character) Row() map[string]interface{} {
	row := map[string]interface{}{
		"id":         c.ID.String(),
		"name":       c.Name,
		"level":      c.Level,
		"visibility": string(c.Visibility),
		"created_at": c.CreatedAt.UTC().Format(RowTimeFormat),
	}
	if c.OwnerID != nil {
		row["owner_id"] = c.OwnerID.String()
	} else {
		row["owner_id"] = nil
	}
	return row
}
