package masking_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/content"
	"github.com/fablekeep/fablekeep/pkg/masking"
)

func hiddenCharacter(owner uuid.UUID) *content.Character {
	ownerID := owner
	return &content.Character{
		ID:          uuid.New(),
		Name:        "Aldric the Unseen",
		Description: "A ranger who keeps to the shadows",
		Level:       14,
		Visibility:  authz.VisibilityHidden,
		OwnerID:     &ownerID,
		Owner: &content.OwnerSummary{
			ID:         owner,
			Name:       "shadowfan42",
			Visibility: authz.VisibilityHidden,
		},
		Tags: []*content.Tag{
			{ID: uuid.New(), Name: "stealth", Visibility: authz.VisibilityPublic},
			{ID: uuid.New(), Name: "secret-guild", Description: "guild roster tag", Visibility: authz.VisibilityHidden, OwnerID: &ownerID},
		},
		Equipment: map[content.Slot]*content.Item{
			content.SlotMainHand: {ID: uuid.New(), Name: "Nightblade", Power: 31, Visibility: authz.VisibilityHidden, OwnerID: &ownerID},
			content.SlotHead:     {ID: uuid.New(), Name: "Plain Hood", Power: 2, Visibility: authz.VisibilityPublic},
		},
	}
}

func TestMask_ReferenceEqualityWhenNotHidden(t *testing.T) {
	c := hiddenCharacter(uuid.New())
	c.Visibility = authz.VisibilityPrivate

	viewer := &authz.Subject{ID: uuid.New(), Role: authz.RoleUser}
	assert.Same(t, c, masking.Mask(c, viewer, masking.Options{}))
	assert.Same(t, c, masking.Mask(c, nil, masking.Options{}))
}

func TestMask_OwnerAndStaffSeeEverything(t *testing.T) {
	owner := uuid.New()
	c := hiddenCharacter(owner)

	assert.Same(t, c, masking.Mask(c, &authz.Subject{ID: owner, Role: authz.RoleUser}, masking.Options{}))
	assert.Same(t, c, masking.Mask(c, &authz.Subject{ID: uuid.New(), Role: authz.RoleAdmin}, masking.Options{}))
	assert.Same(t, c, masking.Mask(c, &authz.Subject{ID: uuid.New(), Role: authz.RoleModerator}, masking.Options{}))
}

func TestMask_RedactsDescriptiveFieldsOnly(t *testing.T) {
	c := hiddenCharacter(uuid.New())
	viewer := &authz.Subject{ID: uuid.New(), Role: authz.RoleUser}

	masked := masking.Mask(c, viewer, masking.Options{})
	require.NotSame(t, c, masked)

	assert.Equal(t, masking.Sentinel, masked.Name)
	assert.Equal(t, masking.Sentinel, masked.Description)
	assert.Equal(t, c.ID, masked.ID)
	assert.Equal(t, c.Level, masked.Level)
	assert.Equal(t, c.Visibility, masked.Visibility)
	assert.Equal(t, c.OwnerID, masked.OwnerID)

	// The original is untouched.
	assert.Equal(t, "Aldric the Unseen", c.Name)
}

func TestMask_NestedRecursion(t *testing.T) {
	c := hiddenCharacter(uuid.New())
	viewer := &authz.Subject{ID: uuid.New(), Role: authz.RoleUser}

	masked := masking.Mask(c, viewer, masking.Options{})

	// Hidden nested owner summary is sentinel-masked.
	require.NotNil(t, masked.Owner)
	assert.Equal(t, masking.Sentinel, masked.Owner.Name)

	// The public tag keeps its reference, the hidden one is redacted.
	assert.Same(t, c.Tags[0], masked.Tags[0])
	assert.NotSame(t, c.Tags[1], masked.Tags[1])
	assert.Equal(t, masking.Sentinel, masked.Tags[1].Name)

	// Equipment slots: hidden item masked, public item shared.
	assert.Equal(t, masking.Sentinel, masked.Equipment[content.SlotMainHand].Name)
	assert.Equal(t, c.Equipment[content.SlotMainHand].Power, masked.Equipment[content.SlotMainHand].Power)
	assert.Same(t, c.Equipment[content.SlotHead], masked.Equipment[content.SlotHead])
}

func TestMask_NullHiddenNestedOption(t *testing.T) {
	c := hiddenCharacter(uuid.New())
	viewer := &authz.Subject{ID: uuid.New(), Role: authz.RoleUser}

	masked := masking.Mask(c, viewer, masking.Options{NullHiddenNested: true})

	assert.Nil(t, masked.Owner)
	assert.Nil(t, masked.Equipment[content.SlotMainHand])
	assert.Same(t, c.Equipment[content.SlotHead], masked.Equipment[content.SlotHead])
}

func TestMask_Idempotent(t *testing.T) {
	c := hiddenCharacter(uuid.New())
	viewer := &authz.Subject{ID: uuid.New(), Role: authz.RoleUser}
	opts := masking.Options{}

	once := masking.Mask(c, viewer, opts)
	twice := masking.Mask(once, viewer, opts)

	assert.Equal(t, once, twice)
}

func TestMaskSlice_PreservesReferenceWhenUntouched(t *testing.T) {
	viewer := &authz.Subject{ID: uuid.New(), Role: authz.RoleUser}

	public := []*content.Tag{
		{ID: uuid.New(), Name: "alpha", Visibility: authz.VisibilityPublic},
		{ID: uuid.New(), Name: "beta", Visibility: authz.VisibilityPrivate},
	}
	out := masking.MaskSlice(public, viewer, masking.Options{})
	assert.Same(t, &public[0], &out[0], "untouched slice must keep its backing array")

	mixed := append(public, &content.Tag{ID: uuid.New(), Name: "gamma", Visibility: authz.VisibilityHidden})
	out = masking.MaskSlice(mixed, viewer, masking.Options{})
	assert.NotSame(t, &mixed[0], &out[0], "masked slice must be a copy")
	assert.Same(t, mixed[0], out[0])
	assert.Equal(t, masking.Sentinel, out[2].Name)
	assert.Equal(t, "gamma", mixed[2].Name, "source slice untouched")
}
