package campaigns

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"looklike/internal/db"
	"looklike/internal/models"
)

type linkKey struct{ campaign, prospect uuid.UUID }

// memStore mirrors the Postgres repository's error contract in memory.
type memStore struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*models.Campaign
	prospects map[uuid.UUID]*models.Prospect
	links     map[linkKey]*models.CampaignProspect
	updates   int
}

func newMemStore() *memStore {
	return &memStore{
		campaigns: map[uuid.UUID]*models.Campaign{},
		prospects: map[uuid.UUID]*models.Prospect{},
		links:     map[linkKey]*models.CampaignProspect{},
	}
}

func (m *memStore) addProspect(placeID string) *models.Prospect {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &models.Prospect{ID: uuid.New(), PlaceID: placeID, Name: placeID}
	m.prospects[p.ID] = p
	return p
}

func (m *memStore) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memStore) GetCampaign(ctx context.Context, id uuid.UUID) (*models.CampaignSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, db.ErrCampaignNotFound
	}
	s := &models.CampaignSummary{Campaign: *c}
	for k, l := range m.links {
		if k.campaign != id {
			continue
		}
		s.ProspectCount++
		if l.Status == models.StatusConverted {
			s.ConvertedCount++
		}
	}
	return s, nil
}

func (m *memStore) ListCampaigns(ctx context.Context) ([]models.CampaignSummary, error) {
	return nil, nil
}

func (m *memStore) UpdateCampaign(ctx context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[c.ID]; !ok {
		return db.ErrCampaignNotFound
	}
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memStore) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[id]; !ok {
		return db.ErrCampaignNotFound
	}
	delete(m.campaigns, id)
	for k := range m.links {
		if k.campaign == id {
			delete(m.links, k)
		}
	}
	return nil
}

func (m *memStore) GetProspectByPlaceID(ctx context.Context, placeID string) (*models.Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.prospects {
		if p.PlaceID == placeID {
			return p, nil
		}
	}
	return nil, db.ErrProspectNotFound
}

func (m *memStore) AttachProspect(ctx context.Context, cp *models.CampaignProspect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[cp.CampaignID]; !ok {
		return db.ErrCampaignNotFound
	}
	if _, ok := m.prospects[cp.ProspectID]; !ok {
		return db.ErrProspectNotFound
	}
	key := linkKey{cp.CampaignID, cp.ProspectID}
	if _, ok := m.links[key]; ok {
		return db.ErrDuplicateAssociation
	}
	cp.AddedAt = time.Now()
	cp.StatusUpdatedAt = cp.AddedAt
	stored := *cp
	m.links[key] = &stored
	return nil
}

func (m *memStore) GetCampaignProspect(ctx context.Context, campaignID, prospectID uuid.UUID) (*models.CampaignProspect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[linkKey{campaignID, prospectID}]
	if !ok {
		return nil, db.ErrAssociationNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) UpdateCampaignProspectStatus(ctx context.Context, campaignID, prospectID uuid.UUID, status models.Status) (*models.CampaignProspect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[linkKey{campaignID, prospectID}]
	if !ok {
		return nil, db.ErrAssociationNotFound
	}
	m.updates++
	l.Status = status
	cp := *l
	return &cp, nil
}

func (m *memStore) UpdateCampaignProspectNotes(ctx context.Context, campaignID, prospectID uuid.UUID, notes string) (*models.CampaignProspect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[linkKey{campaignID, prospectID}]
	if !ok {
		return nil, db.ErrAssociationNotFound
	}
	l.Notes = notes
	cp := *l
	return &cp, nil
}

func (m *memStore) DetachProspect(ctx context.Context, campaignID, prospectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := linkKey{campaignID, prospectID}
	if _, ok := m.links[key]; !ok {
		return db.ErrAssociationNotFound
	}
	delete(m.links, key)
	return nil
}

func (m *memStore) ListCampaignProspects(ctx context.Context, campaignID uuid.UUID, status *models.Status) ([]models.CampaignProspect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CampaignProspect
	for k, l := range m.links {
		if k.campaign != campaignID || (status != nil && l.Status != *status) {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func setup(t *testing.T) (*Tracker, *memStore, *models.Campaign, *models.Prospect) {
	t.Helper()
	store := newMemStore()
	tracker := NewTracker(store)
	c, err := tracker.CreateCampaign(context.Background(), "Q1 Chicago", nil)
	require.NoError(t, err)
	return tracker, store, c, store.addProspect("place_123")
}

func TestAttach(t *testing.T) {
	tracker, _, c, p := setup(t)

	cp, err := tracker.Attach(context.Background(), AttachInput{CampaignID: c.ID, ProspectID: p.ID, Notes: "  warm lead "})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, cp.Status)
	assert.Equal(t, "warm lead", cp.Notes)
	assert.False(t, cp.AddedAt.IsZero())
}

func TestAttach_Twice(t *testing.T) {
	tracker, _, c, p := setup(t)
	ctx := context.Background()
	in := AttachInput{CampaignID: c.ID, ProspectID: p.ID}

	_, err := tracker.Attach(ctx, in)
	require.NoError(t, err)
	_, err = tracker.Attach(ctx, in)
	assert.ErrorIs(t, err, db.ErrDuplicateAssociation)
}

func TestAttach_Status(t *testing.T) {
	tests := []struct {
		status  string
		wantErr bool
	}{
		{"", false},
		{"new", false},
		{"NEW", false},
		{"contacted", true},
		{"converted", true},
		{"archived", true},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			tracker, store, c, p := setup(t)
			_, err := tracker.Attach(context.Background(), AttachInput{CampaignID: c.ID, ProspectID: p.ID, Status: tt.status})
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidStatus)
				assert.Empty(t, store.links)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAttach_UnknownReferences(t *testing.T) {
	tracker, _, c, p := setup(t)
	ctx := context.Background()

	_, err := tracker.Attach(ctx, AttachInput{CampaignID: uuid.New(), ProspectID: p.ID})
	assert.ErrorIs(t, err, db.ErrCampaignNotFound)
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = tracker.Attach(ctx, AttachInput{CampaignID: c.ID, ProspectID: uuid.New()})
	assert.ErrorIs(t, err, db.ErrProspectNotFound)
}

func TestAttachByPlaceID(t *testing.T) {
	tracker, _, c, p := setup(t)
	ctx := context.Background()

	cp, err := tracker.AttachByPlaceID(ctx, c.ID, "place_123", AttachInput{})
	require.NoError(t, err)
	assert.Equal(t, p.ID, cp.ProspectID)
	require.NotNil(t, cp.Prospect)
	assert.Equal(t, "place_123", cp.Prospect.PlaceID)

	_, err = tracker.AttachByPlaceID(ctx, c.ID, "place_unknown", AttachInput{})
	assert.ErrorIs(t, err, db.ErrProspectNotFound)
}

func TestTransition_FromNew(t *testing.T) {
	for _, target := range []models.Status{
		models.StatusContacted,
		models.StatusQualified,
		models.StatusNotInterested,
		models.StatusConverted,
	} {
		t.Run(string(target), func(t *testing.T) {
			tracker, _, c, p := setup(t)
			ctx := context.Background()
			_, err := tracker.Attach(ctx, AttachInput{CampaignID: c.ID, ProspectID: p.ID})
			require.NoError(t, err)

			cp, err := tracker.Transition(ctx, c.ID, p.ID, string(target))
			require.NoError(t, err)
			assert.Equal(t, target, cp.Status)
		})
	}
}

func TestTransition_IntoNewAlwaysFails(t *testing.T) {
	for _, from := range models.Statuses {
		t.Run(string(from), func(t *testing.T) {
			tracker, store, c, p := setup(t)
			ctx := context.Background()
			_, err := tracker.Attach(ctx, AttachInput{CampaignID: c.ID, ProspectID: p.ID})
			require.NoError(t, err)
			if from != models.StatusNew {
				_, err = tracker.Transition(ctx, c.ID, p.ID, string(from))
				require.NoError(t, err)
			}
			before := store.updates

			_, err = tracker.Transition(ctx, c.ID, p.ID, "new")
			assert.ErrorIs(t, err, models.ErrInvalidStatus)
			assert.Equal(t, before, store.updates, "no write on rejected transition")
		})
	}
}

func TestTransition_FreeMovementBetweenActiveStates(t *testing.T) {
	tracker, _, c, p := setup(t)
	ctx := context.Background()
	_, err := tracker.Attach(ctx, AttachInput{CampaignID: c.ID, ProspectID: p.ID})
	require.NoError(t, err)

	path := []string{"contacted", "not_interested", "qualified", "converted", "contacted", "not_interested", "converted"}
	for _, s := range path {
		cp, err := tracker.Transition(ctx, c.ID, p.ID, s)
		require.NoError(t, err, "to %s", s)
		assert.Equal(t, models.Status(s), cp.Status)
	}
}

func TestTransition_Errors(t *testing.T) {
	tracker, _, c, p := setup(t)
	ctx := context.Background()

	_, err := tracker.Transition(ctx, c.ID, p.ID, "contacted")
	assert.ErrorIs(t, err, db.ErrAssociationNotFound)

	_, err = tracker.Transition(ctx, c.ID, p.ID, "won")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestDetach_KeepsProspect(t *testing.T) {
	tracker, store, c, p := setup(t)
	ctx := context.Background()
	_, err := tracker.Attach(ctx, AttachInput{CampaignID: c.ID, ProspectID: p.ID})
	require.NoError(t, err)

	require.NoError(t, tracker.Detach(ctx, c.ID, p.ID))
	assert.ErrorIs(t, tracker.Detach(ctx, c.ID, p.ID), db.ErrAssociationNotFound)
	assert.Contains(t, store.prospects, p.ID)

	// Detached pairs can be attached again.
	_, err = tracker.Attach(ctx, AttachInput{CampaignID: c.ID, ProspectID: p.ID})
	assert.NoError(t, err)
}

func TestUpdateNotes(t *testing.T) {
	tracker, _, c, p := setup(t)
	ctx := context.Background()
	_, err := tracker.Attach(ctx, AttachInput{CampaignID: c.ID, ProspectID: p.ID})
	require.NoError(t, err)

	cp, err := tracker.UpdateNotes(ctx, c.ID, p.ID, " call back Tuesday ")
	require.NoError(t, err)
	assert.Equal(t, "call back Tuesday", cp.Notes)
}

func TestListProspects(t *testing.T) {
	tracker, store, c, p := setup(t)
	ctx := context.Background()
	other := store.addProspect("place_456")

	for _, id := range []uuid.UUID{p.ID, other.ID} {
		_, err := tracker.Attach(ctx, AttachInput{CampaignID: c.ID, ProspectID: id})
		require.NoError(t, err)
	}
	_, err := tracker.Transition(ctx, c.ID, other.ID, "qualified")
	require.NoError(t, err)

	all, err := tracker.ListProspects(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	qualified, err := tracker.ListProspects(ctx, c.ID, "Qualified")
	require.NoError(t, err)
	require.Len(t, qualified, 1)
	assert.Equal(t, other.ID, qualified[0].ProspectID)

	none, err := tracker.ListProspects(ctx, c.ID, "converted")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = tracker.ListProspects(ctx, c.ID, "bogus")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	_, err = tracker.ListProspects(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, db.ErrCampaignNotFound)
}

func TestCampaignCRUD(t *testing.T) {
	tracker, store, c, p := setup(t)
	ctx := context.Background()

	_, err := tracker.CreateCampaign(ctx, "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidCampaign)

	desc := "  downtown restaurants "
	name := "Q2 Chicago"
	updated, err := tracker.UpdateCampaign(ctx, c.ID, &name, &desc)
	require.NoError(t, err)
	assert.Equal(t, "Q2 Chicago", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "downtown restaurants", *updated.Description)

	empty := ""
	updated, err = tracker.UpdateCampaign(ctx, c.ID, nil, &empty)
	require.NoError(t, err)
	assert.Equal(t, "Q2 Chicago", updated.Name)
	assert.Nil(t, updated.Description)

	_, err = tracker.Attach(ctx, AttachInput{CampaignID: c.ID, ProspectID: p.ID})
	require.NoError(t, err)
	_, err = tracker.Transition(ctx, c.ID, p.ID, "converted")
	require.NoError(t, err)

	summary, err := tracker.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProspectCount)
	assert.Equal(t, 1, summary.ConvertedCount)

	require.NoError(t, tracker.DeleteCampaign(ctx, c.ID))
	assert.Empty(t, store.links)
	assert.Contains(t, store.prospects, p.ID)

	_, err = tracker.GetCampaign(ctx, c.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	list, err := tracker.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
}
