package campaigns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"looklike/internal/models"
)

// ErrInvalidCampaign is returned for campaigns without a usable name.
var ErrInvalidCampaign = errors.New("invalid campaign")

const maxNameLength = 255

// Store is the persistence the tracker needs. *db.DB implements it.
type Store interface {
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	GetCampaign(ctx context.Context, id uuid.UUID) (*models.CampaignSummary, error)
	ListCampaigns(ctx context.Context) ([]models.CampaignSummary, error)
	UpdateCampaign(ctx context.Context, c *models.Campaign) error
	DeleteCampaign(ctx context.Context, id uuid.UUID) error

	GetProspectByPlaceID(ctx context.Context, placeID string) (*models.Prospect, error)

	AttachProspect(ctx context.Context, cp *models.CampaignProspect) error
	GetCampaignProspect(ctx context.Context, campaignID, prospectID uuid.UUID) (*models.CampaignProspect, error)
	UpdateCampaignProspectStatus(ctx context.Context, campaignID, prospectID uuid.UUID, status models.Status) (*models.CampaignProspect, error)
	UpdateCampaignProspectNotes(ctx context.Context, campaignID, prospectID uuid.UUID, notes string) (*models.CampaignProspect, error)
	DetachProspect(ctx context.Context, campaignID, prospectID uuid.UUID) error
	ListCampaignProspects(ctx context.Context, campaignID uuid.UUID, status *models.Status) ([]models.CampaignProspect, error)
}

// Tracker files prospects into campaigns and moves them through the
// outreach states.
type Tracker struct {
	store Store
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// AttachInput links one prospect to one campaign.
type AttachInput struct {
	CampaignID        uuid.UUID
	ProspectID        uuid.UUID
	ReferenceClientID *uuid.UUID
	Status            string
	Notes             string
}

// Attach creates a campaign/prospect link in the new state. A pair that is
// already linked fails with db.ErrDuplicateAssociation; use Transition to
// change its status.
func (t *Tracker) Attach(ctx context.Context, in AttachInput) (*models.CampaignProspect, error) {
	status := models.StatusNew
	if strings.TrimSpace(in.Status) != "" {
		parsed, err := models.ParseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		if parsed != models.StatusNew {
			return nil, fmt.Errorf("%w: prospects always start as %q", models.ErrInvalidStatus, models.StatusNew)
		}
		status = parsed
	}

	cp := &models.CampaignProspect{
		CampaignID:        in.CampaignID,
		ProspectID:        in.ProspectID,
		ReferenceClientID: in.ReferenceClientID,
		Status:            status,
		Notes:             strings.TrimSpace(in.Notes),
	}
	if err := t.store.AttachProspect(ctx, cp); err != nil {
		return nil, err
	}

	slog.Info("prospect attached to campaign",
		"campaign_id", cp.CampaignID,
		"prospect_id", cp.ProspectID,
	)
	return cp, nil
}

// AttachByPlaceID attaches the prospect known under an external catalog id.
func (t *Tracker) AttachByPlaceID(ctx context.Context, campaignID uuid.UUID, placeID string, in AttachInput) (*models.CampaignProspect, error) {
	prospect, err := t.store.GetProspectByPlaceID(ctx, strings.TrimSpace(placeID))
	if err != nil {
		return nil, err
	}
	in.CampaignID = campaignID
	in.ProspectID = prospect.ID
	cp, err := t.Attach(ctx, in)
	if err != nil {
		return nil, err
	}
	cp.Prospect = prospect
	return cp, nil
}

// Transition moves a linked prospect to a new status. Any non-new status may
// follow any other, including itself; nothing may go back to new.
func (t *Tracker) Transition(ctx context.Context, campaignID, prospectID uuid.UUID, newStatus string) (*models.CampaignProspect, error) {
	next, err := models.ValidateTransitionTarget(newStatus)
	if err != nil {
		return nil, err
	}

	current, err := t.store.GetCampaignProspect(ctx, campaignID, prospectID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidStatus, current.Status, next)
	}

	updated, err := t.store.UpdateCampaignProspectStatus(ctx, campaignID, prospectID, next)
	if err != nil {
		return nil, err
	}

	slog.Info("campaign prospect status changed",
		"campaign_id", campaignID,
		"prospect_id", prospectID,
		"from", current.Status,
		"to", next,
	)
	return updated, nil
}

// UpdateNotes replaces the notes on a link.
func (t *Tracker) UpdateNotes(ctx context.Context, campaignID, prospectID uuid.UUID, notes string) (*models.CampaignProspect, error) {
	return t.store.UpdateCampaignProspectNotes(ctx, campaignID, prospectID, strings.TrimSpace(notes))
}

// Detach removes the link. The prospect itself is kept.
func (t *Tracker) Detach(ctx context.Context, campaignID, prospectID uuid.UUID) error {
	return t.store.DetachProspect(ctx, campaignID, prospectID)
}

// ListProspects returns a campaign's links, optionally restricted to one
// status. An unknown campaign yields db.ErrCampaignNotFound rather than an
// empty list.
func (t *Tracker) ListProspects(ctx context.Context, campaignID uuid.UUID, status string) ([]models.CampaignProspect, error) {
	var filter *models.Status
	if strings.TrimSpace(status) != "" {
		s, err := models.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter = &s
	}

	if _, err := t.store.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	links, err := t.store.ListCampaignProspects(ctx, campaignID, filter)
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = []models.CampaignProspect{}
	}
	return links, nil
}

// CreateCampaign validates and stores a new campaign.
func (t *Tracker) CreateCampaign(ctx context.Context, name string, description *string) (*models.Campaign, error) {
	c := &models.Campaign{Name: strings.TrimSpace(name), Description: trimOptional(description)}
	if err := validateName(c.Name); err != nil {
		return nil, err
	}
	if err := t.store.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCampaign returns a campaign with its per-status counts.
func (t *Tracker) GetCampaign(ctx context.Context, id uuid.UUID) (*models.CampaignSummary, error) {
	return t.store.GetCampaign(ctx, id)
}

// ListCampaigns returns every campaign with its counts, newest first.
func (t *Tracker) ListCampaigns(ctx context.Context) ([]models.CampaignSummary, error) {
	campaigns, err := t.store.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	if campaigns == nil {
		campaigns = []models.CampaignSummary{}
	}
	return campaigns, nil
}

// UpdateCampaign changes the name and/or description. Nil leaves a field as is.
func (t *Tracker) UpdateCampaign(ctx context.Context, id uuid.UUID, name, description *string) (*models.CampaignSummary, error) {
	current, err := t.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	c := current.Campaign
	if name != nil {
		c.Name = strings.TrimSpace(*name)
		if err := validateName(c.Name); err != nil {
			return nil, err
		}
	}
	if description != nil {
		c.Description = trimOptional(description)
	}
	if err := t.store.UpdateCampaign(ctx, &c); err != nil {
		return nil, err
	}
	current.Campaign = c
	return current, nil
}

// DeleteCampaign removes a campaign and its links. Prospects are kept.
func (t *Tracker) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	return t.store.DeleteCampaign(ctx, id)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCampaign)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidCampaign, maxNameLength)
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
