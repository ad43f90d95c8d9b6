package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidStatus is returned for unknown outreach statuses and for
// transitions the status machine does not allow.
var ErrInvalidStatus = errors.New("invalid status")

// Status is the outreach state of a prospect within one campaign.
type Status string

// Status constants
const (
	StatusNew           Status = "new"
	StatusContacted     Status = "contacted"
	StatusQualified     Status = "qualified"
	StatusNotInterested Status = "not_interested"
	StatusConverted     Status = "converted"
)

// Statuses lists every status in funnel order.
var Statuses = []Status{StatusNew, StatusContacted, StatusQualified, StatusNotInterested, StatusConverted}

// ParseStatus accepts a status in any letter case, e.g. "NOT_INTERESTED".
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusNotInterested, StatusConverted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a link in status s may move to next.
// Every move is allowed except into new, which is only ever the initial state.
func (s Status) CanTransitionTo(next Status) bool {
	return s.IsValid() && next.IsValid() && next != StatusNew
}

// ValidateTransitionTarget checks a requested target status independent of the
// current one; since no move into new is allowed this needs no read.
func ValidateTransitionTarget(raw string) (Status, error) {
	st, err := ParseStatus(raw)
	if err != nil {
		return "", err
	}
	if st == StatusNew {
		return "", fmt.Errorf("%w: cannot move a prospect back to %q", ErrInvalidStatus, StatusNew)
	}
	return st, nil
}

// IsSuccess reports whether the status counts as a win in reporting.
func (s Status) IsSuccess() bool {
	return s == StatusConverted
}

// Campaign is a named grouping of prospects under outreach.
type Campaign struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CampaignSummary is a campaign with per-status prospect counts.
type CampaignSummary struct {
	Campaign
	ProspectCount      int `json:"prospect_count"`
	ContactedCount     int `json:"contacted_count"`
	QualifiedCount     int `json:"qualified_count"`
	NotInterestedCount int `json:"not_interested_count"`
	ConvertedCount     int `json:"converted_count"`
}

// CampaignProspect links one prospect to one campaign and carries its outreach state.
type CampaignProspect struct {
	CampaignID        uuid.UUID  `json:"campaign_id"`
	ProspectID        uuid.UUID  `json:"prospect_id"`
	ReferenceClientID *uuid.UUID `json:"reference_client_id"`
	Status            Status     `json:"status"`
	Notes             string     `json:"notes"`
	AddedAt           time.Time  `json:"added_at"`
	StatusUpdatedAt   time.Time  `json:"status_updated_at"`

	// Populated by listing queries that join the prospect row.
	Prospect *Prospect `json:"prospect,omitempty"`
}
