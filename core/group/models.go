package group

import (
	"time"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
)

// Group is a study group. Chat happens elsewhere; this is membership only.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	OwnerID     string    `json:"owner_id"`
	MemberIDs   []string  `json:"member_ids"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (g *Group) HasMember(id string) bool {
	for _, mid := range g.MemberIDs {
		if mid == id {
			return true
		}
	}
	return false
}

// NewGroup contains information needed to create a Group.
type NewGroup struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Subject     string `json:"subject" validate:"omitempty,max=100"`
}

func (ng *NewGroup) Validate() error {
	ng.Name = core.CleanString(ng.Name)
	ng.Description = core.CleanString(ng.Description)
	ng.Subject = core.CleanString(ng.Subject)
	return core.Validate.Struct(ng)
}
