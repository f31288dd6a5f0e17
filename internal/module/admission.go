package module

import (
	"fmt"
	"math"
	"time"

	"github.com/iliyamo/live-request-queue/internal/model"
	"github.com/iliyamo/live-request-queue/internal/repository"
)

// AdmissionProbe is the snapshot of a requester's recent activity that
// admission policies decide on.  The engine gathers it under the per-key
// lock so policies never race with a concurrent create.
type AdmissionProbe struct {
	Config        *model.ModuleConfig
	LastCreatedAt *time.Time // most recent request by this requester in this event+module
	ActiveCount   int        // this requester's non-terminal requests in this event+module
	Now           time.Time
}

// AdmissionPolicy decides whether a new request may be created.  A nil
// return admits the request; a rejection is a *repository.DomainError of
// kind rate_limited.
type AdmissionPolicy interface {
	Admit(p AdmissionProbe) error
}

// CooldownPolicy rejects a create when the requester already created a
// request within the config's cooldown window.  A cooldown of zero
// disables the policy.
type CooldownPolicy struct{}

func (CooldownPolicy) Admit(p AdmissionProbe) error {
	cooldown := time.Duration(p.Config.CooldownSeconds) * time.Second
	if cooldown <= 0 || p.LastCreatedAt == nil {
		return nil
	}
	elapsed := p.Now.Sub(*p.LastCreatedAt)
	if elapsed >= cooldown {
		return nil
	}
	wait := int(math.Ceil((cooldown - elapsed).Seconds()))
	return repository.RateLimited(fmt.Sprintf("please wait %d seconds before requesting again", wait))
}

// ConcurrentCapPolicy rejects a create when the requester already has the
// configured maximum of non-terminal requests.  A cap of zero disables
// the policy.
type ConcurrentCapPolicy struct{}

func (ConcurrentCapPolicy) Admit(p AdmissionProbe) error {
	if p.Config.MaxPerPerson <= 0 || p.ActiveCount < p.Config.MaxPerPerson {
		return nil
	}
	return repository.RateLimited(fmt.Sprintf("you already have %d open requests; wait until one finishes", p.ActiveCount))
}
