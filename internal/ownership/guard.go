// Package ownership decides whether a user may act on a checkin, response
// or reminder by walking reminder -> response -> checkin -> user.
package ownership

import (
	"fmt"

	"github.com/dukerupert/checkin/internal/apperr"
)

type Outcome int

const (
	NotFound Outcome = iota
	Forbidden
	Authorized
)

func (o Outcome) String() string {
	switch o {
	case Forbidden:
		return "forbidden"
	case Authorized:
		return "authorized"
	}
	return "not_found"
}

type Kind int

const (
	Checkin Kind = iota
	Response
	Reminder
)

func (k Kind) String() string {
	switch k {
	case Response:
		return "Response"
	case Reminder:
		return "Reminder"
	}
	return "Checkin"
}

// Target names the entity being accessed.
type Target struct {
	Kind Kind
	ID   string
}

func CheckinTarget(id string) Target  { return Target{Kind: Checkin, ID: id} }
func ResponseTarget(id string) Target { return Target{Kind: Response, ID: id} }
func ReminderTarget(id string) Target { return Target{Kind: Reminder, ID: id} }

// Resolver finds the owner at the end of a chain. found is false when the
// target or any link is missing. An empty owner means nobody owns it.
type Resolver interface {
	CheckinOwner(id string) (owner string, found bool, err error)
	ResponseOwner(id string) (owner string, found bool, err error)
	ReminderOwner(id string) (owner string, found bool, err error)
}

type Guard struct {
	resolver Resolver
}

func NewGuard(resolver Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// Authorize reports whether principal owns target.
func (g *Guard) Authorize(principal string, target Target) (Outcome, error) {
	var (
		owner string
		found bool
		err   error
	)
	switch target.Kind {
	case Checkin:
		owner, found, err = g.resolver.CheckinOwner(target.ID)
	case Response:
		owner, found, err = g.resolver.ResponseOwner(target.ID)
	case Reminder:
		owner, found, err = g.resolver.ReminderOwner(target.ID)
	default:
		return NotFound, fmt.Errorf("unknown target kind %d", target.Kind)
	}
	if err != nil {
		return NotFound, err
	}
	if !found {
		return NotFound, nil
	}
	if owner == "" || owner != principal {
		return Forbidden, nil
	}
	return Authorized, nil
}

// Check is Authorize with the outcome folded into an error: nil when
// authorized, otherwise an *apperr.Error of kind NotFound, Forbidden or
// Storage.
func (g *Guard) Check(principal string, target Target) error {
	outcome, err := g.Authorize(principal, target)
	if err != nil {
		return apperr.Internal(err, "Internal server error")
	}
	switch outcome {
	case Authorized:
		return nil
	case Forbidden:
		return apperr.Forbiddenf("Access denied")
	}
	return apperr.NotFoundf("%s not found", target.Kind)
}
