// Package remote defines the boundary to the remote relational store and
// the identity provider, plus the concrete backends that implement it.
package remote

import (
	"context"
	"errors"

	"github.com/volako-app/volako/internal/model"
)

// ErrUnavailable is returned by backends when the remote cannot be reached.
// The sync manager treats it as an offline condition, not a failure.
var ErrUnavailable = errors.New("remote store unavailable")

// Table is one remote collection scoped by an owner identity column.
type Table[T any] interface {
	List(ctx context.Context, owner string) ([]T, error)
	Insert(ctx context.Context, owner string, records []T) error
	Update(ctx context.Context, owner string, record T) error
	Delete(ctx context.Context, owner string, id string) error
}

// SettingsStore holds the single per-owner settings row.
type SettingsStore interface {
	Get(ctx context.Context, owner string) (model.Settings, bool, error)
	Upsert(ctx context.Context, owner string, settings model.Settings) error
}

// Pinger probes remote connectivity. A failed probe means offline, never
// an error condition.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store bundles every remote table behind one value.
type Store struct {
	Expenses     Table[model.Expense]
	Incomes      Table[model.Income]
	Budgets      Table[model.Budget]
	Savings      Table[model.Saving]
	Transactions Table[model.SavingsTransaction]
	Settings     SettingsStore
	Health       Pinger
}

// Identity is the authenticated owner of the remote rows.
type Identity struct {
	ID    string
	Email string
}

// AuthEvent is delivered to auth-state subscribers.
type AuthEvent string

const (
	AuthSignedIn  AuthEvent = "signed-in"
	AuthSignedOut AuthEvent = "signed-out"
)

// IdentityProvider exposes the current authenticated identity. A nil
// identity (with nil error) means no one is signed in.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*Identity, error)
	OnAuthChange(fn func(AuthEvent, *Identity))
}

// StaticIdentity is an IdentityProvider for a fixed, pre-authenticated
// owner id, as configured for self-hosted deployments.
type StaticIdentity struct {
	Identity *Identity
	subs     []func(AuthEvent, *Identity)
}

// NewStaticIdentity returns a provider for the given owner id. An empty id
// yields a signed-out provider.
func NewStaticIdentity(id string) *StaticIdentity {
	p := &StaticIdentity{}
	if id != "" {
		p.Identity = &Identity{ID: id}
	}
	return p
}

func (p *StaticIdentity) CurrentUser(_ context.Context) (*Identity, error) {
	return p.Identity, nil
}

func (p *StaticIdentity) OnAuthChange(fn func(AuthEvent, *Identity)) {
	p.subs = append(p.subs, fn)
}

// SignOut clears the identity and notifies subscribers.
func (p *StaticIdentity) SignOut() {
	p.Identity = nil
	for _, fn := range p.subs {
		fn(AuthSignedOut, nil)
	}
}
