package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/sse"
	"github.com/agencynet/agencynet-server/internal/store"
	"github.com/agencynet/agencynet-server/internal/store/sqlite"
	"github.com/agencynet/agencynet-server/internal/validation"
)

// testEnv wires every service against a temporary database and a shared clock.
type testEnv struct {
	db     *sqlite.Store
	store  store.Store
	events *recordingEmitter
	now    time.Time

	agencies      *AgencyService
	membership    *MembershipService
	notifier      *Notifier
	runner        *SagaRunner
	invitations   *InvitationService
	collaboration *CollaborationService
	sharing       *SharingService
}

// recordingEmitter captures change events so tests can count writes per table.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := event.(sse.Event); ok {
		r.events = append(r.events, e)
	}
}

func (r *recordingEmitter) count(table sse.Table) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Table == table {
			n++
		}
	}
	return n
}

func (r *recordingEmitter) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// flakyStore fails the next failNotifications notification writes.
type flakyStore struct {
	store.Store
	failNotifications int
}

var errRelayDown = errors.New("notification relay unavailable")

func (f *flakyStore) CreateNotification(ctx context.Context, n *domain.Notification) (bool, error) {
	if f.failNotifications > 0 {
		f.failNotifications--
		return false, errRelayDown
	}
	return f.Store.CreateNotification(ctx, n)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, func(s store.Store) store.Store { return s })
}

func newTestEnvWithStore(t *testing.T, wrap func(store.Store) store.Store) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	events := &recordingEmitter{}
	db.SetEmitter(events)

	logger := slog.New(slog.DiscardHandler)
	s := wrap(db)
	validator := validation.New()

	env := &testEnv{
		db:     db,
		store:  s,
		events: events,
		now:    time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	env.agencies = NewAgencyService(s, logger)
	env.membership = NewMembershipService(s, logger)
	env.membership.clock = clock
	env.notifier = NewNotifier(s, logger)
	env.notifier.clock = clock
	env.runner = NewSagaRunner(s, logger)
	env.runner.clock = clock
	env.invitations = NewInvitationService(s, env.membership, env.notifier, env.runner, validator, logger)
	env.invitations.clock = clock
	env.collaboration = NewCollaborationService(s, env.notifier, env.runner, validator, logger)
	env.collaboration.clock = clock
	env.sharing = NewSharingService(s, env.notifier, logger)
	env.sharing.clock = clock

	return env
}

func (e *testEnv) seedProfile(t *testing.T, id, email string, role domain.Role) *domain.Profile {
	t.Helper()
	p := &domain.Profile{Email: email, FullName: "Name " + id, Role: role}
	p.ID = id
	p.InitTimestamps(e.now)
	require.NoError(t, e.db.CreateProfile(context.Background(), p))
	return p
}

// seedAgency creates an agency owned by a new "<id>-owner" profile.
func (e *testEnv) seedAgency(t *testing.T, id, name string) *domain.Agency {
	t.Helper()
	owner := e.seedProfile(t, id+"-owner", id+"-owner@example.com", domain.RoleAgency)
	a := &domain.Agency{Name: name, OwnerID: owner.ID}
	a.ID = id
	a.InitTimestamps(e.now)
	require.NoError(t, e.db.CreateAgency(context.Background(), a))
	return a
}

// seedMember links agentID to agencyID as an active member.
func (e *testEnv) seedMember(t *testing.T, agencyID, agentID string) {
	t.Helper()
	e.seedProfile(t, agentID, agentID+"@example.com", domain.RoleAgent)
	require.NoError(t, e.membership.Upsert(context.Background(), agencyID, agentID, domain.LinkActive))
}

func (e *testEnv) notificationsFor(t *testing.T, recipientID string) []*domain.Notification {
	t.Helper()
	list, err := e.notifier.List(context.Background(), recipientID, 50)
	require.NoError(t, err)
	return list
}

func partialFailureDetails(t *testing.T, err error) domainerrors.PartialFailureDetails {
	t.Helper()
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, domainerrors.CodePartialFailure, domainErr.Code)
	details, ok := domainErr.Details.(domainerrors.PartialFailureDetails)
	require.True(t, ok, "details type %T", domainErr.Details)
	return details
}
