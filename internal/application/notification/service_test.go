package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matching-sms-api/internal/application/preference"
	"github.com/matching-sms-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fixedGate struct {
	decision preference.Decision
	calls    int
}

func (g *fixedGate) Evaluate(context.Context, domain.Recipient, domain.NotificationKind) preference.Decision {
	g.calls++
	return g.decision
}

type mockLog struct{ mock.Mock }

func (m *mockLog) Append(ctx context.Context, e *domain.NotificationLogEntry) error {
	return m.Called(ctx, e).Error(0)
}
func (m *mockLog) ListByUser(ctx context.Context, userID string, limit int32) ([]domain.NotificationLogEntry, error) {
	args := m.Called(ctx, userID, limit)
	entries, _ := args.Get(0).([]domain.NotificationLogEntry)
	return entries, args.Error(1)
}

type mockRecipients struct{ mock.Mock }

func (m *mockRecipients) RecipientByID(ctx context.Context, userID string) (domain.Recipient, error) {
	args := m.Called(ctx, userID)
	r, _ := args.Get(0).(domain.Recipient)
	return r, args.Error(1)
}

type fakeSMS struct {
	mu       sync.Mutex
	to, body []string
	err      error
	block    bool
}

func (f *fakeSMS) SendSMS(ctx context.Context, to, message string) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.to = append(f.to, to)
	f.body = append(f.body, message)
	return "msg-1", nil
}

var (
	alice = domain.RealIdentity{UserID: "u1", PhoneNumber: "+15551234567"}
	demo  = domain.DemoIdentity{PhoneNumber: "+16504416163"}
	fixed = time.Date(2026, 6, 15, 18, 0, 0, 0, time.UTC)
)

type fixture struct {
	gate       *fixedGate
	log        *mockLog
	sms        *fakeSMS
	recipients *mockRecipients
	svc        Service
}

func newFixture(allowed bool, reason string) *fixture {
	f := &fixture{
		gate:       &fixedGate{decision: preference.Decision{Allowed: allowed, Reason: reason}},
		log:        &mockLog{},
		sms:        &fakeSMS{},
		recipients: &mockRecipients{},
	}
	f.svc = NewService(ServiceDeps{
		Gate:       f.gate,
		Log:        f.log,
		SMSSender:  f.sms,
		Recipients: f.recipients,
		LogSkipped: true,
		Timeout:    time.Second,
		Now:        func() time.Time { return fixed },
	})
	return f
}

func entryWith(status domain.NotificationStatus) interface{} {
	return mock.MatchedBy(func(e *domain.NotificationLogEntry) bool { return e.Status == status })
}

// --- dispatch ---

func TestSendMatchFound_Sent(t *testing.T) {
	f := newFixture(true, "")
	f.log.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.NotificationLogEntry) bool {
		return e.UserID == "u1" && e.Type == domain.KindMatchFound && e.Status == domain.StatusSent &&
			e.MessageID == "msg-1" && e.PhoneNumber == alice.PhoneNumber && e.EntryID != "" &&
			e.SentAt.Equal(fixed) && e.Data["name"] == "Sarah"
	})).Return(nil)

	res, err := f.svc.SendMatchFound(context.Background(), alice, domain.EventData{Name: "Sarah"})
	require.NoError(t, err)
	assert.Equal(t, &domain.DispatchResult{Sent: true, Status: domain.StatusSent, MessageID: "msg-1"}, res)
	require.Len(t, f.sms.body, 1)
	assert.Contains(t, f.sms.body[0], "Sarah is interested in you")
	assert.Equal(t, []string{alice.PhoneNumber}, f.sms.to)
	f.log.AssertExpectations(t)
}

func TestDispatch_Gated_NoTransportCall(t *testing.T) {
	f := newFixture(false, "quiet hours")
	f.log.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.NotificationLogEntry) bool {
		return e.Status == domain.StatusSkipped && e.Reason == "quiet hours"
	})).Return(nil)

	res, err := f.svc.SendProfileViewed(context.Background(), alice, domain.EventData{Name: "Jo"})
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, domain.StatusSkipped, res.Status)
	assert.Equal(t, "quiet hours", res.Reason)
	assert.Empty(t, f.sms.body)
	f.log.AssertExpectations(t)
}

func TestDispatch_Gated_NotLoggedWhenDisabled(t *testing.T) {
	f := newFixture(false, "sms notifications disabled")
	f.svc.(*service).logSkipped = false

	res, err := f.svc.SendReminder(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, res.Status)
	f.log.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestDispatch_TransportFailure_LogsFailedAndReturnsTransportError(t *testing.T) {
	f := newFixture(true, "")
	f.sms.err = errors.New("carrier rejected")
	f.log.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.NotificationLogEntry) bool {
		return e.Status == domain.StatusFailed && e.Reason == "carrier rejected" && e.MessageID == ""
	})).Return(nil)

	res, err := f.svc.SendMessageReceived(context.Background(), alice, domain.EventData{Name: "Alex", MessagePreview: "hi"})
	assert.True(t, errors.Is(err, domain.ErrTransport))
	require.NotNil(t, res)
	assert.Equal(t, domain.StatusFailed, res.Status)
	f.log.AssertExpectations(t)
}

func TestDispatch_TransportTimeout_IsFailed(t *testing.T) {
	f := newFixture(true, "")
	f.sms.block = true
	f.svc.(*service).timeout = 10 * time.Millisecond
	f.log.On("Append", mock.Anything, entryWith(domain.StatusFailed)).Return(nil).Once()

	_, err := f.svc.SendMatchFound(context.Background(), alice, domain.EventData{})
	assert.True(t, errors.Is(err, domain.ErrTransport))
	f.log.AssertNumberOfCalls(t, "Append", 1)
}

func TestDispatch_LogFailure_DoesNotChangeOutcome(t *testing.T) {
	f := newFixture(true, "")
	f.log.On("Append", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	res, err := f.svc.SendMatchFound(context.Background(), alice, domain.EventData{Name: "Sarah"})
	require.NoError(t, err)
	assert.True(t, res.Sent)
}

func TestDispatch_Demo_NotPersisted(t *testing.T) {
	f := newFixture(true, "")

	res, err := f.svc.SendReminder(context.Background(), demo)
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.Equal(t, []string{demo.PhoneNumber}, f.sms.to)
	f.log.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestDispatch_InvalidKind(t *testing.T) {
	f := newFixture(true, "")

	_, err := f.svc.Dispatch(context.Background(), alice, "poke", domain.EventData{})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Zero(t, f.gate.calls)
}

func TestDispatch_RecipientWithoutPhone(t *testing.T) {
	f := newFixture(true, "")

	_, err := f.svc.SendMatchFound(context.Background(), domain.RealIdentity{UserID: "u2"}, domain.EventData{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Empty(t, f.sms.body)
}

// --- process ---

func TestProcess_ResolvesAndDispatches(t *testing.T) {
	f := newFixture(true, "")
	f.recipients.On("RecipientByID", mock.Anything, "u1").Return(alice, nil)
	f.log.On("Append", mock.Anything, entryWith(domain.StatusSent)).Return(nil)

	res, err := f.svc.Process(context.Background(), domain.NotificationEvent{
		UserID: "u1", Type: domain.KindProfileViewed, Data: domain.EventData{Name: "Jo"},
	})
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.Contains(t, f.sms.body[0], "Jo viewed your profile")
}

func TestProcess_UnknownUser(t *testing.T) {
	f := newFixture(true, "")
	f.recipients.On("RecipientByID", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	_, err := f.svc.Process(context.Background(), domain.NotificationEvent{UserID: "ghost", Type: domain.KindMatchFound})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestProcess_Validation(t *testing.T) {
	f := newFixture(true, "")

	_, err := f.svc.Process(context.Background(), domain.NotificationEvent{Type: domain.KindMatchFound})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = f.svc.Process(context.Background(), domain.NotificationEvent{UserID: "u1", Type: "wink"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	f.recipients.AssertNotCalled(t, "RecipientByID", mock.Anything, mock.Anything)
}

// --- history ---

func TestHistory_Limits(t *testing.T) {
	f := newFixture(true, "")
	f.log.On("ListByUser", mock.Anything, "u1", int32(50)).Return(nil, nil).Once()
	f.log.On("ListByUser", mock.Anything, "u1", int32(100)).Return([]domain.NotificationLogEntry{{EntryID: "e1"}}, nil).Once()

	got, err := f.svc.History(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = f.svc.History(context.Background(), "u1", 500)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	f.log.AssertExpectations(t)
}

func TestHistory_StoreError(t *testing.T) {
	f := newFixture(true, "")
	f.log.On("ListByUser", mock.Anything, "u1", int32(10)).Return(nil, errors.New("boom"))

	_, err := f.svc.History(context.Background(), "u1", 10)
	assert.True(t, errors.Is(err, domain.ErrPersistence))
}
