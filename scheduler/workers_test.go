package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kyzma-platform/kyzmainvest-bot/models"

	"github.com/stretchr/testify/assert"
)

type stubInterestService struct {
	mu    sync.Mutex
	calls int
}

func (s *stubInterestService) ApplyToAllDeposits(ctx context.Context) (*models.AccrualRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return &models.AccrualRun{}, nil
}

func (s *stubInterestService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubAccountService struct {
	mu      sync.Mutex
	debtors []*models.Account
	calls   int
}

func (s *stubAccountService) GetOrCreateAccount(ctx context.Context, userID int64, displayName string) (*models.Account, error) {
	return nil, nil
}

func (s *stubAccountService) GetAccount(ctx context.Context, userID int64) (*models.Account, error) {
	return nil, nil
}

func (s *stubAccountService) Top(ctx context.Context, limit int) ([]*models.Account, error) {
	return nil, nil
}

func (s *stubAccountService) NegativeBalances(ctx context.Context, limit int) ([]*models.Account, error) {
	return nil, nil
}

func (s *stubAccountService) Debtors(ctx context.Context) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.debtors, nil
}

func (s *stubAccountService) GrantAll(ctx context.Context, amount int64) (int, error) {
	return 0, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages map[int64][]string
	operator []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{messages: make(map[int64][]string)}
}

func (n *recordingNotifier) Notify(ctx context.Context, userID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[userID] = append(n.messages[userID], text)
}

func (n *recordingNotifier) NotifyOperator(ctx context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.operator = append(n.operator, text)
}

func TestStartInterestWorker(t *testing.T) {
	interest := &stubInterestService{}
	s := New(interest, &stubAccountService{}, newRecordingNotifier())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := s.StartInterestWorker(ctx, 20*time.Millisecond)
	defer stop()

	// The worker fires on ticks only, so wait for a few
	assert.Eventually(t, func() bool {
		return interest.callCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartDebtReminderWorker(t *testing.T) {
	notifier := newRecordingNotifier()
	accounts := &stubAccountService{debtors: []*models.Account{
		{UserID: 100, DisplayName: "vasya", Debt: 400},
		{UserID: 200, DisplayName: "petya", Debt: 900},
	}}
	s := New(&stubInterestService{}, accounts, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := s.StartDebtReminderWorker(ctx, time.Hour)
	defer stop()

	// Runs immediately on startup
	assert.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.messages[100]) == 1 &&
			len(notifier.messages[200]) == 1 &&
			len(notifier.operator) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerCleanupStopsTicks(t *testing.T) {
	interest := &stubInterestService{}
	s := New(interest, &stubAccountService{}, newRecordingNotifier())

	stop := s.StartInterestWorker(context.Background(), 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return interest.callCount() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	stop()
	settled := interest.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, interest.callCount(), settled+1)
}
