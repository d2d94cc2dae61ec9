package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/models"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// fakeStore mimics the transactional store, including the conditional
// status transition that serializes concurrent terminations.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.Session
	tables   map[int64]*models.StudyTable
	wallets  map[int64]*models.Wallet
	entries  []models.WalletEntry

	// conflicts makes the next N CompleteSession calls fail with ErrConflict.
	conflicts int
	// completions counts successful status transitions.
	completions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]*models.Session),
		tables:   make(map[int64]*models.StudyTable),
		wallets:  make(map[int64]*models.Wallet),
	}
}

func (f *fakeStore) addTable(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[id] = &models.StudyTable{ID: id, Label: "T"}
}

func (f *fakeStore) addWallet(userID, balance int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallets[userID] = &models.Wallet{UserID: userID, Balance: balance}
}

func (f *fakeStore) addActiveSession(s models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := s
	copied.Status = models.SessionStatusActive
	f.sessions[s.ID] = &copied
	table := f.tables[s.TableID]
	if table != nil {
		table.Occupied = true
		table.CurrentUserID.Int64 = s.UserID
		table.CurrentUserID.Valid = true
	}
}

func (f *fakeStore) wallet(userID int64) models.Wallet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.wallets[userID]
}

func (f *fakeStore) table(id int64) models.StudyTable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.tables[id]
}

func (f *fakeStore) session(id uuid.UUID) models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.sessions[id]
}

func (f *fakeStore) debitEntries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.entries {
		if e.Kind == models.WalletEntryDebit {
			count++
		}
	}
	return count
}

func (f *fakeStore) StartSession(ctx context.Context, session *models.Session) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wallet, ok := f.wallets[session.UserID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	if wallet.Balance <= 0 {
		return nil, repository.ErrInsufficientCredit
	}

	table, ok := f.tables[session.TableID]
	if !ok {
		return nil, repository.ErrTableNotFound
	}
	if table.Occupied {
		return nil, repository.ErrTableOccupied
	}
	table.Occupied = true
	table.CurrentUserID.Int64 = session.UserID
	table.CurrentUserID.Valid = true

	copied := *session
	f.sessions[session.ID] = &copied
	return session, nil
}

func (f *fakeStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeStore) ExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired []models.Session
	for _, session := range f.sessions {
		if session.Status == models.SessionStatusActive && !session.ScheduledEndTime.After(now) {
			expired = append(expired, *session)
		}
		if len(expired) == limit {
			break
		}
	}
	return expired, nil
}

func (f *fakeStore) CompleteSession(ctx context.Context, upd repository.TerminationUpdate) (*repository.TerminationApplied, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conflicts > 0 {
		f.conflicts--
		return nil, repository.ErrConflict
	}

	session, ok := f.sessions[upd.SessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	if session.Status != models.SessionStatusActive {
		return nil, repository.ErrSessionNotActive
	}

	wallet, ok := f.wallets[upd.UserID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}

	session.Status = models.SessionStatusCompleted
	session.EndTime.Time = upd.EndTime
	session.EndTime.Valid = true
	session.Amount.Int64 = upd.Amount
	session.Amount.Valid = true
	f.completions++

	debited := upd.Amount
	if debited > wallet.Balance {
		debited = wallet.Balance
	}
	wallet.Balance -= debited
	wallet.TotalSpent += upd.Amount
	f.entries = append(f.entries, models.WalletEntry{
		UserID:    upd.UserID,
		SessionID: uuid.NullUUID{UUID: upd.SessionID, Valid: true},
		Amount:    -debited,
		Kind:      models.WalletEntryDebit,
	})

	freed := false
	if table, ok := f.tables[upd.TableID]; ok {
		if table.CurrentUserID.Valid && table.CurrentUserID.Int64 == upd.UserID {
			table.Occupied = false
			table.CurrentUserID.Valid = false
			table.CurrentUserID.Int64 = 0
			freed = true
		}
	}

	return &repository.TerminationApplied{
		NewBalance: wallet.Balance,
		Shortfall:  upd.Amount - debited,
		TableFreed: freed,
	}, nil
}

func (f *fakeStore) ExtendScheduledEnd(ctx context.Context, id uuid.UUID, userID int64, newEnd time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if session.Status != models.SessionStatusActive || session.UserID != userID {
		return repository.ErrSessionNotActive
	}
	session.ScheduledEndTime = newEnd
	return nil
}

func (f *fakeStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sessions []models.Session
	for _, session := range f.sessions {
		if session.UserID == userID {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

func (f *fakeStore) ActiveSessions(ctx context.Context, limit int) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sessions []models.Session
	for _, session := range f.sessions {
		if session.Status == models.SessionStatusActive {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

// GetWallet implements WalletStore.
func (f *fakeStore) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wallet, ok := f.wallets[userID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	copied := *wallet
	return &copied, nil
}

// Topup implements WalletStore.
func (f *fakeStore) Topup(ctx context.Context, userID, amount int64) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wallet, ok := f.wallets[userID]
	if !ok {
		wallet = &models.Wallet{UserID: userID}
		f.wallets[userID] = wallet
	}
	wallet.Balance += amount
	f.entries = append(f.entries, models.WalletEntry{
		UserID: userID,
		Amount: amount,
		Kind:   models.WalletEntryCredit,
	})
	copied := *wallet
	return &copied, nil
}

// ListEntries implements WalletStore.
func (f *fakeStore) ListEntries(ctx context.Context, userID int64, limit int) ([]models.WalletEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []models.WalletEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// GetTable implements TableRegistry.
func (f *fakeStore) GetTable(ctx context.Context, id int64) (*models.StudyTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table, ok := f.tables[id]
	if !ok {
		return nil, repository.ErrTableNotFound
	}
	copied := *table
	return &copied, nil
}

// ListTables implements TableRegistry.
func (f *fakeStore) ListTables(ctx context.Context) ([]models.StudyTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tables []models.StudyTable
	for _, table := range f.tables {
		tables = append(tables, *table)
	}
	return tables, nil
}

type fakeRates struct {
	rates  map[int64]*models.Rate
	active *models.Rate
}

func (f *fakeRates) GetRate(ctx context.Context, id int64) (*models.Rate, error) {
	rate, ok := f.rates[id]
	if !ok {
		return nil, repository.ErrRateNotFound
	}
	return rate, nil
}

func (f *fakeRates) ActiveRate(ctx context.Context) (*models.Rate, error) {
	if f.active == nil {
		return nil, repository.ErrRateNotFound
	}
	return f.active, nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []models.TerminationEvent
	err    error
}

func (f *fakeSink) PublishTermination(ctx context.Context, event models.TerminationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeSink) last() models.TerminationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}
