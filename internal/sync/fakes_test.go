package sync

import (
	"context"
	"sync"
	"time"

	"polyfolio/internal/domain"
)

// fakeSource serves canned trade pages keyed by offset.
type fakeSource struct {
	mu          sync.Mutex
	pages       map[int][]map[string]any
	markets     []map[string]any
	headErr     error
	pageErr     error
	marketErr   error
	headCalls   int
	pageCalls   int
	marketCalls [][]string
}

func (f *fakeSource) TradesPage(_ context.Context, _ string, _, offset int, _ bool) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls++
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return f.pages[offset], nil
}

func (f *fakeSource) HeadTrade(_ context.Context, _ string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headCalls++
	if f.headErr != nil {
		return nil, f.headErr
	}
	page := f.pages[0]
	if len(page) == 0 {
		return nil, nil
	}
	return page[0], nil
}

func (f *fakeSource) MarketsByIDs(_ context.Context, ids []string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marketCalls = append(f.marketCalls, ids)
	if f.marketErr != nil {
		return nil, f.marketErr
	}
	return f.markets, nil
}

type fakeTradeStore struct {
	mu          sync.Mutex
	rows        map[string]domain.TradeRecord
	upsertErr   error
	upsertCalls int
	upserted    int64
}

func newFakeTradeStore() *fakeTradeStore {
	return &fakeTradeStore{rows: make(map[string]domain.TradeRecord)}
}

func (f *fakeTradeStore) UpsertBulk(_ context.Context, rows []domain.TradeRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	var inserted int64
	for _, r := range rows {
		if _, exists := f.rows[r.TradeID]; !exists {
			inserted++
		}
		f.rows[r.TradeID] = r
	}
	f.upserted += inserted
	return inserted, nil
}

func (f *fakeTradeStore) ListByUser(_ context.Context, user string, _ domain.ListOpts) ([]domain.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TradeRecord
	for _, r := range f.rows {
		if r.UserAddress == user {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeTradeStore) ListBefore(_ context.Context, before time.Time) ([]domain.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TradeRecord
	for _, r := range f.rows {
		if time.UnixMilli(r.TradedAtMS).Before(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeTradeStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.rows {
		if time.UnixMilli(r.TradedAtMS).Before(before) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTradeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeMarketStore struct {
	mu       sync.Mutex
	rows     map[string]domain.Market
	staleIDs []string
}

func newFakeMarketStore() *fakeMarketStore {
	return &fakeMarketStore{rows: make(map[string]domain.Market)}
}

func (f *fakeMarketStore) UpsertBulk(_ context.Context, rows []domain.Market) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range rows {
		f.rows[m.MarketID] = m
	}
	return int64(len(rows)), nil
}

func (f *fakeMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMarketStore) FindUnknownIDs(_ context.Context, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, id := range ids {
		if _, ok := f.rows[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeMarketStore) PickStaleOpenIDs(_ context.Context, _ time.Duration) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.staleIDs, nil
}

// syncedCall records one SetSynced invocation.
type syncedCall struct {
	wm     domain.Watermark
	status domain.SyncStatus
	errMsg string
}

type fakeMetaStore struct {
	mu     sync.Mutex
	wm     domain.Watermark
	meta   domain.SyncMeta
	calls  []syncedCall
	wmSets []domain.Watermark
}

func newFakeMetaStore() *fakeMetaStore { return &fakeMetaStore{} }

func (f *fakeMetaStore) Get(_ context.Context, user string) (domain.SyncMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.meta
	m.UserAddress = user
	return m, nil
}

func (f *fakeMetaStore) Watermark(_ context.Context, _ string) (domain.Watermark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wm, nil
}

func (f *fakeMetaStore) SetWatermark(_ context.Context, _ string, wm domain.Watermark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wm = wm
	f.wmSets = append(f.wmSets, wm)
	return nil
}

func (f *fakeMetaStore) SetSynced(_ context.Context, user string, syncedAt time.Time, wm domain.Watermark, status domain.SyncStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, syncedCall{wm: wm, status: status, errMsg: errMsg})
	f.meta.UserAddress = user
	f.meta.Status = status
	f.meta.LastSyncedAt = &syncedAt
	f.meta.ErrorMsg = errMsg
	return nil
}

func (f *fakeMetaStore) TouchViewed(_ context.Context, _ string) error { return nil }

func (f *fakeMetaStore) lastCall() syncedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeMetaStore) watermark() domain.Watermark {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wm
}

type fakeLocker struct {
	err      error
	acquired int
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.acquired++
	return func() { f.released++ }, nil
}
