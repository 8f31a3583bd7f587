package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
)

// memRepo is an in-memory RepositoryPort. Each WithTx call works on a copy
// of the committed state and merges the rows it wrote back when fn succeeds.
// Row locks behave like SELECT ... FOR UPDATE: they are held until the
// transaction ends and the locked row is re-read from committed state.
type memRepo struct {
	mu    sync.Mutex
	state memState
	locks map[string]*sync.Mutex
	// lockCalls records the ids of every LockAccounts call.
	lockCalls [][]uuid.UUID
	// beforeLock runs on the committed state at the start of every
	// LockAccounts call.
	beforeLock func(st *memState)
}

type memState struct {
	accounts    map[uuid.UUID]Account
	vouchers    map[uuid.UUID]Voucher
	entries     []Entry
	seq         map[string]int64
	mappings    []AccountMapping
	allocations map[uuid.UUID][]Allocation
}

func newMemRepo() *memRepo {
	return &memRepo{
		state: memState{
			accounts:    map[uuid.UUID]Account{},
			vouchers:    map[uuid.UUID]Voucher{},
			seq:         map[string]int64{},
			allocations: map[uuid.UUID][]Allocation{},
		},
		locks: map[string]*sync.Mutex{},
	}
}

func (s memState) clone() memState {
	out := memState{
		accounts:    make(map[uuid.UUID]Account, len(s.accounts)),
		vouchers:    make(map[uuid.UUID]Voucher, len(s.vouchers)),
		entries:     append([]Entry(nil), s.entries...),
		seq:         make(map[string]int64, len(s.seq)),
		mappings:    append([]AccountMapping(nil), s.mappings...),
		allocations: make(map[uuid.UUID][]Allocation, len(s.allocations)),
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.vouchers {
		out.vouchers[k] = v
	}
	for k, v := range s.seq {
		out.seq[k] = v
	}
	for k, v := range s.allocations {
		out.allocations[k] = append([]Allocation(nil), v...)
	}
	return out
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	working := r.state.clone()
	r.mu.Unlock()

	tx := &memTx{
		repo:        r,
		st:          &working,
		base:        len(working.entries),
		held:        map[string]*sync.Mutex{},
		accounts:    map[uuid.UUID]struct{}{},
		vouchers:    map[uuid.UUID]struct{}{},
		seqKeys:     map[string]struct{}{},
		cancelled:   map[uuid.UUID]struct{}{},
		allocations: map[uuid.UUID]struct{}{},
	}
	defer tx.release()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.mu.Lock()
	tx.commit(&r.state)
	r.mu.Unlock()
	return nil
}

func (r *memRepo) rowLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	return m
}

func (r *memRepo) lockedIDs() [][]uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]uuid.UUID(nil), r.lockCalls...)
}

// account returns the committed account with the given code.
func (r *memRepo) account(code string) Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.state.accounts {
		if a.Code == code {
			return a
		}
	}
	return Account{}
}

func (r *memRepo) voucher(id uuid.UUID) Voucher {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.vouchers[id]
}

func (r *memRepo) voucherEntries(id uuid.UUID) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.state.entries {
		if e.VoucherID == id {
			out = append(out, e)
		}
	}
	return out
}

func (r *memRepo) entryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.entries)
}

type memTx struct {
	repo *memRepo
	st   *memState
	base int
	held map[string]*sync.Mutex

	accounts    map[uuid.UUID]struct{}
	vouchers    map[uuid.UUID]struct{}
	seqKeys     map[string]struct{}
	cancelled   map[uuid.UUID]struct{}
	allocations map[uuid.UUID]struct{}
	mappings    bool
}

// lock takes the row lock for key once per transaction.
func (t *memTx) lock(key string) {
	if _, ok := t.held[key]; ok {
		return
	}
	m := t.repo.rowLock(key)
	m.Lock()
	t.held[key] = m
}

func (t *memTx) release() {
	for key, m := range t.held {
		m.Unlock()
		delete(t.held, key)
	}
}

func (t *memTx) holds(key string) bool {
	_, ok := t.held[key]
	return ok
}

// commit merges the rows written by t into st. The caller holds repo.mu.
func (t *memTx) commit(st *memState) {
	for id := range t.accounts {
		st.accounts[id] = t.st.accounts[id]
	}
	for id := range t.vouchers {
		st.vouchers[id] = t.st.vouchers[id]
	}
	for key := range t.seqKeys {
		st.seq[key] = t.st.seq[key]
	}
	for i, e := range st.entries {
		if _, ok := t.cancelled[e.VoucherID]; ok {
			st.entries[i].IsCancelled = true
		}
	}
	st.entries = append(st.entries, t.st.entries[t.base:]...)
	if t.mappings {
		st.mappings = t.st.mappings
	}
	for id := range t.allocations {
		if allocs, ok := t.st.allocations[id]; ok {
			st.allocations[id] = allocs
		} else {
			delete(st.allocations, id)
		}
	}
}

func accountKey(id uuid.UUID) string { return "account/" + id.String() }
func voucherKey(id uuid.UUID) string { return "voucher/" + id.String() }

// lockVoucher locks a voucher row and refreshes it from committed state.
func (t *memTx) lockVoucher(id uuid.UUID) {
	t.lock(voucherKey(id))
	t.repo.mu.Lock()
	if v, ok := t.repo.state.vouchers[id]; ok {
		t.st.vouchers[id] = v
	}
	t.repo.mu.Unlock()
}

func (t *memTx) NextNumber(ctx context.Context, voucherType VoucherType, fiscalYear int) (string, error) {
	key := fmt.Sprintf("%s/%d", voucherType, fiscalYear)
	t.lock("seq/" + key)
	t.repo.mu.Lock()
	t.st.seq[key] = t.repo.state.seq[key]
	t.repo.mu.Unlock()
	t.st.seq[key]++
	t.seqKeys[key] = struct{}{}
	return FormatNumber(voucherType, t.st.seq[key]), nil
}

func (t *memTx) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	t.st.vouchers[v.ID] = v
	t.vouchers[v.ID] = struct{}{}
	return v, nil
}

func (t *memTx) GetVoucher(ctx context.Context, id uuid.UUID) (Voucher, error) {
	v, ok := t.st.vouchers[id]
	if !ok {
		return Voucher{}, ErrVoucherNotFound
	}
	return v, nil
}

func (t *memTx) GetVoucherForUpdate(ctx context.Context, id uuid.UUID) (Voucher, error) {
	t.lockVoucher(id)
	return t.GetVoucher(ctx, id)
}

func (t *memTx) MarkVoucherPosted(ctx context.Context, id uuid.UUID, actor string, at time.Time, total decimal.Decimal) error {
	v := t.st.vouchers[id]
	v.Status = VoucherStatusPosted
	v.PostedBy = actor
	v.PostedAt = &at
	v.TotalAmount = total
	t.st.vouchers[id] = v
	t.vouchers[id] = struct{}{}
	return nil
}

func (t *memTx) CancelVoucher(ctx context.Context, id uuid.UUID, reason, actor string) error {
	v := t.st.vouchers[id]
	v.Status = VoucherStatusCancelled
	v.CancelReason = reason
	t.st.vouchers[id] = v
	t.vouchers[id] = struct{}{}
	return nil
}

func (t *memTx) GetAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Account, error) {
	out := make(map[uuid.UUID]Account, len(ids))
	for _, id := range ids {
		if a, ok := t.st.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (t *memTx) LockAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Account, error) {
	t.repo.mu.Lock()
	t.repo.lockCalls = append(t.repo.lockCalls, append([]uuid.UUID(nil), ids...))
	if t.repo.beforeLock != nil {
		t.repo.beforeLock(&t.repo.state)
	}
	t.repo.mu.Unlock()

	for _, id := range ids {
		t.lock(accountKey(id))
	}
	t.repo.mu.Lock()
	for _, id := range ids {
		if a, ok := t.repo.state.accounts[id]; ok {
			t.st.accounts[id] = a
		}
	}
	t.repo.mu.Unlock()
	return t.GetAccounts(ctx, ids)
}

func (t *memTx) ApplyBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error {
	if !t.holds(accountKey(accountID)) {
		return fmt.Errorf("balance of %s updated without a row lock", accountID)
	}
	a := t.st.accounts[accountID]
	a.Balance = a.Balance.Add(delta)
	t.st.accounts[accountID] = a
	t.accounts[accountID] = struct{}{}
	return nil
}

func (t *memTx) InsertEntries(ctx context.Context, entries []Entry) error {
	t.st.entries = append(t.st.entries, entries...)
	return nil
}

func (t *memTx) ListVoucherEntries(ctx context.Context, voucherID uuid.UUID) ([]Entry, error) {
	var out []Entry
	for _, e := range t.st.entries {
		if e.VoucherID == voucherID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) CancelEntries(ctx context.Context, voucherID uuid.UUID) (int64, error) {
	var n int64
	for i, e := range t.st.entries {
		if e.VoucherID == voucherID && !e.IsCancelled {
			t.st.entries[i].IsCancelled = true
			n++
		}
	}
	t.cancelled[voucherID] = struct{}{}
	return n, nil
}

func (t *memTx) InsertAccount(ctx context.Context, a Account) (Account, error) {
	for _, existing := range t.st.accounts {
		if existing.Code == a.Code {
			return Account{}, ErrDuplicateCode
		}
	}
	t.st.accounts[a.ID] = a
	t.accounts[a.ID] = struct{}{}
	return a, nil
}

func (t *memTx) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	for _, a := range t.st.accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (t *memTx) ListAccounts(ctx context.Context) ([]Account, error) {
	out := make([]Account, 0, len(t.st.accounts))
	for _, a := range t.st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (t *memTx) SetAccountActive(ctx context.Context, id uuid.UUID, active bool) error {
	a := t.st.accounts[id]
	a.IsActive = active
	t.st.accounts[id] = a
	t.accounts[id] = struct{}{}
	return nil
}

func (t *memTx) GetActiveMapping(ctx context.Context) (AccountMapping, error) {
	for _, m := range t.st.mappings {
		if m.IsActive {
			return m, nil
		}
	}
	return AccountMapping{}, ErrMappingNotFound
}

func (t *memTx) DeactivateMappings(ctx context.Context, actor string) error {
	for i := range t.st.mappings {
		t.st.mappings[i].IsActive = false
		t.st.mappings[i].UpdatedBy = actor
	}
	t.mappings = true
	return nil
}

func (t *memTx) InsertMapping(ctx context.Context, m AccountMapping) (AccountMapping, error) {
	t.st.mappings = append(t.st.mappings, m)
	t.mappings = true
	return m, nil
}

func (t *memTx) SetInvoiceTerms(ctx context.Context, voucherID uuid.UUID, outstanding decimal.Decimal, dueDate *time.Time, settlementOrder *int) error {
	v := t.st.vouchers[voucherID]
	v.Outstanding = outstanding
	v.DueDate = dueDate
	v.SettlementOrder = settlementOrder
	t.st.vouchers[voucherID] = v
	t.vouchers[voucherID] = struct{}{}
	return nil
}

func (t *memTx) ListOpenInvoicesForUpdate(ctx context.Context, partyType string, partyID uuid.UUID) ([]OpenItem, error) {
	var items []OpenItem
	for _, v := range t.st.vouchers {
		if v.Type != VoucherTypeInvoice || v.Status != VoucherStatusPosted || v.PartyType != partyType ||
			v.PartyID == nil || *v.PartyID != partyID || !v.Outstanding.IsPositive() {
			continue
		}
		items = append(items, OpenItem{
			ID:              v.ID,
			Number:          v.Number,
			Date:            v.Date,
			DueDate:         v.DueDate,
			SettlementOrder: v.SettlementOrder,
			Outstanding:     v.Outstanding,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID.String() < items[j].ID.String() })
	for i, item := range items {
		t.lockVoucher(item.ID)
		items[i].Outstanding = t.st.vouchers[item.ID].Outstanding
	}
	return items, nil
}

func (t *memTx) AllocatedTotal(ctx context.Context, voucherID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, a := range t.st.allocations[voucherID] {
		total = total.Add(a.Amount)
	}
	return total, nil
}

func (t *memTx) InsertAllocations(ctx context.Context, voucherID uuid.UUID, allocations []Allocation) error {
	t.st.allocations[voucherID] = append(t.st.allocations[voucherID], allocations...)
	t.allocations[voucherID] = struct{}{}
	return nil
}

func (t *memTx) ApplyInvoiceSettlement(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal) error {
	v := t.st.vouchers[invoiceID]
	v.Outstanding = decimal.Max(decimal.Zero, v.Outstanding.Sub(amount))
	t.st.vouchers[invoiceID] = v
	t.vouchers[invoiceID] = struct{}{}
	return nil
}

func (t *memTx) ReleaseAllocations(ctx context.Context, voucherID uuid.UUID) (int, error) {
	released := t.st.allocations[voucherID]
	delete(t.st.allocations, voucherID)
	t.allocations[voucherID] = struct{}{}
	touched := map[uuid.UUID]struct{}{}
	for _, a := range released {
		v := t.st.vouchers[a.InvoiceID]
		if v.Status != VoucherStatusPosted {
			continue
		}
		v.Outstanding = decimal.Min(v.TotalAmount, v.Outstanding.Add(a.Amount))
		t.st.vouchers[a.InvoiceID] = v
		t.vouchers[a.InvoiceID] = struct{}{}
		touched[a.InvoiceID] = struct{}{}
	}
	return len(touched), nil
}

func (t *memTx) CountInvoiceAllocations(ctx context.Context, invoiceID uuid.UUID) (int, error) {
	n := 0
	for _, allocs := range t.st.allocations {
		for _, a := range allocs {
			if a.InvoiceID == invoiceID {
				n++
			}
		}
	}
	return n, nil
}

func (t *memTx) ClearOutstanding(ctx context.Context, invoiceID uuid.UUID) error {
	v := t.st.vouchers[invoiceID]
	v.Outstanding = decimal.Zero
	t.st.vouchers[invoiceID] = v
	t.vouchers[invoiceID] = struct{}{}
	return nil
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []audit.Log
}

func (a *recordingAudit) Record(ctx context.Context, log audit.Log) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type countingInvalidator struct {
	mu    sync.Mutex
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bumps++
	return nil
}

type observed struct {
	voucherType string
	result      string
}

type recordingObserver struct {
	mu        sync.Mutex
	postings  []observed
	reversals []observed
}

func (o *recordingObserver) PostingObserved(voucherType, result string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.postings = append(o.postings, observed{voucherType, result})
}

func (o *recordingObserver) ReversalObserved(voucherType, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reversals = append(o.reversals, observed{voucherType, result})
}
