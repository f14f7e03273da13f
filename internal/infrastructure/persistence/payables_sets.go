package persistence

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// likePattern builds a case-insensitive substring pattern. LIKE wildcards in
// the search text are escaped.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(search))) + "%"
}

func paginate(q *gorm.DB, page shared.Page) *gorm.DB {
	page = page.Normalize()
	if !page.Enabled() {
		return q
	}
	return q.Offset(page.Offset()).Limit(page.Size)
}

// stagedAs returns the staged aggregate for id when it has type T.
func stagedAs[T shared.TenantAggregate](u *GormUnitOfWork, id uuid.UUID) (T, bool, error) {
	var zero T
	agg, removed, ok := u.staged(id)
	if !ok {
		return zero, false, nil
	}
	if removed {
		return zero, true, shared.ErrNotFound
	}
	typed, ok := agg.(T)
	if !ok {
		return zero, true, shared.ErrNotFound
	}
	return typed, true, nil
}

// stagedView returns the live staged aggregates of type T and the ids of
// every staged change, whose stored rows the staged state supersedes.
func stagedView[T shared.TenantAggregate](u *GormUnitOfWork) (live []T, touched map[uuid.UUID]struct{}) {
	touched = make(map[uuid.UUID]struct{})
	for id, pos := range u.index {
		c := u.changes[pos]
		if c == nil {
			touched[id] = struct{}{}
			continue
		}
		typed, ok := c.aggregate.(T)
		if !ok {
			continue
		}
		touched[id] = struct{}{}
		if c.kind != changeDelete {
			live = append(live, typed)
		}
	}
	return live, touched
}

// overlay merges staged state into stored, the unpaginated rows matching the
// filter, then orders and pages the result in memory.
func overlay[E any, T interface {
	*E
	shared.TenantAggregate
}](stored []E, live []T, touched map[uuid.UUID]struct{}, match func(*E) bool, order func(a, b *E) int, page shared.Page) ([]E, int64) {
	rows := make([]E, 0, len(stored)+len(live))
	for i := range stored {
		if _, ok := touched[T(&stored[i]).GetID()]; !ok {
			rows = append(rows, stored[i])
		}
	}
	for _, agg := range live {
		if match(agg) {
			rows = append(rows, *agg)
		}
	}
	slices.SortFunc(rows, func(a, b E) int { return order(&a, &b) })
	return pageOf(rows, page), int64(len(rows))
}

func pageOf[E any](rows []E, page shared.Page) []E {
	page = page.Normalize()
	if !page.Enabled() {
		return rows
	}
	start := min(page.Offset(), len(rows))
	end := min(start+page.Size, len(rows))
	return rows[start:end]
}

func containsFold(value *string, search string) bool {
	return value != nil && strings.Contains(strings.ToLower(*value), strings.ToLower(strings.TrimSpace(search)))
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

func onOrAfter(t time.Time, from *time.Time) bool {
	return from == nil || !payables.NormalizeDate(t).Before(payables.NormalizeDate(*from))
}

func onOrBefore(t time.Time, to *time.Time) bool {
	return to == nil || !payables.NormalizeDate(t).After(payables.NormalizeDate(*to))
}

type payeeSet struct{ u *GormUnitOfWork }

func (s payeeSet) Get(ctx context.Context, id uuid.UUID) (*payables.Payee, error) {
	if p, hit, err := stagedAs[*payables.Payee](s.u, id); hit {
		return p, err
	}
	var p payables.Payee
	if err := s.u.query(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translateError("get payee", err)
	}
	return &p, nil
}

func (s payeeSet) filtered(ctx context.Context, f payables.PayeeFilter) *gorm.DB {
	q := s.u.query(ctx).Model(&payables.Payee{})
	if f.Search != "" {
		like := likePattern(f.Search)
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(account_number, '')) LIKE ? ESCAPE '\')`, like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	return q
}

func payeeMatches(f payables.PayeeFilter, p *payables.Payee) bool {
	if f.Search != "" && !containsFold(&p.Name, f.Search) && !containsFold(p.AccountNumber, f.Search) {
		return false
	}
	return f.Category == "" || p.Category == f.Category
}

func comparePayees(a, b *payables.Payee) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

// List includes staged changes of the unit: staged adds that match the
// filter are listed and staged removes are hidden.
func (s payeeSet) List(ctx context.Context, f payables.PayeeFilter) ([]payables.Payee, int64, error) {
	if live, touched := stagedView[*payables.Payee](s.u); len(touched) > 0 {
		stored := make([]payables.Payee, 0)
		if err := s.filtered(ctx, f).Find(&stored).Error; err != nil {
			return nil, 0, translateError("list payees", err)
		}
		payees, total := overlay(stored, live, touched, func(p *payables.Payee) bool { return payeeMatches(f, p) }, comparePayees, f.Page)
		return payees, total, nil
	}

	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, translateError("count payees", err)
	}

	payees := make([]payables.Payee, 0)
	q := paginate(s.filtered(ctx, f).Order("name ASC").Order("id ASC"), f.Page)
	if err := q.Find(&payees).Error; err != nil {
		return nil, 0, translateError("list payees", err)
	}
	return payees, total, nil
}

type billSet struct{ u *GormUnitOfWork }

// withPayee preloads the payee through the same tenant filter
func (s billSet) withPayee(q *gorm.DB) *gorm.DB {
	return q.Preload("Payee", tenant.Owned(s.u.tenantID))
}

func (s billSet) Get(ctx context.Context, id uuid.UUID) (*payables.Bill, error) {
	if b, hit, err := stagedAs[*payables.Bill](s.u, id); hit {
		return b, err
	}
	var b payables.Bill
	if err := s.withPayee(s.u.query(ctx)).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, translateError("get bill", err)
	}
	return &b, nil
}

func (s billSet) filtered(ctx context.Context, f payables.BillFilter) *gorm.DB {
	q := s.u.query(ctx).Model(&payables.Bill{})
	if f.PayeeID != nil {
		q = q.Where("payee_id = ?", *f.PayeeID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Frequency != "" {
		q = q.Where("frequency = ?", f.Frequency)
	}
	if f.DueFrom != nil {
		q = q.Where("due_date >= ?", payables.NormalizeDate(*f.DueFrom))
	}
	if f.DueTo != nil {
		q = q.Where("due_date <= ?", payables.NormalizeDate(*f.DueTo))
	}
	if f.AutoPay != nil {
		q = q.Where("auto_pay = ?", *f.AutoPay)
	}
	if f.Search != "" {
		like := likePattern(f.Search)
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(notes, '')) LIKE ? ESCAPE '\')`, like, like)
	}
	return q
}

func billMatches(f payables.BillFilter, b *payables.Bill) bool {
	switch {
	case f.PayeeID != nil && (b.PayeeID == nil || *b.PayeeID != *f.PayeeID):
		return false
	case f.Status != "" && b.Status != f.Status:
		return false
	case f.Frequency != "" && b.Frequency != f.Frequency:
		return false
	case !onOrAfter(b.DueDate, f.DueFrom) || !onOrBefore(b.DueDate, f.DueTo):
		return false
	case f.AutoPay != nil && b.AutoPay != *f.AutoPay:
		return false
	case f.Search != "" && !containsFold(&b.Name, f.Search) && !containsFold(b.Notes, f.Search):
		return false
	}
	return true
}

func compareBills(a, b *payables.Bill) int {
	if c := a.DueDate.Compare(b.DueDate); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

// List includes staged changes of the unit, like payeeSet.List
func (s billSet) List(ctx context.Context, f payables.BillFilter) ([]payables.Bill, int64, error) {
	if live, touched := stagedView[*payables.Bill](s.u); len(touched) > 0 {
		stored := make([]payables.Bill, 0)
		if err := s.withPayee(s.filtered(ctx, f)).Find(&stored).Error; err != nil {
			return nil, 0, translateError("list bills", err)
		}
		bills, total := overlay(stored, live, touched, func(b *payables.Bill) bool { return billMatches(f, b) }, compareBills, f.Page)
		return bills, total, nil
	}

	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, translateError("count bills", err)
	}

	bills := make([]payables.Bill, 0)
	q := s.filtered(ctx, f).Order("due_date ASC").Order("created_at DESC").Order("id ASC")
	if err := s.withPayee(paginate(q, f.Page)).Find(&bills).Error; err != nil {
		return nil, 0, translateError("list bills", err)
	}
	return bills, total, nil
}

func (s billSet) Overdue(ctx context.Context, asOf time.Time) ([]payables.Bill, error) {
	bills := make([]payables.Bill, 0)
	err := s.u.query(ctx).
		Where("due_date < ?", payables.NormalizeDate(asOf)).
		Where("status IN ?", []payables.BillStatus{payables.BillStatusPending, payables.BillStatusScheduled}).
		Order("due_date ASC").Order("id ASC").
		Find(&bills).Error
	if err != nil {
		return nil, translateError("list overdue bills", err)
	}
	return bills, nil
}

type paymentSet struct{ u *GormUnitOfWork }

func (s paymentSet) Get(ctx context.Context, id uuid.UUID) (*payables.Payment, error) {
	if p, hit, err := stagedAs[*payables.Payment](s.u, id); hit {
		return p, err
	}
	var p payables.Payment
	if err := s.u.query(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translateError("get payment", err)
	}
	return &p, nil
}

func (s paymentSet) filtered(ctx context.Context, f payables.PaymentFilter) *gorm.DB {
	q := s.u.query(ctx).Model(&payables.Payment{})
	if f.BillID != nil {
		q = q.Where("bill_id = ?", *f.BillID)
	}
	if f.Method != "" {
		q = q.Where("LOWER(payment_method) = ?", strings.ToLower(f.Method))
	}
	if f.PaidFrom != nil {
		q = q.Where("payment_date >= ?", payables.NormalizeDate(*f.PaidFrom))
	}
	if f.PaidTo != nil {
		q = q.Where("payment_date <= ?", payables.NormalizeDate(*f.PaidTo))
	}
	return q
}

func paymentMatches(f payables.PaymentFilter, p *payables.Payment) bool {
	switch {
	case f.BillID != nil && p.BillID != *f.BillID:
		return false
	case f.Method != "" && (p.PaymentMethod == nil || strings.ToLower(*p.PaymentMethod) != strings.ToLower(f.Method)):
		return false
	}
	return onOrAfter(p.PaymentDate, f.PaidFrom) && onOrBefore(p.PaymentDate, f.PaidTo)
}

func comparePayments(a, b *payables.Payment) int {
	if c := b.PaymentDate.Compare(a.PaymentDate); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

// List includes staged changes of the unit, like payeeSet.List
func (s paymentSet) List(ctx context.Context, f payables.PaymentFilter) ([]payables.Payment, int64, error) {
	if live, touched := stagedView[*payables.Payment](s.u); len(touched) > 0 {
		stored := make([]payables.Payment, 0)
		if err := s.filtered(ctx, f).Find(&stored).Error; err != nil {
			return nil, 0, translateError("list payments", err)
		}
		payments, total := overlay(stored, live, touched, func(p *payables.Payment) bool { return paymentMatches(f, p) }, comparePayments, f.Page)
		return payments, total, nil
	}

	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, translateError("count payments", err)
	}

	payments := make([]payables.Payment, 0)
	q := s.filtered(ctx, f).Order("payment_date DESC").Order("created_at DESC").Order("id ASC")
	if err := paginate(q, f.Page).Find(&payments).Error; err != nil {
		return nil, 0, translateError("list payments", err)
	}
	return payments, total, nil
}

// GormOverdueTenantFinder finds tenants with overdue open bills
type GormOverdueTenantFinder struct {
	db *gorm.DB
}

// NewOverdueTenantFinder creates a finder over db
func NewOverdueTenantFinder(db *gorm.DB) *GormOverdueTenantFinder {
	return &GormOverdueTenantFinder{db: db}
}

var _ payables.OverdueTenantFinder = (*GormOverdueTenantFinder)(nil)

// TenantsWithOverdueBills returns the distinct tenants owning an open bill due before asOf
func (f *GormOverdueTenantFinder) TenantsWithOverdueBills(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := f.db.WithContext(ctx).Model(&payables.Bill{}).
		Where("due_date < ?", payables.NormalizeDate(asOf)).
		Where("status IN ?", []payables.BillStatus{payables.BillStatusPending, payables.BillStatusScheduled}).
		Distinct().
		Order(tenant.Column).
		Pluck(tenant.Column, &ids).Error
	if err != nil {
		return nil, translateError("find overdue tenants", err)
	}
	return ids, nil
}
