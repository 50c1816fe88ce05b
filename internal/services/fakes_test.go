package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"splitledger/internal/core"
)

// memRepo is an in-memory Repository for tests. Writes are atomic under
// a single mutex; reads return copies.
type memRepo struct {
	mu        sync.Mutex
	groups    map[int64]core.Group
	members   map[int64][]core.Member
	expenses  map[int64]core.Expense
	payments  map[int64]core.Payment
	templates map[int64]core.RecurringTemplate

	nextExpenseID  int64
	nextPaymentID  int64
	nextTemplateID int64

	failSaveExpense  error
	failSavePayment  error
	failAdvance      error
	saveExpenseCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{
		groups:    make(map[int64]core.Group),
		members:   make(map[int64][]core.Member),
		expenses:  make(map[int64]core.Expense),
		payments:  make(map[int64]core.Payment),
		templates: make(map[int64]core.RecurringTemplate),
	}
}

func (r *memRepo) addGroup(id int64, memberIDs ...int64) {
	r.groups[id] = core.Group{ID: id, Name: fmt.Sprintf("group-%d", id)}
	for _, mid := range memberIDs {
		r.members[id] = append(r.members[id], core.Member{GroupID: id, MemberID: mid, Nickname: fmt.Sprintf("member-%d", mid)})
	}
}

func (r *memRepo) GetGroup(_ context.Context, groupID int64) (core.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return core.Group{}, fmt.Errorf("group %d: %w", groupID, core.ErrNotFound)
	}
	return g, nil
}

func (r *memRepo) GetMembers(_ context.Context, groupID int64) ([]core.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[groupID]; !ok {
		return nil, fmt.Errorf("group %d: %w", groupID, core.ErrNotFound)
	}
	return append([]core.Member(nil), r.members[groupID]...), nil
}

func (r *memRepo) GetExpense(_ context.Context, expenseID int64) (core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[expenseID]
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", expenseID, core.ErrNotFound)
	}
	return e, nil
}

func (r *memRepo) GetGroupExpenses(_ context.Context, groupID int64) ([]core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Expense
	for _, e := range r.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	// Newest first, matching the SQL repository's ordering.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memRepo) SaveExpenseWithSplits(_ context.Context, e *core.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveExpenseCalls++
	if r.failSaveExpense != nil {
		return r.failSaveExpense
	}
	r.nextExpenseID++
	e.ID = r.nextExpenseID
	for i := range e.Splits {
		e.Splits[i].ExpenseID = e.ID
	}
	r.expenses[e.ID] = *e
	return nil
}

func (r *memRepo) UpdateExpenseWithSplits(_ context.Context, e core.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.expenses[e.ID]; !ok {
		return fmt.Errorf("expense %d: %w", e.ID, core.ErrNotFound)
	}
	r.expenses[e.ID] = e
	return nil
}

func (r *memRepo) DeleteExpense(_ context.Context, expenseID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.expenses[expenseID]; !ok {
		return fmt.Errorf("expense %d: %w", expenseID, core.ErrNotFound)
	}
	delete(r.expenses, expenseID)
	for id, p := range r.payments {
		if p.ExpenseID == expenseID {
			delete(r.payments, id)
		}
	}
	return nil
}

func (r *memRepo) GetPayment(_ context.Context, paymentID int64) (core.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[paymentID]
	if !ok {
		return core.Payment{}, fmt.Errorf("payment %d: %w", paymentID, core.ErrNotFound)
	}
	return p, nil
}

func (r *memRepo) GetExpensePayments(_ context.Context, expenseID int64) ([]core.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Payment
	for _, p := range r.payments {
		if p.ExpenseID == expenseID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) GetGroupPayments(_ context.Context, groupID int64) ([]core.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Payment
	for _, p := range r.payments {
		if e, ok := r.expenses[p.ExpenseID]; ok && e.GroupID == groupID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) SavePayment(_ context.Context, p *core.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSavePayment != nil {
		return r.failSavePayment
	}
	r.nextPaymentID++
	p.ID = r.nextPaymentID
	r.payments[p.ID] = *p
	return nil
}

func (r *memRepo) UpdatePayment(_ context.Context, p core.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; !ok {
		return fmt.Errorf("payment %d: %w", p.ID, core.ErrNotFound)
	}
	r.payments[p.ID] = p
	return nil
}

func (r *memRepo) DeletePayment(_ context.Context, paymentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[paymentID]; !ok {
		return fmt.Errorf("payment %d: %w", paymentID, core.ErrNotFound)
	}
	delete(r.payments, paymentID)
	return nil
}

func (r *memRepo) GetTemplate(_ context.Context, templateID int64) (core.RecurringTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[templateID]
	if !ok {
		return core.RecurringTemplate{}, fmt.Errorf("template %d: %w", templateID, core.ErrNotFound)
	}
	return t, nil
}

func (r *memRepo) GetDueTemplates(_ context.Context, asOf core.Date) ([]core.RecurringTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.RecurringTemplate
	for _, t := range r.templates {
		if t.Active && !t.NextDue.After(asOf.Time) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) SaveTemplate(_ context.Context, t *core.RecurringTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextTemplateID++
	t.ID = r.nextTemplateID
	r.templates[t.ID] = *t
	return nil
}

func (r *memRepo) UpdateTemplate(_ context.Context, t core.RecurringTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.templates[t.ID]
	if !ok {
		return fmt.Errorf("template %d: %w", t.ID, core.ErrNotFound)
	}
	existing.Description = t.Description
	existing.Amount = t.Amount
	existing.Frequency = t.Frequency
	existing.PayerID = t.PayerID
	existing.SplitMode = t.SplitMode
	existing.SplitDefinition = t.SplitDefinition
	r.templates[t.ID] = existing
	return nil
}

func (r *memRepo) AdvanceTemplate(_ context.Context, templateID int64, newNextDue core.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAdvance != nil {
		return r.failAdvance
	}
	t, ok := r.templates[templateID]
	if !ok {
		return fmt.Errorf("template %d: %w", templateID, core.ErrNotFound)
	}
	t.NextDue = newNextDue
	r.templates[templateID] = t
	return nil
}

func (r *memRepo) SetTemplateActive(_ context.Context, templateID int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[templateID]
	if !ok {
		return fmt.Errorf("template %d: %w", templateID, core.ErrNotFound)
	}
	t.Active = active
	r.templates[templateID] = t
	return nil
}

// recordedAudit captures what Record was called with.
type recordedAudit struct {
	GroupID int64
	ActorID int64
	Action  string
	Details any
}

type memAudit struct {
	mu      sync.Mutex
	entries []recordedAudit
}

func (a *memAudit) Record(_ context.Context, groupID, actorID int64, action string, details any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, recordedAudit{GroupID: groupID, ActorID: actorID, Action: action, Details: details})
}

func (a *memAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

type memPublisher struct {
	mu    sync.Mutex
	kinds []string
	fail  error
}

func (p *memPublisher) PublishLedgerEvent(_ context.Context, kind string, _, _ int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.kinds = append(p.kinds, kind)
	return nil
}
