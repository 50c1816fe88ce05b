package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"splitledger/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRepository persists the ledger in a single SQLite database.
// Every write that touches more than one table runs in a transaction.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the underlying handle for collaborators that share the
// database, such as the audit store.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, groupID int64) (core.Group, error) {
	const query = `SELECT id, name, description, admin_id FROM groups WHERE id = ?`
	var g core.Group
	err := r.db.QueryRowContext(ctx, query, groupID).Scan(&g.ID, &g.Name, &g.Description, &g.AdminID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, fmt.Errorf("group %d: %w", groupID, core.ErrNotFound)
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group %d: %w", groupID, err)
	}
	return g, nil
}

func (r *SQLiteRepository) CreateGroup(ctx context.Context, g *core.Group) error {
	const stmt = `INSERT INTO groups (name, description, admin_id) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt, g.Name, g.Description, g.AdminID)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("group insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetMembers(ctx context.Context, groupID int64) ([]core.Member, error) {
	const query = `
		SELECT group_id, member_id, nickname, admin
		FROM group_members
		WHERE group_id = ?
		ORDER BY member_id`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("get members of group %d: %w", groupID, err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.GroupID, &m.MemberID, &m.Nickname, &m.Admin); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *SQLiteRepository) AddMember(ctx context.Context, m core.Member) error {
	const stmt = `
		INSERT INTO group_members (group_id, member_id, nickname, admin)
		VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, stmt, m.GroupID, m.MemberID, m.Nickname, m.Admin); err != nil {
		return fmt.Errorf("add member %d to group %d: %w", m.MemberID, m.GroupID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, expenseID int64) (core.Expense, error) {
	const query = `
		SELECT id, group_id, description, amount_cents, payer_id, creator_id, expense_date, split_mode
		FROM expenses
		WHERE id = ?`
	e, err := r.scanExpense(r.db.QueryRowContext(ctx, query, expenseID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", expenseID, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", expenseID, err)
	}
	e.Splits, err = r.loadSplits(ctx, e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) GetGroupExpenses(ctx context.Context, groupID int64) ([]core.Expense, error) {
	const query = `
		SELECT id, group_id, description, amount_cents, payer_id, creator_id, expense_date, split_mode
		FROM expenses
		WHERE group_id = ?
		ORDER BY expense_date DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("get expenses of group %d: %w", groupID, err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := r.scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Splits, err = r.loadSplits(ctx, expenses[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func (r *SQLiteRepository) SaveExpenseWithSplits(ctx context.Context, e *core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const stmt = `
		INSERT INTO expenses (group_id, description, amount_cents, payer_id, creator_id, expense_date, split_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, stmt,
		e.GroupID, e.Description, e.Amount.Cents, e.PayerID, e.CreatorID,
		e.Date.Format(dateLayout), string(e.SplitMode))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("expense insert id: %w", err)
	}

	if err := insertSplits(ctx, tx, e.ID, e.Splits); err != nil {
		return err
	}
	for i := range e.Splits {
		e.Splits[i].ExpenseID = e.ID
	}
	return tx.Commit()
}

func (r *SQLiteRepository) UpdateExpenseWithSplits(ctx context.Context, e core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const stmt = `
		UPDATE expenses
		SET description = ?, amount_cents = ?, payer_id = ?, expense_date = ?, split_mode = ?
		WHERE id = ?`
	res, err := tx.ExecContext(ctx, stmt,
		e.Description, e.Amount.Cents, e.PayerID, e.Date.Format(dateLayout), string(e.SplitMode), e.ID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("expense %d: %w", e.ID, core.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_splits WHERE expense_id = ?`, e.ID); err != nil {
		return fmt.Errorf("clear splits of expense %d: %w", e.ID, err)
	}
	if err := insertSplits(ctx, tx, e.ID, e.Splits); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, expenseID int64) error {
	// Splits and payments go with the expense via ON DELETE CASCADE.
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, expenseID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", expenseID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("expense %d: %w", expenseID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, paymentID int64) (core.Payment, error) {
	const query = `
		SELECT id, expense_id, from_member_id, to_member_id, amount_cents, description, creator_id, payment_date, created_at
		FROM payments
		WHERE id = ?`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, fmt.Errorf("payment %d: %w", paymentID, core.ErrNotFound)
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment %d: %w", paymentID, err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetExpensePayments(ctx context.Context, expenseID int64) ([]core.Payment, error) {
	const query = `
		SELECT id, expense_id, from_member_id, to_member_id, amount_cents, description, creator_id, payment_date, created_at
		FROM payments
		WHERE expense_id = ?
		ORDER BY id`
	return r.queryPayments(ctx, query, expenseID)
}

func (r *SQLiteRepository) GetGroupPayments(ctx context.Context, groupID int64) ([]core.Payment, error) {
	const query = `
		SELECT p.id, p.expense_id, p.from_member_id, p.to_member_id, p.amount_cents, p.description, p.creator_id, p.payment_date, p.created_at
		FROM payments p
		JOIN expenses e ON e.id = p.expense_id
		WHERE e.group_id = ?
		ORDER BY p.id`
	return r.queryPayments(ctx, query, groupID)
}

func (r *SQLiteRepository) SavePayment(ctx context.Context, p *core.Payment) error {
	const stmt = `
		INSERT INTO payments (expense_id, from_member_id, to_member_id, amount_cents, description, creator_id, payment_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, stmt,
		p.ExpenseID, p.FromMemberID, p.ToMemberID, p.Amount.Cents,
		p.Description, p.CreatorID, p.Date.Format(dateLayout), now)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("payment insert id: %w", err)
	}
	p.CreatedAt = now
	return nil
}

func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.Payment) error {
	const stmt = `
		UPDATE payments
		SET from_member_id = ?, to_member_id = ?, amount_cents = ?, description = ?, payment_date = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt,
		p.FromMemberID, p.ToMemberID, p.Amount.Cents, p.Description, p.Date.Format(dateLayout), p.ID)
	if err != nil {
		return fmt.Errorf("update payment %d: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("payment %d: %w", p.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, paymentID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, paymentID)
	if err != nil {
		return fmt.Errorf("delete payment %d: %w", paymentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("payment %d: %w", paymentID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, templateID int64) (core.RecurringTemplate, error) {
	const query = `
		SELECT id, group_id, description, amount_cents, frequency, payer_id, creator_id, split_mode, split_definition, start_date, next_due, active
		FROM recurring_templates
		WHERE id = ?`
	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, templateID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTemplate{}, fmt.Errorf("template %d: %w", templateID, core.ErrNotFound)
	}
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("get template %d: %w", templateID, err)
	}
	return t, nil
}

func (r *SQLiteRepository) GetDueTemplates(ctx context.Context, asOf core.Date) ([]core.RecurringTemplate, error) {
	const query = `
		SELECT id, group_id, description, amount_cents, frequency, payer_id, creator_id, split_mode, split_definition, start_date, next_due, active
		FROM recurring_templates
		WHERE active = 1 AND next_due <= ?
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, asOf.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("get due templates: %w", err)
	}
	defer rows.Close()

	var templates []core.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *SQLiteRepository) SaveTemplate(ctx context.Context, t *core.RecurringTemplate) error {
	definition, err := json.Marshal(t.SplitDefinition)
	if err != nil {
		return fmt.Errorf("marshal split definition: %w", err)
	}
	const stmt = `
		INSERT INTO recurring_templates (group_id, description, amount_cents, frequency, payer_id, creator_id, split_mode, split_definition, start_date, next_due, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		t.GroupID, t.Description, t.Amount.Cents, string(t.Frequency),
		t.PayerID, t.CreatorID, string(t.SplitMode), definition,
		t.StartDate.Format(dateLayout), t.NextDue.Format(dateLayout), t.Active)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("template insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, t core.RecurringTemplate) error {
	definition, err := json.Marshal(t.SplitDefinition)
	if err != nil {
		return fmt.Errorf("marshal split definition: %w", err)
	}
	const stmt = `
		UPDATE recurring_templates
		SET description = ?, amount_cents = ?, frequency = ?, payer_id = ?, split_mode = ?, split_definition = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt,
		t.Description, t.Amount.Cents, string(t.Frequency),
		t.PayerID, string(t.SplitMode), definition, t.ID)
	if err != nil {
		return fmt.Errorf("update template %d: %w", t.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("template %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) AdvanceTemplate(ctx context.Context, templateID int64, newNextDue core.Date) error {
	const stmt = `UPDATE recurring_templates SET next_due = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt, newNextDue.Format(dateLayout), templateID)
	if err != nil {
		return fmt.Errorf("advance template %d: %w", templateID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("template %d: %w", templateID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) SetTemplateActive(ctx context.Context, templateID int64, active bool) error {
	const stmt = `UPDATE recurring_templates SET active = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt, active, templateID)
	if err != nil {
		return fmt.Errorf("set template %d active: %w", templateID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("template %d: %w", templateID, core.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		rawDate string
		mode    string
	)
	if err := row.Scan(&e.ID, &e.GroupID, &e.Description, &e.Amount.Cents,
		&e.PayerID, &e.CreatorID, &rawDate, &mode); err != nil {
		return core.Expense{}, err
	}
	d, err := parseDate(rawDate)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = d
	e.SplitMode = core.SplitMode(mode)
	return e, nil
}

func (r *SQLiteRepository) loadSplits(ctx context.Context, expenseID int64) ([]core.Split, error) {
	const query = `
		SELECT expense_id, member_id, amount_cents, split_mode
		FROM expense_splits
		WHERE expense_id = ?
		ORDER BY rowid`
	rows, err := r.db.QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("get splits of expense %d: %w", expenseID, err)
	}
	defer rows.Close()

	var splits []core.Split
	for rows.Next() {
		var (
			s    core.Split
			mode string
		)
		if err := rows.Scan(&s.ExpenseID, &s.MemberID, &s.Amount.Cents, &mode); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		s.Mode = core.SplitMode(mode)
		splits = append(splits, s)
	}
	return splits, rows.Err()
}

func (r *SQLiteRepository) queryPayments(ctx context.Context, query string, arg any) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("get payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func insertSplits(ctx context.Context, tx *sql.Tx, expenseID int64, splits []core.Split) error {
	const stmt = `
		INSERT INTO expense_splits (expense_id, member_id, amount_cents, split_mode)
		VALUES (?, ?, ?, ?)`
	for _, s := range splits {
		if _, err := tx.ExecContext(ctx, stmt, expenseID, s.MemberID, s.Amount.Cents, string(s.Mode)); err != nil {
			return fmt.Errorf("insert split for member %d: %w", s.MemberID, err)
		}
	}
	return nil
}

func scanPayment(row rowScanner) (core.Payment, error) {
	var (
		p       core.Payment
		rawDate string
	)
	if err := row.Scan(&p.ID, &p.ExpenseID, &p.FromMemberID, &p.ToMemberID,
		&p.Amount.Cents, &p.Description, &p.CreatorID, &rawDate, &p.CreatedAt); err != nil {
		return core.Payment{}, err
	}
	d, err := parseDate(rawDate)
	if err != nil {
		return core.Payment{}, err
	}
	p.Date = d
	return p, nil
}

func scanTemplate(row rowScanner) (core.RecurringTemplate, error) {
	var (
		t          core.RecurringTemplate
		frequency  string
		mode       string
		definition []byte
		rawStart   string
		rawNext    string
	)
	if err := row.Scan(&t.ID, &t.GroupID, &t.Description, &t.Amount.Cents,
		&frequency, &t.PayerID, &t.CreatorID, &mode, &definition,
		&rawStart, &rawNext, &t.Active); err != nil {
		return core.RecurringTemplate{}, err
	}
	// An unreadable split definition must not poison a whole fetch: the
	// template comes back with an empty definition, which the recurring
	// processor reports as malformed while the other templates still run.
	if err := json.Unmarshal(definition, &t.SplitDefinition); err != nil {
		t.SplitDefinition = nil
	}
	start, err := parseDate(rawStart)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	next, err := parseDate(rawNext)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	t.Frequency = core.Frequency(frequency)
	t.SplitMode = core.SplitMode(mode)
	t.StartDate = start
	t.NextDue = next
	return t, nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}
