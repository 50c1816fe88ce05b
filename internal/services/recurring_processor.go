package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"splitledger/internal/core"
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

// ProcessResult summarizes one processing run.
type ProcessResult struct {
	Checked int // templates that were due
	Created int // expenses created, across all templates and periods
	Failed  int // templates that stopped on an error
}

// RecurringProcessor materializes due recurring templates into expenses.
// A template behind by several periods is caught up one expense per
// period, each dated at the period it covers. Failures stop only the
// template they occur on: its due date is not advanced past the failed
// period, so the next run retries from there.
type RecurringProcessor struct {
	repo   Repository
	ledger *LedgerService
	logger *slog.Logger
}

func NewRecurringProcessor(repo Repository, ledger *LedgerService, logger *slog.Logger) *RecurringProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecurringProcessor{repo: repo, ledger: ledger, logger: logger}
}

// ProcessDue runs one pass over every template due on or before today.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, today core.Date) (ProcessResult, error) {
	templates, err := p.repo.GetDueTemplates(ctx, today)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("loading due templates: %w", err)
	}

	var res ProcessResult
	res.Checked = len(templates)
	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		created, err := p.processTemplate(ctx, tpl, today)
		res.Created += created
		if err != nil {
			res.Failed++
			p.logger.Error("processing recurring template",
				"template_id", tpl.ID,
				"group_id", tpl.GroupID,
				"created", created,
				"error", err)
		}
	}

	p.logger.Info("recurring pass complete",
		"checked", res.Checked,
		"created", res.Created,
		"failed", res.Failed)
	return res, nil
}

// processTemplate catches one template up to today. It returns how many
// expenses it created before stopping, plus the error that stopped it.
func (p *RecurringProcessor) processTemplate(ctx context.Context, tpl core.RecurringTemplate, today core.Date) (int, error) {
	created := 0
	for tpl.Active && !tpl.NextDue.After(today.Time) {
		if len(tpl.SplitDefinition) == 0 {
			return created, &core.TemplateMalformedError{TemplateID: tpl.ID, Reason: "empty split definition"}
		}

		_, err := p.ledger.CreateExpense(ctx, CreateExpenseInput{
			GroupID:      tpl.GroupID,
			Description:  tpl.Description,
			AmountCents:  tpl.Amount.Cents,
			PayerID:      tpl.PayerID,
			CreatorID:    tpl.CreatorID,
			Date:         tpl.NextDue,
			SplitMode:    tpl.SplitMode,
			Participants: tpl.SplitDefinition,
		})
		if err != nil {
			// Mismatched or otherwise invalid definitions will fail the
			// same way every run, so surface them as malformed.
			if errors.Is(err, core.ErrSplitMismatch) || errors.Is(err, core.ErrMissingSplitAmount) {
				return created, &core.TemplateMalformedError{TemplateID: tpl.ID, Reason: err.Error()}
			}
			return created, err
		}
		created++

		next := p.advance(tpl)
		if err := p.repo.AdvanceTemplate(ctx, tpl.ID, next); err != nil {
			return created, fmt.Errorf("advancing template %d: %w", tpl.ID, err)
		}
		tpl.NextDue = next
	}
	return created, nil
}

// advance moves the due date forward one period. Unknown frequencies
// advance by a day so a bad template cannot wedge the processor.
func (p *RecurringProcessor) advance(tpl core.RecurringTemplate) core.Date {
	if !tpl.Frequency.Known() {
		p.logger.Warn("unknown recurrence frequency, advancing daily",
			"template_id", tpl.ID,
			"frequency", string(tpl.Frequency))
	}
	return tpl.NextDue.Next(tpl.Frequency)
}
