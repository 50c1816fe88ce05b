package services

import (
	"context"
	"fmt"
	"log/slog"

	"splitledger/internal/core"
)

// CreateTemplateInput describes a recurring expense to be generated on a
// schedule. The split definition is validated up front with a dry run so a
// template can never be saved in a shape the scheduler would reject later.
type CreateTemplateInput struct {
	GroupID         int64
	Description     string
	AmountCents     int64
	Frequency       core.Frequency
	PayerID         int64
	CreatorID       int64
	SplitMode       core.SplitMode
	SplitDefinition []core.MemberShare
	StartDate       core.Date
}

// TemplateService manages recurring expense templates. It only shapes and
// stores templates; turning due templates into expenses is the scheduler's
// job.
type TemplateService struct {
	repo   Repository
	audit  AuditSink
	logger *slog.Logger
}

func NewTemplateService(repo Repository, audit AuditSink, logger *slog.Logger) *TemplateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateService{repo: repo, audit: audit, logger: logger}
}

// CreateTemplate validates and stores a recurring template. The first due
// date is the start date itself, so a template created today with a daily
// frequency fires on the next scheduler pass. An unknown frequency is
// stored as given; the scheduler advances it one day at a time.
func (s *TemplateService) CreateTemplate(ctx context.Context, in CreateTemplateInput) (core.RecurringTemplate, error) {
	tpl := core.RecurringTemplate{
		GroupID:         in.GroupID,
		Description:     in.Description,
		Amount:          core.Money{Cents: in.AmountCents},
		Frequency:       in.Frequency,
		PayerID:         in.PayerID,
		CreatorID:       in.CreatorID,
		SplitMode:       in.SplitMode,
		SplitDefinition: in.SplitDefinition,
		StartDate:       in.StartDate,
		NextDue:         in.StartDate,
		Active:          true,
	}
	if err := s.checkTemplate(ctx, tpl); err != nil {
		return core.RecurringTemplate{}, err
	}

	if err := s.repo.SaveTemplate(ctx, &tpl); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("saving template: %w", err)
	}

	s.audit.Record(ctx, tpl.GroupID, tpl.CreatorID, ActionCreateRecurringTemplate, map[string]any{
		"template_id":  tpl.ID,
		"description":  tpl.Description,
		"amount_cents": tpl.Amount.Cents,
		"frequency":    string(tpl.Frequency),
		"next_due":     tpl.NextDue.Format("2006-01-02"),
	})
	return tpl, nil
}

// UpdateTemplate replaces the mutable fields of an existing template
// after the same validation and dry run as creation. The template keeps
// its identity, group, schedule position and active flag: a frequency
// change takes effect from the current due date onward.
func (s *TemplateService) UpdateTemplate(ctx context.Context, templateID int64, in CreateTemplateInput) (core.RecurringTemplate, error) {
	existing, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("loading template %d: %w", templateID, err)
	}

	updated := existing
	updated.Description = in.Description
	updated.Amount = core.Money{Cents: in.AmountCents}
	updated.Frequency = in.Frequency
	updated.PayerID = in.PayerID
	updated.SplitMode = in.SplitMode
	updated.SplitDefinition = in.SplitDefinition

	if err := s.checkTemplate(ctx, updated); err != nil {
		return core.RecurringTemplate{}, err
	}
	if err := s.repo.UpdateTemplate(ctx, updated); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("updating template %d: %w", templateID, err)
	}

	s.audit.Record(ctx, updated.GroupID, in.CreatorID, ActionUpdateRecurringTemplate, map[string]any{
		"template_id":  updated.ID,
		"description":  updated.Description,
		"amount_cents": updated.Amount.Cents,
		"frequency":    string(updated.Frequency),
	})
	return updated, nil
}

// DeactivateTemplate stops a template from generating further expenses.
// Expenses already generated from it are untouched.
func (s *TemplateService) DeactivateTemplate(ctx context.Context, templateID, actorID int64) error {
	tpl, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return fmt.Errorf("loading template %d: %w", templateID, err)
	}
	if err := s.repo.SetTemplateActive(ctx, templateID, false); err != nil {
		return fmt.Errorf("deactivating template %d: %w", templateID, err)
	}

	s.audit.Record(ctx, tpl.GroupID, actorID, ActionUpdateRecurringTemplate, map[string]any{
		"template_id": templateID,
		"active":      false,
	})
	return nil
}

// checkTemplate runs the shared validation pipeline: shape, membership
// of payer and participants, and a dry run of the split calculator so a
// stored template can always materialize into an expense.
func (s *TemplateService) checkTemplate(ctx context.Context, tpl core.RecurringTemplate) error {
	if err := tpl.Validate(); err != nil {
		return err
	}

	members, err := s.repo.GetMembers(ctx, tpl.GroupID)
	if err != nil {
		return fmt.Errorf("loading members of group %d: %w", tpl.GroupID, err)
	}
	if err := checkMembership(tpl.GroupID, members, tpl.PayerID); err != nil {
		return err
	}
	for _, p := range tpl.SplitDefinition {
		if err := checkMembership(tpl.GroupID, members, p.MemberID); err != nil {
			return err
		}
	}

	if _, err := core.ComputeSplits(tpl.Amount, tpl.SplitDefinition, tpl.SplitMode); err != nil {
		return err
	}
	if !tpl.Frequency.Known() {
		s.logger.Warn("template has unknown frequency, expenses will recur daily",
			"group_id", tpl.GroupID,
			"frequency", string(tpl.Frequency))
	}
	return nil
}
