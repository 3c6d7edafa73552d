package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgershared "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheBumper invalidates cached reports of a tenant.
type CacheBumper interface {
	Bump(ctx context.Context, tenant shared.TenantID) error
}

// MetricsPort receives posting outcomes.
type MetricsPort interface {
	ObserveJournalPosting(outcome string, duration time.Duration)
}

type Service struct {
	repo    Repository
	audit   AuditPort
	cache   CacheBumper
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// Option customises a Service.
type Option func(*Service)

func WithAudit(audit AuditPort) Option { return func(s *Service) { s.audit = audit } }

func WithCacheBumper(cache CacheBumper) Option { return func(s *Service) { s.cache = cache } }

func WithMetrics(metrics MetricsPort) Option { return func(s *Service) { s.metrics = metrics } }

func WithLogger(logger *slog.Logger) Option { return func(s *Service) { s.logger = logger } }

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, tenant shared.TenantID, filter ListFilter) ([]JournalEntry, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.List(ctx, tenant, filter)
}

func (s *Service) Get(ctx context.Context, tenant shared.TenantID, id uuid.UUID) (JournalEntry, error) {
	if !tenant.Valid() {
		return JournalEntry{}, shared.ErrTenantRequired
	}
	return s.repo.Get(ctx, tenant, id)
}

// PostJournal validates input and records it as one atomic posting: the entry,
// its lines, the sequence increment and every balance change commit together
// or not at all.
func (s *Service) PostJournal(ctx context.Context, tenant shared.TenantID, input PostingInput) (JournalEntry, error) {
	start := s.now()
	entry, err := s.postJournal(ctx, tenant, input)
	s.observe(start, err)
	if err != nil {
		return JournalEntry{}, err
	}
	s.afterCommit(ctx, entry, "journal.post")
	return entry, nil
}

func (s *Service) postJournal(ctx context.Context, tenant shared.TenantID, input PostingInput) (JournalEntry, error) {
	if !tenant.Valid() {
		return JournalEntry{}, shared.ErrTenantRequired
	}
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		posted, err := s.post(ctx, tx, tenant, input)
		if err != nil {
			return err
		}
		entry = posted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// ReverseJournal appends an entry mirroring the original. Posted entries are
// never changed; an entry can be reversed once.
func (s *Service) ReverseJournal(ctx context.Context, tenant shared.TenantID, input ReverseInput) (JournalEntry, error) {
	if !tenant.Valid() {
		return JournalEntry{}, shared.ErrTenantRequired
	}
	if input.EntryID == uuid.Nil {
		return JournalEntry{}, errors.New("accounting: entry id required")
	}
	start := s.now()
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntry(ctx, tenant, input.EntryID)
		if err != nil {
			return err
		}
		posting := PostingInput{
			Description: defaultReversalDescription(input.Description, original.Number),
			Reference: &Reference{
				Type:          ReferenceReversal,
				ID:            original.ID.String(),
				DisplayNumber: original.Number,
			},
			PostedBy: input.PostedBy,
			Lines:    reverseLines(original.Lines),
		}
		if input.Date != nil {
			posting.Date = *input.Date
		}
		if err := posting.Validate(); err != nil {
			return err
		}
		inserted, err := s.post(ctx, tx, tenant, posting)
		if err != nil {
			if errors.Is(err, ledgershared.ErrReferenceAlreadyPosted) {
				return ledgershared.ErrAlreadyReversed
			}
			return err
		}
		reversal = inserted
		return nil
	})
	s.observe(start, err)
	if err != nil {
		return JournalEntry{}, err
	}
	s.afterCommit(ctx, reversal, "journal.reverse")
	return reversal, nil
}

// post runs the posting statements inside tx. Input must already be validated.
func (s *Service) post(ctx context.Context, tx TxRepository, tenant shared.TenantID, input PostingInput) (JournalEntry, error) {
	ids := make([]int64, 0, len(input.Lines))
	seen := make(map[int64]struct{}, len(input.Lines))
	for _, line := range input.Lines {
		if _, ok := seen[line.AccountID]; !ok {
			seen[line.AccountID] = struct{}{}
			ids = append(ids, line.AccountID)
		}
	}
	refs, err := tx.ResolveAccounts(ctx, tenant, ids)
	if err != nil {
		return JournalEntry{}, err
	}
	for _, id := range ids {
		if _, ok := refs[id]; !ok {
			return JournalEntry{}, ledgershared.NewValidationError(ledgershared.KindUnknownAccount, "account %d", id)
		}
	}

	seq, err := tx.NextSequence(ctx, tenant)
	if err != nil {
		return JournalEntry{}, err
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	date = truncateDate(date)
	debit, credit := input.Totals()
	entry := JournalEntry{
		ID:          uuid.New(),
		TenantID:    tenant,
		Number:      FormatNumber(date.Year(), seq),
		Sequence:    seq,
		Date:        date,
		Description: input.Description,
		Reference:   input.Reference,
		TotalDebit:  debit,
		TotalCredit: credit,
		PostedBy:    input.PostedBy,
		Lines:       make([]JournalLine, 0, len(input.Lines)),
	}
	for _, line := range input.Lines {
		ref := refs[line.AccountID]
		entry.Lines = append(entry.Lines, JournalLine{
			AccountID:   line.AccountID,
			AccountCode: ref.Code,
			AccountName: ref.Name,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	if err := tx.InsertEntry(ctx, &entry); err != nil {
		return JournalEntry{}, err
	}
	if err := tx.InsertLines(ctx, &entry); err != nil {
		return JournalEntry{}, err
	}

	deltas := make(map[int64]decimal.Decimal, len(ids))
	for _, line := range input.Lines {
		deltas[line.AccountID] = deltas[line.AccountID].Add(refs[line.AccountID].Kind.Delta(line.Debit, line.Credit))
	}
	// Ascending id order keeps row locks ordered across concurrent postings.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		delta := deltas[id]
		if delta.IsZero() {
			continue
		}
		if err := tx.AddBalance(ctx, tenant, id, delta); err != nil {
			return JournalEntry{}, fmt.Errorf("accounting: apply balance %d: %w", id, err)
		}
	}
	return entry, nil
}

func (s *Service) afterCommit(ctx context.Context, entry JournalEntry, action string) {
	if s.cache != nil {
		if err := s.cache.Bump(ctx, entry.TenantID); err != nil {
			s.logger.Warn("report cache bump failed", slog.Any("error", err), slog.Int64("tenant_id", int64(entry.TenantID)))
		}
	}
	if s.audit != nil {
		meta := map[string]any{
			"number":       entry.Number,
			"total_debit":  entry.TotalDebit.StringFixed(2),
			"total_credit": entry.TotalCredit.StringFixed(2),
		}
		if entry.Reference != nil {
			meta["reference_type"] = entry.Reference.Type
			meta["reference_id"] = entry.Reference.ID
		}
		if err := s.audit.Record(ctx, shared.AuditLog{
			TenantID: entry.TenantID,
			ActorID:  entry.PostedBy,
			Action:   action,
			Entity:   "journal_entry",
			EntityID: entry.ID.String(),
			Meta:     meta,
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit record failed", slog.Any("error", err), slog.String("action", action))
		}
	}
	s.logger.Info("journal posted",
		slog.Int64("tenant_id", int64(entry.TenantID)),
		slog.String("number", entry.Number),
		slog.String("action", action),
	)
}

func (s *Service) observe(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "posted"
	var verr *ledgershared.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		outcome = string(verr.Kind)
	case errors.Is(err, ledgershared.ErrReferenceAlreadyPosted), errors.Is(err, ledgershared.ErrAlreadyReversed):
		outcome = "duplicate"
	default:
		outcome = "error"
	}
	s.metrics.ObserveJournalPosting(outcome, s.now().Sub(start))
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func defaultReversalDescription(desc, number string) string {
	if desc != "" {
		return desc
	}
	return "Reversal of " + number
}
