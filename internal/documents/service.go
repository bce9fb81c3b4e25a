package documents

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// SettingKeyVATRate holds the VAT percentage applied to tax invoices.
const SettingKeyVATRate = "vat_rate"

// maxIssueAttempts bounds reruns of an issuing transaction that lost a
// sequence race.
const maxIssueAttempts = 3

var defaultVATRate = decimal.NewFromInt(7)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Document, error)
	ListByJob(ctx context.Context, jobID int64) ([]Document, error)
	List(ctx context.Context, req ListRequest) ([]Document, int, error)
	Void(ctx context.Context, id int64) error
	GetJobBilling(ctx context.Context, jobID int64) (JobBilling, error)
	ListOutstanding(ctx context.Context) ([]AgingRow, error)
}

// SettingsReader reads runtime-tunable values.
type SettingsReader interface {
	GetDecimal(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal
}

// Service issues and manages financial documents.
type Service struct {
	repo     RepositoryPort
	settings SettingsReader
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a documents service.
func NewService(repo RepositoryPort, settings SettingsReader, logger *slog.Logger) *Service {
	return &Service{repo: repo, settings: settings, logger: logger, now: time.Now}
}

// IssueInput carries the caller-provided fields of an issuance.
type IssueInput struct {
	JobID    int64
	IssuedBy int64
	Notes    string
	// Amount overrides the job's effective price. Required for credit
	// notes, optional elsewhere.
	Amount *decimal.Decimal
}

// IssueQuotation issues a quotation for the job's effective price. Multiple
// active quotations per job are allowed; customers negotiate.
func (s *Service) IssueQuotation(ctx context.Context, in IssueInput) (Document, error) {
	return s.issue(ctx, TypeQuotation, in, false)
}

// IssueTaxInvoice issues the job's tax invoice, extracting VAT from the
// VAT-inclusive total at the configured rate. The operation is idempotent:
// when a non-void tax invoice already exists it is returned unchanged.
func (s *Service) IssueTaxInvoice(ctx context.Context, in IssueInput) (Document, error) {
	return s.issue(ctx, TypeTaxInvoice, in, true)
}

// IssueReceipt returns the job's active receipt, issuing one if none exists.
func (s *Service) IssueReceipt(ctx context.Context, in IssueInput) (Document, error) {
	return s.issue(ctx, TypeReceipt, in, true)
}

// IssueCreditNote issues a credit note for the given amount, with VAT
// extracted the same way as on the invoice it corrects.
func (s *Service) IssueCreditNote(ctx context.Context, in IssueInput) (Document, error) {
	if in.Amount == nil || in.Amount.IsNegative() {
		return Document{}, ErrValidation
	}
	return s.issue(ctx, TypeCreditNote, in, false)
}

func (s *Service) issue(ctx context.Context, docType Type, in IssueInput, singleActive bool) (Document, error) {
	billing, err := s.repo.GetJobBilling(ctx, in.JobID)
	if err != nil {
		return Document{}, err
	}

	total := billing.QuotedPrice.Sub(billing.DiscountAmount)
	if in.Amount != nil {
		total = *in.Amount
	}
	if total.IsNegative() {
		return Document{}, ErrValidation
	}

	var amounts Amounts
	switch docType {
	case TypeTaxInvoice, TypeCreditNote:
		rate := s.settings.GetDecimal(ctx, SettingKeyVATRate, defaultVATRate)
		amounts = VATInclusiveAmounts(total, rate)
	default:
		amounts = PlainAmounts(total)
	}

	issuedAt := s.now()
	var issued Document
	issueTx := func(ctx context.Context, tx TxRepository) error {
		if singleActive {
			existing, ok, err := tx.FindActive(ctx, in.JobID, docType)
			if err != nil {
				return err
			}
			if ok {
				issued = existing
				return nil
			}
		}

		year := issuedAt.Year()
		seq, err := tx.NextSequence(ctx, docType, year)
		if err != nil {
			return err
		}

		doc := Document{
			JobID:           in.JobID,
			Type:            docType,
			DocumentNumber:  FormatNumber(docType, year, seq),
			Sequence:        seq,
			Year:            year,
			CustomerName:    billing.CustomerName,
			CustomerAddress: billing.CustomerAddress,
			CustomerTaxID:   billing.CustomerTaxID,
			Subtotal:        amounts.Subtotal,
			VATRate:         amounts.VATRate,
			VATAmount:       amounts.VATAmount,
			TotalAmount:     amounts.Total,
			IssuedBy:        in.IssuedBy,
			IssuedAt:        issuedAt,
			Notes:           in.Notes,
		}
		doc.ID, err = tx.InsertDocument(ctx, doc)
		if err != nil {
			return err
		}

		qty := decimal.NewFromInt(int64(billing.Quantity))
		unitPrice := UnitPrice(amounts.Subtotal, billing.Quantity)
		item := Item{
			DocumentID:  doc.ID,
			Description: billing.Title + " (" + billing.ProductTypeName + ")",
			Quantity:    qty,
			Unit:        billing.ProductTypeUnit,
			UnitPrice:   unitPrice,
			// The line amount is the rounded unit price times quantity, so
			// it can drift a satang or two from the document subtotal.
			Amount: qty.Mul(unitPrice),
		}
		item.ID, err = tx.InsertItem(ctx, item)
		if err != nil {
			return err
		}
		doc.Items = []Item{item}
		issued = doc
		return nil
	}

	// Two issuers can race for the same sequence: the loser's insert hits the
	// unique index and the whole transaction is safe to rerun.
	for attempt := 1; ; attempt++ {
		err = s.repo.WithTx(ctx, issueTx)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrAllocationFailed) || attempt >= maxIssueAttempts {
			return Document{}, err
		}
		s.logger.Warn("document number collision, retrying",
			slog.String("type", string(docType)),
			slog.Int64("job_id", in.JobID),
			slog.Int("attempt", attempt))
	}

	s.logger.Info("document issued",
		slog.String("type", string(issued.Type)),
		slog.String("number", issued.DocumentNumber),
		slog.Int64("job_id", issued.JobID))
	return issued, nil
}

// Get returns one document with items.
func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	return s.repo.Get(ctx, id)
}

// ListByJob returns a job's documents.
func (s *Service) ListByJob(ctx context.Context, jobID int64) ([]Document, error) {
	return s.repo.ListByJob(ctx, jobID)
}

// List returns documents matching the filter.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Document, int, error) {
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Void marks a document void. The number stays consumed; reissuing
// allocates a fresh one.
func (s *Service) Void(ctx context.Context, id int64) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.IsVoid {
		return nil
	}
	if err := s.repo.Void(ctx, id); err != nil {
		return err
	}
	s.logger.Info("document voided",
		slog.String("number", doc.DocumentNumber),
		slog.Int64("job_id", doc.JobID))
	return nil
}

// Aging bucket keys, by days past due.
const (
	BucketCurrent = "current"
	Bucket1To30   = "1_30"
	Bucket31To60  = "31_60"
	Bucket61To90  = "61_90"
	Bucket91Plus  = "91_plus"
)

// AgingEntry is one outstanding job placed in its bucket.
type AgingEntry struct {
	JobID         int64           `json:"job_id"`
	Title         string          `json:"title"`
	CustomerName  string          `json:"customer_name"`
	InvoiceNumber *string         `json:"invoice_number,omitempty"`
	DueDate       time.Time       `json:"due_date"`
	DaysOverdue   int             `json:"days_overdue"`
	Balance       decimal.Decimal `json:"balance"`
}

// AgingReport groups outstanding balances into overdue buckets.
type AgingReport struct {
	Buckets map[string][]AgingEntry    `json:"buckets"`
	Totals  map[string]decimal.Decimal `json:"totals"`
	Total   decimal.Decimal            `json:"total"`
}

// Aging builds the receivables aging report. A job's due date is its first
// invoice or receipt date plus the customer's credit days, falling back to
// the job creation date for jobs not yet billed.
func (s *Service) Aging(ctx context.Context) (AgingReport, error) {
	rows, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		return AgingReport{}, err
	}

	report := AgingReport{
		Buckets: map[string][]AgingEntry{},
		Totals: map[string]decimal.Decimal{
			BucketCurrent: decimal.Zero,
			Bucket1To30:   decimal.Zero,
			Bucket31To60:  decimal.Zero,
			Bucket61To90:  decimal.Zero,
			Bucket91Plus:  decimal.Zero,
		},
		Total: decimal.Zero,
	}

	now := s.now()
	for _, row := range rows {
		if !row.Balance.IsPositive() {
			continue
		}
		anchor := row.JobCreatedAt
		if row.InvoiceIssued != nil {
			anchor = *row.InvoiceIssued
		}
		due := anchor.AddDate(0, 0, row.CreditDays)
		overdue := int(now.Sub(due).Hours() / 24)
		if overdue < 0 {
			overdue = 0
		}

		bucket := BucketCurrent
		switch {
		case overdue > 90:
			bucket = Bucket91Plus
		case overdue > 60:
			bucket = Bucket61To90
		case overdue > 30:
			bucket = Bucket31To60
		case overdue > 0:
			bucket = Bucket1To30
		}

		entry := AgingEntry{
			JobID:         row.JobID,
			Title:         row.Title,
			CustomerName:  row.CustomerName,
			InvoiceNumber: row.InvoiceNumber,
			DueDate:       due,
			DaysOverdue:   overdue,
			Balance:       row.Balance,
		}
		report.Buckets[bucket] = append(report.Buckets[bucket], entry)
		report.Totals[bucket] = report.Totals[bucket].Add(row.Balance)
		report.Total = report.Total.Add(row.Balance)
	}
	return report, nil
}
