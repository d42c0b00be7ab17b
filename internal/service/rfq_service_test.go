package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"procurement/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestQuotedItemTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		quantity int64
		discount int64
		want     string
	}{
		{"no discount", 100, 5, 0, "500"},
		{"ten percent discount", 100, 5, 10, "450"},
		{"full discount", 100, 5, 100, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quotedItemTotal(decimal.NewFromInt(tt.price), decimal.NewFromInt(tt.quantity), decimal.NewFromInt(tt.discount))
			assertDecimal(t, "quotedItemTotal", got, tt.want)
		})
	}
}

type rfqTestEnv struct {
	orgID   uuid.UUID
	userID  string
	svc     *rfqService
	rfqs    *fakeRFQRepo
	quotes  *fakeQuoteRepo
	reqs    *fakeRequisitionRepo
	vendors *fakeVendorRepo
	policy  *fakePolicyRepo
	audit   *fakeAuditRepo
}

func newRFQTestEnv() *rfqTestEnv {
	env := &rfqTestEnv{
		orgID:   uuid.New(),
		userID:  uuid.NewString(),
		rfqs:    newFakeRFQRepo(),
		quotes:  newFakeQuoteRepo(),
		reqs:    newFakeRequisitionRepo(),
		vendors: newFakeVendorRepo(),
		policy:  &fakePolicyRepo{},
		audit:   &fakeAuditRepo{},
	}
	svc := NewRFQService(env.rfqs, env.quotes, env.reqs, env.vendors, env.policy, env.audit,
		NewSequenceService(newFakeCounterRepo()), NewPolicyService(env.policy), fakeTxManager{}).(*rfqService)
	svc.now = func() time.Time {
		return time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC)
	}
	env.svc = svc
	return env
}

func TestLinkRequisitionItemsToRFQ(t *testing.T) {
	env := newRFQTestEnv()
	ctx := context.Background()
	materialID := uuid.New()

	poID := uuid.New()
	pr := &model.Requisition{
		OrgID:    env.orgID,
		PRNumber: "PR000001",
		Status:   model.PRStatusCreated,
		Lines: []model.RequisitionLine{
			{MaterialID: materialID, RequestedQuantity: decimal.NewFromInt(10), UOM: "EA", ReviewStatus: model.ReviewReviewed},
			{MaterialID: materialID, RequestedQuantity: decimal.NewFromInt(5), UOM: "EA", ReviewStatus: model.ReviewProcessed, POID: &poID},
		},
	}
	if err := env.reqs.Create(ctx, pr); err != nil {
		t.Fatalf("seed requisition: %v", err)
	}

	rfq := env.rfqs.add(model.RFQ{OrgID: env.orgID, RFQNumber: "RFQ000000001", Status: model.RFQStatusDraft})

	got, err := env.svc.LinkRequisitionItems(ctx, env.orgID, env.userID, rfq.ID, LinkRequisitionItemsRequest{
		LineIDs: []string{pr.Lines[0].ID.String(), pr.Lines[1].ID.String()},
	})
	if err != nil {
		t.Fatalf("LinkRequisitionItems() error = %v", err)
	}
	// The already-linked line is excluded.
	if len(got.Items) != 1 {
		t.Fatalf("rfq items = %d, want 1", len(got.Items))
	}
	if got.Items[0].RequisitionLineID != pr.Lines[0].ID {
		t.Error("rfq item references the wrong requisition line")
	}

	line, err := env.reqs.FindLineByID(ctx, pr.Lines[0].ID)
	if err != nil {
		t.Fatalf("find line: %v", err)
	}
	if line.ReviewStatus != model.ReviewRFQProcess {
		t.Errorf("line status = %s, want RFQ_PROCESS", line.ReviewStatus)
	}

	// Re-adding the same line yields nothing eligible.
	_, err = env.svc.LinkRequisitionItems(ctx, env.orgID, env.userID, rfq.ID, LinkRequisitionItemsRequest{
		LineIDs: []string{pr.Lines[0].ID.String()},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("duplicate add error = %v, want ValidationError", err)
	}
}

func TestInviteSupplier(t *testing.T) {
	env := newRFQTestEnv()
	ctx := context.Background()

	vendor := env.vendors.add(model.Vendor{OrgID: env.orgID, VendorCode: "V00007", Name: "Acme Steel", Currency: "USD"})
	rfq := env.rfqs.add(model.RFQ{
		OrgID:     env.orgID,
		RFQNumber: "RFQ000000001",
		Status:    model.RFQStatusDraft,
		Items: []model.RFQItem{
			{RequisitionID: uuid.New(), RequisitionLineID: uuid.New(), MaterialID: uuid.New(),
				Quantity: decimal.NewFromInt(10), UOM: "EA"},
		},
	})

	quote, err := env.svc.InviteSupplier(ctx, env.orgID, env.userID, rfq.ID, InviteSupplierRequest{VendorID: vendor.ID.String()})
	if err != nil {
		t.Fatalf("InviteSupplier() error = %v", err)
	}
	if quote.QuoteNumber != "RFQ000000001-V00007" {
		t.Errorf("QuoteNumber = %s, want RFQ000000001-V00007", quote.QuoteNumber)
	}
	if quote.Status != model.QuoteStatusDraft {
		t.Errorf("quote status = %s, want DRAFT", quote.Status)
	}
	if len(quote.Items) != 1 {
		t.Fatalf("quote items = %d, want 1", len(quote.Items))
	}

	stored, err := env.rfqs.FindByID(ctx, env.orgID, rfq.ID)
	if err != nil {
		t.Fatalf("find rfq: %v", err)
	}
	if stored.Status != model.RFQStatusOpen {
		t.Errorf("rfq status = %s, want OPEN after first invite", stored.Status)
	}
}

func TestRecordResponse(t *testing.T) {
	env := newRFQTestEnv()
	ctx := context.Background()

	rfq := env.rfqs.add(model.RFQ{OrgID: env.orgID, RFQNumber: "RFQ000000001", Status: model.RFQStatusOpen})
	quote := env.quotes.add(model.Quote{
		OrgID:       env.orgID,
		QuoteNumber: "RFQ000000001-V00001",
		RFQID:       rfq.ID,
		SupplierID:  uuid.New(),
		Status:      model.QuoteStatusSent,
		Items: []model.QuoteItem{
			{RequisitionID: uuid.New(), RequisitionLineID: uuid.New(), MaterialID: uuid.New(),
				Quantity: decimal.NewFromInt(5), UOM: "EA"},
		},
	})

	t.Run("confirmation token must match the rfq number", func(t *testing.T) {
		_, err := env.svc.RecordResponse(ctx, env.orgID, env.userID, quote.ID, RecordResponseRequest{
			ConfirmationToken: "RFQ000000999",
			Items:             []QuoteItemPrice{{QuoteItemID: quote.Items[0].ID.String(), UnitPrice: "100"}},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("RecordResponse() error = %v, want ValidationError", err)
		}
	})

	t.Run("every item must be priced", func(t *testing.T) {
		_, err := env.svc.RecordResponse(ctx, env.orgID, env.userID, quote.ID, RecordResponseRequest{
			ConfirmationToken: "RFQ000000001",
			Items:             []QuoteItemPrice{{QuoteItemID: uuid.NewString(), UnitPrice: "100"}},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("RecordResponse() error = %v, want ValidationError", err)
		}
	})

	t.Run("valid response totals and transitions", func(t *testing.T) {
		got, err := env.svc.RecordResponse(ctx, env.orgID, env.userID, quote.ID, RecordResponseRequest{
			ConfirmationToken: "RFQ000000001",
			Currency:          "EUR",
			PaymentTerms:      "NET30",
			Items: []QuoteItemPrice{{
				QuoteItemID:   quote.Items[0].ID.String(),
				UnitPrice:     "100",
				Discount:      "10",
				LeadTimeValue: 2,
				LeadTimeUnits: "WEEKS",
			}},
		})
		if err != nil {
			t.Fatalf("RecordResponse() error = %v", err)
		}
		if got.Status != model.QuoteStatusReceived {
			t.Errorf("status = %s, want RECEIVED", got.Status)
		}
		assertDecimal(t, "TotalValue", got.TotalValue, "450")
		if got.ReceivedAt == nil {
			t.Error("ReceivedAt not set")
		}
		if got.Currency != "EUR" || got.PaymentTerms != "NET30" {
			t.Errorf("terms = %s/%s, want EUR/NET30", got.Currency, got.PaymentTerms)
		}
		if got.Items[0].LeadTimeDays() != 14 {
			t.Errorf("LeadTimeDays() = %d, want 14", got.Items[0].LeadTimeDays())
		}
	})

	t.Run("received quotes cannot be re-recorded", func(t *testing.T) {
		_, err := env.svc.RecordResponse(ctx, env.orgID, env.userID, quote.ID, RecordResponseRequest{
			ConfirmationToken: "RFQ000000001",
			Items:             []QuoteItemPrice{{QuoteItemID: quote.Items[0].ID.String(), UnitPrice: "100"}},
		})
		var conflict *StateConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("RecordResponse() error = %v, want StateConflictError", err)
		}
	})
}

func awardFixture(env *rfqTestEnv, totalValue int64, receivedPeers int) (*model.Quote, uuid.UUID, uuid.UUID) {
	ctx := context.Background()
	supplier := env.vendors.add(model.Vendor{OrgID: env.orgID, VendorCode: "V00001", Name: "Acme Steel", Currency: "USD"})

	pr := &model.Requisition{
		OrgID:    env.orgID,
		PRNumber: "PR000001",
		Status:   model.PRStatusCreated,
		Lines: []model.RequisitionLine{
			{MaterialID: uuid.New(), RequestedQuantity: decimal.NewFromInt(5), UOM: "EA", ReviewStatus: model.ReviewRFQProcess},
		},
	}
	_ = env.reqs.Create(ctx, pr)

	rfq := env.rfqs.add(model.RFQ{OrgID: env.orgID, RFQNumber: "RFQ000000001", Status: model.RFQStatusOpen})
	unitPrice := decimal.NewFromInt(totalValue).Div(decimal.NewFromInt(5))
	received := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	quote := env.quotes.add(model.Quote{
		OrgID:       env.orgID,
		QuoteNumber: "RFQ000000001-V00001",
		RFQID:       rfq.ID,
		SupplierID:  supplier.ID,
		Supplier:    supplier,
		Status:      model.QuoteStatusReceived,
		Currency:    "USD",
		TotalValue:  decimal.NewFromInt(totalValue),
		ReceivedAt:  &received,
		Items: []model.QuoteItem{
			{RequisitionID: pr.ID, RequisitionLineID: pr.Lines[0].ID, MaterialID: pr.Lines[0].MaterialID,
				Quantity: decimal.NewFromInt(5), UOM: "EA",
				QuotedUnitPrice: &unitPrice, QuotedTotalPrice: decimal.NewFromInt(totalValue),
				LeadTimeValue: 2, LeadTimeUnits: "WEEKS"},
		},
	})
	for i := 0; i < receivedPeers; i++ {
		env.quotes.add(model.Quote{
			OrgID: env.orgID, QuoteNumber: "peer", RFQID: rfq.ID,
			SupplierID: uuid.New(), Status: model.QuoteStatusReceived,
		})
	}
	return quote, rfq.ID, pr.Lines[0].ID
}

func TestAwardQuoteBelowThreshold(t *testing.T) {
	env := newRFQTestEnv()
	ctx := context.Background()
	quote, rfqID, lineID := awardFixture(env, 5000, 0)

	result, err := env.svc.AwardQuote(ctx, env.orgID, env.userID, quote.ID, AwardQuoteRequest{AwardReason: "best price"})
	if err != nil {
		t.Fatalf("AwardQuote() error = %v", err)
	}
	if result.Threshold.Required != model.RuleNone || !result.Threshold.Satisfied {
		t.Errorf("threshold = %+v, want NONE satisfied", result.Threshold)
	}
	if result.NoticeNo != "" {
		t.Errorf("NoticeNo = %s, want empty", result.NoticeNo)
	}
	if len(env.policy.notices) != 0 {
		t.Errorf("notices = %d, want 0", len(env.policy.notices))
	}
	if result.Quote.Status != model.QuoteStatusAwarded {
		t.Errorf("quote status = %s, want AWARDED", result.Quote.Status)
	}

	rfq, err := env.rfqs.FindByID(ctx, env.orgID, rfqID)
	if err != nil {
		t.Fatalf("find rfq: %v", err)
	}
	if rfq.Status != model.RFQStatusAwarded {
		t.Errorf("rfq status = %s, want AWARDED", rfq.Status)
	}

	line, err := env.reqs.FindLineByID(ctx, lineID)
	if err != nil {
		t.Fatalf("find line: %v", err)
	}
	if line.ReviewStatus != model.ReviewProcessed {
		t.Errorf("line status = %s, want PROCESSED", line.ReviewStatus)
	}
	if line.SourcingMethod != model.SourcingRFQ || line.SourcingRef != quote.QuoteNumber {
		t.Errorf("sourcing provenance = %s/%s, want RFQ/%s", line.SourcingMethod, line.SourcingRef, quote.QuoteNumber)
	}
	if line.AgreedPrice == nil {
		t.Fatal("agreed price not written")
	}
	assertDecimal(t, "AgreedPrice", *line.AgreedPrice, "1000")
	if line.LeadTimeDays != 14 {
		t.Errorf("LeadTimeDays = %d, want 14", line.LeadTimeDays)
	}
}

func TestAwardQuoteRequiresJustificationPastThreshold(t *testing.T) {
	env := newRFQTestEnv()
	ctx := context.Background()
	quote, _, _ := awardFixture(env, 12000, 1) // two received quotes, below the minimum of three

	_, err := env.svc.AwardQuote(ctx, env.orgID, env.userID, quote.ID, AwardQuoteRequest{AwardReason: "urgent"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("AwardQuote() without justification error = %v, want ValidationError", err)
	}

	result, err := env.svc.AwardQuote(ctx, env.orgID, env.userID, quote.ID, AwardQuoteRequest{
		AwardReason:   "urgent",
		Justification: "production stoppage, sole supplier able to deliver this week",
	})
	if err != nil {
		t.Fatalf("AwardQuote() error = %v", err)
	}
	if result.NoticeNo != "EX-000001" {
		t.Errorf("NoticeNo = %s, want EX-000001", result.NoticeNo)
	}
	if len(env.policy.notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(env.policy.notices))
	}
	notice := env.policy.notices[0]
	if notice.ViolationType != model.ViolationQuoteCount {
		t.Errorf("ViolationType = %s, want %s", notice.ViolationType, model.ViolationQuoteCount)
	}
	assertDecimal(t, "QuoteValue", notice.QuoteValue, "12000")
	assertDecimal(t, "ThresholdLimit", notice.ThresholdLimit, "10000")
	if notice.SupplierName != "Acme Steel" {
		t.Errorf("SupplierName = %s, want Acme Steel", notice.SupplierName)
	}
}

func TestAwardQuoteTenderBypass(t *testing.T) {
	env := newRFQTestEnv()
	ctx := context.Background()
	quote, _, _ := awardFixture(env, 60000, 4) // plenty of quotes never satisfies a tender

	result, err := env.svc.AwardQuote(ctx, env.orgID, env.userID, quote.ID, AwardQuoteRequest{
		AwardReason:   "framework renewal",
		Justification: "tender waived by the board, minutes 2024-02-01",
	})
	if err != nil {
		t.Fatalf("AwardQuote() error = %v", err)
	}
	if result.Threshold.Required != model.RuleTender {
		t.Errorf("Required = %s, want TENDER", result.Threshold.Required)
	}
	if len(env.policy.notices) != 1 || env.policy.notices[0].ViolationType != model.ViolationTender {
		t.Fatalf("expected one TENDER_BYPASSED notice, got %+v", env.policy.notices)
	}
}

func TestAwardQuoteOnlyFromReceived(t *testing.T) {
	env := newRFQTestEnv()
	ctx := context.Background()

	rfq := env.rfqs.add(model.RFQ{OrgID: env.orgID, RFQNumber: "RFQ000000001", Status: model.RFQStatusOpen})
	quote := env.quotes.add(model.Quote{
		OrgID: env.orgID, QuoteNumber: "RFQ000000001-V00001", RFQID: rfq.ID,
		SupplierID: uuid.New(), Status: model.QuoteStatusSent,
	})

	_, err := env.svc.AwardQuote(ctx, env.orgID, env.userID, quote.ID, AwardQuoteRequest{AwardReason: "x"})
	var conflict *StateConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("AwardQuote() on a SENT quote error = %v, want StateConflictError", err)
	}
}
