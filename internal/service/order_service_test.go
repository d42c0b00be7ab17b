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

func TestComputeDeliveryDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		start    time.Time
		leadDays int
		want     time.Time
	}{
		{
			// Lead time lands on Saturday Jan 6, rolls to Monday Jan 8,
			// then seven working days end on Wednesday Jan 17.
			name:     "weekend landing rolls forward",
			start:    day(2024, time.January, 1),
			leadDays: 5,
			want:     day(2024, time.January, 17),
		},
		{
			name:     "weekday landing",
			start:    day(2024, time.January, 1),
			leadDays: 2,
			want:     day(2024, time.January, 12),
		},
		{
			name:     "zero lead time",
			start:    day(2024, time.January, 1),
			leadDays: 0,
			want:     day(2024, time.January, 10),
		},
		{
			name:     "friday start lands on saturday",
			start:    day(2024, time.January, 5),
			leadDays: 1,
			want:     day(2024, time.January, 17),
		},
		{
			name:     "sunday landing",
			start:    day(2024, time.January, 7),
			leadDays: 7,
			want:     day(2024, time.January, 24),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeDeliveryDate(tt.start, tt.leadDays)
			if !got.Equal(tt.want) {
				t.Errorf("computeDeliveryDate(%s, %d) = %s, want %s",
					tt.start.Format("2006-01-02"), tt.leadDays,
					got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
			if isWeekend(got) {
				t.Errorf("delivery date %s falls on a weekend", got.Format("2006-01-02"))
			}
		})
	}
}

func TestBuildPOItem(t *testing.T) {
	po := &model.PurchaseOrder{ID: uuid.New()}
	today := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	t.Run("full pricing chain", func(t *testing.T) {
		price := decimal.NewFromInt(25)
		line := &model.RequisitionLine{
			ID:                uuid.New(),
			RequisitionID:     uuid.New(),
			MaterialID:        uuid.New(),
			RequestedQuantity: decimal.NewFromInt(100),
			UOM:               "EA",
			AgreedPrice:       &price,
			DiscountPercent:   decimal.NewFromInt(5),
			LeadTimeDays:      2,
		}
		material := &model.Material{
			ID:         line.MaterialID,
			Code:       "MAT-001",
			PriceUnit:  decimal.NewFromInt(10),
			TaxPercent: decimal.NewFromInt(10),
		}

		item := buildPOItem(po, line, material, today)

		assertDecimal(t, "DiscountAmount", item.DiscountAmount, "12.5")
		assertDecimal(t, "NetAmount", item.NetAmount, "237.5")
		assertDecimal(t, "TaxAmount", item.TaxAmount, "23.75")
		assertDecimal(t, "TotalAmount", item.TotalAmount, "261.25")
		if item.MaterialCode != "MAT-001" {
			t.Errorf("MaterialCode = %s, want MAT-001", item.MaterialCode)
		}
		wantDelivery := time.Date(2024, time.January, 12, 0, 0, 0, 0, time.UTC)
		if !item.DeliveryDate.Equal(wantDelivery) {
			t.Errorf("DeliveryDate = %s, want %s", item.DeliveryDate.Format("2006-01-02"), wantDelivery.Format("2006-01-02"))
		}
	})

	t.Run("zero price unit treated as one", func(t *testing.T) {
		price := decimal.NewFromInt(3)
		line := &model.RequisitionLine{
			RequestedQuantity: decimal.NewFromInt(4),
			AgreedPrice:       &price,
		}
		material := &model.Material{}

		item := buildPOItem(po, line, material, today)

		assertDecimal(t, "NetAmount", item.NetAmount, "12")
		assertDecimal(t, "TotalAmount", item.TotalAmount, "12")
		assertDecimal(t, "PriceUnit", item.PriceUnit, "1")
	})
}

func TestRenumberAndAggregates(t *testing.T) {
	items := []model.POItem{
		{NetAmount: decimal.NewFromInt(100), TaxAmount: decimal.NewFromInt(10)},
		{NetAmount: decimal.NewFromInt(200), TaxAmount: decimal.NewFromInt(20)},
		{NetAmount: decimal.NewFromInt(50), TaxAmount: decimal.NewFromInt(5)},
	}

	renumberItems(items)
	for i, want := range []int{10, 20, 30} {
		if items[i].LineNo != want {
			t.Errorf("items[%d].LineNo = %d, want %d", i, items[i].LineNo, want)
		}
	}

	var po model.PurchaseOrder
	recomputeAggregates(&po, items)
	assertDecimal(t, "SubTotal", po.SubTotal, "350")
	assertDecimal(t, "TotalTax", po.TotalTax, "35")
	assertDecimal(t, "GrandTotal", po.GrandTotal, "385")

	recomputeAggregates(&po, nil)
	assertDecimal(t, "GrandTotal after clearing", po.GrandTotal, "0")
}

func TestValidateLink(t *testing.T) {
	vendorID := uuid.New()
	otherVendorID := uuid.New()
	price := decimal.NewFromInt(10)
	poID := uuid.New()

	okLine := func() *model.RequisitionLine {
		return &model.RequisitionLine{
			ReviewStatus:     model.ReviewProcessed,
			AssignedVendorID: &vendorID,
			AgreedPrice:      &price,
		}
	}
	okPO := func() *model.PurchaseOrder {
		return &model.PurchaseOrder{ID: poID, VendorID: vendorID, Status: model.POStatusCreated}
	}

	tests := []struct {
		name    string
		mutate  func(po *model.PurchaseOrder, line *model.RequisitionLine)
		wantErr bool
	}{
		{"valid", func(po *model.PurchaseOrder, line *model.RequisitionLine) {}, false},
		{"issued order", func(po *model.PurchaseOrder, line *model.RequisitionLine) {
			po.Status = model.POStatusIssued
		}, true},
		{"line not processed", func(po *model.PurchaseOrder, line *model.RequisitionLine) {
			line.ReviewStatus = model.ReviewReviewed
		}, true},
		{"line already linked", func(po *model.PurchaseOrder, line *model.RequisitionLine) {
			linkedTo := uuid.New()
			line.POID = &linkedTo
		}, true},
		{"no vendor assigned", func(po *model.PurchaseOrder, line *model.RequisitionLine) {
			line.AssignedVendorID = nil
		}, true},
		{"vendor mismatch", func(po *model.PurchaseOrder, line *model.RequisitionLine) {
			line.AssignedVendorID = &otherVendorID
		}, true},
		{"no agreed price", func(po *model.PurchaseOrder, line *model.RequisitionLine) {
			line.AgreedPrice = nil
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			po, line := okPO(), okLine()
			tt.mutate(po, line)
			err := validateLink(po, line)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateLink() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type orderTestEnv struct {
	orgID   uuid.UUID
	userID  string
	svc     *orderService
	orders  *fakeOrderRepo
	reqs    *fakeRequisitionRepo
	mats    *fakeMaterialRepo
	vendors *fakeVendorRepo
	audit   *fakeAuditRepo
}

func newOrderTestEnv() *orderTestEnv {
	env := &orderTestEnv{
		orgID:   uuid.New(),
		userID:  uuid.NewString(),
		orders:  newFakeOrderRepo(),
		reqs:    newFakeRequisitionRepo(),
		mats:    newFakeMaterialRepo(),
		vendors: newFakeVendorRepo(),
		audit:   &fakeAuditRepo{},
	}
	svc := NewOrderService(env.orders, env.reqs, env.mats, env.vendors, env.audit,
		NewSequenceService(newFakeCounterRepo()), fakeTxManager{}, nil).(*orderService)
	svc.now = func() time.Time {
		return time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	}
	env.svc = svc
	return env
}

func TestCreatePO(t *testing.T) {
	env := newOrderTestEnv()
	ctx := context.Background()
	vendor := env.vendors.add(model.Vendor{OrgID: env.orgID, VendorCode: "V00001", Name: "Acme Steel", Currency: "EUR"})

	po, err := env.svc.CreatePO(ctx, env.orgID, env.userID, CreatePORequest{VendorID: vendor.ID.String()})
	if err != nil {
		t.Fatalf("CreatePO() error = %v", err)
	}
	if po.PONumber != "PO00000001" {
		t.Errorf("PONumber = %s, want PO00000001", po.PONumber)
	}
	if po.Currency != "EUR" {
		t.Errorf("Currency = %s, want vendor default EUR", po.Currency)
	}
	if po.Status != model.POStatusCreated {
		t.Errorf("Status = %s, want CREATED", po.Status)
	}
	if got := env.audit.actions(); len(got) != 1 || got[0] != model.ActionCreatePO {
		t.Errorf("audit actions = %v, want [%s]", got, model.ActionCreatePO)
	}

	// Second order draws the next gap-free number.
	po2, err := env.svc.CreatePO(ctx, env.orgID, env.userID, CreatePORequest{VendorID: vendor.ID.String()})
	if err != nil {
		t.Fatalf("CreatePO() error = %v", err)
	}
	if po2.PONumber != "PO00000002" {
		t.Errorf("second PONumber = %s, want PO00000002", po2.PONumber)
	}
}

func TestLinkAndUnlinkLine(t *testing.T) {
	env := newOrderTestEnv()
	ctx := context.Background()

	vendor := env.vendors.add(model.Vendor{OrgID: env.orgID, VendorCode: "V00001", Name: "Acme Steel", Currency: "USD"})
	material := env.mats.add(model.Material{
		OrgID:      env.orgID,
		Code:       "MAT-001",
		Name:       "Steel Rod",
		UOM:        "EA",
		PriceUnit:  decimal.NewFromInt(1),
		TaxPercent: decimal.NewFromInt(10),
	})

	price := decimal.NewFromInt(50)
	pr := &model.Requisition{
		OrgID:    env.orgID,
		PRNumber: "PR000001",
		Status:   model.PRStatusCreated,
		Lines: []model.RequisitionLine{
			{
				MaterialID:        material.ID,
				RequestedQuantity: decimal.NewFromInt(2),
				UOM:               "EA",
				ReviewStatus:      model.ReviewProcessed,
				AssignedVendorID:  &vendor.ID,
				AgreedPrice:       &price,
				LeadTimeDays:      2,
			},
			{
				MaterialID:        material.ID,
				RequestedQuantity: decimal.NewFromInt(5),
				UOM:               "EA",
				ReviewStatus:      model.ReviewPending,
			},
		},
	}
	if err := env.reqs.Create(ctx, pr); err != nil {
		t.Fatalf("seed requisition: %v", err)
	}
	lineID := pr.Lines[0].ID

	po := &model.PurchaseOrder{OrgID: env.orgID, PONumber: "PO00000001", VendorID: vendor.ID, Status: model.POStatusCreated}
	if err := env.orders.Create(ctx, po); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	linked, err := env.svc.LinkLine(ctx, env.orgID, env.userID, po.ID, lineID)
	if err != nil {
		t.Fatalf("LinkLine() error = %v", err)
	}
	if len(linked.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(linked.Items))
	}
	if linked.Items[0].LineNo != 10 {
		t.Errorf("LineNo = %d, want 10", linked.Items[0].LineNo)
	}
	assertDecimal(t, "SubTotal", linked.SubTotal, "100")
	assertDecimal(t, "TotalTax", linked.TotalTax, "10")
	assertDecimal(t, "GrandTotal", linked.GrandTotal, "110")

	storedLine, err := env.reqs.FindLineByID(ctx, lineID)
	if err != nil {
		t.Fatalf("find line: %v", err)
	}
	if storedLine.POID == nil || *storedLine.POID != po.ID {
		t.Error("line does not reference the purchase order")
	}
	if storedLine.PONumber != "PO00000001" {
		t.Errorf("line PONumber = %s, want PO00000001", storedLine.PONumber)
	}

	storedPR, err := env.reqs.FindByIDWithLines(ctx, env.orgID, pr.ID)
	if err != nil {
		t.Fatalf("find requisition: %v", err)
	}
	if storedPR.Status != model.PRStatusInProcess {
		t.Errorf("requisition status = %s, want IN_PROCESS", storedPR.Status)
	}

	// Linking the same line twice is rejected.
	if _, err := env.svc.LinkLine(ctx, env.orgID, env.userID, po.ID, lineID); err == nil {
		t.Error("LinkLine() on a linked line succeeded, want state conflict")
	} else {
		var conflict *StateConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("LinkLine() error = %v, want StateConflictError", err)
		}
	}

	unlinked, err := env.svc.UnlinkLine(ctx, env.orgID, env.userID, po.ID, lineID)
	if err != nil {
		t.Fatalf("UnlinkLine() error = %v", err)
	}
	if len(unlinked.Items) != 0 {
		t.Errorf("items after unlink = %d, want 0", len(unlinked.Items))
	}
	assertDecimal(t, "GrandTotal after unlink", unlinked.GrandTotal, "0")

	storedLine, err = env.reqs.FindLineByID(ctx, lineID)
	if err != nil {
		t.Fatalf("find line: %v", err)
	}
	if storedLine.POID != nil || storedLine.PONumber != "" {
		t.Error("order reference was not cleared on unlink")
	}
	if storedLine.ReviewStatus != model.ReviewProcessed {
		t.Errorf("sourcing state changed on unlink: %s", storedLine.ReviewStatus)
	}
}

func TestLinkRequisition(t *testing.T) {
	env := newOrderTestEnv()
	ctx := context.Background()

	vendor := env.vendors.add(model.Vendor{OrgID: env.orgID, VendorCode: "V00001", Name: "Acme Steel"})
	otherVendor := env.vendors.add(model.Vendor{OrgID: env.orgID, VendorCode: "V00002", Name: "Bolt & Co"})
	material := env.mats.add(model.Material{OrgID: env.orgID, Code: "MAT-001", UOM: "EA", PriceUnit: decimal.NewFromInt(1)})

	price := decimal.NewFromInt(10)
	pr := &model.Requisition{
		OrgID:    env.orgID,
		PRNumber: "PR000001",
		Status:   model.PRStatusProcessed,
		Lines: []model.RequisitionLine{
			{MaterialID: material.ID, RequestedQuantity: decimal.NewFromInt(1), UOM: "EA",
				ReviewStatus: model.ReviewProcessed, AssignedVendorID: &vendor.ID, AgreedPrice: &price},
			{MaterialID: material.ID, RequestedQuantity: decimal.NewFromInt(2), UOM: "EA",
				ReviewStatus: model.ReviewProcessed, AssignedVendorID: &vendor.ID, AgreedPrice: &price},
			{MaterialID: material.ID, RequestedQuantity: decimal.NewFromInt(3), UOM: "EA",
				ReviewStatus: model.ReviewProcessed, AssignedVendorID: &otherVendor.ID, AgreedPrice: &price},
		},
	}
	if err := env.reqs.Create(ctx, pr); err != nil {
		t.Fatalf("seed requisition: %v", err)
	}

	po := &model.PurchaseOrder{OrgID: env.orgID, PONumber: "PO00000001", VendorID: vendor.ID, Status: model.POStatusCreated}
	if err := env.orders.Create(ctx, po); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	linked, err := env.svc.LinkRequisition(ctx, env.orgID, env.userID, po.ID, pr.ID)
	if err != nil {
		t.Fatalf("LinkRequisition() error = %v", err)
	}
	// The other vendor's line stays behind.
	if len(linked.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(linked.Items))
	}
	assertDecimal(t, "SubTotal", linked.SubTotal, "30")

	storedPR, err := env.reqs.FindByIDWithLines(ctx, env.orgID, pr.ID)
	if err != nil {
		t.Fatalf("find requisition: %v", err)
	}
	if storedPR.Status != model.PRStatusProcessed {
		t.Errorf("requisition status = %s, want PROCESSED (one line unlinked)", storedPR.Status)
	}

	// Re-running finds nothing left to link for this vendor.
	if _, err := env.svc.LinkRequisition(ctx, env.orgID, env.userID, po.ID, pr.ID); err == nil {
		t.Error("LinkRequisition() with nothing to link succeeded, want validation error")
	}
}

func TestIssueAndRejectPO(t *testing.T) {
	env := newOrderTestEnv()
	ctx := context.Background()

	vendor := env.vendors.add(model.Vendor{OrgID: env.orgID, VendorCode: "V00001", Name: "Acme Steel"})
	po := &model.PurchaseOrder{OrgID: env.orgID, PONumber: "PO00000001", VendorID: vendor.ID, Status: model.POStatusCreated}
	if err := env.orders.Create(ctx, po); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	// An empty order cannot be issued.
	if _, err := env.svc.IssuePO(ctx, env.orgID, env.userID, po.ID); err == nil {
		t.Error("IssuePO() on an empty order succeeded, want validation error")
	}

	item := &model.POItem{POID: po.ID, PRID: uuid.New(), RequisitionLineID: uuid.New(), MaterialID: uuid.New(),
		Quantity: decimal.NewFromInt(1), UOM: "EA", UnitPrice: decimal.NewFromInt(10),
		NetAmount: decimal.NewFromInt(10), TotalAmount: decimal.NewFromInt(10)}
	if err := env.orders.CreateItem(ctx, item); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	issued, err := env.svc.IssuePO(ctx, env.orgID, env.userID, po.ID)
	if err != nil {
		t.Fatalf("IssuePO() error = %v", err)
	}
	if issued.Status != model.POStatusIssued {
		t.Errorf("status = %s, want ISSUED", issued.Status)
	}
	if issued.IssuedAt == nil {
		t.Error("IssuedAt not set")
	}

	// Issued orders are frozen for item mutations.
	if _, err := env.svc.UnlinkLine(ctx, env.orgID, env.userID, po.ID, uuid.New()); err == nil {
		t.Error("UnlinkLine() on an issued order succeeded, want state conflict")
	}

	// Issuing twice is a state conflict.
	if _, err := env.svc.IssuePO(ctx, env.orgID, env.userID, po.ID); err == nil {
		t.Error("IssuePO() on an issued order succeeded, want state conflict")
	}

	rejected, err := env.svc.RejectPO(ctx, env.orgID, env.userID, po.ID, "pricing error")
	if err != nil {
		t.Fatalf("RejectPO() error = %v", err)
	}
	if rejected.Status != model.POStatusRejected {
		t.Errorf("status = %s, want REJECTED", rejected.Status)
	}
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	wantDec, err := decimal.NewFromString(want)
	if err != nil {
		t.Fatalf("bad expected value %q: %v", want, err)
	}
	if !got.Equal(wantDec) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}
