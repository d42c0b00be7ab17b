package service

import (
	"context"
	"sort"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes backing the service tests. They mirror the Postgres
// repositories closely enough for state-machine and pricing assertions:
// lookups return copies, saves store copies, and missing rows surface as
// gorm.ErrRecordNotFound so refErr maps them the same way.

var (
	_ repository.TransactionManager   = fakeTxManager{}
	_ repository.CounterRepository    = (*fakeCounterRepo)(nil)
	_ repository.RequisitionRepository = (*fakeRequisitionRepo)(nil)
	_ repository.OrderRepository      = (*fakeOrderRepo)(nil)
	_ repository.VendorRepository     = (*fakeVendorRepo)(nil)
	_ repository.MaterialRepository   = (*fakeMaterialRepo)(nil)
	_ repository.AuditRepository      = (*fakeAuditRepo)(nil)
	_ repository.PolicyRepository     = (*fakePolicyRepo)(nil)
	_ repository.RFQRepository        = (*fakeRFQRepo)(nil)
	_ repository.QuoteRepository      = (*fakeQuoteRepo)(nil)
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeCounterRepo struct {
	counters map[string]int64
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{counters: map[string]int64{}}
}

func (r *fakeCounterRepo) Increment(_ context.Context, orgID uuid.UUID, domain string) (int64, error) {
	key := orgID.String() + "/" + domain
	r.counters[key]++
	return r.counters[key], nil
}

// --- Requisitions ---

type fakeRequisitionRepo struct {
	requisitions map[uuid.UUID]*model.Requisition
	lines        map[uuid.UUID]*model.RequisitionLine
	lineOrder    []uuid.UUID
}

func newFakeRequisitionRepo() *fakeRequisitionRepo {
	return &fakeRequisitionRepo{
		requisitions: map[uuid.UUID]*model.Requisition{},
		lines:        map[uuid.UUID]*model.RequisitionLine{},
	}
}

func (r *fakeRequisitionRepo) addLine(line model.RequisitionLine) uuid.UUID {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	r.lines[line.ID] = &line
	r.lineOrder = append(r.lineOrder, line.ID)
	return line.ID
}

func (r *fakeRequisitionRepo) Create(_ context.Context, pr *model.Requisition) error {
	if pr.ID == uuid.Nil {
		pr.ID = uuid.New()
	}
	for i := range pr.Lines {
		if pr.Lines[i].ID == uuid.Nil {
			pr.Lines[i].ID = uuid.New()
		}
		pr.Lines[i].RequisitionID = pr.ID
	}
	header := *pr
	lines := header.Lines
	header.Lines = nil
	r.requisitions[pr.ID] = &header
	for i := range lines {
		r.addLine(lines[i])
	}
	return nil
}

func (r *fakeRequisitionRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.Requisition, error) {
	pr, ok := r.requisitions[id]
	if !ok || pr.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *pr
	return &cp, nil
}

func (r *fakeRequisitionRepo) FindByIDWithLines(_ context.Context, orgID, id uuid.UUID) (*model.Requisition, error) {
	pr, ok := r.requisitions[id]
	if !ok || pr.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *pr
	for _, lineID := range r.lineOrder {
		line := r.lines[lineID]
		if line.RequisitionID == id {
			cp.Lines = append(cp.Lines, *line)
		}
	}
	return &cp, nil
}

func (r *fakeRequisitionRepo) FindLineByID(_ context.Context, id uuid.UUID) (*model.RequisitionLine, error) {
	line, ok := r.lines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *line
	return &cp, nil
}

func (r *fakeRequisitionRepo) List(_ context.Context, orgID uuid.UUID, status string, _, _ int) ([]model.Requisition, int64, error) {
	var out []model.Requisition
	for _, pr := range r.requisitions {
		if pr.OrgID != orgID {
			continue
		}
		if status != "" && pr.Status != status {
			continue
		}
		out = append(out, *pr)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRequisitionRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	pr, ok := r.requisitions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	pr.Status = status
	return nil
}

func (r *fakeRequisitionRepo) SaveLine(_ context.Context, line *model.RequisitionLine) error {
	cp := *line
	if _, ok := r.lines[line.ID]; !ok {
		r.lineOrder = append(r.lineOrder, line.ID)
	}
	r.lines[line.ID] = &cp
	return nil
}

func (r *fakeRequisitionRepo) SaveLines(ctx context.Context, lines []model.RequisitionLine) error {
	for i := range lines {
		if err := r.SaveLine(ctx, &lines[i]); err != nil {
			return err
		}
	}
	return nil
}

// --- Purchase orders ---

type fakeOrderRepo struct {
	orders    map[uuid.UUID]*model.PurchaseOrder
	items     map[uuid.UUID]*model.POItem
	itemOrder []uuid.UUID
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: map[uuid.UUID]*model.PurchaseOrder{},
		items:  map[uuid.UUID]*model.POItem{},
	}
}

func (r *fakeOrderRepo) Create(_ context.Context, po *model.PurchaseOrder) error {
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	header := *po
	header.Items = nil
	r.orders[po.ID] = &header
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok || po.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *po
	return &cp, nil
}

func (r *fakeOrderRepo) FindByIDWithItems(_ context.Context, orgID, id uuid.UUID) (*model.PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok || po.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *po
	for _, itemID := range r.itemOrder {
		item := r.items[itemID]
		if item.POID == id {
			cp.Items = append(cp.Items, *item)
		}
	}
	sort.SliceStable(cp.Items, func(i, j int) bool { return cp.Items[i].LineNo < cp.Items[j].LineNo })
	return &cp, nil
}

func (r *fakeOrderRepo) List(_ context.Context, orgID uuid.UUID, status string, vendorID *uuid.UUID, _, _ int) ([]model.PurchaseOrder, int64, error) {
	var out []model.PurchaseOrder
	for _, po := range r.orders {
		if po.OrgID != orgID {
			continue
		}
		if status != "" && po.Status != status {
			continue
		}
		if vendorID != nil && po.VendorID != *vendorID {
			continue
		}
		out = append(out, *po)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) Save(_ context.Context, po *model.PurchaseOrder) error {
	header := *po
	header.Items = nil
	r.orders[po.ID] = &header
	return nil
}

func (r *fakeOrderRepo) CreateItem(_ context.Context, item *model.POItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cp := *item
	r.items[item.ID] = &cp
	r.itemOrder = append(r.itemOrder, item.ID)
	return nil
}

func (r *fakeOrderRepo) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	delete(r.items, itemID)
	for i, id := range r.itemOrder {
		if id == itemID {
			r.itemOrder = append(r.itemOrder[:i], r.itemOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeOrderRepo) SaveItems(_ context.Context, items []model.POItem) error {
	for i := range items {
		cp := items[i]
		r.items[cp.ID] = &cp
	}
	return nil
}

// --- Vendors and materials ---

type fakeVendorRepo struct {
	vendors map[uuid.UUID]*model.Vendor
}

func newFakeVendorRepo() *fakeVendorRepo {
	return &fakeVendorRepo{vendors: map[uuid.UUID]*model.Vendor{}}
}

func (r *fakeVendorRepo) add(v model.Vendor) *model.Vendor {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.vendors[v.ID] = &v
	return &v
}

func (r *fakeVendorRepo) Create(_ context.Context, vendor *model.Vendor) error {
	if vendor.ID == uuid.Nil {
		vendor.ID = uuid.New()
	}
	cp := *vendor
	r.vendors[vendor.ID] = &cp
	return nil
}

func (r *fakeVendorRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.Vendor, error) {
	vendor, ok := r.vendors[id]
	if !ok || vendor.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *vendor
	return &cp, nil
}

func (r *fakeVendorRepo) List(_ context.Context, orgID uuid.UUID, _ string, _, _ int) ([]model.Vendor, int64, error) {
	var out []model.Vendor
	for _, v := range r.vendors {
		if v.OrgID == orgID {
			out = append(out, *v)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeVendorRepo) Save(_ context.Context, vendor *model.Vendor) error {
	cp := *vendor
	r.vendors[vendor.ID] = &cp
	return nil
}

type fakeMaterialRepo struct {
	materials map[uuid.UUID]*model.Material
	sources   []model.MaterialSource
}

func newFakeMaterialRepo() *fakeMaterialRepo {
	return &fakeMaterialRepo{materials: map[uuid.UUID]*model.Material{}}
}

func (r *fakeMaterialRepo) add(m model.Material) *model.Material {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.materials[m.ID] = &m
	return &m
}

func (r *fakeMaterialRepo) addSource(s model.MaterialSource) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sources = append(r.sources, s)
}

func (r *fakeMaterialRepo) Create(_ context.Context, material *model.Material) error {
	if material.ID == uuid.Nil {
		material.ID = uuid.New()
	}
	cp := *material
	r.materials[material.ID] = &cp
	return nil
}

func (r *fakeMaterialRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.Material, error) {
	material, ok := r.materials[id]
	if !ok || material.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *material
	return &cp, nil
}

func (r *fakeMaterialRepo) List(_ context.Context, orgID uuid.UUID, _, _ int) ([]model.Material, int64, error) {
	var out []model.Material
	for _, m := range r.materials {
		if m.OrgID == orgID {
			out = append(out, *m)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeMaterialRepo) SourcesForMaterial(_ context.Context, orgID, materialID uuid.UUID) ([]model.MaterialSource, error) {
	var out []model.MaterialSource
	for _, s := range r.sources {
		if s.OrgID == orgID && s.MaterialID == materialID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (r *fakeMaterialRepo) SourceForVendor(_ context.Context, orgID, materialID, vendorID uuid.UUID) (*model.MaterialSource, error) {
	for _, s := range r.sources {
		if s.OrgID == orgID && s.MaterialID == materialID && s.VendorID == vendorID {
			cp := s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMaterialRepo) SaveSource(_ context.Context, source *model.MaterialSource) error {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	for i := range r.sources {
		if r.sources[i].ID == source.ID {
			r.sources[i] = *source
			return nil
		}
	}
	r.sources = append(r.sources, *source)
	return nil
}

// --- Audit ---

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, orgID uuid.UUID, action string, _, _ int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, e := range r.entries {
		if e.OrgID != orgID {
			continue
		}
		if action != "" && e.Action != action {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- Policy ---

type fakePolicyRepo struct {
	policy  *model.ProcurementPolicy
	notices []model.ExceptionNotice
}

func (r *fakePolicyRepo) FindByOrg(_ context.Context, orgID uuid.UUID) (*model.ProcurementPolicy, error) {
	if r.policy == nil || r.policy.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r.policy
	return &cp, nil
}

func (r *fakePolicyRepo) Save(_ context.Context, policy *model.ProcurementPolicy) error {
	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}
	cp := *policy
	r.policy = &cp
	return nil
}

func (r *fakePolicyRepo) CreateNotice(_ context.Context, notice *model.ExceptionNotice) error {
	if notice.ID == uuid.Nil {
		notice.ID = uuid.New()
	}
	r.notices = append(r.notices, *notice)
	return nil
}

func (r *fakePolicyRepo) ListNotices(_ context.Context, orgID uuid.UUID, _, _ int) ([]model.ExceptionNotice, int64, error) {
	var out []model.ExceptionNotice
	for _, n := range r.notices {
		if n.OrgID == orgID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

// --- RFQs and quotes ---

type fakeRFQRepo struct {
	rfqs      map[uuid.UUID]*model.RFQ
	items     map[uuid.UUID]*model.RFQItem
	itemOrder []uuid.UUID
}

func newFakeRFQRepo() *fakeRFQRepo {
	return &fakeRFQRepo{
		rfqs:  map[uuid.UUID]*model.RFQ{},
		items: map[uuid.UUID]*model.RFQItem{},
	}
}

func (r *fakeRFQRepo) add(rfq model.RFQ) *model.RFQ {
	if rfq.ID == uuid.Nil {
		rfq.ID = uuid.New()
	}
	items := rfq.Items
	rfq.Items = nil
	header := rfq
	r.rfqs[rfq.ID] = &header
	for i := range items {
		items[i].RFQID = rfq.ID
		r.addItem(items[i])
	}
	return &header
}

func (r *fakeRFQRepo) addItem(item model.RFQItem) uuid.UUID {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.items[item.ID] = &item
	r.itemOrder = append(r.itemOrder, item.ID)
	return item.ID
}

func (r *fakeRFQRepo) Create(_ context.Context, rfq *model.RFQ) error {
	if rfq.ID == uuid.Nil {
		rfq.ID = uuid.New()
	}
	header := *rfq
	header.Items = nil
	r.rfqs[rfq.ID] = &header
	return nil
}

func (r *fakeRFQRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.RFQ, error) {
	rfq, ok := r.rfqs[id]
	if !ok || rfq.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rfq
	return &cp, nil
}

func (r *fakeRFQRepo) FindByIDWithItems(_ context.Context, orgID, id uuid.UUID) (*model.RFQ, error) {
	rfq, ok := r.rfqs[id]
	if !ok || rfq.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rfq
	for _, itemID := range r.itemOrder {
		item := r.items[itemID]
		if item.RFQID == id {
			cp.Items = append(cp.Items, *item)
		}
	}
	return &cp, nil
}

func (r *fakeRFQRepo) List(_ context.Context, orgID uuid.UUID, status string, _, _ int) ([]model.RFQ, int64, error) {
	var out []model.RFQ
	for _, rfq := range r.rfqs {
		if rfq.OrgID != orgID {
			continue
		}
		if status != "" && rfq.Status != status {
			continue
		}
		out = append(out, *rfq)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRFQRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	rfq, ok := r.rfqs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rfq.Status = status
	return nil
}

func (r *fakeRFQRepo) CreateItems(_ context.Context, items []model.RFQItem) error {
	for i := range items {
		r.addItem(items[i])
	}
	return nil
}

type fakeQuoteRepo struct {
	quotes map[uuid.UUID]*model.Quote
	order  []uuid.UUID
}

func newFakeQuoteRepo() *fakeQuoteRepo {
	return &fakeQuoteRepo{quotes: map[uuid.UUID]*model.Quote{}}
}

func (r *fakeQuoteRepo) add(q model.Quote) *model.Quote {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	for i := range q.Items {
		if q.Items[i].ID == uuid.Nil {
			q.Items[i].ID = uuid.New()
		}
		q.Items[i].QuoteID = q.ID
	}
	r.quotes[q.ID] = &q
	r.order = append(r.order, q.ID)
	return &q
}

func (r *fakeQuoteRepo) Create(_ context.Context, quote *model.Quote) error {
	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}
	for i := range quote.Items {
		if quote.Items[i].ID == uuid.Nil {
			quote.Items[i].ID = uuid.New()
		}
		quote.Items[i].QuoteID = quote.ID
	}
	cp := *quote
	cp.Items = append([]model.QuoteItem(nil), quote.Items...)
	r.quotes[quote.ID] = &cp
	r.order = append(r.order, quote.ID)
	return nil
}

func (r *fakeQuoteRepo) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.Quote, error) {
	quote, ok := r.quotes[id]
	if !ok || quote.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *quote
	cp.Items = nil
	return &cp, nil
}

func (r *fakeQuoteRepo) FindByIDWithItems(_ context.Context, orgID, id uuid.UUID) (*model.Quote, error) {
	quote, ok := r.quotes[id]
	if !ok || quote.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *quote
	cp.Items = append([]model.QuoteItem(nil), quote.Items...)
	return &cp, nil
}

func (r *fakeQuoteRepo) ListByRFQ(_ context.Context, rfqID uuid.UUID) ([]model.Quote, error) {
	var out []model.Quote
	for _, id := range r.order {
		if r.quotes[id].RFQID == rfqID {
			out = append(out, *r.quotes[id])
		}
	}
	return out, nil
}

func (r *fakeQuoteRepo) CountByRFQAndStatus(_ context.Context, rfqID uuid.UUID, status string) (int64, error) {
	var count int64
	for _, q := range r.quotes {
		if q.RFQID == rfqID && q.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeQuoteRepo) FindReceivedForMaterial(_ context.Context, orgID, materialID, vendorID uuid.UUID) (*model.QuoteItem, *model.Quote, error) {
	for i := len(r.order) - 1; i >= 0; i-- {
		quote := r.quotes[r.order[i]]
		if quote.OrgID != orgID || quote.SupplierID != vendorID || quote.Status != model.QuoteStatusReceived {
			continue
		}
		for j := range quote.Items {
			if quote.Items[j].MaterialID == materialID {
				item := quote.Items[j]
				cp := *quote
				cp.Items = nil
				return &item, &cp, nil
			}
		}
	}
	return nil, nil, gorm.ErrRecordNotFound
}

func (r *fakeQuoteRepo) Save(_ context.Context, quote *model.Quote) error {
	stored, ok := r.quotes[quote.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	items := stored.Items
	cp := *quote
	if len(cp.Items) == 0 {
		cp.Items = items
	} else {
		cp.Items = append([]model.QuoteItem(nil), quote.Items...)
	}
	r.quotes[quote.ID] = &cp
	return nil
}

func (r *fakeQuoteRepo) SaveItem(_ context.Context, item *model.QuoteItem) error {
	quote, ok := r.quotes[item.QuoteID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range quote.Items {
		if quote.Items[i].ID == item.ID {
			quote.Items[i] = *item
			return nil
		}
	}
	quote.Items = append(quote.Items, *item)
	return nil
}

func (r *fakeQuoteRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	quote, ok := r.quotes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	quote.Status = status
	return nil
}
