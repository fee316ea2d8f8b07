package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/application/usecase"
	"github.com/bibbank/bureau-service/internal/domain/event"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// --- Mock implementations ---

type mockPrimaryBureau struct {
	initiateFunc      func(ctx context.Context, identity model.ApplicantIdentity, applicationID string) model.BureauResult
	verifyOTPFunc     func(ctx context.Context, transactionID, otp string) (port.OTPVerification, error)
	consentStatusFunc func(ctx context.Context, transactionID string) (port.ConsentStatus, error)
	fetchByPANFunc    func(ctx context.Context, pan string) model.BureauResult

	mu             sync.Mutex
	initiateCalls  int
	statusCalls    int
	fetchByPANCall int
	applicationIDs []string
}

func (m *mockPrimaryBureau) Initiate(ctx context.Context, identity model.ApplicantIdentity, applicationID string) model.BureauResult {
	m.mu.Lock()
	m.initiateCalls++
	m.applicationIDs = append(m.applicationIDs, applicationID)
	m.mu.Unlock()
	if m.initiateFunc != nil {
		return m.initiateFunc(ctx, identity, applicationID)
	}
	return model.BureauFailed(valueobject.ProviderKindPrimaryBureau, model.FailureTransport, "connection refused")
}

func (m *mockPrimaryBureau) VerifyOTP(ctx context.Context, transactionID, otp string) (port.OTPVerification, error) {
	if m.verifyOTPFunc != nil {
		return m.verifyOTPFunc(ctx, transactionID, otp)
	}
	return port.OTPVerification{Outcome: port.OTPVerified}, nil
}

func (m *mockPrimaryBureau) ConsentStatus(ctx context.Context, transactionID string) (port.ConsentStatus, error) {
	m.mu.Lock()
	m.statusCalls++
	m.mu.Unlock()
	if m.consentStatusFunc != nil {
		return m.consentStatusFunc(ctx, transactionID)
	}
	return port.ConsentStatus{Status: "Pending"}, nil
}

func (m *mockPrimaryBureau) FetchReportByPAN(ctx context.Context, pan string) model.BureauResult {
	m.mu.Lock()
	m.fetchByPANCall++
	m.mu.Unlock()
	if m.fetchByPANFunc != nil {
		return m.fetchByPANFunc(ctx, pan)
	}
	return model.BureauFailed(valueobject.ProviderKindPrimaryBureau, model.FailureMissingScore, "score not released")
}

type mockSecondaryBureau struct {
	fetchReportFunc func(ctx context.Context, identity model.ApplicantIdentity) model.BureauResult
	identities      []model.ApplicantIdentity
}

func (m *mockSecondaryBureau) FetchReport(ctx context.Context, identity model.ApplicantIdentity) model.BureauResult {
	m.identities = append(m.identities, identity)
	if m.fetchReportFunc != nil {
		return m.fetchReportFunc(ctx, identity)
	}
	return model.BureauSuccess(valueobject.ProviderKindSecondaryBureau, 702, []byte(secondaryReport))
}

type mockIdentityLookup struct {
	lookupByMobileFunc func(ctx context.Context, phone string) port.IdentityLookupResult
	verifyPANFunc      func(ctx context.Context, pan string) port.IdentityLookupResult
	mobileCalls        int
	panCalls           []string
}

func (m *mockIdentityLookup) LookupByMobile(ctx context.Context, phone string) port.IdentityLookupResult {
	m.mobileCalls++
	if m.lookupByMobileFunc != nil {
		return m.lookupByMobileFunc(ctx, phone)
	}
	return port.IdentityLookupResult{Outcome: valueobject.IdentityOutcomeNoRecord}
}

func (m *mockIdentityLookup) VerifyPAN(ctx context.Context, pan string) port.IdentityLookupResult {
	m.panCalls = append(m.panCalls, pan)
	if m.verifyPANFunc != nil {
		return m.verifyPANFunc(ctx, pan)
	}
	return port.IdentityLookupResult{Outcome: valueobject.IdentityOutcomeSourceUnavailable}
}

type mockOTPGateway struct {
	sendFunc   func(ctx context.Context, phone string) (bool, error)
	resendFunc func(ctx context.Context, phone string) (bool, error)
	verifyFunc func(ctx context.Context, phone, otp string) (bool, error)
	sentTo     []string
}

func (m *mockOTPGateway) Send(ctx context.Context, phone string) (bool, error) {
	m.sentTo = append(m.sentTo, phone)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, phone)
	}
	return true, nil
}

func (m *mockOTPGateway) Resend(ctx context.Context, phone string) (bool, error) {
	m.sentTo = append(m.sentTo, phone)
	if m.resendFunc != nil {
		return m.resendFunc(ctx, phone)
	}
	return true, nil
}

func (m *mockOTPGateway) Verify(ctx context.Context, phone, otp string) (bool, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, phone, otp)
	}
	return otp == "123456", nil
}

// mockSessionStore enforces the optimistic version check like the real stores.
type mockSessionStore struct {
	saveFunc func(ctx context.Context, session model.BureauSession, expectedVersion int) error

	mu       sync.Mutex
	sessions map[string]model.BureauSession
	saved    []model.BureauSession
}

func newMockSessionStore(seed ...model.BureauSession) *mockSessionStore {
	m := &mockSessionStore{sessions: map[string]model.BureauSession{}}
	for _, s := range seed {
		m.sessions[s.TransactionID()] = s.ClearEvents()
	}
	return m
}

func (m *mockSessionStore) Save(ctx context.Context, session model.BureauSession, expectedVersion int) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, session, expectedVersion)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[session.TransactionID()]
	if (!ok && expectedVersion != 0) || (ok && current.Version() != expectedVersion) {
		return port.ErrSessionConflict
	}
	m.sessions[session.TransactionID()] = session.ClearEvents()
	m.saved = append(m.saved, session)
	return nil
}

func (m *mockSessionStore) FindByTransactionID(_ context.Context, transactionID string) (model.BureauSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[transactionID]
	if !ok {
		return model.BureauSession{}, port.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionStore) get(transactionID string) model.BureauSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[transactionID]
}

type mockEventPublisher struct {
	publishFunc     func(ctx context.Context, events ...event.DomainEvent) error
	mu              sync.Mutex
	publishedEvents []event.DomainEvent
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...event.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.mu.Lock()
	m.publishedEvents = append(m.publishedEvents, evts...)
	m.mu.Unlock()
	return nil
}

func (m *mockEventPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.publishedEvents))
	for _, e := range m.publishedEvents {
		out = append(out, e.EventType())
	}
	return out
}

type mockCreditRecordRepository struct {
	upsertFunc      func(ctx context.Context, record model.CreditRecord) error
	findLatestFunc  func(ctx context.Context, pan string) (model.CreditRecord, error)
	upsertedRecords []model.CreditRecord
}

func (m *mockCreditRecordRepository) Upsert(ctx context.Context, record model.CreditRecord) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, record)
	}
	m.upsertedRecords = append(m.upsertedRecords, record)
	return nil
}

func (m *mockCreditRecordRepository) FindLatestByPAN(ctx context.Context, pan string) (model.CreditRecord, error) {
	if m.findLatestFunc != nil {
		return m.findLatestFunc(ctx, pan)
	}
	return model.CreditRecord{}, port.ErrNotFound
}

type mockLenderRepository struct {
	findEligibleFunc func(ctx context.Context, score int) ([]model.Lender, error)
	findApprovedFunc func(ctx context.Context, canonicalName string) ([]model.Lender, error)
	eligibleScores   []int
	approvedQueries  []string
}

func (m *mockLenderRepository) FindEligible(ctx context.Context, score int) ([]model.Lender, error) {
	m.eligibleScores = append(m.eligibleScores, score)
	if m.findEligibleFunc != nil {
		return m.findEligibleFunc(ctx, score)
	}
	return testLenders(), nil
}

func (m *mockLenderRepository) FindApprovedForProject(ctx context.Context, canonicalName string) ([]model.Lender, error) {
	m.approvedQueries = append(m.approvedQueries, canonicalName)
	if m.findApprovedFunc != nil {
		return m.findApprovedFunc(ctx, canonicalName)
	}
	return nil, nil
}

type mockReportCache struct {
	findFunc   func(ctx context.Context, pan string) (model.ReportCacheEntry, error)
	upsertFunc func(ctx context.Context, entry model.ReportCacheEntry) error
	upserted   []model.ReportCacheEntry
}

func (m *mockReportCache) Find(ctx context.Context, pan string) (model.ReportCacheEntry, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, pan)
	}
	return model.ReportCacheEntry{}, port.ErrNotFound
}

func (m *mockReportCache) Upsert(ctx context.Context, entry model.ReportCacheEntry) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, entry)
	}
	m.upserted = append(m.upserted, entry)
	return nil
}

type mockReportGenerator struct {
	generateFunc func(ctx context.Context, raw []byte) (json.RawMessage, error)
	calls        int
}

func (m *mockReportGenerator) Generate(ctx context.Context, raw []byte) (json.RawMessage, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, raw)
	}
	return json.RawMessage(`{"summary":"fresh"}`), nil
}

type mockArchive struct {
	puts []string
}

func (m *mockArchive) Put(_ context.Context, pan string, _ []byte) (string, error) {
	m.puts = append(m.puts, pan)
	return "s3://reports/" + pan, nil
}

// --- Fixtures ---

const primaryReport = `{"result": {"cibilScore": "781", "transID": "TXN-1",
  "reportJson": {"CCRResponse": {"CIRReportDataLst": [{"CIRReportData": {
    "IDAndContactInfo": {"EmailAddressInfo": [{"EmailAddress": "asha@example.com"}]},
    "RetailAccountDetails": [{"AccountNumber": "A1", "Institution": "HDFC", "Balance": "100000", "InstallmentAmount": "12,500"}]
  }}]}}}}`

const secondaryReport = `{"cibilData": {"GetCustomerAssetsResponse": {"GetCustomerAssetsSuccess": {"Asset": {"TrueLinkCreditReport": {
  "Borrower": {"CreditScore": {"riskScore": "702"}}
}}}}}}`

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validApplicant() dto.ApplicantDTO {
	return dto.ApplicantDTO{
		PAN:       "abcde1234f",
		FirstName: "Asha",
		LastName:  "Rao",
		DOB:       "12-05-1990",
		Phone:     "+91 98765 43210",
		State:     "Karnataka",
		Pincode:   "560001",
	}
}

func testIdentity() model.ApplicantIdentity {
	return model.NewApplicantIdentity(model.IdentityFields{
		PAN:       "ABCDE1234F",
		FirstName: "Asha",
		LastName:  "Rao",
		DOB:       "1990-05-12",
		Phone:     "9876543210",
		State:     "Karnataka",
	})
}

func testLenders() []model.Lender {
	return []model.Lender{
		{ID: "1", Name: "State Bank of India", HomeLoanROI: "8.50", Type: "Bank"},
		{ID: "2", Name: "HDFC Bank", HomeLoanROI: "8.70%"},
		{ID: "3", Name: "LIC Housing", HomeLoanROI: "8.35% - 9.10%"},
		{ID: "4", Name: "Tata Capital", HomeLoanROI: "not published"},
	}
}

func primarySuccess() model.BureauResult {
	return model.BureauSuccess(valueobject.ProviderKindPrimaryBureau, 781, []byte(primaryReport))
}

func newPipeline(primary *mockPrimaryBureau, secondary *mockSecondaryBureau, publisher *mockEventPublisher) *usecase.BureauPipeline {
	normalizer := service.NewProfileNormalizer(service.NewObligationExtractor())
	return usecase.NewBureauPipeline(primary, secondary, normalizer, publisher, nil, discardLogger())
}

func newMatcher(lenders *mockLenderRepository, records *mockCreditRecordRepository) *usecase.MatchLendersUseCase {
	ranking := service.NewLenderRankingEngine(service.DefaultRankingPolicy())
	return usecase.NewMatchLendersUseCase(lenders, records, ranking, discardLogger())
}

func newRecorder(lenders *mockLenderRepository, records *mockCreditRecordRepository) *usecase.ProfileRecorder {
	return usecase.NewProfileRecorder(newMatcher(lenders, records), records, nil, discardLogger())
}

// pendingSession returns a session waiting on the OTP, as stored after the
// initiate call.
func pendingSession(txn string) model.BureauSession {
	loan, _ := model.NewLoanRequest(decimal.NewFromInt(5000000), 20, "", "")
	s, err := model.NewBureauSession(txn, valueobject.ProviderKindPrimaryBureau, testIdentity(), loan, fixedNow)
	if err != nil {
		panic(err)
	}
	s, err = s.RequireOTP(usecase.MessageConsentOTPSent, fixedNow)
	if err != nil {
		panic(err)
	}
	return s
}

func pollingSession(txn string) model.BureauSession {
	s, err := pendingSession(txn).StartPolling(fixedNow)
	if err != nil {
		panic(err)
	}
	return s
}
