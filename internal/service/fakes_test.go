package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/repository"
	"github.com/pitcharena/pitcharena-api/pkg/payments"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// In-memory repository fakes shared across the service tests.

type memCompetitionRepo struct {
	mu           sync.Mutex
	nextID       uint
	competitions map[uint]models.Competition
}

func newMemCompetitionRepo() *memCompetitionRepo {
	return &memCompetitionRepo{nextID: 1, competitions: make(map[uint]models.Competition)}
}

func (r *memCompetitionRepo) List(_ context.Context, filter repository.CompetitionFilter) ([]models.Competition, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]models.Competition, 0, len(r.competitions))
	for _, competition := range r.competitions {
		if filter.Status != "" && competition.Status != filter.Status {
			continue
		}
		if filter.Domain != "" && competition.Domain != filter.Domain {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(competition.Title), strings.ToLower(filter.Search)) {
			continue
		}
		matches = append(matches, competition)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, int64(len(matches)), nil
}

func (r *memCompetitionRepo) GetByID(_ context.Context, id uint) (models.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	competition, ok := r.competitions[id]
	if !ok {
		return models.Competition{}, gorm.ErrRecordNotFound
	}
	return competition, nil
}

func (r *memCompetitionRepo) GetBySlug(_ context.Context, slug string) (models.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, competition := range r.competitions {
		if competition.Slug == slug {
			return competition, nil
		}
	}
	return models.Competition{}, gorm.ErrRecordNotFound
}

func (r *memCompetitionRepo) Create(_ context.Context, competition *models.Competition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	competition.ID = r.nextID
	r.nextID++
	r.competitions[competition.ID] = *competition
	return nil
}

func (r *memCompetitionRepo) Update(_ context.Context, competition *models.Competition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.competitions[competition.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.competitions[competition.ID] = *competition
	return nil
}

func (r *memCompetitionRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.competitions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.competitions, id)
	return nil
}

func (r *memCompetitionRepo) ListDueForStatus(_ context.Context, status, field string, before time.Time) ([]models.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []models.Competition
	for _, competition := range r.competitions {
		if competition.Status != status {
			continue
		}
		when := competition.Deadline
		if field == "open_date" {
			when = competition.OpenDate
		}
		if !when.After(before) {
			due = append(due, competition)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

type memSubmissionRepo struct {
	mu          sync.Mutex
	nextID      uint
	submissions map[uint]models.Submission
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{nextID: 1, submissions: make(map[uint]models.Submission)}
}

func (r *memSubmissionRepo) GetByID(_ context.Context, id uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (r *memSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission.ID = r.nextID
	r.nextID++
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *memSubmissionRepo) Update(_ context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *memSubmissionRepo) ListByCompetition(_ context.Context, competitionID uint, statuses []string) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		allowed[status] = true
	}
	var matches []models.Submission
	for _, submission := range r.submissions {
		if submission.CompetitionID != competitionID {
			continue
		}
		if len(statuses) > 0 && !allowed[submission.Status] {
			continue
		}
		matches = append(matches, submission)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r *memSubmissionRepo) ListByUser(_ context.Context, userID uint) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []models.Submission
	for _, submission := range r.submissions {
		if submission.UserID == userID {
			matches = append(matches, submission)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r *memSubmissionRepo) ListByIDs(_ context.Context, ids []uint) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []models.Submission
	for _, id := range ids {
		if submission, ok := r.submissions[id]; ok {
			matches = append(matches, submission)
		}
	}
	return matches, nil
}

func (r *memSubmissionRepo) CountByCompetition(_ context.Context, competitionID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, submission := range r.submissions {
		if submission.CompetitionID == competitionID {
			total++
		}
	}
	return total, nil
}

func (r *memSubmissionRepo) CountByCompetitionAndStatus(_ context.Context, competitionID uint, status string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, submission := range r.submissions {
		if submission.CompetitionID == competitionID && submission.Status == status {
			total++
		}
	}
	return total, nil
}

func (r *memSubmissionRepo) UpdateStatuses(_ context.Context, ids []uint, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if submission, ok := r.submissions[id]; ok {
			submission.Status = status
			r.submissions[id] = submission
		}
	}
	return nil
}

type memAssignmentRepo struct {
	mu          sync.Mutex
	nextID      uint
	assignments map[uint]models.JudgeAssignment
	submissions *memSubmissionRepo
}

func newMemAssignmentRepo(submissions *memSubmissionRepo) *memAssignmentRepo {
	return &memAssignmentRepo{nextID: 1, assignments: make(map[uint]models.JudgeAssignment), submissions: submissions}
}

func (r *memAssignmentRepo) GetByID(_ context.Context, id uint) (models.JudgeAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[id]
	if !ok {
		return models.JudgeAssignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (r *memAssignmentRepo) GetByJudgeAndSubmission(_ context.Context, judgeID, submissionID uint) (models.JudgeAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, assignment := range r.assignments {
		if assignment.JudgeID == judgeID && assignment.SubmissionID == submissionID {
			return assignment, nil
		}
	}
	return models.JudgeAssignment{}, gorm.ErrRecordNotFound
}

func (r *memAssignmentRepo) competitionOf(submissionID uint) uint {
	if submission, ok := r.submissions.submissions[submissionID]; ok {
		return submission.CompetitionID
	}
	return 0
}

func (r *memAssignmentRepo) ListByCompetition(_ context.Context, competitionID uint) ([]models.JudgeAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []models.JudgeAssignment
	for _, assignment := range r.assignments {
		if r.competitionOf(assignment.SubmissionID) == competitionID {
			matches = append(matches, assignment)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r *memAssignmentRepo) ListByJudge(_ context.Context, judgeID uint) ([]models.JudgeAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []models.JudgeAssignment
	for _, assignment := range r.assignments {
		if assignment.JudgeID == judgeID {
			matches = append(matches, assignment)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r *memAssignmentRepo) Update(_ context.Context, assignment *models.JudgeAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.assignments[assignment.ID] = *assignment
	return nil
}

func (r *memAssignmentRepo) CreateBatch(_ context.Context, assignments []models.JudgeAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range assignments {
		assignments[i].ID = r.nextID
		r.nextID++
		r.assignments[assignments[i].ID] = assignments[i]
	}
	return nil
}

func (r *memAssignmentRepo) ReplaceForCompetition(ctx context.Context, competitionID uint, assignments []models.JudgeAssignment) error {
	r.mu.Lock()
	for id, assignment := range r.assignments {
		if r.competitionOf(assignment.SubmissionID) == competitionID {
			delete(r.assignments, id)
		}
	}
	r.mu.Unlock()
	return r.CreateBatch(ctx, assignments)
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[uint]models.User
}

func newMemUserRepo(users ...models.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[uint]models.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *memUserRepo) GetByID(_ context.Context, id uint) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *memUserRepo) ListByIDs(_ context.Context, ids []uint) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []models.User
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			matches = append(matches, user)
		}
	}
	return matches, nil
}

func (r *memUserRepo) ListByRole(_ context.Context, role string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []models.User
	for _, user := range r.users {
		if user.Role == role {
			matches = append(matches, user)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r *memUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

type memPaymentRepo struct {
	mu       sync.Mutex
	nextID   uint
	payments map[uint]models.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{nextID: 1, payments: make(map[uint]models.Payment)}
}

func (r *memPaymentRepo) Create(_ context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment.ID = r.nextID
	r.nextID++
	r.payments[payment.ID] = *payment
	return nil
}

func (r *memPaymentRepo) ListPayoutsByCompetition(_ context.Context, competitionID uint) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []models.Payment
	for _, payment := range r.payments {
		if payment.CompetitionID == competitionID && payment.Type == models.PaymentTypePrizePayout {
			matches = append(matches, payment)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r *memPaymentRepo) GetPayoutBySubmission(_ context.Context, submissionID uint) (models.Payment, error) {
	return r.getBySubmissionAndType(submissionID, models.PaymentTypePrizePayout)
}

func (r *memPaymentRepo) GetEntryFeeBySubmission(_ context.Context, submissionID uint) (models.Payment, error) {
	return r.getBySubmissionAndType(submissionID, models.PaymentTypeEntryFee)
}

func (r *memPaymentRepo) getBySubmissionAndType(submissionID uint, paymentType string) (models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.Payment
	for _, payment := range r.payments {
		payment := payment
		if payment.SubmissionID != nil && *payment.SubmissionID == submissionID && payment.Type == paymentType {
			if found == nil || payment.ID > found.ID {
				found = &payment
			}
		}
	}
	if found == nil {
		return models.Payment{}, gorm.ErrRecordNotFound
	}
	return *found, nil
}

// Collaborator fakes.

type fakeEvents struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeEvents) Publish(subject string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeEvents) published(subject string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

type fakeCache struct {
	mu           sync.Mutex
	store        map[uint]dto.LeaderboardResponse
	invalidation int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[uint]dto.LeaderboardResponse)}
}

func (f *fakeCache) Get(_ context.Context, competitionID uint) (dto.LeaderboardResponse, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	response, ok := f.store[competitionID]
	return response, ok
}

func (f *fakeCache) Set(_ context.Context, competitionID uint, response dto.LeaderboardResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[competitionID] = response
}

func (f *fakeCache) Invalidate(_ context.Context, competitionID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.store, competitionID)
	f.invalidation++
}

type fakeProcessor struct {
	mu        sync.Mutex
	requests  []payments.TransferRequest
	charges   []payments.ChargeRequest
	failFor   map[string]error
	chargeErr error
	notReady  map[string]bool
}

func (f *fakeProcessor) Transfer(_ context.Context, req payments.TransferRequest) (payments.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err, ok := f.failFor[req.AccountID]; ok {
		return payments.TransferResult{}, err
	}
	return payments.TransferResult{TransferID: "tr_" + req.IdempotencyKey, Status: "completed"}, nil
}

func (f *fakeProcessor) Charge(_ context.Context, req payments.ChargeRequest) (payments.ChargeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges = append(f.charges, req)
	if f.chargeErr != nil {
		return payments.ChargeResult{}, f.chargeErr
	}
	return payments.ChargeResult{ChargeID: "ch_" + req.IdempotencyKey, Status: "succeeded"}, nil
}

func (f *fakeProcessor) Account(_ context.Context, accountID string) (payments.AccountStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return payments.AccountStatus{
		AccountID:          accountID,
		OnboardingComplete: true,
		PayoutsEnabled:     !f.notReady[accountID],
	}, nil
}

type fakeStorage struct {
	presigned []string
	signed    []string
}

func (f *fakeStorage) PresignUpload(_ context.Context, key, _ string) (string, time.Time, error) {
	f.presigned = append(f.presigned, key)
	return "https://uploads.test/" + key, time.Now().Add(15 * time.Minute), nil
}

func (f *fakeStorage) PresignDownload(_ context.Context, key string) (string, error) {
	f.signed = append(f.signed, key)
	return "https://downloads.test/" + key, nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeUploader struct {
	uploads int
}

func (f *fakeUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	f.uploads++
	return "https://images.test/" + name, nil
}
