package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paathshala/backend/internal/app/models"
	"github.com/paathshala/backend/internal/pkg/apperrors"
	"github.com/paathshala/backend/internal/pkg/ratelimit"
)

// In-memory repository fakes for service tests. They mirror the behavior
// of the pgx implementations closely enough for flow-level assertions.

type fakeUserRepo struct {
	users       map[string]*models.User
	memberships []*models.UserSchool
	lookups     int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetActiveByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	f.lookups++
	for _, u := range f.users {
		if !u.IsActive {
			continue
		}
		if (u.Mobile != nil && *u.Mobile == identifier) || (u.Email != nil && *u.Email == identifier) {
			return u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, userID string) error {
	if u, ok := f.users[userID]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (f *fakeUserRepo) GetUserSchools(_ context.Context, userID string) ([]*models.UserSchool, error) {
	var out []*models.UserSchool
	for _, m := range f.memberships {
		if m.UserID == userID && m.IsActive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) HasActiveEnrollment(_ context.Context, userID, schoolID string) (bool, error) {
	for _, m := range f.memberships {
		if m.UserID == userID && m.SchoolID == schoolID && m.IsActive {
			return true, nil
		}
	}
	return false, nil
}

type fakeSchoolRepo struct {
	schools map[string]*models.School
}

func newFakeSchoolRepo() *fakeSchoolRepo {
	return &fakeSchoolRepo{schools: make(map[string]*models.School)}
}

func (f *fakeSchoolRepo) GetByID(_ context.Context, id string) (*models.School, error) {
	if s, ok := f.schools[id]; ok {
		return s, nil
	}
	return nil, apperrors.ErrSchoolNotFound
}

func (f *fakeSchoolRepo) Create(_ context.Context, school *models.School) error {
	f.schools[school.ID] = school
	return nil
}

func (f *fakeSchoolRepo) UpdateStatus(_ context.Context, id string, status models.SchoolStatus) error {
	s, ok := f.schools[id]
	if !ok {
		return apperrors.ErrSchoolNotFound
	}
	s.Status = status
	return nil
}

type fakeStudentRepo struct {
	children map[string][]*models.Student // keyed by parentUserID + "/" + schoolID
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{children: make(map[string][]*models.Student)}
}

func (f *fakeStudentRepo) link(parentUserID, schoolID string, student *models.Student) {
	key := parentUserID + "/" + schoolID
	f.children[key] = append(f.children[key], student)
}

func (f *fakeStudentRepo) GetChildren(_ context.Context, parentUserID, schoolID string) ([]*models.Student, error) {
	return f.children[parentUserID+"/"+schoolID], nil
}

func (f *fakeStudentRepo) IsLinkedChild(_ context.Context, parentUserID, studentID, schoolID string) (bool, error) {
	for _, c := range f.children[parentUserID+"/"+schoolID] {
		if c.ID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) GetByID(_ context.Context, id string) (*models.Student, error) {
	for _, list := range f.children {
		for _, c := range list {
			if c.ID == id {
				return c, nil
			}
		}
	}
	return nil, apperrors.ErrUserNotFound
}

type fakeOTPRepo struct {
	records map[string]*models.OTP // keyed by record id
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{records: make(map[string]*models.OTP)}
}

func (f *fakeOTPRepo) Create(_ context.Context, identifier, codeHash string, expiresAt time.Time) (*models.OTP, error) {
	for _, r := range f.records {
		if r.Identifier == identifier && !r.Used {
			r.Used = true
		}
	}
	record := &models.OTP{
		ID:         uuid.New().String(),
		Identifier: identifier,
		CodeHash:   codeHash,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now(),
	}
	f.records[record.ID] = record
	return record, nil
}

func (f *fakeOTPRepo) GetLive(_ context.Context, identifier string) (*models.OTP, error) {
	var latest *models.OTP
	for _, r := range f.records {
		if r.Identifier != identifier || r.Used {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (f *fakeOTPRepo) IncrementAttempts(_ context.Context, id string) (int, error) {
	r := f.records[id]
	r.Attempts++
	return r.Attempts, nil
}

func (f *fakeOTPRepo) MarkUsed(_ context.Context, id string) error {
	f.records[id].Used = true
	return nil
}

func (f *fakeOTPRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for id, r := range f.records {
		if r.ExpiresAt.Before(before) {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

type fakeSessionRepo struct {
	sessions map[string]*models.AuthSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.AuthSession)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *models.AuthSession) error {
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (*models.AuthSession, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, apperrors.ErrSessionNotFound
}

func (f *fakeSessionRepo) UpdateContext(_ context.Context, id, schoolID string, studentID *string) error {
	s, ok := f.sessions[id]
	if !ok || s.RevokedAt != nil {
		return apperrors.ErrSessionNotFound
	}
	s.ActiveSchoolID = schoolID
	s.ActiveStudentID = studentID
	s.UpdatedAt = time.Now()
	return nil
}

func (f *fakeSessionRepo) Revoke(_ context.Context, id string) error {
	s, ok := f.sessions[id]
	if !ok || s.RevokedAt != nil {
		return apperrors.ErrSessionNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (f *fakeSessionRepo) RevokeAllForUser(_ context.Context, userID string) error {
	now := time.Now()
	for _, s := range f.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for id, s := range f.sessions {
		if s.ExpiresAt.Before(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListBySchool(_ context.Context, schoolID string, page, size int) ([]models.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AuditLog
	for _, e := range f.entries {
		if e.SchoolID != nil && *e.SchoolID == schoolID {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

// lastAction returns the most recent audit action recorded, empty when none
func (f *fakeAuditRepo) lastAction() models.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return ""
	}
	return f.entries[len(f.entries)-1].Action
}

func (f *fakeAuditRepo) countAction(action models.AuditAction) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

type fakeBlockStore struct {
	mu     sync.Mutex
	blocks map[string]*ratelimit.BlockInfo
}

func newFakeBlockStore() *fakeBlockStore {
	return &fakeBlockStore{blocks: make(map[string]*ratelimit.BlockInfo)}
}

func (f *fakeBlockStore) Upsert(_ context.Context, identifier, reason string, expiresAt time.Time) (*ratelimit.BlockInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.blocks[identifier]
	if ok && info.ExpiresAt.After(time.Now()) {
		info.Attempts++
		info.ExpiresAt = expiresAt
	} else {
		info = &ratelimit.BlockInfo{Identifier: identifier, Reason: reason, Attempts: 1, ExpiresAt: expiresAt}
		f.blocks[identifier] = info
	}
	info.IsActive = true
	return info, nil
}

func (f *fakeBlockStore) Get(_ context.Context, identifier string) (*ratelimit.BlockInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.blocks[identifier]
	if !ok {
		return nil, nil
	}
	info.IsActive = info.ExpiresAt.After(time.Now())
	return info, nil
}

func (f *fakeBlockStore) Delete(_ context.Context, identifier string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blocks[identifier]
	delete(f.blocks, identifier)
	return ok, nil
}

// countingStore wraps a ratelimit.Store and records Increment calls per key
type countingStore struct {
	ratelimit.Store
	mu         sync.Mutex
	increments map[string]int
}

func newCountingStore(inner ratelimit.Store) *countingStore {
	return &countingStore{Store: inner, increments: make(map[string]int)}
}

func (c *countingStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	c.increments[key]++
	c.mu.Unlock()
	return c.Store.Increment(ctx, key, ttl)
}

func (c *countingStore) incrementsFor(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, count := range c.increments {
		if strings.Contains(key, substr) {
			n += count
		}
	}
	return n
}

// captureNotifier records delivered codes instead of sending them
type captureNotifier struct {
	identifiers []string
	codes       []string
}

func (c *captureNotifier) SendOTP(identifier, code string, _ time.Time) error {
	c.identifiers = append(c.identifiers, identifier)
	c.codes = append(c.codes, code)
	return nil
}
