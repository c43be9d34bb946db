package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"electivas/internal/model"
	"electivas/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the database. Transactions run concurrently:
// ForUpdate reads take a row lock held until the transaction ends, and writes are
// journaled so a failed transaction undoes only its own changes.
type memStore struct {
	mu sync.Mutex

	rowLocks  map[uuid.UUID]*sync.Mutex
	periods   map[uuid.UUID]model.AcademicPeriod
	electives map[uuid.UUID]model.Elective
	programs  map[uuid.UUID]model.Program
	users     map[uuid.UUID]model.User
	quotas    map[uuid.UUID]model.ProgramQuota
	requests  map[uuid.UUID]model.EnrollmentRequest
	audits    []model.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		rowLocks:  map[uuid.UUID]*sync.Mutex{},
		periods:   map[uuid.UUID]model.AcademicPeriod{},
		electives: map[uuid.UUID]model.Elective{},
		programs:  map[uuid.UUID]model.Program{},
		users:     map[uuid.UUID]model.User{},
		quotas:    map[uuid.UUID]model.ProgramQuota{},
		requests:  map[uuid.UUID]model.EnrollmentRequest{},
	}
}

// --- transactions ---

type memTxKey struct{}

// memTx is the state of one fake transaction. It is only touched by the goroutine running it.
type memTx struct {
	held map[uuid.UUID]*sync.Mutex
	undo []func()
}

func txOf(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

type memTxManager struct {
	store *memStore
}

func (m *memTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if txOf(ctx) != nil {
		return fn(ctx)
	}
	tx := &memTx{held: map[uuid.UUID]*sync.Mutex{}}
	defer func() {
		for _, l := range tx.held {
			l.Unlock()
		}
	}()

	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		m.store.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		m.store.mu.Unlock()
		return err
	}
	return nil
}

// lockRow blocks until the row lock for id is free, then holds it until the transaction in ctx ends.
// Outside a transaction it is a no-op, like SELECT ... FOR UPDATE under autocommit.
func (s *memStore) lockRow(ctx context.Context, id uuid.UUID) {
	tx := txOf(ctx)
	if tx == nil {
		return
	}
	if _, ok := tx.held[id]; ok {
		return
	}
	s.mu.Lock()
	l, ok := s.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	tx.held[id] = l
}

// journal records how to restore m[id] if the transaction in ctx fails. Callers hold s.mu.
func journal[V any](ctx context.Context, m map[uuid.UUID]V, id uuid.UUID) {
	tx := txOf(ctx)
	if tx == nil {
		return
	}
	prev, existed := m[id]
	tx.undo = append(tx.undo, func() {
		if existed {
			m[id] = prev
		} else {
			delete(m, id)
		}
	})
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

// --- periods ---

type memPeriodRepo struct{ s *memStore }

func (r *memPeriodRepo) Create(ctx context.Context, p *model.AcademicPeriod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	journal(ctx, r.s.periods, p.ID)
	r.s.periods[p.ID] = *p
	return nil
}

func (r *memPeriodRepo) Update(ctx context.Context, p *model.AcademicPeriod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	journal(ctx, r.s.periods, p.ID)
	r.s.periods[p.ID] = *p
	return nil
}

func (r *memPeriodRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	journal(ctx, r.s.periods, id)
	delete(r.s.periods, id)
	return nil
}

func (r *memPeriodRepo) FindByID(_ context.Context, id uuid.UUID) (*model.AcademicPeriod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.periods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *memPeriodRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.AcademicPeriod, error) {
	r.s.lockRow(ctx, id)
	return r.FindByID(ctx, id)
}

func (r *memPeriodRepo) FindCurrent(_ context.Context) (*model.AcademicPeriod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *model.AcademicPeriod
	for _, p := range r.s.periods {
		p := p
		if !p.Active || p.State != model.PeriodInscripcion {
			continue
		}
		if best == nil || p.Start().After(best.Start()) {
			best = &p
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

func (r *memPeriodRepo) List(_ context.Context) ([]model.AcademicPeriod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.AcademicPeriod, 0, len(r.s.periods))
	for _, p := range r.s.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		return out[i].Start().After(out[j].Start())
	})
	return out, nil
}

func (r *memPeriodRepo) ExistsActiveByName(_ context.Context, name string, excludeID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.periods {
		if p.Active && p.Name == name && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPeriodRepo) CountActiveInStates(_ context.Context, states []model.PeriodState, excludeID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.periods {
		if !p.Active || p.ID == excludeID {
			continue
		}
		for _, st := range states {
			if p.State == st {
				n++
			}
		}
	}
	return n, nil
}

func (r *memPeriodRepo) LockLifecycle(context.Context) error { return nil }

// --- electives ---

type memElectiveRepo struct{ s *memStore }

func (r *memElectiveRepo) Create(ctx context.Context, e *model.Elective) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.electives {
		if existing.Name == e.Name {
			return uniqueViolation("idx_electives_name")
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	journal(ctx, r.s.electives, e.ID)
	r.s.electives[e.ID] = *e
	return nil
}

func (r *memElectiveRepo) Update(ctx context.Context, e *model.Elective) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	journal(ctx, r.s.electives, e.ID)
	r.s.electives[e.ID] = *e
	return nil
}

func (r *memElectiveRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Elective, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.electives[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *memElectiveRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Elective, error) {
	r.s.lockRow(ctx, id)
	return r.FindByID(ctx, id)
}

func (r *memElectiveRepo) FindByName(_ context.Context, name string) (*model.Elective, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.electives {
		if e.Name == name {
			e := e
			return &e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memElectiveRepo) List(_ context.Context, state model.ElectiveState, page, limit int) ([]model.Elective, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []model.Elective
	for _, e := range r.s.electives {
		if state == "" || e.State == state {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *memElectiveRepo) CountByState(_ context.Context, state model.ElectiveState) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, e := range r.s.electives {
		if e.State == state {
			n++
		}
	}
	return n, nil
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// --- directory ---

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if u.ProgramID != nil {
		if p, ok := r.s.programs[*u.ProgramID]; ok {
			u.Program = &p
		}
	}
	return &u, nil
}

type memProgramRepo struct{ s *memStore }

func (r *memProgramRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Program, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.programs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

// --- quotas ---

type memQuotaRepo struct{ s *memStore }

func (r *memQuotaRepo) Save(ctx context.Context, q *model.ProgramQuota) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
		q.CreatedAt = time.Now()
	}
	journal(ctx, r.s.quotas, q.ID)
	stored := *q
	stored.Program = nil
	r.s.quotas[q.ID] = stored
	return nil
}

func (r *memQuotaRepo) FindByElectiveAndProgram(_ context.Context, electiveID, programID uuid.UUID) (*model.ProgramQuota, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, q := range r.s.quotas {
		if q.ElectiveID == electiveID && q.ProgramID == programID {
			q := q
			return &q, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memQuotaRepo) FindByElectiveAndProgramForUpdate(ctx context.Context, electiveID, programID uuid.UUID) (*model.ProgramQuota, error) {
	q, err := r.FindByElectiveAndProgram(ctx, electiveID, programID)
	if err != nil {
		return nil, err
	}
	r.s.lockRow(ctx, q.ID)
	// re-read so the caller sees the row as of lock acquisition
	return r.FindByElectiveAndProgram(ctx, electiveID, programID)
}

func (r *memQuotaRepo) ListByElective(_ context.Context, electiveID uuid.UUID) ([]model.ProgramQuota, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ProgramQuota
	for _, q := range r.s.quotas {
		if q.ElectiveID != electiveID {
			continue
		}
		if p, ok := r.s.programs[q.ProgramID]; ok {
			q.Program = &p
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memQuotaRepo) programOf(studentID uuid.UUID) *uuid.UUID {
	if u, ok := r.s.users[studentID]; ok {
		return u.ProgramID
	}
	return nil
}

func (r *memQuotaRepo) CountOccupied(_ context.Context, electiveID, programID uuid.UUID, states []model.RequestState) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, req := range r.s.requests {
		pid := r.programOf(req.StudentID)
		if req.ElectiveID == electiveID && pid != nil && *pid == programID && hasState(states, req.State) {
			n++
		}
	}
	return n, nil
}

func (r *memQuotaRepo) CountOccupiedByProgram(_ context.Context, electiveID uuid.UUID, states []model.RequestState) ([]repository.ProgramOccupancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[uuid.UUID]int64{}
	for _, req := range r.s.requests {
		pid := r.programOf(req.StudentID)
		if req.ElectiveID == electiveID && pid != nil && hasState(states, req.State) {
			counts[*pid]++
		}
	}
	out := make([]repository.ProgramOccupancy, 0, len(counts))
	for pid, n := range counts {
		out = append(out, repository.ProgramOccupancy{ProgramID: pid, Occupied: n})
	}
	return out, nil
}

func hasState(states []model.RequestState, st model.RequestState) bool {
	for _, s := range states {
		if s == st {
			return true
		}
	}
	return false
}

// --- enrollment requests ---

type memEnrollmentRepo struct {
	s *memStore
	// createErr, when set, is returned by the next Create.
	createErr error
	// beforeCreate, when set, runs at the start of every Create.
	beforeCreate func()
}

func (r *memEnrollmentRepo) Create(ctx context.Context, req *model.EnrollmentRequest) error {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return err
	}
	for _, existing := range r.s.requests {
		if existing.StudentID != req.StudentID {
			continue
		}
		if existing.ElectiveID == req.ElectiveID {
			return uniqueViolation(model.IndexStudentElective)
		}
		if existing.Priority == req.Priority {
			return uniqueViolation(model.IndexStudentPriority)
		}
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	journal(ctx, r.s.requests, req.ID)
	stored := *req
	stored.Elective, stored.Student = nil, nil
	r.s.requests[req.ID] = stored
	return nil
}

func (r *memEnrollmentRepo) Update(ctx context.Context, req *model.EnrollmentRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	journal(ctx, r.s.requests, req.ID)
	stored := *req
	stored.Elective, stored.Student = nil, nil
	r.s.requests[req.ID] = stored
	return nil
}

func (r *memEnrollmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	journal(ctx, r.s.requests, id)
	delete(r.s.requests, id)
	return nil
}

func (r *memEnrollmentRepo) FindByID(_ context.Context, id uuid.UUID) (*model.EnrollmentRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if e, ok := r.s.electives[req.ElectiveID]; ok {
		req.Elective = &e
	}
	return &req, nil
}

func (r *memEnrollmentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.EnrollmentRequest, error) {
	r.s.lockRow(ctx, id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r *memEnrollmentRepo) ExistsForStudentElective(_ context.Context, studentID, electiveID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.requests {
		if req.StudentID == studentID && req.ElectiveID == electiveID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memEnrollmentRepo) PriorityTaken(_ context.Context, studentID uuid.UUID, priority int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.requests {
		if req.StudentID == studentID && req.Priority == priority {
			return true, nil
		}
	}
	return false, nil
}

func (r *memEnrollmentRepo) ListByStudent(_ context.Context, studentID uuid.UUID) ([]model.EnrollmentRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.EnrollmentRequest
	for _, req := range r.s.requests {
		if req.StudentID != studentID {
			continue
		}
		if e, ok := r.s.electives[req.ElectiveID]; ok {
			req.Elective = &e
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (r *memEnrollmentRepo) ListByElective(_ context.Context, electiveID uuid.UUID, state model.RequestState, page, limit int) ([]model.EnrollmentRequest, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.EnrollmentRequest
	for _, req := range r.s.requests {
		if req.ElectiveID != electiveID || (state != "" && req.State != state) {
			continue
		}
		if u, ok := r.s.users[req.StudentID]; ok {
			if u.ProgramID != nil {
				if p, ok := r.s.programs[*u.ProgramID]; ok {
					u.Program = &p
				}
			}
			req.Student = &u
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return paginate(out, page, limit), int64(len(out)), nil
}

// --- audit ---

type memAuditRepo struct{ s *memStore }

func (r *memAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.s.audits = append(r.s.audits, *entry)
	if tx := txOf(ctx); tx != nil {
		id := entry.ID
		tx.undo = append(tx.undo, func() {
			for i, a := range r.s.audits {
				if a.ID == id {
					r.s.audits = append(r.s.audits[:i], r.s.audits[i+1:]...)
					return
				}
			}
		})
	}
	return nil
}

func (r *memAuditRepo) List(_ context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.AuditLog
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		a := r.s.audits[i]
		if filter.Action != "" && a.Action != filter.Action {
			continue
		}
		if filter.EntityID != "" && a.EntityID != filter.EntityID {
			continue
		}
		out = append(out, a)
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

// --- notifier ---

type publishedEvent struct {
	Event string
	Data  interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{Event: event, Data: data})
}

func (n *recordingNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Event == event {
			c++
		}
	}
	return c
}
