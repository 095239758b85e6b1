package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hitoshi/timesheet/internal/model"
)

// MemoryStore はプロセス内メモリに全エンティティを保持するStore実装。
// 全操作をひとつのミューテックスで直列化する。
// IDはエンティティ種別ごとに1から採番し、削除後も再利用しない。
type MemoryStore struct {
	mu sync.Mutex

	users    map[int64]model.User
	projects map[int64]model.Project
	entries  map[int64]model.TimeEntry

	nextUserID    int64
	nextProjectID int64
	nextEntryID   int64
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[int64]model.User),
		projects:      make(map[int64]model.Project),
		entries:       make(map[int64]model.TimeEntry),
		nextUserID:    1,
		nextProjectID: 1,
		nextEntryID:   1,
	}
}

// Users はユーザーリポジトリを返す。
func (s *MemoryStore) Users() UserRepository { return &memoryUserRepo{s: s} }

// Projects はプロジェクトリポジトリを返す。
func (s *MemoryStore) Projects() ProjectRepository { return &memoryProjectRepo{s: s} }

// TimeEntries は工数記録リポジトリを返す。
func (s *MemoryStore) TimeEntries() TimeEntryRepository { return &memoryTimeEntryRepo{s: s} }

// View はロックを保持したままfnを実行する。
// fnに渡すリポジトリはロックを取らないため、fnの中で元のMemoryStoreを使うとデッドロックする。
func (s *MemoryStore) View(ctx context.Context, fn func(Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(memoryView{s: s})
}

// memoryView はロック保持中のMemoryStoreを参照するリポジトリの組。
type memoryView struct {
	s *MemoryStore
}

func (v memoryView) Users() UserRepository { return &memoryUserRepo{s: v.s, held: true} }

func (v memoryView) Projects() ProjectRepository { return &memoryProjectRepo{s: v.s, held: true} }

func (v memoryView) TimeEntries() TimeEntryRepository {
	return &memoryTimeEntryRepo{s: v.s, held: true}
}

// lock はheldがfalseの場合にロックを取得し、解放関数を返す。
func (s *MemoryStore) lock(held bool) func() {
	if held {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Ping は常に成功する。
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close は何もしない。
func (s *MemoryStore) Close() error { return nil }

// --- users ---

type memoryUserRepo struct {
	s    *MemoryStore
	held bool
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	defer r.s.lock(r.held)()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (r *memoryUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	defer r.s.lock(r.held)()

	for _, u := range r.s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	defer r.s.lock(r.held)()

	for _, u := range r.s.users {
		if u.Username == in.Username {
			return nil, ErrDuplicateUsername
		}
	}

	id := r.s.nextUserID
	r.s.nextUserID++

	u := model.User{
		ID:         id,
		Username:   in.Username,
		Password:   in.Password,
		Name:       in.Name,
		Email:      in.Email,
		HourlyRate: cloneInt(in.HourlyRate),
	}
	r.s.users[id] = u
	return cloneUser(u), nil
}

// --- projects ---

type memoryProjectRepo struct {
	s    *MemoryStore
	held bool
}

func (r *memoryProjectRepo) FindByID(ctx context.Context, id int64) (*model.Project, error) {
	defer r.s.lock(r.held)()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, nil
	}
	return cloneProject(p), nil
}

func (r *memoryProjectRepo) List(ctx context.Context) ([]model.Project, error) {
	defer r.s.lock(r.held)()

	// IDは単調増加なのでID昇順が作成順になる
	result := make([]model.Project, 0, len(r.s.projects))
	for _, p := range r.s.projects {
		result = append(result, *cloneProject(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *memoryProjectRepo) Create(ctx context.Context, in model.ProjectInput) (*model.Project, error) {
	defer r.s.lock(r.held)()

	id := r.s.nextProjectID
	r.s.nextProjectID++

	p := projectFromInput(id, in)
	r.s.projects[id] = p
	return cloneProject(p), nil
}

func (r *memoryProjectRepo) Update(ctx context.Context, id int64, in model.ProjectInput) (*model.Project, error) {
	defer r.s.lock(r.held)()

	if _, ok := r.s.projects[id]; !ok {
		return nil, nil
	}
	p := projectFromInput(id, in)
	r.s.projects[id] = p
	return cloneProject(p), nil
}

func (r *memoryProjectRepo) Delete(ctx context.Context, id int64) (bool, error) {
	defer r.s.lock(r.held)()

	if _, ok := r.s.projects[id]; !ok {
		return false, nil
	}
	delete(r.s.projects, id)

	for entryID, e := range r.s.entries {
		if e.ProjectID == id {
			delete(r.s.entries, entryID)
		}
	}
	return true, nil
}

// --- time entries ---

type memoryTimeEntryRepo struct {
	s    *MemoryStore
	held bool
}

func (r *memoryTimeEntryRepo) FindByID(ctx context.Context, id int64) (*model.TimeEntry, error) {
	defer r.s.lock(r.held)()

	e, ok := r.s.entries[id]
	if !ok {
		return nil, nil
	}
	return cloneTimeEntry(e), nil
}

func (r *memoryTimeEntryRepo) List(ctx context.Context, filter TimeEntryFilter) ([]model.TimeEntry, error) {
	defer r.s.lock(r.held)()

	result := make([]model.TimeEntry, 0)
	for _, e := range r.s.entries {
		if !filter.matches(e) {
			continue
		}
		result = append(result, *cloneTimeEntry(e))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *memoryTimeEntryRepo) Create(ctx context.Context, in model.TimeEntryInput) (*model.TimeEntry, error) {
	defer r.s.lock(r.held)()

	id := r.s.nextEntryID
	r.s.nextEntryID++

	e := timeEntryFromInput(id, in)
	r.s.entries[id] = e
	return cloneTimeEntry(e), nil
}

func (r *memoryTimeEntryRepo) Update(ctx context.Context, id int64, in model.TimeEntryInput) (*model.TimeEntry, error) {
	defer r.s.lock(r.held)()

	if _, ok := r.s.entries[id]; !ok {
		return nil, nil
	}
	e := timeEntryFromInput(id, in)
	r.s.entries[id] = e
	return cloneTimeEntry(e), nil
}

func (r *memoryTimeEntryRepo) Delete(ctx context.Context, id int64) (bool, error) {
	defer r.s.lock(r.held)()

	if _, ok := r.s.entries[id]; !ok {
		return false, nil
	}
	delete(r.s.entries, id)
	return true, nil
}

// matches は工数記録がフィルタ条件をすべて満たすかを判定する。
func (f TimeEntryFilter) matches(e model.TimeEntry) bool {
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.ProjectID != nil && e.ProjectID != *f.ProjectID {
		return false
	}
	if f.StartDate != nil && e.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.Date.After(*f.EndDate) {
		return false
	}
	return true
}

// --- helpers ---

func projectFromInput(id int64, in model.ProjectInput) model.Project {
	return model.Project{
		ID:          id,
		Name:        in.Name,
		Description: cloneString(in.Description),
		Client:      cloneString(in.Client),
		Color:       in.Color,
		IsActive:    in.IsActive,
	}
}

func timeEntryFromInput(id int64, in model.TimeEntryInput) model.TimeEntry {
	return model.TimeEntry{
		ID:         id,
		ProjectID:  in.ProjectID,
		UserID:     in.UserID,
		Task:       in.Task,
		Date:       in.Date.UTC(),
		Duration:   in.Duration,
		Notes:      cloneString(in.Notes),
		IsBillable: in.IsBillable,
	}
}

func cloneUser(u model.User) *model.User {
	u.HourlyRate = cloneInt(u.HourlyRate)
	return &u
}

func cloneProject(p model.Project) *model.Project {
	p.Description = cloneString(p.Description)
	p.Client = cloneString(p.Client)
	return &p
}

func cloneTimeEntry(e model.TimeEntry) *model.TimeEntry {
	e.Notes = cloneString(e.Notes)
	return &e
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// compile-time interface check
var (
	_ Store               = (*MemoryStore)(nil)
	_ UserRepository      = (*memoryUserRepo)(nil)
	_ ProjectRepository   = (*memoryProjectRepo)(nil)
	_ TimeEntryRepository = (*memoryTimeEntryRepo)(nil)
)
