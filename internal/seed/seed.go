// Package seed はデモ用のサンプルデータ投入を提供する。
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/timesheet/internal/model"
	"github.com/hitoshi/timesheet/internal/repository"
)

// DemoUserID はサンプル工数記録の所有者となるユーザーID。
const DemoUserID int64 = 1

// MemberUserID はadmin権限を持たない一般ユーザーのID。
// 開発用認証のuserロールはこのユーザーとして扱われる。
const MemberUserID int64 = 2

// demoHourlyRate はデモユーザーの時間単価。
const demoHourlyRate = 150

var demoUser = model.UserInput{
	Username: "demo",
	Password: "password",
	Name:     "Alex Johnson",
	Email:    "alex@electricmind.co",
}

var memberUser = model.UserInput{
	Username: "user",
	Password: "password",
	Name:     "Regular User",
	Email:    "user@mock.com",
}

type sampleProject struct {
	name, description, client, color string
}

var sampleProjects = []sampleProject{
	{"Website Redesign", "Complete redesign of corporate website", "Acme Corp", "#10b981"},
	{"Mobile App Development", "iOS and Android app development", "TechStart", "#3b82f6"},
	{"SEO Optimization", "Search engine optimization campaign", "GrowthX", "#8b5cf6"},
	{"Content Creation", "Blog and social media content", "MediaPulse", "#f59e0b"},
}

// sampleEntry のprojectIndexはsampleProjectsの添字、daysAgoは基準時刻からの日数。
type sampleEntry struct {
	projectIndex int
	task         string
	daysAgo      int
	duration     int
	notes        string
}

var sampleEntries = []sampleEntry{
	{0, "Frontend Development", 0, 135, "Working on responsive design"},
	{1, "API Integration", 0, 105, "Connecting to payment API"},
	{2, "Keyword Research", 1, 190, "Analyzing competitor keywords"},
	{0, "UI Components", 2, 240, "Building reusable UI components"},
	{1, "Bug Fixing", 3, 300, "Resolving critical bugs"},
}

// Result は1回の投入で作成した件数。
type Result struct {
	Users       int
	Projects    int
	TimeEntries int
}

// Seeder は空のストアにサンプルデータを投入する。
// 各コレクションは空の場合にのみ投入するため、何度実行してもよい。
type Seeder struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewSeeder はSeederを生成する。loggerがnilの場合はslog.Default()を使う。
func NewSeeder(store repository.Store, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{store: store, logger: logger, now: time.Now}
}

// Run はユーザー・プロジェクト・工数記録の順に投入する。
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result

	rate := demoHourlyRate
	demo := demoUser
	demo.HourlyRate = &rate

	for _, u := range []struct {
		id int64
		in model.UserInput
	}{
		{DemoUserID, demo},
		{MemberUserID, memberUser},
	} {
		created, err := s.seedUser(ctx, u.id, u.in)
		if err != nil {
			return res, err
		}
		if created {
			res.Users++
		}
	}

	projects, n, err := s.seedProjects(ctx)
	if err != nil {
		return res, err
	}
	res.Projects = n

	n, err = s.seedTimeEntries(ctx, projects)
	if err != nil {
		return res, err
	}
	res.TimeEntries = n

	s.logger.Info("sample data seeded",
		slog.Int("users", res.Users),
		slog.Int("projects", res.Projects),
		slog.Int("time_entries", res.TimeEntries),
	)
	return res, nil
}

// seedUser は指定IDのユーザーが存在しなければ作成する。
func (s *Seeder) seedUser(ctx context.Context, id int64, in model.UserInput) (bool, error) {
	existing, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to find user %q: %w", in.Username, err)
	}
	if existing != nil {
		return false, nil
	}

	u, err := s.store.Users().Create(ctx, in)
	if err != nil {
		return false, fmt.Errorf("failed to create user %q: %w", in.Username, err)
	}
	if u.ID != id {
		s.logger.Warn("seeded user got an unexpected id",
			slog.String("username", u.Username),
			slog.Int64("want_id", id),
			slog.Int64("got_id", u.ID),
		)
	}
	return true, nil
}

// seedProjects はプロジェクトが1件もなければ作成し、
// 工数記録の参照先として使うプロジェクト一覧を返す。
func (s *Seeder) seedProjects(ctx context.Context) ([]model.Project, int, error) {
	projects, err := s.store.Projects().List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) > 0 {
		return projects, 0, nil
	}

	for _, sp := range sampleProjects {
		description, client := sp.description, sp.client
		p, err := s.store.Projects().Create(ctx, model.ProjectInput{
			Name:        sp.name,
			Description: &description,
			Client:      &client,
			Color:       sp.color,
			IsActive:    true,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create project %q: %w", sp.name, err)
		}
		projects = append(projects, *p)
	}
	return projects, len(sampleProjects), nil
}

func (s *Seeder) seedTimeEntries(ctx context.Context, projects []model.Project) (int, error) {
	entries, err := s.store.TimeEntries().List(ctx, repository.TimeEntryFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list time entries: %w", err)
	}
	if len(entries) > 0 {
		return 0, nil
	}

	now := s.now()
	count := 0
	for _, se := range sampleEntries {
		if se.projectIndex >= len(projects) {
			s.logger.Warn("skipping sample entry without project",
				slog.String("task", se.task),
				slog.Int("project_index", se.projectIndex),
			)
			continue
		}
		notes := se.notes
		_, err := s.store.TimeEntries().Create(ctx, model.TimeEntryInput{
			ProjectID:  projects[se.projectIndex].ID,
			UserID:     DemoUserID,
			Task:       se.task,
			Date:       now.AddDate(0, 0, -se.daysAgo),
			Duration:   se.duration,
			Notes:      &notes,
			IsBillable: true,
		})
		if err != nil {
			return count, fmt.Errorf("failed to create time entry %q: %w", se.task, err)
		}
		count++
	}
	return count, nil
}
