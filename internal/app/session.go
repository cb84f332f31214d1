package app

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"classline/internal/catalog"
	"classline/internal/config"
	"classline/internal/dashboard"
	"classline/internal/db"
	"classline/internal/migrate"
	"classline/internal/repo"
)

// Session bundles everything a command needs against one workspace: the
// open database, its repository, the resolved config, the catalog
// service for writes and the dashboard engine for derived reads.
type Session struct {
	DB        *sql.DB
	Repo      repo.Repo
	Config    *config.Config
	Catalog   catalog.Service
	Dashboard *dashboard.Engine
	Syncer    *dashboard.Syncer
}

// Open prepares a workspace session: ensures the workspace directory,
// opens and migrates the database, resolves the config (seeding the
// default classline.yml when missing) and wires the services.
func Open(workspace string) (*Session, error) {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	cfg, err := ResolveConfig(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r := repo.Repo{DB: conn}
	svc := catalog.New(conn)
	engine := dashboard.New(cfg, dashboard.NewRepoSources(r), dashboard.RepoStats{Repo: r})
	delay, err := cfg.ResyncDelay()
	if err != nil {
		conn.Close()
		return nil, err
	}
	syncer := &dashboard.Syncer{
		Engine:  engine,
		Primary: dashboard.LocalSync{Engine: engine},
		Delay:   delay,
	}
	return &Session{
		DB:        conn,
		Repo:      r,
		Config:    cfg,
		Catalog:   svc,
		Dashboard: engine,
		Syncer:    syncer,
	}, nil
}

// Close releases the session's database handle.
func (s *Session) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// ResolveConfig loads classline.yml from the workspace, writing the
// default config first when none exists yet.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}
	id := workspaceID(workspace)
	if err := os.WriteFile(config.Path(workspace), []byte(config.GenerateDefault(id)), 0o644); err != nil {
		return nil, fmt.Errorf("seed workspace config: %w", err)
	}
	return config.Default(id), nil
}

func workspaceID(workspace string) string {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	id := filepath.Base(abs)
	if id == "." || id == string(filepath.Separator) || id == "" {
		id = "classroom"
	}
	return id
}
