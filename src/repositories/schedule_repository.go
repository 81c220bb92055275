package repositories

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reporter/src/config"
	"reporter/src/models"
)

type ScheduleRepositoryI interface {
	FetchEntries() []models.ScheduleEntry
}

// ScheduleRepository reads the report scheduler table. The backend is picked
// from the scheme of the configured connection URI: sqlite uses the embedded
// file store, mysql and postgres reach a networked server. Store failures are
// logged and produce an empty list, never an error for the caller.
type ScheduleRepository struct {
	Config *config.DatabaseConfig
	Logger *logrus.Logger
}

func NewScheduleRepository(cfg *config.DatabaseConfig, logger *logrus.Logger) *ScheduleRepository {
	return &ScheduleRepository{Config: cfg, Logger: logger}
}

// FetchEntries returns every row of superset_report_scheduler. When the table
// is missing it is created and seeded with two example rows first, so a fresh
// deployment self-heals on first run.
func (r *ScheduleRepository) FetchEntries() []models.ScheduleEntry {
	db, err := r.open()
	if err != nil {
		r.Logger.Warningf("could not open scheduler store: %v", err)
		return nil
	}
	defer r.close(db)

	if !db.Migrator().HasTable(&models.ScheduleEntry{}) {
		if err := r.bootstrap(db); err != nil {
			r.Logger.Warningf("scheduler store bootstrap failed: %v", err)
			return nil
		}
	}

	var entries []models.ScheduleEntry
	if err := db.Order("id").Find(&entries).Error; err != nil {
		r.Logger.Errorf("could not read schedule entries: %v", err)
		return nil
	}
	return entries
}

// bootstrap creates the scheduler table and seeds one role-scoped and one
// user-scoped example row.
func (r *ScheduleRepository) bootstrap(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.ScheduleEntry{}); err != nil {
		return err
	}
	seed := []models.ScheduleEntry{
		{RoleID: 1, UserID: 0, SliceID: 1, IsActive: true},
		{RoleID: 0, UserID: 1, SliceID: 1, IsActive: true},
	}
	if err := db.Create(&seed).Error; err != nil {
		return err
	}
	r.Logger.Infof("bootstrapped %s with %d example rows", models.ScheduleEntry{}.TableName(), len(seed))
	return nil
}

func (r *ScheduleRepository) open() (*gorm.DB, error) {
	scheme := uriScheme(r.Config.URI)
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch {
	case strings.HasPrefix(scheme, "sqlite"):
		return gorm.Open(sqlite.Open(r.sqlitePath()), gormCfg)
	case scheme == "mysql":
		port := r.Config.Port
		if port == "" {
			port = "3306"
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			r.Config.User, r.Config.Password, r.Config.Host, port, r.Config.Name)
		return gorm.Open(mysql.Open(dsn), gormCfg)
	case scheme == "postgres" || scheme == "postgresql":
		port := r.Config.Port
		if port == "" {
			port = "5432"
		}
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			r.Config.Host, r.Config.User, r.Config.Password, r.Config.Name, port)
		return gorm.Open(postgres.Open(dsn), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported scheduler store scheme %q", scheme)
	}
}

// close releases the underlying connection; one connection per FetchEntries
// call, never held across requests.
func (r *ScheduleRepository) close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		r.Logger.Warningf("could not access underlying store connection: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		r.Logger.Warningf("could not close store connection: %v", err)
	}
}

// sqlitePath prefers the path embedded in the URI ("sqlite:///some.db"),
// falling back to the configured file path.
func (r *ScheduleRepository) sqlitePath() string {
	if idx := strings.Index(r.Config.URI, "://"); idx != -1 {
		if path := strings.TrimPrefix(r.Config.URI[idx+3:], "/"); path != "" {
			return path
		}
	}
	return r.Config.SQLitePath
}

func uriScheme(uri string) string {
	if idx := strings.Index(uri, "://"); idx != -1 {
		// mysql+pymysql style URIs name the driver after a plus sign.
		scheme := uri[:idx]
		if plus := strings.Index(scheme, "+"); plus != -1 {
			scheme = scheme[:plus]
		}
		return strings.ToLower(scheme)
	}
	return ""
}
