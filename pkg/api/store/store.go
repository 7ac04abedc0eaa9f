package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethpandaops/qahub/pkg/config"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteBusyTimeoutMs = 5000

// Store provides persistence for QA-Hub resources.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// Test records.
	CreateTest(ctx context.Context, t *TestRecord) error
	CreateTests(ctx context.Context, tests []*TestRecord) error
	ListTests(ctx context.Context, limit int) ([]TestRecord, error)
	DistinctTestNames(ctx context.Context, limit int) ([]string, error)
	SummarizeTests(ctx context.Context) (*TestSummary, error)
	DeleteTest(ctx context.Context, id uint) (int64, error)
	DeleteAllTests(ctx context.Context) (int64, error)

	// Bug reports.
	CreateBug(ctx context.Context, bug *BugReport) error
	ListBugs(ctx context.Context) ([]BugReport, error)
	DeleteBug(ctx context.Context, id uint) (int64, error)

	// Test cases.
	CreateTestCase(ctx context.Context, tc *TestCase) error
	ListTestCases(ctx context.Context) ([]TestCase, error)
	DeleteTestCase(ctx context.Context, id uint) (int64, error)

	// Automation reports.
	CreateReport(ctx context.Context, report *AutomationReport) error
	ListReports(ctx context.Context, limit int) ([]AutomationReport, error)

	// Row counts per table.
	Counts(ctx context.Context) (*TableCounts, error)

	// Seeding of empty tables.
	Seed(ctx context.Context, data *SeedData) error
}

// TableCounts holds the number of rows in each table.
type TableCounts struct {
	Tests     int64 `json:"tests" yaml:"tests"`
	Bugs      int64 `json:"bugs" yaml:"bugs"`
	TestCases int64 `json:"test_cases" yaml:"test_cases"`
	Reports   int64 `json:"automation_reports" yaml:"automation_reports"`
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and creates any missing tables.
func (s *store) Start(ctx context.Context) error {
	var (
		dialector gorm.Dialector
		err       error
	)

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(s.cfg.SQLite.Path))
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	s.db, err = gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := s.db.WithContext(ctx).AutoMigrate(
		&TestRecord{},
		&BugReport{},
		&TestCase{},
		&AutomationReport{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

// sqliteDSN adds a busy timeout so concurrent writers wait on the file
// lock instead of failing immediately. Paths that already carry query
// parameters are used as-is.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}

	return path + "?_pragma=busy_timeout(" + strconv.Itoa(sqliteBusyTimeoutMs) + ")"
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// --- Test records ---

func (s *store) CreateTest(ctx context.Context, t *TestRecord) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("creating test: %w", err)
	}

	return nil
}

// CreateTests inserts all records in a single transaction.
func (s *store) CreateTests(
	ctx context.Context, tests []*TestRecord,
) error {
	if len(tests) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tests).Error; err != nil {
			return fmt.Errorf("creating tests: %w", err)
		}

		return nil
	})
}

// ListTests returns at most limit records, most recent first.
func (s *store) ListTests(
	ctx context.Context, limit int,
) ([]TestRecord, error) {
	var tests []TestRecord
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("listing tests: %w", err)
	}

	return tests, nil
}

// DistinctTestNames returns every recorded test name once, in order of
// first appearance. A non-positive limit returns all names.
func (s *store) DistinctTestNames(
	ctx context.Context, limit int,
) ([]string, error) {
	q := s.db.WithContext(ctx).
		Model(&TestRecord{}).
		Group("name").
		Order("MIN(id) ASC")

	if limit > 0 {
		q = q.Limit(limit)
	}

	var names []string
	if err := q.Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("listing distinct test names: %w", err)
	}

	return names, nil
}

type testSummaryRow struct {
	Total       int64
	Passed      int64
	Failed      int64
	AvgDuration *float64
}

// SummarizeTests computes count, pass/fail counts and mean duration over
// the tests table in a single query.
func (s *store) SummarizeTests(ctx context.Context) (*TestSummary, error) {
	var row testSummaryRow

	if err := s.db.WithContext(ctx).
		Model(&TestRecord{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS passed, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failed, "+
				"AVG(duration) AS avg_duration",
			StatusPassed, StatusFailed,
		).
		Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("summarizing tests: %w", err)
	}

	summary := &TestSummary{
		Total:  row.Total,
		Passed: row.Passed,
		Failed: row.Failed,
	}

	if row.AvgDuration != nil {
		summary.AvgDurationMs = *row.AvgDuration
	}

	return summary, nil
}

func (s *store) DeleteTest(ctx context.Context, id uint) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&TestRecord{}, id)
	if result.Error != nil {
		return 0, fmt.Errorf("deleting test: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (s *store) DeleteAllTests(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&TestRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting all tests: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.log.WithField("count", result.RowsAffected).
			Info("Cleared test records")
	}

	return result.RowsAffected, nil
}

// --- Bug reports ---

func (s *store) CreateBug(ctx context.Context, bug *BugReport) error {
	if err := s.db.WithContext(ctx).Create(bug).Error; err != nil {
		return fmt.Errorf("creating bug: %w", err)
	}

	return nil
}

func (s *store) ListBugs(ctx context.Context) ([]BugReport, error) {
	var bugs []BugReport
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&bugs).Error; err != nil {
		return nil, fmt.Errorf("listing bugs: %w", err)
	}

	return bugs, nil
}

func (s *store) DeleteBug(ctx context.Context, id uint) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&BugReport{}, id)
	if result.Error != nil {
		return 0, fmt.Errorf("deleting bug: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// --- Test cases ---

func (s *store) CreateTestCase(ctx context.Context, tc *TestCase) error {
	if err := s.db.WithContext(ctx).Create(tc).Error; err != nil {
		return fmt.Errorf("creating test case: %w", err)
	}

	return nil
}

func (s *store) ListTestCases(ctx context.Context) ([]TestCase, error) {
	var cases []TestCase
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("listing test cases: %w", err)
	}

	return cases, nil
}

func (s *store) DeleteTestCase(ctx context.Context, id uint) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&TestCase{}, id)
	if result.Error != nil {
		return 0, fmt.Errorf("deleting test case: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// --- Automation reports ---

func (s *store) CreateReport(
	ctx context.Context, report *AutomationReport,
) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("creating report: %w", err)
	}

	return nil
}

// ListReports returns at most limit reports, most recent first.
func (s *store) ListReports(
	ctx context.Context, limit int,
) ([]AutomationReport, error) {
	var reports []AutomationReport
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	return reports, nil
}

// --- Counts ---

func (s *store) Counts(ctx context.Context) (*TableCounts, error) {
	var (
		counts TableCounts
		err    error
	)

	if counts.Tests, err = s.count(ctx, &TestRecord{}); err != nil {
		return nil, err
	}

	if counts.Bugs, err = s.count(ctx, &BugReport{}); err != nil {
		return nil, err
	}

	if counts.TestCases, err = s.count(ctx, &TestCase{}); err != nil {
		return nil, err
	}

	if counts.Reports, err = s.count(ctx, &AutomationReport{}); err != nil {
		return nil, err
	}

	return &counts, nil
}

func (s *store) count(ctx context.Context, model any) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting %T: %w", model, err)
	}

	return n, nil
}
