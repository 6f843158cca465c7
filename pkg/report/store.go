package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/et-mohedano/demo-delegados/pkg/catalog"
	"github.com/et-mohedano/demo-delegados/pkg/config"
	"github.com/et-mohedano/demo-delegados/pkg/geo"
)

// SlotNamespace keys the durable slot holding the serialized report
// collection. The value is carried over from the original deployment so
// existing data stays readable.
const SlotNamespace = "pdc_delegados_reports_v1"

var (
	// ErrRegionMismatch is returned when a draft names a region other than
	// the author's assigned one.
	ErrRegionMismatch = errors.New("report region does not match assigned region")

	// ErrOutsideAssignedRegion is returned when the draft coordinate falls
	// outside the assigned region's polygon.
	ErrOutsideAssignedRegion = errors.New("coordinate outside assigned region")

	// ErrReportNotFound is returned when a mutation names an id that is not
	// in the collection.
	ErrReportNotFound = errors.New("report not found")
)

// Store provides the report collection and its lifecycle operations.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	Create(ctx context.Context, author Author, draft Draft) (*Report, error)
	SetResolved(ctx context.Context, id string) (*Report, error)
	Remove(ctx context.Context, id string) error

	ListAll() []Report
	ListByRegion(name string) []Report
	ListByAuthor(username string) []Report

	Persist(ctx context.Context) error
	Reload(ctx context.Context) error

	Subscribe(fn func(Event))
}

// Compile-time interface check.
var _ Store = (*store)(nil)

// slot is the single durable row holding the JSON-serialized collection.
type slot struct {
	Namespace string    `gorm:"primaryKey"`
	Payload   []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (slot) TableName() string {
	return "slots"
}

type store struct {
	log     logrus.FieldLogger
	cfg     *config.DatabaseConfig
	catalog *catalog.Catalog
	regions *geo.Index
	db      *gorm.DB

	mu      sync.Mutex
	reports []Report
	subs    []func(Event)
}

// NewStore creates a report store backed by the configured database driver.
// The region index and catalog are the validation dependencies; the store is
// the only writer of the collection.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
	cat *catalog.Catalog,
	regions *geo.Index,
) Store {
	return &store{
		log:     log.WithField("component", "reportstore"),
		cfg:     cfg,
		catalog: cat,
		regions: regions,
	}
}

// Start opens the database, runs migrations and loads the collection.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
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

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening report database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(&slot{}); err != nil {
		return fmt.Errorf("running slot migrations: %w", err)
	}

	if err := s.Reload(ctx); err != nil {
		return fmt.Errorf("loading report collection: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).
		WithField("reports", len(s.ListAll())).
		Info("Report store ready")

	return nil
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

// Subscribe registers a mutation subscriber. Subscribers run synchronously,
// in registration order, after the mutation has been applied and persisted.
func (s *store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs = append(s.subs, fn)
}

// Create validates the draft and, only if every check passes, constructs the
// report, appends it and persists the collection. A failed validation
// performs no mutation at all.
func (s *store) Create(
	ctx context.Context, author Author, draft Draft,
) (*Report, error) {
	if err := s.catalog.Validate(
		draft.Theme, draft.Variable, draft.ConditionState,
	); err != nil {
		return nil, err
	}

	if draft.Region != author.Region {
		return nil, fmt.Errorf("%w: draft names %q, assigned is %q",
			ErrRegionMismatch, draft.Region, author.Region)
	}

	geom, err := s.regions.Lookup(draft.Region)
	if err != nil {
		return nil, fmt.Errorf("resolving report region: %w", err)
	}

	if !geo.Contains(draft.Coordinate.Point(), geom) {
		return nil, fmt.Errorf("%w: (%f, %f) is not in %q",
			ErrOutsideAssignedRegion,
			draft.Coordinate.Lat, draft.Coordinate.Lng, draft.Region)
	}

	rec := Report{
		ID:                uuid.NewString(),
		AuthorUsername:    author.Username,
		AuthorDisplayName: author.DisplayName,
		Region:            draft.Region,
		Theme:             draft.Theme,
		Variable:          draft.Variable,
		ConditionState:    draft.ConditionState,
		Comment:           draft.Comment,
		Status:            StatusReported,
		Coordinate:        draft.Coordinate,
		Attachments:       draft.Attachments,
		CreatedAt:         time.Now().UTC(),
	}

	s.mu.Lock()
	s.reports = append(s.reports, rec)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(Event{Op: OpCreate, Report: rec})

	return &rec, nil
}

// SetResolved transitions a report to resolved. Resolving an already
// resolved report is a no-op success, so retries from a stale view cannot
// fail. The reverse transition does not exist.
func (s *store) SetResolved(ctx context.Context, id string) (*Report, error) {
	s.mu.Lock()

	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()

		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}

	if s.reports[i].Status == StatusResolved {
		rec := s.reports[i]
		s.mu.Unlock()

		return &rec, nil
	}

	s.reports[i].Status = StatusResolved
	rec := s.reports[i]
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(Event{Op: OpResolve, Report: rec})

	return &rec, nil
}

// Remove deletes a report from the collection.
func (s *store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()

	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}

	rec := s.reports[i]
	s.reports = append(s.reports[:i], s.reports[i+1:]...)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(Event{Op: OpRemove, Report: rec})

	return nil
}

// ListAll returns the full collection, newest first.
func (s *store) ListAll() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedCopy(s.reports, nil)
}

// ListByRegion returns reports filed in the named region, newest first.
func (s *store) ListByRegion(name string) []Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedCopy(s.reports, func(r Report) bool {
		return r.Region == name
	})
}

// ListByAuthor returns reports filed by the named user, newest first.
func (s *store) ListByAuthor(username string) []Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedCopy(s.reports, func(r Report) bool {
		return r.AuthorUsername == username
	})
}

// Persist serializes the whole collection into the durable slot.
func (s *store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeSlotLocked(ctx)
}

// Reload replaces the in-memory collection with the slot contents. A missing
// or corrupt slot yields an empty collection: bad persisted state must never
// block startup.
func (s *store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row slot

	err := s.db.WithContext(ctx).
		Where("namespace = ?", SlotNamespace).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithError(err).
				Warn("Reading report slot failed, starting empty")
		}

		s.reports = nil

		return nil
	}

	var reports []Report
	if err := json.Unmarshal(row.Payload, &reports); err != nil {
		s.log.WithError(err).
			Warn("Report slot is corrupt, starting empty")

		s.reports = nil

		return nil
	}

	s.reports = reports

	return nil
}

// persistLocked writes the slot and logs failures instead of propagating
// them: the in-memory collection stays authoritative for the session and a
// later mutation retries the write.
func (s *store) persistLocked(ctx context.Context) {
	if err := s.writeSlotLocked(ctx); err != nil {
		s.log.WithError(err).Error("Persisting report collection failed")
	}
}

func (s *store) writeSlotLocked(ctx context.Context) error {
	payload, err := json.Marshal(s.reports)
	if err != nil {
		return fmt.Errorf("serializing report collection: %w", err)
	}

	row := slot{
		Namespace: SlotNamespace,
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}

	result := s.db.WithContext(ctx).
		Where("namespace = ?", SlotNamespace).
		Assign(map[string]any{
			"payload":    payload,
			"updated_at": row.UpdatedAt,
		}).
		FirstOrCreate(&row)
	if result.Error != nil {
		return fmt.Errorf("writing report slot: %w", result.Error)
	}

	return nil
}

func (s *store) indexOfLocked(id string) int {
	for i := range s.reports {
		if s.reports[i].ID == id {
			return i
		}
	}

	return -1
}

func (s *store) notify(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func sortedCopy(reports []Report, keep func(Report) bool) []Report {
	out := make([]Report, 0, len(reports))

	for _, r := range reports {
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}
