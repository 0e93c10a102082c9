package discovery

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domaindiscovery "spotlight/app/internal/domain/discovery"
)

// Repository persists discoveries using a Gorm database connection.
type Repository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*Repository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Repository{db: db, logger: logger}, nil
}

var _ domaindiscovery.Repository = (*Repository)(nil)

// Create stores a completed discovery. It returns an error when the ID already exists.
func (r *Repository) Create(ctx context.Context, record *domaindiscovery.Record) error {
	if record == nil {
		return eris.New("discovery record is nil")
	}

	id := strings.TrimSpace(record.ID)
	if id == "" {
		return eris.New("discovery id is required")
	}

	row := fromDomainRecord(record)
	row.ID = id

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if eris.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			dupErr := eris.Errorf("discovery %s already exists", id)
			r.logError(logrus.Fields{"discovery_id": id}, dupErr, "creating discovery with duplicate id")
			return dupErr
		}
		r.logError(logrus.Fields{"discovery_id": id}, err, "creating discovery")
		return eris.Wrapf(err, "creating discovery: %s", id)
	}

	record.ID = id
	return nil
}

// GetByID returns the discovery with the provided ID or nil when not found.
func (r *Repository) GetByID(ctx context.Context, id string) (*domaindiscovery.Record, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, eris.New("discovery id is required")
	}

	var row DiscoveryRecord
	err := r.db.WithContext(ctx).First(&row, "id = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"discovery_id": trimmed}, err, "fetching discovery by id")
		return nil, eris.Wrapf(err, "fetching discovery by id: %s", trimmed)
	}

	return toDomainRecord(&row), nil
}

// List returns up to limit discoveries, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]domaindiscovery.Record, error) {
	var rows []DiscoveryRecord

	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&rows).Error; err != nil {
		r.logError(logrus.Fields{"limit": limit}, err, "listing discoveries")
		return nil, eris.Wrap(err, "listing discoveries")
	}

	records := make([]domaindiscovery.Record, 0, len(rows))
	for i := range rows {
		records = append(records, *toDomainRecord(&rows[i]))
	}

	return records, nil
}

// TotalUsage returns the number of stored discoveries and their summed token counts.
func (r *Repository) TotalUsage(ctx context.Context) (domaindiscovery.Usage, error) {
	var totals struct {
		Discoveries  int64
		InputTokens  int64
		OutputTokens int64
	}

	err := r.db.WithContext(ctx).
		Model(&DiscoveryRecord{}).
		Select("COUNT(*) AS discoveries, COALESCE(SUM(input_tokens), 0) AS input_tokens, COALESCE(SUM(output_tokens), 0) AS output_tokens").
		Scan(&totals).Error
	if err != nil {
		r.logError(nil, err, "summing discovery token usage")
		return domaindiscovery.Usage{}, eris.Wrap(err, "summing discovery token usage")
	}

	return domaindiscovery.Usage{
		Discoveries:  totals.Discoveries,
		InputTokens:  totals.InputTokens,
		OutputTokens: totals.OutputTokens,
	}, nil
}

func (r *Repository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func fromDomainRecord(record *domaindiscovery.Record) *DiscoveryRecord {
	return &DiscoveryRecord{
		ID:           record.ID,
		FieldOfTopic: record.Result.FieldOfTopic,
		Keywords:     record.Result.Keywords,
		AnalysisText: record.Result.AnalysisText,
		InputTokens:  record.Result.InputTokens,
		OutputTokens: record.Result.OutputTokens,
		MaxTokens:    record.MaxTokens,
		Temperature:  record.Temperature,
		CreatedAt:    record.CreatedAt,
	}
}

func toDomainRecord(row *DiscoveryRecord) *domaindiscovery.Record {
	if row == nil {
		return nil
	}

	return &domaindiscovery.Record{
		ID: row.ID,
		Result: domaindiscovery.Result{
			FieldOfTopic: row.FieldOfTopic,
			Keywords:     row.Keywords,
			AnalysisText: row.AnalysisText,
			InputTokens:  row.InputTokens,
			OutputTokens: row.OutputTokens,
		},
		MaxTokens:   row.MaxTokens,
		Temperature: row.Temperature,
		CreatedAt:   row.CreatedAt,
	}
}
