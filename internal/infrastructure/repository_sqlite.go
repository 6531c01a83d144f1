package infrastructure

import (
	"fmt"

	"github.com/yourusername/tunegrab-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteRunRepository implements RunRepository using SQLite
type SQLiteRunRepository struct {
	db *gorm.DB
}

// NewSQLiteRunRepository creates a new SQLite repository
func NewSQLiteRunRepository(dbPath string) (*SQLiteRunRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate the run history schema
	if err := db.AutoMigrate(&domain.Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRunRepository{db: db}, nil
}

// Create creates a new run
func (r *SQLiteRunRepository) Create(run *domain.Run) error {
	return r.db.Create(run).Error
}

// Update updates an existing run
func (r *SQLiteRunRepository) Update(run *domain.Run) error {
	return r.db.Save(run).Error
}

// Delete deletes a run by ID
func (r *SQLiteRunRepository) Delete(id string) error {
	return r.db.Delete(&domain.Run{}, "id = ?", id).Error
}

// FindByID finds a run by ID
func (r *SQLiteRunRepository) FindByID(id string) (*domain.Run, error) {
	var run domain.Run
	err := r.db.First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// FindByStatus finds runs by status
func (r *SQLiteRunRepository) FindByStatus(status domain.RunStatus) ([]*domain.Run, error) {
	var runs []*domain.Run
	err := r.db.Where("status = ?", status).Find(&runs).Error
	return runs, err
}

// FindPending finds all queued runs ordered by priority and creation time
func (r *SQLiteRunRepository) FindPending() ([]*domain.Run, error) {
	var runs []*domain.Run
	err := r.db.Where("status = ?", domain.StatusQueued).
		Order("priority DESC, created_at ASC").
		Find(&runs).Error
	return runs, err
}

// FindAll finds all runs with optional filters
func (r *SQLiteRunRepository) FindAll(filters map[string]interface{}) ([]*domain.Run, error) {
	var runs []*domain.Run
	query := r.db

	for key, value := range filters {
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&runs).Error
	return runs, err
}

// Count returns the total number of runs
func (r *SQLiteRunRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.Run{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of runs by status
func (r *SQLiteRunRepository) CountByStatus(status domain.RunStatus) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Run{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// GetStats returns run statistics: per-status counts plus the track
// counters summed across all recorded runs
func (r *SQLiteRunRepository) GetStats() (*domain.ServiceStats, error) {
	stats := &domain.ServiceStats{}

	// Get total count
	if err := r.db.Model(&domain.Run{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	// Get counts by status
	statusCounts := []struct {
		Status domain.RunStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.Run{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusQueued:
			stats.Queued = sc.Count
		case domain.StatusProcessing:
			stats.Processing = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		case domain.StatusCancelled:
			stats.Cancelled = sc.Count
		}
	}

	// Sum the per-track counters over the whole history
	trackTotals := struct {
		Fetched int64
		Failed  int64
		Skipped int64
	}{}

	if err := r.db.Model(&domain.Run{}).
		Select("COALESCE(SUM(successful), 0) as fetched, COALESCE(SUM(failed), 0) as failed, COALESCE(SUM(skipped), 0) as skipped").
		Scan(&trackTotals).Error; err != nil {
		return nil, err
	}

	stats.TracksFetched = trackTotals.Fetched
	stats.TracksFailed = trackTotals.Failed
	stats.TracksSkipped = trackTotals.Skipped

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteRunRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
