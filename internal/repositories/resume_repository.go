package repositories

import (
	"errors"
	"time"

	"cvanalyzer_backend/internal/models"

	"gorm.io/gorm"
)

var ErrResumeNotFound = errors.New("resume not found")

type ResumeRepository interface {
	Create(db *gorm.DB, resume *models.Resume) error
	FindByID(db *gorm.DB, id string) (*models.Resume, error)
	FindByIDForUser(db *gorm.DB, id, userID string) (*models.Resume, error)
	ListByUser(db *gorm.DB, userID string, limit, offset int) ([]models.Resume, int64, error)
	UpdateStatus(db *gorm.DB, id string, status models.ResumeStatus, errorMessage string) error
	MarkCompleted(db *gorm.DB, id string) error
	Delete(db *gorm.DB, id string) error

	// Parsed data
	SaveParsed(db *gorm.DB, parsed *models.ParsedResume) error
	FindParsed(db *gorm.DB, resumeID string) (*models.ParsedResume, error)

	// Maintenance and stats
	FindStuckProcessing(db *gorm.DB, olderThan time.Time) ([]models.Resume, error)
	CountAll(db *gorm.DB) (int64, error)
	CountByStatus(db *gorm.DB) (map[string]int64, error)
}

type ResumeRepositoryImpl struct{}

func NewResumeRepository() ResumeRepository {
	return &ResumeRepositoryImpl{}
}

func (r *ResumeRepositoryImpl) Create(db *gorm.DB, resume *models.Resume) error {
	return db.Create(resume).Error
}

func (r *ResumeRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Resume, error) {
	var resume models.Resume
	err := db.Preload("ParsedData").First(&resume, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResumeNotFound
		}
		return nil, err
	}
	return &resume, nil
}

func (r *ResumeRepositoryImpl) FindByIDForUser(db *gorm.DB, id, userID string) (*models.Resume, error) {
	var resume models.Resume
	err := db.Preload("ParsedData").First(&resume, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResumeNotFound
		}
		return nil, err
	}
	return &resume, nil
}

func (r *ResumeRepositoryImpl) ListByUser(db *gorm.DB, userID string, limit, offset int) ([]models.Resume, int64, error) {
	query := db.Model(&models.Resume{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var resumes []models.Resume
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&resumes).Error
	return resumes, total, err
}

func (r *ResumeRepositoryImpl) UpdateStatus(db *gorm.DB, id string, status models.ResumeStatus, errorMessage string) error {
	result := db.Model(&models.Resume{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
		"updated_at":    time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrResumeNotFound
	}
	return nil
}

func (r *ResumeRepositoryImpl) MarkCompleted(db *gorm.DB, id string) error {
	now := time.Now()
	result := db.Model(&models.Resume{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        models.ResumeStatusCompleted,
		"error_message": "",
		"processed_at":  now,
		"updated_at":    now,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrResumeNotFound
	}
	return nil
}

func (r *ResumeRepositoryImpl) Delete(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", id).Delete(&models.ParsedResume{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Resume{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrResumeNotFound
		}
		return nil
	})
}

// Parsed data

func (r *ResumeRepositoryImpl) SaveParsed(db *gorm.DB, parsed *models.ParsedResume) error {
	var existing models.ParsedResume
	err := db.First(&existing, "resume_id = ?", parsed.ResumeID).Error
	if err == nil {
		parsed.ID = existing.ID
		parsed.CreatedAt = existing.CreatedAt
		return db.Save(parsed).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(parsed).Error
}

func (r *ResumeRepositoryImpl) FindParsed(db *gorm.DB, resumeID string) (*models.ParsedResume, error) {
	var parsed models.ParsedResume
	err := db.First(&parsed, "resume_id = ?", resumeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResumeNotFound
		}
		return nil, err
	}
	return &parsed, nil
}

// Maintenance and stats

func (r *ResumeRepositoryImpl) FindStuckProcessing(db *gorm.DB, olderThan time.Time) ([]models.Resume, error) {
	var resumes []models.Resume
	err := db.Where("status = ? AND updated_at < ?", models.ResumeStatusProcessing, olderThan).
		Find(&resumes).Error
	return resumes, err
}

func (r *ResumeRepositoryImpl) CountAll(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.Resume{}).Count(&count).Error
	return count, err
}

func (r *ResumeRepositoryImpl) CountByStatus(db *gorm.DB) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	var counts []statusCount
	err := db.Model(&models.Resume{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&counts).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(counts))
	for _, sc := range counts {
		result[sc.Status] = sc.Count
	}
	return result, nil
}
