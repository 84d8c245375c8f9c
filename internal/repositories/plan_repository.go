package repositories

import (
	"errors"
	"time"

	"cvanalyzer_backend/internal/models"

	"gorm.io/gorm"
)

var ErrPlanNotFound = errors.New("plan not found")

type PlanRepository interface {
	Create(db *gorm.DB, plan *models.BillingPlan) error
	Save(db *gorm.DB, plan *models.BillingPlan) error
	FindByID(db *gorm.DB, id string) (*models.BillingPlan, error)
	FindByStripePrice(db *gorm.DB, priceID string) (*models.BillingPlan, error)
	FindByStripeProduct(db *gorm.DB, productID string) (*models.BillingPlan, error)
	ListActive(db *gorm.DB) ([]models.BillingPlan, error)
	ListAll(db *gorm.DB) ([]models.BillingPlan, error)
	SetActive(db *gorm.DB, id string, active bool) error
	Delete(db *gorm.DB, id string) error
}

type PlanRepositoryImpl struct{}

func NewPlanRepository() PlanRepository {
	return &PlanRepositoryImpl{}
}

func (r *PlanRepositoryImpl) Create(db *gorm.DB, plan *models.BillingPlan) error {
	return db.Create(plan).Error
}

func (r *PlanRepositoryImpl) Save(db *gorm.DB, plan *models.BillingPlan) error {
	return db.Save(plan).Error
}

func (r *PlanRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	err := db.First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepositoryImpl) FindByStripePrice(db *gorm.DB, priceID string) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	err := db.First(&plan, "stripe_price_id = ?", priceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepositoryImpl) FindByStripeProduct(db *gorm.DB, productID string) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	err := db.First(&plan, "stripe_product_id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepositoryImpl) ListActive(db *gorm.DB) ([]models.BillingPlan, error) {
	var plans []models.BillingPlan
	err := db.Where("is_active = ?", true).Order("sort_order, price").Find(&plans).Error
	return plans, err
}

func (r *PlanRepositoryImpl) ListAll(db *gorm.DB) ([]models.BillingPlan, error) {
	var plans []models.BillingPlan
	err := db.Order("sort_order, price").Find(&plans).Error
	return plans, err
}

func (r *PlanRepositoryImpl) SetActive(db *gorm.DB, id string, active bool) error {
	result := db.Model(&models.BillingPlan{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_active":  active,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (r *PlanRepositoryImpl) Delete(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.BillingPlan{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPlanNotFound
	}
	return nil
}
