package repository

import (
	"encargate/internal/models"

	"gorm.io/gorm"
)

type EncargadoRepository interface {
	Create(encargado *models.Encargado) error
	GetByID(id uint) (*models.Encargado, error)
	GetAll() ([]models.Encargado, error)
	GetAllWithPaidOrders() ([]models.Encargado, error)
	Update(encargado *models.Encargado) error
	UpdateRating(id uint, rating float64, reviewsCount int) error
	CountWithPaidOrders() (int64, error)
}

type encargadoRepository struct {
	db *gorm.DB
}

func NewEncargadoRepository(db *gorm.DB) EncargadoRepository {
	return &encargadoRepository{db: db}
}

func (r *encargadoRepository) Create(encargado *models.Encargado) error {
	return r.db.Create(encargado).Error
}

func (r *encargadoRepository) GetByID(id uint) (*models.Encargado, error) {
	var encargado models.Encargado
	err := r.db.First(&encargado, id).Error
	if err != nil {
		return nil, err
	}
	return &encargado, nil
}

func (r *encargadoRepository) GetAll() ([]models.Encargado, error) {
	var encargados []models.Encargado
	err := r.db.Find(&encargados).Error
	return encargados, err
}

func (r *encargadoRepository) GetAllWithPaidOrders() ([]models.Encargado, error) {
	var encargados []models.Encargado
	err := r.db.
		Where("id IN (?)", r.db.Model(&models.Order{}).
			Select("encargado_id").
			Where("payment_status = ?", string(models.PaymentPaid))).
		Find(&encargados).Error
	return encargados, err
}

func (r *encargadoRepository) Update(encargado *models.Encargado) error {
	return r.db.Save(encargado).Error
}

func (r *encargadoRepository) UpdateRating(id uint, rating float64, reviewsCount int) error {
	return r.db.Model(&models.Encargado{}).Where("id = ?", id).Updates(map[string]interface{}{
		"rating":        rating,
		"reviews_count": reviewsCount,
	}).Error
}

func (r *encargadoRepository) CountWithPaidOrders() (int64, error) {
	var count int64
	err := r.db.Model(&models.Encargado{}).
		Where("id IN (?)", r.db.Model(&models.Order{}).
			Select("encargado_id").
			Where("payment_status = ?", string(models.PaymentPaid))).
		Count(&count).Error
	return count, err
}
