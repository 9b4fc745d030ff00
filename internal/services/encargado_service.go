package services

import (
	"errors"
	"math"

	"encargate/internal/models"
	"encargate/internal/repository"

	"gorm.io/gorm"
)

type EncargadoService interface {
	GetEncargadoByID(id uint) (*models.Encargado, error)
	GetAllEncargados() ([]models.Encargado, error)
	// UpdateRating recomputes the provider's rating as the arithmetic mean
	// of their reviews, rounded to one decimal place.
	UpdateRating(encargadoID uint) error
	ToggleAvailability(id uint) (*models.Encargado, error)
}

type encargadoService struct {
	encargadoRepo repository.EncargadoRepository
	reviewRepo    repository.ReviewRepository
}

func NewEncargadoService(encargadoRepo repository.EncargadoRepository, reviewRepo repository.ReviewRepository) EncargadoService {
	return &encargadoService{encargadoRepo: encargadoRepo, reviewRepo: reviewRepo}
}

func (s *encargadoService) GetEncargadoByID(id uint) (*models.Encargado, error) {
	encargado, err := s.encargadoRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("encargado %d not found", id)
		}
		return nil, err
	}
	return encargado, nil
}

func (s *encargadoService) GetAllEncargados() ([]models.Encargado, error) {
	return s.encargadoRepo.GetAll()
}

func (s *encargadoService) UpdateRating(encargadoID uint) error {
	reviews, err := s.reviewRepo.GetByEncargadoID(encargadoID)
	if err != nil {
		return err
	}

	if len(reviews) == 0 {
		return nil
	}

	sum := 0.0
	for _, review := range reviews {
		sum += float64(review.Rating)
	}
	average := math.Round(sum/float64(len(reviews))*10) / 10

	return s.encargadoRepo.UpdateRating(encargadoID, average, len(reviews))
}

func (s *encargadoService) ToggleAvailability(id uint) (*models.Encargado, error) {
	encargado, err := s.GetEncargadoByID(id)
	if err != nil {
		return nil, err
	}

	encargado.Available = !encargado.Available
	if err := s.encargadoRepo.Update(encargado); err != nil {
		return nil, err
	}
	return encargado, nil
}
