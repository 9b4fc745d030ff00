package services

import (
	"errors"

	"encargate/internal/models"
	"encargate/internal/repository"

	"gorm.io/gorm"
)

type ReviewService interface {
	// CreateReview accepts one review per completed order, written by the
	// order's own client. The provider's rating is recomputed afterwards.
	CreateReview(review *models.Review) error
	GetReviewsByEncargado(encargadoID uint) ([]models.Review, error)
	UpdateReview(reviewID uint, userID uint, rating int, comment string) (*models.Review, error)
	DeleteReview(reviewID uint, userID uint) error
}

type reviewService struct {
	reviewRepo       repository.ReviewRepository
	orderRepo        repository.OrderRepository
	encargadoService EncargadoService
	notifier         Notifier
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	orderRepo repository.OrderRepository,
	encargadoService EncargadoService,
	notifier Notifier,
) ReviewService {
	return &reviewService{
		reviewRepo:       reviewRepo,
		orderRepo:        orderRepo,
		encargadoService: encargadoService,
		notifier:         notifier,
	}
}

func (s *reviewService) CreateReview(review *models.Review) error {
	if review.Rating < 1 || review.Rating > 5 {
		return BadRequestf("rating must be between 1 and 5, got %d", review.Rating)
	}

	order, err := s.orderRepo.GetByID(review.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundf("order %d not found", review.OrderID)
		}
		return err
	}

	if order.UserID != review.UserID {
		return BadRequestf("order %d does not belong to user %d", review.OrderID, review.UserID)
	}
	if order.Status != string(models.OrderCompleted) {
		return BadRequestf("order %d is %s, only completed orders can be reviewed", review.OrderID, order.Status)
	}

	if existing, err := s.reviewRepo.GetByOrderID(review.OrderID); err == nil && existing != nil {
		return BadRequestf("order %d already has a review", review.OrderID)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	review.EncargadoID = order.EncargadoID
	if err := s.reviewRepo.Create(review); err != nil {
		return err
	}

	if err := s.encargadoService.UpdateRating(review.EncargadoID); err != nil {
		return err
	}

	s.notifier.NotifyNewReview(review.EncargadoID, review)
	return nil
}

func (s *reviewService) GetReviewsByEncargado(encargadoID uint) ([]models.Review, error) {
	return s.reviewRepo.GetByEncargadoID(encargadoID)
}

func (s *reviewService) UpdateReview(reviewID uint, userID uint, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, BadRequestf("rating must be between 1 and 5, got %d", rating)
	}

	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("review %d not found", reviewID)
		}
		return nil, err
	}
	if review.UserID != userID {
		return nil, BadRequestf("review %d does not belong to user %d", reviewID, userID)
	}

	review.Rating = rating
	review.Comment = comment
	if err := s.reviewRepo.Update(review); err != nil {
		return nil, err
	}

	if err := s.encargadoService.UpdateRating(review.EncargadoID); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) DeleteReview(reviewID uint, userID uint) error {
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundf("review %d not found", reviewID)
		}
		return err
	}
	if review.UserID != userID {
		return BadRequestf("review %d does not belong to user %d", reviewID, userID)
	}

	if err := s.reviewRepo.Delete(reviewID); err != nil {
		return err
	}
	return s.encargadoService.UpdateRating(review.EncargadoID)
}
