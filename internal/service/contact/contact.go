package contact

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/contactbox/internal/models"
	"github.com/nkiryanov/contactbox/internal/repository"
)

const (
	defaultListLimit = 10
	maxListLimit     = 500
)

// Contacts live fully inside the repository; the service only pins down
// pagination defaults and keeps handlers away from storage types
type ContactService struct {
	contactRepo repository.ContactRepo
}

func NewService(contactRepo repository.ContactRepo) *ContactService {
	return &ContactService{contactRepo: contactRepo}
}

func (s *ContactService) Create(ctx context.Context, contact models.Contact) (models.Contact, error) {
	return s.contactRepo.Create(ctx, contact)
}

func (s *ContactService) List(ctx context.Context, user *models.User, limit int, offset int) ([]models.Contact, error) {
	return s.contactRepo.List(ctx, user.ID, clampLimit(limit), max(offset, 0))
}

func (s *ContactService) Get(ctx context.Context, user *models.User, contactID uuid.UUID) (models.Contact, error) {
	return s.contactRepo.Get(ctx, user.ID, contactID)
}

func (s *ContactService) Update(ctx context.Context, user *models.User, contactID uuid.UUID, upd repository.UpdateContact) (models.Contact, error) {
	return s.contactRepo.Update(ctx, user.ID, contactID, upd)
}

func (s *ContactService) Delete(ctx context.Context, user *models.User, contactID uuid.UUID) error {
	return s.contactRepo.Delete(ctx, user.ID, contactID)
}

func (s *ContactService) Search(ctx context.Context, user *models.User, query string, limit int, offset int) ([]models.Contact, error) {
	return s.contactRepo.Search(ctx, user.ID, query, clampLimit(limit), max(offset, 0))
}

func (s *ContactService) UpcomingBirthdays(ctx context.Context, user *models.User, days int) ([]models.Contact, error) {
	if days <= 0 {
		days = 7
	}
	return s.contactRepo.UpcomingBirthdays(ctx, user.ID, days)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
