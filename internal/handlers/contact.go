package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/contactbox/internal/apperrors"
	"github.com/nkiryanov/contactbox/internal/handlers/render"
	"github.com/nkiryanov/contactbox/internal/handlers/userctx"
	"github.com/nkiryanov/contactbox/internal/logger"
	"github.com/nkiryanov/contactbox/internal/models"
	"github.com/nkiryanov/contactbox/internal/repository"
)

const birthdayLayout = "2006-01-02"

type contactResponse struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Birthday       string    `json:"birthday"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toContactResponse(c models.Contact) contactResponse {
	return contactResponse{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		Phone:          c.Phone,
		Birthday:       c.Birthday.Format(birthdayLayout),
		AdditionalInfo: c.AdditionalInfo,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toContactListResponse(contacts []models.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, toContactResponse(c))
	}
	return out
}

func handleCreateContact(contacts contactService, l logger.Logger) http.Handler {
	type CreateContactRequest struct {
		FirstName      string `json:"first_name" validate:"required,min=1,max=50"`
		LastName       string `json:"last_name" validate:"required,min=1,max=50"`
		Email          string `json:"email" validate:"required,email,max=100"`
		Phone          string `json:"phone" validate:"required,min=5,max=20"`
		Birthday       string `json:"birthday" validate:"required,pastdate"`
		AdditionalInfo string `json:"additional_info" validate:"max=255"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		data, err := render.BindAndValidate[CreateContactRequest](w, r)
		if err != nil {
			return
		}
		birthday, _ := time.Parse(birthdayLayout, data.Birthday) // already validated

		contact, err := contacts.Create(r.Context(), models.Contact{
			UserID:         user.ID,
			FirstName:      data.FirstName,
			LastName:       data.LastName,
			Email:          data.Email,
			Phone:          data.Phone,
			Birthday:       birthday,
			AdditionalInfo: data.AdditionalInfo,
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrContactAlreadyExists):
				render.ServiceError(w, "Contact with same email or phone already exists", http.StatusConflict)
			default:
				l.Error("Failed to create contact", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, toContactResponse(contact), http.StatusCreated)
	})
}

func handleListContacts(contacts contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		limit, offset := pagination(r)

		list, err := contacts.List(r.Context(), &user, limit, offset)
		if err != nil {
			l.Error("Failed to list contacts", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, toContactListResponse(list))
	})
}

func handleGetContact(contacts contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		contactID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid contact id", http.StatusBadRequest)
			return
		}

		contact, err := contacts.Get(r.Context(), &user, contactID)
		if err != nil {
			renderContactError(w, l, err)
			return
		}

		render.JSON(w, toContactResponse(contact))
	})
}

func handleUpdateContact(contacts contactService, l logger.Logger) http.Handler {
	type UpdateContactRequest struct {
		FirstName      *string `json:"first_name" validate:"omitempty,min=1,max=50"`
		LastName       *string `json:"last_name" validate:"omitempty,min=1,max=50"`
		Email          *string `json:"email" validate:"omitempty,email,max=100"`
		Phone          *string `json:"phone" validate:"omitempty,min=5,max=20"`
		Birthday       *string `json:"birthday" validate:"omitempty,pastdate"`
		AdditionalInfo *string `json:"additional_info" validate:"omitempty,max=255"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		contactID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid contact id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[UpdateContactRequest](w, r)
		if err != nil {
			return
		}

		upd := repository.UpdateContact{
			FirstName:      data.FirstName,
			LastName:       data.LastName,
			Email:          data.Email,
			Phone:          data.Phone,
			AdditionalInfo: data.AdditionalInfo,
		}
		if data.Birthday != nil {
			birthday, _ := time.Parse(birthdayLayout, *data.Birthday) // already validated
			upd.Birthday = &birthday
		}

		contact, err := contacts.Update(r.Context(), &user, contactID, upd)
		if err != nil {
			renderContactError(w, l, err)
			return
		}

		render.JSON(w, toContactResponse(contact))
	})
}

func handleDeleteContact(contacts contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		contactID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid contact id", http.StatusBadRequest)
			return
		}

		if err := contacts.Delete(r.Context(), &user, contactID); err != nil {
			renderContactError(w, l, err)
			return
		}

		render.NoContent(w)
	})
}

func handleSearchContacts(contacts contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		limit, offset := pagination(r)

		list, err := contacts.Search(r.Context(), &user, r.URL.Query().Get("q"), limit, offset)
		if err != nil {
			l.Error("Failed to search contacts", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, toContactListResponse(list))
	})
}

func handleUpcomingBirthdays(contacts contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		days, _ := strconv.Atoi(r.URL.Query().Get("days"))

		list, err := contacts.UpcomingBirthdays(r.Context(), &user, days)
		if err != nil {
			l.Error("Failed to list upcoming birthdays", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, toContactListResponse(list))
	})
}

func renderContactError(w http.ResponseWriter, l logger.Logger, err error) {
	switch {
	case errors.Is(err, apperrors.ErrContactNotFound):
		render.ServiceError(w, "Contact not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrContactAlreadyExists):
		render.ServiceError(w, "Contact with same email or phone already exists", http.StatusConflict)
	default:
		l.Error("Contact operation failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func pagination(r *http.Request) (limit int, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
