package portal

import (
	"github.com/go-chi/chi/v5"
	"github.com/skybi/assetdesk/internal/api/schema"
	"github.com/skybi/assetdesk/internal/api/validation"
	"github.com/skybi/assetdesk/internal/identity"
	"github.com/skybi/assetdesk/internal/user"
	"net/http"
)

// EndpointGetUser handles the 'GET /api/users/{id}' endpoint
func (service *Service) EndpointGetUser(writer http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")

	obj, err := service.Storage.Users().GetByID(request.Context(), id)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if obj == nil {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
		return
	}

	service.writer.WriteJSON(writer, obj)
}

type endpointEditUserRequestPayload struct {
	DisplayName *string `json:"display_name" notblank:"true"`
	Email       *string `json:"email"`
	Admin       *bool   `json:"admin"`
}

// EndpointEditUser handles the 'PATCH /api/users/{id}' endpoint
func (service *Service) EndpointEditUser(writer http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")

	// Retrieve the old user
	obj, err := service.Storage.Users().GetByID(request.Context(), id)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if obj == nil {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
		return
	}

	// Unmarshal and validate the request body
	payload, validationErrs, err := validation.UnmarshalBody[endpointEditUserRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	// Update the user and return the new one
	newObj, err := service.Storage.Users().Update(request.Context(), obj.ID, &user.Update{
		DisplayName: payload.DisplayName,
		Email:       payload.Email,
		Admin:       payload.Admin,
	})
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, newObj)
}

// EndpointGetSelfUser handles the 'GET /api/me' endpoint
func (service *Service) EndpointGetSelfUser(writer http.ResponseWriter, request *http.Request) {
	service.writer.WriteJSON(writer, sessionUser(request))
}

// EndpointDeleteSelfUserData handles the 'DELETE /api/me' endpoint
func (service *Service) EndpointDeleteSelfUserData(writer http.ResponseWriter, request *http.Request) {
	obj := sessionUser(request)
	if err := service.Storage.Users().Delete(request.Context(), obj.ID); err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if err := service.SessionStorage.TerminateByUserID(request.Context(), obj.ID); err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     identity.CookieNameSession,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writer.WriteHeader(http.StatusNoContent)
}
