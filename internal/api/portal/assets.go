package portal

import (
	"github.com/go-chi/chi/v5"
	"github.com/skybi/assetdesk/internal/api/schema"
	"github.com/skybi/assetdesk/internal/api/validation"
	"github.com/skybi/assetdesk/internal/asset"
	"math"
	"net/http"
)

type assetWithReportLink struct {
	*asset.Asset
	ReportURL string `json:"report_url"`
}

func (service *Service) withReportLink(obj *asset.Asset) *assetWithReportLink {
	return &assetWithReportLink{
		Asset:     obj,
		ReportURL: asset.EncodeReportURL(obj.Ref(), service.Config.BaseAddress),
	}
}

// EndpointGetAssets handles the 'GET /api/assets?offset={number?:0}&limit={number?:10}' endpoint
func (service *Service) EndpointGetAssets(writer http.ResponseWriter, request *http.Request) {
	var validationErrs []*schema.Error

	offset, validationErr := validation.QueryNumber(request, "offset", false, 0, 0, math.MaxInt64)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	limit, validationErr := validation.QueryNumber(request, "limit", false, 10, 1, 1000)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	assets, n, err := service.Storage.Assets().Get(request.Context(), uint64(offset), uint64(limit))
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	items := make([]*assetWithReportLink, 0, len(assets))
	for _, obj := range assets {
		items = append(items, service.withReportLink(obj))
	}
	service.writer.WriteJSON(writer, schema.BuildPaginatedResponse(uint64(offset), uint64(limit), n, items))
}

// EndpointGetAsset handles the 'GET /api/assets/{uid}' endpoint
func (service *Service) EndpointGetAsset(writer http.ResponseWriter, request *http.Request) {
	obj, ok := service.assetFromPath(writer, request)
	if !ok {
		return
	}
	service.writer.WriteJSON(writer, service.withReportLink(obj))
}

type endpointCreateAssetRequestPayload struct {
	Name        *string `json:"name" required:"true" notblank:"true"`
	Location    *string `json:"location" required:"true" notblank:"true"`
	Description string  `json:"description"`
}

// EndpointCreateAsset handles the 'POST /api/assets' endpoint
func (service *Service) EndpointCreateAsset(writer http.ResponseWriter, request *http.Request) {
	// Unmarshal and validate the request body
	payload, validationErrs, err := validation.UnmarshalBody[endpointCreateAssetRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	obj, err := service.Storage.Assets().Create(request.Context(), &asset.Create{
		Name:        *payload.Name,
		Location:    *payload.Location,
		Description: payload.Description,
	})
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	service.writer.WriteJSONCode(writer, http.StatusCreated, service.withReportLink(obj))
}

type endpointEditAssetRequestPayload struct {
	Name        *string `json:"name" notblank:"true"`
	Location    *string `json:"location" notblank:"true"`
	Description *string `json:"description"`
}

// EndpointEditAsset handles the 'PATCH /api/assets/{uid}' endpoint
func (service *Service) EndpointEditAsset(writer http.ResponseWriter, request *http.Request) {
	obj, ok := service.assetFromPath(writer, request)
	if !ok {
		return
	}

	// Unmarshal and validate the request body
	payload, validationErrs, err := validation.UnmarshalBody[endpointEditAssetRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	// Update the asset and return the new one
	newObj, err := service.Storage.Assets().Update(request.Context(), obj.UID, &asset.Update{
		Name:        payload.Name,
		Location:    payload.Location,
		Description: payload.Description,
	})
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	// The asset may have been deleted in the meantime
	if newObj == nil {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
		return
	}
	service.writer.WriteJSON(writer, service.withReportLink(newObj))
}

// EndpointDeleteAsset handles the 'DELETE /api/assets/{uid}' endpoint
func (service *Service) EndpointDeleteAsset(writer http.ResponseWriter, request *http.Request) {
	obj, ok := service.assetFromPath(writer, request)
	if !ok {
		return
	}

	if err := service.Storage.Assets().Delete(request.Context(), obj.UID); err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

// EndpointGetAssetReportLink handles the 'GET /api/assets/{uid}/report_link' endpoint
func (service *Service) EndpointGetAssetReportLink(writer http.ResponseWriter, request *http.Request) {
	obj, ok := service.assetFromPath(writer, request)
	if !ok {
		return
	}
	service.writer.WriteJSON(writer, map[string]any{
		"url": asset.EncodeReportURL(obj.Ref(), service.Config.BaseAddress),
	})
}

// assetFromPath retrieves the asset addressed by the 'uid' URL parameter and writes a 404 response if it does not exist
func (service *Service) assetFromPath(writer http.ResponseWriter, request *http.Request) (*asset.Asset, bool) {
	obj, err := service.Storage.Assets().GetByUID(request.Context(), chi.URLParam(request, "uid"))
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return nil, false
	}
	if obj == nil {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
		return nil, false
	}
	return obj, true
}
