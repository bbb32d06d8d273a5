package portal

import (
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/skybi/assetdesk/internal/api/schema"
	"github.com/skybi/assetdesk/internal/api/validation"
	"github.com/skybi/assetdesk/internal/issue"
	"math"
	"net/http"
)

const issueStatusAll = "all"

var errIssueInvalidID = func(value string) *schema.Error {
	return &schema.Error{
		Type:    "issue.invalidID",
		Message: "The given issue ID is not a valid UUID.",
		Details: map[string]any{
			"id": value,
		},
	}
}

type issueQuery struct {
	Status string
	Filter *issue.Filter
	Offset uint64
	Limit  uint64
}

// parseIssueQuery reads the issue list parameters 'status', 'asset_uid', 'offset' and 'limit' out of a request
func parseIssueQuery(request *http.Request) (*issueQuery, []*schema.Error) {
	var validationErrs []*schema.Error

	status, validationErr := validation.QueryEnum(request, "status", string(issue.StatusOpen), string(issue.StatusOpen), string(issue.StatusResolved), issueStatusAll)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	offset, validationErr := validation.QueryNumber(request, "offset", false, 0, 0, math.MaxInt64)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	limit, validationErr := validation.QueryNumber(request, "limit", false, 10, 1, 1000)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	if len(validationErrs) > 0 {
		return nil, validationErrs
	}

	filter := new(issue.Filter)
	if status != issueStatusAll {
		typed := issue.Status(status)
		filter.Status = &typed
	}
	if assetUID := request.URL.Query().Get("asset_uid"); assetUID != "" {
		filter.AssetUID = &assetUID
	}
	return &issueQuery{
		Status: status,
		Filter: filter,
		Offset: uint64(offset),
		Limit:  uint64(limit),
	}, nil
}

// EndpointGetIssues handles the 'GET /api/issues?status={open|resolved|all?:open}&asset_uid={string?}&offset={number?:0}&limit={number?:10}' endpoint
func (service *Service) EndpointGetIssues(writer http.ResponseWriter, request *http.Request) {
	query, validationErrs := parseIssueQuery(request)
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	issues, n, err := service.Storage.Issues().Get(request.Context(), query.Filter, query.Offset, query.Limit)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, schema.BuildPaginatedResponse(query.Offset, query.Limit, n, issues))
}

type endpointEditIssueRequestPayload struct {
	Status *issue.Status `json:"status" required:"true"`
}

var errIssueInvalidStatus = func(value issue.Status) *schema.Error {
	return &schema.Error{
		Type:    "issue.invalidStatus",
		Message: "The given issue status is not one of the allowed values.",
		Details: map[string]any{
			"status":  value,
			"allowed": []issue.Status{issue.StatusOpen, issue.StatusResolved},
		},
	}
}

// EndpointEditIssue handles the 'PATCH /api/issues/{id}' endpoint
func (service *Service) EndpointEditIssue(writer http.ResponseWriter, request *http.Request) {
	rawID := chi.URLParam(request, "id")
	id, err := uuid.Parse(rawID)
	if err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errIssueInvalidID(rawID))
		return
	}

	// Unmarshal and validate the request body
	payload, validationErrs, err := validation.UnmarshalBody[endpointEditIssueRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}
	if !payload.Status.Valid() {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errIssueInvalidStatus(*payload.Status))
		return
	}

	obj, err := service.Storage.Issues().UpdateStatus(request.Context(), id, *payload.Status)
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
