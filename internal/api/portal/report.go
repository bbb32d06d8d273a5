package portal

import (
	"encoding/json"
	"github.com/go-chi/chi/v5"
	"github.com/skybi/assetdesk/internal/api/schema"
	"github.com/skybi/assetdesk/internal/api/validation"
	"github.com/skybi/assetdesk/internal/asset"
	"github.com/skybi/assetdesk/internal/issue"
	"mime"
	"net/http"
	"strings"
)

const maxReportFormSize = 64 << 10

var errReportFormInvalid = &schema.Error{
	Type:    "validation.requestBody.invalidForm",
	Message: "Request body is not a valid form submission.",
	Details: map[string]any{},
}

type reportPageData struct {
	Ref       *asset.Ref
	Submitted bool
}

// PageReport handles the public 'GET /report/{uid}?name={string}&location={string}' page
func (service *Service) PageReport(writer http.ResponseWriter, request *http.Request) {
	ref := asset.DecodeReportQuery(request.URL.Query())
	if ref == nil {
		service.pages.render(writer, http.StatusBadRequest, pageReportInvalid, nil)
		return
	}
	ref.UID = chi.URLParam(request, "uid")

	service.pages.render(writer, http.StatusOK, pageReport, &reportPageData{
		Ref:       ref,
		Submitted: request.URL.Query().Get("submitted") == "1",
	})
}

type endpointReportIssueRequestPayload struct {
	AssetUID    *string `json:"asset_uid" required:"true" notblank:"true"`
	Name        *string `json:"name" required:"true"`
	Location    *string `json:"location" required:"true"`
	Description *string `json:"description" required:"true" notblank:"true"`
	Reporter    string  `json:"reporter"`
}

// EndpointReportIssue handles the public 'POST /api/report-issue' endpoint.
// It accepts JSON bodies (answered with the created issue) as well as submissions of the report page form (answered
// with a redirect back to the report page).
func (service *Service) EndpointReportIssue(writer http.ResponseWriter, request *http.Request) {
	form := isFormRequest(request)

	var (
		payload        *endpointReportIssueRequestPayload
		validationErrs []*schema.Error
		err            error
	)
	if form {
		payload, validationErrs, err = reportPayloadFromForm(writer, request)
	} else {
		payload, validationErrs, err = validation.UnmarshalBody[endpointReportIssueRequestPayload](request)
	}
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	// Only issues of existing assets are accepted
	obj, err := service.Storage.Assets().GetByUID(request.Context(), *payload.AssetUID)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if obj == nil {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
		return
	}

	created, err := service.Storage.Issues().Create(request.Context(), &issue.Create{
		AssetUID:      obj.UID,
		AssetName:     *payload.Name,
		AssetLocation: *payload.Location,
		Description:   strings.TrimSpace(*payload.Description),
		Reporter:      strings.TrimSpace(payload.Reporter),
	})
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	if form {
		ref := asset.Ref{UID: obj.UID, Name: *payload.Name, Location: *payload.Location}
		http.Redirect(writer, request, asset.EncodeReportURL(ref, "")+"&submitted=1", http.StatusSeeOther)
		return
	}
	service.writer.WriteJSONCode(writer, http.StatusCreated, created)
}

// reportPayloadFromForm converts a submitted report form into the JSON payload structure and validates it the same way
func reportPayloadFromForm(writer http.ResponseWriter, request *http.Request) (*endpointReportIssueRequestPayload, []*schema.Error, error) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxReportFormSize)
	if err := request.ParseForm(); err != nil {
		return nil, []*schema.Error{errReportFormInvalid}, nil
	}

	document := make(map[string]string, 5)
	for _, key := range []string{"asset_uid", "name", "location", "description", "reporter"} {
		if request.PostForm.Has(key) {
			document[key] = request.PostForm.Get(key)
		}
	}
	body, err := json.Marshal(document)
	if err != nil {
		return nil, nil, err
	}
	return validation.ValidateJSON[endpointReportIssueRequestPayload](body)
}

func isFormRequest(request *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(request.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}
