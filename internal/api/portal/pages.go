package portal

import (
	"bytes"
	"embed"
	"github.com/rs/zerolog/log"
	"github.com/skybi/assetdesk/internal/issue"
	"github.com/skybi/assetdesk/internal/user"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates
var templateFiles embed.FS

const (
	pageLogin         = "login.html"
	pageDashboard     = "dashboard.html"
	pageIssues        = "issues.html"
	pageReport        = "report.html"
	pageReportInvalid = "report_invalid.html"

	dashboardAssetLimit = 50
	dashboardIssueLimit = 10
)

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 MST")
	},
	"add": func(a, b uint64) uint64 {
		return a + b
	},
	"sub": func(a, b uint64) uint64 {
		if b > a {
			return 0
		}
		return a - b
	},
}

// pageRenderer renders the server-side pages; every page is parsed together with the shared layout
type pageRenderer struct {
	pages map[string]*template.Template
}

func newPageRenderer() (*pageRenderer, error) {
	renderer := &pageRenderer{
		pages: make(map[string]*template.Template),
	}
	for _, page := range []string{pageLogin, pageDashboard, pageIssues, pageReport, pageReportInvalid} {
		tmpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFiles, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, err
		}
		renderer.pages[page] = tmpl
	}
	return renderer, nil
}

// render executes a page into a buffer first so that template errors never produce half-written responses
func (renderer *pageRenderer) render(writer http.ResponseWriter, status int, page string, data any) {
	var buffer bytes.Buffer
	if err := renderer.pages[page].Execute(&buffer, data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("could not render page")
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(status)
	buffer.WriteTo(writer)
}

type loginPageData struct {
	Afterwards string
}

// PageLogin handles the public 'GET /auth/login?afterwards={string?}' page
func (service *Service) PageLogin(writer http.ResponseWriter, request *http.Request) {
	service.pages.render(writer, http.StatusOK, pageLogin, &loginPageData{
		Afterwards: safeRedirectTarget(request.URL.Query().Get("afterwards")),
	})
}

type dashboardPageData struct {
	User             *user.User
	AssetCount       uint64
	OpenIssueCount   uint64
	Assets           []*assetWithReportLink
	RecentOpenIssues []*issue.Issue
}

// PageDashboard handles the 'GET /dashboard' page
func (service *Service) PageDashboard(writer http.ResponseWriter, request *http.Request) {
	assets, assetCount, err := service.Storage.Assets().Get(request.Context(), 0, dashboardAssetLimit)
	if err != nil {
		service.internalPageError(writer, err)
		return
	}

	open := issue.StatusOpen
	issues, openIssueCount, err := service.Storage.Issues().Get(request.Context(), &issue.Filter{Status: &open}, 0, dashboardIssueLimit)
	if err != nil {
		service.internalPageError(writer, err)
		return
	}

	data := &dashboardPageData{
		User:             sessionUser(request),
		AssetCount:       assetCount,
		OpenIssueCount:   openIssueCount,
		Assets:           make([]*assetWithReportLink, 0, len(assets)),
		RecentOpenIssues: issues,
	}
	for _, obj := range assets {
		data.Assets = append(data.Assets, service.withReportLink(obj))
	}
	service.pages.render(writer, http.StatusOK, pageDashboard, data)
}

type issuesPageData struct {
	User   *user.User
	Status string
	Issues []*issue.Issue
	Offset uint64
	Limit  uint64
	Total  uint64
}

// PageIssues handles the 'GET /issues?status={open|resolved|all?:open}&offset={number?:0}&limit={number?:10}' page
func (service *Service) PageIssues(writer http.ResponseWriter, request *http.Request) {
	query, validationErrs := parseIssueQuery(request)
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	issues, n, err := service.Storage.Issues().Get(request.Context(), query.Filter, query.Offset, query.Limit)
	if err != nil {
		service.internalPageError(writer, err)
		return
	}

	service.pages.render(writer, http.StatusOK, pageIssues, &issuesPageData{
		User:   sessionUser(request),
		Status: query.Status,
		Issues: issues,
		Offset: query.Offset,
		Limit:  query.Limit,
		Total:  n,
	})
}

func (service *Service) internalPageError(writer http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("the portal experienced an unexpected error")
	http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
