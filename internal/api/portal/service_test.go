package portal

import (
	"context"
	"encoding/json"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/skybi/assetdesk/internal/api/portal/session/storage/inmem"
	"github.com/skybi/assetdesk/internal/asset"
	"github.com/skybi/assetdesk/internal/config"
	"github.com/skybi/assetdesk/internal/identity"
	"github.com/skybi/assetdesk/internal/issue"
	"github.com/skybi/assetdesk/internal/storage/memory"
	"github.com/skybi/assetdesk/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

const testBaseAddress = "https://x.io"

type testPortal struct {
	service *Service
	router  http.Handler
}

func newTestPortal(t *testing.T, validator session.Validator) *testPortal {
	driver := memory.New()
	require.NoError(t, driver.Initialize(context.Background()))
	sessions, err := inmem.New()
	require.NoError(t, err)

	service := &Service{
		Config: &config.Config{
			BaseAddress:          testBaseAddress,
			AllowedOrigin:        "*",
			SessionLifetime:      time.Hour,
			SessionRefreshLeeway: time.Minute,
		},
		Storage:        driver,
		SessionStorage: sessions,
		Validator:      validator,
	}
	router, err := service.Router()
	require.NoError(t, err)
	return &testPortal{service: service, router: router}
}

// login registers a user and establishes a session for them
func (portal *testPortal) login(t *testing.T, admin bool) *http.Cookie {
	ctx := context.Background()
	_, err := portal.service.Storage.Users().Create(ctx, &user.Create{
		ID:          "user-1",
		DisplayName: "Jane Doe",
		Email:       "jane@example.com",
		Admin:       admin,
	})
	require.NoError(t, err)
	cookie, err := portal.service.identity.Establish(ctx, "user-1", "sid-1", &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return cookie
}

func (portal *testPortal) createAsset(t *testing.T, name, location string) *asset.Asset {
	obj, err := portal.service.Storage.Assets().Create(context.Background(), &asset.Create{Name: name, Location: location})
	require.NoError(t, err)
	return obj
}

func (portal *testPortal) do(method, target string, body io.Reader, contentType string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	portal.router.ServeHTTP(rr, req)
	return rr
}

type countingValidator struct {
	calls int
}

func (validator *countingValidator) Validate(_ context.Context, _ *http.Request) (*session.Outcome, error) {
	validator.calls++
	return nil, nil
}

func TestExcludedPathsBypassValidator(t *testing.T) {
	validator := &countingValidator{}
	portal := newTestPortal(t, validator)

	for _, target := range []string{
		"/_next/static/app.css",
		"/_next/static/logo.svg",
		"/favicon.ico",
		"/auth/login",
		"/report/a1?name=Forklift&location=Hall",
	} {
		rr := portal.do(http.MethodGet, target, nil, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, target)
	}
	require.Zero(t, validator.calls)
}

func TestGuardedRequestsValidateOnce(t *testing.T) {
	validator := &countingValidator{}
	portal := newTestPortal(t, validator)

	rr := portal.do(http.MethodGet, "/issues?status=all", nil, "", nil)
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "/auth/login?afterwards="+url.QueryEscape("/issues?status=all"), rr.Header().Get("Location"))
	require.Equal(t, 1, validator.calls)

	rr = portal.do(http.MethodGet, "/api/me", nil, "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "access.unauthorized")
	require.Equal(t, 2, validator.calls)
}

func TestSessionCookieIsRefreshed(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)

	rr := portal.do(http.MethodGet, "/api/me", nil, "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	obj := new(user.User)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), obj))
	require.Equal(t, "user-1", obj.ID)

	var refreshed *http.Cookie
	for _, candidate := range rr.Result().Cookies() {
		if candidate.Name == identity.CookieNameSession {
			refreshed = candidate
		}
	}
	require.NotNil(t, refreshed)
	require.Equal(t, cookie.Value, refreshed.Value)
}

func TestStaleSessionCookieIsCleared(t *testing.T) {
	portal := newTestPortal(t, nil)

	rr := portal.do(http.MethodGet, "/dashboard", nil, "", &http.Cookie{Name: identity.CookieNameSession, Value: "unknown"})
	require.Equal(t, http.StatusFound, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, identity.CookieNameSession, cookies[0].Name)
	require.Empty(t, cookies[0].Value)
}

func TestRootRedirectsToDashboard(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)

	rr := portal.do(http.MethodGet, "/", nil, "", cookie)
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "/dashboard", rr.Header().Get("Location"))
}

func TestDashboardShowsReportLinks(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)
	obj := portal.createAsset(t, "Forklift #2", "Warehouse B")
	_, err := portal.service.Storage.Issues().Create(context.Background(), &issue.Create{
		AssetUID:      obj.UID,
		AssetName:     obj.Name,
		AssetLocation: obj.Location,
		Description:   "Hydraulics leaking",
	})
	require.NoError(t, err)

	rr := portal.do(http.MethodGet, "/dashboard", nil, "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, testBaseAddress+"/report/"+obj.UID+"?name=Forklift%20%232")
	require.Contains(t, body, "Hydraulics leaking")
	require.Contains(t, body, "Jane Doe")
}

func TestIssuesPage(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)

	rr := portal.do(http.MethodGet, "/issues?status=resolved", nil, "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "No issues found.")

	rr = portal.do(http.MethodGet, "/issues?status=closed", nil, "", cookie)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReportPage(t *testing.T) {
	portal := newTestPortal(t, nil)

	rr := portal.do(http.MethodGet, "/report/a1?name=Forklift%20%232&location=Warehouse%20B", nil, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Forklift #2")
	require.Contains(t, rr.Body.String(), `value="a1"`)

	rr = portal.do(http.MethodGet, "/report/a1?name=Forklift&location=Hall&submitted=1", nil, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Thank you!")

	rr = portal.do(http.MethodGet, "/report/a1?name=Forklift", nil, "", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Invalid report link")
}

func TestReportIssueJSON(t *testing.T) {
	portal := newTestPortal(t, nil)
	obj := portal.createAsset(t, "Forklift #2", "Warehouse B")

	body := `{"asset_uid":"` + obj.UID + `","name":"Forklift #2","location":"Warehouse B","description":" Flat tire ","reporter":"bob"}`
	rr := portal.do(http.MethodPost, "/api/report-issue", strings.NewReader(body), "application/json", nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	created := new(issue.Issue)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), created))
	require.Equal(t, "Flat tire", created.Description)
	require.Equal(t, issue.StatusOpen, created.Status)

	stored, err := portal.service.Storage.Issues().GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, obj.UID, stored.AssetUID)
}

func TestReportIssueForm(t *testing.T) {
	portal := newTestPortal(t, nil)
	obj := portal.createAsset(t, "Forklift #2", "Warehouse B")

	form := url.Values{
		"asset_uid":   {obj.UID},
		"name":        {"Forklift #2"},
		"location":    {"Warehouse B"},
		"description": {"Horn broken"},
	}
	rr := portal.do(http.MethodPost, "/api/report-issue", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/report/"+obj.UID+"?name=Forklift%20%232&location=Warehouse%20B&submitted=1", rr.Header().Get("Location"))

	issues, n, err := portal.service.Storage.Issues().Get(context.Background(), &issue.Filter{}, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, "Horn broken", issues[0].Description)
}

func TestReportIssueRejectsInvalidSubmissions(t *testing.T) {
	portal := newTestPortal(t, nil)
	obj := portal.createAsset(t, "Forklift", "Hall")

	rr := portal.do(http.MethodPost, "/api/report-issue", strings.NewReader(`{"asset_uid":"`+obj.UID+`","name":"Forklift","location":"Hall","description":"  "}`), "application/json", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "validation.requestBody.parameter.blank")

	rr = portal.do(http.MethodPost, "/api/report-issue", strings.NewReader(`{"asset_uid":"`+obj.UID+`","description":"x"}`), "application/json", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "validation.requestBody.parameter.missing")

	rr = portal.do(http.MethodPost, "/api/report-issue", strings.NewReader(`{"asset_uid":"missing","name":"a","location":"b","description":"x"}`), "application/json", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAssetEndpoints(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)

	rr := portal.do(http.MethodPost, "/api/assets", strings.NewReader(`{"name":"Forklift #2","location":"Warehouse B"}`), "application/json", cookie)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := new(assetWithReportLink)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), created))
	require.NotEmpty(t, created.UID)

	rr = portal.do(http.MethodGet, "/api/assets/"+created.UID+"/report_link", nil, "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	link := make(map[string]string)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &link))
	require.Equal(t, testBaseAddress+"/report/"+created.UID+"?name=Forklift%20%232&location=Warehouse%20B", link["url"])

	rr = portal.do(http.MethodPatch, "/api/assets/"+created.UID, strings.NewReader(`{"location":"Warehouse C"}`), "application/json", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"location":"Warehouse C"`)

	rr = portal.do(http.MethodPatch, "/api/assets/"+created.UID, strings.NewReader(`{"name":""}`), "application/json", cookie)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = portal.do(http.MethodGet, "/api/assets?limit=5", nil, "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"total_count":1`)

	rr = portal.do(http.MethodDelete, "/api/assets/"+created.UID, nil, "", cookie)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "access.adminRequired")

	rr = portal.do(http.MethodGet, "/api/assets/unknown", nil, "", cookie)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

// vanishingAssets simulates an asset being deleted between its lookup and its update
type vanishingAssets struct {
	asset.Repository
}

func (repo *vanishingAssets) Update(ctx context.Context, uid string, _ *asset.Update) (*asset.Asset, error) {
	if err := repo.Repository.Delete(ctx, uid); err != nil {
		return nil, err
	}
	return nil, nil
}

type vanishingAssetsDriver struct {
	*memory.Driver
}

func (driver *vanishingAssetsDriver) Assets() asset.Repository {
	return &vanishingAssets{Repository: driver.Driver.Assets()}
}

func TestEditAssetDeletedConcurrently(t *testing.T) {
	portal := newTestPortal(t, nil)
	portal.service.Storage = &vanishingAssetsDriver{Driver: portal.service.Storage.(*memory.Driver)}
	cookie := portal.login(t, false)
	obj := portal.createAsset(t, "Forklift", "Hall")

	rr := portal.do(http.MethodPatch, "/api/assets/"+obj.UID, strings.NewReader(`{"location":"Warehouse C"}`), "application/json", cookie)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminDeletesAsset(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, true)
	obj := portal.createAsset(t, "Forklift", "Hall")

	rr := portal.do(http.MethodDelete, "/api/assets/"+obj.UID, nil, "", cookie)
	require.Equal(t, http.StatusNoContent, rr.Code)

	stored, err := portal.service.Storage.Assets().GetByUID(context.Background(), obj.UID)
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestEditIssueStatus(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)
	obj := portal.createAsset(t, "Forklift", "Hall")
	created, err := portal.service.Storage.Issues().Create(context.Background(), &issue.Create{
		AssetUID:      obj.UID,
		AssetName:     obj.Name,
		AssetLocation: obj.Location,
		Description:   "Broken",
	})
	require.NoError(t, err)

	rr := portal.do(http.MethodPatch, "/api/issues/"+created.ID.String(), strings.NewReader(`{"status":"resolved"}`), "application/json", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	updated := new(issue.Issue)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), updated))
	require.Equal(t, issue.StatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)

	rr = portal.do(http.MethodGet, "/api/issues?status=resolved", nil, "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), created.ID.String())

	rr = portal.do(http.MethodPatch, "/api/issues/"+created.ID.String(), strings.NewReader(`{"status":"closed"}`), "application/json", cookie)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = portal.do(http.MethodPatch, "/api/issues/not-a-uuid", strings.NewReader(`{"status":"open"}`), "application/json", cookie)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserEndpointsRequireAdmin(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)

	rr := portal.do(http.MethodGet, "/api/users/user-1", nil, "", cookie)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAdminEditsUser(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, true)

	rr := portal.do(http.MethodPatch, "/api/users/user-1", strings.NewReader(`{"display_name":"Jane D."}`), "application/json", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"display_name":"Jane D."`)

	rr = portal.do(http.MethodGet, "/api/users/unknown", nil, "", cookie)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLogout(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)

	rr := portal.do(http.MethodPost, "/api/auth/logout", nil, "", cookie)
	require.Equal(t, http.StatusNoContent, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)

	rr = portal.do(http.MethodGet, "/api/me", nil, "", cookie)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutFormRedirectsToLogin(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)

	rr := portal.do(http.MethodPost, "/api/auth/logout", strings.NewReader(""), "application/x-www-form-urlencoded", cookie)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/auth/login", rr.Header().Get("Location"))
}

func TestDeleteSelfUserData(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)

	rr := portal.do(http.MethodDelete, "/api/me", nil, "", cookie)
	require.Equal(t, http.StatusNoContent, rr.Code)

	obj, err := portal.service.Storage.Users().GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Nil(t, obj)

	ses, err := portal.service.SessionStorage.GetByRawToken(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.Nil(t, ses)
}

func TestSafeRedirectTarget(t *testing.T) {
	testCases := map[string]string{
		"":                    "/dashboard",
		"/issues?status=open": "/issues?status=open",
		"//evil.example.com":  "/dashboard",
		"/\\evil.example.com": "/dashboard",
		"https://evil.com":    "/dashboard",
	}
	for input, expected := range testCases {
		require.Equal(t, expected, safeRedirectTarget(input), input)
	}
}

func TestBackchannelLogoutRequiresToken(t *testing.T) {
	portal := newTestPortal(t, nil)

	rr := portal.do(http.MethodPost, "/api/auth/oidc/backchannel_logout", strings.NewReader(""), "application/x-www-form-urlencoded", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	portal := newTestPortal(t, nil)
	cookie := portal.login(t, false)

	rr := portal.do(http.MethodGet, "/api/unknown", nil, "", cookie)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "generic.notFound")
}
