package superset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"reporter/src/config"
	"reporter/src/schemas"
	requests "reporter/src/utils/requests"
)

const loginProvider = "db"

type ServiceClientI interface {
	FetchAccessToken(ctx context.Context) (string, error)
	FetchGuestToken(ctx context.Context, dashboardID *int) (string, error)
	GetExploreMetadata(ctx context.Context, sliceID int, userUUID string) (*schemas.ChartMetadata, error)
	GetChartData(ctx context.Context, metadata *schemas.ChartMetadata, sliceID int, userUUID string) ([]map[string]interface{}, error)
	ExecuteSQL(ctx context.Context, sql string) ([]map[string]interface{}, error)
}

// ServiceClient is a struct that uses ExternalAPIService to interact with the
// Superset API. Tokens are never cached; every call fetches fresh credentials
// so the client carries no mutable state.
type ServiceClient struct {
	API       *requests.ExternalAPIService
	BaseURL   string
	Username  string
	Password  string
	FirstName string
	LastName  string
	// DatabaseID is the host database SQL Lab statements run against.
	DatabaseID int
	Logger     *logrus.Logger
}

// NewClient creates a new instance of ServiceClient
func NewClient(cfg *config.SupersetConfig, logger *logrus.Logger) *ServiceClient {
	return &ServiceClient{
		API:        requests.NewExternalAPIService(nil),
		BaseURL:    cfg.BaseURL,
		Username:   cfg.Username,
		Password:   cfg.Password,
		FirstName:  cfg.FirstName,
		LastName:   cfg.LastName,
		DatabaseID: cfg.DatabaseID,
		Logger:     logger,
	}
}

// FetchAccessToken exchanges the configured username and password for an
// access token at the host's login endpoint.
func (s *ServiceClient) FetchAccessToken(ctx context.Context) (string, error) {
	body := schemas.LoginRequest{
		Username: s.Username,
		Password: s.Password,
		Provider: loginProvider,
		Refresh:  true,
	}

	resp, err := s.API.Post(ctx, s.BaseURL+"/api/v1/security/login", "", nil, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed | Status Code: %d", resp.StatusCode)
	}

	var loginResponse schemas.LoginResponse
	if err := decodeBody(resp.Body, &loginResponse); err != nil {
		return "", err
	}
	if loginResponse.AccessToken == "" {
		return "", fmt.Errorf("login reply carried no access token")
	}
	return loginResponse.AccessToken, nil
}

// FetchGuestToken exchanges a fresh access token for a short-lived guest
// token. A non-nil dashboardID scopes the token to that dashboard.
func (s *ServiceClient) FetchGuestToken(ctx context.Context, dashboardID *int) (string, error) {
	accessToken, err := s.FetchAccessToken(ctx)
	if err != nil {
		return "", err
	}

	resources := []schemas.GuestResource{}
	if dashboardID != nil {
		resources = append(resources, schemas.GuestResource{Type: "dashboard", ID: *dashboardID})
	}
	body := schemas.GuestTokenRequest{
		User: schemas.GuestUser{
			Username:  s.Username,
			FirstName: s.FirstName,
			LastName:  s.LastName,
		},
		RLS:       []schemas.RLSRule{},
		Resources: resources,
	}

	resp, err := s.API.Post(ctx, s.BaseURL+"/api/v1/security/guest_token", accessToken, nil, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("guest token fetch failed | Status Code: %d", resp.StatusCode)
	}

	var tokenResponse schemas.GuestTokenResponse
	if err := decodeBody(resp.Body, &tokenResponse); err != nil {
		return "", err
	}
	if tokenResponse.Token == "" {
		return "", fmt.Errorf("guest token reply carried no token")
	}
	return tokenResponse.Token, nil
}

// GetExploreMetadata retrieves the chart's dataset handle, display name and
// form data. slice_id and user_uuid travel both as query string and JSON body;
// the host tolerates either.
func (s *ServiceClient) GetExploreMetadata(ctx context.Context, sliceID int, userUUID string) (*schemas.ChartMetadata, error) {
	token, err := s.FetchAccessToken(ctx)
	if err != nil {
		s.Logger.Errorf("explore metadata: token fetch failed for slice %d: %v", sliceID, err)
		return nil, err
	}

	params := url.Values{}
	params.Set("slice_id", strconv.Itoa(sliceID))
	params.Set("user_uuid", userUUID)
	body := map[string]interface{}{
		"slice_id":  sliceID,
		"user_uuid": userUUID,
	}

	resp, err := s.API.GetWithBody(ctx, s.BaseURL+"/api/v1/explore/", token, params, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explore metadata fetch failed | Status Code: %d", resp.StatusCode)
	}

	var exploreResponse schemas.ExploreResponse
	if err := decodeBody(resp.Body, &exploreResponse); err != nil {
		return nil, err
	}
	return buildChartMetadata(&exploreResponse), nil
}

// GetChartData executes the chart's query for the given recipient and returns
// the row list, or nil when the chart has no rows for them.
func (s *ServiceClient) GetChartData(ctx context.Context, metadata *schemas.ChartMetadata, sliceID int, userUUID string) ([]map[string]interface{}, error) {
	token, err := s.FetchGuestToken(ctx, nil)
	if err != nil {
		s.Logger.Errorf("chart data: guest token fetch failed for slice %d: %v", sliceID, err)
		return nil, err
	}

	formData := map[string]interface{}{}
	for k, v := range metadata.FormData {
		formData[k] = v
	}
	formData["user_uuid"] = userUUID

	body := schemas.ChartDataRequest{
		Datasource: schemas.ChartDatasource{ID: metadata.DatasourceID, Type: metadata.DatasourceType},
		Queries: []schemas.ChartDataQuery{{
			Columns:     metadata.AllColumns,
			Filters:     []interface{}{},
			OrderBy:     []interface{}{},
			Granularity: metadata.GranularitySQLA,
			Extras: schemas.ChartDataExtras{
				Having:        "",
				Where:         "",
				TimeGrainSQLA: metadata.TimeGrainSQLA,
			},
			TimeRange:         "No filter",
			RowLimit:          1000,
			SeriesLimit:       0,
			OrderDesc:         true,
			URLParams:         metadata.URLParams,
			PostProcessing:    []interface{}{},
			AppliedTimeExtras: map[string]interface{}{},
			CustomParams:      map[string]interface{}{},
			CustomFormData:    map[string]interface{}{},
			AnnotationLayers:  []interface{}{},
		}},
		FormData:     formData,
		ResultFormat: "json",
		ResultType:   "full",
		Force:        "false",
	}

	params := url.Values{}
	params.Set("slice_id", strconv.Itoa(sliceID))
	params.Set("user_uuid", userUUID)

	resp, err := s.API.Post(ctx, s.BaseURL+"/api/v1/chart/data", token, params, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart data fetch failed | Status Code: %d", resp.StatusCode)
	}

	var dataResponse schemas.ChartDataResponse
	if err := decodeBody(resp.Body, &dataResponse); err != nil {
		return nil, err
	}
	if len(dataResponse.Result) == 0 || len(dataResponse.Result[0].Data) == 0 {
		s.Logger.Infof("chart %d returned no rows for user %s", sliceID, userUUID)
		return nil, nil
	}
	return dataResponse.Result[0].Data, nil
}

// ExecuteSQL runs one statement through the host's SQL Lab endpoint against
// the configured database and returns the result rows.
func (s *ServiceClient) ExecuteSQL(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	token, err := s.FetchAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := schemas.SQLLabRequest{
		DatabaseID: s.DatabaseID,
		SQL:        sql,
		RunAsync:   false,
	}

	resp, err := s.API.Post(ctx, s.BaseURL+"/api/v1/sqllab/execute/", token, nil, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sql execution failed | Status Code: %d", resp.StatusCode)
	}

	var sqlResponse schemas.SQLLabResponse
	if err := decodeBody(resp.Body, &sqlResponse); err != nil {
		return nil, err
	}
	if sqlResponse.Status != "" && !strings.EqualFold(sqlResponse.Status, "success") {
		return nil, fmt.Errorf("sql execution returned status %q", sqlResponse.Status)
	}
	return sqlResponse.Data, nil
}

// buildChartMetadata flattens the explore reply into the fields the dispatch
// pipeline consumes. The dataset type rides inside form_data's "id__type"
// datasource handle.
func buildChartMetadata(resp *schemas.ExploreResponse) *schemas.ChartMetadata {
	formData := resp.Result.FormData
	if formData == nil {
		formData = map[string]interface{}{}
	}

	metadata := &schemas.ChartMetadata{
		DatasourceID:   resp.Result.Dataset.ID,
		DatasourceType: "table",
		DatasourceName: resp.Result.Dataset.Name,
		FormData:       formData,
	}

	if handle, ok := formData["datasource"].(string); ok {
		if parts := strings.SplitN(handle, "__", 2); len(parts) == 2 {
			metadata.DatasourceType = parts[1]
			if metadata.DatasourceID == 0 {
				if id, err := strconv.Atoi(parts[0]); err == nil {
					metadata.DatasourceID = id
				}
			}
		}
	}
	if columns, ok := formData["all_columns"].([]interface{}); ok {
		for _, col := range columns {
			if name, ok := col.(string); ok {
				metadata.AllColumns = append(metadata.AllColumns, name)
			}
		}
	}
	if granularity, ok := formData["granularity_sqla"].(string); ok {
		metadata.GranularitySQLA = granularity
	}
	if grain, ok := formData["time_grain_sqla"].(string); ok {
		metadata.TimeGrainSQLA = grain
	}
	if urlParams, ok := formData["url_params"].(map[string]interface{}); ok {
		metadata.URLParams = urlParams
	}
	return metadata
}

func decodeBody(body io.Reader, v interface{}) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
