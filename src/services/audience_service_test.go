package services_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reporter/src/models"
	"reporter/src/schemas"
	"reporter/src/services"
	"reporter/src/utils"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testContext() context.Context {
	return utils.WithLogger(context.Background(), testLogger())
}

// sqlStub answers ExecuteSQL from a canned query->rows table and records
// every statement it saw. The other client operations are unused here.
type sqlStub struct {
	replies map[string][]map[string]interface{}
	queries []string
	failOn  string
}

func (s *sqlStub) ExecuteSQL(_ context.Context, sql string) ([]map[string]interface{}, error) {
	s.queries = append(s.queries, sql)
	if s.failOn != "" && strings.Contains(sql, s.failOn) {
		return nil, fmt.Errorf("stubbed failure")
	}
	for fragment, rows := range s.replies {
		if strings.Contains(sql, fragment) {
			return rows, nil
		}
	}
	return nil, nil
}

func (s *sqlStub) FetchAccessToken(context.Context) (string, error) { return "", nil }
func (s *sqlStub) FetchGuestToken(context.Context, *int) (string, error) {
	return "", nil
}
func (s *sqlStub) GetExploreMetadata(context.Context, int, string) (*schemas.ChartMetadata, error) {
	return nil, nil
}
func (s *sqlStub) GetChartData(context.Context, *schemas.ChartMetadata, int, string) ([]map[string]interface{}, error) {
	return nil, nil
}

func userRow(uuid, name, email string) map[string]interface{} {
	return map[string]interface{}{
		"USERS_UUID":  uuid,
		"USERS_NAME":  name,
		"USERS_EMAIL": email,
	}
}

func TestExpandUserScopedEntry(t *testing.T) {
	stub := &sqlStub{replies: map[string][]map[string]interface{}{
		"USERS_ID = 7":            {userRow("u1", "cipher-name", "cipher-mail")},
		"WHERE USERS_NAME = 'ci":  {{"DECRYPTED_EMAIL": "Alice"}},
		"WHERE USERS_EMAIL = 'ci": {{"DECRYPTED_EMAIL": "alice@example.com"}},
	}}
	service := services.NewAudienceService(stub)

	recipients := service.Expand(testContext(), models.ScheduleEntry{ID: 1, UserID: 7, SliceID: 42, IsActive: true})
	require.Len(t, recipients, 1)
	assert.Equal(t, schemas.Recipient{
		UserUUID:    "u1",
		DisplayName: "Alice",
		Email:       "alice@example.com",
	}, recipients[0])

	require.NotEmpty(t, stub.queries)
	assert.Equal(t, "SELECT * FROM DIM_USER WHERE USERS_ID = 7", stub.queries[0])
}

func TestExpandRoleScopedEntry(t *testing.T) {
	stub := &sqlStub{replies: map[string][]map[string]interface{}{
		"USERS_ROLE_ID = 3": {
			userRow("u2", "c2", "m2"),
			userRow("u3", "c3", "m3"),
		},
		"decrypt_field(USERS_NAME)":  {{"DECRYPTED_EMAIL": "Name"}},
		"decrypt_field(USERS_EMAIL)": {{"DECRYPTED_EMAIL": "user@example.com"}},
	}}
	service := services.NewAudienceService(stub)

	recipients := service.Expand(testContext(), models.ScheduleEntry{ID: 2, RoleID: 3, SliceID: 9, IsActive: true})
	require.Len(t, recipients, 2)
	assert.Equal(t, "u2", recipients[0].UserUUID)
	assert.Equal(t, "u3", recipients[1].UserUUID)
	assert.Equal(t, "SELECT * FROM DIM_USER WHERE USERS_ROLE_ID = 3", stub.queries[0])
}

func TestExpandEntryWithNoAudience(t *testing.T) {
	stub := &sqlStub{}
	service := services.NewAudienceService(stub)

	recipients := service.Expand(testContext(), models.ScheduleEntry{ID: 3, SliceID: 9, IsActive: true})
	assert.Empty(t, recipients)
	assert.Empty(t, stub.queries, "no query should be issued when both ids are zero")
}

func TestExpandDropsRowOnDecryptFailure(t *testing.T) {
	stub := &sqlStub{
		replies: map[string][]map[string]interface{}{
			"USERS_ROLE_ID = 3": {
				userRow("u2", "bad-cipher", "m2"),
				userRow("u3", "good-cipher", "m3"),
			},
			"decrypt_field(USERS_NAME)":  {{"DECRYPTED_EMAIL": "Name"}},
			"decrypt_field(USERS_EMAIL)": {{"DECRYPTED_EMAIL": "user@example.com"}},
		},
		failOn: "bad-cipher",
	}
	service := services.NewAudienceService(stub)

	recipients := service.Expand(testContext(), models.ScheduleEntry{ID: 2, RoleID: 3, SliceID: 9, IsActive: true})
	require.Len(t, recipients, 1)
	assert.Equal(t, "u3", recipients[0].UserUUID)
}

func TestExpandDropsRowWithoutUUID(t *testing.T) {
	stub := &sqlStub{replies: map[string][]map[string]interface{}{
		"USERS_ROLE_ID = 3": {{"USERS_NAME": "c", "USERS_EMAIL": "m"}},
	}}
	service := services.NewAudienceService(stub)

	recipients := service.Expand(testContext(), models.ScheduleEntry{ID: 2, RoleID: 3, SliceID: 9, IsActive: true})
	assert.Empty(t, recipients)
	assert.Len(t, stub.queries, 1, "no decrypt queries for a uuid-less row")
}

func TestExpandQueryFailure(t *testing.T) {
	stub := &sqlStub{failOn: "DIM_USER"}
	service := services.NewAudienceService(stub)

	recipients := service.Expand(testContext(), models.ScheduleEntry{ID: 2, RoleID: 3, SliceID: 9, IsActive: true})
	assert.Empty(t, recipients)
}

func TestExpandLogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	ctx := utils.WithLogger(context.Background(), logger)

	stub := &sqlStub{failOn: "DIM_USER"}
	service := services.NewAudienceService(stub)

	recipients := service.Expand(ctx, models.ScheduleEntry{ID: 2, RoleID: 3, SliceID: 9, IsActive: true})
	assert.Empty(t, recipients)
	assert.Contains(t, buf.String(), "audience query failed for entry 2")
}
