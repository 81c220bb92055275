package services

import (
	"context"
	"fmt"
	"strings"

	"reporter/src/clients/superset"
	"reporter/src/models"
	"reporter/src/schemas"
	"reporter/src/utils"
)

type AudienceServiceI interface {
	Expand(ctx context.Context, entry models.ScheduleEntry) []schemas.Recipient
}

// AudienceService turns one schedule entry into the concrete recipient list.
// Expansion runs entirely through the host's SQL Lab endpoint: one DIM_USER
// query per entry, plus two decrypt_field follow-ups per returned row.
type AudienceService struct {
	Superset superset.ServiceClientI
}

func NewAudienceService(client superset.ServiceClientI) *AudienceService {
	return &AudienceService{Superset: client}
}

// Expand resolves the entry's audience. A role-scoped entry expands to every
// user in the role, a user-scoped one to that single user; an entry with both
// ids zero expands to nothing. Rows whose lookup or decryption fails are
// dropped individually, the rest of the audience survives.
func (s *AudienceService) Expand(ctx context.Context, entry models.ScheduleEntry) []schemas.Recipient {
	logger := utils.LoggerFromContext(ctx)

	var query string
	switch {
	case entry.RoleID != 0:
		query = fmt.Sprintf("SELECT * FROM DIM_USER WHERE USERS_ROLE_ID = %d", entry.RoleID)
	case entry.UserID != 0:
		query = fmt.Sprintf("SELECT * FROM DIM_USER WHERE USERS_ID = %d", entry.UserID)
	default:
		return nil
	}

	rows, err := s.Superset.ExecuteSQL(ctx, query)
	if err != nil {
		logger.Errorf("audience query failed for entry %d: %v", entry.ID, err)
		return nil
	}

	var recipients []schemas.Recipient
	for _, row := range rows {
		uuid := stringField(row, "USERS_UUID")
		if uuid == "" {
			logger.Errorf("entry %d: user row without uuid, dropping", entry.ID)
			continue
		}

		name, err := s.decryptField(ctx, "USERS_NAME", stringField(row, "USERS_NAME"))
		if err != nil {
			logger.Errorf("entry %d: could not decrypt name for user %s: %v", entry.ID, uuid, err)
			continue
		}
		email, err := s.decryptField(ctx, "USERS_EMAIL", stringField(row, "USERS_EMAIL"))
		if err != nil {
			logger.Errorf("entry %d: could not decrypt email for user %s: %v", entry.ID, uuid, err)
			continue
		}

		recipients = append(recipients, schemas.Recipient{
			UserUUID:    uuid,
			DisplayName: name,
			Email:       email,
		})
	}
	return recipients
}

// decryptField exchanges one ciphertext value for its plaintext through the
// host-side decrypt_field function. The host aliases the result as
// DECRYPTED_EMAIL for both name and email columns.
func (s *AudienceService) decryptField(ctx context.Context, column, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", fmt.Errorf("empty ciphertext for column %s", column)
	}
	query := fmt.Sprintf(
		"SELECT decrypt_field(%s) AS decrypted_email FROM DIM_USER WHERE %s = '%s';",
		column, column, strings.ReplaceAll(ciphertext, "'", "''"),
	)

	rows, err := s.Superset.ExecuteSQL(ctx, query)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("decrypt query for %s returned no rows", column)
	}
	value := stringField(rows[0], "DECRYPTED_EMAIL")
	if value == "" {
		return "", fmt.Errorf("decrypt query for %s returned no value", column)
	}
	return value, nil
}

// stringField reads a column from a result row, tolerating either upper or
// lower case keys in the host reply.
func stringField(row map[string]interface{}, key string) string {
	for _, k := range []string{key, strings.ToLower(key)} {
		if v, ok := row[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
