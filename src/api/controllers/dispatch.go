package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reporter/src/clients/mail"
	"reporter/src/clients/superset"
	"reporter/src/repositories"
	"reporter/src/services"
)

// ErrNoEntries signals an empty scheduler store read; the HTTP layer maps it
// to a 500 reply.
var ErrNoEntries = errors.New("no schedule entries found")

const mailBodyTemplate = `Dear %s,

Your scheduled report is ready. Use the link below to download it; the link expires after the configured validity window:

%s

Regards,
Reporting Team`

type DispatchControllerI interface {
	DispatchReports(ctx context.Context) error
}

// DispatchController drives one full report delivery run: scheduler store ->
// audience expansion -> chart metadata and data -> mail. Per-recipient
// failures are isolated; only a failed store read or an escaping error
// surfaces to the caller.
type DispatchController struct {
	Schedules repositories.ScheduleRepositoryI
	Audience  services.AudienceServiceI
	Superset  superset.ServiceClientI
	Mailer    mail.ServiceI

	BaseURL string
	// LinkExpirySeconds bounds the validity of emitted download links.
	LinkExpirySeconds int64
	Logger            *logrus.Logger
}

func NewDispatchController(
	schedules repositories.ScheduleRepositoryI,
	audience services.AudienceServiceI,
	supersetClient superset.ServiceClientI,
	mailer mail.ServiceI,
	baseURL string,
	linkExpirySeconds int64,
	logger *logrus.Logger,
) *DispatchController {
	return &DispatchController{
		Schedules:         schedules,
		Audience:          audience,
		Superset:          supersetClient,
		Mailer:            mailer,
		BaseURL:           baseURL,
		LinkExpirySeconds: linkExpirySeconds,
		Logger:            logger,
	}
}

// DispatchReports processes every active schedule entry and mails each
// resolved recipient a signed-path download link for their chart. It returns
// ErrNoEntries when the store read yields nothing and otherwise only an error
// for a failure escaping the loop itself.
func (c *DispatchController) DispatchReports(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("dispatch failed: %v", p)
		}
	}()

	runID := uuid.NewString()

	entries := c.Schedules.FetchEntries()
	if len(entries) == 0 {
		c.Logger.Errorf("run %s: no schedule entries found", runID)
		return ErrNoEntries
	}
	c.Logger.Infof("run %s: dispatching %d schedule entries", runID, len(entries))

	for _, entry := range entries {
		if !entry.IsActive {
			c.Logger.Infof("run %s: entry %d is inactive, skipping", runID, entry.ID)
			continue
		}

		recipients := c.Audience.Expand(ctx, entry)
		c.Logger.Infof("run %s: entry %d expanded to %d recipients", runID, entry.ID, len(recipients))

		for _, recipient := range recipients {
			metadata, err := c.Superset.GetExploreMetadata(ctx, entry.SliceID, recipient.UserUUID)
			if err != nil || metadata == nil {
				c.Logger.Errorf("run %s: no metadata for slice %d, user %s: %v", runID, entry.SliceID, recipient.UserUUID, err)
				continue
			}

			data, err := c.Superset.GetChartData(ctx, metadata, entry.SliceID, recipient.UserUUID)
			if err != nil {
				c.Logger.Errorf("run %s: chart data failed for slice %d, user %s: %v", runID, entry.SliceID, recipient.UserUUID, err)
				continue
			}
			if len(data) == 0 {
				c.Logger.Infof("run %s: chart %d empty for user %s, skipping", runID, entry.SliceID, recipient.UserUUID)
				continue
			}

			now := time.Now()
			expire := now.Unix() + c.LinkExpirySeconds
			url := fmt.Sprintf("%s/api/download-report/%s/%d/%d", c.BaseURL, recipient.UserUUID, entry.SliceID, expire)
			subject := fmt.Sprintf("Scheduled Report %s run on %s", metadata.DatasourceName, now.Format("02-01-2006"))
			body := fmt.Sprintf(mailBodyTemplate, recipient.DisplayName, url)

			if !c.Mailer.Send(ctx, subject, body, []string{recipient.Email}) {
				c.Logger.Errorf("run %s: mail to %s failed for slice %d", runID, recipient.Email, entry.SliceID)
				continue
			}
			c.Logger.Infof("run %s: report for slice %d mailed to %s", runID, entry.SliceID, recipient.Email)
		}
	}

	c.Logger.Infof("run %s: dispatch completed", runID)
	return nil
}
