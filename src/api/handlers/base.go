package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	controllers "reporter/src/api/controllers"
	"reporter/src/clients/mail"
	"reporter/src/clients/superset"
	"reporter/src/config"
	"reporter/src/repositories"
	"reporter/src/services"
	"reporter/src/utils"
)

type Handler struct {
	Controller controllers.DispatchControllerI
	Logger     *logrus.Logger
}

func NewHandler(cfg *config.Config) (*Handler, error) {
	logger, err := utils.GetLogger("report-scheduler", cfg.Logger.Path)
	if err != nil {
		return nil, err
	}

	supersetClient := superset.NewClient(&cfg.Superset, logger)
	controller := controllers.NewDispatchController(
		repositories.NewScheduleRepository(&cfg.Database, logger),
		services.NewAudienceService(supersetClient),
		supersetClient,
		mail.NewClient(&cfg.SMTP, logger),
		cfg.Superset.BaseURL,
		cfg.Report.LinkExpiryTime,
		logger,
	)
	return &Handler{Controller: controller, Logger: logger}, nil
}

func (h *Handler) respond(w http.ResponseWriter, _ *http.Request, data interface{}, status int) {
	res, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(res)
}
