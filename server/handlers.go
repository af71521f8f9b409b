package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/ezoic/churnpulse/dataset"
	"github.com/ezoic/churnpulse/pipeline"
	"github.com/ezoic/churnpulse/pkg/log"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "ok", ModelLoaded: s.model.Loaded()})
}

func (s *Server) predict(c *fiber.Ctx) error {
	var req ChurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid request body",
			"message": err.Error(),
		})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "validation failed",
			"detail": errs,
		})
	}

	if !s.model.Loaded() {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Model not loaded. Run training first to create artifacts/model.gob",
		})
	}
	pipe := s.model.Pipeline()
	if pipe.Task != pipeline.TaskClassification {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("loaded model is a %s pipeline; /predict needs a classification model", pipe.Task),
		})
	}

	proba, err := pipe.PredictProba(dataset.Records{req.Record()})
	if err != nil {
		return err
	}
	resp := ChurnResponse{ChurnProbability: proba[0]}
	if proba[0] >= pipeline.DefaultThreshold {
		resp.ChurnLabel = 1
	}
	s.metrics.RecordPrediction(resp.ChurnLabel)
	s.logger.Debug("Prediction",
		log.OperationKey, log.OperationPredict,
		"churn_probability", resp.ChurnProbability,
		"churn_label", resp.ChurnLabel,
	)
	return c.JSON(resp)
}
