// internal/workers/venue/score-venue/handler.go
package scorevenue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/common/observability"
	"venue-recommender/internal/common/validation"
	"venue-recommender/internal/scoring"
	"venue-recommender/internal/venue"
)

const TaskType = "score-venue"

type Handler struct {
	config       *Config
	calculator   *scoring.Calculator
	validator    *validation.SchemaValidator
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Calculator    *scoring.Calculator
	Validator     *validation.SchemaValidator
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	calc := opts.Calculator
	if calc == nil {
		calc = scoring.NewDefaultCalculator()
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		calculator:   calc,
		validator:    opts.Validator,
		errorHandler: errors.NewErrorHandler(log),
		obs:          opts.Observability,
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute scores a single venue. When no distance is supplied it is derived
// from the event location and the venue coordinates, if both are known.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidJobInputError("input cannot be nil")
	}
	if err := input.EventRequirements.Validate(); err != nil {
		return nil, err
	}
	if err := input.Venue.Validate(); err != nil {
		return nil, err
	}

	distance := input.DistanceKm
	if distance == nil && input.EventRequirements.Location != nil && input.Venue.HasCoordinates() {
		d := venue.DistanceKm(*input.EventRequirements.Location, input.Venue.Point())
		distance = &d
	}

	res := h.calculator.Score(input.Venue, input.EventRequirements, distance)
	metrics.VenuesScored.WithLabelValues(string(res.Profile)).Inc()
	h.obs.RecordScore(ctx, string(res.Profile), res.Score)

	h.logger.Info("venue scored", map[string]interface{}{
		"venueId": input.Venue.ID,
		"score":   res.Score,
		"profile": string(res.Profile),
	})

	return &Output{
		SuitabilityScore: res.Score,
		ScoreBreakdown:   res.Breakdown,
		ScoringProfile:   string(res.Profile),
		DistanceKm:       distance,
	}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidJobInputError(fmt.Sprintf("variables are not a JSON object: %v", err))
	}
	if err := h.validator.Validate(TaskType, variables); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInvalidJobInputError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		h.failJob(ctx, client, job, errors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}
