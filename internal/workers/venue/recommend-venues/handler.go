// internal/workers/venue/recommend-venues/handler.go
package recommendvenues

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
	"venue-recommender/internal/common/validation"
	"venue-recommender/internal/recommendation"
	"venue-recommender/internal/venue"
)

const TaskType = "recommend-venues"

// Recommender is the slice of the recommendation engine this worker needs.
type Recommender interface {
	RecommendDetailed(ctx context.Context, req venue.EventRequirements, topN int) (*recommendation.Result, error)
}

type Handler struct {
	config       *Config
	engine       Recommender
	validator    *validation.SchemaValidator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Engine       Recommender
	Validator    *validation.SchemaValidator
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("%s requires a recommendation engine", TaskType)
	}
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		engine:       opts.Engine,
		validator:    opts.Validator,
		errorHandler: errors.NewErrorHandler(log),
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidJobInputError("input cannot be nil")
	}

	topN := h.resolveTopN(input.TopN)
	res, err := h.engine.RecommendDetailed(ctx, input.EventRequirements, topN)
	if err != nil {
		return nil, err
	}

	h.logger.Info("venues recommended", map[string]interface{}{
		"requestId":      res.RequestID,
		"count":          len(res.Recommendations),
		"topN":           topN,
		"indoorOverride": res.IndoorOverride,
	})

	return &Output{
		Recommendations:     res.Recommendations,
		RecommendationCount: len(res.Recommendations),
		IndoorOverride:      res.IndoorOverride,
		FiltersRelaxed:      res.FiltersRelaxed,
		RequestID:           res.RequestID,
	}, nil
}

func (h *Handler) resolveTopN(requested int) int {
	switch {
	case requested <= 0:
		return h.config.DefaultTopN
	case requested > h.config.MaxTopN:
		return h.config.MaxTopN
	default:
		return requested
	}
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
