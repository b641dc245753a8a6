package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

// JobHandler handles job lifecycle API requests
type JobHandler struct {
	jobs     interfaces.JobService
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs interfaces.JobService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobs:     jobs,
		validate: validator.New(),
		logger:   logger,
	}
}

type startJobRequest struct {
	// Pointer so a missing field is distinguishable from an empty string:
	// input_text is required but may legitimately be empty.
	InputText *string `json:"input_text" validate:"required"`
}

type interruptJobRequest struct {
	JobID string `json:"job_id" validate:"required,uuid4"`
}

// StartJobHandler submits a new generation job.
// POST /start_job {"input_text": "..."} -> {"job_id": "..."}
func (h *JobHandler) StartJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteDetail(w, http.StatusUnprocessableEntity, "input_text is required")
		return
	}

	jobID, err := h.jobs.StartJob(models.JobInput{InputText: *req.InputText})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to start job")
		WriteDetail(w, http.StatusInternalServerError, "Failed to start job")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID.String(),
	})
}

// InterruptJobHandler cancels a job. Idempotent: unknown ids return 200.
// POST /interrupt_job {"job_id": "..."} -> {}
func (h *JobHandler) InterruptJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req interruptJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteDetail(w, http.StatusUnprocessableEntity, "Invalid ID format")
		return
	}

	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		WriteDetail(w, http.StatusUnprocessableEntity, "Invalid ID format")
		return
	}

	h.jobs.InterruptJob(jobID)

	WriteJSON(w, http.StatusOK, map[string]string{})
}

// RetrieveJobHandler returns the full state of a job.
// GET /retrieve_job?job_id=<id>
func (h *JobHandler) RetrieveJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID, err := uuid.Parse(r.URL.Query().Get("job_id"))
	if err != nil {
		WriteDetail(w, http.StatusUnprocessableEntity, "Invalid ID format")
		return
	}

	job := h.jobs.RetrieveJob(jobID)
	if job == nil {
		WriteDetail(w, http.StatusNotFound, "Job not found")
		return
	}

	response, err := buildRetrieveJobResponse(job)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID.String()).Msg("Failed to build job response")
		WriteDetail(w, http.StatusInternalServerError, "Unknown job info type")
		return
	}

	WriteJSON(w, http.StatusOK, response)
}

type jobInputResponse struct {
	InputText string `json:"input_text"`
}

type runningStateResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type waitingInfoResponse struct {
	TimeStartToQueue string `json:"time_start_to_queue"`
	PlaceInQueue     int    `json:"place_in_queue"`
}

type runningInfoResponse struct {
	TimeStartToQueue string               `json:"time_start_to_queue"`
	TimeStartToRun   string               `json:"time_start_to_run"`
	RunningState     runningStateResponse `json:"running_state"`
}

type completedInfoResponse struct {
	TimeStartToQueue string `json:"time_start_to_queue"`
	TimeStartToRun   string `json:"time_start_to_run"`
	TimeEnd          string `json:"time_end"`
}

type failedInfoResponse struct {
	TimeStartToQueue string `json:"time_start_to_queue"`
	TimeStartToRun   string `json:"time_start_to_run"`
	TimeEnd          string `json:"time_end"`
	ErrorMessage     string `json:"error_message"`
}

type cancelledInfoResponse struct {
	TimeStartToQueue string  `json:"time_start_to_queue"`
	TimeStartToRun   *string `json:"time_start_to_run"`
	TimeEnd          string  `json:"time_end"`
}

type wordLocationResponse struct {
	Word    string  `json:"word"`
	Success bool    `json:"success"`
	ImageID *string `json:"image_id"`
}

type jobResultResponse struct {
	GeneratedWordLocations []wordLocationResponse `json:"generated_word_locations"`
}

type retrieveJobResponse struct {
	JobID     string            `json:"job_id"`
	JobInput  jobInputResponse  `json:"job_input"`
	JobStatus string            `json:"job_status"`
	JobInfo   interface{}       `json:"job_info"`
	JobResult jobResultResponse `json:"job_result"`
}

func buildRetrieveJobResponse(job *models.Job) (*retrieveJobResponse, error) {
	info, err := buildJobInfoResponse(job.Info)
	if err != nil {
		return nil, err
	}

	locations := make([]wordLocationResponse, 0, len(job.Result.WordLocations))
	for _, loc := range job.Result.WordLocations {
		var imageID *string
		if loc.ImageID != nil {
			id := loc.ImageID.String()
			imageID = &id
		}
		locations = append(locations, wordLocationResponse{
			Word:    loc.Word,
			Success: loc.Success,
			ImageID: imageID,
		})
	}

	return &retrieveJobResponse{
		JobID:     job.ID.String(),
		JobInput:  jobInputResponse{InputText: job.Input.InputText},
		JobStatus: string(job.Status),
		JobInfo:   info,
		JobResult: jobResultResponse{GeneratedWordLocations: locations},
	}, nil
}

func buildJobInfoResponse(info models.JobInfo) (interface{}, error) {
	switch v := info.(type) {
	case models.WaitingInfo:
		return waitingInfoResponse{
			TimeStartToQueue: isoTime(v.TimeStartToQueue),
			PlaceInQueue:     v.PlaceInQueue,
		}, nil
	case models.RunningInfo:
		return runningInfoResponse{
			TimeStartToQueue: isoTime(v.TimeStartToQueue),
			TimeStartToRun:   isoTime(v.TimeStartToRun),
			RunningState: runningStateResponse{
				Name:    v.RunningState.Name,
				Message: v.RunningState.Message,
			},
		}, nil
	case models.CompletedInfo:
		return completedInfoResponse{
			TimeStartToQueue: isoTime(v.TimeStartToQueue),
			TimeStartToRun:   isoTime(v.TimeStartToRun),
			TimeEnd:          isoTime(v.TimeEnd),
		}, nil
	case models.FailedInfo:
		return failedInfoResponse{
			TimeStartToQueue: isoTime(v.TimeStartToQueue),
			TimeStartToRun:   isoTime(v.TimeStartToRun),
			TimeEnd:          isoTime(v.TimeEnd),
			ErrorMessage:     v.ErrorMessage,
		}, nil
	case models.CancelledInfo:
		var started *string
		if v.TimeStartToRun != nil {
			s := isoTime(*v.TimeStartToRun)
			started = &s
		}
		return cancelledInfoResponse{
			TimeStartToQueue: isoTime(v.TimeStartToQueue),
			TimeStartToRun:   started,
			TimeEnd:          isoTime(v.TimeEnd),
		}, nil
	default:
		return nil, models.ErrStatusInfoMismatch
	}
}

func isoTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
