package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"clipmerge/internal/job"
	"clipmerge/internal/merge"
	"clipmerge/internal/sequence"
	"clipmerge/internal/tools"
)

type jobResponse struct {
	ID          string     `json:"id"`
	Status      job.Status `json:"status"`
	Progress    int        `json:"progress"`
	Video       []string   `json:"video"`
	Audio       []string   `json:"audio"`
	Destination string     `json:"destination"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   string     `json:"created_at"`
	FinishedAt  string     `json:"finished_at,omitempty"`
	EventsURL   string     `json:"events_url"`
}

type sequenceRequest struct {
	Video []string `json:"video"`
	Audio []string `json:"audio"`
}

type sequenceResponse struct {
	Video   []string `json:"video"`
	Audio   []string `json:"audio"`
	Ignored int      `json:"ignored"`
}

type eventsResponse struct {
	Events []job.Event `json:"events"`
	Next   int64       `json:"next"`
}

type healthResponse struct {
	Status string         `json:"status"`
	Busy   bool           `json:"busy"`
	Tools  []tools.Status `json:"tools"`
}

// Options configures the API.
type Options struct {
	VideoExtension string
	AudioExtension string
	Locator        tools.Locator
}

type API struct {
	jobManager *job.Manager
	opts       Options
}

func NewAPI(jobManager *job.Manager, opts Options) *API {
	if opts.VideoExtension == "" {
		opts.VideoExtension = "mp4"
	}
	if opts.AudioExtension == "" {
		opts.AudioExtension = "mp3"
	}
	if opts.Locator == nil {
		opts.Locator = tools.PathLocator{}
	}
	return &API{jobManager: jobManager, opts: opts}
}

// RegisterRoutes registers API routes on the provided gin engine
func (a *API) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/jobs", a.CreateJob)
		api.GET("/jobs", a.ListJobs)
		api.GET("/jobs/:id", a.GetJob)
		api.POST("/jobs/:id/cancel", a.CancelJob)
		api.GET("/jobs/:id/events", a.JobEvents)
		api.POST("/sequence", a.Sequence)
		api.GET("/health", a.Health)
	}
}

// CreateJob starts a merge job
func (a *API) CreateJob(c *gin.Context) {
	var req job.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("invalid create job request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	created, err := a.jobManager.Submit(req)
	switch {
	case errors.Is(err, job.ErrBusy):
		log.Warn().Msg("rejecting job: a merge is already running")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, merge.ErrInvalidInput):
		log.Warn().Err(err).Msg("rejecting job: invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Error().Err(err).Msg("failed to start job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toJobResponse(created))
}

// ListJobs returns all known jobs, oldest first
func (a *API) ListJobs(c *gin.Context) {
	jobs := a.jobManager.List()
	resp := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, toJobResponse(j))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": resp})
}

// GetJob returns job status
func (a *API) GetJob(c *gin.Context) {
	id := c.Param("id")
	if found, ok := a.jobManager.Get(id); ok {
		c.JSON(http.StatusOK, toJobResponse(found))
		return
	}
	log.Warn().Str("job_id", id).Msg("job not found on get")
	c.JSON(http.StatusNotFound, gin.H{"error": job.ErrJobNotFound.Error()})
}

// CancelJob requests cancellation; the job reports cancelled once its
// current child process has been stopped.
func (a *API) CancelJob(c *gin.Context) {
	id := c.Param("id")
	err := a.jobManager.Cancel(id)
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, job.ErrNotRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	found, _ := a.jobManager.Get(id)
	c.JSON(http.StatusAccepted, toJobResponse(found))
}

// JobEvents returns events after the "since" sequence number
func (a *API) JobEvents(c *gin.Context) {
	id := c.Param("id")
	var since int64
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		since = parsed
	}
	events, err := a.jobManager.Events(id, since)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	next := since
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	if events == nil {
		events = []job.Event{}
	}
	c.JSON(http.StatusOK, eventsResponse{Events: events, Next: next})
}

// Sequence filters and orders candidate inputs the way a job would use them
func (a *API) Sequence(c *gin.Context) {
	var req sequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	videos := sequence.NewMediaSet(a.opts.VideoExtension)
	audios := sequence.NewMediaSet(a.opts.AudioExtension)
	added := videos.Add(req.Video...) + audios.Add(req.Audio...)
	c.JSON(http.StatusOK, sequenceResponse{
		Video:   videos.Paths(),
		Audio:   audios.Paths(),
		Ignored: len(req.Video) + len(req.Audio) - added,
	})
}

// Health reports tool availability and whether a job is running
func (a *API) Health(c *gin.Context) {
	statuses := tools.Check(a.opts.Locator, tools.MediaRequirements())
	resp := healthResponse{Status: "ok", Busy: a.jobManager.IsBusy(), Tools: statuses}
	code := http.StatusOK
	if !tools.Ready(statuses) {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func toJobResponse(j job.Job) jobResponse {
	resp := jobResponse{
		ID:          j.ID,
		Status:      j.Status,
		Progress:    j.Progress,
		Video:       j.Video,
		Audio:       j.Audio,
		Destination: j.Destination,
		Output:      j.Output,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt.UTC().Format(time.RFC3339),
		EventsURL:   "/api/v1/jobs/" + j.ID + "/events",
	}
	if j.FinishedAt != nil {
		resp.FinishedAt = j.FinishedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
