package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"sync"

	"github.com/posthog/posthog-go"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"timelapse-desktop/internal/cache"
	"timelapse-desktop/internal/common"
	"timelapse-desktop/internal/composites"
	"timelapse-desktop/internal/config"
	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/handlers/preview"
	"timelapse-desktop/internal/ratelimit"
	"timelapse-desktop/internal/taskqueue"
	"timelapse-desktop/internal/temporal"
	"timelapse-desktop/internal/timelapse"
	"timelapse-desktop/internal/video"
)

// Linker flags
var (
	PostHogKey  string
	PostHogHost string
	AppVersion  string = "0.0.0-dev"
)

// ProviderInfo describes one imagery provider for the frontend
type ProviderInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// PresetInfo describes one export dimension preset for the frontend.
// Zero width/height means the output keeps the source frame size.
type PresetInfo struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// WindowPreview shows the user what a window request will expand to before
// anything is rendered
type WindowPreview struct {
	Labels []string `json:"labels"`
	Spans  []string `json:"spans"` // display-form date span per frame
	Count  int      `json:"count"`
}

// ConnectionStatus reports the backend session state to the frontend
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	ProjectID string `json:"projectID"`
	SessionID string `json:"sessionID"`
}

// TimelapseRequest is the frontend payload for one render
type TimelapseRequest struct {
	Name         string                 `json:"name"`
	Provider     string                 `json:"provider"`
	Region       common.BoundingBox     `json:"region"`
	Window       temporal.WindowRequest `json:"window"`
	Options      composites.Options     `json:"options"`
	Dimensions   int                    `json:"dimensions"`
	ServerRender bool                   `json:"serverRender"`
	OutputFormat string                 `json:"outputFormat"`
	Title        string                 `json:"title"`
	ShowCaption  bool                   `json:"showCaption"`
	FrameDelay   float64                `json:"frameDelay"`
	FrameRate    int                    `json:"frameRate"`
	Preset       string                 `json:"preset"`
}

// App struct
type App struct {
	ctx              context.Context
	session          *earthengine.Session
	frameCache       *cache.FrameCache
	previewServer    *preview.Server
	rateLimitHandler *ratelimit.Handler
	taskQueue        *taskqueue.QueueManager
	settings         *config.UserSettings
	outputPath       string
	mu               sync.Mutex
	devMode          bool // Enable verbose logging in dev mode only
	phClient         posthog.Client

	// Task queue progress tracking
	currentTaskID    string                        // Current task ID when running in queue mode
	taskProgressChan chan<- taskqueue.TaskProgress // Channel to forward progress to queue worker
}

// NewApp creates a new App application struct
func NewApp() *App {
	// Load user settings
	settings, err := config.LoadSettings()
	if err != nil {
		log.Printf("Failed to load settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}
	log.Printf("Settings loaded from: %s", config.GetSettingsPath())

	// Initialize frame cache with settings
	cacheDir := cache.GetCacheDir()
	frameCache, err := cache.NewFrameCache(cacheDir, settings.CacheMaxSizeMB, settings.CacheTTLDays)
	if err != nil {
		log.Printf("Failed to initialize frame cache: %v", err)
		frameCache = nil // Continue without cache
	} else {
		log.Printf("Frame cache initialized at %s (max %d MB)", cacheDir, settings.CacheMaxSizeMB)
	}

	// Initialize rate limit handling
	rateLimitHandler := ratelimit.NewHandler(ratelimit.DefaultRetryStrategy())
	rateLimitHandler.SetAutoRetry(settings.AutoRetryOnRateLimit)

	// Initialize PostHog
	var phClient posthog.Client
	if PostHogKey != "" {
		phConfig := posthog.Config{
			Endpoint: PostHogHost,
		}
		client, err := posthog.NewWithConfig(PostHogKey, phConfig)
		if err != nil {
			log.Printf("Failed to initialize PostHog: %v", err)
		} else {
			phClient = client
		}
	}

	// Initialize task queue
	homeDir, _ := os.UserHomeDir()
	queuePath := filepath.Join(homeDir, ".timelapse-desktop", "queue")
	taskQueue := taskqueue.NewQueueManager(queuePath, settings.MaxConcurrentRenders)
	log.Printf("Task queue initialized at %s", queuePath)

	return &App{
		frameCache:       frameCache,
		rateLimitHandler: rateLimitHandler,
		outputPath:       settings.OutputPath,
		settings:         settings,
		phClient:         phClient,
		taskQueue:        taskQueue,
	}
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	// Create output directory if it doesn't exist
	os.MkdirAll(a.outputPath, 0755)

	// Forward rate limit events to the frontend
	a.rateLimitHandler.SetOnRateLimit(func(event ratelimit.RateLimitEvent) {
		wailsRuntime.EventsEmit(ctx, "rate-limit", event)
	})
	a.rateLimitHandler.SetOnRetry(func(event ratelimit.RateLimitEvent) {
		wailsRuntime.EventsEmit(ctx, "rate-limit-retry", event)
	})
	a.rateLimitHandler.SetOnRecovered(func(provider string) {
		wailsRuntime.EventsEmit(ctx, "rate-limit-recovered", provider)
	})

	// Set up task queue callbacks and executor
	a.taskQueue.SetExecutor(a)
	a.taskQueue.SetCallbacks(
		func(status taskqueue.QueueStatus) {
			wailsRuntime.EventsEmit(ctx, "task-queue-update", status)
		},
		func(taskID string, progress taskqueue.TaskProgress) {
			wailsRuntime.EventsEmit(ctx, "task-progress", map[string]interface{}{
				"taskId":   taskID,
				"progress": progress,
			})
		},
		func(taskID string, success bool, err error) {
			errStr := ""
			if err != nil {
				errStr = err.Error()
			}
			wailsRuntime.EventsEmit(ctx, "task-complete", map[string]interface{}{
				"taskId":  taskID,
				"success": success,
				"error":   errStr,
			})
		},
		func(title, message, notifType string) {
			wailsRuntime.EventsEmit(ctx, "system-notification", map[string]interface{}{
				"title":   title,
				"message": message,
				"type":    notifType,
			})
		},
	)

	// Track app start
	a.TrackEvent("app_started", map[string]interface{}{
		"version": a.GetAppVersion(),
		"os":      goruntime.GOOS,
		"arch":    goruntime.GOARCH,
	})
}

// TrackEvent sends an event to PostHog
func (a *App) TrackEvent(event string, props map[string]interface{}) {
	if a.phClient != nil {
		a.phClient.Enqueue(posthog.Capture{
			DistinctId: "backend_user", // Ideally should be unique per install
			Event:      event,
			Properties: props,
		})
	}
}

// Shutdown cleans up resources
func (a *App) Shutdown(ctx context.Context) {
	if a.taskQueue != nil {
		a.taskQueue.Close()
	}
	if a.previewServer != nil {
		a.previewServer.Stop()
	}
	if a.rateLimitHandler != nil {
		a.rateLimitHandler.Close()
	}
	if a.settings != nil {
		if err := config.SaveSettings(a.settings); err != nil {
			log.Printf("Failed to save settings on shutdown: %v", err)
		}
	}
	if a.phClient != nil {
		a.phClient.Close()
	}
}

// GetAppVersion returns the current application version
func (a *App) GetAppVersion() string {
	return AppVersion
}

// emitLog sends a log message to the frontend (only in dev mode)
func (a *App) emitLog(message string) {
	if a.devMode {
		wailsRuntime.EventsEmit(a.ctx, "log", message)
	}
}

// emitRenderProgress emits render progress and forwards it to the task queue
// if a queued task is running
func (a *App) emitRenderProgress(progress common.RenderProgress) {
	wailsRuntime.EventsEmit(a.ctx, "render-progress", progress)

	a.mu.Lock()
	taskID := a.currentTaskID
	progressChan := a.taskProgressChan
	a.mu.Unlock()

	if taskID != "" && progressChan != nil {
		taskProgress := taskqueue.TaskProgress{
			CurrentPhase: progress.Phase,
			CurrentFrame: progress.CurrentFrame,
			TotalFrames:  progress.TotalFrames,
			Percent:      progress.Percent,
		}
		// Non-blocking send
		select {
		case progressChan <- taskProgress:
		default:
		}
	}
}

// ===================
// Backend Session
// ===================

// Connect opens a backend session for the given cloud project and access
// token, and starts the preview server once the session is live
func (a *App) Connect(projectID, accessToken string) error {
	if projectID == "" {
		return fmt.Errorf("project ID is required")
	}
	if accessToken == "" {
		return fmt.Errorf("access token is required")
	}

	session := earthengine.NewSession(projectID, accessToken)
	session.SetRateLimitHandler(a.rateLimitHandler)

	if err := session.Initialize(a.ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	a.mu.Lock()
	a.session = session
	a.settings.ProjectID = projectID
	a.mu.Unlock()

	// Restart the preview server against the new session
	if a.previewServer != nil {
		a.previewServer.Stop()
	}
	a.previewServer = preview.NewServer(a.ctx, session, a.frameCache)
	if err := a.previewServer.Start(); err != nil {
		log.Printf("Failed to start preview server: %v", err)
	}

	a.TrackEvent("session_connected", map[string]interface{}{
		"project": projectID,
	})
	log.Printf("Backend session %s connected for project %s", session.ID(), projectID)
	return nil
}

// GetConnectionStatus returns the current backend session state
func (a *App) GetConnectionStatus() ConnectionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return ConnectionStatus{}
	}
	return ConnectionStatus{
		Connected: a.session.Initialized(),
		ProjectID: a.session.Project(),
		SessionID: a.session.ID(),
	}
}

// GetPreviewServerURL returns the local preview server URL
func (a *App) GetPreviewServerURL() string {
	if a.previewServer == nil {
		return ""
	}
	return a.previewServer.GetServerURL()
}

// ===================
// Providers and Windows
// ===================

// GetProviders returns the supported imagery providers
func (a *App) GetProviders() []ProviderInfo {
	ids := common.Providers()
	result := make([]ProviderInfo, len(ids))
	for i, id := range ids {
		result[i] = ProviderInfo{ID: id, DisplayName: common.ProviderDisplayName(id)}
	}
	return result
}

// PreviewDateWindows expands a window request into its frame labels so the
// frontend can show frame count and labels before queueing a render
func (a *App) PreviewDateWindows(window temporal.WindowRequest) (*WindowPreview, error) {
	ranges, err := window.Sequence()
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(ranges))
	spans := make([]string, len(ranges))
	for i, r := range ranges {
		labels[i] = r.Label
		spans[i] = fmt.Sprintf("%s to %s", common.FormatDisplay(r.Start), common.FormatDisplay(r.End))
	}
	return &WindowPreview{Labels: labels, Spans: spans, Count: len(labels)}, nil
}

// ValidateRegion checks a bounding box without rendering anything
func (a *App) ValidateRegion(region common.BoundingBox) error {
	return region.Validate()
}

// GetExportPresets returns the social media dimension presets for the
// export settings picker
func (a *App) GetExportPresets() []PresetInfo {
	presets := video.Presets()
	result := make([]PresetInfo, len(presets))
	for i, p := range presets {
		width, height := 0, 0
		if p != video.PresetCustom {
			width, height = video.GetPresetDimensions(p)
		}
		result[i] = PresetInfo{
			ID:     string(p),
			Label:  video.GetPresetLabel(p),
			Width:  width,
			Height: height,
		}
	}
	return result
}

// ===================
// Rendering
// ===================

// exportOptions converts a request into exporter options
func exportOptions(req TimelapseRequest) *video.ExportOptions {
	opts := video.DefaultExportOptions()
	opts.ShowCaption = req.ShowCaption
	opts.Title = req.Title
	if req.FrameDelay > 0 {
		opts.FrameDelay = req.FrameDelay
	}
	if req.FrameRate > 0 {
		opts.FrameRate = req.FrameRate
	}
	if req.Preset != "" && req.Preset != string(video.PresetCustom) {
		opts.Preset = video.SocialMediaPreset(req.Preset)
		opts.Width, opts.Height = video.GetPresetDimensions(opts.Preset)
	}
	if req.OutputFormat != "" {
		opts.OutputFormat = req.OutputFormat
	}
	return opts
}

// jobFromRequest converts a frontend request into a render job
func (a *App) jobFromRequest(req TimelapseRequest, outputDir string) timelapse.Job {
	dimensions := req.Dimensions
	if dimensions == 0 {
		dimensions = a.settings.DefaultDimensions
	}
	format := req.OutputFormat
	if format == "" {
		format = a.settings.DefaultFormat
	}
	return timelapse.Job{
		Name:         req.Name,
		Provider:     req.Provider,
		Region:       req.Region,
		Window:       req.Window,
		Options:      req.Options,
		Dimensions:   dimensions,
		ServerRender: req.ServerRender || a.settings.ServerSideRender,
		OutputFormat: format,
		OutputDir:    outputDir,
		Export:       exportOptions(req),
	}
}

// RenderTimelapse runs one render immediately, outside the task queue.
// Progress is emitted on the render-progress event.
func (a *App) RenderTimelapse(req TimelapseRequest) (string, error) {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session == nil {
		return "", fmt.Errorf("not connected to backend")
	}

	job := a.jobFromRequest(req, a.GetOutputPath())

	generator := timelapse.NewGenerator(session, a.frameCache, a.settings.MaxConcurrentRenders)
	generator.SetProgressCallback(a.emitRenderProgress)

	centerLat, centerLon := job.Region.Center()
	a.TrackEvent("render_started", map[string]interface{}{
		"provider":     job.Provider,
		"frequency":    string(job.Window.Frequency),
		"serverRender": job.ServerRender,
		"centerLat":    centerLat,
		"centerLon":    centerLon,
	})

	outputPath, err := generator.Generate(a.ctx, job)
	if err != nil {
		a.emitLog(fmt.Sprintf("Render failed: %v", err))
		return "", err
	}

	if a.settings.AutoOpenOutputDir {
		a.OpenFolder(filepath.Dir(outputPath))
	}
	return outputPath, nil
}

// ===================
// Output folder
// ===================

// SetOutputPath sets the output directory
func (a *App) SetOutputPath(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(path, 0755); err != nil {
		return err
	}

	a.outputPath = path
	a.settings.OutputPath = path
	return nil
}

// GetOutputPath returns the current output directory
func (a *App) GetOutputPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outputPath
}

// SelectOutputFolder opens a folder picker dialog
func (a *App) SelectOutputFolder() (string, error) {
	path, err := wailsRuntime.OpenDirectoryDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:            "Select Output Folder",
		DefaultDirectory: a.outputPath,
	})
	if err != nil {
		return "", err
	}

	if path != "" {
		a.SetOutputPath(path)
	}

	return path, nil
}

// OpenOutputFolder opens the output directory in the OS file explorer
func (a *App) OpenOutputFolder() error {
	return a.OpenFolder(a.GetOutputPath())
}

// OpenFolder opens a specific folder in the OS file explorer
func (a *App) OpenFolder(path string) error {
	// Verify the path exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("folder does not exist: %s", path)
	}

	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", path)
	default: // Linux and others
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

// CheckFFmpegAvailable reports whether H.264 export is possible
func (a *App) CheckFFmpegAvailable() bool {
	_, found := video.CheckFFmpeg()
	return found
}

// ===================
// Task Queue
// ===================

// AddRenderTask adds a new render task to the queue
func (a *App) AddRenderTask(req TimelapseRequest, priority int) (string, error) {
	task := taskqueue.NewTimelapseTask(req.Name, req.Provider, req.Region, req.Window, req.Options)
	task.Priority = priority
	task.Export.OutputFormat = req.OutputFormat
	task.Export.Title = req.Title
	task.Export.ShowCaption = req.ShowCaption
	if req.FrameDelay > 0 {
		task.Export.FrameDelay = req.FrameDelay
	}
	if req.FrameRate > 0 {
		task.Export.FrameRate = req.FrameRate
	}
	task.Export.Preset = req.Preset

	if err := a.taskQueue.AddTask(task); err != nil {
		return "", err
	}

	return task.ID, nil
}

// GetTaskQueue returns all tasks in the queue
func (a *App) GetTaskQueue() ([]*taskqueue.TimelapseTask, error) {
	return a.taskQueue.GetAllTasks(), nil
}

// GetTask returns a single task by ID
func (a *App) GetTask(id string) (*taskqueue.TimelapseTask, error) {
	return a.taskQueue.GetTask(id)
}

// UpdateTask updates a task's properties
func (a *App) UpdateTask(id string, updates map[string]interface{}) error {
	return a.taskQueue.UpdateTask(id, updates)
}

// DeleteTask removes a task from the queue
func (a *App) DeleteTask(id string) error {
	return a.taskQueue.DeleteTask(id)
}

// StartTaskQueue begins processing tasks
func (a *App) StartTaskQueue() error {
	return a.taskQueue.StartQueue()
}

// PauseTaskQueue pauses the queue after the current task completes
func (a *App) PauseTaskQueue() error {
	return a.taskQueue.PauseQueue()
}

// StopTaskQueue stops the queue immediately
func (a *App) StopTaskQueue() {
	a.taskQueue.StopQueue()
}

// CancelTask cancels a running or pending task
func (a *App) CancelTask(id string) error {
	return a.taskQueue.CancelTask(id)
}

// ReorderTask moves a task to a new position in the queue
func (a *App) ReorderTask(id string, newIndex int) error {
	return a.taskQueue.ReorderTask(id, newIndex)
}

// GetTaskQueueStatus returns the current queue status
func (a *App) GetTaskQueueStatus() taskqueue.QueueStatus {
	return a.taskQueue.GetStatus()
}

// ClearCompletedTasks removes all completed/failed/cancelled tasks
func (a *App) ClearCompletedTasks() {
	a.taskQueue.ClearCompleted()
}

// ExecuteRenderTask implements the TaskExecutor interface.
// This is called by the queue worker to actually perform the render.
func (a *App) ExecuteRenderTask(ctx context.Context, task *taskqueue.TimelapseTask, progressChan chan<- taskqueue.TaskProgress) error {
	log.Printf("[TaskQueue] Executing task: %s - %s", task.ID, task.Name)

	a.mu.Lock()
	session := a.session
	a.currentTaskID = task.ID
	a.taskProgressChan = progressChan
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.currentTaskID = ""
		a.taskProgressChan = nil
		a.mu.Unlock()
	}()

	if session == nil {
		return fmt.Errorf("not connected to backend")
	}

	opts := video.DefaultExportOptions()
	opts.ShowCaption = task.Export.ShowCaption
	opts.Title = task.Export.Title
	if task.Export.FrameDelay > 0 {
		opts.FrameDelay = task.Export.FrameDelay
	}
	if task.Export.FrameRate > 0 {
		opts.FrameRate = task.Export.FrameRate
	}
	if task.Export.Preset != "" && task.Export.Preset != string(video.PresetCustom) {
		opts.Preset = video.SocialMediaPreset(task.Export.Preset)
		opts.Width, opts.Height = video.GetPresetDimensions(opts.Preset)
	}

	format := task.Export.OutputFormat
	if format == "" {
		format = a.settings.DefaultFormat
	}

	// Each task renders into its own directory under the output path
	outputDir := filepath.Join(a.GetOutputPath(), task.ID)

	job := timelapse.Job{
		Name:         task.Name,
		Provider:     task.Provider,
		Region:       task.Region,
		Window:       task.Window,
		Options:      task.Options,
		Dimensions:   a.settings.DefaultDimensions,
		ServerRender: a.settings.ServerSideRender,
		OutputFormat: format,
		OutputDir:    outputDir,
		Export:       opts,
	}

	generator := timelapse.NewGenerator(session, a.frameCache, a.settings.MaxConcurrentRenders)
	generator.SetProgressCallback(a.emitRenderProgress)

	outputPath, err := generator.Generate(ctx, job)
	if err != nil {
		return err
	}

	task.OutputPath = outputPath
	return nil
}
