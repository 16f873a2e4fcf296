package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"mp3-to-mp4/internal/config"
	"mp3-to-mp4/internal/convert"
	"mp3-to-mp4/internal/diagnostics"
	"mp3-to-mp4/internal/domain"
	"mp3-to-mp4/internal/errs"
	"mp3-to-mp4/internal/jobs"
	"mp3-to-mp4/internal/monitor"
	"mp3-to-mp4/internal/validate"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var audioDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "MP3 files",
		Pattern:     "*.mp3",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// converterService is the full contract the app needs from the FFmpeg
// layer: scheduling, metadata probing, and identity reporting.
type converterService interface {
	jobs.ConversionService
	validate.Prober
	Info(ctx context.Context) (map[string]string, error)
}

// App wires configuration, validation, the conversion scheduler, and UI
// runtime callbacks.
type App struct {
	Store       config.Store
	Diagnostics domain.DiagnosticReport

	converter converterService
	checker   *diagnostics.Checker
	sysmon    *monitor.SystemMonitor
	assets    fs.FS

	mu         sync.Mutex
	settings   domain.Settings
	scheduler  *jobs.Scheduler
	validation *validate.Controller
	events     *jobs.EventBus
	runtimeCtx context.Context
}

// New builds the application with persisted settings and startup
// diagnostics. A missing FFmpeg is not fatal here: the window still opens
// so the user can see the failing diagnostic and fix it, but no scheduler
// exists until the tool is available.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	if err := ensureLocalBinOnPATH(homeDir); err != nil {
		return nil, fmt.Errorf("prepare local tool path: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".mp3-to-mp4", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()

	app := &App{
		Store:       store,
		Diagnostics: checker.Run(settings),
		converter:   convert.NewService(),
		checker:     checker,
		sysmon:      monitor.NewSystemMonitor(),
		assets:      assets,
		settings:    settings,
		events:      jobs.NewEventBus(1000),
	}
	app.validation = validate.NewController(
		validate.NewValidator(&converterProber{app: app}),
		validate.Callbacks{
			OnStart:   app.onValidationStart,
			OnSuccess: app.onValidationSuccess,
			OnError:   app.onValidationError,
		},
	)
	app.initScheduler()
	return app, nil
}

// converterProber resolves the converter at call time, so validation
// follows a service rebuilt by a diagnostics fix instead of probing
// through the startup-time instance.
type converterProber struct {
	app *App
}

// Probe delegates to the app's current converter.
func (p *converterProber) Probe(ctx context.Context, path string) (convert.ProbeResult, error) {
	return p.app.currentConverter().Probe(ctx, path)
}

// currentConverter copies the converter pointer under the lock.
func (a *App) currentConverter() converterService {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.converter
}

// initScheduler constructs the scheduler when the converter is usable.
// Called at startup and again after a diagnostics fix.
func (a *App) initScheduler() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.scheduler != nil {
		return
	}

	scheduler, err := jobs.NewScheduler(a.converter, a.settings.MaxConcurrent, jobs.Callbacks{
		OnJobStart:    a.onJobStart,
		OnJobProgress: a.onJobProgress,
		OnJobComplete: a.onJobComplete,
		OnJobError:    a.onJobError,
		OnAllComplete: a.onAllComplete,
	})
	if err != nil {
		// Reported through diagnostics; conversion stays disabled.
		return
	}
	a.scheduler = scheduler
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "MP3 to MP4",
		Width:       980,
		Height:      700,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events and dialogs.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings, reruns dependency checks, and
// retries scheduler construction in case FFmpeg appeared since startup.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.settings = settings
	a.converter = convert.NewService()
	a.Diagnostics = a.checker.Run(settings)
	report := a.Diagnostics
	a.mu.Unlock()

	a.initScheduler()
	return report, nil
}

// SystemStats samples current host load for the pre-conversion hint.
func (a *App) SystemStats() (domain.SystemStats, error) {
	return a.sysmon.Stats(context.Background())
}

// FFmpegInfo reports the resolved FFmpeg path and version.
func (a *App) FFmpegInfo() (map[string]string, error) {
	return a.currentConverter().Info(context.Background())
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings validates, persists, and applies settings, then refreshes
// diagnostics. The concurrency cap change applies to the running
// scheduler immediately.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := normalized.Validate(); err != nil {
		return domain.Settings{}, err
	}
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	scheduler := a.scheduler
	a.mu.Unlock()

	if scheduler != nil {
		scheduler.SetMaxConcurrent(normalized.MaxConcurrent)
	}
	return normalized, nil
}

// PickInputFiles opens a native multi-select dialog for MP3 files.
func (a *App) PickInputFiles() ([]string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select MP3 files",
		Filters: audioDialogFilter,
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

// PickOutputFolder opens a native directory picker for converted videos.
func (a *App) PickOutputFolder() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output folder",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or the configured output folder)
// in the platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.settings.OutputFolder
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// AddFiles runs the quick pre-check on dropped paths, kicks off deep
// validation for the survivors, and returns the immediate rejections.
// Validated files become queued jobs via the validation callbacks.
func (a *App) AddFiles(paths []string) ([]validate.PathError, error) {
	a.mu.Lock()
	scheduler := a.scheduler
	a.mu.Unlock()
	if scheduler == nil {
		return nil, errs.New(errs.CodeServiceUnavailable, "ffmpeg not found")
	}

	valid, rejected := a.validation.QuickFilter(paths)
	a.validation.ValidateAll(context.Background(), valid)
	return rejected, nil
}

// StartConversions begins processing the queued jobs.
func (a *App) StartConversions() error {
	a.mu.Lock()
	scheduler := a.scheduler
	a.mu.Unlock()
	if scheduler == nil {
		return errs.New(errs.CodeServiceUnavailable, "ffmpeg not found")
	}

	scheduler.StartProcessing()
	return nil
}

// CancelConversion cancels the job for one input path.
func (a *App) CancelConversion(inputPath string) bool {
	a.mu.Lock()
	scheduler := a.scheduler
	a.mu.Unlock()
	if scheduler == nil {
		return false
	}
	return scheduler.Cancel(inputPath)
}

// CancelAllConversions cancels every active and queued job.
func (a *App) CancelAllConversions() {
	a.mu.Lock()
	scheduler := a.scheduler
	a.mu.Unlock()
	if scheduler != nil {
		scheduler.CancelAll()
	}
}

// ClearFinishedJobs evicts finished jobs from the registry.
func (a *App) ClearFinishedJobs() {
	a.mu.Lock()
	scheduler := a.scheduler
	a.mu.Unlock()
	if scheduler != nil {
		scheduler.ClearFinished()
	}
}

// ConversionStatistics returns registry counts by status.
func (a *App) ConversionStatistics() jobs.Statistics {
	a.mu.Lock()
	scheduler := a.scheduler
	a.mu.Unlock()
	if scheduler == nil {
		return jobs.Statistics{}
	}
	return scheduler.Statistics()
}

// IsConverting reports whether conversions are in flight.
func (a *App) IsConverting() bool {
	a.mu.Lock()
	scheduler := a.scheduler
	a.mu.Unlock()
	return scheduler != nil && scheduler.IsConverting()
}

// JobList returns snapshots of every registered job.
func (a *App) JobList() []jobs.Snapshot {
	a.mu.Lock()
	scheduler := a.scheduler
	a.mu.Unlock()
	if scheduler == nil {
		return nil
	}

	all := scheduler.Jobs()
	out := make([]jobs.Snapshot, 0, len(all))
	for _, job := range all {
		out = append(out, job.Snapshot())
	}
	return out
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// onValidationStart publishes the validation-started event.
func (a *App) onValidationStart(path string) {
	a.publishEvent(jobs.Event{Type: jobs.EventTypeValidating, Path: path})
}

// onValidationSuccess submits a queued job for the validated input and
// publishes the enriched descriptor.
func (a *App) onValidationSuccess(path string, audio domain.AudioFile) {
	a.mu.Lock()
	scheduler := a.scheduler
	settings := a.settings
	a.mu.Unlock()

	if scheduler != nil {
		scheduler.Submit(audio, domain.VideoFileFor(audio, settings))
	}
	a.publishEvent(jobs.Event{Type: jobs.EventTypeValidated, Path: path, Audio: &audio})
}

// onValidationError publishes the validation-failed event.
func (a *App) onValidationError(path string, message string) {
	a.publishEvent(jobs.Event{Type: jobs.EventTypeValidateFail, Path: path, Message: message})
}

// onJobStart publishes the job-started event.
func (a *App) onJobStart(job jobs.Snapshot) {
	a.publishEvent(jobs.Event{Type: jobs.EventTypeJobStart, Job: &job, Path: job.InputPath})
}

// onJobProgress publishes the job-progress event.
func (a *App) onJobProgress(job jobs.Snapshot, percent float64) {
	a.publishEvent(jobs.Event{Type: jobs.EventTypeJobProgress, Job: &job, Path: job.InputPath, Percent: percent})
}

// onJobComplete publishes the job-completed event.
func (a *App) onJobComplete(job jobs.Snapshot) {
	a.publishEvent(jobs.Event{Type: jobs.EventTypeJobComplete, Job: &job, Path: job.InputPath})
}

// onJobError publishes the job-error event.
func (a *App) onJobError(job jobs.Snapshot, message string) {
	a.publishEvent(jobs.Event{Type: jobs.EventTypeJobError, Job: &job, Path: job.InputPath, Message: message})
}

// onAllComplete publishes the aggregate completion event and applies the
// auto-clear setting.
func (a *App) onAllComplete(succeeded, failed int) {
	a.publishEvent(jobs.Event{Type: jobs.EventTypeAllComplete, Succeeded: succeeded, Failed: failed})

	a.mu.Lock()
	autoClear := a.settings.AutoClearOnComplete
	scheduler := a.scheduler
	a.mu.Unlock()
	if autoClear && scheduler != nil {
		scheduler.ClearFinished()
	}
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "conversion:event", published)
	}
}

// runtimeContext returns the Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies defaults for emptied
// fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	defaults := config.DefaultSettings()

	settings.OutputFolder = strings.TrimSpace(settings.OutputFolder)
	settings.Resolution = strings.TrimSpace(settings.Resolution)
	if settings.Resolution == "" {
		settings.Resolution = defaults.Resolution
	}
	settings.BackgroundColor = strings.TrimSpace(settings.BackgroundColor)
	if settings.BackgroundColor == "" {
		settings.BackgroundColor = defaults.BackgroundColor
	}
	if settings.FrameRate == 0 {
		settings.FrameRate = defaults.FrameRate
	}
	if settings.MaxConcurrent == 0 {
		settings.MaxConcurrent = defaults.MaxConcurrent
	}
	return settings
}

// openInFileManager launches the platform file explorer for the path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
