package validate

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"mp3-to-mp4/internal/convert"
	"mp3-to-mp4/internal/domain"
	"mp3-to-mp4/internal/errs"
)

// TestControllerValidatesAllPaths checks every path gets a start callback
// and the right outcome callback.
func TestControllerValidatesAllPaths(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "good.mp3")
	mustWriteFile(t, good, "audio")
	broken := filepath.Join(root, "broken.mp3")
	mustWriteFile(t, broken, "garbage")

	prober := &fakeProber{
		probe: func(ctx context.Context, path string) (convert.ProbeResult, error) {
			if path == broken {
				return convert.ProbeResult{}, errs.New(errs.CodeEmptyOrCorrupt, "no audio stream found")
			}
			return convert.ProbeResult{DurationSeconds: 30}, nil
		},
	}

	var mu sync.Mutex
	var started, succeeded, failed []string
	var failureMessage string

	controller := NewController(NewValidator(prober), Callbacks{
		OnStart: func(path string) {
			mu.Lock()
			started = append(started, path)
			mu.Unlock()
		},
		OnSuccess: func(path string, audio domain.AudioFile) {
			mu.Lock()
			succeeded = append(succeeded, path)
			mu.Unlock()
			if audio.DurationSeconds != 30 {
				t.Errorf("duration = %v, want 30", audio.DurationSeconds)
			}
		},
		OnError: func(path string, message string) {
			mu.Lock()
			failed = append(failed, path)
			failureMessage = message
			mu.Unlock()
		},
	})

	controller.ValidateAll(context.Background(), []string{good, broken})
	controller.Wait()

	mu.Lock()
	defer mu.Unlock()
	sort.Strings(started)
	want := []string{broken, good}
	if len(started) != 2 || started[0] != want[0] || started[1] != want[1] {
		t.Fatalf("started = %v, want %v", started, want)
	}
	if len(succeeded) != 1 || succeeded[0] != good {
		t.Fatalf("succeeded = %v, want [%s]", succeeded, good)
	}
	if len(failed) != 1 || failed[0] != broken {
		t.Fatalf("failed = %v, want [%s]", failed, broken)
	}
	if failureMessage != errs.UserMessage(errs.New(errs.CodeEmptyOrCorrupt, "")) {
		t.Fatalf("failure message = %q", failureMessage)
	}
}

// TestControllerEmptyInput checks no callbacks fire for an empty batch.
func TestControllerEmptyInput(t *testing.T) {
	fired := false
	controller := NewController(NewValidator(&fakeProber{}), Callbacks{
		OnStart: func(path string) { fired = true },
	})

	controller.ValidateAll(context.Background(), nil)
	controller.Wait()
	if fired {
		t.Fatal("no callbacks expected for empty input")
	}
}

// TestControllerQuickFilterPassthrough checks the pre-check is reachable
// through the controller.
func TestControllerQuickFilterPassthrough(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "good.mp3")
	mustWriteFile(t, good, "audio")

	controller := NewController(NewValidator(&fakeProber{}), Callbacks{})
	valid, failures := controller.QuickFilter([]string{good, filepath.Join(root, "missing.mp3")})
	if len(valid) != 1 || len(failures) != 1 {
		t.Fatalf("valid = %v, failures = %v", valid, failures)
	}
}
