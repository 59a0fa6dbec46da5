package appbase

import (
	"fmt"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

var (
	// ErrSetup marks failures while building device, surface or frame
	// resources. Aborting is the expected response.
	ErrSetup = errors.New("setup failure")
	// ErrFrame marks failures inside the frame loop.
	ErrFrame = errors.New("frame failure")
)

// ErrorKind is the coarse category of an error returned by App.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindSetup
	KindFrame
	KindContract
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSetup:
		return "setup"
	case KindFrame:
		return "frame"
	case KindContract:
		return "contract"
	}
	return "unknown"
}

// Classify reports which category err belongs to. Contract violations win over
// the setup and frame marks they may be wrapped in.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.IsAssertionFailure(err):
		return KindContract
	case errors.Is(err, ErrFrame):
		return KindFrame
	case errors.Is(err, ErrSetup):
		return KindSetup
	}
	return KindUnknown
}

func setupFailure(err error, step string) error {
	return errors.Mark(errors.Wrap(err, step), ErrSetup)
}

// FrameStage names the frame loop step that failed.
type FrameStage string

const (
	StageAcquire FrameStage = "acquire"
	StageWait    FrameStage = "wait"
	StageRecord  FrameStage = "record"
	StageSubmit  FrameStage = "submit"
	StagePresent FrameStage = "present"
)

// FrameError is a failure of one render call. Result carries the backend
// status when the failure came from the backend.
type FrameError struct {
	Stage  FrameStage
	Result common.VkResult
	Err    error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// Stale reports whether the presentation surface no longer matches the
// swapchain. Recreating the swapchain and frame graph recovers from it.
func (e *FrameError) Stale() bool {
	return e.Result == khr_swapchain.VKErrorOutOfDate || e.Result == khr_swapchain.VKSuboptimal
}

// Skippable reports whether the loop can render again after this failure. It
// holds only for a failed acquire: no semaphore was signaled, no fence was
// reset and no command buffer was left recording.
func (e *FrameError) Skippable() bool {
	return e.Stage == StageAcquire && e.Result != khr_swapchain.VKSuboptimal
}

func frameFailure(stage FrameStage, result common.VkResult, err error) error {
	if err == nil {
		err = errors.Newf("unexpected result %v", result)
	}
	return errors.Mark(&FrameError{Stage: stage, Result: result, Err: err}, ErrFrame)
}
