// Package platform detects the host platform for update preflight and
// reporting.
//
// OS and architecture come from the Go runtime; Linux distribution
// details come from gopsutil with graceful fallback, since an upgrade
// must not fail just because distro detection did.
package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Info contains platform detection information.
type Info struct {
	OS      string // "linux", "darwin", "windows"
	Arch    string // GOARCH (e.g., "amd64", "arm64")
	Distro  string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Version string // distro version (Linux only, e.g., "22.04")
}

// String returns a compact human-readable summary, e.g.
// "linux/amd64 (ubuntu 22.04)" or "darwin/arm64".
func (i *Info) String() string {
	base := fmt.Sprintf("%s/%s", i.OS, i.Arch)
	if i.Distro == "" {
		return base
	}
	if i.Version == "" {
		return fmt.Sprintf("%s (%s)", base, i.Distro)
	}
	return fmt.Sprintf("%s (%s %s)", base, i.Distro, i.Version)
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect returns platform information for the current host.
//
// On Linux, distro detection failures leave the distro fields empty
// and are not reported as errors; context cancellation is.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if runtime.GOOS != "linux" {
		return info, nil
	}

	distro, _, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		// Graceful fallback: OS and arch are enough for the report.
		return info, nil
	}

	info.Distro = normalize(distro)
	info.Version = normalize(version)

	return info, nil
}

// normalize lowercases and trims a platform identifier.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
