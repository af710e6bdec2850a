// Package procs detects running processes belonging to an application so
// removal can warn before deleting files out from under a live program.
package procs

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/fenilsonani/fspurge/internal/match"
)

// Info identifies one running process that looks like it belongs to the
// application.
type Info struct {
	PID  int32
	Name string
}

// Running lists processes whose name or executable path contains the
// application's clean name, case-insensitive. Processes that disappear or
// deny inspection mid-listing are skipped.
func Running(ctx context.Context, appName string) ([]Info, error) {
	needle := strings.ToLower(match.CleanName(appName))
	if needle == "" {
		return nil, nil
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var found []Info
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return found, err
		}

		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}

		haystack := strings.ToLower(name)
		if !strings.Contains(haystack, needle) {
			if exe, err := p.ExeWithContext(ctx); err == nil {
				haystack = strings.ToLower(exe)
			}
		}

		if strings.Contains(haystack, needle) {
			found = append(found, Info{PID: p.Pid, Name: name})
		}
	}
	return found, nil
}
