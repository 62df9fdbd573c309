// Package cleanup reclaims disk from expired renders: terminal jobs
// past the retention window lose their output files and registry
// entries, and orphaned files with no live job are removed.
package cleanup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clipforge/api/internal/model"
)

// Registry is the job-side view the sweeper needs.
type Registry interface {
	// ExpireTerminal removes and returns terminal jobs finished before
	// the cutoff.
	ExpireTerminal(cutoff time.Time) []model.Job
	// Has reports whether a job id is still registered.
	Has(id string) bool
}

// Result summarizes one sweep.
type Result struct {
	FilesDeleted int      `json:"files_deleted"`
	BytesFreed   int64    `json:"bytes_freed"`
	JobsAffected int      `json:"jobs_affected"`
	Errors       []string `json:"errors,omitempty"`
}

// StorageStats is the health-endpoint view of the temp directory.
type StorageStats struct {
	Files      int   `json:"files"`
	TotalBytes int64 `json:"total_bytes"`
}

// Sweeper deletes expired render artifacts under one temp directory.
type Sweeper struct {
	dir      string
	registry Registry
}

func NewSweeper(dir string, registry Registry) *Sweeper {
	return &Sweeper{dir: dir, registry: registry}
}

// Sweep removes outputs of jobs older than maxAgeHours and any orphaned
// files past the same age. Individual failures are collected, never
// fatal.
func (s *Sweeper) Sweep(maxAgeHours int) Result {
	cutoff := time.Now().Add(-time.Duration(maxAgeHours) * time.Hour)
	var res Result

	for _, job := range s.registry.ExpireTerminal(cutoff) {
		res.JobsAffected++
		if job.OutputPath == "" {
			continue
		}
		s.remove(job.OutputPath, &res)
	}

	// Orphan pass: anything in the temp dir old enough with no live
	// job. Covers work dirs left by crashes and outputs of forgotten
	// jobs.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			res.Errors = append(res.Errors, fmt.Sprintf("read temp dir: %v", err))
		}
		return res
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if s.registry.Has(jobIDFromName(e.Name())) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if e.IsDir() {
			s.removeDir(path, &res)
		} else {
			s.remove(path, &res)
		}
	}

	if res.FilesDeleted > 0 || len(res.Errors) > 0 {
		log.Printf("Cleanup: %d files deleted, %d bytes freed, %d jobs affected, %d errors",
			res.FilesDeleted, res.BytesFreed, res.JobsAffected, len(res.Errors))
	}
	return res
}

// RunPeriodic sweeps every interval until stop is closed.
func (s *Sweeper) RunPeriodic(interval time.Duration, maxAgeHours int, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(maxAgeHours)
		case <-stop:
			return
		}
	}
}

// Stats walks the temp dir for the health endpoint.
func (s *Sweeper) Stats() StorageStats {
	var stats StorageStats
	filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			stats.Files++
			stats.TotalBytes += info.Size()
		}
		return nil
	})
	return stats
}

func (s *Sweeper) remove(path string, res *Result) {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			res.Errors = append(res.Errors, fmt.Sprintf("stat %s: %v", path, err))
		}
		return
	}
	if err := os.Remove(path); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("remove %s: %v", path, err))
		return
	}
	res.FilesDeleted++
	res.BytesFreed += info.Size()
}

func (s *Sweeper) removeDir(path string, res *Result) {
	var files int
	var bytes int64
	filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			files++
			bytes += info.Size()
		}
		return nil
	})
	if err := os.RemoveAll(path); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("remove %s: %v", path, err))
		return
	}
	res.FilesDeleted += files
	res.BytesFreed += bytes
}

// jobIDFromName maps a temp-dir entry back to its job id: outputs are
// "<id>.mp4", work dirs are "work_<id>".
func jobIDFromName(name string) string {
	name = strings.TrimPrefix(name, "work_")
	return strings.TrimSuffix(name, ".mp4")
}
