// Package diagnostics writes the evidence bundle captured after a failed gate run.
package diagnostics

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driven"
	"github.com/custodia-labs/arrgate/internal/logger"
)

// Ensure Collector implements the interface.
var _ driven.DiagnosticsCollector = (*Collector)(nil)

// Bundle entry names.
const (
	EntryResults      = "results.json"
	EntrySummary      = "summary.txt"
	EntrySystemStatus = "system-status.json"
	EntryContainerLog = "container.log"

	// ContainerLogTail is how many log lines are captured.
	ContainerLogTail = 500

	bundlePrefix = "arrgate-diagnostics-"
	stampLayout  = "20060102-150405"
)

// StatusFetcher returns the instance's system/status document.
type StatusFetcher func(ctx context.Context, apiURL, apiKey string) ([]byte, error)

// LogFetcher returns the tail of a container's logs.
type LogFetcher func(ctx context.Context, containerID string) ([]byte, error)

// Collector builds zip bundles.
type Collector struct {
	fetchStatus StatusFetcher
	fetchLogs   LogFetcher
	now         func() time.Time
}

// NewCollector creates a collector. A nil fetchStatus skips the status entry;
// a nil fetchLogs uses DockerLogs.
func NewCollector(fetchStatus StatusFetcher, fetchLogs LogFetcher) *Collector {
	if fetchLogs == nil {
		fetchLogs = DockerLogs
	}
	return &Collector{
		fetchStatus: fetchStatus,
		fetchLogs:   fetchLogs,
		now:         time.Now,
	}
}

// DockerLogs runs `docker logs --tail 500 <container>`.
func DockerLogs(ctx context.Context, containerID string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "docker", "logs", "--tail", fmt.Sprint(ContainerLogTail), containerID)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("docker logs %s: %w", containerID, err)
	}
	return out, nil
}

// BundleName returns the file name for a bundle created at t.
func BundleName(t time.Time, id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return bundlePrefix + t.UTC().Format(stampLayout) + "-" + id + ".zip"
}

// CreateBundle writes the bundle under req.OutputPath and returns its path.
// Status and container logs are best effort; their failures are recorded
// inside the bundle instead of failing it.
func (c *Collector) CreateBundle(ctx context.Context, req domain.DiagnosticsRequest) (string, error) {
	dir := req.OutputPath
	if dir == "" {
		dir = domain.DefaultDiagnosticsPath
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create diagnostics dir: %w", err)
	}

	created := c.now()
	path := filepath.Join(dir, BundleName(created, uuid.New().String()))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("create bundle: %w", err)
	}

	zw := zip.NewWriter(f)
	writeErr := c.writeEntries(ctx, zw, req, created)
	closeErr := zw.Close()
	fileErr := f.Close()

	for _, err := range []error{writeErr, closeErr, fileErr} {
		if err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("write bundle: %w", err)
		}
	}

	logger.Info("Diagnostics bundle written to %s", path)
	return path, nil
}

func (c *Collector) writeEntries(ctx context.Context, zw *zip.Writer, req domain.DiagnosticsRequest, created time.Time) error {
	results := req.Results
	if results == nil {
		results = []domain.GateResult{}
	}
	resultsJSON, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := writeEntry(zw, EntryResults, created, resultsJSON); err != nil {
		return err
	}

	summary := c.summary(req, created)
	if err := writeEntry(zw, EntrySummary, created, []byte(summary)); err != nil {
		return err
	}

	if c.fetchStatus != nil && req.APIKey != "" {
		status, err := c.fetchStatus(ctx, req.APIURL, req.APIKey)
		if err != nil {
			logger.Warn("Diagnostics: system status unavailable: %v", err)
			status, _ = json.Marshal(map[string]string{"error": err.Error()})
		}
		if err := writeEntry(zw, EntrySystemStatus, created, status); err != nil {
			return err
		}
	}

	if req.ContainerID != "" {
		logs, err := c.fetchLogs(ctx, req.ContainerID)
		if err != nil {
			logger.Warn("Diagnostics: container logs unavailable: %v", err)
			logs = append([]byte("unavailable: "+err.Error()+"\n"), logs...)
		}
		if err := writeEntry(zw, EntryContainerLog, created, logs); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) summary(req domain.DiagnosticsRequest, created time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "arrgate diagnostics\n")
	fmt.Fprintf(&b, "created:   %s\n", created.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "instance:  %s\n", req.APIURL)
	if req.ContainerID != "" {
		fmt.Fprintf(&b, "container: %s\n", req.ContainerID)
	}
	b.WriteString("\nresults:\n")
	for _, r := range req.Results {
		fmt.Fprintf(&b, "  %-12s %-8s %s", r.PluginName, r.Gate, r.Status)
		if r.SkipReason != "" {
			fmt.Fprintf(&b, " (%s)", r.SkipReason)
		}
		b.WriteString("\n")
	}
	if failures := c.SummarizeFailures(req.Results); failures != "" {
		b.WriteString("\nfailures:\n")
		b.WriteString(failures)
		b.WriteString("\n")
	}
	return b.String()
}

// SummarizeFailures lists each failed result as "plugin/gate: err1; err2",
// one per line.
func (c *Collector) SummarizeFailures(results []domain.GateResult) string {
	var lines []string
	for _, r := range results {
		if !r.Failed() {
			continue
		}
		msg := strings.Join(r.Errors, "; ")
		if msg == "" {
			msg = "failed"
		}
		lines = append(lines, fmt.Sprintf("%s/%s: %s", r.PluginName, r.Gate, msg))
	}
	return strings.Join(lines, "\n")
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
