// Package docker runs submissions inside throwaway containers.
//
// Each language maps to an image, and each image has a Pool of pre-warmed
// containers started with `sleep infinity`, no network, a read-only root
// filesystem and a tmpfs work directory. An execution takes one container,
// streams the source into it, runs the compile and run commands with
// `docker exec`, and force-removes the container afterwards, so nothing a
// submission does survives into the next one.
package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/code-runner/internal/executor"
	"github.com/sakif/code-runner/internal/language"
	"github.com/sakif/code-runner/internal/workspace"
)

const stageUpload executor.Stage = "upload"

// uploadTimeout bounds extracting the source archive into a container.
const uploadTimeout = 10 * time.Second

// Runner implements executor.Runner using Docker.
type Runner struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pools  map[string]*Pool // keyed by image
}

// New creates a Runner, connects to the daemon and starts one pool per image.
func New(cfg Config, logger *slog.Logger) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	r := &Runner{
		cli:    cli,
		config: cfg,
		logger: logger,
		pools:  make(map[string]*Pool),
	}
	for _, img := range cfg.images() {
		pool := NewPool(cli, img, cfg, logger)
		pool.Start()
		r.pools[img] = pool
	}
	return r, nil
}

// Close shuts down every pool and the docker client.
func (r *Runner) Close() error {
	for _, pool := range r.pools {
		pool.Stop()
	}
	return r.cli.Close()
}

// Name identifies the runner in logs and health output.
func (r *Runner) Name() string {
	return "docker"
}

// Supports reports whether an image is configured for the language.
func (r *Runner) Supports(desc language.Descriptor) bool {
	_, ok := r.poolFor(desc)
	return ok && desc.LocalCapable()
}

func (r *Runner) poolFor(desc language.Descriptor) (*Pool, bool) {
	img, ok := r.config.Images[desc.ID]
	if !ok {
		return nil, false
	}
	pool, ok := r.pools[img]
	return pool, ok
}

// CheckAvailability pings the daemon.
func (r *Runner) CheckAvailability(ctx context.Context) executor.Availability {
	if _, err := r.cli.Ping(ctx); err != nil {
		return executor.Availability{Available: false, Detail: fmt.Sprintf("docker daemon unreachable: %v", err)}
	}
	langs := make([]string, 0, len(r.config.Images))
	for id := range r.config.Images {
		langs = append(langs, id)
	}
	sort.Strings(langs)
	return executor.Availability{
		Available: true,
		Detail:    fmt.Sprintf("docker daemon reachable, images for: %s", strings.Join(langs, ", ")),
	}
}

// Run executes the workspace in a fresh container from the language's pool.
func (r *Runner) Run(ctx context.Context, desc language.Descriptor, ws *workspace.Workspace) (*executor.RawOutcome, error) {
	pool, ok := r.poolFor(desc)
	if !ok {
		return nil, fmt.Errorf("no docker image configured for %s", desc.ID)
	}

	containerID, err := pool.GetContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container from pool: %w", err)
	}

	// Always ensure we clean up the container that we acquired; this also
	// kills anything a timed-out exec left running.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := r.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{Force: true})
		if err != nil {
			r.logger.Error("failed to remove container", slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	if err := r.upload(ctx, containerID, ws); err != nil {
		return nil, err
	}

	paths := desc.PathsFor(r.config.WorkDir, ws.Name.Value)

	var compileElapsed time.Duration
	if desc.RequiresCompilation() {
		out, err := r.step(ctx, containerID, executor.StageCompile, r.config.compileUser(desc), language.Expand(desc.Compile, paths), nil, r.config.CompileTimeout)
		if err != nil {
			return nil, err
		}
		if out.TimedOut || out.ExitCode != 0 {
			return out, nil
		}
		compileElapsed = out.Elapsed
	}

	stdin, err := os.Open(ws.StdinPath)
	if err != nil {
		return nil, fmt.Errorf("opening stdin: %w", err)
	}
	defer stdin.Close()

	out, err := r.step(ctx, containerID, executor.StageRun, "", language.Expand(desc.Run, paths), stdin, r.config.Timeout)
	if err != nil {
		return nil, err
	}
	out.Elapsed += compileElapsed
	return out, nil
}

// upload extracts the source file into the container's work directory.
//
// CopyToContainer cannot write into a tmpfs mount on a read-only rootfs,
// so the archive is piped into `tar -x` running inside the container.
func (r *Runner) upload(ctx context.Context, containerID string, ws *workspace.Workspace) error {
	archive, err := archiveSource(ws.SourcePath)
	if err != nil {
		return err
	}

	out, err := r.step(ctx, containerID, stageUpload, "", []string{"tar", "-x", "-C", r.config.WorkDir, "-f", "-"}, archive, uploadTimeout)
	if err != nil {
		return err
	}
	if out.TimedOut || out.ExitCode != 0 {
		return fmt.Errorf("extracting source into container (exit %d): %s", out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	return nil
}

// archiveSource packs the source file into an in-memory tar stream.
func archiveSource(path string) (*bytes.Buffer, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name:    filepath.Base(path),
		Mode:    0o644,
		Size:    int64(len(src)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("writing tar header: %w", err)
	}
	if _, err := tw.Write(src); err != nil {
		return nil, fmt.Errorf("writing tar body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar: %w", err)
	}
	return &buf, nil
}

// step runs one command in the container under a wall-clock bound. An
// empty user keeps the container's own.
func (r *Runner) step(ctx context.Context, containerID string, stage executor.Stage, user string, argv []string, stdin io.Reader, limit time.Duration) (*executor.RawOutcome, error) {
	// We apply a timeout context purely for the exec wait
	stepCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	execResp, err := r.cli.ContainerExecCreate(stepCtx, containerID, container.ExecOptions{
		AttachStdin:  stdin != nil,
		AttachStdout: true,
		AttachStderr: true,
		User:         user,
		WorkingDir:   r.config.WorkDir,
		Env:          r.environ(),
		Cmd:          argv,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create exec: %w", stage, err)
	}

	attachResp, err := r.cli.ContainerExecAttach(stepCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to attach to exec: %w", stage, err)
	}
	defer attachResp.Close()

	stdout := executor.NewCappedBuffer(r.config.MaxOutputBytes)
	stderr := executor.NewCappedBuffer(r.config.MaxOutputBytes)
	start := time.Now()

	if stdin != nil {
		go func() {
			_, _ = io.Copy(attachResp.Conn, stdin)
			_ = attachResp.CloseWrite()
		}()
	}

	done := make(chan struct{})
	go func() {
		// Use stdcopy to demultiplex stdout from stderr
		_, _ = stdcopy.StdCopy(stdout, stderr, attachResp.Reader)
		close(done)
	}()

	out := &executor.RawOutcome{Stage: stage, Limit: limit}

	select {
	case <-done:
		inspectResp, err := r.cli.ContainerExecInspect(ctx, execResp.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to inspect exec: %w", stage, err)
		}
		out.ExitCode = inspectResp.ExitCode
	case <-stepCtx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("%s: %w", stage, ctx.Err())
		}
		out.TimedOut = true
		out.ExitCode = executor.TimeoutExitCode
	}

	out.Elapsed = time.Since(start)
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()
	out.Truncated = stdout.Truncated() || stderr.Truncated()

	r.logger.Debug("exec finished",
		slog.String("stage", string(stage)),
		slog.String("container", containerID),
		slog.Int("exitCode", out.ExitCode),
		slog.Bool("timedOut", out.TimedOut),
		slog.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

// environ is added to the image's environment for every exec. The root
// filesystem is read-only, so every cache a toolchain wants lives in WorkDir,
// except GOCACHE when the cache volume is configured.
func (r *Runner) environ() []string {
	dir := r.config.WorkDir
	return []string{
		"HOME=" + dir,
		"TMPDIR=" + dir,
		"LANG=C.UTF-8",
		"GOCACHE=" + r.config.goCache(),
		"GOPATH=" + dir + "/.go",
		"CGO_ENABLED=0",
	}
}
