package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// Pool manages pre-warmed containers of a single image. Every container is
// used for exactly one execution and then removed; the manager goroutine
// replaces it in the background.
type Pool struct {
	cli        *client.Client
	image      string
	config     Config
	logger     *slog.Logger
	containers chan string
	done       chan struct{}
	wg         sync.WaitGroup
	startDone  sync.Once
	stopDone   sync.Once
}

// NewPool initializes a pool for image. Call Start to begin warming it.
func NewPool(cli *client.Client, img string, cfg Config, logger *slog.Logger) *Pool {
	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}
	return &Pool{
		cli:        cli,
		image:      img,
		config:     cfg,
		logger:     logger.With(slog.String("image", img)),
		containers: make(chan string, size),
		done:       make(chan struct{}),
	}
}

// Start pulls the image if needed and begins filling the pool in the background.
func (p *Pool) Start() {
	p.startDone.Do(func() {
		p.logger.Info("starting docker container pool manager", slog.Int("poolSize", cap(p.containers)))
		p.wg.Add(1)
		go p.manager()
	})
}

// Stop shuts down the manager and removes every pre-warmed container.
func (p *Pool) Stop() {
	p.stopDone.Do(func() {
		p.logger.Info("shutting down docker container pool")
		close(p.done)
		p.wg.Wait()

		for {
			select {
			case id := <-p.containers:
				p.removeContainer(id)
			default:
				return
			}
		}
	})
}

// GetContainer returns a ready-to-use container ID from the pool.
// It blocks until one is available or the context is canceled.
func (p *Pool) GetContainer(ctx context.Context) (string, error) {
	select {
	case id := <-p.containers:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// manager continuously ensures the pool is at capacity.
func (p *Pool) manager() {
	defer p.wg.Done()

	for !p.ensureImage() {
		if !p.sleep(5 * time.Second) {
			return
		}
	}

	for {
		select {
		case <-p.done:
			return
		default:
		}

		if len(p.containers) >= cap(p.containers) {
			if !p.sleep(100 * time.Millisecond) {
				return
			}
			continue
		}

		id, err := p.createContainer()
		if err != nil {
			p.logger.Error("failed to create pre-warmed container", slog.String("error", err.Error()))
			if !p.sleep(time.Second) {
				return
			}
			continue
		}

		select {
		case p.containers <- id:
		case <-p.done:
			p.removeContainer(id)
			return
		}
	}
}

// sleep waits for d and reports false if the pool was stopped meanwhile.
func (p *Pool) sleep(d time.Duration) bool {
	select {
	case <-p.done:
		return false
	case <-time.After(d):
		return true
	}
}

// ensureImage pulls the image unless it is already present.
func (p *Pool) ensureImage() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := p.cli.ImageInspect(ctx, p.image); err == nil {
		return true
	}

	p.logger.Info("pulling docker image")
	reader, err := p.cli.ImagePull(ctx, p.image, image.PullOptions{})
	if err != nil {
		p.logger.Error("failed to pull image", slog.String("error", err.Error()))
		return false
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	if _, err := io.Copy(io.Discard, reader); err != nil {
		p.logger.Error("failed to pull image", slog.String("error", err.Error()))
		return false
	}
	p.logger.Info("docker image is ready")
	return true
}

// createContainer starts a locked-down container running `sleep infinity`.
func (p *Pool) createContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pids := p.config.PidsLimit
	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   p.config.MemoryLimit,
			NanoCPUs: int64(p.config.CPULimit * 1e9),
		},
		AutoRemove:     false,
		ReadonlyRootfs: true,
		// The only writable paths. mode=1777 so the unprivileged user can write.
		Tmpfs: map[string]string{
			p.config.WorkDir: fmt.Sprintf("rw,exec,nosuid,size=%s,mode=1777", p.config.WorkDirSize),
			"/tmp":           "rw,noexec,nosuid,size=16m,mode=1777",
		},
		Mounts:      p.config.mountsFor(p.image),
		CapDrop:     []string{"ALL"},
		SecurityOpt: []string{"no-new-privileges"},
	}
	if pids > 0 {
		hostConfig.Resources.PidsLimit = &pids
	}

	resp, err := p.cli.ContainerCreate(ctx, &container.Config{
		Image:           p.image,
		Cmd:             []string{"sleep", "infinity"},
		Tty:             false,
		AttachStdout:    false,
		AttachStderr:    false,
		User:            "nobody",
		WorkingDir:      p.config.WorkDir,
		NetworkDisabled: true,
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("ContainerCreate failed: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.removeContainer(resp.ID)
		return "", fmt.Errorf("ContainerStart failed: %w", err)
	}

	return resp.ID, nil
}

// removeContainer force removes a container by ID.
func (p *Pool) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		p.logger.Warn("failed to remove container", slog.String("id", id), slog.String("error", err.Error()))
	}
}
