package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// launcher creates and destroys sandbox containers. The pool only needs these
// two operations, which keeps it testable without a daemon.
type launcher interface {
	Launch(ctx context.Context) (string, error)
	Remove(ctx context.Context, id string) error
}

// sandbox launches idle compiler containers on a Docker daemon.
type sandbox struct {
	cli    *client.Client
	config Config
}

// sandboxConfigs returns the container and host settings of one sandbox:
// no network, read-only root, unprivileged user and a small tmpfs at WorkDir
// that receives the source file.
func sandboxConfigs(cfg Config) (*container.Config, *container.HostConfig) {
	return &container.Config{
			Image:      cfg.Image,
			Cmd:        []string{"sleep", "infinity"},
			WorkingDir: cfg.WorkDir,
			User:       "nobody",
			Labels:     map[string]string{"gran.sandbox": "1"},
		}, &container.HostConfig{
			NetworkMode:    "none",
			ReadonlyRootfs: true,
			Tmpfs:          map[string]string{cfg.WorkDir: "rw,size=16m,mode=1777"},
			Resources: container.Resources{
				Memory:    cfg.MemoryLimit,
				NanoCPUs:  int64(cfg.CPULimit * 1e9),
				PidsLimit: ptr(int64(64)),
			},
		}
}

func (s *sandbox) Launch(ctx context.Context) (string, error) {
	cfg, hostCfg := sandboxConfigs(s.config)

	resp, err := s.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("creating sandbox: %w", err)
	}
	if err := s.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = s.Remove(context.WithoutCancel(ctx), resp.ID)
		return "", fmt.Errorf("starting sandbox: %w", err)
	}
	return resp.ID, nil
}

func (s *sandbox) Remove(ctx context.Context, id string) error {
	return s.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

func ptr[T any](v T) *T { return &v }
