package exec

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/sdk"
)

// dockerAPI is the part of the docker client the provisioner talks to.
type dockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerExecCreate(ctx context.Context, containerID string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecStart(ctx context.Context, execID string, config types.ExecStartCheck) error
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	NetworkCreate(ctx context.Context, name string, options types.NetworkCreate) (types.NetworkCreateResponse, error)
	NetworkList(ctx context.Context, options types.NetworkListOptions) ([]types.NetworkResource, error)
	NetworkRemove(ctx context.Context, networkID string) error
	Close() error
}

func NewDockerProvisioner(cfg Config) (Provisioner, error) {
	opts := []client.Opt{
		client.WithAPIVersionNegotiation(),
	}

	if cfg.FromEnv {
		opts = append(opts, client.FromEnv)
	} else if cfg.Url != "" {
		opts = append(opts, client.WithHost(cfg.Url))
	}

	dc, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create docker client: %w", err)
	}

	return newDocker(cfg, dc), nil
}

func newDocker(cfg Config, dc dockerAPI) *docker {
	cfg = cfg.withDefaults()

	return &docker{
		cfg:   cfg,
		dc:    dc,
		namer: NewImageNamer(cfg.ImagePrefix, cfg.Variants),
	}
}

type docker struct {
	cfg   Config
	dc    dockerAPI
	namer ImageNamer
}

func (d *docker) Up(ctx context.Context, dir string, ref sdk.BackendReference) (*Environment, error) {
	if !ref.Valid() {
		return nil, fmt.Errorf("invalid backend reference: %+v", ref)
	}

	project, err := LoadProject(filepath.Join(dir, d.cfg.ComposeFile), map[string]string{d.cfg.TagVariable: ref.Tag})
	if err != nil {
		return nil, err
	}

	services, err := project.StartOrder()
	if err != nil {
		return nil, err
	}

	netName, err := d.ensureNetwork(ctx)
	if err != nil {
		return nil, err
	}

	env := &Environment{
		Project:  d.cfg.Project,
		Network:  netName,
		Tag:      ref.Tag,
		Services: map[string]string{},
	}

	for _, svc := range services {
		img := svc.Image
		if img == "" {
			img = d.namer(svc.Name, ref.Tag)
		}

		if err := d.ensureImage(ctx, img); err != nil {
			return nil, err
		}

		ex, err := d.ensurePresent(ctx, project, svc, img, ref.Tag, netName)
		if err != nil {
			return nil, err
		}

		if err := d.ensureStarted(ctx, ex.Id); err != nil {
			return nil, err
		}

		log.Info().Str("service", svc.Name).Str("image", img).Str("container", ex.Id).Msg("service started")
		env.Services[svc.Name] = ex.Id
	}

	return env, nil
}

// Down removes every container and network labelled with the project.
func (d *docker) Down(ctx context.Context) error {
	containers, err := d.dc.ContainerList(ctx, container.ListOptions{All: true, Filters: d.projectFilter()})
	if err != nil {
		return fmt.Errorf("unable to list project containers: %w", err)
	}

	for _, c := range containers {
		if err := d.ensureAbsent(ctx, c.ID); err != nil {
			return err
		}
		log.Info().Str("container", c.ID).Str("service", c.Labels[ServiceLabel]).Msg("service removed")
	}

	networks, err := d.dc.NetworkList(ctx, types.NetworkListOptions{Filters: d.projectFilter()})
	if err != nil {
		return fmt.Errorf("unable to list project networks: %w", err)
	}

	for _, n := range networks {
		if err := d.dc.NetworkRemove(ctx, n.ID); err != nil {
			return fmt.Errorf("unable to remove network %s: %w", n.Name, err)
		}
	}

	return nil
}

func (d *docker) Close() error {
	return d.dc.Close()
}

func (d *docker) projectFilter() filters.Args {
	return filters.NewArgs(filters.Arg("label", fmt.Sprintf("%s=%s", ProjectLabel, d.cfg.Project)))
}

func (d *docker) ensureNetwork(ctx context.Context) (string, error) {
	name := d.cfg.Project + "_default"

	existing, err := d.dc.NetworkList(ctx, types.NetworkListOptions{Filters: filters.NewArgs(filters.Arg("name", name))})
	if err != nil {
		return "", fmt.Errorf("unable to list networks: %w", err)
	}

	for _, n := range existing {
		if n.Name == name {
			return name, nil
		}
	}

	if _, err := d.dc.NetworkCreate(ctx, name, types.NetworkCreate{
		Driver: "bridge",
		Labels: map[string]string{ProjectLabel: d.cfg.Project},
	}); err != nil {
		return "", fmt.Errorf("unable to create network %s: %w", name, err)
	}

	return name, nil
}

// ensureImage checks the image is available locally. Images are built elsewhere; pulling is only
// attempted when configured.
func (d *docker) ensureImage(ctx context.Context, img string) error {
	_, _, err := d.dc.ImageInspectWithRaw(ctx, img)
	if err == nil {
		return nil
	}

	if !client.IsErrNotFound(err) {
		return fmt.Errorf("unable to inspect image %s: %w", img, err)
	}

	if !d.cfg.Pull {
		return fmt.Errorf("image %s is not available and pulling is disabled", img)
	}

	out, err := d.dc.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("unable to pull image %s: %w", img, err)
	}
	defer out.Close()

	// the pull only completes once the progress stream is drained
	if _, err := io.Copy(io.Discard, out); err != nil {
		return fmt.Errorf("unable to pull image %s: %w", img, err)
	}

	return nil
}

func (d *docker) ensurePresent(ctx context.Context, project *Project, svc *Service, img string, tag string, netName string) (*Execution, error) {
	cfg, hostCfg, err := d.toDockerContainerConfig(project, svc, img, tag)
	if err != nil {
		return nil, err
	}

	exId, err := d.findExecutionId(ctx, svc.Name)
	if err != nil {
		return nil, err
	}

	if exId != nil {
		ex, err := d.getExecution(ctx, *exId)
		if err != nil {
			return nil, err
		}

		// -- reuse the container only when it was created from the same image and settings
		if ex != nil && ex.Image == img && ex.Config == cfg.Labels[ConfigLabel] {
			return ex, nil
		}

		if err := d.ensureAbsent(ctx, *exId); err != nil {
			return nil, err
		}
	}

	return d.createExecution(ctx, svc, cfg, hostCfg, netName)
}

func (d *docker) ensureStarted(ctx context.Context, execId string) error {
	ex, err := d.getExecution(ctx, execId)
	if err != nil {
		return err
	}

	if ex == nil {
		return fmt.Errorf("container %s disappeared before it was started", execId)
	}

	if ex.Status == StartedState {
		return nil
	}

	return d.startExecution(ctx, ex.Id)
}

func (d *docker) ensureAbsent(ctx context.Context, execId string) error {
	ex, err := d.getExecution(ctx, execId)
	if err != nil {
		return err
	}

	if ex == nil {
		return nil
	}

	if ex.Status == StartedState {
		if err := d.stopExecution(ctx, ex.Id, d.cfg.StopTimeout); err != nil {
			return err
		}
	}

	return d.removeExecution(ctx, ex.Id)
}
