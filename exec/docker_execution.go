package exec

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"
)

var execPollInterval = 250 * time.Millisecond

type Execution struct {
	Id      string
	Service string
	Image   string
	Config  string
	Status  ServiceState
}

// Exec runs cmd inside the running container of service and waits for it to exit.
func (d *docker) Exec(ctx context.Context, service string, cmd []string) error {
	execId, err := d.findExecutionId(ctx, service)
	if err != nil {
		return err
	}

	if execId == nil {
		return fmt.Errorf("service %q is not running in project %q", service, d.cfg.Project)
	}

	resp, err := d.dc.ContainerExecCreate(ctx, *execId, types.ExecConfig{Cmd: cmd})
	if err != nil {
		return fmt.Errorf("unable to create exec in %s: %w", service, err)
	}

	if err := d.dc.ContainerExecStart(ctx, resp.ID, types.ExecStartCheck{Detach: true}); err != nil {
		return fmt.Errorf("unable to start exec in %s: %w", service, err)
	}

	for {
		res, err := d.dc.ContainerExecInspect(ctx, resp.ID)
		if err != nil {
			return fmt.Errorf("unable to inspect exec in %s: %w", service, err)
		}

		if !res.Running {
			if res.ExitCode != 0 {
				return fmt.Errorf("command %v in %s exited with code %d", cmd, service, res.ExitCode)
			}

			log.Debug().Str("service", service).Strs("cmd", cmd).Msg("exec completed")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(execPollInterval):
		}
	}
}

func (d *docker) getExecution(ctx context.Context, execId string) (*Execution, error) {
	res, err := d.dc.ContainerInspect(ctx, execId)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	state := AbsentState
	if res.ContainerJSONBase != nil && res.State != nil {
		switch res.State.Status {
		case "created":
			state = PresentState
		case "restarting", "running":
			state = StartedState
		case "paused", "exited", "dead":
			state = StoppedState
		}
	}

	ex := &Execution{Id: execId, Status: state}
	if res.ContainerJSONBase != nil {
		ex.Id = res.ID
	}
	if res.Config != nil {
		ex.Image = res.Config.Image
		ex.Service = res.Config.Labels[ServiceLabel]
		ex.Config = res.Config.Labels[ConfigLabel]
	}

	return ex, nil
}

func (d *docker) findExecutionId(ctx context.Context, service string) (*string, error) {
	f := filters.NewArgs()
	f.Add("label", fmt.Sprintf("%s=%s", ProjectLabel, d.cfg.Project))
	f.Add("label", fmt.Sprintf("%s=%s", ServiceLabel, service))

	containers, err := d.dc.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, fmt.Errorf("error retrieving container for %s: %w", service, err)
	}

	if len(containers) == 0 {
		return nil, nil
	}

	result := containers[0].ID
	return &result, nil
}

func (d *docker) stopExecution(ctx context.Context, execId string, timeout int) error {
	if err := d.dc.ContainerStop(ctx, execId, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("unable to stop container: %w", err)
	}

	return nil
}

func (d *docker) removeExecution(ctx context.Context, execId string) error {
	if err := d.dc.ContainerRemove(ctx, execId, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return fmt.Errorf("unable to remove container: %w", err)
	}

	return nil
}

func (d *docker) startExecution(ctx context.Context, execId string) error {
	if err := d.dc.ContainerStart(ctx, execId, container.StartOptions{}); err != nil {
		return fmt.Errorf("unable to start container: %w", err)
	}

	return nil
}

func (d *docker) createExecution(ctx context.Context, svc *Service, cfg *container.Config, hostCfg *container.HostConfig, netName string) (*Execution, error) {
	netCfg := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			netName: {Aliases: []string{svc.Name}},
		},
	}

	containerName := fmt.Sprintf("%s-%s", d.cfg.Project, svc.Name)
	resp, err := d.dc.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, containerName)
	if err != nil {
		return nil, fmt.Errorf("unable to create container for %s: %w", svc.Name, err)
	}

	for _, w := range resp.Warnings {
		log.Warn().Str("service", svc.Name).Msg(w)
	}

	return &Execution{
		Id:      resp.ID,
		Service: svc.Name,
		Image:   cfg.Image,
		Config:  cfg.Labels[ConfigLabel],
		Status:  PresentState,
	}, nil
}

func (d *docker) toDockerContainerConfig(project *Project, svc *Service, img string, tag string) (*container.Config, *container.HostConfig, error) {
	exposed, bindings, err := nat.ParsePortSpecs(svc.Ports)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid ports for %s: %w", svc.Name, err)
	}

	cfg := &container.Config{
		Image:        img,
		Env:          svc.Environment.List(),
		WorkingDir:   svc.WorkingDir,
		ExposedPorts: exposed,
		Labels: map[string]string{
			ProjectLabel: d.cfg.Project,
			ServiceLabel: svc.Name,
			TagLabel:     tag,
		},
	}

	if len(svc.Command) > 0 {
		cfg.Cmd = strslice.StrSlice(svc.Command)
	}
	if len(svc.Entrypoint) > 0 {
		cfg.Entrypoint = strslice.StrSlice(svc.Entrypoint)
	}

	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Binds:        svc.Binds(project.Dir),
	}

	digest, err := configDigest(cfg, hostCfg, svc.Ports)
	if err != nil {
		return nil, nil, err
	}
	cfg.Labels[ConfigLabel] = digest

	return cfg, hostCfg, nil
}

// configDigest fingerprints what a container was created from. Bind sources are part of it, so a
// container mounting an earlier checkout is never reused.
func configDigest(cfg *container.Config, hostCfg *container.HostConfig, ports []string) (string, error) {
	b, err := json.Marshal(struct {
		Image      string
		Env        []string
		Cmd        []string
		Entrypoint []string
		WorkingDir string
		Ports      []string
		Binds      []string
	}{cfg.Image, cfg.Env, cfg.Cmd, cfg.Entrypoint, cfg.WorkingDir, ports, hostCfg.Binds})
	if err != nil {
		return "", fmt.Errorf("unable to fingerprint container config: %w", err)
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16]), nil
}
