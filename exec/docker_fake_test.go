package exec

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

type fakeContainer struct {
	id     string
	name   string
	cfg    *container.Config
	host   *container.HostConfig
	net    *network.NetworkingConfig
	status string
}

// fakeDocker is an in-memory stand-in for the docker daemon.
type fakeDocker struct {
	mu sync.Mutex

	images     map[string]bool
	containers map[string]*fakeContainer
	networks   map[string]types.NetworkResource

	created  []string
	pulled   []string
	execs    [][]string
	execExit int
	nextID   int
	closed   bool
}

func newFakeDocker(images ...string) *fakeDocker {
	f := &fakeDocker{
		images:     map[string]bool{},
		containers: map[string]*fakeContainer{},
		networks:   map[string]types.NetworkResource{},
	}
	for _, img := range images {
		f.images[img] = true
	}
	return f
}

func (f *fakeDocker) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func matchLabels(args filters.Args, labels map[string]string) bool {
	for _, l := range args.Get("label") {
		k, v, _ := strings.Cut(l, "=")
		if labels[k] != v {
			return false
		}
	}
	return true
}

func (f *fakeDocker) ContainerList(_ context.Context, options container.ListOptions) ([]types.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []types.Container
	for _, c := range f.containers {
		if !options.All && c.status != "running" {
			continue
		}
		if !matchLabels(options.Filters, c.cfg.Labels) {
			continue
		}
		result = append(result, types.Container{ID: c.id, Names: []string{"/" + c.name}, Labels: c.cfg.Labels, State: c.status})
	}
	return result, nil
}

func (f *fakeDocker) ContainerInspect(_ context.Context, containerID string) (types.ContainerJSON, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, fnd := f.containers[containerID]
	if !fnd {
		return types.ContainerJSON{}, errdefs.NotFound(fmt.Errorf("no such container: %s", containerID))
	}

	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:    c.id,
			Name:  "/" + c.name,
			State: &types.ContainerState{Status: c.status, Running: c.status == "running"},
		},
		Config: c.cfg,
	}, nil
}

func (f *fakeDocker) ContainerCreate(_ context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, _ *ocispec.Platform, containerName string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.containers {
		if c.name == containerName {
			return container.CreateResponse{}, errdefs.Conflict(fmt.Errorf("name %s in use", containerName))
		}
	}

	id := f.id("c")
	f.containers[id] = &fakeContainer{id: id, name: containerName, cfg: config, host: hostConfig, net: networkingConfig, status: "created"}
	f.created = append(f.created, config.Labels[ServiceLabel])
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeDocker) ContainerStart(_ context.Context, containerID string, _ container.StartOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, fnd := f.containers[containerID]
	if !fnd {
		return errdefs.NotFound(fmt.Errorf("no such container: %s", containerID))
	}
	c.status = "running"
	return nil
}

func (f *fakeDocker) ContainerStop(_ context.Context, containerID string, _ container.StopOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, fnd := f.containers[containerID]; fnd {
		c.status = "exited"
	}
	return nil
}

func (f *fakeDocker) ContainerRemove(_ context.Context, containerID string, _ container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.containers, containerID)
	return nil
}

func (f *fakeDocker) ContainerExecCreate(_ context.Context, containerID string, config types.ExecConfig) (types.IDResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, fnd := f.containers[containerID]; !fnd {
		return types.IDResponse{}, errdefs.NotFound(fmt.Errorf("no such container: %s", containerID))
	}
	f.execs = append(f.execs, config.Cmd)
	return types.IDResponse{ID: f.id("e")}, nil
}

func (f *fakeDocker) ContainerExecStart(context.Context, string, types.ExecStartCheck) error {
	return nil
}

func (f *fakeDocker) ContainerExecInspect(_ context.Context, execID string) (types.ContainerExecInspect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return types.ContainerExecInspect{ExecID: execID, Running: false, ExitCode: f.execExit}, nil
}

func (f *fakeDocker) ImageInspectWithRaw(_ context.Context, imageID string) (types.ImageInspect, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.images[imageID] {
		return types.ImageInspect{}, nil, errdefs.NotFound(fmt.Errorf("no such image: %s", imageID))
	}
	return types.ImageInspect{ID: imageID}, nil, nil
}

func (f *fakeDocker) ImagePull(_ context.Context, ref string, _ image.PullOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pulled = append(f.pulled, ref)
	f.images[ref] = true
	return io.NopCloser(strings.NewReader(`{"status":"done"}`)), nil
}

func (f *fakeDocker) NetworkCreate(_ context.Context, name string, options types.NetworkCreate) (types.NetworkCreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.id("n")
	f.networks[id] = types.NetworkResource{ID: id, Name: name, Labels: options.Labels}
	return types.NetworkCreateResponse{ID: id}, nil
}

func (f *fakeDocker) NetworkList(_ context.Context, options types.NetworkListOptions) ([]types.NetworkResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []types.NetworkResource
	for _, n := range f.networks {
		if names := options.Filters.Get("name"); len(names) > 0 && names[0] != n.Name {
			continue
		}
		if !matchLabels(options.Filters, n.Labels) {
			continue
		}
		result = append(result, n)
	}
	return result, nil
}

func (f *fakeDocker) NetworkRemove(_ context.Context, networkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.networks, networkID)
	return nil
}

func (f *fakeDocker) Close() error {
	f.closed = true
	return nil
}

func (f *fakeDocker) byService(service string) *fakeContainer {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.containers {
		if c.cfg.Labels[ServiceLabel] == service {
			return c
		}
	}
	return nil
}
