package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/shono-io/acasci/sdk"
)

// BranchResolver tests against the backend branch matching where a change lands: the target
// branch of a pull request, the pushed branch otherwise.
type BranchResolver struct {
	mapper TagMapper
}

func NewBranchResolver(mapper TagMapper) *BranchResolver {
	if mapper == nil {
		mapper = DockerTag
	}

	return &BranchResolver{mapper: mapper}
}

func (r *BranchResolver) Resolve(_ context.Context, event sdk.TriggerEvent) (sdk.BackendReference, error) {
	var ref string
	switch event.Kind {
	case sdk.PullRequestEvent:
		ref = strings.TrimPrefix(event.BaseRef, sdk.BranchPrefix)
	case sdk.PushEvent:
		ref = strings.TrimPrefix(event.SourceRef, sdk.BranchPrefix)
	case sdk.TagCreateEvent:
		ref = strings.TrimPrefix(event.SourceRef, sdk.TagPrefix)
	default:
		return sdk.BackendReference{}, fmt.Errorf("unable to resolve backend for event kind %q", event.Kind)
	}

	if strings.TrimSpace(ref) == "" {
		return sdk.BackendReference{}, fmt.Errorf("unable to resolve backend: %s has no usable ref", event)
	}

	return reference(ref, r.mapper)
}
