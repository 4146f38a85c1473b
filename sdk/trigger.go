package sdk

import (
	"fmt"
	"strings"
)

type EventKind string

var (
	PushEvent        EventKind = "push"
	PullRequestEvent EventKind = "pull_request"
	TagCreateEvent   EventKind = "tag_create"
)

const (
	BranchPrefix = "refs/heads/"
	TagPrefix    = "refs/tags/"
)

// TriggerEvent is the source control event a pipeline run was started for. BaseRef is only set
// for pull requests and holds the branch the pull request targets.
type TriggerEvent struct {
	Kind      EventKind `json:"kind"`
	SourceRef string    `json:"source_ref"`
	BaseRef   string    `json:"base_ref,omitempty"`
}

func (e TriggerEvent) Validate() error {
	switch e.Kind {
	case PushEvent, TagCreateEvent:
	case PullRequestEvent:
		if strings.TrimSpace(e.BaseRef) == "" {
			return fmt.Errorf("pull request event requires a base ref")
		}
	default:
		return fmt.Errorf("unknown event kind: %q", e.Kind)
	}

	if strings.TrimSpace(e.SourceRef) == "" {
		return fmt.Errorf("%s event requires a source ref", e.Kind)
	}

	return nil
}

func (e TriggerEvent) String() string {
	if e.Kind == PullRequestEvent {
		return fmt.Sprintf("%s %s -> %s", e.Kind, e.SourceRef, e.BaseRef)
	}

	return fmt.Sprintf("%s %s", e.Kind, e.SourceRef)
}
