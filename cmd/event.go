package cmd

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shono-io/acasci/sdk"
	"github.com/spf13/cobra"
)

//go:embed event.schema.json
var eventSchemaSource string

var eventSchema = jsonschema.MustCompileString("event.schema.json", eventSchemaSource)

// eventOptions holds the ways a trigger can be given. Explicit flags win over an event file, which
// wins over the GitHub Actions environment.
type eventOptions struct {
	Kind    string
	Ref     string
	BaseRef string
	File    string
}

func (o *eventOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Kind, "event", "", "trigger kind: push, pull_request or tag_create (default: from GitHub Actions, where events other than pull requests and tags run as a push)")
	cmd.Flags().StringVar(&o.Ref, "ref", "", "source ref of the trigger")
	cmd.Flags().StringVar(&o.BaseRef, "base-ref", "", "target branch of a pull request")
	cmd.Flags().StringVar(&o.File, "event-file", "", "json document describing the trigger")
}

func (o *eventOptions) Event(getenv func(string) string) (sdk.TriggerEvent, error) {
	var (
		evt sdk.TriggerEvent
		err error
	)

	switch {
	case o.Kind != "":
		evt = sdk.TriggerEvent{Kind: sdk.EventKind(o.Kind), SourceRef: o.Ref, BaseRef: o.BaseRef}
	case o.File != "":
		evt, err = loadEventFile(o.File)
	default:
		evt, err = githubEvent(getenv)
	}
	if err != nil {
		return sdk.TriggerEvent{}, err
	}

	if err := evt.Validate(); err != nil {
		return sdk.TriggerEvent{}, fmt.Errorf("invalid trigger: %w", err)
	}

	return evt, nil
}

func loadEventFile(path string) (sdk.TriggerEvent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sdk.TriggerEvent{}, fmt.Errorf("unable to read event file: %w", err)
	}

	return parseEvent(raw)
}

func parseEvent(raw []byte) (sdk.TriggerEvent, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return sdk.TriggerEvent{}, fmt.Errorf("unable to decode event: %w", err)
	}

	if err := eventSchema.Validate(doc); err != nil {
		return sdk.TriggerEvent{}, fmt.Errorf("event does not match the event schema: %w", err)
	}

	var evt sdk.TriggerEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return sdk.TriggerEvent{}, fmt.Errorf("unable to decode event: %w", err)
	}

	return evt, nil
}

// githubEvent derives the trigger from the variables GitHub Actions sets for a workflow run.
func githubEvent(getenv func(string) string) (sdk.TriggerEvent, error) {
	name := getenv("GITHUB_EVENT_NAME")
	ref := getenv("GITHUB_REF")

	if name == "" {
		return sdk.TriggerEvent{}, fmt.Errorf("no trigger given: use --event, --event-file or run inside GitHub Actions")
	}

	switch {
	case name == "pull_request" || name == "pull_request_target":
		return sdk.TriggerEvent{Kind: sdk.PullRequestEvent, SourceRef: ref, BaseRef: getenv("GITHUB_BASE_REF")}, nil
	case name == "create" && getenv("GITHUB_REF_TYPE") == "tag", strings.HasPrefix(ref, sdk.TagPrefix):
		return sdk.TriggerEvent{Kind: sdk.TagCreateEvent, SourceRef: strings.TrimPrefix(ref, sdk.TagPrefix)}, nil
	default:
		if name != "push" && name != "create" {
			log.Warn().Str("github_event", name).Str("ref", ref).Msg("treating workflow event as a push")
		}
		return sdk.TriggerEvent{Kind: sdk.PushEvent, SourceRef: ref}, nil
	}
}
