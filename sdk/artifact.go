package sdk

type ArtifactKind string

var (
	SdistArtifact ArtifactKind = "sdist"
	WheelArtifact ArtifactKind = "bdist_wheel"
)

type (
	Artifact struct {
		Path      string
		Kind      ArtifactKind
		Name      string
		Version   string
		PyVersion string
	}

	// ArtifactSet is built once per release run and handed to every publish step.
	ArtifactSet struct {
		Sdist Artifact
		Wheel Artifact
	}
)

func (s ArtifactSet) All() []Artifact {
	return []Artifact{s.Sdist, s.Wheel}
}
