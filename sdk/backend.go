package sdk

import "strings"

type (
	// BackendReference names the backend version a run is tested against. Ref is the source
	// control name, Tag the image tag derived from it.
	BackendReference struct {
		Ref string `json:"ref"`
		Tag string `json:"tag"`
	}

	CredentialProfile struct {
		Username string `ini:"username"`
		Password string `ini:"password"`
		URL      string `ini:"url"`
	}
)

func (b BackendReference) Valid() bool {
	return b.Ref != "" && b.Tag != "" && !strings.Contains(b.Tag, "/")
}

func (c CredentialProfile) Complete() bool {
	return c.Username != "" && c.Password != "" && c.URL != ""
}
