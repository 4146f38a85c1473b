package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/exec"
	"github.com/shono-io/acasci/sdk"
)

type BuildConfig struct {
	Dir     string   `mapstructure:"dir"`
	OutDir  string   `mapstructure:"out_dir"`
	Command []string `mapstructure:"command"`
}

type Builder interface {
	Build(ctx context.Context) (sdk.ArtifactSet, error)
}

// PythonBuilder builds the sdist and the wheel with the packaging toolchain.
type PythonBuilder struct {
	cfg      BuildConfig
	commands exec.CommandRunner
}

func NewPythonBuilder(cfg BuildConfig, commands exec.CommandRunner) *PythonBuilder {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "dist"
	}
	if len(cfg.Command) == 0 {
		cfg.Command = []string{"python", "-m", "build", "--sdist", "--wheel", "--outdir"}
	}
	if commands == nil {
		commands = exec.NewProcessRunner(os.Stdout, os.Stderr)
	}

	return &PythonBuilder{cfg: cfg, commands: commands}
}

func (b *PythonBuilder) Build(ctx context.Context) (sdk.ArtifactSet, error) {
	outDir := b.cfg.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(b.cfg.Dir, outDir)
	}

	// -- stale artifacts from an earlier build would make the result ambiguous
	if err := os.RemoveAll(outDir); err != nil {
		return sdk.ArtifactSet{}, fmt.Errorf("unable to clean %s: %w", outDir, err)
	}

	args := append(append([]string(nil), b.cfg.Command[1:]...), outDir)
	if err := b.commands.Run(ctx, b.cfg.Dir, os.Environ(), b.cfg.Command[0], args...); err != nil {
		return sdk.ArtifactSet{}, fmt.Errorf("unable to build distribution: %w", err)
	}

	set, err := Collect(outDir)
	if err != nil {
		return sdk.ArtifactSet{}, err
	}

	log.Info().Str("sdist", set.Sdist.Path).Str("wheel", set.Wheel.Path).Str("version", set.Sdist.Version).Msg("distribution built")
	return set, nil
}

// Collect finds exactly one sdist and one wheel in dir.
func Collect(dir string) (sdk.ArtifactSet, error) {
	sdists, err := filepath.Glob(filepath.Join(dir, "*.tar.gz"))
	if err != nil {
		return sdk.ArtifactSet{}, err
	}
	wheels, err := filepath.Glob(filepath.Join(dir, "*.whl"))
	if err != nil {
		return sdk.ArtifactSet{}, err
	}

	if len(sdists) != 1 || len(wheels) != 1 {
		return sdk.ArtifactSet{}, fmt.Errorf("expected one sdist and one wheel in %s, found %d and %d", dir, len(sdists), len(wheels))
	}

	sdist, err := ParseArtifact(sdists[0])
	if err != nil {
		return sdk.ArtifactSet{}, err
	}
	wheel, err := ParseArtifact(wheels[0])
	if err != nil {
		return sdk.ArtifactSet{}, err
	}

	return sdk.ArtifactSet{Sdist: sdist, Wheel: wheel}, nil
}

// ParseArtifact reads the distribution name and version from an sdist or wheel file name.
func ParseArtifact(path string) (sdk.Artifact, error) {
	base := filepath.Base(path)

	switch {
	case strings.HasSuffix(base, ".tar.gz"):
		stem := strings.TrimSuffix(base, ".tar.gz")
		i := strings.LastIndex(stem, "-")
		if i <= 0 || i == len(stem)-1 {
			return sdk.Artifact{}, fmt.Errorf("malformed sdist name %q", base)
		}
		return sdk.Artifact{Path: path, Kind: sdk.SdistArtifact, Name: stem[:i], Version: stem[i+1:], PyVersion: "source"}, nil

	case strings.HasSuffix(base, ".whl"):
		parts := strings.Split(strings.TrimSuffix(base, ".whl"), "-")
		if len(parts) != 5 && len(parts) != 6 {
			return sdk.Artifact{}, fmt.Errorf("malformed wheel name %q", base)
		}
		return sdk.Artifact{Path: path, Kind: sdk.WheelArtifact, Name: parts[0], Version: parts[1], PyVersion: parts[len(parts)-3]}, nil

	default:
		return sdk.Artifact{}, fmt.Errorf("unknown artifact type %q", base)
	}
}
