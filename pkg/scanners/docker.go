package scanners

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"github.com/rs/zerolog"
)

// Default container images for the wrapped tools.
const (
	DefaultCheckovImage    = "bridgecrew/checkov:latest"
	DefaultTrivyImage      = "aquasec/trivy:latest"
	DefaultGrypeImage      = "anchore/grype:latest"
	DefaultTruffleHogImage = "trufflesecurity/trufflehog:latest"
	DefaultClamAVImage     = "clamav/clamav:latest"
	DefaultXeolImage       = "noqcks/xeol:latest"
	DefaultSonarImage      = "sonarsource/sonar-scanner-cli:latest"
)

// Oldest docker client we accept; --rm with anonymous volume cleanup and the
// version --format used by Preflight both behave before this.
const minDockerVersion = "20.10.0"

// DockerRunner executes tool containers against a read-only target mount.
type DockerRunner struct {
	path string
	log  zerolog.Logger
}

// NewDockerRunner resolves the docker binary, defaulting to whatever is on
// PATH when the config does not pin one.
func NewDockerRunner(dockerPath string, log zerolog.Logger) *DockerRunner {
	if dockerPath == "" {
		dockerPath = "docker"
	}
	return &DockerRunner{path: dockerPath, log: log.With().Str("component", "docker").Logger()}
}

// Preflight verifies the docker client exists and is recent enough.
func (d *DockerRunner) Preflight(ctx context.Context) error {
	bin, err := exec.LookPath(d.path)
	if err != nil {
		return fmt.Errorf("docker binary not found (%s): install Docker or set docker_path in the config: %w", d.path, err)
	}

	out, err := exec.CommandContext(ctx, bin, "version", "--format", "{{.Client.Version}}").Output()
	if err != nil {
		return fmt.Errorf("docker version check failed: %w", err)
	}
	raw := strings.TrimSpace(string(out))

	have, err := goversion.NewVersion(strings.TrimSuffix(raw, "+"))
	if err != nil {
		// Some builds report suffixes like "24.0.7-ce"; don't hard-fail on
		// an unparseable version string, docker itself answered.
		d.log.Warn().Str("version", raw).Msg("could not parse docker client version")
		return nil
	}
	min := goversion.Must(goversion.NewVersion(minDockerVersion))
	if have.LessThan(min) {
		return fmt.Errorf("docker client %s is older than the minimum supported %s", have, min)
	}
	d.log.Debug().Str("version", have.String()).Msg("docker preflight ok")
	return nil
}

// RunOptions describe one container invocation.
type RunOptions struct {
	Image   string
	Target  string   // host directory mounted read-only at /target
	Mounts  []string // extra -v specs
	Env     []string // -e specs, either KEY or KEY=VALUE
	Args    []string // command + args passed to the image
	OKCodes []int    // exit codes that mean "findings found", not failure
}

// Run invokes `docker run --rm` and returns stdout. Exit codes listed in
// OKCodes are treated as success since most scanners signal findings that
// way (clamscan exits 1 on a hit, checkov on failed checks).
func (d *DockerRunner) Run(ctx context.Context, opts RunOptions) ([]byte, error) {
	args := []string{"run", "--rm"}
	if opts.Target != "" {
		args = append(args, "-v", opts.Target+":/target:ro")
	}
	for _, m := range opts.Mounts {
		args = append(args, "-v", m)
	}
	for _, e := range opts.Env {
		args = append(args, "-e", e)
	}
	args = append(args, opts.Image)
	args = append(args, opts.Args...)

	d.log.Debug().Str("image", opts.Image).Strs("args", opts.Args).Msg("running container")

	cmd := exec.CommandContext(ctx, d.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			for _, code := range opts.OKCodes {
				if exitErr.ExitCode() == code {
					return stdout.Bytes(), nil
				}
			}
		}
		if ctx.Err() != nil {
			return stdout.Bytes(), fmt.Errorf("%s: %w", opts.Image, ctx.Err())
		}
		return stdout.Bytes(), fmt.Errorf("%s failed: %w: %s", opts.Image, err, firstLine(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
