package deploy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// RemoteSpec addresses a directory on a host reachable over ssh.
type RemoteSpec struct {
	User         string
	Host         string
	Port         int
	Dir          string
	IdentityFile string
	Options      []string
}

// ParseRemote parses "[user@]host:/dir".
func ParseRemote(s string) (RemoteSpec, error) {
	hostPart, dir, ok := strings.Cut(s, ":")
	if !ok || hostPart == "" || dir == "" {
		return RemoteSpec{}, fmt.Errorf("remote %q must look like [user@]host:/dir", s)
	}

	var spec RemoteSpec
	if user, host, found := strings.Cut(hostPart, "@"); found {
		spec.User, spec.Host = user, host
	} else {
		spec.Host = hostPart
	}
	if spec.Host == "" {
		return RemoteSpec{}, fmt.Errorf("remote %q has no host", s)
	}
	spec.Dir = dir

	return spec, nil
}

func (r RemoteSpec) Target() string {
	if r.User == "" {
		return r.Host
	}
	return r.User + "@" + r.Host
}

func (r RemoteSpec) String() string {
	return r.Target() + ":" + r.Dir
}

// RemoteTransport moves files to a remote host and runs commands there.
type RemoteTransport interface {
	Upload(ctx context.Context, localPath string, remote RemoteSpec, remotePath string) error
	Exec(ctx context.Context, remote RemoteSpec, command string) ([]byte, error)
}

type SSHTransport struct {
	Runner Runner
	SSH    string
	SCP    string
}

func (t SSHTransport) Upload(ctx context.Context, localPath string, remote RemoteSpec, remotePath string) error {
	bin := t.SCP
	if bin == "" {
		bin = "scp"
	}

	args := t.commonArgs(remote, "-P")
	args = append(args, localPath, remote.Target()+":"+remotePath)

	if _, err := t.Runner.Run(ctx, bin, args...); err != nil {
		return fmt.Errorf("failed to upload %s to %s: %w", localPath, remote.Target(), err)
	}

	return nil
}

func (t SSHTransport) Exec(ctx context.Context, remote RemoteSpec, command string) ([]byte, error) {
	bin := t.SSH
	if bin == "" {
		bin = "ssh"
	}

	args := t.commonArgs(remote, "-p")
	args = append(args, remote.Target(), command)

	out, err := t.Runner.Run(ctx, bin, args...)
	if err != nil {
		return out, fmt.Errorf("remote command on %s failed: %w", remote.Target(), err)
	}

	return out, nil
}

// commonArgs builds the flags ssh and scp share; they only differ in the
// port flag spelling.
func (t SSHTransport) commonArgs(remote RemoteSpec, portFlag string) []string {
	args := []string{"-o", "BatchMode=yes"}
	if remote.Port != 0 {
		args = append(args, portFlag, strconv.Itoa(remote.Port))
	}
	if remote.IdentityFile != "" {
		args = append(args, "-i", remote.IdentityFile)
	}
	for _, o := range remote.Options {
		args = append(args, "-o", o)
	}
	return args
}
