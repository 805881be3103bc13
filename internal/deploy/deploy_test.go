package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mergesync/internal/model"
	"mergesync/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestDeployer(t *testing.T, runner Runner, patterns []string) *Deployer {
	t.Helper()
	d := NewDeployer(Options{
		Archiver:   TarArchiver{Runner: runner},
		Transport:  SSHTransport{Runner: runner},
		Classifier: pipeline.NewClassifier(patterns, nil, nil),
		WorkDir:    t.TempDir(),
	})
	d.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return d
}

func TestDeployRunsArchiveUploadExtract(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "index.html"), "<html>")
	writeFile(t, filepath.Join(src, "assets", "app.js"), "js")
	writeFile(t, filepath.Join(src, ".git", "HEAD"), "ref")

	runner := &RecordingRunner{}
	d := newTestDeployer(t, runner, []string{".git"})

	remote := RemoteSpec{User: "deploy", Host: "web1", Port: 2222, Dir: "/srv/site/"}
	res, err := d.Deploy(context.Background(), Plan{Source: src, Remote: remote, KeepPrevious: true})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Files)
	assert.Equal(t, "/srv/release-20240102-030405.tar.gz", res.RemoteArchive)
	assert.Equal(t, "/srv/site.prev-20240102-030405", res.PreviousDir)

	calls := runner.Calls()
	require.Len(t, calls, 3)

	tarCall := calls[0]
	assert.Equal(t, "tar", tarCall[0])
	assert.Equal(t, []string{"-czf", res.Archive, "-C", src}, tarCall[1:5])
	assert.Equal(t, []string{"./assets/app.js", "./index.html"}, tarCall[5:])

	scpCall := calls[1]
	assert.Equal(t, []string{"scp", "-o", "BatchMode=yes", "-P", "2222", res.Archive, "deploy@web1:/srv/release-20240102-030405.tar.gz"}, scpCall)

	sshCall := calls[2]
	assert.Equal(t, []string{"ssh", "-o", "BatchMode=yes", "-p", "2222", "deploy@web1"}, sshCall[:6])
	script := sshCall[6]
	assert.Contains(t, script, "mv '/srv/site' '/srv/site.prev-20240102-030405'")
	assert.Contains(t, script, "tar -xzf '/srv/release-20240102-030405.tar.gz' -C '/srv/site'")
	assert.True(t, strings.HasSuffix(script, "rm -f '/srv/release-20240102-030405.tar.gz'"))
}

func TestDeployStopsOnUploadFailure(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")

	runner := &RecordingRunner{FailOn: map[string]error{"scp": errors.New("connection refused")}}
	d := newTestDeployer(t, runner, nil)

	_, err := d.Deploy(context.Background(), Plan{Source: src, Remote: RemoteSpec{Host: "h", Dir: "/x"}})
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "scp", cmdErr.Command)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Len(t, runner.Calls(), 2)
}

func TestDeployValidatesInput(t *testing.T) {
	d := newTestDeployer(t, &RecordingRunner{}, nil)

	_, err := d.Deploy(context.Background(), Plan{Source: t.TempDir(), Remote: RemoteSpec{Host: "h"}})
	assert.ErrorIs(t, err, model.ErrConfig)

	_, err = d.Deploy(context.Background(), Plan{Source: filepath.Join(t.TempDir(), "nope"), Remote: RemoteSpec{Host: "h", Dir: "/d"}})
	assert.ErrorIs(t, err, model.ErrSourceNotFound)

	_, err = d.Deploy(context.Background(), Plan{Source: t.TempDir(), Remote: RemoteSpec{Host: "h", Dir: "/d"}})
	assert.Error(t, err)
}

func TestDeployRejectsTildeDir(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")

	runner := &RecordingRunner{}
	d := newTestDeployer(t, runner, nil)

	for _, dir := range []string{"~/app", "~deploy/app"} {
		_, err := d.Deploy(context.Background(), Plan{Source: src, Remote: RemoteSpec{Host: "h", Dir: dir}})
		assert.ErrorIs(t, err, model.ErrConfig, dir)
	}
	assert.Empty(t, runner.Calls())
}

func TestDeployRelativeDirStaysRelative(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")

	runner := &RecordingRunner{}
	d := newTestDeployer(t, runner, nil)

	res, err := d.Deploy(context.Background(), Plan{Source: src, Remote: RemoteSpec{Host: "h", Dir: "app"}})
	require.NoError(t, err)
	assert.Equal(t, "release-20240102-030405.tar.gz", res.RemoteArchive)

	calls := runner.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[2][len(calls[2])-1], "mkdir -p 'app'")
}

func TestParseRemote(t *testing.T) {
	spec, err := ParseRemote("deploy@example.com:/var/www")
	require.NoError(t, err)
	assert.Equal(t, RemoteSpec{User: "deploy", Host: "example.com", Dir: "/var/www"}, spec)
	assert.Equal(t, "deploy@example.com:/var/www", spec.String())

	spec, err = ParseRemote("example.com:site")
	require.NoError(t, err)
	assert.Equal(t, "example.com", spec.Target())

	for _, bad := range []string{"", "host", "host:", ":dir", "user@:dir"} {
		_, err := ParseRemote(bad)
		assert.Error(t, err, bad)
	}
}

func TestSSHTransportOptions(t *testing.T) {
	runner := &RecordingRunner{}
	tr := SSHTransport{Runner: runner, SSH: "/usr/bin/ssh"}

	remote := RemoteSpec{Host: "h", IdentityFile: "/k/id", Options: []string{"StrictHostKeyChecking=no"}}
	_, err := tr.Exec(context.Background(), remote, "uptime")
	require.NoError(t, err)

	assert.Equal(t, [][]string{{
		"/usr/bin/ssh", "-o", "BatchMode=yes", "-i", "/k/id", "-o", "StrictHostKeyChecking=no", "h", "uptime",
	}}, runner.Calls())
}

func TestExecRunnerCapturesExitCode(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	out, err := ExecRunner{}.Run(context.Background(), "/bin/sh", "-c", "echo boom; exit 3")
	require.Error(t, err)
	assert.Contains(t, string(out), "boom")

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Error(), "code 3")

	out, err = ExecRunner{}.Run(context.Background(), "/bin/sh", "-c", "echo ok")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(out))
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "ssh h 'echo hi; rm -f x'", CommandLine([]string{"ssh", "h", "echo hi; rm -f x"}))
	assert.Equal(t, `echo 'it'\''s'`, CommandLine([]string{"echo", "it's"}))
}
