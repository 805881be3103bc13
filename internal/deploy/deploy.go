package deploy

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"mergesync/internal/model"
	"mergesync/internal/pipeline"

	"go.uber.org/zap"
)

type Options struct {
	Archiver   Archiver
	Transport  RemoteTransport
	Classifier *pipeline.Classifier
	Logger     *zap.Logger
	// WorkDir holds the local archive while it is uploaded. Defaults to os.TempDir().
	WorkDir string
}

type Deployer struct {
	archiver   Archiver
	transport  RemoteTransport
	classifier *pipeline.Classifier
	log        *zap.Logger
	workDir    string
	now        func() time.Time
}

type Plan struct {
	Source       string
	Remote       RemoteSpec
	KeepPrevious bool
	// ArchiveName defaults to release-<timestamp>.tar.gz.
	ArchiveName string
}

type Result struct {
	Files         int
	Archive       string
	RemoteArchive string
	PreviousDir   string
	Output        string
}

func NewDeployer(opts Options) *Deployer {
	if opts.Classifier == nil {
		opts.Classifier = pipeline.NewClassifier(nil, nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}

	return &Deployer{
		archiver:   opts.Archiver,
		transport:  opts.Transport,
		classifier: opts.Classifier,
		log:        opts.Logger,
		workDir:    opts.WorkDir,
		now:        time.Now,
	}
}

// Deploy archives every non-skipped file under plan.Source, uploads the
// archive next to the remote directory and unpacks it there. With
// KeepPrevious the old remote directory is moved aside first.
func (d *Deployer) Deploy(ctx context.Context, plan Plan) (Result, error) {
	var result Result

	if plan.Remote.Host == "" || plan.Remote.Dir == "" {
		return result, model.ConfigErrorf("deploy target needs a host and a directory")
	}
	// Remote paths are quoted, so the remote shell never expands "~". A
	// relative directory already resolves from the remote home.
	if strings.HasPrefix(plan.Remote.Dir, "~") {
		return result, model.ConfigErrorf("remote directory %q: use an absolute path or one relative to the remote home instead of ~", plan.Remote.Dir)
	}

	files, err := d.collect(plan.Source)
	if err != nil {
		return result, err
	}
	if len(files) == 0 {
		return result, fmt.Errorf("no files to deploy under %s", plan.Source)
	}
	result.Files = len(files)

	stamp := d.now().Format("20060102-150405")
	name := plan.ArchiveName
	if name == "" {
		name = "release-" + stamp + ".tar.gz"
	}

	local := filepath.Join(d.workDir, name)
	defer func() {
		_ = os.Remove(local)
	}()

	d.log.Info("creating archive",
		zap.String("src", plan.Source),
		zap.Int("files", len(files)),
		zap.String("archive", local))

	archive, err := d.archiver.Create(ctx, plan.Source, files, local)
	if err != nil {
		return result, err
	}
	result.Archive = archive

	remoteDir := strings.TrimRight(plan.Remote.Dir, "/")
	if remoteDir == "" {
		remoteDir = "/"
	}
	result.RemoteArchive = path.Join(path.Dir(remoteDir), name)

	d.log.Info("uploading archive",
		zap.String("remote", plan.Remote.String()),
		zap.String("path", result.RemoteArchive))

	if err := d.transport.Upload(ctx, archive, plan.Remote, result.RemoteArchive); err != nil {
		return result, err
	}

	if plan.KeepPrevious {
		result.PreviousDir = remoteDir + ".prev-" + stamp
	}

	script := extractScript(remoteDir, result.RemoteArchive, result.PreviousDir)
	out, err := d.transport.Exec(ctx, plan.Remote, script)
	result.Output = string(out)
	if err != nil {
		return result, err
	}

	d.log.Info("deploy finished",
		zap.String("remote", plan.Remote.String()),
		zap.Int("files", result.Files))

	return result, nil
}

func (d *Deployer) collect(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", model.ErrSourceNotFound, root)
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.classifier.Classify(rel).Kind == model.ActionSkip {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	return files, nil
}

func extractScript(dir, archive, previous string) string {
	var steps []string
	steps = append(steps, "set -e")
	if previous != "" {
		steps = append(steps, fmt.Sprintf("if [ -d %s ]; then mv %s %s; fi",
			shellQuote(dir), shellQuote(dir), shellQuote(previous)))
	}
	steps = append(steps,
		"mkdir -p "+shellQuote(dir),
		fmt.Sprintf("tar -xzf %s -C %s", shellQuote(archive), shellQuote(dir)),
		"rm -f "+shellQuote(archive),
	)
	return strings.Join(steps, "; ")
}
