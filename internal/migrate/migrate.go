// Package migrate sequences a workspace-state migration: locate the
// old state directory, compute the destination hash, relocate the state
// and rewrite its internal path references, per editor and per job.
package migrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"wsmigrate/internal/config"
	"wsmigrate/internal/hashid"
	"wsmigrate/internal/relocate"
	"wsmigrate/internal/rewrite"
	"wsmigrate/internal/storage"
	"wsmigrate/internal/wspath"
)

// State tracks how far a job has progressed.
type State string

const (
	StatePending             State = "pending"
	StateFilesCopied         State = "files-copied"
	StateStorageLocated      State = "storage-located"
	StateHashComputed        State = "hash-computed"
	StateStateRelocated      State = "state-relocated"
	StateReferencesRewritten State = "references-rewritten"
	StateDone                State = "done"
	StateFailed              State = "failed"
)

// FilesStatus reports what happened to the project files themselves.
type FilesStatus string

const (
	FilesCopied   FilesStatus = "copied"
	FilesSkipped  FilesStatus = "skipped"  // --no-copy
	FilesExisting FilesStatus = "existing" // destination already there
	FilesFailed   FilesStatus = "failed"
)

// Outcome reports one editor's migration inside a job.
type Outcome string

const (
	OutcomeMigrated Outcome = "migrated"
	OutcomeSkipped  Outcome = "skipped" // no state directory for this workspace
	OutcomeFailed   Outcome = "failed"
)

// Job is one source → dest workspace migration. Immutable once started.
type Job struct {
	ID        string
	Source    string
	Dest      string
	CopyFiles bool
}

// NewJob builds a job with normalized absolute paths.
func NewJob(source, dest string, copyFiles bool) (*Job, error) {
	src, err := wspath.Normalize(source)
	if err != nil {
		return nil, err
	}
	dst, err := wspath.Normalize(dest)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:        uuid.NewString(),
		Source:    src,
		Dest:      dst,
		CopyFiles: copyFiles,
	}, nil
}

// EditorResult is the outcome for one editor kind within a job.
type EditorResult struct {
	Editor  config.Editor
	Outcome Outcome
	OldHash string
	NewHash string
	Counts  rewrite.Counts
	Err     error
}

// Result is the terminal record of a job.
type Result struct {
	Job     *Job
	State   State
	Files   FilesStatus
	Editors []EditorResult
	Err     error
}

// Failed reports whether the job ended in the failure state.
func (r *Result) Failed() bool {
	return r.State == StateFailed
}

// Orchestrator runs migration jobs against a fixed configuration.
type Orchestrator struct {
	cfg    *config.Config
	engine *hashid.Engine
	warn   func(msg string)
}

// New builds an orchestrator. warn receives non-fatal diagnostics from
// every component; nil discards them.
func New(cfg *config.Config, engine *hashid.Engine, warn func(msg string)) *Orchestrator {
	return &Orchestrator{cfg: cfg, engine: engine, warn: warn}
}

// Run executes one job to its terminal state. Per-editor failures are
// recorded in the result; they never panic or abort the sibling editor.
func (o *Orchestrator) Run(job *Job) *Result {
	res := &Result{Job: job, State: StatePending, Files: FilesSkipped}

	if job.Source == job.Dest {
		return fail(res, fmt.Errorf("source and destination are the same path: %s", job.Source))
	}
	if _, err := os.Stat(job.Source); err != nil {
		return fail(res, fmt.Errorf("source path: %w", err))
	}

	if err := o.placeFiles(job, res); err != nil {
		return fail(res, err)
	}

	// The destination folder must exist before hashing: the workspace
	// identity token (inode or creation time) belongs to the folder at
	// its final location, not to the source.
	located := o.locateAll(job, res)
	if len(located) == 0 {
		for _, er := range res.Editors {
			if er.Outcome == OutcomeFailed {
				return fail(res, errors.New("one or more editor migrations failed"))
			}
		}
		res.State = StateDone
		return res
	}
	res.State = StateStorageLocated

	newHash, err := o.engine.HashPath(job.Dest)
	if err != nil {
		return fail(res, fmt.Errorf("computing destination hash: %w", err))
	}
	res.State = StateHashComputed

	destURI := wspath.URIFromPath(job.Dest)
	for i := range res.Editors {
		er := &res.Editors[i]
		if er.Outcome != OutcomeMigrated {
			continue
		}
		stateDir := located[er.Editor]
		er.NewHash = newHash

		if err := o.migrateEditor(job, res, er, stateDir, newHash, destURI); err != nil {
			er.Outcome = OutcomeFailed
			er.Err = err
		}
	}

	for _, er := range res.Editors {
		if er.Outcome == OutcomeFailed {
			return fail(res, errors.New("one or more editor migrations failed"))
		}
	}

	res.State = StateDone
	return res
}

// placeFiles handles the plain project-file copy stage.
func (o *Orchestrator) placeFiles(job *Job, res *Result) error {
	destExists := false
	if _, err := os.Stat(job.Dest); err == nil {
		destExists = true
	}

	if !job.CopyFiles {
		if !destExists {
			res.Files = FilesFailed
			return fmt.Errorf("destination %s does not exist and file copying is disabled", job.Dest)
		}
		res.Files = FilesSkipped
		return nil
	}

	if destExists {
		o.warnf("destination %s already exists, skipping file copy", job.Dest)
		res.Files = FilesExisting
		return nil
	}

	if err := relocate.CopyTree(job.Source, job.Dest); err != nil {
		res.Files = FilesFailed
		return fmt.Errorf("copying project files: %w", err)
	}
	res.Files = FilesCopied
	res.State = StateFilesCopied
	return nil
}

// locateAll finds the source state directory for every editor kind,
// recording skips and lookup failures per editor.
func (o *Orchestrator) locateAll(job *Job, res *Result) map[config.Editor]*storage.StateDir {
	locator := storage.NewLocator(o.warn)
	located := make(map[config.Editor]*storage.StateDir)

	for _, ed := range config.Editors {
		root, ok := o.cfg.StorageRoots[ed]
		if !ok {
			continue
		}

		sd, err := locator.Locate(root, job.Source)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				o.warnf("no %s workspace state found for %s", ed.DisplayName(), job.Source)
				res.Editors = append(res.Editors, EditorResult{Editor: ed, Outcome: OutcomeSkipped})
				continue
			}
			res.Editors = append(res.Editors, EditorResult{Editor: ed, Outcome: OutcomeFailed, Err: err})
			continue
		}

		located[ed] = sd
		res.Editors = append(res.Editors, EditorResult{Editor: ed, Outcome: OutcomeMigrated, OldHash: sd.HashID})
	}

	return located
}

// migrateEditor relocates one editor's state directory and rewrites its
// path references.
func (o *Orchestrator) migrateEditor(job *Job, res *Result, er *EditorResult, sd *storage.StateDir, newHash, destURI string) error {
	storageRoot := o.cfg.StorageRoots[er.Editor]

	newDir, err := relocate.Relocate(sd.Root, storageRoot, newHash)
	if err != nil {
		return err
	}
	res.State = StateStateRelocated

	if err := updateWorkspaceMeta(newDir, destURI); err != nil {
		return err
	}

	rewriter := rewrite.NewRewriter(o.cfg.SkipGlobs, o.warn)
	counts, err := rewriter.Rewrite(newDir, job.Source, job.Dest)
	if err != nil {
		return err
	}
	er.Counts = counts
	res.State = StateReferencesRewritten
	return nil
}

// updateWorkspaceMeta points the relocated directory's workspace.json
// at the destination URI via a structured JSON update, so the record
// stays correct even if its old value would escape literal rewriting.
func updateWorkspaceMeta(dir, destURI string) error {
	metaPath := filepath.Join(dir, "workspace.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading workspace metadata: %w", err)
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("parsing workspace metadata: %w", err)
	}

	if _, ok := meta["folder"]; ok {
		meta["folder"] = destURI
	} else if _, ok := meta["workspace"]; ok {
		meta["workspace"] = destURI
	}

	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding workspace metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, out, 0644); err != nil {
		return fmt.Errorf("writing workspace metadata: %w", err)
	}
	return nil
}

// RunBatch treats every subdirectory of sourceRoot as its own job with
// the same-named destination under destRoot. One job's failure is
// recorded and the batch continues.
func (o *Orchestrator) RunBatch(sourceRoot, destRoot string, copyFiles bool) ([]*Result, error) {
	entries, err := os.ReadDir(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("reading batch source root: %w", err)
	}

	var results []*Result
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		job, err := NewJob(
			filepath.Join(sourceRoot, entry.Name()),
			filepath.Join(destRoot, entry.Name()),
			copyFiles,
		)
		if err != nil {
			results = append(results, &Result{
				Job:   &Job{Source: filepath.Join(sourceRoot, entry.Name())},
				State: StateFailed,
				Err:   err,
			})
			continue
		}

		results = append(results, o.Run(job))
	}

	return results, nil
}

func (o *Orchestrator) warnf(format string, args ...interface{}) {
	if o.warn != nil {
		o.warn(fmt.Sprintf(format, args...))
	}
}

func fail(res *Result, err error) *Result {
	res.State = StateFailed
	res.Err = err
	return res
}
