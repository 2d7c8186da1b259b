// Package bridge connects a build tool's emitted assets to the protection
// pipeline.
//
// Each pass stages the protectable assets into a private input directory,
// points the blueprint's single target at private input and output
// directories, runs the pipeline and registers everything the binary wrote
// back into the asset tree.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/idanshimon/protect-web/internal/blueprint"
	"github.com/idanshimon/protect-web/internal/config"
	"github.com/idanshimon/protect-web/internal/exithook"
	"github.com/idanshimon/protect-web/internal/invoke"
)

var (
	ErrBridgeStaging      = errors.New("failed to stage assets for protection")
	ErrBridgeReabsorption = errors.New("failed to collect protected assets")
)

// protectable matches the asset names handed to the protection binary.
var protectable = regexp.MustCompile(`\.(js|html|htm|jsbundle|android\.bundle|xhtml|jsp|asp|aspx)$`)

// Target types with a fixed directory layout.
const (
	TargetNativeScriptIOS     = "nativescript-ios"
	TargetNativeScriptAndroid = "nativescript-android"
)

// Protector runs one protection pass. *invoke.Pipeline implements it.
type Protector interface {
	Invoke(ctx context.Context, bp *blueprint.Map) (invoke.Output, error)
}

// State is the phase of a pass.
type State int

const (
	StateIdle State = iota
	StateStaging
	StateInvoking
	StateReabsorbing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStaging:
		return "staging"
	case StateInvoking:
		return "invoking"
	case StateReabsorbing:
		return "reabsorbing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result describes a finished pass.
type Result struct {
	State      State
	Output     invoke.Output
	Staged     []string
	Reabsorbed []string
	Err        error
}

// Options configures a Bridge.
type Options struct {
	// ContextDir is the project directory. Its package.json name becomes
	// the default appID.
	ContextDir string
	// TempDir holds the per-pass input and output directories. Defaults
	// to os.TempDir().
	TempDir string
	// OnComplete is called once at the end of every pass.
	OnComplete func(Result)
	Logger     config.Logger
}

// Bridge runs protection passes over asset trees.
type Bridge struct {
	blueprint  *blueprint.Map
	targetType string
	protector  Protector
	opts       Options
	logger     config.Logger

	mu    sync.Mutex
	state State
}

// New creates a Bridge. A nil bp selects an empty guard configuration.
// Any targets declared in bp, in any casing, are discarded; every pass
// routes the single target to its own directories. bp is not modified.
func New(bp *blueprint.Map, p Protector, opts Options) (*Bridge, error) {
	if p == nil {
		return nil, fmt.Errorf("Protector is required")
	}

	if bp == nil {
		bp = blueprint.Default()
	} else {
		bp = bp.Clone()
		bp.DeleteFold(blueprint.KeyTargets)
	}

	return &Bridge{
		blueprint:  bp,
		targetType: blueprint.TargetType(bp),
		protector:  p,
		opts:       opts,
		logger:     config.OrNop(opts.Logger),
		state:      StateIdle,
	}, nil
}

// TargetType returns the lowercased target type the bridge lays files out
// for.
func (b *Bridge) TargetType() string {
	return b.targetType
}

// State returns the phase of the current or last pass.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// layoutDir returns the sub-directory the target type expects its sources
// in, relative to the input and output roots.
func layoutDir(targetType string) string {
	switch targetType {
	case TargetNativeScriptIOS:
		return "app"
	case TargetNativeScriptAndroid:
		return filepath.Join("assets", "app")
	default:
		return ""
	}
}

// Run performs one pass over tree. On failure tree is left as it was
// before reabsorption started.
func (b *Bridge) Run(ctx context.Context, tree AssetTree) (Result, error) {
	res := b.run(ctx, tree)
	if res.Err != nil {
		res.State = StateFailed
		b.logger.Error("protection pass failed", "error", res.Err)
	} else {
		res.State = StateDone
	}
	b.setState(res.State)

	if b.opts.OnComplete != nil {
		b.opts.OnComplete(res)
	}
	return res, res.Err
}

func (b *Bridge) run(ctx context.Context, tree AssetTree) Result {
	var res Result

	b.setState(StateStaging)
	inRoot, cleanupIn, err := b.scratchDir("protect-web-in-")
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrBridgeStaging, err)
		return res
	}
	defer cleanupIn()
	outRoot, cleanupOut, err := b.scratchDir("protect-web-out-")
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrBridgeStaging, err)
		return res
	}
	defer cleanupOut()

	layout := layoutDir(b.targetType)
	inDir := filepath.Join(inRoot, layout)
	outDir := filepath.Join(outRoot, layout)

	res.Staged, err = stage(tree, inDir)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrBridgeStaging, err)
		return res
	}

	bp, err := b.passBlueprint(inRoot, outRoot)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrBridgeStaging, err)
		return res
	}

	b.setState(StateInvoking)
	b.logger.Debug("invoking protection", "target_type", b.targetType, "assets", len(res.Staged))
	res.Output, err = b.protector.Invoke(ctx, bp)
	if err != nil {
		res.Err = err
		return res
	}

	b.setState(StateReabsorbing)
	res.Reabsorbed, err = reabsorb(outDir, tree)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrBridgeReabsorption, err)
		return res
	}

	if res.Output.Stdout != "" {
		b.logger.Info(res.Output.Stdout)
	}
	if res.Output.Stderr != "" {
		b.logger.Info(res.Output.Stderr)
	}
	return res
}

// scratchDir creates a temp directory removed by the returned cleanup, or
// by an exit hook if the process dies first.
func (b *Bridge) scratchDir(pattern string) (string, func(), error) {
	dir, err := os.MkdirTemp(b.opts.TempDir, pattern)
	if err != nil {
		return "", nil, err
	}
	cancelHook := exithook.RemoveOnExit(dir)
	return dir, func() {
		os.RemoveAll(dir)
		cancelHook()
	}, nil
}

// passBlueprint copies the bridge blueprint, fills in appID from
// package.json when missing, and routes the target to the scratch roots.
func (b *Bridge) passBlueprint(inRoot, outRoot string) (*blueprint.Map, error) {
	bp := b.blueprint.Clone()

	name, err := packageName(b.opts.ContextDir)
	if err != nil {
		return nil, err
	}
	if name != "" {
		if _, err := blueprint.SetGlobalDefault(bp, blueprint.KeyAppID, name); err != nil {
			return nil, err
		}
	}

	blueprint.ReplaceTargets(bp, inRoot, outRoot)
	return bp, nil
}

// packageName reads the name field of dir/package.json. A missing file or
// field yields "".
func packageName(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read package.json: %w", err)
	}

	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("parse package.json: %w", err)
	}
	return pkg.Name, nil
}

// stage copies every protectable asset of tree into dir.
func stage(tree AssetTree, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	names, err := tree.Names()
	if err != nil {
		return nil, err
	}

	var staged []string
	for _, name := range names {
		if !protectable.MatchString(name) {
			continue
		}
		clean, err := cleanName(name)
		if err != nil {
			return nil, err
		}
		data, err := tree.Read(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		dest := filepath.Join(dir, filepath.FromSlash(clean))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		staged = append(staged, name)
	}
	return staged, nil
}

// reabsorb registers every file under dir in tree, replacing assets of the
// same name. Files are read before any is written so a read failure leaves
// tree untouched.
func reabsorb(dir string, tree AssetTree) ([]string, error) {
	type file struct {
		name string
		data []byte
	}
	var files []file

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files = append(files, file{name: filepath.ToSlash(rel), data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if err := tree.Write(f.name, f.data); err != nil {
			return names, fmt.Errorf("register %s: %w", f.name, err)
		}
		names = append(names, f.name)
	}
	return names, nil
}
