package cli

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"zgit/src/bridge"
	"zgit/src/history"
	"zgit/src/logging"
	"zgit/src/registry"
	"zgit/src/safety"
	"zgit/src/syncer"
	"zgit/src/volmgr"
	"zgit/src/zfs"
)

type managerFactory func(cfg zfs.Config, log logrus.FieldLogger) volmgr.Manager

var newManagerFn managerFactory = func(cfg zfs.Config, log logrus.FieldLogger) volmgr.Manager {
	return zfs.New(cfg, log)
}

var getwdFn = os.Getwd

var newOpenerFn = bridge.DefaultOpener

// SetManagerForTest makes every command use m instead of the zfs driver.
// The returned function restores the previous factory.
func SetManagerForTest(m volmgr.Manager) func() {
	prev := newManagerFn
	newManagerFn = func(zfs.Config, logrus.FieldLogger) volmgr.Manager { return m }
	return func() { newManagerFn = prev }
}

// SetWorkingDirForTest overrides the directory used to find the current
// volume.
func SetWorkingDirForTest(dir string) func() {
	prev := getwdFn
	getwdFn = func() (string, error) { return dir, nil }
	return func() { getwdFn = prev }
}

// SetBridgeOpenerForTest overrides how bridge sources are opened.
func SetBridgeOpenerForTest(o *bridge.Opener) func() {
	prev := newOpenerFn
	newOpenerFn = func() *bridge.Opener { return o }
	return func() { newOpenerFn = prev }
}

// runtime is what a command needs once flags are parsed.
type runtime struct {
	ctx     context.Context
	log     *logrus.Logger
	mgr     volmgr.Manager
	orch    *syncer.Orchestrator
	cfgPath string
	opts    safety.Options
	out     io.Writer
}

func newRuntime(cmd *cobra.Command, stdout io.Writer) (*runtime, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := logging.New(globalString(cmd, "log-level"), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	cfg := zfs.DefaultConfig()
	if globalBool(cmd, "progress") {
		cfg.Progress = cmd.ErrOrStderr()
	}
	mgr := newManagerFn(cfg, log)
	return &runtime{
		ctx:     ctx,
		log:     log,
		mgr:     mgr,
		orch:    syncer.New(mgr, log),
		cfgPath: globalString(cmd, "config"),
		opts:    getSafetyOptions(cmd),
		out:     stdout,
	}, nil
}

func (r *runtime) histories() (history.Histories, error) {
	return r.orch.Histories(r.ctx)
}

func (r *runtime) loadRegistry() (*registry.Config, error) {
	return registry.Load(r.cfgPath)
}

// update runs fn inside a registry transaction. In dry-run mode fn still
// runs but nothing is saved.
func (r *runtime) update(fn func(*registry.Config) error) error {
	if r.opts.DryRun {
		reg, err := r.loadRegistry()
		if err != nil {
			return err
		}
		return fn(reg)
	}
	return registry.Update(r.cfgPath, fn)
}

// volume picks the volume a command acts on: an explicit argument, then
// --volume, then the volume mounted at the working directory.
func (r *runtime) volume(cmd *cobra.Command, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := globalString(cmd, "volume"); v != "" {
		return v, nil
	}
	wd, err := getwdFn()
	if err != nil {
		return "", err
	}
	return volmgr.ResolveVolumeForPath(r.ctx, r.mgr, wd)
}

// registeredVolume is volume plus a check that it is in the registry.
func (r *runtime) registeredVolume(cmd *cobra.Command, reg *registry.Config, explicit string) (string, error) {
	v, err := r.volume(cmd, explicit)
	if err != nil {
		return "", err
	}
	if !reg.IsRegistered(v) {
		return "", &registry.NotRegisteredError{Volume: v}
	}
	return v, nil
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
