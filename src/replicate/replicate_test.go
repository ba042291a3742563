package replicate_test

import (
	"context"
	"errors"
	"testing"

	"zgit/src/history"
	"zgit/src/replicate"
	"zgit/src/volmgr"
)

func newExecutor(f *volmgr.Fake) *replicate.Executor {
	e := replicate.New(f, nil)
	e.RetryDelay = 0
	return e
}

func plan(t *testing.T, hs history.Histories, src, dest string) history.Plan {
	t.Helper()
	c, err := history.Compare(src, dest, hs)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	p, err := history.NewPlan(c, hs[src], 0)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	return p
}

func TestExecute_FullThenIncrements(t *testing.T) {
	f := volmgr.NewFake()
	f.AddVolume("backup", "")
	f.AddSnapshot("tank/a", "s1", "g1")
	f.AddSnapshot("tank/a", "s2", "g2")
	f.AddSnapshot("tank/a", "s3", "g3")
	hs, _ := f.ListHistories(context.Background())

	head, err := newExecutor(f).Execute(context.Background(), plan(t, hs, "tank/a", "backup/x/a"), hs, replicate.Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if head == nil || head.Name != "s3" {
		t.Fatalf("head = %v", head)
	}
	if f.CountOps("create backup/x") != 1 || f.CountOps("full") != 1 || f.CountOps("incremental") != 2 {
		t.Fatalf("ops = %v", f.Ops)
	}
	if !f.Volumes["backup/x/a"].ReadOnly {
		t.Fatalf("new archive should be read-only")
	}
	if len(hs["backup/x/a"]) != 3 {
		t.Fatalf("histories not updated: %v", hs["backup/x/a"])
	}
}

func TestExecute_ReadOnlyRecovery(t *testing.T) {
	f := volmgr.NewFake()
	f.AddSnapshot("tank/a", "s1", "g1")
	f.AddSnapshot("tank/a", "s2", "g2")
	f.AddSnapshot("backup/a", "s1", "g1")
	f.Volumes["backup/a"].Modified = true
	hs, _ := f.ListHistories(context.Background())
	p := plan(t, hs, "tank/a", "backup/a")

	if _, err := newExecutor(f).Execute(context.Background(), p, hs, replicate.Options{}); err == nil {
		t.Fatalf("expected a modified destination to reject the increment")
	}
	if f.CountOps("rollback") != 0 {
		t.Fatalf("rollback without readonly: %v", f.Ops)
	}

	head, err := newExecutor(f).Execute(context.Background(), p, hs, replicate.Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("Execute readonly: %v", err)
	}
	if head.Name != "s2" {
		t.Fatalf("head = %v", head)
	}
	if f.CountOps("rollback backup/a@s1") != 1 || f.CountOps("readonly backup/a=true") != 1 {
		t.Fatalf("ops = %v", f.Ops)
	}
}

func TestExecute_StopsAtFirstFailure(t *testing.T) {
	f := volmgr.NewFake()
	for _, s := range []string{"s1", "s2", "s3", "s4"} {
		f.AddSnapshot("tank/a", s, "g-"+s)
	}
	f.AddSnapshot("backup/a", "s1", "g-s1")
	boom := errors.New("boom")
	f.Fail = func(op string, args ...string) error {
		if op == "incremental" && args[2] == "s3" {
			return boom
		}
		return nil
	}
	hs, _ := f.ListHistories(context.Background())
	head, err := newExecutor(f).Execute(context.Background(), plan(t, hs, "tank/a", "backup/a"), hs, replicate.Options{})
	var tf *replicate.TransferFailedError
	if !errors.As(err, &tf) || tf.From != "s2" || tf.To != "s3" || !errors.Is(err, boom) {
		t.Fatalf("expected TransferFailedError s2..s3, got %v", err)
	}
	if head == nil || head.Name != "s2" {
		t.Fatalf("applied increments must stay applied, head = %v", head)
	}
	if f.CountOps("incremental") != 1 || len(f.Volumes["backup/a"].Snapshots) != 2 {
		t.Fatalf("ops = %v", f.Ops)
	}
}

func TestExecute_FullTransferFailure(t *testing.T) {
	f := volmgr.NewFake()
	f.AddSnapshot("tank/a", "s1", "g1")
	f.AddVolume("backup", "")
	f.Fail = func(op string, args ...string) error {
		if op == "full" {
			return errors.New("no space")
		}
		return nil
	}
	hs, _ := f.ListHistories(context.Background())
	_, err := newExecutor(f).Execute(context.Background(), plan(t, hs, "tank/a", "backup/a"), hs, replicate.Options{})
	var tf *replicate.TransferFailedError
	if !errors.As(err, &tf) || tf.From != "" || tf.To != "s1" {
		t.Fatalf("got %v", err)
	}
	if hs.Has("backup/a") {
		t.Fatalf("failed transfer must not record the destination")
	}
}
