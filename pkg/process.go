package sss

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/edwingeng/deque"
	"github.com/tevino/abool/v2"
)

// ProcessLaunchError reports a child that could not be started: program not
// found, not executable, or the runtime already shut down.
type ProcessLaunchError struct {
	Prog string
	Err  error
}

func (e *ProcessLaunchError) Error() string {
	return fmt.Sprintf("cannot launch '%s': %v", e.Prog, e.Err)
}

func (e *ProcessLaunchError) Unwrap() error {
	return e.Err
}

// Runtime owns every child process a script spawns. Each child's stdout,
// stderr and stdin are independently scheduled: a dedicated reader goroutine
// per output stream, an optional feeder goroutine for stdin, and a waiter
// goroutine observing the exit. Shutdown terminates whatever is still
// running, so an aborting script leaves no orphans behind.
type Runtime struct {
	mu       sync.Mutex
	running  []*Process
	finished deque.Deque

	quit chan struct{}
	down *abool.AtomicBool
}

func NewRuntime() *Runtime {
	return &Runtime{
		finished: deque.NewDeque(),
		quit:     make(chan struct{}),
		down:     abool.New(),
	}
}

// SplitCommand turns the string form of run into an argument vector. The
// split is purely whitespace-delimited; there is no quoting.
func SplitCommand(cmd string) []string {
	return strings.Fields(cmd)
}

// Launch starts argv[0] with the remaining elements as arguments, its working
// directory snapshotted to dir.
func (rt *Runtime) Launch(argv []string, dir string) (*Process, error) {
	return rt.launch(argv, dir, nil)
}

// LaunchFed starts a child whose standard input is streamed, line by line,
// from the given pipe as lines become available.
func (rt *Runtime) LaunchFed(argv []string, dir string, stdin Pipe) (*Process, error) {
	return rt.launch(argv, dir, stdin)
}

func (rt *Runtime) launch(argv []string, dir string, stdin Pipe) (*Process, error) {
	if rt.down.IsSet() {
		return nil, &ProcessLaunchError{Err: errors.New("runtime is shut down")}
	}

	if len(argv) == 0 {
		return nil, &ProcessLaunchError{Err: errors.New("empty command")}
	}

	prog := argv[0]
	// A relative path containing a separator resolves against the launch-time
	// CWD; a bare name goes through PATH lookup.
	if !filepath.IsAbs(prog) && strings.ContainsRune(prog, os.PathSeparator) {
		prog = filepath.Join(dir, prog)
	}

	cmd := exec.Command(prog, argv[1:]...)
	cmd.Dir = dir

	// Plain os.Pipe pairs instead of cmd.StdoutPipe: Wait then has no copier
	// goroutines of its own, so observing the exit code never races with the
	// stream readers.
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, &ProcessLaunchError{Prog: prog, Err: err}
	}

	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, &ProcessLaunchError{Prog: prog, Err: err}
	}

	cmd.Stdout = outW
	cmd.Stderr = errW

	var inR, inW *os.File
	if stdin != nil {
		inR, inW, err = os.Pipe()
		if err != nil {
			outR.Close()
			outW.Close()
			errR.Close()
			errW.Close()
			return nil, &ProcessLaunchError{Prog: prog, Err: err}
		}

		cmd.Stdin = inR
	}

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		if inR != nil {
			inR.Close()
			inW.Close()
		}

		return nil, &ProcessLaunchError{Prog: prog, Err: err}
	}

	// The parent's copies of the child's ends must close, or the readers
	// never see EOF
	outW.Close()
	errW.Close()
	if inR != nil {
		inR.Close()
	}

	p := &Process{
		argv: argv,
		dir:  dir,
		cmd:  cmd,
		done: make(chan struct{}),
	}
	p.stdout = newStreamPipe(outR, rt.quit)
	p.stderr = newStreamPipe(errR, rt.quit)

	if stdin != nil {
		go feedPipe(stdin, inW)
	}

	rt.mu.Lock()
	rt.running = append(rt.running, p)
	rt.mu.Unlock()

	go func() {
		err := cmd.Wait()
		p.exitCode = exitStatus(err)
		close(p.done)
		rt.reap(p)
	}()

	return p, nil
}

func (rt *Runtime) reap(p *Process) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for i, q := range rt.running {
		if q == p {
			rt.running = append(rt.running[:i], rt.running[i+1:]...)
			break
		}
	}

	rt.finished.PushBack(p)
}

// NextFinished pops an exited process, nil if none has finished yet.
func (rt *Runtime) NextFinished() *Process {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.finished.Empty() {
		return nil
	}

	return rt.finished.PopFront().(*Process)
}

// Running reports how many children have not exited yet.
func (rt *Runtime) Running() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	return len(rt.running)
}

// Shutdown signals every still-running child to terminate, stops all stream
// readers, and waits for the exits. Safe to call more than once; the runtime
// launches nothing afterwards.
func (rt *Runtime) Shutdown() {
	if !rt.down.SetToIf(false, true) {
		return
	}

	close(rt.quit)

	rt.mu.Lock()
	running := append([]*Process(nil), rt.running...)
	rt.mu.Unlock()

	for _, p := range running {
		p.Kill()
	}

	for _, p := range running {
		<-p.done
	}
}

// Process is a handle over one spawned child: its launch argument list, the
// working directory snapshot, both captured output streams and the lazily
// observed exit code.
type Process struct {
	argv []string
	dir  string
	cmd  *exec.Cmd

	stdout, stderr *streamPipe

	done     chan struct{}
	exitCode int
}

func (p *Process) Stdout() Pipe {
	return p.stdout
}

func (p *Process) Stderr() Pipe {
	return p.stderr
}

// ExitCode blocks until the child terminates. A non-zero code is ordinary
// data, not an error.
func (p *Process) ExitCode() int {
	<-p.done
	return p.exitCode
}

func (p *Process) Kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// drained reports whether both output pipes have reached end-of-stream.
func (p *Process) drained() bool {
	return p.stdout.exhausted.IsSet() && p.stderr.exhausted.IsSet()
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}

	return -1
}
