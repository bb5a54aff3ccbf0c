// Copyright (c) 2026 The sigma-hub Authors. All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoDownloader - yt-dlp 下载进度与取消管理工具
//
// Package process wraps exec.Cmd for controlling a yt-dlp process.

package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/sigma-hub/sfm-extension-video-downloader/internal/logger"
)

// DefaultKillDelay is the grace period between interrupt and kill
const DefaultKillDelay = 5 * time.Second

var (
	ErrNoBinary       = errors.New("no valid binary given")
	ErrAlreadyStarted = errors.New("process already started")
)

// Process represents a process
type Process interface {
	Status() Status
	Start() error
	Stop(wait bool) error
	Kill(wait bool) error
	Wait() Result
	IsRunning() bool
	Log() []Line
}

// Config for a process
type Config struct {
	Binary        string
	Args          []string
	Dir           string
	Env           []string
	KillDelay     time.Duration
	LogLines      int
	OnLine        func(Line)
	OnStart       func()
	OnExit        func(Result)
	OnStateChange func(from, to string)
	Logger        logger.Logger
	Sampler       Sampler
}

// Status of a process
type Status struct {
	State    string
	States   States
	Duration time.Duration
	Time     time.Time
	PID      int
	CPU      float64
	Memory   uint64
}

// States cumulative counts
type States struct {
	Finished  uint64
	Starting  uint64
	Running   uint64
	Finishing uint64
	Failed    uint64
	Killed    uint64
}

// Result describes how the process ended. Output holds the tail of stderr.
type Result struct {
	State    string
	ExitCode int
	Err      error
	Output   []string
}

// Success reports a zero exit
func (r Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0 && r.State == stateFinished.String()
}

type stateType string

const (
	stateFinished  stateType = "finished"
	stateStarting  stateType = "starting"
	stateRunning   stateType = "running"
	stateFinishing stateType = "finishing"
	stateFailed    stateType = "failed"
	stateKilled    stateType = "killed"
)

func (s stateType) String() string { return string(s) }

func (s stateType) IsRunning() bool {
	return s == stateStarting || s == stateRunning || s == stateFinishing
}

type process struct {
	binary    string
	args      []string
	dir       string
	env       []string
	killDelay time.Duration
	cmd       *exec.Cmd
	pid       int
	stdout    io.ReadCloser
	stderr    io.ReadCloser

	state struct {
		state  stateType
		time   time.Time
		states States
		lock   sync.Mutex
	}
	started bool
	startMu sync.Mutex

	log      *lineLog
	errLog   *lineLog
	onLine   func(Line)
	scanErr  error
	done     chan struct{}
	result   Result
	resultMu sync.Mutex

	killTimer     *time.Timer
	killTimerLock sync.Mutex
	logger        logger.Logger
	sampler       Sampler
	callbacks     struct {
		onStart       func()
		onExit        func(Result)
		onStateChange func(from, to string)
	}
}

// New creates a new process
func New(config Config) (Process, error) {
	p := &process{
		binary:    config.Binary,
		args:      config.Args,
		dir:       config.Dir,
		env:       config.Env,
		killDelay: config.KillDelay,
		onLine:    config.OnLine,
		logger:    config.Logger,
		sampler:   config.Sampler,
		log:       newLineLog(config.LogLines),
		errLog:    newLineLog(config.LogLines),
		done:      make(chan struct{}),
	}

	if len(p.binary) == 0 {
		return nil, ErrNoBinary
	}
	if p.killDelay <= 0 {
		p.killDelay = DefaultKillDelay
	}
	if p.onLine == nil {
		p.onLine = func(Line) {}
	}
	if p.logger == nil {
		p.logger = logger.Nop()
	}
	if p.sampler == nil {
		p.sampler = NewNullSampler()
	}

	p.initState(stateFinished)
	p.callbacks.onStart = config.OnStart
	p.callbacks.onExit = config.OnExit
	p.callbacks.onStateChange = config.OnStateChange

	return p, nil
}

func (p *process) initState(state stateType) {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	p.state.state = state
	p.state.time = time.Now()
}

func (p *process) setState(state stateType) error {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()

	prevState := p.state.state
	failed := false

	switch p.state.state {
	case stateFinished:
		if state == stateStarting {
			p.state.state = state
			p.state.states.Starting++
		} else {
			failed = true
		}
	case stateStarting:
		switch state {
		case stateRunning, stateFailed:
			p.state.state = state
			if state == stateRunning {
				p.state.states.Running++
			} else {
				p.state.states.Failed++
			}
		default:
			failed = true
		}
	case stateRunning:
		switch state {
		case stateFinished, stateFinishing, stateFailed, stateKilled:
			p.state.state = state
			switch state {
			case stateFinished:
				p.state.states.Finished++
			case stateFinishing:
				p.state.states.Finishing++
			case stateFailed:
				p.state.states.Failed++
			case stateKilled:
				p.state.states.Killed++
			}
		default:
			failed = true
		}
	case stateFinishing:
		switch state {
		case stateFinished, stateFailed, stateKilled:
			p.state.state = state
			if state == stateFinished {
				p.state.states.Finished++
			} else if state == stateFailed {
				p.state.states.Failed++
			} else {
				p.state.states.Killed++
			}
		default:
			failed = true
		}
	case stateFailed, stateKilled:
		failed = true
	default:
		return fmt.Errorf("unhandled state: %s", p.state.state)
	}

	if failed {
		return fmt.Errorf("can't change from %s to %s", p.state.state, state)
	}

	p.state.time = time.Now()
	if p.callbacks.onStateChange != nil {
		go p.callbacks.onStateChange(prevState.String(), p.state.state.String())
	}
	return nil
}

func (p *process) getState() stateType {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	return p.state.state
}

func (p *process) isRunning() bool {
	return p.getState().IsRunning()
}

func (p *process) Status() Status {
	cpu, memory := p.sampler.Current()

	p.state.lock.Lock()
	stateTime := p.state.time
	stateString := p.state.state.String()
	states := p.state.states
	pid := p.pid
	p.state.lock.Unlock()

	return Status{
		State:    stateString,
		States:   states,
		Duration: time.Since(stateTime),
		Time:     stateTime,
		PID:      pid,
		CPU:      cpu,
		Memory:   memory,
	}
}

func (p *process) IsRunning() bool {
	return p.isRunning()
}

func (p *process) Log() []Line {
	return p.log.lines()
}

// Start launches the binary. A process runs at most once.
func (p *process) Start() error {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	p.setState(stateStarting)

	p.cmd = exec.Command(p.binary, p.args...)
	p.cmd.Dir = p.dir
	p.cmd.Env = append(os.Environ(), p.env...)

	var err error
	if p.stdout, err = p.cmd.StdoutPipe(); err != nil {
		return p.startFailed(fmt.Errorf("stdout pipe: %w", err))
	}
	if p.stderr, err = p.cmd.StderrPipe(); err != nil {
		return p.startFailed(fmt.Errorf("stderr pipe: %w", err))
	}
	if err := p.cmd.Start(); err != nil {
		return p.startFailed(fmt.Errorf("start %s: %w", p.binary, err))
	}

	p.state.lock.Lock()
	p.pid = p.cmd.Process.Pid
	p.state.lock.Unlock()
	if err := p.sampler.Start(p.pid); err != nil {
		p.logger.Debug("sampler for pid %d: %v", p.pid, err)
	}

	p.setState(stateRunning)
	p.logger.Debug("started %s (pid %d)", p.binary, p.pid)

	if p.callbacks.onStart != nil {
		go p.callbacks.onStart()
	}

	go p.reader()

	return nil
}

func (p *process) startFailed(err error) error {
	p.setState(stateFailed)
	p.finish(Result{State: stateFailed.String(), ExitCode: -1, Err: err})
	return err
}

func (p *process) Stop(wait bool) error {
	return p.stop(wait, false)
}

func (p *process) Kill(wait bool) error {
	return p.stop(wait, true)
}

func (p *process) stop(wait, kill bool) error {
	// Start holds startMu until the child is launched or has failed
	p.startMu.Lock()
	started := p.started
	p.startMu.Unlock()
	if !started {
		return nil
	}

	switch p.getState() {
	case stateRunning:
		p.setState(stateFinishing)
	case stateFinishing:
		if !kill {
			if wait {
				<-p.done
			}
			return nil
		}
	default:
		if wait {
			<-p.done
		}
		return nil
	}

	var err error
	if kill || runtime.GOOS == "windows" {
		err = p.cmd.Process.Kill()
	} else {
		err = p.cmd.Process.Signal(os.Interrupt)
		if err != nil {
			err = p.cmd.Process.Kill()
		} else {
			p.killTimerLock.Lock()
			p.killTimer = time.AfterFunc(p.killDelay, func() {
				p.logger.Info("pid %d ignored interrupt for %s, killing", p.pid, p.killDelay)
				p.cmd.Process.Kill()
			})
			p.killTimerLock.Unlock()
		}
	}

	if err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			err = nil
		} else {
			p.logger.Error("signal pid %d: %v", p.pid, err)
			return err
		}
	}

	if wait {
		<-p.done
	}
	return nil
}

// Wait blocks until the process has exited and all output was dispatched
func (p *process) Wait() Result {
	<-p.done
	p.resultMu.Lock()
	defer p.resultMu.Unlock()
	return p.result
}

// reader funnels stdout and stderr into one ordered consumer so that OnLine
// never runs concurrently with itself.
func (p *process) reader() {
	lines := make(chan Line, 64)

	var g errgroup.Group
	g.Go(func() error { return scan(p.stdout, StreamStdout, lines) })
	g.Go(func() error { return scan(p.stderr, StreamStderr, lines) })
	go func() {
		p.scanErr = g.Wait()
		close(lines)
	}()

	for line := range lines {
		p.log.add(line)
		if line.Stream == StreamStderr {
			p.errLog.add(line)
		}
		p.onLine(line)
	}

	p.waiter()
}

func scan(r io.Reader, stream Stream, lines chan<- Line) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanLine)
	for scanner.Scan() {
		lines <- Line{Timestamp: time.Now(), Data: scanner.Text(), Stream: stream}
	}
	if err := scanner.Err(); err != nil {
		// keep draining so the child never blocks on a full pipe
		io.Copy(io.Discard, r)
		return fmt.Errorf("scan %s: %w", stream, err)
	}
	return nil
}

func (p *process) waiter() {
	res := Result{}

	if err := p.cmd.Wait(); err != nil {
		var exiterr *exec.ExitError
		if errors.As(err, &exiterr) {
			res.ExitCode = exiterr.ExitCode()
			status, ok := exiterr.Sys().(syscall.WaitStatus)
			if ok && !status.Exited() {
				p.setState(stateKilled)
				res.State = stateKilled.String()
			} else {
				p.setState(stateFailed)
				res.State = stateFailed.String()
			}
		} else {
			p.setState(stateKilled)
			res.State = stateKilled.String()
			res.ExitCode = -1
		}
		res.Err = err
	} else {
		p.setState(stateFinished)
		res.State = stateFinished.String()
	}

	if p.scanErr != nil {
		p.logger.Error("reading output of pid %d: %v", p.pid, p.scanErr)
		if res.Err == nil {
			res.Err = p.scanErr
		}
	}

	p.sampler.Stop()

	p.killTimerLock.Lock()
	if p.killTimer != nil {
		p.killTimer.Stop()
		p.killTimer = nil
	}
	p.killTimerLock.Unlock()

	for _, line := range p.errLog.lines() {
		res.Output = append(res.Output, line.Data)
	}

	p.logger.Debug("pid %d exited: state=%s code=%d", p.pid, res.State, res.ExitCode)
	p.finish(res)
}

func (p *process) finish(res Result) {
	p.resultMu.Lock()
	p.result = res
	p.resultMu.Unlock()
	close(p.done)

	if p.callbacks.onExit != nil {
		go p.callbacks.onExit(res)
	}
}

// scanLine splits on \n and \r so that carriage-return progress updates
// arrive as separate lines. Empty lines are skipped.
func scanLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		r, w := utf8.DecodeRune(data[start:])
		if r != '\n' && r != '\r' {
			break
		}
		start += w
	}

	for i := start; i < len(data); {
		r, w := utf8.DecodeRune(data[i:])
		if r == '\n' || r == '\r' {
			return i + w, data[start:i], nil
		}
		i += w
	}

	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}
