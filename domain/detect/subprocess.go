package detect

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/soocke/pixel-overlay-go/domain/capture"
)

const (
	// maxResponse bounds a single worker reply.
	maxResponse = 16 << 20
	exitGrace   = 2 * time.Second

	// ReplyChannelEnv tells the worker where to write replies: "3" for the
	// inherited side-channel descriptor, "stdout" where extra descriptors
	// cannot be inherited.
	ReplyChannelEnv = "PIXEL_OVERLAY_REPLY_FD"
)

// SubprocessOptions configures an external detection worker.
type SubprocessOptions struct {
	Command   string
	Args      []string
	ModelPath string
	Conf      float64
	IoU       float64
	Env       []string // appended to the parent environment
}

// Subprocess runs inference in a child process (a YOLO runtime, typically
// Python). Protocol, both directions length-prefixed with a big-endian
// uint32:
//
//	stdin  -> [len][width u32][height u32][BGR pixels]
//	fd 3   <- [len][JSON {"boxes": [[x1,y1,x2,y2,score], ...], "error": ""}]
//
// On Windows, which cannot pass extra descriptors, replies travel on stdout.
// Stderr lines are forwarded to the logger. A worker that fails mid-request
// is torn down and restarted on the next Detect call.
type Subprocess struct {
	opts   SubprocessOptions
	logger *slog.Logger

	mu       sync.Mutex
	w        *pipeWorker
	closed   bool
	restarts int
}

type pipeWorker struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	data     io.ReadCloser
	stderr   sync.WaitGroup
	waitOnce sync.Once
	waitErr  error
}

type workerReply struct {
	Boxes [][]float64 `json:"boxes"`
	Error string      `json:"error"`
}

// NewSubprocess validates the model path and starts the worker. Any failure
// is wrapped in ErrDetectorUnavailable.
func NewSubprocess(opts SubprocessOptions, logger *slog.Logger) (*Subprocess, error) {
	if opts.Command == "" {
		return nil, fmt.Errorf("%w: no worker command", ErrDetectorUnavailable)
	}
	if opts.ModelPath != "" {
		if _, err := os.Stat(opts.ModelPath); err != nil {
			return nil, fmt.Errorf("%w: model %s: %v", ErrDetectorUnavailable, opts.ModelPath, err)
		}
	}
	s := &Subprocess{opts: opts, logger: logger}
	w, err := s.spawn()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}
	s.w = w
	return s, nil
}

func (s *Subprocess) argv() []string {
	args := append([]string(nil), s.opts.Args...)
	if s.opts.ModelPath != "" {
		args = append(args, "--model", s.opts.ModelPath)
	}
	args = append(args,
		"--conf", strconv.FormatFloat(s.opts.Conf, 'f', -1, 64),
		"--iou", strconv.FormatFloat(s.opts.IoU, 'f', -1, 64),
	)
	return args
}

func (s *Subprocess) spawn() (*pipeWorker, error) {
	cmd := exec.Command(s.opts.Command, s.argv()...)
	cmd.Env = append(os.Environ(), s.opts.Env...)

	var (
		data  io.ReadCloser
		child *os.File
	)
	if replyOnStdout {
		cmd.Env = append(cmd.Env, ReplyChannelEnv+"=stdout")
		out, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("stdout pipe: %w", err)
		}
		data = out
	} else {
		// Side-channel pipe for replies; the child sees the write end as FD 3
		// so stray prints on stdout cannot corrupt the protocol.
		r, w, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("create pipe: %w", err)
		}
		cmd.ExtraFiles = []*os.File{w}
		cmd.Env = append(cmd.Env, ReplyChannelEnv+"=3")
		data, child = r, w
	}
	fail := func(err error) error {
		if child != nil {
			child.Close()
			data.Close()
		}
		return err
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fail(fmt.Errorf("stdin pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fail(fmt.Errorf("stderr pipe: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return nil, fail(fmt.Errorf("start %s: %w", s.opts.Command, err))
	}
	if child != nil {
		// Only the child holds the write end now.
		child.Close()
	}

	pw := &pipeWorker{cmd: cmd, stdin: stdin, data: data}
	pw.stderr.Add(1)
	go func() {
		defer pw.stderr.Done()
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			if s.logger != nil {
				s.logger.Debug("detector stderr", "pid", cmd.Process.Pid, "line", sc.Text())
			}
		}
	}()
	if s.logger != nil {
		s.logger.Info("detector worker started", "pid", cmd.Process.Pid, "cmd", s.opts.Command, "model", s.opts.ModelPath)
	}
	return pw, nil
}

// Detect sends f to the worker and decodes the reply. Cancelling ctx kills
// the worker so a stalled call returns.
func (s *Subprocess) Detect(ctx context.Context, f *capture.Frame) ([]Box, error) {
	if f == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.w == nil {
		w, err := s.spawn()
		if err != nil {
			return nil, fmt.Errorf("restart detector: %w", err)
		}
		s.w = w
		s.restarts++
	}
	w := s.w
	stop := context.AfterFunc(ctx, func() { w.kill() })
	defer stop()

	reply, err := w.communicate(encodeFrame(f))
	if err == nil {
		var out workerReply
		if err = json.Unmarshal(reply, &out); err == nil {
			if out.Error != "" {
				return nil, fmt.Errorf("detector: %s", out.Error)
			}
			return ParseBoxes(out.Boxes), nil
		}
		err = fmt.Errorf("decode reply: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = errors.Join(ctxErr, err)
	}
	// Protocol state is unknown after a failed exchange.
	w.shutdown()
	s.w = nil
	return nil, err
}

// Restarts reports how many times the worker was respawned.
func (s *Subprocess) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// Close stops the worker. Safe to call more than once.
func (s *Subprocess) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.w == nil {
		return nil
	}
	err := s.w.shutdown()
	s.w = nil
	return err
}

func encodeFrame(f *capture.Frame) []byte {
	buf := make([]byte, 8+len(f.Pix))
	binary.BigEndian.PutUint32(buf[0:4], uint32(f.Width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(f.Height))
	copy(buf[8:], f.Pix)
	return buf
}

func (w *pipeWorker) communicate(data []byte) ([]byte, error) {
	if err := binary.Write(w.stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := w.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	var header [4]byte
	if _, err := io.ReadFull(w.data, header[:]); err != nil {
		return nil, fmt.Errorf("read reply header: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxResponse {
		return nil, fmt.Errorf("reply of %d bytes exceeds limit", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(w.data, body); err != nil {
		return nil, fmt.Errorf("read reply body: %w", err)
	}
	return body, nil
}

func (w *pipeWorker) kill() {
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
}

// shutdown closes stdin so a well-behaved worker exits on EOF, then reaps it.
// Workers still alive after exitGrace are killed.
func (w *pipeWorker) shutdown() error {
	w.waitOnce.Do(func() {
		w.stdin.Close()
		t := time.AfterFunc(exitGrace, w.kill)
		defer t.Stop()
		w.stderr.Wait()
		w.waitErr = w.cmd.Wait()
		w.data.Close()
	})
	var exitErr *exec.ExitError
	if errors.As(w.waitErr, &exitErr) {
		return nil
	}
	return w.waitErr
}
