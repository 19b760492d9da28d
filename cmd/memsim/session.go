package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/memsim/sim"
	"golang.org/x/exp/slog"
)

type sessionOptions struct {
	// JSON prints snapshots as JSON and turns off the event narrative
	JSON bool
	// Strict stops a script at the first failing line
	Strict bool
	// Quiet turns off the event narrative
	Quiet bool
}

// session feeds script lines to a single simulator and prints what happens
type session struct {
	simulator *sim.Simulator
	out       io.Writer
	errOut    io.Writer
	options   sessionOptions

	// narrating is false while the simulator is being built, so seed processes are not announced
	narrating bool
	failures  int
}

func newSession(out, errOut io.Writer, logger *slog.Logger, options sim.CreateOptions, sessionOpts sessionOptions) (*session, error) {
	s := &session{
		out:     out,
		errOut:  errOut,
		options: sessionOpts,
	}

	options.EventHandler = sim.EventHandlerFunc(s.handleEvent)

	simulator, err := sim.New(logger, options)
	if err != nil {
		return nil, err
	}

	s.simulator = simulator
	s.narrating = !sessionOpts.JSON && !sessionOpts.Quiet
	return s, nil
}

func (s *session) handleEvent(event sim.Event) {
	if !s.narrating {
		return
	}

	line, ok := describeEvent(event)
	if ok {
		fmt.Fprintln(s.out, eventStyle.Render(line))
	}
}

// run executes every line read from in. With prompt set, a prompt is printed before each
// line. Failing lines are reported to errOut and skipped unless the session is strict.
func (s *session) run(in io.Reader, name string, prompt bool) error {
	scanner := bufio.NewScanner(in)

	for lineNumber := 1; ; lineNumber++ {
		if prompt {
			fmt.Fprint(s.out, "memsim> ")
		}

		if !scanner.Scan() {
			break
		}

		err := s.runLine(scanner.Text())
		if err == nil {
			continue
		}

		err = errors.Wrapf(err, "%s:%d", name, lineNumber)
		if s.options.Strict {
			return err
		}

		s.failures++
		fmt.Fprintln(s.errOut, errorStyle.Render("error: "+err.Error()))
	}

	if prompt {
		fmt.Fprintln(s.out)
	}

	return scanner.Err()
}

func (s *session) runLine(line string) error {
	stmt, ok, err := parseStatement(line)
	if err != nil || !ok {
		return err
	}

	if stmt.show {
		return s.show()
	}

	return s.simulator.Execute(stmt.command)
}

// show prints the current snapshot
func (s *session) show() error {
	snapshot := s.simulator.Snapshot()

	if s.options.JSON {
		writer := jwriter.NewWriter()
		snapshot.WriteJSON(&writer)
		if err := writer.Error(); err != nil {
			return err
		}

		_, err := fmt.Fprintln(s.out, string(writer.Bytes()))
		return err
	}

	_, err := fmt.Fprint(s.out, renderSnapshot(snapshot))
	return err
}
