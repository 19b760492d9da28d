package main

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/process"
	"github.com/vkngwrapper/memsim/sim"
)

// statement is one parsed script line. Show statements print the current snapshot instead of
// running a command.
type statement struct {
	command sim.Command
	show    bool
}

const scriptUsage = `commands:
  create <name> <size> [segment=size ...]
  spawn <name> <size> [segment=size ...]
  alloc <id>
  free <id>
  remove <id>
  policy <first|best|worst>
  compact
  reset
  show`

// tokenize splits a script line on whitespace. Double quotes group words into a single token
// and # starts a comment.
func tokenize(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken, quoted := false, false

scan:
	for _, r := range line {
		switch {
		case quoted && r == '"':
			quoted = false
		case quoted:
			current.WriteRune(r)
		case r == '"':
			quoted, inToken = true, true
		case r == '#':
			break scan
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}

	if quoted {
		return nil, errors.New("unterminated quote")
	}

	if inToken {
		tokens = append(tokens, current.String())
	}

	return tokens, nil
}

// parseStatement parses one script line. It returns false for blank and comment-only lines.
func parseStatement(line string) (statement, bool, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return statement{}, false, err
	}

	if len(tokens) == 0 {
		return statement{}, false, nil
	}

	verb, args := strings.ToLower(tokens[0]), tokens[1:]
	switch verb {
	case "create", "spawn":
		if len(args) < 2 {
			return statement{}, false, errors.Newf("%s expects a name and a size", verb)
		}

		size, err := memutils.ParseSize(args[1])
		if err != nil {
			return statement{}, false, err
		}

		segments, err := parseSegments(args[2:])
		if err != nil {
			return statement{}, false, err
		}

		if verb == "create" {
			return statement{command: sim.CreateProcess{Name: args[0], Size: size, Segments: segments}}, true, nil
		}
		return statement{command: sim.Spawn{Name: args[0], Size: size, Segments: segments}}, true, nil

	case "alloc", "allocate", "free", "remove":
		if len(args) != 1 {
			return statement{}, false, errors.Newf("%s expects a process id", verb)
		}

		id, err := parseProcessID(args[0])
		if err != nil {
			return statement{}, false, err
		}

		switch verb {
		case "free":
			return statement{command: sim.Free{ID: id}}, true, nil
		case "remove":
			return statement{command: sim.RemoveProcess{ID: id}}, true, nil
		default:
			return statement{command: sim.Allocate{ID: id}}, true, nil
		}

	case "policy":
		if len(args) != 1 {
			return statement{}, false, errors.New("policy expects first, best or worst")
		}

		policy, err := metadata.ParseFitPolicy(args[0])
		if err != nil {
			return statement{}, false, err
		}
		return statement{command: sim.SetFitPolicy{Policy: policy}}, true, nil

	case "compact", "reset", "show":
		if len(args) != 0 {
			return statement{}, false, errors.Newf("%s does not take arguments", verb)
		}

		switch verb {
		case "compact":
			return statement{command: sim.Compact{}}, true, nil
		case "reset":
			return statement{command: sim.Reset{}}, true, nil
		default:
			return statement{show: true}, true, nil
		}
	}

	return statement{}, false, errors.Newf("unknown command %q\n%s", tokens[0], scriptUsage)
}

func parseProcessID(value string) (process.ID, error) {
	id, err := strconv.Atoi(value)
	if err != nil || id <= 0 {
		return 0, errors.Newf("invalid process id %q", value)
	}

	return process.ID(id), nil
}

func parseSegments(args []string) ([]process.Segment, error) {
	var segments []process.Segment
	for _, arg := range args {
		separator := strings.LastIndexByte(arg, '=')
		if separator <= 0 {
			return nil, errors.Newf("segment %q must look like name=size", arg)
		}

		size, err := memutils.ParseSize(arg[separator+1:])
		if err != nil {
			return nil, err
		}

		segments = append(segments, process.Segment{Name: arg[:separator], Size: size})
	}

	return segments, nil
}
