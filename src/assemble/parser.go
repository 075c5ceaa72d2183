package assemble

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	// FROM [--platform=...] <image> [AS <name>]
	fromRe = regexp.MustCompile(`(?i)^FROM\s+(?:--platform=\S+\s+)?(\S+)(?:\s+AS\s+(\S+))?`)
	// RUN <<EOF / RUN <<'EOF' heredoc opener
	heredocRe = regexp.MustCompile(`<<-?'?([A-Za-z_][A-Za-z0-9_]*)'?`)
)

// Dockerfile is the parsed shape of a (possibly multi-stage) Dockerfile.
type Dockerfile struct {
	Path   string
	Stages []Stage
}

// Stage is a single FROM stage and the instructions under it.
type Stage struct {
	Name         string // alias from "AS name", empty if unnamed
	BaseImage    string
	Line         int
	Instructions []Instruction
}

// Instruction is one Dockerfile instruction. Heredoc bodies and
// backslash continuations are folded into Args.
type Instruction struct {
	Cmd  string // upper-cased: RUN, COPY, ENTRYPOINT, ...
	Args string
	Line int
}

// ParseFile parses the Dockerfile at path.
func ParseFile(path string) (*Dockerfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df, err := Parse(f)
	if err != nil {
		return nil, err
	}
	df.Path = path
	return df, nil
}

// Parse reads Dockerfile text. This is a line-based parser, not a full
// AST; sufficient for stage accounting and isolation checks.
func Parse(r io.Reader) (*Dockerfile, error) {
	df := &Dockerfile{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i := 0; i < len(lines); i++ {
		lineNum := i + 1
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Fold backslash continuations
		for strings.HasSuffix(line, "\\") && i+1 < len(lines) {
			i++
			line = strings.TrimSuffix(line, "\\") + " " + strings.TrimSpace(lines[i])
		}

		// Fold heredoc bodies
		if m := heredocRe.FindStringSubmatch(line); m != nil {
			terminator := m[1]
			for i+1 < len(lines) {
				i++
				body := strings.TrimSpace(lines[i])
				line += "\n" + body
				if body == terminator {
					break
				}
			}
		}

		if m := fromRe.FindStringSubmatch(line); m != nil {
			stage := Stage{BaseImage: m[1], Line: lineNum}
			if len(m) > 2 {
				stage.Name = m[2]
			}
			df.Stages = append(df.Stages, stage)
			continue
		}

		fields := strings.SplitN(line, " ", 2)
		inst := Instruction{Cmd: strings.ToUpper(fields[0]), Line: lineNum}
		if len(fields) > 1 {
			inst.Args = fields[1]
		}
		if len(df.Stages) == 0 {
			// Instructions before the first FROM (only ARG is legal
			// there) are not stage-scoped; skip them.
			continue
		}
		last := &df.Stages[len(df.Stages)-1]
		last.Instructions = append(last.Instructions, inst)
	}

	return df, nil
}

// Final returns the last (runtime) stage, or nil.
func (d *Dockerfile) Final() *Stage {
	if len(d.Stages) == 0 {
		return nil
	}
	return &d.Stages[len(d.Stages)-1]
}

// StageByName returns the named stage, or nil.
func (d *Dockerfile) StageByName(name string) *Stage {
	for i := range d.Stages {
		if d.Stages[i].Name == name {
			return &d.Stages[i]
		}
	}
	return nil
}
